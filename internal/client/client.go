package client

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/mcoot/werewolf/internal/model"
	"github.com/mcoot/werewolf/internal/protocol"
	"github.com/mcoot/werewolf/internal/transport"
)

// ErrJoinRejected is returned by Join when the host turns the player away
var ErrJoinRejected = errors.New("join rejected")

// Candidate is a player that may be chosen
type Candidate struct {
	ID   model.PlayerID
	Name string
}

// Chooser picks targets for the night kill and the day vote
type Chooser interface {
	ChooseKill(ctx context.Context, candidates []Candidate) (model.PlayerID, error)
	ChooseVote(ctx context.Context, candidates []Candidate) (model.PlayerID, error)
}

// Notice is one thing that happened, described for the player
type Notice struct {
	Kind   protocol.Kind
	Text   string
	Player *model.PlayerID
}

// Renderer shows notices to the player
type Renderer interface {
	Render(notice Notice)
}

// Client plays one game on behalf of a player
type Client struct {
	session  *transport.Session
	chooser  Chooser
	renderer Renderer
	logger   *slog.Logger

	mu     sync.RWMutex
	id     model.PlayerID
	role   model.Role
	roster map[model.PlayerID]string
	dead   map[model.PlayerID]bool
}

// New creates a client over an established connection
func New(conn transport.Conn, chooser Chooser, renderer Renderer, logger *slog.Logger) *Client {
	logger = logger.With(slog.String("component", "client"))
	return &Client{
		session:  transport.NewSession(conn, logger),
		chooser:  chooser,
		renderer: renderer,
		logger:   logger,
		roster:   make(map[model.PlayerID]string),
		dead:     make(map[model.PlayerID]bool),
	}
}

// Dial connects to a host's stream listener
func Dial(ctx context.Context, addr string, chooser Chooser, renderer Renderer, logger *slog.Logger) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return New(transport.NewStreamConn(conn, transport.DefaultMaxFrameSize), chooser, renderer, logger), nil
}

// DialWebSocket connects to a host's websocket join endpoint
func DialWebSocket(ctx context.Context, url string, chooser Chooser, renderer Renderer, logger *slog.Logger) (*Client, error) {
	socket, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return New(transport.NewWebSocketConn(socket, transport.DefaultMaxFrameSize), chooser, renderer, logger), nil
}

// Close closes the connection to the host
func (c *Client) Close() error {
	return c.session.Close()
}

// ID returns the identity assigned by the host
func (c *Client) ID() model.PlayerID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id
}

// Role returns the player's role, or RoleUnassigned before the game starts
func (c *Client) Role() model.Role {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.role
}

// Roster returns every known player ordered by id
func (c *Client) Roster() []Candidate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	roster := make([]Candidate, 0, len(c.roster))
	for id, name := range c.roster {
		roster = append(roster, Candidate{ID: id, Name: name})
	}
	slices.SortFunc(roster, func(a, b Candidate) int { return cmp.Compare(a.ID, b.ID) })
	return roster
}

// Join sends the player's name and completes the handshake
func (c *Client) Join(ctx context.Context, name string) error {
	reply, err := c.session.Request(ctx, protocol.Connect{Name: name})
	if err != nil {
		return err
	}
	switch m := reply.(type) {
	case protocol.JoinRejected:
		_ = c.session.Close()
		return fmt.Errorf("%w: %s", ErrJoinRejected, m.Reason)
	case protocol.IDAssigned:
		c.mu.Lock()
		c.id = m.ID
		c.roster[m.ID] = name
		c.mu.Unlock()
	default:
		return fmt.Errorf("%w: expected %s, got %s", protocol.ErrProtocolViolation, protocol.KindIDAssigned, reply.Kind())
	}

	reply, err = c.session.Request(ctx, protocol.Received{})
	if err != nil {
		return err
	}
	snapshot, err := protocol.Expect[protocol.RosterSnapshot](reply)
	if err != nil {
		return err
	}
	c.mu.Lock()
	for _, p := range snapshot.Players {
		c.roster[p.ID] = p.Name
	}
	c.mu.Unlock()

	c.logger.Info("joined game",
		slog.String("player_id", c.ID().String()),
		slog.Int("players", len(snapshot.Players)+1))
	c.render(protocol.KindIDAssigned, fmt.Sprintf("Joined as %s (#%s) with %d other players", name, c.ID(), len(snapshot.Players)), nil)
	return c.session.Send(ctx, protocol.Received{})
}

// Play answers the host until the winner is announced
func (c *Client) Play(ctx context.Context) (model.Winner, error) {
	for {
		msg, err := c.session.Receive(ctx)
		if err != nil {
			return model.WinnerNone, err
		}

		var reply protocol.Message = protocol.Received{}
		switch m := msg.(type) {
		case protocol.AnnounceJoin:
			c.mu.Lock()
			c.roster[m.ID] = m.Name
			c.mu.Unlock()
			c.render(m.Kind(), fmt.Sprintf("%s joined", m.Name), &m.ID)
		case protocol.RoleAssigned:
			c.mu.Lock()
			c.role = m.Role
			c.mu.Unlock()
			c.render(m.Kind(), fmt.Sprintf("You are a %s", m.Role), nil)
		case protocol.NightFalls:
			c.render(m.Kind(), "Night falls", nil)
		case protocol.WolvesWake:
			c.render(m.Kind(), "The wolf wakes", nil)
		case protocol.KillOptions:
			target, err := c.chooser.ChooseKill(ctx, c.candidates(m.Candidates))
			if err != nil {
				return model.WinnerNone, err
			}
			reply = protocol.Kill{Target: target}
		case protocol.VoteOptions:
			target, err := c.chooser.ChooseVote(ctx, c.candidates(m.Candidates))
			if err != nil {
				return model.WinnerNone, err
			}
			reply = protocol.Vote{Target: target}
		case protocol.Died:
			c.markDead(m.ID)
			c.render(m.Kind(), fmt.Sprintf("%s was killed in the night", c.name(m.ID)), &m.ID)
		case protocol.WaitingFor:
			c.render(m.Kind(), fmt.Sprintf("Waiting for %s to vote", c.name(m.ID)), &m.ID)
		case protocol.AnnounceVote:
			c.render(m.Kind(), fmt.Sprintf("%s votes for %s", c.name(m.Voter), c.name(m.Target)), &m.Voter)
		case protocol.NoMajority:
			c.render(m.Kind(), "No majority, nobody is voted out", nil)
		case protocol.VotedOut:
			c.markDead(m.ID)
			c.render(m.Kind(), fmt.Sprintf("%s was voted out", c.name(m.ID)), &m.ID)
		case protocol.Forfeited:
			c.markDead(m.ID)
			c.render(m.Kind(), fmt.Sprintf("%s forfeited", c.name(m.ID)), &m.ID)
		case protocol.AnnounceWinner:
			c.render(m.Kind(), fmt.Sprintf("The %s wins", m.Winner), nil)
			if err := c.session.Send(ctx, reply); err != nil {
				c.logger.Debug("failed to acknowledge winner", slog.String("error", err.Error()))
			}
			return m.Winner, nil
		default:
			return model.WinnerNone, fmt.Errorf("%w: unexpected %s", protocol.ErrProtocolViolation, msg.Kind())
		}

		if err := c.session.Send(ctx, reply); err != nil {
			return model.WinnerNone, err
		}
	}
}

func (c *Client) candidates(ids []model.PlayerID) []Candidate {
	out := make([]Candidate, len(ids))
	for i, id := range ids {
		out[i] = Candidate{ID: id, Name: c.name(id)}
	}
	return out
}

func (c *Client) name(id model.PlayerID) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if name, ok := c.roster[id]; ok {
		return name
	}
	return "#" + id.String()
}

func (c *Client) markDead(id model.PlayerID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dead[id] = true
}

// Alive reports whether the client believes the player is alive
func (c *Client) Alive(id model.PlayerID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.dead[id]
}

func (c *Client) render(kind protocol.Kind, text string, player *model.PlayerID) {
	if c.renderer == nil {
		return
	}
	c.renderer.Render(Notice{Kind: kind, Text: text, Player: player})
}
