package registry

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/mcoot/werewolf/internal/model"
	"github.com/mcoot/werewolf/internal/protocol"
)

// ErrDisconnected is returned when addressing a player whose connection already failed
var ErrDisconnected = errors.New("player is disconnected")

// Peer is the host's connection to one player
type Peer interface {
	Send(ctx context.Context, msg protocol.Message) error
	Receive(ctx context.Context) (protocol.Message, error)
	Close() error
}

// Player is a registered participant. Values returned by the Registry are copies.
type Player struct {
	ID        model.PlayerID
	Name      string
	Role      model.Role
	Alive     bool
	Connected bool

	peer Peer
}

// Living reports whether the player takes part in candidate sets and tallies
func (p Player) Living() bool {
	return p.Alive && p.Connected
}

// Registry owns the players of one game and fans messages out to them.
// The lock guards attributes only; it is never held across network I/O.
type Registry struct {
	mu      sync.RWMutex
	players map[model.PlayerID]*Player
	nextID  model.PlayerID
	logger  *slog.Logger

	onDisconnect func(id model.PlayerID, cause error)
}

// New creates an empty registry
func New(logger *slog.Logger) *Registry {
	return &Registry{
		players: make(map[model.PlayerID]*Player),
		logger:  logger.With(slog.String("component", "registry")),
	}
}

// OnDisconnect registers fn to be called, outside the lock, each time a
// connected player is marked disconnected
func (r *Registry) OnDisconnect(fn func(id model.PlayerID, cause error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onDisconnect = fn
}

// AllocateID returns the next identity. Identities are never reused,
// including those allocated for handshakes that later failed.
func (r *Registry) AllocateID() model.PlayerID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	return id
}

// ValidateName trims name and rejects empty names and names already in use,
// compared case-insensitively
func (r *Registry) ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", model.ErrNameEmpty
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.players {
		if strings.EqualFold(p.Name, name) {
			return "", fmt.Errorf("%w: %q", model.ErrNameTaken, name)
		}
	}
	return name, nil
}

// Newcomer is a player whose identity was already assigned
type Newcomer struct {
	ID   model.PlayerID
	Name string
	Peer Peer
	// WelcomeTimeout bounds the roster exchange with the newcomer. Zero waits on ctx alone.
	WelcomeTimeout time.Duration
}

// AddPlayer onboards a newcomer.
// The newcomer first receives a snapshot of the players registered before it,
// then every earlier player is told about the join, then the newcomer is
// inserted. The newcomer never sees an announcement about itself.
func (r *Registry) AddPlayer(ctx context.Context, n Newcomer) error {
	id, peer := n.ID, n.Peer
	name, err := r.ValidateName(n.Name)
	if err != nil {
		return err
	}

	existing := r.Players()
	roster := make([]protocol.RosterEntry, len(existing))
	for i, p := range existing {
		roster[i] = protocol.RosterEntry{ID: p.ID, Name: p.Name}
	}
	if err := welcome(ctx, n.WelcomeTimeout, peer, roster); err != nil {
		return &model.PeerFault{Player: id, Err: err}
	}

	if err := r.Broadcast(ctx, protocol.AnnounceJoin{ID: id, Name: name}); err != nil {
		return err
	}

	r.mu.Lock()
	r.players[id] = &Player{
		ID:        id,
		Name:      name,
		Alive:     true,
		Connected: true,
		peer:      peer,
	}
	count := len(r.players)
	r.mu.Unlock()

	r.logger.Info("player registered",
		slog.String("player_id", id.String()),
		slog.String("name", name),
		slog.Int("players", count))
	return nil
}

// Broadcast sends an informational message to every connected player in id
// order, dead or alive, waiting for each acknowledgment. A failing player is
// marked disconnected and skipped; only context cancellation is returned.
func (r *Registry) Broadcast(ctx context.Context, msg protocol.Message) error {
	for _, p := range r.Players() {
		if !p.Connected {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := exchangeAck(ctx, p.peer, msg); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			r.MarkDisconnected(p.ID, err)
		}
	}
	return nil
}

// Notify sends an informational message to one player and waits for the acknowledgment
func (r *Registry) Notify(ctx context.Context, id model.PlayerID, msg protocol.Message) error {
	peer, err := r.connectedPeer(id)
	if err != nil {
		return err
	}
	if err := exchangeAck(ctx, peer, msg); err != nil {
		r.MarkDisconnected(id, err)
		return &model.PeerFault{Player: id, Err: err}
	}
	return nil
}

// RequestOne sends msg to one player and returns its reply without interpreting it.
// A transport failure marks the player disconnected.
func (r *Registry) RequestOne(ctx context.Context, id model.PlayerID, msg protocol.Message) (protocol.Message, error) {
	peer, err := r.connectedPeer(id)
	if err != nil {
		return nil, err
	}
	reply, err := exchange(ctx, peer, msg)
	if err != nil {
		r.MarkDisconnected(id, err)
		return nil, &model.PeerFault{Player: id, Err: err}
	}
	return reply, nil
}

// MarkDisconnected closes a player's connection and removes it from living sets.
// It is a no-op for players already disconnected.
func (r *Registry) MarkDisconnected(id model.PlayerID, cause error) {
	r.mu.Lock()
	p, ok := r.players[id]
	if !ok || !p.Connected {
		r.mu.Unlock()
		return
	}
	p.Connected = false
	peer := p.peer
	hook := r.onDisconnect
	r.mu.Unlock()

	_ = peer.Close()
	attrs := []any{slog.String("player_id", id.String())}
	if cause != nil {
		attrs = append(attrs, slog.String("error", cause.Error()))
	}
	r.logger.Warn("player disconnected", attrs...)

	if hook != nil {
		hook(id, cause)
	}
}

// AssignRole sets a player's role
func (r *Registry) AssignRole(id model.PlayerID, role model.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	if !ok {
		return model.ErrPlayerNotFound
	}
	p.Role = role
	return nil
}

// Kill marks a player dead. Killing a dead player is an invariant violation.
func (r *Registry) Kill(id model.PlayerID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	if !ok {
		return model.ErrPlayerNotFound
	}
	if !p.Alive {
		return fmt.Errorf("%w: player %s is already dead", model.ErrInvariantViolation, id)
	}
	p.Alive = false
	return nil
}

// Get returns a copy of one player
func (r *Registry) Get(id model.PlayerID) (Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[id]
	if !ok {
		return Player{}, model.ErrPlayerNotFound
	}
	return *p, nil
}

// Players returns copies of all registered players ordered by id
func (r *Registry) Players() []Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	players := make([]Player, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, *p)
	}
	slices.SortFunc(players, func(a, b Player) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return players
}

// Living returns the players that are alive and connected, ordered by id
func (r *Registry) Living() []Player {
	var living []Player
	for _, p := range r.Players() {
		if p.Living() {
			living = append(living, p)
		}
	}
	return living
}

// LivingIDs returns the ids of Living players
func (r *Registry) LivingIDs() []model.PlayerID {
	living := r.Living()
	ids := make([]model.PlayerID, len(living))
	for i, p := range living {
		ids[i] = p.ID
	}
	return ids
}

// Count returns the number of registered players
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// Close closes every player's connection
func (r *Registry) Close() {
	r.mu.Lock()
	peers := make([]Peer, 0, len(r.players))
	for _, p := range r.players {
		p.Connected = false
		peers = append(peers, p.peer)
	}
	r.mu.Unlock()

	for _, peer := range peers {
		_ = peer.Close()
	}
}

func welcome(ctx context.Context, timeout time.Duration, peer Peer, roster []protocol.RosterEntry) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return exchangeAck(ctx, peer, protocol.RosterSnapshot{Players: roster})
}

func (r *Registry) connectedPeer(id model.PlayerID) (Peer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	if !p.Connected {
		return nil, &model.PeerFault{Player: id, Err: ErrDisconnected}
	}
	return p.peer, nil
}

func exchange(ctx context.Context, peer Peer, msg protocol.Message) (protocol.Message, error) {
	if err := peer.Send(ctx, msg); err != nil {
		return nil, err
	}
	return peer.Receive(ctx)
}

// exchangeAck sends an informational message and requires Received in reply.
// Any other reply leaves the stream out of step with the host.
func exchangeAck(ctx context.Context, peer Peer, msg protocol.Message) error {
	reply, err := exchange(ctx, peer, msg)
	if err != nil {
		return err
	}
	return protocol.ExpectReceived(reply)
}
