package lobby

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mcoot/werewolf/internal/dependencies/clock"
	"github.com/mcoot/werewolf/internal/model"
	"github.com/mcoot/werewolf/internal/protocol"
	"github.com/mcoot/werewolf/internal/services/registry"
	"github.com/mcoot/werewolf/internal/transport"
)

// ReasonGameInProgress is sent to connections arriving after the join window closes
const ReasonGameInProgress = "game in progress"

// Config holds connection acceptor settings
type Config struct {
	// HandshakeTimeout bounds each step of a newcomer's handshake: reading
	// Connect, the IDAssigned acknowledgment and the roster acknowledgment
	HandshakeTimeout time.Duration
	// HandshakeRate and HandshakeBurst throttle new connections
	HandshakeRate  rate.Limit
	HandshakeBurst int
	// MaxFrameSize is the largest frame accepted on a stream connection
	MaxFrameSize int
}

// DefaultConfig returns sensible defaults for the acceptor
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		HandshakeRate:    20,
		HandshakeBurst:   10,
		MaxFrameSize:     transport.DefaultMaxFrameSize,
	}
}

// EventSink receives join events for the operator
type EventSink interface {
	Publish(event model.Event)
}

// Acceptor admits connections into the registry while the join window is open.
// Handshakes run concurrently; admission is serialized through Run so that
// every player sees joins in identity order.
type Acceptor struct {
	registry *registry.Registry
	events   EventSink
	clock    clock.Clock
	cfg      Config
	logger   *slog.Logger
	limiter  *rate.Limiter
	inbox    chan any

	mu     sync.RWMutex
	open   bool
	onJoin func(players int)
}

// NewAcceptor creates an acceptor with an open join window
func NewAcceptor(reg *registry.Registry, events EventSink, clk clock.Clock, cfg Config, logger *slog.Logger) *Acceptor {
	if cfg.MaxFrameSize <= 0 {
		cfg.MaxFrameSize = transport.DefaultMaxFrameSize
	}
	limit := cfg.HandshakeRate
	if limit <= 0 {
		limit = rate.Inf
	}
	return &Acceptor{
		registry: reg,
		events:   events,
		clock:    clk,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "acceptor")),
		limiter:  rate.NewLimiter(limit, max(cfg.HandshakeBurst, 1)),
		inbox:    make(chan any, 64),
		open:     true,
	}
}

// OnJoin registers fn to be called from Run after each admission with the
// number of registered players
func (a *Acceptor) OnJoin(fn func(players int)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onJoin = fn
}

// Open reports whether new players are still admitted
func (a *Acceptor) Open() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.open
}

// Run processes admissions until ctx is done
func (a *Acceptor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-a.inbox:
			a.handleCommand(ctx, cmd)
		}
	}
}

func (a *Acceptor) handleCommand(ctx context.Context, cmd any) {
	switch c := cmd.(type) {
	case join:
		c.reply <- a.admit(ctx, c)
	case seal:
		c.reply <- a.seal(c.min)
	}
}

// Serve accepts stream connections from ln until ctx is done
func (a *Acceptor) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	a.logger.Info("accepting players", slog.String("addr", ln.Addr().String()))
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accepting connection: %w", err)
		}
		go func() {
			if err := a.HandleConn(ctx, transport.NewStreamConn(conn, a.cfg.MaxFrameSize)); err != nil {
				a.logger.Debug("connection not admitted",
					slog.String("remote_addr", conn.RemoteAddr().String()),
					slog.String("error", err.Error()))
			}
		}()
	}
}

// HandleConn performs the handshake for one connection. It returns nil once
// the player is registered; the registry then owns the connection. On any
// failure the connection is closed.
func (a *Acceptor) HandleConn(ctx context.Context, conn transport.Conn) error {
	if err := a.limiter.Wait(ctx); err != nil {
		_ = conn.Close()
		return err
	}

	session := transport.NewSession(conn, a.logger)

	hctx, cancel := a.handshakeContext(ctx)
	msg, err := session.Receive(hctx)
	cancel()
	if err != nil {
		_ = session.Close()
		return fmt.Errorf("reading connect: %w", err)
	}
	connect, err := protocol.Expect[protocol.Connect](msg)
	if err != nil {
		_ = session.Close()
		return err
	}

	reply := make(chan error, 1)
	select {
	case a.inbox <- join{session: session, name: connect.Name, reply: reply}:
	case <-ctx.Done():
		_ = session.Close()
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		_ = session.Close()
		return ctx.Err()
	}
}

// Seal closes the join window once at least minPlayers players are living.
// Later connections are answered with JoinRejected.
func (a *Acceptor) Seal(ctx context.Context, minPlayers int) error {
	reply := make(chan error, 1)
	select {
	case a.inbox <- seal{min: minPlayers, reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Acceptor) seal(minPlayers int) error {
	if !a.Open() {
		return model.ErrJoinClosed
	}
	living := len(a.registry.Living())
	if living < minPlayers {
		return fmt.Errorf("%w: have %d, need %d", model.ErrInsufficientPlayers, living, minPlayers)
	}

	a.mu.Lock()
	a.open = false
	a.mu.Unlock()

	a.logger.Info("join window closed", slog.Int("players", living))
	a.publish(model.Event{Type: model.EventJoinClosed})
	return nil
}

func (a *Acceptor) admit(ctx context.Context, j join) error {
	if !a.Open() {
		a.reject(ctx, j, ReasonGameInProgress)
		return model.ErrJoinClosed
	}

	name, err := a.registry.ValidateName(j.name)
	if err != nil {
		a.reject(ctx, j, err.Error())
		return err
	}

	id := a.registry.AllocateID()
	if err := a.assignID(ctx, j.session, id); err != nil {
		_ = j.session.Close()
		a.logger.Warn("handshake failed",
			slog.String("player_id", id.String()),
			slog.String("error", err.Error()))
		return &model.PeerFault{Player: id, Err: err}
	}

	err = a.registry.AddPlayer(ctx, registry.Newcomer{
		ID:             id,
		Name:           name,
		Peer:           j.session,
		WelcomeTimeout: a.cfg.HandshakeTimeout,
	})
	if err != nil {
		_ = j.session.Close()
		a.logger.Warn("handshake failed",
			slog.String("player_id", id.String()),
			slog.String("error", err.Error()))
		return err
	}

	players := a.registry.Count()
	a.publish(model.Event{
		Type:     model.EventPlayerJoined,
		PlayerID: model.PlayerRef(id),
		Payload:  model.PlayerJoinedPayload{Name: name, Players: players},
	})

	a.mu.RLock()
	onJoin := a.onJoin
	a.mu.RUnlock()
	if onJoin != nil {
		onJoin(players)
	}
	return nil
}

// assignID tells the newcomer its identity and waits for the acknowledgment
func (a *Acceptor) assignID(ctx context.Context, session *transport.Session, id model.PlayerID) error {
	hctx, cancel := a.handshakeContext(ctx)
	defer cancel()
	reply, err := session.Request(hctx, protocol.IDAssigned{ID: id})
	if err != nil {
		return err
	}
	return protocol.ExpectReceived(reply)
}

func (a *Acceptor) reject(ctx context.Context, j join, reason string) {
	a.logger.Info("join rejected",
		slog.String("name", j.name),
		slog.String("reason", reason),
		slog.String("remote_addr", j.session.RemoteAddr()))

	hctx, cancel := a.handshakeContext(ctx)
	defer cancel()
	if err := j.session.Send(hctx, protocol.JoinRejected{Reason: reason}); err != nil && !errors.Is(err, transport.ErrClosed) {
		a.logger.Debug("failed to send rejection", slog.String("error", err.Error()))
	}
	_ = j.session.Close()

	a.publish(model.Event{
		Type:    model.EventJoinRejected,
		Payload: model.JoinRejectedPayload{Name: j.name, Reason: reason},
	})
}

func (a *Acceptor) handshakeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.HandshakeTimeout > 0 {
		return context.WithTimeout(ctx, a.cfg.HandshakeTimeout)
	}
	return context.WithCancel(ctx)
}

func (a *Acceptor) publish(event model.Event) {
	if a.events == nil {
		return
	}
	event.Timestamp = a.clock.Now()
	a.events.Publish(event)
}
