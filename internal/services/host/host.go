package host

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mcoot/werewolf/internal/model"
	"github.com/mcoot/werewolf/internal/services/game"
	"github.com/mcoot/werewolf/internal/services/lobby"
	"github.com/mcoot/werewolf/internal/services/registry"
	"github.com/mcoot/werewolf/internal/transport"
)

// Config holds host orchestration settings
type Config struct {
	// AutoStart starts the game as soon as this many players have joined. Zero disables it.
	AutoStart int
}

// Status is the operator's view of the hosted game
type Status struct {
	GameID     model.GameID          `json:"game_id,omitempty"`
	Phase      model.Phase           `json:"phase"`
	Day        int                   `json:"day"`
	Winner     model.Winner          `json:"winner,omitempty"`
	JoinOpen   bool                  `json:"join_open"`
	MinPlayers int                   `json:"min_players"`
	Players    []model.PlayerSummary `json:"players"`
}

// Host runs one game: it admits players until started, then hands them to the engine
type Host struct {
	registry *registry.Registry
	acceptor *lobby.Acceptor
	engine   *game.Engine
	cfg      Config
	logger   *slog.Logger

	// life ends when Run returns; auto-start is bounded by it
	life    context.Context
	end     context.CancelFunc
	mu      sync.Mutex
	started bool
	startCh chan struct{}
	done    chan struct{}
	winner  model.Winner
	err     error
}

// New creates a host over an acceptor and engine sharing reg
func New(reg *registry.Registry, acceptor *lobby.Acceptor, engine *game.Engine, cfg Config, logger *slog.Logger) *Host {
	life, end := context.WithCancel(context.Background())
	h := &Host{
		registry: reg,
		acceptor: acceptor,
		engine:   engine,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "host")),
		life:     life,
		end:      end,
		startCh:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	if cfg.AutoStart > 0 {
		acceptor.OnJoin(h.autoStart)
	}
	return h
}

func (h *Host) autoStart(players int) {
	if players < h.cfg.AutoStart {
		return
	}
	// Start seals through the acceptor loop, which is the caller here
	go func() {
		if err := h.Start(h.life); err != nil {
			h.logger.Warn("auto-start failed", slog.String("error", err.Error()))
		}
	}()
}

// Run admits players until Start is called, plays the game and returns the winner.
// All player connections are closed when it returns.
func (h *Host) Run(ctx context.Context) (model.Winner, error) {
	defer close(h.done)
	defer h.end()
	defer h.registry.Close()

	joinCtx, stopJoining := context.WithCancel(ctx)
	defer stopJoining()
	go h.acceptor.Run(joinCtx)

	select {
	case <-h.startCh:
	case <-ctx.Done():
		return h.finish(model.WinnerNone, ctx.Err())
	}

	winner, err := h.engine.Run(ctx)
	return h.finish(winner, err)
}

func (h *Host) finish(winner model.Winner, err error) (model.Winner, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.winner = winner
	h.err = err
	return winner, err
}

// Start closes the join window and begins the game. ctx bounds only the
// request to start; the game itself runs under Run's context.
func (h *Host) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return model.ErrGameInProgress
	}
	if err := h.engine.CanStart(); err != nil {
		return err
	}
	if err := h.acceptor.Seal(ctx, h.engine.Config().MinPlayers); err != nil {
		return err
	}
	h.started = true
	close(h.startCh)
	h.logger.Info("starting game", slog.Int("players", len(h.registry.Living())))
	return nil
}

// HandleConn performs the join handshake for a connection accepted elsewhere
func (h *Host) HandleConn(ctx context.Context, conn transport.Conn) error {
	return h.acceptor.HandleConn(ctx, conn)
}

// Done is closed once Run has returned
func (h *Host) Done() <-chan struct{} {
	return h.done
}

// Result returns what Run returned. It is only meaningful after Done is closed.
func (h *Host) Result() (model.Winner, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.winner, h.err
}

// Status returns a snapshot of the game. Roles stay hidden until the game is over.
func (h *Host) Status() Status {
	es := h.engine.Status()
	reveal := es.Phase == model.PhaseGameOver

	players := h.registry.Players()
	summaries := make([]model.PlayerSummary, len(players))
	for i, p := range players {
		summaries[i] = model.PlayerSummary{
			ID:        p.ID,
			Name:      p.Name,
			Alive:     p.Alive,
			Connected: p.Connected,
		}
		if reveal {
			summaries[i].Role = p.Role
		}
	}

	return Status{
		GameID:     es.GameID,
		Phase:      es.Phase,
		Day:        es.Day,
		Winner:     es.Winner,
		JoinOpen:   h.acceptor.Open(),
		MinPlayers: h.engine.Config().MinPlayers,
		Players:    summaries,
	}
}
