package game

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/werewolf/internal/dependencies/clock"
	"github.com/mcoot/werewolf/internal/dependencies/random"
	"github.com/mcoot/werewolf/internal/model"
	"github.com/mcoot/werewolf/internal/protocol"
	"github.com/mcoot/werewolf/internal/services/registry"
	"github.com/mcoot/werewolf/internal/storage"
)

// Config holds phase engine settings
type Config struct {
	// MinPlayers is the fewest living players a game may start with. Never below 2.
	MinPlayers int
	// ResponseTimeout bounds each request to a player. Zero waits forever.
	ResponseTimeout time.Duration
	// Reprompts is how many times a misbehaving player is asked again before forfeiting
	Reprompts int
	// WinCondition decides when the game ends. Nil means StandardRules.
	WinCondition WinCondition
}

// DefaultConfig returns sensible defaults for the phase engine
func DefaultConfig() Config {
	return Config{
		MinPlayers:   3,
		Reprompts:    1,
		WinCondition: StandardRules,
	}
}

// EventSink receives game events for the operator
type EventSink interface {
	Publish(event model.Event)
}

// Status is a point-in-time view of the engine
type Status struct {
	GameID model.GameID
	Phase  model.Phase
	Day    int
	Winner model.Winner
}

// Engine drives one game from role assignment to the final announcement.
// Run owns all game-state mutation; the lock only serves concurrent Status readers.
type Engine struct {
	registry *registry.Registry
	storage  storage.Storage
	clock    clock.Clock
	random   random.Random
	events   EventSink
	cfg      Config
	logger   *slog.Logger

	mu       sync.RWMutex
	gameID   model.GameID
	phase    model.Phase
	day      int
	wolf     model.PlayerID
	assigned bool
	winner   model.Winner
}

// NewEngine creates a phase engine over the given registry
func NewEngine(
	reg *registry.Registry,
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	events EventSink,
	cfg Config,
	logger *slog.Logger,
) *Engine {
	if cfg.MinPlayers < 2 {
		cfg.MinPlayers = 2
	}
	if cfg.Reprompts < 0 {
		cfg.Reprompts = 0
	}
	if cfg.WinCondition == nil {
		cfg.WinCondition = StandardRules
	}
	e := &Engine{
		registry: reg,
		storage:  store,
		clock:    clk,
		random:   rnd,
		events:   events,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "engine")),
		phase:    model.PhaseAwaitingPlayers,
	}
	reg.OnDisconnect(e.dropped)
	return e
}

// Config returns the engine's effective configuration
func (e *Engine) Config() Config {
	return e.cfg
}

// Status returns the current phase, day and winner
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Status{
		GameID: e.gameID,
		Phase:  e.phase,
		Day:    e.day,
		Winner: e.winner,
	}
}

// Wolf returns the wolf's identity once roles are assigned
func (e *Engine) Wolf() (model.PlayerID, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.assigned {
		return 0, model.ErrRoleNotAssigned
	}
	return e.wolf, nil
}

// CanStart reports whether enough players are present to start
func (e *Engine) CanStart() error {
	if e.Status().Phase != model.PhaseAwaitingPlayers {
		return model.ErrGameInProgress
	}
	if n := len(e.registry.Living()); n < e.cfg.MinPlayers {
		return fmt.Errorf("%w: have %d, need %d", model.ErrInsufficientPlayers, n, e.cfg.MinPlayers)
	}
	return nil
}

// Run plays the game to completion and returns the winner.
// Peer failures are absorbed; the returned error is either a context error,
// a refusal to start, or a host-side invariant violation.
func (e *Engine) Run(ctx context.Context) (model.Winner, error) {
	if err := e.begin(); err != nil {
		return model.WinnerNone, err
	}
	startedAt := e.clock.Now()

	if err := e.AssignRoles(ctx); err != nil {
		return model.WinnerNone, err
	}

	winner, err := e.loop(ctx)
	if err != nil {
		e.logger.Error("game aborted", slog.String("error", err.Error()))
		return model.WinnerNone, err
	}

	if err := e.finish(ctx, winner, startedAt); err != nil {
		return winner, err
	}
	return winner, nil
}

func (e *Engine) begin() error {
	if err := e.CanStart(); err != nil {
		return err
	}

	e.mu.Lock()
	e.gameID = model.GameID(e.random.NewID())
	e.phase = model.PhaseRoleAssignment
	gameID := e.gameID
	e.mu.Unlock()

	players := len(e.registry.Living())
	e.logger.Info("game started",
		slog.String("game_id", string(gameID)),
		slog.Int("players", players))
	e.publish(model.Event{
		Type:    model.EventGameStarted,
		Payload: model.GameStartedPayload{GameID: gameID, Players: players},
	})
	return nil
}

// AssignRoles picks exactly one wolf uniformly at random among living players
// and tells every player its role privately. It runs once; later calls
// return ErrRolesAlreadyAssigned and change nothing.
func (e *Engine) AssignRoles(ctx context.Context) error {
	e.mu.Lock()
	if e.assigned {
		e.mu.Unlock()
		return model.ErrRolesAlreadyAssigned
	}
	players := e.registry.Living()
	if len(players) == 0 {
		e.mu.Unlock()
		return model.ErrInsufficientPlayers
	}
	idx := e.random.Intn(len(players))
	if idx < 0 || idx >= len(players) {
		e.mu.Unlock()
		return fmt.Errorf("%w: wolf index %d out of %d players", model.ErrInvariantViolation, idx, len(players))
	}
	wolf := players[idx].ID
	for _, p := range players {
		if err := e.registry.AssignRole(p.ID, roleFor(p.ID, wolf)); err != nil {
			e.mu.Unlock()
			return err
		}
	}
	e.wolf = wolf
	e.assigned = true
	e.mu.Unlock()

	e.logger.Info("roles assigned", slog.Int("players", len(players)))
	e.logger.Debug("wolf chosen", slog.String("player_id", wolf.String()))

	for _, p := range players {
		err := e.registry.Notify(ctx, p.ID, protocol.RoleAssigned{Role: roleFor(p.ID, wolf)})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
		}
	}

	e.publish(model.Event{
		Type:    model.EventRolesAssigned,
		Payload: model.RolesAssignedPayload{Wolves: []model.PlayerID{wolf}, Players: len(players)},
	})
	return nil
}

func roleFor(id, wolf model.PlayerID) model.Role {
	if id == wolf {
		return model.RoleWolf
	}
	return model.RoleVillager
}

func (e *Engine) loop(ctx context.Context) (model.Winner, error) {
	for {
		if winner, over := e.checkWin(CheckpointDusk); over {
			return winner, nil
		}

		victim, killed, err := e.night(ctx)
		if err != nil {
			return model.WinnerNone, err
		}

		winner, over, err := e.daytime(ctx, victim, killed)
		if err != nil {
			return model.WinnerNone, err
		}
		if over {
			return winner, nil
		}
	}
}

func (e *Engine) finish(ctx context.Context, winner model.Winner, startedAt time.Time) error {
	e.mu.Lock()
	e.phase = model.PhaseGameOver
	e.winner = winner
	gameID := e.gameID
	e.mu.Unlock()

	e.logger.Info("game over",
		slog.String("game_id", string(gameID)),
		slog.String("winner", string(winner)))

	if err := e.registry.Broadcast(ctx, protocol.AnnounceWinner{Winner: winner}); err != nil {
		return err
	}

	summary := e.summary(winner, startedAt)
	if e.storage != nil {
		if err := e.storage.SaveGameSummary(ctx, summary); err != nil {
			e.logger.Error("failed to save game summary",
				slog.String("game_id", string(gameID)),
				slog.String("error", err.Error()))
		}
	}

	e.publish(model.Event{
		Type:    model.EventGameOver,
		Payload: model.GameOverPayload{GameID: gameID, Winner: winner},
	})
	return nil
}

func (e *Engine) summary(winner model.Winner, startedAt time.Time) *model.GameSummary {
	status := e.Status()
	players := e.registry.Players()
	summary := &model.GameSummary{
		ID:          status.GameID,
		Winner:      winner,
		Players:     make([]model.PlayerSummary, len(players)),
		Days:        status.Day,
		StartedAt:   startedAt,
		CompletedAt: e.clock.Now(),
	}
	for i, p := range players {
		summary.Players[i] = model.PlayerSummary{
			ID:        p.ID,
			Name:      p.Name,
			Role:      p.Role,
			Alive:     p.Alive,
			Connected: p.Connected,
		}
		if p.Role == model.RoleWolf {
			summary.Wolves = append(summary.Wolves, p.ID)
		}
	}
	return summary
}

// census counts roles among living players
func (e *Engine) census() RoleCount {
	var count RoleCount
	for _, p := range e.registry.Living() {
		switch p.Role {
		case model.RoleWolf:
			count.Wolves++
		case model.RoleVillager:
			count.Villagers++
		}
	}
	return count
}

func (e *Engine) checkWin(at Checkpoint) (model.Winner, bool) {
	count := e.census()
	winner, over := e.cfg.WinCondition(count, at)
	if over {
		e.logger.Debug("win condition met",
			slog.String("checkpoint", string(at)),
			slog.Int("wolves", count.Wolves),
			slog.Int("villagers", count.Villagers))
	}
	return winner, over
}

func (e *Engine) setPhase(phase model.Phase) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.phase = phase
	if phase == model.PhaseNight {
		e.day++
	}
}

func (e *Engine) publish(event model.Event) {
	if e.events == nil {
		return
	}
	event.Timestamp = e.clock.Now()
	event.Day = e.Status().Day
	e.events.Publish(event)
}

func (e *Engine) dropped(id model.PlayerID, cause error) {
	reason := "disconnected"
	if cause != nil {
		reason = cause.Error()
	}
	e.publish(model.Event{
		Type:     model.EventPlayerDropped,
		PlayerID: model.PlayerRef(id),
		Payload:  model.PlayerDroppedPayload{Reason: reason},
	})
}
