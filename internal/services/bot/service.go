package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net"
	"slices"
	"sync"

	"github.com/mcoot/werewolf/internal/client"
	"github.com/mcoot/werewolf/internal/model"
	"github.com/mcoot/werewolf/internal/transport"
)

// ConnHandler performs the join handshake for a new connection
type ConnHandler interface {
	HandleConn(ctx context.Context, conn transport.Conn) error
}

// Bot describes a bot player that joined the game
type Bot struct {
	ID       model.PlayerID `json:"id"`
	Name     string         `json:"name"`
	Strategy string         `json:"strategy"`
}

// Service adds bot players to the hosted game. Bots join through the same
// handshake as remote players, over an in-memory connection.
type Service struct {
	host       ConnHandler
	strategies map[string]Strategy
	logger     *slog.Logger

	mu    sync.Mutex
	count int
}

// NewService creates a new bot Service
func NewService(host ConnHandler, strategies map[string]Strategy, logger *slog.Logger) *Service {
	return &Service{
		host:       host,
		strategies: strategies,
		logger:     logger.With(slog.String("component", "bot-service")),
	}
}

// Strategies returns the names of the available strategies
func (s *Service) Strategies() []string {
	return slices.Sorted(maps.Keys(s.strategies))
}

// AddBot joins a new bot using the named strategy. The bot keeps playing in
// the background until its connection is closed by the host.
func (s *Service) AddBot(ctx context.Context, strategy string) (*Bot, error) {
	chooser, ok := s.strategies[strategy]
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownBotStrategy, strategy)
	}

	s.mu.Lock()
	s.count++
	name := fmt.Sprintf("Bot %d", s.count)
	s.mu.Unlock()

	hostSide, botSide := net.Pipe()
	handled := make(chan error, 1)
	go func() {
		handled <- s.host.HandleConn(ctx, transport.NewStreamConn(hostSide, transport.DefaultMaxFrameSize))
	}()

	c := client.New(transport.NewStreamConn(botSide, transport.DefaultMaxFrameSize), chooser, nil, s.logger)
	if err := c.Join(ctx, name); err != nil {
		_ = c.Close()
		// The host's reason is more precise than the rejection the bot saw
		select {
		case hostErr := <-handled:
			if hostErr != nil {
				return nil, hostErr
			}
		case <-ctx.Done():
		}
		return nil, err
	}

	bot := &Bot{ID: c.ID(), Name: name, Strategy: strategy}
	s.logger.Info("bot joined",
		slog.String("player_id", bot.ID.String()),
		slog.String("name", name),
		slog.String("strategy", strategy))

	go s.play(context.WithoutCancel(ctx), c, bot)
	return bot, nil
}

func (s *Service) play(ctx context.Context, c *client.Client, bot *Bot) {
	defer func() { _ = c.Close() }()

	winner, err := c.Play(ctx)
	if err != nil {
		if !errors.Is(err, transport.ErrTransport) {
			s.logger.Warn("bot stopped playing",
				slog.String("player_id", bot.ID.String()),
				slog.String("error", err.Error()))
		}
		return
	}
	s.logger.Debug("bot finished",
		slog.String("player_id", bot.ID.String()),
		slog.String("winner", string(winner)))
}
