package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/mcoot/werewolf/internal/api/events"
	"github.com/mcoot/werewolf/internal/dependencies/clock"
	"github.com/mcoot/werewolf/internal/dependencies/random"
	"github.com/mcoot/werewolf/internal/services/bot"
	"github.com/mcoot/werewolf/internal/services/game"
	"github.com/mcoot/werewolf/internal/services/host"
	"github.com/mcoot/werewolf/internal/services/lobby"
	"github.com/mcoot/werewolf/internal/services/registry"
	"github.com/mcoot/werewolf/internal/storage"
	"github.com/mcoot/werewolf/internal/storage/memory"
	redisstorage "github.com/mcoot/werewolf/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Registry *registry.Registry
	Engine   *game.Engine
	Acceptor *lobby.Acceptor
	Host     *host.Host
	Bots     *bot.Service
	Events   *events.Hub
}

// Config holds configuration for the application factory
type Config struct {
	// GameConfig holds phase engine settings.
	// If MinPlayers is zero, game.DefaultConfig() is used
	GameConfig game.Config
	// AcceptorConfig holds join handshake settings.
	// If HandshakeTimeout is zero, lobby.DefaultConfig() is used
	AcceptorConfig lobby.Config
	// HostConfig holds start-up behaviour such as auto-start
	HostConfig host.Config
	// EventBacklog is how many operator events are replayed to new subscribers.
	// If zero, events.DefaultBacklog is used
	EventBacklog int
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	return newWithDependencies(store, clock.New(), random.New(), withDefaults(cfg), logger), nil
}

func withDefaults(cfg Config) Config {
	gameCfg := cfg.GameConfig
	defaults := game.DefaultConfig()
	if gameCfg.MinPlayers == 0 && gameCfg.ResponseTimeout == 0 && gameCfg.Reprompts == 0 && gameCfg.WinCondition == nil {
		gameCfg = defaults
	}
	// Zero Reprompts and ResponseTimeout are meaningful and kept as given
	if gameCfg.MinPlayers == 0 {
		gameCfg.MinPlayers = defaults.MinPlayers
	}
	if gameCfg.WinCondition == nil {
		gameCfg.WinCondition = defaults.WinCondition
	}
	cfg.GameConfig = gameCfg

	if cfg.AcceptorConfig.HandshakeTimeout == 0 {
		cfg.AcceptorConfig = lobby.DefaultConfig()
	}
	if cfg.EventBacklog == 0 {
		cfg.EventBacklog = events.DefaultBacklog
	}
	return cfg
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, cfg Config, logger *slog.Logger) *App {
	hub := events.NewHub(cfg.EventBacklog, logger)
	reg := registry.New(logger)
	engine := game.NewEngine(reg, store, clk, rnd, hub, cfg.GameConfig, logger)
	acceptor := lobby.NewAcceptor(reg, hub, clk, cfg.AcceptorConfig, logger)
	gameHost := host.New(reg, acceptor, engine, cfg.HostConfig, logger)
	bots := bot.NewService(gameHost, bot.DefaultStrategies(rnd), logger)

	return &App{
		Storage:  store,
		Clock:    clk,
		Random:   rnd,
		Registry: reg,
		Engine:   engine,
		Acceptor: acceptor,
		Host:     gameHost,
		Bots:     bots,
		Events:   hub,
	}
}
