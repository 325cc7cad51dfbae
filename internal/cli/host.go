package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/mcoot/werewolf/internal/api"
	"github.com/mcoot/werewolf/internal/api/middleware"
	"github.com/mcoot/werewolf/internal/factory"
	"github.com/mcoot/werewolf/internal/model"
	"github.com/mcoot/werewolf/internal/services/bot"
	"github.com/mcoot/werewolf/internal/services/game"
	"github.com/mcoot/werewolf/internal/services/host"
	"github.com/mcoot/werewolf/internal/services/lobby"
	redisstorage "github.com/mcoot/werewolf/internal/storage/redis"
)

// hostOptions holds the flags of the host command
type hostOptions struct {
	port            int
	httpAddr        string
	minPlayers      int
	autoStart       int
	responseTimeout time.Duration
	reprompts       int
	storageType     string
	redisURL        string
	bots            int
	botStrategy     string
	console         bool
}

func newHostCmd() *cobra.Command {
	gameDefaults := game.DefaultConfig()
	opts := hostOptions{
		port:            DefaultPort,
		httpAddr:        getEnvOrDefault("WEREWOLF_HTTP_ADDR", api.DefaultServerConfig().Addr),
		minPlayers:      gameDefaults.MinPlayers,
		responseTimeout: gameDefaults.ResponseTimeout,
		reprompts:       gameDefaults.Reprompts,
		storageType:     getEnvOrDefault("WEREWOLF_STORAGE", factory.StorageTypeMemory),
		redisURL:        os.Getenv("WEREWOLF_REDIS_URL"),
		botStrategy:     bot.StrategyRandom,
		console:         true,
	}

	cmd := &cobra.Command{
		Use:   "host",
		Short: "Host a game",
		Long: `Accept players over TCP and WebSocket, then run one game of werewolf.

The game starts when the operator confirms on the console, when
POST /api/v1/game/start is called, or once --auto-start players have joined.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHost(opts)
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.port, "port", opts.port, "TCP port players connect to")
	f.StringVar(&opts.httpAddr, "http-addr", opts.httpAddr, "Operator API and WebSocket listen address (env: WEREWOLF_HTTP_ADDR)")
	f.IntVar(&opts.minPlayers, "min-players", opts.minPlayers, "Players required to start")
	f.IntVar(&opts.autoStart, "auto-start", 0, "Start once this many players have joined (0 disables)")
	f.DurationVar(&opts.responseTimeout, "response-timeout", opts.responseTimeout, "How long a player may take to answer (0 waits forever)")
	f.IntVar(&opts.reprompts, "reprompts", opts.reprompts, "Invalid answers tolerated before a player forfeits")
	f.StringVar(&opts.storageType, "storage", opts.storageType, "Results storage: memory, redis (env: WEREWOLF_STORAGE)")
	f.StringVar(&opts.redisURL, "redis-url", opts.redisURL, "Redis URL for --storage redis (env: WEREWOLF_REDIS_URL)")
	f.IntVar(&opts.bots, "bots", 0, "Bot players to add before anyone joins")
	f.StringVar(&opts.botStrategy, "bot-strategy", opts.botStrategy, "Strategy for --bots: random, first")
	f.BoolVar(&opts.console, "console", opts.console, "Prompt on the console to start the game")

	return cmd
}

func runHost(opts hostOptions) error {
	logger, err := cfg.Logger(false)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	appCfg := factory.Config{
		GameConfig: game.Config{
			MinPlayers:      opts.minPlayers,
			ResponseTimeout: opts.responseTimeout,
			Reprompts:       opts.reprompts,
			WinCondition:    game.StandardRules,
		},
		AcceptorConfig: lobby.DefaultConfig(),
		HostConfig:     host.Config{AutoStart: opts.autoStart},
		Logger:         logger,
		StorageType:    opts.storageType,
	}
	if opts.storageType == factory.StorageTypeRedis {
		if opts.redisURL == "" {
			return errors.New("--redis-url required when --storage is redis")
		}
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = opts.redisURL
		appCfg.RedisConfig = &redisCfg
	}

	app, err := factory.New(appCfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	var tokenHash []byte
	if cfg.AdminToken != "" {
		if tokenHash, err = middleware.HashToken(cfg.AdminToken); err != nil {
			return fmt.Errorf("failed to hash admin token: %w", err)
		}
	} else {
		logger.Warn("no admin token configured, operator actions are open")
	}

	router := api.NewRouter(api.RouterConfig{
		Logger:         logger,
		Host:           app.Host,
		Storage:        app.Storage,
		Events:         app.Events,
		Bots:           app.Bots,
		AdminTokenHash: tokenHash,
		MaxFrameSize:   appCfg.AcceptorConfig.MaxFrameSize,
	})
	serverCfg := api.DefaultServerConfig()
	serverCfg.Addr = opts.httpAddr
	server := api.NewServer(router, serverCfg, logger)

	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(opts.port)))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", opts.port, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go app.Events.Run()
	go func() {
		if err := app.Acceptor.Serve(ctx, ln); err != nil {
			logger.Error("player listener failed", slog.String("error", err.Error()))
		}
	}()

	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Start() }()

	logger.Info("hosting game",
		slog.String("players_addr", ln.Addr().String()),
		slog.String("http_addr", server.Addr()),
		slog.Int("min_players", opts.minPlayers))

	type outcome struct {
		winner model.Winner
		err    error
	}
	played := make(chan outcome, 1)
	go func() {
		winner, err := app.Host.Run(ctx)
		played <- outcome{winner, err}
	}()

	for range opts.bots {
		b, err := app.Bots.AddBot(ctx, opts.botStrategy)
		if err != nil {
			stop()
			<-played
			return fmt.Errorf("failed to add bot: %w", err)
		}
		pterm.Info.Printfln("%s joined as #%s", b.Name, b.ID)
	}

	if opts.console {
		go confirmStart(ctx, app.Host)
	}

	var result outcome
	select {
	case result = <-played:
	case err := <-serverErr:
		stop()
		result = <-played
		if err != nil {
			result.err = errors.Join(result.err, err)
		}
	}

	app.Events.Close()
	if err := server.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
	}

	if result.err != nil {
		if errors.Is(result.err, context.Canceled) {
			logger.Info("game abandoned")
			return nil
		}
		return result.err
	}
	pterm.Success.Printfln("The %s wins", result.winner)
	return nil
}

// confirmStart asks the operator to start the game until it has started
func confirmStart(ctx context.Context, h *host.Host) {
	for ctx.Err() == nil {
		ok, err := pterm.DefaultInteractiveConfirm.
			WithDefaultText("Start the game?").
			WithDefaultValue(true).
			Show()
		if err != nil || ctx.Err() != nil {
			return
		}
		if !ok {
			continue
		}
		err = h.Start(ctx)
		switch {
		case err == nil, errors.Is(err, model.ErrGameInProgress), errors.Is(err, model.ErrJoinClosed):
			return
		default:
			pterm.Warning.Println(err.Error())
		}
	}
}
