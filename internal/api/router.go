package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/werewolf/internal/api/events"
	"github.com/mcoot/werewolf/internal/api/handler"
	"github.com/mcoot/werewolf/internal/api/middleware"
	"github.com/mcoot/werewolf/internal/api/response"
	"github.com/mcoot/werewolf/internal/storage"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger  *slog.Logger
	Host    handler.GameHost
	Storage storage.Storage
	Events  *events.Hub
	// Bots adds bot players. Nil disables the endpoint.
	Bots handler.BotAdder
	// AdminTokenHash is the bcrypt hash guarding operator actions. Nil leaves them open.
	AdminTokenHash []byte
	// MaxFrameSize bounds websocket messages from players
	MaxFrameSize int
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	gameHandler := handler.NewGameHandler(cfg.Host, cfg.Logger)
	archiveHandler := handler.NewArchiveHandler(cfg.Storage, cfg.Logger)
	joinHandler := handler.NewJoinHandler(cfg.Host, cfg.MaxFrameSize, cfg.Logger)

	adminMiddleware := middleware.RequireAdmin(cfg.AdminTokenHash)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// Live game
	api.HandleFunc("/game", gameHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/ws", joinHandler.Join).Methods(http.MethodGet)

	// Archive
	api.HandleFunc("/games", archiveHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/games/{id}", archiveHandler.Get).Methods(http.MethodGet)

	// Operator actions
	admin := api.NewRoute().Subrouter()
	admin.Use(adminMiddleware)
	admin.HandleFunc("/game/start", gameHandler.Start).Methods(http.MethodPost)
	if cfg.Bots != nil {
		botHandler := handler.NewBotHandler(cfg.Bots, cfg.Logger)
		admin.HandleFunc("/game/bots", botHandler.Add).Methods(http.MethodPost)
	}
	if cfg.Events != nil {
		eventsHandler := handler.NewEventsHandler(cfg.Events)
		admin.HandleFunc("/events", eventsHandler.Stream).Methods(http.MethodGet)
	}

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
}
