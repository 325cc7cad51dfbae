package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mcoot/werewolf/internal/api/apierr"
	"github.com/mcoot/werewolf/internal/api/response"
	"github.com/mcoot/werewolf/internal/services/host"
	"github.com/mcoot/werewolf/internal/transport"
)

// GameHost is the part of the host the API drives
type GameHost interface {
	Status() host.Status
	Start(ctx context.Context) error
	HandleConn(ctx context.Context, conn transport.Conn) error
}

// GameHandler handles the live game endpoints
type GameHandler struct {
	host   GameHost
	logger *slog.Logger
}

// NewGameHandler creates a new game handler
func NewGameHandler(host GameHost, logger *slog.Logger) *GameHandler {
	return &GameHandler{
		host:   host,
		logger: logger,
	}
}

// Get handles GET /game
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.GameFromStatus(h.host.Status()))
}

// Start handles POST /game/start
func (h *GameHandler) Start(w http.ResponseWriter, r *http.Request) {
	if err := h.host.Start(r.Context()); err != nil {
		if apierr.Status(err) == http.StatusInternalServerError {
			h.logger.Error("failed to start game", slog.String("error", err.Error()))
		}
		apierr.WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusAccepted, response.GameFromStatus(h.host.Status()))
}
