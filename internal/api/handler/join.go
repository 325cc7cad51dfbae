package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/werewolf/internal/model"
	"github.com/mcoot/werewolf/internal/transport"
)

// JoinHandler upgrades player connections to websockets and hands them to the host
type JoinHandler struct {
	host     GameHost
	upgrader websocket.Upgrader
	maxFrame int
	logger   *slog.Logger
}

// NewJoinHandler creates a new join handler
func NewJoinHandler(host GameHost, maxFrame int, logger *slog.Logger) *JoinHandler {
	return &JoinHandler{
		host: host,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Players are command-line clients, not browsers
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		maxFrame: maxFrame,
		logger:   logger,
	}
}

// Join handles GET /ws
func (h *JoinHandler) Join(w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		h.logger.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	// The server's request deadlines do not apply to a game connection
	_ = socket.NetConn().SetDeadline(time.Time{})

	conn := transport.NewWebSocketConn(socket, h.maxFrame)
	if err := h.host.HandleConn(r.Context(), conn); err != nil {
		level := slog.LevelDebug
		if !errors.Is(err, model.ErrJoinClosed) && !errors.Is(err, model.ErrNameTaken) {
			level = slog.LevelInfo
		}
		h.logger.Log(r.Context(), level, "websocket join failed",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("error", err.Error()))
	}
}
