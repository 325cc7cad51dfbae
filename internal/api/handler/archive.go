package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/werewolf/internal/api/apierr"
	"github.com/mcoot/werewolf/internal/api/response"
	"github.com/mcoot/werewolf/internal/model"
	"github.com/mcoot/werewolf/internal/storage"
)

// DefaultListLimit caps GET /games when no limit is given
const DefaultListLimit = 20

// ArchiveHandler serves finished-game summaries
type ArchiveHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

// NewArchiveHandler creates a new archive handler
func NewArchiveHandler(storage storage.Storage, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{
		storage: storage,
		logger:  logger,
	}
}

// List handles GET /games
func (h *ArchiveHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			apierr.WriteError(w, apierr.NewInvalidRequestError("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	summaries, err := h.storage.ListGameSummaries(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list games", slog.String("error", err.Error()))
		apierr.WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.GameListFromModels(summaries))
}

// Get handles GET /games/{id}
func (h *ArchiveHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.GameID(mux.Vars(r)["id"])

	summary, err := h.storage.GetGameSummary(r.Context(), id)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.GameSummaryFromModel(summary))
}
