package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/mcoot/werewolf/internal/api/apierr"
	"github.com/mcoot/werewolf/internal/api/response"
	"github.com/mcoot/werewolf/internal/services/bot"
)

// BotAdder joins bot players to the hosted game
type BotAdder interface {
	AddBot(ctx context.Context, strategy string) (*bot.Bot, error)
}

// AddBotRequest is the body of POST /game/bots
type AddBotRequest struct {
	Strategy string `json:"strategy"`
}

// BotHandler handles bot endpoints
type BotHandler struct {
	bots   BotAdder
	logger *slog.Logger
}

// NewBotHandler creates a new BotHandler
func NewBotHandler(bots BotAdder, logger *slog.Logger) *BotHandler {
	return &BotHandler{
		bots:   bots,
		logger: logger,
	}
}

// Add handles POST /game/bots. An empty body adds a random bot.
func (h *BotHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddBotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		apierr.WriteError(w, apierr.NewInvalidRequestError("invalid request body"))
		return
	}
	if req.Strategy == "" {
		req.Strategy = bot.StrategyRandom
	}

	b, err := h.bots.AddBot(r.Context(), req.Strategy)
	if err != nil {
		if apierr.Status(err) == http.StatusInternalServerError {
			h.logger.Error("failed to add bot", slog.String("error", err.Error()))
		}
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.Bot{
		ID:       b.ID,
		Name:     b.Name,
		Strategy: b.Strategy,
	})
}
