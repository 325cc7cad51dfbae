package storage

import (
	"context"

	"github.com/mcoot/werewolf/internal/model"
)

// Storage defines the interface for the finished-game archive
type Storage interface {
	// SaveGameSummary records a finished game, replacing any summary with the same ID
	SaveGameSummary(ctx context.Context, summary *model.GameSummary) error
	// GetGameSummary returns model.ErrGameNotFound if the game is unknown
	GetGameSummary(ctx context.Context, id model.GameID) (*model.GameSummary, error)
	// ListGameSummaries returns up to limit summaries, most recently completed first.
	// A limit of zero or less returns all of them.
	ListGameSummaries(ctx context.Context, limit int) ([]*model.GameSummary, error)
	DeleteGameSummary(ctx context.Context, id model.GameID) error
}
