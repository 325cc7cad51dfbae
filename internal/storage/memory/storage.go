package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/mcoot/werewolf/internal/model"
	"github.com/mcoot/werewolf/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu    sync.RWMutex
	games map[model.GameID]*model.GameSummary
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		games: make(map[model.GameID]*model.GameSummary),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) SaveGameSummary(ctx context.Context, summary *model.GameSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[summary.ID] = clone(summary)
	return nil
}

func (s *Storage) GetGameSummary(ctx context.Context, id model.GameID) (*model.GameSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary, ok := s.games[id]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	return clone(summary), nil
}

func (s *Storage) ListGameSummaries(ctx context.Context, limit int) ([]*model.GameSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.GameSummary, 0, len(s.games))
	for _, summary := range s.games {
		result = append(result, clone(summary))
	}
	slices.SortFunc(result, func(a, b *model.GameSummary) int {
		if c := b.CompletedAt.Compare(a.CompletedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Storage) DeleteGameSummary(ctx context.Context, id model.GameID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, id)
	return nil
}

// clone keeps callers from mutating stored summaries
func clone(summary *model.GameSummary) *model.GameSummary {
	c := *summary
	c.Wolves = slices.Clone(summary.Wolves)
	c.Players = slices.Clone(summary.Players)
	return &c
}
