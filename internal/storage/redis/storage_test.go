package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/werewolf/internal/model"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
	base    time.Time
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.GameTTL = time.Hour

	s.storage = NewWithClient(client, cfg)
	s.ctx = context.Background()
	s.base = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StorageSuite) summary(id model.GameID, completedAfter time.Duration) *model.GameSummary {
	return &model.GameSummary{
		ID:     id,
		Winner: model.WinnerWolf,
		Wolves: []model.PlayerID{2},
		Players: []model.PlayerSummary{
			{ID: 0, Name: "Alice", Role: model.RoleVillager, Alive: false, Connected: true},
			{ID: 1, Name: "Bob", Role: model.RoleVillager, Alive: false, Connected: false},
			{ID: 2, Name: "Carol", Role: model.RoleWolf, Alive: true, Connected: true},
		},
		Days:        2,
		StartedAt:   s.base,
		CompletedAt: s.base.Add(completedAfter),
	}
}

func (s *StorageSuite) TestSaveAndGetGameSummary() {
	err := s.storage.SaveGameSummary(s.ctx, s.summary("g1", time.Minute))
	s.Require().NoError(err)

	got, err := s.storage.GetGameSummary(s.ctx, "g1")
	s.Require().NoError(err)
	s.Equal(model.WinnerWolf, got.Winner)
	s.Equal(2, got.Days)
	s.Require().Len(got.Players, 3)
	s.Equal("Carol", got.Players[2].Name)
	s.Equal(model.RoleWolf, got.Players[2].Role)
	s.True(got.CompletedAt.Equal(s.base.Add(time.Minute)))
}

func (s *StorageSuite) TestGetGameSummaryNotFound() {
	_, err := s.storage.GetGameSummary(s.ctx, "missing")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *StorageSuite) TestSaveAppliesTTL() {
	s.Require().NoError(s.storage.SaveGameSummary(s.ctx, s.summary("g1", time.Minute)))
	s.Equal(time.Hour, s.mini.TTL(gameSummaryKey("g1")))
}

func (s *StorageSuite) TestListNewestFirst() {
	s.Require().NoError(s.storage.SaveGameSummary(s.ctx, s.summary("old", time.Minute)))
	s.Require().NoError(s.storage.SaveGameSummary(s.ctx, s.summary("new", time.Hour)))
	s.Require().NoError(s.storage.SaveGameSummary(s.ctx, s.summary("mid", 10*time.Minute)))

	all, err := s.storage.ListGameSummaries(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal(model.GameID("new"), all[0].ID)
	s.Equal(model.GameID("mid"), all[1].ID)
	s.Equal(model.GameID("old"), all[2].ID)

	limited, err := s.storage.ListGameSummaries(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(limited, 1)
	s.Equal(model.GameID("new"), limited[0].ID)
}

func (s *StorageSuite) TestListPrunesExpiredSummaries() {
	s.Require().NoError(s.storage.SaveGameSummary(s.ctx, s.summary("g1", time.Minute)))
	s.Require().NoError(s.storage.SaveGameSummary(s.ctx, s.summary("g2", 2*time.Minute)))

	s.mini.FastForward(2 * time.Hour)

	all, err := s.storage.ListGameSummaries(s.ctx, 0)
	s.Require().NoError(err)
	s.Empty(all)

	members, err := s.mini.ZMembers(gamesByCompletionKey())
	if err == nil {
		s.Empty(members)
	}
}

func (s *StorageSuite) TestDeleteGameSummary() {
	s.Require().NoError(s.storage.SaveGameSummary(s.ctx, s.summary("g1", time.Minute)))
	s.Require().NoError(s.storage.DeleteGameSummary(s.ctx, "g1"))

	_, err := s.storage.GetGameSummary(s.ctx, "g1")
	s.ErrorIs(err, model.ErrGameNotFound)

	all, err := s.storage.ListGameSummaries(s.ctx, 0)
	s.Require().NoError(err)
	s.Empty(all)
}
