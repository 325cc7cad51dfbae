package bot

import (
	"context"

	"github.com/mcoot/werewolf/internal/client"
	"github.com/mcoot/werewolf/internal/dependencies/random"
	"github.com/mcoot/werewolf/internal/model"
)

// RandomStrategy picks uniformly among the offered candidates
type RandomStrategy struct {
	random random.Random
}

// NewRandomStrategy creates a new RandomStrategy
func NewRandomStrategy(rnd random.Random) *RandomStrategy {
	return &RandomStrategy{random: rnd}
}

// ChooseKill picks a random victim
func (s *RandomStrategy) ChooseKill(_ context.Context, candidates []client.Candidate) (model.PlayerID, error) {
	return s.pick(candidates)
}

// ChooseVote picks a random suspect
func (s *RandomStrategy) ChooseVote(_ context.Context, candidates []client.Candidate) (model.PlayerID, error) {
	return s.pick(candidates)
}

func (s *RandomStrategy) pick(candidates []client.Candidate) (model.PlayerID, error) {
	if len(candidates) == 0 {
		return 0, client.ErrNoCandidates
	}
	return candidates[s.random.Intn(len(candidates))].ID, nil
}
