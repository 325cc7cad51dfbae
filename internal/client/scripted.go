package client

import (
	"context"
	"errors"

	"github.com/mcoot/werewolf/internal/model"
)

// ErrNoCandidates is returned when a choice offers nobody to pick
var ErrNoCandidates = errors.New("no candidates offered")

// FirstChoice always picks the first candidate offered
type FirstChoice struct{}

func (FirstChoice) ChooseKill(_ context.Context, candidates []Candidate) (model.PlayerID, error) {
	return first(candidates)
}

func (FirstChoice) ChooseVote(_ context.Context, candidates []Candidate) (model.PlayerID, error) {
	return first(candidates)
}

func first(candidates []Candidate) (model.PlayerID, error) {
	if len(candidates) == 0 {
		return 0, ErrNoCandidates
	}
	return candidates[0].ID, nil
}

// ChoiceFunc adapts a function to Chooser, using it for both kills and votes
type ChoiceFunc func(ctx context.Context, candidates []Candidate) (model.PlayerID, error)

func (f ChoiceFunc) ChooseKill(ctx context.Context, candidates []Candidate) (model.PlayerID, error) {
	return f(ctx, candidates)
}

func (f ChoiceFunc) ChooseVote(ctx context.Context, candidates []Candidate) (model.PlayerID, error) {
	return f(ctx, candidates)
}
