// Package tally counts day-phase ballots.
package tally

import (
	"fmt"
	"maps"
	"slices"

	"github.com/mcoot/werewolf/internal/model"
)

// Ballots holds at most one active ballot per voter. A later cast overwrites the earlier one.
type Ballots struct {
	byVoter map[model.PlayerID]model.PlayerID
}

func NewBallots() *Ballots {
	return &Ballots{byVoter: make(map[model.PlayerID]model.PlayerID)}
}

// Cast records voter's choice, replacing any earlier ballot from the same voter
func (b *Ballots) Cast(voter, target model.PlayerID) {
	b.byVoter[voter] = target
}

// Drop discards voter's ballot
func (b *Ballots) Drop(voter model.PlayerID) {
	delete(b.byVoter, voter)
}

// Retain keeps only ballots whose voter and target both satisfy keep
func (b *Ballots) Retain(keep func(model.PlayerID) bool) {
	for voter, target := range b.byVoter {
		if !keep(voter) || !keep(target) {
			delete(b.byVoter, voter)
		}
	}
}

func (b *Ballots) Len() int {
	return len(b.byVoter)
}

// Map returns a copy of the ballots keyed by voter
func (b *Ballots) Map() map[model.PlayerID]model.PlayerID {
	return maps.Clone(b.byVoter)
}

// Outcome is the result of one tabulation
type Outcome struct {
	// Target has the highest count. On a tie it is the lowest tied id.
	Target   model.PlayerID
	Votes    int
	Tied     bool
	Majority bool
	Counts   map[model.PlayerID]int
}

// Tabulate counts ballots cast by living voters.
// A target is eliminated only with strictly more than floor(living/2) votes;
// a tie for the top count is never a majority.
func Tabulate(ballots map[model.PlayerID]model.PlayerID, eligible []model.PlayerID, living int) (Outcome, error) {
	if len(ballots) == 0 {
		return Outcome{}, fmt.Errorf("%w: tabulating zero ballots", model.ErrInvariantViolation)
	}
	if len(ballots) > living {
		return Outcome{}, fmt.Errorf("%w: %d ballots from %d living players",
			model.ErrInvariantViolation, len(ballots), living)
	}

	counts := make(map[model.PlayerID]int)
	for voter, target := range ballots {
		if !slices.Contains(eligible, target) {
			return Outcome{}, fmt.Errorf("%w: ballot from %s names ineligible %s",
				model.ErrInvariantViolation, voter, target)
		}
		counts[target]++
	}

	targets := slices.Sorted(maps.Keys(counts))
	out := Outcome{Target: targets[0], Votes: counts[targets[0]], Counts: counts}
	for _, t := range targets[1:] {
		switch c := counts[t]; {
		case c > out.Votes:
			out.Target, out.Votes, out.Tied = t, c, false
		case c == out.Votes:
			out.Tied = true
		}
	}
	out.Majority = !out.Tied && out.Votes > living/2
	return out, nil
}
