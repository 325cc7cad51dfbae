package game

import "github.com/mcoot/werewolf/internal/model"

// Checkpoint names the moment a win condition is evaluated
type Checkpoint string

const (
	// CheckpointDusk is before each night
	CheckpointDusk Checkpoint = "dusk"
	// CheckpointDawn is after the night's death is announced
	CheckpointDawn Checkpoint = "dawn"
	// CheckpointVote is after a day elimination
	CheckpointVote Checkpoint = "vote"
)

// RoleCount is the multiset of roles among living players
type RoleCount struct {
	Wolves    int
	Villagers int
}

// Living returns the number of living players counted
func (c RoleCount) Living() int {
	return c.Wolves + c.Villagers
}

// WinCondition decides whether the game is over at a checkpoint
type WinCondition func(living RoleCount, at Checkpoint) (model.Winner, bool)

// StandardRules ends the game when either side is wiped out, and after a vote
// elimination when the wolves are at parity with the villagers. A night kill
// that leaves parity still gives the village one more vote.
func StandardRules(living RoleCount, at Checkpoint) (model.Winner, bool) {
	switch {
	case living.Wolves == 0:
		return model.WinnerVillage, true
	case living.Villagers == 0:
		return model.WinnerWolf, true
	case at == CheckpointVote && living.Wolves >= living.Villagers:
		return model.WinnerWolf, true
	default:
		return model.WinnerNone, false
	}
}
