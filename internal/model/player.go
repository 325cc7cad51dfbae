package model

import "strconv"

// PlayerID identifies a player for the lifetime of one game.
// Identities are allocated in increasing order starting at zero and are never reused.
type PlayerID uint32

func (id PlayerID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParsePlayerID parses the decimal form produced by String
func ParsePlayerID(s string) (PlayerID, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return PlayerID(n), nil
}

// Role is a player's secret allegiance
type Role string

const (
	RoleUnassigned Role = ""
	RoleWolf       Role = "wolf"
	RoleVillager   Role = "villager"
)

// Winner names the side that won a game
type Winner string

const (
	WinnerNone    Winner = ""
	WinnerWolf    Winner = "wolf"
	WinnerVillage Winner = "village"
)
