package model

import "time"

// GameID uniquely identifies a played game in the results archive
type GameID string

// Phase is the current state of the phase engine
type Phase string

const (
	PhaseAwaitingPlayers Phase = "awaiting_players"
	PhaseRoleAssignment  Phase = "role_assignment"
	PhaseNight           Phase = "night"
	PhaseDay             Phase = "day"
	PhaseGameOver        Phase = "game_over"
)

// PlayerSummary is the final state of one player in a completed game
type PlayerSummary struct {
	ID        PlayerID `json:"id"`
	Name      string   `json:"name"`
	Role      Role     `json:"role,omitempty"`
	Alive     bool     `json:"alive"`
	Connected bool     `json:"connected"`
}

// GameSummary is the archived record of a completed game
type GameSummary struct {
	ID          GameID          `json:"id"`
	Winner      Winner          `json:"winner"`
	Wolves      []PlayerID      `json:"wolves"`
	Players     []PlayerSummary `json:"players"`
	Days        int             `json:"days"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt time.Time       `json:"completed_at"`
}
