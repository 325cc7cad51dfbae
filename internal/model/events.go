package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	// Join window events
	EventPlayerJoined  EventType = "player_joined"
	EventJoinRejected  EventType = "join_rejected"
	EventJoinClosed    EventType = "join_closed"
	EventPlayerDropped EventType = "player_dropped"
	EventGameStarted   EventType = "game_started"
	EventRolesAssigned EventType = "roles_assigned"

	// Phase events
	EventNightFell    EventType = "night_fell"
	EventPlayerKilled EventType = "player_killed"
	EventDayBroke     EventType = "day_broke"
	EventVoteCast     EventType = "vote_cast"
	EventVotedOut     EventType = "voted_out"
	EventNoMajority   EventType = "no_majority"
	EventForfeited    EventType = "forfeited"
	EventGameOver     EventType = "game_over"
)

// Event is the base structure for all events
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Day       int       `json:"day,omitempty"`
	PlayerID  *PlayerID `json:"player_id,omitempty"` // The player who triggered or is affected
	Payload   any       `json:"payload,omitempty"`   // Type-specific data
}

// PlayerJoinedPayload contains data for player joined events
type PlayerJoinedPayload struct {
	Name    string `json:"name"`
	Players int    `json:"players"`
}

// JoinRejectedPayload contains data for join rejected events
type JoinRejectedPayload struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// PlayerDroppedPayload contains data for player dropped events
type PlayerDroppedPayload struct {
	Reason string `json:"reason"`
}

// GameStartedPayload contains data for game started events
type GameStartedPayload struct {
	GameID  GameID `json:"game_id"`
	Players int    `json:"players"`
}

// RolesAssignedPayload contains data for roles assigned events
type RolesAssignedPayload struct {
	Wolves  []PlayerID `json:"wolves"`
	Players int        `json:"players"`
}

// VoteCastPayload contains data for vote cast events
type VoteCastPayload struct {
	Target PlayerID `json:"target"`
}

// VotedOutPayload contains data for voted out events
type VotedOutPayload struct {
	Votes  int `json:"votes"`
	Living int `json:"living"`
}

// NoMajorityPayload contains data for no majority events
type NoMajorityPayload struct {
	Ballots int  `json:"ballots"`
	Living  int  `json:"living"`
	Tied    bool `json:"tied"`
}

// GameOverPayload contains data for game over events
type GameOverPayload struct {
	GameID GameID `json:"game_id"`
	Winner Winner `json:"winner"`
}

// PlayerRef returns a pointer to id for use in Event.PlayerID
func PlayerRef(id PlayerID) *PlayerID {
	return &id
}
