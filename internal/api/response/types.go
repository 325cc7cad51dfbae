package response

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mcoot/werewolf/internal/model"
	"github.com/mcoot/werewolf/internal/services/host"
)

// JSON writes a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Health is the health check response
type Health struct {
	Status string `json:"status"`
}

// Player represents a player in API responses
type Player struct {
	ID        model.PlayerID `json:"id"`
	Name      string         `json:"name"`
	Role      model.Role     `json:"role,omitempty"`
	Alive     bool           `json:"alive"`
	Connected bool           `json:"connected"`
}

// PlayerFromSummary converts a model.PlayerSummary
func PlayerFromSummary(p model.PlayerSummary) Player {
	return Player{
		ID:        p.ID,
		Name:      p.Name,
		Role:      p.Role,
		Alive:     p.Alive,
		Connected: p.Connected,
	}
}

func playersFromSummaries(summaries []model.PlayerSummary) []Player {
	players := make([]Player, len(summaries))
	for i, p := range summaries {
		players[i] = PlayerFromSummary(p)
	}
	return players
}

// Game is the live game view
type Game struct {
	GameID     model.GameID `json:"game_id,omitempty"`
	Phase      model.Phase  `json:"phase"`
	Day        int          `json:"day"`
	Winner     model.Winner `json:"winner,omitempty"`
	JoinOpen   bool         `json:"join_open"`
	MinPlayers int          `json:"min_players"`
	Players    []Player     `json:"players"`
}

// GameFromStatus converts a host.Status
func GameFromStatus(s host.Status) Game {
	return Game{
		GameID:     s.GameID,
		Phase:      s.Phase,
		Day:        s.Day,
		Winner:     s.Winner,
		JoinOpen:   s.JoinOpen,
		MinPlayers: s.MinPlayers,
		Players:    playersFromSummaries(s.Players),
	}
}

// Bot is a bot player added by the operator
type Bot struct {
	ID       model.PlayerID `json:"id"`
	Name     string         `json:"name"`
	Strategy string         `json:"strategy"`
}

// GameSummary is an archived game
type GameSummary struct {
	ID          model.GameID     `json:"id"`
	Winner      model.Winner     `json:"winner"`
	Wolves      []model.PlayerID `json:"wolves"`
	Players     []Player         `json:"players"`
	Days        int              `json:"days"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt time.Time        `json:"completed_at"`
}

// GameSummaryFromModel converts a model.GameSummary
func GameSummaryFromModel(s *model.GameSummary) GameSummary {
	return GameSummary{
		ID:          s.ID,
		Winner:      s.Winner,
		Wolves:      s.Wolves,
		Players:     playersFromSummaries(s.Players),
		Days:        s.Days,
		StartedAt:   s.StartedAt,
		CompletedAt: s.CompletedAt,
	}
}

// GameList is the archived games listing
type GameList struct {
	Games []GameSummary `json:"games"`
}

// GameListFromModels converts archived summaries
func GameListFromModels(summaries []*model.GameSummary) GameList {
	games := make([]GameSummary, len(summaries))
	for i, s := range summaries {
		games[i] = GameSummaryFromModel(s)
	}
	return GameList{Games: games}
}
