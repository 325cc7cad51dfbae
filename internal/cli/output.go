package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to stdout
func NewOutput(format string) *Output {
	return &Output{format: format, w: os.Stdout}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.w, string(data))
	} else {
		_, _ = fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Game:
		o.printGame(v)
	case GameList:
		o.printGameList(v)
	case GameSummary:
		o.printGameSummary(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Player response type (matches API)
type Player struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role,omitempty"`
	Alive     bool   `json:"alive"`
	Connected bool   `json:"connected"`
}

// Game is the live game view
type Game struct {
	GameID     string   `json:"game_id,omitempty"`
	Phase      string   `json:"phase"`
	Day        int      `json:"day"`
	Winner     string   `json:"winner,omitempty"`
	JoinOpen   bool     `json:"join_open"`
	MinPlayers int      `json:"min_players"`
	Players    []Player `json:"players"`
}

// GameSummary is an archived game
type GameSummary struct {
	ID          string    `json:"id"`
	Winner      string    `json:"winner"`
	Wolves      []int     `json:"wolves"`
	Players     []Player  `json:"players"`
	Days        int       `json:"days"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// GameList is the archived games listing
type GameList struct {
	Games []GameSummary `json:"games"`
}

// Bot is a bot player added by the operator
type Bot struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Strategy string `json:"strategy"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printGame(g Game) {
	if g.GameID != "" {
		_, _ = fmt.Fprintf(o.w, "Game:    %s\n", g.GameID)
	}
	_, _ = fmt.Fprintf(o.w, "Phase:   %s\n", g.Phase)
	if g.Day > 0 {
		_, _ = fmt.Fprintf(o.w, "Day:     %d\n", g.Day)
	}
	if g.Winner != "" {
		_, _ = fmt.Fprintf(o.w, "Winner:  %s\n", g.Winner)
	}
	joining := "closed"
	if g.JoinOpen {
		joining = fmt.Sprintf("open (%d/%d players)", len(g.Players), g.MinPlayers)
	}
	_, _ = fmt.Fprintf(o.w, "Joining: %s\n", joining)
	o.printPlayers(g.Players)
}

func (o *Output) printPlayers(players []Player) {
	if len(players) == 0 {
		return
	}
	_, _ = fmt.Fprintln(o.w)
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tSTATE\tROLE")
	for _, p := range players {
		role := p.Role
		if role == "" {
			role = "?"
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", p.ID, p.Name, playerState(p), role)
	}
	_ = tw.Flush()
}

func playerState(p Player) string {
	var states []string
	if p.Alive {
		states = append(states, "alive")
	} else {
		states = append(states, "dead")
	}
	if !p.Connected {
		states = append(states, "disconnected")
	}
	return strings.Join(states, ", ")
}

func (o *Output) printGameList(l GameList) {
	if len(l.Games) == 0 {
		_, _ = fmt.Fprintln(o.w, "No games played yet")
		return
	}
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tWINNER\tDAYS\tPLAYERS\tCOMPLETED")
	for _, g := range l.Games {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
			g.ID, g.Winner, g.Days, len(g.Players), g.CompletedAt.Local().Format("2006-01-02 15:04"))
	}
	_ = tw.Flush()
}

func (o *Output) printGameSummary(g GameSummary) {
	_, _ = fmt.Fprintf(o.w, "Game:      %s\n", g.ID)
	_, _ = fmt.Fprintf(o.w, "Winner:    %s\n", g.Winner)
	_, _ = fmt.Fprintf(o.w, "Days:      %d\n", g.Days)
	_, _ = fmt.Fprintf(o.w, "Started:   %s\n", g.StartedAt.Local().Format(time.DateTime))
	_, _ = fmt.Fprintf(o.w, "Completed: %s\n", g.CompletedAt.Local().Format(time.DateTime))
	o.printPlayers(g.Players)
}

func (o *Output) printHealthResult(h HealthResult) {
	_, _ = fmt.Fprintf(o.w, "Status: %s\n", h.Status)
}
