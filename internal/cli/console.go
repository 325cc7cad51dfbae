package cli

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"

	"github.com/mcoot/werewolf/internal/client"
	"github.com/mcoot/werewolf/internal/model"
	"github.com/mcoot/werewolf/internal/protocol"
)

// consoleRenderer prints notices to the terminal
type consoleRenderer struct{}

func (consoleRenderer) Render(n client.Notice) {
	switch n.Kind {
	case protocol.KindRoleAssigned:
		pterm.DefaultBox.WithTitle("Your role").Println(n.Text)
	case protocol.KindNightFalls:
		pterm.DefaultSection.Println(n.Text)
	case protocol.KindDied, protocol.KindVotedOut, protocol.KindForfeited:
		pterm.Warning.Println(n.Text)
	case protocol.KindNoMajority:
		pterm.Info.Println(pterm.Yellow(n.Text))
	case protocol.KindAnnounceWinner:
		pterm.DefaultHeader.WithFullWidth().Println(n.Text)
	default:
		pterm.Info.Println(n.Text)
	}
}

// consoleChooser asks the player to pick from a menu
type consoleChooser struct{}

func (consoleChooser) ChooseKill(ctx context.Context, candidates []client.Candidate) (model.PlayerID, error) {
	return choose(ctx, "Choose who to kill tonight", candidates)
}

func (consoleChooser) ChooseVote(ctx context.Context, candidates []client.Candidate) (model.PlayerID, error) {
	return choose(ctx, "Choose who to vote out", candidates)
}

func choose(ctx context.Context, prompt string, candidates []client.Candidate) (model.PlayerID, error) {
	if len(candidates) == 0 {
		return 0, client.ErrNoCandidates
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	options := make([]string, len(candidates))
	byOption := make(map[string]model.PlayerID, len(candidates))
	for i, c := range candidates {
		options[i] = fmt.Sprintf("%s (#%s)", c.Name, c.ID)
		byOption[options[i]] = c.ID
	}

	selected, err := pterm.DefaultInteractiveSelect.
		WithDefaultText(prompt).
		WithOptions(options).
		Show()
	if err != nil {
		return 0, fmt.Errorf("failed to read choice: %w", err)
	}
	return byOption[selected], nil
}
