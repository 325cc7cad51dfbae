package cli

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the hosted game",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Game

			if err := apiClient.Get("/api/v1/game", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Close the join window and start the game",
		Long:  "Start the hosted game. Requires --admin-token when the host was given one.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Game

			if err := apiClient.Post("/api/v1/game/start", nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			if cfg.Output == "json" {
				out.Print(result)
				return nil
			}
			out.PrintMessage(fmt.Sprintf("Game started with %d players", len(result.Players)))
			return nil
		},
	}
}

func newGamesCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "games [id]",
		Short: "List finished games, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cfg.Output)

			if len(args) == 1 {
				var result GameSummary
				if err := apiClient.Get("/api/v1/games/"+url.PathEscape(args[0]), &result); err != nil {
					return err
				}
				out.Print(result)
				return nil
			}

			var result GameList
			if err := apiClient.Get("/api/v1/games?limit="+strconv.Itoa(limit), &result); err != nil {
				return err
			}
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of games to list")

	return cmd
}

func newBotCmd() *cobra.Command {
	var strategy string

	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Add a bot player to the hosted game",
		Long:  "Add a bot player while the join window is open. Requires --admin-token when the host was given one.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Bot

			if err := apiClient.Post("/api/v1/game/bots", map[string]string{"strategy": strategy}, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			if cfg.Output == "json" {
				out.Print(result)
				return nil
			}
			out.PrintMessage(fmt.Sprintf("%s joined as #%d (%s)", result.Name, result.ID, result.Strategy))
			return nil
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", "random", "Bot strategy: random, first")

	return cmd
}
