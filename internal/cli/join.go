package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/mcoot/werewolf/internal/client"
	"github.com/mcoot/werewolf/internal/model"
)

func newJoinCmd() *cobra.Command {
	var (
		addr  string
		wsURL string
		name  string
	)

	cmd := &cobra.Command{
		Use:   "join",
		Short: "Join a hosted game as a player",
		Long: `Connect to a host, join under a display name and play until the game ends.
Connects over TCP to --addr, or over WebSocket when --ws is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := cfg.Logger(true)
			if err != nil {
				return err
			}

			if name == "" {
				name, err = pterm.DefaultInteractiveTextInput.WithDefaultText("Enter your name").Show()
				if err != nil {
					return fmt.Errorf("failed to read name: %w", err)
				}
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			target := addr
			spinner, _ := pterm.DefaultSpinner.WithRemoveWhenDone(true).Start("Connecting to " + target + " ...")
			var c *client.Client
			if wsURL != "" {
				target = wsURL
				c, err = client.DialWebSocket(ctx, wsURL, consoleChooser{}, consoleRenderer{}, logger)
			} else {
				c, err = client.Dial(ctx, addr, consoleChooser{}, consoleRenderer{}, logger)
			}
			if err != nil {
				spinner.Fail(err.Error())
				return err
			}
			defer func() { _ = c.Close() }()

			if err := c.Join(ctx, name); err != nil {
				spinner.Fail("Could not join " + target)
				return err
			}
			_ = spinner.Stop()

			winner, err := c.Play(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					pterm.Info.Println("Left the game")
					return nil
				}
				return err
			}

			if won(winner, c.Role()) {
				pterm.Success.Println("You won!")
			} else {
				pterm.Info.Println("You lost.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", net.JoinHostPort("localhost", strconv.Itoa(DefaultPort)), "Host TCP address")
	cmd.Flags().StringVar(&wsURL, "ws", "", "Host WebSocket URL, e.g. ws://localhost:8080/api/v1/ws")
	cmd.Flags().StringVar(&name, "name", "", "Display name (prompted for when empty)")

	return cmd
}

func won(winner model.Winner, role model.Role) bool {
	switch winner {
	case model.WinnerWolf:
		return role == model.RoleWolf
	case model.WinnerVillage:
		return role == model.RoleVillager
	default:
		return false
	}
}
