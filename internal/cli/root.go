package cli

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfg       *Config
	apiClient *Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	// A missing .env is fine; the environment and flags still apply
	_ = godotenv.Load()
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "werewolf",
		Short: "Host and play werewolf over the network",
		Long: `werewolf hosts a game of werewolf for players connecting over TCP or
WebSocket, plays as one of those players, and inspects a running host through
its operator API.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			apiClient = NewClient(cfg.ServerURL, cfg.AdminToken)
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Operator API URL (env: WEREWOLF_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.AdminToken, "admin-token", cfg.AdminToken, "Operator admin token (env: WEREWOLF_ADMIN_TOKEN)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: json, text (env: WEREWOLF_LOG_FORMAT)")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(newHostCmd())
	rootCmd.AddCommand(newJoinCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newStartCmd())
	rootCmd.AddCommand(newBotCmd())
	rootCmd.AddCommand(newGamesCmd())
	rootCmd.AddCommand(newEventsCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
