package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg     *Config
	client  *Client
	secrets *SecretStore
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "chessctl",
		Short: "CLI tool for the chess game API",
		Long: `chessctl plays two-player chess games against the chess game server.

Secrets handed out by create and join are saved locally, so later move and
resign commands only need the game ID. Use watch to follow a game live.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			store, err := LoadSecretStore(cfg.SecretsFile)
			if err != nil {
				return err
			}
			secrets = store

			// Create HTTP client
			client = NewClient(cfg.ServerURL)
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: CHESSCTL_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.SecretsFile, "secrets-file", cfg.SecretsFile, "Saved secrets path (env: CHESSCTL_SECRETS_FILE)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(newCreateCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newJoinCmd())
	rootCmd.AddCommand(newMoveCmd())
	rootCmd.AddCommand(newResignCmd())
	rootCmd.AddCommand(newSeatsCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
