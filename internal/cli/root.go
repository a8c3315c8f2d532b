package cli

import (
	"context"
	"fmt"
	"os"

	"spotfinder_go_backend/cmd/api/config"
	"spotfinder_go_backend/internal/app"

	"github.com/spf13/cobra"
)

var (
	verbose bool
	dbPath  string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "spotfinder",
	Short: "Conversational place and information search",
	Long: `SpotFinder answers questions with Google Search and Google Maps grounding,
keeping a local history of chat sessions.

Quick Start:
  spotfinder ask "best tacos nearby"     # Ask in a new session
  spotfinder sessions                    # List saved sessions
  spotfinder export <session-id>         # Save a session as PDF
  spotfinder serve                       # Run the HTTP/WebSocket API`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		if dbPath != "" {
			cfg.DBPath = dbPath
		}
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		app.SetupLogger(level, "console", os.Stderr)
	},
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the sqlite session database")
}

func loadApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, cfg)
}
