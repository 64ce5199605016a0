package app

import (
	"github.com/MuchTitan/go-logwatch/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgPath string

	// RootCmd is the root command for logwatch
	RootCmd = &cobra.Command{
		Use:   "logwatch",
		Short: "Rotation-aware log tailer that reports pattern matches",
		Long: `logwatch polls log files, survives copytruncate and move/create rotation,
and reports lines matching the configured patterns exactly once, even across
restarts.

Examples:
  # Run every configured watcher until interrupted
  logwatch run --cfg /etc/logwatch.yaml

  # Poll the app watcher once and print what was found
  logwatch observe app

  # Inspect or reset the persisted read position
  logwatch state show app
  logwatch state reset app`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	// Global flags
	RootCmd.PersistentFlags().StringVar(&cfgPath, "cfg", config.DefaultPath, "provided the path to your config file")

	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}
