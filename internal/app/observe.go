package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/MuchTitan/go-logwatch/internal"
	"github.com/MuchTitan/go-logwatch/internal/config"
	"github.com/spf13/cobra"
)

var observeFlagJSON bool

var observeCmd = &cobra.Command{
	Use:   "observe [watcher...]",
	Short: "Poll watchers once and print the observations",
	Long: `Poll the named watchers, or every watcher when none is named, exactly once.
The observations are handed to the configured outputs and printed.`,
	Example: `  logwatch observe
  logwatch observe app db
  logwatch observe app --json`,
	RunE: runObserve,
}

func init() {
	observeCmd.Flags().BoolVar(&observeFlagJSON, "json", false, "print observations as JSON")

	RootCmd.AddCommand(observeCmd)
}

func runObserve(cmd *cobra.Command, args []string) error {
	engine, err := config.NewPluginEngine(cfgPath)
	if err != nil {
		return err
	}

	observations, observeErr := engine.ObserveOnce(args...)
	stopErr := engine.Stop()
	if observeErr != nil {
		return observeErr
	}

	if err := printObservations(cmd.OutOrStdout(), observations, observeFlagJSON); err != nil {
		return err
	}
	return stopErr
}

func printObservations(w io.Writer, observations []internal.Observation, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(observations)
	}

	for _, obs := range observations {
		fmt.Fprintf(w, "%s: %s\n", obs.Watcher, summary(obs))
		for _, line := range obs.MatchedLines {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	return nil
}

func summary(obs internal.Observation) string {
	if status, ok := obs.Metadata[internal.MetaStatus]; ok {
		return fmt.Sprint(status)
	}
	if errMsg, ok := obs.Metadata[internal.MetaError]; ok {
		return fmt.Sprintf("error: %v", errMsg)
	}

	parts := []string{
		fmt.Sprintf("%d matches", len(obs.MatchedLines)),
		fmt.Sprintf("%v lines read", obs.Metadata[internal.MetaLinesRead]),
		fmt.Sprintf("offset %v", obs.Metadata[internal.MetaOffset]),
	}
	if rotation, ok := obs.Metadata[internal.MetaRotation]; ok && rotation != "none" {
		parts = append(parts, fmt.Sprintf("rotation %v", rotation))
	}
	if stateErr, ok := obs.Metadata[internal.MetaStateError]; ok {
		parts = append(parts, fmt.Sprintf("state not saved: %v", stateErr))
	}
	return strings.Join(parts, ", ")
}
