package app

import (
	"encoding/json"
	"fmt"

	"github.com/MuchTitan/go-logwatch/internal/config"
	"github.com/MuchTitan/go-logwatch/internal/state"
	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect or reset persisted tail state",
}

var stateShowCmd = &cobra.Command{
	Use:   "show <watcher>",
	Short: "Print the persisted tail state of a watcher",
	Args:  cobra.ExactArgs(1),
	RunE:  runStateShow,
}

var stateResetCmd = &cobra.Command{
	Use:   "reset <watcher>",
	Short: "Forget the tail state so the next poll reads the whole file",
	Args:  cobra.ExactArgs(1),
	RunE:  runStateReset,
}

func init() {
	stateCmd.AddCommand(stateShowCmd)
	stateCmd.AddCommand(stateResetCmd)

	RootCmd.AddCommand(stateCmd)
}

func openWatcherStore(name string) (state.Store, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	wc, ok := cfg.Watcher(name)
	if !ok {
		return nil, fmt.Errorf("unknown watcher %q", name)
	}
	return cfg.OpenStore(wc)
}

func runStateShow(cmd *cobra.Command, args []string) error {
	store, err := openWatcherStore(args[0])
	if err != nil {
		return err
	}
	defer store.Close()

	st, err := store.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(st)
}

func runStateReset(cmd *cobra.Command, args []string) error {
	store, err := openWatcherStore(args[0])
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(args[0]); err != nil {
		return fmt.Errorf("failed to reset state: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Reset tail state of %s\n", args[0])
	return nil
}
