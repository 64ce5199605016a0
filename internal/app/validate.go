package app

import (
	"fmt"

	"github.com/MuchTitan/go-logwatch/internal/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the config file",
	Args:  cobra.NoArgs,
	RunE:  runValidate,
}

func init() {
	RootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d watchers, %d outputs, %s state backend\n",
		cfgPath, len(cfg.Watchers), len(cfg.Outputs), cfg.System.StateBackend)
	return nil
}
