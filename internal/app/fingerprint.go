package app

import (
	"fmt"

	"github.com/MuchTitan/go-logwatch/internal/fingerprint"
	"github.com/spf13/cobra"
)

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint <path>",
	Short: "Print the file identity used for rotation detection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := fingerprint.Get(args[0])
		if id == nil {
			return fmt.Errorf("no file identity for %s", args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), id.String())
		return nil
	},
}

func init() {
	RootCmd.AddCommand(fingerprintCmd)
}
