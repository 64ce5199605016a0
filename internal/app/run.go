package app

import (
	"os/signal"
	"syscall"

	"github.com/MuchTitan/go-logwatch/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run all watchers until SIGINT or SIGTERM",
	Args:  cobra.NoArgs,
	RunE:  runRun,
}

func init() {
	RootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	engine, err := config.NewPluginEngine(cfgPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logrus.WithField("watchers", engine.Watchers()).Info("Starting logwatch")
	if err := engine.Start(); err != nil {
		engine.Stop()
		return err
	}

	// Wait for shutdown signal
	<-ctx.Done()

	logrus.Info("Stopping logwatch")
	return engine.Stop()
}

