package main

import (
	"context"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"accel-ng/internal/config"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "accel-ng",
		Short:        "accelerometer conditioning and delta-velocity integration",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				log.SetLevel(log.DebugLevel)
			}
		},
	}
	root.PersistentFlags().String("config", "", "path to YAML config (built-in defaults when empty)")
	root.PersistentFlags().Bool("debug", false, "toggle debug logging")

	root.AddCommand(newRunCmd(), newReplayCmd(), newSummaryCmd())
	return root
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	log.Debugf("config loaded path=%s", path)
	return cfg, nil
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
