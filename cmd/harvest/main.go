package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alakara/harvest/internal/config"
	"github.com/alakara/harvest/internal/logging"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

var configDir string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "harvest",
		Short:         "Alakara Harvest farmer platform API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configDir, "config", "c", config.DefaultDir, "directory holding config.yml and config.local.yml")

	root.AddCommand(newServeCmd(), newSeedCmd(), newVersionCmd())
	return root
}

// setup loads the configuration and installs the process logger.
func setup() (*config.Config, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, err
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "harvest %s\n", version)
		},
	}
}

func main() {
	err := newRootCmd().Execute()
	if shutdownErr := logging.Shutdown(); shutdownErr != nil {
		fmt.Fprintf(os.Stderr, "failed to close log files: %v\n", shutdownErr)
	}
	if err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
