package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/alakara/harvest/internal/services"

	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to the store and serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			mgr := services.NewManager(cfg, services.Options{})
			if err := mgr.Init(ctx); err != nil {
				return err
			}
			mgr.Start(ctx)
			slog.Info("Harvest API started", "version", version, "port", cfg.Server.Port)

			select {
			case <-ctx.Done():
				slog.Info("Shutting down")
			case err = <-mgr.Errors():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			mgr.Shutdown(shutdownCtx)
			return err
		},
	}
}
