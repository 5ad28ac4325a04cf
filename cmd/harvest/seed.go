package main

import (
	"fmt"

	mongostore "github.com/alakara/harvest/internal/core/storage/mongo"
	"github.com/alakara/harvest/internal/dashboard"

	"github.com/spf13/cobra"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the sample dashboard data into empty collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store := mongostore.NewManager(cfg.Storage)
			store.MustConnect(ctx)
			defer store.Close(ctx)

			svc := dashboard.NewService(store, cfg.Storage.Collections, dashboard.Options{})
			seeded, err := svc.Seed(ctx)
			if err != nil {
				return err
			}
			if len(seeded) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "dashboard data already present")
				return nil
			}
			for _, name := range seeded {
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %s\n", name)
			}
			return nil
		},
	}
}
