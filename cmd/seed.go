package cmd

import (
	"fmt"
	"priceparser/internal/config"
	"priceparser/internal/infra/storage"
	"priceparser/internal/usecase"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert demo parsing tasks into an empty store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Store.Backend == config.BackendMemory {
				return fmt.Errorf("seed needs a persistent store, STORE_BACKEND is %q", cfg.Store.Backend)
			}
			ctx, stop := signalContext()
			defer stop()

			stores, err := storage.Open(ctx, cfg, log.Logger)
			if err != nil {
				return err
			}
			defer stores.Close()

			n, err := usecase.Seeder{Tasks: stores.Tasks, Log: log.Logger}.Seed(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d tasks\n", n)
			return nil
		},
	}
}
