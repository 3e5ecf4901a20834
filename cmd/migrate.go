package cmd

import (
	"fmt"
	"priceparser/internal/config"
	"priceparser/internal/infra/postgres"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Store.Backend != config.BackendPostgres {
				return fmt.Errorf("migrate needs STORE_BACKEND=postgres, got %q", cfg.Store.Backend)
			}
			ctx, stop := signalContext()
			defer stop()

			pool, err := postgres.Open(ctx, cfg.Postgres)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := postgres.Migrate(ctx, pool, log.Logger); err != nil {
				return err
			}
			log.Info().Msg("migrations applied")
			return nil
		},
	}
}
