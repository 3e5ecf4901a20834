package cmd

import (
	"priceparser/internal/api"
	"priceparser/internal/config"
	"priceparser/internal/infra/storage"
	"priceparser/internal/usecase"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func apiCmd() *cobra.Command {
	var port int
	var command = &cobra.Command{
		Use:   "api",
		Short: "Start API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				cfg.HTTP.Port = port
			}
			if cfg.Store.Backend == config.BackendMemory {
				log.Warn().Msg("memory backend is not shared with workers, run `serve` for a single-process setup")
			}

			ctx, stop := signalContext()
			defer stop()

			stores, err := storage.Open(ctx, cfg, log.Logger)
			if err != nil {
				return err
			}
			defer stores.Close()

			log.Info().Str("backend", stores.Name).Msg("API server using store")
			server := api.NewServer(api.Deps{
				Submitter: usecase.Submitter{Tasks: stores.Tasks},
				Query:     usecase.ProductQuery{Products: stores.Products},
				Registry:  newRegistry(),
			})
			return server.Run(ctx, cfg.HTTP.Port)
		},
	}

	command.Flags().IntVarP(&port, "port", "p", 8080, "Port to run the server on")
	return command
}
