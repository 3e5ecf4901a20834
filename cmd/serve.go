package cmd

import (
	"priceparser/internal/api"
	"priceparser/internal/infra/storage"
	"priceparser/internal/usecase"
	"priceparser/internal/worker"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cobra.Command {
	var (
		flags workerFlags
		port  int
	)
	var command = &cobra.Command{
		Use:   "serve",
		Short: "Run API server and worker in one process",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				cfg.HTTP.Port = port
			}
			if err := flags.apply(cmd); err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()

			stores, err := storage.Open(ctx, cfg, log.Logger)
			if err != nil {
				return err
			}
			defer stores.Close()

			reg := newRegistry()
			w := worker.New(cfg, stores, reg, log.Logger)
			server := api.NewServer(api.Deps{
				Submitter: usecase.Submitter{Tasks: stores.Tasks},
				Query:     usecase.ProductQuery{Products: stores.Products},
				Registry:  reg,
			})

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return w.Run(ctx) })
			g.Go(func() error { return server.Run(ctx, cfg.HTTP.Port) })
			return g.Wait()
		},
	}

	command.Flags().IntVarP(&port, "port", "p", 8080, "Port to run the server on")
	flags.register(command)
	return command
}
