package cmd

import (
	"priceparser/internal/infra/storage"
	"priceparser/internal/metrics"
	"priceparser/internal/worker"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type workerFlags struct {
	poolSize int
	interval time.Duration
	batch    int
	seed     bool
}

func (f *workerFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.poolSize, "pool-size", 4, "Number of concurrent parsing workers")
	cmd.Flags().DurationVar(&f.interval, "interval", 10*time.Second, "Delay between dispatch cycles")
	cmd.Flags().IntVar(&f.batch, "batch", 10, "Max tasks claimed per cycle")
	cmd.Flags().BoolVar(&f.seed, "seed", false, "Insert demo tasks into an empty store")
}

// apply lets explicitly set flags win over the environment.
func (f *workerFlags) apply(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("pool-size") {
		cfg.Parser.PoolSize = f.poolSize
	}
	if flags.Changed("interval") {
		cfg.Parser.SchedulerPeriod = f.interval
	}
	if flags.Changed("batch") {
		cfg.Parser.MaxTasksPerTick = f.batch
	}
	if flags.Changed("seed") {
		cfg.Store.SeedDemoTasks = f.seed
	}
	return cfg.Validate()
}

func workerCmd() *cobra.Command {
	var flags workerFlags
	var command = &cobra.Command{
		Use:   "worker",
		Short: "Start worker server",
		RunE: func(cmd *cobra.Command, args []string) error {
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
			log.Info().
				Str("backend", stores.Name).
				Int("pool_size", cfg.Parser.PoolSize).
				Dur("interval", cfg.Parser.SchedulerPeriod).
				Int("batch", cfg.Parser.MaxTasksPerTick).
				Msg("worker starting")

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return w.Run(ctx) })
			g.Go(func() error {
				return metrics.NewServer(cfg.HTTP.MetricsAddress, reg, log.Logger).Run(ctx)
			})
			return g.Wait()
		},
	}

	flags.register(command)
	return command
}
