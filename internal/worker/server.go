package worker

import (
	"context"
	"errors"
	"fmt"
	"priceparser/internal/config"
	"priceparser/internal/extract"
	"priceparser/internal/infra/enrichment"
	"priceparser/internal/infra/storage"
	"priceparser/internal/metrics"
	"priceparser/internal/pool"
	"priceparser/internal/usecase"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const gaugeTimeout = 2 * time.Second

// Worker owns the scheduling loop and the pool of one process.
type Worker struct {
	scheduler *Scheduler
	pool      *pool.Pool
	seeder    *usecase.Seeder
	grace     time.Duration
	log       zerolog.Logger
}

// New wires the processing pipeline over stores and registers its metrics
// on reg. The pool starts right away; Run must be called to stop it.
func New(cfg *config.Config, stores *storage.Backend, reg prometheus.Registerer, logger zerolog.Logger) *Worker {
	rec := metrics.NewRecorder(reg)
	metrics.RegisterTaskGauges(reg, stores.Tasks, gaugeTimeout, logger)

	wp := pool.New(pool.Config{Size: cfg.Parser.PoolSize}, logger)
	metrics.RegisterQueueGauge(reg, wp.Pending)

	ex := extract.New(extract.Config{
		PriceMin:          cfg.Parser.PriceMin,
		PriceMax:          cfg.Parser.PriceMax,
		EnrichmentTimeout: cfg.External.Timeout,
	}, enrichment.New(cfg.External, logger), logger)

	dispatcher := usecase.Dispatcher{
		Tasks: stores.Tasks,
		Pool:  wp,
		Processor: usecase.Processor{
			Tasks:     stores.Tasks,
			Products:  stores.Products,
			Extractor: ex,
			Metrics:   rec,
			Log:       logger,
		},
		MaxBatch:     cfg.Parser.MaxTasksPerTick,
		CycleTimeout: cfg.Parser.CycleTimeout,
		Log:          logger,
	}

	w := &Worker{
		scheduler: NewScheduler(dispatcher, cfg.Parser.SchedulerPeriod, logger),
		pool:      wp,
		grace:     cfg.Parser.ShutdownGrace,
		log:       logger,
	}
	if cfg.Store.SeedDemoTasks {
		w.seeder = &usecase.Seeder{Tasks: stores.Tasks, Log: logger}
	}
	return w
}

// Run dispatches until ctx is done, then gives in-flight tasks the shutdown
// grace period to finish.
func (w *Worker) Run(ctx context.Context) error {
	var err error
	if w.seeder != nil {
		if _, serr := w.seeder.Seed(ctx); serr != nil {
			err = fmt.Errorf("seed demo tasks: %w", serr)
		}
	}
	if err == nil {
		err = w.scheduler.Run(ctx)
	}

	w.log.Info().Int("pending", w.pool.Pending()).Int("active", w.pool.Active()).Msg("worker is shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), w.grace)
	defer cancel()
	if perr := w.pool.Shutdown(shutdownCtx); perr != nil {
		w.log.Warn().Err(perr).Msg("worker pool did not drain in time")
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
