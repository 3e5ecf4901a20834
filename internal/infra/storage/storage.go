// Package storage opens the task and product stores of the configured
// backend.
package storage

import (
	"context"
	"fmt"
	"priceparser/internal/config"
	"priceparser/internal/infra/memory"
	"priceparser/internal/infra/postgres"
	"priceparser/internal/infra/redisq"
	"priceparser/internal/ports"
	"priceparser/pkg/backoff"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	connectAttempts = 5
	connectBase     = 200 * time.Millisecond
	connectMax      = 5 * time.Second
)

type Backend struct {
	Name     string
	Tasks    ports.TaskStore
	Products ports.ProductStore

	close func()
}

func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// Open connects to the backend named in cfg.Store, retrying the first
// connection with jittered backoff.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Backend, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory, "":
		return &Backend{
			Name:     config.BackendMemory,
			Tasks:    memory.NewTaskStore(),
			Products: memory.NewProductStore(),
		}, nil

	case config.BackendRedis:
		cli := redisq.New(cfg.Redis)
		err := backoff.Retry(ctx, connectAttempts, connectBase, connectMax, func(ctx context.Context) error {
			err := cli.Connect(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("redis not ready, retrying")
			}
			return err
		})
		if err != nil {
			_ = cli.Close()
			return nil, err
		}
		return &Backend{
			Name:     config.BackendRedis,
			Tasks:    redisq.NewTaskStore(cli),
			Products: redisq.NewProductStore(cli),
			close:    func() { _ = cli.Close() },
		}, nil

	case config.BackendPostgres:
		var pool *pgxpool.Pool
		err := backoff.Retry(ctx, connectAttempts, connectBase, connectMax, func(ctx context.Context) error {
			var err error
			pool, err = postgres.Open(ctx, cfg.Postgres)
			if err != nil {
				logger.Warn().Err(err).Msg("postgres not ready, retrying")
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.Migrate {
			if err := postgres.Migrate(ctx, pool, logger); err != nil {
				pool.Close()
				return nil, err
			}
		}
		return &Backend{
			Name:     config.BackendPostgres,
			Tasks:    postgres.NewTaskStore(pool),
			Products: postgres.NewProductStore(pool),
			close:    pool.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}
