package storage

import (
	"context"
	"priceparser/internal/config"
	"priceparser/internal/domain"
	"priceparser/internal/infra/memory"
	"priceparser/internal/infra/redisq"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Memory(t *testing.T) {
	b, err := Open(context.Background(), &config.Config{Store: config.Store{Backend: config.BackendMemory}}, zerolog.Nop())
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, config.BackendMemory, b.Name)
	assert.IsType(t, &memory.TaskStore{}, b.Tasks)
	assert.IsType(t, &memory.ProductStore{}, b.Products)
}

func TestOpen_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{
		Store: config.Store{Backend: config.BackendRedis},
		Redis: config.Redis{Addr: mr.Addr(), KeyPrefix: "storage"},
	}

	b, err := Open(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer b.Close()
	assert.IsType(t, &redisq.TaskStore{}, b.Tasks)

	saved, err := b.Tasks.Save(context.Background(), domain.ParsingTask{URL: "https://a", Status: domain.StatusNew})
	require.NoError(t, err)
	assert.True(t, mr.Exists("storage:task:"+saved.ID))
}

func TestOpen_RedisUnreachableGivesUp(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	cfg := &config.Config{
		Store: config.Store{Backend: config.BackendRedis},
		Redis: config.Redis{Addr: addr, KeyPrefix: "x"},
	}
	_, err = Open(ctx, cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{Store: config.Store{Backend: "sqlite"}}, zerolog.Nop())
	assert.ErrorContains(t, err, "unknown store backend")
}
