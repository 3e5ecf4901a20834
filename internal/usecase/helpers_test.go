package usecase

import (
	"context"
	"errors"
	"priceparser/internal/domain"
	"priceparser/internal/infra/memory"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// spyStore counts writes and can be told to fail them.
type spyStore struct {
	*memory.TaskStore
	saves   atomic.Int64
	failOn  func(domain.ParsingTask) bool
	findErr error
	// reversed returns FindByStatus results newest first.
	reversed bool
}

func newSpyStore() *spyStore {
	return &spyStore{TaskStore: memory.NewTaskStore()}
}

func (s *spyStore) Save(ctx context.Context, t domain.ParsingTask) (domain.ParsingTask, error) {
	s.saves.Add(1)
	if s.failOn != nil && s.failOn(t) {
		return domain.ParsingTask{}, errors.New("store unavailable")
	}
	return s.TaskStore.Save(ctx, t)
}

func (s *spyStore) FindByStatus(ctx context.Context, status domain.TaskStatus) ([]domain.ParsingTask, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	tasks, err := s.TaskStore.FindByStatus(ctx, status)
	if s.reversed {
		slices.Reverse(tasks)
	}
	return tasks, err
}

// recordingQueue keeps submitted units for the test to run.
type recordingQueue struct {
	mu    sync.Mutex
	units []func(context.Context)
	err   error
}

func (q *recordingQueue) Submit(unit func(ctx context.Context)) error {
	if q.err != nil {
		return q.err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.units = append(q.units, unit)
	return nil
}

func (q *recordingQueue) runAll(ctx context.Context) {
	q.mu.Lock()
	units := q.units
	q.units = nil
	q.mu.Unlock()
	for _, u := range units {
		u(ctx)
	}
}

type processorFunc func(ctx context.Context, id string) error

func (f processorFunc) Process(ctx context.Context, id string) error { return f(ctx, id) }

type extractorFunc func(ctx context.Context, url string) (domain.Product, error)

func (f extractorFunc) Extract(ctx context.Context, url string) (domain.Product, error) {
	return f(ctx, url)
}

type failingProducts struct{}

func (failingProducts) Save(context.Context, domain.Product) (domain.Product, error) {
	return domain.Product{}, errors.New("sink rejected product")
}

func (failingProducts) FindAll(context.Context) ([]domain.Product, error) { return nil, nil }

// countingMetrics is a thread-safe ports.Metrics.
type countingMetrics struct {
	success, failure, saved, observed atomic.Int64
}

func (m *countingMetrics) ObserveProcessing(time.Duration) { m.observed.Add(1) }
func (m *countingMetrics) IncSuccess()                     { m.success.Add(1) }
func (m *countingMetrics) IncFailure()                     { m.failure.Add(1) }
func (m *countingMetrics) IncProductsSaved()               { m.saved.Add(1) }

func seedTasks(t *testing.T, store interface {
	Save(context.Context, domain.ParsingTask) (domain.ParsingTask, error)
}, n int, status domain.TaskStatus) []domain.ParsingTask {
	t.Helper()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]domain.ParsingTask, 0, n)
	for i := range n {
		saved, err := store.Save(context.Background(), domain.ParsingTask{
			URL:       "https://example.com/product/item-" + string(rune('a'+i%26)),
			Status:    status,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
		out = append(out, saved)
	}
	return out
}
