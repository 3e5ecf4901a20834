package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPool(t *testing.T, size int) *Pool {
	t.Helper()
	p := New(Config{Size: size}, zerolog.Nop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = p.Shutdown(ctx)
	})
	return p
}

func TestPool_RunsEverySubmittedUnit(t *testing.T) {
	p := newPool(t, 4)

	var ran atomic.Int64
	for range 100 {
		require.NoError(t, p.Submit(func(context.Context) { ran.Add(1) }))
	}

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, int64(100), ran.Load())
	assert.Zero(t, p.Pending())
}

func TestPool_BoundsConcurrency(t *testing.T) {
	p := newPool(t, 2)

	var (
		running atomic.Int64
		peak    atomic.Int64
	)
	for range 20 {
		require.NoError(t, p.Submit(func(context.Context) {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
		}))
	}

	require.NoError(t, p.Shutdown(context.Background()))
	assert.LessOrEqual(t, peak.Load(), int64(2))
	assert.Equal(t, int64(2), peak.Load())
}

func TestPool_SubmitDoesNotBlockWhenLanesAreBusy(t *testing.T) {
	p := newPool(t, 1)

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit(func(context.Context) {
		close(started)
		<-release
	}))
	<-started

	submitted := make(chan struct{})
	go func() {
		for range 50 {
			assert.NoError(t, p.Submit(func(context.Context) {}))
		}
		close(submitted)
	}()

	select {
	case <-submitted:
	case <-time.After(time.Second):
		t.Fatal("submit blocked while the only lane was busy")
	}
	assert.Equal(t, 50, p.Pending())
	assert.Equal(t, 1, p.Active())

	close(release)
	require.NoError(t, p.Shutdown(context.Background()))
	assert.Zero(t, p.Pending())
}

func TestPool_SingleLaneKeepsSubmissionOrder(t *testing.T) {
	p := newPool(t, 1)

	var (
		mu    sync.Mutex
		order []int
	)
	for i := range 10 {
		require.NoError(t, p.Submit(func(context.Context) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}))
	}

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestPool_RecoversFromPanickingUnit(t *testing.T) {
	p := newPool(t, 1)

	var ran atomic.Bool
	require.NoError(t, p.Submit(func(context.Context) { panic("boom") }))
	require.NoError(t, p.Submit(func(context.Context) { ran.Store(true) }))

	require.NoError(t, p.Shutdown(context.Background()))
	assert.True(t, ran.Load())
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	p := newPool(t, 1)
	require.NoError(t, p.Shutdown(context.Background()))

	err := p.Submit(func(context.Context) {})
	assert.ErrorIs(t, err, ErrPoolClosed)
	assert.NoError(t, p.Shutdown(context.Background()), "second shutdown is a no-op")
}

func TestPool_ShutdownGraceExpires(t *testing.T) {
	p := newPool(t, 1)

	cancelled := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(cancelled)
	}))
	<-started
	require.NoError(t, p.Submit(func(context.Context) {}))
	require.NoError(t, p.Submit(func(context.Context) {}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := p.Shutdown(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("running unit did not observe cancellation")
	}
}

func TestPool_NonPositiveSize(t *testing.T) {
	p := newPool(t, 0)

	done := make(chan struct{})
	require.NoError(t, p.Submit(func(context.Context) { close(done) }))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("unit never ran")
	}
}
