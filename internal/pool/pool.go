// Package pool runs submitted units of work on a fixed number of lanes.
// Submit never blocks: pending units wait in an unbounded FIFO until a lane
// is free.
package pool

import (
	"context"
	"errors"
	"fmt"
	"priceparser/internal/ports"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var ErrPoolClosed = errors.New("worker pool is shut down")

var _ ports.WorkQueue = (*Pool)(nil)

type Unit func(ctx context.Context)

type Config struct {
	Size int
}

type Pool struct {
	log zerolog.Logger

	mu      sync.Mutex
	pending []Unit
	closed  bool

	notify chan struct{}
	work   chan Unit
	done   chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	queued atomic.Int64
	active atomic.Int64

	feeder  sync.WaitGroup
	workers sync.WaitGroup
}

// New starts cfg.Size lanes. A non-positive size means one lane.
func New(cfg Config, logger zerolog.Logger) *Pool {
	size := max(cfg.Size, 1)
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		log:    logger,
		notify: make(chan struct{}, 1),
		work:   make(chan Unit),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}

	p.feeder.Add(1)
	go p.feed()

	p.workers.Add(size)
	for i := range size {
		go p.lane(i)
	}
	p.log.Info().Int("workers", size).Msg("worker pool started")
	return p
}

// Submit queues unit and returns at once. It fails only after Shutdown.
func (p *Pool) Submit(unit func(ctx context.Context)) error {
	if unit == nil {
		return errors.New("nil unit")
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.pending = append(p.pending, unit)
	p.queued.Add(1)
	p.mu.Unlock()

	select {
	case p.notify <- struct{}{}:
	default:
	}
	return nil
}

// Pending is the number of units accepted but not yet started.
func (p *Pool) Pending() int { return int(p.queued.Load()) }

// Active is the number of units running right now.
func (p *Pool) Active() int { return int(p.active.Load()) }

// Shutdown stops accepting units and waits for queued and running ones to
// finish. When ctx expires first, running units see their context cancelled
// and are not waited for, queued units are dropped, and the returned error
// reports how many were abandoned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		p.feeder.Wait()
		p.workers.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		p.cancel()
		p.log.Info().Msg("worker pool stopped")
		return nil
	case <-ctx.Done():
	}

	p.cancel()
	p.mu.Lock()
	dropped := len(p.pending)
	p.pending = nil
	p.mu.Unlock()
	p.queued.Add(-int64(dropped))

	running := p.Active()
	p.log.Warn().Int("dropped", dropped).Int("interrupted", running).Msg("worker pool shutdown grace period expired")
	return fmt.Errorf("worker pool shutdown: %d queued units dropped, %d running units interrupted: %w",
		dropped, running, ctx.Err())
}

// feed hands pending units to lanes in submission order.
func (p *Pool) feed() {
	defer p.feeder.Done()
	defer close(p.work)

	for {
		unit, ok := p.next()
		if !ok {
			return
		}
		select {
		case p.work <- unit:
		case <-p.ctx.Done():
			p.queued.Add(-1)
			return
		}
	}
}

// next blocks until a unit is pending. It reports false once the pool is
// closed and the queue is empty, or the pool context is cancelled.
func (p *Pool) next() (Unit, bool) {
	for {
		p.mu.Lock()
		if len(p.pending) > 0 {
			unit := p.pending[0]
			p.pending[0] = nil
			p.pending = p.pending[1:]
			p.mu.Unlock()
			return unit, true
		}
		closed := p.closed
		p.mu.Unlock()
		if closed {
			return nil, false
		}

		select {
		case <-p.notify:
		case <-p.done:
		case <-p.ctx.Done():
			return nil, false
		}
	}
}

func (p *Pool) lane(id int) {
	defer p.workers.Done()
	for unit := range p.work {
		p.queued.Add(-1)
		p.active.Add(1)
		p.run(id, unit)
		p.active.Add(-1)
	}
}

func (p *Pool) run(id int, unit Unit) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().
				Int("worker", id).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("unexpected-processing-error")
		}
	}()
	unit(p.ctx)
}
