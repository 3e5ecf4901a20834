package worker

import (
	"context"
	"errors"
	"priceparser/internal/ports"
	"time"

	"github.com/rs/zerolog"
)

var _ ports.Scheduler = (*Scheduler)(nil)

// Cycle is one dispatch pass. It reports how many tasks it handed out.
type Cycle interface {
	RunCycle(ctx context.Context) (int, error)
}

// Scheduler runs a cycle right away and then once per interval. Ticks run
// one at a time on the calling goroutine; ticks missed by a slow cycle are
// dropped.
type Scheduler struct {
	cycle    Cycle
	interval time.Duration
	log      zerolog.Logger
}

func NewScheduler(cycle Cycle, interval time.Duration, logger zerolog.Logger) *Scheduler {
	return &Scheduler{cycle: cycle, interval: interval, log: logger}
}

// Run blocks until ctx is done. Cycle errors are logged and the next tick
// retries.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return errors.New("scheduler interval must be positive")
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", s.interval).Msg("scheduler started")
	for {
		s.tick(ctx)
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	n, err := s.cycle.RunCycle(ctx)
	elapsed := time.Since(start)

	if err != nil && ctx.Err() == nil {
		s.log.Error().Err(err).Dur("duration", elapsed).Msg("parsing cycle failed")
	}
	if elapsed > s.interval {
		s.log.Warn().Dur("duration", elapsed).Dur("interval", s.interval).Msg("parsing cycle outlived the scheduler interval")
	}
	if n > 0 {
		s.log.Debug().Int("batch", n).Dur("duration", elapsed).Msg("parsing cycle dispatched tasks")
	}
}
