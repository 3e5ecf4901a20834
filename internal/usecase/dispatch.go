package usecase

import (
	"context"
	"fmt"
	"priceparser/internal/domain"
	"priceparser/internal/ports"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

const DefaultMaxBatch = 10

// TaskProcessor runs one claimed task to its final status.
type TaskProcessor interface {
	Process(ctx context.Context, taskID string) error
}

// Dispatcher claims NEW tasks and hands them to the work queue. Claims are
// persisted before submission so a later cycle never picks the same task.
type Dispatcher struct {
	Tasks     ports.TaskStore
	Pool      ports.WorkQueue
	Processor TaskProcessor
	// MaxBatch caps the claims per cycle. Zero means DefaultMaxBatch.
	MaxBatch int
	// CycleTimeout bounds the store calls of one cycle. Zero means unbounded.
	CycleTimeout time.Duration
	Log          zerolog.Logger
	Now          func() time.Time
}

// RunCycle claims up to MaxBatch of the oldest NEW tasks and returns how
// many were submitted.
func (d Dispatcher) RunCycle(ctx context.Context) (int, error) {
	if d.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.CycleTimeout)
		defer cancel()
	}

	tasks, err := d.Tasks.FindByStatus(ctx, domain.StatusNew)
	if err != nil {
		return 0, fmt.Errorf("find new tasks: %w", err)
	}
	if len(tasks) == 0 {
		d.Log.Debug().Msg("no NEW parsing tasks found")
		return 0, nil
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	batch := d.MaxBatch
	if batch <= 0 {
		batch = DefaultMaxBatch
	}
	if len(tasks) > batch {
		tasks = tasks[:batch]
	}
	d.Log.Info().Int("batch", len(tasks)).Msg("submitting parsing tasks for processing")

	submitted := 0
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return submitted, fmt.Errorf("dispatch interrupted after %d tasks: %w", submitted, err)
		}

		if err := task.Claim(d.now()); err != nil {
			d.Log.Error().Err(err).Str("task_id", task.ID).Msg("failed to claim task")
			continue
		}
		claimed, err := d.Tasks.Save(ctx, task)
		if err != nil {
			d.Log.Error().Err(err).Str("task_id", task.ID).Msg("failed to claim task")
			continue
		}

		if err := d.Pool.Submit(d.unit(claimed.ID)); err != nil {
			d.release(claimed, err)
			return submitted, fmt.Errorf("submit task %s: %w", claimed.ID, err)
		}
		submitted++
	}
	return submitted, nil
}

// unit is the pool boundary: whatever the processor returns is logged and
// dropped here.
func (d Dispatcher) unit(taskID string) func(ctx context.Context) {
	return func(ctx context.Context) {
		if err := d.Processor.Process(ctx, taskID); err != nil {
			d.Log.Error().Err(err).Str("task_id", taskID).Msg("unexpected-processing-error")
		}
	}
}

// release fails a claimed task the pool refused, so it does not sit in
// IN_PROGRESS forever.
func (d Dispatcher) release(task domain.ParsingTask, cause error) {
	if err := task.Fail("not dispatched: "+cause.Error(), d.now()); err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := d.Tasks.Save(ctx, task); err != nil {
		d.Log.Error().Err(err).Str("task_id", task.ID).Msg("failed to release undispatched task")
	}
}

func (d Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
