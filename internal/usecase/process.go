package usecase

import (
	"context"
	"fmt"
	"priceparser/internal/domain"
	"priceparser/internal/metrics"
	"priceparser/internal/ports"
	"time"

	"github.com/rs/zerolog"
)

var _ TaskProcessor = Processor{}

// Processor moves a claimed task to COMPLETED or FAILED. Each call persists
// the task exactly once.
type Processor struct {
	Tasks     ports.TaskStore
	Products  ports.ProductStore
	Extractor ports.Extractor
	Metrics   ports.Metrics
	Log       zerolog.Logger
	Now       func() time.Time
}

func (p Processor) Process(ctx context.Context, taskID string) error {
	task, err := p.Tasks.FindByID(ctx, taskID)
	if err != nil {
		return fmt.Errorf("load task %s: %w", taskID, err)
	}
	if task.Status != domain.StatusInProgress {
		return fmt.Errorf("%w: task %s is %s, expected %s",
			domain.ErrInvalidTransition, taskID, task.Status, domain.StatusInProgress)
	}

	m := p.metrics()
	start := time.Now()
	log := p.Log.With().Str("task_id", taskID).Str("url", task.URL).Logger()
	log.Debug().Msg("started processing task")

	if perr := p.parse(ctx, task.URL); perr != nil {
		_ = task.Fail(perr.Error(), p.now())
		m.IncFailure()
		log.Warn().Err(perr).Msg("failed to process task")
	} else {
		_ = task.Complete(p.now())
		m.IncSuccess()
		log.Info().Msg("task completed successfully")
	}
	m.ObserveProcessing(time.Since(start))

	if _, err := p.Tasks.Save(ctx, task); err != nil {
		return fmt.Errorf("persist task %s as %s: %w", taskID, task.Status, err)
	}
	return nil
}

// parse turns an extractor panic into a failure of this task.
func (p Processor) parse(ctx context.Context, url string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extractor panic: %v", r)
		}
	}()

	product, err := p.Extractor.Extract(ctx, url)
	if err != nil {
		return err
	}
	if _, err := p.Products.Save(ctx, product); err != nil {
		return fmt.Errorf("save product: %w", err)
	}
	p.metrics().IncProductsSaved()
	return nil
}

func (p Processor) metrics() ports.Metrics {
	if p.Metrics == nil {
		return metrics.Nop{}
	}
	return p.Metrics
}

func (p Processor) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}
