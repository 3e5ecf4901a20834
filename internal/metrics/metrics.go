package metrics

import (
	"context"
	"math"
	"priceparser/internal/domain"
	"priceparser/internal/ports"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const (
	namespace = "price_parser"

	parsingDuration      = "parsing_duration_seconds"
	parsingSuccessTotal  = "parsing_success_total"
	parsingFailureTotal  = "parsing_failure_total"
	productsSavedTotal   = "products_saved_total"
	tasksNewCount        = "tasks_new_count"
	tasksInProgressCount = "tasks_in_progress_count"
	poolQueueDepth       = "pool_queue_depth"
)

var _ ports.Metrics = (*Recorder)(nil)

// Recorder holds the task processing collectors of one registry.
type Recorder struct {
	duration prometheus.Histogram
	success  prometheus.Counter
	failure  prometheus.Counter
	saved    prometheus.Counter
}

func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      parsingDuration,
			Help:      "Duration of single parsing task processing",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		success: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      parsingSuccessTotal,
			Help:      "Number of successfully processed parsing tasks",
		}),
		failure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      parsingFailureTotal,
			Help:      "Number of failed parsing tasks",
		}),
		saved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      productsSavedTotal,
			Help:      "Number of products saved to the store",
		}),
	}
	reg.MustRegister(r.duration, r.success, r.failure, r.saved)
	return r
}

func (r *Recorder) ObserveProcessing(d time.Duration) { r.duration.Observe(d.Seconds()) }
func (r *Recorder) IncSuccess()                       { r.success.Inc() }
func (r *Recorder) IncFailure()                       { r.failure.Inc() }
func (r *Recorder) IncProductsSaved()                 { r.saved.Inc() }

// RegisterTaskGauges exposes the live NEW and IN_PROGRESS task counts. The
// store is queried on every scrape; a failed query reports NaN.
func RegisterTaskGauges(reg prometheus.Registerer, store ports.TaskStore, timeout time.Duration, logger zerolog.Logger) {
	count := func(status domain.TaskStatus) func() float64 {
		return func() float64 {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			tasks, err := store.FindByStatus(ctx, status)
			if err != nil {
				logger.Warn().Err(err).Str("status", string(status)).Msg("failed to count tasks for gauge")
				return math.NaN()
			}
			return float64(len(tasks))
		}
	}

	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      tasksNewCount,
			Help:      "Number of NEW parsing tasks waiting for processing",
		}, count(domain.StatusNew)),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      tasksInProgressCount,
			Help:      "Number of IN_PROGRESS parsing tasks",
		}, count(domain.StatusInProgress)),
	)
}

// RegisterQueueGauge exposes the number of units waiting for a worker.
func RegisterQueueGauge(reg prometheus.Registerer, depth func() int) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      poolQueueDepth,
		Help:      "Number of processing units queued in the worker pool",
	}, func() float64 { return float64(depth()) }))
}

// Nop discards everything.
type Nop struct{}

func (Nop) ObserveProcessing(time.Duration) {}
func (Nop) IncSuccess()                     {}
func (Nop) IncFailure()                     {}
func (Nop) IncProductsSaved()               {}
