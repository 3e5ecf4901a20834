package ports

import (
	"context"
	"priceparser/internal/domain"
	"time"
)

// TaskStore is the durable home of parsing tasks. Save is an upsert: a task
// with an empty ID is created and gets its ID from the store.
type TaskStore interface {
	FindByStatus(ctx context.Context, status domain.TaskStatus) ([]domain.ParsingTask, error)
	// FindByID returns domain.ErrTaskNotFound when no task has the id.
	FindByID(ctx context.Context, id string) (domain.ParsingTask, error)
	Save(ctx context.Context, t domain.ParsingTask) (domain.ParsingTask, error)
	Count(ctx context.Context) (int64, error)
}

// ProductStore is the result sink for parsed products.
type ProductStore interface {
	Save(ctx context.Context, p domain.Product) (domain.Product, error)
	FindAll(ctx context.Context) ([]domain.Product, error)
}

// EnrichmentSource never fails the caller: any problem is reported as absent.
type EnrichmentSource interface {
	Lookup(ctx context.Context, productURL string) (domain.EnrichmentInfo, bool)
}

type Extractor interface {
	Extract(ctx context.Context, url string) (domain.Product, error)
}

// WorkQueue accepts units of work without waiting for them to run.
type WorkQueue interface {
	Submit(unit func(ctx context.Context)) error
}

// Metrics records task processing outcomes. Implementations must be safe for
// concurrent use.
type Metrics interface {
	ObserveProcessing(d time.Duration)
	IncSuccess()
	IncFailure()
	IncProductsSaved()
}

type Scheduler interface {
	// drives the dispatcher until ctx is done
	Run(ctx context.Context) error
}
