package usecase

import (
	"context"
	"fmt"
	"priceparser/internal/domain"
	"priceparser/internal/ports"
	"time"
)

// Submitter creates NEW tasks for the REST layer.
type Submitter struct {
	Tasks ports.TaskStore
	Now   func() time.Time
}

// Submit stores a NEW task for rawURL and returns it with its id. Blank URLs
// are rejected with domain.ErrEmptyURL.
func (s Submitter) Submit(ctx context.Context, rawURL string) (domain.ParsingTask, error) {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	task, err := domain.NewParsingTask(rawURL, now)
	if err != nil {
		return domain.ParsingTask{}, err
	}
	saved, err := s.Tasks.Save(ctx, task)
	if err != nil {
		return domain.ParsingTask{}, fmt.Errorf("save task: %w", err)
	}
	return saved, nil
}

func (s Submitter) Get(ctx context.Context, id string) (domain.ParsingTask, error) {
	return s.Tasks.FindByID(ctx, id)
}
