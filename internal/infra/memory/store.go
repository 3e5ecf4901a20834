// Package memory keeps tasks and products in process memory. It backs the
// single-process `serve` mode and the tests.
package memory

import (
	"context"
	"fmt"
	"priceparser/internal/domain"
	"priceparser/internal/ports"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	_ ports.TaskStore    = (*TaskStore)(nil)
	_ ports.ProductStore = (*ProductStore)(nil)
)

type taskRecord struct {
	task domain.ParsingTask
	seq  uint64
}

type TaskStore struct {
	mu    sync.RWMutex
	tasks map[string]taskRecord
	seq   uint64
	now   func() time.Time
}

func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks: make(map[string]taskRecord),
		now:   time.Now,
	}
}

// FindByStatus returns matching tasks oldest first; ties keep insertion order.
func (s *TaskStore) FindByStatus(ctx context.Context, status domain.TaskStatus) ([]domain.ParsingTask, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	recs := make([]taskRecord, 0, len(s.tasks))
	for _, r := range s.tasks {
		if r.task.Status == status {
			recs = append(recs, r)
		}
	}
	s.mu.RUnlock()

	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].task.CreatedAt.Equal(recs[j].task.CreatedAt) {
			return recs[i].task.CreatedAt.Before(recs[j].task.CreatedAt)
		}
		return recs[i].seq < recs[j].seq
	})

	out := make([]domain.ParsingTask, len(recs))
	for i, r := range recs {
		out[i] = r.task
	}
	return out, nil
}

func (s *TaskStore) FindByID(ctx context.Context, id string) (domain.ParsingTask, error) {
	if err := ctx.Err(); err != nil {
		return domain.ParsingTask{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.tasks[id]
	if !ok {
		return domain.ParsingTask{}, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}
	return r.task, nil
}

func (s *TaskStore) Save(ctx context.Context, t domain.ParsingTask) (domain.ParsingTask, error) {
	if err := ctx.Err(); err != nil {
		return domain.ParsingTask{}, err
	}
	if !t.Status.Valid() {
		return domain.ParsingTask{}, fmt.Errorf("save task %s: invalid status %q", t.ID, t.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	r, exists := s.tasks[t.ID]
	if exists {
		// created_at is immutable once stored
		t.CreatedAt = r.task.CreatedAt
	} else {
		s.seq++
		r.seq = s.seq
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}
	r.task = t
	s.tasks[t.ID] = r
	return t, nil
}

func (s *TaskStore) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.tasks)), nil
}

type ProductStore struct {
	mu       sync.RWMutex
	products []domain.Product
}

func NewProductStore() *ProductStore {
	return &ProductStore{}
}

func (s *ProductStore) Save(ctx context.Context, p domain.Product) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	s.mu.Lock()
	s.products = append(s.products, p)
	s.mu.Unlock()
	return p, nil
}

func (s *ProductStore) FindAll(ctx context.Context) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Product, len(s.products))
	copy(out, s.products)
	return out, nil
}
