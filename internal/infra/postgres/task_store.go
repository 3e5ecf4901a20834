package postgres

import (
	"context"
	"errors"
	"fmt"
	"priceparser/internal/domain"
	"priceparser/internal/ports"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var _ ports.TaskStore = (*TaskStore)(nil)

const taskColumns = `id::text, target_url, status, COALESCE(error_message, ''), created_at, updated_at`

type TaskStore struct {
	db  DBTX
	now func() time.Time
}

func NewTaskStore(db DBTX) *TaskStore {
	return &TaskStore{db: db, now: time.Now}
}

// Save inserts or updates by id. created_at is never overwritten.
func (s *TaskStore) Save(ctx context.Context, t domain.ParsingTask) (domain.ParsingTask, error) {
	if !t.Status.Valid() {
		return domain.ParsingTask{}, fmt.Errorf("save task %s: invalid status %q", t.ID, t.Status)
	}
	id := uuid.NewString()
	if t.ID != "" {
		if err := uuid.Validate(t.ID); err != nil {
			return domain.ParsingTask{}, fmt.Errorf("save task: invalid id %q: %w", t.ID, err)
		}
		id = t.ID
	}
	now := s.now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO parsing_tasks (id, target_url, status, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			target_url    = EXCLUDED.target_url,
			status        = EXCLUDED.status,
			error_message = EXCLUDED.error_message,
			updated_at    = EXCLUDED.updated_at
		RETURNING `+taskColumns,
		id, t.URL, string(t.Status), t.ErrorMessage, t.CreatedAt, t.UpdatedAt,
	)
	saved, err := scanTask(row)
	if err != nil {
		return domain.ParsingTask{}, fmt.Errorf("save task %s: %w", id, err)
	}
	return saved, nil
}

func (s *TaskStore) FindByID(ctx context.Context, id string) (domain.ParsingTask, error) {
	if uuid.Validate(id) != nil {
		return domain.ParsingTask{}, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}
	t, err := scanTask(s.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM parsing_tasks WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ParsingTask{}, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}
	if err != nil {
		return domain.ParsingTask{}, fmt.Errorf("load task %s: %w", id, err)
	}
	return t, nil
}

// FindByStatus returns tasks oldest first.
func (s *TaskStore) FindByStatus(ctx context.Context, status domain.TaskStatus) ([]domain.ParsingTask, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+taskColumns+` FROM parsing_tasks WHERE status = $1 ORDER BY created_at ASC, id ASC`,
		string(status))
	if err != nil {
		return nil, fmt.Errorf("list %s tasks: %w", status, err)
	}
	defer rows.Close()

	var out []domain.ParsingTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s tasks: %w", status, err)
	}
	return out, nil
}

func (s *TaskStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM parsing_tasks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

func scanTask(row pgx.Row) (domain.ParsingTask, error) {
	var (
		t      domain.ParsingTask
		status string
	)
	if err := row.Scan(&t.ID, &t.URL, &status, &t.ErrorMessage, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return domain.ParsingTask{}, err
	}
	t.Status = domain.TaskStatus(status)
	return t, nil
}
