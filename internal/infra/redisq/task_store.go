package redisq

import (
	"context"
	"errors"
	"fmt"
	"priceparser/internal/domain"
	"priceparser/internal/ports"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var _ ports.TaskStore = (*TaskStore)(nil)

var statuses = []domain.TaskStatus{
	domain.StatusNew, domain.StatusInProgress, domain.StatusCompleted, domain.StatusFailed,
}

// TaskStore keeps each task in a hash and indexes it in one sorted set per
// status, scored by creation time:
//
//	{prefix}:task:{id}        hash
//	{prefix}:tasks            all ids
//	{prefix}:tasks:{status}   ids with that status
type TaskStore struct {
	c   *Client
	now func() time.Time
}

func NewTaskStore(c *Client) *TaskStore {
	return &TaskStore{c: c, now: time.Now}
}

func (s *TaskStore) taskKey(id string) string { return s.c.key("task", id) }

func (s *TaskStore) statusKey(st domain.TaskStatus) string { return s.c.key("tasks", string(st)) }

func (s *TaskStore) Save(ctx context.Context, t domain.ParsingTask) (domain.ParsingTask, error) {
	if !t.Status.Valid() {
		return domain.ParsingTask{}, fmt.Errorf("save task %s: invalid status %q", t.ID, t.Status)
	}
	now := s.now()
	if t.ID == "" {
		t.ID = uuid.NewString()
	} else {
		created, err := s.c.Rdb.HGet(ctx, s.taskKey(t.ID), "created_at").Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return domain.ParsingTask{}, fmt.Errorf("load task %s: %w", t.ID, err)
		}
		if created != "" {
			if t.CreatedAt, err = parseTime(created); err != nil {
				return domain.ParsingTask{}, fmt.Errorf("decode task %s created_at: %w", t.ID, err)
			}
		}
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}

	member := redis.Z{Score: score(t.CreatedAt), Member: t.ID}
	_, err := s.c.Rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.taskKey(t.ID), map[string]any{
			"id":            t.ID,
			"url":           t.URL,
			"status":        string(t.Status),
			"error_message": t.ErrorMessage,
			"created_at":    formatTime(t.CreatedAt),
			"updated_at":    formatTime(t.UpdatedAt),
		})
		pipe.ZAdd(ctx, s.c.key("tasks"), member)
		for _, st := range statuses {
			if st != t.Status {
				pipe.ZRem(ctx, s.statusKey(st), t.ID)
			}
		}
		pipe.ZAdd(ctx, s.statusKey(t.Status), member)
		return nil
	})
	if err != nil {
		return domain.ParsingTask{}, fmt.Errorf("save task %s: %w", t.ID, err)
	}
	return t, nil
}

func (s *TaskStore) FindByID(ctx context.Context, id string) (domain.ParsingTask, error) {
	h, err := s.c.Rdb.HGetAll(ctx, s.taskKey(id)).Result()
	if err != nil {
		return domain.ParsingTask{}, fmt.Errorf("load task %s: %w", id, err)
	}
	if len(h) == 0 {
		return domain.ParsingTask{}, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}
	return decodeTask(h)
}

// FindByStatus returns tasks oldest first.
func (s *TaskStore) FindByStatus(ctx context.Context, status domain.TaskStatus) ([]domain.ParsingTask, error) {
	ids, err := s.c.Rdb.ZRange(ctx, s.statusKey(status), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s tasks: %w", status, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.c.Rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, s.taskKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load %s tasks: %w", status, err)
	}

	out := make([]domain.ParsingTask, 0, len(ids))
	for _, cmd := range cmds {
		h := cmd.Val()
		// index and hash can briefly disagree while another save is in flight
		if len(h) == 0 || domain.TaskStatus(h["status"]) != status {
			continue
		}
		t, err := decodeTask(h)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *TaskStore) Count(ctx context.Context) (int64, error) {
	n, err := s.c.Rdb.ZCard(ctx, s.c.key("tasks")).Result()
	if err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

func decodeTask(h map[string]string) (domain.ParsingTask, error) {
	t := domain.ParsingTask{
		ID:           h["id"],
		URL:          h["url"],
		Status:       domain.TaskStatus(h["status"]),
		ErrorMessage: h["error_message"],
	}
	var err error
	if t.CreatedAt, err = parseTime(h["created_at"]); err != nil {
		return domain.ParsingTask{}, fmt.Errorf("decode task %s created_at: %w", t.ID, err)
	}
	if t.UpdatedAt, err = parseTime(h["updated_at"]); err != nil {
		return domain.ParsingTask{}, fmt.Errorf("decode task %s updated_at: %w", t.ID, err)
	}
	return t, nil
}
