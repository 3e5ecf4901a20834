package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

type TaskStatus string

const (
	StatusNew        TaskStatus = "NEW"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusCompleted  TaskStatus = "COMPLETED"
	StatusFailed     TaskStatus = "FAILED"
)

// Column limits of the parsing_tasks table.
const (
	MaxURLLength          = 1000
	MaxErrorMessageLength = 2000
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transition exists out of s.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ParsingTask is a pending or finished request to parse the product page at URL.
type ParsingTask struct {
	ID           string     `json:"id"`
	URL          string     `json:"url"`
	Status       TaskStatus `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewParsingTask builds an unsaved NEW task. The id is assigned by the store.
func NewParsingTask(rawURL string, now time.Time) (ParsingTask, error) {
	u := strings.TrimSpace(rawURL)
	if u == "" {
		return ParsingTask{}, ErrEmptyURL
	}
	if utf8.RuneCountInString(u) > MaxURLLength {
		return ParsingTask{}, fmt.Errorf("%w: %d characters max", ErrURLTooLong, MaxURLLength)
	}
	return ParsingTask{
		URL:       u,
		Status:    StatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Claim moves a NEW task to IN_PROGRESS and clears the previous error.
func (t *ParsingTask) Claim(now time.Time) error {
	if t.Status != StatusNew {
		return t.transitionErr(StatusInProgress)
	}
	t.Status = StatusInProgress
	t.ErrorMessage = ""
	t.UpdatedAt = now
	return nil
}

func (t *ParsingTask) Complete(now time.Time) error {
	if t.Status != StatusInProgress {
		return t.transitionErr(StatusCompleted)
	}
	t.Status = StatusCompleted
	t.ErrorMessage = ""
	t.UpdatedAt = now
	return nil
}

// Fail records reason, cut to the error_message column limit.
func (t *ParsingTask) Fail(reason string, now time.Time) error {
	if t.Status != StatusInProgress {
		return t.transitionErr(StatusFailed)
	}
	t.Status = StatusFailed
	t.ErrorMessage = Truncate(reason, MaxErrorMessageLength)
	t.UpdatedAt = now
	return nil
}

func (t *ParsingTask) transitionErr(to TaskStatus) error {
	return fmt.Errorf("%w: task %s %s -> %s", ErrInvalidTransition, t.ID, t.Status, to)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
