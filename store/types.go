package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/evielle/librecur/recurrence"
)

// Error types
type ErrorType string

const (
	ErrNotFound      ErrorType = "not_found"
	ErrAlreadyExists ErrorType = "already_exists"
	ErrInvalidInput  ErrorType = "invalid_input"
	ErrUnavailable   ErrorType = "unavailable"
)

// Error represents a storage-related error.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a storage not-found error.
func IsNotFound(err error) bool {
	se, ok := err.(*Error)
	return ok && se.Type == ErrNotFound
}

// Task is a one-shot or recurring to-do item. A nil Rule means the task
// does not recur; otherwise DueAt advances along the rule's occurrences
// as instances complete.
type Task struct {
	ID    uuid.UUID
	Title string
	Notes string

	// Rule describes the task's recurrence. Replace wholesale on edit;
	// rules are immutable values.
	Rule *recurrence.Rule

	DueAt       time.Time
	CompletedAt *time.Time

	Created  time.Time
	Modified time.Time
}

// Recurring reports whether the task carries a recurrence rule.
func (t *Task) Recurring() bool { return t.Rule != nil }

// Completed reports whether the current instance has been completed.
func (t *Task) Completed() bool { return t.CompletedAt != nil }

// Habit is a recurring practice tracked with a streak. NextDeadline is
// the occurrence the current streak period runs until.
type Habit struct {
	ID   uuid.UUID
	Name string

	Rule *recurrence.Rule

	Streak          int
	LastCompletedAt *time.Time
	NextDeadline    time.Time
	Active          bool

	Created  time.Time
	Modified time.Time
}

// ListOptions filters list queries. Zero values match everything.
type ListOptions struct {
	// DueBefore keeps tasks whose DueAt is at or before the given time.
	DueBefore *time.Time
	// OnlyRecurring keeps items that carry a recurrence rule.
	OnlyRecurring bool
	// OnlyIncomplete keeps tasks whose current instance is not done.
	OnlyIncomplete bool
}
