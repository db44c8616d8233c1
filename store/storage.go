// Package store defines the persistence boundary the recurrence
// planner works against. Implementations live in the memory and sqlite
// subpackages; bring your own backend by satisfying Storage and
// returning the error types provided here.
package store

import "context"

// Storage connects a backend (database, app persistence layer) with the
// planner. Please use the error types provided.
type Storage interface {
	// GetTask retrieves a task by ID.
	GetTask(ctx context.Context, id string) (*Task, error)
	// ListTasks retrieves tasks matching the options. A nil opts lists
	// everything.
	ListTasks(ctx context.Context, opts *ListOptions) ([]*Task, error)
	// CreateTask stores a new task.
	CreateTask(ctx context.Context, task *Task) error
	// UpdateTask replaces an existing task.
	UpdateTask(ctx context.Context, task *Task) error
	// DeleteTask removes a task.
	DeleteTask(ctx context.Context, id string) error

	// GetHabit retrieves a habit by ID.
	GetHabit(ctx context.Context, id string) (*Habit, error)
	// ListHabits retrieves all habits; when activeOnly is set, only
	// active ones.
	ListHabits(ctx context.Context, activeOnly bool) ([]*Habit, error)
	// CreateHabit stores a new habit.
	CreateHabit(ctx context.Context, habit *Habit) error
	// UpdateHabit replaces an existing habit.
	UpdateHabit(ctx context.Context, habit *Habit) error
	// DeleteHabit removes a habit.
	DeleteHabit(ctx context.Context, id string) error
}
