// Package memory is a map-backed Storage implementation for tests and
// single-process use.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/evielle/librecur/store"
)

// Store implements store.Storage using in-memory maps.
type Store struct {
	mu     sync.RWMutex
	tasks  map[string]*store.Task
	habits map[string]*store.Habit
}

// New creates a new in-memory storage.
func New() *Store {
	return &Store{
		tasks:  make(map[string]*store.Task),
		habits: make(map[string]*store.Habit),
	}
}

// Task operations

func (s *Store) GetTask(_ context.Context, id string) (*store.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, &store.Error{
			Type:    store.ErrNotFound,
			Message: "task not found",
		}
	}

	cp := *task
	return &cp, nil
}

func (s *Store) ListTasks(_ context.Context, opts *store.ListOptions) ([]*store.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tasks []*store.Task
	for _, task := range s.tasks {
		if opts != nil {
			if opts.OnlyRecurring && !task.Recurring() {
				continue
			}
			if opts.OnlyIncomplete && task.Completed() {
				continue
			}
			if opts.DueBefore != nil && task.DueAt.After(*opts.DueBefore) {
				continue
			}
		}
		cp := *task
		tasks = append(tasks, &cp)
	}

	return tasks, nil
}

func (s *Store) CreateTask(_ context.Context, task *store.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := task.ID.String()
	if _, exists := s.tasks[key]; exists {
		return &store.Error{
			Type:    store.ErrAlreadyExists,
			Message: "task already exists",
		}
	}

	now := time.Now()
	task.Created = now
	task.Modified = now
	cp := *task
	s.tasks[key] = &cp

	return nil
}

func (s *Store) UpdateTask(_ context.Context, task *store.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := task.ID.String()
	if _, exists := s.tasks[key]; !exists {
		return &store.Error{
			Type:    store.ErrNotFound,
			Message: "task not found",
		}
	}

	task.Modified = time.Now()
	cp := *task
	s.tasks[key] = &cp

	return nil
}

func (s *Store) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[id]; !exists {
		return &store.Error{
			Type:    store.ErrNotFound,
			Message: "task not found",
		}
	}

	delete(s.tasks, id)
	return nil
}

// Habit operations

func (s *Store) GetHabit(_ context.Context, id string) (*store.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	habit, ok := s.habits[id]
	if !ok {
		return nil, &store.Error{
			Type:    store.ErrNotFound,
			Message: "habit not found",
		}
	}

	cp := *habit
	return &cp, nil
}

func (s *Store) ListHabits(_ context.Context, activeOnly bool) ([]*store.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var habits []*store.Habit
	for _, habit := range s.habits {
		if activeOnly && !habit.Active {
			continue
		}
		cp := *habit
		habits = append(habits, &cp)
	}

	return habits, nil
}

func (s *Store) CreateHabit(_ context.Context, habit *store.Habit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := habit.ID.String()
	if _, exists := s.habits[key]; exists {
		return &store.Error{
			Type:    store.ErrAlreadyExists,
			Message: "habit already exists",
		}
	}

	now := time.Now()
	habit.Created = now
	habit.Modified = now
	cp := *habit
	s.habits[key] = &cp

	return nil
}

func (s *Store) UpdateHabit(_ context.Context, habit *store.Habit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := habit.ID.String()
	if _, exists := s.habits[key]; !exists {
		return &store.Error{
			Type:    store.ErrNotFound,
			Message: "habit not found",
		}
	}

	habit.Modified = time.Now()
	cp := *habit
	s.habits[key] = &cp

	return nil
}

func (s *Store) DeleteHabit(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.habits[id]; !exists {
		return &store.Error{
			Type:    store.ErrNotFound,
			Message: "habit not found",
		}
	}

	delete(s.habits, id)
	return nil
}
