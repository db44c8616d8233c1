// Package planner is the task/habit manager sitting on top of the
// recurrence engine. It owns the policy the engine deliberately does
// not: which reference date a rule steps from (RepeatMode) and whether
// missed instances regenerate (RecreateIfIncomplete).
package planner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/evielle/librecur/recurrence"
	"github.com/evielle/librecur/store"
)

// Planner materializes next-due dates for stored tasks and habits.
type Planner struct {
	engine  *recurrence.Engine
	storage store.Storage
	logger  *slog.Logger
}

// New creates a planner. A nil logger discards logs.
func New(engine *recurrence.Engine, storage store.Storage, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Planner{
		engine:  engine,
		storage: storage,
		logger:  logger,
	}
}

// NextDue computes the task's next due date after `now`, choosing the
// reference date according to the rule's repeat mode: the previously
// scheduled date for a fixed cadence, the completion time for a sliding
// one. ok is false when the task does not recur or the rule is
// exhausted.
func (p *Planner) NextDue(task *store.Task, now time.Time) (time.Time, bool, error) {
	if task.Rule == nil {
		return time.Time{}, false, nil
	}

	ref := task.DueAt
	if task.Rule.RepeatMode == recurrence.FromCompletionDate && task.CompletedAt != nil {
		ref = *task.CompletedAt
	}

	// Catch up past the query time so a long-missed fixed-cadence task
	// lands in the future rather than on a stale date.
	const maxCatchUp = 10000
	for i := 0; i < maxCatchUp; i++ {
		next, ok, err := p.engine.NextOccurrence(*task.Rule, ref)
		if err != nil || !ok {
			return time.Time{}, false, err
		}
		if next.After(now) {
			return next, true, nil
		}
		ref = next
	}

	// Cadences far in the past (a minutely task missed for months)
	// would take too many steps to catch up one by one; restart the
	// cadence at the query time instead.
	p.logger.Warn("catch-up ceiling hit, rescheduling from now", "task", task.ID)
	return p.engine.NextOccurrence(*task.Rule, now)
}

// CompleteTask marks the task's current instance done at the given time
// and advances DueAt to the next occurrence. When the rule is exhausted
// the task stays completed with no further due date.
func (p *Planner) CompleteTask(ctx context.Context, id string, at time.Time) (*store.Task, error) {
	task, err := p.storage.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	task.CompletedAt = &at

	next, ok, err := p.NextDue(task, at)
	if err != nil {
		return nil, fmt.Errorf("computing next occurrence: %w", err)
	}
	if ok {
		task.DueAt = next
		task.CompletedAt = nil
		p.logger.Info("task rescheduled",
			"task", task.ID,
			"due", next)
	} else if task.Recurring() {
		p.logger.Info("task recurrence exhausted", "task", task.ID)
	}

	if err := p.storage.UpdateTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// RolloverOverdue advances overdue, incomplete recurring tasks whose
// rules allow regeneration (RecreateIfIncomplete). Tasks with the flag
// unset are withheld until their current instance completes. Returns
// the tasks that were advanced.
func (p *Planner) RolloverOverdue(ctx context.Context, now time.Time) ([]*store.Task, error) {
	opts := &store.ListOptions{
		DueBefore:      &now,
		OnlyRecurring:  true,
		OnlyIncomplete: true,
	}
	tasks, err := p.storage.ListTasks(ctx, opts)
	if err != nil {
		return nil, err
	}

	var advanced []*store.Task
	for _, task := range tasks {
		if !task.Rule.RecreateIfIncomplete {
			p.logger.Debug("withholding incomplete task", "task", task.ID)
			continue
		}

		next, ok, err := p.NextDue(task, now)
		if err != nil {
			return advanced, err
		}
		if !ok {
			continue
		}

		task.DueAt = next
		if err := p.storage.UpdateTask(ctx, task); err != nil {
			return advanced, err
		}
		p.logger.Info("overdue task rolled forward",
			"task", task.ID,
			"due", next)
		advanced = append(advanced, task)
	}
	return advanced, nil
}

// MarkHabitDone records a completion for the habit at the given time,
// updating the streak and the next deadline. Completing before the
// current deadline extends the streak; completing after it restarts the
// streak at one.
func (p *Planner) MarkHabitDone(ctx context.Context, id string, at time.Time) (*store.Habit, error) {
	habit, err := p.storage.GetHabit(ctx, id)
	if err != nil {
		return nil, err
	}
	if habit.Rule == nil {
		return nil, &store.Error{Type: store.ErrInvalidInput, Message: "habit has no recurrence rule"}
	}

	if !habit.NextDeadline.IsZero() && at.After(habit.NextDeadline) {
		habit.Streak = 1
	} else {
		habit.Streak++
	}
	habit.LastCompletedAt = &at

	ref := at
	if habit.Rule.RepeatMode == recurrence.FromOriginalDate && !habit.NextDeadline.IsZero() {
		ref = habit.NextDeadline
	}
	next, ok, err := p.engine.NextOccurrence(*habit.Rule, ref)
	if err != nil {
		return nil, fmt.Errorf("computing next deadline: %w", err)
	}
	if ok {
		habit.NextDeadline = next
	} else {
		habit.Active = false
		p.logger.Info("habit recurrence exhausted", "habit", habit.ID)
	}

	if err := p.storage.UpdateHabit(ctx, habit); err != nil {
		return nil, err
	}
	p.logger.Info("habit completed",
		"habit", habit.ID,
		"streak", habit.Streak,
		"next_deadline", habit.NextDeadline)
	return habit, nil
}

// Preview returns up to limit upcoming occurrences of a rule, for
// picker and detail UIs.
func (p *Planner) Preview(rule recurrence.Rule, from time.Time, limit int) ([]time.Time, error) {
	return p.engine.Occurrences(rule, from, limit)
}
