// Package sqlite is a Storage implementation on modernc.org/sqlite,
// suitable for local single-user apps. Recurrence rules are persisted
// as JSON columns; rules are plain data, so their JSON form round-trips
// exactly.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/evielle/librecur/recurrence"
	"github.com/evielle/librecur/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	notes        TEXT NOT NULL DEFAULT '',
	rule         TEXT,
	due_at       TIMESTAMP NOT NULL,
	completed_at TIMESTAMP,
	created      TIMESTAMP NOT NULL,
	modified     TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS habits (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	rule              TEXT,
	streak            INTEGER NOT NULL DEFAULT 0,
	last_completed_at TIMESTAMP,
	next_deadline     TIMESTAMP NOT NULL,
	active            INTEGER NOT NULL DEFAULT 1,
	created           TIMESTAMP NOT NULL,
	modified          TIMESTAMP NOT NULL
);
`

// Store implements store.Storage on a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (and bootstraps) a SQLite-backed store. Use ":memory:" for
// an ephemeral database.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &store.Error{Type: store.ErrUnavailable, Message: "opening database", Err: err}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, &store.Error{Type: store.ErrUnavailable, Message: "bootstrapping schema", Err: err}
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func encodeRule(rule *recurrence.Rule) (sql.NullString, error) {
	if rule == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(rule)
	if err != nil {
		return sql.NullString{}, &store.Error{Type: store.ErrInvalidInput, Message: "encoding rule", Err: err}
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func decodeRule(raw sql.NullString) (*recurrence.Rule, error) {
	if !raw.Valid {
		return nil, nil
	}
	var rule recurrence.Rule
	if err := json.Unmarshal([]byte(raw.String), &rule); err != nil {
		return nil, &store.Error{Type: store.ErrInvalidInput, Message: "decoding rule", Err: err}
	}
	return &rule, nil
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// Task operations

func scanTask(row *sql.Row) (*store.Task, error) {
	var (
		t         store.Task
		id        string
		rule      sql.NullString
		completed sql.NullTime
	)
	err := row.Scan(&id, &t.Title, &t.Notes, &rule, &t.DueAt, &completed, &t.Created, &t.Modified)
	if err == sql.ErrNoRows {
		return nil, &store.Error{Type: store.ErrNotFound, Message: "task not found"}
	}
	if err != nil {
		return nil, err
	}
	if t.ID, err = uuid.Parse(id); err != nil {
		return nil, &store.Error{Type: store.ErrInvalidInput, Message: "parsing task id", Err: err}
	}
	if t.Rule, err = decodeRule(rule); err != nil {
		return nil, err
	}
	if completed.Valid {
		t.CompletedAt = &completed.Time
	}
	return &t, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*store.Task, error) {
	return scanTask(s.db.QueryRowContext(ctx,
		`SELECT id,title,notes,rule,due_at,completed_at,created,modified FROM tasks WHERE id=?`, id))
}

func (s *Store) ListTasks(ctx context.Context, opts *store.ListOptions) ([]*store.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,title,notes,rule,due_at,completed_at,created,modified FROM tasks ORDER BY due_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*store.Task
	for rows.Next() {
		var (
			t         store.Task
			id        string
			rule      sql.NullString
			completed sql.NullTime
		)
		if err := rows.Scan(&id, &t.Title, &t.Notes, &rule, &t.DueAt, &completed, &t.Created, &t.Modified); err != nil {
			return nil, err
		}
		if t.ID, err = uuid.Parse(id); err != nil {
			return nil, &store.Error{Type: store.ErrInvalidInput, Message: "parsing task id", Err: err}
		}
		if t.Rule, err = decodeRule(rule); err != nil {
			return nil, err
		}
		if completed.Valid {
			t.CompletedAt = &completed.Time
		}

		// Filtering stays in one place instead of duplicating the rule
		// semantics in SQL.
		if opts != nil {
			if opts.OnlyRecurring && !t.Recurring() {
				continue
			}
			if opts.OnlyIncomplete && t.Completed() {
				continue
			}
			if opts.DueBefore != nil && t.DueAt.After(*opts.DueBefore) {
				continue
			}
		}
		cp := t
		tasks = append(tasks, &cp)
	}
	return tasks, rows.Err()
}

func (s *Store) CreateTask(ctx context.Context, task *store.Task) error {
	rule, err := encodeRule(task.Rule)
	if err != nil {
		return err
	}
	now := time.Now()
	task.Created = now
	task.Modified = now
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tasks(id,title,notes,rule,due_at,completed_at,created,modified) VALUES (?,?,?,?,?,?,?,?)`,
		task.ID.String(), task.Title, task.Notes, rule, task.DueAt,
		nullableTime(task.CompletedAt), task.Created, task.Modified)
	if err != nil {
		return &store.Error{Type: store.ErrAlreadyExists, Message: "inserting task", Err: err}
	}
	return nil
}

func (s *Store) UpdateTask(ctx context.Context, task *store.Task) error {
	rule, err := encodeRule(task.Rule)
	if err != nil {
		return err
	}
	task.Modified = time.Now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET title=?,notes=?,rule=?,due_at=?,completed_at=?,modified=? WHERE id=?`,
		task.Title, task.Notes, rule, task.DueAt,
		nullableTime(task.CompletedAt), task.Modified, task.ID.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &store.Error{Type: store.ErrNotFound, Message: "task not found"}
	}
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &store.Error{Type: store.ErrNotFound, Message: "task not found"}
	}
	return nil
}

// Habit operations

func (s *Store) GetHabit(ctx context.Context, id string) (*store.Habit, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,name,rule,streak,last_completed_at,next_deadline,active,created,modified FROM habits WHERE id=?`, id)

	var (
		h    store.Habit
		hid  string
		rule sql.NullString
		last sql.NullTime
	)
	err := row.Scan(&hid, &h.Name, &rule, &h.Streak, &last, &h.NextDeadline, &h.Active, &h.Created, &h.Modified)
	if err == sql.ErrNoRows {
		return nil, &store.Error{Type: store.ErrNotFound, Message: "habit not found"}
	}
	if err != nil {
		return nil, err
	}
	if h.ID, err = uuid.Parse(hid); err != nil {
		return nil, &store.Error{Type: store.ErrInvalidInput, Message: "parsing habit id", Err: err}
	}
	if h.Rule, err = decodeRule(rule); err != nil {
		return nil, err
	}
	if last.Valid {
		h.LastCompletedAt = &last.Time
	}
	return &h, nil
}

func (s *Store) ListHabits(ctx context.Context, activeOnly bool) ([]*store.Habit, error) {
	query := `SELECT id,name,rule,streak,last_completed_at,next_deadline,active,created,modified FROM habits ORDER BY name`
	if activeOnly {
		query = `SELECT id,name,rule,streak,last_completed_at,next_deadline,active,created,modified FROM habits WHERE active=1 ORDER BY name`
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var habits []*store.Habit
	for rows.Next() {
		var (
			h    store.Habit
			hid  string
			rule sql.NullString
			last sql.NullTime
		)
		if err := rows.Scan(&hid, &h.Name, &rule, &h.Streak, &last, &h.NextDeadline, &h.Active, &h.Created, &h.Modified); err != nil {
			return nil, err
		}
		if h.ID, err = uuid.Parse(hid); err != nil {
			return nil, &store.Error{Type: store.ErrInvalidInput, Message: "parsing habit id", Err: err}
		}
		if h.Rule, err = decodeRule(rule); err != nil {
			return nil, err
		}
		if last.Valid {
			h.LastCompletedAt = &last.Time
		}
		cp := h
		habits = append(habits, &cp)
	}
	return habits, rows.Err()
}

func (s *Store) CreateHabit(ctx context.Context, habit *store.Habit) error {
	rule, err := encodeRule(habit.Rule)
	if err != nil {
		return err
	}
	now := time.Now()
	habit.Created = now
	habit.Modified = now
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO habits(id,name,rule,streak,last_completed_at,next_deadline,active,created,modified) VALUES (?,?,?,?,?,?,?,?,?)`,
		habit.ID.String(), habit.Name, rule, habit.Streak,
		nullableTime(habit.LastCompletedAt), habit.NextDeadline, habit.Active, habit.Created, habit.Modified)
	if err != nil {
		return &store.Error{Type: store.ErrAlreadyExists, Message: "inserting habit", Err: err}
	}
	return nil
}

func (s *Store) UpdateHabit(ctx context.Context, habit *store.Habit) error {
	rule, err := encodeRule(habit.Rule)
	if err != nil {
		return err
	}
	habit.Modified = time.Now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE habits SET name=?,rule=?,streak=?,last_completed_at=?,next_deadline=?,active=?,modified=? WHERE id=?`,
		habit.Name, rule, habit.Streak, nullableTime(habit.LastCompletedAt),
		habit.NextDeadline, habit.Active, habit.Modified, habit.ID.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &store.Error{Type: store.ErrNotFound, Message: "habit not found"}
	}
	return nil
}

func (s *Store) DeleteHabit(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM habits WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &store.Error{Type: store.ErrNotFound, Message: "habit not found"}
	}
	return nil
}
