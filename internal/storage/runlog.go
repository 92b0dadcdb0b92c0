package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run is one row of the run journal.
type Run struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  *time.Time
	Bars        int64
	Ticks       int64
	Fills       int64
	LastEventAt *time.Time
	Error       string
}

// RunStats is what a finished run reports back.
type RunStats struct {
	Bars        int64
	Ticks       int64
	Fills       int64
	LastEventAt *time.Time
	Err         error
}

// RunStore journals dispatcher runs.
type RunStore struct {
	db *sql.DB
}

func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// Begin inserts a new run row and returns its ID.
func (s *RunStore) Begin(ctx context.Context) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_log (id, started_at) VALUES (?, ?);`,
		id, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// Finish closes the run row with its final stats.
func (s *RunStore) Finish(ctx context.Context, id string, stats RunStats) error {
	var lastEvent any
	if stats.LastEventAt != nil {
		lastEvent = stats.LastEventAt.UTC().Format(timeLayout)
	}
	var runErr any
	if stats.Err != nil {
		runErr = stats.Err.Error()
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE run_log
SET finished_at = ?, bars = ?, ticks = ?, fills = ?, last_event_at = ?, error = ?
WHERE id = ?;`,
		time.Now().UTC().Format(timeLayout),
		stats.Bars, stats.Ticks, stats.Fills, lastEvent, runErr, id)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("finish run %s: no such run", id)
	}
	return nil
}

// Get returns a run row by ID.
func (s *RunStore) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, bars, ticks, fills, last_event_at, error
FROM run_log WHERE id = ?;`, id)

	var r Run
	var started string
	var finished, lastEvent, runErr sql.NullString
	if err := row.Scan(&r.ID, &started, &finished, &r.Bars, &r.Ticks, &r.Fills, &lastEvent, &runErr); err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}

	t, err := time.Parse(timeLayout, started)
	if err != nil {
		return nil, fmt.Errorf("parse started_at %q: %w", started, err)
	}
	r.StartedAt = t.UTC()

	parseOpt := func(v sql.NullString) (*time.Time, error) {
		if !v.Valid {
			return nil, nil
		}
		t, err := time.Parse(timeLayout, v.String)
		if err != nil {
			return nil, err
		}
		u := t.UTC()
		return &u, nil
	}
	if r.FinishedAt, err = parseOpt(finished); err != nil {
		return nil, fmt.Errorf("parse finished_at: %w", err)
	}
	if r.LastEventAt, err = parseOpt(lastEvent); err != nil {
		return nil, fmt.Errorf("parse last_event_at: %w", err)
	}
	if runErr.Valid {
		r.Error = runErr.String
	}
	return &r, nil
}
