package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Run status values
const (
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// Run is one pipeline run recorded in the history table
type Run struct {
	RunID       string
	Source      string
	StartedAt   time.Time
	CompletedAt time.Time
	Status      string
	Stage       string
	Error       string
	CountsJSON  string
}

// InsertRun records a run. It runs outside any rebuild transaction so a
// failed rebuild can still be recorded.
func (s *Store) InsertRun(ctx context.Context, run *Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
		(run_id, source, started_at, completed_at, status, stage, error, counts_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.RunID, run.Source, run.StartedAt.UTC(), run.CompletedAt.UTC(), run.Status,
		nullIfEmpty(run.Stage), nullIfEmpty(run.Error), nullIfEmpty(run.CountsJSON))
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.RunID, err)
	}
	return nil
}

// GetRecentRuns returns up to limit runs, newest first
func (s *Store) GetRecentRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, COALESCE(source, ''), started_at, completed_at, status,
		       COALESCE(stage, ''), COALESCE(error, ''), COALESCE(counts_json, '')
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var r Run
		var completed sql.NullTime
		err := rows.Scan(&r.RunID, &r.Source, &r.StartedAt, &completed, &r.Status,
			&r.Stage, &r.Error, &r.CountsJSON)
		if err != nil {
			return nil, err
		}
		r.CompletedAt = completed.Time
		runs = append(runs, &r)
	}

	return runs, rows.Err()
}

// GetLastRun returns the most recent run, or nil if none was recorded
func (s *Store) GetLastRun(ctx context.Context) (*Run, error) {
	runs, err := s.GetRecentRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return runs[0], nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
