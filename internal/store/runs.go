package store

import (
	"context"
	"fmt"
	"time"

	"github.com/opsdeck/opsdeck/internal/model"
)

// AppendRun writes one job run row.
func (s *Store) AppendRun(ctx context.Context, run model.JobRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if run.JobName == "" {
		return fmt.Errorf("job name is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO job_runs (job_name, status, started_at, finished_at, duration_ms, details)
VALUES (?, ?, ?, ?, ?, ?)
`, run.JobName, string(run.Status), toMillis(run.StartedAt), toMillis(run.FinishedAt),
		run.DurationMs, run.Details)
	if err != nil {
		return fmt.Errorf("append run: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs for a job, newest first.
func (s *Store) RecentRuns(ctx context.Context, jobName string, limit int) ([]model.JobRun, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.queryRuns(ctx, `
SELECT id, job_name, status, started_at, finished_at, duration_ms, details
FROM job_runs
WHERE job_name = ?
ORDER BY finished_at DESC, id DESC
LIMIT ?
`, jobName, limit)
}

// RunsSince returns runs for a job that finished at or after since,
// newest first.
func (s *Store) RunsSince(ctx context.Context, jobName string, since time.Time) ([]model.JobRun, error) {
	return s.queryRuns(ctx, `
SELECT id, job_name, status, started_at, finished_at, duration_ms, details
FROM job_runs
WHERE job_name = ? AND finished_at >= ?
ORDER BY finished_at DESC, id DESC
`, jobName, toMillis(since))
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...any) ([]model.JobRun, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []model.JobRun
	for rows.Next() {
		var (
			r          model.JobRun
			startedAt  int64
			finishedAt int64
		)
		if err := rows.Scan(&r.ID, &r.JobName, &r.Status, &startedAt, &finishedAt, &r.DurationMs, &r.Details); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = fromMillis(startedAt)
		r.FinishedAt = fromMillis(finishedAt)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
