package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opsdeck/opsdeck/internal/model"
)

// PutSnapshot appends a metric snapshot for a domain. Snapshots are
// immutable; the latest row per domain wins for evaluation.
func (s *Store) PutSnapshot(ctx context.Context, domain string, metrics map[string]float64, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if domain == "" {
		return fmt.Errorf("snapshot domain is required")
	}

	encoded, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO metric_snapshots (domain, metrics, created_at) VALUES (?, ?, ?)
`, domain, string(encoded), toMillis(at))
	if err != nil {
		return fmt.Errorf("put snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recent snapshot for a domain, or
// ErrNotFound when the domain has never been ingested.
func (s *Store) LatestSnapshot(ctx context.Context, domain string) (model.MetricSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return model.MetricSnapshot{}, err
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, domain, metrics, created_at
FROM metric_snapshots
WHERE domain = ?
ORDER BY created_at DESC, id DESC
LIMIT 1
`, domain)

	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.MetricSnapshot{}, ErrNotFound
		}
		return model.MetricSnapshot{}, fmt.Errorf("latest snapshot: %w", err)
	}
	return snap, nil
}

// LatestSnapshots returns the most recent snapshot for every domain
// that has one. Domains with no snapshot are simply absent.
func (s *Store) LatestSnapshots(ctx context.Context) (map[string]model.MetricSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT ms.id, ms.domain, ms.metrics, ms.created_at
FROM metric_snapshots ms
JOIN (
    SELECT domain, MAX(id) AS max_id
    FROM metric_snapshots
    GROUP BY domain
) latest ON latest.max_id = ms.id
`)
	if err != nil {
		return nil, fmt.Errorf("latest snapshots: %w", err)
	}
	defer rows.Close()

	out := make(map[string]model.MetricSnapshot)
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out[snap.Domain] = snap
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (model.MetricSnapshot, error) {
	var (
		snap      model.MetricSnapshot
		rawJSON   string
		createdAt int64
	)
	if err := row.Scan(&snap.ID, &snap.Domain, &rawJSON, &createdAt); err != nil {
		return model.MetricSnapshot{}, err
	}
	if err := json.Unmarshal([]byte(rawJSON), &snap.Metrics); err != nil {
		return model.MetricSnapshot{}, fmt.Errorf("unmarshal metrics: %w", err)
	}
	snap.CreatedAt = fromMillis(createdAt)
	return snap, nil
}
