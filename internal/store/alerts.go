package store

import (
	"context"
	"fmt"

	"github.com/opsdeck/opsdeck/internal/model"
)

// AppendAlert writes one alert event. Alert ids are caller-generated;
// re-inserting the same id is rejected by the primary key, which keeps
// the log append-only.
func (s *Store) AppendAlert(ctx context.Context, a model.AlertEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a.ID == "" {
		return fmt.Errorf("alert id is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO alert_events (id, domain, title, severity, source, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`, a.ID, a.Domain, a.Title, string(a.Severity), a.Source, toMillis(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("append alert: %w", err)
	}
	return nil
}

// RecentAlerts returns up to limit alert events, newest first.
func (s *Store) RecentAlerts(ctx context.Context, limit int) ([]model.AlertEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, domain, title, severity, source, created_at
FROM alert_events
ORDER BY created_at DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.AlertEvent
	for rows.Next() {
		var (
			a         model.AlertEvent
			createdAt int64
		)
		if err := rows.Scan(&a.ID, &a.Domain, &a.Title, &a.Severity, &a.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.CreatedAt = fromMillis(createdAt)
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return alerts, nil
}
