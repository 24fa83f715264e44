package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/opsdeck/opsdeck/internal/model"
)

// UpsertGrant activates (or re-activates) the grant for an action key.
// One row per key; last writer wins, approved_at is refreshed.
func (s *Store) UpsertGrant(ctx context.Context, actionKey, sourceApprovalID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if actionKey == "" {
		return fmt.Errorf("grant action key is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO approval_grants (action_key, active, source_approval_id, approved_at)
VALUES (?, 1, ?, ?)
ON CONFLICT(action_key) DO UPDATE SET
	active = 1,
	source_approval_id = excluded.source_approval_id,
	approved_at = excluded.approved_at
`, actionKey, sourceApprovalID, toMillis(at))
	if err != nil {
		return fmt.Errorf("upsert grant: %w", err)
	}
	return nil
}

// GetGrant fetches the grant row for an action key, or ErrNotFound.
func (s *Store) GetGrant(ctx context.Context, actionKey string) (model.Grant, error) {
	if err := ctx.Err(); err != nil {
		return model.Grant{}, err
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT action_key, active, source_approval_id, approved_at
FROM approval_grants
WHERE action_key = ?
`, actionKey)

	var (
		g          model.Grant
		approvedAt int64
	)
	if err := row.Scan(&g.ActionKey, &g.Active, &g.SourceApprovalID, &approvedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Grant{}, ErrNotFound
		}
		return model.Grant{}, fmt.Errorf("get grant: %w", err)
	}
	g.ApprovedAt = fromMillis(approvedAt)
	return g, nil
}

// ListGrants returns every grant row, active or not.
func (s *Store) ListGrants(ctx context.Context) ([]model.Grant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT action_key, active, source_approval_id, approved_at
FROM approval_grants
ORDER BY approved_at DESC
`)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	defer rows.Close()

	var grants []model.Grant
	for rows.Next() {
		var (
			g          model.Grant
			approvedAt int64
		)
		if err := rows.Scan(&g.ActionKey, &g.Active, &g.SourceApprovalID, &approvedAt); err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		g.ApprovedAt = fromMillis(approvedAt)
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grants: %w", err)
	}
	return grants, nil
}

// DeactivateGrant turns off the grant for an action key. Missing rows
// return ErrNotFound so operators notice typos.
func (s *Store) DeactivateGrant(ctx context.Context, actionKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res, err := s.sqlDB.ExecContext(ctx, `
UPDATE approval_grants SET active = 0 WHERE action_key = ?
`, actionKey)
	if err != nil {
		return fmt.Errorf("deactivate grant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate grant rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
