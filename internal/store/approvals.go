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

// ErrAlreadyDecided is returned when a decision targets an item that
// is no longer pending. Decisions are terminal.
var ErrAlreadyDecided = errors.New("approval item already decided")

// InsertApprovalItem writes a new pending approval item.
func (s *Store) InsertApprovalItem(ctx context.Context, item model.ApprovalItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if item.ID == "" {
		return fmt.Errorf("approval item id is required")
	}
	if item.ActionKey == "" {
		return fmt.Errorf("approval item action key is required")
	}

	candidate, err := json.Marshal(item.Candidate)
	if err != nil {
		return fmt.Errorf("marshal candidate: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO approval_items (id, title, domain, tier, status, action_key, candidate, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, item.ID, item.Title, item.Domain, string(item.Tier), string(item.Status), item.ActionKey,
		string(candidate), toMillis(item.CreatedAt), toMillis(item.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert approval item: %w", err)
	}
	return nil
}

// PendingByActionKey returns the pending item for an action key, or
// ErrNotFound. With concurrent enqueuers a key can briefly hold more
// than one pending row; the oldest wins here and duplicates are benign.
func (s *Store) PendingByActionKey(ctx context.Context, actionKey string) (model.ApprovalItem, error) {
	if err := ctx.Err(); err != nil {
		return model.ApprovalItem{}, err
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, title, domain, tier, status, action_key, candidate, created_at, updated_at
FROM approval_items
WHERE action_key = ? AND status = ?
ORDER BY created_at ASC
LIMIT 1
`, actionKey, string(model.StatusPending))

	item, err := scanApprovalItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ApprovalItem{}, ErrNotFound
		}
		return model.ApprovalItem{}, fmt.Errorf("pending by action key: %w", err)
	}
	return item, nil
}

// GetApprovalItem fetches one item by id.
func (s *Store) GetApprovalItem(ctx context.Context, id string) (model.ApprovalItem, error) {
	if err := ctx.Err(); err != nil {
		return model.ApprovalItem{}, err
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, title, domain, tier, status, action_key, candidate, created_at, updated_at
FROM approval_items
WHERE id = ?
`, id)

	item, err := scanApprovalItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ApprovalItem{}, ErrNotFound
		}
		return model.ApprovalItem{}, fmt.Errorf("get approval item: %w", err)
	}
	return item, nil
}

// ListPendingApprovals returns all pending items, oldest first.
func (s *Store) ListPendingApprovals(ctx context.Context) ([]model.ApprovalItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, title, domain, tier, status, action_key, candidate, created_at, updated_at
FROM approval_items
WHERE status = ?
ORDER BY created_at ASC
`, string(model.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("list pending approvals: %w", err)
	}
	defer rows.Close()

	var items []model.ApprovalItem
	for rows.Next() {
		item, err := scanApprovalItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan approval item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate approval items: %w", err)
	}
	return items, nil
}

// MarkDecided transitions a pending item to approved/rejected. The
// status guard in the WHERE clause makes the transition terminal:
// deciding an already-decided item mutates nothing and returns
// ErrAlreadyDecided (or ErrNotFound when the id is unknown).
func (s *Store) MarkDecided(ctx context.Context, id string, status model.ApprovalStatus, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("approval item id is required")
	}
	if status != model.StatusApproved && status != model.StatusRejected {
		return fmt.Errorf("invalid decision status %q", status)
	}

	res, err := s.sqlDB.ExecContext(ctx, `
UPDATE approval_items
SET status = ?, updated_at = ?
WHERE id = ? AND status = ?
`, string(status), toMillis(at), id, string(model.StatusPending))
	if err != nil {
		return fmt.Errorf("mark decided: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark decided rows: %w", err)
	}
	if affected == 0 {
		if _, err := s.GetApprovalItem(ctx, id); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return ErrAlreadyDecided
	}
	return nil
}

func scanApprovalItem(row rowScanner) (model.ApprovalItem, error) {
	var (
		item         model.ApprovalItem
		candidateRaw string
		createdAt    int64
		updatedAt    int64
	)
	if err := row.Scan(&item.ID, &item.Title, &item.Domain, &item.Tier, &item.Status,
		&item.ActionKey, &candidateRaw, &createdAt, &updatedAt); err != nil {
		return model.ApprovalItem{}, err
	}
	if err := json.Unmarshal([]byte(candidateRaw), &item.Candidate); err != nil {
		return model.ApprovalItem{}, fmt.Errorf("unmarshal candidate: %w", err)
	}
	item.CreatedAt = fromMillis(createdAt)
	item.UpdatedAt = fromMillis(updatedAt)
	return item, nil
}
