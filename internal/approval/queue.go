// Package approval implements the durable human-review inbox. Items
// are created pending by the dispatcher and decided exactly once.
package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opsdeck/opsdeck/internal/model"
	"github.com/opsdeck/opsdeck/internal/store"
)

// Decision is a terminal resolution of a pending item.
type Decision string

const (
	Approve Decision = "approve"
	Reject  Decision = "reject"
)

// Backend is the persistence surface the queue needs.
type Backend interface {
	InsertApprovalItem(ctx context.Context, item model.ApprovalItem) error
	PendingByActionKey(ctx context.Context, actionKey string) (model.ApprovalItem, error)
	GetApprovalItem(ctx context.Context, id string) (model.ApprovalItem, error)
	ListPendingApprovals(ctx context.Context) ([]model.ApprovalItem, error)
	MarkDecided(ctx context.Context, id string, status model.ApprovalStatus, at time.Time) error
}

// Granter records reusable authorizations for approved yellow items.
type Granter interface {
	Grant(ctx context.Context, actionKey, sourceApprovalID string) error
}

// Queue is the approval inbox service.
type Queue struct {
	backend Backend
	grants  Granter

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

// NewQueue creates an approval queue over a backend and grant store.
func NewQueue(backend Backend, grants Granter) *Queue {
	return &Queue{backend: backend, grants: grants}
}

// EnqueueIfAbsent inserts a pending item for the candidate unless one
// with the same action key is already pending. Returns whether a new
// item was created. The check-then-insert is not mutually exclusive
// across concurrent invocations; a duplicate pending item is a benign
// anomaly, never a double execution.
func (q *Queue) EnqueueIfAbsent(ctx context.Context, c model.ActionCandidate, tier model.Tier) (bool, error) {
	key := c.Key()

	_, err := q.backend.PendingByActionKey(ctx, key)
	if err == nil {
		return false, nil // already pending, dedup
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, fmt.Errorf("pending lookup: %w", err)
	}

	now := q.now()
	item := model.ApprovalItem{
		ID:        uuid.NewString(),
		Title:     enqueueTitle(c),
		Domain:    c.Domain,
		Tier:      tier,
		Status:    model.StatusPending,
		ActionKey: key,
		Candidate: c,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := q.backend.InsertApprovalItem(ctx, item); err != nil {
		return false, fmt.Errorf("enqueue approval: %w", err)
	}
	return true, nil
}

// Decide resolves a pending item. Decisions are terminal: a second
// decision on the same item fails with store.ErrAlreadyDecided and
// mutates nothing. Approving a yellow item activates a grant for its
// action key; no other tier ever produces a grant.
func (q *Queue) Decide(ctx context.Context, itemID string, decision Decision) (model.ApprovalItem, error) {
	if itemID == "" {
		return model.ApprovalItem{}, fmt.Errorf("approval item id is required")
	}

	var status model.ApprovalStatus
	switch decision {
	case Approve:
		status = model.StatusApproved
	case Reject:
		status = model.StatusRejected
	default:
		return model.ApprovalItem{}, fmt.Errorf("invalid decision %q", decision)
	}

	item, err := q.backend.GetApprovalItem(ctx, itemID)
	if err != nil {
		return model.ApprovalItem{}, fmt.Errorf("load approval item: %w", err)
	}

	now := q.now()
	if err := q.backend.MarkDecided(ctx, itemID, status, now); err != nil {
		return model.ApprovalItem{}, err
	}
	item.Status = status
	item.UpdatedAt = now

	if decision == Approve && item.Tier == model.TierYellow {
		if err := q.grants.Grant(ctx, item.ActionKey, item.ID); err != nil {
			return model.ApprovalItem{}, fmt.Errorf("record grant: %w", err)
		}
	}
	return item, nil
}

// ListPending returns all pending items, oldest first.
func (q *Queue) ListPending(ctx context.Context) ([]model.ApprovalItem, error) {
	return q.backend.ListPendingApprovals(ctx)
}

func (q *Queue) now() time.Time {
	if q.Now != nil {
		return q.Now()
	}
	return time.Now().UTC()
}

func enqueueTitle(c model.ActionCandidate) string {
	return fmt.Sprintf("approve action: %s %s %s %s (observed %s)",
		c.Domain, c.Metric, c.Operator,
		model.FormatThreshold(c.Threshold), model.FormatThreshold(c.Value))
}
