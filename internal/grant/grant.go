// Package grant manages the persistent allow-list of approved action
// keys. A grant authorizes unattended execution of one exact action
// key until it is explicitly revoked.
package grant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opsdeck/opsdeck/internal/model"
	"github.com/opsdeck/opsdeck/internal/store"
)

// Backend is the persistence surface the grant store needs.
type Backend interface {
	GetGrant(ctx context.Context, actionKey string) (model.Grant, error)
	UpsertGrant(ctx context.Context, actionKey, sourceApprovalID string, at time.Time) error
	DeactivateGrant(ctx context.Context, actionKey string) error
	ListGrants(ctx context.Context) ([]model.Grant, error)
}

// Store consults and mutates grants.
type Store struct {
	backend Backend

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

// New creates a grant store over a persistence backend.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// IsGranted reports whether an active grant exists for the action key.
// Fail-closed: any read error yields false; absence of certainty is
// never permission. The error is returned alongside so callers can
// surface the degraded read as a warning.
func (s *Store) IsGranted(ctx context.Context, actionKey string) (bool, error) {
	g, err := s.backend.GetGrant(ctx, actionKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("grant lookup for %q: %w", actionKey, err)
	}
	return g.Active, nil
}

// Grant activates the grant for an action key, recording the approval
// item that produced it. Idempotent upsert; approvedAt is refreshed.
// Never called for red-tier actions; red is always gated.
func (s *Store) Grant(ctx context.Context, actionKey, sourceApprovalID string) error {
	if actionKey == "" {
		return fmt.Errorf("grant action key is required")
	}
	if sourceApprovalID == "" {
		return fmt.Errorf("grant source approval id is required")
	}
	return s.backend.UpsertGrant(ctx, actionKey, sourceApprovalID, s.now())
}

// Revoke deactivates the grant for an action key.
func (s *Store) Revoke(ctx context.Context, actionKey string) error {
	return s.backend.DeactivateGrant(ctx, actionKey)
}

// List returns all grant rows.
func (s *Store) List(ctx context.Context) ([]model.Grant, error) {
	return s.backend.ListGrants(ctx)
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
