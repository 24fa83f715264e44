package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/opsdeck/opsdeck/internal/generate"
	"github.com/opsdeck/opsdeck/internal/model"
)

// Execution source tags recorded on auto-executed alert events.
const (
	SourceGreen  = "auto-executed/green"
	SourceYellow = "auto-executed/yellow-approved-once"
)

// Granter consults the grant allow-list. A non-nil error means the
// read failed; the dispatcher treats that as not granted (fail-closed)
// and records a warning.
type Granter interface {
	IsGranted(ctx context.Context, actionKey string) (bool, error)
}

// Enqueuer queues candidates for human review.
type Enqueuer interface {
	EnqueueIfAbsent(ctx context.Context, c model.ActionCandidate, tier model.Tier) (bool, error)
}

// AlertWriter appends execution alert events.
type AlertWriter interface {
	AppendAlert(ctx context.Context, a model.AlertEvent) error
}

// Counters aggregates one dispatch run. Every candidate increments
// exactly one of AutoExecuted or Blocked; blocked candidates may also
// increment ApprovalQueued when their queue item is newly created.
type Counters struct {
	AutoExecuted   int `json:"autoExecuted"`
	ApprovalQueued int `json:"approvalQueued"`
	Blocked        int `json:"blocked"`
	GrantsUsed     int `json:"grantsUsed"`
}

// Dispatcher routes candidates through the tier policy. It is
// state-free; all coordination goes through the injected collaborators.
type Dispatcher struct {
	Grants Granter
	Queue  Enqueuer
	Alerts AlertWriter

	// Notify, when set, receives every auto-executed alert event.
	// Fire-and-forget; never affects dispatch outcome.
	Notify func(model.AlertEvent)

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

// Dispatch routes each candidate by tier. Queue and alert writes are
// primary-path: their failure aborts the stage with the counters
// accumulated so far. Grant read failures degrade to "not granted"
// and surface as warnings on the outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, candidates []model.ActionCandidate) (Counters, model.Outcome) {
	var (
		counters Counters
		outcome  model.Outcome
	)

	for _, c := range candidates {
		tier := Classify(c)
		switch tier {
		case model.TierGreen:
			if err := d.execute(ctx, c, SourceGreen); err != nil {
				outcome.Err = err
				return counters, outcome
			}
			counters.AutoExecuted++

		case model.TierYellow:
			granted, err := d.Grants.IsGranted(ctx, c.Key())
			if err != nil {
				// Fail-closed: degraded grant reads never authorize.
				outcome.Warnf("grant check degraded, treating %s as not granted: %v", c.Key(), err)
				granted = false
			}
			if granted {
				if err := d.execute(ctx, c, SourceYellow); err != nil {
					outcome.Err = err
					return counters, outcome
				}
				counters.AutoExecuted++
				counters.GrantsUsed++
				continue
			}
			if err := d.block(ctx, c, model.TierYellow, &counters); err != nil {
				outcome.Err = err
				return counters, outcome
			}

		case model.TierRed:
			// Grants are never consulted for red.
			if err := d.block(ctx, c, model.TierRed, &counters); err != nil {
				outcome.Err = err
				return counters, outcome
			}
		}
	}

	return counters, outcome
}

// execute records the action as performed by writing its alert event.
// A later run producing an equivalent alert is a new event, not a
// conflict; the alert log is append-only.
func (d *Dispatcher) execute(ctx context.Context, c model.ActionCandidate, source string) error {
	now := d.now()
	alert := model.AlertEvent{
		ID:        generate.NewAlertID(now),
		Domain:    c.Domain,
		Title:     executionTitle(c),
		Severity:  c.Severity,
		Source:    source,
		CreatedAt: now,
	}
	if err := d.Alerts.AppendAlert(ctx, alert); err != nil {
		return fmt.Errorf("execute %s: %w", c.Key(), err)
	}
	if d.Notify != nil {
		d.Notify(alert)
	}
	return nil
}

func (d *Dispatcher) block(ctx context.Context, c model.ActionCandidate, tier model.Tier, counters *Counters) error {
	created, err := d.Queue.EnqueueIfAbsent(ctx, c, tier)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", c.Key(), err)
	}
	if created {
		counters.ApprovalQueued++
	}
	counters.Blocked++
	return nil
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}

func executionTitle(c model.ActionCandidate) string {
	return fmt.Sprintf("executed action: %s %s %s %s (observed %s)",
		c.Domain, c.Metric, c.Operator,
		model.FormatThreshold(c.Threshold), model.FormatThreshold(c.Value))
}
