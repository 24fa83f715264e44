// Package runlog records pipeline executions, computes rolling health,
// and escalates on sustained failure. Escalation is edge-triggered:
// one critical alert at the transition into two consecutive failures,
// nothing on the third or later failure of an ongoing outage.
package runlog

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/opsdeck/opsdeck/internal/generate"
	"github.com/opsdeck/opsdeck/internal/model"
)

// Escalation alert source tag.
const SourceEscalation = "job-monitor/escalation"

// RunStore is the persistence surface for job runs.
type RunStore interface {
	AppendRun(ctx context.Context, run model.JobRun) error
	RecentRuns(ctx context.Context, jobName string, limit int) ([]model.JobRun, error)
	RunsSince(ctx context.Context, jobName string, since time.Time) ([]model.JobRun, error)
}

// AlertWriter appends escalation alert events.
type AlertWriter interface {
	AppendAlert(ctx context.Context, a model.AlertEvent) error
}

// Tracker records runs and answers health queries for one job name.
type Tracker struct {
	Runs    RunStore
	Alerts  AlertWriter
	JobName string

	// Interval is the external scheduling cadence; only used for the
	// advisory NextDueAt field.
	Interval time.Duration

	// Notify, when set, receives escalation alert events.
	Notify func(model.AlertEvent)

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

// Record writes one run row and, after a failed run, checks for the
// two-consecutive-failures transition. Both writes are secondary
// telemetry: their failures come back as warnings, never as errors,
// so they cannot mask the invocation's primary result.
func (t *Tracker) Record(ctx context.Context, run model.JobRun) model.Outcome {
	var outcome model.Outcome

	run.JobName = t.JobName
	if err := t.Runs.AppendRun(ctx, run); err != nil {
		outcome.Warnf("record run: %v", err)
		// Without the new row the escalation window is stale; skip the
		// check rather than fire off incomplete history.
		return outcome
	}

	if run.Status == model.RunFailed {
		t.escalateIfEdge(ctx, &outcome)
	}
	return outcome
}

// escalateIfEdge fires one critical alert iff the two newest runs are
// both failed and the third newest (when present) is not: the
// transition into two consecutive failures.
func (t *Tracker) escalateIfEdge(ctx context.Context, outcome *model.Outcome) {
	runs, err := t.Runs.RecentRuns(ctx, t.JobName, 3)
	if err != nil {
		outcome.Warnf("escalation check: %v", err)
		return
	}
	if len(runs) < 2 || runs[0].Status != model.RunFailed || runs[1].Status != model.RunFailed {
		return
	}
	if len(runs) >= 3 && runs[2].Status == model.RunFailed {
		return // ongoing outage, already escalated at the transition
	}

	now := t.now()
	alert := model.AlertEvent{
		ID:        generate.NewAlertID(now),
		Domain:    t.JobName,
		Title:     fmt.Sprintf("%s failed twice in a row", t.JobName),
		Severity:  model.SevCritical,
		Source:    SourceEscalation,
		CreatedAt: now,
	}
	if err := t.Alerts.AppendAlert(ctx, alert); err != nil {
		outcome.Warnf("escalation alert: %v", err)
		return
	}
	if t.Notify != nil {
		t.Notify(alert)
	}
}

// Health is the rolling health report for a trailing window. With no
// runs in the window the rate and duration fields stay nil; absence
// of data is not a zero.
type Health struct {
	Total               int      `json:"total"`
	SuccessRate         *float64 `json:"successRate,omitempty"`
	AvgDurationMs       *int64   `json:"avgDurationMs,omitempty"`
	ConsecutiveFailures int      `json:"consecutiveFailures"`

	LastRun   *model.JobRun `json:"lastRun,omitempty"`
	NextDueAt *time.Time    `json:"nextDueAt,omitempty"`
}

// Health computes the report for the trailing window ending now.
func (t *Tracker) Health(ctx context.Context, window time.Duration) (*Health, error) {
	runs, err := t.Runs.RunsSince(ctx, t.JobName, t.now().Add(-window))
	if err != nil {
		return nil, fmt.Errorf("health window: %w", err)
	}

	h := &Health{Total: len(runs)}
	if len(runs) > 0 {
		var successes int
		var totalMs int64
		for _, r := range runs {
			if r.Status == model.RunSuccess {
				successes++
			}
			totalMs += r.DurationMs
		}
		rate := math.Round(float64(successes)/float64(len(runs))*1000) / 10
		avg := int64(math.Round(float64(totalMs) / float64(len(runs))))
		h.SuccessRate = &rate
		h.AvgDurationMs = &avg

		for _, r := range runs { // newest first
			if r.Status == model.RunSuccess {
				break
			}
			h.ConsecutiveFailures++
		}
	}

	last, err := t.Runs.RecentRuns(ctx, t.JobName, 1)
	if err != nil {
		return nil, fmt.Errorf("last run: %w", err)
	}
	if len(last) > 0 {
		run := last[0]
		h.LastRun = &run
		if t.Interval > 0 {
			due := run.FinishedAt.Add(t.Interval)
			h.NextDueAt = &due
		}
	}
	return h, nil
}

func (t *Tracker) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now().UTC()
}
