// Package pipeline wires the evaluator, generator, dispatcher, and run
// tracker into the three externally invocable operations: generate,
// run, and status. Each invocation is a short-lived unit of work; all
// coordination happens through the persistent store.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opsdeck/opsdeck/internal/approval"
	"github.com/opsdeck/opsdeck/internal/generate"
	"github.com/opsdeck/opsdeck/internal/grant"
	"github.com/opsdeck/opsdeck/internal/model"
	"github.com/opsdeck/opsdeck/internal/notify"
	"github.com/opsdeck/opsdeck/internal/policy"
	"github.com/opsdeck/opsdeck/internal/runlog"
	"github.com/opsdeck/opsdeck/internal/store"
)

// DefaultJobName identifies the full-cycle pipeline in the run log.
const DefaultJobName = "ops-pipeline"

// Pipeline owns one wired instance of the alerting subsystem.
type Pipeline struct {
	Generator  *generate.Generator
	Dispatcher *policy.Dispatcher
	Tracker    *runlog.Tracker
	Grants     *grant.Store
	Queue      *approval.Queue

	jobName string

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

// New wires a pipeline over a store. The notifier may be nil.
func New(st *store.Store, jobName string, interval time.Duration, notifier *notify.Dispatcher) *Pipeline {
	if jobName == "" {
		jobName = DefaultJobName
	}

	grants := grant.New(st)
	queue := approval.NewQueue(st, grants)

	return &Pipeline{
		Generator: &generate.Generator{Rules: st, Snapshots: st, Alerts: st},
		Dispatcher: &policy.Dispatcher{
			Grants: grants,
			Queue:  queue,
			Alerts: st,
			Notify: notifier.Publish,
		},
		Tracker: &runlog.Tracker{
			Runs:     st,
			Alerts:   st,
			JobName:  jobName,
			Interval: interval,
			Notify:   notifier.Publish,
		},
		Grants:  grants,
		Queue:   queue,
		jobName: jobName,
	}
}

// RunReport is the structured outcome of one full cycle.
type RunReport struct {
	JobName    string          `json:"jobName"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt time.Time       `json:"finishedAt"`
	Candidates int             `json:"candidates"`
	Counters   policy.Counters `json:"counters"`
	Warnings   []string        `json:"warnings,omitempty"`
}

// Generate runs only the evaluator and candidate generator. Zero hits
// is an empty result, not an error.
func (p *Pipeline) Generate(ctx context.Context) (*generate.Result, error) {
	return p.Generator.Generate(ctx)
}

// Run executes the full cycle: generate, dispatch, record the run.
// Internal failures are caught here: the failed JobRun is written
// best-effort, escalation is checked best-effort, and the caller gets
// one definitive error. On success the report carries the dispatch
// counters plus any telemetry warnings.
func (p *Pipeline) Run(ctx context.Context) (*RunReport, error) {
	started := p.now()
	report := &RunReport{JobName: p.jobName, StartedAt: started}

	result, err := p.Generator.Generate(ctx)
	if err != nil {
		report.Warnings = p.recordRun(ctx, report, started, model.RunFailed, err.Error())
		return report, fmt.Errorf("generate: %w", err)
	}
	for _, f := range result.Failures {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("alert write failed for %s/%s: %v", f.Rule.Domain, f.Rule.Metric, f.Err))
	}
	report.Candidates = len(result.Candidates)

	counters, outcome := p.Dispatcher.Dispatch(ctx, result.Candidates)
	report.Counters = counters
	report.Warnings = append(report.Warnings, outcome.Warnings...)
	if outcome.Err != nil {
		report.Warnings = p.recordRun(ctx, report, started, model.RunFailed, outcome.Err.Error())
		return report, fmt.Errorf("dispatch: %w", outcome.Err)
	}

	report.Warnings = p.recordRun(ctx, report, started, model.RunSuccess, runDetails(report))
	return report, nil
}

// recordRun appends the JobRun row and folds telemetry warnings into
// the report. Its own failure never masks the primary result.
func (p *Pipeline) recordRun(ctx context.Context, report *RunReport, started time.Time, status model.RunStatus, details string) []string {
	finished := p.now()
	report.FinishedAt = finished

	outcome := p.Tracker.Record(ctx, model.JobRun{
		Status:     status,
		StartedAt:  started,
		FinishedAt: finished,
		DurationMs: finished.Sub(started).Milliseconds(),
		Details:    details,
	})
	return append(report.Warnings, outcome.Warnings...)
}

// StatusReport is the read-only health view.
type StatusReport struct {
	JobName  string         `json:"jobName"`
	WindowMs int64          `json:"windowMs"`
	Health   *runlog.Health `json:"health,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
}

// Status reads rolling health for a trailing window. Health reads are
// fail-open: a degraded store yields "no data" plus a warning, never
// an error.
func (p *Pipeline) Status(ctx context.Context, window time.Duration) *StatusReport {
	report := &StatusReport{JobName: p.jobName, WindowMs: window.Milliseconds()}

	health, err := p.Tracker.Health(ctx, window)
	if err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("health query degraded: %v", err))
		return report
	}
	report.Health = health
	return report
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now().UTC()
}

func runDetails(report *RunReport) string {
	encoded, err := json.Marshal(map[string]any{
		"candidates": report.Candidates,
		"counters":   report.Counters,
	})
	if err != nil {
		return ""
	}
	return string(encoded)
}
