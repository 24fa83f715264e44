// Package generate turns threshold violations into persisted alert
// events and normalized action candidates for the policy dispatcher.
package generate

import (
	"context"
	"fmt"
	"time"

	"github.com/opsdeck/opsdeck/internal/evaluate"
	"github.com/opsdeck/opsdeck/internal/model"
)

// Source tag carried by every candidate this stage emits.
const Source = "threshold-scan"

// RuleSource provides the enabled rule set.
type RuleSource interface {
	EnabledRules(ctx context.Context) ([]model.ThresholdRule, error)
}

// SnapshotSource provides the latest metric snapshot per domain.
type SnapshotSource interface {
	LatestSnapshots(ctx context.Context) (map[string]model.MetricSnapshot, error)
}

// AlertWriter appends alert events.
type AlertWriter interface {
	AppendAlert(ctx context.Context, a model.AlertEvent) error
}

// RuleFailure records a rule whose alert write failed. Other rules are
// unaffected.
type RuleFailure struct {
	Rule model.ThresholdRule
	Err  error
}

// Result is the outcome of one generation pass. Zero hits yields an
// empty result with a nil error, distinct from a failed
// evaluation, so callers never alert on "nothing to do".
type Result struct {
	Candidates []model.ActionCandidate
	Alerts     []model.AlertEvent
	Failures   []RuleFailure
}

// Generator evaluates thresholds and emits alerts plus candidates.
type Generator struct {
	Rules     RuleSource
	Snapshots SnapshotSource
	Alerts    AlertWriter

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

// Generate runs one evaluation pass. Rule and snapshot read failures
// are primary errors; a failed alert write fails only that rule and the
// rest proceed.
func (g *Generator) Generate(ctx context.Context) (*Result, error) {
	rules, err := g.Rules.EnabledRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	snapshots, err := g.Snapshots.LatestSnapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}

	result := &Result{}
	for _, hit := range evaluate.Evaluate(rules, snapshots) {
		alert := model.AlertEvent{
			ID:        NewAlertID(g.now()),
			Domain:    hit.Rule.Domain,
			Title:     violationTitle(hit),
			Severity:  hit.Rule.Severity,
			Source:    Source,
			CreatedAt: g.now(),
		}
		if err := g.Alerts.AppendAlert(ctx, alert); err != nil {
			result.Failures = append(result.Failures, RuleFailure{Rule: hit.Rule, Err: err})
			continue
		}
		result.Alerts = append(result.Alerts, alert)
		result.Candidates = append(result.Candidates, model.ActionCandidate{
			Domain:    hit.Rule.Domain,
			Metric:    hit.Rule.Metric,
			Value:     hit.Value,
			Threshold: hit.Rule.Threshold,
			Operator:  hit.Rule.Operator,
			Severity:  hit.Rule.Severity,
			Source:    Source,
		})
	}
	return result, nil
}

func (g *Generator) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now().UTC()
}

func violationTitle(hit evaluate.Hit) string {
	return fmt.Sprintf("%s: %s %s %s (observed %s)",
		hit.Rule.Domain, hit.Rule.Metric, hit.Rule.Operator,
		model.FormatThreshold(hit.Rule.Threshold), model.FormatThreshold(hit.Value))
}
