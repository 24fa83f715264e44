package store

import (
	"context"
	"fmt"

	"github.com/opsdeck/opsdeck/internal/model"
)

// EnabledRules returns every enabled threshold rule, ordered by id so
// evaluation order is deterministic across invocations.
func (s *Store) EnabledRules(ctx context.Context) ([]model.ThresholdRule, error) {
	return s.listRules(ctx, `WHERE enabled = 1`)
}

// ListRules returns all threshold rules, enabled or not.
func (s *Store) ListRules(ctx context.Context) ([]model.ThresholdRule, error) {
	return s.listRules(ctx, ``)
}

func (s *Store) listRules(ctx context.Context, where string) ([]model.ThresholdRule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, domain, metric, operator, threshold, severity, enabled
FROM threshold_rules `+where+`
ORDER BY id
`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var rules []model.ThresholdRule
	for rows.Next() {
		var r model.ThresholdRule
		if err := rows.Scan(&r.ID, &r.Domain, &r.Metric, &r.Operator, &r.Threshold, &r.Severity, &r.Enabled); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return rules, nil
}

// UpsertRule inserts a rule or, when a rule with the same
// (domain, metric, operator, threshold) exists, updates its severity
// and enabled flag. Used by rule-file imports.
func (s *Store) UpsertRule(ctx context.Context, r model.ThresholdRule) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.Domain == "" || r.Metric == "" {
		return fmt.Errorf("rule domain and metric are required")
	}
	if !model.ValidOperator(r.Operator) {
		return fmt.Errorf("unsupported operator %q", r.Operator)
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO threshold_rules (domain, metric, operator, threshold, severity, enabled)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(domain, metric, operator, threshold) DO UPDATE SET
	severity = excluded.severity,
	enabled = excluded.enabled
`, r.Domain, r.Metric, string(r.Operator), r.Threshold, string(r.Severity), r.Enabled)
	if err != nil {
		return fmt.Errorf("upsert rule: %w", err)
	}
	return nil
}
