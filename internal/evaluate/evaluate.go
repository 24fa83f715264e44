// Package evaluate compares metric snapshots against threshold rules.
// It is side-effect free; persistence and alerting happen downstream.
package evaluate

import (
	"github.com/opsdeck/opsdeck/internal/model"
)

// Hit pairs a violated rule with the metric value that violated it.
type Hit struct {
	Rule  model.ThresholdRule
	Value float64
}

// Evaluate checks every enabled rule against the latest snapshot of its
// domain. Rules whose domain has no snapshot, or whose metric is absent
// from the snapshot, produce no hit: a missing snapshot is a valid
// state, not an error. The returned order follows the rule order.
func Evaluate(rules []model.ThresholdRule, snapshots map[string]model.MetricSnapshot) []Hit {
	var hits []Hit
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		snap, ok := snapshots[rule.Domain]
		if !ok {
			continue
		}
		value, ok := snap.Metrics[rule.Metric]
		if !ok {
			continue
		}
		if Compare(rule.Operator, value, rule.Threshold) {
			hits = append(hits, Hit{Rule: rule, Value: value})
		}
	}
	return hits
}

// Compare applies a threshold operator. Numeric comparison only, no
// coercion; "=" is exact equality, which is known-fragile for floating
// metrics and deliberately left that way. Unknown operators never match.
func Compare(op model.Operator, value, threshold float64) bool {
	switch op {
	case model.OpLT:
		return value < threshold
	case model.OpLE:
		return value <= threshold
	case model.OpGT:
		return value > threshold
	case model.OpGE:
		return value >= threshold
	case model.OpEQ, "==":
		return value == threshold
	default:
		return false
	}
}
