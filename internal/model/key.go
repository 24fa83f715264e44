package model

import (
	"fmt"
	"strconv"
)

// ActionKey builds the deterministic key identifying a recurring policy
// decision point: domain:metric:operator:threshold. Two candidates with
// the same key are the same action regardless of when they were produced.
func ActionKey(domain, metric string, op Operator, threshold float64) string {
	return fmt.Sprintf("%s:%s:%s:%s", domain, metric, op, FormatThreshold(threshold))
}

// Key returns the candidate's action key.
func (c ActionCandidate) Key() string {
	return ActionKey(c.Domain, c.Metric, c.Operator, c.Threshold)
}

// FormatThreshold renders a threshold with the shortest exact decimal
// form (48 not 48.000000), so action keys are stable across float
// formatting paths.
func FormatThreshold(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
