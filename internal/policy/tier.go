// Package policy maps action candidates to approval tiers and routes
// them: green executes unattended, yellow executes only under an
// active grant, red always queues for approval.
package policy

import (
	"github.com/opsdeck/opsdeck/internal/model"
)

// tierRule is one row of the classification table. Rules are evaluated
// in order; the first match wins.
type tierRule struct {
	Name  string
	Match func(model.ActionCandidate) bool
	Tier  model.Tier
}

// tierTable is the full policy mapping. It is a pure function of the
// candidate (no runtime configuration), so classification is
// deterministic and testable in isolation. New domains fall through to
// the named default instead of silently picking up an unrelated branch.
var tierTable = []tierRule{
	{
		Name:  "finance-always-red",
		Match: func(c model.ActionCandidate) bool { return c.Domain == "finance" },
		Tier:  model.TierRed,
	},
	{
		Name: "work-ops-catering-yellow",
		Match: func(c model.ActionCandidate) bool {
			return c.Domain == "work-ops" && c.Metric == "catering_lead_time_hours"
		},
		Tier: model.TierYellow,
	},
	{
		Name: "home-info-green",
		Match: func(c model.ActionCandidate) bool {
			return c.Domain == "home" && c.Severity == model.SevInfo
		},
		Tier: model.TierGreen,
	},
}

// defaultRuleName labels the fallthrough case for ClassifyWithRule.
const defaultRuleName = "default-by-severity"

// Classify returns the approval tier for a candidate.
func Classify(c model.ActionCandidate) model.Tier {
	tier, _ := ClassifyWithRule(c)
	return tier
}

// ClassifyWithRule returns the tier plus the name of the table row that
// decided it, for audit titles and tests.
func ClassifyWithRule(c model.ActionCandidate) (model.Tier, string) {
	for _, rule := range tierTable {
		if rule.Match(c) {
			return rule.Tier, rule.Name
		}
	}
	if c.Severity == model.SevCritical {
		return model.TierRed, defaultRuleName
	}
	return model.TierYellow, defaultRuleName
}
