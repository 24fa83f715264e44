package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/opsdeck/opsdeck/internal/model"
)

// ruleSpec is the YAML shape of one threshold rule.
type ruleSpec struct {
	Domain    string  `yaml:"domain"`
	Metric    string  `yaml:"metric"`
	Operator  string  `yaml:"operator"`
	Threshold float64 `yaml:"threshold"`
	Severity  string  `yaml:"severity"`
	Enabled   *bool   `yaml:"enabled"` // defaults to true when omitted
}

type rulesFile struct {
	Rules []ruleSpec `yaml:"rules"`
}

// LoadRulesFile parses a YAML rule set. Every rule is validated; one
// bad rule fails the whole file so a partial import never silently
// disables alerting.
func LoadRulesFile(path string) ([]model.ThresholdRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}

	rules := make([]model.ThresholdRule, 0, len(file.Rules))
	for i, spec := range file.Rules {
		rule, err := spec.toRule()
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (s ruleSpec) toRule() (model.ThresholdRule, error) {
	if s.Domain == "" || s.Metric == "" {
		return model.ThresholdRule{}, fmt.Errorf("domain and metric are required")
	}
	op := model.Operator(s.Operator)
	if !model.ValidOperator(op) {
		return model.ThresholdRule{}, fmt.Errorf("unsupported operator %q", s.Operator)
	}

	severity := model.Severity(s.Severity)
	switch severity {
	case model.SevInfo, model.SevWarning, model.SevCritical:
	case "":
		severity = model.SevWarning
	default:
		return model.ThresholdRule{}, fmt.Errorf("unknown severity %q", s.Severity)
	}

	enabled := true
	if s.Enabled != nil {
		enabled = *s.Enabled
	}

	return model.ThresholdRule{
		Domain:    s.Domain,
		Metric:    s.Metric,
		Operator:  op,
		Threshold: s.Threshold,
		Severity:  severity,
		Enabled:   enabled,
	}, nil
}
