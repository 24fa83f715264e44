package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opsdeck/opsdeck/internal/model"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.JobName != "ops-pipeline" || cfg.Interval != "30m" {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestLoadOverlaysOnlySpecifiedFields(t *testing.T) {
	path := writeFile(t, "config.yaml", `
interval: 15m
webhooks:
  - url: https://hooks.example.com/ops
    format: slack
    events: [critical]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Interval != "15m" {
		t.Errorf("interval = %q", cfg.Interval)
	}
	if cfg.JobName != "ops-pipeline" {
		t.Errorf("unspecified field lost default: %q", cfg.JobName)
	}
	if len(cfg.Webhooks) != 1 || cfg.Webhooks[0].Format != "slack" {
		t.Errorf("webhooks = %+v", cfg.Webhooks)
	}

	d, err := cfg.IntervalDuration()
	if err != nil || d != 15*time.Minute {
		t.Errorf("IntervalDuration = %v, %v", d, err)
	}
}

func TestLoadInvalidYAMLFails(t *testing.T) {
	path := writeFile(t, "config.yaml", "interval: [not a scalar\n")
	if _, err := Load(path); err == nil {
		t.Fatal("invalid YAML accepted")
	}
}

func TestIntervalValidation(t *testing.T) {
	cfg := Default()
	cfg.Interval = "-5m"
	if _, err := cfg.IntervalDuration(); err == nil {
		t.Error("negative interval accepted")
	}
	cfg.Interval = "soon"
	if _, err := cfg.IntervalDuration(); err == nil {
		t.Error("garbage interval accepted")
	}
}

func TestLoadRulesFile(t *testing.T) {
	path := writeFile(t, "rules.yaml", `
rules:
  - domain: work-ops
    metric: catering_lead_time_hours
    operator: "<="
    threshold: 48
    severity: warning
  - domain: finance
    metric: burn_rate
    operator: ">"
    threshold: 1200
    severity: critical
    enabled: false
`)
	rules, err := LoadRulesFile(path)
	if err != nil {
		t.Fatalf("LoadRulesFile: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(rules))
	}
	if !rules[0].Enabled {
		t.Error("omitted enabled did not default to true")
	}
	if rules[0].Operator != model.OpLE || rules[0].Severity != model.SevWarning {
		t.Errorf("rule 0 = %+v", rules[0])
	}
	if rules[1].Enabled {
		t.Error("explicit enabled: false ignored")
	}
}

func TestLoadRulesFileRejectsBadRule(t *testing.T) {
	path := writeFile(t, "rules.yaml", `
rules:
  - domain: work-ops
    metric: x
    operator: "~="
    threshold: 1
`)
	if _, err := LoadRulesFile(path); err == nil {
		t.Fatal("bad operator accepted")
	}

	path = writeFile(t, "rules2.yaml", `
rules:
  - domain: home
    metric: y
    operator: ">"
    threshold: 1
    severity: catastrophic
`)
	if _, err := LoadRulesFile(path); err == nil {
		t.Fatal("unknown severity accepted")
	}
}
