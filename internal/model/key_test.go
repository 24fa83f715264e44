package model

import "testing"

func TestActionKeyStableFormatting(t *testing.T) {
	tests := []struct {
		threshold float64
		want      string
	}{
		{48, "work-ops:catering_lead_time_hours:<=:48"},
		{48.0, "work-ops:catering_lead_time_hours:<=:48"},
		{48.5, "work-ops:catering_lead_time_hours:<=:48.5"},
		{0.1, "work-ops:catering_lead_time_hours:<=:0.1"},
		{-3, "work-ops:catering_lead_time_hours:<=:-3"},
	}

	for _, tt := range tests {
		got := ActionKey("work-ops", "catering_lead_time_hours", OpLE, tt.threshold)
		if got != tt.want {
			t.Errorf("ActionKey(%v) = %q, want %q", tt.threshold, got, tt.want)
		}
	}
}

func TestCandidateKeyMatchesActionKey(t *testing.T) {
	c := ActionCandidate{
		Domain:    "finance",
		Metric:    "burn_rate",
		Operator:  OpGT,
		Threshold: 1200,
		Value:     1500,
		Severity:  SevCritical,
	}
	want := ActionKey("finance", "burn_rate", OpGT, 1200)
	if c.Key() != want {
		t.Errorf("Key() = %q, want %q", c.Key(), want)
	}
}

func TestKeyIgnoresObservedValue(t *testing.T) {
	a := ActionCandidate{Domain: "home", Metric: "open_chores", Operator: OpGE, Threshold: 10, Value: 11}
	b := ActionCandidate{Domain: "home", Metric: "open_chores", Operator: OpGE, Threshold: 10, Value: 42}
	if a.Key() != b.Key() {
		t.Errorf("keys differ for same action: %q vs %q", a.Key(), b.Key())
	}
}

func TestValidOperator(t *testing.T) {
	for _, op := range []Operator{OpLT, OpLE, OpGT, OpGE, OpEQ, "=="} {
		if !ValidOperator(op) {
			t.Errorf("ValidOperator(%q) = false, want true", op)
		}
	}
	for _, op := range []Operator{"!=", "<>", "", "gte"} {
		if ValidOperator(op) {
			t.Errorf("ValidOperator(%q) = true, want false", op)
		}
	}
}
