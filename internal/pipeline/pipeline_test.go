package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/opsdeck/opsdeck/internal/approval"
	"github.com/opsdeck/opsdeck/internal/model"
	"github.com/opsdeck/opsdeck/internal/store"
)

func openPipeline(t *testing.T) (*Pipeline, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "opsdeck.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(st, "ops-pipeline", 30*time.Minute, nil), st
}

func seedCateringScenario(t *testing.T, st *store.Store) {
	t.Helper()
	ctx := context.Background()
	err := st.UpsertRule(ctx, model.ThresholdRule{
		Domain: "work-ops", Metric: "catering_lead_time_hours",
		Operator: model.OpLE, Threshold: 48,
		Severity: model.SevWarning, Enabled: true,
	})
	if err != nil {
		t.Fatalf("UpsertRule: %v", err)
	}
	err = st.PutSnapshot(ctx, "work-ops", map[string]float64{"catering_lead_time_hours": 40}, time.Now().UTC())
	if err != nil {
		t.Fatalf("PutSnapshot: %v", err)
	}
}

// Worked example: a violating yellow candidate queues once, approval
// creates a reusable grant, and the next run auto-executes.
func TestApproveOnceThenReusable(t *testing.T) {
	ctx := context.Background()
	p, st := openPipeline(t)
	seedCateringScenario(t, st)

	report, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if report.Candidates != 1 {
		t.Fatalf("candidates = %d, want 1", report.Candidates)
	}
	if report.Counters.Blocked != 1 || report.Counters.ApprovalQueued != 1 || report.Counters.AutoExecuted != 0 {
		t.Fatalf("first run counters = %+v", report.Counters)
	}

	pending, err := p.Queue.ListPending(ctx)
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending = %v (err %v), want one item", pending, err)
	}
	item := pending[0]
	if item.Tier != model.TierYellow {
		t.Errorf("tier = %v, want yellow", item.Tier)
	}
	if item.ActionKey != "work-ops:catering_lead_time_hours:<=:48" {
		t.Errorf("action key = %q", item.ActionKey)
	}

	// Re-running before the decision must not flood the inbox.
	report, err = p.Run(ctx)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if report.Counters.ApprovalQueued != 0 || report.Counters.Blocked != 1 {
		t.Errorf("dedup counters = %+v", report.Counters)
	}

	if _, err := p.Queue.Decide(ctx, item.ID, approval.Approve); err != nil {
		t.Fatalf("Decide: %v", err)
	}
	granted, err := p.Grants.IsGranted(ctx, item.ActionKey)
	if err != nil || !granted {
		t.Fatalf("grant missing after approval: granted=%v err=%v", granted, err)
	}

	report, err = p.Run(ctx)
	if err != nil {
		t.Fatalf("third Run: %v", err)
	}
	want := "autoExecuted=1 grantsUsed=1 blocked=0"
	got := report.Counters
	if got.AutoExecuted != 1 || got.GrantsUsed != 1 || got.Blocked != 0 {
		t.Errorf("granted run counters = %+v, want %s", got, want)
	}

	// Revoking the grant gates the action again.
	if err := p.Grants.Revoke(ctx, item.ActionKey); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	report, err = p.Run(ctx)
	if err != nil {
		t.Fatalf("post-revoke Run: %v", err)
	}
	if report.Counters.Blocked != 1 || report.Counters.AutoExecuted != 0 {
		t.Errorf("post-revoke counters = %+v", report.Counters)
	}
}

func TestRunWithNothingToDo(t *testing.T) {
	ctx := context.Background()
	p, _ := openPipeline(t)

	report, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Candidates != 0 {
		t.Errorf("candidates = %d, want 0", report.Candidates)
	}
	if c := report.Counters; c.AutoExecuted+c.ApprovalQueued+c.Blocked+c.GrantsUsed != 0 {
		t.Errorf("counters = %+v, want zeros", c)
	}

	// The run itself is still recorded.
	status := p.Status(ctx, 24*time.Hour)
	if status.Health == nil || status.Health.Total != 1 {
		t.Errorf("status after empty run = %+v", status.Health)
	}
	if status.Health.LastRun == nil || status.Health.LastRun.Status != model.RunSuccess {
		t.Errorf("last run = %+v", status.Health.LastRun)
	}
}

func TestGreenCandidateExecutesImmediately(t *testing.T) {
	ctx := context.Background()
	p, st := openPipeline(t)

	st.UpsertRule(ctx, model.ThresholdRule{
		Domain: "home", Metric: "open_chores",
		Operator: model.OpGE, Threshold: 5,
		Severity: model.SevInfo, Enabled: true,
	})
	st.PutSnapshot(ctx, "home", map[string]float64{"open_chores": 9}, time.Now().UTC())

	report, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Counters.AutoExecuted != 1 || report.Counters.Blocked != 0 {
		t.Errorf("counters = %+v", report.Counters)
	}

	pending, _ := p.Queue.ListPending(ctx)
	if len(pending) != 0 {
		t.Errorf("green candidate queued: %+v", pending)
	}

	// Violation alert + execution alert.
	alerts, err := st.RecentAlerts(ctx, 10)
	if err != nil {
		t.Fatalf("RecentAlerts: %v", err)
	}
	if len(alerts) != 2 {
		t.Errorf("got %d alerts, want 2", len(alerts))
	}
}

func TestFinanceNeverExecutes(t *testing.T) {
	ctx := context.Background()
	p, st := openPipeline(t)

	st.UpsertRule(ctx, model.ThresholdRule{
		Domain: "finance", Metric: "burn_rate",
		Operator: model.OpGT, Threshold: 1200,
		Severity: model.SevInfo, Enabled: true, // even info-severity finance is red
	})
	st.PutSnapshot(ctx, "finance", map[string]float64{"burn_rate": 1500}, time.Now().UTC())

	report, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Counters.Blocked != 1 || report.Counters.AutoExecuted != 0 {
		t.Fatalf("counters = %+v", report.Counters)
	}

	// Approving a red item must not create a grant.
	pending, _ := p.Queue.ListPending(ctx)
	if _, err := p.Queue.Decide(ctx, pending[0].ID, approval.Approve); err != nil {
		t.Fatalf("Decide: %v", err)
	}
	grants, err := p.Grants.List(ctx)
	if err != nil {
		t.Fatalf("List grants: %v", err)
	}
	if len(grants) != 0 {
		t.Errorf("red approval produced grants: %+v", grants)
	}

	// The same violation queues again and stays blocked.
	report, err = p.Run(ctx)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if report.Counters.Blocked != 1 || report.Counters.ApprovalQueued != 1 {
		t.Errorf("second run counters = %+v", report.Counters)
	}
}

func TestStatusWithNoHistory(t *testing.T) {
	p, _ := openPipeline(t)
	status := p.Status(context.Background(), 24*time.Hour)
	if status.Health == nil {
		t.Fatal("health nil on healthy store")
	}
	if status.Health.Total != 0 || status.Health.SuccessRate != nil || status.Health.NextDueAt != nil {
		t.Errorf("empty history = %+v", status.Health)
	}
}
