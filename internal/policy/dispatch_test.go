package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/opsdeck/opsdeck/internal/model"
)

type fakeGranter struct {
	granted map[string]bool
	checked []string
	err     error
}

func (f *fakeGranter) IsGranted(ctx context.Context, key string) (bool, error) {
	f.checked = append(f.checked, key)
	if f.err != nil {
		return false, f.err
	}
	return f.granted[key], nil
}

type fakeQueue struct {
	pending map[string]bool
	err     error
}

func (f *fakeQueue) EnqueueIfAbsent(ctx context.Context, c model.ActionCandidate, tier model.Tier) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.pending == nil {
		f.pending = make(map[string]bool)
	}
	if f.pending[c.Key()] {
		return false, nil
	}
	f.pending[c.Key()] = true
	return true, nil
}

type fakeAlerts struct {
	written []model.AlertEvent
	err     error
}

func (f *fakeAlerts) AppendAlert(ctx context.Context, a model.AlertEvent) error {
	if f.err != nil {
		return f.err
	}
	f.written = append(f.written, a)
	return nil
}

func newDispatcher() (*Dispatcher, *fakeGranter, *fakeQueue, *fakeAlerts) {
	grants := &fakeGranter{granted: make(map[string]bool)}
	queue := &fakeQueue{}
	alerts := &fakeAlerts{}
	return &Dispatcher{Grants: grants, Queue: queue, Alerts: alerts}, grants, queue, alerts
}

func greenCandidate() model.ActionCandidate {
	return model.ActionCandidate{Domain: "home", Metric: "open_chores", Operator: model.OpGE, Threshold: 5, Value: 7, Severity: model.SevInfo}
}

func yellowCandidate() model.ActionCandidate {
	return model.ActionCandidate{Domain: "work-ops", Metric: "catering_lead_time_hours", Operator: model.OpLE, Threshold: 48, Value: 40, Severity: model.SevWarning}
}

func redCandidate() model.ActionCandidate {
	return model.ActionCandidate{Domain: "finance", Metric: "burn_rate", Operator: model.OpGT, Threshold: 1200, Value: 1500, Severity: model.SevCritical}
}

func TestDispatchGreenExecutes(t *testing.T) {
	d, _, _, alerts := newDispatcher()

	counters, outcome := d.Dispatch(context.Background(), []model.ActionCandidate{greenCandidate()})
	if !outcome.OK() {
		t.Fatalf("Dispatch: %v", outcome.Err)
	}
	if counters != (Counters{AutoExecuted: 1}) {
		t.Errorf("counters = %+v", counters)
	}
	if len(alerts.written) != 1 || alerts.written[0].Source != SourceGreen {
		t.Errorf("green execution alert wrong: %+v", alerts.written)
	}
}

func TestDispatchYellowWithoutGrantBlocks(t *testing.T) {
	d, _, queue, _ := newDispatcher()
	c := yellowCandidate()

	counters, outcome := d.Dispatch(context.Background(), []model.ActionCandidate{c})
	if !outcome.OK() {
		t.Fatalf("Dispatch: %v", outcome.Err)
	}
	want := Counters{Blocked: 1, ApprovalQueued: 1}
	if counters != want {
		t.Errorf("counters = %+v, want %+v", counters, want)
	}
	if !queue.pending[c.Key()] {
		t.Error("candidate not queued")
	}
}

func TestDispatchYellowDuplicateOnlyBlocks(t *testing.T) {
	d, _, _, _ := newDispatcher()
	c := yellowCandidate()
	ctx := context.Background()

	d.Dispatch(ctx, []model.ActionCandidate{c})
	counters, outcome := d.Dispatch(ctx, []model.ActionCandidate{c})
	if !outcome.OK() {
		t.Fatalf("Dispatch: %v", outcome.Err)
	}
	want := Counters{Blocked: 1} // still blocked, but no new queue item
	if counters != want {
		t.Errorf("counters = %+v, want %+v", counters, want)
	}
}

func TestDispatchYellowWithGrantExecutes(t *testing.T) {
	d, grants, queue, alerts := newDispatcher()
	c := yellowCandidate()
	grants.granted[c.Key()] = true

	counters, outcome := d.Dispatch(context.Background(), []model.ActionCandidate{c})
	if !outcome.OK() {
		t.Fatalf("Dispatch: %v", outcome.Err)
	}
	want := Counters{AutoExecuted: 1, GrantsUsed: 1}
	if counters != want {
		t.Errorf("counters = %+v, want %+v", counters, want)
	}
	if len(queue.pending) != 0 {
		t.Error("granted candidate was queued")
	}
	if len(alerts.written) != 1 || alerts.written[0].Source != SourceYellow {
		t.Errorf("yellow execution alert wrong: %+v", alerts.written)
	}
}

func TestDispatchRedNeverConsultsGrants(t *testing.T) {
	d, grants, queue, _ := newDispatcher()
	c := redCandidate()
	grants.granted[c.Key()] = true // even an (illegal) grant must be ignored

	counters, outcome := d.Dispatch(context.Background(), []model.ActionCandidate{c})
	if !outcome.OK() {
		t.Fatalf("Dispatch: %v", outcome.Err)
	}
	want := Counters{Blocked: 1, ApprovalQueued: 1}
	if counters != want {
		t.Errorf("counters = %+v, want %+v", counters, want)
	}
	if len(grants.checked) != 0 {
		t.Errorf("grants consulted for red candidate: %v", grants.checked)
	}
	if !queue.pending[c.Key()] {
		t.Error("red candidate not queued")
	}
}

func TestDispatchGrantReadFailureFailsClosed(t *testing.T) {
	d, grants, queue, _ := newDispatcher()
	grants.err = errors.New("db locked")

	counters, outcome := d.Dispatch(context.Background(), []model.ActionCandidate{yellowCandidate()})
	if !outcome.OK() {
		t.Fatalf("grant read failure became primary error: %v", outcome.Err)
	}
	if len(outcome.Warnings) != 1 {
		t.Errorf("degraded grant read not surfaced: %v", outcome.Warnings)
	}
	want := Counters{Blocked: 1, ApprovalQueued: 1}
	if counters != want {
		t.Errorf("counters = %+v, want %+v", counters, want)
	}
	if len(queue.pending) != 1 {
		t.Error("candidate not queued on degraded grant read")
	}
}

func TestDispatchCounterExactness(t *testing.T) {
	d, grants, _, _ := newDispatcher()
	granted := yellowCandidate()
	grants.granted[granted.Key()] = true

	other := yellowCandidate()
	other.Metric = "catering_lead_time_hours"
	other.Threshold = 24 // different action key, no grant

	batch := []model.ActionCandidate{
		greenCandidate(),
		granted,
		other,
		redCandidate(),
		{Domain: "media", Metric: "queue_depth", Operator: model.OpGT, Threshold: 100, Value: 150, Severity: model.SevCritical},
	}

	counters, outcome := d.Dispatch(context.Background(), batch)
	if !outcome.OK() {
		t.Fatalf("Dispatch: %v", outcome.Err)
	}
	if got := counters.AutoExecuted + counters.Blocked; got != len(batch) {
		t.Errorf("autoExecuted + blocked = %d, want %d", got, len(batch))
	}
	if counters.GrantsUsed > counters.AutoExecuted {
		t.Errorf("grantsUsed %d > autoExecuted %d", counters.GrantsUsed, counters.AutoExecuted)
	}
	want := Counters{AutoExecuted: 2, GrantsUsed: 1, Blocked: 3, ApprovalQueued: 3}
	if counters != want {
		t.Errorf("counters = %+v, want %+v", counters, want)
	}
}

func TestDispatchQueueFailureAborts(t *testing.T) {
	d, _, queue, _ := newDispatcher()
	queue.err = errors.New("insert failed")

	_, outcome := d.Dispatch(context.Background(), []model.ActionCandidate{redCandidate()})
	if outcome.OK() {
		t.Fatal("queue write failure did not abort dispatch")
	}
}

func TestDispatchExecuteFailureAborts(t *testing.T) {
	d, _, _, alerts := newDispatcher()
	alerts.err = errors.New("disk full")

	_, outcome := d.Dispatch(context.Background(), []model.ActionCandidate{greenCandidate()})
	if outcome.OK() {
		t.Fatal("execution alert write failure did not abort dispatch")
	}
}

func TestDispatchNotifyReceivesExecutions(t *testing.T) {
	d, _, _, _ := newDispatcher()
	var notified []model.AlertEvent
	d.Notify = func(a model.AlertEvent) { notified = append(notified, a) }

	d.Dispatch(context.Background(), []model.ActionCandidate{greenCandidate(), redCandidate()})
	if len(notified) != 1 {
		t.Errorf("notified %d events, want 1 (executions only)", len(notified))
	}
}
