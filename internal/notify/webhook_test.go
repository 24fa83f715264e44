package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opsdeck/opsdeck/internal/model"
)

func testEvent() model.AlertEvent {
	return model.AlertEvent{
		ID:        "a-1756728000000-abc123",
		Domain:    "ops-pipeline",
		Title:     "ops-pipeline failed twice in a row",
		Severity:  model.SevCritical,
		Source:    "job-monitor/escalation",
		CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSendSuccess(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := WebhookConfig{URL: srv.URL, Format: "generic", Headers: map[string]string{"X-Token": "t"}}
	if err := Send(cfg, testEvent()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got["severity"] != "critical" || got["domain"] != "ops-pipeline" {
		t.Errorf("payload = %v", got)
	}
}

func TestSendRetriesOn5xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := Send(WebhookConfig{URL: srv.URL}, testEvent()); err != nil {
		t.Fatalf("Send after retries: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("got %d attempts, want 3", calls.Load())
	}
}

func TestSend4xxIsTerminal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	if err := Send(WebhookConfig{URL: srv.URL}, testEvent()); err == nil {
		t.Fatal("expected error on 403")
	}
	if calls.Load() != 1 {
		t.Errorf("4xx retried: %d attempts", calls.Load())
	}
}

func TestDispatcherMatching(t *testing.T) {
	tests := []struct {
		events []string
		want   bool
	}{
		{[]string{"critical"}, true},
		{[]string{"job-monitor/escalation"}, true},
		{[]string{"warning", "auto-executed/green"}, false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := matches(tt.events, testEvent()); got != tt.want {
			t.Errorf("matches(%v) = %v, want %v", tt.events, got, tt.want)
		}
	}
}

func TestDispatcherPublishAndWait(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher([]WebhookConfig{
		{URL: srv.URL, Events: []string{"critical"}},
		{URL: srv.URL, Events: []string{"info"}}, // no match
	})
	d.Publish(testEvent())
	d.Wait()

	if calls.Load() != 1 {
		t.Errorf("got %d deliveries, want 1", calls.Load())
	}
}

func TestNilDispatcherIsSafe(t *testing.T) {
	var d *Dispatcher
	d.Publish(testEvent()) // must not panic
	d.Wait()
	if NewDispatcher(nil) != nil {
		t.Error("empty config did not yield nil dispatcher")
	}
}

func TestFormatPayloads(t *testing.T) {
	for _, format := range []string{"generic", "slack", "pagerduty", ""} {
		body, err := FormatPayload(format, testEvent())
		if err != nil {
			t.Fatalf("FormatPayload(%q): %v", format, err)
		}
		if !json.Valid(body) {
			t.Errorf("FormatPayload(%q) produced invalid JSON", format)
		}
	}

	body, _ := FormatPayload("pagerduty", testEvent())
	var pd struct {
		EventAction string `json:"event_action"`
		Payload     struct {
			Severity string `json:"severity"`
		} `json:"payload"`
	}
	json.Unmarshal(body, &pd)
	if pd.EventAction != "trigger" || pd.Payload.Severity != "critical" {
		t.Errorf("pagerduty payload = %+v", pd)
	}
}
