package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/opsdeck/opsdeck/internal/model"
)

// FormatPayload builds the webhook body for the given format.
func FormatPayload(format string, event model.AlertEvent) ([]byte, error) {
	switch format {
	case "slack":
		return formatSlack(event)
	case "pagerduty":
		return formatPagerDuty(event)
	default:
		return formatGeneric(event)
	}
}

func formatGeneric(event model.AlertEvent) ([]byte, error) {
	return json.Marshal(map[string]any{
		"id":        event.ID,
		"domain":    event.Domain,
		"title":     event.Title,
		"severity":  string(event.Severity),
		"source":    event.Source,
		"timestamp": event.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func formatSlack(event model.AlertEvent) ([]byte, error) {
	payload := map[string]any{
		"blocks": []any{
			map[string]any{
				"type": "header",
				"text": map[string]any{
					"type": "plain_text",
					"text": fmt.Sprintf("opsdeck: %s", event.Title),
				},
			},
			map[string]any{
				"type": "section",
				"fields": []any{
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Domain:* %s", event.Domain)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Severity:* %s", event.Severity)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Source:* %s", event.Source)},
				},
			},
		},
	}
	return json.Marshal(payload)
}

func formatPagerDuty(event model.AlertEvent) ([]byte, error) {
	severity := "info"
	switch event.Severity {
	case model.SevCritical:
		severity = "critical"
	case model.SevWarning:
		severity = "warning"
	}

	payload := map[string]any{
		"event_action": "trigger",
		"payload": map[string]any{
			"summary":  event.Title,
			"severity": severity,
			"source":   "opsdeck",
			"custom_details": map[string]any{
				"domain":   event.Domain,
				"alert_id": event.ID,
				"origin":   event.Source,
			},
		},
	}
	return json.Marshal(payload)
}
