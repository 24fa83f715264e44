// Package notify fans out alert events to webhook destinations.
// Delivery is best-effort; a failed webhook never affects the pipeline.
package notify

// WebhookConfig defines one webhook alert destination.
type WebhookConfig struct {
	URL     string            `yaml:"url"     json:"url"`
	Format  string            `yaml:"format"  json:"format"` // "generic", "slack", "pagerduty"
	Events  []string          `yaml:"events"  json:"events"` // severities ("critical") or source tags ("job-monitor/escalation")
	Headers map[string]string `yaml:"headers" json:"headers"`
}
