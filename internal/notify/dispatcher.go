package notify

import (
	"fmt"
	"os"
	"sync"

	"github.com/opsdeck/opsdeck/internal/model"
)

// Dispatcher fans out alert events to matching webhook configurations.
type Dispatcher struct {
	configs []WebhookConfig
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher from webhook configurations.
// Returns nil if configs is empty (callers should nil-check).
func NewDispatcher(configs []WebhookConfig) *Dispatcher {
	if len(configs) == 0 {
		return nil
	}
	return &Dispatcher{configs: configs}
}

// Publish sends the event to all webhooks whose Events list matches its
// severity or source tag. Fires goroutines and does not block the caller.
// Failures go to stderr and nowhere else.
func (d *Dispatcher) Publish(event model.AlertEvent) {
	if d == nil {
		return
	}
	for _, cfg := range d.configs {
		if !matches(cfg.Events, event) {
			continue
		}
		d.wg.Add(1)
		go func(cfg WebhookConfig) {
			defer d.wg.Done()
			if err := Send(cfg, event); err != nil {
				fmt.Fprintf(os.Stderr, "webhook %s: %v\n", cfg.URL, err)
			}
		}(cfg)
	}
}

// Wait blocks until all in-flight deliveries finish. One-shot CLI
// invocations call this before exiting so no delivery is cut off.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}

func matches(events []string, event model.AlertEvent) bool {
	for _, e := range events {
		if e == string(event.Severity) || e == event.Source {
			return true
		}
	}
	return false
}
