package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// rulesWatcher re-imports the rules file when it changes.
type rulesWatcher struct {
	watcher *fsnotify.Watcher
	env     *env
	path    string
}

func newRulesWatcher(e *env, path string) (*rulesWatcher, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %q: %w", path, err)
	}
	return &rulesWatcher{watcher: watcher, env: e, path: path}, nil
}

// Run blocks until ctx is cancelled, re-importing after changes settle.
func (r *rulesWatcher) Run(ctx context.Context) {
	defer r.watcher.Close()

	// Debounce: wait 500ms after the last write before re-importing
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return

		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, func() {
					if err := importRules(ctx, r.env, r.path); err != nil {
						fmt.Fprintf(os.Stderr, "hot-reload failed: %v\n", err)
					}
				})
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			fmt.Fprintf(os.Stderr, "file watcher error: %v\n", err)
		}
	}
}
