package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/opsdeck/opsdeck/internal/config"
)

var serveOnce bool

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveOnce, "once", false, "Run a single cycle and exit")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pipeline on an interval",
	Long:  "Executes a full cycle immediately and then on the configured interval.\nWhen a rules file is configured it is imported at start and re-imported\non change (hot reload).",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if e.cfg.RulesFile != "" {
		if err := importRules(ctx, e, e.cfg.RulesFile); err != nil {
			return fmt.Errorf("import rules: %w", err)
		}
		watcher, werr := newRulesWatcher(e, e.cfg.RulesFile)
		if werr != nil {
			fmt.Fprintf(os.Stderr, "warning: hot-reload disabled: %v\n", werr)
		} else {
			go watcher.Run(ctx)
		}
	}

	if serveOnce {
		return cycle(ctx, e)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		cancel()
	}()

	fmt.Fprintf(os.Stderr, "opsdeck serving job %q every %s\n", e.cfg.JobName, e.interval)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	if err := cycle(ctx, e); err != nil {
		fmt.Fprintf(os.Stderr, "cycle failed: %v\n", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := cycle(ctx, e); err != nil {
				fmt.Fprintf(os.Stderr, "cycle failed: %v\n", err)
			}
		}
	}
}

func cycle(ctx context.Context, e *env) error {
	report, err := e.pipe.Run(ctx)
	for _, w := range report.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	if err != nil {
		return err
	}
	c := report.Counters
	fmt.Fprintf(os.Stderr, "%s: %d candidate(s), %d auto-executed, %d blocked\n",
		report.FinishedAt.Local().Format("15:04:05"), report.Candidates, c.AutoExecuted, c.Blocked)
	return nil
}

// importRules replaces the rule set from the configured YAML file.
// All-or-nothing: a bad file leaves the stored rules untouched.
func importRules(ctx context.Context, e *env, path string) error {
	rules, err := config.LoadRulesFile(path)
	if err != nil {
		return err
	}
	for _, r := range rules {
		if err := e.store.UpsertRule(ctx, r); err != nil {
			return fmt.Errorf("upsert %s/%s: %w", r.Domain, r.Metric, err)
		}
	}
	fmt.Fprintf(os.Stderr, "imported %d rule(s) from %s\n", len(rules), path)
	return nil
}
