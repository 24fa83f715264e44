// Package cli implements the opsdeck command tree.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/opsdeck/opsdeck/internal/config"
	"github.com/opsdeck/opsdeck/internal/notify"
	"github.com/opsdeck/opsdeck/internal/pipeline"
	"github.com/opsdeck/opsdeck/internal/store"
)

var (
	configPath string
	dbPath     string
)

var rootCmd = &cobra.Command{
	Use:   "opsdeck",
	Short: "Threshold alerting with policy-gated action dispatch",
	Long:  "Evaluates operational metrics against threshold rules, emits alerts,\nand routes the resulting action candidates through a green/yellow/red\napproval policy. Yellow actions approved once become reusable grants.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML (default: $OPSDECK_CONFIG, then ~/.opsdeck/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// env is the shared wiring every command needs: config, open store,
// notifier, and a pipeline over them.
type env struct {
	cfg      *config.Config
	store    *store.Store
	notifier *notify.Dispatcher
	pipe     *pipeline.Pipeline
	interval time.Duration
}

// openEnv loads config and opens the store. Callers must Close.
func openEnv() (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	interval, err := cfg.IntervalDuration()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	notifier := notify.NewDispatcher(cfg.Webhooks)
	return &env{
		cfg:      cfg,
		store:    st,
		notifier: notifier,
		pipe:     pipeline.New(st, cfg.JobName, interval, notifier),
		interval: interval,
	}, nil
}

// Close flushes in-flight webhook deliveries before releasing the db.
func (e *env) Close() {
	e.notifier.Wait()
	e.store.Close()
}
