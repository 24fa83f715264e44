// Package config loads opsdeck configuration from YAML. A missing
// file yields defaults; invalid YAML is an error. YAML overwrites only
// the fields it specifies.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/opsdeck/opsdeck/internal/notify"
)

// EnvConfigPath overrides the config file location; an explicit flag
// wins over it.
const EnvConfigPath = "OPSDECK_CONFIG"

// Config holds all runtime parameters.
type Config struct {
	// DBPath is the SQLite database file.
	DBPath string `yaml:"db_path"`

	// JobName identifies the pipeline in the run log.
	JobName string `yaml:"job_name"`

	// Interval is the serve-loop cadence and the basis for the
	// advisory nextDueAt, as a Go duration string ("30m").
	Interval string `yaml:"interval"`

	// RulesFile, when set, is imported on serve start and re-imported
	// on change.
	RulesFile string `yaml:"rules_file"`

	// Webhooks receive matching alert events.
	Webhooks []notify.WebhookConfig `yaml:"webhooks"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DBPath:   filepath.Join(defaultHome(), "opsdeck.db"),
		JobName:  "ops-pipeline",
		Interval: "30m",
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(defaultHome(), "config.yaml")
}

func defaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "opsdeck")
	}
	return filepath.Join(home, ".opsdeck")
}

// Load reads configuration from path. Empty path falls back to the
// OPSDECK_CONFIG env var, then the default location. A missing file
// returns defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// IntervalDuration parses the configured cadence.
func (c *Config) IntervalDuration() (time.Duration, error) {
	if c.Interval == "" {
		return 30 * time.Minute, nil
	}
	d, err := time.ParseDuration(c.Interval)
	if err != nil {
		return 0, fmt.Errorf("parse interval %q: %w", c.Interval, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval must be positive, got %q", c.Interval)
	}
	return d, nil
}
