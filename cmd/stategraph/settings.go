package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/stategraph/internal/workflows"
	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/config"
)

// envPrefix selects environment overrides, e.g. STATEGRAPH_MAX_STEPS=50.
const envPrefix = "STATEGRAPH"

// Settings are read from, in increasing precedence: defaults, the config
// file, .env and the environment, then flags.
type Settings struct {
	MaxSteps        int           `mapstructure:"max_steps"`
	MaxRetries      int           `mapstructure:"max_retries"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFormat       string        `mapstructure:"log_format"`
	Trace           string        `mapstructure:"trace"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	Concurrency     int           `mapstructure:"concurrency"`
	SearchLatency   time.Duration `mapstructure:"search_latency"`
	StageTimeout    time.Duration `mapstructure:"stage_timeout"`
	ResultsPerTopic int           `mapstructure:"results_per_topic"`
}

func defaultSettings() Settings {
	return Settings{
		MaxSteps:        stategraph.DefaultMaxSteps,
		MaxRetries:      workflows.DefaultMaxRetries,
		LogLevel:        "info",
		LogFormat:       "text",
		Concurrency:     4,
		ResultsPerTopic: workflows.DefaultResultsPerTopic,
	}
}

func (s Settings) validate() error {
	if s.MaxSteps < 1 {
		return fmt.Errorf("max_steps must be positive, got %d", s.MaxSteps)
	}
	if s.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be positive, got %d", s.MaxRetries)
	}
	if s.Concurrency < 1 {
		return fmt.Errorf("concurrency must be positive, got %d", s.Concurrency)
	}
	return nil
}

// loadSettings layers the configuration sources for cmd.
func loadSettings(cmd *cobra.Command) (Settings, error) {
	s := defaultSettings()

	dotenv, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadDotEnv(dotenv); err != nil {
		return s, err
	}

	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, envPrefix)
	if err != nil {
		return s, err
	}
	if err := cfg.Decode(&s); err != nil {
		return s, err
	}

	flags := cmd.Flags()
	overrides := []struct {
		flag  string
		apply func() error
	}{
		{"max-steps", func() (err error) { s.MaxSteps, err = flags.GetInt("max-steps"); return }},
		{"max-retries", func() (err error) { s.MaxRetries, err = flags.GetInt("max-retries"); return }},
		{"log-level", func() (err error) { s.LogLevel, err = flags.GetString("log-level"); return }},
		{"log-format", func() (err error) { s.LogFormat, err = flags.GetString("log-format"); return }},
		{"trace", func() (err error) { s.Trace, err = flags.GetString("trace"); return }},
		{"metrics-addr", func() (err error) { s.MetricsAddr, err = flags.GetString("metrics-addr"); return }},
		{"concurrency", func() (err error) { s.Concurrency, err = flags.GetInt("concurrency"); return }},
		{"search-latency", func() (err error) { s.SearchLatency, err = flags.GetDuration("search-latency"); return }},
		{"stage-timeout", func() (err error) { s.StageTimeout, err = flags.GetDuration("stage-timeout"); return }},
	}
	for _, o := range overrides {
		if flags.Lookup(o.flag) == nil || !flags.Changed(o.flag) {
			continue
		}
		if err := o.apply(); err != nil {
			return s, err
		}
	}
	return s, s.validate()
}
