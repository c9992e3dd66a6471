package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/stategraph/pkg/stategraph/config"
)

type traceSettings struct {
	Sink  string `mapstructure:"sink"`
	Limit int    `mapstructure:"limit"`
}

type settings struct {
	MaxSteps int           `mapstructure:"max_steps"`
	Verbose  bool          `mapstructure:"verbose"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Topics   []string      `mapstructure:"topics"`
	Trace    traceSettings `mapstructure:"trace"`
}

func TestDecode(t *testing.T) {
	cfg := config.New(map[string]any{
		"max_steps": 40,
		"verbose":   true,
		"timeout":   "2s",
		"topics":    []any{"a", "b"},
		"trace":     map[string]any{"sink": "memory", "limit": 64},
	})

	var s settings
	require.NoError(t, cfg.Decode(&s))

	assert.Equal(t, settings{
		MaxSteps: 40,
		Verbose:  true,
		Timeout:  2 * time.Second,
		Topics:   []string{"a", "b"},
		Trace:    traceSettings{Sink: "memory", Limit: 64},
	}, s)
}

func TestDecode_FromEnvironStrings(t *testing.T) {
	cfg := config.FromEnviron("SG", []string{
		"SG_MAX_STEPS=12",
		"SG_VERBOSE=true",
		"SG_TIMEOUT=150ms",
		"SG_TOPICS=x,y",
		"SG_TRACE__LIMIT=8",
	})

	s := settings{MaxSteps: 100, Trace: traceSettings{Sink: "memory"}}
	require.NoError(t, cfg.Decode(&s))

	assert.Equal(t, 12, s.MaxSteps)
	assert.True(t, s.Verbose)
	assert.Equal(t, 150*time.Millisecond, s.Timeout)
	assert.Equal(t, []string{"x", "y"}, s.Topics)
	assert.Equal(t, 8, s.Trace.Limit)
	assert.Equal(t, "memory", s.Trace.Sink, "unset fields keep their defaults")
}

func TestDecode_Error(t *testing.T) {
	cfg := config.New(map[string]any{"max_steps": "many"})

	var s settings
	assert.ErrorContains(t, cfg.Decode(&s), "decode config")
}
