package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "./grokpulse.db", cfg.Database.Path)
	assert.Len(t, cfg.Collector.Queries, 2)
	assert.Equal(t, "@Grok -is:retweet", cfg.Collector.Queries[0])
	assert.Equal(t, 100, cfg.Collector.MaxResults)
	assert.Equal(t, 10000, cfg.Collector.MonthlyCap)
	assert.Equal(t, 15*time.Minute, cfg.Collector.ParseInterval())
	assert.Equal(t, 15*time.Minute, cfg.Schedule.ParseTickInterval())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  path: /data/pulse.db
collector:
  interval: 30m
  monthly_cap: 5000
topics:
  extra_keywords:
    tech:
      - golang
server:
  port: 9090
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/pulse.db", cfg.Database.Path)
	assert.Equal(t, 30*time.Minute, cfg.Collector.ParseInterval())
	assert.Equal(t, 5000, cfg.Collector.MonthlyCap)
	assert.Equal(t, []string{"golang"}, cfg.Topics.ExtraKeywords["tech"])
	assert.Equal(t, 9090, cfg.Server.Port)

	// Fields absent from the file keep their defaults.
	assert.Len(t, cfg.Collector.Queries, 2)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GROKPULSE_DB_PATH", "/tmp/env.db")
	t.Setenv("X_BEARER_TOKEN", "secret")
	t.Setenv("GROKPULSE_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/env.db", cfg.Database.Path)
	assert.Equal(t, "secret", cfg.Collector.BearerToken)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestParseIntervalFallback(t *testing.T) {
	c := CollectorConfig{Interval: "not-a-duration"}
	assert.Equal(t, 15*time.Minute, c.ParseInterval())
}

func TestNewLogger(t *testing.T) {
	log, err := NewLogger(LogConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, log)

	_, err = NewLogger(LogConfig{Level: "shouting"})
	assert.Error(t, err)
}
