package config

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Collector CollectorConfig `yaml:"collector"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Topics    TopicsConfig    `yaml:"topics"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// CollectorConfig configures the mention collector and its rate gate.
type CollectorConfig struct {
	BearerToken string   `yaml:"bearer_token"`
	Queries     []string `yaml:"queries"`
	MaxResults  int      `yaml:"max_results"`
	MonthlyCap  int      `yaml:"monthly_cap"`
	Interval    string   `yaml:"interval"`
	NitterURL   string   `yaml:"nitter_url"`
}

// ParseInterval returns the minimum inter-call interval.
func (c CollectorConfig) ParseInterval() time.Duration {
	d, err := time.ParseDuration(c.Interval)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}

// ScheduleConfig configures the pipeline tick.
type ScheduleConfig struct {
	TickInterval string `yaml:"tick_interval"`
}

// ParseTickInterval returns the scheduler tick as time.Duration.
func (s ScheduleConfig) ParseTickInterval() time.Duration {
	d, err := time.ParseDuration(s.TickInterval)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}

// TopicsConfig extends the built-in category keyword table.
type TopicsConfig struct {
	ExtraKeywords map[string][]string `yaml:"extra_keywords"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./grokpulse.db"},
		Collector: CollectorConfig{
			Queries: []string{
				"@Grok -is:retweet",
				"(to:@Grok OR from:@Grok OR mentions:@Grok) -is:retweet",
			},
			MaxResults: 100,
			MonthlyCap: 10000,
			Interval:   "15m",
			NitterURL:  "https://nitter.net",
		},
		Schedule: ScheduleConfig{TickInterval: "15m"},
		Server:   ServerConfig{Port: 8080},
		Log:      LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads configuration from a YAML file and applies env var overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GROKPULSE_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("X_BEARER_TOKEN"); v != "" {
		cfg.Collector.BearerToken = v
	}
	if v := os.Getenv("GROKPULSE_NITTER_URL"); v != "" {
		cfg.Collector.NitterURL = v
	}
	if v := os.Getenv("GROKPULSE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// NewLogger builds a zap logger from the log section.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
