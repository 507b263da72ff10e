// Package config loads server configuration from config.yaml with
// environment variable overrides. Environment variables always win over
// YAML values; secrets (DD_API_KEY) come from the environment only and
// never appear in the file.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultPath is where Load looks for the YAML file when the caller passes
// no path. A missing file is not an error; configuration then comes from
// environment variables and defaults alone.
const DefaultPath = "config.yaml"

// Config holds everything the server and CLI binaries need.
type Config struct {
	// Env names the runtime environment ("local", "staging", "prod").
	// It selects the logger encoder and is attached to metrics.
	Env string `yaml:"env" env:"CONTRACT_ENV" env-default:"local"`

	// Transport selects how the MCP server listens: "stdio" (default,
	// spawned by a client) or "http" (streamable HTTP endpoint).
	Transport string `yaml:"transport" env:"CONTRACT_TRANSPORT" env-default:"stdio"`
	BindAddr  string `yaml:"bind_addr" env:"CONTRACT_BIND_ADDR" env-default:"127.0.0.1"`
	Port      string `yaml:"port" env:"CONTRACT_PORT" env-default:"8976"`

	// Version is set at load time from the build, not from config.
	Version string `yaml:"-"`

	Analysis AnalysisConfig `yaml:"analysis"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// AnalysisConfig bounds how much of a source the engine reads.
type AnalysisConfig struct {
	// MaxBytes is the prefix read from files for detection and sampling.
	MaxBytes int `yaml:"max_bytes" env:"CONTRACT_MAX_BYTES" env-default:"20000"`
	// SampleRows caps rows used for file type inference.
	SampleRows int `yaml:"sample_rows" env:"CONTRACT_SAMPLE_ROWS" env-default:"200"`
	// DBSampleRows caps rows sampled from database tables and queries.
	DBSampleRows int `yaml:"db_sample_rows" env:"CONTRACT_DB_SAMPLE_ROWS" env-default:"1000"`
}

// MetricsConfig configures the Datadog backend. The API key is a secret and
// comes from DD_API_KEY (read by the Datadog client itself), so it has no
// field here.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" env:"CONTRACT_METRICS_ENABLED" env-default:"false"`
	// JobName becomes the job tag on every series.
	JobName string `yaml:"job_name" env:"CONTRACT_METRICS_JOB" env-default:"contract"`
	// Tags is a comma-separated list of extra key:value tags.
	Tags string `yaml:"tags" env:"CONTRACT_METRICS_TAGS" env-default:""`
	// FlushSeconds is the submit interval for buffered series.
	FlushSeconds int `yaml:"flush_seconds" env:"CONTRACT_METRICS_FLUSH_SECONDS" env-default:"60"`
}

// FlushEvery returns the flush interval as a duration.
func (m MetricsConfig) FlushEvery() time.Duration {
	return time.Duration(m.FlushSeconds) * time.Second
}

// Load reads configuration from the YAML file at path (DefaultPath when
// empty) with environment overrides. A missing file falls back to
// environment variables and defaults, which is the normal case for a
// stdio-spawned server.
func Load(path, version string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	cfg := &Config{Version: version}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.BindAddr, c.Port)
}

func (c *Config) validate() error {
	switch c.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("transport must be stdio or http, got %q", c.Transport)
	}
	if c.Analysis.MaxBytes <= 0 {
		return fmt.Errorf("analysis.max_bytes must be positive, got %d", c.Analysis.MaxBytes)
	}
	if c.Analysis.SampleRows <= 0 {
		return fmt.Errorf("analysis.sample_rows must be positive, got %d", c.Analysis.SampleRows)
	}
	if c.Analysis.DBSampleRows <= 0 {
		return fmt.Errorf("analysis.db_sample_rows must be positive, got %d", c.Analysis.DBSampleRows)
	}
	if c.Metrics.FlushSeconds <= 0 {
		return fmt.Errorf("metrics.flush_seconds must be positive, got %d", c.Metrics.FlushSeconds)
	}
	return nil
}
