// Package config loads runner configuration from YAML documents. It covers
// the ambient knobs of a deployment (event buffering, model-call limits,
// logging, session persistence) so binaries can be reconfigured without
// recompilation.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/runner"
	"github.com/hupe1980/agentloop/session"
)

// Config is the root configuration document.
type Config struct {
	Runner  RunnerConfig  `yaml:"runner"`
	Logging LoggingConfig `yaml:"logging"`
	Session SessionConfig `yaml:"session"`
}

// RunnerConfig tunes invocation execution.
type RunnerConfig struct {
	// EventBufferSize sets channel buffering for emitted events.
	EventBufferSize int `yaml:"event_buffer_size"`
	// MaxModelCalls bounds model calls per run; zero disables the limit.
	MaxModelCalls int `yaml:"max_model_calls"`
}

// LoggingConfig selects log verbosity and output encoding.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// SessionConfig selects the session persistence backend.
type SessionConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend"`
	// DSN is the sqlite database path; ignored for the memory backend.
	DSN string `yaml:"dsn"`
}

// Default returns the configuration used when no document is supplied.
func Default() *Config {
	return &Config{
		Runner:  RunnerConfig{EventBufferSize: 100, MaxModelCalls: 100},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Session: SessionConfig{Backend: "memory"},
	}
}

// Load reads and parses the YAML document at path on top of defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes a YAML document on top of defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Runner.EventBufferSize < 0 {
		return fmt.Errorf("runner.event_buffer_size must not be negative")
	}
	if c.Runner.MaxModelCalls < 0 {
		return fmt.Errorf("runner.max_model_calls must not be negative")
	}

	switch c.Session.Backend {
	case "memory":
	case "sqlite":
		if c.Session.DSN == "" {
			return fmt.Errorf("session.dsn is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging level %q", c.Logging.Level)
	}

	return nil
}

// SessionStore builds the configured session backend.
func (c *Config) SessionStore() (core.SessionStore, error) {
	switch c.Session.Backend {
	case "sqlite":
		return session.NewSQLiteStore(c.Session.DSN)
	default:
		return session.NewInMemoryStore(), nil
	}
}

// Logger builds a structured logger matching the logging section.
func (c *Config) Logger() logging.Logger {
	level, _ := logging.ParseLevel(c.Logging.Level)

	return logging.NewSlogLogger(level, c.Logging.Format, false)
}

// Apply returns a runner option function carrying this configuration. Store
// construction errors surface from here so callers keep a single error path.
func (c *Config) Apply() (func(o *runner.Options), error) {
	store, err := c.SessionStore()
	if err != nil {
		return nil, err
	}

	logger := c.Logger()

	return func(o *runner.Options) {
		o.EventBufferSize = c.Runner.EventBufferSize
		o.MaxModelCalls = c.Runner.MaxModelCalls
		o.SessionStore = store
		o.Logger = logger
	}, nil
}
