// Package config loads the gpagent.yaml runtime configuration: storage
// locations, the agent loop's round budget, session contention policy and
// expiry, and logging. All values are tunable; Default returns a working
// in-process setup for tests and demos.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the full gpagent.yaml configuration.
type Config struct {
	Agent   AgentConfig   `yaml:"agent"`
	Session SessionConfig `yaml:"session"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// AgentConfig tunes the agent loop.
type AgentConfig struct {
	// MaxToolRounds caps decide→act cycles per user turn.
	MaxToolRounds int `yaml:"max_tool_rounds"`
	// Instructions is the system prompt handed to the decision function.
	Instructions string `yaml:"instructions"`
}

// SessionConfig tunes the session manager.
type SessionConfig struct {
	// AcquirePolicy is "fail_fast" or "block".
	AcquirePolicy string `yaml:"acquire_policy"`
	// IdleExpiry evicts sessions idle longer than this from memory. Zero
	// disables the sweeper.
	IdleExpiry time.Duration `yaml:"idle_expiry"`
	// SweepInterval is how often idle sessions are checked for eviction.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// StorageConfig names the two durable locations. Empty directories select
// volatile in-memory stores.
type StorageConfig struct {
	// DataDir holds per-session transcript files.
	DataDir string `yaml:"data_dir"`
	// LogDir holds per-session execution log files.
	LogDir string `yaml:"log_dir"`
}

// LogConfig tunes structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is present: in-memory
// stores, fail-fast contention, and info-level JSON logs.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads and parses a gpagent.yaml file, applying defaults and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse parses raw YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate checks a Config for logical errors.
func Validate(cfg *Config) error {
	if cfg.Agent.MaxToolRounds < 1 {
		return fmt.Errorf("agent.max_tool_rounds must be >= 1, got %d", cfg.Agent.MaxToolRounds)
	}
	switch cfg.Session.AcquirePolicy {
	case "fail_fast", "block":
	default:
		return fmt.Errorf("session.acquire_policy must be fail_fast or block, got %q", cfg.Session.AcquirePolicy)
	}
	if cfg.Session.IdleExpiry < 0 {
		return fmt.Errorf("session.idle_expiry must not be negative")
	}
	if cfg.Session.IdleExpiry > 0 && cfg.Session.SweepInterval < 1 {
		return fmt.Errorf("session.sweep_interval is required when idle_expiry is set")
	}
	if (cfg.Storage.DataDir == "") != (cfg.Storage.LogDir == "") {
		return fmt.Errorf("storage.data_dir and storage.log_dir must be set together")
	}
	switch cfg.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", cfg.Log.Format)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Agent.MaxToolRounds == 0 {
		cfg.Agent.MaxToolRounds = 8
	}
	if cfg.Session.AcquirePolicy == "" {
		cfg.Session.AcquirePolicy = "fail_fast"
	}
	if cfg.Session.IdleExpiry > 0 && cfg.Session.SweepInterval == 0 {
		cfg.Session.SweepInterval = time.Minute
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}
