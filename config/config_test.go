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

	assert.Equal(t, 8, cfg.Agent.MaxToolRounds)
	assert.Equal(t, "fail_fast", cfg.Session.AcquirePolicy)
	assert.Empty(t, cfg.Storage.DataDir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	require.NoError(t, Validate(cfg))
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
agent:
  max_tool_rounds: 3
  instructions: You are a helpful assistant.
session:
  acquire_policy: block
  idle_expiry: 30m
storage:
  data_dir: /var/lib/gpagent/core-data
  log_dir: /var/lib/gpagent/core-logs
log:
  level: debug
  format: text
`))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Agent.MaxToolRounds)
	assert.Equal(t, "You are a helpful assistant.", cfg.Agent.Instructions)
	assert.Equal(t, "block", cfg.Session.AcquirePolicy)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleExpiry)
	// Sweep interval defaults when expiry is set.
	assert.Equal(t, time.Minute, cfg.Session.SweepInterval)
	assert.Equal(t, "/var/lib/gpagent/core-data", cfg.Storage.DataDir)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad policy", "session:\n  acquire_policy: maybe\n"},
		{"negative rounds", "agent:\n  max_tool_rounds: -1\n"},
		{"half storage", "storage:\n  data_dir: /tmp/data\n"},
		{"bad format", "log:\n  format: xml\n"},
		{"not yaml", "{{{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gpagent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agent:\n  max_tool_rounds: 5\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Agent.MaxToolRounds)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
