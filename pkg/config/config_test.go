package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "uplinkd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "localhost:9470", cfg.Endpoint.Addr())
	assert.Equal(t, 5, cfg.Connect.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.Session.HeartbeatInterval.Std())
	assert.Equal(t, 100*time.Millisecond, cfg.Session.PollInterval.Std())
	assert.Equal(t, 2*time.Second, cfg.Probe.BackoffFloor.Std())
	assert.Equal(t, 30*time.Second, cfg.Probe.BackoffCeiling.Std())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
endpoint:
  host: uplink.example.net
  port: 9471
connect:
  max_attempts: 3
  backoff_floor: 500ms
session:
  heartbeat_interval: 5s
log:
  level: debug
  event_file: /var/log/uplinkd/events.cborlog
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "uplink.example.net:9471", cfg.Endpoint.Addr())
	assert.Equal(t, 3, cfg.Connect.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Connect.BackoffFloor.Std())
	assert.Equal(t, 5*time.Second, cfg.Session.HeartbeatInterval.Std())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/var/log/uplinkd/events.cborlog", cfg.Log.EventFile)

	// Untouched sections keep their defaults
	assert.Equal(t, 100*time.Millisecond, cfg.Session.PollInterval.Std())
	assert.Equal(t, 30*time.Second, cfg.Connect.BackoffCeiling.Std())
}

func TestLoadErrors(t *testing.T) {
	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("BadYAML", func(t *testing.T) {
		_, err := Load(writeConfig(t, "endpoint: [notamap"))
		assert.Error(t, err)
	})

	t.Run("BadDuration", func(t *testing.T) {
		_, err := Load(writeConfig(t, "probe:\n  timeout: soon\n"))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"EmptyHost", func(c *Config) { c.Endpoint.Host = "" }},
		{"BadPort", func(c *Config) { c.Endpoint.Port = 70000 }},
		{"ZeroAttempts", func(c *Config) { c.Connect.MaxAttempts = 0 }},
		{"CeilingBelowFloor", func(c *Config) { c.Probe.BackoffCeiling = Duration(time.Second) }},
		{"ZeroHeartbeat", func(c *Config) { c.Session.HeartbeatInterval = 0 }},
		{"ZeroPoll", func(c *Config) { c.Session.PollInterval = 0 }},
		{"CertWithoutKey", func(c *Config) { c.TLS.Enabled = true; c.TLS.CertFile = "a.pem" }},
		{"BadLogLevel", func(c *Config) { c.Log.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDurationMarshal(t *testing.T) {
	out, err := Duration(90 * time.Second).MarshalYAML()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", out)
}
