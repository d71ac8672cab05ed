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
	path := filepath.Join(t.TempDir(), "telemetry-gateway.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, "telemetry-gateway", cfg.Server.Name)
	assert.Equal(t, "0.0.0.0:8095", cfg.API.Addr())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 1000, cfg.Gateway.HistoryLimit)
	assert.Equal(t, 5*time.Second, cfg.Gateway.ReconnectInterval)
	assert.Equal(t, 10*time.Second, cfg.Connector.OpenTimeout)
	assert.Equal(t, 5*time.Second, cfg.Connector.PollInterval)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  name: gw-test
api:
  host: 127.0.0.1
  port: 9000
log:
  level: debug
nats:
  url: nats://localhost:4222
gateway:
  history_limit: 50
  reconnect_interval: 2s
connector:
  poll_interval: 500ms
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gw-test", cfg.Server.Name)
	assert.Equal(t, "127.0.0.1:9000", cfg.API.Addr())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Equal(t, 50, cfg.Gateway.HistoryLimit)
	assert.Equal(t, 2*time.Second, cfg.Gateway.ReconnectInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.Connector.PollInterval)

	// Untouched sections still get defaults.
	assert.Equal(t, 10*time.Second, cfg.Connector.OpenTimeout)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenTTL)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative history limit", "gateway:\n  history_limit: -5\n"},
		{"poll interval too small", "connector:\n  poll_interval: 10ms\n"},
		{"open timeout too small", "connector:\n  open_timeout: 100ms\n"},
		{"users without secret", "auth:\n  users:\n    - email: a@b.c\n      password_hash: xyz\n"},
		{"malformed yaml", "gateway: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}
