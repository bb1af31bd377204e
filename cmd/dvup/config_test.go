package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv removes DVUP_* variables for the duration of a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "DVUP_") {
			key, _, _ := strings.Cut(kv, "=")
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}

// =============================================================================
// Config Loading Tests
// =============================================================================

func TestLoadConfig_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "dataverse", cfg.Project)
	assert.Equal(t, "./.env", cfg.Paths.Settings)
	assert.Equal(t, "./docker-compose.yml", cfg.Paths.Compose)
	assert.Equal(t, "./secrets", cfg.Paths.SecretsDir)
	assert.Equal(t, "./init.d", cfg.Paths.ScriptsDir)
	assert.Equal(t, 2*time.Minute, cfg.Wait.ReadyTimeout)
	assert.Equal(t, 5*time.Second, cfg.Wait.PollInterval)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadConfig_FromFile(t *testing.T) {
	clearEnv(t)

	configContent := `
project: "staging"

paths:
  settings: "/srv/dvup/.env"
  compose: "/srv/dvup/docker-compose.yml"
  secrets_dir: "/srv/dvup/secrets"

wait:
  ready_timeout: 5m
  poll_interval: 10s

history:
  enabled: false

log:
  level: "debug"
  format: "json"
`
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(configContent), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Project)
	assert.Equal(t, "/srv/dvup/.env", cfg.Paths.Settings)
	assert.Equal(t, "/srv/dvup/secrets", cfg.Paths.SecretsDir)
	assert.Equal(t, 5*time.Minute, cfg.Wait.ReadyTimeout)
	assert.Equal(t, 10*time.Second, cfg.Wait.PollInterval)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfig_EnvironmentOverride(t *testing.T) {
	clearEnv(t)

	t.Setenv("DVUP_PROJECT", "demo")
	t.Setenv("DVUP_LOG_LEVEL", "warn")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "demo", cfg.Project)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "dataverse", cfg.Project)
}
