package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "openrouter", cfg.AI.ActiveProvider)
	assert.Equal(t, 8080, cfg.Application.Port)
	assert.Equal(t, 128, cfg.Application.JobCacheSize)
	assert.Equal(t, time.Duration(0), cfg.AI.Timeout)

	name, settings, err := cfg.AI.Active()
	require.NoError(t, err)
	assert.Equal(t, "openrouter", name)
	assert.Equal(t, "openrouter", settings.Driver)
	assert.Equal(t, "https://openrouter.ai/api/v1/chat/completions", settings.Endpoint)
	assert.Equal(t, "meta-llama/llama-3.3-70b-instruct", settings.Model)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("AI_PROVIDER", "gemini")
	t.Setenv("GEMINI_KEY", "g-key")
	t.Setenv("PORT", "9090")
	t.Setenv("AI_TIMEOUT", "45s")
	t.Setenv("STORAGE_INBOX", "/tmp/inbox")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	name, settings, err := cfg.AI.Active()
	require.NoError(t, err)
	assert.Equal(t, "gemini", name)
	assert.Equal(t, "g-key", settings.Key)
	assert.Equal(t, 9090, cfg.Application.Port)
	assert.Equal(t, 45*time.Second, cfg.AI.Timeout)
	assert.Equal(t, "/tmp/inbox", cfg.Application.Storage.Inbox)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
application:
  port: 7000
  job_cache_size: 4
ai:
  active_provider: local
  providers:
    local:
      driver: openrouter
      endpoint: http://127.0.0.1:1234/v1/chat/completions
      model: tiny
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Application.Port)
	assert.Equal(t, 4, cfg.Application.JobCacheSize)

	_, settings, err := cfg.AI.Active()
	require.NoError(t, err)
	assert.Equal(t, "openrouter", settings.Driver)
	assert.Equal(t, "tiny", settings.Model)
}

func TestActiveUnknownProvider(t *testing.T) {
	c := AIConfig{ActiveProvider: "nope"}
	_, _, err := c.Active()
	assert.Error(t, err)
}

func TestGetConnectStr(t *testing.T) {
	c := DatabaseConfig{Host: "db", User: "u", Password: "p", DBName: "deck", Options: "-c search_path=app"}
	assert.Equal(t, "postgres://u:p@db:5432/deck?sslmode=disable&options=-c%20search_path=app", c.GetConnectStr())
	assert.True(t, c.Enabled())

	c = DatabaseConfig{URL: "postgres://x"}
	assert.Equal(t, "postgres://x", c.GetConnectStr())
	assert.False(t, (&DatabaseConfig{}).Enabled())
}
