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
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
api_keys:
  - key-one
  - key-two
postgres_dsn: postgres://localhost/vtuber
queries:
  - 버튜버
workers: 3
cache_ttl: 12h
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"key-one", "key-two"}, cfg.APIKeys)
	assert.Equal(t, "postgres://localhost/vtuber", cfg.PostgresDSN)
	assert.Equal(t, []string{"버튜버"}, cfg.Queries)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 12*time.Hour, cfg.CacheTTL)
	// Untouched settings fall back to defaults.
	assert.Equal(t, 5.0, cfg.RatePerSecond)
	assert.Equal(t, 2*time.Hour, cfg.ShutdownTimeout)
}

func TestLoadDefaultsQueries(t *testing.T) {
	path := writeConfig(t, `
api_keys:
  - key-one
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Queries)
	assert.Contains(t, cfg.Queries, "버튜버")
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("VTUBER_API_KEYS", "env-one, env-two")
	t.Setenv("VTUBER_WORKERS", "7")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"env-one", "env-two"}, cfg.APIKeys)
	assert.Equal(t, 7, cfg.Workers)
}

func TestLoadRejectsMissingAPIKeys(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := writeConfig(t, `
api_keys:
  - key-one
workers: -1
`)
	_, err := Load(path)
	assert.Error(t, err)
}
