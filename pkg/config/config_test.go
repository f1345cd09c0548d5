package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestInit(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  mode: debug
mysql:
  host: db.internal
  port: 3306
redis:
  addr: 127.0.0.1:6379
queue:
  concurrency: 4
  max_retry: 2
  cycle_timeout: 600
scraper:
  base_url: https://dashboard.example.com
scheduler:
  enabled: true
  cron_spec: "30 1 * * *"
logger:
  level: debug
  output: console
`)
	t.Setenv("CONFIG_PATH", path)

	require.NoError(t, Init())
	assert.Equal(t, 9090, GlobalConfig.Server.Port)
	assert.Equal(t, "db.internal", GlobalConfig.MySQL.Host)
	assert.Equal(t, 4, GlobalConfig.Queue.Concurrency)
	assert.Equal(t, 600, GlobalConfig.Queue.CycleTimeout)
	assert.Equal(t, "https://dashboard.example.com", GlobalConfig.Scraper.BaseURL)
	assert.True(t, GlobalConfig.Scheduler.Enabled)
	assert.Equal(t, "30 1 * * *", GlobalConfig.Scheduler.CronSpec)
}

func TestInitDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
`)
	t.Setenv("CONFIG_PATH", path)

	require.NoError(t, Init())
	assert.Equal(t, "0 2 * * *", GlobalConfig.Scheduler.CronSpec)
	assert.Equal(t, 1, GlobalConfig.Queue.Concurrency)
	assert.Equal(t, 1800, GlobalConfig.Queue.CycleTimeout)
}

func TestInitMissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, Init())
}
