package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PowerPosition/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "*/15 * * * *", cfg.Report.Schedule)
	assert.Equal(t, "Europe/London", cfg.Report.TimeZone)
	assert.Equal(t, "reports", cfg.Report.ExportDir)
	assert.True(t, cfg.Report.RunOnStart)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, 0.1, cfg.DataSource.FailureRate)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.True(t, cfg.HTTP.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
report:
  schedule: "0 * * * *"
  time_zone: "America/New_York"
  export_dir: "/var/reports"
  run_on_start: false
retry:
  max_retries: 5
  base_delay: 250ms
data_source:
  base_url: "https://power.example.com"
  api_key: "k"
log:
  level: debug
http:
  enabled: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0 * * * *", cfg.Report.Schedule)
	assert.Equal(t, "America/New_York", cfg.Report.TimeZone)
	assert.Equal(t, "/var/reports", cfg.Report.ExportDir)
	assert.False(t, cfg.Report.RunOnStart)
	assert.Equal(t, 5, cfg.Retry.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.BaseDelay)
	assert.Equal(t, "https://power.example.com", cfg.DataSource.BaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.HTTP.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "report:\n  schedule: \"0 * * * *\"\n")
	t.Setenv("REPORT_SCHEDULE", "*/5 * * * *")
	t.Setenv("REPORT_TIME_ZONE", "UTC")
	t.Setenv("RUN_ON_START", "false")
	t.Setenv("SQLITE_PATH", "/tmp/runs.db")
	t.Setenv("POWER_SERVICE_URL", "http://localhost:8080")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "*/5 * * * *", cfg.Report.Schedule)
	assert.Equal(t, "UTC", cfg.Report.TimeZone)
	assert.False(t, cfg.Report.RunOnStart)
	assert.Equal(t, "/tmp/runs.db", cfg.Database.SQLitePath)
	assert.Equal(t, "http://localhost:8080", cfg.DataSource.BaseURL)
}

func TestLoad_BadRunOnStart(t *testing.T) {
	t.Setenv("RUN_ON_START", "sometimes")
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "report: [unclosed"))
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad schedule", func(c *Config) { c.Report.Schedule = "every minute" }},
		{"empty schedule", func(c *Config) { c.Report.Schedule = "" }},
		{"unknown zone", func(c *Config) { c.Report.TimeZone = "Mars/Olympus_Mons" }},
		{"empty export dir", func(c *Config) { c.Report.ExportDir = "" }},
		{"negative retries", func(c *Config) { c.Retry.MaxRetries = -1 }},
		{"failure rate above one", func(c *Config) { c.DataSource.FailureRate = 1.5 }},
		{"base url not a url", func(c *Config) { c.DataSource.BaseURL = "not a url" }},
		{"token without chat", func(c *Config) { c.Telegram.BotToken = "t" }},
		{"unknown log level", func(c *Config) { c.Log.Level = "chatty" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
			require.NoError(t, err)
			tc.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), model.ErrConfiguration)
		})
	}
}

func TestPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, DefaultPath, Path())
	t.Setenv("CONFIG_PATH", "/etc/powerposition.yaml")
	assert.Equal(t, "/etc/powerposition.yaml", Path())
}
