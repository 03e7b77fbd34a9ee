package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	config, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "text", config.Logging.Format)
	assert.Empty(t, config.Metrics.Address)
	assert.Equal(t, time.Second, config.Intervals.Tick)
	assert.Equal(t, 30*time.Second, config.Intervals.IdleCheck)
	assert.Equal(t, time.Minute, config.Intervals.ReminderCheck)
	assert.Equal(t, "timetracker.db", filepath.Base(config.Database.Path))
	assert.Equal(t, "settings.yaml", filepath.Base(config.Settings.Path))
}

func TestLoadFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	content := `
database:
  path: /tmp/tt.db
logging:
  level: debug
  format: json
metrics:
  address: 127.0.0.1:9464
intervals:
  idle_check: 45s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/tt.db", config.Database.Path)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)
	assert.Equal(t, "127.0.0.1:9464", config.Metrics.Address)
	assert.Equal(t, 45*time.Second, config.Intervals.IdleCheck)
	assert.Equal(t, time.Second, config.Intervals.Tick)
}

func TestLoadEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("TIMETRACKER_LOGGING_LEVEL", "warn")
	t.Setenv("TIMETRACKER_INTERVALS_TICK", "2s")

	config, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", config.Logging.Level)
	assert.Equal(t, 2*time.Second, config.Intervals.Tick)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	dir := isolate(t)

	_, err := Load(filepath.Join(dir, "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	isolate(t)

	t.Setenv("TIMETRACKER_LOGGING_LEVEL", "loud")
	_, err := Load("")
	assert.ErrorContains(t, err, "logging.level")

	t.Setenv("TIMETRACKER_LOGGING_LEVEL", "info")
	t.Setenv("TIMETRACKER_INTERVALS_REMINDER_CHECK", "-1m")
	_, err = Load("")
	assert.ErrorContains(t, err, "intervals.reminder_check")
}
