package storage

import (
	"os"
	"path/filepath"
	"testing"

	"timetracker/internal/core/model"
	"timetracker/internal/core/settings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsFile_MissingReturnsDefaults(t *testing.T) {
	file := NewSettingsFile(filepath.Join(t.TempDir(), "absent", "settings.yaml"))

	loaded, err := file.Load()
	require.NoError(t, err)
	assert.Equal(t, settings.Defaults(), loaded)
}

func TestSettingsFile_SaveThenLoad(t *testing.T) {
	file := NewSettingsFile(filepath.Join(t.TempDir(), "nested", "settings.yaml"))

	want := settings.Defaults()
	want.Idle = model.IdleConfig{Enabled: true, TimeoutMinutes: 12}
	want.Reminder.Enabled = true
	want.Reminder.ActiveStart = model.MustTimeOfDay("21:30")
	want.Reminder.ActiveEnd = model.MustTimeOfDay("01:00")
	want.Reminder.ActiveWeekdays = model.NewWeekdays(0, 6)
	want.ShowTimerInTray = false

	require.NoError(t, file.Save(want))

	got, err := file.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSettingsFile_IgnoresInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	content := "idle_timeout_minutes: -3\nreminder_active_start: \"late\"\nstop_timer_when_idle: true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := NewSettingsFile(path).Load()
	require.NoError(t, err)

	defaults := settings.Defaults()
	assert.Equal(t, defaults.Idle.TimeoutMinutes, got.Idle.TimeoutMinutes)
	assert.Equal(t, defaults.Reminder.ActiveStart, got.Reminder.ActiveStart)
	assert.True(t, got.Idle.Enabled)
	assert.True(t, got.ShowTimerInTray, "absent key keeps the default")
}

func TestSettingsFile_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("idle_timeout_minutes: [oops"), 0o644))

	_, err := NewSettingsFile(path).Load()
	assert.ErrorContains(t, err, "parse settings yaml")
}
