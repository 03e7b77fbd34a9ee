package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"timetracker/internal/core/model"
	"timetracker/internal/core/settings"

	"gopkg.in/yaml.v3"
)

type yamlSettings struct {
	StopTimerWhenIdle  bool   `yaml:"stop_timer_when_idle"`
	IdleTimeoutMinutes int    `yaml:"idle_timeout_minutes"`
	ReminderEnabled    bool   `yaml:"reminder_enabled"`
	ReminderInterval   int    `yaml:"reminder_interval_minutes"`
	ReminderStart      string `yaml:"reminder_active_start"`
	ReminderEnd        string `yaml:"reminder_active_end"`
	ReminderWeekdays   []int  `yaml:"reminder_active_weekdays"`
	ShowTimerInTray    *bool  `yaml:"show_timer_in_tray"`
	LaunchAtLogin      bool   `yaml:"launch_at_login"`
}

// SettingsFile reads and writes user settings as YAML.
type SettingsFile struct {
	path string
}

// NewSettingsFile returns a SettingsFile at path.
func NewSettingsFile(path string) *SettingsFile {
	return &SettingsFile{path: path}
}

// Path returns the file location.
func (file *SettingsFile) Path() string {
	return file.path
}

// Load reads settings from disk.
// If the file does not exist, default settings are returned.
func (file *SettingsFile) Load() (settings.Settings, error) {
	loaded := settings.Defaults()

	rawData, err := os.ReadFile(file.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return loaded, nil
		}
		return loaded, fmt.Errorf("read settings file: %w", err)
	}

	var fileData yamlSettings
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return loaded, fmt.Errorf("parse settings yaml: %w", err)
	}

	applyYamlSettings(&loaded, fileData)
	return loaded, nil
}

// Save writes settings to disk.
func (file *SettingsFile) Save(current settings.Settings) error {
	if err := os.MkdirAll(filepath.Dir(file.path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	showTimer := current.ShowTimerInTray
	fileData := yamlSettings{
		StopTimerWhenIdle:  current.Idle.Enabled,
		IdleTimeoutMinutes: current.Idle.TimeoutMinutes,
		ReminderEnabled:    current.Reminder.Enabled,
		ReminderInterval:   current.Reminder.IntervalMinutes,
		ReminderStart:      current.Reminder.ActiveStart.String(),
		ReminderEnd:        current.Reminder.ActiveEnd.String(),
		ReminderWeekdays:   current.Reminder.ActiveWeekdays.Ints(),
		ShowTimerInTray:    &showTimer,
		LaunchAtLogin:      current.LaunchAtLogin,
	}

	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return fmt.Errorf("marshal settings yaml: %w", err)
	}

	if err := os.WriteFile(file.path, serialized, 0o644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}

	return nil
}

func applyYamlSettings(loaded *settings.Settings, fileData yamlSettings) {
	if fileData.IdleTimeoutMinutes > 0 {
		loaded.Idle.TimeoutMinutes = fileData.IdleTimeoutMinutes
	}
	if fileData.ReminderInterval > 0 {
		loaded.Reminder.IntervalMinutes = fileData.ReminderInterval
	}
	if start, err := model.ParseTimeOfDay(fileData.ReminderStart); err == nil {
		loaded.Reminder.ActiveStart = start
	}
	if end, err := model.ParseTimeOfDay(fileData.ReminderEnd); err == nil {
		loaded.Reminder.ActiveEnd = end
	}
	if fileData.ReminderWeekdays != nil {
		loaded.Reminder.ActiveWeekdays = model.NewWeekdays(fileData.ReminderWeekdays...)
	}
	if fileData.ShowTimerInTray != nil {
		loaded.ShowTimerInTray = *fileData.ShowTimerInTray
	}

	loaded.Idle.Enabled = fileData.StopTimerWhenIdle
	loaded.Reminder.Enabled = fileData.ReminderEnabled
	loaded.LaunchAtLogin = fileData.LaunchAtLogin
}
