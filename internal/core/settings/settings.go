package settings

import (
	"timetracker/internal/core/model"
)

// Settings is the single parsed representation of user preferences.
type Settings struct {
	Idle            model.IdleConfig
	Reminder        model.ReminderConfig
	ShowTimerInTray bool
	LaunchAtLogin   bool
}

// Defaults returns settings for a fresh install.
func Defaults() Settings {
	return Settings{
		Idle: model.IdleConfig{
			Enabled:        false,
			TimeoutMinutes: 5,
		},
		Reminder: model.ReminderConfig{
			Enabled:         false,
			IntervalMinutes: 30,
			ActiveStart:     model.MustTimeOfDay("09:00"),
			ActiveEnd:       model.MustTimeOfDay("18:00"),
			ActiveWeekdays:  model.Workweek(),
		},
		ShowTimerInTray: true,
		LaunchAtLogin:   false,
	}
}

// Validate checks every section.
func (settings Settings) Validate() error {
	if err := settings.Idle.Validate(); err != nil {
		return err
	}
	return settings.Reminder.Validate()
}

// Clone returns a copy that shares no maps with settings.
func (settings Settings) Clone() Settings {
	clone := settings
	clone.Reminder.ActiveWeekdays = model.NewWeekdays(settings.Reminder.ActiveWeekdays.Ints()...)
	return clone
}

// Partial carries the fields an update changes; nil fields are kept.
type Partial struct {
	IdleEnabled        *bool
	IdleTimeoutMinutes *int

	ReminderEnabled         *bool
	ReminderIntervalMinutes *int
	ReminderActiveStart     *model.TimeOfDay
	ReminderActiveEnd       *model.TimeOfDay
	ReminderActiveWeekdays  []int

	ShowTimerInTray *bool
	LaunchAtLogin   *bool
}

// Apply returns settings with partial merged in.
func (partial Partial) Apply(settings Settings) Settings {
	next := settings.Clone()
	if partial.IdleEnabled != nil {
		next.Idle.Enabled = *partial.IdleEnabled
	}
	if partial.IdleTimeoutMinutes != nil {
		next.Idle.TimeoutMinutes = *partial.IdleTimeoutMinutes
	}
	if partial.ReminderEnabled != nil {
		next.Reminder.Enabled = *partial.ReminderEnabled
	}
	if partial.ReminderIntervalMinutes != nil {
		next.Reminder.IntervalMinutes = *partial.ReminderIntervalMinutes
	}
	if partial.ReminderActiveStart != nil {
		next.Reminder.ActiveStart = *partial.ReminderActiveStart
	}
	if partial.ReminderActiveEnd != nil {
		next.Reminder.ActiveEnd = *partial.ReminderActiveEnd
	}
	if partial.ReminderActiveWeekdays != nil {
		next.Reminder.ActiveWeekdays = model.NewWeekdays(partial.ReminderActiveWeekdays...)
	}
	if partial.ShowTimerInTray != nil {
		next.ShowTimerInTray = *partial.ShowTimerInTray
	}
	if partial.LaunchAtLogin != nil {
		next.LaunchAtLogin = *partial.LaunchAtLogin
	}
	return next
}
