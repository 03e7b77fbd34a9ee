package preferences

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"timetracker/internal/core/model"
	"timetracker/internal/core/settings"
)

// weekdayOrder lists days the way the window shows them, Monday first.
var weekdayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

// formValues is the raw text and toggles read from the window.
type formValues struct {
	idleEnabled      bool
	idleTimeout      string
	reminderEnabled  bool
	reminderInterval string
	activeStart      string
	activeEnd        string
	weekdays         map[time.Weekday]bool
	showTimer        bool
	launchAtLogin    bool
}

func valuesFrom(current settings.Settings) formValues {
	weekdays := make(map[time.Weekday]bool, len(weekdayOrder))
	for _, day := range weekdayOrder {
		weekdays[day] = current.Reminder.ActiveWeekdays.Contains(day)
	}
	return formValues{
		idleEnabled:      current.Idle.Enabled,
		idleTimeout:      strconv.Itoa(current.Idle.TimeoutMinutes),
		reminderEnabled:  current.Reminder.Enabled,
		reminderInterval: strconv.Itoa(current.Reminder.IntervalMinutes),
		activeStart:      current.Reminder.ActiveStart.String(),
		activeEnd:        current.Reminder.ActiveEnd.String(),
		weekdays:         weekdays,
		showTimer:        current.ShowTimerInTray,
		launchAtLogin:    current.LaunchAtLogin,
	}
}

// buildPartial turns form input into a full settings update.
func buildPartial(values formValues) (settings.Partial, error) {
	idleTimeout, err := parsePositiveInt(values.idleTimeout)
	if err != nil {
		return settings.Partial{}, fmt.Errorf("idle timeout: %w", err)
	}
	interval, err := parsePositiveInt(values.reminderInterval)
	if err != nil {
		return settings.Partial{}, fmt.Errorf("reminder interval: %w", err)
	}
	start, err := model.ParseTimeOfDay(strings.TrimSpace(values.activeStart))
	if err != nil {
		return settings.Partial{}, fmt.Errorf("active hours start: %w", err)
	}
	end, err := model.ParseTimeOfDay(strings.TrimSpace(values.activeEnd))
	if err != nil {
		return settings.Partial{}, fmt.Errorf("active hours end: %w", err)
	}

	weekdays := []int{}
	for _, day := range weekdayOrder {
		if values.weekdays[day] {
			weekdays = append(weekdays, int(day))
		}
	}

	return settings.Partial{
		IdleEnabled:             &values.idleEnabled,
		IdleTimeoutMinutes:      &idleTimeout,
		ReminderEnabled:         &values.reminderEnabled,
		ReminderIntervalMinutes: &interval,
		ReminderActiveStart:     &start,
		ReminderActiveEnd:       &end,
		ReminderActiveWeekdays:  weekdays,
		ShowTimerInTray:         &values.showTimer,
		LaunchAtLogin:           &values.launchAtLogin,
	}, nil
}

func parsePositiveInt(value string) (int, error) {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%q is not a whole number of minutes", value)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("must be at least 1 minute, got %d", parsed)
	}
	return parsed, nil
}
