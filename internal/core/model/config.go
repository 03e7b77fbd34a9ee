package model

import (
	"fmt"
	"sort"
	"time"
)

// IdleConfig controls the idle auto-stop.
type IdleConfig struct {
	Enabled        bool
	TimeoutMinutes int
}

// Timeout returns the configured threshold as a duration.
func (config IdleConfig) Timeout() time.Duration {
	return time.Duration(config.TimeoutMinutes) * time.Minute
}

// Validate checks the idle configuration.
func (config IdleConfig) Validate() error {
	if config.TimeoutMinutes <= 0 {
		return fmt.Errorf("%w: idle timeout must be positive, got %d", ErrConstraint, config.TimeoutMinutes)
	}
	return nil
}

// ReminderConfig controls the "you are not tracking time" reminder.
type ReminderConfig struct {
	Enabled         bool
	IntervalMinutes int
	ActiveStart     TimeOfDay
	ActiveEnd       TimeOfDay
	ActiveWeekdays  Weekdays
}

// Interval returns the reminder interval as a duration.
func (config ReminderConfig) Interval() time.Duration {
	return time.Duration(config.IntervalMinutes) * time.Minute
}

// Validate checks the reminder configuration.
func (config ReminderConfig) Validate() error {
	if config.IntervalMinutes <= 0 {
		return fmt.Errorf("%w: reminder interval must be positive, got %d", ErrConstraint, config.IntervalMinutes)
	}
	return nil
}

// ActiveAt reports whether local falls inside the active window.
// An end before start spans midnight; equal bounds cover the whole day.
func (config ReminderConfig) ActiveAt(local time.Time) bool {
	if !config.ActiveWeekdays.Contains(local.Weekday()) {
		return false
	}
	minute := local.Hour()*60 + local.Minute()
	start := config.ActiveStart.Minutes()
	end := config.ActiveEnd.Minutes()
	switch {
	case start == end:
		return true
	case start < end:
		return minute >= start && minute < end
	default:
		return minute >= start || minute < end
	}
}

// TimeOfDay is a wall-clock time with minute precision.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses an "HH:MM" string.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: parse time of day %q", ErrConstraint, value)
	}
	return TimeOfDay{Hour: parsed.Hour(), Minute: parsed.Minute()}, nil
}

// MustTimeOfDay is ParseTimeOfDay for constants.
func MustTimeOfDay(value string) TimeOfDay {
	tod, err := ParseTimeOfDay(value)
	if err != nil {
		panic(err)
	}
	return tod
}

// Minutes returns minutes since midnight.
func (tod TimeOfDay) Minutes() int {
	return tod.Hour*60 + tod.Minute
}

func (tod TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", tod.Hour, tod.Minute)
}

// Weekdays is a set of days, Sunday = 0.
type Weekdays map[time.Weekday]bool

// NewWeekdays builds a set from day numbers 0-6, ignoring anything out of range.
func NewWeekdays(days ...int) Weekdays {
	set := Weekdays{}
	for _, day := range days {
		if day < 0 || day > 6 {
			continue
		}
		set[time.Weekday(day)] = true
	}
	return set
}

// Workweek returns Monday through Friday.
func Workweek() Weekdays {
	return NewWeekdays(1, 2, 3, 4, 5)
}

// Contains reports whether day is in the set.
func (days Weekdays) Contains(day time.Weekday) bool {
	return days[day]
}

// Ints returns the sorted day numbers.
func (days Weekdays) Ints() []int {
	out := make([]int, 0, len(days))
	for day, on := range days {
		if on {
			out = append(out, int(day))
		}
	}
	sort.Ints(out)
	return out
}
