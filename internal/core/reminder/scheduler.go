package reminder

import (
	"context"
	"sync"
	"time"

	"timetracker/internal/core/clock"
	"timetracker/internal/core/model"
	"timetracker/internal/core/session"
	"timetracker/internal/metrics"

	"github.com/rs/zerolog"
)

const (
	Title = "Not tracking time"
	Body  = "No timer is running. Pick a project to start tracking."
)

// Notifier delivers a desktop notification.
type Notifier interface {
	Notify(title, body string) error
}

// Canceler is implemented by notifiers that can withdraw queued notifications.
type Canceler interface {
	CancelPending()
}

// StateReader exposes the session snapshot.
type StateReader interface {
	State() session.Snapshot
}

// Scheduler decides when to remind the user that no timer is running.
type Scheduler struct {
	mu          sync.Mutex
	config      model.ReminderConfig
	lastFiredAt time.Time
	armed       bool

	notifier Notifier
	session  StateReader
	clock    clock.Clock
	location *time.Location
	interval time.Duration
	logger   zerolog.Logger
}

// Options tunes the scheduler.
type Options struct {
	// EvaluateEvery is the tick cadence, one minute by default.
	EvaluateEvery time.Duration
	// Location is used for the active window, time.Local by default.
	Location *time.Location
}

// New creates a disabled scheduler.
func New(notifier Notifier, reader StateReader, clk clock.Clock, options Options, logger zerolog.Logger) *Scheduler {
	if options.EvaluateEvery <= 0 {
		options.EvaluateEvery = time.Minute
	}
	if options.Location == nil {
		options.Location = time.Local
	}
	return &Scheduler{
		notifier: notifier,
		session:  reader,
		clock:    clk,
		location: options.Location,
		interval: options.EvaluateEvery,
		logger:   logger.With().Str("component", "reminder").Logger(),
	}
}

// UpdateConfig replaces the reminder configuration. Disabling withdraws pending notifications.
func (scheduler *Scheduler) UpdateConfig(config model.ReminderConfig) {
	scheduler.mu.Lock()
	wasEnabled := scheduler.config.Enabled
	scheduler.config = config
	scheduler.mu.Unlock()

	if wasEnabled && !config.Enabled {
		if canceler, ok := scheduler.notifier.(Canceler); ok {
			canceler.CancelPending()
		}
		scheduler.logger.Debug().Msg("Reminders disabled")
	}
}

// SessionStarted clears the last reminder so the countdown restarts once the session ends.
func (scheduler *Scheduler) SessionStarted() {
	scheduler.mu.Lock()
	scheduler.lastFiredAt = time.Time{}
	scheduler.armed = true
	scheduler.mu.Unlock()
}

// SessionStopped starts the countdown from at.
func (scheduler *Scheduler) SessionStopped(at time.Time) {
	scheduler.mu.Lock()
	scheduler.lastFiredAt = at
	scheduler.armed = false
	scheduler.mu.Unlock()
}

// Run evaluates every cadence tick until ctx is done.
func (scheduler *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(scheduler.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			scheduler.Evaluate()
		}
	}
}

// Evaluate runs one scheduling decision and reports whether a reminder was sent.
func (scheduler *Scheduler) Evaluate() bool {
	now := scheduler.clock.Now()
	running := scheduler.session.State().Running()

	scheduler.mu.Lock()
	if running {
		scheduler.lastFiredAt = time.Time{}
		scheduler.armed = true
		scheduler.mu.Unlock()
		return false
	}
	if scheduler.armed {
		scheduler.lastFiredAt = now
		scheduler.armed = false
	}
	config := scheduler.config
	if !config.Enabled || !config.ActiveAt(now.In(scheduler.location)) {
		scheduler.mu.Unlock()
		return false
	}
	if !scheduler.lastFiredAt.IsZero() && now.Sub(scheduler.lastFiredAt) < config.Interval() {
		scheduler.mu.Unlock()
		return false
	}
	scheduler.lastFiredAt = now
	scheduler.mu.Unlock()

	if err := scheduler.notifier.Notify(Title, Body); err != nil {
		metrics.ReminderErrorsTotal.Inc()
		scheduler.logger.Warn().Err(err).Msg("Reminder notification failed")
		return false
	}
	metrics.RemindersFiredTotal.Inc()
	scheduler.logger.Info().Int("interval_minutes", config.IntervalMinutes).Msg("Reminder sent")
	return true
}
