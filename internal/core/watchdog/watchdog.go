package watchdog

import (
	"context"
	"errors"
	"sync"
	"time"

	"timetracker/internal/core/clock"
	"timetracker/internal/core/model"
	"timetracker/internal/core/session"
	"timetracker/internal/metrics"

	"github.com/rs/zerolog"
)

// ErrIdleUnsupported indicates idle detection is not available on this system.
var ErrIdleUnsupported = errors.New("idle detection unsupported")

// ActivitySource reports the duration of user inactivity.
type ActivitySource interface {
	IdleDuration() (time.Duration, error)
}

// Stopper is the part of the session machine the watchdog drives.
type Stopper interface {
	State() session.Snapshot
	Stop(ctx context.Context) (model.TimeEntry, error)
}

// Watchdog stops a running timer once the user has been idle past the timeout.
type Watchdog struct {
	mu       sync.Mutex
	config   model.IdleConfig
	stopped  model.EntryID
	warnedNA bool

	machine  Stopper
	activity ActivitySource
	clock    clock.Clock
	interval time.Duration
	logger   zerolog.Logger
}

// New creates a disabled watchdog. A nil activity source disables evaluation entirely.
func New(machine Stopper, activity ActivitySource, clk clock.Clock, interval time.Duration, logger zerolog.Logger) *Watchdog {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Watchdog{
		machine:  machine,
		activity: activity,
		clock:    clk,
		interval: interval,
		logger:   logger.With().Str("component", "watchdog").Logger(),
	}
}

// UpdateConfig replaces the idle configuration; it applies on the next evaluation.
func (watchdog *Watchdog) UpdateConfig(config model.IdleConfig) {
	watchdog.mu.Lock()
	watchdog.config = config
	if !config.Enabled {
		watchdog.stopped = 0
	}
	watchdog.mu.Unlock()
}

// Run evaluates every interval until ctx is done.
func (watchdog *Watchdog) Run(ctx context.Context) error {
	ticker := time.NewTicker(watchdog.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			watchdog.Evaluate(ctx)
		}
	}
}

// Evaluate reads idle time once and reports whether it requested a stop.
// Only one stop is requested per idle episode; the episode ends when activity
// resumes or a different entry is running.
func (watchdog *Watchdog) Evaluate(ctx context.Context) bool {
	watchdog.mu.Lock()
	config := watchdog.config
	watchdog.mu.Unlock()

	if !config.Enabled || watchdog.activity == nil {
		return false
	}
	state := watchdog.machine.State()
	if !state.Running() {
		return false
	}

	idleFor, err := watchdog.activity.IdleDuration()
	if err != nil {
		watchdog.readFailed(err)
		return false
	}

	watchdog.mu.Lock()
	if idleFor < config.Timeout() {
		watchdog.stopped = 0
		watchdog.mu.Unlock()
		return false
	}
	if watchdog.stopped == state.EntryID {
		watchdog.mu.Unlock()
		return false
	}
	watchdog.stopped = state.EntryID
	watchdog.mu.Unlock()

	lastActivity := watchdog.clock.Now().Add(-idleFor)
	if _, err := watchdog.machine.Stop(ctx); err != nil {
		watchdog.logger.Warn().Err(err).Int64("entry_id", int64(state.EntryID)).Msg("Idle auto-stop failed")
		return true
	}

	metrics.AutoStopsTotal.Inc()
	watchdog.logger.Info().
		Int64("entry_id", int64(state.EntryID)).
		Dur("idle_for", idleFor).
		Time("last_activity", lastActivity).
		Msg("Timer stopped after inactivity")
	return true
}

func (watchdog *Watchdog) readFailed(err error) {
	if errors.Is(err, ErrIdleUnsupported) {
		watchdog.mu.Lock()
		warned := watchdog.warnedNA
		watchdog.warnedNA = true
		watchdog.mu.Unlock()
		if !warned {
			watchdog.logger.Warn().Err(err).Msg("Idle detection unavailable, auto-stop disabled")
		}
		return
	}
	metrics.IdleReadErrorsTotal.Inc()
	watchdog.logger.Warn().Err(err).Msg("Idle time read failed, treating user as active")
}
