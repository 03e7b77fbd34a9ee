package settings

import (
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"
)

// Persister stores settings between runs.
type Persister interface {
	Save(Settings) error
}

// Gateway owns the current settings and pushes every change to subscribers.
type Gateway struct {
	mu          sync.RWMutex
	current     Settings
	persister   Persister
	subscribers []func(Settings)
	logger      zerolog.Logger
}

// NewGateway creates a gateway seeded with initial. A nil persister keeps settings in memory.
func NewGateway(initial Settings, persister Persister, logger zerolog.Logger) *Gateway {
	return &Gateway{
		current:   initial.Clone(),
		persister: persister,
		logger:    logger.With().Str("component", "settings").Logger(),
	}
}

// Current returns a copy of the active settings.
func (gateway *Gateway) Current() Settings {
	gateway.mu.RLock()
	defer gateway.mu.RUnlock()
	return gateway.current.Clone()
}

// Subscribe registers fn and immediately calls it with the current settings.
func (gateway *Gateway) Subscribe(fn func(Settings)) {
	gateway.mu.Lock()
	gateway.subscribers = append(gateway.subscribers, fn)
	current := gateway.current.Clone()
	gateway.mu.Unlock()

	fn(current)
}

// Update validates, persists and publishes a partial change.
// Nothing changes in memory if validation or persistence fails.
func (gateway *Gateway) Update(partial Partial) (Settings, error) {
	gateway.mu.Lock()
	next := partial.Apply(gateway.current)
	if err := next.Validate(); err != nil {
		gateway.mu.Unlock()
		return gateway.Current(), fmt.Errorf("update settings: %w", err)
	}
	if gateway.persister != nil {
		if err := gateway.persister.Save(next); err != nil {
			gateway.mu.Unlock()
			return gateway.Current(), fmt.Errorf("update settings: %w", err)
		}
	}
	gateway.current = next
	subscribers := slices.Clone(gateway.subscribers)
	gateway.mu.Unlock()

	gateway.logger.Info().
		Bool("idle_enabled", next.Idle.Enabled).
		Int("idle_timeout_minutes", next.Idle.TimeoutMinutes).
		Bool("reminder_enabled", next.Reminder.Enabled).
		Int("reminder_interval_minutes", next.Reminder.IntervalMinutes).
		Msg("Settings updated")

	for _, fn := range subscribers {
		fn(next.Clone())
	}
	return next.Clone(), nil
}
