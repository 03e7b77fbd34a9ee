//go:build !linux && !darwin && !windows

package platform

import (
	"time"

	"timetracker/internal/core/watchdog"
)

type idleProvider struct{}

func newIdleProvider() IdleProvider {
	return idleProvider{}
}

func (idleProvider) IdleDuration() (time.Duration, error) {
	return 0, watchdog.ErrIdleUnsupported
}
