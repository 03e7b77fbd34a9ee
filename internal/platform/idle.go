package platform

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// IdleProvider returns the duration since last user input.
type IdleProvider interface {
	IdleDuration() (time.Duration, error)
}

// NewIdleProvider returns a platform-specific idle provider.
// Providers return watchdog.ErrIdleUnsupported where idle time cannot be read.
func NewIdleProvider() IdleProvider {
	return newIdleProvider()
}

// parseIdleMillis converts a tool's millisecond output into a duration.
func parseIdleMillis(output []byte) (time.Duration, error) {
	value := strings.TrimSpace(string(output))
	idleMillis, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse idle milliseconds: %w", err)
	}
	if idleMillis < 0 {
		idleMillis = 0
	}
	return time.Duration(idleMillis) * time.Millisecond, nil
}
