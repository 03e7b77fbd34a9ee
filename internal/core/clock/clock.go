package clock

import (
	"sync"
	"time"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// System returns a Clock backed by time.Now.
func System() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Elapsed returns now-since, clamped to zero when the clock went backwards.
func Elapsed(now, since time.Time) time.Duration {
	elapsed := now.Sub(since)
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Fake is a manually advanced Clock for tests.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake returns a Fake clock pinned at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the pinned time.
func (fake *Fake) Now() time.Time {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return fake.now
}

// Advance moves the clock forward (or backward for negative deltas).
func (fake *Fake) Advance(delta time.Duration) time.Time {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.now = fake.now.Add(delta)
	return fake.now
}

// Set pins the clock to t.
func (fake *Fake) Set(t time.Time) {
	fake.mu.Lock()
	fake.now = t
	fake.mu.Unlock()
}
