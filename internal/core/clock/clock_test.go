package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestElapsedClampsNegative(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 65*time.Second, Elapsed(now, now.Add(-65*time.Second)))
	assert.Equal(t, time.Duration(0), Elapsed(now, now.Add(time.Minute)))
}

func TestFakeAdvance(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	fake := NewFake(start)

	fake.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), fake.Now())

	fake.Set(start)
	assert.Equal(t, start, fake.Now())
}
