package watchdog

import (
	"context"
	"errors"
	"testing"
	"time"

	"timetracker/internal/core/clock"
	"timetracker/internal/core/model"
	"timetracker/internal/core/session"
	"timetracker/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type fakeMachine struct {
	state session.Snapshot
	stops int
	err   error
}

func (machine *fakeMachine) State() session.Snapshot { return machine.state }

func (machine *fakeMachine) Stop(context.Context) (model.TimeEntry, error) {
	machine.stops++
	if machine.err != nil {
		return model.TimeEntry{}, machine.err
	}
	machine.state = session.Snapshot{Status: session.StatusIdle}
	return model.TimeEntry{ID: 1}, nil
}

type fakeActivity struct {
	idle time.Duration
	err  error
}

func (activity *fakeActivity) IdleDuration() (time.Duration, error) {
	return activity.idle, activity.err
}

func running(id model.EntryID) session.Snapshot {
	return session.Snapshot{Status: session.StatusRunning, EntryID: id, ProjectID: 1}
}

func newWatchdog(machine *fakeMachine, activity *fakeActivity) *Watchdog {
	watchdog := New(machine, activity, clock.NewFake(time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)), time.Second, zerolog.Nop())
	watchdog.UpdateConfig(model.IdleConfig{Enabled: true, TimeoutMinutes: 5})
	return watchdog
}

func TestEvaluate_StopsOncePerEpisode(t *testing.T) {
	machine := &fakeMachine{state: running(7), err: errors.New("store busy")}
	activity := &fakeActivity{idle: 5 * time.Minute}
	watchdog := newWatchdog(machine, activity)

	assert.True(t, watchdog.Evaluate(context.Background()))
	activity.idle = 20 * time.Minute
	assert.False(t, watchdog.Evaluate(context.Background()))
	assert.False(t, watchdog.Evaluate(context.Background()))
	assert.Equal(t, 1, machine.stops)
}

func TestEvaluate_StopGoesIdle(t *testing.T) {
	machine := &fakeMachine{state: running(7)}
	activity := &fakeActivity{idle: 6 * time.Minute}
	watchdog := newWatchdog(machine, activity)

	before := testutil.ToFloat64(metrics.AutoStopsTotal)
	assert.True(t, watchdog.Evaluate(context.Background()))
	assert.False(t, watchdog.Evaluate(context.Background()))
	assert.Equal(t, 1, machine.stops)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.AutoStopsTotal))
}

func TestEvaluate_EpisodeClearsOnActivity(t *testing.T) {
	machine := &fakeMachine{state: running(7), err: errors.New("store busy")}
	activity := &fakeActivity{idle: 10 * time.Minute}
	watchdog := newWatchdog(machine, activity)

	assert.True(t, watchdog.Evaluate(context.Background()))
	activity.idle = 10 * time.Second
	assert.False(t, watchdog.Evaluate(context.Background()))
	activity.idle = 10 * time.Minute
	assert.True(t, watchdog.Evaluate(context.Background()))
	assert.Equal(t, 2, machine.stops)
}

func TestEvaluate_NewSessionStartsNewEpisode(t *testing.T) {
	machine := &fakeMachine{state: running(7), err: errors.New("store busy")}
	activity := &fakeActivity{idle: 10 * time.Minute}
	watchdog := newWatchdog(machine, activity)

	assert.True(t, watchdog.Evaluate(context.Background()))
	machine.state = running(8)
	assert.True(t, watchdog.Evaluate(context.Background()))
	assert.Equal(t, 2, machine.stops)
}

func TestEvaluate_BelowTimeout(t *testing.T) {
	machine := &fakeMachine{state: running(7)}
	watchdog := newWatchdog(machine, &fakeActivity{idle: 4*time.Minute + 59*time.Second})

	assert.False(t, watchdog.Evaluate(context.Background()))
	assert.Zero(t, machine.stops)
}

func TestEvaluate_DisabledOrIdle(t *testing.T) {
	machine := &fakeMachine{state: session.Snapshot{Status: session.StatusIdle}}
	activity := &fakeActivity{idle: time.Hour}
	watchdog := newWatchdog(machine, activity)

	assert.False(t, watchdog.Evaluate(context.Background()), "nothing to stop while idle")

	machine.state = running(3)
	watchdog.UpdateConfig(model.IdleConfig{Enabled: false, TimeoutMinutes: 5})
	assert.False(t, watchdog.Evaluate(context.Background()))
	assert.Zero(t, machine.stops)
}

func TestEvaluate_ReadFailureFailsOpen(t *testing.T) {
	machine := &fakeMachine{state: running(7)}
	activity := &fakeActivity{idle: time.Hour, err: errors.New("xprintidle: exit status 1")}
	watchdog := newWatchdog(machine, activity)

	before := testutil.ToFloat64(metrics.IdleReadErrorsTotal)
	assert.False(t, watchdog.Evaluate(context.Background()))
	assert.Zero(t, machine.stops)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.IdleReadErrorsTotal))

	activity.err = ErrIdleUnsupported
	assert.False(t, watchdog.Evaluate(context.Background()))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.IdleReadErrorsTotal), "unsupported is not a read error")
}

func TestEvaluate_NilActivitySource(t *testing.T) {
	machine := &fakeMachine{state: running(7)}
	watchdog := New(machine, nil, clock.System(), 0, zerolog.Nop())
	watchdog.UpdateConfig(model.IdleConfig{Enabled: true, TimeoutMinutes: 1})

	assert.False(t, watchdog.Evaluate(context.Background()))
}
