package session

import (
	"context"
	"database/sql"
	"errors"
	"runtime"
	"sync"
	"testing"

	"timetracker/internal/core/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickNeverTrailsStop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	events := f.machine.Subscribe(1 << 16)

	collected := make(chan []Event, 1)
	finish := make(chan struct{})
	go func() {
		var out []Event
		for {
			select {
			case event := <-events:
				out = append(out, event)
			case <-finish:
				for {
					select {
					case event := <-events:
						out = append(out, event)
					default:
						collected <- out
						return
					}
				}
			}
		}
	}()

	stopTicking := make(chan struct{})
	var ticker sync.WaitGroup
	ticker.Add(1)
	go func() {
		defer ticker.Done()
		for {
			select {
			case <-stopTicking:
				return
			default:
				f.machine.Tick()
				runtime.Gosched()
			}
		}
	}()

	for i := 0; i < 300; i++ {
		_, err := f.machine.Start(ctx, f.ids["Work"])
		require.NoError(t, err)
		_, err = f.machine.Stop(ctx)
		require.NoError(t, err)
	}
	close(stopTicking)
	ticker.Wait()
	close(finish)

	var last *Event
	for _, event := range <-collected {
		switch event.Type {
		case EventStateChange:
			current := event
			last = &current
		case EventTick:
			require.NotNil(t, last, "tick before any state change")
			require.True(t, last.Snapshot.Running(), "tick for entry %d after the timer stopped", event.Snapshot.EntryID)
			require.Equal(t, last.Snapshot.EntryID, event.Snapshot.EntryID)
		}
	}
	require.NotNil(t, last)
	assert.False(t, last.Snapshot.Running())
}

func TestConcurrentTransitionsKeepOneOpenEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	projects := []model.ProjectID{f.ids["Work"], f.ids["Health"], f.ids["Learning"]}

	var workers sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		workers.Add(1)
		go func(worker int) {
			defer workers.Done()
			for i := 0; i < 40; i++ {
				project := projects[(worker+i)%len(projects)]
				var err error
				switch (worker + i) % 4 {
				case 0:
					_, err = f.machine.Start(ctx, project)
				case 1:
					_, err = f.machine.Stop(ctx)
				case 2:
					_, err = f.machine.SwitchTo(ctx, project)
				case 3:
					err = f.machine.HandleIntent(ctx, StartProject(project))
				}
				if err != nil && !errors.Is(err, model.ErrConstraint) {
					assert.NoError(t, err)
				}
			}
		}(worker)
	}
	workers.Wait()

	open, err := f.store.CurrentOpenEntry(ctx)
	require.NoError(t, err)
	state := f.machine.State()
	if open == nil {
		assert.False(t, state.Running())
	} else {
		require.True(t, state.Running())
		assert.Equal(t, open.ID, state.EntryID)
		assert.Equal(t, open.ProjectID, state.ProjectID)
	}

	db, err := sql.Open("sqlite", f.path)
	require.NoError(t, err)
	defer db.Close()
	var openRows int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM time_entries WHERE end_time IS NULL").Scan(&openRows))
	assert.LessOrEqual(t, openRows, 1)
	if state.Running() {
		assert.Equal(t, 1, openRows)
	}
}
