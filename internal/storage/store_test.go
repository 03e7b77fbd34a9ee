package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"timetracker/internal/core/clock"
	"timetracker/internal/core/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, *clock.Fake) {
	t.Helper()
	fake := clock.NewFake(t0)
	store, err := Open(filepath.Join(t.TempDir(), "timetracker.db"), fake, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, fake
}

func projectNamed(t *testing.T, store *Store, name string) model.Project {
	t.Helper()
	projects, err := store.ListProjects(context.Background())
	require.NoError(t, err)
	for _, project := range projects {
		if project.Name == name {
			return project
		}
	}
	t.Fatalf("project %q not seeded", name)
	return model.Project{}
}

func countOpen(t *testing.T, store *Store) int {
	t.Helper()
	var count int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM time_entries WHERE end_time IS NULL").Scan(&count))
	return count
}

func TestOpen_CreatesSchemaAndSeeds(t *testing.T) {
	store, _ := newTestStore(t)

	for _, table := range []string{"projects", "time_entries"} {
		var count int
		err := store.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s should exist", table)
	}

	projects, err := store.ListProjects(context.Background())
	require.NoError(t, err)
	names := make([]string, 0, len(projects))
	for _, project := range projects {
		names = append(names, project.Name)
	}
	assert.Equal(t, []string{"Health", "Learning", "Personal", "Side Project", "Work"}, names)
	assert.Equal(t, "#3B82F6", projectNamed(t, store, "Work").Color)
}

func TestOpen_SeedsOnlyOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timetracker.db")
	first, err := Open(path, clock.NewFake(t0), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(path, clock.NewFake(t0), zerolog.Nop())
	require.NoError(t, err)
	defer second.Close()

	projects, err := second.ListProjects(context.Background())
	require.NoError(t, err)
	assert.Len(t, projects, 5)
}

func TestBeginEnd_Duration(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()
	work := projectNamed(t, store, "Work")

	entry, err := store.Begin(ctx, work.ID)
	require.NoError(t, err)
	assert.True(t, entry.Open())
	assert.Equal(t, t0, entry.StartTime)

	fake.Advance(65 * time.Second)
	closed, err := store.End(ctx, entry.ID)
	require.NoError(t, err)
	require.NotNil(t, closed.EndTime)
	require.NotNil(t, closed.Duration)
	assert.Equal(t, t0, closed.StartTime)
	assert.Equal(t, int64(65), *closed.Duration)
	assert.Equal(t, t0.Add(65*time.Second), *closed.EndTime)
}

func TestBeginEnd_ZeroElapsed(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	entry, err := store.Begin(ctx, projectNamed(t, store, "Work").ID)
	require.NoError(t, err)
	closed, err := store.End(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), *closed.Duration)
}

func TestBegin_RejectsSecondOpenEntry(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Begin(ctx, projectNamed(t, store, "Work").ID)
	require.NoError(t, err)

	_, err = store.Begin(ctx, projectNamed(t, store, "Health").ID)
	assert.ErrorIs(t, err, model.ErrConstraint)
	assert.Equal(t, 1, countOpen(t, store))
}

func TestBegin_RejectsUnknownProject(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Begin(context.Background(), 9999)
	assert.ErrorIs(t, err, model.ErrConstraint)
	assert.Equal(t, 0, countOpen(t, store))
}

func TestSingleOpenIndex(t *testing.T) {
	store, _ := newTestStore(t)
	work := projectNamed(t, store, "Work")

	_, err := store.db.Exec("INSERT INTO time_entries (project_id, start_time) VALUES (?, ?)", int64(work.ID), "2025-03-04 09:00:00")
	require.NoError(t, err)
	_, err = store.db.Exec("INSERT INTO time_entries (project_id, start_time) VALUES (?, ?)", int64(work.ID), "2025-03-04 09:01:00")
	assert.Error(t, err, "a second open entry must violate the partial unique index")
}

func TestEnd_NotFound(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.End(ctx, 42)
	assert.ErrorIs(t, err, model.ErrNotFound)

	entry, err := store.Begin(ctx, projectNamed(t, store, "Work").ID)
	require.NoError(t, err)
	_, err = store.End(ctx, entry.ID)
	require.NoError(t, err)

	_, err = store.End(ctx, entry.ID)
	assert.ErrorIs(t, err, model.ErrNotFound, "closing twice must fail")
}

func TestEnd_ClampsClockSkew(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()

	entry, err := store.Begin(ctx, projectNamed(t, store, "Work").ID)
	require.NoError(t, err)

	fake.Advance(-10 * time.Minute)
	closed, err := store.End(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), *closed.Duration)
	assert.Equal(t, closed.StartTime, *closed.EndTime)
}

func TestCurrentOpenEntry(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	open, err := store.CurrentOpenEntry(ctx)
	require.NoError(t, err)
	assert.Nil(t, open)

	learning := projectNamed(t, store, "Learning")
	entry, err := store.Begin(ctx, learning.ID)
	require.NoError(t, err)

	open, err = store.CurrentOpenEntry(ctx)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, entry.ID, open.ID)
	assert.Equal(t, "Learning", open.ProjectName)
	assert.Equal(t, "#F59E0B", open.ProjectColor)
	assert.Equal(t, t0, open.StartTime)
}

func TestLastUsedProjectID(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()

	_, ok, err := store.LastUsedProjectID(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	for _, name := range []string{"Work", "Health"} {
		entry, err := store.Begin(ctx, projectNamed(t, store, name).ID)
		require.NoError(t, err)
		fake.Advance(time.Minute)
		_, err = store.End(ctx, entry.ID)
		require.NoError(t, err)
	}

	id, ok, err := store.LastUsedProjectID(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, projectNamed(t, store, "Health").ID, id)
}

func TestDeleteProject_Cascades(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()
	work := projectNamed(t, store, "Work")

	for i := 0; i < 3; i++ {
		entry, err := store.Begin(ctx, work.ID)
		require.NoError(t, err)
		fake.Advance(time.Minute)
		_, err = store.End(ctx, entry.ID)
		require.NoError(t, err)
	}

	removed, err := store.DeleteProject(ctx, work.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	entries, err := store.EntriesForProject(ctx, work.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = store.GetProject(ctx, work.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = store.DeleteProject(ctx, work.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestDeleteProject_RemovesOpenEntry(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	work := projectNamed(t, store, "Work")

	_, err := store.Begin(ctx, work.ID)
	require.NoError(t, err)

	_, err = store.DeleteProject(ctx, work.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, countOpen(t, store))
}

func TestProjectCRUD(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateProject(ctx, "   ", "#000000")
	assert.ErrorIs(t, err, model.ErrConstraint)

	created, err := store.CreateProject(ctx, " Reading ", "")
	require.NoError(t, err)
	assert.Equal(t, "Reading", created.Name)
	assert.Equal(t, model.DefaultProjectColor, created.Color)

	updated, err := store.UpdateProject(ctx, created.ID, "Books", "#EF4444")
	require.NoError(t, err)
	assert.Equal(t, "Books", updated.Name)
	assert.Equal(t, "#EF4444", updated.Color)

	_, err = store.UpdateProject(ctx, 9999, "Ghost", "")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUpdateEntry_RoundsAndRecomputes(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()
	work := projectNamed(t, store, "Work")
	health := projectNamed(t, store, "Health")

	entry, err := store.Begin(ctx, work.ID)
	require.NoError(t, err)
	_, err = store.UpdateEntry(ctx, entry.ID, work.ID, t0, t0.Add(time.Hour))
	assert.ErrorIs(t, err, model.ErrConstraint, "open entries cannot be edited")

	fake.Advance(time.Minute)
	_, err = store.End(ctx, entry.ID)
	require.NoError(t, err)

	start := t0.Add(400 * time.Millisecond)
	end := t0.Add(90*time.Second + 600*time.Millisecond)
	edited, err := store.UpdateEntry(ctx, entry.ID, health.ID, start, end)
	require.NoError(t, err)
	assert.Equal(t, health.ID, edited.ProjectID)
	assert.Equal(t, t0, edited.StartTime)
	assert.Equal(t, int64(91), *edited.Duration)

	reversed, err := store.UpdateEntry(ctx, entry.ID, health.ID, t0.Add(time.Hour), t0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), *reversed.Duration)
	assert.Equal(t, reversed.StartTime, *reversed.EndTime)

	_, err = store.UpdateEntry(ctx, entry.ID, 9999, t0, t0)
	assert.ErrorIs(t, err, model.ErrConstraint)
}

func TestDeleteEntry(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	entry, err := store.Begin(ctx, projectNamed(t, store, "Work").ID)
	require.NoError(t, err)
	assert.ErrorIs(t, store.DeleteEntry(ctx, entry.ID), model.ErrConstraint)

	_, err = store.End(ctx, entry.ID)
	require.NoError(t, err)
	require.NoError(t, store.DeleteEntry(ctx, entry.ID))
	assert.ErrorIs(t, store.DeleteEntry(ctx, entry.ID), model.ErrNotFound)
}

func TestTotalsAndHistory(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()
	work := projectNamed(t, store, "Work")

	durations := []time.Duration{10 * time.Minute, 20 * time.Minute}
	for _, d := range durations {
		entry, err := store.Begin(ctx, work.ID)
		require.NoError(t, err)
		fake.Advance(d)
		_, err = store.End(ctx, entry.ID)
		require.NoError(t, err)
		fake.Advance(time.Minute)
	}

	// Running entries are excluded from totals and history.
	_, err := store.Begin(ctx, work.ID)
	require.NoError(t, err)

	total, err := store.TotalBetween(ctx, t0, t0.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, total)

	week, err := store.WeekTotal(ctx, fake.Now())
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, week)

	recent, err := store.RecentEntries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, int64(1200), *recent[0].Duration, "newest first")
	assert.Equal(t, "Work", recent[0].ProjectName)
}

func TestOpenReadOnly_MissingFileIsNotCreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.db")

	_, err := OpenReadOnly(path, nil, zerolog.Nop())

	assert.Error(t, err)
	assert.NoFileExists(t, path)
}

func TestOpenReadOnly_QueriesButNeverWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timetracker.db")
	writer, err := Open(path, clock.NewFake(t0), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader, err := OpenReadOnly(path, clock.NewFake(t0), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = reader.Close() })
	ctx := context.Background()

	projects, err := reader.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 5)

	_, err = reader.CreateProject(ctx, "Errands", "#123456")
	assert.ErrorIs(t, err, model.ErrStorage)
	_, err = reader.Begin(ctx, projects[0].ID)
	assert.Error(t, err)

	projects, err = reader.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 5)
}
