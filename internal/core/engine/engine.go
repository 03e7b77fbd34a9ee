package engine

import (
	"context"
	"fmt"
	"time"

	"timetracker/internal/core/clock"
	"timetracker/internal/core/model"
	"timetracker/internal/core/reminder"
	"timetracker/internal/core/session"
	"timetracker/internal/core/settings"
	"timetracker/internal/core/status"
	"timetracker/internal/core/watchdog"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Store is everything the engine needs from persistence.
type Store interface {
	session.Store
	CreateProject(ctx context.Context, name, color string) (model.Project, error)
	UpdateProject(ctx context.Context, id model.ProjectID, name, color string) (model.Project, error)
	UpdateEntry(ctx context.Context, id model.EntryID, projectID model.ProjectID, start, end time.Time) (model.TimeEntry, error)
	DeleteEntry(ctx context.Context, id model.EntryID) error
	RecentEntries(ctx context.Context, limit int) ([]model.EntryWithProject, error)
	EntriesForProject(ctx context.Context, projectID model.ProjectID) ([]model.EntryWithProject, error)
	TodayTotal(ctx context.Context, now time.Time) (time.Duration, error)
	WeekTotal(ctx context.Context, now time.Time) (time.Duration, error)
}

// Options holds loop cadences. Zero values fall back to component defaults.
type Options struct {
	TickInterval          time.Duration
	IdleCheckInterval     time.Duration
	ReminderCheckInterval time.Duration
	Location              *time.Location
	// OnError receives failures of surface-originated intents.
	OnError func(error)
}

// Dependencies are the collaborators the engine wires together.
type Dependencies struct {
	Store    Store
	Clock    clock.Clock
	Surface  status.Surface
	Notifier reminder.Notifier
	Activity watchdog.ActivitySource
	Settings *settings.Gateway
	Logger   zerolog.Logger
}

// Totals are the aggregated durations shown on the dashboard.
type Totals struct {
	Today time.Duration
	Week  time.Duration
}

// Engine is the API the UI talks to.
type Engine struct {
	store        Store
	clock        clock.Clock
	machine      *session.Machine
	watchdog     *watchdog.Watchdog
	scheduler    *reminder.Scheduler
	synchronizer *status.Synchronizer
	settings     *settings.Gateway
	events       <-chan session.Event
	onError      func(error)
	logger       zerolog.Logger
}

// New wires the engine. Settings changes reach every component from here on.
func New(deps Dependencies, options Options) *Engine {
	logger := deps.Logger
	machine := session.New(deps.Store, deps.Clock, session.Config{TickInterval: options.TickInterval}, logger)

	engine := &Engine{
		store:        deps.Store,
		clock:        deps.Clock,
		machine:      machine,
		watchdog:     watchdog.New(machine, deps.Activity, deps.Clock, options.IdleCheckInterval, logger),
		scheduler:    reminder.New(deps.Notifier, machine, deps.Clock, reminder.Options{EvaluateEvery: options.ReminderCheckInterval, Location: options.Location}, logger),
		synchronizer: status.NewSynchronizer(deps.Surface, logger),
		settings:     deps.Settings,
		events:       machine.Subscribe(64),
		onError:      options.OnError,
		logger:       logger.With().Str("component", "engine").Logger(),
	}

	deps.Settings.Subscribe(func(current settings.Settings) {
		engine.watchdog.UpdateConfig(current.Idle)
		engine.scheduler.UpdateConfig(current.Reminder)
		engine.synchronizer.ApplySettings(current.ShowTimerInTray)
	})
	return engine
}

// Bootstrap restores the session from the store and fills the status menu.
func (engine *Engine) Bootstrap(ctx context.Context) (session.Snapshot, error) {
	snapshot, err := engine.machine.Reconcile(ctx)
	if err != nil {
		return snapshot, err
	}
	if err := engine.refreshProjects(ctx); err != nil {
		return snapshot, err
	}
	engine.synchronizer.ApplyState(snapshot)
	return snapshot, nil
}

// Run drives the tick loop, watchdog, scheduler and routers until ctx is cancelled.
func (engine *Engine) Run(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return engine.machine.Run(groupCtx) })
	group.Go(func() error { return engine.watchdog.Run(groupCtx) })
	group.Go(func() error { return engine.scheduler.Run(groupCtx) })
	group.Go(func() error { return engine.routeEvents(groupCtx) })
	group.Go(func() error { return engine.routeIntents(groupCtx) })

	engine.logger.Info().Msg("Engine running")
	err := group.Wait()
	engine.logger.Info().Msg("Engine stopped")
	return err
}

// SessionState returns the current snapshot.
func (engine *Engine) SessionState() session.Snapshot {
	return engine.machine.State()
}

// Subscribe returns a stream of session events.
func (engine *Engine) Subscribe(buffer int) <-chan session.Event {
	return engine.machine.Subscribe(buffer)
}

// Emit queues a surface request such as a tray menu click.
func (engine *Engine) Emit(intent session.Intent) {
	engine.synchronizer.Emit(intent)
}

// Start begins a timer for projectID.
func (engine *Engine) Start(ctx context.Context, projectID model.ProjectID) (session.Snapshot, error) {
	return engine.machine.Start(ctx, projectID)
}

// Stop closes the running entry.
func (engine *Engine) Stop(ctx context.Context) (model.TimeEntry, error) {
	return engine.machine.Stop(ctx)
}

// SwitchTo moves the running timer to projectID, or starts one while Idle.
func (engine *Engine) SwitchTo(ctx context.Context, projectID model.ProjectID) (session.Snapshot, error) {
	return engine.machine.SwitchTo(ctx, projectID)
}

// SelectProject preselects a project while Idle.
func (engine *Engine) SelectProject(ctx context.Context, projectID model.ProjectID) (session.Snapshot, error) {
	return engine.machine.SelectProject(ctx, projectID)
}

// UpdateSettings applies a partial settings change at runtime.
func (engine *Engine) UpdateSettings(partial settings.Partial) (settings.Settings, error) {
	return engine.settings.Update(partial)
}

// Settings returns the active settings.
func (engine *Engine) Settings() settings.Settings {
	return engine.settings.Current()
}

// Projects lists projects by name.
func (engine *Engine) Projects(ctx context.Context) ([]model.Project, error) {
	return engine.store.ListProjects(ctx)
}

// CreateProject adds a project and refreshes the status menu.
func (engine *Engine) CreateProject(ctx context.Context, name, color string) (model.Project, error) {
	project, err := engine.store.CreateProject(ctx, name, color)
	if err != nil {
		return model.Project{}, fmt.Errorf("create project: %w", err)
	}
	return project, engine.refreshProjects(ctx)
}

// UpdateProject edits a project and refreshes the status menu and running state.
func (engine *Engine) UpdateProject(ctx context.Context, id model.ProjectID, name, color string) (model.Project, error) {
	project, err := engine.store.UpdateProject(ctx, id, name, color)
	if err != nil {
		return model.Project{}, fmt.Errorf("update project: %w", err)
	}
	engine.machine.ProjectChanged(project)
	return project, engine.refreshProjects(ctx)
}

// DeleteProject removes a project with all of its entries. A timer running
// against it is discarded and the session becomes Idle.
func (engine *Engine) DeleteProject(ctx context.Context, id model.ProjectID) (int64, error) {
	removed, err := engine.machine.DeleteProject(ctx, id)
	if err != nil {
		return 0, err
	}
	return removed, engine.refreshProjects(ctx)
}

// UpdateEntry edits a closed entry. The running entry is rejected with ErrConstraint.
func (engine *Engine) UpdateEntry(ctx context.Context, id model.EntryID, projectID model.ProjectID, start, end time.Time) (model.TimeEntry, error) {
	entry, err := engine.store.UpdateEntry(ctx, id, projectID, start, end)
	if err != nil {
		return model.TimeEntry{}, fmt.Errorf("edit entry: %w", err)
	}
	engine.logger.Info().Int64("entry_id", int64(id)).Int64("project_id", int64(projectID)).Msg("Entry edited")
	return entry, nil
}

// DeleteEntry removes a closed entry.
func (engine *Engine) DeleteEntry(ctx context.Context, id model.EntryID) error {
	if err := engine.store.DeleteEntry(ctx, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	engine.logger.Info().Int64("entry_id", int64(id)).Msg("Entry deleted")
	return nil
}

// History returns recent closed entries.
func (engine *Engine) History(ctx context.Context, limit int) ([]model.EntryWithProject, error) {
	return engine.store.RecentEntries(ctx, limit)
}

// ProjectHistory returns every entry of a project.
func (engine *Engine) ProjectHistory(ctx context.Context, id model.ProjectID) ([]model.EntryWithProject, error) {
	return engine.store.EntriesForProject(ctx, id)
}

// Totals sums tracked time for today and the last seven days.
func (engine *Engine) Totals(ctx context.Context) (Totals, error) {
	now := engine.clock.Now().Local()
	today, err := engine.store.TodayTotal(ctx, now)
	if err != nil {
		return Totals{}, err
	}
	week, err := engine.store.WeekTotal(ctx, now)
	if err != nil {
		return Totals{}, err
	}
	return Totals{Today: today, Week: week}, nil
}

func (engine *Engine) refreshProjects(ctx context.Context) error {
	projects, err := engine.store.ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("refresh projects: %w", err)
	}
	engine.synchronizer.ApplyProjects(model.Summaries(projects))
	return nil
}

func (engine *Engine) routeEvents(ctx context.Context) error {
	last := engine.machine.State()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-engine.events:
			last = engine.handleEvent(event, last)
		}
	}
}

// handleEvent forwards one machine event and returns the snapshot it applied.
func (engine *Engine) handleEvent(event session.Event, last session.Snapshot) session.Snapshot {
	if event.Type == session.EventError {
		return last
	}
	current := event.Snapshot
	if event.Type == session.EventTick && (!last.Running() || last.EntryID != current.EntryID) {
		engine.logger.Debug().Int64("entry_id", int64(current.EntryID)).Msg("Dropped tick for a finished session")
		return last
	}
	engine.synchronizer.ApplyState(current)

	switch {
	case current.Running() && (!last.Running() || last.EntryID != current.EntryID):
		engine.scheduler.SessionStarted()
	case last.Running() && !current.Running():
		engine.scheduler.SessionStopped(event.At)
	}
	return current
}

func (engine *Engine) routeIntents(ctx context.Context) error {
	intents := engine.synchronizer.Intents()
	for {
		select {
		case <-ctx.Done():
			return nil
		case intent := <-intents:
			if err := engine.machine.HandleIntent(ctx, intent); err != nil {
				engine.logger.Warn().Err(err).Str("intent", string(intent.Kind)).Msg("Intent failed")
				if engine.onError != nil {
					engine.onError(err)
				}
			}
		}
	}
}
