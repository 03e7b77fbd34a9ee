package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"timetracker/internal/core/clock"
	"timetracker/internal/core/model"
	"timetracker/internal/metrics"

	"github.com/rs/zerolog"
)

// Store is the persistence the machine drives.
type Store interface {
	Begin(ctx context.Context, projectID model.ProjectID) (model.TimeEntry, error)
	End(ctx context.Context, entryID model.EntryID) (model.TimeEntry, error)
	CurrentOpenEntry(ctx context.Context) (*model.OpenEntry, error)
	LastUsedProjectID(ctx context.Context) (model.ProjectID, bool, error)
	ListProjects(ctx context.Context) ([]model.Project, error)
	GetProject(ctx context.Context, id model.ProjectID) (model.Project, error)
	DeleteProject(ctx context.Context, id model.ProjectID) (int64, error)
}

// Config contains runtime options for Machine.
type Config struct {
	TickInterval time.Duration
}

// Machine is the Idle/Running state machine for the tracked session.
type Machine struct {
	transitionMu sync.Mutex

	stateMu sync.RWMutex
	state   Snapshot

	subsMu sync.Mutex
	events []chan Event

	store   Store
	clock   clock.Clock
	options Config
	logger  zerolog.Logger
}

// New creates an idle Machine. Call Reconcile before serving intents.
func New(store Store, clk clock.Clock, options Config, logger zerolog.Logger) *Machine {
	if options.TickInterval <= 0 {
		options.TickInterval = time.Second
	}
	return &Machine{
		state:   Snapshot{Status: StatusIdle},
		store:   store,
		clock:   clk,
		options: options,
		logger:  logger.With().Str("component", "session").Logger(),
	}
}

// Subscribe registers a new observer channel. Slow observers miss events.
func (machine *Machine) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	machine.subsMu.Lock()
	machine.events = append(machine.events, ch)
	machine.subsMu.Unlock()
	return ch
}

// State returns the current snapshot with Elapsed derived from the clock.
func (machine *Machine) State() Snapshot {
	return machine.snapshotAt(machine.clock.Now())
}

// Reconcile restores the session from the store at startup.
func (machine *Machine) Reconcile(ctx context.Context) (Snapshot, error) {
	machine.transitionMu.Lock()
	defer machine.transitionMu.Unlock()

	open, err := machine.store.CurrentOpenEntry(ctx)
	if err != nil {
		return machine.State(), fmt.Errorf("reconcile session: %w", err)
	}

	if open != nil {
		now := machine.clock.Now()
		// Start times are stored rounded to the second, so up to half a second ahead is normal.
		if now.Add(time.Second).Before(open.StartTime) {
			metrics.ClockSkewTotal.WithLabelValues("reconcile").Inc()
			machine.logger.Warn().
				Time("start_time", open.StartTime).
				Time("now", now).
				Msg("Open entry starts in the future, elapsed clamped to zero")
		}
		machine.setState(Snapshot{
			Status:       StatusRunning,
			EntryID:      open.ID,
			ProjectID:    open.ProjectID,
			ProjectName:  open.ProjectName,
			ProjectColor: open.ProjectColor,
			StartTime:    open.StartTime,
		})
		machine.logger.Info().
			Int64("entry_id", int64(open.ID)).
			Str("project", open.ProjectName).
			Msg("Resumed running timer")
	} else {
		selected, err := machine.preselect(ctx)
		if err != nil {
			return machine.State(), fmt.Errorf("reconcile session: %w", err)
		}
		machine.setState(Snapshot{Status: StatusIdle, SelectedProjectID: selected})
	}

	snapshot := machine.State()
	machine.emit(Event{Type: EventStateChange, Snapshot: snapshot, At: machine.clock.Now()})
	return snapshot, nil
}

// Start begins a timer for projectID. It fails with ErrConstraint while Running.
func (machine *Machine) Start(ctx context.Context, projectID model.ProjectID) (Snapshot, error) {
	machine.transitionMu.Lock()
	defer machine.transitionMu.Unlock()

	err := machine.startLocked(ctx, projectID)
	metrics.TransitionsTotal.WithLabelValues("start", metrics.Result(err)).Inc()
	return machine.finish("start", err)
}

// Stop closes the running entry and returns it.
func (machine *Machine) Stop(ctx context.Context) (model.TimeEntry, error) {
	machine.transitionMu.Lock()
	defer machine.transitionMu.Unlock()

	closed, err := machine.stopLocked(ctx)
	metrics.TransitionsTotal.WithLabelValues("stop", metrics.Result(err)).Inc()
	_, err = machine.finish("stop", err)
	return closed, err
}

// SwitchTo stops the running timer and starts one for projectID as a single action.
// A failed stop leaves the state unchanged. A failed start after a successful stop
// leaves the machine Idle with projectID preselected.
func (machine *Machine) SwitchTo(ctx context.Context, projectID model.ProjectID) (Snapshot, error) {
	machine.transitionMu.Lock()
	defer machine.transitionMu.Unlock()

	err := machine.switchLocked(ctx, projectID)
	metrics.TransitionsTotal.WithLabelValues("switch", metrics.Result(err)).Inc()
	return machine.finish("switch", err)
}

// SelectProject preselects a project while Idle. It has no store effect.
func (machine *Machine) SelectProject(ctx context.Context, projectID model.ProjectID) (Snapshot, error) {
	machine.transitionMu.Lock()
	defer machine.transitionMu.Unlock()

	if machine.State().Running() {
		return machine.State(), fmt.Errorf("%w: cannot select a project while a timer is running", model.ErrConstraint)
	}
	if _, err := machine.requireProject(ctx, projectID); err != nil {
		return machine.State(), err
	}

	selected := projectID
	machine.setState(Snapshot{Status: StatusIdle, SelectedProjectID: &selected})
	snapshot := machine.State()
	machine.emit(Event{Type: EventStateChange, Snapshot: snapshot, At: machine.clock.Now()})
	return snapshot, nil
}

// DeleteProject removes a project and all of its entries. A timer running
// against the project is discarded with it and the machine becomes Idle.
func (machine *Machine) DeleteProject(ctx context.Context, projectID model.ProjectID) (int64, error) {
	machine.transitionMu.Lock()
	defer machine.transitionMu.Unlock()

	removed, err := machine.store.DeleteProject(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("delete project: %w", err)
	}

	current := machine.State()
	affected := (current.Running() && current.ProjectID == projectID) ||
		(!current.Running() && current.SelectedProjectID != nil && *current.SelectedProjectID == projectID)
	if !affected {
		return removed, nil
	}

	selected, err := machine.preselect(ctx)
	if err != nil {
		machine.logger.Warn().Err(err).Msg("Preselect after project delete failed")
		selected = nil
	}
	if current.Running() {
		metrics.SessionRunning.Set(0)
		machine.logger.Info().
			Int64("project_id", int64(projectID)).
			Int64("entry_id", int64(current.EntryID)).
			Msg("Running timer removed with its project")
	}
	machine.setState(Snapshot{Status: StatusIdle, SelectedProjectID: selected})
	machine.emit(Event{Type: EventStateChange, Snapshot: machine.State(), At: machine.clock.Now()})
	return removed, nil
}

// ProjectChanged refreshes the name and color of a running project after an edit.
func (machine *Machine) ProjectChanged(project model.Project) {
	machine.transitionMu.Lock()
	defer machine.transitionMu.Unlock()

	current := machine.State()
	if !current.Running() || current.ProjectID != project.ID {
		return
	}
	if current.ProjectName == project.Name && current.ProjectColor == project.Color {
		return
	}
	current.ProjectName = project.Name
	current.ProjectColor = project.Color
	current.Elapsed = 0
	machine.setState(current)
	machine.emit(Event{Type: EventStateChange, Snapshot: machine.State(), At: machine.clock.Now()})
}

// HandleIntent routes a status surface request through the regular transitions.
// Starting a project while Running switches to it.
func (machine *Machine) HandleIntent(ctx context.Context, intent Intent) error {
	switch intent.Kind {
	case IntentStartProject:
		if machine.State().Running() {
			_, err := machine.SwitchTo(ctx, intent.ProjectID)
			return err
		}
		_, err := machine.Start(ctx, intent.ProjectID)
		return err
	case IntentStop:
		_, err := machine.Stop(ctx)
		return err
	default:
		return fmt.Errorf("%w: unknown intent %q", model.ErrConstraint, intent.Kind)
	}
}

// Run emits a tick event every TickInterval while a timer runs, until ctx is done.
func (machine *Machine) Run(ctx context.Context) error {
	ticker := time.NewTicker(machine.options.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			machine.Tick()
		}
	}
}

// Tick publishes the elapsed time of a running timer. It is skipped while a
// transition is in flight, so a tick never trails the state_change of a later stop.
func (machine *Machine) Tick() {
	if !machine.transitionMu.TryLock() {
		return
	}
	defer machine.transitionMu.Unlock()

	now := machine.clock.Now()
	snapshot := machine.snapshotAt(now)
	if !snapshot.Running() {
		return
	}
	machine.emit(Event{Type: EventTick, Snapshot: snapshot, At: now})
}

func (machine *Machine) startLocked(ctx context.Context, projectID model.ProjectID) error {
	if machine.State().Running() {
		return fmt.Errorf("%w: a timer is already running", model.ErrConstraint)
	}
	project, err := machine.requireProject(ctx, projectID)
	if err != nil {
		return err
	}

	entry, err := machine.store.Begin(ctx, projectID)
	if err != nil {
		return err
	}

	machine.setState(Snapshot{
		Status:       StatusRunning,
		EntryID:      entry.ID,
		ProjectID:    project.ID,
		ProjectName:  project.Name,
		ProjectColor: project.Color,
		StartTime:    entry.StartTime,
	})
	metrics.SessionRunning.Set(1)
	machine.logger.Info().
		Int64("entry_id", int64(entry.ID)).
		Str("project", project.Name).
		Msg("Timer started")
	return nil
}

func (machine *Machine) stopLocked(ctx context.Context) (model.TimeEntry, error) {
	current := machine.State()
	if !current.Running() {
		return model.TimeEntry{}, fmt.Errorf("%w: no timer is running", model.ErrConstraint)
	}

	closed, err := machine.store.End(ctx, current.EntryID)
	if err != nil {
		return model.TimeEntry{}, err
	}

	selected := current.ProjectID
	machine.setState(Snapshot{Status: StatusIdle, SelectedProjectID: &selected})
	metrics.SessionRunning.Set(0)

	event := machine.logger.Info().Int64("entry_id", int64(closed.ID)).Str("project", current.ProjectName)
	if closed.Duration != nil {
		event = event.Int64("duration_seconds", *closed.Duration)
	}
	event.Msg("Timer stopped")
	return closed, nil
}

func (machine *Machine) switchLocked(ctx context.Context, projectID model.ProjectID) error {
	if !machine.State().Running() {
		return machine.startLocked(ctx, projectID)
	}
	if _, err := machine.requireProject(ctx, projectID); err != nil {
		return err
	}
	if _, err := machine.stopLocked(ctx); err != nil {
		return err
	}
	if err := machine.startLocked(ctx, projectID); err != nil {
		selected := projectID
		machine.setState(Snapshot{Status: StatusIdle, SelectedProjectID: &selected})
		machine.emit(Event{Type: EventStateChange, Snapshot: machine.State(), At: machine.clock.Now()})
		return err
	}
	return nil
}

// finish emits the outcome of a transition and wraps its error.
func (machine *Machine) finish(transition string, err error) (Snapshot, error) {
	now := machine.clock.Now()
	snapshot := machine.snapshotAt(now)
	if err != nil {
		machine.logger.Warn().Err(err).Str("transition", transition).Msg("Transition failed")
		wrapped := fmt.Errorf("%s timer: %w", transition, err)
		machine.emit(Event{Type: EventError, Snapshot: snapshot, Err: wrapped, At: now})
		return snapshot, wrapped
	}
	machine.emit(Event{Type: EventStateChange, Snapshot: snapshot, At: now})
	return snapshot, nil
}

func (machine *Machine) requireProject(ctx context.Context, projectID model.ProjectID) (model.Project, error) {
	project, err := machine.store.GetProject(ctx, projectID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Project{}, fmt.Errorf("%w: project %d does not exist", model.ErrConstraint, projectID)
	}
	return project, err
}

// preselect picks the most recently used project, then the first by name.
func (machine *Machine) preselect(ctx context.Context) (*model.ProjectID, error) {
	lastUsed, ok, err := machine.store.LastUsedProjectID(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		return &lastUsed, nil
	}

	projects, err := machine.store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, nil
	}
	first := projects[0].ID
	return &first, nil
}

func (machine *Machine) setState(snapshot Snapshot) {
	machine.stateMu.Lock()
	machine.state = snapshot
	machine.stateMu.Unlock()
}

func (machine *Machine) snapshotAt(now time.Time) Snapshot {
	machine.stateMu.RLock()
	snapshot := machine.state
	machine.stateMu.RUnlock()

	if snapshot.SelectedProjectID != nil {
		selected := *snapshot.SelectedProjectID
		snapshot.SelectedProjectID = &selected
	}
	if snapshot.Running() {
		snapshot.Elapsed = clock.Elapsed(now, snapshot.StartTime)
	}
	return snapshot
}

func (machine *Machine) emit(event Event) {
	machine.subsMu.Lock()
	events := append([]chan Event(nil), machine.events...)
	machine.subsMu.Unlock()

	for _, ch := range events {
		select {
		case ch <- event:
		default:
		}
	}
}
