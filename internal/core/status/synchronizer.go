package status

import (
	"sync"

	"timetracker/internal/core/model"
	"timetracker/internal/core/session"
	"timetracker/internal/metrics"

	"github.com/rs/zerolog"
)

const intentBuffer = 16

// Synchronizer translates session state into surface pushes.
// Every part is compared with what was last pushed, so redundant inputs are no-ops.
type Synchronizer struct {
	mu        sync.Mutex
	surface   Surface
	state     session.Snapshot
	projects  []model.ProjectSummary
	showTimer bool

	pushedIcon  *IconSpec
	pushedLabel *string
	pushedMenu  *MenuModel

	intents chan session.Intent
	logger  zerolog.Logger
}

// NewSynchronizer creates a synchronizer for surface. Nothing is pushed until the first Apply.
func NewSynchronizer(surface Surface, logger zerolog.Logger) *Synchronizer {
	return &Synchronizer{
		surface:   surface,
		state:     session.Snapshot{Status: session.StatusIdle},
		showTimer: true,
		intents:   make(chan session.Intent, intentBuffer),
		logger:    logger.With().Str("component", "status").Logger(),
	}
}

// ApplyState pushes whatever the snapshot changes.
func (synchronizer *Synchronizer) ApplyState(snapshot session.Snapshot) {
	synchronizer.mu.Lock()
	defer synchronizer.mu.Unlock()
	synchronizer.state = snapshot
	synchronizer.syncLocked()
}

// ApplyProjects replaces the menu's project list.
func (synchronizer *Synchronizer) ApplyProjects(projects []model.ProjectSummary) {
	synchronizer.mu.Lock()
	defer synchronizer.mu.Unlock()
	synchronizer.projects = append([]model.ProjectSummary(nil), projects...)
	synchronizer.syncLocked()
}

// ApplySettings toggles the elapsed-time label.
func (synchronizer *Synchronizer) ApplySettings(showTimer bool) {
	synchronizer.mu.Lock()
	defer synchronizer.mu.Unlock()
	synchronizer.showTimer = showTimer
	synchronizer.syncLocked()
}

// Intents returns requests raised from the surface.
func (synchronizer *Synchronizer) Intents() <-chan session.Intent {
	return synchronizer.intents
}

// Emit queues an intent from the surface. It never blocks the caller.
func (synchronizer *Synchronizer) Emit(intent session.Intent) {
	select {
	case synchronizer.intents <- intent:
	default:
		synchronizer.logger.Warn().Str("intent", string(intent.Kind)).Msg("Intent queue full, dropping")
	}
}

func (synchronizer *Synchronizer) syncLocked() {
	icon, label, menu := synchronizer.renderLocked()

	if synchronizer.pushedIcon == nil || *synchronizer.pushedIcon != icon {
		synchronizer.pushedIcon = &icon
		synchronizer.surface.SetIcon(icon)
		metrics.SurfacePushesTotal.WithLabelValues("icon").Inc()
	}
	if synchronizer.pushedLabel == nil || *synchronizer.pushedLabel != label {
		synchronizer.pushedLabel = &label
		synchronizer.surface.SetLabel(label)
		metrics.SurfacePushesTotal.WithLabelValues("label").Inc()
	}
	if synchronizer.pushedMenu == nil || !synchronizer.pushedMenu.Equal(menu) {
		synchronizer.pushedMenu = &menu
		synchronizer.surface.SetMenu(menu)
		metrics.SurfacePushesTotal.WithLabelValues("menu").Inc()
	}
}

func (synchronizer *Synchronizer) renderLocked() (IconSpec, string, MenuModel) {
	state := synchronizer.state
	menu := MenuModel{
		Projects:    append([]model.ProjectSummary(nil), synchronizer.projects...),
		StopEnabled: state.Running(),
	}
	if !state.Running() {
		return NeutralIcon, "", menu
	}

	menu.ActiveProjectID = state.ProjectID
	label := ""
	if synchronizer.showTimer {
		label = FormatLabel(state.Elapsed)
	}
	return ProjectIcon(state.ProjectName, state.ProjectColor), label, menu
}
