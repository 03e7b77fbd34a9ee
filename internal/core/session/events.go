package session

import (
	"time"

	"timetracker/internal/core/model"
)

// Status is the machine state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
)

// EventType defines the type of Machine event.
type EventType string

const (
	EventStateChange EventType = "state_change"
	EventTick        EventType = "tick"
	EventError       EventType = "error"
)

// Snapshot is a consistent copy of the session state.
// Running fields are zero while Idle; SelectedProjectID is nil while Running.
type Snapshot struct {
	Status            Status
	EntryID           model.EntryID
	ProjectID         model.ProjectID
	ProjectName       string
	ProjectColor      string
	StartTime         time.Time
	Elapsed           time.Duration
	SelectedProjectID *model.ProjectID
}

// Running reports whether a timer is running.
func (snapshot Snapshot) Running() bool {
	return snapshot.Status == StatusRunning
}

// Event represents a Machine update for observers.
type Event struct {
	Type     EventType
	Snapshot Snapshot
	Err      error
	At       time.Time
}

// IntentKind names a request coming from the status surface.
type IntentKind string

const (
	IntentStartProject IntentKind = "start-project"
	IntentStop         IntentKind = "stop"
)

// Intent is a transition request from outside the UI window.
type Intent struct {
	Kind      IntentKind
	ProjectID model.ProjectID
}

// StartProject builds a start-project intent.
func StartProject(id model.ProjectID) Intent {
	return Intent{Kind: IntentStartProject, ProjectID: id}
}

// StopTimer builds a stop intent.
func StopTimer() Intent {
	return Intent{Kind: IntentStop}
}
