package model

import "time"

// ProjectID identifies a project.
type ProjectID int64

// EntryID identifies a time entry.
type EntryID int64

// DefaultProjectColor is used when a project is created without a color.
const DefaultProjectColor = "#3B82F6"

// Project is a category time is tracked against.
type Project struct {
	ID        ProjectID
	Name      string
	Color     string
	CreatedAt time.Time
}

// Summary returns the menu representation of the project.
func (project Project) Summary() ProjectSummary {
	return ProjectSummary{ID: project.ID, Name: project.Name, Color: project.Color}
}

// ProjectSummary is the subset of a project shown in the status menu.
type ProjectSummary struct {
	ID    ProjectID
	Name  string
	Color string
}

// TimeEntry is a tracked interval. EndTime and Duration are nil while it is open.
type TimeEntry struct {
	ID        EntryID
	ProjectID ProjectID
	StartTime time.Time
	EndTime   *time.Time
	Duration  *int64
	CreatedAt time.Time
}

// Open reports whether the entry is still running.
func (entry TimeEntry) Open() bool {
	return entry.EndTime == nil
}

// OpenEntry is the running entry joined with its project.
type OpenEntry struct {
	TimeEntry
	ProjectName  string
	ProjectColor string
}

// EntryWithProject is a closed entry joined with its project for history views.
type EntryWithProject struct {
	TimeEntry
	ProjectName  string
	ProjectColor string
}

// Summaries converts projects to menu rows, keeping order.
func Summaries(projects []Project) []ProjectSummary {
	out := make([]ProjectSummary, 0, len(projects))
	for _, project := range projects {
		out = append(out, project.Summary())
	}
	return out
}
