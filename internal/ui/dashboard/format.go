package dashboard

import (
	"fmt"
	"strings"
	"time"

	"timetracker/internal/core/model"
	"timetracker/internal/core/session"
)

const (
	historyTimeLayout = "Mon 02 Jan 15:04"
	entryTimeLayout   = "2006-01-02 15:04"
)

// formatTotal renders a summed duration as "3h 05m".
func formatTotal(total time.Duration) string {
	if total < 0 {
		total = 0
	}
	minutes := int(total / time.Minute)
	return fmt.Sprintf("%dh %02dm", minutes/60, minutes%60)
}

// formatElapsed renders a running timer as "1:02:03".
func formatElapsed(elapsed time.Duration) string {
	if elapsed < 0 {
		elapsed = 0
	}
	seconds := int(elapsed / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", seconds/3600, seconds/60%60, seconds%60)
}

func statusText(snapshot session.Snapshot) string {
	if !snapshot.Running() {
		return "Not tracking"
	}
	return fmt.Sprintf("%s  %s", snapshot.ProjectName, formatElapsed(snapshot.Elapsed))
}

func historyRow(entry model.EntryWithProject) string {
	var seconds int64
	if entry.Duration != nil {
		seconds = *entry.Duration
	}
	return fmt.Sprintf("%s  %-20s %s",
		entry.StartTime.Local().Format(historyTimeLayout),
		entry.ProjectName,
		formatElapsed(time.Duration(seconds)*time.Second),
	)
}

// projectIndex builds picker options and maps them back to ids. Names are not
// unique, so a shared name gets the project id appended.
func projectIndex(projects []model.Project) ([]string, map[string]model.ProjectID) {
	counts := make(map[string]int, len(projects))
	for _, project := range projects {
		counts[project.Name]++
	}
	labels := make([]string, 0, len(projects))
	ids := make(map[string]model.ProjectID, len(projects))
	for _, project := range projects {
		label := project.Name
		if counts[project.Name] > 1 {
			label = fmt.Sprintf("%s (#%d)", project.Name, project.ID)
		}
		labels = append(labels, label)
		ids[label] = project.ID
	}
	return labels, ids
}

func projectLabel(projects []model.Project, id *model.ProjectID) string {
	if id == nil {
		return ""
	}
	labels, ids := projectIndex(projects)
	for _, label := range labels {
		if ids[label] == *id {
			return label
		}
	}
	return ""
}

// parseEntryTimes reads the start and end fields of the entry editor in loc.
func parseEntryTimes(startText, endText string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(entryTimeLayout, strings.TrimSpace(startText), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start must look like %s", entryTimeLayout)
	}
	end, err := time.ParseInLocation(entryTimeLayout, strings.TrimSpace(endText), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end must look like %s", entryTimeLayout)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end %s is before start %s", endText, startText)
	}
	return start, end, nil
}
