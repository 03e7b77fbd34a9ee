package dashboard

import (
	"testing"
	"time"

	"timetracker/internal/core/model"
	"timetracker/internal/core/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTotal(t *testing.T) {
	assert.Equal(t, "0h 00m", formatTotal(0))
	assert.Equal(t, "0h 00m", formatTotal(-time.Minute))
	assert.Equal(t, "3h 05m", formatTotal(3*time.Hour+5*time.Minute+59*time.Second))
	assert.Equal(t, "26h 00m", formatTotal(26*time.Hour))
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "0:00:00", formatElapsed(0))
	assert.Equal(t, "0:01:05", formatElapsed(65*time.Second))
	assert.Equal(t, "1:02:03", formatElapsed(time.Hour+2*time.Minute+3*time.Second))
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "Not tracking", statusText(session.Snapshot{Status: session.StatusIdle}))
	running := session.Snapshot{Status: session.StatusRunning, ProjectName: "Work", Elapsed: 90 * time.Second}
	assert.Equal(t, "Work  0:01:30", statusText(running))
}

func TestHistoryRow(t *testing.T) {
	duration := int64(600)
	entry := model.EntryWithProject{
		TimeEntry:   model.TimeEntry{StartTime: time.Date(2025, 3, 4, 9, 0, 0, 0, time.Local), Duration: &duration},
		ProjectName: "Work",
	}
	row := historyRow(entry)
	assert.Contains(t, row, "Tue 04 Mar 09:00")
	assert.Contains(t, row, "Work")
	assert.Contains(t, row, "0:10:00")
}

func TestProjectLookup(t *testing.T) {
	projects := []model.Project{{ID: 1, Name: "Health"}, {ID: 2, Name: "Work"}}
	labels, ids := projectIndex(projects)
	assert.Equal(t, []string{"Health", "Work"}, labels)
	assert.Equal(t, model.ProjectID(2), ids["Work"])

	selected := model.ProjectID(1)
	assert.Equal(t, "Health", projectLabel(projects, &selected))
	assert.Equal(t, "", projectLabel(projects, nil))

	running := session.Snapshot{Status: session.StatusRunning, ProjectID: 2, SelectedProjectID: &selected}
	assert.Equal(t, model.ProjectID(2), *pickerProject(running))
	idle := session.Snapshot{Status: session.StatusIdle, SelectedProjectID: &selected}
	assert.Equal(t, model.ProjectID(1), *pickerProject(idle))
}

func TestDuplicateProjectNamesStayDistinct(t *testing.T) {
	projects := []model.Project{{ID: 1, Name: "Work"}, {ID: 3, Name: "Health"}, {ID: 7, Name: "Work"}}

	labels, ids := projectIndex(projects)

	assert.Equal(t, []string{"Work (#1)", "Health", "Work (#7)"}, labels)
	assert.Len(t, ids, 3)
	assert.Equal(t, model.ProjectID(1), ids["Work (#1)"])
	assert.Equal(t, model.ProjectID(7), ids["Work (#7)"])

	first := model.ProjectID(1)
	assert.Equal(t, "Work (#1)", projectLabel(projects, &first))
}

func TestParseEntryTimes(t *testing.T) {
	start, end, err := parseEntryTimes(" 2025-03-04 09:00 ", "2025-03-04 10:30", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC), start)
	assert.Equal(t, 90*time.Minute, end.Sub(start))

	_, _, err = parseEntryTimes("2025-03-04 10:00", "2025-03-04 09:00", time.UTC)
	assert.Error(t, err)
	_, _, err = parseEntryTimes("yesterday", "2025-03-04 09:00", time.UTC)
	assert.Error(t, err)
	_, _, err = parseEntryTimes("2025-03-04 09:00", "", time.UTC)
	assert.Error(t, err)
}
