package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"timetracker/internal/core/engine"
	"timetracker/internal/core/model"
	"timetracker/internal/core/session"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"
)

const (
	historyLimit   = 50
	defaultColor   = "#3B82F6"
	eventsBuffer   = 16
	requestTimeout = 5 * time.Second
)

// Controller is the engine surface the dashboard drives.
type Controller interface {
	SessionState() session.Snapshot
	Subscribe(buffer int) <-chan session.Event
	Start(ctx context.Context, projectID model.ProjectID) (session.Snapshot, error)
	Stop(ctx context.Context) (model.TimeEntry, error)
	SwitchTo(ctx context.Context, projectID model.ProjectID) (session.Snapshot, error)
	SelectProject(ctx context.Context, projectID model.ProjectID) (session.Snapshot, error)
	Projects(ctx context.Context) ([]model.Project, error)
	CreateProject(ctx context.Context, name, color string) (model.Project, error)
	DeleteProject(ctx context.Context, id model.ProjectID) (int64, error)
	History(ctx context.Context, limit int) ([]model.EntryWithProject, error)
	UpdateEntry(ctx context.Context, id model.EntryID, projectID model.ProjectID, start, end time.Time) (model.TimeEntry, error)
	DeleteEntry(ctx context.Context, id model.EntryID) error
	Totals(ctx context.Context) (engine.Totals, error)
}

// Window is the main dashboard: project picker, timer control, totals and history.
type Window struct {
	window     fyne.Window
	controller Controller
	logger     zerolog.Logger

	status   *widget.Label
	totals   *widget.Label
	picker   *widget.Select
	toggle   *widget.Button
	history  *widget.List
	rows     []string
	entries  []model.EntryWithProject
	projects []model.Project
	ids      map[string]model.ProjectID

	// syncing suppresses picker callbacks while the window itself sets the selection.
	syncing bool
	once    sync.Once
}

// New builds the dashboard. Call Watch once to follow session events.
func New(app fyne.App, controller Controller, logger zerolog.Logger) *Window {
	dash := &Window{
		window:     app.NewWindow("Time Tracker"),
		controller: controller,
		logger:     logger.With().Str("component", "dashboard").Logger(),
		status:     widget.NewLabelWithStyle("Not tracking", fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
		totals:     widget.NewLabel(""),
		ids:        map[string]model.ProjectID{},
	}

	dash.picker = widget.NewSelect(nil, dash.handlePick)
	dash.picker.PlaceHolder = "Choose a project"
	dash.toggle = widget.NewButton("Start", dash.handleToggle)
	dash.history = widget.NewList(
		func() int { return len(dash.rows) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(id widget.ListItemID, object fyne.CanvasObject) {
			object.(*widget.Label).SetText(dash.rows[id])
		},
	)
	dash.history.OnSelected = dash.handleEntrySelected

	addButton := widget.NewButton("New Project", dash.handleAddProject)
	deleteButton := widget.NewButton("Delete Project", dash.handleDeleteProject)

	header := container.NewVBox(
		dash.status,
		container.NewBorder(nil, nil, nil, dash.toggle, dash.picker),
		container.NewHBox(addButton, deleteButton),
		dash.totals,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("Recent (select to edit)", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
	)
	dash.window.SetContent(container.NewBorder(header, nil, nil, nil, dash.history))
	dash.window.Resize(fyne.NewSize(460, 520))
	dash.window.SetCloseIntercept(dash.window.Hide)
	return dash
}

// Show refreshes and displays the dashboard.
func (dash *Window) Show() {
	dash.Refresh()
	dash.window.Show()
	dash.window.RequestFocus()
}

// Watch follows session events until ctx is cancelled.
func (dash *Window) Watch(ctx context.Context) {
	dash.once.Do(func() {
		events := dash.controller.Subscribe(eventsBuffer)
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case event := <-events:
					dash.handleEvent(event)
				}
			}
		}()
	})
}

func (dash *Window) handleEvent(event session.Event) {
	switch event.Type {
	case session.EventTick:
		fyne.Do(func() { dash.status.SetText(statusText(event.Snapshot)) })
	case session.EventStateChange:
		fyne.Do(dash.Refresh)
	}
}

// Refresh reloads projects, totals and history. Must run on the fyne thread.
func (dash *Window) Refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	projects, err := dash.controller.Projects(ctx)
	if err != nil {
		dash.logger.Warn().Err(err).Msg("Load projects failed")
	} else {
		dash.projects = projects
		var names []string
		names, dash.ids = projectIndex(projects)
		dash.picker.Options = names
		dash.picker.Refresh()
	}

	snapshot := dash.controller.SessionState()
	dash.status.SetText(statusText(snapshot))
	dash.syncing = true
	if name := projectLabel(dash.projects, pickerProject(snapshot)); name != "" {
		dash.picker.SetSelected(name)
	} else {
		dash.picker.ClearSelected()
	}
	dash.syncing = false
	if snapshot.Running() {
		dash.toggle.SetText("Stop")
	} else {
		dash.toggle.SetText("Start")
	}

	if totals, err := dash.controller.Totals(ctx); err != nil {
		dash.logger.Warn().Err(err).Msg("Load totals failed")
	} else {
		dash.totals.SetText(fmt.Sprintf("Today %s   Last 7 days %s", formatTotal(totals.Today), formatTotal(totals.Week)))
	}

	if entries, err := dash.controller.History(ctx, historyLimit); err != nil {
		dash.logger.Warn().Err(err).Msg("Load history failed")
	} else {
		rows := make([]string, 0, len(entries))
		for _, entry := range entries {
			rows = append(rows, historyRow(entry))
		}
		dash.rows = rows
		dash.entries = entries
		dash.history.Refresh()
	}
}

func pickerProject(snapshot session.Snapshot) *model.ProjectID {
	if snapshot.Running() {
		id := snapshot.ProjectID
		return &id
	}
	return snapshot.SelectedProjectID
}

// handlePick switches a running timer, or preselects while idle.
func (dash *Window) handlePick(name string) {
	if dash.syncing {
		return
	}
	id, ok := dash.ids[name]
	if !ok {
		return
	}
	dash.do(func(ctx context.Context) error {
		if dash.controller.SessionState().Running() {
			_, err := dash.controller.SwitchTo(ctx, id)
			return err
		}
		_, err := dash.controller.SelectProject(ctx, id)
		return err
	})
}

func (dash *Window) handleToggle() {
	dash.do(func(ctx context.Context) error {
		snapshot := dash.controller.SessionState()
		if snapshot.Running() {
			_, err := dash.controller.Stop(ctx)
			return err
		}
		id, ok := dash.ids[dash.picker.Selected]
		if !ok {
			return errors.New("choose a project first")
		}
		_, err := dash.controller.Start(ctx, id)
		return err
	})
}

func (dash *Window) handleAddProject() {
	name := widget.NewEntry()
	color := widget.NewEntry()
	color.SetText(defaultColor)
	items := []*widget.FormItem{
		widget.NewFormItem("Name", name),
		widget.NewFormItem("Color", color),
	}
	dialog.ShowForm("New Project", "Create", "Cancel", items, func(confirmed bool) {
		if !confirmed {
			return
		}
		dash.do(func(ctx context.Context) error {
			_, err := dash.controller.CreateProject(ctx, name.Text, color.Text)
			return err
		})
	}, dash.window)
}

func (dash *Window) handleDeleteProject() {
	id, ok := dash.ids[dash.picker.Selected]
	if !ok {
		dialog.ShowError(errors.New("choose a project to delete"), dash.window)
		return
	}
	message := fmt.Sprintf("Delete %q and all of its time entries?", dash.picker.Selected)
	dialog.ShowConfirm("Delete Project", message, func(confirmed bool) {
		if !confirmed {
			return
		}
		dash.do(func(ctx context.Context) error {
			_, err := dash.controller.DeleteProject(ctx, id)
			return err
		})
	}, dash.window)
}

// handleEntrySelected opens the editor for a closed entry.
func (dash *Window) handleEntrySelected(row widget.ListItemID) {
	dash.history.UnselectAll()
	if row < 0 || row >= len(dash.entries) {
		return
	}
	entry := dash.entries[row]

	labels, ids := projectIndex(dash.projects)
	project := widget.NewSelect(labels, nil)
	if label := projectLabel(dash.projects, &entry.ProjectID); label != "" {
		project.SetSelected(label)
	}
	start := widget.NewEntry()
	start.SetText(entry.StartTime.Local().Format(entryTimeLayout))
	end := widget.NewEntry()
	if entry.EndTime != nil {
		end.SetText(entry.EndTime.Local().Format(entryTimeLayout))
	}
	form := widget.NewForm(
		widget.NewFormItem("Project", project),
		widget.NewFormItem("Start", start),
		widget.NewFormItem("End", end),
	)

	var editor dialog.Dialog
	save := widget.NewButton("Save", func() {
		projectID, ok := ids[project.Selected]
		if !ok {
			dialog.ShowError(errors.New("choose a project"), dash.window)
			return
		}
		from, to, err := parseEntryTimes(start.Text, end.Text, time.Local)
		if err != nil {
			dialog.ShowError(err, dash.window)
			return
		}
		editor.Hide()
		dash.do(func(ctx context.Context) error {
			_, err := dash.controller.UpdateEntry(ctx, entry.ID, projectID, from, to)
			return err
		})
	})
	remove := widget.NewButton("Delete", func() {
		editor.Hide()
		dialog.ShowConfirm("Delete Entry", "Delete this time entry?", func(confirmed bool) {
			if !confirmed {
				return
			}
			dash.do(func(ctx context.Context) error {
				return dash.controller.DeleteEntry(ctx, entry.ID)
			})
		}, dash.window)
	})
	cancel := widget.NewButton("Cancel", func() { editor.Hide() })

	content := container.NewVBox(form, container.NewHBox(save, remove, layout.NewSpacer(), cancel))
	editor = dialog.NewCustomWithoutButtons("Edit Entry", content, dash.window)
	editor.Show()
}

// do runs a request, reports failures in a dialog and refreshes the view.
func (dash *Window) do(request func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := request(ctx); err != nil {
		dash.logger.Warn().Err(err).Msg("Dashboard request failed")
		dialog.ShowError(err, dash.window)
	}
	dash.Refresh()
}

// Window returns the underlying fyne window, used as a dialog parent.
func (dash *Window) Window() fyne.Window {
	return dash.window
}
