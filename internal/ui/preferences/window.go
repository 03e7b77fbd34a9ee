package preferences

import (
	"time"

	"timetracker/internal/core/settings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
)

// Window handles the preferences UI.
type Window struct {
	window fyne.Window
	onSave func(settings.Partial) error

	idleCheck        *widget.Check
	idleTimeout      *widget.Entry
	reminderCheck    *widget.Check
	reminderInterval *widget.Entry
	activeStart      *widget.Entry
	activeEnd        *widget.Entry
	weekdays         map[time.Weekday]*widget.Check
	showTimer        *widget.Check
	launchAtLogin    *widget.Check
}

// New creates a preferences window. onSave receives the edited values and
// its error, if any, is shown to the user with the window left open.
func New(app fyne.App, current settings.Settings, onSave func(settings.Partial) error) *Window {
	window := app.NewWindow("Time Tracker Preferences")

	prefs := &Window{
		window:           window,
		onSave:           onSave,
		idleCheck:        widget.NewCheck("Stop the timer when I am idle", nil),
		idleTimeout:      widget.NewEntry(),
		reminderCheck:    widget.NewCheck("Remind me when no timer is running", nil),
		reminderInterval: widget.NewEntry(),
		activeStart:      widget.NewEntry(),
		activeEnd:        widget.NewEntry(),
		weekdays:         make(map[time.Weekday]*widget.Check, len(weekdayOrder)),
		showTimer:        widget.NewCheck("Show running time in the tray", nil),
		launchAtLogin:    widget.NewCheck("Launch at login", nil),
	}
	prefs.activeStart.SetPlaceHolder("09:00")
	prefs.activeEnd.SetPlaceHolder("18:00")

	days := container.NewHBox()
	for _, day := range weekdayOrder {
		check := widget.NewCheck(day.String()[:3], nil)
		prefs.weekdays[day] = check
		days.Add(check)
	}

	form := container.NewVBox(
		widget.NewLabelWithStyle("Idle", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		prefs.idleCheck,
		container.NewHBox(widget.NewLabel("Idle after"), prefs.idleTimeout, widget.NewLabel("min")),
		widget.NewSeparator(),
		widget.NewLabelWithStyle("Reminders", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		prefs.reminderCheck,
		container.NewHBox(widget.NewLabel("Remind every"), prefs.reminderInterval, widget.NewLabel("min")),
		container.NewHBox(widget.NewLabel("Between"), prefs.activeStart, widget.NewLabel("and"), prefs.activeEnd),
		days,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("General", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		prefs.showTimer,
		prefs.launchAtLogin,
	)

	saveButton := widget.NewButton("Save", prefs.handleSave)
	cancelButton := widget.NewButton("Cancel", window.Hide)
	buttons := container.NewHBox(saveButton, layout.NewSpacer(), cancelButton)

	window.SetContent(container.NewBorder(nil, buttons, nil, nil, form))
	window.Resize(fyne.NewSize(520, 460))
	window.SetCloseIntercept(window.Hide)

	prefs.UpdateSettings(current)
	return prefs
}

// Show displays the preferences window.
func (prefs *Window) Show() {
	prefs.window.Show()
	prefs.window.RequestFocus()
}

// UpdateSettings replaces window values.
func (prefs *Window) UpdateSettings(current settings.Settings) {
	values := valuesFrom(current)
	prefs.idleCheck.SetChecked(values.idleEnabled)
	prefs.idleTimeout.SetText(values.idleTimeout)
	prefs.reminderCheck.SetChecked(values.reminderEnabled)
	prefs.reminderInterval.SetText(values.reminderInterval)
	prefs.activeStart.SetText(values.activeStart)
	prefs.activeEnd.SetText(values.activeEnd)
	for day, check := range prefs.weekdays {
		check.SetChecked(values.weekdays[day])
	}
	prefs.showTimer.SetChecked(values.showTimer)
	prefs.launchAtLogin.SetChecked(values.launchAtLogin)
}

func (prefs *Window) handleSave() {
	weekdays := make(map[time.Weekday]bool, len(prefs.weekdays))
	for day, check := range prefs.weekdays {
		weekdays[day] = check.Checked
	}
	partial, err := buildPartial(formValues{
		idleEnabled:      prefs.idleCheck.Checked,
		idleTimeout:      prefs.idleTimeout.Text,
		reminderEnabled:  prefs.reminderCheck.Checked,
		reminderInterval: prefs.reminderInterval.Text,
		activeStart:      prefs.activeStart.Text,
		activeEnd:        prefs.activeEnd.Text,
		weekdays:         weekdays,
		showTimer:        prefs.showTimer.Checked,
		launchAtLogin:    prefs.launchAtLogin.Checked,
	})
	if err != nil {
		dialog.ShowError(err, prefs.window)
		return
	}
	if prefs.onSave != nil {
		if err := prefs.onSave(partial); err != nil {
			dialog.ShowError(err, prefs.window)
			return
		}
	}
	prefs.window.Hide()
}
