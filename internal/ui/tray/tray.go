package tray

import (
	"fmt"
	"sync"

	"timetracker/internal/core/model"
	"timetracker/internal/core/status"

	"fyne.io/fyne/v2"
	"github.com/rs/zerolog"
)

const menuTitle = "Time Tracker"

// App is the part of desktop.App the tray needs.
type App interface {
	SetSystemTrayMenu(menu *fyne.Menu)
	SetSystemTrayIcon(icon fyne.Resource)
}

// IconSource renders tray and menu icons.
type IconSource interface {
	Tray(hex, letter string) (fyne.Resource, error)
	MenuDot(hex string) (fyne.Resource, error)
}

// Callbacks defines tray action handlers.
type Callbacks struct {
	OnShow         func()
	OnPreferences  func()
	OnStartProject func(model.ProjectID)
	OnStop         func()
	OnQuit         func()
}

// Manager renders the status surface into the system tray.
type Manager struct {
	mu        sync.Mutex
	app       App
	icons     IconSource
	callbacks Callbacks
	label     string
	menu      status.MenuModel
	running   string
	logger    zerolog.Logger

	// run executes UI work on the fyne thread.
	run func(func())
}

// New creates a tray manager with the provided callbacks.
func New(app App, icons IconSource, callbacks Callbacks, logger zerolog.Logger) *Manager {
	return &Manager{
		app:       app,
		icons:     icons,
		callbacks: callbacks,
		logger:    logger.With().Str("component", "tray").Logger(),
		run:       fyne.Do,
	}
}

// SetIcon shows the colored project initial, or the neutral icon.
func (manager *Manager) SetIcon(icon status.IconSpec) {
	resource, err := manager.icons.Tray(icon.Color, icon.Letter)
	if err != nil {
		manager.logger.Warn().Err(err).Str("color", icon.Color).Msg("Render tray icon failed")
		return
	}
	manager.run(func() {
		manager.app.SetSystemTrayIcon(resource)
	})
}

// SetLabel updates the elapsed time shown in the menu header.
func (manager *Manager) SetLabel(label string) {
	manager.mu.Lock()
	manager.label = label
	manager.mu.Unlock()
	manager.refreshMenu()
}

// SetMenu replaces the project list and the stop affordance.
func (manager *Manager) SetMenu(menu status.MenuModel) {
	manager.mu.Lock()
	manager.menu = menu
	manager.running = ""
	for _, project := range menu.Projects {
		if project.ID == menu.ActiveProjectID {
			manager.running = project.Name
		}
	}
	manager.mu.Unlock()
	manager.refreshMenu()
}

func (manager *Manager) refreshMenu() {
	menu := manager.buildMenu()
	manager.run(func() {
		manager.app.SetSystemTrayMenu(menu)
	})
}

func (manager *Manager) buildMenu() *fyne.Menu {
	manager.mu.Lock()
	current := manager.menu
	header := headerText(manager.running, manager.label, current.StopEnabled)
	manager.mu.Unlock()

	statusItem := fyne.NewMenuItem(header, nil)
	statusItem.Disabled = true

	show := fyne.NewMenuItem("Show Dashboard", func() {
		if manager.callbacks.OnShow != nil {
			manager.callbacks.OnShow()
		}
	})

	stop := fyne.NewMenuItem("Stop Timer", func() {
		if manager.callbacks.OnStop != nil {
			manager.callbacks.OnStop()
		}
	})
	stop.Disabled = !current.StopEnabled

	items := []*fyne.MenuItem{statusItem, show, fyne.NewMenuItemSeparator(), stop, fyne.NewMenuItemSeparator()}
	for _, project := range current.Projects {
		items = append(items, manager.projectItem(project, project.ID == current.ActiveProjectID))
	}

	preferences := fyne.NewMenuItem("Preferences", func() {
		if manager.callbacks.OnPreferences != nil {
			manager.callbacks.OnPreferences()
		}
	})
	quit := fyne.NewMenuItem("Quit", func() {
		if manager.callbacks.OnQuit != nil {
			manager.callbacks.OnQuit()
		}
	})
	items = append(items, fyne.NewMenuItemSeparator(), preferences, quit)

	return fyne.NewMenu(menuTitle, items...)
}

func (manager *Manager) projectItem(project model.ProjectSummary, active bool) *fyne.MenuItem {
	id := project.ID
	item := fyne.NewMenuItem(project.Name, func() {
		if manager.callbacks.OnStartProject != nil {
			manager.callbacks.OnStartProject(id)
		}
	})
	item.Checked = active
	if icon, err := manager.icons.MenuDot(project.Color); err == nil {
		item.Icon = icon
	}
	return item
}

func headerText(project, label string, running bool) string {
	if !running {
		return "Not tracking"
	}
	if project == "" {
		project = "Tracking"
	}
	if label == "" {
		return project
	}
	return fmt.Sprintf("%s  %s", project, label)
}
