package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"timetracker/internal/config"
	"timetracker/internal/core/clock"
	"timetracker/internal/core/engine"
	"timetracker/internal/core/model"
	"timetracker/internal/core/session"
	"timetracker/internal/core/settings"
	"timetracker/internal/metrics"
	"timetracker/internal/platform"
	"timetracker/internal/storage"
	"timetracker/internal/ui/dashboard"
	"timetracker/internal/ui/preferences"
	"timetracker/internal/ui/tray"
	"timetracker/resources"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const appID = "com.timetracker.app"

func runApp(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	guard, err := platform.AcquireSingleInstance(config.AppName)
	if errors.Is(err, platform.ErrAlreadyRunning) {
		logger.Info().Msg("Already running, activating the existing instance")
		return platform.ActivateRunning(config.AppName)
	}
	if err != nil {
		return fmt.Errorf("single instance: %w", err)
	}
	defer func() {
		_ = guard.Release()
	}()

	logger.Info().
		Str("version", version).
		Str("database", cfg.Database.Path).
		Str("settings", cfg.Settings.Path).
		Msg("Starting Time Tracker")

	store, err := storage.Open(cfg.Database.Path, clock.System(), logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close database")
		}
	}()

	settingsFile := storage.NewSettingsFile(cfg.Settings.Path)
	initial, err := settingsFile.Load()
	if err != nil {
		logger.Warn().Err(err).Str("path", settingsFile.Path()).Msg("Settings unreadable, using defaults")
		initial = settings.Defaults()
	}
	gateway := settings.NewGateway(initial, settingsFile, logger)

	if cfg.Metrics.Address != "" {
		metricsServer := metrics.NewServer(cfg.Metrics.Address, logger)
		metricsServer.Start()
		defer func() {
			if err := metricsServer.Stop(); err != nil {
				logger.Error().Err(err).Msg("Failed to stop metrics server")
			}
		}()
	}

	fyneApp := app.NewWithID(appID)
	desktopApp, ok := fyneApp.(desktop.App)
	if !ok {
		return errors.New("system tray unsupported on this platform")
	}

	icons, err := resources.NewIcons(resources.IconCacheSize)
	if err != nil {
		return fmt.Errorf("failed to create icon cache: %w", err)
	}
	if appIcon, err := icons.App(); err == nil {
		fyneApp.SetIcon(appIcon)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var (
		trackerEngine *engine.Engine
		dashWindow    *dashboard.Window
		prefsWindow   *preferences.Window
	)

	trayManager := tray.New(desktopApp, icons, tray.Callbacks{
		OnShow: func() { dashWindow.Show() },
		OnPreferences: func() {
			prefsWindow.UpdateSettings(gateway.Current())
			prefsWindow.Show()
		},
		OnStartProject: func(id model.ProjectID) { trackerEngine.Emit(session.StartProject(id)) },
		OnStop:         func() { trackerEngine.Emit(session.StopTimer()) },
		OnQuit: func() {
			cancel()
			fyneApp.Quit()
		},
	}, logger)

	trackerEngine = engine.New(engine.Dependencies{
		Store:    store,
		Clock:    clock.System(),
		Surface:  trayManager,
		Notifier: tray.NewNotifier(fyneApp),
		Activity: platform.NewIdleProvider(),
		Settings: gateway,
		Logger:   logger,
	}, engine.Options{
		TickInterval:          cfg.Intervals.Tick,
		IdleCheckInterval:     cfg.Intervals.IdleCheck,
		ReminderCheckInterval: cfg.Intervals.ReminderCheck,
		OnError: func(err error) {
			fyne.Do(func() {
				dashWindow.Show()
				dialog.ShowError(err, dashWindow.Window())
			})
		},
	})

	dashWindow = dashboard.New(fyneApp, trackerEngine, logger)
	prefsWindow = preferences.New(fyneApp, gateway.Current(), func(partial settings.Partial) error {
		_, err := trackerEngine.UpdateSettings(partial)
		return err
	})

	watchLaunchAtLogin(gateway, logger)

	fyneApp.Lifecycle().SetOnStarted(func() {
		if _, err := trackerEngine.Bootstrap(ctx); err != nil {
			logger.Error().Err(err).Msg("Failed to restore session")
			dialog.ShowError(err, dashWindow.Window())
		}
		dashWindow.Watch(ctx)
		guard.Serve(func() {
			fyne.Do(dashWindow.Show)
		})
		go func() {
			if err := trackerEngine.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("Engine stopped with error")
			}
		}()
	})

	go func() {
		<-ctx.Done()
		fyne.Do(fyneApp.Quit)
	}()

	fyneApp.Run()
	cancel()
	logger.Info().Msg("Time Tracker stopped")
	return nil
}

// watchLaunchAtLogin keeps the OS login item matching the setting.
func watchLaunchAtLogin(gateway *settings.Gateway, logger zerolog.Logger) {
	execPath, err := os.Executable()
	if err != nil {
		logger.Warn().Err(err).Msg("Cannot resolve executable, launch at login disabled")
		return
	}
	launch := platform.NewLaunchAtLogin(platform.NewService(), config.AppName, execPath, logger)
	gateway.Subscribe(func(current settings.Settings) {
		if err := launch.Apply(current.LaunchAtLogin); err != nil {
			logger.Warn().Err(err).Bool("enabled", current.LaunchAtLogin).Msg("Failed to update launch at login")
		}
	})
}
