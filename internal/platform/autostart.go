package platform

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Service defines OS-specific helpers needed by the application.
type Service interface {
	GetConfigDir() (string, error)
	EnableAutostart(appName, execPath string) error
	DisableAutostart(appName string) error
}

type platformService struct{}

// NewService returns a platform-specific implementation.
func NewService() Service {
	return &platformService{}
}

// GetConfigDir returns the OS-standard configuration directory.
func (service *platformService) GetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err == nil && configDir != "" {
		return configDir, nil
	}

	homeDir, homeErr := os.UserHomeDir()
	if homeErr != nil {
		if err != nil {
			return "", fmt.Errorf("get config dir: %w", err)
		}
		return "", fmt.Errorf("get config dir: %w", homeErr)
	}

	return fallbackConfigDir(homeDir), nil
}

// LaunchAtLogin keeps the OS login item in line with the launch-at-login setting.
type LaunchAtLogin struct {
	mu       sync.Mutex
	service  Service
	appName  string
	execPath string
	applied  *bool
	logger   zerolog.Logger
}

// NewLaunchAtLogin binds the login item for appName to execPath.
func NewLaunchAtLogin(service Service, appName, execPath string, logger zerolog.Logger) *LaunchAtLogin {
	return &LaunchAtLogin{
		service:  service,
		appName:  appName,
		execPath: execPath,
		logger:   logger.With().Str("component", "autostart").Logger(),
	}
}

// Apply registers or removes the login item. Repeating the last applied value does nothing.
func (launch *LaunchAtLogin) Apply(enabled bool) error {
	launch.mu.Lock()
	defer launch.mu.Unlock()

	if launch.applied != nil && *launch.applied == enabled {
		return nil
	}

	var err error
	if enabled {
		err = launch.service.EnableAutostart(launch.appName, launch.execPath)
	} else {
		err = launch.service.DisableAutostart(launch.appName)
	}
	if err != nil {
		return err
	}

	launch.applied = &enabled
	launch.logger.Info().Bool("enabled", enabled).Msg("Launch at login updated")
	return nil
}

// loginItemName turns an app name into a file-safe login item name.
func loginItemName(appName string) string {
	name := strings.TrimSpace(appName)
	if name == "" {
		name = "timetracker"
	}
	name = strings.ToLower(name)
	return strings.ReplaceAll(name, " ", "-")
}
