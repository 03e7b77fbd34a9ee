//go:build linux

package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (service *platformService) EnableAutostart(appName, execPath string) error {
	if appName == "" || execPath == "" {
		return fmt.Errorf("enable autostart: app name and exec path are required")
	}
	entryPath, err := service.desktopEntryPath(appName)
	if err != nil {
		return fmt.Errorf("enable autostart: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(entryPath), 0o755); err != nil {
		return fmt.Errorf("enable autostart: create autostart dir: %w", err)
	}

	tmpPath := entryPath + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(buildDesktopEntry(appName, execPath)), 0o644); err != nil {
		return fmt.Errorf("enable autostart: write desktop entry: %w", err)
	}
	if err := os.Rename(tmpPath, entryPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("enable autostart: install desktop entry: %w", err)
	}
	return nil
}

func (service *platformService) DisableAutostart(appName string) error {
	if appName == "" {
		return fmt.Errorf("disable autostart: app name is empty")
	}
	entryPath, err := service.desktopEntryPath(appName)
	if err != nil {
		return fmt.Errorf("disable autostart: %w", err)
	}
	if err := os.Remove(entryPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("disable autostart: remove desktop entry: %w", err)
	}
	return nil
}

// desktopEntryPath is the entry under $XDG_CONFIG_HOME/autostart.
func (service *platformService) desktopEntryPath(appName string) (string, error) {
	configDir, err := service.GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "autostart", loginItemName(appName)+".desktop"), nil
}

func fallbackConfigDir(homeDir string) string {
	return filepath.Join(homeDir, ".config")
}

func buildDesktopEntry(appName, execPath string) string {
	execLine := execPath
	if strings.ContainsAny(execLine, " \t") {
		execLine = `"` + strings.Trim(execLine, `"`) + `"`
	}

	return fmt.Sprintf(
		`[Desktop Entry]
Type=Application
Name=%s
Comment=Resume time tracking at login
Exec=%s
Icon=%s
Hidden=false
X-GNOME-Autostart-enabled=true
Terminal=false
Categories=Utility;
`,
		appName,
		execLine,
		loginItemName(appName),
	)
}
