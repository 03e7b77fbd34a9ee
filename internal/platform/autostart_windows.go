//go:build windows

package platform

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// runKey is the per-user registry key Windows reads at sign-in.
const runKey = `HKCU\Software\Microsoft\Windows\CurrentVersion\Run`

func (service *platformService) EnableAutostart(appName, execPath string) error {
	if appName == "" || execPath == "" {
		return fmt.Errorf("enable autostart: app name and exec path are required")
	}
	args := []string{"add", runKey, "/v", runValueName(appName), "/t", "REG_SZ", "/d", quoteWindowsPath(execPath), "/f"}
	if output, err := exec.Command("reg", args...).CombinedOutput(); err != nil {
		return fmt.Errorf("enable autostart: reg add: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// DisableAutostart removes the Run value. A missing value is not an error.
func (service *platformService) DisableAutostart(appName string) error {
	if appName == "" {
		return fmt.Errorf("disable autostart: app name is empty")
	}
	name := runValueName(appName)
	if err := exec.Command("reg", "query", runKey, "/v", name).Run(); err != nil {
		return nil
	}
	args := []string{"delete", runKey, "/v", name, "/f"}
	if output, err := exec.Command("reg", args...).CombinedOutput(); err != nil {
		return fmt.Errorf("disable autostart: reg delete: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

func fallbackConfigDir(homeDir string) string {
	return filepath.Join(homeDir, "AppData", "Roaming")
}

func runValueName(appName string) string {
	return loginItemName(appName)
}

func quoteWindowsPath(execPath string) string {
	return `"` + strings.Trim(execPath, `"`) + `"`
}
