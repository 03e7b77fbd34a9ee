//go:build linux

package platform

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"timetracker/internal/core/watchdog"
)

type idleProvider struct {
	xprintidlePath string
	run            func(path string) ([]byte, error)
}

type unsupportedIdleProvider struct{}

func newIdleProvider() IdleProvider {
	if strings.ToLower(os.Getenv("XDG_SESSION_TYPE")) == "wayland" && os.Getenv("DISPLAY") == "" {
		return unsupportedIdleProvider{}
	}
	path, err := exec.LookPath("xprintidle")
	if err != nil {
		return unsupportedIdleProvider{}
	}
	return &idleProvider{
		xprintidlePath: path,
		run: func(path string) ([]byte, error) {
			return exec.Command(path).Output()
		},
	}
}

func (provider *idleProvider) IdleDuration() (time.Duration, error) {
	output, err := provider.run(provider.xprintidlePath)
	if err != nil {
		return 0, fmt.Errorf("xprintidle: %w", err)
	}
	return parseIdleMillis(output)
}

func (unsupportedIdleProvider) IdleDuration() (time.Duration, error) {
	return 0, watchdog.ErrIdleUnsupported
}
