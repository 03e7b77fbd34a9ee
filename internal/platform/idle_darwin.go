//go:build darwin

package platform

import (
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"time"
)

var hidIdlePattern = regexp.MustCompile(`"HIDIdleTime"\s*=\s*(\d+)`)

type idleProvider struct{}

func newIdleProvider() IdleProvider {
	return &idleProvider{}
}

// IdleDuration reads HIDIdleTime (nanoseconds) from the IOHIDSystem registry entry.
func (provider *idleProvider) IdleDuration() (time.Duration, error) {
	output, err := exec.Command("ioreg", "-c", "IOHIDSystem", "-d", "4").Output()
	if err != nil {
		return 0, fmt.Errorf("ioreg: %w", err)
	}
	match := hidIdlePattern.FindSubmatch(output)
	if match == nil {
		return 0, fmt.Errorf("ioreg: HIDIdleTime not found")
	}
	nanos, err := strconv.ParseInt(string(match[1]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse HIDIdleTime: %w", err)
	}
	return time.Duration(nanos), nil
}
