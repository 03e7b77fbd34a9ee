//go:build windows

package platform

import (
	"fmt"
	"syscall"
	"time"
	"unsafe"
)

var (
	user32               = syscall.NewLazyDLL("user32.dll")
	kernel32             = syscall.NewLazyDLL("kernel32.dll")
	procGetLastInputInfo = user32.NewProc("GetLastInputInfo")
	procGetTickCount64   = kernel32.NewProc("GetTickCount64")
)

type idleProvider struct{}

type lastInputInfo struct {
	cbSize uint32
	dwTime uint32
}

func newIdleProvider() IdleProvider {
	return &idleProvider{}
}

func (provider *idleProvider) IdleDuration() (time.Duration, error) {
	info := lastInputInfo{cbSize: uint32(unsafe.Sizeof(lastInputInfo{}))}
	result, _, err := procGetLastInputInfo.Call(uintptr(unsafe.Pointer(&info)))
	if result == 0 {
		return 0, fmt.Errorf("get last input info: %w", err)
	}

	tickResult, _, _ := procGetTickCount64.Call()
	// dwTime is a 32-bit tick count; compare in the same width so wraparound stays correct.
	idleMillis := uint32(tickResult) - info.dwTime
	return time.Duration(idleMillis) * time.Millisecond, nil
}
