//go:build windows

package focus

import (
	"path/filepath"
	"strings"
	"syscall"
	"unsafe"

	"github.com/rs/zerolog"
	"golang.org/x/sys/windows"
)

var (
	user32                     = windows.NewLazySystemDLL("user32.dll")
	procGetForegroundWindow    = user32.NewProc("GetForegroundWindow")
	procGetWindowThreadProcess = user32.NewProc("GetWindowThreadProcessId")
)

type windowsDetector struct {
	targets map[string]bool
	log     zerolog.Logger
}

// NewDetector matches the foreground window's process image name against
// targets (base names, case-insensitive, e.g. "javaw.exe").
func NewDetector(targets []string, logger zerolog.Logger) Detector {
	set := make(map[string]bool, len(targets))
	for _, t := range targets {
		set[strings.ToLower(strings.TrimSpace(t))] = true
	}
	return &windowsDetector{targets: set, log: logger}
}

func (d *windowsDetector) TargetFocused() bool {
	hwnd, _, _ := procGetForegroundWindow.Call()
	if hwnd == 0 {
		return false
	}

	var pid uint32
	procGetWindowThreadProcess.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
	if pid == 0 {
		return false
	}

	name, err := processImageName(pid)
	if err != nil {
		d.log.Debug().Err(err).Uint32("pid", pid).Msg("cannot resolve foreground process")
		return false
	}
	return d.targets[strings.ToLower(filepath.Base(name))]
}

func processImageName(pid uint32) (string, error) {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return "", err
	}
	defer windows.CloseHandle(h)

	buf := make([]uint16, windows.MAX_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return "", err
	}
	return syscall.UTF16ToString(buf[:size]), nil
}
