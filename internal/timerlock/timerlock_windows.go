//go:build windows

package timerlock

import "golang.org/x/sys/windows"

const periodMs = 1

// winmm exposes timeBeginPeriod/timeEndPeriod, which golang.org/x/sys/windows
// doesn't wrap directly (they live in winmm.dll, not one of the core NT
// DLLs the package binds); windows.NewLazySystemDLL is the package's own
// mechanism for reaching a DLL it hasn't bound, so this stays within the
// same dependency rather than adding a second syscall package.
var (
	winmm              = windows.NewLazySystemDLL("winmm.dll")
	procTimeBeginPeriod = winmm.NewProc("timeBeginPeriod")
	procTimeEndPeriod   = winmm.NewProc("timeEndPeriod")
)

// acquire calls timeBeginPeriod(1) and returns a release function
// calling the matching timeEndPeriod(1). Both are best-effort: their
// results are ignored, so a failure to raise resolution is neither
// reported nor fatal to streaming.
func acquire() func() {
	procTimeBeginPeriod.Call(uintptr(periodMs))
	return func() {
		procTimeEndPeriod.Call(uintptr(periodMs))
	}
}
