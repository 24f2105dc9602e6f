// Package timerlock provides the process-wide scoped acquisition of the
// system high-resolution timer mode the streaming worker holds for its
// entire lifetime: a scoped acquisition held for the worker's lifetime
// with guaranteed release on every exit path, including fault.
//
// Acquire is platform-specific: on Windows it calls timeBeginPeriod(1)
// via golang.org/x/sys/windows and releases with timeEndPeriod(1); on
// every other platform the OS scheduler tick is already fine-grained
// enough, so it is a no-op. Grounded on ardnew-softusb's per-OS HAL
// split (host/hal/linux vs. other platforms) generalized from "a whole
// transport backend per OS" to "one platform-gated function pair".
package timerlock

// Acquire raises the process to 1ms timer resolution where the platform
// requires it, and returns a release function. The release function is
// not idempotent: callers must call it exactly once, on every exit
// path, fault included.
func Acquire() func() {
	return acquire()
}
