// Package ratereg holds the one piece of genuinely process-wide mutable
// state this driver needs: the sample rate carried across successive
// sessions, to work around a specific host-application bug where the
// host forgets the rate it asked for on the previous open. It is
// modeled as an explicit single-value registry accessed by the façade,
// not by the core worker.
//
// The core worker and session never import this package — only the
// outer façade, between session teardown and the next session's
// construction.
package ratereg

import "sync/atomic"

var last atomic.Int64

// Store records rate as the last sample rate a session ran at. A value
// of 0 means "nothing recorded yet".
func Store(rate int) {
	last.Store(int64(rate))
}

// Load returns the last recorded sample rate, or 0 if Store has never
// been called in this process.
func Load() int {
	return int(last.Load())
}
