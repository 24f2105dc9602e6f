package worker

import "sync/atomic"

// SamplePosition is the atomic, single-writer time/sample-position
// record published once per steady-state iteration. Readers take a
// lock-free snapshot via Worker.Position.
type SamplePosition struct {
	SampleFrameCount int64
	WallClockNs      int64
}

// positionBox lets SamplePosition be published atomically without a
// mutex: the worker stores a fresh *SamplePosition each iteration, and
// any reader loads the current pointer.
type positionBox struct {
	v atomic.Pointer[SamplePosition]
}

func (b *positionBox) store(p SamplePosition) {
	b.v.Store(&p)
}

func (b *positionBox) load() SamplePosition {
	p := b.v.Load()
	if p == nil {
		return SamplePosition{}
	}
	return *p
}
