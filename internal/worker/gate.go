package worker

import "sync"

// outputReadyGate is the flag+condition the host's outputReady() call
// sets and the worker clears each iteration. It is protected by a small
// lock and condition variable, not an atomic, because the worker must
// be able to block on it.
type outputReadyGate struct {
	mu    sync.Mutex
	cond  *sync.Cond
	ready bool
	// seen latches true the first time Signal is ever called and never
	// resets — it backs the monotonic hostSupportsOutputReady flag.
	seen bool
	// closed causes any blocked Wait to return immediately, used during
	// abort so the worker does not hang waiting for a host that has gone
	// away mid-shutdown.
	closed bool
}

func newOutputReadyGate() *outputReadyGate {
	g := &outputReadyGate{}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Signal is called by the host thread to mark the current buffer ready
// for transmission.
func (g *outputReadyGate) Signal() {
	g.mu.Lock()
	g.ready = true
	g.seen = true
	g.mu.Unlock()
	g.cond.Broadcast()
}

// Seen reports whether the host has ever called Signal.
func (g *outputReadyGate) Seen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seen
}

// Wait blocks until ready is set (or the gate is closed), then clears
// ready, mirroring the "clear the outputReady flag" step at the end of
// each steady-state iteration.
func (g *outputReadyGate) Wait() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for !g.ready && !g.closed {
		g.cond.Wait()
	}
	g.ready = false
}

// clearIfSet clears ready without blocking, for the unconditional
// "clear the outputReady flag" step at the end of every steady-state
// iteration even on iterations that didn't Wait.
func (g *outputReadyGate) clearIfSet() {
	g.mu.Lock()
	g.ready = false
	g.mu.Unlock()
}

// Close unblocks any pending Wait, used during shutdown.
func (g *outputReadyGate) Close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	g.cond.Broadcast()
}
