// Package usbtransport implements the thin async I/O primitive the
// streaming worker drives: start a bulk transfer on a named endpoint,
// await its completion or abort, with at most one transfer in flight per
// slot. Two slots per direction give two transfers in flight per
// endpoint, as the streaming worker requires.
//
// Grounded on the submit/await/cancel shape of
// ardnew-softusb/host/transfer.go, adapted from a callback-based
// TransferManager to a blocking-channel Endpoint since the worker here is
// a single goroutine that wants to block in await(), not register a
// callback.
package usbtransport

import (
	"context"
	"sync"

	"github.com/qa40x-go/streamdriver/pkg/qaerr"
)

// Outcome is the result an await() call observes.
type Outcome int

const (
	// Completed means the kernel reported the transfer finished.
	Completed Outcome = iota
	// Aborted means abort() caused the transfer to unwind early.
	Aborted
)

// Result is what await() returns.
type Result struct {
	Outcome          Outcome
	BytesTransferred int
}

// RawEndpoint is the driver-supplied primitive a Slot submits bulk
// transfers to. A real implementation backs this with the platform USB
// stack (e.g. libusb bulk transfer submission); the mock in
// mock_test.go and the session/worker tests back it with an
// in-memory channel pair.
type RawEndpoint interface {
	// Submit begins a bulk transfer (OUT if write, IN otherwise) of buf's full length
	// and deliver exactly one SubmitResult to done when the kernel
	// reports it, or when ctx is cancelled by Abort. Submit itself never
	// blocks; it hands off to a goroutine or kernel callback.
	Submit(ctx context.Context, buf []byte, write bool, done chan<- SubmitResult)
}

// SubmitResult is what a RawEndpoint delivers to a Submit call's done
// channel: either a completed/aborted Result, or a transport-level
// error (e.g. the kernel rejected the submission outright).
type SubmitResult struct {
	Res Result
	Err error
}

// Slot is a single in-flight-transfer slot bound to one endpoint
// direction. At most one transfer may be pending on a Slot at a time;
// the zero value is not usable, use NewSlot.
type Slot struct {
	ep    RawEndpoint
	write bool

	mu      sync.Mutex
	pending bool
	done    chan SubmitResult
	cancel  context.CancelFunc
}

// NewSlot binds a new transfer slot to ep. write selects OUT (true) vs IN
// (false) transfers.
func NewSlot(ep RawEndpoint, write bool) *Slot {
	return &Slot{ep: ep, write: write}
}

// Start begins a bulk transfer of buf. It fails with InvalidMode if
// another transfer is still pending on this slot — start() never queues
// behind a pending transfer, callers must await() first.
func (s *Slot) Start(ctx context.Context, buf []byte) error {
	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return qaerr.InvalidMode("usbtransport.Slot.Start", nil)
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan SubmitResult, 1)
	s.pending = true
	s.done = done
	s.cancel = cancel
	s.mu.Unlock()

	s.ep.Submit(ctx, buf, s.write, done)
	return nil
}

// Pending reports whether a transfer is currently in flight.
func (s *Slot) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Await blocks until the pending transfer completes or is aborted. A
// Completed result whose BytesTransferred does not equal want is
// surfaced as HwMalfunction — bulk transfers on this hardware never
// tolerate partial completion.
func (s *Slot) Await(want int) (Result, error) {
	s.mu.Lock()
	if !s.pending {
		s.mu.Unlock()
		return Result{}, qaerr.InvalidMode("usbtransport.Slot.Await", nil)
	}
	done := s.done
	s.mu.Unlock()

	sr := <-done

	s.mu.Lock()
	s.pending = false
	s.done = nil
	s.cancel = nil
	s.mu.Unlock()

	if sr.Err != nil {
		return Result{}, qaerr.HwMalfunction("usbtransport.Slot.Await", sr.Err)
	}
	if sr.Res.Outcome == Aborted {
		return sr.Res, qaerr.Aborted("usbtransport.Slot.Await")
	}
	if sr.Res.BytesTransferred != want {
		return sr.Res, qaerr.HwMalfunction("usbtransport.Slot.Await", nil)
	}
	return sr.Res, nil
}

// AwaitAny blocks until the pending transfer completes or is aborted,
// without validating the transferred byte count. Used only during
// shutdown drain, where the caller only cares that nothing is left in
// flight, not whether a fault-triggering partial transfer happened to
// be the one aborted.
func (s *Slot) AwaitAny() Result {
	s.mu.Lock()
	if !s.pending {
		s.mu.Unlock()
		return Result{}
	}
	done := s.done
	s.mu.Unlock()

	sr := <-done

	s.mu.Lock()
	s.pending = false
	s.done = nil
	s.cancel = nil
	s.mu.Unlock()

	return sr.Res
}

// Abort is idempotent and may be called from any goroutine while a
// transfer is pending; the corresponding Await then observes Aborted.
// Abort on a slot with nothing pending is a no-op.
func (s *Slot) Abort() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Close asserts the programming invariant that a slot is never destroyed
// with a transfer still pending — callers must Await first. It panics if
// that invariant is violated, matching the "programming error" language
// of the design.
func (s *Slot) Close() {
	if s.Pending() {
		panic("usbtransport: Slot closed with a transfer still pending")
	}
}
