package worker

import (
	"context"
	"time"
)

// iterate runs one steady-state loop pass for host buffer index i. It
// returns false on fault.
func (w *Worker) iterate(ctx context.Context, i int) bool {
	// Step 8 (ping from the previous iteration is awaited at the top of
	// this one): older variant only, non-blocking pipeline.
	if w.profile.NeedsPing && w.pingPending {
		if _, err := w.pingSlot.Await(len(w.adapter.PingPacket())); err != nil {
			w.fault("iterate.pingSlot.Await", err)
			return false
		}
		w.pingPending = false
	}

	// Step 1: wait for OutputReady, only once the host has shown it
	// supports the signal and this isn't the very first steady call.
	if w.sizing.mustPlay && w.gate.Seen() && !w.firstIter {
		w.gate.Wait()
	}

	// Step 2: withhold this iteration's write.
	if w.sizing.mustPlay {
		if w.writeSlots[i].Pending() {
			if _, err := w.writeSlots[i].Await(w.writeExpected[i]); err != nil {
				w.fault("iterate.writeSlots.Await", err)
				return false
			}
			w.lastWriteNs = time.Now().UnixNano()
		}
		w.translateOut(i, w.writeBufs[i][:w.b*w.writeFrameBytes])

		// Step 3: issue the withheld write.
		if err := w.writeSlots[i].Start(ctx, w.writeBufs[i][:w.b*w.writeFrameBytes]); err != nil {
			w.fault("iterate.writeSlots.Start", err)
			return false
		}
		w.writeExpected[i] = w.b * w.writeFrameBytes
		if w.instrument != nil {
			w.instrument.WriteIssued()
		}
	}

	// Step 4: read side.
	var wallClockNs int64
	switch {
	case w.sizing.mustRecord:
		res, err := w.readSlots[i].Await(w.readExpected[i])
		if err != nil {
			w.fault("iterate.readSlots.Await", err)
			return false
		}
		_ = res
		wallClockNs = time.Now().UnixNano()
		// Slot 0's very first transfer carries firstRead frames, leading
		// garbage followed by the real B frames; every later transfer on
		// either slot is exactly B frames starting at offset 0.
		readOff := 0
		if w.firstIter && i == 0 && w.sizing.firstRead > w.b {
			readOff = (w.sizing.firstRead - w.b) * w.readFrameBytes
		}
		w.translateIn(i, w.readBufs[i][readOff:readOff+w.b*w.readFrameBytes])
		if err := w.readSlots[i].Start(ctx, w.readBufs[i][:w.b*w.readFrameBytes]); err != nil {
			w.fault("iterate.readSlots.Start", err)
			return false
		}
		w.readExpected[i] = w.b * w.readFrameBytes
		if w.instrument != nil {
			w.instrument.ReadIssued()
		}
	case w.sizing.mustRead:
		if _, err := w.readSlots[i].Await(w.readExpected[i]); err != nil {
			w.fault("iterate.readSlots.Await", err)
			return false
		}
		wallClockNs = time.Now().UnixNano()
		if err := w.readSlots[i].Start(ctx, w.readBufs[i][:w.b*w.readFrameBytes]); err != nil {
			w.fault("iterate.readSlots.Start", err)
			return false
		}
		w.readExpected[i] = w.b * w.readFrameBytes
		if w.instrument != nil {
			w.instrument.ReadIssued()
		}
	default:
		wallClockNs = w.lastWriteNs
	}

	// Step 5: publish SamplePosition.
	prev := w.position.load()
	pos := SamplePosition{SampleFrameCount: prev.SampleFrameCount, WallClockNs: wallClockNs}
	w.position.store(pos)

	// Step 6: fire the host callback.
	w.fireHostCallback(i)

	// Step 7: advance sampleFrameCount, clear outputReady. prime's two
	// gather-phase callbacks advance SampleFrameCount the same way (see
	// advancePosition), so SampleFrameCount after callback k is k*B from
	// the very first callback onward.
	pos.SampleFrameCount += int64(w.b)
	w.position.store(pos)
	w.gate.clearIfSet()

	// Step 8 (started here, awaited at the top of the next iteration, or
	// at shutdown drain if this was the last one).
	if w.profile.NeedsPing {
		if err := w.pingSlot.Start(ctx, w.adapter.PingPacket()); err != nil {
			w.fault("iterate.pingSlot.Start", err)
			return false
		}
		w.pingPending = true
		if w.instrument != nil {
			w.instrument.PingIssued()
		}
	}

	return true
}
