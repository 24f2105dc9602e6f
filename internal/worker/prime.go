package worker

import (
	"context"
	"time"

	"github.com/qa40x-go/streamdriver/internal/format"
)

// prime issues the two initial reads (if mustRead), gathers two
// withheld output buffers from the host without
// putting them on the wire, then starts both writes together so the
// device never sees the "real" first buffer without a second one
// already queued behind it. Returns false on fault.
func (w *Worker) prime(ctx context.Context) bool {
	if w.sizing.mustRead {
		if err := w.readSlots[0].Start(ctx, w.readBufs[0][:w.sizing.firstRead*w.readFrameBytes]); err != nil {
			w.fault("prime.readSlots[0].Start", err)
			return false
		}
		w.readExpected[0] = w.sizing.firstRead * w.readFrameBytes
		if w.instrument != nil {
			w.instrument.ReadIssued()
		}
		if err := w.readSlots[1].Start(ctx, w.readBufs[1][:w.sizing.steadyRead*w.readFrameBytes]); err != nil {
			w.fault("prime.readSlots[1].Start", err)
			return false
		}
		w.readExpected[1] = w.sizing.steadyRead * w.readFrameBytes
		if w.instrument != nil {
			w.instrument.ReadIssued()
		}
	}

	if !w.sizing.mustPlay {
		if w.sizing.mustRead {
			// Read-only session: a single dummy write of silence cranks
			// the hardware, then we never write again.
			for i := range w.writeBufs[0][:w.sizing.firstWrite*w.writeFrameBytes] {
				w.writeBufs[0][i] = 0
			}
			if err := w.writeSlots[0].Start(ctx, w.writeBufs[0][:w.sizing.firstWrite*w.writeFrameBytes]); err != nil {
				w.fault("prime.dummyWrite", err)
				return false
			}
			if w.instrument != nil {
				w.instrument.WriteIssued()
			}
			if _, err := w.writeSlots[0].Await(w.sizing.firstWrite * w.writeFrameBytes); err != nil {
				w.fault("prime.dummyWrite.Await", err)
				return false
			}
		}
		return true
	}

	// Gather buffer 0: padded at the front with silence so the valid
	// audio occupies the trailing B frames.
	padFrames := w.sizing.firstWrite - w.b
	buf0 := w.writeBufs[0][:w.sizing.firstWrite*w.writeFrameBytes]
	for i := range buf0[:padFrames*w.writeFrameBytes] {
		buf0[i] = 0
	}
	w.fireHostCallback(0)
	w.translateOut(0, buf0[padFrames*w.writeFrameBytes:])
	w.advancePosition()

	// Gather buffer 1: no padding, a full B-frame buffer.
	buf1 := w.writeBufs[1][:w.b*w.writeFrameBytes]
	w.fireHostCallback(1)
	w.translateOut(1, buf1)
	w.advancePosition()

	if err := w.writeSlots[0].Start(ctx, buf0); err != nil {
		w.fault("prime.writeSlots[0].Start", err)
		return false
	}
	w.writeExpected[0] = w.sizing.firstWrite * w.writeFrameBytes
	if w.instrument != nil {
		w.instrument.WriteIssued()
	}
	if err := w.writeSlots[1].Start(ctx, buf1); err != nil {
		w.fault("prime.writeSlots[1].Start", err)
		return false
	}
	w.writeExpected[1] = w.b * w.writeFrameBytes
	if w.instrument != nil {
		w.instrument.WriteIssued()
	}
	return true
}

// advancePosition bumps SampleFrameCount by one buffer's worth of
// frames and stamps WallClockNs at the call site's current time. Used
// by prime so the two priming callbacks advance position the same way
// iterate's steady-state callbacks do, keeping SampleFrameCount after
// callback k equal to k*B from the very first callback onward.
func (w *Worker) advancePosition() {
	pos := w.position.load()
	pos.SampleFrameCount += int64(w.b)
	pos.WallClockNs = time.Now().UnixNano()
	w.position.store(pos)
}

// fireHostCallback invokes the plain or time-info host callback
// depending on the capability probed at session start, for buffer
// index i.
func (w *Worker) fireHostCallback(i int) {
	if w.host.SupportsTimeInfo() {
		w.host.BufferSwitchTimeInfo(w.position.load(), i)
		return
	}
	w.host.BufferSwitch(i)
}

// translateOut converts host output planes for buffer index i into dev
// (exactly B frames, post any padding offset the caller already
// applied).
func (w *Worker) translateOut(i int, dev []byte) {
	planes := make([][]int32, w.profile.OutputChannels)
	for c := 0; c < w.profile.OutputChannels; c++ {
		if w.bindings.OutputBound(c) {
			planes[c] = w.bindings.OutputPlane(c, i)
		}
	}
	format.HostToDevice(w.profile, planes, w.b, w.bindings.HostBigEndian(), dev)
}

// translateIn converts dev (exactly B frames from buffer index i on the
// wire) into the host's input planes.
func (w *Worker) translateIn(i int, dev []byte) {
	planes := make([][]int32, w.profile.InputChannels)
	for c := 0; c < w.profile.InputChannels; c++ {
		if w.bindings.InputBound(c) {
			planes[c] = w.bindings.InputPlane(c, i)
		}
	}
	format.DeviceToHost(w.profile, dev, w.b, w.bindings.HostBigEndian(), planes)
}
