package worker

import (
	"context"
	"encoding/binary"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qa40x-go/streamdriver/pkg/deviceprofile"
	"github.com/qa40x-go/streamdriver/pkg/usbtransport"
)

// autoEndpoint completes every submitted transfer immediately with the
// full requested length, or observes ctx cancellation first. shrinkBy,
// when non-zero, is subtracted from the reported byte count on the
// very first Submit call only, to provoke a short-transfer fault
// deterministically regardless of scheduling.
type autoEndpoint struct {
	shrinkBy atomic.Int64
}

func (e *autoEndpoint) Submit(ctx context.Context, buf []byte, write bool, done chan<- usbtransport.SubmitResult) {
	n := len(buf) - int(e.shrinkBy.Swap(0))
	go func() {
		select {
		case done <- usbtransport.SubmitResult{Res: usbtransport.Result{Outcome: usbtransport.Completed, BytesTransferred: n}}:
		case <-ctx.Done():
			done <- usbtransport.SubmitResult{Res: usbtransport.Result{Outcome: usbtransport.Aborted}}
		}
	}()
}

// shrinkFirstSubmit arranges for the very next Submit call on this
// endpoint to report n fewer bytes transferred than requested.
func (e *autoEndpoint) shrinkFirstSubmit(n int) {
	e.shrinkBy.Store(int64(n))
}

// markerReadEndpoint stamps every frame it ever delivers with a
// monotonically increasing counter value at a fixed lane offset, so a
// test can tell exactly which source frame landed in a given host
// buffer slot. The counter is claimed synchronously in Submit (not in
// the completion goroutine) so call order, not completion order,
// determines which frames a given call reports.
type markerReadEndpoint struct {
	frameBytes int
	laneOffset int
	counter    int64
}

func (e *markerReadEndpoint) Submit(ctx context.Context, buf []byte, write bool, done chan<- usbtransport.SubmitResult) {
	frames := len(buf) / e.frameBytes
	start := atomic.AddInt64(&e.counter, int64(frames)) - int64(frames)
	go func() {
		for f := 0; f < frames; f++ {
			off := f*e.frameBytes + e.laneOffset
			binary.BigEndian.PutUint32(buf[off:off+4], uint32(start+int64(f)))
		}
		select {
		case done <- usbtransport.SubmitResult{Res: usbtransport.Result{Outcome: usbtransport.Completed, BytesTransferred: len(buf)}}:
		case <-ctx.Done():
			done <- usbtransport.SubmitResult{Res: usbtransport.Result{Outcome: usbtransport.Aborted}}
		}
	}()
}

// fakeAdapter is a minimal device.Adapter double driving the endpoints
// above; Reset/Start are no-ops and PingPacket returns the fixed QA401
// keep-alive shape.
type fakeAdapter struct {
	profile  deviceprofile.Profile
	write    *autoEndpoint
	read     usbtransport.RawEndpoint
	register *autoEndpoint
}

func newFakeAdapter(p deviceprofile.Profile) *fakeAdapter {
	return &fakeAdapter{profile: p, write: &autoEndpoint{}, read: &autoEndpoint{}, register: &autoEndpoint{}}
}

func (f *fakeAdapter) Profile() deviceprofile.Profile             { return f.profile }
func (f *fakeAdapter) WriteEndpoint() usbtransport.RawEndpoint    { return f.write }
func (f *fakeAdapter) ReadEndpoint() usbtransport.RawEndpoint     { return f.read }
func (f *fakeAdapter) RegisterEndpoint() usbtransport.RawEndpoint { return f.register }
func (f *fakeAdapter) WriteRegister(ctx context.Context, regNo byte, value uint32) error {
	return nil
}
func (f *fakeAdapter) Reset(ctx context.Context, settings deviceprofile.Settings) error { return nil }
func (f *fakeAdapter) Start(ctx context.Context) error                                 { return nil }
func (f *fakeAdapter) PingPacket() []byte                                              { return []byte{7, 0, 0, 0, 3} }

// fakeBindings backs every channel with its own plane pair, all bound.
type fakeBindings struct {
	outPlanes [][2][]int32
	inPlanes  [][2][]int32
	bigEndian bool
}

func newFakeBindings(outChannels, inChannels, bufferFrames int) *fakeBindings {
	b := &fakeBindings{
		outPlanes: make([][2][]int32, outChannels),
		inPlanes:  make([][2][]int32, inChannels),
	}
	for c := range b.outPlanes {
		b.outPlanes[c][0] = make([]int32, bufferFrames)
		b.outPlanes[c][1] = make([]int32, bufferFrames)
	}
	for c := range b.inPlanes {
		b.inPlanes[c][0] = make([]int32, bufferFrames)
		b.inPlanes[c][1] = make([]int32, bufferFrames)
	}
	return b
}

func (b *fakeBindings) OutputBound(c int) bool                  { return c < len(b.outPlanes) }
func (b *fakeBindings) OutputPlane(c, i int) []int32            { return b.outPlanes[c][i] }
func (b *fakeBindings) InputBound(c int) bool                   { return c < len(b.inPlanes) }
func (b *fakeBindings) InputPlane(c, i int) []int32             { return b.inPlanes[c][i] }
func (b *fakeBindings) AnyOutputBound() bool                    { return len(b.outPlanes) > 0 }
func (b *fakeBindings) AnyInputBound() bool                     { return len(b.inPlanes) > 0 }
func (b *fakeBindings) HostBigEndian() bool                     { return b.bigEndian }

// fakeHost counts BufferSwitch calls and records whether ResetRequest
// fired. onSwitch, when set, runs on the worker goroutine inside each
// buffer-switch callback, before that call is counted.
type fakeHost struct {
	switches      atomic.Int64
	resetRequests atomic.Int64
	supportsTime  bool
	onSwitch      func(bufferIndex int)
}

func (h *fakeHost) BufferSwitch(bufferIndex int) {
	if h.onSwitch != nil {
		h.onSwitch(bufferIndex)
	}
	h.switches.Add(1)
}
func (h *fakeHost) BufferSwitchTimeInfo(pos SamplePosition, bufferIndex int) {
	if h.onSwitch != nil {
		h.onSwitch(bufferIndex)
	}
	h.switches.Add(1)
}
func (h *fakeHost) SupportsTimeInfo() bool { return h.supportsTime }
func (h *fakeHost) ResetRequest()          { h.resetRequests.Add(1) }

func waitForSwitches(t *testing.T, h *fakeHost, n int64) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for h.switches.Load() < n {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d BufferSwitch calls, got %d", n, h.switches.Load())
		case <-time.After(time.Millisecond):
		}
	}
}

func TestWorkerFullDuplexRoundTrip(t *testing.T) {
	p := deviceprofile.QA40xModern
	b := 512
	adapter := newFakeAdapter(p)
	bindings := newFakeBindings(p.OutputChannels, p.InputChannels, b)
	host := &fakeHost{}

	w, err := New(Config{
		Adapter:      adapter,
		Settings:     deviceprofile.Settings{SampleRate: 48000},
		Bindings:     bindings,
		Host:         host,
		BufferFrames: b,
	})
	require.NoError(t, err)

	w.Start(context.Background())
	waitForSwitches(t, host, 4)
	require.Equal(t, StateSteadyState, w.State())

	w.Stop()
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not join after Stop")
	}
	require.Equal(t, StateStopped, w.State())
	require.Zero(t, host.resetRequests.Load())
}

func TestWorkerOutputOnlyPrimesWithoutRead(t *testing.T) {
	p := deviceprofile.QA40xModern
	b := 256
	adapter := newFakeAdapter(p)
	bindings := &fakeBindings{outPlanes: make([][2][]int32, p.OutputChannels)}
	for c := range bindings.outPlanes {
		bindings.outPlanes[c][0] = make([]int32, b)
		bindings.outPlanes[c][1] = make([]int32, b)
	}
	host := &fakeHost{}

	w, err := New(Config{
		Adapter:      adapter,
		Settings:     deviceprofile.Settings{SampleRate: 48000},
		Bindings:     bindings,
		Host:         host,
		BufferFrames: b,
	})
	require.NoError(t, err)
	require.True(t, w.sizing.mustPlay)
	require.False(t, w.sizing.mustRead)

	w.Start(context.Background())
	waitForSwitches(t, host, 3)
	w.Stop()
	<-w.Done()
	require.Equal(t, StateStopped, w.State())
}

func TestWorkerRecordOnlyDiscardsInitialGarbage(t *testing.T) {
	p := deviceprofile.QA401
	b := 128
	adapter := newFakeAdapter(p)
	// Host input channel 0 reads device lane (0+1)%2=1 (QA401 swaps on
	// input) with no polarity inversion (only channel 1 gets that), so
	// stamping lane 1 directly exposes which source frame landed where.
	adapter.read = &markerReadEndpoint{frameBytes: p.InputChannels * p.SampleBytes, laneOffset: 4}
	bindings := &fakeBindings{inPlanes: make([][2][]int32, p.InputChannels)}
	for c := range bindings.inPlanes {
		bindings.inPlanes[c][0] = make([]int32, b)
		bindings.inPlanes[c][1] = make([]int32, b)
	}
	// The worker keeps refilling host buffer 0 on later iterations, so
	// capture its contents inside the first buffer-0 callback.
	first := make(chan [2]int32, 1)
	host := &fakeHost{onSwitch: func(bufferIndex int) {
		if bufferIndex != 0 {
			return
		}
		select {
		case first <- [2]int32{bindings.inPlanes[0][0][0], bindings.inPlanes[0][0][b-1]}:
		default:
		}
	}}

	w, err := New(Config{
		Adapter:      adapter,
		Settings:     deviceprofile.Settings{SampleRate: 48000},
		Bindings:     bindings,
		Host:         host,
		BufferFrames: b,
	})
	require.NoError(t, err)
	require.False(t, w.sizing.mustPlay)
	require.True(t, w.sizing.mustRecord)
	require.Equal(t, p.InitialInputGarbageFrames, w.sizing.initialGarbage)

	w.Start(context.Background())
	waitForSwitches(t, host, 1)

	// Host buffer 0 must reflect the real frames that follow the
	// discarded initial-garbage frames, not the garbage itself: frame 0
	// of the host buffer is source frame initialGarbage, not source
	// frame 0.
	got := <-first
	require.Equal(t, int32(p.InitialInputGarbageFrames), got[0])
	require.Equal(t, int32(p.InitialInputGarbageFrames+b-1), got[1])

	waitForSwitches(t, host, 3)
	w.Stop()
	<-w.Done()
	require.Equal(t, StateStopped, w.State())
}

func TestWorkerStopDuringSteadyStateIsPrompt(t *testing.T) {
	p := deviceprofile.QA40xModern
	b := 512
	adapter := newFakeAdapter(p)
	bindings := newFakeBindings(p.OutputChannels, p.InputChannels, b)
	host := &fakeHost{}

	w, err := New(Config{
		Adapter:      adapter,
		Settings:     deviceprofile.Settings{SampleRate: 48000},
		Bindings:     bindings,
		Host:         host,
		BufferFrames: b,
	})
	require.NoError(t, err)

	w.Start(context.Background())
	waitForSwitches(t, host, 2)

	start := time.Now()
	w.Stop()
	elapsed := time.Since(start)
	require.Less(t, elapsed, time.Second, "Stop should not block on in-flight transfers for long")
	require.Equal(t, StateStopped, w.State())
}

func TestWorkerShortWriteTransferFaultsAndRequestsReset(t *testing.T) {
	p := deviceprofile.QA40xModern
	b := 256
	adapter := newFakeAdapter(p)
	bindings := newFakeBindings(p.OutputChannels, p.InputChannels, b)
	host := &fakeHost{}

	w, err := New(Config{
		Adapter:      adapter,
		Settings:     deviceprofile.Settings{SampleRate: 48000},
		Bindings:     bindings,
		Host:         host,
		BufferFrames: b,
	})
	require.NoError(t, err)

	adapter.write.shrinkFirstSubmit(4)
	w.Start(context.Background())

	deadline := time.After(2 * time.Second)
	for w.State() != StateFaulted && w.State() != StateStopped {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for fault, state=%s", w.State())
		case <-time.After(time.Millisecond):
		}
	}

	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not join after fault")
	}
	require.Equal(t, StateStopped, w.State())
	require.Equal(t, int64(1), host.resetRequests.Load())
}

func TestWorkerHostSupportsOutputReadyLatchesOnce(t *testing.T) {
	p := deviceprofile.QA40xModern
	b := 128
	adapter := newFakeAdapter(p)
	bindings := newFakeBindings(p.OutputChannels, p.InputChannels, b)
	host := &fakeHost{}

	w, err := New(Config{
		Adapter:      adapter,
		Settings:     deviceprofile.Settings{SampleRate: 48000},
		Bindings:     bindings,
		Host:         host,
		BufferFrames: b,
	})
	require.NoError(t, err)

	require.False(t, w.HostSupportsOutputReady())
	w.Start(context.Background())
	waitForSwitches(t, host, 1)

	w.SignalOutputReady()
	require.True(t, w.HostSupportsOutputReady())

	w.Stop()
	<-w.Done()
	require.True(t, w.HostSupportsOutputReady())
}
