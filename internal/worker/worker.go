// Package worker implements the streaming worker: the single realtime
// goroutine that drives USB reads and writes in lock-step with the host
// callback. It sustains two outstanding transfers per direction, primes
// the hardware FIFO, applies the format translator's per-sample quirks,
// synchronizes with an optional host OutputReady signal, and aborts
// cleanly on stop or fault.
//
// Grounded on the callback-driven streaming loop in
// ijakenorton-Roundtable/internal/device/rtaudiooutputdevice.go (a
// goroutine feeding an RtAudio callback, sync.Once-guarded shutdown, a
// WaitGroup join) generalized from its single in-flight channel read to
// a two-in-flight-per-direction USB model.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/qa40x-go/streamdriver/internal/device"
	"github.com/qa40x-go/streamdriver/pkg/deviceprofile"
	"github.com/qa40x-go/streamdriver/pkg/qaerr"
	"github.com/qa40x-go/streamdriver/pkg/usbtransport"
)

// Bindings exposes the host's per-channel planar buffers to the worker,
// indexed by device channel number (post host→device channel binding,
// pre channel-swap — the format translator applies the swap).
type Bindings interface {
	OutputBound(channel int) bool
	OutputPlane(channel, bufferIndex int) []int32
	InputBound(channel int) bool
	InputPlane(channel, bufferIndex int) []int32
	AnyOutputBound() bool
	AnyInputBound() bool
	HostBigEndian() bool
}

// HostCallbacks is the narrow slice of the host API surface the worker
// invokes directly; everything else belongs to the outer façade.
type HostCallbacks interface {
	BufferSwitch(bufferIndex int)
	BufferSwitchTimeInfo(pos SamplePosition, bufferIndex int)
	SupportsTimeInfo() bool
	ResetRequest()
}

// Instrumentation receives free-running counters for the worker's hot
// path; every method must be cheap and allocation-free. A nil
// Instrumentation is valid — the worker checks for nil before every call.
type Instrumentation interface {
	WriteIssued()
	ReadIssued()
	PingIssued()
	Aborted()
	Faulted()
	ResetIssued()
}

// Config collects everything New needs. Elevate and AcquireTimer
// are optional scoped-resource hooks: Elevate raises the calling
// goroutine's scheduling priority for realtime audio and returns a
// restore function; AcquireTimer acquires the process-wide high-res
// timer mode and returns a release function. Both default to no-ops.
type Config struct {
	Adapter      device.Adapter
	Settings     deviceprofile.Settings
	Bindings     Bindings
	Host         HostCallbacks
	BufferFrames int
	ForceRead    bool
	Logger       *slog.Logger
	Instrument   Instrumentation
	Elevate      func() func()
	AcquireTimer func() func()
}

// Worker is the streaming engine for one session. Use New to construct
// it, Start to begin priming and streaming, and Stop to drain and join.
type Worker struct {
	adapter    device.Adapter
	profile    deviceprofile.Profile
	settings   deviceprofile.Settings
	bindings   Bindings
	host       HostCallbacks
	b          int
	logger     *slog.Logger
	instrument Instrumentation
	elevate    func() func()
	acquireTmr func() func()

	sizing sizing

	writeSlots   [2]*usbtransport.Slot
	readSlots    [2]*usbtransport.Slot
	writeBufs    [2][]byte
	readBufs     [2][]byte
	pingSlot     *usbtransport.Slot
	pingPending  bool

	writeFrameBytes int
	readFrameBytes  int
	writeExpected   [2]int // bytes expected on the next Await for each write slot
	readExpected    [2]int // bytes expected on the next Await for each read slot
	lastWriteNs     int64

	position positionBox
	gate     *outputReadyGate

	state      atomic.Int32
	stopFlag   atomic.Bool
	firstIter  bool
	doneCh     chan struct{}
	startErr   error
	runOnce    sync.Once
	joinOnce   sync.Once
}

// New validates cfg and derives the sizing plan. It fails
// InvalidParameter if BufferFrames isn't a multiple of the profile's
// write granularity while any output channel is bound.
func New(cfg Config) (*Worker, error) {
	p := cfg.Adapter.Profile()

	outBound, inBound := 0, 0
	for c := 0; c < p.OutputChannels; c++ {
		if cfg.Bindings.OutputBound(c) {
			outBound++
		}
	}
	for c := 0; c < p.InputChannels; c++ {
		if cfg.Bindings.InputBound(c) {
			inBound++
		}
	}

	if outBound > 0 && cfg.BufferFrames%p.WriteGranularity != 0 {
		return nil, qaerr.InvalidParameter("worker.New", nil)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	w := &Worker{
		adapter:         cfg.Adapter,
		profile:         p,
		settings:        cfg.Settings,
		bindings:        cfg.Bindings,
		host:            cfg.Host,
		b:               cfg.BufferFrames,
		logger:          logger,
		instrument:      cfg.Instrument,
		elevate:         cfg.Elevate,
		acquireTmr:      cfg.AcquireTimer,
		gate:            newOutputReadyGate(),
		doneCh:          make(chan struct{}),
		writeFrameBytes: p.OutputChannels * p.SampleBytes,
		readFrameBytes:  p.InputChannels * p.SampleBytes,
	}
	w.sizing = newSizing(p, cfg.BufferFrames, outBound, inBound, cfg.ForceRead)
	w.state.Store(int32(StatePrepared))

	if w.elevate == nil {
		w.elevate = func() func() { return func() {} }
	}
	if w.acquireTmr == nil {
		w.acquireTmr = func() func() { return func() {} }
	}

	maxWrite := w.sizing.firstWrite
	if w.sizing.steadyWrite > maxWrite {
		maxWrite = w.sizing.steadyWrite
	}
	maxRead := w.sizing.firstRead
	if w.sizing.steadyRead > maxRead {
		maxRead = w.sizing.steadyRead
	}
	for i := range w.writeBufs {
		w.writeBufs[i] = make([]byte, maxWrite*w.writeFrameBytes)
		w.writeSlots[i] = usbtransport.NewSlot(cfg.Adapter.WriteEndpoint(), true)
	}
	for i := range w.readBufs {
		w.readBufs[i] = make([]byte, maxRead*w.readFrameBytes)
		w.readSlots[i] = usbtransport.NewSlot(cfg.Adapter.ReadEndpoint(), false)
	}
	if p.NeedsPing {
		w.pingSlot = usbtransport.NewSlot(cfg.Adapter.RegisterEndpoint(), true)
	}

	return w, nil
}

// State returns the worker's current lifecycle state.
func (w *Worker) State() State { return State(w.state.Load()) }

// Position returns a lock-free snapshot of the current sample position.
func (w *Worker) Position() SamplePosition { return w.position.load() }

// SignalOutputReady is called by the host thread to mark the current
// buffer ready for transmission.
func (w *Worker) SignalOutputReady() { w.gate.Signal() }

// HostSupportsOutputReady reports whether the host has ever called
// SignalOutputReady. It never resets once true.
func (w *Worker) HostSupportsOutputReady() bool { return w.gate.Seen() }

// Done returns a channel closed once the worker has fully joined.
func (w *Worker) Done() <-chan struct{} { return w.doneCh }

// Start begins the prime phase and steady-state loop on a new
// goroutine. It returns immediately; callers observe progress via State
// and Done.
func (w *Worker) Start(ctx context.Context) {
	w.runOnce.Do(func() {
		go w.run(ctx)
	})
}

// Stop requests an orderly shutdown: it aborts both endpoints and waits
// for the worker goroutine to join. Safe to call multiple times and
// safe to call before Start (the worker then never runs, and a later
// Start does nothing).
func (w *Worker) Stop() {
	w.stopFlag.Store(true)
	w.abortAll()
	w.gate.Close()
	// With no prior Start there is no goroutine to close doneCh.
	w.runOnce.Do(func() { close(w.doneCh) })
	<-w.doneCh
}

func (w *Worker) abortAll() {
	for _, s := range w.writeSlots {
		if s != nil {
			s.Abort()
		}
	}
	for _, s := range w.readSlots {
		if s != nil {
			s.Abort()
		}
	}
	if w.pingSlot != nil {
		w.pingSlot.Abort()
	}
}

func (w *Worker) setState(s State) { w.state.Store(int32(s)) }

func (w *Worker) fault(op string, err error) {
	w.logger.Error("worker fault", "op", op, "err", err)
	if w.instrument != nil {
		w.instrument.Faulted()
	}
	w.setState(StateFaulted)
}

// run is the worker's entire lifetime: prime, steady-state, shutdown,
// with panic recovery converting any unexpected failure into a fault
// and a reset request. Nothing it catches propagates across the
// goroutine boundary.
func (w *Worker) run(ctx context.Context) {
	defer close(w.doneCh)

	restoreTimer := w.acquireTmr()
	defer restoreTimer()

	faulted := false
	func() {
		defer func() {
			if r := recover(); r != nil {
				w.fault("run.recover", fmt.Errorf("worker panic recovered: %v", r))
				faulted = true
			}
		}()
		faulted = !w.primeAndRun(ctx)
	}()

	w.shutdown(ctx, faulted)
}

// primeAndRun runs the prime phase then the steady-state loop until
// stop is requested or a fault occurs. It returns false on fault (the
// caller then emits a reset request), true on an orderly stop.
func (w *Worker) primeAndRun(ctx context.Context) bool {
	restore := w.elevate()
	resetErr := w.adapter.Reset(ctx, w.settings)
	if w.profile.Variant == deviceprofile.VariantQA40xModern {
		if resetErr == nil {
			resetErr = w.adapter.Start(ctx)
		}
	}
	restore()
	if resetErr != nil {
		w.fault("adapter.Reset", resetErr)
		return false
	}

	w.setState(StatePriming)
	if ok := w.prime(ctx); !ok {
		return false
	}

	w.setState(StateSteadyState)
	i := 0
	w.firstIter = true
	for !w.stopFlag.Load() {
		ok := w.iterate(ctx, i)
		if !ok {
			return false
		}
		i = 1 - i
		w.firstIter = false
	}
	return true
}

// shutdown runs the drain sequence: abort both endpoints, await every
// still-pending transfer tolerating Aborted, reset to safe defaults,
// and — on a fault — emit a reset request.
func (w *Worker) shutdown(ctx context.Context, faulted bool) {
	w.setState(StateDraining)
	w.abortAll()

	for _, s := range w.writeSlots {
		drainSlot(s)
	}
	for _, s := range w.readSlots {
		drainSlot(s)
	}
	if w.pingSlot != nil {
		drainSlot(w.pingSlot)
	}

	safe := deviceprofile.Settings{
		InputFullScaleDBV:  w.settings.InputFullScaleDBV,
		OutputFullScaleDBV: safeOutputLevel(w.profile),
		SampleRate:         w.settings.SampleRate,
		HPF:                false,
	}
	if err := w.adapter.Reset(ctx, safe); err != nil {
		w.logger.Warn("safe-default reset failed during shutdown", "err", err)
	}
	if w.instrument != nil {
		w.instrument.ResetIssued()
	}

	w.setState(StateStopped)
	if faulted {
		w.host.ResetRequest()
		if w.instrument != nil {
			w.instrument.Aborted()
		}
	}
}

// safeOutputLevel picks the quietest enumerated output level for the
// profile, engaging the attenuator so the QA401's persistent DC offset
// on teardown stays inaudible.
func safeOutputLevel(p deviceprofile.Profile) float64 {
	if p.Variant == deviceprofile.VariantQA401 {
		return -20
	}
	return -20
}

// drainSlot awaits a slot's pending transfer if any, tolerating both
// Completed and Aborted outcomes — the shutdown path only cares that
// nothing is left in flight.
func drainSlot(s *usbtransport.Slot) {
	if s == nil || !s.Pending() {
		return
	}
	s.AwaitAny()
}
