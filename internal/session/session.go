// Package session implements the prepared session: it owns the
// host-facing double buffers and channel bindings, probes host
// capabilities once at createBuffers time, and holds the streaming
// worker's lifetime. Everything the host API surface actually calls
// (createBuffers, disposeBuffers, start, stop, getLatencies,
// outputReady, controlPanel, getSamplePosition) is a method here.
//
// Grounded on RtAudioOutputDevice's uuid-scoped logger and
// sync.Once-guarded lifecycle (ijakenorton-Roundtable/internal/device/
// rtaudiooutputdevice.go), generalized from a single owned stream to a
// create/dispose and start/stop split.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/qa40x-go/streamdriver/internal/device"
	"github.com/qa40x-go/streamdriver/internal/worker"
	"github.com/qa40x-go/streamdriver/pkg/deviceprofile"
	"github.com/qa40x-go/streamdriver/pkg/hostapi"
	"github.com/qa40x-go/streamdriver/pkg/qaerr"
)

// channelBinding is one host-addressable channel's pair of buffer
// halves. Bound is false until the façade's channel-binding call claims
// it; unbound channels are never touched by the format translator.
type channelBinding struct {
	bound bool
	half  [2][]int32
}

// Hooks collects the optional scoped-resource and instrumentation
// callbacks the worker accepts, passed through unchanged.
type Hooks struct {
	Logger       *slog.Logger
	Instrument   worker.Instrumentation
	Elevate      func() func()
	AcquireTimer func() func()
}

// Session is the prepared session: one per device open. Use New, then
// CreateBuffers once, then Start/Stop any number of times, then
// DisposeBuffers once.
type Session struct {
	id     uuid.UUID
	logger *slog.Logger

	adapter   device.Adapter
	profile   deviceprofile.Profile
	messenger hostapi.Messenger
	hooks     Hooks

	mu            sync.Mutex
	buffersCreated bool
	buffersDisposed bool

	bufferFrames  int
	forceRead     bool
	hostBigEndian bool
	settings      deviceprofile.Settings
	callbacks     hostapi.ClientCallbacks

	outputs []channelBinding
	inputs  []channelBinding

	supportsTimeInfo    bool
	supportsOutputReady bool

	w *worker.Worker
}

// New constructs a Session bound to adapter. messenger is the host's
// asioMessage-style query/notify surface; it may be nil, in which case
// every SupportsX probe answers false and
// reset-request notifications are silently dropped — useful for tests
// that don't exercise host-capability negotiation.
func New(adapter device.Adapter, messenger hostapi.Messenger, hooks Hooks) *Session {
	id := uuid.New()
	logger := hooks.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "session.Session", "session", id, "variant", adapter.Profile().Variant.String())

	return &Session{
		id:        id,
		logger:    logger,
		adapter:   adapter,
		profile:   adapter.Profile(),
		messenger: messenger,
		hooks:     hooks,
	}
}

func (s *Session) probe(selector hostapi.Selector) bool {
	if s.messenger == nil {
		return false
	}
	return s.messenger.Message(selector) != 0
}

func (s *Session) notifyResetRequest() {
	if s.messenger != nil {
		s.messenger.Message(hostapi.SelectorResetRequest)
	}
}

// CreateBuffers validates the requested channel bindings and buffer
// size, allocates the host double buffers, and probes host
// capabilities. It fails InvalidMode if called more than once on the
// same Session, and InvalidParameter on an out-of-range channel or a
// buffer size that doesn't divide the profile's write granularity while
// any output channel is bound.
func (s *Session) CreateBuffers(infos []hostapi.ChannelInfo, bufferFrames int, hostBigEndian bool, settings deviceprofile.Settings, callbacks hostapi.ClientCallbacks) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buffersCreated {
		return qaerr.InvalidMode("session.CreateBuffers", nil)
	}

	outputs := make([]channelBinding, s.profile.OutputChannels)
	inputs := make([]channelBinding, s.profile.InputChannels)

	outBound, inBound := 0, 0
	for _, info := range infos {
		if info.IsInput {
			if info.ChannelIndex < 0 || info.ChannelIndex >= s.profile.InputChannels {
				return qaerr.InvalidParameter("session.CreateBuffers", nil)
			}
			inputs[info.ChannelIndex].bound = true
			inBound++
		} else {
			if info.ChannelIndex < 0 || info.ChannelIndex >= s.profile.OutputChannels {
				return qaerr.InvalidParameter("session.CreateBuffers", nil)
			}
			outputs[info.ChannelIndex].bound = true
			outBound++
		}
	}

	if outBound > 0 && bufferFrames%s.profile.WriteGranularity != 0 {
		return qaerr.InvalidParameter("session.CreateBuffers", nil)
	}
	if bufferFrames <= 0 {
		return qaerr.InvalidParameter("session.CreateBuffers", nil)
	}

	for c := range outputs {
		if outputs[c].bound {
			outputs[c].half[0] = make([]int32, bufferFrames)
			outputs[c].half[1] = make([]int32, bufferFrames)
		}
	}
	for c := range inputs {
		if inputs[c].bound {
			inputs[c].half[0] = make([]int32, bufferFrames)
			inputs[c].half[1] = make([]int32, bufferFrames)
		}
	}

	s.outputs = outputs
	s.inputs = inputs
	s.bufferFrames = bufferFrames
	s.hostBigEndian = hostBigEndian
	s.settings = settings
	s.callbacks = callbacks
	s.supportsTimeInfo = s.probe(hostapi.SelectorSupportsTimeInfo)
	s.supportsOutputReady = s.probe(hostapi.SelectorSupportsOutputReady)
	s.buffersCreated = true

	s.logger.Debug("buffers created",
		"bufferFrames", bufferFrames,
		"outputChannelsBound", outBound,
		"inputChannelsBound", inBound,
		"supportsTimeInfo", s.supportsTimeInfo,
		"supportsOutputReady", s.supportsOutputReady,
	)
	return nil
}

// DisposeBuffers releases the host buffers. It fails InvalidMode if
// buffers were never created, if called twice, or if the worker is
// still running — stop() must join first.
func (s *Session) DisposeBuffers() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.buffersCreated || s.buffersDisposed {
		return qaerr.InvalidMode("session.DisposeBuffers", nil)
	}
	if s.w != nil && s.w.State() != worker.StateStopped && s.w.State() != worker.StateFaulted {
		return qaerr.InvalidMode("session.DisposeBuffers", nil)
	}

	s.outputs = nil
	s.inputs = nil
	s.buffersDisposed = true
	s.logger.Debug("buffers disposed")
	return nil
}

// Start builds and starts the streaming worker. Fails InvalidMode if
// buffers were never created or disposed, or a previous worker has not
// yet reached StateStopped.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.buffersCreated || s.buffersDisposed {
		return qaerr.InvalidMode("session.Start", nil)
	}
	if s.w != nil && s.w.State() != worker.StateStopped {
		return qaerr.InvalidMode("session.Start", nil)
	}

	w, err := worker.New(worker.Config{
		Adapter:      s.adapter,
		Settings:     s.settings,
		Bindings:     (*sessionBindings)(s),
		Host:         (*sessionHostCallbacks)(s),
		BufferFrames: s.bufferFrames,
		ForceRead:    s.forceRead,
		Logger:       s.logger,
		Instrument:   s.hooks.Instrument,
		Elevate:      s.hooks.Elevate,
		AcquireTimer: s.hooks.AcquireTimer,
	})
	if err != nil {
		return err
	}
	s.w = w
	w.Start(ctx)
	return nil
}

// Stop requests an orderly shutdown and waits for the worker to join.
// Safe to call when no worker exists.
func (s *Session) Stop() {
	s.mu.Lock()
	w := s.w
	s.mu.Unlock()
	if w != nil {
		w.Stop()
	}
}

// SetForceRead sets the config.forceRead flag; must be called before
// Start.
func (s *Session) SetForceRead(forceRead bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forceRead = forceRead
}

// GetLatencies implements the latency-reporting formula, evaluated
// synchronously (never on the worker thread).
func (s *Session) GetLatencies() hostapi.Latencies {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.bufferFrames
	lat := hostapi.Latencies{InputFrames: b, OutputFrames: b}

	mustPlay, mustRead := s.boundSummaryLocked()
	switch {
	case mustPlay && !mustRead && !s.forceRead:
		// Output-only with nothing to rate-limit writes: the larger,
		// hardware-queue-sized escalation applies on its own, leaving no
		// room for an additional OutputReady term here.
		lat.OutputFrames += b + s.profile.HWQueueFrames
	case !s.supportsOutputReady:
		lat.OutputFrames += b
	}
	return lat
}

// boundSummaryLocked reports mustPlay/mustRead for use by GetLatencies.
// Callers must hold s.mu.
func (s *Session) boundSummaryLocked() (mustPlay, mustRead bool) {
	for _, c := range s.outputs {
		if c.bound {
			mustPlay = true
			break
		}
	}
	for _, c := range s.inputs {
		if c.bound {
			mustRead = true
			break
		}
	}
	return mustPlay, mustRead || s.forceRead
}

// GetSamplePosition returns the worker's current atomic snapshot, or the
// zero value if the worker hasn't started.
func (s *Session) GetSamplePosition() worker.SamplePosition {
	s.mu.Lock()
	w := s.w
	s.mu.Unlock()
	if w == nil {
		return worker.SamplePosition{}
	}
	return w.Position()
}

// OutputReady forwards the host's buffer-ready signal to the worker.
func (s *Session) OutputReady() {
	s.mu.Lock()
	w := s.w
	s.mu.Unlock()
	if w != nil {
		w.SignalOutputReady()
	}
}

// ControlPanel is explicitly out of scope; it reports InvalidMode
// rather than silently no-op'ing so a caller can tell "no control
// panel" from "not wired up".
func (s *Session) ControlPanel() error {
	return qaerr.InvalidMode("session.ControlPanel", nil)
}

// CanSampleRate reports whether rate is one of the profile's offered
// sample rates.
func (s *Session) CanSampleRate(rate int) bool {
	return s.profile.SupportsSampleRate(rate)
}

// GetSampleRate returns the currently configured sample rate.
func (s *Session) GetSampleRate() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.SampleRate
}

// SetSampleRate: a sample-rate change while the worker is running is
// always refused in place. Instead of
// touching the device, the session issues the same reset-request path
// used for fatal faults, and the host is expected to tear the session
// down and rebuild it with the new rate.
func (s *Session) SetSampleRate(rate int) error {
	if !s.profile.SupportsSampleRate(rate) {
		return qaerr.NoClock("session.SetSampleRate", nil)
	}

	s.mu.Lock()
	running := s.w != nil && s.w.State() != worker.StateStopped && s.w.State() != worker.StateFaulted
	s.mu.Unlock()

	if running {
		s.notifyResetRequest()
		return qaerr.InvalidMode("session.SetSampleRate", nil)
	}

	s.mu.Lock()
	s.settings.SampleRate = rate
	s.mu.Unlock()
	return nil
}

// GetChannelInfo answers getChannelInfo for one channel.
func (s *Session) GetChannelInfo(isInput bool, channelIndex int) (hostapi.ChannelInfo, error) {
	count := s.profile.OutputChannels
	if isInput {
		count = s.profile.InputChannels
	}
	if channelIndex < 0 || channelIndex >= count {
		return hostapi.ChannelInfo{}, qaerr.InvalidParameter("session.GetChannelInfo", nil)
	}
	return hostapi.ChannelInfo{IsInput: isInput, ChannelIndex: channelIndex}, nil
}

// GetBufferSize answers getBufferSize: the profile's write granularity
// bounds every allowed buffer size.
func (s *Session) GetBufferSize() hostapi.BufferSizeRange {
	g := s.profile.WriteGranularity
	return hostapi.BufferSizeRange{
		Min:         g,
		Max:         g * 256,
		Preferred:   s.profile.StartThresholdFrames,
		Granularity: g,
	}
}

// InputPlane returns the host-visible capture buffer half for channel,
// as allocated by CreateBuffers. The host reads it during BufferSwitch
// for the half not currently being filled by the worker.
func (s *Session) InputPlane(channel, bufferIndex int) []int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inputs[channel].half[bufferIndex]
}

// OutputPlane returns the host-visible playback buffer half for
// channel. The host writes it during BufferSwitch before the worker
// next drains that half to the wire.
func (s *Session) OutputPlane(channel, bufferIndex int) []int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outputs[channel].half[bufferIndex]
}

// HostSupportsOutputReady reports the capability probed at
// CreateBuffers, or live worker state once streaming.
func (s *Session) HostSupportsOutputReady() bool {
	s.mu.Lock()
	w := s.w
	probed := s.supportsOutputReady
	s.mu.Unlock()
	if w != nil {
		return w.HostSupportsOutputReady()
	}
	return probed
}

// sessionBindings adapts Session to worker.Bindings without exposing the
// session's locking or host-API-facing methods to the worker.
type sessionBindings Session

func (b *sessionBindings) OutputBound(channel int) bool {
	return channel >= 0 && channel < len(b.outputs) && b.outputs[channel].bound
}

func (b *sessionBindings) OutputPlane(channel, bufferIndex int) []int32 {
	return b.outputs[channel].half[bufferIndex]
}

func (b *sessionBindings) InputBound(channel int) bool {
	return channel >= 0 && channel < len(b.inputs) && b.inputs[channel].bound
}

func (b *sessionBindings) InputPlane(channel, bufferIndex int) []int32 {
	return b.inputs[channel].half[bufferIndex]
}

func (b *sessionBindings) AnyOutputBound() bool {
	for _, c := range b.outputs {
		if c.bound {
			return true
		}
	}
	return false
}

func (b *sessionBindings) AnyInputBound() bool {
	for _, c := range b.inputs {
		if c.bound {
			return true
		}
	}
	return false
}

func (b *sessionBindings) HostBigEndian() bool { return b.hostBigEndian }

// sessionHostCallbacks adapts Session to worker.HostCallbacks, routing
// BufferSwitch/BufferSwitchTimeInfo to whichever host callback was
// registered at CreateBuffers and ResetRequest to the messenger.
type sessionHostCallbacks Session

func (h *sessionHostCallbacks) BufferSwitch(bufferIndex int) {
	if cb := h.callbacks.BufferSwitch; cb != nil {
		cb(bufferIndex)
	}
}

func (h *sessionHostCallbacks) BufferSwitchTimeInfo(pos worker.SamplePosition, bufferIndex int) {
	if cb := h.callbacks.BufferSwitchTimeInfo; cb != nil {
		cb(pos.SampleFrameCount, pos.WallClockNs, bufferIndex)
	}
}

func (h *sessionHostCallbacks) SupportsTimeInfo() bool { return h.supportsTimeInfo }

func (h *sessionHostCallbacks) ResetRequest() { (*Session)(h).notifyResetRequest() }
