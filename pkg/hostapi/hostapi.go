// Package hostapi shapes the narrow slice of the host audio API surface
// the engine actually touches: the driver-exposed methods
// a host calls (createBuffers, start, stop, getLatencies, outputReady,
// controlPanel, getSamplePosition), the callback record a host hands in,
// and the asioMessage-style selector query the driver uses to probe host
// capabilities. The full host API (device enumeration, control-panel UI,
// the rest of the dispatch surface) belongs to the outer façade and is
// not modeled here.
package hostapi

// Selector identifies one asioMessage-style query or notification the
// driver exchanges with the host out of band from the buffer-switch
// callbacks.
type Selector int

const (
	// SelectorSupportsTimeInfo asks whether the host accepts
	// BufferSwitchTimeInfo in place of the plain BufferSwitch callback.
	SelectorSupportsTimeInfo Selector = iota
	// SelectorSupportsOutputReady asks whether the host will ever call
	// OutputReady; if the host never answers affirmatively the driver
	// must assume the worst and add a buffer of latency.
	SelectorSupportsOutputReady
	// SelectorSupportsResetRequest asks whether the host honors an
	// unsolicited reset-request notification.
	SelectorSupportsResetRequest
	// SelectorResetRequest is a notification, not a query: the driver
	// sends it to ask the host to tear down and rebuild the session.
	SelectorResetRequest
)

func (s Selector) String() string {
	switch s {
	case SelectorSupportsTimeInfo:
		return "supports_time_info"
	case SelectorSupportsOutputReady:
		return "supports_output_ready"
	case SelectorSupportsResetRequest:
		return "supports_reset_request"
	case SelectorResetRequest:
		return "reset_request"
	default:
		return "unknown"
	}
}

// Messenger is the driver's narrow view of the host's asioMessage-style
// extension point: capability queries and the reset-request
// notification both travel through it. A nonzero return from a
// SelectorSupports* query means the host claims that capability.
type Messenger interface {
	Message(selector Selector) int64
}

// ChannelInfo describes one host-addressable channel, as returned by
// getChannelInfo.
type ChannelInfo struct {
	IsInput      bool
	ChannelIndex int
	Name         string
}

// BufferSizeRange is the answer to getBufferSize: the host's allowed
// buffer sizes in frames.
type BufferSizeRange struct {
	Min        int
	Max        int
	Preferred  int
	Granularity int
}

// ClientCallbacks is the callback record a host passes to createBuffers.
// BufferSwitchTimeInfo and BufferSwitch are mutually exclusive in
// practice — the driver picks one per SupportsTimeInfo() at session
// start and only ever calls that one.
type ClientCallbacks struct {
	BufferSwitch          func(bufferIndex int)
	BufferSwitchTimeInfo  func(samplePosition int64, wallClockNs int64, bufferIndex int)
	SampleRateDidChange   func(newRate float64)
}

// Latencies is the answer to getLatencies.
type Latencies struct {
	InputFrames  int
	OutputFrames int
}
