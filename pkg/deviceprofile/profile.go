// Package deviceprofile holds the per-variant constants and settings
// that distinguish the QA401 from the QA40x-modern (QA402/QA403) family.
// It is expressed as a closed sum type over Variant rather than an
// open-ended interface, matching the original code's tagged union and
// keeping the hot path exhaustiveness-checkable and free of dynamic
// dispatch.
package deviceprofile

// Variant identifies one of the two supported device families. QA402 and
// QA403 share the "modern" protocol.
type Variant int

const (
	VariantQA401 Variant = iota
	VariantQA40xModern
)

func (v Variant) String() string {
	switch v {
	case VariantQA401:
		return "QA401"
	case VariantQA40xModern:
		return "QA40x-modern"
	default:
		return "unknown"
	}
}

// Profile is the static-per-variant constant set. Values never change
// for the session's lifetime.
type Profile struct {
	Variant Variant

	InputChannels  int
	OutputChannels int

	SampleBytes        int // fixed at 4 (32-bit PCM) for both variants
	BigEndian          bool
	HWQueueFrames      int
	WriteGranularity   int // frames; minimum size of any single OUT-data transfer
	StartThresholdFrames int
	InitialInputGarbageFrames int

	NeedsPing                bool
	NeedsPolarityInvertOut   bool
	NeedsChannelSwapOut      bool
	NeedsChannelSwapIn       bool

	SampleRates []int
}

// QA401 is the constant profile for the older variant: register-5 magic
// sequence, big-endian wire samples, output channel swap, output
// polarity inversion, and a keep-alive ping to hold the front-panel link
// LED lit.
var QA401 = Profile{
	Variant:                   VariantQA401,
	InputChannels:             2,
	OutputChannels:            2,
	SampleBytes:               4,
	BigEndian:                 true,
	HWQueueFrames:             4096,
	WriteGranularity:          48,
	StartThresholdFrames:      8208, // 48 * 171, nearest write-granularity multiple to an 8192-frame start threshold

	InitialInputGarbageFrames: 2048,
	NeedsPing:                 true,
	NeedsPolarityInvertOut:    true,
	NeedsChannelSwapOut:       true,
	NeedsChannelSwapIn:        true,
	SampleRates:               []int{48000, 192000},
}

// QA40xModern is the constant profile shared by QA402 and QA403: direct
// named-register configuration, little-endian wire samples, no channel
// swap, no output polarity inversion, and no keep-alive ping.
//
// HWQueueFrames here was measured empirically on one QA402 unit and
// copy-pasted for QA403, which has not been independently remeasured.
// Treat it as a device constant pending a from-hardware remeasurement.
var QA40xModern = Profile{
	Variant:                   VariantQA40xModern,
	InputChannels:             2,
	OutputChannels:            2,
	SampleBytes:               4,
	BigEndian:                 false,
	HWQueueFrames:             8192,
	WriteGranularity:          32,
	StartThresholdFrames:      4096,
	InitialInputGarbageFrames: 1024,
	NeedsPing:                 false,
	NeedsPolarityInvertOut:    false,
	NeedsChannelSwapOut:       false,
	NeedsChannelSwapIn:        false,
	SampleRates:               []int{48000, 96000, 192000, 384000},
}

// ForVariant returns the constant Profile for v.
func ForVariant(v Variant) Profile {
	switch v {
	case VariantQA401:
		return QA401
	case VariantQA40xModern:
		return QA40xModern
	default:
		return Profile{}
	}
}

// LaneOf returns the device-facing interleave lane for host output
// channel c under this profile's channel-swap rule.
func (p Profile) LaneOf(c int) int {
	if p.NeedsChannelSwapOut {
		return (c + 1) % p.OutputChannels
	}
	return c
}

// InputLaneOf returns the device-facing lane for host input channel c.
// Only the older variant swaps on input; QA40x-modern is left unswapped
// until confirmed on real hardware.
func (p Profile) InputLaneOf(c int) int {
	if p.NeedsChannelSwapIn {
		return (c + 1) % p.InputChannels
	}
	return c
}

// SupportsSampleRate reports whether rate is one of this profile's
// offered sample rates.
func (p Profile) SupportsSampleRate(rate int) bool {
	for _, r := range p.SampleRates {
		if r == rate {
			return true
		}
	}
	return false
}

// Settings is the per-session configuration built from validated user
// input and the detected Profile.
type Settings struct {
	InputFullScaleDBV  float64
	OutputFullScaleDBV float64
	SampleRate         int
	HPF                bool // QA401 only; ignored by QA40x-modern
}
