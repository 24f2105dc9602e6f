// Package format holds the pure functions that copy between the host's
// per-channel plane layout and the device's interleaved frame layout:
// channel reordering, per-channel polarity inversion, and endian swap.
// Keeping these quirks in one branch-free place is what lets the
// streaming worker stay free of per-variant conditionals.
package format

import (
	"encoding/binary"
	"math"

	"github.com/qa40x-go/streamdriver/pkg/deviceprofile"
)

// Negate implements clamped polarity inversion: for every 32-bit value
// x, Negate(x) == -max(x, math.MinInt32+1), so
// that negating math.MinInt32 (which has no positive counterpart in
// two's complement) yields math.MaxInt32 instead of overflowing.
func Negate(x int32) int32 {
	if x == math.MinInt32 {
		x = math.MinInt32 + 1
	}
	return -x
}

// SwapEndian32 reverses the byte order of a single 4-byte sample.
func SwapEndian32(b []byte) {
	b[0], b[1], b[2], b[3] = b[3], b[2], b[1], b[0]
}

// HostToDevice converts one buffer half from the host's planar layout to
// the device's interleaved wire layout.
//
// planes holds one []int32 per bound output channel, indexed by host
// channel number, each of length frames. dev is the destination wire
// buffer and must be exactly frames*profile.OutputChannels*4 bytes.
// Unbound channels (a nil entry in planes) are written as silence.
//
// The sequence is: per-sample polarity inversion (if the profile
// requires it) and channel-swap interleaving, then a whole-buffer
// endianness swap if hostBigEndian differs from the profile's wire
// endianness.
func HostToDevice(p deviceprofile.Profile, planes []([]int32), frames int, hostBigEndian bool, dev []byte) {
	stride := p.OutputChannels * p.SampleBytes
	for f := 0; f < frames; f++ {
		for c := 0; c < p.OutputChannels; c++ {
			var s int32
			if c < len(planes) && planes[c] != nil {
				s = planes[c][f]
			}
			if p.NeedsPolarityInvertOut {
				s = Negate(s)
			}
			lane := p.LaneOf(c)
			off := f*stride + lane*p.SampleBytes
			putInt32(dev[off:off+4], s, hostBigEndian)
		}
	}
	if hostBigEndian != p.BigEndian {
		swapAll(dev)
	}
}

// DeviceToHost converts one buffer half from the device's interleaved
// wire layout back to the host's planar layout. planes must have one
// []int32 entry per bound input channel, each of length frames; nil
// entries are skipped (the caller did not bind that channel).
//
// The sequence mirrors HostToDevice in reverse: endianness swap first,
// then deinterleave with the channel-swap rule, then polarity inversion
// of the right input channel (index 1) only, on both variants.
func DeviceToHost(p deviceprofile.Profile, dev []byte, frames int, hostBigEndian bool, planes []([]int32)) {
	if hostBigEndian != p.BigEndian {
		swapAll(dev)
	}
	stride := p.InputChannels * p.SampleBytes
	for f := 0; f < frames; f++ {
		for c := 0; c < p.InputChannels; c++ {
			lane := p.InputLaneOf(c)
			off := f*stride + lane*p.SampleBytes
			s := getInt32(dev[off:off+4], hostBigEndian)
			if c == 1 {
				s = Negate(s)
			}
			if c < len(planes) && planes[c] != nil {
				planes[c][f] = s
			}
		}
	}
}

func putInt32(b []byte, v int32, bigEndian bool) {
	if bigEndian {
		binary.BigEndian.PutUint32(b, uint32(v))
	} else {
		binary.LittleEndian.PutUint32(b, uint32(v))
	}
}

func getInt32(b []byte, bigEndian bool) int32 {
	if bigEndian {
		return int32(binary.BigEndian.Uint32(b))
	}
	return int32(binary.LittleEndian.Uint32(b))
}

func swapAll(buf []byte) {
	for i := 0; i+4 <= len(buf); i += 4 {
		SwapEndian32(buf[i : i+4])
	}
}
