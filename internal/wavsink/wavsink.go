// Package wavsink writes captured input planes out to a standard WAV
// file, one buffer-switch worth of frames at a time.
//
// Grounded on ijakenorton-Roundtable's FileAudioOutputDevice
// (pkg/audiodevice/device/filedevice.go), which wraps a go-audio/wav
// Encoder around a channel of PCM frames. This sink is pulled instead
// of pushed: the caller (the stream-to-wav command) hands it one
// buffer's worth of planar int32 samples right after each BufferSwitch,
// since the driver has no channel of its own to read from.
package wavsink

import (
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Writer interleaves planar int32 capture buffers and appends them to a
// 32-bit PCM WAV file.
type Writer struct {
	f       *os.File
	enc     *wav.Encoder
	format  *goaudio.Format
	scratch *goaudio.IntBuffer
}

// New creates (truncating) path and prepares a numChannels-channel,
// sampleRate, 32-bit PCM WAV encoder.
func New(path string, sampleRate, numChannels int) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	enc := wav.NewEncoder(f, sampleRate, 32, numChannels, 1)
	format := &goaudio.Format{SampleRate: sampleRate, NumChannels: numChannels}
	return &Writer{
		f:      f,
		enc:    enc,
		format: format,
		scratch: &goaudio.IntBuffer{
			Format:         format,
			SourceBitDepth: 32,
		},
	}, nil
}

// WritePlanes interleaves one buffer's worth of per-channel planes
// (length frames each, len(planes) == NumChannels) and appends it.
// Unbound channels should still pass a zeroed plane — the WAV format
// has no notion of a missing channel.
func (w *Writer) WritePlanes(planes [][]int32, frames int) error {
	n := len(planes) * frames
	if cap(w.scratch.Data) < n {
		w.scratch.Data = make([]int, n)
	}
	w.scratch.Data = w.scratch.Data[:n]

	for ch, plane := range planes {
		for i := 0; i < frames; i++ {
			w.scratch.Data[i*len(planes)+ch] = int(plane[i])
		}
	}
	return w.enc.Write(w.scratch)
}

// Close flushes the WAV header and closes the underlying file.
func (w *Writer) Close() error {
	if err := w.enc.Close(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}
