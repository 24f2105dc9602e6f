package worker

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qa40x-go/streamdriver/pkg/deviceprofile"
)

// TestSizingOutputOnlyNoSync covers an output-only QA403 session with
// B=512: the first write is padded so that it and the steady write
// together reach startThresholdFrames, and the session never reads.
func TestSizingOutputOnlyNoSync(t *testing.T) {
	p := deviceprofile.QA40xModern
	s := newSizing(p, 512, 1, 0, false)

	require.True(t, s.mustPlay)
	require.False(t, s.mustRecord)
	require.False(t, s.mustRead)
	require.False(t, s.mustSync)
	require.Equal(t, 0, s.firstRead)
	require.Equal(t, p.StartThresholdFrames-512, s.firstWrite)
}

// TestSizingRecordOnly matches scenario 3: mustRead is true via
// mustRecord even with forceRead=false, and initial input garbage is
// discarded.
func TestSizingRecordOnly(t *testing.T) {
	p := deviceprofile.QA401
	s := newSizing(p, 1024, 0, 2, false)

	require.False(t, s.mustPlay)
	require.True(t, s.mustRecord)
	require.True(t, s.mustRead)
	require.False(t, s.mustSync)
	require.Equal(t, p.InitialInputGarbageFrames, s.initialGarbage)
	// steadyWrite is 0 (no output bound), so firstWrite pads all the way
	// to the start threshold: a single dummy write to crank the hardware.
	require.Equal(t, p.StartThresholdFrames, s.firstWrite)
	require.Equal(t, p.InitialInputGarbageFrames+1024, s.firstRead)
}

func TestSizingFullDuplex(t *testing.T) {
	p := deviceprofile.QA401
	s := newSizing(p, 1024, 2, 2, false)

	require.True(t, s.mustPlay)
	require.True(t, s.mustRead)
	require.True(t, s.mustSync)

	wantFirstWrite := p.InitialInputGarbageFrames + 1024
	if needed := p.StartThresholdFrames - 1024; needed > wantFirstWrite {
		wantFirstWrite = needed
	}
	require.Equal(t, wantFirstWrite, s.firstWrite)
	require.Equal(t, s.firstWrite, s.firstRead)
	require.Equal(t, 1024, s.steadyWrite)
	require.Equal(t, 1024, s.steadyRead)
}
