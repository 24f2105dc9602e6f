package worker

import "github.com/qa40x-go/streamdriver/pkg/deviceprofile"

// sizing holds the frame-count derivations computed once at session
// start from the host buffer size B and the channel bindings.
type sizing struct {
	mustPlay   bool
	mustRecord bool
	mustRead   bool
	mustSync   bool

	initialGarbage int
	steadyWrite    int
	steadyRead     int
	firstWrite     int
	firstRead      int
}

// newSizing derives the sizing struct for buffer size b frames, profile
// p, and the bound-channel/forceRead flags. It does not validate the
// write-granularity constraint; callers check that separately so the
// error can name the offending value.
func newSizing(p deviceprofile.Profile, b int, outputChannelsBound, inputChannelsBound int, forceRead bool) sizing {
	s := sizing{}
	s.mustPlay = outputChannelsBound > 0
	s.mustRecord = inputChannelsBound > 0
	s.mustRead = s.mustRecord || forceRead
	s.mustSync = s.mustPlay && s.mustRead

	if s.mustRecord {
		s.initialGarbage = p.InitialInputGarbageFrames
	}

	if s.mustPlay {
		s.steadyWrite = b
	}
	if s.mustRead {
		s.steadyRead = b
	}

	firstWrite := 0
	if s.mustSync {
		firstWrite = s.initialGarbage
	}
	firstWrite += s.steadyWrite
	if needed := p.StartThresholdFrames - s.steadyWrite; firstWrite < needed {
		firstWrite = needed
	}
	s.firstWrite = firstWrite

	if s.mustRead {
		floor := s.initialGarbage + s.steadyRead
		if s.mustSync && s.firstWrite > floor {
			floor = s.firstWrite
		}
		s.firstRead = floor
	}

	return s
}
