package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qa40x-go/streamdriver/internal/device"
	"github.com/qa40x-go/streamdriver/pkg/deviceprofile"
	"github.com/qa40x-go/streamdriver/pkg/hostapi"
	"github.com/qa40x-go/streamdriver/pkg/qaerr"
)

func newTestAdapter(p deviceprofile.Profile) device.Adapter {
	return &mockAdapter{profile: p, write: autoEndpoint{}, read: autoEndpoint{}, reg: autoEndpoint{}}
}

func TestCreateBuffersRejectsOutOfRangeChannel(t *testing.T) {
	s := New(newTestAdapter(deviceprofile.QA401), nil, Hooks{})
	err := s.CreateBuffers([]hostapi.ChannelInfo{{IsInput: false, ChannelIndex: 7}}, 1024, false, deviceprofile.Settings{}, hostapi.ClientCallbacks{})
	require.ErrorIs(t, err, qaerr.ErrInvalidParameter)
}

func TestCreateBuffersRejectsMisalignedBufferSize(t *testing.T) {
	p := deviceprofile.QA401
	s := New(newTestAdapter(p), nil, Hooks{})
	err := s.CreateBuffers([]hostapi.ChannelInfo{{IsInput: false, ChannelIndex: 0}}, p.WriteGranularity+1, false, deviceprofile.Settings{}, hostapi.ClientCallbacks{})
	require.ErrorIs(t, err, qaerr.ErrInvalidParameter)
}

func TestCreateBuffersTwiceFails(t *testing.T) {
	p := deviceprofile.QA401
	s := New(newTestAdapter(p), nil, Hooks{})
	require.NoError(t, s.CreateBuffers(nil, p.WriteGranularity, false, deviceprofile.Settings{}, hostapi.ClientCallbacks{}))
	err := s.CreateBuffers(nil, p.WriteGranularity, false, deviceprofile.Settings{}, hostapi.ClientCallbacks{})
	require.ErrorIs(t, err, qaerr.ErrInvalidMode)
}

func TestDisposeBuffersBeforeCreateFails(t *testing.T) {
	s := New(newTestAdapter(deviceprofile.QA401), nil, Hooks{})
	require.ErrorIs(t, s.DisposeBuffers(), qaerr.ErrInvalidMode)
}

// TestGetLatenciesOutputOnlyNoOutputReady covers output-only with
// OutputReady unsupported: output latency is B + (B + hwQueueFrames); the
// output-only term replaces, rather than adds to, the OutputReady term.
func TestGetLatenciesOutputOnlyNoOutputReady(t *testing.T) {
	p := deviceprofile.QA40xModern
	s := New(newTestAdapter(p), &mockMessenger{supportsTimeInfo: false, supportsOutputReady: false}, Hooks{})
	require.NoError(t, s.CreateBuffers([]hostapi.ChannelInfo{{IsInput: false, ChannelIndex: 0}}, 512, false, deviceprofile.Settings{SampleRate: 96000}, hostapi.ClientCallbacks{}))

	lat := s.GetLatencies()
	require.Equal(t, 512, lat.InputFrames)
	require.Equal(t, 512+512+p.HWQueueFrames, lat.OutputFrames)
}

func TestGetLatenciesBaselineWithOutputReadyAndSync(t *testing.T) {
	p := deviceprofile.QA401
	s := New(newTestAdapter(p), &mockMessenger{supportsOutputReady: true}, Hooks{})
	infos := []hostapi.ChannelInfo{
		{IsInput: false, ChannelIndex: 0},
		{IsInput: true, ChannelIndex: 0},
	}
	require.NoError(t, s.CreateBuffers(infos, p.WriteGranularity, false, deviceprofile.Settings{SampleRate: 48000}, hostapi.ClientCallbacks{}))

	lat := s.GetLatencies()
	require.Equal(t, p.WriteGranularity, lat.InputFrames)
	require.Equal(t, p.WriteGranularity, lat.OutputFrames)
}

// TestSetSampleRateRefusesWhileRunning: a sample-rate change while the
// worker is running is refused in place and instead triggers a
// reset-request; no device I/O happens.
func TestSetSampleRateRefusesWhileRunning(t *testing.T) {
	p := deviceprofile.QA40xModern
	msgr := &mockMessenger{supportsOutputReady: true}
	s := New(newTestAdapter(p), msgr, Hooks{})
	require.NoError(t, s.CreateBuffers([]hostapi.ChannelInfo{{IsInput: false, ChannelIndex: 0}}, p.WriteGranularity, false, deviceprofile.Settings{SampleRate: 48000}, hostapi.ClientCallbacks{}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	require.Eventually(t, func() bool {
		return s.GetSampleRate() == 48000
	}, time.Second, time.Millisecond)

	err := s.SetSampleRate(96000)
	require.ErrorIs(t, err, qaerr.ErrInvalidMode)
	require.Equal(t, 48000, s.GetSampleRate())
	require.Equal(t, 1, msgr.resetRequestCount())
}

func TestSetSampleRateRejectsUnsupportedRate(t *testing.T) {
	s := New(newTestAdapter(deviceprofile.QA401), nil, Hooks{})
	err := s.SetSampleRate(384000)
	require.ErrorIs(t, err, qaerr.ErrNoClock)
}

func TestControlPanelOutOfScope(t *testing.T) {
	s := New(newTestAdapter(deviceprofile.QA401), nil, Hooks{})
	require.ErrorIs(t, s.ControlPanel(), qaerr.ErrInvalidMode)
}

func TestStartStopJoinsCleanly(t *testing.T) {
	p := deviceprofile.QA40xModern
	s := New(newTestAdapter(p), &mockMessenger{supportsOutputReady: true}, Hooks{})
	require.NoError(t, s.CreateBuffers([]hostapi.ChannelInfo{{IsInput: false, ChannelIndex: 0}}, p.WriteGranularity, false, deviceprofile.Settings{SampleRate: 96000}, hostapi.ClientCallbacks{}))

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(10 * time.Millisecond)
	s.Stop()

	require.NoError(t, s.DisposeBuffers())
}
