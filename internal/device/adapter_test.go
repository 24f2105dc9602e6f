package device

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qa40x-go/streamdriver/pkg/deviceprofile"
	"github.com/qa40x-go/streamdriver/pkg/qaerr"
	"github.com/qa40x-go/streamdriver/pkg/usbtransport"
)

// recordingEndpoint completes every submit immediately and records the
// bytes written, letting tests assert the exact register packets a
// Reset/Start sequence issued.
type recordingEndpoint struct {
	writes [][]byte
}

func (e *recordingEndpoint) Submit(ctx context.Context, buf []byte, write bool, done chan<- usbtransport.SubmitResult) {
	cp := append([]byte(nil), buf...)
	e.writes = append(e.writes, cp)
	done <- usbtransport.SubmitResult{Res: usbtransport.Result{Outcome: usbtransport.Completed, BytesTransferred: len(buf)}}
}

// fakeBus hands out one recordingEndpoint per role, or fails to open
// whichever endpoint missing names.
type fakeBus struct {
	missing string
	reg     *recordingEndpoint
	write   *recordingEndpoint
	read    *recordingEndpoint
}

func newFakeBus() *fakeBus {
	return &fakeBus{reg: &recordingEndpoint{}, write: &recordingEndpoint{}, read: &recordingEndpoint{}}
}

func (b *fakeBus) OpenRegisterEndpoint(ctx context.Context, devicePath string) (usbtransport.RawEndpoint, error) {
	if b.missing == "register" {
		return nil, errors.New("no such endpoint")
	}
	return b.reg, nil
}

func (b *fakeBus) OpenWriteEndpoint(ctx context.Context, devicePath string) (usbtransport.RawEndpoint, error) {
	if b.missing == "write" {
		return nil, errors.New("no such endpoint")
	}
	return b.write, nil
}

func (b *fakeBus) OpenReadEndpoint(ctx context.Context, devicePath string) (usbtransport.RawEndpoint, error) {
	if b.missing == "read" {
		return nil, errors.New("no such endpoint")
	}
	return b.read, nil
}

func TestOpenMissingEndpointIsNotPresent(t *testing.T) {
	for _, missing := range []string{"register", "write", "read"} {
		bus := newFakeBus()
		bus.missing = missing
		_, err := Open(context.Background(), bus, "demo-path", deviceprofile.VariantQA401)
		require.Error(t, err)
		require.True(t, errors.Is(err, qaerr.ErrNotPresent))
	}
}

func TestOpenReturnsMatchingVariant(t *testing.T) {
	a, err := Open(context.Background(), newFakeBus(), "demo-path", deviceprofile.VariantQA401)
	require.NoError(t, err)
	require.Equal(t, deviceprofile.VariantQA401, a.Profile().Variant)

	a, err = Open(context.Background(), newFakeBus(), "demo-path", deviceprofile.VariantQA40xModern)
	require.NoError(t, err)
	require.Equal(t, deviceprofile.VariantQA40xModern, a.Profile().Variant)
}

func TestQA401ResetWritesRegisterSequenceThenPingIsRegister7(t *testing.T) {
	bus := newFakeBus()
	a, err := Open(context.Background(), bus, "demo-path", deviceprofile.VariantQA401)
	require.NoError(t, err)

	settings := deviceprofile.Settings{InputFullScaleDBV: -20, OutputFullScaleDBV: -20, SampleRate: 48000}
	require.NoError(t, a.Reset(context.Background(), settings))
	require.NoError(t, a.Start(context.Background()))

	require.Len(t, bus.reg.writes, 3)
	require.Equal(t, byte(qa401RegAnalog), bus.reg.writes[0][0])
	require.Equal(t, byte(qa401RegControl), bus.reg.writes[1][0])
	require.Equal(t, byte(qa401RegAnalog2), bus.reg.writes[2][0])

	ping := a.PingPacket()
	require.Equal(t, byte(qa401RegPing), ping[0])
	require.Equal(t, byte(qa401PingValue), ping[4])
}

func TestQA401ResetRejectsUnenumeratedLevel(t *testing.T) {
	bus := newFakeBus()
	a, err := Open(context.Background(), bus, "demo-path", deviceprofile.VariantQA401)
	require.NoError(t, err)

	settings := deviceprofile.Settings{InputFullScaleDBV: -20, OutputFullScaleDBV: -17, SampleRate: 48000}
	err = a.Reset(context.Background(), settings)
	require.Error(t, err)
	require.True(t, errors.Is(err, qaerr.ErrInvalidParameter))
}

func TestQA40xModernResetWritesNamedRegistersThenGoOnStart(t *testing.T) {
	bus := newFakeBus()
	a, err := Open(context.Background(), bus, "demo-path", deviceprofile.VariantQA40xModern)
	require.NoError(t, err)

	settings := deviceprofile.Settings{InputFullScaleDBV: -20, OutputFullScaleDBV: -20, SampleRate: 96000}
	require.NoError(t, a.Reset(context.Background(), settings))
	require.Len(t, bus.reg.writes, 3)
	require.Equal(t, byte(qa40xRegInputLevel), bus.reg.writes[0][0])
	require.Equal(t, byte(qa40xRegOutputLevel), bus.reg.writes[1][0])
	require.Equal(t, byte(qa40xRegSampleRate), bus.reg.writes[2][0])

	require.NoError(t, a.Start(context.Background()))
	require.Len(t, bus.reg.writes, 4)
	require.Equal(t, byte(qa40xRegGo), bus.reg.writes[3][0])
	require.Equal(t, byte(qa40xGoValue), bus.reg.writes[3][4])

	require.Nil(t, a.PingPacket())
}

func TestQA40xModernResetRejectsUnsupportedSampleRate(t *testing.T) {
	bus := newFakeBus()
	a, err := Open(context.Background(), bus, "demo-path", deviceprofile.VariantQA40xModern)
	require.NoError(t, err)

	settings := deviceprofile.Settings{InputFullScaleDBV: -20, OutputFullScaleDBV: -20, SampleRate: 44100}
	err = a.Reset(context.Background(), settings)
	require.Error(t, err)
	require.True(t, errors.Is(err, qaerr.ErrNoClock))
}
