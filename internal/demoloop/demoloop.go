// Package demoloop provides an in-process loopback device.Bus so
// qadriver's stream-to-wav command can exercise the full worker/session
// pipeline without a physical QA401/QA402/QA403 attached. Every
// transfer completes immediately: writes are accepted and discarded,
// reads are filled with random bytes in 0..2 so the captured WAV isn't
// pure silence.
//
// Grounded on the auto-completing endpoint double in
// internal/session/mock_test.go, generalized from a test fixture into a
// runnable stand-in bus.
package demoloop

import (
	"context"
	"math/rand"

	"github.com/qa40x-go/streamdriver/internal/device"
	"github.com/qa40x-go/streamdriver/pkg/deviceprofile"
	"github.com/qa40x-go/streamdriver/pkg/usbtransport"
)

type endpoint struct {
	fillRead bool
}

func (e *endpoint) Submit(ctx context.Context, buf []byte, write bool, done chan<- usbtransport.SubmitResult) {
	go func() {
		if !write && e.fillRead {
			for i := range buf {
				buf[i] = byte(rand.Intn(3))
			}
		}
		select {
		case done <- usbtransport.SubmitResult{Res: usbtransport.Result{Outcome: usbtransport.Completed, BytesTransferred: len(buf)}}:
		case <-ctx.Done():
		}
	}()
}

// Bus is a device.Bus backed entirely by in-process goroutines.
type Bus struct{}

var _ device.Bus = Bus{}

func (Bus) OpenRegisterEndpoint(ctx context.Context, devicePath string) (usbtransport.RawEndpoint, error) {
	return &endpoint{}, nil
}

func (Bus) OpenWriteEndpoint(ctx context.Context, devicePath string) (usbtransport.RawEndpoint, error) {
	return &endpoint{}, nil
}

func (Bus) OpenReadEndpoint(ctx context.Context, devicePath string) (usbtransport.RawEndpoint, error) {
	return &endpoint{fillRead: true}, nil
}

// Open is a convenience wrapper around device.Open using Bus and a
// fixed placeholder device path, for callers that have no real
// device.Locator.
func Open(ctx context.Context, variant deviceprofile.Variant) (device.Adapter, error) {
	return device.Open(ctx, Bus{}, "demoloop", variant)
}
