package session

import (
	"context"
	"sync"

	"github.com/qa40x-go/streamdriver/pkg/deviceprofile"
	"github.com/qa40x-go/streamdriver/pkg/hostapi"
	"github.com/qa40x-go/streamdriver/pkg/usbtransport"
)

// autoEndpoint is a usbtransport.RawEndpoint double that completes every
// submitted transfer immediately with the full requested length, or
// observes ctx cancellation (Abort) first. It lets session-level tests
// drive a worker through Start/Stop without a real USB backend.
type autoEndpoint struct{}

func (autoEndpoint) Submit(ctx context.Context, buf []byte, write bool, done chan<- usbtransport.SubmitResult) {
	go func() {
		select {
		case done <- usbtransport.SubmitResult{Res: usbtransport.Result{Outcome: usbtransport.Completed, BytesTransferred: len(buf)}}:
		case <-ctx.Done():
			done <- usbtransport.SubmitResult{Res: usbtransport.Result{Outcome: usbtransport.Aborted}}
		}
	}()
}

// mockAdapter is a minimal device.Adapter double. Only Profile is
// exercised by the validation-only tests in this package; the
// Start/Stop smoke test exercises the rest via autoEndpoint.
type mockAdapter struct {
	profile deviceprofile.Profile
	write   usbtransport.RawEndpoint
	read    usbtransport.RawEndpoint
	reg     usbtransport.RawEndpoint
}

func (m *mockAdapter) Profile() deviceprofile.Profile             { return m.profile }
func (m *mockAdapter) WriteEndpoint() usbtransport.RawEndpoint    { return m.write }
func (m *mockAdapter) ReadEndpoint() usbtransport.RawEndpoint     { return m.read }
func (m *mockAdapter) RegisterEndpoint() usbtransport.RawEndpoint { return m.reg }

func (m *mockAdapter) WriteRegister(ctx context.Context, regNo byte, value uint32) error {
	return nil
}

func (m *mockAdapter) Reset(ctx context.Context, settings deviceprofile.Settings) error { return nil }

func (m *mockAdapter) Start(ctx context.Context) error { return nil }

func (m *mockAdapter) PingPacket() []byte { return []byte{7, 0, 0, 0, 3} }

// mockMessenger records every selector probed/notified and answers a
// fixed set of capabilities.
type mockMessenger struct {
	supportsTimeInfo    bool
	supportsOutputReady bool

	mu            sync.Mutex
	resetRequests int
}

func (m *mockMessenger) Message(selector hostapi.Selector) int64 {
	switch selector {
	case hostapi.SelectorSupportsTimeInfo:
		return boolToInt64(m.supportsTimeInfo)
	case hostapi.SelectorSupportsOutputReady:
		return boolToInt64(m.supportsOutputReady)
	case hostapi.SelectorResetRequest:
		m.mu.Lock()
		m.resetRequests++
		m.mu.Unlock()
	}
	return 0
}

func (m *mockMessenger) resetRequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resetRequests
}

func boolToInt64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
