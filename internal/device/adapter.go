// Package device implements the per-model adapters that expose the
// fixed contract the streaming worker drives: reset, start, the three
// bulk endpoints, and the model constants in deviceprofile.Profile.
//
// Grounded on the enumeration/open sequence in
// ijakenorton-Roundtable/internal/device/rtaudioapi.go (device lookup,
// slog-scoped errors) and the endpoint/register plumbing style of
// ardnew-softusb/host/device.go and host/transfer.go.
package device

import (
	"context"
	"encoding/binary"
	"log/slog"

	"github.com/google/uuid"

	"github.com/qa40x-go/streamdriver/pkg/deviceprofile"
	"github.com/qa40x-go/streamdriver/pkg/qaerr"
	"github.com/qa40x-go/streamdriver/pkg/usbtransport"
)

// Endpoint numbers are device-specific constants. Actual pipe IDs live
// with the platform USB backend that implements usbtransport.RawEndpoint;
// these are just the logical roles.
const (
	regWriteLen = 5
)

// Locator resolves the single USB device path this driver should open.
// It is deliberately narrow: enumeration, hotplug and vendor setup-app
// detection live in the façade, not the core. Locate must fail with
// qaerr.KindNotPresent both when no matching device exists and when
// more than one does.
type Locator interface {
	Locate(ctx context.Context) (devicePath string, variant deviceprofile.Variant, err error)
}

// Bus is the narrow USB collaborator an Adapter opens: given a device
// path, it returns the three bulk endpoints the driver requires, or
// reports which one is missing.
type Bus interface {
	OpenRegisterEndpoint(ctx context.Context, devicePath string) (usbtransport.RawEndpoint, error)
	OpenWriteEndpoint(ctx context.Context, devicePath string) (usbtransport.RawEndpoint, error)
	OpenReadEndpoint(ctx context.Context, devicePath string) (usbtransport.RawEndpoint, error)
}

// Adapter is the per-model object the streaming worker and prepared
// session depend on. The two concrete variants (qa401 and qa40xModern)
// are unexported; callers obtain one through Open.
type Adapter interface {
	Profile() deviceprofile.Profile

	WriteEndpoint() usbtransport.RawEndpoint
	ReadEndpoint() usbtransport.RawEndpoint
	RegisterEndpoint() usbtransport.RawEndpoint

	// WriteRegister performs a synchronous 5-byte OUT transfer on the
	// register endpoint: [regNo, b24, b16, b8, b0] big-endian.
	WriteRegister(ctx context.Context, regNo byte, value uint32) error

	// Reset runs the model-specific register-write sequence that brings
	// the hardware to the given settings. Callers must invoke it under
	// elevated thread priority — its internal timing matters.
	Reset(ctx context.Context, settings deviceprofile.Settings) error

	// Start is the modern-variant "go" write; a no-op on QA401.
	Start(ctx context.Context) error

	// PingPacket returns the 5-byte register-7<-3 keep-alive packet this
	// variant's front-panel link LED needs (QA401 only). Callers pipeline
	// it themselves via a usbtransport.Slot bound to the register
	// endpoint, starting it on iteration N and awaiting on N+1: the
	// contract is non-blocking, with completion awaited at the top of
	// the next iteration.
	PingPacket() []byte
}

// registerPacket builds the fixed 5-byte register write encoding.
func registerPacket(regNo byte, value uint32) []byte {
	buf := make([]byte, regWriteLen)
	buf[0] = regNo
	binary.BigEndian.PutUint32(buf[1:], value)
	return buf
}

type baseAdapter struct {
	logger   *slog.Logger
	profile  deviceprofile.Profile
	register usbtransport.RawEndpoint
	write    usbtransport.RawEndpoint
	read     usbtransport.RawEndpoint
	regSlot  *usbtransport.Slot
}

func (b *baseAdapter) Profile() deviceprofile.Profile               { return b.profile }
func (b *baseAdapter) WriteEndpoint() usbtransport.RawEndpoint      { return b.write }
func (b *baseAdapter) ReadEndpoint() usbtransport.RawEndpoint       { return b.read }
func (b *baseAdapter) RegisterEndpoint() usbtransport.RawEndpoint   { return b.register }

func (b *baseAdapter) WriteRegister(ctx context.Context, regNo byte, value uint32) error {
	pkt := registerPacket(regNo, value)
	if err := b.regSlot.Start(ctx, pkt); err != nil {
		return err
	}
	_, err := b.regSlot.Await(len(pkt))
	if err != nil {
		b.logger.Error("register write failed", "reg", regNo, "err", err)
	}
	return err
}

// Open uses devicePath as given (resolving it through a Locator is the
// caller's job), opens the three required endpoints through bus, and
// returns the matching Adapter. It fails with qaerr.KindNotPresent
// if any required endpoint is missing — for QA401 that condition means
// the user must run the vendor setup application first.
func Open(ctx context.Context, bus Bus, devicePath string, variant deviceprofile.Variant) (Adapter, error) {
	id := uuid.New()
	logger := slog.Default().With("component", "device.Adapter", "device", id, "variant", variant.String())

	reg, err := bus.OpenRegisterEndpoint(ctx, devicePath)
	if err != nil {
		return nil, qaerr.NotPresent("device.Open", err)
	}
	wr, err := bus.OpenWriteEndpoint(ctx, devicePath)
	if err != nil {
		return nil, qaerr.NotPresent("device.Open", err)
	}
	rd, err := bus.OpenReadEndpoint(ctx, devicePath)
	if err != nil {
		return nil, qaerr.NotPresent("device.Open", err)
	}

	base := baseAdapter{
		logger:   logger,
		profile:  deviceprofile.ForVariant(variant),
		register: reg,
		write:    wr,
		read:     rd,
		regSlot:  usbtransport.NewSlot(reg, true),
	}

	switch variant {
	case deviceprofile.VariantQA401:
		return &qa401{baseAdapter: base}, nil
	case deviceprofile.VariantQA40xModern:
		return &qa40xModern{baseAdapter: base}, nil
	default:
		return nil, qaerr.NotPresent("device.Open", nil)
	}
}
