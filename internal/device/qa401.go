package device

import (
	"context"
	"time"

	"github.com/qa40x-go/streamdriver/pkg/deviceprofile"
)

// QA401 register numbers. Register 5 packs the input HPF bit, the
// attenuator bit and the sample-rate bit into a single word; registers 4
// and 6 bring up the analog front end; register 7 is the keep-alive
// ping that holds the front-panel link LED lit.
const (
	qa401RegControl  = 4
	qa401RegAnalog   = 5
	qa401RegAnalog2  = 6
	qa401RegPing     = 7
	qa401PingValue   = 3
)

type qa401 struct {
	baseAdapter
}

// Reset runs the documented QA401 magic sequence: register 5 encodes
// HPF/attenuator/sample-rate bits, then registers 4 and 6 bring up the
// front end.
func (q *qa401) Reset(ctx context.Context, settings deviceprofile.Settings) error {
	attenCode, err := q.profile.OutputLevelCode(settings.OutputFullScaleDBV)
	if err != nil {
		return err
	}
	inAttenCode, err := q.profile.InputLevelCode(settings.InputFullScaleDBV)
	if err != nil {
		return err
	}

	reg5 := analogWord(settings.HPF, attenCode, inAttenCode, sampleRateBit(settings.SampleRate))
	if err := q.WriteRegister(ctx, qa401RegAnalog, reg5); err != nil {
		return err
	}
	if err := q.WriteRegister(ctx, qa401RegControl, 1); err != nil {
		return err
	}
	if err := q.WriteRegister(ctx, qa401RegAnalog2, 1); err != nil {
		return err
	}
	time.Sleep(qa401ResetSettle)
	return nil
}

// Start is a no-op for QA401: the register-5 sequence alone brings up
// streaming once enough data has been queued.
func (q *qa401) Start(ctx context.Context) error { return nil }

// PingPacket is register 7 <- 3.
func (q *qa401) PingPacket() []byte { return registerPacket(qa401RegPing, qa401PingValue) }

func analogWord(hpf bool, outAtten, inAtten uint32, rateBit uint32) uint32 {
	var w uint32
	if hpf {
		w |= 1 << 0
	}
	w |= (outAtten & 0x7) << 1
	w |= (inAtten & 0x7) << 4
	w |= (rateBit & 0x1) << 7
	return w
}

// sampleRateBit encodes the QA401's two offered rates into register 5's
// single rate bit: 0 for 48 kHz, 1 for 192 kHz.
func sampleRateBit(rate int) uint32 {
	if rate == 192000 {
		return 1
	}
	return 0
}

// qa401ResetSettle is the minimum time the analog front end needs after
// the register-5 write before streaming reliably locks.
const qa401ResetSettle = 10 * time.Millisecond
