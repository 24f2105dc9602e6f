package device

import (
	"context"
	"time"

	"github.com/qa40x-go/streamdriver/pkg/deviceprofile"
)

// QA40x-modern register numbers: full-scale input level, full-scale
// output level, sample rate, and the "go" register that starts
// streaming once the front end has settled.
const (
	qa40xRegInputLevel  = 1
	qa40xRegOutputLevel = 2
	qa40xRegSampleRate  = 3
	qa40xRegGo          = 8
	qa40xGoValue        = 1
)

// qa40xResetSettle is the 50 ms settle required after the modern
// variant's full-scale/sample-rate writes.
const qa40xResetSettle = 50 * time.Millisecond

type qa40xModern struct {
	baseAdapter
}

// Reset writes full-scale input level, full-scale output level, and
// sample rate to their named registers, then waits the documented
// 50 ms settle before the caller may call Start.
func (q *qa40xModern) Reset(ctx context.Context, settings deviceprofile.Settings) error {
	inCode, err := q.profile.InputLevelCode(settings.InputFullScaleDBV)
	if err != nil {
		return err
	}
	outCode, err := q.profile.OutputLevelCode(settings.OutputFullScaleDBV)
	if err != nil {
		return err
	}
	rateCode, err := sampleRateCode(q.profile, settings.SampleRate)
	if err != nil {
		return err
	}

	if err := q.WriteRegister(ctx, qa40xRegInputLevel, inCode); err != nil {
		return err
	}
	if err := q.WriteRegister(ctx, qa40xRegOutputLevel, outCode); err != nil {
		return err
	}
	if err := q.WriteRegister(ctx, qa40xRegSampleRate, rateCode); err != nil {
		return err
	}

	select {
	case <-time.After(qa40xResetSettle):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Start writes the "go" value to register 8.
func (q *qa40xModern) Start(ctx context.Context) error {
	return q.WriteRegister(ctx, qa40xRegGo, qa40xGoValue)
}

// PingPacket is unused on the modern variant; Profile().NeedsPing is
// false so the worker never calls it, but the method exists to satisfy
// Adapter.
func (q *qa40xModern) PingPacket() []byte { return nil }

func sampleRateCode(p deviceprofile.Profile, rate int) (uint32, error) {
	for i, r := range p.SampleRates {
		if r == rate {
			return uint32(i), nil
		}
	}
	return 0, errNoClockForRate
}
