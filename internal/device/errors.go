package device

import "github.com/qa40x-go/streamdriver/pkg/qaerr"

var errNoClockForRate = qaerr.NoClock("device.sampleRateCode", nil)
