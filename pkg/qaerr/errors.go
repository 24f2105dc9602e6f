// Package qaerr defines the error kinds the streaming engine and its
// façade surface to the host, following the kinds enumerated in the
// driver's error handling design.
package qaerr

import (
	"errors"
	"fmt"
)

// Kind classifies a driver error so the outer façade can translate it to
// the host API's error code without inspecting message text.
type Kind int

const (
	// KindUnknown is the zero value; never returned by the driver.
	KindUnknown Kind = iota

	// KindNotPresent covers no matching device, multiple matching
	// devices, or a required endpoint missing.
	KindNotPresent

	// KindInvalidParameter covers out-of-range channels, a buffer size
	// that isn't a multiple of the write granularity, or an invalid
	// configuration value.
	KindInvalidParameter

	// KindInvalidMode covers host API misuse, such as start before
	// createBuffers or createBuffers called twice.
	KindInvalidMode

	// KindNoClock covers a sample rate unsupported by the detected
	// device.
	KindNoClock

	// KindHwMalfunction covers a failed USB transfer, a partial
	// transfer, or an unexpected register response.
	KindHwMalfunction

	// KindAborted is internal: it surfaces from await() after abort()
	// and is expected during shutdown. It must never reach the host.
	KindAborted
)

func (k Kind) String() string {
	switch k {
	case KindNotPresent:
		return "not_present"
	case KindInvalidParameter:
		return "invalid_parameter"
	case KindInvalidMode:
		return "invalid_mode"
	case KindNoClock:
		return "no_clock"
	case KindHwMalfunction:
		return "hw_malfunction"
	case KindAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned across the engine's public
// boundaries. Op names the failing operation for logs; Err, when set, is
// the underlying cause and is reachable through errors.Unwrap.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, qaerr.ErrHwMalfunction) style checks to work
// via the sentinel kind errors below.
func (e *Error) Is(target error) bool {
	var k *kindSentinel
	if errors.As(target, &k) {
		return e.Kind == k.kind
	}
	return false
}

type kindSentinel struct{ kind Kind }

func (k *kindSentinel) Error() string { return k.kind.String() }

// Sentinels usable with errors.Is against any *Error of the matching kind.
var (
	ErrNotPresent       error = &kindSentinel{KindNotPresent}
	ErrInvalidParameter error = &kindSentinel{KindInvalidParameter}
	ErrInvalidMode      error = &kindSentinel{KindInvalidMode}
	ErrNoClock          error = &kindSentinel{KindNoClock}
	ErrHwMalfunction    error = &kindSentinel{KindHwMalfunction}
	ErrAborted          error = &kindSentinel{KindAborted}
)

// New builds an *Error for kind k arising from operation op, optionally
// wrapping cause.
func New(k Kind, op string, cause error) *Error {
	return &Error{Kind: k, Op: op, Err: cause}
}

// NotPresent, InvalidParameter, InvalidMode, NoClock, HwMalfunction and
// Aborted are convenience constructors mirroring New for the fixed kind.
func NotPresent(op string, cause error) *Error       { return New(KindNotPresent, op, cause) }
func InvalidParameter(op string, cause error) *Error { return New(KindInvalidParameter, op, cause) }
func InvalidMode(op string, cause error) *Error      { return New(KindInvalidMode, op, cause) }
func NoClock(op string, cause error) *Error          { return New(KindNoClock, op, cause) }
func HwMalfunction(op string, cause error) *Error    { return New(KindHwMalfunction, op, cause) }
func Aborted(op string) *Error                       { return New(KindAborted, op, nil) }
