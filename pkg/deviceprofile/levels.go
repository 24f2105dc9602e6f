package deviceprofile

import "github.com/qa40x-go/streamdriver/pkg/qaerr"

// levelCode pairs a user-visible dBV full-scale value with its
// register-level enumerated code.
type levelCode struct {
	dbv  float64
	code uint32
}

// qa401InputLevels and qa401OutputLevels are the enumerated dBV steps
// the QA401's register-5 attenuator bit and DAC full-scale can encode.
var qa401InputLevels = []levelCode{
	{-40, 0}, {-30, 1}, {-20, 2}, {-10, 3}, {0, 4}, {10, 5}, {20, 6},
}

var qa401OutputLevels = []levelCode{
	{-20, 0}, {-10, 1}, {0, 2}, {10, 3}, {20, 4},
}

// qa40xModernInputLevels and qa40xModernOutputLevels are the wider
// 5 dBV-step tables the modern variant's named full-scale registers
// accept directly (no shared attenuator bit).
var qa40xModernInputLevels = buildRange(-20, 20, 5)
var qa40xModernOutputLevels = buildRange(-20, 20, 5)

func buildRange(lo, hi int, step int) []levelCode {
	var out []levelCode
	code := uint32(0)
	for v := lo; v <= hi; v += step {
		out = append(out, levelCode{dbv: float64(v), code: code})
		code++
	}
	return out
}

// InputLevelCode maps a user-requested input full-scale dBV value to its
// register code for this profile's variant. It fails InvalidParameter
// before any device I/O if dbv isn't one of the enumerated values.
func (p Profile) InputLevelCode(dbv float64) (uint32, error) {
	return lookup(p.levelsFor(true), dbv)
}

// OutputLevelCode maps a user-requested output full-scale dBV value to
// its register code for this profile's variant.
func (p Profile) OutputLevelCode(dbv float64) (uint32, error) {
	return lookup(p.levelsFor(false), dbv)
}

func (p Profile) levelsFor(input bool) []levelCode {
	switch p.Variant {
	case VariantQA401:
		if input {
			return qa401InputLevels
		}
		return qa401OutputLevels
	default:
		if input {
			return qa40xModernInputLevels
		}
		return qa40xModernOutputLevels
	}
}

func lookup(table []levelCode, dbv float64) (uint32, error) {
	for _, lc := range table {
		if lc.dbv == dbv {
			return lc.code, nil
		}
	}
	return 0, qaerr.InvalidParameter("deviceprofile.levelLookup", nil)
}
