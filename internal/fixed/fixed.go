// Package fixed holds the integer arithmetic used on the synthesis path.
//
// Envelope gains are Q31 values in [0, Unity]. Interpolation fractions are
// 16-bit. Nothing in this package allocates or touches floating point except
// the conversion helpers, which are meant for the control path.
package fixed

import (
	"math"
	"math/bits"
)

// Unity is full-scale envelope gain.
const Unity int32 = math.MaxInt32

// Q15One is 1.0 in Q15, rounded down to fit an int16 range multiplier.
const Q15One int32 = 1<<15 - 1

// ClampGain limits g to [0, Unity].
func ClampGain(g int64) int32 {
	if g < 0 {
		return 0
	}
	if g > int64(Unity) {
		return Unity
	}
	return int32(g)
}

// ScaleSample multiplies s by a Q31 gain. The gain is narrowed to 16
// fractional bits first so the product fits a 32-bit intermediate.
func ScaleSample(s int16, gain int32) int16 {
	if gain <= 0 {
		return 0
	}
	g := gain >> 15
	return int16((int32(s) * g) >> 16)
}

// MulQ15 multiplies a by a Q15 factor.
func MulQ15(a, q15 int32) int32 {
	return int32((int64(a) * int64(q15)) >> 15)
}

// Lerp interpolates between a and b by frac/65536, rounding to nearest.
func Lerp(a, b int16, frac uint32) int16 {
	frac &= 0xFFFF
	v := int64(a)*int64(0x10000-frac) + int64(b)*int64(frac)
	return int16((v + 0x8000) >> 16)
}

// SaturateInt16 clamps v to the int16 range.
func SaturateInt16(v int32) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// MulShift returns (a*b)>>shift computed with a 128-bit intermediate. The
// result saturates at math.MaxUint64.
func MulShift(a, b uint64, shift uint) uint64 {
	hi, lo := bits.Mul64(a, b)
	if shift >= 64 {
		return hi >> (shift - 64)
	}
	if hi>>shift != 0 {
		return math.MaxUint64
	}
	if shift == 0 {
		return lo
	}
	return hi<<(64-shift) | lo>>shift
}

// SaturateUint32 clamps v to the uint32 range.
func SaturateUint32(v uint64) uint32 {
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}

// Q16 converts a non-negative float to 16.16 fixed point. Negative and NaN
// inputs map to zero.
func Q16(f float64) uint64 {
	if !(f > 0) {
		return 0
	}
	v := f*65536 + 0.5
	if v >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(v)
}

// Q32 converts a non-negative float to 32.32 fixed point. ok is false when
// the value does not fit.
func Q32(f float64) (v uint64, ok bool) {
	if !(f >= 0) {
		return 0, false
	}
	scaled := f*4294967296 + 0.5
	if scaled >= math.MaxUint64 {
		return 0, false
	}
	return uint64(scaled), true
}

// GainFromFloat converts a level in [0, 1] to a Q31 gain.
func GainFromFloat(f float64) int32 {
	if !(f > 0) {
		return 0
	}
	if f >= 1 {
		return Unity
	}
	return int32(f * float64(Unity))
}

// Q15FromFloat converts a factor in [0, 1] to Q15.
func Q15FromFloat(f float64) int32 {
	if !(f > 0) {
		return 0
	}
	if f >= 1 {
		return Q15One
	}
	return int32(f*float64(Q15One) + 0.5)
}
