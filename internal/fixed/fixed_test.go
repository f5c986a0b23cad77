package fixed

import (
	"math"
	"testing"
)

func TestLerpHalfway(t *testing.T) {
	got := Lerp(0, 1000, 0x8000)
	if got < 499 || got > 501 {
		t.Fatalf("Lerp(0, 1000, half) = %d, want 500±1", got)
	}
}

func TestLerpEndpoints(t *testing.T) {
	for _, tc := range []struct {
		a, b int16
		frac uint32
		want int16
	}{
		{-32768, 32767, 0, -32768},
		{100, -100, 0, 100},
		{0, 0, 0xFFFF, 0},
		{1000, 1000, 0x1234, 1000},
	} {
		if got := Lerp(tc.a, tc.b, tc.frac); got != tc.want {
			t.Errorf("Lerp(%d, %d, %#x) = %d, want %d", tc.a, tc.b, tc.frac, got, tc.want)
		}
	}
	// Full-range extremes must stay inside the endpoints.
	got := Lerp(-32768, 32767, 0xFFFF)
	if got < 32766 {
		t.Errorf("Lerp near b = %d, want ~32767", got)
	}
}

func TestScaleSample(t *testing.T) {
	if got := ScaleSample(32767, Unity); got < 32766 {
		t.Errorf("unity scale = %d, want ~32767", got)
	}
	if got := ScaleSample(-32768, Unity); got > -32767 {
		t.Errorf("unity scale of min = %d", got)
	}
	if got := ScaleSample(20000, Unity/2); got < 9998 || got > 10001 {
		t.Errorf("half scale = %d, want ~10000", got)
	}
	if got := ScaleSample(20000, -5); got != 0 {
		t.Errorf("negative gain should silence, got %d", got)
	}
}

func TestClampGain(t *testing.T) {
	if ClampGain(-1) != 0 {
		t.Error("negative gain not clamped to zero")
	}
	if ClampGain(int64(Unity)+10) != Unity {
		t.Error("gain above unity not clamped")
	}
	if ClampGain(12345) != 12345 {
		t.Error("in-range gain changed")
	}
}

func TestMulShift(t *testing.T) {
	if got := MulShift(3, 5, 0); got != 15 {
		t.Errorf("MulShift(3,5,0) = %d", got)
	}
	if got := MulShift(1<<40, 1<<40, 48); got != 1<<32 {
		t.Errorf("MulShift wide = %d, want %d", got, uint64(1)<<32)
	}
	if got := MulShift(math.MaxUint64, math.MaxUint64, 8); got != math.MaxUint64 {
		t.Errorf("MulShift should saturate, got %d", got)
	}
	if got := MulShift(1<<63, 4, 64); got != 2 {
		t.Errorf("MulShift(2^63, 4, 64) = %d, want 2", got)
	}
}

func TestConversions(t *testing.T) {
	if Q16(1.5) != 0x18000 {
		t.Errorf("Q16(1.5) = %#x", Q16(1.5))
	}
	if Q16(-3) != 0 || Q16(math.NaN()) != 0 {
		t.Error("Q16 should map negative and NaN to zero")
	}
	if v, ok := Q32(0.25); !ok || v != 1<<30 {
		t.Errorf("Q32(0.25) = %d, %v", v, ok)
	}
	if _, ok := Q32(1e30); ok {
		t.Error("Q32 should reject values that overflow")
	}
	if GainFromFloat(2) != Unity || GainFromFloat(-1) != 0 {
		t.Error("GainFromFloat should clamp")
	}
	if Q15FromFloat(1) != Q15One {
		t.Error("Q15FromFloat(1) should be Q15One")
	}
	if SaturateInt16(40000) != math.MaxInt16 || SaturateInt16(-40000) != math.MinInt16 {
		t.Error("SaturateInt16 should clamp")
	}
	if SaturateUint32(1<<40) != math.MaxUint32 {
		t.Error("SaturateUint32 should clamp")
	}
}
