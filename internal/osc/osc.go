// Package osc is the phase-accumulating oscillator that reads a wavetable.
package osc

import (
	"github.com/cbegin/wtsynth-go/internal/fixed"
	"github.com/cbegin/wtsynth-go/internal/wavetable"
)

// Osc is a 32-bit fixed-point phase accumulator. The high IndexBits of Phase
// select the table entry and the remaining bits are the interpolation
// fraction.
type Osc struct {
	Phase     uint32
	Increment uint32
}

// Next produces one interpolated sample and advances the phase. The loop
// wrap is applied before the table is read, so the index is always inside
// the loop window. ok is false once an unlooped sample has played to its end.
func (o *Osc) Next(s *wavetable.Sample) (v int16, ok bool) {
	if o.Phase >= s.LoopPhaseEnd {
		if !s.Looped {
			return 0, false
		}
		for o.Phase >= s.LoopPhaseEnd {
			o.Phase -= s.LoopPhaseLength
		}
	}
	index := o.Phase >> s.Shift()
	frac := (o.Phase << s.IndexBits) >> 16
	v = fixed.Lerp(s.Data[index], s.Data[index+1], frac)
	o.Phase += o.Increment
	return v, true
}

// Fill writes len(dst) samples and returns how many were produced before an
// unlooped sample ran out. Entries past that count are zeroed.
func (o *Osc) Fill(dst []int16, s *wavetable.Sample) int {
	for i := range dst {
		v, ok := o.Next(s)
		if !ok {
			clear(dst[i:])
			return i
		}
		dst[i] = v
	}
	return len(dst)
}

// IncrementFor returns the phase increment that plays s at freq Hz, capped at
// s.MaxIncrement.
func IncrementFor(freq float64, s *wavetable.Sample) uint32 {
	if s == nil {
		return 0
	}
	incr := fixed.SaturateUint32(fixed.MulShift(fixed.Q16(freq), s.PhasePerHertz, 48))
	return min(incr, s.MaxIncrement())
}
