// Package wavetable holds the resident waveform data read by the oscillator:
// sample tables with their loop and envelope metadata, and instruments that
// map note ranges onto samples.
//
// Values in this package are immutable once built and may be shared by any
// number of voices without synchronization.
package wavetable

import (
	"errors"
	"fmt"
	"math"

	"github.com/cbegin/wtsynth-go/internal/envelope"
)

// maxEndPhase keeps at least half the phase range above LoopPhaseEnd.
const maxEndPhase = 1 << 31

var (
	ErrEmptyTable    = errors.New("wavetable: sample table has fewer than two entries")
	ErrIndexBits     = errors.New("wavetable: index bits out of range")
	ErrNoGuardSample = errors.New("wavetable: table lacks a guard sample past the loop end")
	ErrLoopLength    = errors.New("wavetable: looped sample has an invalid loop length")
	ErrNoHeadroom    = errors.New("wavetable: end phase leaves no headroom below the phase wrap")
)

// Sample is one recorded waveform plus everything the synthesis path needs to
// play it.
type Sample struct {
	Name string
	// Data holds the amplitudes, including one guard entry past the last
	// playable index so interpolation never reads out of bounds.
	Data []int16
	// IndexBits is the number of high phase bits used as the table index.
	IndexBits uint8
	// LoopPhaseEnd is the phase at which a looped sample wraps back, or at
	// which an unlooped sample ends.
	LoopPhaseEnd uint32
	// LoopPhaseLength is subtracted from the phase on wrap.
	LoopPhaseLength uint32
	Looped          bool
	// PhasePerHertz converts a frequency to a per-sample phase increment,
	// in 32.32 fixed point.
	PhasePerHertz uint64
	Envelope      envelope.Params
}

// Shift is the number of fractional phase bits below the table index.
func (s *Sample) Shift() uint {
	return 32 - uint(s.IndexBits)
}

// MaxIncrement is the largest phase increment that cannot carry a phase below
// LoopPhaseEnd past 2^32.
func (s *Sample) MaxIncrement() uint32 {
	if s.LoopPhaseEnd == 0 {
		return math.MaxUint32
	}
	return uint32(1<<32 - uint64(s.LoopPhaseEnd))
}

// Validate checks that every phase the oscillator can produce for s indexes
// inside Data.
func (s *Sample) Validate() error {
	if len(s.Data) < 2 {
		return fmt.Errorf("%q: %w", s.Name, ErrEmptyTable)
	}
	if s.IndexBits == 0 || s.IndexBits > 31 {
		return fmt.Errorf("%q: %w: %d", s.Name, ErrIndexBits, s.IndexBits)
	}
	if s.LoopPhaseEnd == 0 {
		return fmt.Errorf("%q: %w: zero end phase", s.Name, ErrLoopLength)
	}
	last := uint64(s.LoopPhaseEnd-1) >> s.Shift()
	if last+1 >= uint64(len(s.Data)) {
		return fmt.Errorf("%q: %w: last index %d, table length %d", s.Name, ErrNoGuardSample, last, len(s.Data))
	}
	if s.LoopPhaseEnd > maxEndPhase {
		return fmt.Errorf("%q: %w: end phase %#x", s.Name, ErrNoHeadroom, s.LoopPhaseEnd)
	}
	if s.Looped && (s.LoopPhaseLength == 0 || s.LoopPhaseLength > s.LoopPhaseEnd) {
		return fmt.Errorf("%q: %w", s.Name, ErrLoopLength)
	}
	return nil
}
