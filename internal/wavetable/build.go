package wavetable

import (
	"errors"
	"fmt"
	"time"

	"github.com/cbegin/wtsynth-go/internal/envelope"
	"github.com/cbegin/wtsynth-go/internal/fixed"
)

var ErrPitch = errors.New("wavetable: pitch metadata out of range")

// Spec describes a recording to be turned into a Sample.
type Spec struct {
	Name string
	PCM  []int16
	// The loop covers frames [LoopStart, LoopEnd). When LoopEnd is not past
	// LoopStart the recording plays once and stops.
	LoopStart int
	LoopEnd   int
	// RootFreq is the pitch of the recording in Hz.
	RootFreq     float64
	RecordedRate int
	OutputRate   int

	Delay   time.Duration
	Attack  time.Duration
	Hold    time.Duration
	Decay   time.Duration
	Release time.Duration
	// Sustain is the sustain level in [0, 1].
	Sustain float64
}

// Build precomputes the fixed-point metadata for spec and returns a validated
// Sample. The PCM is copied.
func Build(spec Spec) (*Sample, error) {
	if len(spec.PCM) == 0 {
		return nil, fmt.Errorf("%q: %w", spec.Name, ErrEmptyTable)
	}
	if !(spec.RootFreq > 0) || spec.RecordedRate <= 0 || spec.OutputRate <= 0 {
		return nil, fmt.Errorf("%q: %w: root %.3f Hz, rates %d/%d", spec.Name, ErrPitch, spec.RootFreq, spec.RecordedRate, spec.OutputRate)
	}

	looped := spec.LoopEnd > spec.LoopStart
	end := len(spec.PCM)
	if looped {
		if spec.LoopStart < 0 || spec.LoopEnd > len(spec.PCM) {
			return nil, fmt.Errorf("%q: %w: loop [%d, %d) outside %d frames", spec.Name, ErrLoopLength, spec.LoopStart, spec.LoopEnd, len(spec.PCM))
		}
		end = spec.LoopEnd
	}
	data := make([]int16, end+1)
	copy(data, spec.PCM[:end])
	if looped {
		// The guard repeats the loop start so the seam interpolates smoothly.
		data[end] = spec.PCM[spec.LoopStart]
	}

	// One bit more than the frames need keeps the end phase in the lower
	// half of the range, so any increment up to MaxIncrement stays clear of
	// uint32 overflow.
	bits := indexBits(end) + 1
	if bits > 31 {
		return nil, fmt.Errorf("%q: %w: %d frames", spec.Name, ErrIndexBits, len(spec.PCM))
	}
	shift := uint(32 - bits)
	s := &Sample{
		Name:         spec.Name,
		Data:         data,
		IndexBits:    uint8(bits),
		LoopPhaseEnd: uint32(end) << shift,
		Looped:       looped,
	}
	if looped {
		s.LoopPhaseLength = uint32(end-spec.LoopStart) << shift
	}

	perHertz := float64(uint64(1)<<shift) * float64(spec.RecordedRate) / (spec.RootFreq * float64(spec.OutputRate))
	q, ok := fixed.Q32(perHertz)
	if !ok {
		return nil, fmt.Errorf("%q: %w: %g phase units per Hz", spec.Name, ErrPitch, perHertz)
	}
	s.PhasePerHertz = q

	rate := spec.OutputRate
	s.Envelope = envelope.Params{
		DelayTicks:         envelope.TicksFor(spec.Delay, rate),
		AttackTicks:        envelope.TicksFor(spec.Attack, rate),
		HoldTicks:          envelope.TicksFor(spec.Hold, rate),
		DecayTicks:         envelope.TicksFor(spec.Decay, rate),
		ReleaseTicks:       envelope.TicksFor(spec.Release, rate),
		SustainAttenuation: fixed.Unity - fixed.GainFromFloat(spec.Sustain),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// indexBits returns the smallest bit count addressing n entries.
func indexBits(n int) int {
	b := 1
	for b < 63 && 1<<b < n {
		b++
	}
	return b
}
