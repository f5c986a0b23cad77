// Package envelope implements the delay/attack/hold/decay/sustain/release
// amplitude envelope.
//
// The envelope is advanced in ticks of TickSamples samples. Within a tick the
// gain moves linearly by Step per sample; stage changes only happen on tick
// boundaries. Advance and Release are pure functions of the state so the
// machine can be exercised without rendering audio.
package envelope

import (
	"math"
	"time"

	"github.com/cbegin/wtsynth-go/internal/fixed"
)

// TickSamples is the number of audio samples covered by one envelope tick.
const TickSamples = 8

// DefaultSilenceThreshold is the gain below which a decay is considered to
// have reached silence, letting the sustain stage be skipped.
const DefaultSilenceThreshold = fixed.Unity / 10000

// releaseEpsilon pushes the release ramp slightly past zero so truncation in
// the step division cannot leave a residual gain.
const releaseEpsilon = 4

// Stage is an envelope state.
type Stage uint8

const (
	Idle Stage = iota
	Delay
	Attack
	Hold
	Decay
	Sustain
	Release
)

func (s Stage) String() string {
	switch s {
	case Idle:
		return "idle"
	case Delay:
		return "delay"
	case Attack:
		return "attack"
	case Hold:
		return "hold"
	case Decay:
		return "decay"
	case Sustain:
		return "sustain"
	case Release:
		return "release"
	}
	return "unknown"
}

// Params are the per-sample stage lengths, in ticks, and levels.
type Params struct {
	DelayTicks   int32
	AttackTicks  int32
	HoldTicks    int32
	DecayTicks   int32
	ReleaseTicks int32
	// SustainAttenuation is the gain removed during decay. The sustain level
	// is Unity minus this value.
	SustainAttenuation int32
	// SilenceThreshold overrides DefaultSilenceThreshold when non-zero.
	SilenceThreshold int32
}

// SustainLevel returns the gain held during the sustain stage.
func (p Params) SustainLevel() int32 {
	return fixed.ClampGain(int64(fixed.Unity) - int64(p.SustainAttenuation))
}

func (p Params) silence() int32 {
	if p.SilenceThreshold > 0 {
		return p.SilenceThreshold
	}
	return DefaultSilenceThreshold
}

// TicksFor converts a duration to a tick count at the given sample rate,
// rounding to the nearest tick.
func TicksFor(d time.Duration, sampleRate int) int32 {
	if d <= 0 || sampleRate <= 0 {
		return 0
	}
	ticks := d.Seconds()*float64(sampleRate)/TickSamples + 0.5
	if ticks >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(ticks)
}

// State is the running envelope.
type State struct {
	Stage Stage
	// Ticks counts down the ticks left in the current stage.
	Ticks int32
	Gain  int32
	// Step is added to Gain once per sample.
	Step int32
}

// Trigger returns the state for a freshly started note.
func Trigger(p Params) State {
	return State{Stage: Delay, Ticks: p.DelayTicks}
}

func stepFor(delta int64, ticks int32) int32 {
	if ticks <= 0 {
		return 0
	}
	return int32(delta / (int64(ticks) * TickSamples))
}

// Advance performs the transition out of a finished stage. It is meant to be
// called when st.Ticks has reached zero; a stage of zero ticks yields a
// state whose Ticks is still zero and must be advanced again.
func Advance(st State, p Params) State {
	switch st.Stage {
	case Delay:
		st.Stage = Attack
		st.Ticks = p.AttackTicks
		st.Step = stepFor(int64(fixed.Unity)-int64(st.Gain), p.AttackTicks)
	case Attack:
		st.Gain = fixed.Unity
		st.Stage = Hold
		st.Ticks = p.HoldTicks
		st.Step = 0
	case Hold:
		st.Stage = Decay
		st.Ticks = p.DecayTicks
		st.Step = stepFor(-int64(p.SustainAttenuation), p.DecayTicks)
	case Decay:
		st.Gain = p.SustainLevel()
		st.Step = 0
		if st.Gain < p.silence() {
			st.Stage = Release
			st.Ticks = 0
		} else {
			st.Stage = Sustain
			st.Ticks = math.MaxInt32
		}
	case Sustain:
		st.Ticks = math.MaxInt32
	case Release:
		st = State{Stage: Idle}
	}
	return st
}

// settle advances through every stage that has no ticks left.
func settle(st State, p Params) State {
	for st.Ticks <= 0 && st.Stage != Idle {
		st = Advance(st, p)
	}
	return st
}

// StartRelease starts the release ramp from the current gain, whatever stage the
// envelope is in. An idle envelope stays idle.
func StartRelease(st State, p Params) State {
	if st.Stage == Idle {
		return st
	}
	st.Stage = Release
	st.Ticks = p.ReleaseTicks
	st.Step = stepFor(-(int64(st.Gain) + releaseEpsilon), p.ReleaseTicks)
	return st
}

// Apply multiplies samples in place by the envelope, scaled by amp (Q15),
// and returns the advanced state. If the envelope reaches Idle, the rest of
// samples is zeroed.
func Apply(st State, p Params, amp int32, samples []int16) State {
	st = settle(st, p)
	for i := 0; i < len(samples); {
		if st.Stage == Idle {
			clear(samples[i:])
			return st
		}
		end := min(i+TickSamples, len(samples))
		for ; i < end; i++ {
			st.Gain = fixed.ClampGain(int64(st.Gain) + int64(st.Step))
			samples[i] = fixed.ScaleSample(samples[i], fixed.MulQ15(st.Gain, amp))
		}
		st.Ticks--
		if st.Ticks <= 0 {
			st = settle(st, p)
		}
	}
	return st
}
