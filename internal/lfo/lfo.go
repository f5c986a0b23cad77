package lfo

import (
	"fmt"
	"math"
	"strings"
)

// Waveform constants.
const (
	WaveSaw      = 0
	WaveSquare   = 1
	WaveTriangle = 2
	WaveRandom   = 3
)

// maxDepthSemitones bounds the modulation depth to one octave.
const maxDepthSemitones = 12

// LFO is a low-frequency pitch modulator running on a 32-bit phase
// accumulator. It is advanced once per rendered block rather than per sample.
type LFO struct {
	depth    int32  // swing as a Q16 fraction of the carrier increment
	step     uint32 // phase advance per audio sample
	waveform int    // 0=saw, 1=square, 2=triangle, 3=random
	phase    uint32
	seed     uint32 // xorshift state for the random waveform
	held     int32  // held random value, Q15
}

// Set configures the LFO. depth is in semitones and is converted to a linear
// fraction of the carrier increment.
func (l *LFO) Set(depth, rateHz float64, waveform int, sampleRate int) {
	depth = math.Max(-maxDepthSemitones, math.Min(maxDepthSemitones, depth))
	l.depth = int32(math.Round((math.Pow(2, math.Abs(depth)/12) - 1) * 65536))
	if depth < 0 {
		l.depth = -l.depth
	}
	l.step = 0
	if rateHz > 0 && sampleRate > 0 {
		l.step = uint32(math.Min(rateHz/float64(sampleRate), 0.5) * 4294967296)
	}
	if waveform < 0 || waveform > 3 {
		waveform = WaveTriangle
	}
	l.waveform = waveform
	if l.seed == 0 {
		l.seed = 0x9E3779B9
	}
}

// Advance returns the modulation for the current phase as a Q16 fraction in
// [-depth, +depth] and then moves the phase forward by samples. It returns 0
// if depth or rate is zero.
func (l *LFO) Advance(samples int) int32 {
	if !l.Active() {
		return 0
	}
	wave := l.wave()
	old := l.phase
	l.phase += l.step * uint32(samples)
	// Hold a new random value at each cycle boundary.
	if l.waveform == WaveRandom && l.phase < old {
		l.seed ^= l.seed << 13
		l.seed ^= l.seed >> 17
		l.seed ^= l.seed << 5
		l.held = int32(int16(l.seed >> 16))
	}
	return int32((int64(wave) * int64(l.depth)) >> 15)
}

// wave returns the waveform value at the current phase in Q15.
func (l *LFO) wave() int32 {
	p := int32(l.phase >> 16) // [0, 65536)
	switch l.waveform {
	case WaveSaw:
		return 32767 - p
	case WaveSquare:
		if p < 32768 {
			return 32767
		}
		return -32767
	case WaveRandom:
		return l.held
	default:
		if p < 32768 {
			return 2*p - 32768
		}
		return min(98304-2*p, 32767)
	}
}

// Apply scales a phase increment by a modulation value from Advance.
func Apply(incr uint32, mod int32) uint32 {
	v := int64(incr) + (int64(incr)*int64(mod))>>16
	if v < 0 {
		return 0
	}
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}

// Active returns true if the LFO has non-zero depth and rate.
func (l *LFO) Active() bool {
	return l.depth != 0 && l.step != 0
}

// Reset zeros the LFO phase.
func (l *LFO) Reset() {
	l.phase = 0
	l.held = 0
}

// CopyPhase takes over the running phase of src while keeping l's settings.
func (l *LFO) CopyPhase(src *LFO) {
	l.phase = src.phase
	l.seed = src.seed
	l.held = src.held
}

// ParseWaveform maps a waveform name onto its constant.
func ParseWaveform(name string) (int, error) {
	switch strings.ToLower(name) {
	case "saw":
		return WaveSaw, nil
	case "square":
		return WaveSquare, nil
	case "", "triangle":
		return WaveTriangle, nil
	case "random":
		return WaveRandom, nil
	}
	return 0, fmt.Errorf("lfo waveform %q: want saw, square, triangle or random", name)
}
