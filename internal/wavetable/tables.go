package wavetable

import (
	"encoding/hex"
	"fmt"
	"math"
	"strings"
)

// Shape names a procedural single-cycle waveform.
type Shape string

const (
	ShapeSine     Shape = "sine"
	ShapeSaw      Shape = "saw"
	ShapeSquare   Shape = "square"
	ShapeTriangle Shape = "triangle"
)

// cycleAmplitude leaves headroom below full scale.
const cycleAmplitude = 30000

// Cycle renders one period of shape over n entries.
func Cycle(shape Shape, n int) ([]int16, error) {
	if n < 2 {
		return nil, fmt.Errorf("cycle of %d entries: %w", n, ErrEmptyTable)
	}
	out := make([]int16, n)
	for i := range out {
		p := float64(i) / float64(n)
		var v float64
		switch shape {
		case ShapeSine:
			v = math.Sin(2 * math.Pi * p)
		case ShapeSaw:
			v = 1 - 2*p
		case ShapeSquare:
			if p < 0.5 {
				v = 1
			} else {
				v = -1
			}
		case ShapeTriangle:
			if p < 0.5 {
				v = 4*p - 1
			} else {
				v = 3 - 4*p
			}
		default:
			return nil, fmt.Errorf("unknown waveform %q", shape)
		}
		out[i] = int16(math.Round(v * cycleAmplitude))
	}
	return out, nil
}

// CycleSpec returns a Spec that loops pcm as a single waveform period, so
// that RootFreq is the frequency at which each output sample advances one
// table entry.
func CycleSpec(name string, pcm []int16, outputRate int) Spec {
	return Spec{
		Name:         name,
		PCM:          pcm,
		LoopStart:    0,
		LoopEnd:      len(pcm),
		RootFreq:     float64(outputRate) / float64(len(pcm)),
		RecordedRate: outputRate,
		OutputRate:   outputRate,
		Sustain:      1,
	}
}

// ParseHex converts pairs of hex digits, each a signed 8-bit value, into
// 16-bit samples. Whitespace is ignored.
func ParseHex(h string) ([]int16, error) {
	h = strings.Join(strings.Fields(h), "")
	data, err := hex.DecodeString(h)
	if err != nil {
		return nil, fmt.Errorf("parse hex waveform: %w", err)
	}
	out := make([]int16, len(data))
	for i, b := range data {
		out[i] = int16(int8(b)) << 8
	}
	return out, nil
}
