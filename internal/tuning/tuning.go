// Package tuning converts between MIDI notes, frequencies and velocities.
package tuning

import (
	"math"

	"github.com/cbegin/wtsynth-go/internal/fixed"
)

// A0 is the frequency of MIDI note 21.
const A0 = 27.5

// NoteToFreq returns the equal-tempered frequency of a MIDI note.
func NoteToFreq(note int) float64 {
	return A0 * math.Pow(2, float64(note-21)/12)
}

// FreqToNote returns the nearest MIDI note for freq, or -1 if freq is not
// positive.
func FreqToNote(freq float64) int {
	if freq <= 0 || math.IsNaN(freq) || math.IsInf(freq, 0) {
		return -1
	}
	return int(math.Round(12*math.Log2(freq/A0))) + 21
}

// AmplitudeFromVelocity maps a MIDI velocity onto a squared curve and
// returns the result in Q15. Velocities are clamped to [0, 127].
func AmplitudeFromVelocity(velocity int) int32 {
	velocity = max(0, min(127, velocity))
	return int32(velocity*velocity) * fixed.Q15One / (127 * 127)
}
