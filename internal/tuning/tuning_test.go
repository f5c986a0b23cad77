package tuning

import (
	"math"
	"testing"

	"github.com/cbegin/wtsynth-go/internal/fixed"
)

func TestNoteToFreq(t *testing.T) {
	for _, tc := range []struct {
		note int
		want float64
	}{
		{21, 27.5},
		{69, 440},
		{81, 880},
		{60, 261.6256},
	} {
		if got := NoteToFreq(tc.note); math.Abs(got-tc.want) > 0.001 {
			t.Errorf("NoteToFreq(%d) = %f, want %f", tc.note, got, tc.want)
		}
	}
}

func TestFreqToNoteRoundTrips(t *testing.T) {
	for n := 0; n < 128; n++ {
		if got := FreqToNote(NoteToFreq(n)); got != n {
			t.Fatalf("FreqToNote(NoteToFreq(%d)) = %d", n, got)
		}
	}
	if FreqToNote(445) != 69 {
		t.Error("445 Hz should round to A4")
	}
	if FreqToNote(0) != -1 || FreqToNote(math.Inf(1)) != -1 {
		t.Error("invalid frequencies should map to -1")
	}
}

func TestAmplitudeFromVelocity(t *testing.T) {
	if got := AmplitudeFromVelocity(127); got != fixed.Q15One {
		t.Errorf("full velocity = %d, want %d", got, fixed.Q15One)
	}
	if got := AmplitudeFromVelocity(0); got != 0 {
		t.Errorf("zero velocity = %d", got)
	}
	if got := AmplitudeFromVelocity(200); got != fixed.Q15One {
		t.Errorf("velocity above range = %d, want clamp", got)
	}
	half := AmplitudeFromVelocity(64)
	if half < fixed.Q15One/4-200 || half > fixed.Q15One/4+200 {
		t.Errorf("half velocity = %d, want about a quarter of full scale", half)
	}
	prev := int32(-1)
	for v := 0; v <= 127; v++ {
		a := AmplitudeFromVelocity(v)
		if a < prev {
			t.Fatalf("curve not monotonic at %d", v)
		}
		prev = a
	}
}
