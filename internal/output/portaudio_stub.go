//go:build !portaudio

package output

import (
	"errors"

	"github.com/cbegin/wtsynth-go/internal/audio"
)

// ErrNoPortAudio is returned when the binary was built without the
// portaudio tag.
var ErrNoPortAudio = errors.New("output: built without portaudio support (rebuild with -tags portaudio)")

func NewPortAudioOutput(sampleRate, blockSamples int, src audio.BlockSource, alloc audio.Allocator) (Output, error) {
	return nil, ErrNoPortAudio
}
