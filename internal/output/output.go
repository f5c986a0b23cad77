// Package output plays block sources on audio devices.
package output

import (
	"fmt"
	"strings"

	"github.com/cbegin/wtsynth-go/internal/audio"
)

// Backend names accepted by Open.
const (
	BackendEbiten    = "ebiten"
	BackendOto       = "oto"
	BackendPortAudio = "portaudio"
)

// Output is a running audio stream fed by one block source.
type Output interface {
	Play()
	Pause()
	IsPlaying() bool
	Close() error
}

// Open starts a stream on the named backend. Pull backends read blocks on
// their own goroutine through an audio.StreamReader; the portaudio backend
// runs an audio.Driver that pushes blocks into a blocking stream.
func Open(backend string, sampleRate, blockSamples int, src audio.BlockSource, alloc audio.Allocator) (Output, error) {
	switch strings.ToLower(backend) {
	case "", BackendEbiten:
		p, err := NewPlayer(sampleRate, blockSamples, src, alloc)
		if err != nil {
			return nil, err
		}
		return p, nil
	case BackendOto:
		p, err := NewOtoPlayer(sampleRate, blockSamples, src, alloc)
		if err != nil {
			return nil, err
		}
		return p, nil
	case BackendPortAudio:
		return NewPortAudioOutput(sampleRate, blockSamples, src, alloc)
	default:
		return nil, fmt.Errorf("output: unknown backend %q", backend)
	}
}
