package output

import (
	"fmt"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"

	"github.com/cbegin/wtsynth-go/internal/audio"
)

// Player plays a block source through the process-wide ebiten audio context.
type Player struct {
	player *ebitaudio.Player
	reader *audio.StreamReader
}

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

func NewPlayer(sampleRate, blockSamples int, src audio.BlockSource, alloc audio.Allocator) (*Player, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := audio.NewStreamReader(src, alloc, blockSamples)
	pl, err := ctx.NewPlayer(reader)
	if err != nil {
		return nil, err
	}
	pl.SetBufferSize(bufferDuration(sampleRate, blockSamples))
	return &Player{
		player: pl,
		reader: reader,
	}, nil
}

// bufferDuration keeps a few blocks queued in the backend.
func bufferDuration(sampleRate, blockSamples int) time.Duration {
	d := time.Duration(4*blockSamples) * time.Second / time.Duration(sampleRate)
	return max(d, 10*time.Millisecond)
}

func (p *Player) Play()  { p.player.Play() }
func (p *Player) Pause() { p.player.Pause() }
func (p *Player) IsPlaying() bool {
	return p.player.IsPlaying()
}

// Position returns the current playback position (what the listener actually hears).
func (p *Player) Position() time.Duration {
	return p.player.Position()
}

// SilentBlocks reports how many blocks were played as silence.
func (p *Player) SilentBlocks() uint64 { return p.reader.SilentBlocks() }

func (p *Player) Close() error {
	p.player.Pause()
	if err := p.player.Close(); err != nil {
		return err
	}
	return p.reader.Close()
}
