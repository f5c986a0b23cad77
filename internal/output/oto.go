package output

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/cbegin/wtsynth-go/internal/audio"
)

// OtoPlayer plays a block source straight through oto, without ebiten's
// mixing layer.
type OtoPlayer struct {
	player *oto.Player
	reader *audio.StreamReader
}

var (
	otoOnce       sync.Once
	otoContext    *oto.Context
	otoErr        error
	otoSampleRate int
)

func sharedOtoContext(sampleRate, blockSamples int) (*oto.Context, error) {
	otoOnce.Do(func() {
		otoSampleRate = sampleRate
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: audio.Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   bufferDuration(sampleRate, blockSamples),
		}
		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			otoErr = err
			return
		}
		<-ready
		otoContext = ctx
	})
	if otoErr != nil {
		return nil, otoErr
	}
	if otoSampleRate != sampleRate {
		return nil, fmt.Errorf("oto context already initialized at %d Hz (requested %d Hz)", otoSampleRate, sampleRate)
	}
	return otoContext, nil
}

func NewOtoPlayer(sampleRate, blockSamples int, src audio.BlockSource, alloc audio.Allocator) (*OtoPlayer, error) {
	ctx, err := sharedOtoContext(sampleRate, blockSamples)
	if err != nil {
		return nil, fmt.Errorf("open oto: %w", err)
	}
	reader := audio.NewStreamReader(src, alloc, blockSamples)
	pl := ctx.NewPlayer(reader)
	frames := bufferDuration(sampleRate, blockSamples) * time.Duration(sampleRate) / time.Second
	pl.SetBufferSize(int(frames) * audio.FrameBytes)
	return &OtoPlayer{player: pl, reader: reader}, nil
}

func (p *OtoPlayer) Play()           { p.player.Play() }
func (p *OtoPlayer) Pause()          { p.player.Pause() }
func (p *OtoPlayer) IsPlaying() bool { return p.player.IsPlaying() }

// SilentBlocks reports how many blocks were played as silence.
func (p *OtoPlayer) SilentBlocks() uint64 { return p.reader.SilentBlocks() }

func (p *OtoPlayer) Close() error {
	p.player.Pause()
	if err := p.player.Close(); err != nil {
		return err
	}
	return p.reader.Close()
}
