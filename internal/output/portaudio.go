//go:build portaudio

package output

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	"github.com/cbegin/wtsynth-go/internal/audio"
)

// portAudioSink writes each block to a blocking portaudio stream. Write
// returns once the device has room, which paces the driver.
type portAudioSink struct {
	stream *portaudio.Stream
	out    []int16
	errs   atomic.Uint64
}

func (s *portAudioSink) Submit(b *audio.Block) {
	n := copy(s.out, b.Data)
	clear(s.out[n:])
	if err := s.stream.Write(); err != nil {
		s.errs.Add(1)
	}
}

// PortAudioOutput runs an audio.Driver against the default portaudio device.
type PortAudioOutput struct {
	mu     sync.Mutex
	sink   *portAudioSink
	driver *audio.Driver
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPortAudioOutput(sampleRate, blockSamples int, src audio.BlockSource, alloc audio.Allocator) (Output, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}
	sink := &portAudioSink{out: make([]int16, blockSamples)}
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(sampleRate), blockSamples, &sink.out)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("portaudio open: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("portaudio start: %w", err)
	}
	sink.stream = stream
	return &PortAudioOutput{
		sink:   sink,
		driver: audio.NewDriver(src, alloc, sink, blockSamples, 0),
	}, nil
}

func (o *PortAudioOutput) Play() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	o.cancel, o.done = cancel, done
	go func() {
		defer close(done)
		o.driver.Run(ctx)
	}()
}

func (o *PortAudioOutput) Pause() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel == nil {
		return
	}
	o.cancel()
	<-o.done
	o.cancel, o.done = nil, nil
}

func (o *PortAudioOutput) IsPlaying() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cancel != nil
}

// SilentBlocks reports how many blocks were written as silence.
func (o *PortAudioOutput) SilentBlocks() uint64 { return o.driver.SilentBlocks() }

// WriteErrors counts failed device writes, underflows included.
func (o *PortAudioOutput) WriteErrors() uint64 { return o.sink.errs.Load() }

func (o *PortAudioOutput) Close() error {
	o.Pause()
	if err := o.sink.stream.Stop(); err != nil {
		return err
	}
	if err := o.sink.stream.Close(); err != nil {
		return err
	}
	return portaudio.Terminate()
}
