package wtsynth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	intaudio "github.com/cbegin/wtsynth-go/internal/audio"
	"github.com/cbegin/wtsynth-go/internal/fixed"
	"github.com/cbegin/wtsynth-go/internal/script"
	"github.com/cbegin/wtsynth-go/internal/voice"
	intwt "github.com/cbegin/wtsynth-go/internal/wavetable"
)

// Renderer plays an instrument without an audio device. Time advances only
// through Wait, one block at a time, so a given sequence of calls always
// renders the same samples. Voices are summed with saturation.
type Renderer struct {
	sampleRate int
	blockSize  int
	voices     *voiceSet
	pool       *intaudio.Pool
	mix        mixSink
	out        []int16
	tap        func([]int16)
}

// mixSink accumulates blocks from several voices.
type mixSink struct {
	sum []int32
}

func (m *mixSink) Submit(b *intaudio.Block) {
	for i, v := range b.Data {
		m.sum[i] += int32(v)
	}
}

// NewRenderer builds an offline renderer. WithBackend has no effect.
func NewRenderer(inst *intwt.Instrument, sampleRate int, opts ...PlayerOption) (*Renderer, error) {
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(sampleRate); err != nil {
		return nil, err
	}
	pool, err := intaudio.NewPool(cfg.blockSize, cfg.voices)
	if err != nil {
		return nil, err
	}
	voices, err := newVoiceSet(inst, pool, cfg.voices, voice.Options{SampleRate: sampleRate, SilenceThreshold: cfg.silence})
	if err != nil {
		return nil, err
	}
	return &Renderer{
		sampleRate: sampleRate,
		blockSize:  cfg.blockSize,
		voices:     voices,
		pool:       pool,
		mix:        mixSink{sum: make([]int32, cfg.blockSize)},
		tap:        cfg.sampleTap,
	}, nil
}

func (r *Renderer) NoteOn(note, velocity int) int { return r.voices.noteOn(note, velocity) }

func (r *Renderer) NoteOnFrequency(freq float64, velocity int) int {
	return r.voices.noteOnFrequency(freq, velocity)
}

func (r *Renderer) NoteOff(id int) { r.voices.noteOff(id) }

func (r *Renderer) SetFrequency(id int, freq float64) { r.voices.setFrequency(id, freq) }

func (r *Renderer) SetPitchLFO(depth, rateHz float64, waveform int) {
	r.voices.each(func(v *voice.Voice) { v.SetPitchLFO(depth, rateHz, waveform) })
}

func (r *Renderer) ActiveVoiceCount() int { return r.voices.active() }

func (r *Renderer) Stats() Stats { return r.voices.stats() }

// Elapsed is the length of audio rendered so far.
func (r *Renderer) Elapsed() time.Duration {
	return time.Duration(len(r.out)) * time.Second / time.Duration(r.sampleRate)
}

// Wait renders d worth of audio. Events are quantized to block boundaries,
// as they are when playing live.
func (r *Renderer) Wait(ctx context.Context, d time.Duration) error {
	target := int64((r.Elapsed() + d).Seconds()*float64(r.sampleRate) + 0.5)
	for int64(len(r.out)) < target {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.renderBlock()
	}
	return nil
}

// Drain renders until every voice is idle or maxTail has elapsed.
func (r *Renderer) Drain(ctx context.Context, maxTail time.Duration) error {
	limit := r.Elapsed() + maxTail
	for r.voices.active() > 0 && r.Elapsed() < limit {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.renderBlock()
	}
	return nil
}

func (r *Renderer) renderBlock() {
	clear(r.mix.sum)
	r.voices.each(func(v *voice.Voice) { v.Update(&r.mix) })
	start := len(r.out)
	for _, s := range r.mix.sum {
		r.out = append(r.out, fixed.SaturateInt16(s))
	}
	if r.tap != nil {
		r.tap(r.out[start:])
	}
}

// Samples returns everything rendered so far.
func (r *Renderer) Samples() []int16 { return r.out }

// WriteWAV encodes the rendered audio as 16-bit mono WAV.
func (r *Renderer) WriteWAV(w io.WriteSeeker) error {
	return EncodeWAV(w, r.out, r.sampleRate)
}

// RenderNote plays one note for hold, releases it, and renders until it has
// died away or tail has passed.
func RenderNote(inst *intwt.Instrument, sampleRate, note, velocity int, hold, tail time.Duration, opts ...PlayerOption) ([]int16, error) {
	r, err := NewRenderer(inst, sampleRate, opts...)
	if err != nil {
		return nil, err
	}
	id := r.NoteOn(note, velocity)
	if id < 0 {
		return nil, fmt.Errorf("no sample for note %d", note)
	}
	ctx := context.Background()
	if err := r.Wait(ctx, hold); err != nil {
		return nil, err
	}
	r.NoteOff(id)
	if err := r.Drain(ctx, tail); err != nil {
		return nil, err
	}
	return r.Samples(), nil
}

// RenderScript runs a Lua note script offline, then renders up to tail more
// audio for releasing notes.
func RenderScript(ctx context.Context, inst *intwt.Instrument, sampleRate int, src string, tail time.Duration, opts ...PlayerOption) ([]int16, error) {
	r, err := NewRenderer(inst, sampleRate, opts...)
	if err != nil {
		return nil, err
	}
	if err := script.NewRunner(r, r).RunString(ctx, src); err != nil {
		return nil, err
	}
	r.voices.allOff()
	if err := r.Drain(ctx, tail); err != nil {
		return nil, err
	}
	return r.Samples(), nil
}

// EncodeWAV writes samples as 16-bit mono PCM.
func EncodeWAV(w io.WriteSeeker, samples []int16, sampleRate int) error {
	if sampleRate <= 0 {
		return errors.New("sampleRate must be positive")
	}
	enc := wav.NewEncoder(w, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		buf.Data[i] = int(s)
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finish wav: %w", err)
	}
	return nil
}
