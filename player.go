package wtsynth

import (
	"errors"
	"fmt"
	"sync"

	log "github.com/golang/glog"

	intaudio "github.com/cbegin/wtsynth-go/internal/audio"
	"github.com/cbegin/wtsynth-go/internal/envelope"
	"github.com/cbegin/wtsynth-go/internal/fixed"
	"github.com/cbegin/wtsynth-go/internal/output"
	"github.com/cbegin/wtsynth-go/internal/voice"
	intwt "github.com/cbegin/wtsynth-go/internal/wavetable"
)

// Stats are counters summed over every voice.
type Stats = voice.Stats

type PlayerOption func(*playerConfig)

type playerConfig struct {
	voices    int
	backend   string
	blockSize int
	silence   int32
	sampleTap func([]int16)
	open      outputFactory
}

// outputFactory opens one output per voice. Tests swap it out.
type outputFactory func(backend string, sampleRate, blockSize int, src intaudio.BlockSource, alloc intaudio.Allocator) (output.Output, error)

func defaultPlayerConfig() playerConfig {
	return playerConfig{
		voices:    4,
		backend:   output.BackendEbiten,
		blockSize: 128,
		open:      output.Open,
	}
}

// WithVoices sets the polyphony.
func WithVoices(n int) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.voices = n
	}
}

// WithBackend selects the audio backend: ebiten, oto or portaudio.
func WithBackend(name string) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.backend = name
	}
}

// WithBlockSize sets the samples per block. It must be a multiple of 8.
func WithBlockSize(n int) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.blockSize = n
	}
}

// WithSilenceThreshold sets, as a fraction of full scale, the level below
// which a decay skips the sustain stage. Zero keeps the default.
func WithSilenceThreshold(level float64) PlayerOption {
	return func(cfg *playerConfig) {
		if level > 0 {
			cfg.silence = fixed.GainFromFloat(level)
		}
	}
}

// WithSampleTap installs a callback invoked with each rendered block.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]int16)) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.sampleTap = tap
	}
}

func withOutputFactory(f outputFactory) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.open = f
	}
}

func (cfg playerConfig) validate(sampleRate int) error {
	if sampleRate <= 0 {
		return errors.New("sampleRate must be positive")
	}
	if cfg.voices <= 0 {
		return fmt.Errorf("voice count must be positive (got %d)", cfg.voices)
	}
	if cfg.blockSize <= 0 || cfg.blockSize%envelope.TickSamples != 0 {
		return fmt.Errorf("block size %d: %w", cfg.blockSize, intaudio.ErrBlockSize)
	}
	return nil
}

// Player plays an instrument in real time. Each voice streams through its
// own backend player and the backend mixes them.
type Player struct {
	mu         sync.Mutex
	sampleRate int
	cfg        playerConfig
	pool       *intaudio.Pool
	voices     *voiceSet
	outputs    []output.Output
	closed     bool
}

// tapSource hands each block to a tap before it reaches the backend.
type tapSource struct {
	src intaudio.BlockSource
	tap func([]int16)
}

func (t *tapSource) GenerateBlock() (*intaudio.Block, bool) {
	b, ok := t.src.GenerateBlock()
	if ok {
		t.tap(b.Data)
	}
	return b, ok
}

func NewPlayer(inst *intwt.Instrument, sampleRate int, opts ...PlayerOption) (*Player, error) {
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(sampleRate); err != nil {
		return nil, err
	}
	pool, err := intaudio.NewPool(cfg.blockSize, 2*cfg.voices)
	if err != nil {
		return nil, err
	}
	voices, err := newVoiceSet(inst, pool, cfg.voices, voice.Options{SampleRate: sampleRate, SilenceThreshold: cfg.silence})
	if err != nil {
		return nil, err
	}
	return &Player{
		sampleRate: sampleRate,
		cfg:        cfg,
		pool:       pool,
		voices:     voices,
	}, nil
}

// Start opens one backend stream per voice and starts playback. Notes may be
// triggered before Start; they sound once the streams run.
func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("player is closed")
	}
	if p.outputs != nil {
		return nil
	}
	var outputs []output.Output
	var err error
	p.voices.each(func(v *voice.Voice) {
		if err != nil {
			return
		}
		var src intaudio.BlockSource = v
		if p.cfg.sampleTap != nil {
			src = &tapSource{src: v, tap: p.cfg.sampleTap}
		}
		var out output.Output
		out, err = p.cfg.open(p.cfg.backend, p.sampleRate, p.cfg.blockSize, src, p.pool)
		if err == nil {
			outputs = append(outputs, out)
		}
	})
	if err != nil {
		for _, out := range outputs {
			_ = out.Close()
		}
		return fmt.Errorf("open %s backend: %w", p.cfg.backend, err)
	}
	for _, out := range outputs {
		out.Play()
	}
	p.outputs = outputs
	log.V(1).Infof("wtsynth: started %d voices on %s at %d Hz, %d-sample blocks", len(outputs), p.cfg.backend, p.sampleRate, p.cfg.blockSize)
	return nil
}

// NoteOn starts a MIDI note and returns its id, or -1 if the instrument has
// no sample for it.
func (p *Player) NoteOn(note, velocity int) int {
	return p.voices.noteOn(note, velocity)
}

// NoteOnFrequency starts a note at freq Hz and returns its id, or -1.
func (p *Player) NoteOnFrequency(freq float64, velocity int) int {
	return p.voices.noteOnFrequency(freq, velocity)
}

// NoteOff releases note id. It does nothing if the voice has since been
// taken by another note.
func (p *Player) NoteOff(id int) {
	p.voices.noteOff(id)
}

// AllNotesOff releases every voice.
func (p *Player) AllNotesOff() {
	p.voices.allOff()
}

// SetFrequency retunes note id.
func (p *Player) SetFrequency(id int, freq float64) {
	p.voices.setFrequency(id, freq)
}

// SetPitchLFO sets vibrato on every voice. depth is in semitones.
func (p *Player) SetPitchLFO(depth, rateHz float64, waveform int) {
	p.voices.each(func(v *voice.Voice) { v.SetPitchLFO(depth, rateHz, waveform) })
}

// SetInstrument swaps the instrument for notes started from now on.
func (p *Player) SetInstrument(inst *intwt.Instrument) {
	p.voices.each(func(v *voice.Voice) { v.SetInstrument(inst) })
}

// ActiveVoiceCount reports how many voices are sounding.
func (p *Player) ActiveVoiceCount() int {
	return p.voices.active()
}

func (p *Player) Stats() Stats {
	return p.voices.stats()
}

func (p *Player) SampleRate() int { return p.sampleRate }

// Pause suspends every stream.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, out := range p.outputs {
		out.Pause()
	}
}

// Resume restarts every stream.
func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, out := range p.outputs {
		out.Play()
	}
}

// Close stops playback and releases the backend streams.
func (p *Player) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	outputs := p.outputs
	p.outputs = nil
	p.mu.Unlock()

	var errs []error
	for _, out := range outputs {
		if err := out.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	st := p.Stats()
	log.V(1).Infof("wtsynth: closed: %d blocks, %d unavailable, %d discarded", st.Blocks, st.Unavailable, st.Discarded)
	return errors.Join(errs...)
}
