// Package bank loads instrument banks: a TOML description of note ranges
// whose samples come from WAV recordings, procedural single-cycle waveforms
// or inline hex tables.
package bank

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/cbegin/wtsynth-go/internal/audio"
	"github.com/cbegin/wtsynth-go/internal/fixed"
	"github.com/cbegin/wtsynth-go/internal/lfo"
)

var ErrEmptyInstrument = errors.New("bank: instrument has no ranges")

// Config is the root of a bank file.
type Config struct {
	Engine     EngineConfig     `toml:"engine"`
	LFO        LFOConfig        `toml:"lfo"`
	Instrument InstrumentConfig `toml:"instrument"`

	// dir is the directory relative WAV paths are resolved against.
	dir string
}

type EngineConfig struct {
	SampleRate int    `toml:"sample_rate"`
	BlockSize  int    `toml:"block_size"`
	Voices     int    `toml:"voices"`
	Backend    string `toml:"backend"`
	// SilenceThreshold is a fraction of full scale. Zero keeps the default.
	SilenceThreshold float64 `toml:"silence_threshold"`
}

type LFOConfig struct {
	Depth    float64 `toml:"depth"` // semitones
	Rate     float64 `toml:"rate"`  // Hz
	Waveform string  `toml:"waveform"`
}

type InstrumentConfig struct {
	Name   string        `toml:"name"`
	Ranges []RangeConfig `toml:"range"`
}

// RangeConfig describes one note range. Exactly one of WAV, Waveform and Hex
// supplies the sample.
type RangeConfig struct {
	Threshold int    `toml:"threshold"`
	WAV       string `toml:"wav"`
	Waveform  string `toml:"waveform"`
	TableSize int    `toml:"table_size"`
	Hex       string `toml:"hex"`

	// RootNote overrides the unity note stored in the WAV file.
	RootNote *int `toml:"root_note"`
	// LoopStart and LoopEnd are frame offsets; a LoopEnd of zero keeps the
	// loop stored in the WAV file, if any.
	LoopStart int `toml:"loop_start"`
	LoopEnd   int `toml:"loop_end"`

	DelayMS   float64  `toml:"delay_ms"`
	AttackMS  float64  `toml:"attack_ms"`
	HoldMS    float64  `toml:"hold_ms"`
	DecayMS   float64  `toml:"decay_ms"`
	Sustain   *float64 `toml:"sustain"`
	ReleaseMS float64  `toml:"release_ms"`
}

// Default returns the engine settings used when a bank leaves them out.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			SampleRate: 44100,
			BlockSize:  128,
			Voices:     4,
			Backend:    "ebiten",
		},
		LFO: LFOConfig{Waveform: "triangle"},
	}
}

// Load reads and validates a bank file.
func Load(path string) (*Config, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bank at %q: %w", path, err)
	}
	cfg, err := Parse(bs)
	if err != nil {
		return nil, fmt.Errorf("bank %q: %w", path, err)
	}
	cfg.dir = filepath.Dir(path)
	return cfg, nil
}

// Parse decodes a bank from TOML on top of Default.
func Parse(bs []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(bs, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks engine settings and the shape of every range.
func (c *Config) Validate() error {
	e := c.Engine
	if e.SampleRate <= 0 {
		return fmt.Errorf("engine.sample_rate must be positive (got %d)", e.SampleRate)
	}
	if e.BlockSize <= 0 || e.BlockSize%8 != 0 {
		return fmt.Errorf("engine.block_size: %w (got %d)", audio.ErrBlockSize, e.BlockSize)
	}
	if e.Voices <= 0 {
		return fmt.Errorf("engine.voices must be positive (got %d)", e.Voices)
	}
	if e.SilenceThreshold < 0 || e.SilenceThreshold >= 1 {
		return fmt.Errorf("engine.silence_threshold must be in [0, 1) (got %g)", e.SilenceThreshold)
	}
	if _, err := c.LFO.WaveformID(); err != nil {
		return err
	}
	for i, r := range c.Instrument.Ranges {
		n := 0
		for _, s := range []string{r.WAV, r.Waveform, r.Hex} {
			if s != "" {
				n++
			}
		}
		if n != 1 {
			return fmt.Errorf("instrument.range %d: exactly one of wav, waveform or hex is required", i)
		}
		if r.Sustain != nil && (*r.Sustain < 0 || *r.Sustain > 1) {
			return fmt.Errorf("instrument.range %d: sustain must be in [0, 1] (got %g)", i, *r.Sustain)
		}
	}
	return nil
}

// SilenceThresholdGain returns the configured threshold as a gain, or zero for
// the envelope default.
func (e EngineConfig) SilenceThresholdGain() int32 {
	if e.SilenceThreshold <= 0 {
		return 0
	}
	return fixed.GainFromFloat(e.SilenceThreshold)
}

// WaveformID maps the LFO waveform name to its lfo package constant.
func (l LFOConfig) WaveformID() (int, error) {
	return lfo.ParseWaveform(l.Waveform)
}

// Single returns a bank with one procedural waveform covering every note.
func Single(waveform string) *Config {
	cfg := Default()
	sustain := 0.7
	cfg.Instrument = InstrumentConfig{
		Name: waveform,
		Ranges: []RangeConfig{{
			Threshold: 127,
			Waveform:  waveform,
			AttackMS:  5,
			DecayMS:   200,
			Sustain:   &sustain,
			ReleaseMS: 300,
		}},
	}
	return cfg
}
