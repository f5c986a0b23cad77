package bank

import (
	"fmt"
	"path/filepath"
	"time"

	log "github.com/golang/glog"

	"github.com/cbegin/wtsynth-go/internal/tuning"
	"github.com/cbegin/wtsynth-go/internal/wavetable"
)

const (
	defaultTableSize = 256
	defaultRootNote  = 60
)

// BuildInstrument builds the configured instrument at the engine sample rate.
func (c *Config) BuildInstrument() (*wavetable.Instrument, error) {
	in := c.Instrument
	if len(in.Ranges) == 0 {
		return nil, ErrEmptyInstrument
	}
	name := in.Name
	if name == "" {
		name = "instrument"
	}
	ranges := make([]wavetable.Range, 0, len(in.Ranges))
	for i, rc := range in.Ranges {
		spec, err := c.rangeSpec(fmt.Sprintf("%s/%d", name, i), rc)
		if err != nil {
			return nil, fmt.Errorf("instrument.range %d: %w", i, err)
		}
		s, err := wavetable.Build(spec)
		if err != nil {
			return nil, fmt.Errorf("instrument.range %d: %w", i, err)
		}
		log.V(1).Infof("bank: range %d up to note %d: %q, %d entries, looped=%v", i, rc.Threshold, s.Name, len(s.Data), s.Looped)
		ranges = append(ranges, wavetable.Range{Threshold: rc.Threshold, Sample: s})
	}
	return wavetable.NewInstrument(name, ranges...)
}

func (c *Config) rangeSpec(name string, rc RangeConfig) (wavetable.Spec, error) {
	rate := c.Engine.SampleRate
	var spec wavetable.Spec
	switch {
	case rc.WAV != "":
		path := rc.WAV
		if !filepath.IsAbs(path) {
			path = filepath.Join(c.dir, path)
		}
		rec, err := LoadWAV(path)
		if err != nil {
			return spec, err
		}
		root := defaultRootNote
		if rc.RootNote != nil {
			root = *rc.RootNote
		} else if rec.RootNote >= 0 {
			root = rec.RootNote
		}
		spec = wavetable.Spec{
			Name:         filepath.Base(path),
			PCM:          rec.PCM,
			LoopStart:    rec.LoopStart,
			LoopEnd:      rec.LoopEnd,
			RootFreq:     tuning.NoteToFreq(root),
			RecordedRate: rec.SampleRate,
			OutputRate:   rate,
		}
	case rc.Waveform != "":
		size := rc.TableSize
		if size == 0 {
			size = defaultTableSize
		}
		pcm, err := wavetable.Cycle(wavetable.Shape(rc.Waveform), size)
		if err != nil {
			return spec, err
		}
		spec = wavetable.CycleSpec(name, pcm, rate)
	default:
		pcm, err := wavetable.ParseHex(rc.Hex)
		if err != nil {
			return spec, err
		}
		spec = wavetable.CycleSpec(name, pcm, rate)
	}
	if rc.LoopEnd > 0 {
		spec.LoopStart, spec.LoopEnd = rc.LoopStart, rc.LoopEnd
	}
	spec.Delay = ms(rc.DelayMS)
	spec.Attack = ms(rc.AttackMS)
	spec.Hold = ms(rc.HoldMS)
	spec.Decay = ms(rc.DecayMS)
	spec.Release = ms(rc.ReleaseMS)
	spec.Sustain = 1
	if rc.Sustain != nil {
		spec.Sustain = *rc.Sustain
	}
	return spec, nil
}

func ms(v float64) time.Duration {
	return time.Duration(v * float64(time.Millisecond))
}
