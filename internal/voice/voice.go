// Package voice is the per-block synthesis pipeline and the control-path
// entry points that feed it.
//
// A Voice is driven by exactly one producer goroutine calling GenerateBlock
// and one controller calling the trigger methods. The two meet only in short
// critical sections that copy the shared fields; no rendering happens under
// the lock.
package voice

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/cbegin/wtsynth-go/internal/audio"
	"github.com/cbegin/wtsynth-go/internal/envelope"
	"github.com/cbegin/wtsynth-go/internal/fixed"
	"github.com/cbegin/wtsynth-go/internal/lfo"
	"github.com/cbegin/wtsynth-go/internal/osc"
	"github.com/cbegin/wtsynth-go/internal/tuning"
	"github.com/cbegin/wtsynth-go/internal/wavetable"
)

var ErrNoAllocator = errors.New("voice: nil block allocator")

// Options configure a Voice.
type Options struct {
	SampleRate int
	// SilenceThreshold overrides the envelope's silence threshold for every
	// sample this voice plays, when non-zero.
	SilenceThreshold int32
}

// Stats are running counters for one voice.
type Stats struct {
	// Blocks is the number of blocks rendered.
	Blocks uint64
	// Unavailable counts renders skipped because no block could be acquired.
	Unavailable uint64
	// Discarded counts rendered blocks whose trailing state was dropped
	// because a trigger or stop arrived during rendering.
	Discarded uint64
}

// Snapshot is a consistent copy of the voice's playback state.
type Snapshot struct {
	Stage     envelope.Stage
	Gain      int32
	Phase     uint32
	Increment uint32
	Sample    *wavetable.Sample
}

// Voice plays one note at a time from an Instrument.
type Voice struct {
	alloc      audio.Allocator
	sampleRate int
	silence    int32

	mu      sync.Mutex
	inst    *wavetable.Instrument
	sample  *wavetable.Sample
	params  envelope.Params
	osc     osc.Osc
	amp     int32
	env     envelope.State
	lfo     lfo.LFO
	changed bool

	// afterRender runs between rendering and write-back. Tests use it to
	// land a trigger inside a render.
	afterRender func()

	blocks      atomic.Uint64
	unavailable atomic.Uint64
	discarded   atomic.Uint64
}

// New returns an idle voice playing inst with blocks from alloc.
func New(inst *wavetable.Instrument, alloc audio.Allocator, opts Options) (*Voice, error) {
	if alloc == nil {
		return nil, ErrNoAllocator
	}
	return &Voice{
		alloc:      alloc,
		sampleRate: opts.SampleRate,
		silence:    opts.SilenceThreshold,
		inst:       inst,
	}, nil
}

// SetInstrument swaps the instrument used by future triggers. A note already
// sounding keeps its sample.
func (v *Voice) SetInstrument(inst *wavetable.Instrument) {
	v.mu.Lock()
	v.inst = inst
	v.mu.Unlock()
}

// TriggerNote starts note at a MIDI velocity. Notes with no matching range
// are ignored and false is returned.
func (v *Voice) TriggerNote(note, velocity int) bool {
	return v.TriggerFrequencyNote(tuning.NoteToFreq(note), note, velocity)
}

// TriggerFrequency starts a note at freq Hz. The sample is chosen from the
// nearest MIDI note.
func (v *Voice) TriggerFrequency(freq float64, velocity int) bool {
	note := tuning.FreqToNote(freq)
	if note < 0 {
		return false
	}
	return v.TriggerFrequencyNote(freq, note, velocity)
}

// TriggerFrequencyNote starts freq Hz using the sample mapped to note.
func (v *Voice) TriggerFrequencyNote(freq float64, note, velocity int) bool {
	v.mu.Lock()
	inst := v.inst
	v.mu.Unlock()

	s := inst.Lookup(note)
	if s == nil {
		return false
	}
	params := s.Envelope
	if v.silence != 0 {
		params.SilenceThreshold = v.silence
	}
	incr := osc.IncrementFor(freq, s)
	amp := tuning.AmplitudeFromVelocity(velocity)
	env := envelope.Trigger(params)

	v.mu.Lock()
	v.sample = s
	v.params = params
	v.osc = osc.Osc{Phase: 0, Increment: incr}
	v.amp = amp
	v.env = env
	v.lfo.Reset()
	v.changed = true
	v.mu.Unlock()
	return true
}

// Stop releases the note from its current gain. The phase keeps running.
// Stopping an idle voice does nothing.
func (v *Voice) Stop() {
	v.mu.Lock()
	if v.env.Stage != envelope.Idle {
		v.env = envelope.StartRelease(v.env, v.params)
		v.changed = true
	}
	v.mu.Unlock()
}

// SetFrequency retunes the sounding note without restarting it.
func (v *Voice) SetFrequency(freq float64) {
	v.mu.Lock()
	s := v.sample
	v.mu.Unlock()
	if s == nil {
		return
	}
	incr := osc.IncrementFor(freq, s)

	v.mu.Lock()
	// A retrigger with a different sample may have landed in between.
	if v.sample == s {
		v.osc.Increment = incr
	}
	v.mu.Unlock()
}

// SetPitchLFO configures vibrato. depth is in semitones; a zero depth or
// rate disables it.
func (v *Voice) SetPitchLFO(depth, rateHz float64, waveform int) {
	var l lfo.LFO
	l.Set(depth, rateHz, waveform, v.sampleRate)

	v.mu.Lock()
	l.CopyPhase(&v.lfo)
	v.lfo = l
	v.mu.Unlock()
}

// IsPlaying reports whether the envelope is anywhere but Idle.
func (v *Voice) IsPlaying() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.env.Stage != envelope.Idle
}

// Snapshot returns a copy of the current playback state.
func (v *Voice) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Snapshot{
		Stage:     v.env.Stage,
		Gain:      v.env.Gain,
		Phase:     v.osc.Phase,
		Increment: v.osc.Increment,
		Sample:    v.sample,
	}
}

// Stats returns the voice's counters.
func (v *Voice) Stats() Stats {
	return Stats{
		Blocks:      v.blocks.Load(),
		Unavailable: v.unavailable.Load(),
		Discarded:   v.discarded.Load(),
	}
}

// GenerateBlock renders the next block. It returns false, without touching
// any state, when the voice is idle or no block can be acquired.
func (v *Voice) GenerateBlock() (*audio.Block, bool) {
	v.mu.Lock()
	if v.env.Stage == envelope.Idle {
		v.mu.Unlock()
		return nil, false
	}
	s, params, o, amp, env, mod := v.sample, v.params, v.osc, v.amp, v.env, v.lfo
	v.changed = false
	v.mu.Unlock()

	b := v.alloc.Acquire()
	if b == nil {
		v.unavailable.Add(1)
		return nil, false
	}

	if mod.Active() {
		o.Increment = min(lfo.Apply(o.Increment, mod.Advance(len(b.Data))), s.MaxIncrement())
	}
	n := o.Fill(b.Data, s)
	env = envelope.Apply(env, params, amp, b.Data[:n])
	if n < len(b.Data) {
		// An unlooped sample ran out; Fill has already zeroed the tail.
		env = envelope.State{}
	}
	v.blocks.Add(1)

	if v.afterRender != nil {
		v.afterRender()
	}

	v.mu.Lock()
	if v.changed {
		v.discarded.Add(1)
	} else {
		v.osc.Phase = o.Phase
		v.env = env
		v.lfo.CopyPhase(&mod)
	}
	v.mu.Unlock()
	return b, true
}

// Update renders one block into sink and hands the block back to the
// allocator. It reports whether a block was delivered.
func (v *Voice) Update(sink audio.Sink) bool {
	b, ok := v.GenerateBlock()
	if !ok {
		return false
	}
	sink.Submit(b)
	v.alloc.Release(b)
	return true
}

// Gain reports the current envelope gain as a fraction of full scale.
func (v *Voice) Gain() float64 {
	v.mu.Lock()
	g := v.env.Gain
	v.mu.Unlock()
	return float64(g) / float64(fixed.Unity)
}

var _ audio.BlockSource = (*Voice)(nil)
