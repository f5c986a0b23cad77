package wtsynth

import (
	"sync"

	"github.com/cbegin/wtsynth-go/internal/audio"
	"github.com/cbegin/wtsynth-go/internal/voice"
	"github.com/cbegin/wtsynth-go/internal/wavetable"
)

// slot is one replicated voice plus the bookkeeping used to allocate it.
type slot struct {
	v       *voice.Voice
	id      int // id of the note last started here
	started int // allocation order, for stealing the oldest note
}

// voiceSet gives polyphony by replicating independent single-note voices.
// Each voice keeps its own producer; nothing here is on the audio path.
type voiceSet struct {
	mu    sync.Mutex
	slots []*slot
	seq   int
}

func newVoiceSet(inst *wavetable.Instrument, alloc audio.Allocator, n int, opts voice.Options) (*voiceSet, error) {
	s := &voiceSet{slots: make([]*slot, n)}
	for i := range s.slots {
		v, err := voice.New(inst, alloc, opts)
		if err != nil {
			return nil, err
		}
		s.slots[i] = &slot{v: v}
	}
	return s, nil
}

// allocate returns the first idle voice, or the one holding the oldest note.
func (s *voiceSet) allocate() *slot {
	var oldest *slot
	for _, sl := range s.slots {
		if !sl.v.IsPlaying() {
			return sl
		}
		if oldest == nil || sl.started < oldest.started {
			oldest = sl
		}
	}
	return oldest
}

func (s *voiceSet) start(trigger func(*voice.Voice) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl := s.allocate()
	if !trigger(sl.v) {
		return -1
	}
	s.seq++
	sl.id, sl.started = s.seq, s.seq
	return sl.id
}

func (s *voiceSet) noteOn(note, velocity int) int {
	return s.start(func(v *voice.Voice) bool { return v.TriggerNote(note, velocity) })
}

func (s *voiceSet) noteOnFrequency(freq float64, velocity int) int {
	return s.start(func(v *voice.Voice) bool { return v.TriggerFrequency(freq, velocity) })
}

// find returns the voice still playing note id, or nil once it was stolen.
func (s *voiceSet) find(id int) *voice.Voice {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sl := range s.slots {
		if sl.id == id && id > 0 {
			return sl.v
		}
	}
	return nil
}

func (s *voiceSet) noteOff(id int) {
	if v := s.find(id); v != nil {
		v.Stop()
	}
}

func (s *voiceSet) setFrequency(id int, freq float64) {
	if v := s.find(id); v != nil {
		v.SetFrequency(freq)
	}
}

func (s *voiceSet) each(fn func(*voice.Voice)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sl := range s.slots {
		fn(sl.v)
	}
}

func (s *voiceSet) allOff() {
	s.each(func(v *voice.Voice) { v.Stop() })
}

func (s *voiceSet) active() int {
	n := 0
	s.each(func(v *voice.Voice) {
		if v.IsPlaying() {
			n++
		}
	})
	return n
}

func (s *voiceSet) stats() voice.Stats {
	var total voice.Stats
	s.each(func(v *voice.Voice) {
		st := v.Stats()
		total.Blocks += st.Blocks
		total.Unavailable += st.Unavailable
		total.Discarded += st.Discarded
	})
	return total
}
