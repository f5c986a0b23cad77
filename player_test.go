package wtsynth

import (
	"errors"
	"sync"
	"testing"
	"time"

	intaudio "github.com/cbegin/wtsynth-go/internal/audio"
	"github.com/cbegin/wtsynth-go/internal/output"
	intwt "github.com/cbegin/wtsynth-go/internal/wavetable"
)

func testInstrument(t testing.TB) *intwt.Instrument {
	t.Helper()
	pcm, err := intwt.Cycle(intwt.ShapeSine, 256)
	if err != nil {
		t.Fatal(err)
	}
	spec := intwt.CycleSpec("sine", pcm, 48000)
	spec.Attack = 5 * time.Millisecond
	spec.Decay = 50 * time.Millisecond
	spec.Sustain = 0.5
	spec.Release = 20 * time.Millisecond
	s, err := intwt.Build(spec)
	if err != nil {
		t.Fatal(err)
	}
	inst, err := intwt.NewInstrument("sine", intwt.Range{Threshold: 96, Sample: s})
	if err != nil {
		t.Fatal(err)
	}
	return inst
}

// fakeOutput pulls from its source on demand instead of from a device.
type fakeOutput struct {
	src     intaudio.BlockSource
	alloc   intaudio.Allocator
	playing bool
	closed  bool
}

func (f *fakeOutput) Play()           { f.playing = true }
func (f *fakeOutput) Pause()          { f.playing = false }
func (f *fakeOutput) IsPlaying() bool { return f.playing }
func (f *fakeOutput) Close() error    { f.closed = true; return nil }

func (f *fakeOutput) pull() bool {
	b, ok := f.src.GenerateBlock()
	if ok {
		f.alloc.Release(b)
	}
	return ok
}

type fakeBackend struct {
	mu      sync.Mutex
	outputs []*fakeOutput
	fail    error
}

func (fb *fakeBackend) open(backend string, sampleRate, blockSize int, src intaudio.BlockSource, alloc intaudio.Allocator) (output.Output, error) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.fail != nil && len(fb.outputs) == 1 {
		return nil, fb.fail
	}
	out := &fakeOutput{src: src, alloc: alloc}
	fb.outputs = append(fb.outputs, out)
	return out, nil
}

func TestNewPlayerValidatesOptions(t *testing.T) {
	inst := testInstrument(t)
	if _, err := NewPlayer(inst, 0); err == nil {
		t.Fatal("zero sample rate should fail")
	}
	if _, err := NewPlayer(inst, 48000, WithVoices(0)); err == nil {
		t.Fatal("zero voices should fail")
	}
	if _, err := NewPlayer(inst, 48000, WithBlockSize(100)); !errors.Is(err, intaudio.ErrBlockSize) {
		t.Fatalf("err = %v, want ErrBlockSize", err)
	}
}

func TestPlayerAllocatesAndStealsOldest(t *testing.T) {
	pl, err := NewPlayer(testInstrument(t), 48000, WithVoices(2), withOutputFactory((&fakeBackend{}).open))
	if err != nil {
		t.Fatal(err)
	}
	a := pl.NoteOn(60, 100)
	b := pl.NoteOn(64, 100)
	if a < 0 || b < 0 || a == b {
		t.Fatalf("ids = %d, %d", a, b)
	}
	if n := pl.ActiveVoiceCount(); n != 2 {
		t.Fatalf("active = %d, want 2", n)
	}
	c := pl.NoteOn(67, 100)
	if c < 0 {
		t.Fatal("third note should steal a voice")
	}
	if n := pl.ActiveVoiceCount(); n != 2 {
		t.Fatalf("active = %d, want 2 after stealing", n)
	}
	// a was stolen: releasing it must not touch the new note.
	if pl.voices.find(a) != nil {
		t.Fatal("stolen note id still resolves")
	}
	pl.NoteOff(a)
	if pl.voices.find(c) == nil || !pl.voices.find(c).IsPlaying() {
		t.Fatal("NoteOff of a stolen id released the new note")
	}
	if pl.NoteOn(120, 100) != -1 {
		t.Fatal("note above the instrument should return -1")
	}
}

func TestPlayerStartPullsBlocks(t *testing.T) {
	fb := &fakeBackend{}
	var tapped int
	pl, err := NewPlayer(testInstrument(t), 48000,
		WithVoices(3),
		WithBlockSize(64),
		WithSampleTap(func(b []int16) { tapped += len(b) }),
		withOutputFactory(fb.open))
	if err != nil {
		t.Fatal(err)
	}
	id := pl.NoteOnFrequency(440, 127)
	if err := pl.Start(); err != nil {
		t.Fatal(err)
	}
	if len(fb.outputs) != 3 {
		t.Fatalf("opened %d outputs, want one per voice", len(fb.outputs))
	}
	produced := 0
	for _, out := range fb.outputs {
		if !out.playing {
			t.Fatal("Start should play every output")
		}
		for i := 0; i < 10; i++ {
			if out.pull() {
				produced++
			}
		}
	}
	if produced != 10 || tapped != 640 {
		t.Fatalf("produced %d blocks, tapped %d samples; want 10 and 640", produced, tapped)
	}
	pl.SetFrequency(id, 880)
	pl.NoteOff(id)

	pl.Pause()
	for _, out := range fb.outputs {
		if out.playing {
			t.Fatal("Pause should pause every output")
		}
	}
	if err := pl.Close(); err != nil {
		t.Fatal(err)
	}
	for _, out := range fb.outputs {
		if !out.closed {
			t.Fatal("Close should close every output")
		}
	}
	if st := pl.Stats(); st.Blocks != 10 {
		t.Fatalf("stats = %+v", st)
	}
	if err := pl.Start(); err == nil {
		t.Fatal("Start after Close should fail")
	}
}

func TestPlayerStartClosesOnFailure(t *testing.T) {
	fb := &fakeBackend{fail: errors.New("no device")}
	pl, err := NewPlayer(testInstrument(t), 48000, WithVoices(2), withOutputFactory(fb.open))
	if err != nil {
		t.Fatal(err)
	}
	if err := pl.Start(); err == nil {
		t.Fatal("expected backend error")
	}
	if !fb.outputs[0].closed {
		t.Fatal("outputs opened before the failure should be closed")
	}
}

func TestPlayerAllNotesOff(t *testing.T) {
	fb := &fakeBackend{}
	pl, err := NewPlayer(testInstrument(t), 48000, WithVoices(2), WithBlockSize(8), withOutputFactory(fb.open))
	if err != nil {
		t.Fatal(err)
	}
	pl.NoteOn(60, 100)
	pl.NoteOn(62, 100)
	pl.SetPitchLFO(0.5, 5, 2)
	if err := pl.Start(); err != nil {
		t.Fatal(err)
	}
	pl.AllNotesOff()
	// 20 ms of release at 8 samples per block.
	for i := 0; i < 200; i++ {
		for _, out := range fb.outputs {
			out.pull()
		}
	}
	if n := pl.ActiveVoiceCount(); n != 0 {
		t.Fatalf("active = %d after release, want 0", n)
	}
}
