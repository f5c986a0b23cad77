package bank

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	audiopkg "github.com/cbegin/wtsynth-go/internal/audio"
	"github.com/cbegin/wtsynth-go/internal/fixed"
	"github.com/cbegin/wtsynth-go/internal/lfo"
)

func writeWAV(t *testing.T, path string, rate, channels, bitDepth int, data []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	enc := wav.NewEncoder(f, rate, bitDepth, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[[instrument.range]]
threshold = 127
waveform = "sine"
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine.SampleRate != 44100 || cfg.Engine.BlockSize != 128 || cfg.Engine.Voices != 4 {
		t.Fatalf("engine defaults not applied: %+v", cfg.Engine)
	}
	if cfg.Engine.SilenceThresholdGain() != 0 {
		t.Fatal("unset silence threshold should keep the envelope default")
	}
	in, err := cfg.BuildInstrument()
	if err != nil {
		t.Fatal(err)
	}
	s := in.Lookup(60)
	if s == nil || !s.Looped || len(s.Data) != defaultTableSize+1 {
		t.Fatalf("sine range built wrong: %+v", s)
	}
	if s.Envelope.SustainLevel() != fixed.Unity {
		t.Fatal("sustain should default to full level")
	}
}

func TestParseRejectsBadConfig(t *testing.T) {
	for _, tc := range []struct {
		name string
		body string
		want error
	}{
		{"block size", "[engine]\nblock_size = 100\n", audiopkg.ErrBlockSize},
		{"two sources", "[[instrument.range]]\nthreshold = 1\nwaveform = \"saw\"\nhex = \"00\"\n", nil},
		{"no source", "[[instrument.range]]\nthreshold = 1\n", nil},
		{"sustain", "[[instrument.range]]\nwaveform = \"saw\"\nsustain = 1.5\n", nil},
		{"lfo", "[lfo]\nwaveform = \"wobble\"\n", nil},
		{"toml", "[engine\n", nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.body))
			if err == nil {
				t.Fatal("expected an error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestBuildInstrumentEmpty(t *testing.T) {
	cfg := Default()
	if _, err := cfg.BuildInstrument(); !errors.Is(err, ErrEmptyInstrument) {
		t.Fatalf("err = %v, want ErrEmptyInstrument", err)
	}
}

func TestLoadBankWithWAV(t *testing.T) {
	dir := t.TempDir()
	pcm := make([]int, 400)
	for i := range pcm {
		pcm[i] = (i%100)*200 - 10000
	}
	writeWAV(t, filepath.Join(dir, "tone.wav"), 22050, 1, 16, pcm)
	writeFile(t, filepath.Join(dir, "bank.toml"), `
[engine]
sample_rate = 44100
block_size = 64
voices = 2
silence_threshold = 0.001

[lfo]
depth = 0.5
rate = 6
waveform = "saw"

[instrument]
name = "tone"

[[instrument.range]]
threshold = 64
wav = "tone.wav"
root_note = 57
loop_start = 100
loop_end = 300
attack_ms = 10
decay_ms = 100
sustain = 0.25
release_ms = 50

[[instrument.range]]
threshold = 127
hex = "00 40 7f 40 00 c0 80 c0"
`)
	cfg, err := Load(filepath.Join(dir, "bank.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if id, _ := cfg.LFO.WaveformID(); id != lfo.WaveSaw {
		t.Fatalf("lfo waveform = %d", id)
	}
	if g := cfg.Engine.SilenceThresholdGain(); g != fixed.GainFromFloat(0.001) {
		t.Fatalf("silence threshold gain = %d", g)
	}
	in, err := cfg.BuildInstrument()
	if err != nil {
		t.Fatal(err)
	}
	if in.Name != "tone" || len(in.Ranges) != 2 {
		t.Fatalf("instrument = %+v", in)
	}
	low := in.Lookup(40)
	if !low.Looped || len(low.Data) != 301 || low.Data[300] != low.Data[100] {
		t.Fatalf("wav range: looped=%v len=%d", low.Looped, len(low.Data))
	}
	if low.Data[0] != -10000 || low.Data[99] != 9800 {
		t.Fatalf("wav data not preserved: %d %d", low.Data[0], low.Data[99])
	}
	if low.Envelope.SustainLevel() != fixed.GainFromFloat(0.25) {
		t.Fatal("sustain level not applied")
	}
	high := in.Lookup(100)
	if high == low || len(high.Data) != 9 {
		t.Fatalf("hex range: %+v", high)
	}
}

func TestDecodeWAVDownmixesStereo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	writeWAV(t, path, 48000, 2, 16, []int{1000, 3000, -2000, -4000, 0, 100})
	rec, err := LoadWAV(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []int16{2000, -3000, 50}
	if len(rec.PCM) != len(want) {
		t.Fatalf("got %d frames, want %d", len(rec.PCM), len(want))
	}
	for i := range want {
		if rec.PCM[i] != want[i] {
			t.Fatalf("frame %d = %d, want %d", i, rec.PCM[i], want[i])
		}
	}
	if rec.SampleRate != 48000 || rec.RootNote != -1 || rec.LoopEnd != 0 {
		t.Fatalf("metadata = %+v", rec)
	}
}

func TestDecodeWAVScales24Bit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep.wav")
	writeWAV(t, path, 48000, 1, 24, []int{1 << 20, -(1 << 20)})
	rec, err := LoadWAV(path)
	if err != nil {
		t.Fatal(err)
	}
	if rec.PCM[0] != 1<<12 || rec.PCM[1] != -(1<<12) {
		t.Fatalf("24-bit samples = %v, want ±4096", rec.PCM)
	}
}

func TestLoadWAVMissingFile(t *testing.T) {
	if _, err := LoadWAV(filepath.Join(t.TempDir(), "nope.wav")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want not-exist", err)
	}
}

func TestSingle(t *testing.T) {
	cfg := Single("saw")
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	in, err := cfg.BuildInstrument()
	if err != nil {
		t.Fatal(err)
	}
	if in.Lookup(0) == nil || in.Lookup(127) == nil {
		t.Fatal("single waveform should cover every note")
	}
	if _, err := Single("noise").BuildInstrument(); err == nil {
		t.Fatal("unknown waveform should fail to build")
	}
}
