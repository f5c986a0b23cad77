package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	log "github.com/golang/glog"

	"github.com/cbegin/wtsynth-go"
	"github.com/cbegin/wtsynth-go/internal/bank"
	"github.com/cbegin/wtsynth-go/internal/script"
)

func main() {
	var (
		bankPath   = flag.String("bank", "", "path to a TOML instrument bank")
		waveform   = flag.String("waveform", "sine", "single-cycle waveform when no -bank is given: sine|saw|square|triangle")
		backend    = flag.String("backend", "", "audio backend: ebiten|oto|portaudio (default from bank)")
		sampleRate = flag.Int("sample-rate", 0, "output sample rate (default from bank)")
		blockSize  = flag.Int("block-size", 0, "samples per block, a multiple of 8 (default from bank)")
		voices     = flag.Int("voices", 0, "polyphony (default from bank)")
		note       = flag.Int("note", 60, "MIDI note to play")
		freq       = flag.Float64("freq", 0, "play this frequency in Hz instead of -note")
		velocity   = flag.Int("velocity", 100, "MIDI velocity 0..127")
		duration   = flag.Duration("duration", time.Second, "how long to hold the note")
		scriptPath = flag.String("script", "", "Lua note script to run")
		keys       = flag.Bool("keys", false, "play from the computer keyboard")
	)
	flag.Parse()

	cfg, err := loadBank(*bankPath, *waveform)
	if err != nil {
		log.Exitf("failed to load bank: %v", err)
	}
	inst, err := cfg.BuildInstrument()
	if err != nil {
		log.Exitf("failed to build instrument: %v", err)
	}
	e := cfg.Engine
	if *backend != "" {
		e.Backend = *backend
	}
	if *sampleRate > 0 {
		e.SampleRate = *sampleRate
	}
	if *blockSize > 0 {
		e.BlockSize = *blockSize
	}
	if *voices > 0 {
		e.Voices = *voices
	}

	pl, err := wtsynth.NewPlayer(inst, e.SampleRate,
		wtsynth.WithBackend(e.Backend),
		wtsynth.WithBlockSize(e.BlockSize),
		wtsynth.WithVoices(e.Voices),
		wtsynth.WithSilenceThreshold(e.SilenceThreshold))
	if err != nil {
		log.Exitf("failed to create player: %v", err)
	}
	if wave, err := cfg.LFO.WaveformID(); err == nil && cfg.LFO.Depth != 0 {
		pl.SetPitchLFO(cfg.LFO.Depth, cfg.LFO.Rate, wave)
	}
	if err := pl.Start(); err != nil {
		log.Exitf("failed to start audio: %v", err)
	}
	defer pl.Close()
	log.Infof("playing %q on %s at %d Hz, %d voices", inst.Name, e.Backend, e.SampleRate, e.Voices)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch {
	case *keys:
		err = playKeys(ctx, pl, *note, *velocity, *duration)
	case *scriptPath != "":
		err = script.NewRunner(pl, script.SleepClock{}).RunFile(ctx, *scriptPath)
	default:
		err = playOne(ctx, pl, *note, *freq, *velocity, *duration)
	}
	if err != nil && ctx.Err() == nil {
		log.Errorf("playback failed: %v", err)
	}
	pl.AllNotesOff()
	waitIdle(pl, 2*time.Second)
	st := pl.Stats()
	log.Infof("done: %d blocks, %d unavailable, %d discarded", st.Blocks, st.Unavailable, st.Discarded)
}

func loadBank(path, waveform string) (*bank.Config, error) {
	if path == "" {
		return bank.Single(waveform), nil
	}
	return bank.Load(path)
}

func playOne(ctx context.Context, pl *wtsynth.Player, note int, freq float64, velocity int, d time.Duration) error {
	var id int
	if freq > 0 {
		id = pl.NoteOnFrequency(freq, velocity)
	} else {
		id = pl.NoteOn(note, velocity)
	}
	if id < 0 {
		log.Warningf("instrument has no sample for note %d", note)
		return nil
	}
	if err := (script.SleepClock{}).Wait(ctx, d); err != nil {
		return err
	}
	pl.NoteOff(id)
	return nil
}

// waitIdle gives released notes time to finish before the streams close.
func waitIdle(pl *wtsynth.Player, limit time.Duration) {
	deadline := time.Now().Add(limit)
	for pl.ActiveVoiceCount() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
}
