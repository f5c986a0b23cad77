package main

import (
	"context"
	"flag"
	"os"
	"time"

	log "github.com/golang/glog"

	"github.com/cbegin/wtsynth-go"
	"github.com/cbegin/wtsynth-go/internal/bank"
)

func main() {
	var (
		bankPath   = flag.String("bank", "", "path to a TOML instrument bank")
		waveform   = flag.String("waveform", "sine", "single-cycle waveform when no -bank is given")
		sampleRate = flag.Int("sample-rate", 0, "output sample rate (default from bank)")
		blockSize  = flag.Int("block-size", 0, "samples per block (default from bank)")
		voices     = flag.Int("voices", 0, "polyphony (default from bank)")
		note       = flag.Int("note", 60, "MIDI note to render")
		velocity   = flag.Int("velocity", 100, "MIDI velocity 0..127")
		hold       = flag.Duration("hold", time.Second, "how long the note is held")
		tail       = flag.Duration("tail", 2*time.Second, "longest release tail to render")
		scriptPath = flag.String("script", "", "Lua note script to render instead of a single note")
		outPath    = flag.String("o", "out.wav", "output WAV path")
	)
	flag.Parse()

	var cfg *bank.Config
	var err error
	if *bankPath != "" {
		cfg, err = bank.Load(*bankPath)
	} else {
		cfg = bank.Single(*waveform)
	}
	if err != nil {
		log.Exitf("failed to load bank: %v", err)
	}
	inst, err := cfg.BuildInstrument()
	if err != nil {
		log.Exitf("failed to build instrument: %v", err)
	}
	e := cfg.Engine
	if *sampleRate > 0 {
		e.SampleRate = *sampleRate
	}
	if *blockSize > 0 {
		e.BlockSize = *blockSize
	}
	if *voices > 0 {
		e.Voices = *voices
	}
	opts := []wtsynth.PlayerOption{
		wtsynth.WithBlockSize(e.BlockSize),
		wtsynth.WithVoices(e.Voices),
		wtsynth.WithSilenceThreshold(e.SilenceThreshold),
	}

	var samples []int16
	if *scriptPath != "" {
		src, err := os.ReadFile(*scriptPath)
		if err != nil {
			log.Exitf("failed to read script: %v", err)
		}
		samples, err = wtsynth.RenderScript(context.Background(), inst, e.SampleRate, string(src), *tail, opts...)
		if err != nil {
			log.Exitf("failed to render script: %v", err)
		}
	} else {
		samples, err = wtsynth.RenderNote(inst, e.SampleRate, *note, *velocity, *hold, *tail, opts...)
		if err != nil {
			log.Exitf("failed to render note: %v", err)
		}
	}

	f, err := os.Create(*outPath)
	if err != nil {
		log.Exitf("failed to create %q: %v", *outPath, err)
	}
	if err := wtsynth.EncodeWAV(f, samples, e.SampleRate); err != nil {
		f.Close()
		log.Exitf("failed to write %q: %v", *outPath, err)
	}
	if err := f.Close(); err != nil {
		log.Exitf("failed to close %q: %v", *outPath, err)
	}
	log.Infof("wrote %d samples (%.2fs) to %s", len(samples), float64(len(samples))/float64(e.SampleRate), *outPath)
}
