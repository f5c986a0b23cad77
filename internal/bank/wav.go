package bank

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/transforms"
	"github.com/go-audio/wav"
	log "github.com/golang/glog"
)

var ErrInvalidWAV = errors.New("bank: not a valid WAV file")

// Recording is a decoded mono WAV file.
type Recording struct {
	PCM        []int16
	SampleRate int
	// LoopStart and LoopEnd come from the first loop of the smpl chunk, as a
	// half-open frame range. Both are zero when the file has no loop.
	LoopStart int
	LoopEnd   int
	// RootNote is the smpl chunk's unity note, or -1 if absent.
	RootNote int
}

// LoadWAV decodes path to 16-bit mono. Multi-channel files are downmixed.
func LoadWAV(path string) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV at %q: %w", path, err)
	}
	defer f.Close()
	rec, err := DecodeWAV(f)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", path, err)
	}
	log.V(1).Infof("bank: loaded %q: %d frames at %d Hz, loop [%d, %d), root note %d",
		path, len(rec.PCM), rec.SampleRate, rec.LoopStart, rec.LoopEnd, rec.RootNote)
	return rec, nil
}

// DecodeWAV reads a WAV stream. The sampler metadata is read in a first pass,
// then the stream is rewound for the PCM data.
func DecodeWAV(r io.ReadSeeker) (*Recording, error) {
	rec := &Recording{RootNote: -1}

	meta := wav.NewDecoder(r)
	if !meta.IsValidFile() {
		return nil, ErrInvalidWAV
	}
	meta.ReadMetadata()
	if m := meta.Metadata; m != nil && m.SamplerInfo != nil {
		si := m.SamplerInfo
		if si.MIDIUnityNote > 0 && si.MIDIUnityNote < 128 {
			rec.RootNote = int(si.MIDIUnityNote)
		}
		if len(si.Loops) > 0 && si.Loops[0] != nil {
			// smpl loop ends are inclusive.
			rec.LoopStart = int(si.Loops[0].Start)
			rec.LoopEnd = int(si.Loops[0].End) + 1
		}
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind: %w", err)
	}
	dec := wav.NewDecoder(r)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode PCM: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 {
		return nil, ErrInvalidWAV
	}
	rec.SampleRate = buf.Format.SampleRate

	fb := buf.AsFloatBuffer()
	if err := transforms.MonoDownmix(fb); err != nil {
		return nil, fmt.Errorf("downmix: %w", err)
	}
	rec.PCM = toInt16(fb, int(dec.BitDepth))
	if rec.LoopEnd > len(rec.PCM) {
		log.Warningf("bank: smpl loop end %d past %d frames, ignoring loop", rec.LoopEnd, len(rec.PCM))
		rec.LoopStart, rec.LoopEnd = 0, 0
	}
	return rec, nil
}

// toInt16 rescales decoded integer samples of the given bit depth to 16 bits.
// 8-bit WAV data is unsigned.
func toInt16(fb *audio.FloatBuffer, bitDepth int) []int16 {
	out := make([]int16, len(fb.Data))
	for i, v := range fb.Data {
		switch {
		case bitDepth == 8:
			v = (v - 128) * 256
		case bitDepth > 16:
			v /= float64(int64(1) << (bitDepth - 16))
		}
		out[i] = int16(max(-32768, min(32767, v)))
	}
	return out
}
