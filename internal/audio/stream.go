package audio

import (
	"encoding/binary"
	"io"
	"sync"
	"sync/atomic"
)

// Frame layout produced by StreamReader: interleaved 16-bit little-endian
// stereo, the mono block duplicated into both channels.
const (
	Channels       = 2
	bytesPerSample = 2
	FrameBytes     = Channels * bytesPerSample
)

// StreamReader adapts a BlockSource to the io.Reader pull model used by the
// ebiten and oto players. Blocks are copied out and released straight away;
// a source with nothing to give is read as silence.
type StreamReader struct {
	mu      sync.Mutex
	source  BlockSource
	alloc   Allocator
	buf     []int16
	pending []int16

	silent atomic.Uint64
}

func NewStreamReader(source BlockSource, alloc Allocator, blockSamples int) *StreamReader {
	return &StreamReader{source: source, alloc: alloc, buf: make([]int16, blockSamples)}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / FrameBytes
	if frames == 0 {
		return 0, nil
	}
	for i := 0; i < frames; i++ {
		if len(r.pending) == 0 {
			r.refill()
		}
		u := uint16(r.pending[0])
		r.pending = r.pending[1:]
		binary.LittleEndian.PutUint16(p[i*FrameBytes:], u)
		binary.LittleEndian.PutUint16(p[i*FrameBytes+bytesPerSample:], u)
	}
	return frames * FrameBytes, nil
}

func (r *StreamReader) refill() {
	b, ok := r.source.GenerateBlock()
	if !ok {
		r.silent.Add(1)
		clear(r.buf)
		r.pending = r.buf
		return
	}
	if len(b.Data) > cap(r.buf) {
		r.buf = make([]int16, len(b.Data))
	}
	r.buf = r.buf[:len(b.Data)]
	copy(r.buf, b.Data)
	if r.alloc != nil {
		r.alloc.Release(b)
	}
	r.pending = r.buf
}

// SilentBlocks counts the blocks read as silence because the source had
// nothing available.
func (r *StreamReader) SilentBlocks() uint64 { return r.silent.Load() }

func (r *StreamReader) Close() error { return nil }

var _ io.ReadCloser = (*StreamReader)(nil)
