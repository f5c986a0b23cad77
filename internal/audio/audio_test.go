package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"
)

func TestNewPoolRejectsBadBlockSize(t *testing.T) {
	for _, n := range []int{0, -8, 12, 100} {
		if _, err := NewPool(n, 4); !errors.Is(err, ErrBlockSize) {
			t.Errorf("NewPool(%d) err = %v, want ErrBlockSize", n, err)
		}
	}
	if _, err := NewPool(128, 0); err == nil {
		t.Error("zero capacity should fail")
	}
}

func TestPoolExhaustionReturnsNil(t *testing.T) {
	p, err := NewPool(16, 2)
	if err != nil {
		t.Fatal(err)
	}
	a, b := p.Acquire(), p.Acquire()
	if a == nil || b == nil {
		t.Fatal("pool should hand out its capacity")
	}
	if p.Acquire() != nil {
		t.Fatal("empty pool should return nil")
	}
	p.Release(a)
	if p.Available() != 1 {
		t.Fatalf("available = %d, want 1", p.Available())
	}
	p.Release(&Block{Data: make([]int16, 8)})
	if p.Available() != 1 {
		t.Fatal("wrong-sized block should be dropped")
	}
	p.Release(b)
	p.Release(&Block{Data: make([]int16, 16)})
	if p.Available() != 2 {
		t.Fatalf("available = %d, want capacity 2", p.Available())
	}
}

// rampSource yields blocks counting up from 1, then nothing once n blocks
// have been produced.
type rampSource struct {
	pool *Pool
	n    int
	next int16
}

func (s *rampSource) GenerateBlock() (*Block, bool) {
	if s.n == 0 {
		return nil, false
	}
	b := s.pool.Acquire()
	if b == nil {
		return nil, false
	}
	s.n--
	for i := range b.Data {
		s.next++
		b.Data[i] = s.next
	}
	return b, true
}

func TestStreamReaderDuplicatesChannels(t *testing.T) {
	pool, _ := NewPool(8, 1)
	src := &rampSource{pool: pool, n: 2}
	r := NewStreamReader(src, pool, 8)

	// 12 frames spans a block boundary with pending samples carried over.
	p := make([]byte, 12*FrameBytes)
	n, err := r.Read(p)
	if err != nil || n != len(p) {
		t.Fatalf("Read = %d, %v", n, err)
	}
	for i := 0; i < 12; i++ {
		l := int16(binary.LittleEndian.Uint16(p[i*FrameBytes:]))
		rr := int16(binary.LittleEndian.Uint16(p[i*FrameBytes+bytesPerSample:]))
		if l != int16(i+1) || rr != l {
			t.Fatalf("frame %d = (%d, %d), want (%d, %d)", i, l, rr, i+1, i+1)
		}
	}
	if pool.Available() != 1 {
		t.Fatal("blocks should be released back to the pool after copying")
	}

	p = make([]byte, 12*FrameBytes)
	r.Read(p)
	for i := 0; i < 4; i++ {
		if v := int16(binary.LittleEndian.Uint16(p[i*FrameBytes:])); v != int16(13+i) {
			t.Fatalf("frame %d = %d, want %d", i, v, 13+i)
		}
	}
	for i := 4; i < 12; i++ {
		if v := binary.LittleEndian.Uint16(p[i*FrameBytes:]); v != 0 {
			t.Fatalf("frame %d = %d, want silence after the source ran dry", i, v)
		}
	}
	if r.SilentBlocks() != 1 {
		t.Fatalf("silent blocks = %d, want 1", r.SilentBlocks())
	}
}

func TestStreamReaderShortBuffer(t *testing.T) {
	r := NewStreamReader(&rampSource{}, nil, 8)
	if n, err := r.Read(make([]byte, 3)); n != 0 || err != nil {
		t.Fatalf("Read of partial frame = %d, %v", n, err)
	}
}

type countingSink struct {
	blocks  int
	samples []int16
}

func (s *countingSink) Submit(b *Block) {
	s.blocks++
	s.samples = append(s.samples, b.Data...)
}

func TestDriverStepSubmitsSilenceWhenUnavailable(t *testing.T) {
	pool, _ := NewPool(8, 2)
	src := &rampSource{pool: pool, n: 1}
	sink := &countingSink{}
	d := NewDriver(src, pool, sink, 8, 0)

	if !d.Step() {
		t.Fatal("first step should produce a block")
	}
	if d.Step() {
		t.Fatal("second step should report unavailable")
	}
	if sink.blocks != 2 || len(sink.samples) != 16 {
		t.Fatalf("sink got %d blocks / %d samples", sink.blocks, len(sink.samples))
	}
	for _, v := range sink.samples[8:] {
		if v != 0 {
			t.Fatal("unavailable block should be delivered as silence")
		}
	}
	if d.Blocks() != 1 || d.SilentBlocks() != 1 {
		t.Fatalf("counters = %d/%d", d.Blocks(), d.SilentBlocks())
	}
	if pool.Available() != 2 {
		t.Fatal("driver should release delivered blocks")
	}
}

func TestDriverRunStopsOnCancel(t *testing.T) {
	pool, _ := NewPool(8, 2)
	d := NewDriver(&rampSource{pool: pool, n: 1 << 30}, pool, &Collector{}, 8, time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := d.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run err = %v", err)
	}
	if d.Blocks() == 0 {
		t.Fatal("ticker-paced driver produced nothing")
	}
}

func TestBlockPeriod(t *testing.T) {
	if got := BlockPeriod(48000, 480); got != 10*time.Millisecond {
		t.Fatalf("BlockPeriod = %v", got)
	}
}
