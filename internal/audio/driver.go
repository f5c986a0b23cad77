package audio

import (
	"context"
	"sync/atomic"
	"time"
)

// Driver pushes blocks from a source into a sink, one per period. With a
// zero period the sink sets the pace, as a blocking device write does.
//
// When the source has nothing available the driver submits a silent block
// so the sink's timeline stays continuous.
type Driver struct {
	src     BlockSource
	alloc   Allocator
	sink    Sink
	period  time.Duration
	silence *Block

	blocks atomic.Uint64
	silent atomic.Uint64
}

func NewDriver(src BlockSource, alloc Allocator, sink Sink, blockSamples int, period time.Duration) *Driver {
	return &Driver{
		src:     src,
		alloc:   alloc,
		sink:    sink,
		period:  period,
		silence: &Block{Data: make([]int16, blockSamples)},
	}
}

// BlockPeriod is the wall-clock length of one block.
func BlockPeriod(sampleRate, blockSamples int) time.Duration {
	return time.Duration(blockSamples) * time.Second / time.Duration(sampleRate)
}

// Step produces and delivers one block. It reports whether the source had a
// block available.
func (d *Driver) Step() bool {
	b, ok := d.src.GenerateBlock()
	if !ok {
		d.silent.Add(1)
		d.sink.Submit(d.silence)
		return false
	}
	d.blocks.Add(1)
	d.sink.Submit(b)
	if d.alloc != nil {
		d.alloc.Release(b)
	}
	return true
}

// Run steps until ctx is cancelled.
func (d *Driver) Run(ctx context.Context) error {
	if d.period <= 0 {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			d.Step()
		}
	}
	ticker := time.NewTicker(d.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.Step()
		}
	}
}

// Blocks counts blocks delivered from the source.
func (d *Driver) Blocks() uint64 { return d.blocks.Load() }

// SilentBlocks counts silent blocks submitted in place of unavailable ones.
func (d *Driver) SilentBlocks() uint64 { return d.silent.Load() }
