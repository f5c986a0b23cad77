// Package audio holds the collaborators around the voice pipeline: the block
// provider, the sinks blocks are delivered to, and the stream adapters that
// feed them to an output.
package audio

import (
	"errors"
	"fmt"

	"github.com/cbegin/wtsynth-go/internal/envelope"
)

// ErrBlockSize is returned for block sizes that are not a positive multiple
// of the envelope tick.
var ErrBlockSize = errors.New("audio: block size must be a positive multiple of 8 samples")

// Block is one fixed-size run of mono 16-bit samples.
type Block struct {
	Data []int16
}

// Allocator hands out blocks. Acquire returns nil when nothing is free and
// must never block.
type Allocator interface {
	Acquire() *Block
	Release(*Block)
}

// Sink receives finished blocks. It must not retain a block after Submit
// returns; the caller releases it.
type Sink interface {
	Submit(*Block)
}

// BlockSource produces blocks. ok is false when no block is available, either
// because the source is silent or because allocation failed.
type BlockSource interface {
	GenerateBlock() (b *Block, ok bool)
}

// Pool is a fixed-capacity free list of equally sized blocks.
type Pool struct {
	size int
	free chan *Block
}

// NewPool preallocates capacity blocks of blockSamples samples each.
func NewPool(blockSamples, capacity int) (*Pool, error) {
	if blockSamples <= 0 || blockSamples%envelope.TickSamples != 0 {
		return nil, fmt.Errorf("%w (got %d)", ErrBlockSize, blockSamples)
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("audio: pool capacity must be positive (got %d)", capacity)
	}
	p := &Pool{size: blockSamples, free: make(chan *Block, capacity)}
	for i := 0; i < capacity; i++ {
		p.free <- &Block{Data: make([]int16, blockSamples)}
	}
	return p, nil
}

// Acquire takes a block from the pool, or returns nil if the pool is empty.
func (p *Pool) Acquire() *Block {
	select {
	case b := <-p.free:
		return b
	default:
		return nil
	}
}

// Release returns b to the pool. Blocks of the wrong size, and blocks beyond
// the pool's capacity, are dropped.
func (p *Pool) Release(b *Block) {
	if b == nil || len(b.Data) != p.size {
		return
	}
	select {
	case p.free <- b:
	default:
	}
}

// BlockSamples is the number of samples in each block.
func (p *Pool) BlockSamples() int { return p.size }

// Available reports how many blocks are currently free.
func (p *Pool) Available() int { return len(p.free) }

// Collector is a Sink that appends every block it receives. It is used for
// offline rendering.
type Collector struct {
	Samples []int16
}

func (c *Collector) Submit(b *Block) {
	c.Samples = append(c.Samples, b.Data...)
}
