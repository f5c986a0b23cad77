package wavetable

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrNoRanges      = errors.New("wavetable: instrument has no ranges")
	ErrRangeOrder    = errors.New("wavetable: range thresholds must be non-decreasing")
	ErrMissingSample = errors.New("wavetable: range has no sample")
)

// Range maps every note up to and including Threshold onto Sample, unless an
// earlier range already claimed it.
type Range struct {
	Threshold int
	Sample    *Sample
}

// Instrument is an ordered set of note ranges.
type Instrument struct {
	Name   string
	Ranges []Range
}

// NewInstrument builds and validates an instrument.
func NewInstrument(name string, ranges ...Range) (*Instrument, error) {
	in := &Instrument{Name: name, Ranges: ranges}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return in, nil
}

// Validate checks range ordering and every referenced sample.
func (in *Instrument) Validate() error {
	if len(in.Ranges) == 0 {
		return fmt.Errorf("%q: %w", in.Name, ErrNoRanges)
	}
	for i, r := range in.Ranges {
		if r.Sample == nil {
			return fmt.Errorf("%q range %d: %w", in.Name, i, ErrMissingSample)
		}
		if i > 0 && r.Threshold < in.Ranges[i-1].Threshold {
			return fmt.Errorf("%q range %d: %w", in.Name, i, ErrRangeOrder)
		}
		if err := r.Sample.Validate(); err != nil {
			return fmt.Errorf("%q range %d: %w", in.Name, i, err)
		}
	}
	return nil
}

// Lookup returns the sample of the first range whose threshold is at least
// note, or nil if note lies above every range.
func (in *Instrument) Lookup(note int) *Sample {
	if in == nil {
		return nil
	}
	i := sort.Search(len(in.Ranges), func(i int) bool {
		return in.Ranges[i].Threshold >= note
	})
	if i == len(in.Ranges) {
		return nil
	}
	return in.Ranges[i].Sample
}
