package domain

import (
	"errors"
	"fmt"
	"sort"
)

// ErrMissingSegment is returned when a per-segment map lacks a key that
// another map in the same computation references.
var ErrMissingSegment = errors.New("missing segment")

// Segment identifies a counterparty category with its own fee response.
type Segment string

// Default segment set.
const (
	SegmentRetailBroker Segment = "retail_broker"
	SegmentBank         Segment = "bank"
	SegmentMarketMaker  Segment = "market_maker"
	SegmentPropFirm     Segment = "prop_firm"
)

// DefaultSegments returns the default segment order.
func DefaultSegments() []Segment {
	return []Segment{SegmentRetailBroker, SegmentBank, SegmentMarketMaker, SegmentPropFirm}
}

// SegmentValues maps segments to a real value (volume, fee in bps, elasticity).
//
// All SegmentValues passed together into one computation must share the same
// key set. Lookups of an absent key fail with ErrMissingSegment; nothing is
// default-filled.
type SegmentValues map[Segment]float64

// Get returns the value for seg or ErrMissingSegment.
func (v SegmentValues) Get(seg Segment) (float64, error) {
	x, ok := v[seg]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrMissingSegment, seg)
	}
	return x, nil
}

// RequireKeys checks that every segment is present.
func (v SegmentValues) RequireKeys(segments ...Segment) error {
	for _, s := range segments {
		if _, ok := v[s]; !ok {
			return fmt.Errorf("%w: %q", ErrMissingSegment, s)
		}
	}
	return nil
}

// Sum returns the sum over all values.
// Summation runs in sorted key order so totals are bit-reproducible.
func (v SegmentValues) Sum() float64 {
	total := 0.0
	for _, s := range v.Segments() {
		total += v[s]
	}
	return total
}

// Segments returns the keys sorted lexically.
func (v SegmentValues) Segments() []Segment {
	out := make([]Segment, 0, len(v))
	for s := range v {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns an independent copy.
func (v SegmentValues) Clone() SegmentValues {
	out := make(SegmentValues, len(v))
	for k, x := range v {
		out[k] = x
	}
	return out
}

// Baseline is the reference state scenarios are compared against.
type Baseline struct {
	Volume SegmentValues // mean historical volume per segment
	Fee    SegmentValues // mean historical fee (bps) per segment
}
