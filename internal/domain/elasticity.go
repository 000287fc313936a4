package domain

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidBounds is returned when elasticity bounds are not Min < Max <= 0.
var ErrInvalidBounds = errors.New("invalid elasticity bounds")

// ElasticityBounds is the closed plausibility interval for β.
type ElasticityBounds struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Validate checks Min < Max <= 0.
func (b ElasticityBounds) Validate() error {
	if math.IsNaN(b.Min) || math.IsNaN(b.Max) {
		return fmt.Errorf("%w: NaN bound", ErrInvalidBounds)
	}
	if !(b.Min < b.Max) {
		return fmt.Errorf("%w: min %.4f must be < max %.4f", ErrInvalidBounds, b.Min, b.Max)
	}
	if b.Max > 0 {
		return fmt.Errorf("%w: max %.4f must be <= 0", ErrInvalidBounds, b.Max)
	}
	return nil
}

// Clip clamps x into [Min, Max]. NaN maps to Max, the weakest response.
func (b ElasticityBounds) Clip(x float64) float64 {
	if math.IsNaN(x) {
		return b.Max
	}
	if x < b.Min {
		return b.Min
	}
	if x > b.Max {
		return b.Max
	}
	return x
}

// ElasticityEstimate is the calibrated response coefficient for one segment.
// β = d ln(Volume) / d FeeBps.
type ElasticityEstimate struct {
	Segment    Segment
	Beta       float64
	StdErr     float64 // NaN when Fallback
	CILow      float64 // 2.5th bootstrap percentile, NaN when Fallback
	CIHigh     float64 // 97.5th bootstrap percentile, NaN when Fallback
	SampleSize int
	Fallback   bool // sample below the minimum; Beta is the clipped default
}

// Calibration holds one estimate per requested segment, in request order.
type Calibration struct {
	Bounds         ElasticityBounds
	BootstrapCount int
	Seed           int64
	Estimates      []ElasticityEstimate
}

// Betas returns point estimates keyed by segment.
func (c *Calibration) Betas() SegmentValues {
	out := make(SegmentValues, len(c.Estimates))
	for _, e := range c.Estimates {
		out[e.Segment] = e.Beta
	}
	return out
}

// Estimate returns the estimate for seg.
func (c *Calibration) Estimate(seg Segment) (ElasticityEstimate, error) {
	for _, e := range c.Estimates {
		if e.Segment == seg {
			return e, nil
		}
	}
	return ElasticityEstimate{}, fmt.Errorf("%w: %q", ErrMissingSegment, seg)
}
