// Package simulation projects segment volumes under candidate fee schedules.
package simulation

import (
	"math"

	"fee-elasticity-lab/internal/domain"
)

// Respond projects one segment's volume under a fee change:
// v1 = max(0, v0 · exp(β·(f1 − f0)) · (1 + shock)).
func Respond(baseVolume, baseFee, newFee, elasticity, shock float64) float64 {
	v := baseVolume * math.Exp(elasticity*(newFee-baseFee)) * (1 + shock)
	return max(0, v)
}

// ApplyFeeResponse projects every segment in baseVolume. baseFee, newFee and
// elasticity must cover all of baseVolume's keys; extra keys are ignored.
// Segments respond independently.
func ApplyFeeResponse(
	baseVolume, baseFee, newFee, elasticity domain.SegmentValues,
	shock float64,
) (domain.SegmentValues, error) {
	out := make(domain.SegmentValues, len(baseVolume))
	for _, seg := range baseVolume.Segments() {
		f0, err := baseFee.Get(seg)
		if err != nil {
			return nil, err
		}
		f1, err := newFee.Get(seg)
		if err != nil {
			return nil, err
		}
		beta, err := elasticity.Get(seg)
		if err != nil {
			return nil, err
		}
		out[seg] = Respond(baseVolume[seg], f0, f1, beta, shock)
	}
	return out, nil
}
