package simulation

import (
	"errors"
	"fmt"
	"math/rand"

	"fee-elasticity-lab/internal/domain"
	"fee-elasticity-lab/internal/idhash"
	"fee-elasticity-lab/internal/observability"
)

// Generator errors
var (
	ErrEmptyFeeGrid     = errors.New("fee grid is empty")
	ErrNoSegments       = errors.New("no segments")
	ErrInvalidCount     = errors.New("scenario count must be >= 0")
	ErrNegativeFee      = errors.New("fee grid contains a negative fee")
	ErrDuplicateSegment = errors.New("duplicate segment")
)

// DefaultFeeGrid is the default fee menu in bps.
func DefaultFeeGrid() []float64 {
	return []float64{2, 3, 4, 5, 6, 7, 8, 9, 10}
}

// GenerateScenarios draws count fee schedules from feeGrid.
//
// One generator seeded with seed is used for the whole batch; for each
// scenario, segments draw a fee uniformly with replacement in the given order.
// The same inputs always yield the same scenarios and IDs.
func GenerateScenarios(segments []domain.Segment, feeGrid []float64, count int, seed int64) ([]domain.Scenario, error) {
	if len(feeGrid) == 0 {
		return nil, ErrEmptyFeeGrid
	}
	if len(segments) == 0 {
		return nil, ErrNoSegments
	}
	if count < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCount, count)
	}
	for _, f := range feeGrid {
		if f < 0 {
			return nil, fmt.Errorf("%w: %v", ErrNegativeFee, f)
		}
	}
	seen := make(map[domain.Segment]struct{}, len(segments))
	for _, s := range segments {
		if _, dup := seen[s]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSegment, s)
		}
		seen[s] = struct{}{}
	}

	rng := rand.New(rand.NewSource(seed))
	out := make([]domain.Scenario, count)
	for i := 0; i < count; i++ {
		fees := make(domain.SegmentValues, len(segments))
		for _, seg := range segments {
			fees[seg] = feeGrid[rng.Intn(len(feeGrid))]
		}
		out[i] = domain.Scenario{
			ScenarioID: idhash.ComputeScenarioID(i, segments, fees),
			Fees:       fees,
		}
	}

	observability.RecordScenariosGenerated(count)
	return out, nil
}
