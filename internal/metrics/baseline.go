package metrics

import (
	"errors"
	"fmt"

	"fee-elasticity-lab/internal/domain"
)

// ErrNoTrades is returned when no requested segment has any history.
var ErrNoTrades = errors.New("no trades for any segment")

// BaselineFromTrades derives the reference state as the per-segment mean
// volume and mean fee. Segments without trades are left out of the baseline.
func BaselineFromTrades(trades []domain.TradeRecord, segments []domain.Segment) (domain.Baseline, error) {
	base := domain.Baseline{
		Volume: make(domain.SegmentValues, len(segments)),
		Fee:    make(domain.SegmentValues, len(segments)),
	}

	for _, seg := range segments {
		rows := domain.FilterBySegment(trades, seg)
		if len(rows) == 0 {
			continue
		}
		var volSum, feeSum float64
		for _, r := range rows {
			volSum += r.Volume
			feeSum += r.FeeBps
		}
		n := float64(len(rows))
		base.Volume[seg] = volSum / n
		base.Fee[seg] = feeSum / n
	}

	if len(base.Volume) == 0 {
		return domain.Baseline{}, fmt.Errorf("%w: %v", ErrNoTrades, segments)
	}
	return base, nil
}
