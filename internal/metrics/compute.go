// Package metrics turns projected per-segment volumes into decision metrics.
package metrics

import (
	"fmt"

	"fee-elasticity-lab/internal/decision"
	"fee-elasticity-lab/internal/domain"
)

// DefaultLiquidityAlpha is the default weight on volume lost in LiquidityProxy.
const DefaultLiquidityAlpha = 0.5

// ShareSegments are the segments whose combined volume stands in for market share.
var ShareSegments = []domain.Segment{domain.SegmentRetailBroker, domain.SegmentPropFirm}

// ComputeMetrics evaluates a projected state against the baseline.
//
// Base revenue iterates baseVolume and needs every key in baseFee; new revenue
// iterates newVolume and needs every key in newFee. A missing key fails with
// domain.ErrMissingSegment. Ratios against a non-positive base are reported as 0.
func ComputeMetrics(
	baseVolume, baseFee, newVolume, newFee domain.SegmentValues,
	liquidityAlpha float64,
) (domain.DecisionMetrics, error) {
	baseRevenue, err := revenue(baseVolume, baseFee)
	if err != nil {
		return domain.DecisionMetrics{}, fmt.Errorf("base revenue: %w", err)
	}
	newRevenue, err := revenue(newVolume, newFee)
	if err != nil {
		return domain.DecisionMetrics{}, fmt.Errorf("new revenue: %w", err)
	}

	baseTotal := baseVolume.Sum()
	newTotal := newVolume.Sum()

	volumeShift := pctChange(newTotal, baseTotal)
	revenueUplift := pctChange(newRevenue, baseRevenue)
	shareUplift := pctChange(subsetSum(newVolume, ShareSegments), subsetSum(baseVolume, ShareSegments))

	return domain.DecisionMetrics{
		Revenue:              newRevenue,
		VolumeTotal:          newTotal,
		VolumeShiftPct:       volumeShift,
		RevenueUpliftPct:     revenueUplift,
		MarketShareUpliftPct: shareUplift,
		LiquidityProxy:       newTotal - liquidityAlpha*max(0, baseTotal-newTotal),
		RiskFlag:             decision.ClassifyRisk(volumeShift, revenueUplift),
	}, nil
}

// revenue sums volume × fee over the volume keys, in sorted key order.
func revenue(volume, fee domain.SegmentValues) (float64, error) {
	total := 0.0
	for _, seg := range volume.Segments() {
		f, err := fee.Get(seg)
		if err != nil {
			return 0, err
		}
		total += volume[seg] * f
	}
	return total, nil
}

// subsetSum sums the given segments; absent segments count as 0.
func subsetSum(v domain.SegmentValues, segments []domain.Segment) float64 {
	total := 0.0
	for _, s := range segments {
		total += v[s]
	}
	return total
}

// pctChange returns (next/base - 1)·100, or 0 when base <= 0.
func pctChange(next, base float64) float64 {
	if base <= 0 {
		return 0
	}
	return (next/base - 1) * 100
}
