// Package ranking orders evaluated scenarios for review.
package ranking

import (
	"sort"

	"fee-elasticity-lab/internal/domain"
)

// DefaultTopK is the number of scenarios kept when k <= 0.
const DefaultTopK = 15

// Rank returns the best k results ordered by RevenueUpliftPct DESC, then
// VolumeShiftPct DESC, then LiquidityProxy DESC. The sort is stable, so full
// ties keep input order. The input slice is not modified.
func Rank(results []domain.ScenarioResult, k int) []domain.ScenarioResult {
	if k <= 0 {
		k = DefaultTopK
	}

	sorted := make([]domain.ScenarioResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Metrics, sorted[j].Metrics
		if a.RevenueUpliftPct != b.RevenueUpliftPct {
			return a.RevenueUpliftPct > b.RevenueUpliftPct
		}
		if a.VolumeShiftPct != b.VolumeShiftPct {
			return a.VolumeShiftPct > b.VolumeShiftPct
		}
		return a.LiquidityProxy > b.LiquidityProxy
	})

	if k < len(sorted) {
		sorted = sorted[:k]
	}
	return sorted
}
