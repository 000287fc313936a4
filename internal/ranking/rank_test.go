package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fee-elasticity-lab/internal/domain"
)

func result(idx int, rev, vol, liq float64) domain.ScenarioResult {
	return domain.ScenarioResult{
		RunID: "r",
		Index: idx,
		Metrics: domain.DecisionMetrics{
			RevenueUpliftPct: rev,
			VolumeShiftPct:   vol,
			LiquidityProxy:   liq,
		},
	}
}

func indices(rs []domain.ScenarioResult) []int {
	out := make([]int, len(rs))
	for i, r := range rs {
		out[i] = r.Index
	}
	return out
}

func TestRank_MultiKeyOrder(t *testing.T) {
	in := []domain.ScenarioResult{
		result(0, 5, -2, 100),
		result(1, 8, -5, 90),
		result(2, 5, 1, 80),
		result(3, 5, 1, 120),
		result(4, -1, 3, 200),
	}

	got := Rank(in, 10)
	assert.Equal(t, []int{1, 3, 2, 0, 4}, indices(got))
}

func TestRank_StableForFullTies(t *testing.T) {
	in := []domain.ScenarioResult{
		result(0, 1, 1, 1),
		result(1, 1, 1, 1),
		result(2, 1, 1, 1),
	}
	assert.Equal(t, []int{0, 1, 2}, indices(Rank(in, 3)))
}

func TestRank_TopK(t *testing.T) {
	var in []domain.ScenarioResult
	for i := 0; i < 40; i++ {
		in = append(in, result(i, float64(i), 0, 0))
	}

	got := Rank(in, 5)
	require.Len(t, got, 5)
	assert.Equal(t, []int{39, 38, 37, 36, 35}, indices(got))

	assert.Len(t, Rank(in, 0), DefaultTopK)
	assert.Len(t, Rank(in, -3), DefaultTopK)
	assert.Len(t, Rank(in[:3], 10), 3)
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	in := []domain.ScenarioResult{result(0, 1, 0, 0), result(1, 2, 0, 0)}
	_ = Rank(in, 2)
	assert.Equal(t, []int{0, 1}, indices(in))
}

func TestRank_Empty(t *testing.T) {
	assert.Empty(t, Rank(nil, 5))
}
