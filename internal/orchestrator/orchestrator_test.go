package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fee-elasticity-lab/internal/config"
	"fee-elasticity-lab/internal/domain"
	"fee-elasticity-lab/internal/elasticity"
	"fee-elasticity-lab/internal/fixtures"
	"fee-elasticity-lab/internal/metrics"
	"fee-elasticity-lab/internal/storage/memory"
)

type testStores struct {
	trades    *memory.TradeStore
	estimates *memory.EstimateStore
	results   *memory.ScenarioResultStore
	mirror    *memory.ScenarioResultStore
}

func newTestStores() testStores {
	return testStores{
		trades:    memory.NewTradeStore(),
		estimates: memory.NewEstimateStore(),
		results:   memory.NewScenarioResultStore(),
		mirror:    memory.NewScenarioResultStore(),
	}
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.BootstrapN = 20
	cfg.ScenariosPerRun = 50
	cfg.Workers = 4
	return cfg
}

func testTrades(t *testing.T) []domain.TradeRecord {
	t.Helper()
	syn := fixtures.DefaultSyntheticConfig()
	syn.Days = 60
	trades, err := fixtures.GenerateTrades(syn)
	require.NoError(t, err)
	return trades
}

func newTestOrchestrator(s testStores, cfg config.Config) *Orchestrator {
	return New(Options{
		TradeStore:    s.trades,
		EstimateStore: s.estimates,
		ResultStore:   s.results,
		MirrorStore:   s.mirror,
		Config:        cfg,
	})
}

func TestOrchestrator_Run(t *testing.T) {
	ctx := context.Background()
	s := newTestStores()
	cfg := testConfig()

	res, err := newTestOrchestrator(s, cfg).Run(ctx, testTrades(t))
	require.NoError(t, err)

	assert.Len(t, res.RunID, 16)
	assert.Equal(t, 240, res.TradesLoaded)
	assert.False(t, res.Reused)

	require.Len(t, res.Calibration.Estimates, 4)
	for _, e := range res.Calibration.Estimates {
		assert.False(t, e.Fallback, e.Segment)
		assert.Equal(t, 60, e.SampleSize)
		assert.GreaterOrEqual(t, e.Beta, cfg.ElasticityBounds.Min)
		assert.LessOrEqual(t, e.Beta, cfg.ElasticityBounds.Max)
	}

	require.Len(t, res.Results, 50)
	for i, r := range res.Results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, res.RunID, r.RunID)
	}
	require.Len(t, res.Top, cfg.TopK)
	for i := 1; i < len(res.Top); i++ {
		assert.GreaterOrEqual(t, res.Top[i-1].Metrics.RevenueUpliftPct, res.Top[i].Metrics.RevenueUpliftPct)
	}

	require.NotNil(t, res.Stress)
	assert.Equal(t, res.Top[0].Scenario.ScenarioID, res.Stress.ScenarioID)
	assert.Equal(t, res.Top[0].Metrics, res.Stress.Base)

	// Persisted to primary and mirror
	cal, err := s.estimates.GetByRunID(ctx, res.RunID)
	require.NoError(t, err)
	assert.Len(t, cal.Estimates, 4)

	stored, err := s.results.GetByRunID(ctx, res.RunID)
	require.NoError(t, err)
	assert.Len(t, stored, 50)

	mirrored, err := s.mirror.GetByRunID(ctx, res.RunID)
	require.NoError(t, err)
	assert.Len(t, mirrored, 50)
}

func TestOrchestrator_Run_Deterministic(t *testing.T) {
	ctx := context.Background()
	trades := testTrades(t)

	a, err := newTestOrchestrator(newTestStores(), testConfig()).Run(ctx, trades)
	require.NoError(t, err)
	b, err := newTestOrchestrator(newTestStores(), testConfig()).Run(ctx, trades)
	require.NoError(t, err)

	assert.Equal(t, a.RunID, b.RunID)
	assert.Equal(t, a.Calibration, b.Calibration)
	assert.Equal(t, a.Results, b.Results)
	assert.Equal(t, a.Stress, b.Stress)
}

func TestOrchestrator_Run_RepeatReusesStoredRun(t *testing.T) {
	ctx := context.Background()
	s := newTestStores()
	trades := testTrades(t)

	first, err := newTestOrchestrator(s, testConfig()).Run(ctx, trades)
	require.NoError(t, err)

	second, err := newTestOrchestrator(s, testConfig()).Run(ctx, trades)
	require.NoError(t, err)

	assert.True(t, second.Reused)
	assert.Equal(t, first.RunID, second.RunID)
	assert.Equal(t, first.Results, second.Results)

	stored, err := s.results.GetByRunID(ctx, first.RunID)
	require.NoError(t, err)
	assert.Len(t, stored, 50)
}

func TestOrchestrator_Run_SparseSegmentsFallBack(t *testing.T) {
	cfg := testConfig()
	cfg.MinSamples = 1000

	res, err := newTestOrchestrator(newTestStores(), cfg).Run(context.Background(), testTrades(t))
	require.NoError(t, err)

	for _, e := range res.Calibration.Estimates {
		assert.True(t, e.Fallback)
		assert.Equal(t, cfg.FallbackBeta, e.Beta)
	}
}

func TestOrchestrator_Run_NoTrades(t *testing.T) {
	_, err := newTestOrchestrator(newTestStores(), testConfig()).Run(context.Background(), nil)
	assert.ErrorIs(t, err, metrics.ErrNoTrades)
}

func TestOrchestrator_Run_SameDayTradesAreKept(t *testing.T) {
	ctx := context.Background()
	trades := testTrades(t)

	extra := trades[0]
	extra.Volume *= 1.1
	repeat := trades[1]
	trades = append(trades, extra, repeat)

	s := newTestStores()
	res, err := newTestOrchestrator(s, testConfig()).Run(ctx, trades)
	require.NoError(t, err)
	assert.Equal(t, 242, res.TradesLoaded)

	stored, err := s.trades.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 242)
}

func TestOrchestrator_Run_PartialOverlapAddsNewTrades(t *testing.T) {
	ctx := context.Background()
	s := newTestStores()
	trades := testTrades(t)

	first, err := newTestOrchestrator(s, testConfig()).Run(ctx, trades[:200])
	require.NoError(t, err)
	assert.Equal(t, 200, first.TradesLoaded)

	second, err := newTestOrchestrator(s, testConfig()).Run(ctx, trades[100:])
	require.NoError(t, err)
	assert.Equal(t, 240, second.TradesLoaded)
	assert.False(t, second.Reused)
	assert.NotEqual(t, first.RunID, second.RunID)

	full, err := newTestOrchestrator(newTestStores(), testConfig()).Run(ctx, trades)
	require.NoError(t, err)
	assert.Equal(t, full.RunID, second.RunID)
	assert.Equal(t, full.Calibration, second.Calibration)
}

func TestOrchestrator_Run_ChangedConfigIsNotReused(t *testing.T) {
	ctx := context.Background()
	s := newTestStores()
	trades := testTrades(t)

	first, err := newTestOrchestrator(s, testConfig()).Run(ctx, trades)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.ElasticityBounds = domain.ElasticityBounds{Min: -0.02, Max: -0.01}
	cfg.FeeGrid = []float64{9, 10}
	second, err := newTestOrchestrator(s, cfg).Run(ctx, trades)
	require.NoError(t, err)

	assert.False(t, second.Reused)
	assert.NotEqual(t, first.RunID, second.RunID)

	stored, err := s.estimates.GetByRunID(ctx, second.RunID)
	require.NoError(t, err)
	assert.Equal(t, cfg.ElasticityBounds, stored.Bounds)
	for _, e := range stored.Estimates {
		assert.GreaterOrEqual(t, e.Beta, -0.02)
	}

	results, err := s.results.GetByRunID(ctx, second.RunID)
	require.NoError(t, err)
	require.Len(t, results, len(second.Results))
	assert.Equal(t, second.Results[0].Scenario.Fees, results[0].Scenario.Fees)
}

func TestOrchestrator_Run_RejectsInvalidTrades(t *testing.T) {
	trades := testTrades(t)
	trades[5].Volume = 0

	_, err := newTestOrchestrator(newTestStores(), testConfig()).Run(context.Background(), trades)
	assert.ErrorIs(t, err, elasticity.ErrInvalidInput)
}

func TestOrchestrator_StressScenario(t *testing.T) {
	cfg := testConfig()
	o := newTestOrchestrator(newTestStores(), cfg)

	a, err := o.StressScenario()
	require.NoError(t, err)
	b, err := o.StressScenario()
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, 0, len(a.Fees)-len(cfg.Segments))
}
