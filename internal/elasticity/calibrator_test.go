package elasticity

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fee-elasticity-lab/internal/domain"
	"fee-elasticity-lab/internal/observability"
)

var testBounds = domain.ElasticityBounds{Min: -0.80, Max: -0.01}

// exactTrades builds n rows satisfying ln(volume) = intercept + beta·fee exactly.
func exactTrades(seg domain.Segment, n int, intercept, beta float64) []domain.TradeRecord {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]domain.TradeRecord, n)
	for i := 0; i < n; i++ {
		fee := float64(2 + i%9)
		vol := math.Exp(intercept + beta*fee)
		out[i] = domain.TradeRecord{
			Segment:  seg,
			Date:     start.AddDate(0, 0, i),
			FeeBps:   fee,
			Volume:   vol,
			Notional: vol * 1.1,
		}
	}
	return out
}

// noisyTrades adds lognormal noise to exactTrades.
func noisyTrades(seg domain.Segment, n int, beta float64, seed int64) []domain.TradeRecord {
	rng := rand.New(rand.NewSource(seed))
	out := exactTrades(seg, n, 7, beta)
	for i := range out {
		out[i].Volume *= math.Exp(rng.NormFloat64() * 0.12)
	}
	return out
}

func TestCalibrate_RecoversExactSlope(t *testing.T) {
	trades := exactTrades(domain.SegmentBank, 60, 7.5, -0.07)

	cal, err := Calibrate(trades, []domain.Segment{domain.SegmentBank}, testBounds, 50, 42)
	require.NoError(t, err)
	require.Len(t, cal.Estimates, 1)

	est := cal.Estimates[0]
	assert.Equal(t, domain.SegmentBank, est.Segment)
	assert.InDelta(t, -0.07, est.Beta, 1e-9)
	assert.Equal(t, 60, est.SampleSize)
	assert.False(t, est.Fallback)
	assert.InDelta(t, 0, est.StdErr, 1e-9)
	assert.InDelta(t, -0.07, est.CILow, 1e-9)
	assert.InDelta(t, -0.07, est.CIHigh, 1e-9)
}

func TestCalibrate_ClipsToBounds(t *testing.T) {
	tests := []struct {
		name string
		beta float64
		want float64
	}{
		{name: "too steep", beta: -2.0, want: -0.80},
		{name: "positive slope", beta: 0.05, want: -0.01},
		{name: "inside bounds", beta: -0.30, want: -0.30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trades := exactTrades(domain.SegmentPropFirm, 40, 6, tt.beta)
			cal, err := Calibrate(trades, []domain.Segment{domain.SegmentPropFirm}, testBounds, 20, 1)
			require.NoError(t, err)

			est := cal.Estimates[0]
			assert.InDelta(t, tt.want, est.Beta, 1e-9)
			assert.GreaterOrEqual(t, est.CILow, testBounds.Min)
			assert.LessOrEqual(t, est.CIHigh, testBounds.Max)
		})
	}
}

func TestCalibrate_SparseSegmentFallback(t *testing.T) {
	trades := exactTrades(domain.SegmentMarketMaker, 10, 7, -0.2)

	cal, err := Calibrate(trades, []domain.Segment{domain.SegmentMarketMaker}, testBounds, 100, 42)
	require.NoError(t, err)

	est := cal.Estimates[0]
	assert.True(t, est.Fallback)
	assert.Equal(t, -0.05, est.Beta)
	assert.Equal(t, 10, est.SampleSize)
	assert.True(t, math.IsNaN(est.StdErr))
	assert.True(t, math.IsNaN(est.CILow))
	assert.True(t, math.IsNaN(est.CIHigh))
}

func TestCalibrate_FallbackIsClipped(t *testing.T) {
	bounds := domain.ElasticityBounds{Min: -0.80, Max: -0.06}

	cal, err := Calibrate(nil, []domain.Segment{domain.SegmentBank}, bounds, 10, 42)
	require.NoError(t, err)

	est := cal.Estimates[0]
	assert.True(t, est.Fallback)
	assert.Equal(t, -0.06, est.Beta)
	assert.Equal(t, 0, est.SampleSize)
}

func TestCalibrate_MissingSegmentUsesFallback(t *testing.T) {
	trades := exactTrades(domain.SegmentBank, 40, 7, -0.06)
	segs := []domain.Segment{domain.SegmentBank, domain.SegmentPropFirm}

	cal, err := Calibrate(trades, segs, testBounds, 10, 42)
	require.NoError(t, err)
	require.Len(t, cal.Estimates, 2)

	assert.False(t, cal.Estimates[0].Fallback)
	assert.True(t, cal.Estimates[1].Fallback)
	assert.Equal(t, domain.SegmentPropFirm, cal.Estimates[1].Segment)
}

func TestCalibrate_ConstantFeeIsNotAnError(t *testing.T) {
	trades := exactTrades(domain.SegmentBank, 40, 7, -0.06)
	for i := range trades {
		trades[i].FeeBps = 5
	}

	cal, err := Calibrate(trades, []domain.Segment{domain.SegmentBank}, testBounds, 10, 42)
	require.NoError(t, err)

	// Zero slope, clipped to the upper bound.
	assert.Equal(t, -0.01, cal.Estimates[0].Beta)
	assert.False(t, cal.Estimates[0].Fallback)
}

func TestCalibrate_Deterministic(t *testing.T) {
	segs := []domain.Segment{domain.SegmentRetailBroker, domain.SegmentBank}
	trades := append(
		noisyTrades(domain.SegmentRetailBroker, 120, -0.10, 5),
		noisyTrades(domain.SegmentBank, 120, -0.06, 6)...,
	)

	first, err := Calibrate(trades, segs, testBounds, 200, 42)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		again, err := Calibrate(trades, segs, testBounds, 200, 42)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	other, err := Calibrate(trades, segs, testBounds, 200, 43)
	require.NoError(t, err)
	assert.Equal(t, first.Estimates[0].Beta, other.Estimates[0].Beta, "point estimate does not depend on seed")
	assert.NotEqual(t, first.Estimates[0].StdErr, other.Estimates[0].StdErr)
}

func TestCalibrate_SegmentOrderAdvancesSharedGenerator(t *testing.T) {
	trades := append(
		noisyTrades(domain.SegmentRetailBroker, 100, -0.10, 5),
		noisyTrades(domain.SegmentBank, 100, -0.06, 6)...,
	)

	forward, err := Calibrate(trades, []domain.Segment{domain.SegmentRetailBroker, domain.SegmentBank}, testBounds, 100, 42)
	require.NoError(t, err)
	reverse, err := Calibrate(trades, []domain.Segment{domain.SegmentBank, domain.SegmentRetailBroker}, testBounds, 100, 42)
	require.NoError(t, err)

	fb, err := forward.Estimate(domain.SegmentBank)
	require.NoError(t, err)
	rb, err := reverse.Estimate(domain.SegmentBank)
	require.NoError(t, err)

	assert.Equal(t, fb.Beta, rb.Beta)
	assert.NotEqual(t, fb.StdErr, rb.StdErr)
}

func TestCalibrate_NoisyDataRecoversTruth(t *testing.T) {
	trades := noisyTrades(domain.SegmentRetailBroker, 240, -0.10, 9)

	cal, err := Calibrate(trades, []domain.Segment{domain.SegmentRetailBroker}, testBounds, 400, 42)
	require.NoError(t, err)

	est := cal.Estimates[0]
	assert.InDelta(t, -0.10, est.Beta, 0.03)
	assert.Greater(t, est.StdErr, 0.0)
	assert.LessOrEqual(t, est.CILow, est.CIHigh)
	assert.LessOrEqual(t, est.CILow, est.Beta)
	assert.GreaterOrEqual(t, est.CIHigh, est.Beta)
}

func TestCalibrate_InvalidInput(t *testing.T) {
	segs := []domain.Segment{domain.SegmentBank}

	tests := []struct {
		name      string
		segments  []domain.Segment
		bounds    domain.ElasticityBounds
		bootstrap int
	}{
		{name: "min above max", segments: segs, bounds: domain.ElasticityBounds{Min: -0.01, Max: -0.80}, bootstrap: 10},
		{name: "positive max", segments: segs, bounds: domain.ElasticityBounds{Min: -0.8, Max: 0.1}, bootstrap: 10},
		{name: "zero bootstrap", segments: segs, bounds: testBounds, bootstrap: 0},
		{name: "no segments", segments: nil, bounds: testBounds, bootstrap: 10},
		{name: "duplicate segment", segments: []domain.Segment{domain.SegmentBank, domain.SegmentBank}, bounds: testBounds, bootstrap: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Calibrate(nil, tt.segments, tt.bounds, tt.bootstrap, 42)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestCalibrate_InvalidBoundsWrapsDomainError(t *testing.T) {
	_, err := Calibrate(nil, []domain.Segment{domain.SegmentBank}, domain.ElasticityBounds{Min: 0, Max: 0}, 10, 42)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidBounds)
}

func TestCalibrator_Options(t *testing.T) {
	trades := exactTrades(domain.SegmentBank, 20, 7, -0.2)

	c := NewCalibrator(WithMinSamples(10), WithFallbackBeta(-0.3))
	cal, err := c.Calibrate(trades, []domain.Segment{domain.SegmentBank}, testBounds, 10, 42)
	require.NoError(t, err)
	assert.False(t, cal.Estimates[0].Fallback)
	assert.InDelta(t, -0.2, cal.Estimates[0].Beta, 1e-9)

	c = NewCalibrator(WithMinSamples(50), WithFallbackBeta(-0.3))
	cal, err = c.Calibrate(trades, []domain.Segment{domain.SegmentBank}, testBounds, 10, 42)
	require.NoError(t, err)
	assert.True(t, cal.Estimates[0].Fallback)
	assert.Equal(t, -0.3, cal.Estimates[0].Beta)
}

func TestCalibrate_RejectsNonFiniteRows(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.TradeRecord)
	}{
		{name: "zero volume", mutate: func(r *domain.TradeRecord) { r.Volume = 0 }},
		{name: "negative volume", mutate: func(r *domain.TradeRecord) { r.Volume = -5 }},
		{name: "infinite volume", mutate: func(r *domain.TradeRecord) { r.Volume = math.Inf(1) }},
		{name: "NaN fee", mutate: func(r *domain.TradeRecord) { r.FeeBps = math.NaN() }},
		{name: "infinite fee", mutate: func(r *domain.TradeRecord) { r.FeeBps = math.Inf(1) }},
		{name: "negative fee", mutate: func(r *domain.TradeRecord) { r.FeeBps = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trades := exactTrades(domain.SegmentBank, 40, 7, -0.1)
			tt.mutate(&trades[17])

			cal, err := Calibrate(trades, []domain.Segment{domain.SegmentBank}, testBounds, 50, 42)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Nil(t, cal)
		})
	}
}

func TestCalibrate_IgnoresBadRowsOfUnrequestedSegments(t *testing.T) {
	trades := exactTrades(domain.SegmentBank, 40, 7, -0.1)
	bad := exactTrades(domain.SegmentPropFirm, 1, 7, -0.1)
	bad[0].Volume = 0
	trades = append(trades, bad...)

	cal, err := Calibrate(trades, []domain.Segment{domain.SegmentBank}, testBounds, 20, 42)
	require.NoError(t, err)
	assert.InDelta(t, -0.1, cal.Estimates[0].Beta, 1e-9)
}

func TestCalibrate_BetaStaysWithinBounds(t *testing.T) {
	trades := noisyTrades(domain.SegmentBank, 40, -0.5, 7)

	cal, err := NewCalibrator(WithFallbackBeta(math.NaN())).
		Calibrate(trades, []domain.Segment{domain.SegmentBank, domain.SegmentPropFirm}, testBounds, 50, 42)
	require.NoError(t, err)
	for _, est := range cal.Estimates {
		assert.False(t, math.IsNaN(est.Beta), est.Segment)
		assert.GreaterOrEqual(t, est.Beta, testBounds.Min)
		assert.LessOrEqual(t, est.Beta, testBounds.Max)
	}
	assert.Equal(t, testBounds.Max, cal.Estimates[1].Beta)
}

func TestCalibrator_WithMetrics(t *testing.T) {
	m := observability.NewMetrics("calibrator_test")
	trades := exactTrades(domain.SegmentBank, 40, 7, -0.1)

	_, err := NewCalibrator(WithMetrics(m)).
		Calibrate(trades, []domain.Segment{domain.SegmentBank, domain.SegmentPropFirm}, testBounds, 25, 42)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SegmentsCalibrated.WithLabelValues("bank")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CalibrationFallback.WithLabelValues("prop_firm")))
	assert.Equal(t, 25.0, testutil.ToFloat64(m.BootstrapResamples))
	assert.InDelta(t, -0.1, testutil.ToFloat64(m.ElasticityEstimate.WithLabelValues("bank")), 1e-9)
}
