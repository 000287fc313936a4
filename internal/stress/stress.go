// Package stress re-evaluates a fee schedule under exogenous volume shocks.
package stress

import (
	"fmt"

	"github.com/rs/zerolog"

	"fee-elasticity-lab/internal/domain"
	"fee-elasticity-lab/internal/metrics"
	"fee-elasticity-lab/internal/observability"
	"fee-elasticity-lab/internal/simulation"
)

// Default shocks, as fractional volume changes.
const (
	DefaultDownsideShock = -0.06
	DefaultUpsideShock   = 0.03
)

// RunStress projects volumes for one schedule under the downside and upside shocks.
func RunStress(
	baseVolume, baseFee, scenarioFee, elasticity domain.SegmentValues,
	downsideShock, upsideShock float64,
) (down, up domain.SegmentValues, err error) {
	down, err = simulation.ApplyFeeResponse(baseVolume, baseFee, scenarioFee, elasticity, downsideShock)
	if err != nil {
		return nil, nil, fmt.Errorf("downside: %w", err)
	}
	up, err = simulation.ApplyFeeResponse(baseVolume, baseFee, scenarioFee, elasticity, upsideShock)
	if err != nil {
		return nil, nil, fmt.Errorf("upside: %w", err)
	}
	return down, up, nil
}

// Evaluator computes base, downside and upside metrics for a scenario.
type Evaluator struct {
	DownsideShock  float64
	UpsideShock    float64
	LiquidityAlpha float64
	Logger         zerolog.Logger
}

// NewEvaluator creates an Evaluator with default shocks and liquidity weight.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		DownsideShock:  DefaultDownsideShock,
		UpsideShock:    DefaultUpsideShock,
		LiquidityAlpha: metrics.DefaultLiquidityAlpha,
		Logger:         zerolog.Nop(),
	}
}

// Evaluate stresses one scenario against the baseline.
func (e *Evaluator) Evaluate(baseline domain.Baseline, sc domain.Scenario, betas domain.SegmentValues) (*domain.StressOutcome, error) {
	baseVol, err := simulation.ApplyFeeResponse(baseline.Volume, baseline.Fee, sc.Fees, betas, 0)
	if err != nil {
		return nil, fmt.Errorf("base case: %w", err)
	}
	downVol, upVol, err := RunStress(baseline.Volume, baseline.Fee, sc.Fees, betas, e.DownsideShock, e.UpsideShock)
	if err != nil {
		return nil, err
	}

	out := &domain.StressOutcome{
		ScenarioID:    sc.ScenarioID,
		Fees:          sc.Fees.Clone(),
		DownsideShock: e.DownsideShock,
		UpsideShock:   e.UpsideShock,
	}
	cases := []struct {
		name   string
		volume domain.SegmentValues
		dst    *domain.DecisionMetrics
	}{
		{"base", baseVol, &out.Base},
		{"downside", downVol, &out.Downside},
		{"upside", upVol, &out.Upside},
	}
	for _, c := range cases {
		m, err := metrics.ComputeMetrics(baseline.Volume, baseline.Fee, c.volume, sc.Fees, e.LiquidityAlpha)
		if err != nil {
			return nil, fmt.Errorf("%s metrics: %w", c.name, err)
		}
		*c.dst = m
	}

	e.Logger.Info().
		Str("scenario_id", sc.ScenarioID).
		Float64("base_revenue_uplift_pct", out.Base.RevenueUpliftPct).
		Float64("downside_revenue_uplift_pct", out.Downside.RevenueUpliftPct).
		Float64("upside_revenue_uplift_pct", out.Upside.RevenueUpliftPct).
		Str("downside_risk", string(out.Downside.RiskFlag)).
		Msg("stress evaluated")
	observability.RecordStressRun()

	return out, nil
}
