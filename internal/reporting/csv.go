package reporting

import (
	"fmt"
	"strings"

	"fee-elasticity-lab/internal/domain"
)

// RenderScenarioCSV renders scenario results as CSV string.
// One fee_bps__<segment> column per segment, then the decision metrics.
func RenderScenarioCSV(segments []domain.Segment, results []domain.ScenarioResult) string {
	var sb strings.Builder

	// Header
	sb.WriteString("scenario_index,scenario_id")
	for _, seg := range segments {
		sb.WriteString(",")
		sb.WriteString(domain.FeeColumn(seg))
	}
	sb.WriteString(",revenue,volume_total,volume_shift_pct,revenue_uplift_pct,")
	sb.WriteString("market_share_uplift_pct,liquidity_proxy,risk_flag\n")

	// Rows
	for _, r := range results {
		sb.WriteString(fmt.Sprintf("%d,%s", r.Index, r.Scenario.ScenarioID))
		for _, seg := range segments {
			sb.WriteString(fmt.Sprintf(",%g", r.Scenario.Fees[seg]))
		}
		m := r.Metrics
		sb.WriteString(fmt.Sprintf(",%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%s\n",
			m.Revenue,
			m.VolumeTotal,
			m.VolumeShiftPct,
			m.RevenueUpliftPct,
			m.MarketShareUpliftPct,
			m.LiquidityProxy,
			m.RiskFlag,
		))
	}

	return sb.String()
}

// RenderCalibrationCSV renders elasticity estimates as CSV string.
// Fallback rows carry NaN uncertainty fields.
func RenderCalibrationCSV(cal *domain.Calibration) string {
	var sb strings.Builder

	sb.WriteString("segment,beta,stderr,ci_low,ci_high,sample_size,fallback\n")
	for _, e := range cal.Estimates {
		sb.WriteString(fmt.Sprintf("%s,%.6f,%.6f,%.6f,%.6f,%d,%t\n",
			e.Segment,
			e.Beta,
			e.StdErr,
			e.CILow,
			e.CIHigh,
			e.SampleSize,
			e.Fallback,
		))
	}

	return sb.String()
}

// RenderStressCSV renders a stress outcome as CSV string, one row per case.
func RenderStressCSV(s *domain.StressOutcome) string {
	var sb strings.Builder

	sb.WriteString("scenario_id,case,volume_shock,revenue,volume_total,volume_shift_pct,")
	sb.WriteString("revenue_uplift_pct,market_share_uplift_pct,liquidity_proxy,risk_flag\n")

	cases := []struct {
		name  string
		shock float64
		m     domain.DecisionMetrics
	}{
		{"base", 0, s.Base},
		{"downside", s.DownsideShock, s.Downside},
		{"upside", s.UpsideShock, s.Upside},
	}
	for _, c := range cases {
		sb.WriteString(fmt.Sprintf("%s,%s,%.4f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%s\n",
			s.ScenarioID,
			c.name,
			c.shock,
			c.m.Revenue,
			c.m.VolumeTotal,
			c.m.VolumeShiftPct,
			c.m.RevenueUpliftPct,
			c.m.MarketShareUpliftPct,
			c.m.LiquidityProxy,
			c.m.RiskFlag,
		))
	}

	return sb.String()
}
