package reporting

import (
	"fmt"
	"math"
	"strings"
	"time"

	"fee-elasticity-lab/internal/decision"
	"fee-elasticity-lab/internal/domain"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Fee Elasticity Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Run: `%s` | Scenarios: %d\n\n", r.RunID, r.ScenarioCount))

	// Data Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Trades | %d |\n", r.DataSummary.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Dropped Rows | %d |\n", r.DataSummary.DroppedRows))
	sb.WriteString(fmt.Sprintf("| Date Range Start | %s |\n", formatDate(r.DataSummary.DateRangeStart)))
	sb.WriteString(fmt.Sprintf("| Date Range End | %s |\n", formatDate(r.DataSummary.DateRangeEnd)))
	sb.WriteString("\n")

	// Baseline
	sb.WriteString("## Baseline\n\n")
	if len(r.Baseline) > 0 {
		sb.WriteString("| Segment | Trades | Mean Volume | Mean Fee (bps) |\n")
		sb.WriteString("|---------|--------|-------------|----------------|\n")
		for _, b := range r.Baseline {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.2f | %.2f |\n", b.Segment, b.Trades, b.Volume, b.FeeBps))
		}
	} else {
		sb.WriteString("No baseline available.\n")
	}
	sb.WriteString("\n")

	// Calibration
	sb.WriteString("## Elasticity Calibration\n\n")
	if len(r.Calibration) > 0 {
		sb.WriteString(fmt.Sprintf("Bounds: [%.2f, %.2f] | Bootstrap: %d resamples, seed %d\n\n",
			r.ElasticityBound.Min, r.ElasticityBound.Max, r.BootstrapCount, r.BootstrapSeed))
		sb.WriteString("| Segment | Prior | Beta | StdErr | CI 95% | N | Note |\n")
		sb.WriteString("|---------|-------|------|--------|--------|---|------|\n")
		for _, c := range r.Calibration {
			prior := "-"
			if c.HasPrior {
				prior = fmt.Sprintf("%.4f", c.Prior)
			}
			note := ""
			if c.Fallback {
				note = "fallback (sparse)"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %.4f | %s | %s | %d | %s |\n",
				c.Segment, prior, c.Beta, formatMaybe(c.StdErr), formatCI(c.CILow, c.CIHigh), c.SampleSize, note))
		}
	} else {
		sb.WriteString("No calibration available.\n")
	}
	sb.WriteString("\n")

	// Risk distribution
	sb.WriteString("## Risk Distribution\n\n")
	sb.WriteString("| Flag | Scenarios |\n")
	sb.WriteString("|------|-----------|\n")
	for _, rc := range r.RiskCounts {
		sb.WriteString(fmt.Sprintf("| %s | %d |\n", rc.Flag, rc.Count))
	}
	sb.WriteString("\n")

	// Top scenarios
	sb.WriteString(fmt.Sprintf("## Top %d Fee Schedules\n\n", len(r.TopScenarios)))
	if len(r.TopScenarios) > 0 {
		sb.WriteString("| # | Revenue Uplift% | Volume Shift% | Share Uplift% | Liquidity | Risk |")
		for _, seg := range r.Segments {
			sb.WriteString(fmt.Sprintf(" %s |", seg))
		}
		sb.WriteString("\n|---|-----------------|---------------|---------------|-----------|------|")
		for range r.Segments {
			sb.WriteString("---|")
		}
		sb.WriteString("\n")
		for i, res := range r.TopScenarios {
			m := res.Metrics
			sb.WriteString(fmt.Sprintf("| %d | %+.2f | %+.2f | %+.2f | %.1f | %s |",
				i+1, m.RevenueUpliftPct, m.VolumeShiftPct, m.MarketShareUpliftPct, m.LiquidityProxy, m.RiskFlag))
			for _, seg := range r.Segments {
				sb.WriteString(fmt.Sprintf(" %g |", res.Scenario.Fees[seg]))
			}
			sb.WriteString("\n")
		}
	} else {
		sb.WriteString("No scenarios evaluated.\n")
	}
	sb.WriteString("\n")

	// Stress
	if r.Stress != nil {
		sb.WriteString(RenderStressMarkdown(r.Stress))
		sb.WriteString("\n")
	}
	if r.Risk != nil {
		sb.WriteString(decision.RenderMarkdown(r.Risk))
		sb.WriteString("\n")
	}

	return sb.String()
}

// RenderStressMarkdown renders a stress outcome as a Markdown section.
func RenderStressMarkdown(s *domain.StressOutcome) string {
	var sb strings.Builder

	sb.WriteString("## Stress Test\n\n")
	sb.WriteString(fmt.Sprintf("Scenario: `%s`\n\n", s.ScenarioID))
	sb.WriteString("| Case | Shock | Revenue Uplift% | Volume Shift% | Risk |\n")
	sb.WriteString("|------|-------|-----------------|---------------|------|\n")
	rows := []struct {
		name  string
		shock float64
		m     domain.DecisionMetrics
	}{
		{"Base-case", 0, s.Base},
		{"Downside", s.DownsideShock, s.Downside},
		{"Upside", s.UpsideShock, s.Upside},
	}
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("| %s | %+.1f%% | %+.2f | %+.2f | %s |\n",
			row.name, row.shock*100, row.m.RevenueUpliftPct, row.m.VolumeShiftPct, row.m.RiskFlag))
	}

	return sb.String()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

func formatMaybe(x float64) string {
	if math.IsNaN(x) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", x)
}

func formatCI(lo, hi float64) string {
	if math.IsNaN(lo) || math.IsNaN(hi) {
		return "n/a"
	}
	return fmt.Sprintf("[%.4f, %.4f]", lo, hi)
}
