package reporting

import (
	"context"
	"fmt"
	"time"

	"fee-elasticity-lab/internal/decision"
	"fee-elasticity-lab/internal/domain"
	"fee-elasticity-lab/internal/metrics"
	"fee-elasticity-lab/internal/ranking"
	"fee-elasticity-lab/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	tradeStore    storage.TradeStore
	estimateStore storage.EstimateStore
	resultStore   storage.ScenarioResultStore
	prior         domain.SegmentValues
	now           func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(
	tradeStore storage.TradeStore,
	estimateStore storage.EstimateStore,
	resultStore storage.ScenarioResultStore,
) *Generator {
	return &Generator{
		tradeStore:    tradeStore,
		estimateStore: estimateStore,
		resultStore:   resultStore,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithPrior attaches prior elasticities shown next to the fitted ones.
func (g *Generator) WithPrior(prior domain.SegmentValues) *Generator {
	g.prior = prior
	return g
}

// GenerateOptions selects what goes into a report.
type GenerateOptions struct {
	RunID       string
	Segments    []domain.Segment
	TopK        int
	DroppedRows int
}

// Generate builds the report for one run. The stress section is left empty;
// callers attach it with WithStress.
func (g *Generator) Generate(ctx context.Context, opts GenerateOptions) (*Report, error) {
	trades, err := g.tradeStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}
	cal, err := g.estimateStore.GetByRunID(ctx, opts.RunID)
	if err != nil {
		return nil, fmt.Errorf("load calibration: %w", err)
	}
	stored, err := g.resultStore.GetByRunID(ctx, opts.RunID)
	if err != nil {
		return nil, fmt.Errorf("load scenario results: %w", err)
	}

	results := make([]domain.ScenarioResult, len(stored))
	for i, r := range stored {
		results[i] = *r
	}

	flat := make([]domain.TradeRecord, len(trades))
	for i, t := range trades {
		flat[i] = *t
	}

	return &Report{
		GeneratedAt:     g.now(),
		RunID:           opts.RunID,
		DataSummary:     summarize(flat, opts.DroppedRows),
		Baseline:        baselineRows(flat, opts.Segments),
		Calibration:     g.calibrationRows(cal),
		BootstrapCount:  cal.BootstrapCount,
		BootstrapSeed:   cal.Seed,
		ElasticityBound: cal.Bounds,
		ScenarioCount:   len(results),
		RiskCounts:      countRisk(results),
		TopScenarios:    ranking.Rank(results, opts.TopK),
		Segments:        opts.Segments,
	}, nil
}

// WithStress attaches a stress outcome and the risk checklist of its base case.
func (r *Report) WithStress(s *domain.StressOutcome) *Report {
	r.Stress = s
	if s != nil {
		r.Risk = decision.NewEvaluator().Assess(s.ScenarioID, s.Base)
	}
	return r
}

func summarize(trades []domain.TradeRecord, dropped int) DataSummary {
	s := DataSummary{TotalTrades: len(trades), DroppedRows: dropped}
	for i, t := range trades {
		if i == 0 || t.Date.Before(s.DateRangeStart) {
			s.DateRangeStart = t.Date
		}
		if i == 0 || t.Date.After(s.DateRangeEnd) {
			s.DateRangeEnd = t.Date
		}
	}
	return s
}

func baselineRows(trades []domain.TradeRecord, segments []domain.Segment) []BaselineRow {
	base, err := metrics.BaselineFromTrades(trades, segments)
	if err != nil {
		return nil
	}
	var rows []BaselineRow
	for _, seg := range segments {
		vol, ok := base.Volume[seg]
		if !ok {
			continue
		}
		rows = append(rows, BaselineRow{
			Segment: seg,
			Trades:  len(domain.FilterBySegment(trades, seg)),
			Volume:  vol,
			FeeBps:  base.Fee[seg],
		})
	}
	return rows
}

func (g *Generator) calibrationRows(cal *domain.Calibration) []CalibrationRow {
	rows := make([]CalibrationRow, len(cal.Estimates))
	for i, e := range cal.Estimates {
		row := CalibrationRow{ElasticityEstimate: e}
		if p, ok := g.prior[e.Segment]; ok {
			row.Prior = p
			row.HasPrior = true
		}
		rows[i] = row
	}
	return rows
}

// countRisk counts results per flag, HIGH first.
func countRisk(results []domain.ScenarioResult) []RiskCountRow {
	counts := make(map[domain.RiskFlag]int)
	for _, r := range results {
		counts[r.Metrics.RiskFlag]++
	}
	order := []domain.RiskFlag{domain.RiskHigh, domain.RiskVolumeDown, domain.RiskRevenueDown, domain.RiskOK}
	rows := make([]RiskCountRow, len(order))
	for i, f := range order {
		rows[i] = RiskCountRow{Flag: f, Count: counts[f]}
	}
	return rows
}
