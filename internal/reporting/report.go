package reporting

import (
	"time"

	"fee-elasticity-lab/internal/decision"
	"fee-elasticity-lab/internal/domain"
)

// Report represents one calibration + simulation run.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	RunID       string

	// Data Summary
	DataSummary DataSummary

	// Baseline per segment, in segment order
	Baseline []BaselineRow

	// Calibration per segment, in segment order
	Calibration     []CalibrationRow
	BootstrapCount  int
	BootstrapSeed   int64
	ElasticityBound domain.ElasticityBounds

	// Simulation
	ScenarioCount int
	RiskCounts    []RiskCountRow          // one row per flag, fixed order
	TopScenarios  []domain.ScenarioResult // ranked
	Segments      []domain.Segment        // fee column order

	// Stress test of the top-ranked scenario (optional)
	Stress *domain.StressOutcome
	Risk   *decision.RiskAssessment
}

// DataSummary describes the loaded history.
type DataSummary struct {
	TotalTrades    int
	DroppedRows    int
	DateRangeStart time.Time
	DateRangeEnd   time.Time
}

// BaselineRow is the reference state of one segment.
type BaselineRow struct {
	Segment domain.Segment
	Trades  int
	Volume  float64
	FeeBps  float64
}

// CalibrationRow is one segment's elasticity estimate, with its prior if known.
type CalibrationRow struct {
	domain.ElasticityEstimate
	Prior    float64
	HasPrior bool
}

// RiskCountRow counts scenarios per risk flag.
type RiskCountRow struct {
	Flag  domain.RiskFlag
	Count int
}
