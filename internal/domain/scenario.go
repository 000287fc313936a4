package domain

import "fmt"

// Scenario is one candidate fee schedule: a fee (bps) for every segment.
// Fees are drawn from the configured fee grid.
type Scenario struct {
	ScenarioID string
	Fees       SegmentValues
}

// FeeColumn is the tabular column name for a segment's scenario fee.
func FeeColumn(seg Segment) string {
	return fmt.Sprintf("fee_bps__%s", seg)
}

// RiskFlag classifies a scenario's downside.
type RiskFlag string

// Risk flag values. Keep these stable; they are written to CSV.
const (
	RiskHigh        RiskFlag = "HIGH: volume+revenue down"
	RiskVolumeDown  RiskFlag = "MEDIUM: volume down"
	RiskRevenueDown RiskFlag = "MEDIUM: revenue down"
	RiskOK          RiskFlag = "OK"
)

// DecisionMetrics is the evaluation of one scenario against a baseline.
// Fully determined by its inputs.
type DecisionMetrics struct {
	Revenue              float64 // Σ new volume × new fee
	VolumeTotal          float64 // Σ new volume
	VolumeShiftPct       float64
	RevenueUpliftPct     float64
	MarketShareUpliftPct float64
	LiquidityProxy       float64 // penalty-adjusted volume, not a percentage
	RiskFlag             RiskFlag
}

// ScenarioResult is an evaluated scenario within a run.
type ScenarioResult struct {
	RunID    string
	Index    int // generation order
	Scenario Scenario
	Metrics  DecisionMetrics
}

// StressOutcome compares a scenario unshocked and under both exogenous shocks.
type StressOutcome struct {
	ScenarioID    string
	Fees          SegmentValues
	DownsideShock float64
	UpsideShock   float64
	Base          DecisionMetrics
	Downside      DecisionMetrics
	Upside        DecisionMetrics
}
