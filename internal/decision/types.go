package decision

import "fee-elasticity-lab/internal/domain"

// RiskInput contains the scenario deltas the risk rules look at.
type RiskInput struct {
	VolumeShiftPct   float64
	RevenueUpliftPct float64
}

// RiskRule is one row of the risk table. Rules are checked in order; the
// first match decides the flag.
type RiskRule struct {
	Name      string
	Condition string
	Flag      domain.RiskFlag
	Match     func(in RiskInput) bool
}

// CriterionResult represents whether one rule fired for an input.
type CriterionResult struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool // true when the rule did NOT fire
}

// RiskAssessment contains the flag with the full rule checklist.
type RiskAssessment struct {
	ScenarioID string
	Flag       domain.RiskFlag
	Checks     []CriterionResult
}
