package decision

import (
	"fmt"

	"fee-elasticity-lab/internal/domain"
)

// Volume shift below this (in percent) counts as a material volume loss.
const VolumeDownThresholdPct = -1.0

// RiskRules is the ordered precedence table. A scenario that matches none
// of them is OK.
var RiskRules = []RiskRule{
	{
		Name:      "Volume and revenue down",
		Condition: fmt.Sprintf("volume shift < %.1f%% AND revenue uplift < 0%%", VolumeDownThresholdPct),
		Flag:      domain.RiskHigh,
		Match: func(in RiskInput) bool {
			return in.VolumeShiftPct < VolumeDownThresholdPct && in.RevenueUpliftPct < 0
		},
	},
	{
		Name:      "Volume down",
		Condition: fmt.Sprintf("volume shift < %.1f%%", VolumeDownThresholdPct),
		Flag:      domain.RiskVolumeDown,
		Match: func(in RiskInput) bool {
			return in.VolumeShiftPct < VolumeDownThresholdPct
		},
	},
	{
		Name:      "Revenue down",
		Condition: "revenue uplift < 0%",
		Flag:      domain.RiskRevenueDown,
		Match: func(in RiskInput) bool {
			return in.RevenueUpliftPct < 0
		},
	},
}

// ClassifyRisk returns the flag of the first matching rule, or RiskOK.
func ClassifyRisk(volumeShiftPct, revenueUpliftPct float64) domain.RiskFlag {
	in := RiskInput{VolumeShiftPct: volumeShiftPct, RevenueUpliftPct: revenueUpliftPct}
	for _, r := range RiskRules {
		if r.Match(in) {
			return r.Flag
		}
	}
	return domain.RiskOK
}

// Evaluator builds risk checklists for reports.
type Evaluator struct{}

// NewEvaluator creates a new risk evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Assess classifies a scenario and records which rules fired.
func (e *Evaluator) Assess(scenarioID string, m domain.DecisionMetrics) *RiskAssessment {
	in := RiskInput{VolumeShiftPct: m.VolumeShiftPct, RevenueUpliftPct: m.RevenueUpliftPct}
	actual := fmt.Sprintf("volume %+.2f%%, revenue %+.2f%%", in.VolumeShiftPct, in.RevenueUpliftPct)

	checks := make([]CriterionResult, len(RiskRules))
	for i, r := range RiskRules {
		checks[i] = CriterionResult{
			Name:      r.Name,
			Threshold: r.Condition,
			Actual:    actual,
			Pass:      !r.Match(in),
		}
	}

	return &RiskAssessment{
		ScenarioID: scenarioID,
		Flag:       ClassifyRisk(in.VolumeShiftPct, in.RevenueUpliftPct),
		Checks:     checks,
	}
}
