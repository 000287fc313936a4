package decision

import (
	"fmt"
	"strings"
)

// RenderMarkdown renders a RiskAssessment as Markdown string.
func RenderMarkdown(a *RiskAssessment) string {
	var sb strings.Builder

	sb.WriteString("## Risk Assessment\n\n")
	sb.WriteString(fmt.Sprintf("Scenario: `%s`\n\n", a.ScenarioID))
	sb.WriteString(fmt.Sprintf("Flag: **%s**\n\n", a.Flag))

	sb.WriteString("| # | Rule | Condition | Actual | Status |\n")
	sb.WriteString("|---|------|-----------|--------|--------|\n")
	fired := 0
	for i, c := range a.Checks {
		status := "NOT TRIGGERED"
		if !c.Pass {
			status = "TRIGGERED"
			fired++
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
			i+1, c.Name, c.Threshold, c.Actual, status))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Rules triggered: %d/%d\n", fired, len(a.Checks)))

	return sb.String()
}
