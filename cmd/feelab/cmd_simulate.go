package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fee-elasticity-lab/internal/domain"
	"fee-elasticity-lab/internal/metrics"
	"fee-elasticity-lab/internal/pipeline"
	"fee-elasticity-lab/internal/ranking"
	"fee-elasticity-lab/internal/reporting"
)

// simulateCmd evaluates a batch of candidate fee schedules
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Generate, evaluate and rank candidate fee schedules",
	Long: `Calibrate elasticities, draw the configured number of fee schedules
from the fee grid, project volumes and write all results plus the ranked
top-k to CSV. Nothing is persisted to the stores; use 'feelab run' for that.`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	c, in, err := loadRun()
	if err != nil {
		return err
	}

	p := pipeline.New(pipeline.MemoryStores(), c, &logger)
	orch := p.Orchestrator()

	base, err := metrics.BaselineFromTrades(in.Trades, c.Segments)
	if err != nil {
		return err
	}
	cal, err := orch.Calibrate(in.Trades)
	if err != nil {
		return err
	}

	runID := orch.RunID(in.Trades)
	results, err := orch.Simulate(cmd.Context(), runID, base, cal.Betas(), false)
	if err != nil {
		return err
	}
	top := ranking.Rank(results, c.TopK)

	printTop(c.Segments, top)

	for name, content := range map[string]string{
		pipeline.ScenarioResultsFile:        reporting.RenderScenarioCSV(c.Segments, results),
		pipeline.TopScenariosFile(len(top)): reporting.RenderScenarioCSV(c.Segments, top),
	} {
		path, err := p.WriteFile(name, content)
		if err != nil {
			return err
		}
		logger.Info().Str("path", path).Msg("scenarios written")
	}
	return nil
}

func printTop(segments []domain.Segment, top []domain.ScenarioResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprint(w, "REVENUE_UPLIFT%\tVOLUME_SHIFT%\tSHARE_UPLIFT%\tRISK")
	for _, seg := range segments {
		fmt.Fprintf(w, "\t%s", domain.FeeColumn(seg))
	}
	fmt.Fprintln(w)
	for _, r := range top {
		m := r.Metrics
		fmt.Fprintf(w, "%+.2f\t%+.2f\t%+.2f\t%s", m.RevenueUpliftPct, m.VolumeShiftPct, m.MarketShareUpliftPct, m.RiskFlag)
		for _, seg := range segments {
			fmt.Fprintf(w, "\t%g", r.Scenario.Fees[seg])
		}
		fmt.Fprintln(w)
	}
	w.Flush()
}
