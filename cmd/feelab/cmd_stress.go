package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fee-elasticity-lab/internal/domain"
	"fee-elasticity-lab/internal/metrics"
	"fee-elasticity-lab/internal/pipeline"
	"fee-elasticity-lab/internal/reporting"
)

// stressCmd stresses one sample fee schedule
var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Stress a sample fee schedule under downside and upside volume shocks",
	Long: `Draw one fee schedule with the stress seed and compare its base case
with the configured downside and upside exogenous volume shocks.`,
	RunE: runStress,
}

func init() {
	rootCmd.AddCommand(stressCmd)
}

func runStress(cmd *cobra.Command, args []string) error {
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
	sc, err := orch.StressScenario()
	if err != nil {
		return err
	}
	out, err := orch.Stress(base, cal.Betas(), sc)
	if err != nil {
		return err
	}

	fmt.Println("Scenario fees:")
	for _, seg := range c.Segments {
		fmt.Printf("  %-14s %g\n", seg, sc.Fees[seg])
	}
	printCase("Base-case", out.Base)
	printCase("Downside ", out.Downside)
	printCase("Upside   ", out.Upside)

	path, err := p.WriteFile(pipeline.StressFile, reporting.RenderStressCSV(out))
	if err != nil {
		return err
	}
	logger.Info().Str("path", path).Msg("stress written")
	return nil
}

func printCase(name string, m domain.DecisionMetrics) {
	fmt.Printf("%s: revenue_uplift=%+.2f%%  volume_shift=%+.2f%%  risk=%s\n",
		name, m.RevenueUpliftPct, m.VolumeShiftPct, m.RiskFlag)
}
