package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fee-elasticity-lab/internal/pipeline"
)

// runCmd executes the full study against the configured storage
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run calibration, simulation, ranking and stress end to end",
	Long: `Load trades into the configured store, calibrate, evaluate the
scenario batch, stress the top-ranked schedule and write CSV and Markdown
artifacts into the output directory.

Examples:
  feelab run
  feelab run --trades data/sample_trades.csv --fees data/sample_fees.csv
  FEELAB_STORAGE_BACKEND=postgres FEELAB_POSTGRES_DSN=postgres://... feelab run`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	c, in, err := loadRun()
	if err != nil {
		return err
	}

	stores, cleanup, err := createStores(ctx, c)
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := pipeline.New(stores, c, &logger).Run(ctx, in)
	if err != nil {
		return err
	}

	printTop(c.Segments, out.Top)
	fmt.Printf("\nRun %s completed:\n", out.RunID)
	for _, f := range out.Files {
		fmt.Printf("  - %s\n", f)
	}
	return nil
}
