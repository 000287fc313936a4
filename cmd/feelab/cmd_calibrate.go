package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fee-elasticity-lab/internal/domain"
	"fee-elasticity-lab/internal/pipeline"
	"fee-elasticity-lab/internal/reporting"
)

// calibrateCmd fits per-segment elasticities
var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Calibrate per-segment fee elasticities with bootstrap intervals",
	RunE:  runCalibrate,
}

func init() {
	rootCmd.AddCommand(calibrateCmd)
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	c, in, err := loadRun()
	if err != nil {
		return err
	}

	p := pipeline.New(pipeline.MemoryStores(), c, &logger)
	cal, err := p.Orchestrator().Calibrate(in.Trades)
	if err != nil {
		return err
	}

	printCalibration(cal)

	path, err := p.WriteFile(pipeline.CalibrationFile, reporting.RenderCalibrationCSV(cal))
	if err != nil {
		return err
	}
	logger.Info().Str("path", path).Msg("calibration written")
	return nil
}

func printCalibration(cal *domain.Calibration) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEGMENT\tBETA\tCI95\tSE\tN\t")
	for _, e := range cal.Estimates {
		if e.Fallback {
			fmt.Fprintf(w, "%s\t%+.3f\tn/a\tn/a\t%d\tfallback\n", e.Segment, e.Beta, e.SampleSize)
			continue
		}
		fmt.Fprintf(w, "%s\t%+.3f\t[%+.3f,%+.3f]\t%.3f\t%d\t\n",
			e.Segment, e.Beta, e.CILow, e.CIHigh, e.StdErr, e.SampleSize)
	}
	w.Flush()
}
