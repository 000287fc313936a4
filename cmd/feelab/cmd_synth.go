package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"fee-elasticity-lab/internal/dataload"
	"fee-elasticity-lab/internal/fixtures"
	"fee-elasticity-lab/internal/pipeline"
)

// synthCmd writes synthetic trade history and a fee menu
var synthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Generate synthetic trade history and fee menu CSVs",
	Long: `Generate one trade per segment per day from a log-linear demand
model with the configured elasticity prior, plus a fee menu offering the
configured fee grid to every segment.

Examples:
  feelab synth
  feelab synth --out-trades data/sample_trades.csv --out-fees data/sample_fees.csv`,
	RunE: runSynth,
}

var (
	synthTradesOut string
	synthFeesOut   string
)

func init() {
	rootCmd.AddCommand(synthCmd)

	synthCmd.Flags().StringVar(&synthTradesOut, "out-trades", "data/sample_trades.csv", "Output path for trades")
	synthCmd.Flags().StringVar(&synthFeesOut, "out-fees", "data/sample_fees.csv", "Output path for the fee menu")
}

func runSynth(cmd *cobra.Command, args []string) error {
	trades, err := fixtures.GenerateTrades(pipeline.SyntheticConfig(cfg))
	if err != nil {
		return err
	}

	if err := writeCSV(synthTradesOut, func(f *os.File) error { return dataload.WriteTrades(f, trades) }); err != nil {
		return err
	}
	menu := fixtures.FeeMenu(cfg.Segments, cfg.FeeGrid)
	if err := writeCSV(synthFeesOut, func(f *os.File) error { return dataload.WriteFeeMenu(f, cfg.Segments, menu) }); err != nil {
		return err
	}

	logger.Info().
		Int("trades", len(trades)).
		Str("trades_path", synthTradesOut).
		Str("fees_path", synthFeesOut).
		Msg("synthetic data written")
	return nil
}

func writeCSV(path string, write func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
