// Package main provides the feelab CLI: synthetic data, calibration,
// scenario simulation, stress tests and full runs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"fee-elasticity-lab/internal/config"
)

var (
	configPath string
	logLevel   string
	tradesPath string
	feesPath   string

	cfg    config.Config
	logger zerolog.Logger
)

// rootCmd is the base command for the feelab CLI
var rootCmd = &cobra.Command{
	Use:   "feelab",
	Short: "Fee elasticity calibration and fee schedule simulation",
	Long: `feelab calibrates per-segment fee elasticities from trade history,
simulates candidate fee schedules, ranks them by revenue uplift and
stress-tests the result under exogenous volume shocks.

Without --trades, commands run on synthetic history generated from the
configured elasticity prior.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := zerolog.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", logLevel, err)
		}
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			Level(level).
			With().Timestamp().Logger()

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config (defaults when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&tradesPath, "trades", "", "Trade history CSV (synthetic when empty)")
	rootCmd.PersistentFlags().StringVar(&feesPath, "fees", "", "Fee menu CSV overriding the configured fee grid")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
