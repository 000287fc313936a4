package pipeline

import (
	"fmt"

	"fee-elasticity-lab/internal/config"
	"fee-elasticity-lab/internal/dataload"
	"fee-elasticity-lab/internal/domain"
	"fee-elasticity-lab/internal/fixtures"
)

// Input sources.
const (
	SourceCSV       = "csv"
	SourceSynthetic = "synthetic"
)

// Input is the trade history a run starts from.
type Input struct {
	Trades  []domain.TradeRecord
	Dropped int    // rows removed by the loader's sanity filter
	Source  string // csv | synthetic
}

// LoadInput reads trades from path, or synthesizes them when path is empty.
// Synthetic history uses the configured segments with ElasticityPrior as the
// true elasticity.
func LoadInput(path string, cfg config.Config) (*Input, error) {
	if path == "" {
		trades, err := fixtures.GenerateTrades(SyntheticConfig(cfg))
		if err != nil {
			return nil, err
		}
		return &Input{Trades: trades, Source: SourceSynthetic}, nil
	}

	set, err := dataload.LoadTradesFile(path)
	if err != nil {
		return nil, err
	}
	return &Input{Trades: set.Trades, Dropped: set.Dropped, Source: SourceCSV}, nil
}

// SyntheticConfig adapts the default synthetic process to cfg's segments and prior.
func SyntheticConfig(cfg config.Config) fixtures.SyntheticConfig {
	syn := fixtures.DefaultSyntheticConfig()
	syn.Segments = append([]domain.Segment(nil), cfg.Segments...)
	for seg, beta := range cfg.ElasticityPrior {
		syn.TrueBeta[seg] = beta
	}
	return syn
}

// WithFeeMenu replaces cfg's fee grid with the union of fees in the menu at path.
// An empty path returns cfg unchanged.
func WithFeeMenu(cfg config.Config, path string) (config.Config, error) {
	if path == "" {
		return cfg, nil
	}
	menu, err := dataload.LoadFeeMenuFile(path)
	if err != nil {
		return cfg, err
	}
	grid := menu.Grid()
	if len(grid) == 0 {
		return cfg, fmt.Errorf("fee menu %s: no fees", path)
	}
	cfg.FeeGrid = grid
	return cfg, nil
}
