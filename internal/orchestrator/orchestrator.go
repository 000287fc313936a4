// Package orchestrator runs a fee study end to end against the stores.
// Flow: load trades → baseline → calibrate → simulate → rank → stress
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"fee-elasticity-lab/internal/config"
	"fee-elasticity-lab/internal/domain"
	"fee-elasticity-lab/internal/elasticity"
	"fee-elasticity-lab/internal/idhash"
	"fee-elasticity-lab/internal/metrics"
	"fee-elasticity-lab/internal/observability"
	"fee-elasticity-lab/internal/ranking"
	"fee-elasticity-lab/internal/simulation"
	"fee-elasticity-lab/internal/storage"
	"fee-elasticity-lab/internal/stress"
)

// ErrNoScenarios is returned when a run has nothing to stress.
var ErrNoScenarios = errors.New("no scenarios evaluated")

// Orchestrator coordinates the run phases.
type Orchestrator struct {
	tradeStore    storage.TradeStore
	estimateStore storage.EstimateStore
	resultStore   storage.ScenarioResultStore
	mirrorStore   storage.ScenarioResultStore

	cfg    config.Config
	logger zerolog.Logger
}

// Options for creating Orchestrator.
type Options struct {
	// Required stores
	TradeStore    storage.TradeStore
	EstimateStore storage.EstimateStore
	ResultStore   storage.ScenarioResultStore

	// MirrorStore receives a copy of every stored result batch (ClickHouse).
	MirrorStore storage.ScenarioResultStore

	Config config.Config
	Logger *zerolog.Logger
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Orchestrator{
		tradeStore:    opts.TradeStore,
		estimateStore: opts.EstimateStore,
		resultStore:   opts.ResultStore,
		mirrorStore:   opts.MirrorStore,
		cfg:           opts.Config,
		logger:        logger,
	}
}

// RunResult contains everything one run produced.
type RunResult struct {
	RunID        string
	TradesLoaded int
	Baseline     domain.Baseline
	Calibration  *domain.Calibration
	Results      []domain.ScenarioResult // generation order
	Top          []domain.ScenarioResult // ranked, at most TopK
	Stress       *domain.StressOutcome   // top-ranked scenario
	Reused       bool                    // run was already persisted; stores untouched
}

// Run executes the full pipeline over trades.
// Phases:
//  1. Load trades into the trade store (already-present trades are kept)
//  2. Derive the baseline and calibrate elasticities from stored trades
//  3. Generate and evaluate scenarios, persist results
//  4. Rank and stress the best scenario
//
// The run ID covers the configuration fingerprint and the trade history, so
// only an identical rerun finds its own stored calibration and skips persistence.
func (o *Orchestrator) Run(ctx context.Context, trades []domain.TradeRecord) (*RunResult, error) {
	result := &RunResult{}

	// Phase 1: Load
	var stored []domain.TradeRecord
	err := o.phase("load", func() error {
		var err error
		stored, err = o.loadTrades(ctx, trades)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("phase 1 (load trades) failed: %w", err)
	}
	result.TradesLoaded = len(stored)

	// Phase 2: Calibrate
	err = o.phase("calibrate", func() error {
		base, err := metrics.BaselineFromTrades(stored, o.cfg.Segments)
		if err != nil {
			return err
		}
		result.Baseline = base
		result.Calibration, err = o.Calibrate(stored)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("phase 2 (calibrate) failed: %w", err)
	}

	result.RunID = o.RunID(stored)
	result.Reused, err = o.runExists(ctx, result.RunID)
	if err != nil {
		return nil, err
	}
	if !result.Reused {
		if err := o.estimateStore.Insert(ctx, result.RunID, result.Calibration); err != nil {
			return nil, fmt.Errorf("store calibration: %w", err)
		}
	} else {
		o.logger.Info().Str("run_id", result.RunID).Msg("run already persisted, skipping writes")
	}

	// Phase 3: Simulate
	err = o.phase("simulate", func() error {
		var err error
		result.Results, err = o.Simulate(ctx, result.RunID, result.Baseline, result.Calibration.Betas(), !result.Reused)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("phase 3 (simulate) failed: %w", err)
	}

	// Phase 4: Rank + stress
	result.Top = ranking.Rank(result.Results, o.cfg.TopK)
	if len(result.Top) == 0 {
		return nil, ErrNoScenarios
	}
	observability.UpdateBestRevenueUplift(result.Top[0].Metrics.RevenueUpliftPct)

	err = o.phase("stress", func() error {
		var err error
		result.Stress, err = o.Stress(result.Baseline, result.Calibration.Betas(), result.Top[0].Scenario)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("phase 4 (stress) failed: %w", err)
	}

	o.logger.Info().
		Str("run_id", result.RunID).
		Int("trades", result.TradesLoaded).
		Int("scenarios", len(result.Results)).
		Float64("best_revenue_uplift_pct", result.Top[0].Metrics.RevenueUpliftPct).
		Msg("run completed")

	return result, nil
}

// Calibrate fits elasticities with the configured bounds, bootstrap and fallback.
func (o *Orchestrator) Calibrate(trades []domain.TradeRecord) (*domain.Calibration, error) {
	cal := elasticity.NewCalibrator(
		elasticity.WithMinSamples(o.cfg.MinSamples),
		elasticity.WithFallbackBeta(o.cfg.FallbackBeta),
		elasticity.WithLogger(o.logger),
	)
	return cal.Calibrate(trades, o.cfg.Segments, o.cfg.ElasticityBounds, o.cfg.BootstrapN, o.cfg.BootstrapSeed)
}

// Simulate generates the configured scenario batch and evaluates it.
// Results are written to the result store (and mirror) when persist is set.
func (o *Orchestrator) Simulate(
	ctx context.Context,
	runID string,
	baseline domain.Baseline,
	betas domain.SegmentValues,
	persist bool,
) ([]domain.ScenarioResult, error) {
	scenarios, err := simulation.GenerateScenarios(o.cfg.Segments, o.cfg.FeeGrid, o.cfg.ScenariosPerRun, o.cfg.ScenarioSeed)
	if err != nil {
		return nil, err
	}

	opts := simulation.RunnerOptions{
		LiquidityAlpha: o.cfg.LiquidityAlpha,
		Workers:        o.cfg.Workers,
		Logger:         &o.logger,
	}
	if persist {
		opts.ResultStore = o.resultStore
	}
	results, err := simulation.NewRunner(opts).Run(ctx, runID, baseline, betas, scenarios)
	if err != nil {
		return nil, err
	}

	if persist && o.mirrorStore != nil {
		ptrs := make([]*domain.ScenarioResult, len(results))
		for i := range results {
			ptrs[i] = &results[i]
		}
		if err := o.mirrorStore.InsertBulk(ctx, ptrs); err != nil {
			// The primary store already holds the batch; a lagging mirror is tolerated.
			if !errors.Is(err, storage.ErrDuplicateKey) {
				return nil, fmt.Errorf("mirror scenario results: %w", err)
			}
			o.logger.Warn().Str("run_id", runID).Msg("mirror already holds run results")
		}
	}
	return results, nil
}

// Stress evaluates sc under the configured downside and upside shocks.
func (o *Orchestrator) Stress(baseline domain.Baseline, betas domain.SegmentValues, sc domain.Scenario) (*domain.StressOutcome, error) {
	ev := &stress.Evaluator{
		DownsideShock:  o.cfg.DownsideShock,
		UpsideShock:    o.cfg.UpsideShock,
		LiquidityAlpha: o.cfg.LiquidityAlpha,
		Logger:         o.logger,
	}
	return ev.Evaluate(baseline, sc, betas)
}

// loadTrades stores the trades the store does not hold yet and returns the
// full history. Trade IDs are derived from content, so a reloaded batch adds
// nothing and a partially new batch adds exactly its new rows.
func (o *Orchestrator) loadTrades(ctx context.Context, trades []domain.TradeRecord) ([]domain.TradeRecord, error) {
	existing, err := o.tradeStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		known[t.ID] = struct{}{}
	}

	batch := make([]domain.TradeRecord, len(trades))
	copy(batch, trades)
	idhash.AssignTradeIDs(batch)

	var fresh []*domain.TradeRecord
	for i := range batch {
		if _, ok := known[batch[i].ID]; ok {
			continue
		}
		fresh = append(fresh, &batch[i])
	}
	if err := o.tradeStore.InsertBulk(ctx, fresh); err != nil {
		return nil, fmt.Errorf("insert trades: %w", err)
	}
	o.logger.Info().
		Int("batch", len(trades)).
		Int("inserted", len(fresh)).
		Int("already_stored", len(trades)-len(fresh)).
		Msg("trades loaded")

	all := existing
	if len(fresh) > 0 {
		if all, err = o.tradeStore.GetAll(ctx); err != nil {
			return nil, err
		}
	}
	out := make([]domain.TradeRecord, len(all))
	for i, t := range all {
		out[i] = *t
	}
	return out, nil
}

// RunID identifies a run by every output-affecting setting and the exact
// trade history it calibrates on.
func (o *Orchestrator) RunID(trades []domain.TradeRecord) string {
	return idhash.ComputeRunID(o.cfg.Fingerprint(), trades)
}

func (o *Orchestrator) runExists(ctx context.Context, runID string) (bool, error) {
	_, err := o.estimateStore.GetByRunID(ctx, runID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, storage.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("check run %s: %w", runID, err)
	}
}

// phase runs fn, logging and recording its duration and outcome.
func (o *Orchestrator) phase(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	dur := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.RecordPipelineRun(name, status, dur.Seconds())
	o.logger.Debug().Str("phase", name).Str("status", status).Dur("duration", dur).Msg("phase finished")
	return err
}

// StressScenario draws the single sample scenario the stress command reports,
// using the stress seed rather than the simulation seed.
func (o *Orchestrator) StressScenario() (domain.Scenario, error) {
	scenarios, err := simulation.GenerateScenarios(o.cfg.Segments, o.cfg.FeeGrid, 1, o.cfg.StressSeed)
	if err != nil {
		return domain.Scenario{}, err
	}
	return scenarios[0], nil
}
