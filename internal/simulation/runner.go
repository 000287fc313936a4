package simulation

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"fee-elasticity-lab/internal/domain"
	"fee-elasticity-lab/internal/metrics"
	"fee-elasticity-lab/internal/observability"
	"fee-elasticity-lab/internal/storage"
)

// Runner errors
var (
	ErrEmptyRunID = errors.New("run id is empty")
)

// Runner evaluates scenario batches against a baseline.
type Runner struct {
	resultStore    storage.ScenarioResultStore
	liquidityAlpha float64
	workers        int
	logger         zerolog.Logger
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	ResultStore    storage.ScenarioResultStore // optional; results are persisted when set
	LiquidityAlpha float64
	Workers        int // <= 0 means GOMAXPROCS
	Logger         *zerolog.Logger
}

// NewRunner creates a simulation runner.
func NewRunner(opts RunnerOptions) *Runner {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Runner{
		resultStore:    opts.ResultStore,
		liquidityAlpha: opts.LiquidityAlpha,
		workers:        workers,
		logger:         logger,
	}
}

// Evaluate projects one scenario (no shock) and computes its metrics.
func (r *Runner) Evaluate(baseline domain.Baseline, betas domain.SegmentValues, sc domain.Scenario) (domain.DecisionMetrics, error) {
	newVolume, err := ApplyFeeResponse(baseline.Volume, baseline.Fee, sc.Fees, betas, 0)
	if err != nil {
		return domain.DecisionMetrics{}, err
	}
	return metrics.ComputeMetrics(baseline.Volume, baseline.Fee, newVolume, sc.Fees, r.liquidityAlpha)
}

// Run evaluates all scenarios and returns results in input order.
//
// Evaluation is pure, so scenarios run on a bounded worker pool and write
// into index-addressed slots; the output is identical to a sequential run.
// Results are persisted in one batch when a result store is configured.
func (r *Runner) Run(
	ctx context.Context,
	runID string,
	baseline domain.Baseline,
	betas domain.SegmentValues,
	scenarios []domain.Scenario,
) ([]domain.ScenarioResult, error) {
	if runID == "" {
		return nil, ErrEmptyRunID
	}

	results := make([]domain.ScenarioResult, len(scenarios))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := range scenarios {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m, err := r.Evaluate(baseline, betas, scenarios[i])
			if err != nil {
				return fmt.Errorf("scenario %d: %w", i, err)
			}
			results[i] = domain.ScenarioResult{
				RunID:    runID,
				Index:    i,
				Scenario: scenarios[i],
				Metrics:  m,
			}
			observability.RecordScenarioEvaluated(string(m.RiskFlag))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.logger.Debug().
		Str("run_id", runID).
		Int("scenarios", len(results)).
		Int("workers", r.workers).
		Msg("scenarios evaluated")

	if r.resultStore != nil && len(results) > 0 {
		ptrs := make([]*domain.ScenarioResult, len(results))
		for i := range results {
			ptrs[i] = &results[i]
		}
		if err := r.resultStore.InsertBulk(ctx, ptrs); err != nil {
			return nil, fmt.Errorf("persist scenario results: %w", err)
		}
	}

	return results, nil
}
