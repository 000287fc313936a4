package storage

import (
	"context"
	"time"

	"fee-elasticity-lab/internal/domain"
)

// TradeStore provides access to trades storage.
// A trade is keyed by its ID; several trades may share a segment and day.
type TradeStore interface {
	// InsertBulk adds multiple trades atomically, keyed by trade ID (derived from
	// content when empty). Fails entire batch on any duplicate ID.
	InsertBulk(ctx context.Context, trades []*domain.TradeRecord) error

	// GetBySegment retrieves all trades for a segment, ordered by date ASC.
	GetBySegment(ctx context.Context, segment domain.Segment) ([]*domain.TradeRecord, error)

	// GetByDateRange retrieves trades with date within [start, end] (inclusive),
	// ordered by date ASC, segment ASC.
	GetByDateRange(ctx context.Context, start, end time.Time) ([]*domain.TradeRecord, error)

	// GetAll retrieves all trades, ordered by date ASC, segment ASC, ID ASC.
	// Calibration depends on this order.
	GetAll(ctx context.Context) ([]*domain.TradeRecord, error)
}

// EstimateStore provides access to elasticity_estimates storage.
type EstimateStore interface {
	// Insert stores a calibration under runID. Returns ErrDuplicateKey if the run exists.
	Insert(ctx context.Context, runID string, cal *domain.Calibration) error

	// GetByRunID retrieves the calibration for a run, estimates in segment order.
	// Returns ErrNotFound if not exists.
	GetByRunID(ctx context.Context, runID string) (*domain.Calibration, error)
}

// ScenarioResultStore provides access to scenario_results storage.
// A result is keyed by (run_id, scenario_index).
type ScenarioResultStore interface {
	// InsertBulk adds multiple results atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, results []*domain.ScenarioResult) error

	// GetByRunID retrieves all results for a run, ordered by scenario_index ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.ScenarioResult, error)

	// GetByRiskFlag retrieves results for a run with the given flag, ordered by scenario_index ASC.
	GetByRiskFlag(ctx context.Context, runID string, flag domain.RiskFlag) ([]*domain.ScenarioResult, error)
}
