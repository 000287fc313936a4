package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"fee-elasticity-lab/internal/domain"
	"fee-elasticity-lab/internal/storage"
)

// ScenarioResultStore implements storage.ScenarioResultStore using PostgreSQL.
// Fees are stored as a JSONB object keyed by segment.
type ScenarioResultStore struct {
	pool *Pool
}

// NewScenarioResultStore creates a new ScenarioResultStore.
func NewScenarioResultStore(pool *Pool) *ScenarioResultStore {
	return &ScenarioResultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ScenarioResultStore = (*ScenarioResultStore)(nil)

// InsertBulk adds multiple results atomically. Fails entire batch on any duplicate.
func (s *ScenarioResultStore) InsertBulk(ctx context.Context, results []*domain.ScenarioResult) (err error) {
	if len(results) == 0 {
		return nil
	}
	defer track("scenario_results_insert_bulk", &err)()

	query := `
		INSERT INTO scenario_results (
			run_id, scenario_index, scenario_id, fees,
			revenue, volume_total, volume_shift_pct, revenue_uplift_pct,
			market_share_uplift_pct, liquidity_proxy, risk_flag
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	batch := &pgx.Batch{}
	for _, r := range results {
		if r == nil || r.RunID == "" {
			return storage.ErrInvalidInput
		}
		fees, err := json.Marshal(r.Scenario.Fees)
		if err != nil {
			return fmt.Errorf("marshal fees: %w", err)
		}
		m := r.Metrics
		batch.Queue(query,
			r.RunID, r.Index, r.Scenario.ScenarioID, fees,
			m.Revenue, m.VolumeTotal, m.VolumeShiftPct, m.RevenueUpliftPct,
			m.MarketShareUpliftPct, m.LiquidityProxy, string(m.RiskFlag),
		)
	}

	return s.pool.inTx(ctx, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert scenario results: %w", err)
		}
		return nil
	})
}

// GetByRunID retrieves all results for a run, ordered by scenario_index ASC.
func (s *ScenarioResultStore) GetByRunID(ctx context.Context, runID string) ([]*domain.ScenarioResult, error) {
	query := `
		SELECT run_id, scenario_index, scenario_id, fees,
			revenue, volume_total, volume_shift_pct, revenue_uplift_pct,
			market_share_uplift_pct, liquidity_proxy, risk_flag
		FROM scenario_results
		WHERE run_id = $1
		ORDER BY scenario_index ASC
	`
	return s.query(ctx, "scenario_results_by_run", query, runID)
}

// GetByRiskFlag retrieves results for a run with the given flag, ordered by scenario_index ASC.
func (s *ScenarioResultStore) GetByRiskFlag(ctx context.Context, runID string, flag domain.RiskFlag) ([]*domain.ScenarioResult, error) {
	query := `
		SELECT run_id, scenario_index, scenario_id, fees,
			revenue, volume_total, volume_shift_pct, revenue_uplift_pct,
			market_share_uplift_pct, liquidity_proxy, risk_flag
		FROM scenario_results
		WHERE run_id = $1 AND risk_flag = $2
		ORDER BY scenario_index ASC
	`
	return s.query(ctx, "scenario_results_by_risk", query, runID, string(flag))
}

func (s *ScenarioResultStore) query(ctx context.Context, operation, query string, args ...any) (out []*domain.ScenarioResult, err error) {
	defer track(operation, &err)()

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query scenario results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r    domain.ScenarioResult
			fees []byte
			flag string
		)
		m := &r.Metrics
		err = rows.Scan(
			&r.RunID, &r.Index, &r.Scenario.ScenarioID, &fees,
			&m.Revenue, &m.VolumeTotal, &m.VolumeShiftPct, &m.RevenueUpliftPct,
			&m.MarketShareUpliftPct, &m.LiquidityProxy, &flag,
		)
		if err != nil {
			return nil, fmt.Errorf("scan scenario result row: %w", err)
		}
		if err = json.Unmarshal(fees, &r.Scenario.Fees); err != nil {
			return nil, fmt.Errorf("unmarshal fees: %w", err)
		}
		m.RiskFlag = domain.RiskFlag(flag)
		out = append(out, &r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scenario result rows: %w", err)
	}
	return out, nil
}
