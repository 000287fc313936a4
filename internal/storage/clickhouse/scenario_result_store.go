package clickhouse

import (
	"context"
	"fmt"

	"fee-elasticity-lab/internal/domain"
	"fee-elasticity-lab/internal/storage"
)

// ScenarioResultStore implements storage.ScenarioResultStore using ClickHouse.
// The table is a ReplacingMergeTree, so uniqueness of (run_id, scenario_index)
// is checked before insert and reads use FINAL.
type ScenarioResultStore struct {
	conn *Conn
}

// NewScenarioResultStore creates a new ScenarioResultStore.
func NewScenarioResultStore(conn *Conn) *ScenarioResultStore {
	return &ScenarioResultStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ScenarioResultStore = (*ScenarioResultStore)(nil)

// InsertBulk adds multiple results in one batch. Fails entire batch on any duplicate.
func (s *ScenarioResultStore) InsertBulk(ctx context.Context, results []*domain.ScenarioResult) (err error) {
	if len(results) == 0 {
		return nil
	}
	defer track("scenario_results_insert_bulk", &err)()

	// Check for intra-batch duplicates
	seen := make(map[string]map[int]struct{})
	for _, r := range results {
		if r == nil || r.RunID == "" || r.Index < 0 {
			return storage.ErrInvalidInput
		}
		if seen[r.RunID] == nil {
			seen[r.RunID] = make(map[int]struct{})
		}
		if _, dup := seen[r.RunID][r.Index]; dup {
			return storage.ErrDuplicateKey
		}
		seen[r.RunID][r.Index] = struct{}{}
	}

	// Check for duplicates against existing rows, one query per run
	for runID, indexes := range seen {
		existing, err := s.existingIndexes(ctx, runID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		for idx := range indexes {
			if _, ok := existing[idx]; ok {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO scenario_results (
			run_id, scenario_index, scenario_id, fees,
			revenue, volume_total, volume_shift_pct, revenue_uplift_pct,
			market_share_uplift_pct, liquidity_proxy, risk_flag
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range results {
		fees := make(map[string]float64, len(r.Scenario.Fees))
		for seg, fee := range r.Scenario.Fees {
			fees[string(seg)] = fee
		}
		m := r.Metrics
		err = batch.Append(
			r.RunID, uint32(r.Index), r.Scenario.ScenarioID, fees,
			m.Revenue, m.VolumeTotal, m.VolumeShiftPct, m.RevenueUpliftPct,
			m.MarketShareUpliftPct, m.LiquidityProxy, string(m.RiskFlag),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRunID retrieves all results for a run, ordered by scenario_index ASC.
func (s *ScenarioResultStore) GetByRunID(ctx context.Context, runID string) ([]*domain.ScenarioResult, error) {
	query := `
		SELECT run_id, scenario_index, scenario_id, fees,
			revenue, volume_total, volume_shift_pct, revenue_uplift_pct,
			market_share_uplift_pct, liquidity_proxy, risk_flag
		FROM scenario_results FINAL
		WHERE run_id = ?
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
		FROM scenario_results FINAL
		WHERE run_id = ? AND risk_flag = ?
		ORDER BY scenario_index ASC
	`
	return s.query(ctx, "scenario_results_by_risk", query, runID, string(flag))
}

func (s *ScenarioResultStore) existingIndexes(ctx context.Context, runID string) (map[int]struct{}, error) {
	rows, err := s.conn.Query(ctx, `SELECT scenario_index FROM scenario_results FINAL WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]struct{})
	for rows.Next() {
		var idx uint32
		if err := rows.Scan(&idx); err != nil {
			return nil, err
		}
		out[int(idx)] = struct{}{}
	}
	return out, rows.Err()
}

func (s *ScenarioResultStore) query(ctx context.Context, operation, query string, args ...any) (out []*domain.ScenarioResult, err error) {
	defer track(operation, &err)()

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query scenario results: %w", err)
	}
	defer rows.Close()

	return scanScenarioResults(rows)
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanScenarioResults scans multiple rows into a slice.
func scanScenarioResults(rows chRows) ([]*domain.ScenarioResult, error) {
	var results []*domain.ScenarioResult

	for rows.Next() {
		var (
			r    domain.ScenarioResult
			idx  uint32
			fees map[string]float64
			flag string
		)
		m := &r.Metrics
		err := rows.Scan(
			&r.RunID, &idx, &r.Scenario.ScenarioID, &fees,
			&m.Revenue, &m.VolumeTotal, &m.VolumeShiftPct, &m.RevenueUpliftPct,
			&m.MarketShareUpliftPct, &m.LiquidityProxy, &flag,
		)
		if err != nil {
			return nil, fmt.Errorf("scan scenario result row: %w", err)
		}
		r.Index = int(idx)
		r.Scenario.Fees = make(domain.SegmentValues, len(fees))
		for seg, fee := range fees {
			r.Scenario.Fees[domain.Segment(seg)] = fee
		}
		m.RiskFlag = domain.RiskFlag(flag)
		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scenario result rows: %w", err)
	}

	return results, nil
}
