package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"fee-elasticity-lab/internal/domain"
	"fee-elasticity-lab/internal/storage"
)

// EstimateStore implements storage.EstimateStore using PostgreSQL.
// A calibration is stored as one calibration_runs row plus one
// elasticity_estimates row per segment.
type EstimateStore struct {
	pool *Pool
}

// NewEstimateStore creates a new EstimateStore.
func NewEstimateStore(pool *Pool) *EstimateStore {
	return &EstimateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EstimateStore = (*EstimateStore)(nil)

// Insert stores a calibration under runID. Returns ErrDuplicateKey if the run exists.
func (s *EstimateStore) Insert(ctx context.Context, runID string, cal *domain.Calibration) (err error) {
	if runID == "" || cal == nil {
		return storage.ErrInvalidInput
	}
	defer track("estimates_insert", &err)()

	return s.pool.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO calibration_runs (run_id, bounds_min, bounds_max, bootstrap_count, seed)
			VALUES ($1, $2, $3, $4, $5)
		`, runID, cal.Bounds.Min, cal.Bounds.Max, cal.BootstrapCount, cal.Seed)
		if err != nil {
			return fmt.Errorf("insert calibration run: %w", err)
		}

		query := `
			INSERT INTO elasticity_estimates (
				run_id, position, segment, beta, stderr, ci_low, ci_high, sample_size, fallback
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		for i, e := range cal.Estimates {
			_, err = tx.Exec(ctx, query,
				runID, i, string(e.Segment), e.Beta, e.StdErr, e.CILow, e.CIHigh, e.SampleSize, e.Fallback,
			)
			if err != nil {
				return fmt.Errorf("insert elasticity estimate: %w", err)
			}
		}
		return nil
	})
}

// GetByRunID retrieves the calibration for a run. Returns ErrNotFound if not exists.
func (s *EstimateStore) GetByRunID(ctx context.Context, runID string) (cal *domain.Calibration, err error) {
	defer track("estimates_get", &err)()

	cal = &domain.Calibration{}
	err = s.pool.QueryRow(ctx, `
		SELECT bounds_min, bounds_max, bootstrap_count, seed
		FROM calibration_runs
		WHERE run_id = $1
	`, runID).Scan(&cal.Bounds.Min, &cal.Bounds.Max, &cal.BootstrapCount, &cal.Seed)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get calibration run: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT segment, beta, stderr, ci_low, ci_high, sample_size, fallback
		FROM elasticity_estimates
		WHERE run_id = $1
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query elasticity estimates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e   domain.ElasticityEstimate
			seg string
		)
		if err = rows.Scan(&seg, &e.Beta, &e.StdErr, &e.CILow, &e.CIHigh, &e.SampleSize, &e.Fallback); err != nil {
			return nil, fmt.Errorf("scan estimate row: %w", err)
		}
		e.Segment = domain.Segment(seg)
		cal.Estimates = append(cal.Estimates, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate estimate rows: %w", err)
	}
	return cal, nil
}
