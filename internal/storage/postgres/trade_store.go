package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"fee-elasticity-lab/internal/domain"
	"fee-elasticity-lab/internal/idhash"
	"fee-elasticity-lab/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

var tradeColumns = []string{"trade_id", "segment", "trade_date", "fee_bps", "volume", "notional"}

// InsertBulk adds multiple trades atomically via COPY. Trades without an ID
// get one from idhash.AssignTradeIDs. Fails entire batch on any duplicate ID.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.TradeRecord) (err error) {
	if len(trades) == 0 {
		return nil
	}
	defer track("trades_insert_bulk", &err)()

	batch := make([]domain.TradeRecord, len(trades))
	for i, t := range trades {
		if t == nil || t.Segment == "" {
			return storage.ErrInvalidInput
		}
		batch[i] = *t
	}
	idhash.AssignTradeIDs(batch)

	rows := make([][]any, len(batch))
	for i, t := range batch {
		rows[i] = []any{t.ID, string(t.Segment), t.Date.UTC(), t.FeeBps, t.Volume, t.Notional}
	}

	return s.pool.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"trades"}, tradeColumns, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("copy trades: %w", err)
		}
		return nil
	})
}

// GetBySegment retrieves all trades for a segment, ordered by date ASC.
func (s *TradeStore) GetBySegment(ctx context.Context, segment domain.Segment) ([]*domain.TradeRecord, error) {
	query := `
		SELECT trade_id, segment, trade_date, fee_bps, volume, notional
		FROM trades
		WHERE segment = $1
		ORDER BY trade_date ASC, trade_id COLLATE "C" ASC
	`
	return s.query(ctx, "trades_by_segment", query, string(segment))
}

// GetByDateRange retrieves trades within [start, end], ordered by date ASC, segment ASC.
func (s *TradeStore) GetByDateRange(ctx context.Context, start, end time.Time) ([]*domain.TradeRecord, error) {
	query := `
		SELECT trade_id, segment, trade_date, fee_bps, volume, notional
		FROM trades
		WHERE trade_date >= $1 AND trade_date <= $2
		ORDER BY trade_date ASC, segment COLLATE "C" ASC, trade_id COLLATE "C" ASC
	`
	return s.query(ctx, "trades_by_date_range", query, start, end)
}

// GetAll retrieves all trades, ordered by date ASC, segment ASC, ID ASC.
func (s *TradeStore) GetAll(ctx context.Context) ([]*domain.TradeRecord, error) {
	query := `
		SELECT trade_id, segment, trade_date, fee_bps, volume, notional
		FROM trades
		ORDER BY trade_date ASC, segment COLLATE "C" ASC, trade_id COLLATE "C" ASC
	`
	return s.query(ctx, "trades_all", query)
}

func (s *TradeStore) query(ctx context.Context, operation, query string, args ...any) (out []*domain.TradeRecord, err error) {
	defer track(operation, &err)()

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t   domain.TradeRecord
			seg string
		)
		if err = rows.Scan(&t.ID, &seg, &t.Date, &t.FeeBps, &t.Volume, &t.Notional); err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		t.Segment = domain.Segment(seg)
		t.Date = t.Date.UTC()
		out = append(out, &t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}
	return out, nil
}
