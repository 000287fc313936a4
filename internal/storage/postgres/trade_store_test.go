package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fee-elasticity-lab/internal/domain"
	"fee-elasticity-lab/internal/storage"
)

func tradeDay(d int) time.Time {
	return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
}

func createTestTrade(seg domain.Segment, d int, fee, volume float64) *domain.TradeRecord {
	return &domain.TradeRecord{
		Segment:  seg,
		Date:     tradeDay(d),
		FeeBps:   fee,
		Volume:   volume,
		Notional: volume * 1.1,
	}
}

func TestTradeStore_InsertBulkAndGetAll(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	ctx := context.Background()

	trades := []*domain.TradeRecord{
		createTestTrade(domain.SegmentPropFirm, 2, 6, 500),
		createTestTrade(domain.SegmentBank, 2, 5, 1000),
		createTestTrade(domain.SegmentBank, 1, 4, 1200),
	}
	require.NoError(t, store.InsertBulk(ctx, trades))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	// date ASC, segment ASC
	assert.Equal(t, domain.SegmentBank, all[0].Segment)
	assert.True(t, tradeDay(1).Equal(all[0].Date))
	assert.Equal(t, domain.SegmentBank, all[1].Segment)
	assert.Equal(t, domain.SegmentPropFirm, all[2].Segment)
	assert.InDelta(t, 1200.0, all[0].Volume, 1e-9)
	assert.InDelta(t, 4.0, all[0].FeeBps, 1e-9)
	assert.InDelta(t, 1320.0, all[0].Notional, 1e-9)
}

func TestTradeStore_GetBySegment(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.TradeRecord{
		createTestTrade(domain.SegmentBank, 3, 5, 900),
		createTestTrade(domain.SegmentBank, 1, 5, 1000),
		createTestTrade(domain.SegmentMarketMaker, 2, 3, 2000),
	}))

	bank, err := store.GetBySegment(ctx, domain.SegmentBank)
	require.NoError(t, err)
	require.Len(t, bank, 2)
	assert.True(t, bank[0].Date.Before(bank[1].Date))

	none, err := store.GetBySegment(ctx, domain.SegmentRetailBroker)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTradeStore_GetByDateRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	ctx := context.Background()

	var trades []*domain.TradeRecord
	for d := 1; d <= 5; d++ {
		trades = append(trades, createTestTrade(domain.SegmentBank, d, 5, 1000))
	}
	require.NoError(t, store.InsertBulk(ctx, trades))

	got, err := store.GetByDateRange(ctx, tradeDay(2), tradeDay(4))
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestTradeStore_InsertBulkAtomic(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.TradeRecord{
		createTestTrade(domain.SegmentBank, 1, 5, 1000),
	}))

	// Second batch repeats the stored trade: nothing from it may land.
	err := store.InsertBulk(ctx, []*domain.TradeRecord{
		createTestTrade(domain.SegmentBank, 2, 5, 1000),
		createTestTrade(domain.SegmentBank, 1, 5, 1000),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestTradeStore_SameDayTrades(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	ctx := context.Background()

	trades := []*domain.TradeRecord{
		createTestTrade(domain.SegmentBank, 1, 5, 1000),
		createTestTrade(domain.SegmentBank, 1, 5, 1100),
		createTestTrade(domain.SegmentBank, 1, 5, 1000),
	}
	require.NoError(t, store.InsertBulk(ctx, trades))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ID, all[i].ID)
	}

	bank, err := store.GetBySegment(ctx, domain.SegmentBank)
	require.NoError(t, err)
	assert.Equal(t, all, bank)
}

func TestTradeStore_InsertBulkEmpty(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	assert.NoError(t, store.InsertBulk(context.Background(), nil))
}
