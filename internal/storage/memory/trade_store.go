package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"fee-elasticity-lab/internal/domain"
	"fee-elasticity-lab/internal/idhash"
	"fee-elasticity-lab/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TradeRecord // by trade ID
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[string]*domain.TradeRecord),
	}
}

// InsertBulk adds multiple trades atomically. Trades without an ID get one
// from idhash.AssignTradeIDs. Fails entire batch on any duplicate ID.
func (s *TradeStore) InsertBulk(_ context.Context, trades []*domain.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}

	batch := make([]domain.TradeRecord, len(trades))
	for i, t := range trades {
		if t == nil || t.Segment == "" {
			return storage.ErrInvalidInput
		}
		batch[i] = *t
	}
	idhash.AssignTradeIDs(batch)

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: check for duplicates (existing + intra-batch)
	batchIDs := make(map[string]struct{}, len(batch))
	for _, t := range batch {
		if _, exists := s.data[t.ID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchIDs[t.ID]; exists {
			return storage.ErrDuplicateKey
		}
		batchIDs[t.ID] = struct{}{}
	}

	// Second pass: insert all
	for i := range batch {
		s.data[batch[i].ID] = &batch[i]
	}

	return nil
}

// GetBySegment retrieves all trades for a segment, ordered by date ASC.
func (s *TradeStore) GetBySegment(_ context.Context, segment domain.Segment) ([]*domain.TradeRecord, error) {
	return s.collect(func(t *domain.TradeRecord) bool {
		return t.Segment == segment
	}), nil
}

// GetByDateRange retrieves trades within [start, end] (inclusive), ordered by date ASC, segment ASC.
func (s *TradeStore) GetByDateRange(_ context.Context, start, end time.Time) ([]*domain.TradeRecord, error) {
	return s.collect(func(t *domain.TradeRecord) bool {
		return !t.Date.Before(start) && !t.Date.After(end)
	}), nil
}

// GetAll retrieves all trades, ordered by date ASC, segment ASC, ID ASC.
func (s *TradeStore) GetAll(_ context.Context) ([]*domain.TradeRecord, error) {
	return s.collect(func(*domain.TradeRecord) bool { return true }), nil
}

func (s *TradeStore) collect(match func(*domain.TradeRecord) bool) []*domain.TradeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeRecord
	for _, t := range s.data {
		if match(t) {
			copy := *t
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		if result[i].Segment != result[j].Segment {
			return result[i].Segment < result[j].Segment
		}
		return result[i].ID < result[j].ID
	})

	return result
}

var _ storage.TradeStore = (*TradeStore)(nil)
