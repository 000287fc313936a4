package memory

import (
	"context"
	"sort"
	"sync"

	"fee-elasticity-lab/internal/domain"
	"fee-elasticity-lab/internal/storage"
)

type resultKey struct {
	runID string
	index int
}

// ScenarioResultStore is an in-memory implementation of storage.ScenarioResultStore.
type ScenarioResultStore struct {
	mu   sync.RWMutex
	data map[resultKey]*domain.ScenarioResult
}

// NewScenarioResultStore creates a new in-memory scenario result store.
func NewScenarioResultStore() *ScenarioResultStore {
	return &ScenarioResultStore{
		data: make(map[resultKey]*domain.ScenarioResult),
	}
}

// InsertBulk adds multiple results atomically. Fails entire batch on any duplicate.
func (s *ScenarioResultStore) InsertBulk(_ context.Context, results []*domain.ScenarioResult) error {
	if len(results) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[resultKey]struct{}, len(results))
	for _, r := range results {
		if r == nil || r.RunID == "" || r.Index < 0 {
			return storage.ErrInvalidInput
		}
		k := resultKey{runID: r.RunID, index: r.Index}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, r := range results {
		s.data[resultKey{runID: r.RunID, index: r.Index}] = cloneResult(r)
	}
	return nil
}

// GetByRunID retrieves all results for a run, ordered by scenario_index ASC.
func (s *ScenarioResultStore) GetByRunID(_ context.Context, runID string) ([]*domain.ScenarioResult, error) {
	return s.collect(func(r *domain.ScenarioResult) bool {
		return r.RunID == runID
	}), nil
}

// GetByRiskFlag retrieves results for a run with the given flag, ordered by scenario_index ASC.
func (s *ScenarioResultStore) GetByRiskFlag(_ context.Context, runID string, flag domain.RiskFlag) ([]*domain.ScenarioResult, error) {
	return s.collect(func(r *domain.ScenarioResult) bool {
		return r.RunID == runID && r.Metrics.RiskFlag == flag
	}), nil
}

func (s *ScenarioResultStore) collect(match func(*domain.ScenarioResult) bool) []*domain.ScenarioResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ScenarioResult
	for _, r := range s.data {
		if match(r) {
			result = append(result, cloneResult(r))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Index < result[j].Index
	})
	return result
}

func cloneResult(r *domain.ScenarioResult) *domain.ScenarioResult {
	copy := *r
	copy.Scenario.Fees = r.Scenario.Fees.Clone()
	return &copy
}

var _ storage.ScenarioResultStore = (*ScenarioResultStore)(nil)
