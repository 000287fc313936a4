package memory

import (
	"context"
	"sync"

	"fee-elasticity-lab/internal/domain"
	"fee-elasticity-lab/internal/storage"
)

// EstimateStore is an in-memory implementation of storage.EstimateStore.
type EstimateStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Calibration // keyed by run_id
}

// NewEstimateStore creates a new in-memory estimate store.
func NewEstimateStore() *EstimateStore {
	return &EstimateStore{
		data: make(map[string]*domain.Calibration),
	}
}

// Insert stores a calibration under runID. Returns ErrDuplicateKey if the run exists.
func (s *EstimateStore) Insert(_ context.Context, runID string, cal *domain.Calibration) error {
	if runID == "" || cal == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[runID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[runID] = cloneCalibration(cal)
	return nil
}

// GetByRunID retrieves the calibration for a run. Returns ErrNotFound if not exists.
func (s *EstimateStore) GetByRunID(_ context.Context, runID string) (*domain.Calibration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cal, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneCalibration(cal), nil
}

func cloneCalibration(cal *domain.Calibration) *domain.Calibration {
	copy := *cal
	copy.Estimates = append([]domain.ElasticityEstimate(nil), cal.Estimates...)
	return &copy
}

var _ storage.EstimateStore = (*EstimateStore)(nil)
