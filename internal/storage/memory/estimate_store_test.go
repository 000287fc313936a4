package memory

import (
	"context"
	"errors"
	"testing"

	"fee-elasticity-lab/internal/domain"
	"fee-elasticity-lab/internal/storage"
)

func TestEstimateStore_InsertAndGet(t *testing.T) {
	store := NewEstimateStore()
	ctx := context.Background()

	cal := &domain.Calibration{
		Bounds:         domain.ElasticityBounds{Min: -0.8, Max: -0.01},
		BootstrapCount: 400,
		Seed:           42,
		Estimates: []domain.ElasticityEstimate{
			{Segment: domain.SegmentBank, Beta: -0.06, StdErr: 0.01, CILow: -0.08, CIHigh: -0.04, SampleSize: 120},
		},
	}
	if err := store.Insert(ctx, "run1", cal); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByRunID(ctx, "run1")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if got.Estimates[0].Beta != -0.06 || got.Seed != 42 {
		t.Errorf("unexpected calibration: %+v", got)
	}

	got.Estimates[0].Beta = 0
	again, _ := store.GetByRunID(ctx, "run1")
	if again.Estimates[0].Beta != -0.06 {
		t.Errorf("store aliased returned estimates")
	}
}

func TestEstimateStore_Errors(t *testing.T) {
	store := NewEstimateStore()
	ctx := context.Background()

	if _, err := store.GetByRunID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.Insert(ctx, "", &domain.Calibration{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}

	_ = store.Insert(ctx, "run1", &domain.Calibration{})
	if err := store.Insert(ctx, "run1", &domain.Calibration{}); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}
