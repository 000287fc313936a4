package memory

import (
	"context"
	"errors"
	"testing"

	"fee-elasticity-lab/internal/domain"
	"fee-elasticity-lab/internal/storage"
)

func makeResult(runID string, index int, flag domain.RiskFlag) *domain.ScenarioResult {
	return &domain.ScenarioResult{
		RunID: runID,
		Index: index,
		Scenario: domain.Scenario{
			ScenarioID: "sc",
			Fees:       domain.SegmentValues{domain.SegmentBank: float64(index + 2)},
		},
		Metrics: domain.DecisionMetrics{RevenueUpliftPct: float64(index), RiskFlag: flag},
	}
}

func TestScenarioResultStore_InsertAndGet(t *testing.T) {
	store := NewScenarioResultStore()
	ctx := context.Background()

	batch := []*domain.ScenarioResult{
		makeResult("run1", 2, domain.RiskOK),
		makeResult("run1", 0, domain.RiskHigh),
		makeResult("run1", 1, domain.RiskOK),
		makeResult("run2", 0, domain.RiskOK),
	}
	if err := store.InsertBulk(ctx, batch); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByRunID(ctx, "run1")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	for i, r := range got {
		if r.Index != i {
			t.Errorf("result %d has index %d", i, r.Index)
		}
	}

	ok, err := store.GetByRiskFlag(ctx, "run1", domain.RiskOK)
	if err != nil {
		t.Fatalf("GetByRiskFlag failed: %v", err)
	}
	if len(ok) != 2 {
		t.Errorf("expected 2 OK results, got %d", len(ok))
	}
}

func TestScenarioResultStore_DuplicateKey(t *testing.T) {
	store := NewScenarioResultStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, []*domain.ScenarioResult{makeResult("run1", 0, domain.RiskOK)}); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	err := store.InsertBulk(ctx, []*domain.ScenarioResult{
		makeResult("run1", 1, domain.RiskOK),
		makeResult("run1", 0, domain.RiskOK),
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	got, _ := store.GetByRunID(ctx, "run1")
	if len(got) != 1 {
		t.Errorf("failed batch must not be partially applied, got %d results", len(got))
	}
}

func TestScenarioResultStore_FeesAreCopied(t *testing.T) {
	store := NewScenarioResultStore()
	ctx := context.Background()

	r := makeResult("run1", 0, domain.RiskOK)
	_ = store.InsertBulk(ctx, []*domain.ScenarioResult{r})
	r.Scenario.Fees[domain.SegmentBank] = 99

	got, _ := store.GetByRunID(ctx, "run1")
	if got[0].Scenario.Fees[domain.SegmentBank] != 2 {
		t.Errorf("store aliased fee map: %v", got[0].Scenario.Fees)
	}
}
