package service

import (
	"context"
	"testing"
	"time"

	"atelier-sync/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func metricsFixture() (*fakeMetricRepo, time.Time, uuid.UUID) {
	date := time.Date(2025, 7, 23, 0, 0, 0, 0, time.UTC)
	dupVariant := uuid.New()
	cleanVariant := uuid.New()

	base := time.Date(2025, 7, 24, 3, 0, 0, 0, time.UTC)
	repo := &fakeMetricRepo{metrics: []model.SalesMetric{
		{
			ID: uuid.New(), Date: date, VariantID: dupVariant, SKU: "1001234",
			Quantity: 8, OrderCount: 5, Revenue: decimal.NewFromInt(240), CreatedAt: base,
		},
		{
			// the overlapping sync run's double-counted row
			ID: uuid.New(), Date: date, VariantID: dupVariant, SKU: "1001234",
			Quantity: 16, OrderCount: 10, Revenue: decimal.NewFromInt(480), CreatedAt: base.Add(2 * time.Minute),
		},
		{
			ID: uuid.New(), Date: date, VariantID: cleanVariant, SKU: "COT-BLU-M-042",
			Quantity: 3, OrderCount: 2, Revenue: decimal.NewFromInt(90), CreatedAt: base,
		},
	}}
	return repo, date, dupVariant
}

func TestInvestigateFindsDuplicateGroups(t *testing.T) {
	repo, date, dupVariant := metricsFixture()
	svc := NewDuplicationService(repo, zap.NewNop())

	groups, err := svc.Investigate(context.Background(), date)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if groups[0].VariantID != dupVariant || len(groups[0].Entries) != 2 {
		t.Errorf("group = %+v", groups[0])
	}
	if groups[0].Entries[0].Quantity != 8 {
		t.Errorf("entries must be ordered earliest first: %+v", groups[0].Entries)
	}
}

func TestCleanKeepsEarliestRow(t *testing.T) {
	repo, date, dupVariant := metricsFixture()
	svc := NewDuplicationService(repo, zap.NewNop())

	deleted, err := svc.Clean(context.Background(), date, "")
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}

	rows, _ := repo.FindByDate(date)
	var kept *model.SalesMetric
	for i := range rows {
		if rows[i].VariantID == dupVariant {
			if kept != nil {
				t.Fatal("duplicate group not collapsed to one row")
			}
			kept = &rows[i]
		}
	}
	if kept == nil || kept.Quantity != 8 {
		t.Errorf("earliest-created row must survive, kept = %+v", kept)
	}

	// Clean is idempotent: a second pass deletes nothing.
	deleted, err = svc.Clean(context.Background(), date, "")
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 0 {
		t.Errorf("second clean deleted %d rows, want 0", deleted)
	}

	result, err := svc.Validate(context.Background(), date)
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsClean || result.DuplicatesRemaining != 0 {
		t.Errorf("validate = %+v", result)
	}
}

func TestCleanWithSpecificSKU(t *testing.T) {
	repo, date, _ := metricsFixture()
	svc := NewDuplicationService(repo, zap.NewNop())

	deleted, err := svc.Clean(context.Background(), date, "OTHER-SKU")
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 0 {
		t.Errorf("sku filter must restrict deletion, deleted = %d", deleted)
	}

	deleted, err = svc.Clean(context.Background(), date, "1001234")
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
}

func TestValidateReportsRemainingDuplicates(t *testing.T) {
	repo, date, _ := metricsFixture()
	svc := NewDuplicationService(repo, zap.NewNop())

	result, err := svc.Validate(context.Background(), date)
	if err != nil {
		t.Fatal(err)
	}
	if result.IsClean || result.DuplicatesRemaining != 1 {
		t.Errorf("validate = %+v", result)
	}
}
