package service

import (
	"context"
	"testing"

	"atelier-sync/internal/model"
	"atelier-sync/internal/shopify"

	"go.uber.org/zap"
)

func twoPageCatalog() *fakeCatalog {
	catalog := newFakeCatalog()
	catalog.pages[""] = []shopify.Product{
		{ID: 1, Title: "Linen Shirt", Variants: []shopify.Variant{
			{ID: 101, ProductID: 1, SKU: "SHOPIFY-101"},
			{ID: 102, ProductID: 1, SKU: "LIN-WHT-M-001"},
		}},
	}
	catalog.nextCursors[""] = "page-2"
	catalog.pages["page-2"] = []shopify.Product{
		{ID: 2, Title: "Cotton Dress", Variants: []shopify.Variant{
			{ID: 201, ProductID: 2, SKU: "1690000000000"},
			{ID: 202, ProductID: 2, SKU: ""},
		}},
	}
	return catalog
}

func TestRepairArtificialSKUs(t *testing.T) {
	catalog := twoPageCatalog()
	syncRepo := newFakeSyncLogRepo()
	svc := NewSKURepairService(catalog, syncRepo, nil, zap.NewNop())

	summary, err := svc.RepairArtificialSKUs(context.Background(), RepairRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.ProductsScanned != 2 {
		t.Errorf("products scanned = %d, want 2", summary.ProductsScanned)
	}
	if summary.Processed != 4 {
		t.Errorf("processed = %d, want 4", summary.Processed)
	}
	if summary.Updated != 3 {
		t.Errorf("updated = %d, want 3", summary.Updated)
	}
	if summary.Status != string(model.SyncStatusCompleted) {
		t.Errorf("status = %s, want completed", summary.Status)
	}

	// Repaired SKU is the variant's own platform id, stringified.
	if catalog.updates[101] != "101" || catalog.updates[201] != "201" || catalog.updates[202] != "202" {
		t.Errorf("unexpected updates: %v", catalog.updates)
	}
	if _, touched := catalog.updates[102]; touched {
		t.Error("real SKU must not be rewritten")
	}

	batch, err := syncRepo.FindByProcessID(summary.ProcessID)
	if err != nil {
		t.Fatal(err)
	}
	if batch.Status != model.SyncStatusCompleted || batch.Updated != 3 {
		t.Errorf("persisted batch = %+v", batch)
	}
}

func TestRepairIdempotence(t *testing.T) {
	catalog := twoPageCatalog()
	syncRepo := newFakeSyncLogRepo()
	svc := NewSKURepairService(catalog, syncRepo, nil, zap.NewNop())

	if _, err := svc.RepairArtificialSKUs(context.Background(), RepairRequest{}); err != nil {
		t.Fatal(err)
	}

	second, err := svc.RepairArtificialSKUs(context.Background(), RepairRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if second.Updated != 0 {
		t.Errorf("second run updated = %d, want 0", second.Updated)
	}
}

func TestRepairIsolatesPerVariantFailures(t *testing.T) {
	catalog := twoPageCatalog()
	catalog.failIDs[101] = true
	syncRepo := newFakeSyncLogRepo()
	svc := NewSKURepairService(catalog, syncRepo, nil, zap.NewNop())

	summary, err := svc.RepairArtificialSKUs(context.Background(), RepairRequest{})
	if err != nil {
		t.Fatalf("a single bad variant must not abort the batch: %v", err)
	}
	if summary.Errors != 1 {
		t.Errorf("errors = %d, want 1", summary.Errors)
	}
	if summary.Updated != 2 {
		t.Errorf("updated = %d, want 2 (siblings continue)", summary.Updated)
	}
}

func TestRepairPausesAtMaxVariantsAndResumes(t *testing.T) {
	catalog := twoPageCatalog()
	syncRepo := newFakeSyncLogRepo()
	svc := NewSKURepairService(catalog, syncRepo, nil, zap.NewNop())

	first, err := svc.RepairArtificialSKUs(context.Background(), RepairRequest{MaxVariants: 2})
	if err != nil {
		t.Fatal(err)
	}
	if first.Status != string(model.SyncStatusPaused) {
		t.Fatalf("status = %s, want paused", first.Status)
	}
	if first.NextCursor != "page-2" {
		t.Fatalf("next cursor = %q, want page-2", first.NextCursor)
	}

	// The stored cursor survives the invocation boundary; resuming by
	// process id picks the walk up where it stopped.
	second, err := svc.RepairArtificialSKUs(context.Background(), RepairRequest{ProcessID: first.ProcessID})
	if err != nil {
		t.Fatal(err)
	}
	if second.Status != string(model.SyncStatusCompleted) {
		t.Errorf("status = %s, want completed", second.Status)
	}
	if second.Processed != 4 {
		t.Errorf("cumulative processed = %d, want 4", second.Processed)
	}
}

func TestRepairStopsWhenCancelledBetweenPages(t *testing.T) {
	catalog := twoPageCatalog()
	syncRepo := newFakeSyncLogRepo()
	svc := NewSKURepairService(catalog, syncRepo, nil, zap.NewNop())

	// Cancel the batch externally while page 1 is being served; the walk
	// must notice before fetching page 2.
	catalog.onList = func(pageInfo string) {
		if pageInfo == "" {
			logs, _ := syncRepo.ListRecent(1)
			_ = syncRepo.UpdateStatus(logs[0].ProcessID, model.SyncStatusCancelled)
		}
	}

	summary, err := svc.RepairArtificialSKUs(context.Background(), RepairRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Status != string(model.SyncStatusCancelled) {
		t.Fatalf("status = %s, want cancelled", summary.Status)
	}
	if summary.NextCursor != "page-2" {
		t.Errorf("partial progress must stay resumable, cursor = %q", summary.NextCursor)
	}
	if _, touched := catalog.updates[201]; touched {
		t.Error("page 2 must not be processed after cancellation")
	}

	// Resume after cancel: terminal batches are refused.
	logs, _ := syncRepo.ListRecent(1)
	if _, err := svc.RepairArtificialSKUs(context.Background(), RepairRequest{ProcessID: logs[0].ProcessID}); err == nil {
		t.Error("expected resume of cancelled batch to fail")
	}
}

func TestRepairFatalOnMissingCredentials(t *testing.T) {
	catalog := twoPageCatalog()
	catalog.credsErr = context.DeadlineExceeded // any non-nil sentinel
	svc := NewSKURepairService(catalog, newFakeSyncLogRepo(), nil, zap.NewNop())

	if _, err := svc.RepairArtificialSKUs(context.Background(), RepairRequest{}); err == nil {
		t.Error("expected missing credentials to abort the invocation")
	}
}
