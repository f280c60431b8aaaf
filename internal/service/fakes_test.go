package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"atelier-sync/internal/model"
	"atelier-sync/internal/shopify"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- sync log repository fake ---

type fakeSyncLogRepo struct {
	logs map[uuid.UUID]*model.SyncLog
}

func newFakeSyncLogRepo() *fakeSyncLogRepo {
	return &fakeSyncLogRepo{logs: make(map[uuid.UUID]*model.SyncLog)}
}

func (r *fakeSyncLogRepo) Create(log *model.SyncLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.ProcessID == uuid.Nil {
		log.ProcessID = uuid.New()
	}
	if log.StartedAt.IsZero() {
		log.StartedAt = time.Now()
	}
	if log.Status == "" {
		log.Status = model.SyncStatusRunning
	}
	clone := *log
	r.logs[log.ProcessID] = &clone
	return nil
}

func (r *fakeSyncLogRepo) FindByProcessID(processID uuid.UUID) (*model.SyncLog, error) {
	log, ok := r.logs[processID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *log
	return &clone, nil
}

func (r *fakeSyncLogRepo) Update(log *model.SyncLog) error {
	if _, ok := r.logs[log.ProcessID]; !ok {
		return gorm.ErrRecordNotFound
	}
	if log.Status.Terminal() && log.CompletedAt == nil {
		now := time.Now()
		log.CompletedAt = &now
	}
	clone := *log
	r.logs[log.ProcessID] = &clone
	return nil
}

func (r *fakeSyncLogRepo) UpdateProgress(processID uuid.UUID, processed, updated, errCount int, cursor string) error {
	log, ok := r.logs[processID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	log.Processed = processed
	log.Updated = updated
	log.Errors = errCount
	log.CurrentCursor = cursor
	return nil
}

func (r *fakeSyncLogRepo) UpdateStatus(processID uuid.UUID, status model.SyncStatus) error {
	log, ok := r.logs[processID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	log.Status = status
	if status.Terminal() {
		now := time.Now()
		log.CompletedAt = &now
	}
	return nil
}

func (r *fakeSyncLogRepo) ListRecent(limit int) ([]model.SyncLog, error) {
	var logs []model.SyncLog
	for _, log := range r.logs {
		logs = append(logs, *log)
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].StartedAt.After(logs[j].StartedAt) })
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

// --- delivery repository fake ---

type fakeDeliveryRepo struct {
	items map[uuid.UUID]*model.DeliveryItem // by item id
}

func newFakeDeliveryRepo(items ...*model.DeliveryItem) *fakeDeliveryRepo {
	r := &fakeDeliveryRepo{items: make(map[uuid.UUID]*model.DeliveryItem)}
	for _, item := range items {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		r.items[item.ID] = item
	}
	return r
}

func (r *fakeDeliveryRepo) FindByID(id uuid.UUID) (*model.Delivery, error) {
	return &model.Delivery{BaseModel: model.BaseModel{ID: id}}, nil
}

func (r *fakeDeliveryRepo) FindItems(deliveryID uuid.UUID) ([]model.DeliveryItem, error) {
	var items []model.DeliveryItem
	for _, item := range r.items {
		if item.DeliveryID == deliveryID {
			items = append(items, *item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return items, nil
}

func (r *fakeDeliveryRepo) FindItemByID(id uuid.UUID) (*model.DeliveryItem, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *item
	return &clone, nil
}

func (r *fakeDeliveryRepo) MarkItemSynced(itemID uuid.UUID, at time.Time) error {
	item, ok := r.items[itemID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	item.SyncedToShopify = true
	item.LastSyncAttempt = &at
	item.SyncError = ""
	return nil
}

func (r *fakeDeliveryRepo) RecordItemFailure(itemID uuid.UUID, at time.Time, reason string) error {
	item, ok := r.items[itemID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	item.LastSyncAttempt = &at
	item.SyncError = reason
	return nil
}

// --- metric repository fake ---

type fakeMetricRepo struct {
	metrics []model.SalesMetric
}

func (r *fakeMetricRepo) FindByDate(date time.Time) ([]model.SalesMetric, error) {
	var out []model.SalesMetric
	for _, m := range r.metrics {
		if m.Date.Format("2006-01-02") == date.Format("2006-01-02") {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *fakeMetricRepo) DeleteByIDs(ids []uuid.UUID) (int64, error) {
	drop := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	var kept []model.SalesMetric
	var deleted int64
	for _, m := range r.metrics {
		if drop[m.ID] {
			deleted++
			continue
		}
		kept = append(kept, m)
	}
	r.metrics = kept
	return deleted, nil
}

// --- shopify catalog fake (repair engine) ---

type fakeCatalog struct {
	pages       map[string][]shopify.Product // cursor -> page ("" is first)
	nextCursors map[string]string
	updates     map[int64]string // variant id -> last written sku
	failIDs     map[int64]bool
	listErr     error
	credsErr    error
	onList      func(pageInfo string)
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		pages:       make(map[string][]shopify.Product),
		nextCursors: make(map[string]string),
		updates:     make(map[int64]string),
		failIDs:     make(map[int64]bool),
	}
}

func (f *fakeCatalog) ValidateCredentials() error { return f.credsErr }

func (f *fakeCatalog) ListProducts(_ context.Context, _ int, pageInfo string) ([]shopify.Product, string, error) {
	if f.onList != nil {
		f.onList(pageInfo)
	}
	if f.listErr != nil {
		return nil, "", f.listErr
	}
	page, ok := f.pages[pageInfo]
	if !ok {
		return nil, "", fmt.Errorf("unknown cursor %q", pageInfo)
	}
	return page, f.nextCursors[pageInfo], nil
}

func (f *fakeCatalog) UpdateVariantSKU(_ context.Context, variantID int64, newSKU string) error {
	if f.failIDs[variantID] {
		return &shopify.APIError{StatusCode: 422, Status: "422 Unprocessable Entity", Body: "sku taken"}
	}
	f.updates[variantID] = newSKU
	// mutate the catalog so a rerun sees the repaired sku
	for cursor, page := range f.pages {
		for pi := range page {
			for vi := range page[pi].Variants {
				if page[pi].Variants[vi].ID == variantID {
					page[pi].Variants[vi].SKU = newSKU
				}
			}
		}
		f.pages[cursor] = page
	}
	return nil
}

// --- shopify inventory fake (push engine) ---

type fakeInventory struct {
	variants map[string]shopify.Variant // by sku
	levels   map[int64][]shopify.InventoryLevel
	setCalls []struct {
		LocationID      int64
		InventoryItemID int64
		Available       int
	}
	lookups  int
	setErr   error
	credsErr error
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{
		variants: make(map[string]shopify.Variant),
		levels:   make(map[int64][]shopify.InventoryLevel),
	}
}

func (f *fakeInventory) ValidateCredentials() error { return f.credsErr }

func (f *fakeInventory) FindVariantBySKU(_ context.Context, skuValue string) (*shopify.Variant, error) {
	f.lookups++
	v, ok := f.variants[skuValue]
	if !ok {
		return nil, shopify.ErrVariantNotFound
	}
	return &v, nil
}

func (f *fakeInventory) GetInventoryLevels(_ context.Context, inventoryItemID int64) ([]shopify.InventoryLevel, error) {
	return f.levels[inventoryItemID], nil
}

func (f *fakeInventory) SetInventoryLevel(_ context.Context, locationID, inventoryItemID int64, available int) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.setCalls = append(f.setCalls, struct {
		LocationID      int64
		InventoryItemID int64
		Available       int
	}{locationID, inventoryItemID, available})
	for i := range f.levels[inventoryItemID] {
		if f.levels[inventoryItemID][i].LocationID == locationID {
			f.levels[inventoryItemID][i].Available = available
		}
	}
	return nil
}
