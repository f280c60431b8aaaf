package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"atelier-sync/internal/cache"
	"atelier-sync/internal/model"
	"atelier-sync/internal/repository"
	"atelier-sync/internal/shopify"
	"atelier-sync/internal/ws"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InventoryAPI is the slice of the Shopify client the push engine needs.
type InventoryAPI interface {
	FindVariantBySKU(ctx context.Context, skuValue string) (*shopify.Variant, error)
	GetInventoryLevels(ctx context.Context, inventoryItemID int64) ([]shopify.InventoryLevel, error)
	SetInventoryLevel(ctx context.Context, locationID, inventoryItemID int64, available int) error
	ValidateCredentials() error
}

type ApprovedItem struct {
	VariantID        uuid.UUID `json:"variantId" validate:"uuid_required"`
	SKUVariant       string    `json:"skuVariant" validate:"required"`
	QuantityApproved int       `json:"quantityApproved" validate:"required,gt=0"`
}

const (
	PushStatusSynced  = "synced"
	PushStatusSkipped = "skipped"
	PushStatusFailed  = "failed"
)

type PushItemResult struct {
	VariantID      uuid.UUID `json:"variant_id"`
	SKU            string    `json:"sku"`
	Status         string    `json:"status"`
	NewRemoteStock int       `json:"new_remote_stock,omitempty"`
	Error          string    `json:"error,omitempty"`
}

type PushSummary struct {
	ProcessID uuid.UUID `json:"process_id"`
	Total     int       `json:"total"`
	Synced    int       `json:"synced"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
}

type InventoryPushService interface {
	SyncApprovedItems(ctx context.Context, deliveryID uuid.UUID, items []ApprovedItem) (*PushSummary, []PushItemResult, error)
	ResyncDelivery(ctx context.Context, deliveryID uuid.UUID, specificSKUs []string, retryAll bool) (*PushSummary, []PushItemResult, error)
}

type inventoryPushService struct {
	inventory    InventoryAPI
	deliveryRepo repository.DeliveryRepository
	syncRepo     repository.SyncLogRepository
	store        cache.Store
	hub          *ws.Hub
	logger       *zap.Logger
	locationID   int64 // preferred warehouse location; 0 means first reported
	cacheTTL     time.Duration
}

func NewInventoryPushService(
	inventory InventoryAPI,
	deliveryRepo repository.DeliveryRepository,
	syncRepo repository.SyncLogRepository,
	store cache.Store,
	hub *ws.Hub,
	logger *zap.Logger,
	locationID int64,
) InventoryPushService {
	return &inventoryPushService{
		inventory:    inventory,
		deliveryRepo: deliveryRepo,
		syncRepo:     syncRepo,
		store:        store,
		hub:          hub,
		logger:       logger,
		locationID:   locationID,
		cacheTTL:     5 * time.Minute,
	}
}

// SyncApprovedItems pushes each approved quantity into Shopify exactly
// once. The delivery item's synced flag is the sole idempotence guard:
// already-synced items are skipped here, and only ResyncDelivery may
// bypass the guard at operator request.
func (s *inventoryPushService) SyncApprovedItems(ctx context.Context, deliveryID uuid.UUID, items []ApprovedItem) (*PushSummary, []PushItemResult, error) {
	stored, err := s.deliveryRepo.FindItems(deliveryID)
	if err != nil {
		return nil, nil, err
	}

	// A delivery can hold several rows for the same variant. Rows are
	// claimed in created order, one per approved item, so each item is
	// judged against its own row's synced flag rather than a sibling's.
	byVariant := make(map[uuid.UUID][]*model.DeliveryItem, len(stored))
	for i := range stored {
		byVariant[stored[i].VariantID] = append(byVariant[stored[i].VariantID], &stored[i])
	}

	targets := make([]pushTarget, 0, len(items))
	for _, item := range items {
		var row *model.DeliveryItem
		if queue := byVariant[item.VariantID]; len(queue) > 0 {
			row = queue[0]
			byVariant[item.VariantID] = queue[1:]
		}
		targets = append(targets, pushTarget{stored: row, item: item})
	}

	return s.push(ctx, targets, false)
}

// ResyncDelivery replays previously-attempted items. With specificSKUs
// or retryAll the synced-flag guard is bypassed for the selected items;
// with neither, only items that never synced are retried.
func (s *inventoryPushService) ResyncDelivery(ctx context.Context, deliveryID uuid.UUID, specificSKUs []string, retryAll bool) (*PushSummary, []PushItemResult, error) {
	stored, err := s.deliveryRepo.FindItems(deliveryID)
	if err != nil {
		return nil, nil, err
	}

	skuFilter := make(map[string]bool, len(specificSKUs))
	for _, v := range specificSKUs {
		skuFilter[strings.TrimSpace(v)] = true
	}

	var targets []pushTarget
	bypass := retryAll || len(skuFilter) > 0
	for i := range stored {
		item := &stored[i]
		switch {
		case retryAll:
		case len(skuFilter) > 0:
			if !skuFilter[item.SKUVariant] {
				continue
			}
		default:
			if item.SyncedToShopify {
				continue
			}
		}
		targets = append(targets, pushTarget{
			stored: item,
			item: ApprovedItem{
				VariantID:        item.VariantID,
				SKUVariant:       item.SKUVariant,
				QuantityApproved: item.QuantityApproved,
			},
		})
	}

	return s.push(ctx, targets, bypass)
}

// pushTarget pairs an approved quantity with the exact delivery row it
// was resolved to.
type pushTarget struct {
	stored *model.DeliveryItem
	item   ApprovedItem
}

func (s *inventoryPushService) push(ctx context.Context, targets []pushTarget, bypassGuard bool) (*PushSummary, []PushItemResult, error) {
	if err := s.inventory.ValidateCredentials(); err != nil {
		return nil, nil, err
	}

	batch := &model.SyncLog{
		Type:       model.SyncTypeInventoryPush,
		Status:     model.SyncStatusRunning,
		TotalItems: len(targets),
	}
	if err := s.syncRepo.Create(batch); err != nil {
		return nil, nil, err
	}

	summary := &PushSummary{ProcessID: batch.ProcessID, Total: len(targets)}
	results := make([]PushItemResult, 0, len(targets))

	// Items are processed strictly in input order: no fan-out, so error
	// attribution is unambiguous and remote load stays bounded.
	for _, t := range targets {
		result := s.pushOne(ctx, t.stored, t.item, bypassGuard)
		results = append(results, result)
		switch result.Status {
		case PushStatusSynced:
			summary.Synced++
		case PushStatusSkipped:
			summary.Skipped++
		default:
			summary.Failed++
		}
	}

	batch.Processed = len(results)
	batch.Updated = summary.Synced
	batch.Skipped = summary.Skipped
	batch.Errors = summary.Failed
	batch.Status = model.SyncStatusCompleted
	if err := s.syncRepo.Update(batch); err != nil {
		s.logger.Error("failed to persist push batch log", zap.Error(err))
	}

	if s.hub != nil {
		s.hub.Publish(ws.ProgressEvent{
			ProcessID: batch.ProcessID.String(),
			SyncType:  string(batch.Type),
			Status:    string(batch.Status),
			Processed: batch.Processed,
			Updated:   batch.Updated,
			Errors:    batch.Errors,
		})
	}

	return summary, results, nil
}

func (s *inventoryPushService) pushOne(ctx context.Context, stored *model.DeliveryItem, item ApprovedItem, bypassGuard bool) PushItemResult {
	result := PushItemResult{VariantID: item.VariantID, SKU: item.SKUVariant}
	now := time.Now()

	if stored == nil {
		result.Status = PushStatusFailed
		result.Error = "delivery item not found for variant"
		return result
	}
	if stored.SyncedToShopify && !bypassGuard {
		result.Status = PushStatusSkipped
		result.Error = "already synced"
		return result
	}

	remote, err := s.lookupVariant(ctx, item.SKUVariant)
	if err != nil {
		if errors.Is(err, shopify.ErrVariantNotFound) {
			result.Error = "variant not found remotely"
		} else {
			result.Error = err.Error()
		}
		result.Status = PushStatusFailed
		s.recordFailure(stored.ID, now, result.Error)
		return result
	}

	levels, err := s.inventory.GetInventoryLevels(ctx, remote.InventoryItemID)
	if err != nil {
		result.Status = PushStatusFailed
		result.Error = err.Error()
		s.recordFailure(stored.ID, now, result.Error)
		return result
	}
	level, ok := s.pickLocation(levels)
	if !ok {
		result.Status = PushStatusFailed
		result.Error = "no inventory locations for variant"
		s.recordFailure(stored.ID, now, result.Error)
		return result
	}

	// Additive update with a freshly-read base: never an absolute
	// overwrite of an externally-changing value.
	newQuantity := level.Available + item.QuantityApproved
	if err := s.inventory.SetInventoryLevel(ctx, level.LocationID, remote.InventoryItemID, newQuantity); err != nil {
		result.Status = PushStatusFailed
		result.Error = err.Error()
		s.recordFailure(stored.ID, now, result.Error)
		return result
	}

	if err := s.deliveryRepo.MarkItemSynced(stored.ID, now); err != nil {
		// Remote stock moved but the guard did not persist; surface loudly
		// so the operator knows a retry would double-apply.
		s.logger.Error("inventory pushed but synced flag not persisted",
			zap.String("delivery_item_id", stored.ID.String()),
			zap.String("sku", item.SKUVariant),
			zap.Error(err))
		result.Status = PushStatusFailed
		result.Error = "pushed remotely but local synced flag failed: " + err.Error()
		return result
	}

	result.Status = PushStatusSynced
	result.NewRemoteStock = newQuantity
	return result
}

// lookupVariant consults the injected cache before hitting the API;
// resync runs over the same delivery reuse the entry.
func (s *inventoryPushService) lookupVariant(ctx context.Context, skuValue string) (*shopify.Variant, error) {
	key := "shopify:variant:sku:" + skuValue
	if s.store != nil {
		if raw, ok, _ := s.store.Get(ctx, key); ok {
			var v shopify.Variant
			if err := json.Unmarshal([]byte(raw), &v); err == nil {
				return &v, nil
			}
			_ = s.store.Delete(ctx, key)
		}
	}

	remote, err := s.inventory.FindVariantBySKU(ctx, skuValue)
	if err != nil {
		return nil, err
	}
	if s.store != nil {
		if raw, err := json.Marshal(remote); err == nil {
			_ = s.store.Set(ctx, key, string(raw), s.cacheTTL)
		}
	}
	return remote, nil
}

func (s *inventoryPushService) pickLocation(levels []shopify.InventoryLevel) (shopify.InventoryLevel, bool) {
	if len(levels) == 0 {
		return shopify.InventoryLevel{}, false
	}
	if s.locationID != 0 {
		for _, level := range levels {
			if level.LocationID == s.locationID {
				return level, true
			}
		}
	}
	return levels[0], true
}

func (s *inventoryPushService) recordFailure(itemID uuid.UUID, at time.Time, reason string) {
	if err := s.deliveryRepo.RecordItemFailure(itemID, at, reason); err != nil {
		s.logger.Error("failed to record item sync failure", zap.Error(err))
	}
}
