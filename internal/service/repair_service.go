package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"atelier-sync/internal/model"
	"atelier-sync/internal/repository"
	"atelier-sync/internal/shopify"
	"atelier-sync/internal/ws"
	"atelier-sync/pkg/sku"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CatalogAPI is the slice of the Shopify client the repair engine needs.
type CatalogAPI interface {
	ListProducts(ctx context.Context, limit int, pageInfo string) ([]shopify.Product, string, error)
	UpdateVariantSKU(ctx context.Context, variantID int64, newSKU string) error
	ValidateCredentials() error
}

type RepairRequest struct {
	// MaxVariants is a soft cap checked between pages; a page is never
	// split. Zero means no cap.
	MaxVariants int
	// ProcessID resumes an existing paused batch from its stored cursor.
	ProcessID uuid.UUID
	// ResumeFromCursor starts a fresh batch at an explicit cursor.
	ResumeFromCursor string
}

type RepairSummary struct {
	ProcessID       uuid.UUID `json:"process_id"`
	ProductsScanned int       `json:"products_scanned"`
	Processed       int       `json:"processed"`
	Updated         int       `json:"updated"`
	Errors          int       `json:"errors"`
	NextCursor      string    `json:"next_cursor,omitempty"`
	Status          string    `json:"status"`
}

type SKURepairService interface {
	RepairArtificialSKUs(ctx context.Context, req RepairRequest) (*RepairSummary, error)
}

type skuRepairService struct {
	catalog  CatalogAPI
	syncRepo repository.SyncLogRepository
	hub      *ws.Hub
	logger   *zap.Logger
	pageSize int
}

func NewSKURepairService(catalog CatalogAPI, syncRepo repository.SyncLogRepository, hub *ws.Hub, logger *zap.Logger) SKURepairService {
	return &skuRepairService{
		catalog:  catalog,
		syncRepo: syncRepo,
		hub:      hub,
		logger:   logger,
		pageSize: 50,
	}
}

// RepairArtificialSKUs walks the remote catalog and overwrites every
// artificial SKU with the variant's own platform id. Platform ids are
// unique and stable, so a rerun over already-repaired variants changes
// nothing. Single-variant failures are counted and the walk continues;
// only credential/config problems abort the invocation.
func (s *skuRepairService) RepairArtificialSKUs(ctx context.Context, req RepairRequest) (*RepairSummary, error) {
	if err := s.catalog.ValidateCredentials(); err != nil {
		return nil, err
	}

	batch, err := s.resolveBatch(req)
	if err != nil {
		return nil, err
	}

	// A resumed batch keeps accumulating its stored counters; the cap
	// below still budgets only the current invocation.
	summary := &RepairSummary{
		ProcessID: batch.ProcessID,
		Processed: batch.Processed,
		Updated:   batch.Updated,
		Errors:    batch.Errors,
	}
	startProcessed := batch.Processed
	cursor := batch.CurrentCursor

	for {
		// Cooperative cancellation: status is re-read between pages, never
		// mid-page, so partial progress stays recorded and resumable.
		current, err := s.syncRepo.FindByProcessID(batch.ProcessID)
		if err != nil {
			return nil, err
		}
		if current.Status == model.SyncStatusCancelled || current.Status == model.SyncStatusPaused {
			summary.NextCursor = cursor
			summary.Status = string(current.Status)
			return summary, nil
		}

		products, next, err := s.catalog.ListProducts(ctx, s.pageSize, cursor)
		if err != nil {
			batch.Status = model.SyncStatusFailed
			batch.LastError = err.Error()
			batch.CurrentCursor = cursor
			_ = s.syncRepo.Update(batch)
			summary.Status = string(model.SyncStatusFailed)
			return summary, fmt.Errorf("catalog page fetch: %w", err)
		}

		for _, product := range products {
			summary.ProductsScanned++
			for _, variant := range product.Variants {
				summary.Processed++
				if !sku.IsArtificial(variant.SKU) {
					continue
				}
				newSKU := strconv.FormatInt(variant.ID, 10)
				if err := s.catalog.UpdateVariantSKU(ctx, variant.ID, newSKU); err != nil {
					summary.Errors++
					s.logger.Warn("sku repair failed for variant",
						zap.Int64("variant_id", variant.ID),
						zap.String("sku", variant.SKU),
						zap.Error(err))
					continue
				}
				summary.Updated++
			}
		}

		cursor = next
		s.persistProgress(batch, summary, cursor)
		s.publishProgress(batch, summary)

		if cursor == "" {
			batch.Status = model.SyncStatusCompleted
			batch.CurrentCursor = ""
			_ = s.syncRepo.Update(batch)
			summary.Status = string(model.SyncStatusCompleted)
			s.publishProgress(batch, summary)
			return summary, nil
		}

		if req.MaxVariants > 0 && summary.Processed-startProcessed >= req.MaxVariants {
			batch.Status = model.SyncStatusPaused
			_ = s.syncRepo.Update(batch)
			summary.NextCursor = cursor
			summary.Status = string(model.SyncStatusPaused)
			s.publishProgress(batch, summary)
			return summary, nil
		}
	}
}

func (s *skuRepairService) resolveBatch(req RepairRequest) (*model.SyncLog, error) {
	if req.ProcessID != uuid.Nil {
		batch, err := s.syncRepo.FindByProcessID(req.ProcessID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("unknown process id %s", req.ProcessID)
			}
			return nil, err
		}
		if batch.Status.Terminal() {
			return nil, fmt.Errorf("batch %s already %s", req.ProcessID, batch.Status)
		}
		batch.Status = model.SyncStatusRunning
		if err := s.syncRepo.Update(batch); err != nil {
			return nil, err
		}
		return batch, nil
	}

	batch := &model.SyncLog{
		Type:          model.SyncTypeSKURepair,
		Status:        model.SyncStatusRunning,
		CurrentCursor: req.ResumeFromCursor,
	}
	if err := s.syncRepo.Create(batch); err != nil {
		return nil, err
	}
	return batch, nil
}

func (s *skuRepairService) persistProgress(batch *model.SyncLog, summary *RepairSummary, cursor string) {
	batch.Processed = summary.Processed
	batch.Updated = summary.Updated
	batch.Errors = summary.Errors
	batch.CurrentCursor = cursor
	// Counters only: a cancel issued while this page was processing must
	// survive the checkpoint.
	if err := s.syncRepo.UpdateProgress(batch.ProcessID, batch.Processed, batch.Updated, batch.Errors, cursor); err != nil {
		s.logger.Error("failed to persist batch progress", zap.Error(err))
	}
}

func (s *skuRepairService) publishProgress(batch *model.SyncLog, summary *RepairSummary) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(ws.ProgressEvent{
		ProcessID: batch.ProcessID.String(),
		SyncType:  string(batch.Type),
		Status:    string(batch.Status),
		Processed: summary.Processed,
		Updated:   summary.Updated,
		Errors:    summary.Errors,
	})
}
