package repository

import (
	"time"

	"atelier-sync/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DeliveryRepository interface {
	FindByID(id uuid.UUID) (*model.Delivery, error)
	FindItems(deliveryID uuid.UUID) ([]model.DeliveryItem, error)
	FindItemByID(id uuid.UUID) (*model.DeliveryItem, error)
	MarkItemSynced(itemID uuid.UUID, at time.Time) error
	RecordItemFailure(itemID uuid.UUID, at time.Time, reason string) error
}

type deliveryRepo struct {
	db *gorm.DB
}

func NewDeliveryRepo(db *gorm.DB) DeliveryRepository {
	return &deliveryRepo{db}
}

func (r *deliveryRepo) FindByID(id uuid.UUID) (*model.Delivery, error) {
	var delivery model.Delivery
	err := r.db.Preload("Items").First(&delivery, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (r *deliveryRepo) FindItems(deliveryID uuid.UUID) ([]model.DeliveryItem, error) {
	var items []model.DeliveryItem
	err := r.db.Where("delivery_id = ?", deliveryID).Order("created_at asc").Find(&items).Error
	return items, err
}

func (r *deliveryRepo) FindItemByID(id uuid.UUID) (*model.DeliveryItem, error) {
	var item model.DeliveryItem
	err := r.db.First(&item, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// MarkItemSynced sets the idempotence guard. Clearing a previous
// sync_error on success keeps the operator view accurate.
func (r *deliveryRepo) MarkItemSynced(itemID uuid.UUID, at time.Time) error {
	return r.db.Model(&model.DeliveryItem{}).
		Where("id = ?", itemID).
		Updates(map[string]interface{}{
			"synced_to_shopify": true,
			"last_sync_attempt": at,
			"sync_error":        "",
		}).Error
}

func (r *deliveryRepo) RecordItemFailure(itemID uuid.UUID, at time.Time, reason string) error {
	return r.db.Model(&model.DeliveryItem{}).
		Where("id = ?", itemID).
		Updates(map[string]interface{}{
			"last_sync_attempt": at,
			"sync_error":        reason,
		}).Error
}
