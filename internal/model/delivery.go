package model

import (
	"time"

	"github.com/google/uuid"
)

type DeliveryStatus string

const (
	DeliveryPending  DeliveryStatus = "PENDING"
	DeliveryApproved DeliveryStatus = "APPROVED"
	DeliveryReceived DeliveryStatus = "RECEIVED"
)

// Delivery is a production-to-warehouse handoff batch.
type Delivery struct {
	BaseModel
	OrganizationID uuid.UUID      `gorm:"type:uuid;index;not null" json:"organization_id"`
	Reference      string         `gorm:"type:varchar(100)" json:"reference"`
	Status         DeliveryStatus `gorm:"type:varchar(20);default:PENDING" json:"status"`

	Items []DeliveryItem `json:"items,omitempty"`
}

// DeliveryItem is one approved variant quantity. Once its approval has
// been pushed to Shopify the item is flagged synced; the flag is the sole
// guard against applying the same additive delta twice.
type DeliveryItem struct {
	BaseModel
	DeliveryID       uuid.UUID  `gorm:"type:uuid;index;not null" json:"delivery_id" validate:"uuid_required"`
	Delivery         *Delivery  `json:"delivery,omitempty" validate:"-"`
	VariantID        uuid.UUID  `gorm:"type:uuid;index;not null" json:"variant_id" validate:"uuid_required"`
	Variant          *Variant   `json:"variant,omitempty" validate:"-"`
	SKUVariant       string     `gorm:"type:varchar(100)" json:"sku_variant"`
	QuantityApproved int        `gorm:"not null" json:"quantity_approved" validate:"required,gt=0"`
	SyncedToShopify  bool       `gorm:"default:false" json:"synced_to_shopify"`
	LastSyncAttempt  *time.Time `json:"last_sync_attempt,omitempty"`
	SyncError        string     `gorm:"type:text" json:"sync_error,omitempty"`
}
