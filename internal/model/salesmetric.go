package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SalesMetric aggregates one day of sales for one variant. Correct
// operation yields exactly one row per (date, variant); overlapping sync
// runs can write duplicates, which the duplication cleaner collapses.
type SalesMetric struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Date       time.Time       `gorm:"type:date;index:idx_metric_date_variant;not null" json:"date"`
	VariantID  uuid.UUID       `gorm:"type:uuid;index:idx_metric_date_variant;not null" json:"variant_id"`
	Variant    *Variant        `json:"variant,omitempty"`
	SKU        string          `gorm:"type:varchar(100);index" json:"sku"`
	Quantity   int             `gorm:"not null" json:"quantity"`
	OrderCount int             `gorm:"not null" json:"order_count"`
	Revenue    decimal.Decimal `gorm:"type:numeric(14,2)" json:"revenue"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (SalesMetric) TableName() string {
	return "sales_metrics"
}

func (m *SalesMetric) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
