package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem references a variant from the sales side. Consolidation must
// re-point this reference when the variant it names is merged away.
type OrderItem struct {
	BaseModel
	OrderID   uuid.UUID       `gorm:"type:uuid;index;not null" json:"order_id"`
	VariantID uuid.UUID       `gorm:"type:uuid;index;not null" json:"variant_id"`
	Variant   *Variant        `json:"variant,omitempty"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2)" json:"unit_price"`
}

// Replenishment records a warehouse restock against a variant, the third
// table holding variant foreign keys that consolidation re-points.
type Replenishment struct {
	BaseModel
	OrganizationID uuid.UUID `gorm:"type:uuid;index;not null" json:"organization_id"`
	VariantID      uuid.UUID `gorm:"type:uuid;index;not null" json:"variant_id"`
	Variant        *Variant  `json:"variant,omitempty"`
	Quantity       int       `gorm:"not null" json:"quantity"`
	Source         string    `gorm:"type:varchar(50)" json:"source"`
}
