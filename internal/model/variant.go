package model

import "github.com/google/uuid"

type Product struct {
	BaseModel
	OrganizationID uuid.UUID `gorm:"type:uuid;index;not null" json:"organization_id"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Category       string    `gorm:"type:varchar(100)" json:"category"`

	Variants []Variant `json:"variants,omitempty"`
}

// Variant is the unit at which SKU and stock are tracked: one size/color
// combination of a product. SKU is expected unique among non-deleted
// variants of an organization, but the schema does not enforce it — the
// consolidation engine exists to repair violations.
type Variant struct {
	BaseModel
	OrganizationID uuid.UUID `gorm:"type:uuid;index;not null" json:"organization_id"`
	ProductID      uuid.UUID `gorm:"type:uuid;index;not null" json:"product_id" validate:"uuid_required"`
	Product        *Product  `json:"product,omitempty" validate:"-"`
	Size           string    `gorm:"type:varchar(50)" json:"size"`
	Color          string    `gorm:"type:varchar(50)" json:"color"`
	SKU            string    `gorm:"type:varchar(100);index" json:"sku"`
	Stock          int       `gorm:"default:0" json:"stock"`
}
