package repository

import (
	"atelier-sync/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VariantRepository interface {
	FindActive() ([]model.Variant, error)
	FindByID(id uuid.UUID) (*model.Variant, error)
	FindGroupForUpdate(tx *gorm.DB, ids []uuid.UUID) ([]model.Variant, error)
	UpdateStock(tx *gorm.DB, id uuid.UUID, newStock int) error
	RepointReferences(tx *gorm.DB, from, to uuid.UUID) error
	Delete(tx *gorm.DB, id uuid.UUID) error
	CountReferences(variantID uuid.UUID) (int64, error)
}

type variantRepo struct {
	db *gorm.DB
}

func NewVariantRepo(db *gorm.DB) VariantRepository {
	return &variantRepo{db}
}

func (r *variantRepo) FindActive() ([]model.Variant, error) {
	var variants []model.Variant
	err := r.db.Order("created_at asc").Find(&variants).Error
	return variants, err
}

func (r *variantRepo) FindByID(id uuid.UUID) (*model.Variant, error) {
	var variant model.Variant
	err := r.db.First(&variant, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// FindGroupForUpdate re-reads a duplicate group inside the caller's
// transaction with a pessimistic lock, so stock sums are computed from
// rows no concurrent writer can move until the merge commits.
func (r *variantRepo) FindGroupForUpdate(tx *gorm.DB, ids []uuid.UUID) ([]model.Variant, error) {
	var variants []model.Variant
	err := tx.Set("gorm:query_option", "FOR UPDATE").
		Where("id IN ?", ids).
		Order("created_at asc").
		Find(&variants).Error
	return variants, err
}

// UpdateStock runs inside the caller's transaction
func (r *variantRepo) UpdateStock(tx *gorm.DB, id uuid.UUID, newStock int) error {
	return tx.Model(&model.Variant{}).
		Where("id = ?", id).
		Update("stock", newStock).Error
}

// RepointReferences moves every foreign key naming `from` over to `to`.
// All four referencing tables are updated inside the caller's
// transaction so no dangling-reference window exists.
func (r *variantRepo) RepointReferences(tx *gorm.DB, from, to uuid.UUID) error {
	if err := tx.Model(&model.OrderItem{}).
		Where("variant_id = ?", from).
		Update("variant_id", to).Error; err != nil {
		return err
	}
	if err := tx.Model(&model.DeliveryItem{}).
		Where("variant_id = ?", from).
		Update("variant_id", to).Error; err != nil {
		return err
	}
	if err := tx.Model(&model.Replenishment{}).
		Where("variant_id = ?", from).
		Update("variant_id", to).Error; err != nil {
		return err
	}
	return tx.Model(&model.SalesMetric{}).
		Where("variant_id = ?", from).
		Update("variant_id", to).Error
}

func (r *variantRepo) Delete(tx *gorm.DB, id uuid.UUID) error {
	return tx.Delete(&model.Variant{}, "id = ?", id).Error
}

// CountReferences counts rows still pointing at a variant, used by tests
// and the consolidation post-check.
func (r *variantRepo) CountReferences(variantID uuid.UUID) (int64, error) {
	var total, n int64
	if err := r.db.Model(&model.OrderItem{}).Where("variant_id = ?", variantID).Count(&n).Error; err != nil {
		return 0, err
	}
	total += n
	if err := r.db.Model(&model.DeliveryItem{}).Where("variant_id = ?", variantID).Count(&n).Error; err != nil {
		return 0, err
	}
	total += n
	if err := r.db.Model(&model.Replenishment{}).Where("variant_id = ?", variantID).Count(&n).Error; err != nil {
		return 0, err
	}
	total += n
	if err := r.db.Model(&model.SalesMetric{}).Where("variant_id = ?", variantID).Count(&n).Error; err != nil {
		return 0, err
	}
	total += n
	return total, nil
}
