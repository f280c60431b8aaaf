package repository

import (
	"time"

	"atelier-sync/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MetricRepository interface {
	FindByDate(date time.Time) ([]model.SalesMetric, error)
	DeleteByIDs(ids []uuid.UUID) (int64, error)
}

type metricRepo struct {
	db *gorm.DB
}

func NewMetricRepo(db *gorm.DB) MetricRepository {
	return &metricRepo{db}
}

func (r *metricRepo) FindByDate(date time.Time) ([]model.SalesMetric, error) {
	var metrics []model.SalesMetric
	err := r.db.Where("date = ?", date.Format("2006-01-02")).
		Order("created_at asc, id asc").
		Find(&metrics).Error
	return metrics, err
}

func (r *metricRepo) DeleteByIDs(ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.Delete(&model.SalesMetric{}, "id IN ?", ids)
	return result.RowsAffected, result.Error
}
