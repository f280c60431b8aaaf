package repository

import (
	"time"

	"atelier-sync/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SyncLogRepository interface {
	Create(log *model.SyncLog) error
	FindByProcessID(processID uuid.UUID) (*model.SyncLog, error)
	Update(log *model.SyncLog) error
	// UpdateProgress persists counters and cursor without touching the
	// status column, so a concurrent cancel is never overwritten by a
	// between-pages checkpoint.
	UpdateProgress(processID uuid.UUID, processed, updated, errCount int, cursor string) error
	UpdateStatus(processID uuid.UUID, status model.SyncStatus) error
	ListRecent(limit int) ([]model.SyncLog, error)
}

type syncLogRepo struct {
	db *gorm.DB
}

func NewSyncLogRepo(db *gorm.DB) SyncLogRepository {
	return &syncLogRepo{db}
}

func (r *syncLogRepo) Create(log *model.SyncLog) error {
	if log.StartedAt.IsZero() {
		log.StartedAt = time.Now()
	}
	if log.Status == "" {
		log.Status = model.SyncStatusRunning
	}
	return r.db.Create(log).Error
}

func (r *syncLogRepo) FindByProcessID(processID uuid.UUID) (*model.SyncLog, error) {
	var log model.SyncLog
	err := r.db.First(&log, "process_id = ?", processID).Error
	if err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *syncLogRepo) Update(log *model.SyncLog) error {
	if log.Status.Terminal() && log.CompletedAt == nil {
		now := time.Now()
		log.CompletedAt = &now
	}
	return r.db.Save(log).Error
}

func (r *syncLogRepo) UpdateProgress(processID uuid.UUID, processed, updated, errCount int, cursor string) error {
	return r.db.Model(&model.SyncLog{}).
		Where("process_id = ?", processID).
		Updates(map[string]interface{}{
			"processed":      processed,
			"updated":        updated,
			"errors":         errCount,
			"current_cursor": cursor,
		}).Error
}

func (r *syncLogRepo) UpdateStatus(processID uuid.UUID, status model.SyncStatus) error {
	updates := map[string]interface{}{"status": status}
	if status.Terminal() {
		updates["completed_at"] = time.Now()
	}
	return r.db.Model(&model.SyncLog{}).
		Where("process_id = ?", processID).
		Updates(updates).Error
}

func (r *syncLogRepo) ListRecent(limit int) ([]model.SyncLog, error) {
	if limit <= 0 {
		limit = 20
	}
	var logs []model.SyncLog
	err := r.db.Order("started_at desc").Limit(limit).Find(&logs).Error
	return logs, err
}
