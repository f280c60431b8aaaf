package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SyncType string

const (
	SyncTypeSKURepair      SyncType = "sku_repair"
	SyncTypeInventoryPush  SyncType = "inventory_push"
	SyncTypeConsolidation  SyncType = "consolidation"
	SyncTypeDuplicationFix SyncType = "duplication_fix"
)

type SyncStatus string

const (
	SyncStatusRunning   SyncStatus = "running"
	SyncStatusPaused    SyncStatus = "paused"
	SyncStatusCompleted SyncStatus = "completed"
	SyncStatusFailed    SyncStatus = "failed"
	SyncStatusCancelled SyncStatus = "cancelled"
)

// Terminal reports whether a batch can no longer transition.
func (s SyncStatus) Terminal() bool {
	return s == SyncStatusCompleted || s == SyncStatusFailed || s == SyncStatusCancelled
}

// SyncLog is the append-only record of one batch sync attempt. The
// repair engine persists its pagination cursor here between invocations,
// and checks Status between pages for cooperative cancellation.
type SyncLog struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProcessID     uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"process_id"`
	Type          SyncType   `gorm:"type:varchar(30);index;not null" json:"type"`
	Status        SyncStatus `gorm:"type:varchar(20);index;default:running" json:"status"`
	TotalItems    int        `json:"total_items"`
	Processed     int        `json:"processed"`
	Updated       int        `json:"updated"`
	Skipped       int        `json:"skipped"`
	Errors        int        `json:"errors"`
	CurrentCursor string     `gorm:"type:text" json:"current_cursor,omitempty"`
	LastError     string     `gorm:"type:text" json:"last_error,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

func (SyncLog) TableName() string {
	return "sync_logs"
}

func (l *SyncLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.ProcessID == uuid.Nil {
		l.ProcessID = uuid.New()
	}
	return nil
}
