package domain

import (
	"time"

	"gorm.io/datatypes"
)

// SyncRun is the persisted summary of one price synchronization run.
type SyncRun struct {
	ID            uint           `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	StartedAt     time.Time      `gorm:"column:started_at;not null" json:"started_at"`
	FinishedAt    time.Time      `gorm:"column:finished_at;not null" json:"finished_at"`
	Outcome       string         `gorm:"column:outcome;type:varchar(20);not null" json:"outcome"`
	Total         int            `gorm:"column:total;not null;default:0" json:"total"`
	SnapshotHits  int            `gorm:"column:snapshot_hits;not null;default:0" json:"snapshot_hits"`
	HistoryHits   int            `gorm:"column:history_hits;not null;default:0" json:"history_hits"`
	FailedCodes   datatypes.JSON `gorm:"column:failed_codes" json:"failed_codes"`
	SnapshotError string         `gorm:"column:snapshot_error" json:"snapshot_error,omitempty"`
}

func (SyncRun) TableName() string {
	return "sync_runs"
}
