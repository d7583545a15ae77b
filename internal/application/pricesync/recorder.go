package pricesync

import (
	"context"
	"encoding/json"

	"stocksim-backend/internal/domain"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GormRecorder persists run summaries to sync_runs.
type GormRecorder struct {
	DB *gorm.DB
}

func (r *GormRecorder) Record(ctx context.Context, res Result) error {
	failed := res.Failed
	if failed == nil {
		failed = []string{}
	}
	raw, err := json.Marshal(failed)
	if err != nil {
		return err
	}
	run := domain.SyncRun{
		StartedAt:    res.StartedAt,
		FinishedAt:   res.FinishedAt,
		Outcome:      string(res.Outcome),
		Total:        res.Total,
		SnapshotHits: res.SnapshotHits,
		HistoryHits:  res.HistoryHits,
		FailedCodes:  datatypes.JSON(raw),
	}
	switch {
	case res.Aborted != nil:
		run.SnapshotError = res.Aborted.Error()
	case res.ListErr != nil:
		run.SnapshotError = res.ListErr.Error()
	case res.SnapshotErr != nil:
		run.SnapshotError = res.SnapshotErr.Error()
	}
	return r.DB.WithContext(ctx).Create(&run).Error
}

// Recent returns the newest runs first.
func (r *GormRecorder) Recent(ctx context.Context, limit int) ([]domain.SyncRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var runs []domain.SyncRun
	if err := r.DB.WithContext(ctx).Order("id DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
