// Package sync persists the progress of long-running operations.
//
// One row exists per sync type. The ingestion pipeline reports through it,
// the HTTP status endpoint reads it, and the task queue and scheduler use
// IsSyncRunning to avoid starting overlapping runs.
//
// # Interface Implementation
//
//	var _ ingest.ProgressReporter = (*Repository)(nil)
//
// # Usage
//
//	repo := sync.NewRepository(db.DB)
//	if running, _ := repo.IsSyncRunning(); !running {
//		_ = repo.StartSync(500)
//	}
package sync

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/internavi/schoolfinder/internal/entities"
)

// DefaultStaleAfter is how long a running row may go without updates before
// it is treated as abandoned.
const DefaultStaleAfter = 10 * time.Minute

const interruptedMessage = "sync was interrupted"

// Repository handles sync progress rows for a single sync type.
type Repository struct {
	db         *gorm.DB
	syncType   entities.SyncType
	staleAfter time.Duration
	now        func() time.Time
}

// NewRepository creates a repository tracking ingestion runs.
func NewRepository(db *gorm.DB) *Repository {
	return NewRepositoryWithType(db, entities.SyncTypeIngestion)
}

// NewRepositoryWithType creates a repository for a specific sync type.
func NewRepositoryWithType(db *gorm.DB, syncType entities.SyncType) *Repository {
	return &Repository{
		db:         db,
		syncType:   syncType,
		staleAfter: DefaultStaleAfter,
		now:        time.Now,
	}
}

// WithStaleAfter overrides the abandoned-run threshold.
func (r *Repository) WithStaleAfter(d time.Duration) *Repository {
	if d > 0 {
		r.staleAfter = d
	}
	return r
}

// GetSyncProgress returns the row for the configured sync type.
// gorm.ErrRecordNotFound is returned when no run was ever started.
func (r *Repository) GetSyncProgress() (*entities.SyncProgress, error) {
	var progress entities.SyncProgress
	err := r.db.Where("sync_type = ?", r.syncType).First(&progress).Error
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// StartSync resets the row to a fresh running state, creating it on first use.
func (r *Repository) StartSync(totalItems int) error {
	now := r.now()
	progress := entities.SyncProgress{
		SyncType:   r.syncType,
		Status:     entities.SyncStatusRunning,
		TotalItems: totalItems,
		StartedAt:  now,
		UpdatedAt:  now,
	}

	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "sync_type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "total_items", "processed", "succeeded", "failed", "skipped",
			"current_item", "error", "started_at", "updated_at", "completed_at",
		}),
	}).Create(&progress).Error
}

// UpdateProgress records running totals. For ingestion, succeeded is the
// number of inserted schools and currentItem names the page being processed.
func (r *Repository) UpdateProgress(processed, succeeded, failed, skipped int, currentItem string) error {
	return r.db.Model(&entities.SyncProgress{}).
		Where("sync_type = ?", r.syncType).
		Updates(map[string]any{
			"processed":    processed,
			"succeeded":    succeeded,
			"failed":       failed,
			"skipped":      skipped,
			"current_item": currentItem,
			"updated_at":   r.now(),
		}).Error
}

// CompleteSync marks the run completed or failed.
func (r *Repository) CompleteSync(succeeded bool, errorMsg string) error {
	now := r.now()
	status := entities.SyncStatusCompleted
	if !succeeded {
		status = entities.SyncStatusFailed
	}

	return r.db.Model(&entities.SyncProgress{}).
		Where("sync_type = ?", r.syncType).
		Updates(map[string]any{
			"status":       status,
			"current_item": "",
			"error":        errorMsg,
			"updated_at":   now,
			"completed_at": now,
		}).Error
}

// IsSyncRunning reports whether a run is in progress. A running row that has
// not been updated within the stale threshold is marked failed and ignored.
func (r *Repository) IsSyncRunning() (bool, error) {
	var progress entities.SyncProgress
	err := r.db.Where("sync_type = ? AND status = ?", r.syncType, entities.SyncStatusRunning).
		First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if progress.IsStale(r.now(), r.staleAfter) {
		if err := r.CompleteSync(false, interruptedMessage); err != nil {
			return false, err
		}
		return false, nil
	}

	return true, nil
}
