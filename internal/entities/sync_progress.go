package entities

import "time"

// SyncType names the long-running operation a progress row belongs to.
type SyncType string

// SyncTypeIngestion is the College Scorecard school import.
const SyncTypeIngestion SyncType = "ingestion"

type SyncStatus string

const (
	SyncStatusRunning   SyncStatus = "running"
	SyncStatusCompleted SyncStatus = "completed"
	SyncStatusFailed    SyncStatus = "failed"
)

// SyncProgress is the single progress row kept per SyncType. It doubles as
// the lock that stops two ingestion runs from overlapping.
//
// For ingestion, Succeeded counts inserted schools, Skipped counts unit IDs
// that were already stored and CurrentItem names the page being fetched.
type SyncProgress struct {
	ID       uint       `gorm:"primaryKey" json:"id"`
	SyncType SyncType   `gorm:"size:50;uniqueIndex" json:"sync_type"`
	Status   SyncStatus `gorm:"size:20;index" json:"status"`

	TotalItems int `json:"total_items"`
	Processed  int `json:"processed"`
	Succeeded  int `json:"succeeded"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`

	CurrentItem string `gorm:"size:512" json:"current_item,omitempty"`
	Error       string `gorm:"type:text" json:"error,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (SyncProgress) TableName() string {
	return "sync_progress"
}

func (p *SyncProgress) IsRunning() bool {
	return p.Status == SyncStatusRunning
}

// IsStale reports a running row that has not been touched for longer than
// after, which happens when the process died mid-run.
func (p *SyncProgress) IsStale(now time.Time, after time.Duration) bool {
	return p.IsRunning() && p.UpdatedAt.Before(now.Add(-after))
}

// Elapsed is the run time so far, or the total run time once completed.
func (p *SyncProgress) Elapsed(now time.Time) time.Duration {
	if p.StartedAt.IsZero() {
		return 0
	}
	end := now
	if p.CompletedAt != nil {
		end = *p.CompletedAt
	}
	if end.Before(p.StartedAt) {
		return 0
	}
	return end.Sub(p.StartedAt)
}
