package http

import (
	"context"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/internavi/schoolfinder/internal/database/schools"
	"github.com/internavi/schoolfinder/internal/entities"
)

// Each controller depends on the narrow interface it needs. The concrete
// implementations live in internal/database and internal/tasks.

// SchoolLister serves the paginated listing endpoint.
type SchoolLister interface {
	List(q schools.ListQuery) (*schools.ListResult, error)
}

// SchoolSource returns every stored school in storage order.
type SchoolSource interface {
	All() ([]entities.School, error)
	Count() (int64, error)
}

// SchoolStore combines the school read operations used by the router.
type SchoolStore interface {
	SchoolLister
	SchoolSource
}

// ProgressReader exposes ingestion progress.
type ProgressReader interface {
	GetSyncProgress() (*entities.SyncProgress, error)
	IsSyncRunning() (bool, error)
}

// TaskQueue enqueues background work and reports on it.
type TaskQueue interface {
	Enqueue(task backlite.Task) (string, error)
	Status(ctx context.Context, id string) (backlite.TaskStatus, error)
}

// Scheduler runs ingestion in-process when the task queue is disabled and
// reports the cron schedule.
type Scheduler interface {
	RunNow()
	IsSyncing() bool
	GetNextRunTime() *time.Time
}

// Pinger checks storage connectivity.
type Pinger interface {
	Ping() error
}
