package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"
	"gorm.io/gorm"

	"github.com/internavi/schoolfinder/internal/tasks"
)

// IngestController starts background ingestion and reports its progress.
type IngestController struct {
	queue     TaskQueue
	progress  ProgressReader
	scheduler Scheduler
}

// NewIngestController creates a controller. queue is nil when the task queue
// is disabled; runs then go through scheduler.
func NewIngestController(queue TaskQueue, progress ProgressReader, scheduler Scheduler) *IngestController {
	return &IngestController{queue: queue, progress: progress, scheduler: scheduler}
}

// IngestStatusResponse reports the latest ingestion run.
type IngestStatusResponse struct {
	Running     bool       `json:"running"`
	Status      string     `json:"status"`
	Processed   int        `json:"processed"`
	Inserted    int        `json:"inserted"`
	Skipped     int        `json:"skipped"`
	Failed      int        `json:"failed"`
	CurrentItem string     `json:"current_item,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ElapsedSecs float64    `json:"elapsed_seconds"`
	IsSyncing   bool       `json:"is_syncing"`
	NextRun     *time.Time `json:"next_run,omitempty"`
}

// Trigger handles POST /api/ingest
// Enqueues an ingestion run and returns its task ID. Without a task queue the
// run starts in-process and no task ID is returned.
func (ic *IngestController) Trigger(c *gin.Context) {
	if ic.queue == nil && ic.scheduler == nil {
		respondError(c, http.StatusServiceUnavailable, CodeUnavailable, "ingestion is not available")
		return
	}
	if ic.scheduler != nil && ic.scheduler.IsSyncing() {
		respondError(c, http.StatusConflict, CodeConflict, "ingestion is already in progress")
		return
	}

	if ic.progress != nil {
		running, err := ic.progress.IsSyncRunning()
		if err != nil {
			respondInternalError(c, err, "check ingestion status")
			return
		}
		if running {
			respondError(c, http.StatusConflict, CodeConflict, "ingestion is already in progress")
			return
		}
	}

	if ic.queue == nil {
		ic.scheduler.RunNow()
		loggerFrom(c).Info("Ingestion started in-process")
		c.JSON(http.StatusAccepted, gin.H{"message": "ingestion started"})
		return
	}

	id, err := ic.queue.Enqueue(tasks.IngestSchoolsTask{
		Trigger:     tasks.TriggerAPI,
		RequestID:   RequestIDFromContext(c),
		RequestedAt: time.Now(),
	})
	if err != nil {
		respondInternalError(c, err, "enqueue ingestion")
		return
	}

	loggerFrom(c).WithField("task_id", id).Info("Ingestion enqueued")
	c.JSON(http.StatusAccepted, gin.H{
		"message": "ingestion started",
		"task_id": id,
	})
}

// Status handles GET /api/ingest/status
func (ic *IngestController) Status(c *gin.Context) {
	if ic.progress == nil {
		respondNotFound(c, "no ingestion has run yet")
		return
	}

	progress, err := ic.progress.GetSyncProgress()
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondNotFound(c, "no ingestion has run yet")
		return
	}
	if err != nil {
		respondInternalError(c, err, "load ingestion status")
		return
	}

	resp := IngestStatusResponse{
		Running:     progress.IsRunning(),
		Status:      string(progress.Status),
		Processed:   progress.Processed,
		Inserted:    progress.Succeeded,
		Skipped:     progress.Skipped,
		Failed:      progress.Failed,
		CurrentItem: progress.CurrentItem,
		Error:       progress.Error,
		StartedAt:   progress.StartedAt,
		UpdatedAt:   progress.UpdatedAt,
		CompletedAt: progress.CompletedAt,
		ElapsedSecs: progress.Elapsed(time.Now()).Seconds(),
	}
	if ic.scheduler != nil {
		resp.IsSyncing = ic.scheduler.IsSyncing()
		resp.NextRun = ic.scheduler.GetNextRunTime()
	}

	c.JSON(http.StatusOK, resp)
}

// TaskStatus handles GET /api/tasks/:id
func (ic *IngestController) TaskStatus(c *gin.Context) {
	if ic.queue == nil {
		respondError(c, http.StatusServiceUnavailable, CodeUnavailable, "task queue is not enabled")
		return
	}

	taskID := c.Param("id")
	if taskID == "" {
		respondBadRequest(c, "task ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := ic.queue.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}
	if status == backlite.TaskStatusNotFound {
		respondNotFound(c, "task not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": tasks.StatusString(status),
	})
}
