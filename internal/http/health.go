package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	healthHealthy   = "healthy"
	healthUnhealthy = "unhealthy"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// HealthController reports liveness. Only the database decides the overall
// status; ingestion and queue entries are informational.
type HealthController struct {
	db       Pinger
	schools  SchoolSource
	progress ProgressReader
	queue    TaskQueue
	version  string
}

func NewHealthController(db Pinger, version string) *HealthController {
	return &HealthController{
		db:      db,
		version: version,
	}
}

// WithSchools adds the number of stored schools to the health report.
func (h *HealthController) WithSchools(schools SchoolSource) *HealthController {
	h.schools = schools
	return h
}

// WithIngestion adds the last ingestion run and the task queue state to the
// health report.
func (h *HealthController) WithIngestion(progress ProgressReader, queue TaskQueue) *HealthController {
	h.progress = progress
	h.queue = queue
	return h
}

// Root handles GET /
func (h *HealthController) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Schoolfinder API is running"})
}

// Status handles GET /health
func (h *HealthController) Status(c *gin.Context) {
	checks := map[string]string{"database": h.databaseCheck()}

	status := healthHealthy
	if checks["database"] != "ok" && checks["database"] != "not configured" {
		status = healthUnhealthy
	}

	if h.schools != nil && status == healthHealthy {
		checks["schools"] = h.schoolsCheck()
	}

	if h.progress != nil {
		checks["ingestion"] = h.ingestionCheck()
		if h.queue != nil {
			checks["task_queue"] = "enabled"
		} else {
			checks["task_queue"] = "disabled"
		}
	}

	code := http.StatusOK
	if status != healthHealthy {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, HealthResponse{
		Status:  status,
		Time:    time.Now().UTC().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	})
}

func (h *HealthController) databaseCheck() string {
	if h.db == nil {
		return "not configured"
	}
	if err := h.db.Ping(); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}

func (h *HealthController) schoolsCheck() string {
	count, err := h.schools.Count()
	if err != nil {
		return "error: " + err.Error()
	}
	return strconv.FormatInt(count, 10)
}

func (h *HealthController) ingestionCheck() string {
	progress, err := h.progress.GetSyncProgress()
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "never run"
	}
	if err != nil {
		return "error: " + err.Error()
	}
	return string(progress.Status)
}
