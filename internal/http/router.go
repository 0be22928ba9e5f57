package http

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	ginprometheus "github.com/zsais/go-gin-prometheus"
)

// metricsSubsystem prefixes the request metrics exposed on /metrics.
const metricsSubsystem = "schoolfinder_http"

// RouterConfig holds the dependencies of the HTTP surface.
type RouterConfig struct {
	Database Pinger
	Schools  SchoolStore
	Progress ProgressReader

	// TaskQueue is nil when background tasks are disabled.
	TaskQueue TaskQueue
	Scheduler Scheduler

	// CORSAllowedOrigins lists browser origins allowed to call the API.
	CORSAllowedOrigins []string

	Logger         logrus.FieldLogger
	Version        string
	MetricsEnabled bool
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	useJSONFieldNames()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(RequestLogger(logger.WithField("component", "http")))
	router.Use(SecurityHeadersMiddleware())
	if len(cfg.CORSAllowedOrigins) > 0 {
		router.Use(CORSMiddleware(cfg.CORSAllowedOrigins))
	}

	// Registers /metrics and per-request counters on the default registry,
	// which also holds the ingestion metrics.
	if cfg.MetricsEnabled {
		p := ginprometheus.NewPrometheus(metricsSubsystem)
		p.ReqCntURLLabelMappingFn = func(c *gin.Context) string {
			if path := c.FullPath(); path != "" {
				return path
			}
			return "unmatched"
		}
		p.Use(router)
	}

	health := NewHealthController(cfg.Database, cfg.Version).
		WithSchools(cfg.Schools).
		WithIngestion(cfg.Progress, cfg.TaskQueue)
	schoolsController := NewSchoolsController(cfg.Schools)
	quizController := NewQuizController(cfg.Schools)
	ingestController := NewIngestController(cfg.TaskQueue, cfg.Progress, cfg.Scheduler)

	// Health endpoints
	router.GET("/", health.Root)
	router.GET("/health", health.Status)

	api := router.Group("/api")
	{
		api.GET("/schools", schoolsController.List)
		api.POST("/quiz-match", quizController.Match)

		api.POST("/ingest", ingestController.Trigger)
		api.GET("/ingest/status", ingestController.Status)
		api.GET("/tasks/:id", ingestController.TaskStatus)
	}

	return router
}
