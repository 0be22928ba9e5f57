package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/internavi/schoolfinder/internal/config"
	"github.com/internavi/schoolfinder/internal/database"
	"github.com/internavi/schoolfinder/internal/database/schools"
	syncrepo "github.com/internavi/schoolfinder/internal/database/sync"
	http_controllers "github.com/internavi/schoolfinder/internal/http"
	"github.com/internavi/schoolfinder/internal/ingest"
	"github.com/internavi/schoolfinder/internal/logging"
	"github.com/internavi/schoolfinder/internal/metrics"
	"github.com/internavi/schoolfinder/internal/scheduler"
	"github.com/internavi/schoolfinder/internal/scorecard"
	"github.com/internavi/schoolfinder/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// App holds the wired service components.
type App struct {
	cfg    *config.Config
	logger logrus.FieldLogger

	db         *database.Database
	pipeline   *ingest.Pipeline
	taskClient *tasks.Client
	scheduler  *scheduler.IngestScheduler
	router     *gin.Engine

	cancel context.CancelFunc
}

// NewApp opens storage and wires the ingestion pipeline, task queue,
// scheduler and router. Nothing runs until Start.
func NewApp(cfg *config.Config, version string, logger logrus.FieldLogger) (*App, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	db, err := database.NewDatabase(cfg.Database.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if cfg.Metrics.Enabled {
		metrics.Init()
	}

	schoolRepo := schools.NewRepository(db.DB)
	progress := syncrepo.NewRepository(db.DB).WithStaleAfter(cfg.Ingest.StaleAfter)

	client := scorecard.NewClient(scorecard.ClientConfig{
		BaseURL:    cfg.Scorecard.BaseURL,
		Timeout:    cfg.Scorecard.RequestTimeout,
		MaxRetries: cfg.Scorecard.MaxRetries,
		Logger:     logger,
	})
	pipeline := ingest.NewPipeline(client, schoolRepo, ingest.FromAppConfig(cfg.Ingest), logger)
	pipeline.SetProgressReporter(progress)

	app := &App{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		pipeline: pipeline,
	}

	if cfg.Scorecard.APIKey == "" {
		logger.Warn("COLLEGE_SCORECARD_API_KEY is not set. Ingestion will fail until it is configured.")
	}

	if cfg.Tasks.Enabled {
		taskCfg := tasks.FromAppConfig(cfg.Tasks)
		app.taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg, logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize task queue: %w", err)
		}
		app.taskClient.Register(
			tasks.NewIngestSchoolsQueue(pipeline, cfg.Scorecard.APIKey, taskCfg, logger),
		)
	}

	app.scheduler = scheduler.NewIngestScheduler(cfg.Schedule, cfg.Scorecard.APIKey, pipeline, logger)
	if app.taskClient != nil {
		app.scheduler.SetEnqueuer(app.taskClient)
	}

	routerCfg := http_controllers.RouterConfig{
		Database:           db,
		Schools:            schoolRepo,
		Progress:           progress,
		Scheduler:          app.scheduler,
		CORSAllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
		Logger:             logger,
		Version:            version,
		MetricsEnabled:     cfg.Metrics.Enabled,
	}
	// Assigned only when set: a nil *tasks.Client in the interface would not compare equal to nil.
	if app.taskClient != nil {
		routerCfg.TaskQueue = app.taskClient
	}
	app.router = http_controllers.NewRouter(routerCfg)

	return app, nil
}

// Router returns the HTTP handler.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Pipeline returns the ingestion pipeline.
func (a *App) Pipeline() *ingest.Pipeline {
	return a.pipeline
}

// Start launches the task workers and the ingestion scheduler.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	if a.taskClient != nil {
		go a.taskClient.Start(ctx)
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start ingestion scheduler: %w", err)
	}
	return nil
}

// Shutdown stops background work and closes storage.
func (a *App) Shutdown(ctx context.Context) {
	a.scheduler.Stop()

	if a.taskClient != nil {
		if !a.taskClient.Stop(ctx) {
			a.logger.Warn("Task queue did not drain before shutdown timeout")
		}
	}
	if a.cancel != nil {
		a.cancel()
	}

	if a.taskClient != nil {
		if err := a.taskClient.Close(); err != nil {
			a.logger.WithError(err).Error("Error closing task client")
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing database")
	}
}

func Serve(router *gin.Engine, cfg *config.Config, logger logrus.FieldLogger, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		logger.WithField("addr", srv.Addr).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("listen")
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 is SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.WithField("timeout", timeout).Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server shutdown")
	}

	// Stop background work after in-flight requests have drained.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	logger.Info("Server exiting")
}

func Run(cfg *config.Config, version string) {
	logger := logging.Configure(cfg.Log)
	if logger.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	logger.WithField("version", version).Info("Starting schoolfinder")

	app, err := NewApp(cfg, version, logger)
	if err != nil {
		logger.WithError(err).Fatal("Startup failed")
	}

	if err := app.Start(context.Background()); err != nil {
		app.Shutdown(context.Background())
		logger.WithError(err).Fatal("Startup failed")
	}

	Serve(app.Router(), cfg, logger, app.Shutdown)
}
