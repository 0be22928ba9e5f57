package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/internavi/schoolfinder/internal/config"
	"github.com/internavi/schoolfinder/internal/ingest"
	"github.com/internavi/schoolfinder/internal/tasks"
)

// directRunTimeout bounds a scheduled run executed without the task queue.
const directRunTimeout = time.Hour

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Enqueuer hands work to the background task queue.
type Enqueuer interface {
	Enqueue(task backlite.Task) (string, error)
}

// IngestScheduler triggers ingestion on a cron schedule. Runs go through the
// task queue when one is set, otherwise they execute in the scheduler goroutine.
type IngestScheduler struct {
	cfg      config.Schedule
	apiKey   string
	runner   tasks.IngestRunner
	enqueuer Enqueuer
	logger   logrus.FieldLogger

	cron      *cron.Cron
	entryID   cron.EntryID
	mu        sync.RWMutex
	isRunning bool
	isSyncing bool

	// runCtx is the parent of every direct run; Stop cancels it.
	runCtx    context.Context
	runCancel context.CancelFunc
	runs      sync.WaitGroup
}

// NewIngestScheduler creates a new scheduler instance.
func NewIngestScheduler(cfg config.Schedule, apiKey string, runner tasks.IngestRunner, logger logrus.FieldLogger) *IngestScheduler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	runCtx, runCancel := context.WithCancel(context.Background())
	return &IngestScheduler{
		cfg:       cfg,
		apiKey:    apiKey,
		runner:    runner,
		logger:    logger.WithField("component", "scheduler"),
		cron:      cron.New(cron.WithParser(cronParser)),
		runCtx:    runCtx,
		runCancel: runCancel,
	}
}

// SetEnqueuer routes scheduled runs through the task queue.
func (s *IngestScheduler) SetEnqueuer(enqueuer Enqueuer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enqueuer = enqueuer
}

// Start begins the scheduler if scheduled ingestion is enabled.
func (s *IngestScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.cfg.Enabled {
		s.logger.Info("Ingestion scheduler disabled")
		return nil
	}

	if s.apiKey == "" {
		s.logger.Warn("Ingestion scheduler: API key not configured, skipping")
		return nil
	}

	if err := ValidateCronSchedule(s.cfg.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.cfg.Schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.cfg.Schedule, s.trigger)
	if err != nil {
		return fmt.Errorf("failed to schedule ingestion job: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true

	nextRun, _ := GetNextRunTime(s.cfg.Schedule)
	s.logger.WithFields(logrus.Fields{
		"schedule": s.cfg.Schedule,
		"next_run": nextRun,
	}).Info("Ingestion scheduler started")

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.runCtx.Done():
		}
	}()

	return nil
}

// Stop cancels in-flight direct runs, stops the cron loop and waits for
// running jobs to return. The scheduler cannot be restarted afterwards.
func (s *IngestScheduler) Stop() {
	s.mu.Lock()
	wasRunning := s.isRunning
	s.isRunning = false
	s.mu.Unlock()

	s.runCancel()

	// Wait outside the lock; a running job takes it too.
	if wasRunning {
		<-s.cron.Stop().Done()
		s.logger.Info("Ingestion scheduler stopped")
	}
	s.runs.Wait()
}

// RunNow triggers an immediate run in the background. It works whether or
// not the cron schedule is enabled.
func (s *IngestScheduler) RunNow() {
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		s.trigger()
	}()
}

// IsRunning returns whether the scheduler is active.
func (s *IngestScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// IsSyncing returns whether a direct run is in progress.
func (s *IngestScheduler) IsSyncing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isSyncing
}

// GetNextRunTime returns when the next run will occur.
func (s *IngestScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *IngestScheduler) trigger() {
	s.mu.RLock()
	enqueuer := s.enqueuer
	s.mu.RUnlock()

	if enqueuer != nil {
		id, err := enqueuer.Enqueue(tasks.IngestSchoolsTask{
			Trigger:     tasks.TriggerSchedule,
			RequestedAt: time.Now(),
		})
		if err != nil {
			s.logger.WithError(err).Error("Failed to enqueue scheduled ingestion")
			return
		}
		s.logger.WithField("task_id", id).Info("Scheduled ingestion enqueued")
		return
	}

	s.runDirect()
}

func (s *IngestScheduler) runDirect() {
	s.mu.Lock()
	if s.isSyncing {
		s.mu.Unlock()
		s.logger.Info("Scheduled ingestion skipped, already syncing")
		return
	}
	s.isSyncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSyncing = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(s.runCtx, directRunTimeout)
	defer cancel()

	result, err := s.runner.Run(ctx, s.apiKey)
	switch {
	case errors.Is(err, ingest.ErrAlreadyRunning):
		s.logger.Info("Scheduled ingestion skipped, another run is in progress")
	case err != nil:
		s.logger.WithError(err).WithField("run_id", result.RunID).Error("Scheduled ingestion failed")
	default:
		s.logger.WithFields(logrus.Fields{
			"run_id":   result.RunID,
			"inserted": result.Inserted,
			"skipped":  result.Skipped,
		}).Info("Scheduled ingestion complete")
	}
}

// ValidateCronSchedule checks a standard five-field cron expression.
func ValidateCronSchedule(schedule string) error {
	_, err := cronParser.Parse(schedule)
	return err
}

// GetNextRunTime calculates the next activation of schedule.
func GetNextRunTime(schedule string) (*time.Time, error) {
	sched, err := cronParser.Parse(schedule)
	if err != nil {
		return nil, err
	}
	next := sched.Next(time.Now())
	return &next, nil
}
