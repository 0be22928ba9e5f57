package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/sirupsen/logrus"

	"github.com/internavi/schoolfinder/internal/ingest"
)

// IngestQueueName is the backlite queue that runs ingestion.
const IngestQueueName = "ingest_schools"

// Ingestion trigger sources.
const (
	TriggerAPI      = "api"
	TriggerSchedule = "schedule"
)

// IngestRunner runs one ingestion pass.
type IngestRunner interface {
	Run(ctx context.Context, apiKey string) (ingest.Result, error)
}

var (
	ingestQueueMu  sync.RWMutex
	ingestQueueCfg = defaultIngestQueueConfig(DefaultConfig())
)

func defaultIngestQueueConfig(cfg Config) backlite.QueueConfig {
	attempts := cfg.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}
	return backlite.QueueConfig{
		Name:        IngestQueueName,
		MaxAttempts: attempts,
		Backoff:     cfg.RetryDelay,
		Timeout:     cfg.TaskTimeout,
		Retention: &backlite.Retention{
			Duration:   cfg.RetentionDuration,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// IngestSchoolsTask requests a full ingestion run.
type IngestSchoolsTask struct {
	Trigger     string    `json:"trigger"`
	RequestID   string    `json:"request_id,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// Config returns the queue configuration for ingestion tasks.
func (t IngestSchoolsTask) Config() backlite.QueueConfig {
	ingestQueueMu.RLock()
	defer ingestQueueMu.RUnlock()
	return ingestQueueCfg
}

// IngestSchoolsProcessor creates the processor for IngestSchoolsTask.
// A run refused because another one is in progress is not retried.
func IngestSchoolsProcessor(runner IngestRunner, apiKey string, logger logrus.FieldLogger) backlite.QueueProcessor[IngestSchoolsTask] {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return func(ctx context.Context, task IngestSchoolsTask) error {
		if runner == nil {
			return fmt.Errorf("ingestion pipeline not configured")
		}

		log := logger.WithFields(logrus.Fields{
			"trigger":    task.Trigger,
			"request_id": task.RequestID,
		})

		result, err := runner.Run(ctx, apiKey)
		if errors.Is(err, ingest.ErrAlreadyRunning) {
			log.Warn("Ingestion already running, dropping task")
			return nil
		}
		if err != nil {
			return fmt.Errorf("ingest schools: %w", err)
		}

		log.WithFields(logrus.Fields{
			"run_id":   result.RunID,
			"inserted": result.Inserted,
			"skipped":  result.Skipped,
			"failed":   result.Failed,
		}).Info("Ingestion task complete")
		return nil
	}
}

// NewIngestSchoolsQueue creates the backlite queue for ingestion tasks using
// the attempt, timeout and retention settings from cfg.
func NewIngestSchoolsQueue(runner IngestRunner, apiKey string, cfg Config, logger logrus.FieldLogger) backlite.Queue {
	ingestQueueMu.Lock()
	ingestQueueCfg = defaultIngestQueueConfig(cfg)
	ingestQueueMu.Unlock()

	return backlite.NewQueue(IngestSchoolsProcessor(runner, apiKey, logger))
}
