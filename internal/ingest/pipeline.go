package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/internavi/schoolfinder/internal/entities"
	"github.com/internavi/schoolfinder/internal/metrics"
	"github.com/internavi/schoolfinder/internal/scorecard"
)

const (
	DefaultPageSize   = 100
	DefaultBatchSize  = 50
	DefaultMaxRecords = 500
	DefaultPageDelay  = 500 * time.Millisecond
)

// ErrAlreadyRunning is returned when progress tracking shows another run in flight.
var ErrAlreadyRunning = errors.New("ingestion already running")

// Fetcher retrieves one page of raw school records.
type Fetcher interface {
	FetchPage(ctx context.Context, apiKey string, page, perPage int) (*scorecard.PageResponse, error)
}

// Store persists schools keyed by unit ID.
type Store interface {
	ExistsByUnitID(unitID string) (bool, error)
	// CreateBatch inserts schools, skipping unit IDs that already exist,
	// and returns how many rows were inserted.
	CreateBatch(schools []*entities.School) (int, error)
}

// ProgressReporter receives run progress. Optional.
type ProgressReporter interface {
	StartSync(totalItems int) error
	UpdateProgress(processed, succeeded, failed, skipped int, currentItem string) error
	CompleteSync(succeeded bool, errorMsg string) error
	IsSyncRunning() (bool, error)
}

// Config tunes a pipeline. Zero sizes take the package defaults, a negative
// MaxRecords disables the cap and a zero PageDelay disables the pause.
type Config struct {
	PageSize   int
	BatchSize  int
	MaxRecords int
	PageDelay  time.Duration
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.MaxRecords == 0 {
		c.MaxRecords = DefaultMaxRecords
	}
	if c.PageDelay < 0 {
		c.PageDelay = 0
	}
	return c
}

// Result summarizes a run. On abort it holds the totals reached before the failure.
type Result struct {
	RunID    string        `json:"run_id"`
	Pages    int           `json:"pages"`
	Inserted int           `json:"inserted"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// Processed is the number of records examined.
func (r Result) Processed() int {
	return r.Inserted + r.Skipped + r.Failed
}

// Pipeline pulls every page from the remote API and stores new schools:
// fetch → map → dedupe → persist, page by page until the API runs dry.
type Pipeline struct {
	fetcher  Fetcher
	store    Store
	progress ProgressReporter
	cfg      Config
	logger   logrus.FieldLogger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewPipeline creates a pipeline.
func NewPipeline(fetcher Fetcher, store Store, cfg Config, logger logrus.FieldLogger) *Pipeline {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	metrics.Init()
	return &Pipeline{
		fetcher: fetcher,
		store:   store,
		cfg:     cfg.withDefaults(),
		logger:  logger.WithField("component", "ingest"),
		sleep:   sleepContext,
	}
}

// SetProgressReporter enables progress tracking and the single-run guard.
func (p *Pipeline) SetProgressReporter(reporter ProgressReporter) {
	p.progress = reporter
}

// run holds the mutable state of one Run call.
type run struct {
	Result
	log    logrus.FieldLogger
	seen   map[string]struct{}
	staged []*entities.School
	page   int
	done   bool
}

// Run ingests until an empty page, the record cap, or an error.
// A fetch or store error aborts the run; records committed before it remain.
func (p *Pipeline) Run(ctx context.Context, apiKey string) (Result, error) {
	start := time.Now()
	r := &run{
		Result: Result{RunID: uuid.NewString()},
		seen:   make(map[string]struct{}),
		staged: make([]*entities.School, 0, p.cfg.BatchSize),
	}
	r.log = p.logger.WithField("run_id", r.RunID)

	if err := p.begin(); err != nil {
		metrics.RunFinished(metrics.OutcomeRejected, time.Since(start))
		return r.Result, err
	}

	r.log.WithFields(logrus.Fields{
		"page_size":   p.cfg.PageSize,
		"batch_size":  p.cfg.BatchSize,
		"max_records": p.cfg.MaxRecords,
	}).Info("Starting ingestion")

	err := p.loop(ctx, apiKey, r)
	r.Duration = time.Since(start)

	fields := logrus.Fields{
		"pages":    r.Pages,
		"inserted": r.Inserted,
		"skipped":  r.Skipped,
		"failed":   r.Failed,
		"duration": r.Duration.String(),
	}

	if err != nil {
		r.log.WithFields(fields).WithError(err).Error("Ingestion aborted")
		p.finish(false, err.Error())
		metrics.RunFinished(metrics.OutcomeAborted, r.Duration)
		return r.Result, err
	}

	r.log.WithFields(fields).Info("Ingestion complete")
	p.finish(true, "")
	metrics.RunFinished(metrics.OutcomeCompleted, r.Duration)
	return r.Result, nil
}

func (p *Pipeline) loop(ctx context.Context, apiKey string, r *run) error {
	for r.page = 0; ; r.page++ {
		resp, err := p.fetcher.FetchPage(ctx, apiKey, r.page, p.cfg.PageSize)
		if err != nil {
			metrics.FetchFailed()
			return fmt.Errorf("fetch page %d: %w", r.page, err)
		}
		metrics.PageFetched()

		if len(resp.Results) == 0 {
			r.log.WithField("page", r.page).Info("No more results")
			return nil
		}
		r.Pages++

		r.log.WithFields(logrus.Fields{"page": r.page, "count": len(resp.Results)}).Debug("Fetched page")

		for i, item := range resp.Results {
			if err := p.processItem(r, i, item); err != nil {
				return err
			}
			if r.done {
				break
			}
		}

		if err := p.commit(r); err != nil {
			return err
		}
		p.report(r)

		if r.done {
			r.log.WithField("max_records", p.cfg.MaxRecords).Info("Record cap reached")
			return nil
		}

		if err := p.sleep(ctx, p.cfg.PageDelay); err != nil {
			return err
		}
	}
}

func (p *Pipeline) processItem(r *run, index int, item any) error {
	ilog := r.log.WithFields(logrus.Fields{"page": r.page, "index": index})

	school, err := scorecard.MapSchool(item)
	if err != nil {
		ilog.WithError(err).Warn("Skipping unmappable record")
		r.Failed++
		metrics.Records(metrics.RecordFailed, 1)
		return nil
	}

	if school.UnitID != nil {
		unitID := *school.UnitID
		ilog = ilog.WithField("unit_id", unitID)

		if _, ok := r.seen[unitID]; ok {
			ilog.Debug("Skipping duplicate within run")
			r.Skipped++
			metrics.Records(metrics.RecordSkipped, 1)
			return nil
		}

		exists, err := p.store.ExistsByUnitID(unitID)
		if err != nil {
			return fmt.Errorf("check unit %s: %w", unitID, err)
		}
		if exists {
			ilog.Debug("Skipping existing school")
			r.Skipped++
			metrics.Records(metrics.RecordSkipped, 1)
			return nil
		}
		r.seen[unitID] = struct{}{}
	}

	r.staged = append(r.staged, school)
	if p.cfg.MaxRecords > 0 && r.Inserted+len(r.staged) >= p.cfg.MaxRecords {
		r.done = true
	}

	if len(r.staged) >= p.cfg.BatchSize {
		return p.commit(r)
	}
	return nil
}

// commit flushes staged records. Rows lost to a conflict at insert time
// count as skipped.
func (p *Pipeline) commit(r *run) error {
	if len(r.staged) == 0 {
		return nil
	}

	inserted, err := p.store.CreateBatch(r.staged)
	if err != nil {
		return fmt.Errorf("store batch on page %d: %w", r.page, err)
	}

	conflicts := len(r.staged) - inserted
	r.Inserted += inserted
	r.Skipped += conflicts
	metrics.Records(metrics.RecordInserted, inserted)
	metrics.Records(metrics.RecordSkipped, conflicts)

	r.log.WithFields(logrus.Fields{
		"page":     r.page,
		"inserted": inserted,
		"total":    r.Inserted,
	}).Info("Committed batch")

	r.staged = make([]*entities.School, 0, p.cfg.BatchSize)
	return nil
}

func (p *Pipeline) begin() error {
	if p.progress == nil {
		return nil
	}

	running, err := p.progress.IsSyncRunning()
	if err != nil {
		return fmt.Errorf("check running ingestion: %w", err)
	}
	if running {
		return ErrAlreadyRunning
	}

	total := p.cfg.MaxRecords
	if total < 0 {
		total = 0
	}
	if err := p.progress.StartSync(total); err != nil {
		return fmt.Errorf("start progress tracking: %w", err)
	}
	return nil
}

func (p *Pipeline) report(r *run) {
	if p.progress == nil {
		return
	}
	err := p.progress.UpdateProgress(r.Processed(), r.Inserted, r.Failed, r.Skipped, fmt.Sprintf("page %d", r.page))
	if err != nil {
		r.log.WithError(err).Warn("Failed to update ingestion progress")
	}
}

func (p *Pipeline) finish(succeeded bool, errorMsg string) {
	if p.progress == nil {
		return
	}
	if err := p.progress.CompleteSync(succeeded, errorMsg); err != nil {
		p.logger.WithError(err).Warn("Failed to record ingestion completion")
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
