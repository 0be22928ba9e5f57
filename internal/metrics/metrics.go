// Package metrics holds the Prometheus collectors for ingestion runs.
//
// Collectors are registered on the default registry the first time Init is
// called, so they are served by the same /metrics endpoint as the HTTP
// request metrics. Recording before Init is a no-op.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const namespace = "schoolfinder"

// Run outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeAborted   = "aborted"
	OutcomeRejected  = "rejected"
)

// Record outcomes.
const (
	RecordInserted = "inserted"
	RecordSkipped  = "skipped"
	RecordFailed   = "failed"
)

var initOnce sync.Once

var (
	pagesFetched  prometheus.Counter
	fetchErrors   prometheus.Counter
	recordsTotal  *prometheus.CounterVec
	runsTotal     *prometheus.CounterVec
	runDuration   prometheus.Histogram
	lastRunFinish prometheus.Gauge
)

func register[C prometheus.Collector](c C) C {
	if err := prometheus.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		logrus.WithError(err).Warn("prometheus collector register failed")
	}
	return c
}

// Init registers the ingestion collectors. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		pagesFetched = register(prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "pages_fetched_total",
			Help:      "Result pages fetched from the College Scorecard API.",
		}))

		fetchErrors = register(prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "fetch_errors_total",
			Help:      "Page fetches that failed after retries.",
		}))

		recordsTotal = register(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "records_total",
			Help:      "Records processed by ingestion, by outcome.",
		}, []string{"outcome"}))

		runsTotal = register(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "runs_total",
			Help:      "Ingestion runs, by outcome.",
		}, []string{"outcome"}))

		runDuration = register(prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "run_duration_seconds",
			Help:      "Wall time of ingestion runs.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}))

		lastRunFinish = register(prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last ingestion run finished.",
		}))
	})
}

// PageFetched counts one successfully fetched page.
func PageFetched() {
	if pagesFetched == nil {
		return
	}
	pagesFetched.Inc()
}

// FetchFailed counts one page fetch that gave up.
func FetchFailed() {
	if fetchErrors == nil {
		return
	}
	fetchErrors.Inc()
}

// Records adds n records with the given outcome.
func Records(outcome string, n int) {
	if recordsTotal == nil || n <= 0 {
		return
	}
	recordsTotal.WithLabelValues(outcome).Add(float64(n))
}

// RunFinished records the outcome and duration of one run.
func RunFinished(outcome string, duration time.Duration) {
	if runsTotal == nil {
		return
	}
	runsTotal.WithLabelValues(outcome).Inc()
	runDuration.Observe(duration.Seconds())
	lastRunFinish.SetToCurrentTime()
}
