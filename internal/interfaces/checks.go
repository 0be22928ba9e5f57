package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/internavi/schoolfinder/internal/database"
	"github.com/internavi/schoolfinder/internal/database/schools"
	"github.com/internavi/schoolfinder/internal/database/sync"
	"github.com/internavi/schoolfinder/internal/http"
	"github.com/internavi/schoolfinder/internal/ingest"
	"github.com/internavi/schoolfinder/internal/scheduler"
	"github.com/internavi/schoolfinder/internal/scorecard"
	"github.com/internavi/schoolfinder/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

// School storage
var _ ingest.Store = (*schools.Repository)(nil)
var _ http.SchoolStore = (*schools.Repository)(nil)

// Storage health
var _ http.Pinger = (*database.Database)(nil)

// =============================================================================
// External Services
// =============================================================================

// Fetcher implementations
var _ ingest.Fetcher = (*scorecard.Client)(nil)

// =============================================================================
// Progress Tracking
// =============================================================================

// ProgressReporter implementations
var _ ingest.ProgressReporter = (*sync.Repository)(nil)
var _ http.ProgressReader = (*sync.Repository)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ tasks.IngestRunner = (*ingest.Pipeline)(nil)
var _ scheduler.Enqueuer = (*tasks.Client)(nil)
var _ http.TaskQueue = (*tasks.Client)(nil)
var _ http.Scheduler = (*scheduler.IngestScheduler)(nil)
