// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
//   - ingest.Store: insert-only school persistence keyed by unit ID (internal/ingest/pipeline.go)
//   - http.SchoolLister / http.SchoolSource: listing and full scans (internal/http/stores.go)
//   - http.Pinger: storage health (internal/http/stores.go)
//
// ## External Service Interfaces
//
//   - ingest.Fetcher: one page of raw records from the College Scorecard API (internal/ingest/pipeline.go)
//
// ## Progress Tracking Interfaces
//
//   - ingest.ProgressReporter: run progress and the overlap guard (internal/ingest/pipeline.go)
//   - http.ProgressReader: progress for GET /api/ingest/status (internal/http/stores.go)
//
// ## Background Work Interfaces
//
//   - tasks.IngestRunner: runs one ingestion pass (internal/tasks/ingest.go)
//   - scheduler.Enqueuer / http.TaskQueue: hand work to the backlite queue
//   - http.Scheduler: in-process runs and the cron schedule (internal/http/stores.go)
//
// # Adding a New Data Source
//
// To ingest schools from another API, implement ingest.Fetcher returning raw
// records in a PageResponse:
//
//	type IPEDSClient struct {
//		httpClient *http.Client
//	}
//
//	func (c *IPEDSClient) FetchPage(ctx context.Context, apiKey string, page, perPage int) (*scorecard.PageResponse, error)
//
//	var _ ingest.Fetcher = (*IPEDSClient)(nil)
//
// Then provide a mapper from the raw record to entities.School and wire it into
// a Pipeline in entrypoint.go.
//
// # Adding a New Matching Rule
//
// Scoring rules live in internal/matching/scorer.go. Each rule looks at one
// school and the quiz preferences and returns points plus a reason:
//
//	func accreditationRule(s *entities.School, p Preferences) (int, string)
//
// Append it to the rules slice. Rules are independent, so order does not
// change the score.
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// This pattern is used throughout the codebase. See checks.go for examples.
package interfaces
