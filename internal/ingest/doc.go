// Package ingest drives a full ingestion run against the College Scorecard API.
//
// # Architecture
//
// A run walks pages from 0 until the API returns an empty result set:
//
//	FetchPage → MapSchool → dedupe by unit ID → stage → CreateBatch
//
// Staged records are committed every BatchSize records and at the end of
// each page. Duplicates are detected three ways: against storage
// (ExistsByUnitID), against records already staged in the same run, and by
// the store's skip-on-conflict insert.
//
// Records that cannot be mapped are logged and counted as failed; they never
// abort a page. A page fetch error (after the client's own retries) aborts
// the run and returns the partial Result alongside the error.
//
// # Collaborators
//
//   - Fetcher: scorecard.Client
//   - Store: schools.Repository
//   - ProgressReporter: sync.Repository (optional)
//
// # Usage
//
//	pipeline := ingest.NewPipeline(client, schoolsRepo, ingest.Config{PageDelay: ingest.DefaultPageDelay}, log)
//	pipeline.SetProgressReporter(syncRepo)
//	result, err := pipeline.Run(ctx, apiKey)
package ingest
