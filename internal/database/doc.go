// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations, gorm logger
//	├── schools/         # School inserts, lookups and the listing query
//	└── sync/            # Ingestion progress tracking
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	// Initialize database connection
//	db, err := database.NewDatabase("./college_app.db", logger)
//
//	// Create domain-specific repositories
//	schoolsRepo := schools.NewRepository(db.DB)
//	progress := sync.NewRepository(db.DB)
//
//	// Use repositories
//	page, err := schoolsRepo.List(schools.ListQuery{State: "CA", SortBy: "tuition_in_state"})
//	running, err := progress.IsSyncRunning()
//
// # Interface Implementations
//
//   - schools.Repository: implements ingest.Store and http.SchoolStore
//   - sync.Repository: implements ingest.ProgressReporter and http.ProgressReader
//   - Database: implements http.Pinger
//
// Schools are only ever inserted. A unit ID already present is skipped by the
// insert itself (ON CONFLICT DO NOTHING), so concurrent or repeated runs
// cannot create duplicates.
//
// # Adding a New Domain
//
// To add a new domain (e.g., programs):
//
//  1. Create a new sub-package: internal/database/programs/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Add the entity to the AutoMigrate call in NewDatabase
//  5. Add compile-time interface check in internal/interfaces/checks.go
package database
