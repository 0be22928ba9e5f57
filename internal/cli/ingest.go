package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/internavi/schoolfinder/internal/config"
	"github.com/internavi/schoolfinder/internal/database"
	"github.com/internavi/schoolfinder/internal/database/schools"
	syncrepo "github.com/internavi/schoolfinder/internal/database/sync"
	"github.com/internavi/schoolfinder/internal/ingest"
	"github.com/internavi/schoolfinder/internal/logging"
	"github.com/internavi/schoolfinder/internal/scorecard"
)

// IngestCommand runs one ingestion pass against the College Scorecard API
// and stores new schools in the local database.
type IngestCommand struct {
	DatabasePath string
	APIKey       string
	BaseURL      string
	MaxSchools   int
	PageSize     int
	BatchSize    int
	PageDelay    time.Duration
	MaxRetries   int
	Verbose      bool

	staleAfter time.Duration
	logConfig  config.Log
}

// NewIngestCommand creates the command with defaults taken from the environment.
func NewIngestCommand(cfg *config.Config) *IngestCommand {
	return &IngestCommand{
		DatabasePath: cfg.Database.Path,
		APIKey:       cfg.Scorecard.APIKey,
		BaseURL:      cfg.Scorecard.BaseURL,
		MaxSchools:   cfg.Ingest.MaxSchools,
		PageSize:     cfg.Ingest.PageSize,
		BatchSize:    cfg.Ingest.BatchSize,
		PageDelay:    cfg.Ingest.PageDelay,
		MaxRetries:   cfg.Scorecard.MaxRetries,
		staleAfter:   cfg.Ingest.StaleAfter,
		logConfig:    cfg.Log,
	}
}

func (cmd *IngestCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)

	fs.StringVar(&cmd.DatabasePath, "db", cmd.DatabasePath, "Path to the schools database file")
	fs.StringVar(&cmd.APIKey, "api-key", cmd.APIKey, "College Scorecard API key (default: $COLLEGE_SCORECARD_API_KEY)")
	fs.StringVar(&cmd.BaseURL, "base-url", cmd.BaseURL, "College Scorecard schools endpoint")
	fs.IntVar(&cmd.MaxSchools, "max-schools", cmd.MaxSchools, "Stop after this many new schools (negative for no limit)")
	fs.IntVar(&cmd.PageSize, "page-size", cmd.PageSize, "Records requested per API page")
	fs.IntVar(&cmd.BatchSize, "batch-size", cmd.BatchSize, "Records committed per database transaction")
	fs.DurationVar(&cmd.PageDelay, "page-delay", cmd.PageDelay, "Pause between API pages")
	fs.IntVar(&cmd.MaxRetries, "max-retries", cmd.MaxRetries, "Attempts per page before giving up")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable debug logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s ingest [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Fetch schools from the College Scorecard API into the local database.\n")
		fmt.Fprintf(os.Stderr, "Schools already stored (by unit ID) are skipped.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Ingest up to 500 schools:\n")
		fmt.Fprintf(os.Stderr, "  COLLEGE_SCORECARD_API_KEY=... %s ingest\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Ingest everything into a custom database:\n")
		fmt.Fprintf(os.Stderr, "  %s ingest -api-key ... -max-schools -1 -db ./all_schools.db\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.APIKey == "" {
		return fmt.Errorf("API key not provided: set COLLEGE_SCORECARD_API_KEY or pass -api-key")
	}
	if cmd.DatabasePath == "" {
		cmd.DatabasePath = config.DefaultDatabasePath
	}

	return nil
}

func (cmd *IngestCommand) Run() error {
	logCfg := cmd.logConfig
	if cmd.Verbose {
		logCfg.Level = "debug"
	}
	logger := logging.New(logCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDatabase(cmd.DatabasePath, logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	client := scorecard.NewClient(scorecard.ClientConfig{
		BaseURL:    cmd.BaseURL,
		MaxRetries: cmd.MaxRetries,
		Logger:     logger,
	})

	pipeline := ingest.NewPipeline(client, schools.NewRepository(db.DB), ingest.Config{
		PageSize:   cmd.PageSize,
		BatchSize:  cmd.BatchSize,
		MaxRecords: cmd.MaxSchools,
		PageDelay:  cmd.PageDelay,
	}, logger)
	pipeline.SetProgressReporter(syncrepo.NewRepository(db.DB).WithStaleAfter(cmd.staleAfter))

	fmt.Println("College Scorecard Ingestion")
	fmt.Println("===========================")
	fmt.Printf("Database: %s\n", cmd.DatabasePath)

	result, err := pipeline.Run(ctx, cmd.APIKey)
	printSummary(result)

	switch {
	case errors.Is(err, ingest.ErrAlreadyRunning):
		return fmt.Errorf("another ingestion is in progress")
	case errors.Is(err, scorecard.ErrInvalidAPIKey):
		return fmt.Errorf("the API key was rejected: %w", err)
	case err != nil:
		return err
	}

	logger.WithField("run_id", result.RunID).Debug("Ingestion command finished")
	return nil
}

func printSummary(r ingest.Result) {
	fmt.Println()
	fmt.Printf("Pages fetched: %d\n", r.Pages)
	fmt.Printf("Inserted:      %d\n", r.Inserted)
	fmt.Printf("Skipped:       %d\n", r.Skipped)
	fmt.Printf("Failed:        %d\n", r.Failed)
	fmt.Printf("Duration:      %s\n", r.Duration.Round(time.Millisecond))
}
