package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type LogFormat string

const (
	LogFormatText LogFormat = "text" // Human-readable (default)
	LogFormatJSON LogFormat = "json" // One JSON object per line
)

type (
	Config struct {
		HTTP
		Global
		Database
		Scorecard
		Ingest
		Schedule
		Tasks
		Log
		Metrics
	}

	HTTP struct {
		Port               int32
		Host               string
		CORSAllowedOrigins []string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Scorecard struct {
		APIKey         string
		BaseURL        string
		MaxRetries     int
		RequestTimeout time.Duration
	}
	Ingest struct {
		PageSize   int
		BatchSize  int
		MaxSchools int           // 0 uses the default cap, negative disables it
		PageDelay  time.Duration // Courtesy pause between pages
		StaleAfter time.Duration // A running run with no progress this long is treated as crashed
	}
	Schedule struct {
		Enabled  bool
		Schedule string // Cron format: "0 3 * * 0" = Sundays at 03:00
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Log struct {
		Level  string
		Format LogFormat
	}
	Metrics struct {
		Enabled bool
	}
)

// getAPIKey prefers COLLEGE_SCORECARD_API_KEY and falls back to the shorter SCORECARD_API_KEY
func getAPIKey(v *viper.Viper) string {
	if key := v.GetString("COLLEGE_SCORECARD_API_KEY"); key != "" {
		return key
	}
	return v.GetString("SCORECARD_API_KEY")
}

// splitList parses a comma-separated env value, dropping empty entries
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8000)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("cors_allowed_origins", DefaultCORSAllowedOrigins)
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_path", DefaultDatabasePath)

	// College Scorecard API defaults
	v.SetDefault("college_scorecard_api_key", "")
	v.SetDefault("scorecard_base_url", DefaultScorecardBaseURL)
	v.SetDefault("ingest_max_retries", 3)
	v.SetDefault("ingest_request_timeout", "30s")

	// Ingestion defaults
	v.SetDefault("ingest_page_size", 100)
	v.SetDefault("ingest_batch_size", 50)
	v.SetDefault("ingest_max_schools", 500)
	v.SetDefault("ingest_page_delay", "500ms")
	v.SetDefault("ingest_stale_after", "10m")

	// Scheduled ingestion defaults
	v.SetDefault("ingest_schedule_enabled", false)
	v.SetDefault("ingest_schedule", "0 3 * * 0") // Weekly, Sunday 03:00

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 1)
	v.SetDefault("task_max_retries", 1)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "60m")
	v.SetDefault("task_release_after", "90m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	// Observability defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", string(LogFormatText))
	v.SetDefault("metrics_enabled", true)

	return &Config{
		HTTP: HTTP{
			Port:               v.GetInt32("PORT"),
			Host:               v.GetString("HOST"),
			CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Scorecard: Scorecard{
			APIKey:         getAPIKey(v),
			BaseURL:        v.GetString("SCORECARD_BASE_URL"),
			MaxRetries:     v.GetInt("INGEST_MAX_RETRIES"),
			RequestTimeout: v.GetDuration("INGEST_REQUEST_TIMEOUT"),
		},
		Ingest: Ingest{
			PageSize:   v.GetInt("INGEST_PAGE_SIZE"),
			BatchSize:  v.GetInt("INGEST_BATCH_SIZE"),
			MaxSchools: v.GetInt("INGEST_MAX_SCHOOLS"),
			PageDelay:  v.GetDuration("INGEST_PAGE_DELAY"),
			StaleAfter: v.GetDuration("INGEST_STALE_AFTER"),
		},
		Schedule: Schedule{
			Enabled:  v.GetBool("INGEST_SCHEDULE_ENABLED"),
			Schedule: v.GetString("INGEST_SCHEDULE"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Log: Log{
			Level:  v.GetString("LOG_LEVEL"),
			Format: LogFormat(v.GetString("LOG_FORMAT")),
		},
		Metrics: Metrics{
			Enabled: v.GetBool("METRICS_ENABLED"),
		},
	}
}
