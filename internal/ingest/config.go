package ingest

import "github.com/internavi/schoolfinder/internal/config"

// FromAppConfig maps the application ingestion settings onto a pipeline Config.
func FromAppConfig(c config.Ingest) Config {
	return Config{
		PageSize:   c.PageSize,
		BatchSize:  c.BatchSize,
		MaxRecords: c.MaxSchools,
		PageDelay:  c.PageDelay,
	}
}
