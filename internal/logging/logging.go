// Package logging builds the process-wide logrus logger from configuration.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/internavi/schoolfinder/internal/config"
)

// New returns a logger writing to stderr with the configured level and format.
// An unknown level falls back to info.
func New(cfg config.Log) *logrus.Logger {
	return NewWithOutput(cfg, os.Stderr)
}

// NewWithOutput is New with an explicit destination.
func NewWithOutput(cfg config.Log, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.Out = out

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetReportCaller(level >= logrus.DebugLevel)

	switch cfg.Format {
	case config.LogFormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	return logger
}

// Configure applies cfg to the logrus standard logger, which third-party
// middleware logs through, and returns it.
func Configure(cfg config.Log) *logrus.Logger {
	configured := New(cfg)
	std := logrus.StandardLogger()
	std.SetOutput(configured.Out)
	std.SetLevel(configured.GetLevel())
	std.SetFormatter(configured.Formatter)
	std.SetReportCaller(configured.ReportCaller)
	return std
}
