// Package logger builds the logrus loggers used across the translator.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/llm-translator-go/internal/config"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	jsonTimeLayout = "2006-01-02T15:04:05.000Z07:00"
	textTimeLayout = "2006-01-02 15:04:05"
)

// NewLogger creates a logger from the logging section of the config.
func NewLogger(cfg *config.LoggingConfig) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	out, err := newOutput(cfg)
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetLevel(level)
	log.SetFormatter(newFormatter(cfg.Format))
	log.SetOutput(out)
	return log, nil
}

func newFormatter(format string) logrus.Formatter {
	if format != "json" {
		return &logrus.TextFormatter{TimestampFormat: textTimeLayout, FullTimestamp: true}
	}
	return &logrus.JSONFormatter{
		TimestampFormat: jsonTimeLayout,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "timestamp",
			logrus.FieldKeyMsg:  "message",
		},
	}
}

// newOutput resolves the destination. Files are rotated by lumberjack;
// sizes are in megabytes and ages in days.
func newOutput(cfg *config.LoggingConfig) (io.Writer, error) {
	switch cfg.Output {
	case "stderr":
		return os.Stderr, nil
	case "file":
		if err := os.MkdirAll(filepath.Dir(cfg.File.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		return &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSize,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAge,
			Compress:   true,
		}, nil
	default:
		return os.Stdout, nil
	}
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// WithRequest adds the fields that identify a translation request.
func WithRequest(log *logrus.Logger, requestID, fingerprint string) *logrus.Entry {
	if len(fingerprint) > 12 {
		fingerprint = fingerprint[:12]
	}
	return log.WithFields(logrus.Fields{
		"request_id":  requestID,
		"fingerprint": fingerprint,
	})
}
