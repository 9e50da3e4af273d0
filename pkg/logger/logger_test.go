package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/llm-translator-go/internal/config"
	"github.com/sirupsen/logrus"
)

func TestNewLoggerLevels(t *testing.T) {
	log, err := NewLogger(&config.LoggingConfig{Level: "debug", Format: "json", Output: "stdout"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if log.GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %v", log.GetLevel())
	}
	if _, ok := log.Formatter.(*logrus.JSONFormatter); !ok {
		t.Errorf("formatter = %T, want JSON", log.Formatter)
	}

	if _, err := NewLogger(&config.LoggingConfig{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNewLoggerFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "translator.log")
	log, err := NewLogger(&config.LoggingConfig{
		Level:  "info",
		Format: "text",
		Output: "file",
		File:   config.FileConfig{Path: path, MaxSize: 1, MaxBackups: 1, MaxAge: 1},
	})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	log.Info("hello")

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("log file not written: %v", err)
	}
}

func TestWithRequestShortensFingerprint(t *testing.T) {
	entry := WithRequest(Discard(), "req-1", "0123456789abcdef0123")
	if got := entry.Data["fingerprint"]; got != "0123456789ab" {
		t.Errorf("fingerprint field = %v", got)
	}
	if got := entry.Data["request_id"]; got != "req-1" {
		t.Errorf("request_id field = %v", got)
	}
}

func TestNewLoggerOutputs(t *testing.T) {
	tests := []struct {
		output string
		want   *os.File
	}{
		{"stderr", os.Stderr},
		{"stdout", os.Stdout},
		{"", os.Stdout},
	}

	for _, tt := range tests {
		t.Run(tt.output, func(t *testing.T) {
			log, err := NewLogger(&config.LoggingConfig{Level: "info", Output: tt.output})
			if err != nil {
				t.Fatalf("NewLogger() error = %v", err)
			}
			if log.Out != tt.want {
				t.Errorf("output = %v, want %v", log.Out, tt.want.Name())
			}
			if _, ok := log.Formatter.(*logrus.TextFormatter); !ok {
				t.Errorf("formatter = %T, want text", log.Formatter)
			}
		})
	}
}
