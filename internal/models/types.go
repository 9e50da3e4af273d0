package models

import (
	"time"
)

// Message represents a chat completion message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Translation outcome statuses stored in history.
const (
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
)

// HistoryRecord is one finished hotkey or CLI translation.
type HistoryRecord struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Status      string    `json:"status"`
	Source      string    `json:"source"` // hotkey or cli
	Model       string    `json:"model"`
	Preset      string    `json:"preset"`
	SourceChars int       `json:"source_chars"`
	ResultChars int       `json:"result_chars"`
	DurationMS  int64     `json:"duration_ms"`
	Cached      bool      `json:"cached"`
	Error       string    `json:"error,omitempty"`
	SourceText  string    `json:"source_text,omitempty"`
	ResultText  string    `json:"result_text,omitempty"`
}

// DailyStats aggregates history records of one UTC day.
type DailyStats struct {
	Day          string `json:"day"`
	Translations int    `json:"translations"`
	Failures     int    `json:"failures"`
	SourceChars  int    `json:"source_chars"`
	ResultChars  int    `json:"result_chars"`
}

// Add folds a record into the stats.
func (s *DailyStats) Add(rec *HistoryRecord) {
	if rec.Status == StatusSuccess {
		s.Translations++
		s.SourceChars += rec.SourceChars
		s.ResultChars += rec.ResultChars
		return
	}
	s.Failures++
}

// CacheEntry represents a cached translation
type CacheEntry struct {
	Fingerprint string
	Translation string
	CreatedAt   time.Time
}
