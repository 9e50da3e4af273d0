package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/llm-translator-go/internal/models"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// Timestamps are stored in a fixed-width UTC layout so that text order is
// time order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStorage persists history in a local SQLite database.
type SQLiteStorage struct {
	db     *sql.DB
	path   string
	logger *logrus.Logger
	mu     sync.Mutex
}

// NewSQLiteStorage opens (or creates) the database at path. ":memory:" keeps
// it in process.
func NewSQLiteStorage(path string, logger *logrus.Logger) (*SQLiteStorage, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)

	store := &SQLiteStorage{db: db, path: path, logger: logger}
	if err := store.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history database: %w", err)
	}
	return store, nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS history (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		day TEXT NOT NULL,
		status TEXT NOT NULL,
		source TEXT,
		model TEXT,
		preset TEXT,
		source_chars INTEGER,
		result_chars INTEGER,
		duration_ms INTEGER,
		cached INTEGER,
		error TEXT,
		source_text TEXT,
		result_text TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS history_created_at ON history (created_at)`,
	`CREATE INDEX IF NOT EXISTS history_day ON history (day)`,
}

func (s *SQLiteStorage) init() error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStorage) SaveRecord(ctx context.Context, rec *models.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO history
		(id, created_at, day, status, source, model, preset, source_chars, result_chars, duration_ms, cached, error, source_text, result_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.CreatedAt.UTC().Format(sqliteTimeLayout),
		Day(rec.CreatedAt),
		rec.Status,
		rec.Source,
		rec.Model,
		rec.Preset,
		rec.SourceChars,
		rec.ResultChars,
		rec.DurationMS,
		boolToInt(rec.Cached),
		rec.Error,
		rec.SourceText,
		rec.ResultText,
	)
	return err
}

func (s *SQLiteStorage) ListRecords(ctx context.Context, limit int) ([]*models.HistoryRecord, error) {
	query := `SELECT id, created_at, status, source, model, preset, source_chars, result_chars,
		duration_ms, cached, error, source_text, result_text
		FROM history ORDER BY created_at DESC`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.HistoryRecord
	for rows.Next() {
		var rec models.HistoryRecord
		var ts string
		var cached int
		if err := rows.Scan(&rec.ID, &ts, &rec.Status, &rec.Source, &rec.Model, &rec.Preset,
			&rec.SourceChars, &rec.ResultChars, &rec.DurationMS, &cached, &rec.Error,
			&rec.SourceText, &rec.ResultText); err != nil {
			return nil, err
		}
		if t, err := time.Parse(sqliteTimeLayout, ts); err == nil {
			rec.CreatedAt = t
		}
		rec.Cached = cached == 1
		records = append(records, &rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStorage) GetDailyStats(ctx context.Context, day string) (*models.DailyStats, error) {
	stats := &models.DailyStats{Day: day}
	err := s.db.QueryRowContext(ctx, `SELECT
		COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status != ? THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status = ? THEN source_chars ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status = ? THEN result_chars ELSE 0 END), 0)
		FROM history WHERE day = ?`,
		models.StatusSuccess, models.StatusSuccess, models.StatusSuccess, models.StatusSuccess, day,
	).Scan(&stats.Translations, &stats.Failures, &stats.SourceChars, &stats.ResultChars)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *SQLiteStorage) CleanupExpired(ctx context.Context, retention time.Duration) error {
	if retention <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-retention).UTC().Format(sqliteTimeLayout)
	res, err := s.db.ExecContext(ctx, "DELETE FROM history WHERE created_at < ?", cutoff)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.logger.WithField("removed", n).Debug("Expired history records removed")
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
