package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/llm-translator-go/internal/config"
	"github.com/llm-translator-go/internal/middleware"
	"github.com/llm-translator-go/internal/models"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// Storage interface defines history operations
type Storage interface {
	SaveRecord(ctx context.Context, rec *models.HistoryRecord) error
	// ListRecords returns up to limit records, newest first. A limit of
	// zero or less returns everything.
	ListRecords(ctx context.Context, limit int) ([]*models.HistoryRecord, error)
	GetDailyStats(ctx context.Context, day string) (*models.DailyStats, error)
	CleanupExpired(ctx context.Context, retention time.Duration) error
	Close() error
}

// Manager manages different storage backends
type Manager struct {
	storage   Storage
	logger    *logrus.Logger
	metrics   *middleware.Metrics
	storeText bool
	retention time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// NewManager creates a new storage manager
func NewManager(cfg *config.Config, metrics *middleware.Metrics, logger *logrus.Logger) (*Manager, error) {
	var storage Storage

	switch cfg.Storage.Type {
	case "redis":
		redisStorage, err := NewRedisStorage(cfg, logger)
		if err != nil {
			return nil, err
		}
		storage = redisStorage
	case "sqlite":
		sqliteStorage, err := NewSQLiteStorage(cfg.Storage.SQLite.Path, logger)
		if err != nil {
			return nil, err
		}
		storage = sqliteStorage
	case "memory":
		storage = NewMemoryStorage(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}

	manager := &Manager{
		storage:   storage,
		logger:    logger,
		metrics:   metrics,
		storeText: cfg.Storage.StoreText,
		retention: cfg.Storage.Retention,
		stop:      make(chan struct{}),
	}

	if cfg.Storage.Retention > 0 {
		interval := cfg.Storage.Memory.CleanupInterval
		if interval <= 0 {
			interval = 10 * time.Minute
		}
		go manager.startCleanup(interval)
	}

	logger.WithField("type", cfg.Storage.Type).Info("History storage initialized")
	return manager, nil
}

func (m *Manager) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := m.storage.CleanupExpired(ctx, m.retention); err != nil {
				m.logger.WithError(err).Error("Failed to cleanup expired history")
			}
			cancel()
		}
	}
}

// Record stores rec. Selection and translation text are dropped unless
// storage.store_text is set.
func (m *Manager) Record(ctx context.Context, rec *models.HistoryRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	if !m.storeText {
		rec.SourceText = ""
		rec.ResultText = ""
	}

	start := time.Now()
	err := m.storage.SaveRecord(ctx, rec)
	m.record("save", start, err)
	if err != nil {
		return fmt.Errorf("failed to save history record: %w", err)
	}
	return nil
}

// Recent returns the newest records first.
func (m *Manager) Recent(ctx context.Context, limit int) ([]*models.HistoryRecord, error) {
	start := time.Now()
	records, err := m.storage.ListRecords(ctx, limit)
	m.record("list", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return records, nil
}

// DailyStats returns the totals of one UTC day. An empty day means today.
func (m *Manager) DailyStats(ctx context.Context, day string) (*models.DailyStats, error) {
	if day == "" {
		day = Day(time.Now())
	}
	start := time.Now()
	stats, err := m.storage.GetDailyStats(ctx, day)
	m.record("stats", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats for %s: %w", day, err)
	}
	return stats, nil
}

// Close stops the cleanup loop and releases the backend.
func (m *Manager) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	return m.storage.Close()
}

func (m *Manager) record(op string, start time.Time, err error) {
	if m.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.metrics.RecordStorageOperation(op, status, time.Since(start))
}

// Day formats t as the UTC date used to bucket stats.
func Day(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// MemoryStorage implements storage using in-memory cache
type MemoryStorage struct {
	cache  *cache.Cache
	logger *logrus.Logger
}

func NewMemoryStorage(cfg *config.Config, logger *logrus.Logger) *MemoryStorage {
	expiration := cfg.Storage.Retention
	if expiration <= 0 {
		expiration = cache.NoExpiration
	}
	return &MemoryStorage{
		cache:  cache.New(expiration, cfg.Storage.Memory.CleanupInterval),
		logger: logger,
	}
}

func (m *MemoryStorage) SaveRecord(ctx context.Context, rec *models.HistoryRecord) error {
	stored := *rec
	m.cache.SetDefault("history:"+rec.ID, &stored)
	return nil
}

func (m *MemoryStorage) ListRecords(ctx context.Context, limit int) ([]*models.HistoryRecord, error) {
	records := m.all()
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (m *MemoryStorage) GetDailyStats(ctx context.Context, day string) (*models.DailyStats, error) {
	stats := &models.DailyStats{Day: day}
	for _, rec := range m.all() {
		if Day(rec.CreatedAt) == day {
			stats.Add(rec)
		}
	}
	return stats, nil
}

func (m *MemoryStorage) CleanupExpired(ctx context.Context, retention time.Duration) error {
	m.cache.DeleteExpired()
	return nil
}

func (m *MemoryStorage) Close() error {
	m.cache.Flush()
	return nil
}

func (m *MemoryStorage) all() []*models.HistoryRecord {
	items := m.cache.Items()
	records := make([]*models.HistoryRecord, 0, len(items))
	for _, item := range items {
		rec := *item.Object.(*models.HistoryRecord)
		records = append(records, &rec)
	}
	return records
}
