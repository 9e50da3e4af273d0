package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/llm-translator-go/internal/config"
	"github.com/llm-translator-go/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	historyKey     = "translator:history"
	statsKeyPrefix = "translator:stats:"
)

// RedisStorage keeps history as a capped list of JSON records and one hash
// of counters per UTC day.
type RedisStorage struct {
	client     *redis.Client
	logger     *logrus.Logger
	maxEntries int64
	retention  time.Duration
}

func NewRedisStorage(cfg *config.Config, logger *logrus.Logger) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Storage.Redis.Addr,
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newRedisStorage(client, cfg, logger), nil
}

func newRedisStorage(client *redis.Client, cfg *config.Config, logger *logrus.Logger) *RedisStorage {
	maxEntries := int64(cfg.Storage.Redis.MaxEntries)
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &RedisStorage{
		client:     client,
		logger:     logger,
		maxEntries: maxEntries,
		retention:  cfg.Storage.Retention,
	}
}

func (r *RedisStorage) SaveRecord(ctx context.Context, rec *models.HistoryRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	statsKey := statsKeyPrefix + Day(rec.CreatedAt)
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, historyKey, data)
	pipe.LTrim(ctx, historyKey, 0, r.maxEntries-1)
	if rec.Status == models.StatusSuccess {
		pipe.HIncrBy(ctx, statsKey, "translations", 1)
		pipe.HIncrBy(ctx, statsKey, "source_chars", int64(rec.SourceChars))
		pipe.HIncrBy(ctx, statsKey, "result_chars", int64(rec.ResultChars))
	} else {
		pipe.HIncrBy(ctx, statsKey, "failures", 1)
	}
	if r.retention > 0 {
		pipe.Expire(ctx, statsKey, r.retention)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStorage) ListRecords(ctx context.Context, limit int) ([]*models.HistoryRecord, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	items, err := r.client.LRange(ctx, historyKey, 0, stop).Result()
	if err != nil {
		return nil, err
	}

	records := make([]*models.HistoryRecord, 0, len(items))
	for _, item := range items {
		var rec models.HistoryRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			r.logger.WithError(err).Warn("Skipping unreadable history record")
			continue
		}
		records = append(records, &rec)
	}
	return records, nil
}

func (r *RedisStorage) GetDailyStats(ctx context.Context, day string) (*models.DailyStats, error) {
	values, err := r.client.HGetAll(ctx, statsKeyPrefix+day).Result()
	if err != nil {
		return nil, err
	}

	field := func(name string) int {
		n, _ := strconv.Atoi(values[name])
		return n
	}
	return &models.DailyStats{
		Day:          day,
		Translations: field("translations"),
		Failures:     field("failures"),
		SourceChars:  field("source_chars"),
		ResultChars:  field("result_chars"),
	}, nil
}

// CleanupExpired pops records older than retention off the tail of the
// list. Stats hashes expire on their own.
func (r *RedisStorage) CleanupExpired(ctx context.Context, retention time.Duration) error {
	if retention <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-retention)

	removed := 0
	for {
		item, err := r.client.LIndex(ctx, historyKey, -1).Result()
		if err == redis.Nil {
			break
		}
		if err != nil {
			return err
		}

		var rec models.HistoryRecord
		if err := json.Unmarshal([]byte(item), &rec); err == nil && rec.CreatedAt.After(cutoff) {
			break
		}
		if err := r.client.RPop(ctx, historyKey).Err(); err != nil && err != redis.Nil {
			return err
		}
		removed++
	}

	if removed > 0 {
		r.logger.WithField("removed", removed).Debug("Expired history records removed")
	}
	return nil
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}
