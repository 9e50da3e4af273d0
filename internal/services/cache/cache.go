package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/llm-translator-go/internal/config"
	"github.com/llm-translator-go/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"
)

// Service defines cache operations
type Service interface {
	Get(ctx context.Context, fingerprint string) (string, bool)
	Set(ctx context.Context, fingerprint, translation string) error
	Len() int
	Cleanup()
	Clear(ctx context.Context) error
}

// Cache keeps translations for a fixed TTL and evicts the least recently
// used entry once MaxSize is reached.
type Cache struct {
	enabled bool
	lru     *expirable.LRU[string, *models.CacheEntry]
	logger  *logrus.Logger
}

// NewCache creates a new cache service
func NewCache(cfg *config.Config, logger *logrus.Logger) Service {
	if !cfg.Cache.Enabled {
		return &Cache{enabled: false}
	}

	c := &Cache{enabled: true, logger: logger}
	c.lru = expirable.NewLRU[string, *models.CacheEntry](max(cfg.Cache.MaxSize, 0), c.evicted, cfg.Cache.TTL)
	return c
}

// Get retrieves a cached translation
func (c *Cache) Get(ctx context.Context, fingerprint string) (string, bool) {
	if !c.enabled {
		return "", false
	}

	entry, found := c.lru.Get(fingerprint)
	if !found {
		return "", false
	}

	c.logger.WithFields(logrus.Fields{
		"fingerprint": fingerprint[:min(12, len(fingerprint))],
		"age":         time.Since(entry.CreatedAt),
	}).Debug("Cache hit")
	return entry.Translation, true
}

// Set stores a translation in cache
func (c *Cache) Set(ctx context.Context, fingerprint, translation string) error {
	if !c.enabled {
		return nil
	}

	entry := &models.CacheEntry{
		Fingerprint: fingerprint,
		Translation: translation,
		CreatedAt:   time.Now(),
	}
	if c.lru.Add(fingerprint, entry) {
		c.logger.WithField("size", c.lru.Len()).Debug("Cache size limit reached, evicted least recently used entry")
	}
	return nil
}

// Len returns the number of unexpired entries.
func (c *Cache) Len() int {
	if !c.enabled {
		return 0
	}
	return len(c.lru.Keys())
}

// Cleanup reports the cache size. Expired entries are reaped by the LRU
// in the background.
func (c *Cache) Cleanup() {
	if !c.enabled {
		return
	}
	c.logger.WithField("entries", c.Len()).Debug("Cache cleanup")
}

// Clear removes all cached entries
func (c *Cache) Clear(ctx context.Context) error {
	if !c.enabled {
		return nil
	}

	c.lru.Purge()
	c.logger.Info("Cache cleared")
	return nil
}

func (c *Cache) evicted(fingerprint string, entry *models.CacheEntry) {
	c.logger.WithFields(logrus.Fields{
		"fingerprint": fingerprint[:min(12, len(fingerprint))],
		"age":         time.Since(entry.CreatedAt),
	}).Debug("Cache entry evicted")
}

// Fingerprint identifies a translation request. Text is NFC-normalized and
// whitespace runs are collapsed so trivially different selections share a
// cache entry.
func Fingerprint(text, promptID, model string) string {
	normalized := strings.Join(strings.Fields(norm.NFC.String(text)), " ")
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(promptID))
	h.Write([]byte{0})
	h.Write([]byte(normalized))
	return hex.EncodeToString(h.Sum(nil))
}
