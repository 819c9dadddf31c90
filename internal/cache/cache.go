package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"citemon/internal/storage"
)

const sqliteTimeLayout = "2006-01-02 15:04:05"

// Key identifies a render by its ordered list of sources.
func Key(sources []string) string {
	h := sha256.Sum256([]byte(strings.Join(sources, "\n")))
	return hex.EncodeToString(h[:])
}

// Cache is a read-through store for rendered datasets: an in-process LRU in
// front of the sqlite datasets table. Entries older than the TTL are misses;
// a zero TTL never expires.
type Cache struct {
	mem    *expirable.LRU[string, []byte]
	db     *storage.DB
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

func New(db *storage.DB, size int, ttl time.Duration, logger *slog.Logger) *Cache {
	if size <= 0 {
		size = 16
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cache{
		mem:    expirable.NewLRU[string, []byte](size, nil, ttl),
		db:     db,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

// Get returns the payload stored under key. ok is false on a miss.
func (c *Cache) Get(key string) ([]byte, bool, error) {
	if payload, ok := c.mem.Get(key); ok {
		c.logger.Debug("cache hit", "key", key, "layer", "memory")
		return payload, true, nil
	}
	if c.db == nil {
		return nil, false, nil
	}

	row, err := c.db.GetDataset(key)
	if errors.Is(err, storage.ErrNotCached) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if c.expired(row.CreatedAt) {
		c.logger.Debug("cache entry expired", "key", key, "createdAt", row.CreatedAt)
		return nil, false, nil
	}

	c.mem.Add(key, row.Payload)
	c.logger.Debug("cache hit", "key", key, "layer", "sqlite")
	return row.Payload, true, nil
}

func (c *Cache) Put(key string, sources []string, payload []byte) error {
	c.mem.Add(key, payload)
	if c.db == nil {
		return nil
	}
	if err := c.db.PutDataset(key, sources, payload); err != nil {
		return fmt.Errorf("cache put %s: %w", key, err)
	}
	return nil
}

// Invalidate drops one key, or everything when key is empty.
func (c *Cache) Invalidate(key string) (int64, error) {
	if key == "" {
		c.mem.Purge()
	} else {
		c.mem.Remove(key)
	}
	if c.db == nil {
		return 0, nil
	}
	return c.db.DeleteDataset(key)
}

func (c *Cache) expired(createdAt string) bool {
	if c.ttl <= 0 {
		return false
	}
	created, err := time.ParseInLocation(sqliteTimeLayout, createdAt, time.UTC)
	if err != nil {
		return true
	}
	return c.now().Sub(created) > c.ttl
}
