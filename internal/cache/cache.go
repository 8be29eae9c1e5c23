package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/iago/content-orchestrator-back/internal/metrics"
	"golang.org/x/sync/singleflight"
)

type Entry struct {
	Value     json.RawMessage
	CreatedAt time.Time
	ExpiresAt time.Time
}

type Config struct {
	TTL        time.Duration
	MaxEntries int
}

// Cache is a TTL bounded JSON cache. Keys are namespaced so that a whole
// group (for example every topic list of a brand) can be dropped at once.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]Entry
	ttl        time.Duration
	maxEntries int
	group      singleflight.Group
}

func New(config Config) *Cache {
	if config.TTL <= 0 {
		config.TTL = 2 * time.Minute
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = 1000
	}
	return &Cache{
		entries:    make(map[string]Entry),
		ttl:        config.TTL,
		maxEntries: config.MaxEntries,
	}
}

func (c *Cache) Get(key string) (Entry, bool) {
	entry, ok := c.lookup(key, time.Now().UTC())
	result := "miss"
	if ok {
		result = "hit"
	}
	metrics.CacheLookups.WithLabelValues(result).Inc()
	return entry, ok
}

func (c *Cache) lookup(key string, now time.Time) (Entry, bool) {
	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()
	if !exists {
		return Entry{}, false
	}
	if now.After(entry.ExpiresAt) {
		c.mu.Lock()
		if current, ok := c.entries[key]; ok && now.After(current.ExpiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return Entry{}, false
	}
	entry.Value = append(json.RawMessage(nil), entry.Value...)
	return entry, true
}

func (c *Cache) Set(key string, entry Entry) {
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.ExpiresAt = now.Add(c.ttl)
	entry.Value = append([]byte(nil), entry.Value...)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}
	c.entries[key] = entry
}

// InvalidatePrefix drops every entry whose key starts with prefix and
// returns how many were removed.
func (c *Cache) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			removed++
		}
	}
	if removed > 0 {
		metrics.CacheInvalidations.Add(float64(removed))
	}
	return removed
}

// Key joins a namespace and parts into a cache key. The namespace stays
// readable so InvalidatePrefix can target it.
func Key(namespace string, parts ...string) string {
	return namespace + "|" + BuildSignature(parts...)
}

// BrandNamespace is the namespace of one list kind for one brand.
func BrandNamespace(kind, brandID string) string {
	return kind + ":" + strings.TrimSpace(brandID)
}

func BuildSignature(parts ...string) string {
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		normalized = append(normalized, strings.TrimSpace(strings.ToLower(part)))
	}
	sum := sha256.Sum256([]byte(strings.Join(normalized, "||")))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) evictOldest() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for key, entry := range c.entries {
		if oldestKey == "" || entry.CreatedAt.Before(oldest) {
			oldestKey, oldest = key, entry.CreatedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Load returns the cached value for key or calls loader once, sharing the
// result between concurrent callers of the same key.
func Load[T any](c *Cache, key string, loader func() (T, error)) (T, error) {
	var zero T
	if entry, ok := c.Get(key); ok {
		var cached T
		if err := json.Unmarshal(entry.Value, &cached); err == nil {
			return cached, nil
		}
	}

	value, err, _ := c.group.Do(key, func() (any, error) {
		loaded, err := loader()
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(loaded)
		if err != nil {
			return nil, fmt.Errorf("encode cache value: %w", err)
		}
		c.Set(key, Entry{Value: encoded})
		return loaded, nil
	})
	if err != nil {
		return zero, err
	}
	return value.(T), nil
}
