package marketdata

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"time"
)

// cacheEntry is one cached scenario response, adapted from the teacher's
// data.CacheEntry (internal/data/cache.go).
type cacheEntry struct {
	response  *ScenarioResponse
	expiresAt time.Time
}

// Cache is an in-memory, dev-only cache for scenario responses — a direct
// port of the teacher's ResponseCache, including its production guard rails
// (disabled unless ENABLE_MARKETDATA_CACHE=true and API_ENV != production).
type Cache struct {
	mu    sync.RWMutex
	store map[string]*cacheEntry
	ttl   time.Duration
}

var (
	globalCache *Cache
	cacheOnce   sync.Once
)

// GetCache returns the process-wide cache if enabled, or nil otherwise.
func GetCache() *Cache {
	if os.Getenv("ENABLE_MARKETDATA_CACHE") != "true" {
		return nil
	}
	if os.Getenv("API_ENV") == "production" {
		return nil
	}

	cacheOnce.Do(func() {
		ttl := time.Hour
		if s := os.Getenv("MARKETDATA_CACHE_TTL"); s != "" {
			if parsed, err := time.ParseDuration(s); err == nil {
				ttl = parsed
			}
		}
		globalCache = &Cache{store: make(map[string]*cacheEntry), ttl: ttl}
		go globalCache.cleanup()
	})
	return globalCache
}

func (c *Cache) Get(key string) (*ScenarioResponse, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.store[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.response, true
}

func (c *Cache) Set(key string, resp *ScenarioResponse) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = &cacheEntry{response: resp, expiresAt: time.Now().Add(c.ttl)}
}

func (c *Cache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		c.mu.Lock()
		now := time.Now()
		for k, e := range c.store {
			if now.After(e.expiresAt) {
				delete(c.store, k)
			}
		}
		c.mu.Unlock()
	}
}

// GenerateCacheKey derives a deterministic key from query parameters,
// adapted from the teacher's data.GenerateCacheKey.
func GenerateCacheKey(p QueryParams) string {
	raw := fmt.Sprintf("%s:%s:%s:%s", p.Scenario, p.Node, p.StartTime.Format("2006-01-02"), p.EndTime.Format("2006-01-02"))
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
