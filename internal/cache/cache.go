package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/kjstillabower/sunrise-lookup/internal/models"
)

// Cache stores geocoding answers. Get returns (value, true, nil) on a hit and
// (zero, false, nil) on a miss; errors are reserved for backend failures.
type Cache interface {
	Get(ctx context.Context, key string) (models.GeocodeResult, bool, error)
	Set(ctx context.Context, key string, value models.GeocodeResult, ttl time.Duration) error
}

// ForwardKey is the cache key for an address lookup. Case and runs of
// whitespace do not produce distinct keys.
func ForwardKey(address string) string {
	return "fwd:" + digest(strings.ToLower(strings.Join(strings.Fields(address), " ")))
}

// ReverseKey is the cache key for a place-name lookup at at.
func ReverseKey(at models.Coordinates) string {
	return "rev:" + digest(fmt.Sprintf("%.6f,%.6f", at.Latitude, at.Longitude))
}

// digest keeps keys short and free of the spaces and control characters
// memcached rejects.
func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:16])
}

// InMemoryCache implements Cache on go-cache. Safe for concurrent use; expired
// entries are purged by go-cache's janitor.
type InMemoryCache struct {
	c *gocache.Cache
}

// NewInMemoryCache returns a cache that purges expired entries every
// cleanupInterval (no janitor when <= 0).
func NewInMemoryCache(cleanupInterval time.Duration) *InMemoryCache {
	return &InMemoryCache{c: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

// Get implements Cache.Get.
func (c *InMemoryCache) Get(ctx context.Context, key string) (models.GeocodeResult, bool, error) {
	if ctx.Err() != nil {
		return models.GeocodeResult{}, false, ctx.Err()
	}
	v, ok := c.c.Get(key)
	if !ok {
		return models.GeocodeResult{}, false, nil
	}
	return v.(models.GeocodeResult), true, nil
}

// Set implements Cache.Set. A non-positive ttl stores the entry without expiry.
func (c *InMemoryCache) Set(ctx context.Context, key string, value models.GeocodeResult, ttl time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	c.c.Set(key, value, ttl)
	return nil
}

// Len returns the number of stored entries, expired ones included until purged.
func (c *InMemoryCache) Len() int {
	return c.c.ItemCount()
}
