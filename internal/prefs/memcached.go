package prefs

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

const keyPrefix = "prefs:"

// MemcachedStore keeps preferences in memcached under a per-profile namespace,
// so several lookup clients on one host can share a cache.
type MemcachedStore struct {
	client  *memcache.Client
	profile string
}

// NewMemcachedStore creates a MemcachedStore. addrs is comma-separated.
func NewMemcachedStore(addrs, profile string, timeout time.Duration) *MemcachedStore {
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{"localhost:11211"}
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if profile == "" {
		profile = "default"
	}
	return &MemcachedStore{client: client, profile: profile}
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

func (s *MemcachedStore) key(k string) string {
	return keyPrefix + s.profile + ":" + k
}

func (s *MemcachedStore) Get(ctx context.Context, key string) (string, bool, error) {
	if ctx.Err() != nil {
		return "", false, ctx.Err()
	}
	item, err := s.client.Get(s.key(key))
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(item.Value), true, nil
}

// Set stores value without expiry.
func (s *MemcachedStore) Set(ctx context.Context, key, value string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return s.client.Set(&memcache.Item{Key: s.key(key), Value: []byte(value)})
}

// Ping checks if memcached is reachable.
func (s *MemcachedStore) Ping() error {
	return s.client.Ping()
}

// Close releases idle connections.
func (s *MemcachedStore) Close() error {
	return s.client.Close()
}
