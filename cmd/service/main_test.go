package main

import (
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/sunrise-lookup/internal/cache"
	"github.com/kjstillabower/sunrise-lookup/internal/config"
)

func TestNewGeocodeCache(t *testing.T) {
	tests := []struct {
		name          string
		cfg           config.Config
		wantMemcached bool
		wantErr       bool
	}{
		{name: "in memory", cfg: config.Config{CacheBackend: "in_memory"}},
		{name: "unknown falls back to memory", cfg: config.Config{CacheBackend: "redis"}},
		{name: "memcached", cfg: config.Config{CacheBackend: "memcached", MemcachedAddrs: "127.0.0.1:11211"}, wantMemcached: true},
		{name: "memcached without servers", cfg: config.Config{CacheBackend: "memcached", MemcachedAddrs: " , "}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, mc, err := newGeocodeCache(&tt.cfg, zap.NewNop())
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("newGeocodeCache() error = %v", err)
			}
			if (mc != nil) != tt.wantMemcached {
				t.Errorf("memcached handle = %v, want present=%v", mc, tt.wantMemcached)
			}
			if !tt.wantMemcached {
				if _, ok := c.(*cache.InMemoryCache); !ok {
					t.Errorf("cache = %T, want *cache.InMemoryCache", c)
				}
			}
		})
	}
}

func TestNewServer(t *testing.T) {
	cfg := &config.Config{ServerPort: "8081", RequestTimeout: 3 * time.Second}
	h := http.NotFoundHandler()

	srv := newServer(cfg, h)

	if srv.Addr != ":8081" {
		t.Errorf("Addr = %q, want :8081", srv.Addr)
	}
	if srv.WriteTimeout != 8*time.Second {
		t.Errorf("WriteTimeout = %v, want request timeout plus 5s", srv.WriteTimeout)
	}
	if srv.ReadTimeout != 10*time.Second {
		t.Errorf("ReadTimeout = %v, want 10s", srv.ReadTimeout)
	}
}
