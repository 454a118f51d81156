package cache

import (
	"context"
	"testing"
	"time"

	"github.com/kjstillabower/sunrise-lookup/internal/models"
)

var paris = models.GeocodeResult{
	Coordinates: models.Coordinates{Latitude: 48.8566, Longitude: 2.3522},
	Address:     "Paris, Île-de-France, France",
}

// TestInMemoryCache_GetSet verifies that Set stores values and Get retrieves
// them correctly with the expected data.
func TestInMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache(time.Minute)

	if err := c.Set(ctx, ForwardKey("Paris"), paris, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok, err := c.Get(ctx, ForwardKey("Paris"))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if got != paris {
		t.Errorf("Get() = %+v, want %+v", got, paris)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

// TestInMemoryCache_Get_Miss verifies that Get returns ok=false when
// the requested key does not exist in cache.
func TestInMemoryCache_Get_Miss(t *testing.T) {
	c := NewInMemoryCache(0)

	_, ok, err := c.Get(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() ok = true, want false for miss")
	}
}

// TestInMemoryCache_Get_Expired verifies that Get returns ok=false for expired entries.
func TestInMemoryCache_Get_Expired(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache(0)

	if err := c.Set(ctx, "k", paris, time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("Get() ok = true, want false for expired entry")
	}
}

// TestInMemoryCache_CancelledContext verifies that a cancelled context short-circuits both calls.
func TestInMemoryCache_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewInMemoryCache(0)

	if err := c.Set(ctx, "k", paris, time.Minute); err == nil {
		t.Error("Set() error = nil, want context error")
	}
	if _, _, err := c.Get(ctx, "k"); err == nil {
		t.Error("Get() error = nil, want context error")
	}
}

func TestForwardKey_Normalizes(t *testing.T) {
	a := ForwardKey("  Paris,   France ")
	b := ForwardKey("paris, FRANCE")
	if a != b {
		t.Errorf("ForwardKey differs for equivalent addresses: %q vs %q", a, b)
	}
	if a == ForwardKey("Paris, Texas") {
		t.Error("ForwardKey collides for different addresses")
	}
}

func TestReverseKey(t *testing.T) {
	a := ReverseKey(models.Coordinates{Latitude: 48.8566, Longitude: 2.3522})
	b := ReverseKey(models.Coordinates{Latitude: 48.8566000001, Longitude: 2.3522})
	if a != b {
		t.Error("ReverseKey should ignore differences beyond six decimals")
	}
	if a == ForwardKey("48.856600,2.352200") {
		t.Error("reverse and forward keys share a namespace")
	}
	if len(a) > 250 {
		t.Errorf("key length %d exceeds memcached limit", len(a))
	}
}

func TestExpiration(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want int32
	}{
		{0, 1},
		{-time.Second, 1},
		{500 * time.Millisecond, 1},
		{time.Hour, 3600},
		{31 * 24 * time.Hour, maxRelativeExp},
	}
	for _, tt := range tests {
		if got := expiration(tt.ttl); got != tt.want {
			t.Errorf("expiration(%v) = %d, want %d", tt.ttl, got, tt.want)
		}
	}
}

func TestNewMemcachedCache_NoServers(t *testing.T) {
	if _, err := NewMemcachedCache(" , ", 0, 0); err == nil {
		t.Error("NewMemcachedCache() error = nil, want error for empty server list")
	}
	c, err := NewMemcachedCache("a:11211, b:11211", 100*time.Millisecond, 4)
	if err != nil {
		t.Fatalf("NewMemcachedCache() error = %v", err)
	}
	if c.client.Timeout != 100*time.Millisecond || c.client.MaxIdleConns != 4 {
		t.Errorf("client settings = %v/%d", c.client.Timeout, c.client.MaxIdleConns)
	}
}
