//go:build integration
// +build integration

package testhelpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/kjstillabower/sunrise-lookup/internal/cache"
	"github.com/kjstillabower/sunrise-lookup/internal/circuitbreaker"
	"github.com/kjstillabower/sunrise-lookup/internal/geocoder"
	"github.com/kjstillabower/sunrise-lookup/internal/observability"
	"github.com/kjstillabower/sunrise-lookup/internal/service"
	"github.com/kjstillabower/sunrise-lookup/internal/suncalc"
)

// IntegrationTestConfig holds configuration for integration tests.
type IntegrationTestConfig struct {
	// GeocoderURL is a real Nominatim server; empty starts an in-process stub.
	GeocoderURL   string
	CacheBackend  string // "in_memory" or "memcached"
	MemcachedAddr string
}

// GetIntegrationConfig loads integration test configuration from environment.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	t.Helper()
	memcachedAddr := os.Getenv("MEMCACHED_ADDRS")
	if memcachedAddr == "" {
		memcachedAddr = "localhost:11211"
	}
	return IntegrationTestConfig{
		GeocoderURL:   os.Getenv("NOMINATIM_URL"),
		CacheBackend:  os.Getenv("INTEGRATION_CACHE_BACKEND"),
		MemcachedAddr: memcachedAddr,
	}
}

// NominatimStub serves /search and /reverse for Paris only; any other query
// has no match.
func NominatimStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !strings.Contains(strings.ToLower(r.URL.Query().Get("q")), "paris") {
			_, _ = w.Write([]byte("[]"))
			return
		}
		_ = json.NewEncoder(w).Encode([]map[string]string{{
			"lat":          "48.8588897",
			"lon":          "2.3200410",
			"display_name": "Paris, Île-de-France, France métropolitaine, France",
		}})
	})
	mux.HandleFunc("/reverse", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"display_name": "Paris, Île-de-France, France"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// SetupIntegrationService creates a fully configured service for integration tests.
// Returns the service, its cache, and a cleanup function.
func SetupIntegrationService(t *testing.T, cfg IntegrationTestConfig) (*service.SunService, cache.Cache, func()) {
	t.Helper()
	logger, err := observability.NewLogger()
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	geocoderURL := cfg.GeocoderURL
	if geocoderURL == "" {
		geocoderURL = NominatimStub(t).URL
	}
	breaker := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: 5,
		Cooldown:         time.Second,
		Component:        "geocoder",
		IsFailure:        geocoder.IsUpstreamFailure,
	})
	nominatim, err := geocoder.NewNominatimClient(geocoderURL, "sunrise-lookup-integration", "", 5*time.Second, breaker)
	if err != nil {
		t.Fatalf("NewNominatimClient() error = %v", err)
	}

	var cacheSvc cache.Cache
	cleanup := func() {}
	if cfg.CacheBackend == "memcached" {
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddr, 500*time.Millisecond, 2)
		if err == nil && mc.Ping() == nil {
			cacheSvc = mc
			cleanup = func() { _ = mc.Close() }
			t.Logf("Using Memcached cache at %s", cfg.MemcachedAddr)
		} else {
			t.Logf("Memcached not available, using in-memory cache")
		}
	}
	if cacheSvc == nil {
		cacheSvc = cache.NewInMemoryCache(time.Minute)
	}

	finder, err := suncalc.NewDefaultFinder()
	if err != nil {
		t.Fatalf("NewDefaultFinder() error = %v", err)
	}
	calc := suncalc.NewCalculator(finder, logger)
	return service.NewSunService(nominatim, cacheSvc, 5*time.Minute, calc, 5*time.Second, logger), cacheSvc, cleanup
}
