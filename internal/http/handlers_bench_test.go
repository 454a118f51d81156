package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"go.uber.org/zap"
)

// BenchmarkHandler_Geocode_CacheHit benchmarks /geocode once the address is cached.
func BenchmarkHandler_Geocode_CacheHit(b *testing.B) {
	logger := zap.NewNop()
	router := NewRouter(newTestHandler(&mockGeocoder{forward: paris}, nil, logger), nil, time.Second, logger)
	form := url.Values{"address": {"Paris"}}
	router.ServeHTTP(httptest.NewRecorder(), postForm("/geocode", form))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, postForm("/geocode", form))
		if w.Code != http.StatusOK {
			b.Fatalf("status = %d", w.Code)
		}
	}
}

// BenchmarkHandler_GetSunTimes benchmarks the form endpoint; computations are memoized.
func BenchmarkHandler_GetSunTimes(b *testing.B) {
	logger := zap.NewNop()
	router := NewRouter(newTestHandler(&mockGeocoder{name: "Paris"}, nil, logger), nil, time.Second, logger)
	form := url.Values{"latitude": {"48.8566"}, "longitude": {"2.3522"}, "date": {"2024-06-21"}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, postForm("/get_sun_times", form))
		if w.Code != http.StatusOK {
			b.Fatalf("status = %d", w.Code)
		}
	}
}

// BenchmarkHandler_ValidationError benchmarks the cheapest rejection path.
func BenchmarkHandler_ValidationError(b *testing.B) {
	logger := zap.NewNop()
	router := NewRouter(newTestHandler(&mockGeocoder{}, nil, logger), nil, time.Second, logger)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		router.ServeHTTP(httptest.NewRecorder(), postForm("/geocode", url.Values{}))
	}
}

// BenchmarkHandler_RateLimited benchmarks requests rejected by the per-client limiter.
func BenchmarkHandler_RateLimited(b *testing.B) {
	logger := zap.NewNop()
	limiter := NewClientLimiter(1, 1, time.Minute)
	router := NewRouter(newTestHandler(&mockGeocoder{}, limiter, logger), limiter, time.Second, logger)
	router.ServeHTTP(httptest.NewRecorder(), postForm("/geocode", url.Values{}))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		router.ServeHTTP(httptest.NewRecorder(), postForm("/geocode", url.Values{}))
	}
}

// BenchmarkHandler_GetHealth benchmarks the health endpoint.
func BenchmarkHandler_GetHealth(b *testing.B) {
	logger := zap.NewNop()
	router := NewRouter(newTestHandler(&mockGeocoder{}, nil, logger), nil, time.Second, logger)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	}
}
