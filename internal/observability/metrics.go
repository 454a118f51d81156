package observability

import (
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases, SLO breaches.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation, capacity limits.
	HTTPRequestsInFlight prometheus.Gauge

	// Nominatim call rate by kind (forward, reverse). Watch for: error vs success ratio.
	GeocoderCallsTotal *prometheus.CounterVec

	// Nominatim latency. Watch for: p95 > 2s (upstream degradation), p99 near the client timeout.
	GeocoderDuration *prometheus.HistogramVec

	// Circuit breaker state for the geocoder: 0 closed, 1 half-open, 2 open.
	CircuitBreakerState prometheus.Gauge

	// Cache hits and misses by cache type. Hit rate = hits/(hits+misses).
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Cache warming runs that had at least one failed address.
	CacheWarmingErrorsTotal prometheus.Counter

	// Sun-time computations by endpoint (form, api). Watch for: traffic volume, rate() for QPS.
	SunTimesQueriesTotal *prometheus.CounterVec

	// Sun-time computations by resolved timezone (allow-list; others go to "other").
	SunTimesQueriesByTimezoneTotal *prometheus.CounterVec

	// Rate limit denials. Watch for: abusive clients, limit set too low.
	RateLimitDeniedTotal prometheus.Counter

	// Calls made by the lookup client to the backend, by op and outcome
	// (success, domain_error, transport_error).
	BackendCallsTotal *prometheus.CounterVec

	// Lookup client round-trip latency by op.
	BackendCallDuration *prometheus.HistogramVec

	// trackedTimezones is built from config; used to resolve the timezone label.
	trackedTimezonesMu sync.RWMutex
	trackedTimezones   map[string]struct{}

	rateLimitGaugeOnce sync.Once
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	GeocoderCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocoderCallsTotal",
			Help: "Total number of Nominatim calls",
		},
		[]string{"kind", "status"},
	)
	GeocoderDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geocoderDurationSeconds",
			Help:    "Nominatim latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"kind"},
	)
	CircuitBreakerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "geocoderCircuitBreakerState",
			Help: "Geocoder circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
	)
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheHitsTotal",
			Help: "Total number of cache hits",
		},
		[]string{"cacheType"},
	)
	CacheMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheMissesTotal",
			Help: "Total number of cache misses",
		},
		[]string{"cacheType"},
	)
	CacheWarmingErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingErrorsTotal",
			Help: "Cache warming runs with at least one failed address",
		},
	)
	SunTimesQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sunTimesQueriesTotal",
			Help: "Total number of sun-time computations",
		},
		[]string{"endpoint"},
	)
	SunTimesQueriesByTimezoneTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sunTimesQueriesByTimezoneTotal",
			Help: "Sun-time computations by timezone (allow-list; others use timezone=other)",
		},
		[]string{"timezone"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)
	BackendCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backendCallsTotal",
			Help: "Total number of lookup client calls to the backend",
		},
		[]string{"op", "outcome"},
	)
	BackendCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backendCallDurationSeconds",
			Help:    "Lookup client round-trip latency in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"op"},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		GeocoderCallsTotal, GeocoderDuration, CircuitBreakerState,
		CacheHitsTotal, CacheMissesTotal, CacheWarmingErrorsTotal,
		SunTimesQueriesTotal, SunTimesQueriesByTimezoneTotal,
		RateLimitDeniedTotal,
		BackendCallsTotal, BackendCallDuration,
	)
}

// RegisterRateLimitGauge registers a gauge reporting how many client IPs
// currently hold a limiter entry. Call from main once the limiter exists.
func RegisterRateLimitGauge(active func() int) {
	rateLimitGaugeOnce.Do(func() {
		registry.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitActiveClients",
					Help: "Client IPs with a live rate limiter entry",
				},
				func() float64 { return float64(active()) },
			),
		)
	})
}

// SetTrackedTimezones sets the allow-list for timezone metrics. Other timezones increment "other".
func SetTrackedTimezones(zones []string) {
	trackedTimezonesMu.Lock()
	defer trackedTimezonesMu.Unlock()
	trackedTimezones = make(map[string]struct{}, len(zones))
	for _, z := range zones {
		trackedTimezones[normalizeTimezoneForMetrics(z)] = struct{}{}
	}
}

// RecordSunTimesQuery records one computation served by endpoint for timezone.
func RecordSunTimesQuery(endpoint, timezone string) {
	SunTimesQueriesTotal.WithLabelValues(endpoint).Inc()
	tz := normalizeTimezoneForMetrics(timezone)
	trackedTimezonesMu.RLock()
	_, ok := trackedTimezones[tz] // nil map read is safe in Go
	trackedTimezonesMu.RUnlock()
	if ok {
		SunTimesQueriesByTimezoneTotal.WithLabelValues(tz).Inc()
	} else {
		SunTimesQueriesByTimezoneTotal.WithLabelValues("other").Inc()
	}
}

func normalizeTimezoneForMetrics(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
