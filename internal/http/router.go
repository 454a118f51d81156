package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/sunrise-lookup/internal/observability"
)

// NewRouter wires every backend route. The data endpoints are rate limited per
// client and bounded by requestTimeout; /health, /metrics and /api/docs are not.
func NewRouter(h *Handler, limiter *ClientLimiter, requestTimeout time.Duration, logger *zap.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)
	router.HandleFunc("/api/docs", h.APIDocs).Methods(http.MethodGet)

	data := router.NewRoute().Subrouter()
	data.Use(TrafficMiddleware)
	data.Use(RateLimitMiddleware(limiter))
	data.Use(TimeoutMiddleware(requestTimeout))
	data.HandleFunc("/geocode", h.Geocode).Methods(http.MethodPost)
	data.HandleFunc("/get_sun_times", h.GetSunTimes).Methods(http.MethodPost)
	data.HandleFunc("/api/sun_times", h.APISunTimes).Methods(http.MethodGet)
	return router
}
