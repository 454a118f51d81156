package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/sunrise-lookup/internal/geocoder"
	"github.com/kjstillabower/sunrise-lookup/internal/lifecycle"
	"github.com/kjstillabower/sunrise-lookup/internal/models"
	"github.com/kjstillabower/sunrise-lookup/internal/observability"
	"github.com/kjstillabower/sunrise-lookup/internal/service"
	"github.com/kjstillabower/sunrise-lookup/internal/traffic"
	"github.com/kjstillabower/sunrise-lookup/internal/validation"
)

const (
	endpointForm = "form"
	endpointAPI  = "api"

	msgAddressRequired    = "Address is required"
	msgGeocoderFailed     = "Geocoding service timed out or error. Please try again."
	msgMissingCoordinates = "Missing required parameters: latitude and longitude"
	msgNotNumeric         = "Invalid coordinates. Latitude and longitude must be numeric values"
	msgOutOfRange         = "Invalid coordinates. Latitude must be between -90 and 90, longitude between -180 and 180"
	msgDateFormat         = "Invalid date format. Use YYYY-MM-DD"
)

// HealthConfig holds optional dependency checks for the health handler.
type HealthConfig struct {
	// CachePing, when set, is called to check cache reachability. Used when backend is memcached.
	CachePing func() error
	// GeocoderState, when set, reports the geocoder circuit breaker state.
	GeocoderState func() string
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	sun              *service.SunService
	limiter          *ClientLimiter
	healthConfig     *HealthConfig
	logger           *zap.Logger
	now              func() time.Time
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. limiter and healthConfig may be nil.
func NewHandler(sun *service.SunService, limiter *ClientLimiter, healthConfig *HealthConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		sun:          sun,
		limiter:      limiter,
		healthConfig: healthConfig,
		logger:       logger,
		now:          time.Now,
	}
}

// Geocode handles POST /geocode.
func (h *Handler) Geocode(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerFrom(r.Context(), h.logger)
	address, err := validation.ValidateAddress(r.PostFormValue("address"), validation.MaxAddressLen)
	if errors.Is(err, validation.ErrAddressEmpty) {
		writeError(w, http.StatusBadRequest, msgAddressRequired)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to geocode address: "+err.Error())
		return
	}

	res, err := h.sun.Geocode(r.Context(), address)
	switch {
	case err == nil:
	case errors.Is(err, geocoder.ErrNotFound):
		writeError(w, http.StatusNotFound, "Could not find coordinates for address: "+address)
		return
	case errors.Is(err, geocoder.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		logger.Error("geocoder service error", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, msgGeocoderFailed)
		return
	default:
		logger.Error("error geocoding address", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Failed to geocode address: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, models.GeocodeResponse{
		Status:    models.StatusSuccess,
		Latitude:  res.Latitude,
		Longitude: res.Longitude,
		Address:   res.Address,
	})
}

// GetSunTimes handles POST /get_sun_times.
func (h *Handler) GetSunTimes(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerFrom(r.Context(), h.logger)
	fail := func(err error) {
		logger.Error("error calculating sun times", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Failed to calculate sun times: "+err.Error())
	}

	lat, lng, err := validation.ParseCoordinates(r.PostFormValue("latitude"), r.PostFormValue("longitude"))
	if err != nil {
		fail(err)
		return
	}
	date, err := validation.ParseDate(r.PostFormValue("date"), h.now())
	if err != nil {
		fail(err)
		return
	}

	report, err := h.sun.SunTimes(r.Context(), models.Coordinates{Latitude: lat, Longitude: lng}, date)
	if err != nil {
		fail(err)
		return
	}
	observability.RecordSunTimesQuery(endpointForm, report.Timezone)

	result := report.FormResult()
	logger.Debug("sun times calculated",
		zap.String("timezone", report.Timezone),
		zap.String("utc_sunrise", result.UTC.Sunrise),
		zap.String("local_sunrise", result.Local.Sunrise))
	writeJSON(w, http.StatusOK, models.SunTimesResponse{
		Status:   models.StatusSuccess,
		Location: &result.Location,
		UTC:      &result.UTC,
		Local:    &result.Local,
	})
}

type apiEvents struct {
	Sunrise string `json:"sunrise"`
	Sunset  string `json:"sunset"`
	Noon    string `json:"noon"`
}

type apiLocation struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
}

type apiSunTimesResponse struct {
	Success  bool        `json:"success"`
	Date     string      `json:"date"`
	Location apiLocation `json:"location"`
	SunTimes struct {
		UTC   apiEvents `json:"utc"`
		Local apiEvents `json:"local"`
	} `json:"sun_times"`
}

var requiredParameters = map[string]string{
	"latitude":  "Latitude in decimal degrees",
	"longitude": "Longitude in decimal degrees",
	"date":      "Date in YYYY-MM-DD format (optional, defaults to today)",
}

// APISunTimes handles GET /api/sun_times.
func (h *Handler) APISunTimes(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerFrom(r.Context(), h.logger)
	q := r.URL.Query()

	lat, lng, err := validation.ParseCoordinates(q.Get("latitude"), q.Get("longitude"))
	switch {
	case err == nil:
	case errors.Is(err, validation.ErrCoordinatesMissing):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":               msgMissingCoordinates,
			"required_parameters": requiredParameters,
		})
		return
	case errors.Is(err, validation.ErrCoordinatesOutOfRange):
		writeAPIError(w, http.StatusBadRequest, msgOutOfRange)
		return
	default:
		writeAPIError(w, http.StatusBadRequest, msgNotNumeric)
		return
	}
	date, err := validation.ParseDate(q.Get("date"), h.now())
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, msgDateFormat)
		return
	}

	report, err := h.sun.SunTimes(r.Context(), models.Coordinates{Latitude: lat, Longitude: lng}, date)
	if err != nil {
		logger.Error("api error", zap.Error(err))
		writeAPIError(w, http.StatusInternalServerError, "An error occurred: "+err.Error())
		return
	}
	observability.RecordSunTimesQuery(endpointAPI, report.Timezone)

	loc := report.Zone()
	resp := apiSunTimesResponse{
		Success: true,
		Date:    report.Date.Format(validation.DateLayout),
		Location: apiLocation{
			Name:      report.Location.Name,
			Latitude:  lat,
			Longitude: lng,
			Timezone:  report.Timezone,
		},
	}
	resp.SunTimes.UTC = apiEvents{
		Sunrise: report.UTC.Sunrise.UTC().Format(time.RFC3339),
		Sunset:  report.UTC.Sunset.UTC().Format(time.RFC3339),
		Noon:    report.UTC.Noon.UTC().Format(time.RFC3339),
	}
	resp.SunTimes.Local = apiEvents{
		Sunrise: report.Local.Sunrise.In(loc).Format(time.RFC3339),
		Sunset:  report.Local.Sunset.In(loc).Format(time.RFC3339),
		Noon:    report.Local.Noon.In(loc).Format(time.RFC3339),
	}
	writeJSON(w, http.StatusOK, resp)
}

var apiDocs = map[string]interface{}{
	"title":       "Sunrise-Sunset API",
	"version":     "1.0.0",
	"description": "Get sunrise and sunset times for any location and date",
	"endpoints": map[string]interface{}{
		"GET /api/sun_times": map[string]interface{}{
			"description": "Get sunrise and sunset times for a location",
			"parameters": map[string]string{
				"latitude":  "Latitude in decimal degrees (required)",
				"longitude": "Longitude in decimal degrees (required)",
				"date":      "Date in YYYY-MM-DD format (optional, defaults to today)",
			},
			"example": "/api/sun_times?latitude=40.7128&longitude=-74.0060&date=2025-06-21",
		},
	},
}

// APIDocs handles GET /api/docs.
func (h *Handler) APIDocs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, apiDocs)
}

// Health reports the last minute of data traffic and flags the upstream as
// degraded when half of at least ten answered requests in five minutes failed.
const (
	trafficWindow     = time.Minute
	degradedWindow    = 5 * time.Minute
	degradedMinSample = 10
	degradedRatio     = 0.5
)

// GetHealth handles GET /health. Idle rate limit entries are swept on each call.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	status, statusCode := "healthy", http.StatusOK
	if lifecycle.IsShuttingDown() {
		status, statusCode = "shutting-down", http.StatusServiceUnavailable
	}

	h.healthStatusMu.Lock()
	if prev := h.healthStatusPrev; prev != "" && prev != status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", status))
	}
	h.healthStatusPrev = status
	h.healthStatusMu.Unlock()

	h.limiter.Sweep()
	resp := map[string]interface{}{
		"status":             status,
		"service":            "sunrise-lookup",
		"timestamp":          now.UTC().Format(time.RFC3339),
		"active_rate_limits": h.limiter.Active(),
		"uptime_seconds":     int64(lifecycle.Uptime(now).Seconds()),
		"traffic":            traffic.Snapshot(trafficWindow),
	}
	checks := map[string]string{"upstream": "healthy"}
	if traffic.Degraded(degradedWindow, degradedMinSample, degradedRatio) {
		checks["upstream"] = "degraded"
	}
	if h.healthConfig != nil {
		if h.healthConfig.CachePing != nil {
			if h.healthConfig.CachePing() == nil {
				checks["cache"] = "healthy"
			} else {
				checks["cache"] = "unhealthy"
			}
		}
		if h.healthConfig.GeocoderState != nil {
			checks["geocoder"] = h.healthConfig.GeocoderState()
		}
	}
	resp["checks"] = checks
	writeJSON(w, statusCode, resp)
}

// writeJSON writes a JSON response with the specified HTTP status code.
// Sets Content-Type header to application/json and encodes the provided value.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the {status, message} failure envelope of the form endpoints.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Status: models.StatusError, Message: message})
}

// writeAPIError writes the {error} envelope of /api/sun_times.
func writeAPIError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
