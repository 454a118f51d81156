package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kjstillabower/sunrise-lookup/internal/cache"
	"github.com/kjstillabower/sunrise-lookup/internal/geocoder"
	"github.com/kjstillabower/sunrise-lookup/internal/lifecycle"
	"github.com/kjstillabower/sunrise-lookup/internal/models"
	"github.com/kjstillabower/sunrise-lookup/internal/service"
	"github.com/kjstillabower/sunrise-lookup/internal/suncalc"
)

type mockGeocoder struct {
	mu         sync.Mutex
	forward    models.GeocodeResult
	forwardErr error
	name       string
	reverseErr error
	block      chan struct{}
	calls      int
}

func (m *mockGeocoder) Forward(ctx context.Context, address string) (models.GeocodeResult, error) {
	m.mu.Lock()
	m.calls++
	block := m.block
	m.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return models.GeocodeResult{}, ctx.Err()
		}
	}
	return m.forward, m.forwardErr
}

func (m *mockGeocoder) Reverse(ctx context.Context, at models.Coordinates) (string, error) {
	return m.name, m.reverseErr
}

type fixedFinder string

func (f fixedFinder) GetTimezoneName(lng, lat float64) string { return string(f) }

var (
	paris = models.GeocodeResult{
		Coordinates: models.Coordinates{Latitude: 48.8566, Longitude: 2.3522},
		Address:     "Paris, Île-de-France, France",
	}
	midsummer = time.Date(2024, 6, 21, 15, 0, 0, 0, time.UTC)
)

func newTestHandler(g *mockGeocoder, limiter *ClientLimiter, logger *zap.Logger) *Handler {
	calc := suncalc.NewCalculator(fixedFinder("Europe/Paris"), logger)
	svc := service.NewSunService(g, cache.NewInMemoryCache(0), time.Hour, calc, time.Second, logger)
	h := NewHandler(svc, limiter, nil, logger)
	h.now = func() time.Time { return midsummer }
	return h
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHandler_Geocode_Success(t *testing.T) {
	handler := newTestHandler(&mockGeocoder{forward: paris}, nil, zap.NewNop())

	w := httptest.NewRecorder()
	handler.Geocode(w, postForm("/geocode", url.Values{"address": {"Paris"}}))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp models.GeocodeResponse
	decode(t, w, &resp)
	if resp.Status != "success" || resp.Latitude != 48.8566 || resp.Longitude != 2.3522 || resp.Address != paris.Address {
		t.Errorf("response = %+v", resp)
	}
}

func TestHandler_Geocode_Errors(t *testing.T) {
	tests := []struct {
		name       string
		address    string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"missing address", "", nil, http.StatusBadRequest, "Address is required"},
		{"blank address", "   ", nil, http.StatusBadRequest, "Address is required"},
		{"too long", strings.Repeat("a", 300), nil, http.StatusBadRequest, "Failed to geocode address: address too long"},
		{"not found", "Atlantis", fmt.Errorf("%w: %q", geocoder.ErrNotFound, "Atlantis"), http.StatusNotFound, "Could not find coordinates for address: Atlantis"},
		{"upstream unavailable", "Paris", fmt.Errorf("%w: HTTP 502", geocoder.ErrUnavailable), http.StatusServiceUnavailable, "Geocoding service timed out or error. Please try again."},
		{"other failure", "Paris", errors.New("boom"), http.StatusBadRequest, "Failed to geocode address: geocode \"Paris\": boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestHandler(&mockGeocoder{forwardErr: tt.err}, nil, zap.NewNop())
			w := httptest.NewRecorder()
			handler.Geocode(w, postForm("/geocode", url.Values{"address": {tt.address}}))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var resp models.ErrorResponse
			decode(t, w, &resp)
			if resp.Status != "error" {
				t.Errorf("status field = %q, want error", resp.Status)
			}
			if resp.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", resp.Message, tt.wantMsg)
			}
		})
	}
}

func TestHandler_GetSunTimes_Success(t *testing.T) {
	handler := newTestHandler(&mockGeocoder{name: "Paris, France"}, nil, zap.NewNop())

	w := httptest.NewRecorder()
	handler.GetSunTimes(w, postForm("/get_sun_times", url.Values{
		"latitude":  {"48.8566"},
		"longitude": {"2.3522"},
		"date":      {"2024-06-21"},
	}))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}
	var resp models.SunTimesResponse
	decode(t, w, &resp)
	if resp.Status != "success" || resp.Location == nil || resp.UTC == nil || resp.Local == nil {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Location.Name != "Paris, France" || resp.Location.Latitude != 48.8566 {
		t.Errorf("location = %+v", *resp.Location)
	}
	if resp.UTC.Timezone != "UTC" || resp.Local.Timezone != "Europe/Paris" {
		t.Errorf("timezones = %q/%q", resp.UTC.Timezone, resp.Local.Timezone)
	}
	if resp.UTC.Date != "2024-06-21" || resp.Local.Date != "2024-06-21" {
		t.Errorf("dates = %q/%q", resp.UTC.Date, resp.Local.Date)
	}
	if !strings.HasPrefix(resp.UTC.Sunrise, "03:4") || !strings.HasPrefix(resp.Local.Sunrise, "05:4") {
		t.Errorf("sunrise utc/local = %q/%q", resp.UTC.Sunrise, resp.Local.Sunrise)
	}
	if len(resp.UTC.Sunset) != len("15:04:05") {
		t.Errorf("sunset %q not in HH:MM:SS", resp.UTC.Sunset)
	}
}

func TestHandler_GetSunTimes_DefaultsDateToToday(t *testing.T) {
	handler := newTestHandler(&mockGeocoder{name: "Paris"}, nil, zap.NewNop())

	w := httptest.NewRecorder()
	handler.GetSunTimes(w, postForm("/get_sun_times", url.Values{"latitude": {"48.8566"}, "longitude": {"2.3522"}}))

	var resp models.SunTimesResponse
	decode(t, w, &resp)
	if resp.UTC == nil || resp.UTC.Date != "2024-06-21" {
		t.Errorf("utc = %+v, want date 2024-06-21", resp.UTC)
	}
}

func TestHandler_GetSunTimes_ReverseFailureUsesCoordinates(t *testing.T) {
	handler := newTestHandler(&mockGeocoder{reverseErr: geocoder.ErrUnavailable}, nil, zap.NewNop())

	w := httptest.NewRecorder()
	handler.GetSunTimes(w, postForm("/get_sun_times", url.Values{"latitude": {"48.8566"}, "longitude": {"2.3522"}, "date": {"2024-06-21"}}))

	var resp models.SunTimesResponse
	decode(t, w, &resp)
	if resp.Location == nil || resp.Location.Name != "Lat: 48.8566, Long: 2.3522" {
		t.Errorf("location = %+v", resp.Location)
	}
}

func TestHandler_GetSunTimes_Errors(t *testing.T) {
	tests := []struct {
		name    string
		form    url.Values
		wantMsg string
	}{
		{"missing latitude", url.Values{"longitude": {"2"}}, "latitude and longitude are required"},
		{"not numeric", url.Values{"latitude": {"north"}, "longitude": {"2"}}, "must be numeric"},
		{"out of range", url.Values{"latitude": {"95"}, "longitude": {"2"}}, "between -90 and 90"},
		{"bad date", url.Values{"latitude": {"48"}, "longitude": {"2"}, "date": {"21/06/2024"}}, "invalid date format"},
		{"polar night", url.Values{"latitude": {"89"}, "longitude": {"0"}, "date": {"2024-12-21"}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestHandler(&mockGeocoder{}, nil, zap.NewNop())
			w := httptest.NewRecorder()
			handler.GetSunTimes(w, postForm("/get_sun_times", tt.form))

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			var resp models.ErrorResponse
			decode(t, w, &resp)
			if resp.Status != "error" || !strings.HasPrefix(resp.Message, "Failed to calculate sun times: ") {
				t.Errorf("response = %+v", resp)
			}
			if !strings.Contains(resp.Message, tt.wantMsg) {
				t.Errorf("message = %q, want it to contain %q", resp.Message, tt.wantMsg)
			}
		})
	}
}

func TestHandler_APISunTimes_Success(t *testing.T) {
	handler := newTestHandler(&mockGeocoder{name: "Paris, France"}, nil, zap.NewNop())

	w := httptest.NewRecorder()
	handler.APISunTimes(w, httptest.NewRequest(http.MethodGet, "/api/sun_times?latitude=48.8566&longitude=2.3522&date=2024-06-21", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}
	var resp apiSunTimesResponse
	decode(t, w, &resp)
	if !resp.Success || resp.Date != "2024-06-21" {
		t.Errorf("success/date = %v/%q", resp.Success, resp.Date)
	}
	if resp.Location.Timezone != "Europe/Paris" || resp.Location.Name != "Paris, France" {
		t.Errorf("location = %+v", resp.Location)
	}
	if !strings.HasPrefix(resp.SunTimes.UTC.Sunrise, "2024-06-21T03:4") || !strings.HasSuffix(resp.SunTimes.UTC.Sunrise, "Z") {
		t.Errorf("utc sunrise = %q", resp.SunTimes.UTC.Sunrise)
	}
	if !strings.HasPrefix(resp.SunTimes.Local.Sunrise, "2024-06-21T05:4") || !strings.HasSuffix(resp.SunTimes.Local.Sunrise, "+02:00") {
		t.Errorf("local sunrise = %q", resp.SunTimes.Local.Sunrise)
	}
	if !strings.HasPrefix(resp.SunTimes.UTC.Noon, "2024-06-21T11:") {
		t.Errorf("utc noon = %q", resp.SunTimes.UTC.Noon)
	}
}

func TestHandler_APISunTimes_Errors(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantErr    string
	}{
		{"missing", "latitude=48", http.StatusBadRequest, "Missing required parameters: latitude and longitude"},
		{"not numeric", "latitude=abc&longitude=2", http.StatusBadRequest, "Invalid coordinates. Latitude and longitude must be numeric values"},
		{"out of range", "latitude=48&longitude=200", http.StatusBadRequest, "Invalid coordinates. Latitude must be between -90 and 90, longitude between -180 and 180"},
		{"bad date", "latitude=48&longitude=2&date=2024-13-01", http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD"},
		{"polar night", "latitude=89&longitude=0&date=2024-12-21", http.StatusInternalServerError, "An error occurred: "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestHandler(&mockGeocoder{}, nil, zap.NewNop())
			w := httptest.NewRecorder()
			handler.APISunTimes(w, httptest.NewRequest(http.MethodGet, "/api/sun_times?"+tt.query, nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var resp map[string]interface{}
			decode(t, w, &resp)
			msg, _ := resp["error"].(string)
			if !strings.HasPrefix(msg, tt.wantErr) {
				t.Errorf("error = %q, want prefix %q", msg, tt.wantErr)
			}
		})
	}
}

func TestHandler_APISunTimes_MissingListsParameters(t *testing.T) {
	handler := newTestHandler(&mockGeocoder{}, nil, zap.NewNop())
	w := httptest.NewRecorder()
	handler.APISunTimes(w, httptest.NewRequest(http.MethodGet, "/api/sun_times", nil))

	var resp struct {
		RequiredParameters map[string]string `json:"required_parameters"`
	}
	decode(t, w, &resp)
	for _, p := range []string{"latitude", "longitude", "date"} {
		if resp.RequiredParameters[p] == "" {
			t.Errorf("required_parameters[%q] missing", p)
		}
	}
}

func TestHandler_APIDocs(t *testing.T) {
	handler := newTestHandler(&mockGeocoder{}, nil, zap.NewNop())
	w := httptest.NewRecorder()
	handler.APIDocs(w, httptest.NewRequest(http.MethodGet, "/api/docs", nil))

	var resp struct {
		Title     string                     `json:"title"`
		Version   string                     `json:"version"`
		Endpoints map[string]json.RawMessage `json:"endpoints"`
	}
	decode(t, w, &resp)
	if resp.Title != "Sunrise-Sunset API" || resp.Version != "1.0.0" {
		t.Errorf("title/version = %q/%q", resp.Title, resp.Version)
	}
	if _, ok := resp.Endpoints["GET /api/sun_times"]; !ok {
		t.Errorf("endpoints = %v, want GET /api/sun_times", resp.Endpoints)
	}
}

func TestHandler_GetHealth(t *testing.T) {
	limiter := NewClientLimiter(60, 60, time.Minute)
	limiter.Allow("192.0.2.1")
	limiter.Allow("192.0.2.2")
	handler := newTestHandler(&mockGeocoder{}, limiter, zap.NewNop())
	handler.healthConfig = &HealthConfig{
		CachePing:     func() error { return errors.New("dial tcp: connection refused") },
		GeocoderState: func() string { return "closed" },
	}

	w := httptest.NewRecorder()
	handler.GetHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Status           string            `json:"status"`
		Timestamp        string            `json:"timestamp"`
		ActiveRateLimits int               `json:"active_rate_limits"`
		Checks           map[string]string `json:"checks"`
	}
	decode(t, w, &resp)
	if resp.Status != "healthy" {
		t.Errorf("status = %q, want healthy", resp.Status)
	}
	if resp.Timestamp != "2024-06-21T15:00:00Z" {
		t.Errorf("timestamp = %q", resp.Timestamp)
	}
	if resp.ActiveRateLimits != 2 {
		t.Errorf("active_rate_limits = %d, want 2", resp.ActiveRateLimits)
	}
	if resp.Checks["cache"] != "unhealthy" || resp.Checks["geocoder"] != "closed" {
		t.Errorf("checks = %v", resp.Checks)
	}
}

func TestHandler_GetHealth_SweepsIdleClients(t *testing.T) {
	limiter := NewClientLimiter(60, 60, time.Minute)
	now := midsummer
	limiter.now = func() time.Time { return now }
	limiter.Allow("192.0.2.1")
	now = now.Add(2 * time.Minute)
	limiter.Allow("192.0.2.2")

	handler := newTestHandler(&mockGeocoder{}, limiter, zap.NewNop())
	w := httptest.NewRecorder()
	handler.GetHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp struct {
		ActiveRateLimits int `json:"active_rate_limits"`
	}
	decode(t, w, &resp)
	if resp.ActiveRateLimits != 1 {
		t.Errorf("active_rate_limits = %d, want 1 after sweep", resp.ActiveRateLimits)
	}
}

func TestHandler_GetHealth_ShuttingDownLogsTransition(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	handler := newTestHandler(&mockGeocoder{}, nil, zap.New(core))

	handler.GetHealth(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	lifecycle.SetShuttingDown(true)
	defer lifecycle.SetShuttingDown(false)

	w := httptest.NewRecorder()
	handler.GetHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
	var resp struct {
		Status string `json:"status"`
	}
	decode(t, w, &resp)
	if resp.Status != "shutting-down" {
		t.Errorf("status = %q, want shutting-down", resp.Status)
	}

	entries := logs.FilterMessage("health status transition").All()
	if len(entries) != 1 {
		t.Fatalf("transition logs = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["previous_status"] != "healthy" || fields["current_status"] != "shutting-down" {
		t.Errorf("transition fields = %v", fields)
	}
}
