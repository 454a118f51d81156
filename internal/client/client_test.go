package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kjstillabower/sunrise-lookup/internal/models"
)

func TestNewHTTPBackend_InvalidURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"empty", "", true},
		{"no scheme", "localhost:5000", true},
		{"ftp", "ftp://example.com", true},
		{"http", "http://localhost:5000", false},
		{"https with trailing slash", "https://sun.example.com/", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewHTTPBackend(tt.url, time.Second)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NewHTTPBackend(%q) expected error, got nil", tt.url)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewHTTPBackend(%q) unexpected error: %v", tt.url, err)
			}
			if c.baseURL[len(c.baseURL)-1] == '/' {
				t.Errorf("baseURL = %q, want no trailing slash", c.baseURL)
			}
		})
	}
}

func TestHTTPBackend_Geocode_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/geocode" {
			t.Errorf("path = %s, want /geocode", r.URL.Path)
		}
		if got := r.FormValue("address"); got != "Paris, France" {
			t.Errorf("address = %q, want %q", got, "Paris, France")
		}
		if r.Header.Get("X-Correlation-ID") == "" {
			t.Error("X-Correlation-ID header missing")
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    "success",
			"latitude":  48.8566,
			"longitude": 2.3522,
			"address":   "Paris, France, Europe",
		})
	}))
	defer server.Close()

	c, err := NewHTTPBackend(server.URL, 2*time.Second)
	if err != nil {
		t.Fatalf("NewHTTPBackend() error = %v", err)
	}
	got, err := c.Geocode(context.Background(), "Paris, France")
	if err != nil {
		t.Fatalf("Geocode() error = %v", err)
	}
	if got.Latitude != 48.8566 || got.Longitude != 2.3522 {
		t.Errorf("coordinates = %+v, want 48.8566, 2.3522", got.Coordinates)
	}
	if got.Address != "Paris, France, Europe" {
		t.Errorf("Address = %q", got.Address)
	}
}

func TestHTTPBackend_GetSunTimes_SendsExactValues(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/get_sun_times" {
			t.Errorf("path = %s, want /get_sun_times", r.URL.Path)
		}
		if got := r.FormValue("latitude"); got != "48.8566" {
			t.Errorf("latitude = %q, want 48.8566", got)
		}
		if got := r.FormValue("longitude"); got != "2.3522" {
			t.Errorf("longitude = %q, want 2.3522", got)
		}
		if got := r.FormValue("date"); got != "2024-06-21" {
			t.Errorf("date = %q, want 2024-06-21", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":   "success",
			"location": map[string]interface{}{"name": "Paris", "latitude": 48.8566, "longitude": 2.3522},
			"utc":      map[string]string{"sunrise": "03:47:00", "sunset": "19:58:00", "timezone": "UTC"},
			"local":    map[string]string{"sunrise": "05:47:00", "sunset": "21:58:00", "timezone": "Europe/Paris"},
		})
	}))
	defer server.Close()

	c, _ := NewHTTPBackend(server.URL, 2*time.Second)
	got, err := c.GetSunTimes(context.Background(), models.Coordinates{Latitude: 48.8566, Longitude: 2.3522}, "2024-06-21")
	if err != nil {
		t.Fatalf("GetSunTimes() error = %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("requests = %d, want exactly 1", n)
	}
	if got.UTC.Sunrise != "03:47:00" || got.Local.Sunrise != "05:47:00" {
		t.Errorf("sunrise utc/local = %q/%q", got.UTC.Sunrise, got.Local.Sunrise)
	}
	if got.Local.Timezone != "Europe/Paris" {
		t.Errorf("Local.Timezone = %q", got.Local.Timezone)
	}
	if got.Location.Name != "Paris" {
		t.Errorf("Location.Name = %q", got.Location.Name)
	}
}

func TestHTTPBackend_ErrorHandling(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantDomain  bool
		wantMessage string
	}{
		{
			name:        "domain error with message",
			status:      http.StatusBadRequest,
			body:        `{"status":"error","message":"Date out of range"}`,
			wantDomain:  true,
			wantMessage: "Date out of range",
		},
		{
			name:        "domain error without message",
			status:      http.StatusOK,
			body:        `{"status":"failed"}`,
			wantDomain:  true,
			wantMessage: "fallback",
		},
		{
			name:        "rate limited",
			status:      http.StatusTooManyRequests,
			body:        `{"status":"error","message":"Rate limit exceeded. Please try again later."}`,
			wantDomain:  true,
			wantMessage: "Rate limit exceeded. Please try again later.",
		},
		{
			name:        "html error page",
			status:      http.StatusBadGateway,
			body:        `<html>bad gateway</html>`,
			wantMessage: "fallback",
		},
		{
			name:        "success without payload",
			status:      http.StatusOK,
			body:        `{"status":"success"}`,
			wantMessage: "fallback",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c, _ := NewHTTPBackend(server.URL, 2*time.Second)
			_, err := c.GetSunTimes(context.Background(), models.Coordinates{Latitude: 1, Longitude: 2}, "2024-06-21")
			if err == nil {
				t.Fatal("GetSunTimes() expected error, got nil")
			}
			if got := errors.Is(err, ErrDomain); got != tt.wantDomain {
				t.Errorf("errors.Is(err, ErrDomain) = %v, want %v (err = %v)", got, tt.wantDomain, err)
			}
			if !tt.wantDomain && !errors.Is(err, ErrTransport) {
				t.Errorf("expected ErrTransport, got %v", err)
			}
			if got := Message(err, "fallback"); got != tt.wantMessage {
				t.Errorf("Message() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestHTTPBackend_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c, _ := NewHTTPBackend(url, time.Second)
	_, err := c.Geocode(context.Background(), "Paris")
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Geocode() error = %v, want ErrTransport", err)
	}
	if CategorizeError(err) != ErrorCategoryTransport {
		t.Errorf("CategorizeError() = %v, want transport", CategorizeError(err))
	}
}

func TestHTTPBackend_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	c, _ := NewHTTPBackend(server.URL, 50*time.Millisecond)
	_, err := c.Geocode(context.Background(), "Paris")
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Geocode() error = %v, want ErrTransport", err)
	}
}
