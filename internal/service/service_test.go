package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kjstillabower/sunrise-lookup/internal/cache"
	"github.com/kjstillabower/sunrise-lookup/internal/geocoder"
	"github.com/kjstillabower/sunrise-lookup/internal/models"
	"github.com/kjstillabower/sunrise-lookup/internal/suncalc"
)

type mockGeocoder struct {
	mu           sync.Mutex
	forward      models.GeocodeResult
	forwardErr   error
	name         string
	reverseErr   error
	forwardCalls int
	reverseCalls int
}

func (m *mockGeocoder) Forward(ctx context.Context, address string) (models.GeocodeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forwardCalls++
	return m.forward, m.forwardErr
}

func (m *mockGeocoder) Reverse(ctx context.Context, at models.Coordinates) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reverseCalls++
	return m.name, m.reverseErr
}

type mockCache struct {
	mu     sync.Mutex
	data   map[string]models.GeocodeResult
	getErr error
	setErr error
}

func (m *mockCache) Get(ctx context.Context, key string) (models.GeocodeResult, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return models.GeocodeResult{}, false, m.getErr
	}
	val, ok := m.data[key]
	return val, ok, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value models.GeocodeResult, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	if m.data == nil {
		m.data = make(map[string]models.GeocodeResult)
	}
	m.data[key] = value
	return nil
}

type fixedFinder string

func (f fixedFinder) GetTimezoneName(lng, lat float64) string { return string(f) }

var paris = models.GeocodeResult{
	Coordinates: models.Coordinates{Latitude: 48.8566, Longitude: 2.3522},
	Address:     "Paris, Île-de-France, France",
}

func newTestService(g *mockGeocoder, c *mockCache) *SunService {
	calc := suncalc.NewCalculator(fixedFinder("Europe/Paris"), nil)
	return NewSunService(g, c, time.Hour, calc, time.Second, nil)
}

func TestSunService_Geocode_CacheMiss_UpstreamSuccess(t *testing.T) {
	g := &mockGeocoder{forward: paris}
	c := &mockCache{}
	svc := newTestService(g, c)

	got, err := svc.Geocode(context.Background(), "  Paris ")
	if err != nil {
		t.Fatalf("Geocode() error = %v", err)
	}
	if got != paris {
		t.Errorf("Geocode() = %+v, want %+v", got, paris)
	}
	if cached, ok := c.data[cache.ForwardKey("paris")]; !ok || cached != paris {
		t.Errorf("cache entry = %+v (present %v), want %+v", cached, ok, paris)
	}
}

func TestSunService_Geocode_CacheHit(t *testing.T) {
	g := &mockGeocoder{forwardErr: errors.New("should not be called")}
	c := &mockCache{data: map[string]models.GeocodeResult{cache.ForwardKey("Paris"): paris}}
	svc := newTestService(g, c)

	got, err := svc.Geocode(context.Background(), "PARIS")
	if err != nil {
		t.Fatalf("Geocode() error = %v", err)
	}
	if got != paris {
		t.Errorf("Geocode() = %+v, want cached %+v", got, paris)
	}
	if g.forwardCalls != 0 {
		t.Errorf("forward calls = %d, want 0", g.forwardCalls)
	}
}

func TestSunService_Geocode_Blank(t *testing.T) {
	svc := newTestService(&mockGeocoder{}, &mockCache{})
	if _, err := svc.Geocode(context.Background(), "   "); !errors.Is(err, ErrAddressRequired) {
		t.Errorf("Geocode() error = %v, want ErrAddressRequired", err)
	}
}

func TestSunService_Geocode_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"not found", geocoder.ErrNotFound, geocoder.ErrNotFound},
		{"unavailable", fmt.Errorf("timeout: %w", geocoder.ErrUnavailable), geocoder.ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &mockCache{}
			svc := newTestService(&mockGeocoder{forwardErr: tt.err}, c)
			_, err := svc.Geocode(context.Background(), "Atlantis")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Geocode() error = %v, want %v", err, tt.wantErr)
			}
			if len(c.data) != 0 {
				t.Errorf("failed lookup was cached: %+v", c.data)
			}
		})
	}
}

func TestSunService_Geocode_CacheErrorsFallThrough(t *testing.T) {
	g := &mockGeocoder{forward: paris}
	svc := newTestService(g, &mockCache{getErr: errors.New("connection refused"), setErr: errors.New("connection refused")})

	got, err := svc.Geocode(context.Background(), "Paris")
	if err != nil {
		t.Fatalf("Geocode() error = %v, want upstream result despite cache errors", err)
	}
	if got != paris {
		t.Errorf("Geocode() = %+v, want %+v", got, paris)
	}
}

func TestSunService_LocationName(t *testing.T) {
	at := paris.Coordinates

	t.Run("reverse success is cached", func(t *testing.T) {
		g := &mockGeocoder{name: "Paris, France"}
		svc := newTestService(g, &mockCache{})
		for i := 0; i < 2; i++ {
			if got := svc.LocationName(context.Background(), at); got != "Paris, France" {
				t.Errorf("LocationName() = %q, want Paris, France", got)
			}
		}
		if g.reverseCalls != 1 {
			t.Errorf("reverse calls = %d, want 1", g.reverseCalls)
		}
	})

	t.Run("failure falls back to coordinates", func(t *testing.T) {
		svc := newTestService(&mockGeocoder{reverseErr: geocoder.ErrUnavailable}, &mockCache{})
		want := "Lat: 48.8566, Long: 2.3522"
		if got := svc.LocationName(context.Background(), at); got != want {
			t.Errorf("LocationName() = %q, want %q", got, want)
		}
	})

	t.Run("empty name falls back to coordinates", func(t *testing.T) {
		svc := newTestService(&mockGeocoder{}, &mockCache{})
		if got := svc.LocationName(context.Background(), models.Coordinates{Latitude: 10, Longitude: -20}); got != "Lat: 10.0, Long: -20.0" {
			t.Errorf("LocationName() = %q", got)
		}
	})
}

func TestSunService_SunTimes(t *testing.T) {
	svc := newTestService(&mockGeocoder{name: "Paris, France"}, &mockCache{})
	date := time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC)

	report, err := svc.SunTimes(context.Background(), paris.Coordinates, date)
	if err != nil {
		t.Fatalf("SunTimes() error = %v", err)
	}
	if report.Location.Name != "Paris, France" {
		t.Errorf("Location.Name = %q", report.Location.Name)
	}
	if report.Timezone != "Europe/Paris" {
		t.Errorf("Timezone = %q, want Europe/Paris", report.Timezone)
	}

	form := report.FormResult()
	if form.UTC.Timezone != "UTC" || form.Local.Timezone != "Europe/Paris" {
		t.Errorf("form timezones = %q/%q", form.UTC.Timezone, form.Local.Timezone)
	}
	if form.UTC.Date != "2024-06-21" || form.Local.Date != "2024-06-21" {
		t.Errorf("form dates = %q/%q, want 2024-06-21", form.UTC.Date, form.Local.Date)
	}
	// Paris is UTC+2 in June.
	if form.UTC.Sunrise[:2] != "03" || form.Local.Sunrise[:2] != "05" {
		t.Errorf("sunrise utc/local = %q/%q, want 03:xx/05:xx", form.UTC.Sunrise, form.Local.Sunrise)
	}
}

func TestSunService_SunTimes_OutOfRange(t *testing.T) {
	svc := newTestService(&mockGeocoder{}, &mockCache{})
	_, err := svc.SunTimes(context.Background(), models.Coordinates{Latitude: 91}, time.Now())
	if err == nil {
		t.Fatal("SunTimes() error = nil, want out of range error")
	}
}

func TestCoordinateName(t *testing.T) {
	tests := []struct {
		at   models.Coordinates
		want string
	}{
		{models.Coordinates{Latitude: 40.7128, Longitude: -74.006}, "Lat: 40.7128, Long: -74.006"},
		{models.Coordinates{Latitude: 0, Longitude: 0}, "Lat: 0.0, Long: 0.0"},
		{models.Coordinates{Latitude: -33.5, Longitude: 151}, "Lat: -33.5, Long: 151.0"},
	}
	for _, tt := range tests {
		if got := CoordinateName(tt.at); got != tt.want {
			t.Errorf("CoordinateName(%+v) = %q, want %q", tt.at, got, tt.want)
		}
	}
}
