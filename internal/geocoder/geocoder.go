// Package geocoder resolves addresses to coordinates and coordinates to place
// names through a Nominatim-compatible HTTP API.
package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kjstillabower/sunrise-lookup/internal/circuitbreaker"
	"github.com/kjstillabower/sunrise-lookup/internal/models"
	"github.com/kjstillabower/sunrise-lookup/internal/observability"
)

// Geocoder is the upstream lookup used by the service layer.
type Geocoder interface {
	Forward(ctx context.Context, address string) (models.GeocodeResult, error)
	Reverse(ctx context.Context, at models.Coordinates) (string, error)
}

var (
	// ErrNotFound means the upstream answered but had no match.
	ErrNotFound = errors.New("no geocoding match")
	// ErrUnavailable covers timeouts, transport failures, non-2xx answers and
	// an open circuit.
	ErrUnavailable = errors.New("geocoding service unavailable")
)

const (
	kindForward = "forward"
	kindReverse = "reverse"

	maxBodyBytes = 1 << 20
)

// NominatimClient calls /search and /reverse on a Nominatim server. Each call
// is a single attempt guarded by the circuit breaker.
type NominatimClient struct {
	baseURL   string
	userAgent string
	email     string
	timeout   time.Duration
	client    *http.Client
	breaker   *circuitbreaker.CircuitBreaker
}

// NewNominatimClient validates baseURL and builds a client. breaker may be nil.
func NewNominatimClient(baseURL, userAgent, email string, timeout time.Duration, breaker *circuitbreaker.CircuitBreaker) (*NominatimClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("geocoder: invalid base URL %q", baseURL)
	}
	if strings.TrimSpace(userAgent) == "" {
		return nil, fmt.Errorf("geocoder: user agent is required")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NominatimClient{
		baseURL:   u.String(),
		userAgent: userAgent,
		email:     email,
		timeout:   timeout,
		client:    &http.Client{Timeout: timeout},
		breaker:   breaker,
	}, nil
}

// IsUpstreamFailure reports whether err should count against the circuit
// breaker. A miss is a healthy answer.
func IsUpstreamFailure(err error) bool {
	return err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, context.Canceled)
}

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

type reverseResult struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// Forward returns the best match for address.
func (c *NominatimClient) Forward(ctx context.Context, address string) (models.GeocodeResult, error) {
	params := url.Values{}
	params.Set("q", address)
	params.Set("format", "jsonv2")
	params.Set("limit", "1")

	var results []searchResult
	if err := c.call(ctx, kindForward, "/search", params, &results); err != nil {
		return models.GeocodeResult{}, err
	}
	if len(results) == 0 {
		return models.GeocodeResult{}, fmt.Errorf("%w: %q", ErrNotFound, address)
	}

	lat, errLat := strconv.ParseFloat(results[0].Lat, 64)
	lng, errLng := strconv.ParseFloat(results[0].Lon, 64)
	if errLat != nil || errLng != nil {
		return models.GeocodeResult{}, fmt.Errorf("%w: parse coordinates %q,%q", ErrUnavailable, results[0].Lat, results[0].Lon)
	}
	return models.GeocodeResult{
		Coordinates: models.Coordinates{Latitude: lat, Longitude: lng},
		Address:     results[0].DisplayName,
	}, nil
}

// Reverse returns the display name of the place at at.
func (c *NominatimClient) Reverse(ctx context.Context, at models.Coordinates) (string, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(at.Latitude, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(at.Longitude, 'f', -1, 64))
	params.Set("format", "jsonv2")

	var result reverseResult
	if err := c.call(ctx, kindReverse, "/reverse", params, &result); err != nil {
		return "", err
	}
	if result.Error != "" || result.DisplayName == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, at)
	}
	return result.DisplayName, nil
}

func (c *NominatimClient) call(ctx context.Context, kind, path string, params url.Values, out interface{}) error {
	do := func(ctx context.Context) error {
		return c.do(ctx, kind, path, params, out)
	}
	if c.breaker == nil {
		return do(ctx)
	}
	err := c.breaker.Call(ctx, do)
	if errors.Is(err, circuitbreaker.ErrOpen) {
		observability.GeocoderCallsTotal.WithLabelValues(kind, "circuit_open").Inc()
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

func (c *NominatimClient) do(ctx context.Context, kind, path string, params url.Values, out interface{}) error {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.email != "" {
		params.Set("email", c.email)
	}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		observability.GeocoderCallsTotal.WithLabelValues(kind, "error").Inc()
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if corrID := observability.CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	observability.GeocoderDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		observability.GeocoderCallsTotal.WithLabelValues(kind, "error").Inc()
		if errors.Is(ctx.Err(), context.Canceled) {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s request: %w", ErrUnavailable, kind, err)
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.GeocoderCallsTotal.WithLabelValues(kind, status).Inc()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return fmt.Errorf("%w: HTTP %d", ErrUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("%w: parse response: %w", ErrUnavailable, err)
	}
	return nil
}

func statusLabel(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "success"
	case statusCode == http.StatusTooManyRequests:
		return "rate_limited"
	case statusCode >= 400 && statusCode < 500:
		return "client_error"
	case statusCode >= 500:
		return "server_error"
	default:
		return "error"
	}
}
