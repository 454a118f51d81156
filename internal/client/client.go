package client

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

	"github.com/google/uuid"

	"github.com/kjstillabower/sunrise-lookup/internal/models"
	"github.com/kjstillabower/sunrise-lookup/internal/observability"
)

// Backend is the sun-times service as seen by the lookup controller.
type Backend interface {
	Geocode(ctx context.Context, address string) (models.GeocodeResult, error)
	GetSunTimes(ctx context.Context, at models.Coordinates, date string) (models.SunTimeResult, error)
}

var (
	// ErrTransport covers network failures and bodies that are not the expected JSON.
	ErrTransport = errors.New("transport failure")
	// ErrDomain is wrapped by every DomainError.
	ErrDomain = errors.New("backend reported failure")
)

const (
	OpGeocode  = "geocode"
	OpSunTimes = "get_sun_times"

	maxBodyBytes = 1 << 20
)

// DomainError is a well-formed backend response whose status is not "success".
// Message is the server-provided text and may be empty.
type DomainError struct {
	Op         string
	Status     string
	Message    string
	HTTPStatus int
}

func (e *DomainError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %q", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *DomainError) Unwrap() error { return ErrDomain }

// HTTPBackend talks to the backend over form-encoded POSTs. Each call is a
// single attempt.
type HTTPBackend struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// NewHTTPBackend creates a client for the service rooted at baseURL.
func NewHTTPBackend(baseURL string, timeout time.Duration) (*HTTPBackend, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend URL %q: scheme must be http or https", baseURL)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPBackend{
		baseURL: strings.TrimRight(u.String(), "/"),
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Geocode resolves a free-text address.
func (c *HTTPBackend) Geocode(ctx context.Context, address string) (models.GeocodeResult, error) {
	form := url.Values{}
	form.Set("address", address)

	var resp models.GeocodeResponse
	status, err := c.post(ctx, OpGeocode, "/geocode", form, &resp)
	if err != nil {
		return models.GeocodeResult{}, err
	}
	if resp.Status != models.StatusSuccess {
		return models.GeocodeResult{}, c.domainError(OpGeocode, resp.Status, resp.Message, status)
	}
	observability.BackendCallsTotal.WithLabelValues(OpGeocode, "success").Inc()
	return models.GeocodeResult{
		Coordinates: models.Coordinates{Latitude: resp.Latitude, Longitude: resp.Longitude},
		Address:     resp.Address,
	}, nil
}

// GetSunTimes fetches sun times for a position and a YYYY-MM-DD date.
func (c *HTTPBackend) GetSunTimes(ctx context.Context, at models.Coordinates, date string) (models.SunTimeResult, error) {
	form := url.Values{}
	form.Set("latitude", strconv.FormatFloat(at.Latitude, 'f', -1, 64))
	form.Set("longitude", strconv.FormatFloat(at.Longitude, 'f', -1, 64))
	form.Set("date", date)

	var resp models.SunTimesResponse
	status, err := c.post(ctx, OpSunTimes, "/get_sun_times", form, &resp)
	if err != nil {
		return models.SunTimeResult{}, err
	}
	if resp.Status != models.StatusSuccess {
		return models.SunTimeResult{}, c.domainError(OpSunTimes, resp.Status, resp.Message, status)
	}
	if resp.Location == nil || resp.UTC == nil || resp.Local == nil {
		observability.BackendCallsTotal.WithLabelValues(OpSunTimes, "transport_error").Inc()
		return models.SunTimeResult{}, fmt.Errorf("%w: %s: success payload missing location/utc/local", ErrTransport, OpSunTimes)
	}
	observability.BackendCallsTotal.WithLabelValues(OpSunTimes, "success").Inc()
	return models.SunTimeResult{Location: *resp.Location, UTC: *resp.UTC, Local: *resp.Local}, nil
}

func (c *HTTPBackend) domainError(op, status, message string, httpStatus int) error {
	observability.BackendCallsTotal.WithLabelValues(op, "domain_error").Inc()
	return &DomainError{Op: op, Status: status, Message: message, HTTPStatus: httpStatus}
}

// post sends one form request and decodes the JSON body into out whatever the
// HTTP status, since the backend reports failures as JSON with 4xx/5xx codes.
func (c *HTTPBackend) post(ctx context.Context, op, path string, form url.Values, out interface{}) (int, error) {
	start := time.Now()
	defer func() {
		observability.BackendCallDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		observability.BackendCallsTotal.WithLabelValues(op, "transport_error").Inc()
		return 0, fmt.Errorf("%w: build request: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Correlation-ID", uuid.New().String())

	resp, err := c.client.Do(req)
	if err != nil {
		observability.BackendCallsTotal.WithLabelValues(op, "transport_error").Inc()
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return 0, fmt.Errorf("%w: request timeout: %w", ErrTransport, err)
		}
		return 0, fmt.Errorf("%w: http request failed: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		observability.BackendCallsTotal.WithLabelValues(op, "transport_error").Inc()
		return resp.StatusCode, fmt.Errorf("%w: read response body: %w", ErrTransport, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		observability.BackendCallsTotal.WithLabelValues(op, "transport_error").Inc()
		return resp.StatusCode, fmt.Errorf("%w: parse response (HTTP %d): %w", ErrTransport, resp.StatusCode, err)
	}
	return resp.StatusCode, nil
}

// Message returns the server-provided message of a domain error, or fallback.
func Message(err error, fallback string) string {
	var de *DomainError
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return fallback
}
