package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/sunrise-lookup/internal/cache"
	"github.com/kjstillabower/sunrise-lookup/internal/geocoder"
	"github.com/kjstillabower/sunrise-lookup/internal/models"
	"github.com/kjstillabower/sunrise-lookup/internal/observability"
	"github.com/kjstillabower/sunrise-lookup/internal/suncalc"
)

// ErrAddressRequired is returned by Geocode for a blank address.
var ErrAddressRequired = errors.New("address is required")

const (
	cacheTypeForward = "geocode_forward"
	cacheTypeReverse = "geocode_reverse"
)

// SunService composes geocoding, place names and sun-time computation behind
// the HTTP handlers. Geocoder results are cached with the cache-aside pattern
// and concurrent identical lookups share one upstream call.
type SunService struct {
	geocoder geocoder.Geocoder
	cache    cache.Cache
	ttl      time.Duration
	calc     *suncalc.Calculator
	forward  *requestCoalescer[models.GeocodeResult]
	reverse  *requestCoalescer[string]
	logger   *zap.Logger
}

// NewSunService creates a SunService. ttl is the cache lifetime of geocoder
// answers; coalesceTimeout bounds a shared upstream call (0 uses 10s).
func NewSunService(g geocoder.Geocoder, c cache.Cache, ttl time.Duration, calc *suncalc.Calculator, coalesceTimeout time.Duration, logger *zap.Logger) *SunService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if coalesceTimeout <= 0 {
		coalesceTimeout = 10 * time.Second
	}
	return &SunService{
		geocoder: g,
		cache:    c,
		ttl:      ttl,
		calc:     calc,
		forward:  newRequestCoalescer[models.GeocodeResult](coalesceTimeout),
		reverse:  newRequestCoalescer[string](coalesceTimeout),
		logger:   logger,
	}
}

// SunReport is a sun-time computation together with the place it was made for.
type SunReport struct {
	Location models.Location
	suncalc.Result
}

// FormResult renders r as the form endpoint's clock-time payload.
func (r SunReport) FormResult() models.SunTimeResult {
	utc, local := r.Form()
	return models.SunTimeResult{Location: r.Location, UTC: utc, Local: local}
}

// Geocode resolves address to coordinates. Errors wrap geocoder.ErrNotFound
// or geocoder.ErrUnavailable.
func (s *SunService) Geocode(ctx context.Context, address string) (models.GeocodeResult, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return models.GeocodeResult{}, ErrAddressRequired
	}
	logger := observability.LoggerFrom(ctx, s.logger)
	key := cache.ForwardKey(address)

	if cached, ok := s.cacheGet(ctx, logger, cacheTypeForward, key); ok {
		logger.Debug("geocode served", zap.String("key", key), zap.Bool("cached", true))
		return cached, nil
	}

	res, err := s.forward.GetOrDo(ctx, key, func(ctx context.Context) (models.GeocodeResult, error) {
		return s.geocoder.Forward(ctx, address)
	})
	if err != nil {
		return models.GeocodeResult{}, fmt.Errorf("geocode %q: %w", address, err)
	}
	s.cacheSet(ctx, logger, key, res)
	logger.Debug("geocode served", zap.String("key", key), zap.Bool("cached", false))
	return res, nil
}

// LocationName returns a display name for at. Reverse lookup failures are
// logged and replaced with a name built from the coordinates.
func (s *SunService) LocationName(ctx context.Context, at models.Coordinates) string {
	logger := observability.LoggerFrom(ctx, s.logger)
	key := cache.ReverseKey(at)

	if cached, ok := s.cacheGet(ctx, logger, cacheTypeReverse, key); ok {
		return cached.Address
	}

	name, err := s.reverse.GetOrDo(ctx, key, func(ctx context.Context) (string, error) {
		return s.geocoder.Reverse(ctx, at)
	})
	if err != nil || strings.TrimSpace(name) == "" {
		logger.Warn("reverse geocoding failed, using coordinates",
			zap.Float64("lat", at.Latitude),
			zap.Float64("lng", at.Longitude),
			zap.Error(err))
		return CoordinateName(at)
	}
	s.cacheSet(ctx, logger, key, models.GeocodeResult{Coordinates: at, Address: name})
	return name
}

// SunTimes computes sunrise and sunset at for the calendar date of date and
// names the location.
func (s *SunService) SunTimes(ctx context.Context, at models.Coordinates, date time.Time) (SunReport, error) {
	if !at.Valid() {
		return SunReport{}, fmt.Errorf("coordinates %s out of range", at)
	}
	result, err := s.calc.Compute(at, date)
	if err != nil {
		return SunReport{}, err
	}
	return SunReport{
		Location: models.Location{
			Name:      s.LocationName(ctx, at),
			Latitude:  at.Latitude,
			Longitude: at.Longitude,
		},
		Result: result,
	}, nil
}

// CoordinateName is the place name used when reverse geocoding has no answer.
func CoordinateName(at models.Coordinates) string {
	return fmt.Sprintf("Lat: %s, Long: %s", decimal(at.Latitude), decimal(at.Longitude))
}

// decimal always shows a fractional part (2 -> "2.0").
func decimal(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func (s *SunService) cacheGet(ctx context.Context, logger *zap.Logger, cacheType, key string) (models.GeocodeResult, bool) {
	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		observability.CacheMissesTotal.WithLabelValues(cacheType).Inc()
		return models.GeocodeResult{}, false
	}
	if !ok {
		observability.CacheMissesTotal.WithLabelValues(cacheType).Inc()
		return models.GeocodeResult{}, false
	}
	observability.CacheHitsTotal.WithLabelValues(cacheType).Inc()
	return cached, true
}

func (s *SunService) cacheSet(ctx context.Context, logger *zap.Logger, key string, value models.GeocodeResult) {
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}
