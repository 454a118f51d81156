package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/sunrise-lookup/internal/models"
	"github.com/kjstillabower/sunrise-lookup/internal/observability"
)

// AddressResolver is implemented by the service layer; resolving an address
// through it populates the cache. Declared here to avoid an import cycle.
type AddressResolver interface {
	Geocode(ctx context.Context, address string) (models.GeocodeResult, error)
}

// CacheWarmer prefetches a fixed list of addresses.
type CacheWarmer struct {
	resolver AddressResolver
	logger   *zap.Logger
}

// NewCacheWarmer creates a CacheWarmer that uses the given resolver and logger.
func NewCacheWarmer(resolver AddressResolver, logger *zap.Logger) *CacheWarmer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheWarmer{resolver: resolver, logger: logger}
}

// Warm resolves each address in turn. Lookups run sequentially because public
// Nominatim servers allow one request per second per client. All failures are
// joined into the returned error.
func (w *CacheWarmer) Warm(ctx context.Context, addresses []string) error {
	if len(addresses) == 0 {
		return nil
	}
	start := time.Now()
	w.logger.Info("warming geocode cache", zap.Int("addresses", len(addresses)))

	var errs []error
	for _, addr := range addresses {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := w.resolver.Geocode(ctx, addr); err != nil {
			errs = append(errs, fmt.Errorf("warm %q: %w", addr, err))
		}
	}

	w.logger.Info("geocode cache warming complete",
		zap.Int("addresses", len(addresses)),
		zap.Int("errors", len(errs)),
		zap.Duration("duration", time.Since(start)))
	if len(errs) > 0 {
		observability.CacheWarmingErrorsTotal.Inc()
		return fmt.Errorf("cache warming: %w", errors.Join(errs...))
	}
	return nil
}

// WarmPeriodic runs an initial Warm, then refreshes at the given interval until ctx is done.
func (w *CacheWarmer) WarmPeriodic(ctx context.Context, addresses []string, interval time.Duration) error {
	if err := w.Warm(ctx, addresses); err != nil {
		w.logger.Warn("initial cache warm failed", zap.Error(err))
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Warm(ctx, addresses); err != nil {
				w.logger.Warn("periodic cache warm failed", zap.Error(err))
			}
		}
	}
}
