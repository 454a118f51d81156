package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/sunrise-lookup/internal/cache"
	"github.com/kjstillabower/sunrise-lookup/internal/circuitbreaker"
	"github.com/kjstillabower/sunrise-lookup/internal/config"
	"github.com/kjstillabower/sunrise-lookup/internal/geocoder"
	httphandler "github.com/kjstillabower/sunrise-lookup/internal/http"
	"github.com/kjstillabower/sunrise-lookup/internal/lifecycle"
	"github.com/kjstillabower/sunrise-lookup/internal/observability"
	"github.com/kjstillabower/sunrise-lookup/internal/service"
	"github.com/kjstillabower/sunrise-lookup/internal/suncalc"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	breaker := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: cfg.BreakerFailureThreshold,
		Cooldown:         cfg.BreakerCooldown,
		Component:        "geocoder",
		IsFailure:        geocoder.IsUpstreamFailure,
		OnStateChange: func(component string, from, to circuitbreaker.State) {
			observability.CircuitBreakerState.Set(to.GaugeValue())
			logger.Warn("circuit breaker state change",
				zap.String("component", component),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	observability.CircuitBreakerState.Set(circuitbreaker.StateClosed.GaugeValue())

	nominatim, err := geocoder.NewNominatimClient(cfg.GeocoderURL, cfg.GeocoderUserAgent, cfg.GeocoderEmail, cfg.GeocoderTimeout, breaker)
	if err != nil {
		logger.Fatal("geocoder client", zap.Error(err))
	}
	logger.Info("geocoder configured",
		zap.String("url", cfg.GeocoderURL),
		zap.Int("breaker_failure_threshold", cfg.BreakerFailureThreshold),
		zap.Duration("breaker_cooldown", cfg.BreakerCooldown))

	cacheSvc, memcacheCloser, err := newGeocodeCache(cfg, logger)
	if err != nil {
		logger.Fatal("geocode cache", zap.Error(err))
	}

	finder, err := suncalc.NewDefaultFinder()
	if err != nil {
		logger.Fatal("timezone finder", zap.Error(err))
	}
	calc := suncalc.NewCalculator(finder, logger)
	sunService := service.NewSunService(nominatim, cacheSvc, cfg.CacheTTL, calc, cfg.GeocoderTimeout+time.Second, logger)

	limiter := httphandler.NewClientLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst, cfg.RateLimitIdleTTL)
	observability.RegisterRateLimitGauge(limiter.Active)
	if len(cfg.TrackedTimezones) > 0 {
		observability.SetTrackedTimezones(cfg.TrackedTimezones)
	}

	healthConfig := &httphandler.HealthConfig{
		GeocoderState: func() string { return breaker.State().String() },
	}
	if memcacheCloser != nil {
		healthConfig.CachePing = memcacheCloser.Ping
	}
	handler := httphandler.NewHandler(sunService, limiter, healthConfig, logger)
	router := httphandler.NewRouter(handler, limiter, cfg.RequestTimeout, logger)

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	go limiter.Run(bgCtx, time.Minute, logger)

	if len(cfg.WarmAddresses) > 0 {
		warmer := cache.NewCacheWarmer(sunService, logger)
		go func() {
			if cfg.WarmInterval <= 0 {
				if err := warmer.Warm(bgCtx, cfg.WarmAddresses); err != nil {
					logger.Warn("cache warming failed", zap.Error(err))
				}
				return
			}
			if err := warmer.WarmPeriodic(bgCtx, cfg.WarmAddresses, cfg.WarmInterval); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("periodic cache warming stopped", zap.Error(err))
			}
		}()
	}

	srv := newServer(cfg, router)

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		lifecycle.MarkStarted(time.Now())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	bgCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", httphandler.InFlightCount()))
	if err := httphandler.WaitForInFlight(shutdownCtx, 100*time.Millisecond); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}

	if memcacheCloser != nil {
		if err := memcacheCloser.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
}

// newGeocodeCache builds the configured cache backend. The memcached cache is
// also returned on its own so main can ping it from /health and close it on exit.
func newGeocodeCache(cfg *config.Config, logger *zap.Logger) (cache.Cache, *cache.MemcachedCache, error) {
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
		return mc, mc, nil
	default:
		logger.Info("cache backend: in_memory")
		return cache.NewInMemoryCache(10 * time.Minute), nil, nil
	}
}

// newServer leaves handlers cfg.RequestTimeout plus headroom to write their
// response before the connection is cut.
func newServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}
}
