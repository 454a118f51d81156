package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds configuration for the sun-times service and the lookup client,
// loaded from YAML and env.
type Config struct {
	TestingMode bool

	ServerPort     string
	RequestTimeout time.Duration

	GeocoderURL       string
	GeocoderUserAgent string
	GeocoderEmail     string
	GeocoderTimeout   time.Duration

	CacheTTL     time.Duration
	CacheBackend string // "in_memory" or "memcached"

	// WarmAddresses are geocoded at startup and every WarmInterval (0 disables
	// periodic warming).
	WarmAddresses []string
	WarmInterval  time.Duration

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	RateLimitPerMinute int
	RateLimitBurst     int
	RateLimitIdleTTL   time.Duration

	BreakerFailureThreshold int
	BreakerCooldown         time.Duration

	ShutdownTimeout time.Duration

	TrackedTimezones []string

	Client ClientConfig
}

// ClientConfig configures the interactive lookup client.
type ClientConfig struct {
	BackendURL   string
	Timeout      time.Duration
	PrefsBackend string // "file", "memcached" or "memory"
	PrefsPath    string
	PrefsProfile string
	LogFile      string
}

type fileConfig struct {
	TestingMode *bool `yaml:"testing_mode"`

	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Geocoder struct {
		URL       string `yaml:"url"`
		UserAgent string `yaml:"user_agent"`
		Timeout   string `yaml:"timeout"`
	} `yaml:"geocoder"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Cache struct {
		Backend string `yaml:"backend"`
		TTL     string `yaml:"ttl"`
		Warm    struct {
			Addresses []string `yaml:"addresses"`
			Interval  string   `yaml:"interval"`
		} `yaml:"warm"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"cache"`

	Reliability struct {
		RateLimitPerMinute      int    `yaml:"rate_limit_per_minute"`
		RateLimitBurst          int    `yaml:"rate_limit_burst"`
		RateLimitIdleTTL        string `yaml:"rate_limit_idle_ttl"`
		BreakerFailureThreshold int    `yaml:"breaker_failure_threshold"`
		BreakerCooldown         string `yaml:"breaker_cooldown"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`

	Metrics struct {
		TrackedTimezones []string `yaml:"tracked_timezones"`
	} `yaml:"metrics"`

	Client struct {
		BackendURL string `yaml:"backend_url"`
		Timeout    string `yaml:"timeout"`
		Prefs      struct {
			Backend string `yaml:"backend"`
			Path    string `yaml:"path"`
			Profile string `yaml:"profile"`
		} `yaml:"prefs"`
		LogFile string `yaml:"log_file"`
	} `yaml:"client"`
}

type secretsFile struct {
	GeocoderEmail string `yaml:"geocoder_email"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) and
// config/secrets.yaml relative to the working directory, after loading .env.
// A missing env file yields defaults so the client runs without a config
// directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	return load(filepath.Join(cwd, "config", env+".yaml"), false)
}

// LoadFile reads configuration from an explicit path. Unlike Load, the file
// must exist.
func LoadFile(path string) (*Config, error) {
	_ = godotenv.Load()
	return load(path, true)
}

func load(configPath string, mustExist bool) (*Config, error) {
	var fc fileConfig
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	case os.IsNotExist(err):
		if mustExist {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
	default:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{
		TestingMode: false,
	}
	if fc.TestingMode != nil {
		cfg.TestingMode = *fc.TestingMode
	}

	cfg.ServerPort = firstNonEmpty(os.Getenv("PORT"), fc.Server.Port, "5000")

	cfg.GeocoderURL = strings.TrimRight(firstNonEmpty(os.Getenv("GEOCODER_URL"), fc.Geocoder.URL, "https://nominatim.openstreetmap.org"), "/")
	cfg.GeocoderUserAgent = firstNonEmpty(fc.Geocoder.UserAgent, "sunrise-lookup")
	cfg.GeocoderTimeout = parseDurationOrZero(fc.Geocoder.Timeout, 5*time.Second)

	cfg.GeocoderEmail = os.Getenv("GEOCODER_EMAIL")
	if cfg.GeocoderEmail == "" {
		secretsPath := filepath.Join(filepath.Dir(configPath), "secrets.yaml")
		secretsData, err := os.ReadFile(secretsPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read secrets file: %w", err)
			}
		} else {
			var sec secretsFile
			if err := yaml.Unmarshal(secretsData, &sec); err != nil {
				return nil, fmt.Errorf("parse secrets file: %w", err)
			}
			cfg.GeocoderEmail = sec.GeocoderEmail
		}
	}

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 10*time.Second)
	cfg.CacheTTL = parseDuration(fc.Cache.TTL, 24*time.Hour)
	cfg.CacheBackend = strings.ToLower(firstNonEmpty(os.Getenv("CACHE_BACKEND"), fc.Cache.Backend, "in_memory"))
	cfg.WarmAddresses = fc.Cache.Warm.Addresses
	cfg.WarmInterval = parseDurationOrZero(fc.Cache.Warm.Interval, 0)
	if cfg.WarmInterval < 0 {
		cfg.WarmInterval = 0
	}
	cfg.MemcachedAddrs = firstNonEmpty(os.Getenv("MEMCACHED_ADDRS"), fc.Cache.Memcached.Addrs, "localhost:11211")
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.RateLimitPerMinute = fc.Reliability.RateLimitPerMinute
	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = 60
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = cfg.RateLimitPerMinute
	}
	cfg.RateLimitIdleTTL = parseDuration(fc.Reliability.RateLimitIdleTTL, 5*time.Minute)
	cfg.BreakerFailureThreshold = fc.Reliability.BreakerFailureThreshold
	if cfg.BreakerFailureThreshold <= 0 {
		cfg.BreakerFailureThreshold = 5
	}
	cfg.BreakerCooldown = parseDuration(fc.Reliability.BreakerCooldown, 30*time.Second)

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.TrackedTimezones = fc.Metrics.TrackedTimezones

	cfg.Client.BackendURL = strings.TrimRight(firstNonEmpty(os.Getenv("BACKEND_URL"), fc.Client.BackendURL, "http://localhost:"+cfg.ServerPort), "/")
	cfg.Client.Timeout = parseDuration(fc.Client.Timeout, 15*time.Second)
	cfg.Client.PrefsBackend = strings.ToLower(firstNonEmpty(os.Getenv("PREFS_BACKEND"), fc.Client.Prefs.Backend, "file"))
	cfg.Client.PrefsPath = firstNonEmpty(fc.Client.Prefs.Path, defaultPrefsPath())
	cfg.Client.PrefsProfile = firstNonEmpty(fc.Client.Prefs.Profile, "default")
	cfg.Client.LogFile = strings.TrimSpace(fc.Client.LogFile)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultPrefsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "sunrise-lookup-prefs.yaml"
	}
	return filepath.Join(dir, "sunrise-lookup", "prefs.yaml")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
// Used for parsing duration fields from YAML config with safe fallback to defaults.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Returns zero or negative durations as-is (caller should handle fallback).
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values.
// Ensures GeocoderTimeout is positive, RequestTimeout > GeocoderTimeout,
// and the backend selectors are valid. Auto-adjusts RequestTimeout if needed.
func validate(cfg *Config) error {
	if cfg.GeocoderTimeout <= 0 {
		return fmt.Errorf("geocoder.timeout must be positive")
	}
	if cfg.RequestTimeout <= cfg.GeocoderTimeout {
		cfg.RequestTimeout = cfg.GeocoderTimeout + time.Second
	}
	switch cfg.CacheBackend {
	case "in_memory", "memcached":
		// valid
	default:
		return fmt.Errorf("cache.backend must be in_memory or memcached, got %q", cfg.CacheBackend)
	}
	switch cfg.Client.PrefsBackend {
	case "file", "memcached", "memory":
		// valid
	default:
		return fmt.Errorf("client.prefs.backend must be file, memcached or memory, got %q", cfg.Client.PrefsBackend)
	}
	if !strings.HasPrefix(cfg.Client.BackendURL, "http://") && !strings.HasPrefix(cfg.Client.BackendURL, "https://") {
		return fmt.Errorf("client.backend_url must be an http(s) URL, got %q", cfg.Client.BackendURL)
	}
	return nil
}
