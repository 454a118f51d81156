package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kjstillabower/sunrise-lookup/internal/client"
	"github.com/kjstillabower/sunrise-lookup/internal/config"
	"github.com/kjstillabower/sunrise-lookup/internal/console"
	"github.com/kjstillabower/sunrise-lookup/internal/controller"
	"github.com/kjstillabower/sunrise-lookup/internal/mapview"
	"github.com/kjstillabower/sunrise-lookup/internal/notify"
	"github.com/kjstillabower/sunrise-lookup/internal/observability"
	"github.com/kjstillabower/sunrise-lookup/internal/prefs"
	"github.com/kjstillabower/sunrise-lookup/internal/theme"
	"github.com/kjstillabower/sunrise-lookup/internal/ui"
	"github.com/kjstillabower/sunrise-lookup/internal/validation"
)

// defaultWidth is the viewport width the page starts with.
const defaultWidth = 1280

func main() {
	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var (
		backendURL   string
		prefsBackend string
		configPath   string
	)

	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Look up sunrise and sunset times from the terminal",
		Long: `Interactive client for the sun-times service.

Examples:
  # Use config/dev.yaml and the default backend
  lookup

  # Point at another backend and keep the theme in memory only
  lookup --backend=http://sun.internal:8080 --prefs=memory`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if backendURL != "" {
				cfg.Client.BackendURL = backendURL
			}
			if prefsBackend != "" {
				cfg.Client.PrefsBackend = prefsBackend
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&backendURL, "backend", "", "sun-times service base URL (overrides config)")
	cmd.Flags().StringVar(&prefsBackend, "prefs", "", "preference store: file, memcached or memory")
	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file (default config/$ENV_NAME.yaml)")
	return cmd
}

// defaultDate is the UTC calendar date of now.
func defaultDate(now time.Time) string {
	return now.UTC().Format(validation.DateLayout)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func newLogger(path string) (*zap.Logger, error) {
	// Logging to the terminal would interleave with the prompt.
	if path == "" {
		return zap.NewNop(), nil
	}
	return observability.NewLogger(path)
}

func newPrefsStore(cfg *config.Config, logger *zap.Logger) (prefs.Store, func(), error) {
	switch cfg.Client.PrefsBackend {
	case "file":
		logger.Info("prefs store", zap.String("backend", "file"), zap.String("path", cfg.Client.PrefsPath))
		return prefs.NewFileStore(cfg.Client.PrefsPath), func() {}, nil
	case "memcached":
		store := prefs.NewMemcachedStore(cfg.MemcachedAddrs, cfg.Client.PrefsProfile, cfg.MemcachedTimeout)
		if err := store.Ping(); err != nil {
			logger.Warn("memcached prefs unreachable, theme falls back to default", zap.Error(err))
		}
		logger.Info("prefs store", zap.String("backend", "memcached"), zap.String("addrs", cfg.MemcachedAddrs))
		return store, func() { _ = store.Close() }, nil
	case "memory":
		return prefs.NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown prefs backend %q", cfg.Client.PrefsBackend)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger, err := newLogger(cfg.Client.LogFile)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	store, closeStore, err := newPrefsStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	backend, err := client.NewHTTPBackend(cfg.Client.BackendURL, cfg.Client.Timeout)
	if err != nil {
		return fmt.Errorf("backend: %w", err)
	}

	out := console.NewOutput(os.Stdout)
	widget := console.NewWidget(out)
	emitter := notify.NewEmitter(console.NewNotificationSink(out), notify.WithLogger(logger))
	adapter := mapview.New(widget, mapview.WithLogger(logger))
	page := ui.NewPage(defaultDate(time.Now()), defaultWidth)
	themes := theme.NewManager(ctx, store, page, adapter, emitter, logger)

	ctrl, err := controller.New(controller.Deps{
		Backend:       backend,
		Form:          page,
		GeocodeButton: page.GeocodeButton,
		SubmitButton:  page.SubmitButton,
		Toggle:        page.Toggle,
		Results:       page.Results,
		Map:           adapter,
		Notifier:      emitter,
		Theme:         themes,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	logger.Info("lookup client started",
		zap.String("backend", cfg.Client.BackendURL),
		zap.String("theme", string(themes.Current())))
	out.Printf("Sun times via %s (theme: %s)", cfg.Client.BackendURL, themes.Current())

	repl := console.NewREPL(ctrl, page, widget, emitter, out, logger)
	return repl.Run(ctx, os.Stdin)
}
