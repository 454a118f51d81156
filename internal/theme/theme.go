// Package theme owns the light/dark page theme: its persisted value, the page
// attribute and toggle icon it drives, and the matching map tile layer.
package theme

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kjstillabower/sunrise-lookup/internal/mapview"
	"github.com/kjstillabower/sunrise-lookup/internal/notify"
	"github.com/kjstillabower/sunrise-lookup/internal/prefs"
)

// Theme is the page colour scheme.
type Theme string

const (
	Dark  Theme = "dark"
	Light Theme = "light"
)

// StorageKey is the prefs key holding the theme.
const StorageKey = "theme"

const (
	darkTiles   = "https://{s}.basemaps.cartocdn.com/dark_all/{z}/{x}/{y}{r}.png"
	lightTiles  = "https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}{r}.png"
	attribution = `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> &copy; <a href="https://carto.com/attributions">CARTO</a>`
)

// Parse maps a stored string to a Theme; anything unrecognised is Dark.
func Parse(s string) Theme {
	if Theme(s) == Light {
		return Light
	}
	return Dark
}

// Other returns the opposite theme.
func (t Theme) Other() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

// TileSource maps a theme to its tile URL template.
func TileSource(t Theme) string {
	if t == Light {
		return lightTiles
	}
	return darkTiles
}

// TileLayer builds the tiling config for t. Only the URL template varies by theme.
func TileLayer(t Theme) mapview.TileLayer {
	return mapview.TileLayer{
		URLTemplate: TileSource(t),
		Attribution: attribution,
		Subdomains:  "abcd",
		MaxZoom:     19,
	}
}

// Icon is the toggle control icon class for t.
func Icon(t Theme) string {
	if t == Light {
		return "fas fa-sun text-warning"
	}
	return "fas fa-moon"
}

// Page is the part of the page the theme paints.
type Page interface {
	SetThemeAttribute(t string)
	SetThemeIcon(class string)
}

// Tiles is the map surface that shows the tile layer.
type Tiles interface {
	SetTileLayer(layer mapview.TileLayer)
}

// Manager is the single owner of the current theme.
type Manager struct {
	store    prefs.Store
	page     Page
	tiles    Tiles
	notifier notify.Notifier
	logger   *zap.Logger

	mu      sync.Mutex
	current Theme
}

// NewManager reads the stored theme (default Dark) and paints it. A storage read
// failure is logged and treated as absent.
func NewManager(ctx context.Context, store prefs.Store, page Page, tiles Tiles, notifier notify.Notifier, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		store:    store,
		page:     page,
		tiles:    tiles,
		notifier: notifier,
		logger:   logger,
		current:  Dark,
	}
	stored, ok, err := store.Get(ctx, StorageKey)
	switch {
	case err != nil:
		logger.Warn("theme read failed, using default", zap.Error(err))
	case ok:
		m.current = Parse(stored)
	}
	m.apply(m.current)
	return m
}

// Current returns the active theme.
func (m *Manager) Current() Theme {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Toggle flips the theme. The new value is persisted before anything is
// repainted; if that fails nothing changes.
func (m *Manager) Toggle(ctx context.Context) (Theme, error) {
	m.mu.Lock()
	next := m.current.Other()
	if err := m.store.Set(ctx, StorageKey, string(next)); err != nil {
		prev := m.current
		m.mu.Unlock()
		return prev, fmt.Errorf("persist theme: %w", err)
	}
	m.current = next
	m.apply(next)
	m.mu.Unlock()

	m.logger.Info("theme changed", zap.String("theme", string(next)))
	if m.notifier != nil {
		m.notifier.Post(notify.Notification{
			Kind:    notify.KindSuccess,
			Title:   "Theme Changed",
			Message: fmt.Sprintf("Switched to %s mode", next),
		})
	}
	return next, nil
}

// apply paints t; the attribute goes first so the tiles never lead it.
func (m *Manager) apply(t Theme) {
	m.page.SetThemeAttribute(string(t))
	m.page.SetThemeIcon(Icon(t))
	m.tiles.SetTileLayer(TileLayer(t))
}
