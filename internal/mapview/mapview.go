// Package mapview adapts an interactive map widget to the operations the lookup
// controller needs: one persistent selection marker, short-lived click ripples,
// animated recentring, popups and theme-driven tile layers.
package mapview

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/sunrise-lookup/internal/clock"
	"github.com/kjstillabower/sunrise-lookup/internal/models"
)

const (
	// RippleLifetime is how long the click ripple marker stays on the map.
	RippleLifetime = 1000 * time.Millisecond
	// FlyDuration is the animation length for FocusOn.
	FlyDuration = 1500 * time.Millisecond
	// SelectionMarkerID identifies the single selection marker.
	SelectionMarkerID = "selection"
)

// MarkerStyle tells the widget how to draw a marker.
type MarkerStyle int

const (
	MarkerSelection MarkerStyle = iota
	MarkerRipple
)

// TileLayer is a tile source plus its tiling options.
type TileLayer struct {
	URLTemplate string
	Attribution string
	Subdomains  string
	MaxZoom     int
}

// Widget is the external map. Implementations render; they own no lookup state.
type Widget interface {
	AddMarker(id string, at models.Coordinates, style MarkerStyle)
	MoveMarker(id string, at models.Coordinates)
	RemoveMarker(id string)
	BindPopup(id, html string)
	FlyTo(at models.Coordinates, zoom int, duration time.Duration)
	AddTileLayer(layer TileLayer)
	RemoveTileLayer(layer TileLayer)
	InvalidateSize()
	OnClick(fn func(models.Coordinates))
}

// Adapter owns the marker bookkeeping on top of a Widget.
type Adapter struct {
	widget   Widget
	schedule clock.AfterFunc
	logger   *zap.Logger

	// widgetMu orders selection-marker and tile-layer calls on the widget.
	widgetMu sync.Mutex

	mu        sync.Mutex
	hasMarker bool
	rippleSeq int
	layer     *TileLayer
	onSelect  func(models.Coordinates)
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithScheduler replaces the real timer source used for ripple expiry.
func WithScheduler(s clock.AfterFunc) Option {
	return func(a *Adapter) { a.schedule = s }
}

// WithLogger sets the adapter logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// New wraps widget and subscribes to its clicks.
func New(widget Widget, opts ...Option) *Adapter {
	a := &Adapter{
		widget:   widget,
		schedule: clock.Real,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	widget.OnClick(a.clicked)
	return a
}

// OnSelect registers the receiver of map-click selections.
func (a *Adapter) OnSelect(fn func(models.Coordinates)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onSelect = fn
}

func (a *Adapter) clicked(at models.Coordinates) {
	a.mu.Lock()
	fn := a.onSelect
	a.rippleSeq++
	rippleID := fmt.Sprintf("ripple-%d", a.rippleSeq)
	a.mu.Unlock()

	if fn != nil {
		fn(at)
	}

	a.widget.AddMarker(rippleID, at, MarkerRipple)
	a.schedule(RippleLifetime, func() { a.widget.RemoveMarker(rippleID) })
	a.logger.Debug("map clicked", zap.Float64("lat", at.Latitude), zap.Float64("lng", at.Longitude))
}

// SetSelectionMarker creates the selection marker on first use and moves it afterwards.
func (a *Adapter) SetSelectionMarker(at models.Coordinates) {
	a.widgetMu.Lock()
	defer a.widgetMu.Unlock()

	a.mu.Lock()
	existed := a.hasMarker
	a.hasMarker = true
	a.mu.Unlock()

	if existed {
		a.widget.MoveMarker(SelectionMarkerID, at)
		return
	}
	a.widget.AddMarker(SelectionMarkerID, at, MarkerSelection)
}

// HasSelectionMarker reports whether a selection marker has been placed.
func (a *Adapter) HasSelectionMarker() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hasMarker
}

// FocusOn recentres the viewport. A newer call replaces the running animation.
func (a *Adapter) FocusOn(at models.Coordinates, zoom int) {
	a.widget.FlyTo(at, zoom, FlyDuration)
}

// BindPopup attaches html to the selection marker and opens it.
func (a *Adapter) BindPopup(html string) {
	if !a.HasSelectionMarker() {
		a.logger.Debug("popup without selection marker ignored")
		return
	}
	a.widget.BindPopup(SelectionMarkerID, html)
}

// SetTileLayer swaps the active tile layer.
func (a *Adapter) SetTileLayer(layer TileLayer) {
	a.widgetMu.Lock()
	defer a.widgetMu.Unlock()

	a.mu.Lock()
	prev := a.layer
	next := layer
	a.layer = &next
	a.mu.Unlock()

	if prev != nil {
		a.widget.RemoveTileLayer(*prev)
	}
	a.widget.AddTileLayer(layer)
}

// TileLayer returns the active layer, if any.
func (a *Adapter) TileLayer() (TileLayer, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.layer == nil {
		return TileLayer{}, false
	}
	return *a.layer, true
}

// Resize asks the widget to recompute its layout.
func (a *Adapter) Resize() {
	a.widget.InvalidateSize()
}
