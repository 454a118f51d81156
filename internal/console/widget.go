package console

import (
	"sync"
	"time"

	"github.com/kjstillabower/sunrise-lookup/internal/mapview"
	"github.com/kjstillabower/sunrise-lookup/internal/models"
)

// Widget implements mapview.Widget by printing each map operation.
type Widget struct {
	out *Output

	mu      sync.Mutex
	click   func(models.Coordinates)
	markers map[string]models.Coordinates
}

// NewWidget returns a Widget writing to out.
func NewWidget(out *Output) *Widget {
	return &Widget{out: out, markers: make(map[string]models.Coordinates)}
}

func styleName(s mapview.MarkerStyle) string {
	if s == mapview.MarkerRipple {
		return "ripple"
	}
	return "marker"
}

func (w *Widget) AddMarker(id string, at models.Coordinates, style mapview.MarkerStyle) {
	w.mu.Lock()
	w.markers[id] = at
	w.mu.Unlock()
	if style == mapview.MarkerRipple {
		return
	}
	w.out.Printf("[map] %s %q placed at %s", styleName(style), id, at)
}

func (w *Widget) MoveMarker(id string, at models.Coordinates) {
	w.mu.Lock()
	w.markers[id] = at
	w.mu.Unlock()
	w.out.Printf("[map] marker %q moved to %s", id, at)
}

// RemoveMarker drops the marker silently; ripples expire every click.
func (w *Widget) RemoveMarker(id string) {
	w.mu.Lock()
	delete(w.markers, id)
	w.mu.Unlock()
}

func (w *Widget) BindPopup(id, html string) {
	w.out.Printf("[map] popup on %q: %s", id, plainText(html))
}

func (w *Widget) FlyTo(at models.Coordinates, zoom int, d time.Duration) {
	w.out.Printf("[map] flying to %s (zoom %d, %s)", at, zoom, d)
}

func (w *Widget) AddTileLayer(layer mapview.TileLayer) {
	w.out.Printf("[map] tiles: %s", layer.URLTemplate)
}

func (w *Widget) RemoveTileLayer(layer mapview.TileLayer) {}

func (w *Widget) InvalidateSize() {
	w.out.Printf("[map] layout recomputed")
}

func (w *Widget) OnClick(fn func(models.Coordinates)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.click = fn
}

// Click delivers a map click typed at the prompt.
func (w *Widget) Click(at models.Coordinates) {
	w.mu.Lock()
	fn := w.click
	w.mu.Unlock()
	if fn != nil {
		fn(at)
	}
}

// MarkerCount returns how many markers, ripples included, are on the map.
func (w *Widget) MarkerCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.markers)
}
