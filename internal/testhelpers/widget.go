package testhelpers

import (
	"sync"
	"time"

	"github.com/kjstillabower/sunrise-lookup/internal/mapview"
	"github.com/kjstillabower/sunrise-lookup/internal/models"
)

// WidgetCall is one recorded call on a RecordingWidget.
type WidgetCall struct {
	Op       string
	ID       string
	At       models.Coordinates
	Style    mapview.MarkerStyle
	Zoom     int
	Duration time.Duration
	HTML     string
	Layer    mapview.TileLayer
}

// RecordingWidget is an in-memory mapview.Widget that records every call and
// tracks which markers are currently on the map.
type RecordingWidget struct {
	mu      sync.Mutex
	calls   []WidgetCall
	markers map[string]models.Coordinates
	popups  map[string]string
	layers  []mapview.TileLayer
	click   func(models.Coordinates)
}

// NewRecordingWidget returns an empty widget.
func NewRecordingWidget() *RecordingWidget {
	return &RecordingWidget{
		markers: make(map[string]models.Coordinates),
		popups:  make(map[string]string),
	}
}

func (w *RecordingWidget) record(c WidgetCall) {
	w.calls = append(w.calls, c)
}

func (w *RecordingWidget) AddMarker(id string, at models.Coordinates, style mapview.MarkerStyle) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.record(WidgetCall{Op: "add", ID: id, At: at, Style: style})
	w.markers[id] = at
}

func (w *RecordingWidget) MoveMarker(id string, at models.Coordinates) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.record(WidgetCall{Op: "move", ID: id, At: at})
	w.markers[id] = at
}

func (w *RecordingWidget) RemoveMarker(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.record(WidgetCall{Op: "remove", ID: id})
	delete(w.markers, id)
}

func (w *RecordingWidget) BindPopup(id, html string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.record(WidgetCall{Op: "popup", ID: id, HTML: html})
	w.popups[id] = html
}

func (w *RecordingWidget) FlyTo(at models.Coordinates, zoom int, d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.record(WidgetCall{Op: "fly", At: at, Zoom: zoom, Duration: d})
}

func (w *RecordingWidget) AddTileLayer(layer mapview.TileLayer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.record(WidgetCall{Op: "add-layer", Layer: layer})
	w.layers = append(w.layers, layer)
}

func (w *RecordingWidget) RemoveTileLayer(layer mapview.TileLayer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.record(WidgetCall{Op: "remove-layer", Layer: layer})
	for i, l := range w.layers {
		if l == layer {
			w.layers = append(w.layers[:i], w.layers[i+1:]...)
			break
		}
	}
}

func (w *RecordingWidget) InvalidateSize() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.record(WidgetCall{Op: "invalidate"})
}

func (w *RecordingWidget) OnClick(fn func(models.Coordinates)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.click = fn
}

// Click simulates a user click on the map.
func (w *RecordingWidget) Click(at models.Coordinates) {
	w.mu.Lock()
	fn := w.click
	w.mu.Unlock()
	if fn != nil {
		fn(at)
	}
}

// Calls returns a copy of the recorded calls.
func (w *RecordingWidget) Calls() []WidgetCall {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]WidgetCall(nil), w.calls...)
}

// CallsFor returns the recorded calls with the given op.
func (w *RecordingWidget) CallsFor(op string) []WidgetCall {
	var out []WidgetCall
	for _, c := range w.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Marker returns the position of a marker currently on the map.
func (w *RecordingWidget) Marker(id string) (models.Coordinates, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	at, ok := w.markers[id]
	return at, ok
}

// MarkerCount returns how many markers are on the map.
func (w *RecordingWidget) MarkerCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.markers)
}

// Popup returns the popup bound to a marker.
func (w *RecordingWidget) Popup(id string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.popups[id]
}

// Layers returns the tile layers currently on the map.
func (w *RecordingWidget) Layers() []mapview.TileLayer {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]mapview.TileLayer(nil), w.layers...)
}
