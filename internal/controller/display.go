package controller

import (
	"fmt"
	"sync"
)

const (
	toggleLabelUTC   = "UTC"
	toggleLabelLocal = "Local"
)

// Display renders the stored result in either UTC or local time. It never
// talks to the network. Renders are serialized so the panel and the toggle
// label always show one view of one result.
type Display struct {
	store  *ResultStore
	panel  Panel
	toggle Switch

	mu sync.Mutex
}

// Render writes the stored result to the panel. It is a no-op until the first
// successful lookup.
func (d *Display) Render(local bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.renderLocked(local)
}

// TimezoneToggled re-renders for the toggle's current state. The toggle is read
// under the render lock so the last render always matches it.
func (d *Display) TimezoneToggled() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.renderLocked(d.toggle.Checked())
}

func (d *Display) renderLocked(local bool) {
	result, ok := d.store.Load()
	if !ok {
		return
	}
	times := result.Times(local)
	loc := result.Location

	d.panel.SetSunrise(times.Sunrise)
	d.panel.SetSunset(times.Sunset)
	d.panel.SetLocation(loc.Name, fmt.Sprintf("%.6f, %.6f", loc.Latitude, loc.Longitude))
	d.panel.SetTimezone(times.Timezone)
	if local {
		d.toggle.SetLabel(toggleLabelLocal)
	} else {
		d.toggle.SetLabel(toggleLabelUTC)
	}
}
