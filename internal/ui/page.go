// Package ui holds the in-memory state of the lookup page's controls. Renderers
// (the console front-end, tests) read it; the controller writes it.
package ui

import "sync"

// SmallViewport is the width below which results are scrolled into view.
const SmallViewport = 992

// Button is a clickable control with a label and an enabled state.
type Button struct {
	mu      sync.Mutex
	label   string
	enabled bool
}

// NewButton returns an enabled button.
func NewButton(label string) *Button {
	return &Button{label: label, enabled: true}
}

func (b *Button) Label() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.label
}

func (b *Button) SetLabel(s string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.label = s
}

func (b *Button) Enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}

func (b *Button) SetEnabled(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = v
}

// Toggle is the UTC/local switch.
type Toggle struct {
	mu      sync.Mutex
	checked bool
	label   string
}

// NewToggle returns an unchecked toggle labelled "UTC".
func NewToggle() *Toggle {
	return &Toggle{label: "UTC"}
}

func (t *Toggle) Checked() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.checked
}

func (t *Toggle) SetChecked(v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.checked = v
}

func (t *Toggle) Label() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.label
}

func (t *Toggle) SetLabel(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.label = s
}

// Results is the results panel, hidden until the first successful lookup.
type Results struct {
	mu           sync.Mutex
	visible      bool
	scrolls      int
	sunrise      string
	sunset       string
	locationName string
	coordinates  string
	timezone     string
}

// ResultsView is a point-in-time copy of the panel.
type ResultsView struct {
	Visible      bool
	Scrolls      int
	Sunrise      string
	Sunset       string
	LocationName string
	Coordinates  string
	Timezone     string
}

func (r *Results) Show() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visible = true
}

func (r *Results) Visible() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.visible
}

func (r *Results) ScrollIntoView() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scrolls++
}

func (r *Results) SetSunrise(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sunrise = s
}

func (r *Results) SetSunset(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sunset = s
}

func (r *Results) SetLocation(name, coordinates string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locationName = name
	r.coordinates = coordinates
}

func (r *Results) SetTimezone(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timezone = s
}

// Snapshot copies the panel state.
func (r *Results) Snapshot() ResultsView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ResultsView{
		Visible:      r.visible,
		Scrolls:      r.scrolls,
		Sunrise:      r.sunrise,
		Sunset:       r.sunset,
		LocationName: r.locationName,
		Coordinates:  r.coordinates,
		Timezone:     r.timezone,
	}
}

// Page is every control the lookup page shows.
type Page struct {
	mu        sync.Mutex
	address   string
	latitude  string
	longitude string
	date      string
	width     int
	themeAttr string
	themeIcon string

	GeocodeButton *Button
	SubmitButton  *Button
	Toggle        *Toggle
	Results       *Results
}

// NewPage returns a page with empty fields, the given date and viewport width.
func NewPage(date string, width int) *Page {
	return &Page{
		date:          date,
		width:         width,
		GeocodeButton: NewButton("Search"),
		SubmitButton:  NewButton("Get Sun Times"),
		Toggle:        NewToggle(),
		Results:       &Results{},
	}
}

func (p *Page) Address() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.address
}

func (p *Page) SetAddress(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.address = s
}

func (p *Page) Latitude() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latitude
}

func (p *Page) Longitude() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.longitude
}

// SetCoordinates writes both coordinate fields at once.
func (p *Page) SetCoordinates(lat, lng string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latitude = lat
	p.longitude = lng
}

func (p *Page) SetLatitude(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latitude = s
}

func (p *Page) SetLongitude(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.longitude = s
}

func (p *Page) Date() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.date
}

func (p *Page) SetDate(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.date = s
}

// Width is the current viewport width in pixels.
func (p *Page) Width() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.width
}

func (p *Page) SetWidth(w int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.width = w
}

func (p *Page) SetThemeAttribute(t string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.themeAttr = t
}

func (p *Page) ThemeAttribute() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.themeAttr
}

func (p *Page) SetThemeIcon(class string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.themeIcon = class
}

func (p *Page) ThemeIcon() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.themeIcon
}
