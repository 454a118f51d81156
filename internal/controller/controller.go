// Package controller keeps the lookup page's three location inputs (map clicks,
// geocoded addresses, typed coordinates), the selection marker and the results
// panel consistent with the latest successful backend response.
package controller

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kjstillabower/sunrise-lookup/internal/client"
	"github.com/kjstillabower/sunrise-lookup/internal/models"
	"github.com/kjstillabower/sunrise-lookup/internal/notify"
	"github.com/kjstillabower/sunrise-lookup/internal/theme"
)

// FocusZoom is the zoom level used when recentring on a selection.
const FocusZoom = 10

// Form is the location form plus the viewport it is shown in.
type Form interface {
	Address() string
	SetAddress(s string)
	Latitude() string
	Longitude() string
	SetCoordinates(lat, lng string)
	Date() string
	Width() int
	SetWidth(w int)
}

// Control is a button that can be put into a busy state.
type Control interface {
	Label() string
	SetLabel(s string)
	Enabled() bool
	SetEnabled(v bool)
}

// Switch is the UTC/local toggle. Checked means local time.
type Switch interface {
	Checked() bool
	SetLabel(s string)
}

// Panel is the results panel.
type Panel interface {
	Show()
	ScrollIntoView()
	SetSunrise(s string)
	SetSunset(s string)
	SetLocation(name, coordinates string)
	SetTimezone(s string)
}

// Map is the selection surface; see mapview.Adapter.
type Map interface {
	SetSelectionMarker(at models.Coordinates)
	FocusOn(at models.Coordinates, zoom int)
	BindPopup(html string)
	OnSelect(fn func(models.Coordinates))
	Resize()
}

// ThemeToggler flips the page theme.
type ThemeToggler interface {
	Toggle(ctx context.Context) (theme.Theme, error)
}

// Deps are the collaborators a Controller is built from.
type Deps struct {
	Backend       client.Backend
	Form          Form
	GeocodeButton Control
	SubmitButton  Control
	Toggle        Switch
	Results       Panel
	Map           Map
	Notifier      notify.Notifier
	Theme         ThemeToggler
	Logger        *zap.Logger
}

func (d Deps) validate() error {
	var missing []string
	if d.Backend == nil {
		missing = append(missing, "Backend")
	}
	if d.Form == nil {
		missing = append(missing, "Form")
	}
	if d.GeocodeButton == nil {
		missing = append(missing, "GeocodeButton")
	}
	if d.SubmitButton == nil {
		missing = append(missing, "SubmitButton")
	}
	if d.Toggle == nil {
		missing = append(missing, "Toggle")
	}
	if d.Results == nil {
		missing = append(missing, "Results")
	}
	if d.Map == nil {
		missing = append(missing, "Map")
	}
	if d.Notifier == nil {
		missing = append(missing, "Notifier")
	}
	if len(missing) > 0 {
		return fmt.Errorf("controller: missing dependencies %v", missing)
	}
	return nil
}

// Controller is the page's event entry point.
type Controller struct {
	Reconciler   *Reconciler
	Orchestrator *Orchestrator
	Display      *Display

	mapView Map
	form    Form
	theme   ThemeToggler
	logger  *zap.Logger
}

// New wires a Controller and subscribes it to map clicks.
func New(d Deps) (*Controller, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	store := &ResultStore{}
	display := &Display{store: store, panel: d.Results, toggle: d.Toggle}
	reconciler := &Reconciler{
		backend:  d.Backend,
		form:     d.Form,
		button:   newBusyControl(d.GeocodeButton),
		mapView:  d.Map,
		notifier: d.Notifier,
		logger:   logger.Named("reconciler"),
	}
	orchestrator := &Orchestrator{
		backend:    d.Backend,
		reconciler: reconciler,
		display:    display,
		store:      store,
		form:       d.Form,
		button:     newBusyControl(d.SubmitButton),
		panel:      d.Results,
		notifier:   d.Notifier,
		logger:     logger.Named("orchestrator"),
	}

	d.Map.OnSelect(reconciler.MapClicked)

	return &Controller{
		Reconciler:   reconciler,
		Orchestrator: orchestrator,
		Display:      display,
		mapView:      d.Map,
		form:         d.Form,
		theme:        d.Theme,
		logger:       logger,
	}, nil
}

// ErrControlDisabled is returned when a click lands on a busy control.
var ErrControlDisabled = errors.New("control is disabled")

// SubmitClicked handles the submit button. A busy button swallows the click
// with ErrControlDisabled, even when clicks arrive from several goroutines.
func (c *Controller) SubmitClicked(ctx context.Context) error {
	return c.Orchestrator.Submit(ctx)
}

// GeocodeClicked handles the address search button.
func (c *Controller) GeocodeClicked(ctx context.Context) error {
	return c.Reconciler.Geocode(ctx)
}

// TimezoneToggled re-renders the stored result for the toggle's new state.
func (c *Controller) TimezoneToggled() {
	c.Display.TimezoneToggled()
}

// ToggleTheme flips the page theme.
func (c *Controller) ToggleTheme(ctx context.Context) error {
	if c.theme == nil {
		return nil
	}
	if _, err := c.theme.Toggle(ctx); err != nil {
		c.logger.Warn("theme toggle failed", zap.Error(err))
		return err
	}
	return nil
}

// Resized records the new viewport width and has the map recompute its layout.
func (c *Controller) Resized(width int) {
	c.form.SetWidth(width)
	c.mapView.Resize()
}

// Result returns the stored sun-time result, if any.
func (c *Controller) Result() (models.SunTimeResult, bool) {
	return c.Orchestrator.store.Load()
}
