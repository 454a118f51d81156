package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kjstillabower/sunrise-lookup/internal/controller"
	"github.com/kjstillabower/sunrise-lookup/internal/models"
	"github.com/kjstillabower/sunrise-lookup/internal/notify"
	"github.com/kjstillabower/sunrise-lookup/internal/ui"
)

// ErrUsage is returned for malformed commands.
var ErrUsage = errors.New("usage")

// Dismisser removes notifications before they expire; notify.Emitter satisfies it.
type Dismisser interface {
	Dismiss(id string) bool
	Active() []notify.Notification
}

// REPL reads commands and turns them into page edits and controller events.
type REPL struct {
	ctrl          *controller.Controller
	page          *ui.Page
	widget        *Widget
	notifications Dismisser
	out           *Output
	logger        *zap.Logger

	// inflight tracks geocode and submit calls started from the prompt.
	inflight sync.WaitGroup
}

// NewREPL builds a REPL. logger may be nil.
func NewREPL(ctrl *controller.Controller, page *ui.Page, widget *Widget, notifications Dismisser, out *Output, logger *zap.Logger) *REPL {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &REPL{
		ctrl:          ctrl,
		page:          page,
		widget:        widget,
		notifications: notifications,
		out:           out,
		logger:        logger,
	}
}

type command struct {
	usage string
	help  string
	run   func(r *REPL, ctx context.Context, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"click":   {"click LAT LNG", "select a point on the map", (*REPL).cmdClick},
		"address": {"address TEXT", "type into the address field", (*REPL).cmdAddress},
		"geocode": {"geocode", "search for the typed address", (*REPL).cmdGeocode},
		"lat":     {"lat VALUE", "type into the latitude field", (*REPL).cmdLat},
		"lng":     {"lng VALUE", "type into the longitude field", (*REPL).cmdLng},
		"date":    {"date YYYY-MM-DD", "set the date field", (*REPL).cmdDate},
		"submit":  {"submit", "fetch sun times for the current fields", (*REPL).cmdSubmit},
		"local":   {"local", "switch between UTC and local time", (*REPL).cmdLocal},
		"theme":   {"theme", "switch between dark and light", (*REPL).cmdTheme},
		"key":     {"key CHORD", "press a shortcut such as alt+t or alt+s", (*REPL).cmdKey},
		"resize":  {"resize WIDTH", "change the viewport width", (*REPL).cmdResize},
		"dismiss": {"dismiss [ID]", "close one notification, or all of them", (*REPL).cmdDismiss},
		"show":    {"show", "print the form and results panel", (*REPL).cmdShow},
		"help":    {"help", "list commands", (*REPL).cmdHelp},
	}
}

// Run reads commands from in until quit, EOF or ctx is done, then waits for
// background lookups to finish.
func (r *REPL) Run(ctx context.Context, in io.Reader) error {
	defer r.Wait()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-stop:
				return
			}
		}
		scanErr <- sc.Err()
	}()

	r.out.Printf("Type 'help' for commands.")
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			quit, err := r.Exec(ctx, line)
			if err != nil {
				r.out.Printf("%v", err)
			}
			if quit {
				return nil
			}
		}
	}
}

// Exec runs one command line. quit is true for quit/exit.
func (r *REPL) Exec(ctx context.Context, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	name := strings.ToLower(fields[0])
	if name == "quit" || name == "exit" {
		return true, nil
	}
	cmd, ok := commands[name]
	if !ok {
		return false, fmt.Errorf("unknown command %q (try help)", name)
	}
	return false, cmd.run(r, ctx, fields[1:])
}

// Wait blocks until every background lookup has returned.
func (r *REPL) Wait() {
	r.inflight.Wait()
}

// background runs a network-bound controller call off the prompt goroutine.
// Outcomes reach the user through notifications, so errors are only logged.
func (r *REPL) background(ctx context.Context, op string, fn func(context.Context) error) {
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		err := fn(ctx)
		switch {
		case err == nil:
		case errors.Is(err, controller.ErrControlDisabled):
			r.out.Printf("%s is already running", op)
		default:
			r.logger.Debug("command finished with error", zap.String("op", op), zap.Error(err))
		}
	}()
}

func usage(name string) error {
	return fmt.Errorf("%w: %s", ErrUsage, commands[name].usage)
}

func (r *REPL) cmdClick(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usage("click")
	}
	lat, errLat := strconv.ParseFloat(args[0], 64)
	lng, errLng := strconv.ParseFloat(args[1], 64)
	if errLat != nil || errLng != nil {
		return usage("click")
	}
	r.widget.Click(models.Coordinates{Latitude: lat, Longitude: lng})
	return nil
}

func (r *REPL) cmdAddress(ctx context.Context, args []string) error {
	r.page.SetAddress(strings.Join(args, " "))
	return nil
}

func (r *REPL) cmdGeocode(ctx context.Context, args []string) error {
	r.background(ctx, "geocode", r.ctrl.GeocodeClicked)
	return nil
}

func (r *REPL) cmdLat(ctx context.Context, args []string) error {
	r.page.SetLatitude(strings.Join(args, " "))
	return nil
}

func (r *REPL) cmdLng(ctx context.Context, args []string) error {
	r.page.SetLongitude(strings.Join(args, " "))
	return nil
}

func (r *REPL) cmdDate(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("date")
	}
	r.page.SetDate(args[0])
	return nil
}

func (r *REPL) cmdSubmit(ctx context.Context, args []string) error {
	r.background(ctx, "submit", r.ctrl.SubmitClicked)
	return nil
}

func (r *REPL) cmdLocal(ctx context.Context, args []string) error {
	local := !r.page.Toggle.Checked()
	r.page.Toggle.SetChecked(local)
	r.ctrl.TimezoneToggled()
	if local {
		r.out.Printf("showing local time")
	} else {
		r.out.Printf("showing UTC")
	}
	return nil
}

func (r *REPL) cmdTheme(ctx context.Context, args []string) error {
	return r.ctrl.ToggleTheme(ctx)
}

func (r *REPL) cmdKey(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("key")
	}
	k := controller.ParseKey(args[0])
	// alt+s may start a lookup, so every chord runs in the background.
	r.background(ctx, "key "+args[0], func(ctx context.Context) error {
		handled, err := r.ctrl.KeyDown(ctx, k)
		if !handled && err == nil {
			r.out.Printf("no binding for %s", args[0])
		}
		return err
	})
	return nil
}

func (r *REPL) cmdResize(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("resize")
	}
	w, err := strconv.Atoi(args[0])
	if err != nil || w <= 0 {
		return usage("resize")
	}
	r.ctrl.Resized(w)
	return nil
}

func (r *REPL) cmdDismiss(ctx context.Context, args []string) error {
	if len(args) > 0 {
		if !r.notifications.Dismiss(args[0]) {
			return fmt.Errorf("no notification %q", args[0])
		}
		return nil
	}
	for _, n := range r.notifications.Active() {
		r.notifications.Dismiss(n.ID)
	}
	return nil
}

func (r *REPL) cmdShow(ctx context.Context, args []string) error {
	r.out.Printf("address:   %s", r.page.Address())
	r.out.Printf("latitude:  %s", r.page.Latitude())
	r.out.Printf("longitude: %s", r.page.Longitude())
	r.out.Printf("date:      %s", r.page.Date())
	r.out.Printf("buttons:   [%s]%s [%s]%s",
		r.page.GeocodeButton.Label(), disabledMark(r.page.GeocodeButton.Enabled()),
		r.page.SubmitButton.Label(), disabledMark(r.page.SubmitButton.Enabled()))
	r.out.Printf("theme:     %s", r.page.ThemeAttribute())

	v := r.page.Results.Snapshot()
	if !v.Visible {
		r.out.Printf("results:   (none yet)")
		return nil
	}
	r.out.Printf("location:  %s (%s)", v.LocationName, v.Coordinates)
	r.out.Printf("sunrise:   %s", v.Sunrise)
	r.out.Printf("sunset:    %s", v.Sunset)
	r.out.Printf("timezone:  %s [%s]", v.Timezone, r.page.Toggle.Label())
	for _, n := range r.notifications.Active() {
		r.out.Printf("notice %s: %s", n.ID, n.Message)
	}
	return nil
}

func disabledMark(enabled bool) string {
	if enabled {
		return ""
	}
	return " (busy)"
}

func (r *REPL) cmdHelp(ctx context.Context, args []string) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r.out.Printf("  %-18s %s", commands[name].usage, commands[name].help)
	}
	r.out.Printf("  %-18s %s", "quit", "wait for running lookups and exit")
	return nil
}
