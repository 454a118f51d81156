// Package suncalc computes sunrise and sunset for a coordinate and calendar
// date, in UTC and in the timezone that governs the coordinate.
package suncalc

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/ringsaturn/tzf"
	"github.com/sj14/astral/pkg/astral"
	"go.uber.org/zap"

	"github.com/kjstillabower/sunrise-lookup/internal/models"
)

// FallbackTimezone is used when no timezone can be resolved for a coordinate.
const FallbackTimezone = "UTC"

// TimeLayout is the clock format of sun times in form responses.
const TimeLayout = "15:04:05"

// TimezoneFinder resolves an IANA timezone name for a coordinate. tzf.F
// satisfies it; an empty name means no zone was found.
type TimezoneFinder interface {
	GetTimezoneName(lng, lat float64) string
}

// NewDefaultFinder loads the embedded timezone boundary data.
func NewDefaultFinder() (TimezoneFinder, error) {
	f, err := tzf.NewDefaultFinder()
	if err != nil {
		return nil, fmt.Errorf("load timezone data: %w", err)
	}
	return f, nil
}

// Events are one day's sunrise, solar noon and sunset as instants.
type Events struct {
	Sunrise time.Time
	Noon    time.Time
	Sunset  time.Time
}

// Result is the computation for one coordinate and date. UTC holds the events
// of the UTC calendar date; Local holds the events of the same calendar date
// in Timezone, which may be a different pair of instants.
type Result struct {
	Date     time.Time
	Timezone string
	UTC      Events
	Local    Events
}

// Zone loads Timezone, falling back to UTC.
func (r Result) Zone() *time.Location {
	return mustLoad(r.Timezone)
}

// Form renders r in the shape of the form endpoint: clock times only.
func (r Result) Form() (utc, local models.SunTimes) {
	loc := mustLoad(r.Timezone)
	date := r.Date.Format("2006-01-02")
	utc = models.SunTimes{
		Sunrise:  r.UTC.Sunrise.UTC().Format(TimeLayout),
		Sunset:   r.UTC.Sunset.UTC().Format(TimeLayout),
		Date:     date,
		Timezone: FallbackTimezone,
	}
	local = models.SunTimes{
		Sunrise:  r.Local.Sunrise.In(loc).Format(TimeLayout),
		Sunset:   r.Local.Sunset.In(loc).Format(TimeLayout),
		Date:     date,
		Timezone: r.Timezone,
	}
	return utc, local
}

// Calculator resolves timezones and computes sun events, memoizing results
// per coordinate and date.
type Calculator struct {
	finder TimezoneFinder
	memo   *gocache.Cache
	logger *zap.Logger
}

// NewCalculator returns a Calculator. finder may be nil, in which case every
// coordinate resolves to FallbackTimezone.
func NewCalculator(finder TimezoneFinder, logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{
		finder: finder,
		memo:   gocache.New(6*time.Hour, 30*time.Minute),
		logger: logger,
	}
}

// Timezone returns the IANA zone for at, or FallbackTimezone when the finder
// has no answer or the zone is unknown to the local tz database.
func (c *Calculator) Timezone(at models.Coordinates) string {
	if c.finder == nil {
		return FallbackTimezone
	}
	name := c.finder.GetTimezoneName(at.Longitude, at.Latitude)
	if name == "" {
		c.logger.Warn("could not determine timezone",
			zap.Float64("lat", at.Latitude),
			zap.Float64("lng", at.Longitude))
		return FallbackTimezone
	}
	if _, err := time.LoadLocation(name); err != nil {
		c.logger.Error("timezone not in tz database", zap.String("timezone", name), zap.Error(err))
		return FallbackTimezone
	}
	return name
}

// Compute returns sunrise and sunset for the calendar date of date (its
// year, month and day; the clock and zone are ignored). Days on which the sun
// never rises or never sets are an error.
func (c *Calculator) Compute(at models.Coordinates, date time.Time) (Result, error) {
	y, m, d := date.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	key := fmt.Sprintf("%.6f,%.6f,%s", at.Latitude, at.Longitude, day.Format("2006-01-02"))
	if v, ok := c.memo.Get(key); ok {
		return v.(Result), nil
	}

	tz := c.Timezone(at)
	loc := mustLoad(tz)
	observer := astral.Observer{Latitude: at.Latitude, Longitude: at.Longitude}

	utcEvents, err := eventsOn(observer, day, time.UTC)
	if err != nil {
		return Result{}, err
	}
	localEvents, err := eventsOn(observer, day, loc)
	if err != nil {
		return Result{}, err
	}

	r := Result{Date: day, Timezone: tz, UTC: utcEvents, Local: localEvents}
	c.memo.SetDefault(key, r)
	c.logger.Debug("computed sun times",
		zap.String("key", key),
		zap.String("timezone", tz),
		zap.Time("sunrise_utc", utcEvents.Sunrise),
		zap.Time("sunset_utc", utcEvents.Sunset))
	return r, nil
}

func eventsOn(observer astral.Observer, day time.Time, loc *time.Location) (Events, error) {
	sunrise, err := onLocalDate(observer, day, loc, astral.Sunrise)
	if err != nil {
		return Events{}, fmt.Errorf("sunrise: %w", err)
	}
	sunset, err := onLocalDate(observer, day, loc, astral.Sunset)
	if err != nil {
		return Events{}, fmt.Errorf("sunset: %w", err)
	}
	noon, err := onLocalDate(observer, day, loc, solarNoon)
	if err != nil {
		return Events{}, fmt.Errorf("noon: %w", err)
	}
	return Events{Sunrise: sunrise, Noon: noon, Sunset: sunset}, nil
}

// solarNoon is the midpoint of one solar day's sunrise and sunset, which is
// within seconds of the meridian transit.
func solarNoon(observer astral.Observer, day time.Time) (time.Time, error) {
	rise, err := astral.Sunrise(observer, day)
	if err != nil {
		return time.Time{}, err
	}
	set, err := astral.Sunset(observer, day)
	if err != nil {
		return time.Time{}, err
	}
	if set.Before(rise) {
		set = set.Add(24 * time.Hour)
	}
	return rise.Add(set.Sub(rise) / 2), nil
}

// onLocalDate computes event for day and, when the instant falls on a
// neighbouring calendar date in loc, recomputes for the adjacent day so the
// result lies on day as seen in loc.
func onLocalDate(observer astral.Observer, day time.Time, loc *time.Location, event func(astral.Observer, time.Time) (time.Time, error)) (time.Time, error) {
	t, err := event(observer, day)
	if err != nil {
		return time.Time{}, err
	}
	switch got := civilDate(t.In(loc)); {
	case got.Before(day):
		return event(observer, day.AddDate(0, 0, 1))
	case got.After(day):
		return event(observer, day.AddDate(0, 0, -1))
	}
	return t, nil
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
