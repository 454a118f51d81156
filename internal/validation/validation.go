package validation

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// MaxAddressLen bounds free-text addresses forwarded to the geocoder, in runes.
const MaxAddressLen = 256

var (
	// ErrAddressEmpty is returned when the address is empty or whitespace-only after trim.
	ErrAddressEmpty = errors.New("address is required")
	// ErrAddressTooLong is returned when the address exceeds the maximum length.
	ErrAddressTooLong = errors.New("address too long")
	// ErrAddressInvalidChars is returned when the address contains control characters.
	ErrAddressInvalidChars = errors.New("address contains invalid characters")

	// ErrCoordinatesMissing is returned when latitude or longitude is absent.
	ErrCoordinatesMissing = errors.New("latitude and longitude are required")
	// ErrCoordinatesNotNumeric is returned when latitude or longitude is not a finite number.
	ErrCoordinatesNotNumeric = errors.New("latitude and longitude must be numeric values")
	// ErrCoordinatesOutOfRange is returned when a value falls outside [-90,90] x [-180,180].
	ErrCoordinatesOutOfRange = errors.New("latitude must be between -90 and 90, longitude between -180 and 180")

	// ErrDateFormat is returned when a date is not YYYY-MM-DD.
	ErrDateFormat = errors.New("invalid date format, use YYYY-MM-DD")
)

// ValidateAddress trims the input, enforces maxLen (in runes, 0 means no limit)
// and rejects control characters. Returns the trimmed address.
func ValidateAddress(input string, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	r := []rune(s)
	if len(r) == 0 {
		return "", ErrAddressEmpty
	}
	if maxLen > 0 && len(r) > maxLen {
		return "", ErrAddressTooLong
	}
	for _, c := range r {
		if unicode.IsControl(c) {
			return "", ErrAddressInvalidChars
		}
	}
	return s, nil
}

// ParseCoordinates parses decimal-degree strings and checks their range.
func ParseCoordinates(lat, lng string) (latitude, longitude float64, err error) {
	lat, lng = strings.TrimSpace(lat), strings.TrimSpace(lng)
	if lat == "" || lng == "" {
		return 0, 0, ErrCoordinatesMissing
	}
	latitude, err = parseFinite(lat)
	if err != nil {
		return 0, 0, err
	}
	longitude, err = parseFinite(lng)
	if err != nil {
		return 0, 0, err
	}
	if latitude < -90 || latitude > 90 || longitude < -180 || longitude > 180 {
		return 0, 0, ErrCoordinatesOutOfRange
	}
	return latitude, longitude, nil
}

func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrCoordinatesNotNumeric, s)
	}
	return v, nil
}

// ParseDate parses a YYYY-MM-DD date as midnight UTC. An empty string means
// today's date in now's location.
func ParseDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrDateFormat, s)
	}
	return t, nil
}
