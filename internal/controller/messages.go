package controller

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// User-facing notification texts.
const (
	msgEmptyAddress       = "Please enter an address to search"
	msgInvalidCoordinates = "Please enter valid coordinates or search for a location"
	msgMissingDate        = "Please select a date"
	msgGeocodeFailed      = "Failed to find the address"
	msgSunTimesFailed     = "Failed to calculate sun times"
	msgNetwork            = "Network error. Please try again"
	msgSunTimesOK         = "Sun times calculated successfully"
	msgLocationFound      = "Location found: "
)

// ErrValidation marks input rejected before any request was made.
var ErrValidation = errors.New("validation failed")

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// parseCoordinate accepts any finite decimal number; range checks are left to
// the backend.
func parseCoordinate(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// firstSegment returns the text before the first comma of a geocoded label.
func firstSegment(label string) string {
	if i := strings.Index(label, ","); i >= 0 {
		return label[:i]
	}
	return label
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
