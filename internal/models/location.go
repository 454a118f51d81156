package models

import (
	"fmt"
	"math"
	"strconv"
)

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the pair lies within [-90,90] x [-180,180].
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// Fixed formats both values with six decimals, the precision used for form fields
// filled from map clicks.
func (c Coordinates) Fixed() (lat, lng string) {
	return strconv.FormatFloat(c.Latitude, 'f', 6, 64), strconv.FormatFloat(c.Longitude, 'f', 6, 64)
}

// Shortest formats both values with the fewest digits that round-trip (48.8566, not 48.856600).
func (c Coordinates) Shortest() (lat, lng string) {
	return strconv.FormatFloat(c.Latitude, 'f', -1, 64), strconv.FormatFloat(c.Longitude, 'f', -1, 64)
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.6f, %.6f", c.Latitude, c.Longitude)
}

// GeocodeResult is a successful address lookup.
type GeocodeResult struct {
	Coordinates
	Address string `json:"address"`
}
