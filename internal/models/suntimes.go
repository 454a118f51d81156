package models

// Location describes the place a sun-time result was computed for.
type Location struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Coordinates returns the location's position.
func (l Location) Coordinates() Coordinates {
	return Coordinates{Latitude: l.Latitude, Longitude: l.Longitude}
}

// SunTimes holds preformatted sunrise/sunset strings for one timezone.
type SunTimes struct {
	Sunrise  string `json:"sunrise"`
	Sunset   string `json:"sunset"`
	Date     string `json:"date,omitempty"`
	Timezone string `json:"timezone"`
}

// SunTimeResult is one successful sun-time lookup in both UTC and the location's
// local timezone. A new lookup replaces it wholesale.
type SunTimeResult struct {
	Location Location `json:"location"`
	UTC      SunTimes `json:"utc"`
	Local    SunTimes `json:"local"`
}

// Times selects the local or UTC view.
func (r SunTimeResult) Times(local bool) SunTimes {
	if local {
		return r.Local
	}
	return r.UTC
}
