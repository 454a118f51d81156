package models

// StatusSuccess is the status value of every successful backend payload.
const StatusSuccess = "success"

// StatusError is the status value the backend uses for failures.
const StatusError = "error"

// GeocodeResponse is the JSON body of POST /geocode.
type GeocodeResponse struct {
	Status    string  `json:"status"`
	Message   string  `json:"message,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// SunTimesResponse is the JSON body of POST /get_sun_times.
type SunTimesResponse struct {
	Status   string    `json:"status"`
	Message  string    `json:"message,omitempty"`
	Location *Location `json:"location,omitempty"`
	UTC      *SunTimes `json:"utc,omitempty"`
	Local    *SunTimes `json:"local,omitempty"`
}

// ErrorResponse is the failure body shared by the form endpoints.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
