package mqtt

import "time"

// Telemetry is one sensor sample as published on stations/<id>/telemetry.
type Telemetry struct {
	StationID   string    `json:"station_id"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature *float64  `json:"temperature_c,omitempty"`
	Humidity    *float64  `json:"humidity_pct,omitempty"`
	Pressure    *float64  `json:"pressure_hpa,omitempty"`
	Sequence    *int      `json:"sequence,omitempty"`
}

// StationHealth is the retained liveness message on stations/<id>/health.
type StationHealth struct {
	StationID string    `json:"station_id"`
	LastSeen  time.Time `json:"last_seen"`
	Healthy   bool      `json:"healthy"`
}

func telemetryTopic(stationID string) string { return "stations/" + stationID + "/telemetry" }
func healthTopic(stationID string) string    { return "stations/" + stationID + "/health" }
