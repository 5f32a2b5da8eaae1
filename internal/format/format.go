// Package format turns raw forecast and sensor values into the strings shown on the panel.
// Every function here is pure.
package format

import (
	"fmt"
	"strings"
)

// Units selects how temperatures and wind speeds are rendered.
type Units int

const (
	Metric Units = iota
	Imperial
)

func (u Units) String() string {
	if u == Imperial {
		return "imperial"
	}
	return "metric"
}

// ParseUnits accepts "metric" or "imperial" (case-insensitive).
func ParseUnits(s string) (Units, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "metric":
		return Metric, nil
	case "imperial":
		return Imperial, nil
	default:
		return Metric, fmt.Errorf("invalid units %q (allowed: metric, imperial)", s)
	}
}

const kmhToMph = 0.621371

// Fahrenheit converts a Celsius value.
func Fahrenheit(celsius float64) float64 {
	return 32.0 + 1.8*celsius
}

// ConvertTemperature returns celsius in the requested units.
func ConvertTemperature(celsius float64, units Units) float64 {
	if units == Imperial {
		return Fahrenheit(celsius)
	}
	return celsius
}

// TemperatureText renders a forecast temperature with no decimals, e.g. "68F" or "20C".
func TemperatureText(celsius float64, units Units) string {
	if units == Imperial {
		return fmt.Sprintf("%.0fF", Fahrenheit(celsius))
	}
	return fmt.Sprintf("%.0fC", celsius)
}

// CompassPoint maps a wind direction in degrees to one of eight compass points.
// The bands are checked from widest to narrowest and the last match wins, so
// the exact boundaries (22, 67, 112, ...) fall into the next band up.
func CompassPoint(deg float64) string {
	dir := "N"
	if deg < 337 {
		dir = "NW"
	}
	if deg < 293 {
		dir = "W"
	}
	if deg < 247 {
		dir = "SW"
	}
	if deg < 202 {
		dir = "S"
	}
	if deg < 157 {
		dir = "SE"
	}
	if deg < 112 {
		dir = "E"
	}
	if deg < 67 {
		dir = "NE"
	}
	if deg < 22 {
		dir = "N"
	}
	return dir
}

// WindText renders direction and speed, e.g. "NW 12mph". Speed comes in km/h.
func WindText(speedKmh, deg float64, units Units) string {
	if units == Imperial {
		return fmt.Sprintf("%s %.0fmph", CompassPoint(deg), kmhToMph*speedKmh)
	}
	return fmt.Sprintf("%s %.0fkmh", CompassPoint(deg), speedKmh)
}

// SensorTemperatureText renders an onboard reading with one decimal, e.g. "71.6°F".
func SensorTemperatureText(celsius float64, units Units) string {
	if units == Imperial {
		return fmt.Sprintf("%.1f°F", Fahrenheit(celsius))
	}
	return fmt.Sprintf("%.1f°C", celsius)
}

// HumidityText renders relative humidity with one decimal, e.g. "41.5%".
func HumidityText(pct float64) string {
	return fmt.Sprintf("%.1f%%", pct)
}

const maxCityLen = 16

// LocationText is the city name (truncated) or the coordinates when no city is set.
func LocationText(city string, lat, lon float64) string {
	city = strings.TrimSpace(city)
	if city == "" {
		return fmt.Sprintf("(%g,%g)", lat, lon)
	}
	r := []rune(city)
	if len(r) > maxCityLen {
		r = r[:maxCityLen]
	}
	return string(r)
}
