package forecast

import "fmt"

// FutureDays is the number of days after today shown on the panel.
const FutureDays = 5

// Response is the subset of the Open-Meteo forecast payload the station uses.
// All timestamps are unix seconds (timeformat=unixtime).
type Response struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	Timezone         string  `json:"timezone"`
	UTCOffsetSeconds int64   `json:"utc_offset_seconds"`
	Current          Current `json:"current"`
	Daily            Daily   `json:"daily"`
	Hourly           Hourly  `json:"hourly"`
}

type Current struct {
	Time                int64   `json:"time"`
	Temperature2m       float64 `json:"temperature_2m"`
	ApparentTemperature float64 `json:"apparent_temperature"`
	WeatherCode         int     `json:"weather_code"`
	WindSpeed10m        float64 `json:"wind_speed_10m"`
	WindDirection10m    float64 `json:"wind_direction_10m"`
}

// Daily holds parallel arrays; index 0 is today.
type Daily struct {
	Time             []int64   `json:"time"`
	Temperature2mMax []float64 `json:"temperature_2m_max"`
	Temperature2mMin []float64 `json:"temperature_2m_min"`
	Sunrise          []int64   `json:"sunrise"`
	Sunset           []int64   `json:"sunset"`
	WeatherCode      []int     `json:"weather_code"`
}

// Hourly holds parallel arrays starting at local midnight today.
type Hourly struct {
	Time       []int64   `json:"time"`
	DewPoint2m []float64 `json:"dew_point_2m"`
}

// Validate checks that the arrays cover today plus FutureDays and a full day of hours.
func (r *Response) Validate() error {
	days := FutureDays + 1
	daily := map[string]int{
		"daily.time":               len(r.Daily.Time),
		"daily.temperature_2m_max": len(r.Daily.Temperature2mMax),
		"daily.temperature_2m_min": len(r.Daily.Temperature2mMin),
		"daily.sunrise":            len(r.Daily.Sunrise),
		"daily.sunset":             len(r.Daily.Sunset),
		"daily.weather_code":       len(r.Daily.WeatherCode),
	}
	for field, n := range daily {
		if n < days {
			return fmt.Errorf("%w: %s has %d entries, need %d", ErrIncomplete, field, n, days)
		}
	}
	if n := len(r.Hourly.DewPoint2m); n < 24 {
		return fmt.Errorf("%w: hourly.dew_point_2m has %d entries, need 24", ErrIncomplete, n)
	}
	if r.Current.Time == 0 {
		return fmt.Errorf("%w: current.time missing", ErrIncomplete)
	}
	return nil
}
