// Package display holds the text and icons currently shown on the panel and
// turns them into draw commands.
package display

import (
	"fmt"

	"cloudpico-display/internal/forecast"
	"cloudpico-display/internal/format"
)

// View selects which layout is on the panel.
type View int

const (
	ViewForecast View = iota
	ViewSensor
)

func (v View) String() string {
	if v == ViewSensor {
		return "sensor"
	}
	return "forecast"
}

// MarshalText encodes the view by name.
func (v View) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// Toggle returns the other view.
func (v View) Toggle() View {
	if v == ViewSensor {
		return ViewForecast
	}
	return ViewSensor
}

// Today is the large banner on the left of the forecast view.
type Today struct {
	Date     string `json:"date"`
	Location string `json:"location"`
	Icon     int    `json:"icon"`
	Low      string `json:"low"`
	High     string `json:"high"`
	Now      string `json:"now"`
	Dew      string `json:"dew"`
	Feels    string `json:"feels"`
	Wind     string `json:"wind"`
	Sunrise  string `json:"sunrise"`
	Sunset   string `json:"sunset"`
}

// Future is one row of the five-day column.
type Future struct {
	Day  string `json:"day"`
	Icon int    `json:"icon"`
	Temp string `json:"temp"`
}

// Sensor is the banner of the sensor view.
type Sensor struct {
	Temperature string `json:"temperature"`
	Humidity    string `json:"humidity"`
}

// State is everything the panel shows. The zero value is not useful; use NewState.
type State struct {
	View   View                        `json:"view"`
	Today  Today                       `json:"today"`
	Future [forecast.FutureDays]Future `json:"future"`
	Sensor Sensor                      `json:"sensor"`
}

const placeholder = "--"

// NewState returns the boot layout: forecast view with placeholder text.
func NewState(location string) State {
	s := State{
		View: ViewForecast,
		Today: Today{
			Date:     "?",
			Location: location,
			Low:      placeholder,
			High:     placeholder,
			Now:      placeholder,
			Dew:      placeholder,
			Feels:    placeholder,
			Wind:     placeholder,
			Sunrise:  placeholder,
			Sunset:   placeholder,
		},
		Sensor: Sensor{Temperature: placeholder, Humidity: placeholder},
	}
	for i := range s.Future {
		s.Future[i] = Future{Day: "DAY", Temp: placeholder}
	}
	return s
}

// ToggleView flips between the forecast and sensor layouts.
func (s *State) ToggleView() {
	s.View = s.View.Toggle()
}

// UpdateToday fills the today banner from resp. On error the banner is unchanged.
func (s *State) UpdateToday(resp *forecast.Response, units format.Units) error {
	if resp == nil {
		return fmt.Errorf("update today: nil forecast")
	}
	offset := resp.UTCOffsetSeconds
	now := format.LocalTime(resp.Current.Time, offset)

	icon, err := format.IconIndex(resp.Current.WeatherCode)
	if err != nil {
		return fmt.Errorf("update today: %w", err)
	}
	if len(resp.Daily.Temperature2mMin) < 1 || len(resp.Daily.Temperature2mMax) < 1 ||
		len(resp.Daily.Sunrise) < 1 || len(resp.Daily.Sunset) < 1 {
		return fmt.Errorf("update today: %w: no entry for day 0", forecast.ErrIncomplete)
	}
	hour := now.Hour()
	if hour >= len(resp.Hourly.DewPoint2m) {
		return fmt.Errorf("update today: %w: no dew point for hour %d", forecast.ErrIncomplete, hour)
	}

	s.Today = Today{
		Date:     format.DateText(now),
		Location: s.Today.Location,
		Icon:     icon,
		Low:      format.TemperatureText(resp.Daily.Temperature2mMin[0], units),
		High:     format.TemperatureText(resp.Daily.Temperature2mMax[0], units),
		Now:      format.TemperatureText(resp.Current.Temperature2m, units),
		Dew:      format.TemperatureText(resp.Hourly.DewPoint2m[hour], units),
		Feels:    format.TemperatureText(resp.Current.ApparentTemperature, units),
		Wind:     format.WindText(resp.Current.WindSpeed10m, resp.Current.WindDirection10m, units),
		Sunrise:  format.SunriseText(format.LocalTime(resp.Daily.Sunrise[0], offset)),
		Sunset:   format.SunsetText(format.LocalTime(resp.Daily.Sunset[0], offset)),
	}
	return nil
}

// UpdateFuture fills the five future banners from day indices 1..5.
// On error no banner is changed.
func (s *State) UpdateFuture(resp *forecast.Response, units format.Units) error {
	if resp == nil {
		return fmt.Errorf("update future: nil forecast")
	}
	d := resp.Daily
	var next [forecast.FutureDays]Future
	for i := range next {
		day := i + 1
		if day >= len(d.Time) || day >= len(d.WeatherCode) || day >= len(d.Temperature2mMax) {
			return fmt.Errorf("update future: %w: no entry for day %d", forecast.ErrIncomplete, day)
		}
		icon, err := format.IconIndex(d.WeatherCode[day])
		if err != nil {
			return fmt.Errorf("update future day %d: %w", day, err)
		}
		next[i] = Future{
			Day:  format.WeekdayAbbrev(format.LocalTime(d.Time[day], resp.UTCOffsetSeconds)),
			Icon: icon,
			Temp: format.TemperatureText(d.Temperature2mMax[day], units),
		}
	}
	s.Future = next
	return nil
}

// UpdateSensor writes an already calibrated reading into the sensor banner.
func (s *State) UpdateSensor(celsius, humidityPct float64, units format.Units) {
	s.Sensor = Sensor{
		Temperature: format.SensorTemperatureText(celsius, units),
		Humidity:    format.HumidityText(humidityPct),
	}
}
