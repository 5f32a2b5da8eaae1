// Package station runs the weather/sensor display loop.
package station

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"sync/atomic"
	"time"

	"cloudpico-display/internal/buttons"
	"cloudpico-display/internal/display"
	"cloudpico-display/internal/epd"
	"cloudpico-display/internal/forecast"
	"cloudpico-display/internal/format"
	"cloudpico-display/internal/sensor"
)

// Forecaster fetches one forecast.
type Forecaster interface {
	Fetch(ctx context.Context) (*forecast.Response, error)
}

// Drawer rasterises draw commands.
type Drawer interface {
	Draw(cmds []display.Command) *image.Gray
}

// Sink receives every calibrated sensor reading. Failures are logged, never fatal.
type Sink interface {
	Name() string
	Record(ctx context.Context, r sensor.Reading) error
}

// Config holds the loop's tunables.
type Config struct {
	Units              format.Units
	Location           string
	WeatherInterval    time.Duration
	SensorInterval     time.Duration
	LoopInterval       time.Duration
	ErrorBackoff       time.Duration
	RefreshSettle      time.Duration
	SensorRefreshEvery int
	TempOffsetC        float64
	ResetOnError       bool
}

// DefaultConfig mirrors the device defaults.
func DefaultConfig() Config {
	return Config{
		Units:              format.Imperial,
		WeatherInterval:    15 * time.Minute,
		SensorInterval:     5 * time.Second,
		LoopInterval:       50 * time.Millisecond,
		ErrorBackoff:       2 * time.Second,
		RefreshSettle:      time.Second,
		SensorRefreshEvery: 60,
		TempOffsetC:        -2,
	}
}

// Deps are the station's collaborators. Clock and Logger may be nil.
type Deps struct {
	Forecaster Forecaster
	Sensor     sensor.Sensor
	Buttons    buttons.Poller
	Panel      epd.Panel
	Drawer     Drawer
	Sinks      []Sink
	Clock      Clock
	Logger     *slog.Logger
}

// Station owns the display state and both clocks. It is driven by a single
// goroutine; only Snapshot may be called concurrently.
type Station struct {
	cfg  Config
	deps Deps
	log  *slog.Logger

	state        display.State
	weather      Deadline
	sensor       Deadline
	firstRun     bool
	sensorPolls  int
	lastFrame    []byte
	lastFrameAt  time.Time
	lastFetchAt  time.Time
	lastReading  *sensor.Reading
	lastErr      error
	lastErrAt    time.Time
	errorCount   int
	refreshCount int

	snapshot atomic.Pointer[Snapshot]
}

func New(cfg Config, deps Deps) (*Station, error) {
	if deps.Forecaster == nil || deps.Panel == nil || deps.Drawer == nil {
		return nil, errors.New("station: forecaster, panel and drawer are required")
	}
	if deps.Sensor == nil {
		deps.Sensor = sensor.None{}
	}
	if deps.Buttons == nil {
		deps.Buttons = buttons.None{}
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.WeatherInterval <= 0 || cfg.SensorInterval <= 0 {
		return nil, fmt.Errorf("station: intervals must be positive (weather=%s sensor=%s)", cfg.WeatherInterval, cfg.SensorInterval)
	}
	if cfg.SensorRefreshEvery <= 0 {
		cfg.SensorRefreshEvery = 1
	}

	now := deps.Clock.Now()
	s := &Station{
		cfg:      cfg,
		deps:     deps,
		log:      deps.Logger.With("component", "station"),
		state:    display.NewState(cfg.Location),
		weather:  NewDeadline(now, cfg.WeatherInterval),
		sensor:   NewDeadline(now, cfg.SensorInterval),
		firstRun: true,
	}
	s.publish()
	return s, nil
}

// Run loops Step until ctx is done. Iteration errors are logged and followed
// by the backoff sleep; with ResetOnError the first error is returned instead.
func (s *Station) Run(ctx context.Context) error {
	s.log.Info("station loop started",
		"weather_interval", s.cfg.WeatherInterval.String(),
		"sensor_interval", s.cfg.SensorInterval.String(),
		"units", s.cfg.Units.String(),
	)
	for {
		if ctx.Err() != nil {
			s.log.Info("station loop stopped")
			return nil
		}

		err := s.Step(ctx)
		if err != nil && ctx.Err() == nil {
			s.recordError(err)
			if s.cfg.ResetOnError {
				return err
			}
			_ = s.deps.Clock.Sleep(ctx, s.cfg.ErrorBackoff)
			continue
		}
		_ = s.deps.Clock.Sleep(ctx, s.cfg.LoopInterval)
	}
}

// Step runs one iteration: buttons, then the forecast if due, then the sensor if due.
func (s *Station) Step(ctx context.Context) error {
	pressed, err := s.deps.Buttons.AnyPressed()
	if err != nil {
		return phaseErr(PhaseButtons, err)
	}
	if pressed {
		s.state.ToggleView()
		s.log.Info("view toggled", "view", s.state.View.String())
		if err := s.refresh(ctx); err != nil {
			return err
		}
	}

	if s.firstRun || s.weather.Due(s.deps.Clock.Now()) {
		if err := s.updateForecast(ctx); err != nil {
			return err
		}
		if err := s.refresh(ctx); err != nil {
			return err
		}
		s.firstRun = false
		s.weather.Advance()
		s.publish()
		s.log.Debug("next forecast", "at", s.weather.Next())
	}

	if s.sensor.Due(s.deps.Clock.Now()) {
		if err := s.pollSensor(ctx); err != nil {
			return err
		}
		if s.state.View == display.ViewSensor {
			s.sensorPolls++
			if s.sensorPolls >= s.cfg.SensorRefreshEvery {
				s.sensorPolls = 0
				if err := s.refresh(ctx); err != nil {
					return err
				}
			}
		}
		s.sensor.Advance()
		s.publish()
	}
	return nil
}

func (s *Station) updateForecast(ctx context.Context) error {
	s.log.Info("fetching forecast")
	resp, err := s.deps.Forecaster.Fetch(ctx)
	if err != nil {
		if forecast.IsDecodeError(err) {
			return phaseErr(PhaseDecode, err)
		}
		return phaseErr(PhaseFetch, err)
	}

	// Work on a copy so a failure halfway leaves the panel state untouched.
	next := s.state
	if err := next.UpdateToday(resp, s.cfg.Units); err != nil {
		return phaseErr(PhaseFormat, err)
	}
	if err := next.UpdateFuture(resp, s.cfg.Units); err != nil {
		return phaseErr(PhaseFormat, err)
	}
	s.state = next
	s.lastFetchAt = s.deps.Clock.Now()
	s.log.Info("forecast updated", "date", s.state.Today.Date, "now", s.state.Today.Now)
	return nil
}

func (s *Station) pollSensor(ctx context.Context) error {
	r, err := s.deps.Sensor.Read(ctx)
	if errors.Is(err, sensor.ErrDisabled) {
		return nil
	}
	if err != nil {
		return phaseErr(PhaseSensor, err)
	}
	r.TemperatureC += s.cfg.TempOffsetC
	if r.Time.IsZero() {
		r.Time = s.deps.Clock.Now()
	}
	s.state.UpdateSensor(r.TemperatureC, r.HumidityPct, s.cfg.Units)
	s.lastReading = &r
	s.log.Debug("sensor read", "temperature", s.state.Sensor.Temperature, "humidity", s.state.Sensor.Humidity)

	for _, sink := range s.deps.Sinks {
		if err := sink.Record(ctx, r); err != nil {
			s.log.Warn("sensor sink failed", "sink", sink.Name(), "error", err)
		}
	}
	s.publish()
	return nil
}

// refresh draws the current state and pushes it to the panel, waiting for
// the panel's refresh time plus the settle delay before and after.
func (s *Station) refresh(ctx context.Context) error {
	frame := s.deps.Drawer.Draw(display.Render(s.state))

	if err := s.deps.Clock.Sleep(ctx, s.deps.Panel.TimeToRefresh()+s.cfg.RefreshSettle); err != nil {
		return err
	}
	if err := s.deps.Panel.Refresh(ctx, frame); err != nil {
		return phaseErr(PhaseRefresh, err)
	}
	s.refreshCount++
	s.lastFrameAt = s.deps.Clock.Now()

	var buf bytes.Buffer
	if err := png.Encode(&buf, frame); err != nil {
		s.log.Warn("encode preview failed", "error", err)
	} else {
		s.lastFrame = buf.Bytes()
	}
	s.publish()

	return s.deps.Clock.Sleep(ctx, s.deps.Panel.TimeToRefresh()+s.cfg.RefreshSettle)
}

func (s *Station) recordError(err error) {
	phase := PhaseOf(err)
	s.errorCount++
	s.lastErr = err
	s.lastErrAt = s.deps.Clock.Now()
	s.log.Error("loop iteration failed",
		"phase", string(phase),
		"error", err,
		"backoff", s.cfg.ErrorBackoff.String(),
		"reset_on_error", s.cfg.ResetOnError,
	)
	s.publish()
}

// State returns a copy of the current display state.
func (s *Station) State() display.State { return s.state }
