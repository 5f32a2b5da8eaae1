// Package sensor reads the onboard temperature/humidity sensor.
package sensor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"
)

// ErrDisabled is returned by a sensor configured as "none".
var ErrDisabled = errors.New("sensor disabled")

// Reading is one raw, uncalibrated measurement.
type Reading struct {
	Time         time.Time
	TemperatureC float64
	HumidityPct  float64
	PressureHPa  float64
}

type Sensor interface {
	Read(ctx context.Context) (Reading, error)
	Close() error
}

// BME280 reads a Bosch BME280 over I²C.
type BME280 struct {
	bus i2c.BusCloser
	dev *bmxx80.Dev
	now func() time.Time
}

// OpenBME280 opens the named I²C bus ("" = default, usually /dev/i2c-1).
func OpenBME280(busName string, addr uint16) (*BME280, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c %q: %w", busName, err)
	}
	dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("bme280 at 0x%02x: %w", addr, err)
	}
	return &BME280{bus: bus, dev: dev, now: time.Now}, nil
}

func (s *BME280) Read(ctx context.Context) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, err
	}
	var env physic.Env
	if err := s.dev.Sense(&env); err != nil {
		return Reading{}, fmt.Errorf("bme280 sense: %w", err)
	}
	return fromEnv(s.now(), env), nil
}

func (s *BME280) Close() error {
	if s == nil || s.dev == nil {
		return nil
	}
	haltErr := s.dev.Halt()
	busErr := s.bus.Close()
	s.dev = nil
	return errors.Join(haltErr, busErr)
}

// fromEnv converts periph units: humidity is fixed point at 0.00001 %rH,
// pressure is in nano Pascal.
func fromEnv(at time.Time, env physic.Env) Reading {
	return Reading{
		Time:         at,
		TemperatureC: env.Temperature.Celsius(),
		HumidityPct:  float64(env.Humidity) / 100000.0,
		PressureHPa:  float64(env.Pressure) / 1e11,
	}
}

// None stands in when no sensor is fitted.
type None struct{}

func (None) Read(context.Context) (Reading, error) { return Reading{}, ErrDisabled }
func (None) Close() error                          { return nil }
