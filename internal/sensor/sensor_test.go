package sensor

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"periph.io/x/conn/v3/physic"
)

func TestFromEnv(t *testing.T) {
	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	env := physic.Env{
		Temperature: physic.ZeroCelsius + 21500*physic.MilliKelvin,
		Humidity:    41*physic.PercentRH + 5*physic.MilliRH,
		Pressure:    101325 * physic.Pascal,
	}
	r := fromEnv(at, env)

	if !r.Time.Equal(at) {
		t.Errorf("Time = %v; want %v", r.Time, at)
	}
	if math.Abs(r.TemperatureC-21.5) > 1e-6 {
		t.Errorf("TemperatureC = %v; want 21.5", r.TemperatureC)
	}
	if math.Abs(r.HumidityPct-41.5) > 1e-6 {
		t.Errorf("HumidityPct = %v; want 41.5", r.HumidityPct)
	}
	if math.Abs(r.PressureHPa-1013.25) > 1e-6 {
		t.Errorf("PressureHPa = %v; want 1013.25", r.PressureHPa)
	}
}

func TestNone(t *testing.T) {
	var s Sensor = None{}
	if _, err := s.Read(context.Background()); !errors.Is(err, ErrDisabled) {
		t.Errorf("Read err = %v; want ErrDisabled", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close err = %v", err)
	}
}

func TestBME280_CloseNil(t *testing.T) {
	var s *BME280
	if err := s.Close(); err != nil {
		t.Errorf("Close on nil = %v", err)
	}
}
