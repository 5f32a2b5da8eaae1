package mqtt

import (
	"context"
	"sync"

	"cloudpico-display/internal/sensor"
)

// Publisher is the part of Client the sink needs.
type Publisher interface {
	PublishTelemetry(t Telemetry) error
}

// TelemetrySink forwards calibrated readings as telemetry with a running sequence number.
type TelemetrySink struct {
	pub Publisher

	mu       sync.Mutex
	sequence int
}

func NewTelemetrySink(pub Publisher) *TelemetrySink {
	return &TelemetrySink{pub: pub}
}

func (s *TelemetrySink) Name() string { return "mqtt" }

func (s *TelemetrySink) Record(ctx context.Context, r sensor.Reading) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.sequence++
	seq := s.sequence
	s.mu.Unlock()

	return s.pub.PublishTelemetry(FromReading(r, seq))
}

// FromReading builds a telemetry message; StationID is filled by the client.
func FromReading(r sensor.Reading, seq int) Telemetry {
	temperature := r.TemperatureC
	humidity := r.HumidityPct
	t := Telemetry{
		Timestamp:   r.Time,
		Temperature: &temperature,
		Humidity:    &humidity,
		Sequence:    &seq,
	}
	if r.PressureHPa > 0 {
		pressure := r.PressureHPa
		t.Pressure = &pressure
	}
	return t
}
