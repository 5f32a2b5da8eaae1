// Package buttons polls the station's push buttons.
package buttons

import (
	"errors"
	"fmt"
	"strings"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// DefaultPins are the four key inputs, wired active-low.
var DefaultPins = []string{"GPIO5", "GPIO6", "GPIO13", "GPIO19"}

// Poller reports whether any button is held right now.
type Poller interface {
	AnyPressed() (bool, error)
}

// Pin is the part of gpio.PinIn the poller uses.
type Pin interface {
	Name() string
	Read() gpio.Level
}

// GPIO polls active-low buttons with internal pull-ups.
type GPIO struct {
	pins []Pin
}

// OpenGPIO looks up each pin by name and configures it as a pulled-up input.
func OpenGPIO(names []string) (*GPIO, error) {
	if len(names) == 0 {
		return nil, errors.New("buttons: no pins configured")
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	pins := make([]Pin, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("buttons: unknown pin %q", name)
		}
		if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("buttons: configure %s: %w", name, err)
		}
		pins = append(pins, p)
	}
	return NewGPIO(pins...), nil
}

// NewGPIO wraps already configured pins.
func NewGPIO(pins ...Pin) *GPIO {
	return &GPIO{pins: pins}
}

// AnyPressed is true while at least one pin reads low.
func (g *GPIO) AnyPressed() (bool, error) {
	for _, p := range g.pins {
		if p.Read() == gpio.Low {
			return true, nil
		}
	}
	return false, nil
}

// None never reports a press.
type None struct{}

func (None) AnyPressed() (bool, error) { return false, nil }
