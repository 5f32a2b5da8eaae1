package epd

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/devices/v3/waveshare2in13v4"
	"periph.io/x/host/v3"
)

// Waveshare drives a Waveshare 2.13" v4 HAT over SPI.
type Waveshare struct {
	port     spi.PortCloser
	dev      *waveshare2in13v4.Dev
	gate     *refreshGate
	sleeping bool
	logger   *slog.Logger
}

// OpenWaveshare initialises the host, opens the SPI bus (empty name = first
// bus) and clears the panel.
func OpenWaveshare(spiName string, minRefresh time.Duration, logger *slog.Logger) (*Waveshare, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	port, err := spireg.Open(spiName)
	if err != nil {
		return nil, fmt.Errorf("open spi %q: %w", spiName, err)
	}

	opts := waveshare2in13v4.EPD2in13v4
	dev, err := waveshare2in13v4.NewHat(port, &opts)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("init waveshare hat: %w", err)
	}
	if err := dev.Init(); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("panel init: %w", err)
	}
	if err := dev.Clear(color.White); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("panel clear: %w", err)
	}

	w := &Waveshare{
		port:   port,
		dev:    dev,
		gate:   newRefreshGate(minRefresh),
		logger: logger,
	}
	w.gate.mark()
	logger.Info("e-paper panel ready", "bounds", dev.Bounds().String())
	return w, nil
}

// Refresh wakes the panel if needed, draws frame and puts the controller back to sleep.
func (w *Waveshare) Refresh(ctx context.Context, frame image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.sleeping {
		if err := w.dev.Init(); err != nil {
			return fmt.Errorf("panel wake: %w", err)
		}
		w.sleeping = false
	}

	bounds := w.dev.Bounds()
	img := image1bit.NewVerticalLSB(bounds)
	draw.Draw(img, img.Bounds(), ToPortrait(frame), image.Point{}, draw.Src)
	if err := w.dev.Draw(bounds, img, image.Point{}); err != nil {
		return fmt.Errorf("panel draw: %w", err)
	}
	w.gate.mark()

	if err := w.dev.Sleep(); err != nil {
		w.logger.Warn("panel sleep failed", "error", err)
		return nil
	}
	w.sleeping = true
	return nil
}

func (w *Waveshare) TimeToRefresh() time.Duration {
	return w.gate.remaining()
}

// Close halts the controller and releases the SPI port.
func (w *Waveshare) Close() error {
	if w == nil || w.dev == nil {
		return nil
	}
	haltErr := w.dev.Halt()
	portErr := w.port.Close()
	w.dev = nil
	if haltErr != nil {
		return fmt.Errorf("panel halt: %w", haltErr)
	}
	if portErr != nil {
		return fmt.Errorf("close spi: %w", portErr)
	}
	return nil
}
