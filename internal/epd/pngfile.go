package epd

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"
)

// PNGFile stands in for the panel on a workstation: every refresh rewrites
// a PNG file with the landscape frame.
type PNGFile struct {
	path string
	gate *refreshGate
}

func NewPNGFile(path string, minRefresh time.Duration) (*PNGFile, error) {
	if path == "" {
		return nil, fmt.Errorf("png panel: empty path")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("png panel: create dir: %w", err)
		}
	}
	return &PNGFile{path: path, gate: newRefreshGate(minRefresh)}, nil
}

// Refresh writes frame to a temp file and renames it over the target so
// readers never see a partial image.
func (p *PNGFile) Refresh(ctx context.Context, frame image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(p.path), ".frame-*.png")
	if err != nil {
		return fmt.Errorf("png panel: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, frame); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("png panel: encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("png panel: %w", err)
	}
	if err := os.Rename(tmp.Name(), p.path); err != nil {
		return fmt.Errorf("png panel: %w", err)
	}
	p.gate.mark()
	return nil
}

func (p *PNGFile) TimeToRefresh() time.Duration {
	return p.gate.remaining()
}

func (p *PNGFile) Close() error { return nil }

// Path is the file the frames are written to.
func (p *PNGFile) Path() string { return p.path }
