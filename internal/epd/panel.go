// Package epd drives the e-paper panel the frames are shown on.
package epd

import (
	"context"
	"image"
	"sync"
	"time"
)

// Panel shows whole frames. Frames are landscape, display.Width x display.Height.
type Panel interface {
	// Refresh pushes frame to the glass and blocks until the update finishes.
	Refresh(ctx context.Context, frame image.Image) error
	// TimeToRefresh is how long until the panel accepts another refresh.
	TimeToRefresh() time.Duration
	Close() error
}

// DefaultMinRefresh is the shortest gap between two full refreshes.
const DefaultMinRefresh = 5 * time.Second

// refreshGate tracks the minimum gap between refreshes.
type refreshGate struct {
	mu   sync.Mutex
	gap  time.Duration
	last time.Time
	now  func() time.Time
}

func newRefreshGate(gap time.Duration) *refreshGate {
	return &refreshGate{gap: gap, now: time.Now}
}

func (g *refreshGate) remaining() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.last.IsZero() {
		return 0
	}
	left := g.gap - g.now().Sub(g.last)
	if left < 0 {
		return 0
	}
	return left
}

func (g *refreshGate) mark() {
	g.mu.Lock()
	g.last = g.now()
	g.mu.Unlock()
}

// ToPortrait rotates a landscape frame 90 degrees clockwise so that it lands
// upright on a panel whose native scan order is portrait.
func ToPortrait(src image.Image) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, h, w))
	for y := 0; y < w; y++ {
		for x := 0; x < h; x++ {
			dst.Set(x, y, src.At(b.Min.X+y, b.Min.Y+h-1-x))
		}
	}
	return dst
}
