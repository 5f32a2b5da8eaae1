package epd

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestToPortrait(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 250, 122))
	src.SetGray(0, 121, color.Gray{Y: 1}) // bottom-left
	src.SetGray(249, 0, color.Gray{Y: 2}) // top-right
	src.SetGray(10, 20, color.Gray{Y: 3})

	dst := ToPortrait(src)
	if dst.Bounds() != image.Rect(0, 0, 122, 250) {
		t.Fatalf("bounds = %v; want 122x250", dst.Bounds())
	}
	tests := []struct {
		x, y int
		want uint8
	}{
		{0, 0, 1},
		{121, 249, 2},
		{121 - 20, 10, 3},
	}
	for _, tt := range tests {
		if got := dst.GrayAt(tt.x, tt.y).Y; got != tt.want {
			t.Errorf("dst(%d,%d) = %d; want %d", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestRefreshGate(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	g := newRefreshGate(5 * time.Second)
	g.now = func() time.Time { return now }

	if got := g.remaining(); got != 0 {
		t.Errorf("before first refresh remaining = %v; want 0", got)
	}
	g.mark()
	if got := g.remaining(); got != 5*time.Second {
		t.Errorf("right after refresh remaining = %v; want 5s", got)
	}
	now = now.Add(3 * time.Second)
	if got := g.remaining(); got != 2*time.Second {
		t.Errorf("after 3s remaining = %v; want 2s", got)
	}
	now = now.Add(time.Minute)
	if got := g.remaining(); got != 0 {
		t.Errorf("long after refresh remaining = %v; want 0", got)
	}
}

func TestPNGFile_Refresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames", "panel.png")
	p, err := NewPNGFile(path, time.Second)
	if err != nil {
		t.Fatalf("NewPNGFile: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })

	frame := image.NewGray(image.Rect(0, 0, 250, 122))
	frame.SetGray(5, 6, color.Gray{Y: 200})
	if err := p.Refresh(context.Background(), frame); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if p.TimeToRefresh() <= 0 {
		t.Error("TimeToRefresh = 0 right after a refresh")
	}

	f, err := os.Open(p.Path())
	if err != nil {
		t.Fatalf("open frame: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if img.Bounds() != frame.Bounds() {
		t.Errorf("bounds = %v; want %v", img.Bounds(), frame.Bounds())
	}
	if g := color.GrayModel.Convert(img.At(5, 6)).(color.Gray); g.Y != 200 {
		t.Errorf("pixel = %d; want 200", g.Y)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("dir has %d entries; want only the frame", len(entries))
	}
}

func TestPNGFile_canceled(t *testing.T) {
	p, err := NewPNGFile(filepath.Join(t.TempDir(), "panel.png"), time.Second)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = p.Refresh(ctx, image.NewGray(image.Rect(0, 0, 1, 1)))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Refresh err = %v; want context.Canceled", err)
	}
}

func TestNewPNGFile_emptyPath(t *testing.T) {
	if _, err := NewPNGFile("", time.Second); err == nil {
		t.Error("err = nil; want error")
	}
}
