// Package raster draws display commands onto a grayscale frame.
package raster

import (
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"

	"cloudpico-display/internal/display"
	"cloudpico-display/internal/format"
)

// SheetGrid is the number of tiles per row and column in a sprite sheet.
const SheetGrid = 3

// largeScale enlarges the large font; 8x16 glyphs become 16x32.
const largeScale = 2

// Renderer turns command lists into frames. It is safe for sequential use only.
type Renderer struct {
	largeSheet image.Image
	smallSheet image.Image
	small      font.Face
	large      font.Face
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithSpriteSheets installs the large and small icon sheets. Nil leaves the
// text placeholder for that size.
func WithSpriteSheets(large, small image.Image) Option {
	return func(r *Renderer) {
		r.largeSheet = large
		r.smallSheet = small
	}
}

func New(opts ...Option) *Renderer {
	r := &Renderer{
		small: basicfont.Face7x13,
		large: inconsolata.Regular8x16,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// LoadSpriteSheet decodes a PNG or BMP sheet laid out as a 3x3 grid.
// An empty path returns (nil, nil).
func LoadSpriteSheet(path string) (image.Image, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sprite sheet: %w", err)
	}
	defer f.Close()
	return DecodeSpriteSheet(f)
}

// DecodeSpriteSheet reads a sheet from r and checks that it splits into a 3x3 grid.
func DecodeSpriteSheet(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode sprite sheet: %w", err)
	}
	b := img.Bounds()
	if b.Dx() < SheetGrid || b.Dy() < SheetGrid {
		return nil, fmt.Errorf("sprite sheet %dx%d too small for a %dx%d grid", b.Dx(), b.Dy(), SheetGrid, SheetGrid)
	}
	return img, nil
}

// Draw paints cmds onto a fresh white landscape frame.
func (r *Renderer) Draw(cmds []display.Command) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, display.Width, display.Height))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	for _, c := range cmds {
		switch c := c.(type) {
		case display.Background:
			r.background(dst, c.View)
		case display.Text:
			r.text(dst, c)
		case display.Icon:
			r.icon(dst, c)
		}
	}
	return dst
}

func (r *Renderer) background(dst *image.Gray, v display.View) {
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	switch v {
	case display.ViewForecast:
		vline(dst, 172, 18, display.Height-4)
		hline(dst, 4, 168, 102)
	case display.ViewSensor:
		hline(dst, 4, display.Width-4, display.Height/2)
	}
}

func hline(dst *image.Gray, x0, x1, y int) {
	for x := x0; x <= x1; x++ {
		dst.SetGray(x, y, color.Gray{})
	}
}

func vline(dst *image.Gray, x, y0, y1 int) {
	for y := y0; y <= y1; y++ {
		dst.SetGray(x, y, color.Gray{})
	}
}

func (r *Renderer) text(dst *image.Gray, t display.Text) {
	face, scale := r.small, 1
	if t.Font == display.FontLarge {
		face, scale = r.large, largeScale
	}
	m := face.Metrics()
	w := font.MeasureString(face, t.Value).Ceil()
	h := m.Height.Ceil()
	if w == 0 || h == 0 {
		return
	}

	x, y := t.X, t.Y
	switch t.Anchor {
	case display.AnchorTopCenter:
		x -= w * scale / 2
	case display.AnchorMiddleLeft:
		y -= h * scale / 2
	}

	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	d := &font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.P(0, m.Ascent.Ceil()),
	}
	d.DrawString(t.Value)

	dr := image.Rect(x, y, x+w*scale, y+h*scale)
	if scale != 1 {
		big := image.NewAlpha(image.Rect(0, 0, w*scale, h*scale))
		draw.NearestNeighbor.Scale(big, big.Bounds(), mask, mask.Bounds(), draw.Src, nil)
		mask = big
	}
	draw.DrawMask(dst, dr, image.Black, image.Point{}, mask, image.Point{}, draw.Over)
}

func (r *Renderer) icon(dst *image.Gray, ic display.Icon) {
	sheet, px := r.smallSheet, display.SmallIconPx
	if ic.Size == display.IconLarge {
		sheet, px = r.largeSheet, display.LargeIconPx
	}
	dr := image.Rect(ic.X, ic.Y, ic.X+px, ic.Y+px)

	if sheet == nil || ic.Index < 0 || ic.Index >= SheetGrid*SheetGrid {
		r.placeholderIcon(dst, dr, ic.Index)
		return
	}
	draw.NearestNeighbor.Scale(dst, dr, sheet, tileRect(sheet.Bounds(), ic.Index), draw.Over, nil)
}

// tileRect is the bounds of tile i, counted row by row.
func tileRect(b image.Rectangle, i int) image.Rectangle {
	tw, th := b.Dx()/SheetGrid, b.Dy()/SheetGrid
	col, row := i%SheetGrid, i/SheetGrid
	origin := b.Min.Add(image.Pt(col*tw, row*th))
	return image.Rectangle{Min: origin, Max: origin.Add(image.Pt(tw, th))}
}

func (r *Renderer) placeholderIcon(dst *image.Gray, dr image.Rectangle, index int) {
	hline(dst, dr.Min.X, dr.Max.X-1, dr.Min.Y)
	hline(dst, dr.Min.X, dr.Max.X-1, dr.Max.Y-1)
	vline(dst, dr.Min.X, dr.Min.Y, dr.Max.Y-1)
	vline(dst, dr.Max.X-1, dr.Min.Y, dr.Max.Y-1)

	name := format.IconName(index)
	if dr.Dx() < 3*7 {
		name = name[:1]
	}
	r.text(dst, display.Text{
		X:      dr.Min.X + dr.Dx()/2,
		Y:      dr.Min.Y + dr.Dy()/2 - basicfont.Face7x13.Height/2,
		Anchor: display.AnchorTopCenter,
		Value:  name,
	})
}
