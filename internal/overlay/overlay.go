// Package overlay renders a label mask as translucent colour over a photo.
package overlay

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/pkg/errors"

	"label-grab/internal/mask"
	"label-grab/pkg/colorutil"
)

// Palette maps each mask category to a straight-alpha colour.
type Palette [mask.NumCategories]color.NRGBA

// DefaultPalette returns the standard overlay colours: saturated and more
// opaque for sure categories, muted and lighter for likely ones.
func DefaultPalette() Palette {
	var p Palette
	p[mask.SureBackground] = color.NRGBA{R: 250, G: 40, B: 10, A: 175}
	p[mask.SureForeground] = color.NRGBA{R: 40, G: 250, B: 10, A: 175}
	p[mask.LikelyBackground] = color.NRGBA{R: 120, G: 40, B: 20, A: 128}
	p[mask.LikelyForeground] = color.NRGBA{R: 200, G: 200, B: 20, A: 128}
	return p
}

// table expands the palette into a byte lookup indexed by category code.
// Codes outside the four categories render transparent.
func (p Palette) table() *[256][4]byte {
	var lut [256][4]byte
	for c, col := range p {
		pm := colorutil.Premultiply(col)
		lut[c] = [4]byte{pm.R, pm.G, pm.B, pm.A}
	}
	return &lut
}

// NewBuffer returns a fully transparent overlay buffer.
func NewBuffer(size image.Point) *image.RGBA {
	return image.NewRGBA(image.Rectangle{Max: size})
}

// Clear makes every pixel of buf transparent.
func Clear(buf *image.RGBA) {
	clear(buf.Pix)
}

// Render writes the palette colour of every mask cell into dst at the
// matching pixel of rect. Pixels of dst outside rect are left untouched.
// rect is in dst coordinates and must match the mask size.
func Render(m *mask.Mask, dst *image.RGBA, rect image.Rectangle, pal Palette) error {
	if m == nil || dst == nil {
		return errors.New("overlay: nil mask or buffer")
	}
	if rect.Dx() != m.W || rect.Dy() != m.H {
		return errors.Errorf("overlay: mask %dx%d does not match region %v", m.W, m.H, rect)
	}
	if !rect.In(dst.Rect) {
		return errors.Errorf("overlay: region %v outside buffer %v", rect, dst.Rect)
	}

	lut := pal.table()
	for y := 0; y < m.H; y++ {
		off := dst.PixOffset(rect.Min.X, rect.Min.Y+y)
		row := dst.Pix[off : off+4*m.W : off+4*m.W]
		for x, c := range m.Pix[y*m.W : (y+1)*m.W] {
			copy(row[4*x:4*x+4], lut[c][:])
		}
	}
	return nil
}

// Compositor blends an overlay onto a photo for display.
type Compositor struct {
	BackColor color.Color
	Opacity   float64 // 0..1 applied to the overlay on top of its own alpha
}

// NewCompositor returns a compositor with a dark backdrop and full overlay
// opacity.
func NewCompositor() *Compositor {
	return &Compositor{
		BackColor: color.RGBA{40, 40, 40, 255},
		Opacity:   1,
	}
}

// Composite draws photo, then overlay on top of it, into a new image sized
// to the photo. A nil overlay yields the photo alone.
func (c *Compositor) Composite(photo image.Image, over *image.RGBA) *image.RGBA {
	if photo == nil {
		return nil
	}
	b := photo.Bounds()
	dst := image.NewRGBA(image.Rectangle{Max: b.Size()})
	draw.Draw(dst, dst.Rect, &image.Uniform{c.BackColor}, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Rect, photo, b.Min, draw.Over)
	if over == nil {
		return dst
	}

	switch {
	case c.Opacity <= 0:
	case c.Opacity >= 1:
		draw.Draw(dst, dst.Rect, over, over.Rect.Min, draw.Over)
	default:
		alpha := &image.Uniform{color.Alpha{A: uint8(c.Opacity*255 + 0.5)}}
		draw.DrawMask(dst, dst.Rect, over, over.Rect.Min, alpha, image.Point{}, draw.Over)
	}
	return dst
}
