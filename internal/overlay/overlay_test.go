package overlay

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"go.viam.com/test"

	"label-grab/internal/mask"
	"label-grab/pkg/colorutil"
)

func pixel(img *image.RGBA, x, y int) [4]byte {
	off := img.PixOffset(x, y)
	var p [4]byte
	copy(p[:], img.Pix[off:off+4])
	return p
}

func TestRenderConfinedToRegion(t *testing.T) {
	buf := NewBuffer(image.Pt(40, 30))
	// pre-existing content outside the region must survive
	draw.Draw(buf, buf.Rect, &image.Uniform{color.RGBA{1, 2, 3, 4}}, image.Point{}, draw.Src)
	before := bytes.Clone(buf.Pix)

	m := mask.New(10, 8)
	m.FillRect(image.Rect(2, 2, 8, 6), mask.LikelyForeground)
	m.Pix[0*m.W+0] = mask.SureForeground
	m.Pix[7*m.W+9] = mask.LikelyBackground

	rect := image.Rect(5, 6, 15, 14)
	pal := DefaultPalette()
	test.That(t, Render(m, buf, rect, pal), test.ShouldBeNil)

	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			got := pixel(buf, x, y)
			if !image.Pt(x, y).In(rect) {
				off := buf.PixOffset(x, y)
				test.That(t, got[:], test.ShouldResemble, before[off:off+4])
				continue
			}
			want := colorutil.Premultiply(pal[m.At(x-rect.Min.X, y-rect.Min.Y)])
			test.That(t, got, test.ShouldResemble, [4]byte{want.R, want.G, want.B, want.A})
		}
	}
}

func TestRenderDefaultPaletteAlpha(t *testing.T) {
	buf := NewBuffer(image.Pt(4, 1))
	m := mask.New(4, 1)
	for i := range m.Pix {
		m.Pix[i] = mask.Category(i)
	}
	test.That(t, Render(m, buf, buf.Rect, DefaultPalette()), test.ShouldBeNil)
	test.That(t, pixel(buf, int(mask.SureBackground), 0)[3], test.ShouldEqual, uint8(175))
	test.That(t, pixel(buf, int(mask.SureForeground), 0)[3], test.ShouldEqual, uint8(175))
	test.That(t, pixel(buf, int(mask.LikelyBackground), 0)[3], test.ShouldEqual, uint8(128))
	test.That(t, pixel(buf, int(mask.LikelyForeground), 0)[3], test.ShouldEqual, uint8(128))

	// sure foreground is dominated by green
	sf := pixel(buf, int(mask.SureForeground), 0)
	test.That(t, sf[1], test.ShouldBeGreaterThan, sf[0])
}

func TestRenderRejectsMismatch(t *testing.T) {
	buf := NewBuffer(image.Pt(10, 10))
	m := mask.New(4, 4)
	test.That(t, Render(m, buf, image.Rect(0, 0, 5, 4), DefaultPalette()), test.ShouldNotBeNil)
	test.That(t, Render(m, buf, image.Rect(8, 8, 12, 12), DefaultPalette()), test.ShouldNotBeNil)
	test.That(t, Render(nil, buf, image.Rect(0, 0, 4, 4), DefaultPalette()), test.ShouldNotBeNil)
	test.That(t, Render(m, nil, image.Rect(0, 0, 4, 4), DefaultPalette()), test.ShouldNotBeNil)
}

func TestClear(t *testing.T) {
	buf := NewBuffer(image.Pt(3, 3))
	draw.Draw(buf, buf.Rect, &image.Uniform{color.White}, image.Point{}, draw.Src)
	Clear(buf)
	test.That(t, bytes.Count(buf.Pix, []byte{0}), test.ShouldEqual, len(buf.Pix))
}

func TestComposite(t *testing.T) {
	photo := image.NewRGBA(image.Rect(0, 0, 2, 1))
	draw.Draw(photo, photo.Rect, &image.Uniform{color.RGBA{0, 0, 255, 255}}, image.Point{}, draw.Src)
	over := NewBuffer(image.Pt(2, 1))
	copy(over.Pix[0:4], []byte{255, 0, 0, 255})

	c := NewCompositor()
	out := c.Composite(photo, over)
	test.That(t, pixel(out, 0, 0), test.ShouldResemble, [4]byte{255, 0, 0, 255})
	test.That(t, pixel(out, 1, 0), test.ShouldResemble, [4]byte{0, 0, 255, 255})

	c.Opacity = 0
	out = c.Composite(photo, over)
	test.That(t, pixel(out, 0, 0), test.ShouldResemble, [4]byte{0, 0, 255, 255})

	c.Opacity = 0.5
	out = c.Composite(photo, over)
	p := pixel(out, 0, 0)
	test.That(t, p[0], test.ShouldBeGreaterThan, uint8(100))
	test.That(t, p[2], test.ShouldBeGreaterThan, uint8(100))

	test.That(t, c.Composite(nil, over), test.ShouldBeNil)
	test.That(t, pixel(c.Composite(photo, nil), 1, 0), test.ShouldResemble, [4]byte{0, 0, 255, 255})
}
