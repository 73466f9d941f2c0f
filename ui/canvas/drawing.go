package canvas

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"

	"label-grab/pkg/geometry"
)

// selectionColor is the rubber-band outline colour.
var selectionColor = color.RGBA{R: 255, G: 255, B: 0, A: 255}

// renderFrame scales frame to w x h raster pixels and draws the pending
// selection (image coordinates) on top. Pixels stay sharp when zoomed in.
func renderFrame(frame image.Image, w, h int, sel *geometry.Rect) *image.RGBA {
	output := image.NewRGBA(image.Rect(0, 0, w, h))

	// black background
	for i := 3; i < len(output.Pix); i += 4 {
		output.Pix[i] = 255
	}
	if frame == nil || w <= 0 || h <= 0 {
		return output
	}
	fb := frame.Bounds()
	if fb.Empty() {
		return output
	}
	xdraw.NearestNeighbor.Scale(output, output.Rect, frame, fb, xdraw.Over, nil)

	if sel != nil {
		sx := float64(w) / float64(fb.Dx())
		sy := float64(h) / float64(fb.Dy())
		r := image.Rect(
			int(sel.X*sx), int(sel.Y*sy),
			int((sel.X+sel.Width)*sx), int((sel.Y+sel.Height)*sy),
		)
		drawSelectionRect(output, r)
	}
	return output
}

// drawSelectionRect draws a dashed outline of r, clipped to output.
func drawSelectionRect(output *image.RGBA, r image.Rectangle) {
	x1, y1, x2, y2 := r.Min.X, r.Min.Y, r.Max.X, r.Max.Y
	b := output.Bounds()
	set := func(x, y int) {
		if (x+y)%4 < 2 && image.Pt(x, y).In(b) {
			output.SetRGBA(x, y, selectionColor)
		}
	}
	for x := x1; x <= x2; x++ {
		set(x, y1)
		set(x, y2)
	}
	for y := y1; y <= y2; y++ {
		set(x1, y)
		set(x2, y)
	}
}
