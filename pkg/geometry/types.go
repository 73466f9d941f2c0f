// Package geometry provides the floating-point point and rectangle types that
// input events arrive in, and their rounding onto the integer pixel grid.
package geometry

import (
	"image"
	"math"
)

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewPoint2D creates a new Point2D.
func NewPoint2D(x, y float64) Point2D {
	return Point2D{X: x, Y: y}
}

// Scale returns the point scaled by a factor.
func (p Point2D) Scale(factor float64) Point2D {
	return Point2D{X: p.X * factor, Y: p.Y * factor}
}

// Round snaps the point to the nearest pixel. Halves round to even.
func (p Point2D) Round() image.Point {
	return image.Pt(int(math.RoundToEven(p.X)), int(math.RoundToEven(p.Y)))
}

// Rect represents a rectangle with floating-point coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RectFromCorners builds a Rect from two opposite corners given in any order,
// as produced by a rubber-band drag.
func RectFromCorners(x1, y1, x2, y2 float64) Rect {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// TopLeft returns the top-left corner.
func (r Rect) TopLeft() Point2D {
	return Point2D{X: r.X, Y: r.Y}
}

// BottomRight returns the bottom-right corner.
func (r Rect) BottomRight() Point2D {
	return Point2D{X: r.X + r.Width, Y: r.Y + r.Height}
}

// Round snaps both corners to the pixel grid independently. The result may be
// empty; callers validate it.
func (r Rect) Round() image.Rectangle {
	return image.Rectangle{Min: r.TopLeft().Round(), Max: r.BottomRight().Round()}
}

// Scaled returns the rectangle with both corners divided by zoom, mapping a
// zoomed canvas selection back to image pixels.
func (r Rect) Scaled(zoom float64) Rect {
	if zoom == 0 {
		return r
	}
	return Rect{X: r.X / zoom, Y: r.Y / zoom, Width: r.Width / zoom, Height: r.Height / zoom}
}
