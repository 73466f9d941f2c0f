package geometry

import (
	"image"
	"testing"

	"go.viam.com/test"
)

func TestPointRound(t *testing.T) {
	test.That(t, NewPoint2D(49.6, 50.4).Round(), test.ShouldResemble, image.Pt(50, 50))
	test.That(t, NewPoint2D(2.5, 3.5).Round(), test.ShouldResemble, image.Pt(2, 4))
	test.That(t, NewPoint2D(-0.6, 0).Round(), test.ShouldResemble, image.Pt(-1, 0))
}

func TestRectFromCorners(t *testing.T) {
	r := RectFromCorners(60, 61, 40, 39.5)
	test.That(t, r, test.ShouldResemble, Rect{X: 40, Y: 39.5, Width: 20, Height: 21.5})
	test.That(t, r.Round(), test.ShouldResemble, image.Rect(40, 40, 60, 61))
}

func TestRectScaled(t *testing.T) {
	r := Rect{X: 10, Y: 20, Width: 30, Height: 40}.Scaled(2)
	test.That(t, r, test.ShouldResemble, Rect{X: 5, Y: 10, Width: 15, Height: 20})
	test.That(t, Rect{X: 1, Y: 2, Width: 3, Height: 4}.Scaled(0), test.ShouldResemble, Rect{X: 1, Y: 2, Width: 3, Height: 4})
}
