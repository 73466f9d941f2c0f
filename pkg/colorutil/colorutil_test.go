package colorutil

import (
	"image/color"
	"testing"

	"go.viam.com/test"
)

func TestParseHex(t *testing.T) {
	c, err := ParseHex("#fa280aaf")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c, test.ShouldResemble, color.NRGBA{R: 250, G: 40, B: 10, A: 175})

	c, err = ParseHex(" 28fa0a ")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c, test.ShouldResemble, color.NRGBA{R: 40, G: 250, B: 10, A: 255})

	_, err = ParseHex("#abc")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = ParseHex("#zzzzzz")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPremultiply(t *testing.T) {
	test.That(t, Premultiply(color.NRGBA{R: 255, G: 255, B: 255, A: 255}), test.ShouldResemble, color.RGBA{255, 255, 255, 255})
	test.That(t, Premultiply(color.NRGBA{}), test.ShouldResemble, color.RGBA{})
	p := Premultiply(color.NRGBA{R: 200, G: 100, B: 0, A: 128})
	test.That(t, p.A, test.ShouldEqual, uint8(128))
	test.That(t, p.R, test.ShouldBeLessThanOrEqualTo, p.A)
	test.That(t, p.R, test.ShouldEqual, uint8(100))
}
