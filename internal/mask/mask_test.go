package mask

import (
	"image"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestCategoryPredicates(t *testing.T) {
	test.That(t, SureForeground.IsForeground(), test.ShouldBeTrue)
	test.That(t, LikelyForeground.IsForeground(), test.ShouldBeTrue)
	test.That(t, SureBackground.IsForeground(), test.ShouldBeFalse)
	test.That(t, LikelyBackground.IsForeground(), test.ShouldBeFalse)

	test.That(t, SureBackground.IsSure(), test.ShouldBeTrue)
	test.That(t, SureForeground.IsSure(), test.ShouldBeTrue)
	test.That(t, LikelyBackground.IsSure(), test.ShouldBeFalse)
	test.That(t, LikelyForeground.IsSure(), test.ShouldBeFalse)

	test.That(t, Category(4).Valid(), test.ShouldBeFalse)
	test.That(t, Category(9).String(), test.ShouldEqual, "Category(9)")
}

func TestParseLabel(t *testing.T) {
	l, err := ParseLabel(0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, l, test.ShouldEqual, Background)
	test.That(t, l.Category(), test.ShouldEqual, SureBackground)

	l, err = ParseLabel(1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, l, test.ShouldEqual, Foreground)
	test.That(t, l.Category(), test.ShouldEqual, SureForeground)
	test.That(t, l.Opposite(), test.ShouldEqual, Background)

	_, err = ParseLabel(2)
	test.That(t, errors.Is(err, ErrInvalidLabel), test.ShouldBeTrue)
	_, err = ParseLabel(-1)
	test.That(t, errors.Is(err, ErrInvalidLabel), test.ShouldBeTrue)
}

func TestPaintDisk(t *testing.T) {
	m := New(21, 21)
	m.Fill(LikelyBackground)
	m.PaintDisk(image.Pt(10, 10), 5, SureForeground)

	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			dx, dy := x-10, y-10
			if dx*dx+dy*dy <= 25 {
				test.That(t, m.At(x, y), test.ShouldEqual, SureForeground)
			} else {
				test.That(t, m.At(x, y), test.ShouldEqual, LikelyBackground)
			}
		}
	}
	// 81 lattice points lie within a radius-5 disk
	test.That(t, m.Count(SureForeground), test.ShouldEqual, 81)
}

func TestPaintDiskLastWriteWins(t *testing.T) {
	m := New(30, 30)
	m.Fill(LikelyForeground)
	p := image.Pt(12, 17)
	m.PaintDisk(p, 5, Foreground.Category())
	m.PaintDisk(p, 5, Background.Category())
	test.That(t, m.At(p.X, p.Y), test.ShouldEqual, SureBackground)
	test.That(t, m.Count(SureForeground), test.ShouldEqual, 0)
}

func TestPaintDiskClips(t *testing.T) {
	m := New(10, 10)
	m.Fill(LikelyBackground)

	m.PaintDisk(image.Pt(0, 0), 5, SureForeground)
	test.That(t, m.At(0, 0), test.ShouldEqual, SureForeground)
	test.That(t, m.At(3, 4), test.ShouldEqual, SureForeground)
	test.That(t, m.At(4, 4), test.ShouldEqual, LikelyBackground)

	before := m.Clone()
	m.PaintDisk(image.Pt(-50, 200), 5, SureForeground)
	test.That(t, m.Diff(before), test.ShouldEqual, 0)

	// disk centered just outside still reaches in
	m.PaintDisk(image.Pt(12, 5), 5, SureBackground)
	test.That(t, m.At(9, 5), test.ShouldEqual, SureBackground)
	test.That(t, m.At(7, 5), test.ShouldEqual, SureBackground)
	test.That(t, m.At(6, 5), test.ShouldEqual, LikelyBackground)
}

func TestFillRectAndHistogram(t *testing.T) {
	m := New(8, 6)
	m.FillRect(image.Rect(2, 1, 6, 5), LikelyForeground)
	m.FillRect(image.Rect(6, 4, 20, 20), SureForeground)

	h := m.Histogram()
	test.That(t, h[LikelyForeground], test.ShouldEqual, 16)
	test.That(t, h[SureForeground], test.ShouldEqual, 4)
	test.That(t, h[SureBackground], test.ShouldEqual, 48-20)
	test.That(t, m.At(-1, 0), test.ShouldEqual, SureBackground)
}

func TestCloneAndDiff(t *testing.T) {
	m := New(4, 4)
	c := m.Clone()
	c.FillRect(image.Rect(1, 1, 2, 2), SureForeground)
	c.FillRect(image.Rect(9, 9, 12, 12), SureForeground)
	test.That(t, m.At(1, 1), test.ShouldEqual, SureBackground)
	test.That(t, m.Diff(c), test.ShouldEqual, 1)
	test.That(t, m.Diff(New(3, 4)), test.ShouldEqual, 16)
	test.That(t, m.Diff(nil), test.ShouldEqual, 16)
}
