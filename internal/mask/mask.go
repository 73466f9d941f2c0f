// Package mask provides the per-pixel four-category label buffer that a
// segmentation instance refines, and the scribble writes applied to it.
package mask

import (
	"fmt"
	"image"

	"github.com/pkg/errors"
)

// Category is the classification of a single mask pixel. The numeric values
// follow the GrabCut convention so they can index lookup tables directly.
type Category uint8

const (
	SureBackground   Category = iota // GC_BGD
	SureForeground                   // GC_FGD
	LikelyBackground                 // GC_PR_BGD
	LikelyForeground                 // GC_PR_FGD

	// NumCategories is the number of valid category codes.
	NumCategories = 4
)

func (c Category) String() string {
	switch c {
	case SureBackground:
		return "SureBackground"
	case SureForeground:
		return "SureForeground"
	case LikelyBackground:
		return "LikelyBackground"
	case LikelyForeground:
		return "LikelyForeground"
	default:
		return fmt.Sprintf("Category(%d)", uint8(c))
	}
}

// Valid reports whether c is one of the four codes.
func (c Category) Valid() bool {
	return c < NumCategories
}

// IsForeground reports whether c is SureForeground or LikelyForeground.
func (c Category) IsForeground() bool {
	return c&1 == 1
}

// IsSure reports whether c is a hard constraint for the engine.
func (c Category) IsSure() bool {
	return c < LikelyBackground
}

// Label is the class a user scribble asserts.
type Label int

const (
	Background Label = iota
	Foreground
)

// labelCategories maps a scribble label to the mask code it writes.
var labelCategories = [...]Category{
	Background: SureBackground,
	Foreground: SureForeground,
}

var labelNames = [...]string{
	Background: "background",
	Foreground: "foreground",
}

// ErrInvalidLabel is returned when an integer tag does not name a label.
var ErrInvalidLabel = errors.New("invalid label")

// ParseLabel converts the host's integer label tag (0 background,
// 1 foreground) into a Label.
func ParseLabel(tag int) (Label, error) {
	if tag < 0 || tag >= len(labelCategories) {
		return 0, errors.Wrapf(ErrInvalidLabel, "tag %d", tag)
	}
	return Label(tag), nil
}

// Category returns the sure category a scribble with this label writes.
func (l Label) Category() Category {
	return labelCategories[l]
}

// Opposite returns the other label.
func (l Label) Opposite() Label {
	return 1 - l
}

func (l Label) String() string {
	if l < 0 || int(l) >= len(labelNames) {
		return fmt.Sprintf("Label(%d)", int(l))
	}
	return labelNames[l]
}

// Mask is a row-major W x H buffer of categories.
type Mask struct {
	W, H int
	Pix  []Category
}

// New allocates a mask with every pixel SureBackground.
func New(w, h int) *Mask {
	if w < 0 || h < 0 {
		w, h = 0, 0
	}
	return &Mask{W: w, H: h, Pix: make([]Category, w*h)}
}

// Bounds returns the mask rectangle anchored at the origin.
func (m *Mask) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.W, m.H)
}

// Size returns the mask dimensions.
func (m *Mask) Size() image.Point {
	return image.Pt(m.W, m.H)
}

// At returns the category at (x, y). Out of range reads return SureBackground.
func (m *Mask) At(x, y int) Category {
	if x < 0 || y < 0 || x >= m.W || y >= m.H {
		return SureBackground
	}
	return m.Pix[y*m.W+x]
}

// Fill sets every pixel to c.
func (m *Mask) Fill(c Category) {
	for i := range m.Pix {
		m.Pix[i] = c
	}
}

// FillRect sets every pixel of r, clipped to the mask, to c.
func (m *Mask) FillRect(r image.Rectangle, c Category) {
	r = r.Intersect(m.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := m.Pix[y*m.W+r.Min.X : y*m.W+r.Max.X]
		for i := range row {
			row[i] = c
		}
	}
}

// PaintDisk sets every pixel within Euclidean distance radius of center to c.
// Parts of the disk outside the mask are clipped silently.
func (m *Mask) PaintDisk(center image.Point, radius int, c Category) {
	if radius < 0 {
		return
	}
	r2 := radius * radius
	y0 := max(center.Y-radius, 0)
	y1 := min(center.Y+radius, m.H-1)
	for y := y0; y <= y1; y++ {
		dy := y - center.Y
		x0 := max(center.X-radius, 0)
		x1 := min(center.X+radius, m.W-1)
		for x := x0; x <= x1; x++ {
			dx := x - center.X
			if dx*dx+dy*dy <= r2 {
				m.Pix[y*m.W+x] = c
			}
		}
	}
}

// Count returns the number of pixels labelled c.
func (m *Mask) Count(c Category) int {
	n := 0
	for _, v := range m.Pix {
		if v == c {
			n++
		}
	}
	return n
}

// Histogram returns per-category pixel counts.
func (m *Mask) Histogram() [NumCategories]int {
	var h [NumCategories]int
	for _, v := range m.Pix {
		if v.Valid() {
			h[v]++
		}
	}
	return h
}

// Clone returns a deep copy.
func (m *Mask) Clone() *Mask {
	pix := make([]Category, len(m.Pix))
	copy(pix, m.Pix)
	return &Mask{W: m.W, H: m.H, Pix: pix}
}

// Diff returns the number of pixels whose category differs between m and
// other. Masks of different shape differ everywhere.
func (m *Mask) Diff(other *Mask) int {
	if other == nil || m.W != other.W || m.H != other.H {
		return len(m.Pix)
	}
	n := 0
	for i, v := range m.Pix {
		if other.Pix[i] != v {
			n++
		}
	}
	return n
}
