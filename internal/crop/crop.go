// Package crop maps between full-image coordinates and the margin-expanded
// working region a segmentation instance operates on.
package crop

import (
	"image"

	"github.com/pkg/errors"
)

// DefaultMargin is the number of pixels added around the ROI on every side.
const DefaultMargin = 32

// ErrInvalidRegion is returned for degenerate or out-of-bounds rectangles.
var ErrInvalidRegion = errors.New("invalid region")

// Region is a crop rectangle in full-image coordinates together with the ROI
// it was expanded from.
type Region struct {
	Rect image.Rectangle // crop, full-image coordinates
	ROI  image.Rectangle // ROI, full-image coordinates
}

// Compute expands roi by margin on every side and clamps each side to the
// image bounds [0,0]-[size.X,size.Y] independently.
func Compute(roi image.Rectangle, size image.Point, margin int) (Region, error) {
	if size.X <= 0 || size.Y <= 0 {
		return Region{}, errors.Wrapf(ErrInvalidRegion, "image size %v", size)
	}
	if margin < 0 {
		return Region{}, errors.Wrapf(ErrInvalidRegion, "negative margin %d", margin)
	}
	if roi.Min.X >= roi.Max.X || roi.Min.Y >= roi.Max.Y {
		return Region{}, errors.Wrapf(ErrInvalidRegion, "degenerate roi %v", roi)
	}
	bounds := image.Rectangle{Max: size}
	if !roi.In(bounds) {
		return Region{}, errors.Wrapf(ErrInvalidRegion, "roi %v outside image %v", roi, bounds)
	}

	rect := image.Rectangle{
		Min: image.Pt(max(roi.Min.X-margin, 0), max(roi.Min.Y-margin, 0)),
		Max: image.Pt(min(roi.Max.X+margin, size.X), min(roi.Max.Y+margin, size.Y)),
	}
	return Region{Rect: rect, ROI: roi}, nil
}

// Size returns the crop dimensions.
func (r Region) Size() image.Point {
	return r.Rect.Size()
}

// ToLocal translates a full-image point into crop-local coordinates.
func (r Region) ToLocal(p image.Point) image.Point {
	return p.Sub(r.Rect.Min)
}

// ToFull translates a crop-local point back into full-image coordinates.
func (r Region) ToFull(p image.Point) image.Point {
	return p.Add(r.Rect.Min)
}

// LocalROI returns the ROI in crop-local coordinates.
func (r Region) LocalROI() image.Rectangle {
	return r.ROI.Sub(r.Rect.Min)
}

// Empty reports whether the crop has zero area.
func (r Region) Empty() bool {
	return r.Rect.Empty()
}
