// Package photo loads images from disk into the RGBA form the segmentation
// engine reads, and writes rendered results back out.
package photo

import (
	"bytes"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrLoadFailure is returned when a file cannot be read or decoded.
var ErrLoadFailure = errors.New("photo could not be loaded")

// Photo is a decoded image held as 8-bit RGBA with its origin at (0,0).
type Photo struct {
	Path  string
	Image *image.RGBA
}

// Width returns the image width in pixels.
func (p *Photo) Width() int {
	if p == nil || p.Image == nil {
		return 0
	}
	return p.Image.Rect.Dx()
}

// Height returns the image height in pixels.
func (p *Photo) Height() int {
	if p == nil || p.Image == nil {
		return 0
	}
	return p.Image.Rect.Dy()
}

// Size returns the image dimensions.
func (p *Photo) Size() image.Point {
	return image.Pt(p.Width(), p.Height())
}

// Load reads the image at path. The Go decoders are tried first; formats
// they do not know are handed to OpenCV.
func Load(path string) (*Photo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(ErrLoadFailure, "read %s: %v", path, err)
	}

	img, _, decodeErr := image.Decode(bytes.NewReader(data))
	if decodeErr != nil {
		img, err = decodeOpenCV(data)
		if err != nil {
			return nil, errors.Wrapf(ErrLoadFailure, "decode %s: %v", path, decodeErr)
		}
	}
	if img.Bounds().Empty() {
		return nil, errors.Wrapf(ErrLoadFailure, "%s has no pixels", path)
	}
	return &Photo{Path: path, Image: ToRGBA(img)}, nil
}

// decodeOpenCV decodes data with OpenCV's codecs.
func decodeOpenCV(data []byte) (image.Image, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, err
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, errors.New("opencv could not decode image")
	}

	rgba := gocv.NewMat()
	defer rgba.Close()
	gocv.CvtColor(mat, &rgba, gocv.ColorBGRToRGBA)

	img := image.NewRGBA(image.Rect(0, 0, rgba.Cols(), rgba.Rows()))
	copy(img.Pix, rgba.ToBytes())
	return img, nil
}

// ToRGBA returns img as an *image.RGBA with its origin at (0,0) and a tight
// stride. Images already in that form are returned as-is.
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) && rgba.Stride == 4*b.Dx() {
		return rgba
	}
	dst := image.NewRGBA(image.Rectangle{Max: b.Size()})
	draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	return dst
}

// Save writes img to path; the format follows the file extension.
func Save(path string, img *image.RGBA) error {
	if img == nil || img.Rect.Empty() {
		return errors.New("nothing to save")
	}
	img = ToRGBA(img)
	mat, err := gocv.NewMatFromBytes(img.Rect.Dy(), img.Rect.Dx(), gocv.MatTypeCV8UC4, img.Pix)
	if err != nil {
		return errors.Wrap(err, "wrap image")
	}
	defer mat.Close()

	bgra := gocv.NewMat()
	defer bgra.Close()
	gocv.CvtColor(mat, &bgra, gocv.ColorRGBAToBGRA)

	if !gocv.IMWrite(path, bgra) {
		return errors.Errorf("write %s failed", path)
	}
	return nil
}

// SupportedFormats returns the file extensions Load is expected to handle.
func SupportedFormats() []string {
	return []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp"}
}

// IsSupportedFormat checks if the given path has a supported image extension.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
