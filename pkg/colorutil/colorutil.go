// Package colorutil provides shared color utilities for the overlay palette.
package colorutil

import (
	"encoding/hex"
	"fmt"
	"image/color"
	"strings"
)

// ParseHex parses "#rrggbb" or "#rrggbbaa" (leading '#' optional) into a
// straight-alpha color. Six-digit forms are fully opaque.
func ParseHex(s string) (color.NRGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 && len(s) != 8 {
		return color.NRGBA{}, fmt.Errorf("color %q: want 6 or 8 hex digits", s)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("color %q: %w", s, err)
	}
	c := color.NRGBA{R: b[0], G: b[1], B: b[2], A: 255}
	if len(b) == 4 {
		c.A = b[3]
	}
	return c, nil
}

// Premultiply converts a straight-alpha color into the premultiplied form
// stored by image.RGBA.
func Premultiply(c color.NRGBA) color.RGBA {
	return color.RGBAModel.Convert(c).(color.RGBA)
}
