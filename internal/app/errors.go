package app

import (
	"github.com/pkg/errors"

	"label-grab/internal/crop"
	"label-grab/internal/photo"
)

// Errors reported by Session gestures. All of them are recoverable: the
// session state is left as it was before the failing call.
var (
	// ErrInvalidRegion: degenerate or out-of-bounds ROI, or no photo loaded.
	ErrInvalidRegion = crop.ErrInvalidRegion
	// ErrNoActiveInstance: a scribble or refine arrived before any ROI.
	ErrNoActiveInstance = errors.New("no active segmentation; select a region first")
	// ErrLoadFailure: the image could not be read or decoded.
	ErrLoadFailure = photo.ErrLoadFailure
)
