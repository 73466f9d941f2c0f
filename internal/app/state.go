// Package app provides the segmentation session: the single owner of the
// photo, the overlay buffer and the current segmentation instance, plus the
// events the UI listens to.
package app

import (
	"fmt"
	"image"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"label-grab/internal/config"
	"label-grab/internal/crop"
	"label-grab/internal/grabcut"
	"label-grab/internal/mask"
	"label-grab/internal/overlay"
	"label-grab/internal/photo"
	"label-grab/pkg/geometry"
)

// EventType identifies different session events.
type EventType int

const (
	// EventPhotoLoaded carries the photo path ("" for in-memory images).
	EventPhotoLoaded EventType = iota
	// EventOverlayUpdated carries the image.Rectangle of the overlay that
	// changed. It fires after the buffer is fully written.
	EventOverlayUpdated
	// EventError carries the error of a failed gesture.
	EventError
)

func (e EventType) String() string {
	switch e {
	case EventPhotoLoaded:
		return "PhotoLoaded"
	case EventOverlayUpdated:
		return "OverlayUpdated"
	case EventError:
		return "Error"
	default:
		return fmt.Sprintf("EventType(%d)", int(e))
	}
}

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// Session holds the photo being labelled, its overlay buffer and at most one
// live segmentation instance. Gestures are serialised; listeners run after
// the session lock is released, so they may call back into the session.
type Session struct {
	mu sync.Mutex

	cfg        *config.Config
	opts       grabcut.Options
	palette    overlay.Palette
	compositor *overlay.Compositor
	logger     *zap.SugaredLogger

	photo    *photo.Photo
	overlay  *image.RGBA
	instance *grabcut.Instance

	lmu       sync.RWMutex
	listeners map[EventType][]EventListener
}

// NewSession creates an empty session. A nil cfg uses defaults and a nil
// logger discards output.
func NewSession(cfg *config.Config, logger *zap.SugaredLogger) *Session {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		logger.Warnw("invalid config, using defaults where needed", "error", err)
	}
	pal, _ := cfg.OverlayPalette()
	comp := overlay.NewCompositor()
	comp.Opacity = cfg.OverlayOpacity

	return &Session{
		cfg:        cfg,
		opts:       cfg.GrabCutOptions(),
		palette:    pal,
		compositor: comp,
		logger:     logger,
		listeners:  make(map[EventType][]EventListener),
	}
}

// On registers an event listener for the specified event type.
func (s *Session) On(event EventType, listener EventListener) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *Session) Emit(event EventType, data interface{}) {
	s.lmu.RLock()
	listeners := s.listeners[event]
	s.lmu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// Config returns the session configuration.
func (s *Session) Config() *config.Config {
	return s.cfg
}

// Photo returns the loaded photo, or nil.
func (s *Session) Photo() *photo.Photo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.photo
}

// Resolution returns the photo size, or zero when nothing is loaded.
func (s *Session) Resolution() image.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.photo.Size()
}

// Overlay returns the overlay buffer. It is only written by session
// gestures; readers should treat it as read-only.
func (s *Session) Overlay() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlay
}

// Instance returns the live segmentation instance, or nil.
func (s *Session) Instance() *grabcut.Instance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instance
}

// Composite returns the photo with the overlay drawn over it, or nil when
// no photo is loaded.
func (s *Session) Composite() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.photo == nil {
		return nil
	}
	return s.compositor.Composite(s.photo.Image, s.overlay)
}

// LoadPhotoFile loads the image at path and makes it the session photo.
func (s *Session) LoadPhotoFile(path string) error {
	return s.gesture("load photo", func() (image.Rectangle, error) {
		p, err := photo.Load(path)
		if err != nil {
			return image.Rectangle{}, err
		}
		return s.setPhoto(p), nil
	})
}

// LoadPhoto makes an in-memory image the session photo. The session may keep
// img itself, so callers must not modify it afterwards.
func (s *Session) LoadPhoto(img image.Image) error {
	return s.gesture("load photo", func() (image.Rectangle, error) {
		if img == nil || img.Bounds().Empty() {
			return image.Rectangle{}, errors.Wrap(ErrLoadFailure, "empty image")
		}
		return s.setPhoto(&photo.Photo{Image: photo.ToRGBA(img)}), nil
	})
}

// setPhoto replaces the photo, resets the overlay to transparent and drops
// the live instance. A buffer of the right size is cleared and reused.
// Callers hold s.mu.
func (s *Session) setPhoto(p *photo.Photo) image.Rectangle {
	s.photo = p
	if s.overlay != nil && s.overlay.Rect.Size() == p.Size() {
		overlay.Clear(s.overlay)
	} else {
		s.overlay = overlay.NewBuffer(p.Size())
	}
	s.instance = nil
	s.logger.Infow("photo loaded", "path", p.Path, "size", p.Size())
	return s.overlay.Rect
}

// SetROI starts a new segmentation seeded from r, given in full-image
// coordinates. The previous instance is replaced only on success.
func (s *Session) SetROI(r image.Rectangle) error {
	return s.gesture("set roi", func() (image.Rectangle, error) {
		return s.setROILocked(r)
	})
}

// SetROIf is SetROI for a floating-point display rectangle such as a
// rubber-band drag. Each corner is rounded to the nearest pixel and the
// result is clipped to the photo, so a drag past the image edge selects
// what it covers.
func (s *Session) SetROIf(r geometry.Rect) error {
	return s.gesture("set roi", func() (image.Rectangle, error) {
		roi := r.Round()
		if s.photo != nil {
			roi = roi.Intersect(image.Rectangle{Max: s.photo.Size()})
		}
		return s.setROILocked(roi)
	})
}

// setROILocked builds, seeds and renders a new instance for r. Callers hold
// s.mu.
func (s *Session) setROILocked(r image.Rectangle) (image.Rectangle, error) {
	if s.photo == nil {
		return image.Rectangle{}, errors.Wrap(ErrInvalidRegion, "no photo loaded")
	}
	region, err := crop.Compute(r, s.photo.Size(), s.cfg.Margin)
	if err != nil {
		return image.Rectangle{}, err
	}
	in, err := grabcut.NewInstance(s.photo.Image, region, s.opts)
	if err != nil {
		return image.Rectangle{}, err
	}
	start := time.Now()
	if err := in.Initialize(); err != nil {
		return image.Rectangle{}, err
	}
	if err := overlay.Render(in.Mask(), s.overlay, region.Rect, s.palette); err != nil {
		return image.Rectangle{}, err
	}
	s.instance = in
	s.logger.Debugw("segmentation initialized",
		"roi", region.ROI, "crop", region.Rect, "elapsed", time.Since(start), "stats", in.Stats())
	return region.Rect, nil
}

// Paint writes a scribble of label l at p (full-image coordinates) and
// refines the segmentation. On failure the mask and overlay are unchanged.
func (s *Session) Paint(l mask.Label, p image.Point) error {
	return s.gesture("paint", func() (image.Rectangle, error) {
		in := s.instance
		if in == nil {
			return image.Rectangle{}, ErrNoActiveInstance
		}
		saved := in.Mask().Clone()
		if err := in.Paint(l, p, s.cfg.BrushRadius); err != nil {
			return image.Rectangle{}, err
		}
		return s.refineLocked(in, saved)
	})
}

// PaintF is Paint for the host's integer label tag and floating-point
// coordinates.
func (s *Session) PaintF(tag int, p geometry.Point2D) error {
	l, err := mask.ParseLabel(tag)
	if err != nil {
		return s.report("paint", err)
	}
	return s.Paint(l, p.Round())
}

// Refine re-runs the segmentation passes on the current mask without a new
// scribble.
func (s *Session) Refine() error {
	return s.gesture("refine", func() (image.Rectangle, error) {
		in := s.instance
		if in == nil {
			return image.Rectangle{}, ErrNoActiveInstance
		}
		return s.refineLocked(in, in.Mask().Clone())
	})
}

// refineLocked refines in and renders it, restoring saved on failure.
// Callers hold s.mu.
func (s *Session) refineLocked(in *grabcut.Instance, saved *mask.Mask) (image.Rectangle, error) {
	start := time.Now()
	err := in.Refine()
	if err == nil {
		err = overlay.Render(in.Mask(), s.overlay, in.Region().Rect, s.palette)
	}
	if err != nil {
		if rerr := in.RestoreMask(saved); rerr != nil {
			s.logger.Warnw("could not restore mask", "error", rerr)
		}
		return image.Rectangle{}, err
	}
	s.logger.Debugw("segmentation refined", "elapsed", time.Since(start), "stats", in.Stats())
	return in.Region().Rect, nil
}

// SetOverlayOpacity changes how strongly the overlay is blended over the
// photo in Composite. The overlay buffer itself is not rewritten.
func (s *Session) SetOverlayOpacity(v float64) error {
	return s.gesture("set opacity", func() (image.Rectangle, error) {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return image.Rectangle{}, errors.Errorf("opacity %v outside [0,1]", v)
		}
		s.cfg.OverlayOpacity = v
		s.compositor.Opacity = v
		if s.overlay == nil {
			return image.Rectangle{}, nil
		}
		return s.overlay.Rect, nil
	})
}

// SaveConfig writes the session configuration, including display changes
// made since startup, to path.
func (s *Session) SaveConfig(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Save(path)
}

// gesture runs fn under the session lock, converting panics into errors.
// On success EventOverlayUpdated fires with the changed rectangle; on
// failure the error is logged, EventError fires and the error is returned.
func (s *Session) gesture(op string, fn func() (image.Rectangle, error)) error {
	var (
		dirty  image.Rectangle
		err    error
		loaded bool
	)
	func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		defer func() {
			if r := recover(); r != nil {
				err = errors.Errorf("panic: %v", r)
			}
		}()
		before := s.photo
		dirty, err = fn()
		loaded = s.photo != before
	}()

	if err != nil {
		return s.report(op, err)
	}
	if loaded {
		s.Emit(EventPhotoLoaded, s.Photo().Path)
	}
	s.Emit(EventOverlayUpdated, dirty)
	return nil
}

// report logs a failed gesture and notifies listeners.
func (s *Session) report(op string, err error) error {
	err = errors.Wrap(err, op)
	s.logger.Errorw("gesture failed", "op", op, "error", err)
	s.Emit(EventError, err)
	return err
}
