// Package canvas provides the zoomable photo view: it pulls the composited
// photo and overlay on refresh, turns drags into region selections and taps
// into scribbles.
package canvas

import (
	"image"
	"sync"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"label-grab/pkg/geometry"
)

const (
	minZoom  = 0.1
	maxZoom  = 10.0
	zoomStep = 1.25
)

// FrameSource returns the current image to display, or nil.
type FrameSource func() image.Image

// ImageCanvas displays a frame with pan, zoom, region selection and taps.
type ImageCanvas struct {
	widget.BaseWidget

	source FrameSource

	mu    sync.Mutex
	frame image.Image // last pulled frame, read by the raster
	sel   *geometry.Rect

	// Display state
	raster *fynecanvas.Raster
	zoom   float64

	// Selection (rubber-band), in content coordinates
	selecting   bool
	selectStart fyne.Position

	// Container
	scroll  *zoomScroll
	content *draggableContent
	imgSize fyne.Size

	// Fit to window
	fitToWindow    bool
	lastScrollSize fyne.Size

	// Callbacks
	onZoomChange     func(zoom float64)
	onRegionSelected func(r geometry.Rect)              // image coordinates
	onTap            func(p geometry.Point2D, alt bool) // alt for secondary taps
}

// zoomScroll is a widget that wraps a scroll container but intercepts wheel for zoom.
type zoomScroll struct {
	widget.BaseWidget
	scroll *container.Scroll
	canvas *ImageCanvas
}

func newZoomScroll(content fyne.CanvasObject, canvas *ImageCanvas) *zoomScroll {
	scroll := container.NewScroll(content)
	scroll.Direction = container.ScrollBoth
	zs := &zoomScroll{scroll: scroll, canvas: canvas}
	zs.ExtendBaseWidget(zs)
	return zs
}

func (zs *zoomScroll) Scrolled(ev *fyne.ScrollEvent) {
	if ev.Scrolled.DY > 0 {
		zs.canvas.ZoomIn()
	} else if ev.Scrolled.DY < 0 {
		zs.canvas.ZoomOut()
	}
}

func (zs *zoomScroll) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(zs.scroll)
}

// Offset returns the scroll container's current offset.
func (zs *zoomScroll) Offset() fyne.Position {
	return zs.scroll.Offset
}

// Size returns the scroll container's size.
func (zs *zoomScroll) Size() fyne.Size {
	return zs.scroll.Size()
}

func (zs *zoomScroll) Refresh() {
	zs.scroll.Refresh()
	zs.BaseWidget.Refresh()
}

func (zs *zoomScroll) Resize(size fyne.Size) {
	zs.scroll.Resize(size)
	zs.BaseWidget.Resize(size)
}

// draggableContent wraps the raster to handle mouse events.
type draggableContent struct {
	widget.BaseWidget
	canvas *ImageCanvas
	raster *fynecanvas.Raster
}

func newDraggableContent(ic *ImageCanvas, raster *fynecanvas.Raster) *draggableContent {
	dc := &draggableContent{
		canvas: ic,
		raster: raster,
	}
	dc.ExtendBaseWidget(dc)
	return dc
}

func (dc *draggableContent) CreateRenderer() fyne.WidgetRenderer {
	return &draggableContentRenderer{content: dc}
}

func (dc *draggableContent) MinSize() fyne.Size {
	return dc.raster.MinSize()
}

// contentPos converts an event position to content coordinates.
// ev.Position is relative to the viewport, so add the scroll offset.
func (dc *draggableContent) contentPos(p fyne.Position) fyne.Position {
	off := dc.canvas.scroll.Offset()
	return fyne.NewPos(p.X+off.X, p.Y+off.Y)
}

// inside rejects events Fyne occasionally delivers outside the widget.
func (dc *draggableContent) inside(p fyne.Position) bool {
	size := dc.Size()
	return p.X >= 0 && p.Y >= 0 && p.X <= size.Width && p.Y <= size.Height
}

func (dc *draggableContent) Dragged(ev *fyne.DragEvent) {
	ic := dc.canvas
	pos := dc.contentPos(ev.Position)
	if !ic.selecting {
		ic.selecting = true
		ic.selectStart = pos
	}
	r := selectionRect(ic.selectStart, pos, ic.zoom)

	ic.mu.Lock()
	ic.sel = &r
	ic.mu.Unlock()
	ic.raster.Refresh()
}

func (dc *draggableContent) DragEnd() {
	ic := dc.canvas
	if !ic.selecting {
		return
	}
	ic.selecting = false

	ic.mu.Lock()
	sel := ic.sel
	ic.sel = nil
	ic.mu.Unlock()

	if ic.onRegionSelected != nil && sel != nil {
		ic.onRegionSelected(*sel)
	}
	ic.raster.Refresh()
}

func (dc *draggableContent) Scrolled(ev *fyne.ScrollEvent) {
	if ev.Scrolled.DY > 0 {
		dc.canvas.ZoomIn()
	} else if ev.Scrolled.DY < 0 {
		dc.canvas.ZoomOut()
	}
}

// Tapped handles left-click events.
func (dc *draggableContent) Tapped(ev *fyne.PointEvent) {
	dc.tap(ev, false)
}

// TappedSecondary handles right-click events.
func (dc *draggableContent) TappedSecondary(ev *fyne.PointEvent) {
	dc.tap(ev, true)
}

func (dc *draggableContent) tap(ev *fyne.PointEvent, alt bool) {
	ic := dc.canvas
	if ic.onTap == nil || !dc.inside(ev.Position) {
		return
	}
	ic.onTap(canvasToImage(dc.contentPos(ev.Position), ic.zoom), alt)
}

type draggableContentRenderer struct {
	content *draggableContent
}

func (r *draggableContentRenderer) Layout(size fyne.Size) {
	r.content.raster.Resize(size)
}

func (r *draggableContentRenderer) MinSize() fyne.Size {
	return r.content.raster.MinSize()
}

func (r *draggableContentRenderer) Refresh() {
	r.content.raster.Refresh()
}

func (r *draggableContentRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.content.raster}
}

func (r *draggableContentRenderer) Destroy() {}

// NewImageCanvas creates a canvas that displays whatever source returns.
func NewImageCanvas(source FrameSource) *ImageCanvas {
	ic := &ImageCanvas{
		source:  source,
		zoom:    1.0,
		imgSize: fyne.NewSize(400, 300),
	}

	ic.raster = fynecanvas.NewRaster(ic.draw)
	ic.raster.ScaleMode = fynecanvas.ImageScalePixels
	ic.raster.SetMinSize(ic.imgSize)

	ic.content = newDraggableContent(ic, ic.raster)
	ic.scroll = newZoomScroll(ic.content, ic)

	ic.ExtendBaseWidget(ic)
	return ic
}

// Container returns the canvas container for embedding in layouts.
func (ic *ImageCanvas) Container() fyne.CanvasObject {
	return ic.scroll
}

// Invalidate pulls a fresh frame from the source and redraws. Call it when
// the displayed content changed.
func (ic *ImageCanvas) Invalidate() {
	var frame image.Image
	if ic.source != nil {
		frame = ic.source()
	}
	ic.mu.Lock()
	old := ic.frame
	ic.frame = frame
	ic.mu.Unlock()

	if frameSize(old) != frameSize(frame) {
		ic.updateContentSize()
		if ic.fitToWindow {
			ic.FitToWindow()
		}
		return
	}
	ic.raster.Refresh()
}

func frameSize(img image.Image) image.Point {
	if img == nil {
		return image.Point{}
	}
	return img.Bounds().Size()
}

// SetZoom sets the zoom level.
func (ic *ImageCanvas) SetZoom(zoom float64) {
	zoom = min(max(zoom, minZoom), maxZoom)
	ic.zoom = zoom
	ic.updateContentSize()

	if ic.onZoomChange != nil {
		ic.onZoomChange(zoom)
	}
}

// Zoom returns the current zoom level.
func (ic *ImageCanvas) Zoom() float64 {
	return ic.zoom
}

// ZoomIn increases the zoom level.
func (ic *ImageCanvas) ZoomIn() {
	ic.SetZoom(ic.zoom * zoomStep)
}

// ZoomOut decreases the zoom level.
func (ic *ImageCanvas) ZoomOut() {
	ic.SetZoom(ic.zoom / zoomStep)
}

// FitToWindow adjusts zoom to fit the frame in the visible area.
func (ic *ImageCanvas) FitToWindow() {
	ic.mu.Lock()
	size := frameSize(ic.frame)
	ic.mu.Unlock()
	if size.X == 0 || size.Y == 0 {
		return
	}

	viewSize := ic.scroll.Size()
	if viewSize.Width <= 0 || viewSize.Height <= 0 {
		return
	}

	zoomX := float64(viewSize.Width) / float64(size.X)
	zoomY := float64(viewSize.Height) / float64(size.Y)
	ic.SetZoom(min(zoomX, zoomY) * 0.95)
}

// SetFitToWindow enables or disables auto-fit on resize.
func (ic *ImageCanvas) SetFitToWindow(fit bool) {
	ic.fitToWindow = fit
	if fit {
		ic.FitToWindow()
	}
}

// FitsToWindow reports whether auto-fit is enabled.
func (ic *ImageCanvas) FitsToWindow() bool {
	return ic.fitToWindow
}

// CheckResize auto-fits if enabled and the viewport changed size.
func (ic *ImageCanvas) CheckResize(size fyne.Size) {
	if !ic.fitToWindow {
		return
	}
	if size.Width > 0 && size.Height > 0 && size != ic.lastScrollSize {
		ic.lastScrollSize = size
		ic.FitToWindow()
	}
}

// OnZoomChange sets a callback for zoom changes.
func (ic *ImageCanvas) OnZoomChange(callback func(zoom float64)) {
	ic.onZoomChange = callback
}

// OnRegionSelected sets the callback for a completed drag. The rectangle is
// in image coordinates.
func (ic *ImageCanvas) OnRegionSelected(callback func(r geometry.Rect)) {
	ic.onRegionSelected = callback
}

// OnTap sets the callback for taps. alt is true for secondary (right) taps.
// Coordinates are in image space.
func (ic *ImageCanvas) OnTap(callback func(p geometry.Point2D, alt bool)) {
	ic.onTap = callback
}

// Refresh refreshes the canvas display.
func (ic *ImageCanvas) Refresh() {
	ic.raster.Refresh()
}

// updateContentSize updates the content size based on frame and zoom.
func (ic *ImageCanvas) updateContentSize() {
	ic.mu.Lock()
	size := frameSize(ic.frame)
	ic.mu.Unlock()
	if size.X == 0 || size.Y == 0 {
		ic.imgSize = fyne.NewSize(400, 300)
	} else {
		ic.imgSize = fyne.NewSize(float32(float64(size.X)*ic.zoom), float32(float64(size.Y)*ic.zoom))
	}

	ic.raster.SetMinSize(ic.imgSize)
	ic.raster.Resize(ic.imgSize)
	if ic.content != nil {
		ic.content.Resize(ic.imgSize)
		ic.content.Refresh()
	}
	ic.raster.Refresh()
	if ic.scroll != nil {
		ic.scroll.Refresh()
	}
}

// draw is the raster drawing function.
func (ic *ImageCanvas) draw(w, h int) image.Image {
	ic.mu.Lock()
	frame, sel := ic.frame, ic.sel
	ic.mu.Unlock()
	return renderFrame(frame, w, h, sel)
}

func canvasToImage(pos fyne.Position, zoom float64) geometry.Point2D {
	return geometry.NewPoint2D(float64(pos.X), float64(pos.Y)).Scale(1 / zoom)
}

// selectionRect maps a drag between two content positions to image space.
func selectionRect(a, b fyne.Position, zoom float64) geometry.Rect {
	return geometry.RectFromCorners(float64(a.X), float64(a.Y), float64(b.X), float64(b.Y)).Scaled(zoom)
}

// CreateRenderer implements fyne.Widget.
func (ic *ImageCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &imageCanvasRenderer{canvas: ic}
}

type imageCanvasRenderer struct {
	canvas *ImageCanvas
}

func (r *imageCanvasRenderer) Layout(size fyne.Size) {
	r.canvas.scroll.Resize(size)
	r.canvas.CheckResize(size)
}

func (r *imageCanvasRenderer) MinSize() fyne.Size {
	return fyne.NewSize(100, 100)
}

func (r *imageCanvasRenderer) Refresh() {
	r.canvas.raster.Refresh()
}

func (r *imageCanvasRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.canvas.scroll}
}

func (r *imageCanvasRenderer) Destroy() {}
