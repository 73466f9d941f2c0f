// Package mainwindow provides the main application window.
package mainwindow

import (
	"fmt"
	"image"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"label-grab/internal/app"
	"label-grab/internal/mask"
	"label-grab/internal/photo"
	"label-grab/internal/version"
	"label-grab/pkg/geometry"
	"label-grab/ui/canvas"
)

const (
	appTitle = "Label Grab"

	prefKeyLastDir   = "lastDirectory"
	prefKeyLastImage = "lastImage"
)

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app     fyne.App
	session *app.Session
	logger  *zap.SugaredLogger

	// display changes are written back here
	configPath string

	canvas    *canvas.ImageCanvas
	statusBar *widget.Label
	labelPick *widget.RadioGroup
	opacity   *widget.Slider

	// scribble label for primary taps; secondary taps use the opposite
	label mask.Label

	fitToWindowItem *fyne.MenuItem
}

// New creates a new main window bound to session. Display settings changed
// in the window are saved to configPath.
func New(fyneApp fyne.App, session *app.Session, logger *zap.SugaredLogger, configPath string) *MainWindow {
	mw := &MainWindow{
		Window:     fyneApp.NewWindow(appTitle),
		app:        fyneApp,
		session:    session,
		logger:     logger,
		configPath: configPath,
		label:      mask.Foreground,
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()
	mw.restoreLastImage()

	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.canvas = canvas.NewImageCanvas(func() image.Image {
		// avoid a typed-nil interface when no photo is loaded
		if c := mw.session.Composite(); c != nil {
			return c
		}
		return nil
	})
	mw.canvas.OnRegionSelected(mw.onRegionSelected)
	mw.canvas.OnTap(mw.onTap)
	mw.canvas.OnZoomChange(func(zoom float64) {
		mw.updateStatus(fmt.Sprintf("Zoom %.0f%%", zoom*100))
	})

	mw.statusBar = widget.NewLabel("Open an image, then drag a rectangle around the object")

	content := container.NewBorder(
		mw.createToolbar(),                // top
		container.NewPadded(mw.statusBar), // bottom
		nil,                               // left
		nil,                               // right
		mw.canvas.Container(),             // center
	)
	mw.SetContent(content)
	mw.Resize(fyne.NewSize(1024, 768))
}

// createToolbar creates the toolbar with zoom and scribble controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	mw.labelPick = widget.NewRadioGroup([]string{labelName(mask.Foreground), labelName(mask.Background)}, func(s string) {
		if s == labelName(mask.Background) {
			mw.label = mask.Background
		} else {
			mw.label = mask.Foreground
		}
	})
	mw.labelPick.Horizontal = true
	mw.labelPick.SetSelected(labelName(mw.label))

	mw.opacity = widget.NewSlider(0, 1)
	mw.opacity.Step = 0.05
	mw.opacity.SetValue(mw.session.Config().OverlayOpacity)
	mw.opacity.OnChanged = mw.onOpacityChanged
	mw.opacity.OnChangeEnded = func(float64) { mw.saveConfig() }
	opacityBox := container.NewGridWrap(fyne.NewSize(120, mw.opacity.MinSize().Height), mw.opacity)

	return container.NewHBox(
		widget.NewLabel("Zoom:"),
		widget.NewButton("-", mw.onZoomOut),
		widget.NewButton("+", mw.onZoomIn),
		widget.NewButton("Fit", mw.onToggleFitToWindow),
		widget.NewButton("1:1", mw.onActualSize),
		widget.NewSeparator(),
		widget.NewLabel("Scribble:"),
		mw.labelPick,
		widget.NewButton("Refine", mw.onRefine),
		widget.NewSeparator(),
		widget.NewLabel("Overlay:"),
		opacityBox,
	)
}

func labelName(l mask.Label) string {
	if l == mask.Background {
		return "Background"
	}
	return "Foreground"
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Image...", mw.onOpenImage),
		fyne.NewMenuItem("Export Overlay...", mw.onExport),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() { mw.app.Quit() }),
	)

	mw.fitToWindowItem = fyne.NewMenuItem("  Fit to Window", mw.onToggleFitToWindow)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", mw.onZoomIn),
		fyne.NewMenuItem("Zoom Out", mw.onZoomOut),
		mw.fitToWindowItem,
		fyne.NewMenuItem("Actual Size", mw.onActualSize),
	)

	segmentMenu := fyne.NewMenu("Segment",
		fyne.NewMenuItem("Scribble Foreground", func() { mw.setLabel(mask.Foreground) }),
		fyne.NewMenuItem("Scribble Background", func() { mw.setLabel(mask.Background) }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Refine", mw.onRefine),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", func() {
			dialog.ShowInformation("About", version.String(), mw.Window)
		}),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, viewMenu, segmentMenu, helpMenu))
}

// setupEventHandlers wires session events to the display. Errors are
// already logged by the session; the window only shows them in the status bar.
func (mw *MainWindow) setupEventHandlers() {
	mw.session.On(app.EventOverlayUpdated, func(interface{}) {
		mw.canvas.Invalidate()
	})

	mw.session.On(app.EventPhotoLoaded, func(data interface{}) {
		if path, ok := data.(string); ok && path != "" {
			mw.SetTitle(appTitle + " - " + filepath.Base(path))
		}
		res := mw.session.Resolution()
		mw.updateStatus(fmt.Sprintf("Loaded %dx%d image", res.X, res.Y))
	})

	mw.session.On(app.EventError, func(data interface{}) {
		if err, ok := data.(error); ok {
			mw.updateStatus("Error: " + err.Error())
		}
	})
}

func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

func (mw *MainWindow) setLabel(l mask.Label) {
	mw.label = l
	mw.labelPick.SetSelected(labelName(l))
}

func (mw *MainWindow) onRegionSelected(r geometry.Rect) {
	if err := mw.session.SetROIf(r); err == nil {
		mw.updateStatus("Segmented; tap to mark foreground, right-tap for background")
	}
}

func (mw *MainWindow) onTap(p geometry.Point2D, alt bool) {
	l := mw.label
	if alt {
		l = l.Opposite()
	}
	if err := mw.session.PaintF(int(l), p); err == nil {
		mw.updateStatus(fmt.Sprintf("Marked %s at (%.0f, %.0f)", l, p.X, p.Y))
	}
}

func (mw *MainWindow) onRefine() {
	if err := mw.session.Refine(); err == nil {
		mw.updateStatus("Refined")
	}
}

func (mw *MainWindow) onOpacityChanged(v float64) {
	if err := mw.session.SetOverlayOpacity(v); err == nil {
		mw.updateStatus(fmt.Sprintf("Overlay opacity %.0f%%", v*100))
	}
}

func (mw *MainWindow) saveConfig() {
	if mw.configPath == "" {
		return
	}
	if err := mw.session.SaveConfig(mw.configPath); err != nil {
		mw.logger.Warnw("could not save config", "path", mw.configPath, "error", err)
	}
}

func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.app.Preferences().String(prefKeyLastDir)
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

func (mw *MainWindow) saveLastDir(filePath string) {
	mw.app.Preferences().SetString(prefKeyLastDir, filepath.Dir(filePath))
}

func (mw *MainWindow) restoreLastImage() {
	path := mw.app.Preferences().String(prefKeyLastImage)
	if path == "" {
		return
	}
	if !photo.IsSupportedFormat(path) {
		mw.app.Preferences().SetString(prefKeyLastImage, "")
		return
	}
	mw.logger.Debugw("restoring last image", "path", path)
	if err := mw.session.LoadPhotoFile(path); err != nil {
		mw.app.Preferences().SetString(prefKeyLastImage, "")
	}
}

func (mw *MainWindow) onOpenImage() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)
		if err := mw.session.LoadPhotoFile(path); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.app.Preferences().SetString(prefKeyLastImage, path)
	}, mw.Window)

	fd.SetFilter(storage.NewExtensionFileFilter(photo.SupportedFormats()))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onExport() {
	if mw.session.Photo() == nil {
		mw.updateStatus("Nothing to export")
		return
	}
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		if filepath.Ext(path) != ".png" {
			path += ".png"
		}
		mw.saveLastDir(path)
		if err := photo.Save(path, mw.session.Composite()); err != nil {
			mw.logger.Errorw("export failed", "path", path, "error", err)
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.updateStatus("Exported " + path)
	}, mw.Window)
	fd.SetFileName("overlay.png")
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onZoomIn() {
	mw.disableFitToWindow()
	mw.canvas.ZoomIn()
}

func (mw *MainWindow) onZoomOut() {
	mw.disableFitToWindow()
	mw.canvas.ZoomOut()
}

func (mw *MainWindow) onToggleFitToWindow() {
	enabled := !mw.canvas.FitsToWindow()
	mw.canvas.SetFitToWindow(enabled)

	if enabled {
		mw.fitToWindowItem.Label = "✓ Fit to Window"
	} else {
		mw.fitToWindowItem.Label = "  Fit to Window"
	}
}

func (mw *MainWindow) onActualSize() {
	mw.disableFitToWindow()
	mw.canvas.SetZoom(1.0)
}

func (mw *MainWindow) disableFitToWindow() {
	if mw.canvas.FitsToWindow() {
		mw.canvas.SetFitToWindow(false)
		mw.fitToWindowItem.Label = "  Fit to Window"
	}
}
