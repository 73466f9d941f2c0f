package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"label-grab/internal/grabcut"
	"label-grab/internal/mask"
	"label-grab/internal/overlay"
)

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg, test.ShouldResemble, DefaultConfig())
	test.That(t, cfg.GrabCutOptions(), test.ShouldResemble, grabcut.DefaultOptions())
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
margin: 16
brush_radius: 3
connectivity: 4
palette:
  sure_foreground: "#00ff00"
`)
	test.That(t, os.WriteFile(path, data, 0o644), test.ShouldBeNil)

	cfg, err := Load(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Margin, test.ShouldEqual, 16)
	test.That(t, cfg.BrushRadius, test.ShouldEqual, 3)
	test.That(t, cfg.Connectivity, test.ShouldEqual, 4)
	test.That(t, cfg.Iterations, test.ShouldEqual, grabcut.DefaultIterations)

	pal, err := cfg.OverlayPalette()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pal[mask.SureForeground], test.ShouldResemble, color.NRGBA{0, 255, 0, 255})
	test.That(t, pal[mask.SureBackground], test.ShouldResemble, overlay.DefaultPalette()[mask.SureBackground])
}

func TestValidateClamps(t *testing.T) {
	cfg := &Config{
		Margin:         -1,
		BrushRadius:    -3,
		Iterations:     0,
		Components:     -2,
		Gamma:          0,
		Connectivity:   6,
		OverlayOpacity: 2,
	}
	test.That(t, cfg.Validate(), test.ShouldBeNil)
	test.That(t, cfg, test.ShouldResemble, DefaultConfig())
}

func TestBadPalette(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Palette.LikelyBackground = "#12"
	test.That(t, cfg.Validate(), test.ShouldNotBeNil)
	pal, err := cfg.OverlayPalette()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, pal, test.ShouldResemble, overlay.DefaultPalette())
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	test.That(t, os.WriteFile(path, []byte("margin: [1, 2"), 0o644), test.ShouldBeNil)
	cfg, err := Load(path)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, cfg, test.ShouldResemble, DefaultConfig())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Gamma = 25
	cfg.Debug = true
	cfg.Palette.SureBackground = "#ff000080"
	test.That(t, cfg.Save(path), test.ShouldBeNil)

	got, err := Load(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, cfg)
}

func TestDefaultPath(t *testing.T) {
	p := DefaultPath()
	test.That(t, filepath.Base(p), test.ShouldEqual, "config.yaml")
	test.That(t, filepath.Base(filepath.Dir(p)), test.ShouldEqual, "label-grab")
}
