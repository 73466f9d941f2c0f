// Package config holds the user-tunable segmentation and display settings,
// persisted as YAML under the user's config directory.
package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"label-grab/internal/crop"
	"label-grab/internal/grabcut"
	"label-grab/internal/mask"
	"label-grab/internal/overlay"
	"label-grab/pkg/colorutil"
)

const (
	appDir     = "label-grab"
	configFile = "config.yaml"

	DefaultBrushRadius = 5
)

// PaletteConfig overrides overlay colours with "#rrggbb[aa]" strings. Empty
// entries keep the default colour.
type PaletteConfig struct {
	SureBackground   string `yaml:"sure_background,omitempty"`
	SureForeground   string `yaml:"sure_foreground,omitempty"`
	LikelyBackground string `yaml:"likely_background,omitempty"`
	LikelyForeground string `yaml:"likely_foreground,omitempty"`
}

// Config holds runtime configuration for segmentation and overlay display.
type Config struct {
	Debug bool `yaml:"debug"`

	// Segmentation parameters
	Margin       int     `yaml:"margin"`
	BrushRadius  int     `yaml:"brush_radius"`
	Iterations   int     `yaml:"iterations"`
	Components   int     `yaml:"components"`
	Gamma        float64 `yaml:"gamma"`
	Connectivity int     `yaml:"connectivity"`

	// Display
	OverlayOpacity float64       `yaml:"overlay_opacity"`
	Palette        PaletteConfig `yaml:"palette,omitempty"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Debug:          false,
		Margin:         crop.DefaultMargin,
		BrushRadius:    DefaultBrushRadius,
		Iterations:     grabcut.DefaultIterations,
		Components:     grabcut.DefaultComponents,
		Gamma:          grabcut.DefaultGamma,
		Connectivity:   grabcut.DefaultConnectivity,
		OverlayOpacity: 1,
	}
}

// Validate clamps values back to defaults where they are out of range and
// reports any palette entry that does not parse.
func (c *Config) Validate() error {
	d := DefaultConfig()
	if c.Margin < 0 {
		c.Margin = d.Margin
	}
	if c.BrushRadius < 0 {
		c.BrushRadius = d.BrushRadius
	}
	if c.Iterations < 1 {
		c.Iterations = d.Iterations
	}
	if c.Components < 1 {
		c.Components = d.Components
	}
	if c.Gamma <= 0 {
		c.Gamma = d.Gamma
	}
	if c.Connectivity != 4 && c.Connectivity != 8 {
		c.Connectivity = d.Connectivity
	}
	if c.OverlayOpacity < 0 || c.OverlayOpacity > 1 {
		c.OverlayOpacity = d.OverlayOpacity
	}
	_, err := c.OverlayPalette()
	return err
}

// GrabCutOptions returns the engine options described by c.
func (c *Config) GrabCutOptions() grabcut.Options {
	return grabcut.Options{
		Iterations:   c.Iterations,
		Components:   c.Components,
		Gamma:        c.Gamma,
		Connectivity: c.Connectivity,
	}
}

// OverlayPalette returns the default palette with c's overrides applied.
// On a parse error the default palette is returned alongside the error.
func (c *Config) OverlayPalette() (overlay.Palette, error) {
	pal := overlay.DefaultPalette()
	overrides := [mask.NumCategories]string{
		mask.SureBackground:   c.Palette.SureBackground,
		mask.SureForeground:   c.Palette.SureForeground,
		mask.LikelyBackground: c.Palette.LikelyBackground,
		mask.LikelyForeground: c.Palette.LikelyForeground,
	}
	out := pal
	for cat, s := range overrides {
		if s == "" {
			continue
		}
		col, err := colorutil.ParseHex(s)
		if err != nil {
			return pal, errors.Wrapf(err, "palette %s", mask.Category(cat))
		}
		out[cat] = col
	}
	return out, nil
}

// DefaultPath returns ~/.config/label-grab/config.yaml (or the platform
// equivalent).
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, appDir, configFile)
}

// Load reads configuration from path. A missing file yields DefaultConfig().
// On a decode error defaults are returned with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return DefaultConfig(), errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Save writes the configuration to path, creating its directory.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encode config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create config dir")
	}
	return os.WriteFile(path, data, 0o644)
}
