// Package main provides the entry point for the Label Grab application.
package main

import (
	"flag"
	"fmt"
	"os"

	fyneapp "fyne.io/fyne/v2/app"

	"label-grab/internal/app"
	"label-grab/internal/config"
	"label-grab/internal/photo"
	"label-grab/internal/version"
	"label-grab/ui/mainwindow"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "configuration file (YAML)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg, cfgErr := config.Load(*configPath)
	logger, err := app.NewLogger(*debug || cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Infof("starting %s", version.String())
	if cfgErr != nil {
		logger.Warnw("config not fully applied", "path", *configPath, "error", cfgErr)
	}

	session := app.NewSession(cfg, logger)

	fyneApp := fyneapp.NewWithID("com.github.label-grab")
	fyneApp.Settings().SetTheme(&app.Theme{})

	win := mainwindow.New(fyneApp, session, logger, *configPath)

	// an image path on the command line replaces the restored one
	if flag.NArg() > 0 {
		path := flag.Arg(0)
		if !photo.IsSupportedFormat(path) {
			logger.Warnw("not an image file", "path", path, "formats", photo.SupportedFormats())
		} else if err := session.LoadPhotoFile(path); err != nil {
			logger.Warnw("could not open image", "path", path, "error", err)
		}
	}

	win.ShowAndRun()
}
