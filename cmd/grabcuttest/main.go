// Command grabcuttest runs a scripted segmentation session on an image and
// writes the composited result.
//
//	grabcuttest -i photo.jpg -roi 40,40,200,180 -fg 120,100 -bg 45,60;190,170 -o out.png
package main

import (
	"flag"
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"label-grab/internal/app"
	"label-grab/internal/config"
	"label-grab/internal/mask"
	"label-grab/internal/photo"
)

func main() {
	input := flag.String("i", "", "Path to input image")
	roiArg := flag.String("roi", "", "Region of interest x1,y1,x2,y2 (full-image pixels)")
	fgArg := flag.String("fg", "", "Foreground scribbles x,y[;x,y...]")
	bgArg := flag.String("bg", "", "Background scribbles x,y[;x,y...]")
	output := flag.String("o", "grabcut.png", "Output PNG (photo with overlay)")
	configPath := flag.String("config", "", "Optional configuration file (YAML)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *input == "" || *roiArg == "" {
		fmt.Println("Usage: grabcuttest -i <image> -roi x1,y1,x2,y2 [-fg x,y;...] [-bg x,y;...] [-o out.png]")
		os.Exit(1)
	}

	roi, err := parseRect(*roiArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Bad -roi: %v\n", err)
		os.Exit(1)
	}
	fg, err := parsePoints(*fgArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Bad -fg: %v\n", err)
		os.Exit(1)
	}
	bg, err := parsePoints(*bgArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Bad -bg: %v\n", err)
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Config: %v (continuing with defaults)\n", err)
		}
	}
	logger, err := app.NewLogger(*debug || cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	session := app.NewSession(cfg, logger)

	fmt.Printf("=== Loading %s ===\n", *input)
	if err := session.LoadPhotoFile(*input); err != nil {
		os.Exit(1)
	}
	fmt.Printf("Resolution: %v\n", session.Resolution())

	fmt.Printf("\n=== ROI %v ===\n", roi)
	if err := session.SetROI(roi); err != nil {
		os.Exit(1)
	}
	printStats(session)

	for _, s := range scribbles(fg, bg) {
		fmt.Printf("\n=== %s scribble at %v ===\n", s.label, s.at)
		if err := session.Paint(s.label, s.at); err != nil {
			continue
		}
		printStats(session)
	}

	if err := photo.Save(*output, session.Composite()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", *output, err)
		os.Exit(1)
	}
	fmt.Printf("\nWrote %s\n", *output)
}

type scribble struct {
	label mask.Label
	at    image.Point
}

// scribbles orders foreground scribbles before background ones.
func scribbles(fg, bg []image.Point) []scribble {
	out := make([]scribble, 0, len(fg)+len(bg))
	for _, p := range fg {
		out = append(out, scribble{mask.Foreground, p})
	}
	for _, p := range bg {
		out = append(out, scribble{mask.Background, p})
	}
	return out
}

func printStats(session *app.Session) {
	in := session.Instance()
	if in == nil {
		return
	}
	stats := in.Stats()
	total := 0
	for _, n := range stats {
		total += n
	}
	fmt.Printf("Crop %v (%d px)\n", in.Region().Rect, total)
	for c, n := range stats {
		fmt.Printf("  %-17s %7d  %5.1f%%\n", mask.Category(c), n, 100*float64(n)/float64(max(total, 1)))
	}
}

// parseRect parses "x1,y1,x2,y2".
func parseRect(s string) (image.Rectangle, error) {
	v, err := parseInts(s, 4)
	if err != nil {
		return image.Rectangle{}, err
	}
	return image.Rect(v[0], v[1], v[2], v[3]), nil
}

// parsePoints parses "x,y;x,y;...". An empty string yields no points.
func parsePoints(s string) ([]image.Point, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var pts []image.Point
	for _, part := range strings.Split(s, ";") {
		v, err := parseInts(part, 2)
		if err != nil {
			return nil, err
		}
		pts = append(pts, image.Pt(v[0], v[1]))
	}
	return pts, nil
}

func parseInts(s string, n int) ([]int, error) {
	fields := strings.Split(s, ",")
	if len(fields) != n {
		return nil, errors.Errorf("%q: want %d comma-separated integers", s, n)
	}
	out := make([]int, n)
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, errors.Wrapf(err, "%q", s)
		}
		out[i] = v
	}
	return out, nil
}
