// Package grabcut implements iterative GMM + min-cut foreground extraction
// over a cropped region of a photo.
//
// An Instance moves through two states. Initialize seeds the label mask from
// the ROI rectangle (outside certain background, inside unknown) and runs the
// configured number of passes. Refine runs the same number of passes again,
// seeded from whatever the mask currently holds, so scribbled sure pixels act
// as hard constraints and likely pixels are free to flip.
//
// Each pass reassigns samples to mixture components, refits both colour
// models, and relabels every likely pixel with a global minimum cut over data
// costs (negative log-likelihood) and contrast-weighted smoothness costs.
package grabcut

import (
	"image"
	"math"

	"github.com/pkg/errors"

	"label-grab/internal/crop"
	"label-grab/internal/mask"
)

const (
	DefaultIterations   = 5
	DefaultComponents   = 5
	DefaultGamma        = 50.0
	DefaultConnectivity = 8
)

// ErrNotSeeded is returned by Refine before a successful Initialize.
var ErrNotSeeded = errors.New("segmentation instance is not initialized")

// Options tunes the energy minimisation.
type Options struct {
	Iterations   int     // passes per Initialize/Refine call
	Components   int     // mixture components per colour model
	Gamma        float64 // smoothness weight
	Connectivity int     // 4 or 8 neighbours
}

// DefaultOptions returns the standard GrabCut parameters.
func DefaultOptions() Options {
	return Options{
		Iterations:   DefaultIterations,
		Components:   DefaultComponents,
		Gamma:        DefaultGamma,
		Connectivity: DefaultConnectivity,
	}
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.Iterations < 1 {
		o.Iterations = d.Iterations
	}
	if o.Components < 1 {
		o.Components = d.Components
	}
	if o.Gamma <= 0 {
		o.Gamma = d.Gamma
	}
	if o.Connectivity != 4 && o.Connectivity != 8 {
		o.Connectivity = d.Connectivity
	}
	return o
}

// neighbour is a backward-looking offset; together with its mirror it covers
// the full 4- or 8-neighbourhood exactly once per pixel pair.
type neighbour struct {
	dx, dy int
	dist   float64
}

var (
	neighbours4 = []neighbour{{-1, 0, 1}, {0, -1, 1}}
	neighbours8 = []neighbour{{-1, 0, 1}, {-1, -1, math.Sqrt2}, {0, -1, 1}, {1, -1, math.Sqrt2}}
)

// Instance is one segmentation of one crop of a photo.
type Instance struct {
	opts   Options
	region crop.Region
	roi    image.Rectangle // crop-local

	w, h   int
	colors []Color // crop pixels, row-major

	mask   *mask.Mask
	fg, bg *Model
	seeded bool

	neighbours []neighbour
	weights    [][]float64 // per neighbour, per pixel smoothness capacity
}

// NewInstance prepares a segmentation of region within photo. The photo is
// read once; the instance keeps its own copy of the crop colours.
func NewInstance(photo *image.RGBA, region crop.Region, opts Options) (*Instance, error) {
	if photo == nil || photo.Rect.Empty() {
		return nil, errors.Wrap(crop.ErrInvalidRegion, "no photo")
	}
	size := photo.Rect.Size()
	if len(photo.Pix) < photo.Stride*(size.Y-1)+4*size.X {
		return nil, errors.Wrapf(crop.ErrInvalidRegion, "photo buffer too small for %v", size)
	}
	if region.Empty() {
		return nil, errors.Wrapf(crop.ErrInvalidRegion, "empty crop %v", region.Rect)
	}
	if !region.Rect.In(image.Rectangle{Max: size}) {
		return nil, errors.Wrapf(crop.ErrInvalidRegion, "crop %v outside photo %v", region.Rect, size)
	}
	roi := region.LocalROI()
	if roi.Empty() || !roi.In(image.Rectangle{Max: region.Size()}) {
		return nil, errors.Wrapf(crop.ErrInvalidRegion, "roi %v outside crop %v", region.ROI, region.Rect)
	}

	opts = opts.normalized()
	cs := region.Size()
	in := &Instance{
		opts:   opts,
		region: region,
		roi:    roi,
		w:      cs.X,
		h:      cs.Y,
		colors: make([]Color, cs.X*cs.Y),
		fg:     NewModel(opts.Components),
		bg:     NewModel(opts.Components),
	}
	for y := 0; y < cs.Y; y++ {
		for x := 0; x < cs.X; x++ {
			off := photo.PixOffset(photo.Rect.Min.X+region.Rect.Min.X+x, photo.Rect.Min.Y+region.Rect.Min.Y+y)
			px := photo.Pix[off : off+3 : off+3]
			in.colors[y*cs.X+x] = Color{float64(px[0]), float64(px[1]), float64(px[2])}
		}
	}

	in.neighbours = neighbours8
	if opts.Connectivity == 4 {
		in.neighbours = neighbours4
	}
	in.computeSmoothness()
	return in, nil
}

// computeSmoothness precomputes gamma/dist * exp(-beta*|zp-zq|^2) for every
// neighbour pair, with beta = 1 / (2 * mean |zp-zq|^2).
func (in *Instance) computeSmoothness() {
	sum, count := 0.0, 0
	in.forEachPair(func(_ int, p, q int) {
		sum += sqDist(in.colors[p], in.colors[q])
		count++
	})
	beta := 0.0
	if count > 0 && sum > flowEpsilon {
		beta = 1 / (2 * sum / float64(count))
	}

	in.weights = make([][]float64, len(in.neighbours))
	for k := range in.weights {
		in.weights[k] = make([]float64, in.w*in.h)
	}
	in.forEachPair(func(k int, p, q int) {
		in.weights[k][p] = in.opts.Gamma / in.neighbours[k].dist * math.Exp(-beta*sqDist(in.colors[p], in.colors[q]))
	})
}

// forEachPair calls fn for every in-bounds (pixel, neighbour) pair.
func (in *Instance) forEachPair(fn func(k, p, q int)) {
	for y := 0; y < in.h; y++ {
		for x := 0; x < in.w; x++ {
			p := y*in.w + x
			for k, nb := range in.neighbours {
				nx, ny := x+nb.dx, y+nb.dy
				if nx < 0 || ny < 0 || nx >= in.w {
					continue
				}
				fn(k, p, ny*in.w+nx)
			}
		}
	}
}

// Region returns the crop the instance works on.
func (in *Instance) Region() crop.Region {
	return in.region
}

// Mask returns the live label mask. Callers must not write to it except
// through Paint.
func (in *Instance) Mask() *mask.Mask {
	return in.mask
}

// RestoreMask replaces the label mask with a previously captured one of the
// same shape.
func (in *Instance) RestoreMask(m *mask.Mask) error {
	if m == nil || m.W != in.w || m.H != in.h {
		return errors.New("mask shape does not match crop")
	}
	in.mask = m
	return nil
}

// Paint writes a filled disk of the label's sure category at p, given in
// full-image coordinates. Pixels outside the crop are ignored.
func (in *Instance) Paint(l mask.Label, p image.Point, radius int) error {
	if !in.seeded {
		return ErrNotSeeded
	}
	in.mask.PaintDisk(in.region.ToLocal(p), radius, l.Category())
	return nil
}

// Initialize resets both colour models, builds a fresh mask from the ROI and
// runs the configured passes.
func (in *Instance) Initialize() error {
	in.seeded = false
	in.fg.Reset()
	in.bg.Reset()

	m := mask.New(in.w, in.h)
	m.FillRect(in.roi, mask.LikelyForeground)
	if err := in.run(m, true); err != nil {
		return errors.Wrap(err, "initialize")
	}
	in.mask = m
	in.seeded = true
	return nil
}

// Refine re-optimises from the current mask. On error the mask and models
// are left as they were.
func (in *Instance) Refine() error {
	if !in.seeded {
		return ErrNotSeeded
	}
	fg, bg := in.fg.clone(), in.bg.clone()
	m := in.mask.Clone()
	if err := in.run(m, false); err != nil {
		in.fg, in.bg = fg, bg
		return errors.Wrap(err, "refine")
	}
	in.mask = m
	return nil
}

func (in *Instance) run(m *mask.Mask, reseed bool) error {
	fgSamples, bgSamples := in.samples(m)
	if err := fit(in.fg, fgSamples, reseed); err != nil {
		return errors.Wrap(err, "foreground model")
	}
	if err := fit(in.bg, bgSamples, reseed); err != nil {
		return errors.Wrap(err, "background model")
	}

	for pass := 0; pass < in.opts.Iterations; pass++ {
		if pass > 0 {
			fgSamples, bgSamples = in.samples(m)
			if err := fit(in.fg, fgSamples, false); err != nil {
				return errors.Wrapf(err, "pass %d: foreground model", pass)
			}
			if err := fit(in.bg, bgSamples, false); err != nil {
				return errors.Wrapf(err, "pass %d: background model", pass)
			}
		}
		in.cut(m)
	}
	return nil
}

// fit refits model to samples. Seeding by k-means happens on request or when
// the model has never been learnt; otherwise samples are assigned to their
// current most likely component.
func fit(model *Model, samples []Color, reseed bool) error {
	if len(samples) == 0 {
		model.Reset()
		return nil
	}
	var labels []int
	if reseed || !model.Ready() {
		var err error
		if labels, err = model.Seed(samples); err != nil {
			return err
		}
	} else {
		labels = model.Assign(samples)
	}
	return model.Learn(samples, labels)
}

func (in *Instance) samples(m *mask.Mask) (fg, bg []Color) {
	for i, c := range m.Pix {
		if c.IsForeground() {
			fg = append(fg, in.colors[i])
		} else {
			bg = append(bg, in.colors[i])
		}
	}
	return fg, bg
}

// cut relabels the likely pixels of m with a minimum s-t cut. The source
// side is foreground.
func (in *Instance) cut(m *mask.Mask) {
	fgReady, bgReady := in.fg.Ready(), in.bg.Ready()
	if !fgReady || !bgReady {
		// one class has no samples at all: every free pixel joins the other
		for i, c := range m.Pix {
			if c.IsSure() {
				continue
			}
			if fgReady {
				m.Pix[i] = mask.LikelyForeground
			} else if bgReady {
				m.Pix[i] = mask.LikelyBackground
			}
		}
		return
	}

	n := in.w * in.h
	lambda := float64(len(in.neighbours)*2+1) * in.opts.Gamma
	g := newGraph(n, n*len(in.neighbours))
	for p, c := range m.Pix {
		switch c {
		case mask.SureBackground:
			g.addTerminalWeights(p, 0, lambda)
		case mask.SureForeground:
			g.addTerminalWeights(p, lambda, 0)
		default:
			col := in.colors[p]
			g.addTerminalWeights(p, -in.bg.LogLikelihood(col), -in.fg.LogLikelihood(col))
		}
	}
	in.forEachPair(func(k, p, q int) {
		g.addPairWeight(p, q, in.weights[k][p])
	})

	g.maxFlow()
	side := g.sourceSide()
	for p, c := range m.Pix {
		if c.IsSure() {
			continue
		}
		if side[p] {
			m.Pix[p] = mask.LikelyForeground
		} else {
			m.Pix[p] = mask.LikelyBackground
		}
	}
}

func (m *Model) clone() *Model {
	comps := make([]component, len(m.comps))
	copy(comps, m.comps)
	return &Model{k: m.k, comps: comps}
}

// Stats returns the number of mask pixels in each category.
func (in *Instance) Stats() [mask.NumCategories]int {
	if in.mask == nil {
		return [mask.NumCategories]int{}
	}
	return in.mask.Histogram()
}
