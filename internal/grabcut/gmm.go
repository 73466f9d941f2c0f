package grabcut

import (
	"math"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const (
	// covarianceFloor is added to every covariance diagonal so components
	// fitted to a single flat colour stay invertible.
	covarianceFloor = 0.01
	// maxSeedSamples bounds the k-means input; the remaining samples are
	// assigned to the nearest resulting centre.
	maxSeedSamples = 2000
)

// Color is an RGB sample in the image's native 0-255 range.
type Color [3]float64

var ln2Pi = math.Log(2 * math.Pi)

// component is one Gaussian with its inverse covariance and log-normaliser
// cached at learn time. A zero weight marks an unused component.
type component struct {
	weight    float64
	logWeight float64
	mean      Color
	inv       [3][3]float64
	logNorm   float64 // -(3 log 2π + log|Σ|)/2
}

// logDensity returns log N(c | mean, Σ).
func (comp *component) logDensity(c Color) float64 {
	d0, d1, d2 := c[0]-comp.mean[0], c[1]-comp.mean[1], c[2]-comp.mean[2]
	inv := &comp.inv
	q := d0*(inv[0][0]*d0+inv[0][1]*d1+inv[0][2]*d2) +
		d1*(inv[1][0]*d0+inv[1][1]*d1+inv[1][2]*d2) +
		d2*(inv[2][0]*d0+inv[2][1]*d1+inv[2][2]*d2)
	return comp.logNorm - q/2
}

// Model is a Gaussian mixture over RGB colours. The zero value is empty and
// must be seeded before it can score colours.
type Model struct {
	k     int
	comps []component
}

// NewModel returns an empty mixture with k components.
func NewModel(k int) *Model {
	if k < 1 {
		k = 1
	}
	return &Model{k: k, comps: make([]component, k)}
}

// Reset discards every learnt component.
func (m *Model) Reset() {
	for i := range m.comps {
		m.comps[i] = component{}
	}
}

// Ready reports whether at least one component has been learnt.
func (m *Model) Ready() bool {
	for _, c := range m.comps {
		if c.weight > 0 {
			return true
		}
	}
	return false
}

// LogLikelihood returns log p(c) under the mixture. An empty model returns
// -Inf. It does not allocate.
func (m *Model) LogLikelihood(c Color) float64 {
	// running log-sum-exp
	top, sum := math.Inf(-1), 0.0
	for i := range m.comps {
		comp := &m.comps[i]
		if comp.weight <= 0 {
			continue
		}
		v := comp.logWeight + comp.logDensity(c)
		if v > top {
			sum = sum*math.Exp(top-v) + 1
			top = v
		} else {
			sum += math.Exp(v - top)
		}
	}
	if math.IsInf(top, -1) {
		return top
	}
	return top + math.Log(sum)
}

// Component returns the index of the component under which c is most likely,
// ignoring mixture weights. It returns -1 for an empty model.
func (m *Model) Component(c Color) int {
	best, bestLP := -1, math.Inf(-1)
	for i := range m.comps {
		comp := &m.comps[i]
		if comp.weight <= 0 {
			continue
		}
		if lp := comp.logDensity(c); best < 0 || lp > bestLP {
			best, bestLP = i, lp
		}
	}
	return best
}

// Seed clusters samples with k-means and returns an initial component index
// for every sample.
func (m *Model) Seed(samples []Color) ([]int, error) {
	if len(samples) == 0 {
		return nil, nil
	}

	stride := 1
	if len(samples) > maxSeedSamples {
		stride = (len(samples) + maxSeedSamples - 1) / maxSeedSamples
	}
	var obs clusters.Observations
	for i := 0; i < len(samples); i += stride {
		s := samples[i]
		// kmeans places its initial centres in the unit cube
		obs = append(obs, clusters.Coordinates{s[0] / 255, s[1] / 255, s[2] / 255})
	}

	k := min(m.k, len(obs))
	cc, err := kmeans.New().Partition(obs, k)
	if err != nil {
		return nil, errors.Wrap(err, "k-means seeding")
	}

	centres := make([]Color, 0, len(cc))
	for _, c := range cc {
		if len(c.Center) < 3 {
			continue
		}
		centres = append(centres, Color{c.Center[0] * 255, c.Center[1] * 255, c.Center[2] * 255})
	}
	if len(centres) == 0 {
		return nil, errors.New("k-means produced no centres")
	}

	labels := make([]int, len(samples))
	for i, s := range samples {
		best, bestD := 0, math.Inf(1)
		for ci, c := range centres {
			d := sqDist(s, c)
			if d < bestD {
				best, bestD = ci, d
			}
		}
		labels[i] = best
	}
	return labels, nil
}

// Assign labels each sample with its most likely component.
func (m *Model) Assign(samples []Color) []int {
	labels := make([]int, len(samples))
	for i, s := range samples {
		labels[i] = m.Component(s)
	}
	return labels
}

// Learn refits weights, means and covariances from samples and their
// component labels. Samples labelled -1 are ignored.
func (m *Model) Learn(samples []Color, labels []int) error {
	if len(samples) != len(labels) {
		return errors.Errorf("%d samples but %d labels", len(samples), len(labels))
	}

	type acc struct {
		n    float64
		sum  [3]float64
		prod [3][3]float64
	}
	accs := make([]acc, m.k)
	total := 0.0
	for i, s := range samples {
		ci := labels[i]
		if ci < 0 || ci >= m.k {
			continue
		}
		a := &accs[ci]
		a.n++
		for r := 0; r < 3; r++ {
			a.sum[r] += s[r]
			for c := 0; c < 3; c++ {
				a.prod[r][c] += s[r] * s[c]
			}
		}
		total++
	}
	if total == 0 {
		return errors.New("no samples to learn from")
	}

	for ci := range m.comps {
		a := accs[ci]
		if a.n == 0 {
			m.comps[ci] = component{}
			continue
		}
		var mean Color
		for r := 0; r < 3; r++ {
			mean[r] = a.sum[r] / a.n
		}
		cov := mat.NewSymDense(3, nil)
		for r := 0; r < 3; r++ {
			for c := r; c < 3; c++ {
				cov.SetSym(r, c, a.prod[r][c]/a.n-mean[r]*mean[c])
			}
		}
		comp, err := newComponent(a.n/total, mean, cov)
		if err != nil {
			return err
		}
		m.comps[ci] = comp
	}
	return nil
}

// newComponent factorises cov once and caches what logDensity needs. The
// covariance diagonal is lifted by covarianceFloor, and further until the
// matrix is positive definite.
func newComponent(weight float64, mean Color, cov *mat.SymDense) (component, error) {
	addDiag(cov, covarianceFloor)
	floor := covarianceFloor
	var chol mat.Cholesky
	for attempt := 0; attempt < 8; attempt++ {
		if chol.Factorize(cov) {
			var inv mat.SymDense
			if err := chol.InverseTo(&inv); err == nil {
				comp := component{
					weight:    weight,
					logWeight: math.Log(weight),
					mean:      mean,
					logNorm:   -(3*ln2Pi + chol.LogDet()) / 2,
				}
				for r := 0; r < 3; r++ {
					for c := 0; c < 3; c++ {
						comp.inv[r][c] = inv.At(r, c)
					}
				}
				return comp, nil
			}
		}
		addDiag(cov, floor)
		floor *= 10
	}
	return component{}, errors.Errorf("covariance for component at %v is not positive definite", mean)
}

func addDiag(s *mat.SymDense, v float64) {
	n := s.SymmetricDim()
	for i := 0; i < n; i++ {
		s.SetSym(i, i, s.At(i, i)+v)
	}
}

func sqDist(a, b Color) float64 {
	d0, d1, d2 := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return d0*d0 + d1*d1 + d2*d2
}
