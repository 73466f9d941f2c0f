package grabcut

import (
	"math"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

func twoToneSamples() []Color {
	var s []Color
	for i := 0; i < 60; i++ {
		jitter := float64(i % 3)
		s = append(s, Color{200 + jitter, 30, 20 - jitter})
		s = append(s, Color{20, 40 + jitter, 210 - jitter})
	}
	return s
}

func TestModelEmpty(t *testing.T) {
	m := NewModel(0)
	test.That(t, m.comps, test.ShouldHaveLength, 1)
	test.That(t, m.Ready(), test.ShouldBeFalse)
	test.That(t, math.IsInf(m.LogLikelihood(Color{1, 2, 3}), -1), test.ShouldBeTrue)
	test.That(t, m.Component(Color{1, 2, 3}), test.ShouldEqual, -1)

	labels, err := m.Seed(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, labels, test.ShouldBeNil)
	test.That(t, m.Learn(nil, nil), test.ShouldNotBeNil)
}

func TestModelSeedAndLearn(t *testing.T) {
	samples := twoToneSamples()
	m := NewModel(2)
	labels, err := m.Seed(samples)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, labels, test.ShouldHaveLength, len(samples))
	test.That(t, m.Learn(samples, labels), test.ShouldBeNil)
	test.That(t, m.Ready(), test.ShouldBeTrue)

	red := Color{201, 30, 19}
	blue := Color{20, 41, 209}
	green := Color{30, 220, 40}
	test.That(t, m.LogLikelihood(red), test.ShouldBeGreaterThan, m.LogLikelihood(green))
	test.That(t, m.LogLikelihood(blue), test.ShouldBeGreaterThan, m.LogLikelihood(green))

	// reassignment is stable once learnt
	again := m.Assign(samples)
	test.That(t, m.Learn(samples, again), test.ShouldBeNil)
	test.That(t, m.Assign(samples), test.ShouldResemble, again)
}

func TestModelFlatColour(t *testing.T) {
	samples := make([]Color, 50)
	for i := range samples {
		samples[i] = Color{10, 200, 30}
	}
	m := NewModel(DefaultComponents)
	labels, err := m.Seed(samples)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Learn(samples, labels), test.ShouldBeNil)
	test.That(t, m.Ready(), test.ShouldBeTrue)
	ll := m.LogLikelihood(Color{10, 200, 30})
	test.That(t, math.IsInf(ll, 0) || math.IsNaN(ll), test.ShouldBeFalse)
	test.That(t, ll, test.ShouldBeGreaterThan, m.LogLikelihood(Color{12, 200, 30}))
}

func TestModelLearnRejectsMismatch(t *testing.T) {
	m := NewModel(2)
	test.That(t, m.Learn(twoToneSamples(), []int{0}), test.ShouldNotBeNil)
}

func TestModelSeedSubsamples(t *testing.T) {
	samples := make([]Color, 3*maxSeedSamples+7)
	for i := range samples {
		if i%3 != 0 {
			samples[i] = Color{250, 10, 10}
		} else {
			samples[i] = Color{10, 10, 250}
		}
	}
	m := NewModel(3)
	labels, err := m.Seed(samples)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, labels, test.ShouldHaveLength, len(samples))
	test.That(t, m.Learn(samples, labels), test.ShouldBeNil)
	test.That(t, m.LogLikelihood(Color{250, 10, 10}), test.ShouldBeGreaterThan, m.LogLikelihood(Color{10, 250, 10}))
}

// lattice returns the 27 colours {base, base+10, base+30}^3.
func lattice(base float64) []Color {
	steps := []float64{0, 10, 30}
	var s []Color
	for _, r := range steps {
		for _, g := range steps {
			for _, b := range steps {
				s = append(s, Color{base + r, base + g, base + b})
			}
		}
	}
	return s
}

// referenceNormal fits a Gaussian to samples the way Learn does, using
// distmv for the density.
func referenceNormal(t *testing.T, samples []Color) *distmv.Normal {
	t.Helper()
	n := float64(len(samples))
	var mean Color
	for _, s := range samples {
		for r := range mean {
			mean[r] += s[r] / n
		}
	}
	cov := mat.NewSymDense(3, nil)
	for r := 0; r < 3; r++ {
		for c := r; c < 3; c++ {
			v := 0.0
			for _, s := range samples {
				v += (s[r] - mean[r]) * (s[c] - mean[c])
			}
			v /= n
			if r == c {
				v += covarianceFloor
			}
			cov.SetSym(r, c, v)
		}
	}
	normal, ok := distmv.NewNormal(mean[:], cov, nil)
	test.That(t, ok, test.ShouldBeTrue)
	return normal
}

func TestModelMatchesGaussianDensity(t *testing.T) {
	low, high := lattice(20), lattice(140)
	samples := append(append([]Color{}, low...), high...)
	labels := make([]int, len(samples))
	for i := len(low); i < len(samples); i++ {
		labels[i] = 1
	}

	m := NewModel(2)
	test.That(t, m.Learn(samples, labels), test.ShouldBeNil)
	lowN, highN := referenceNormal(t, low), referenceNormal(t, high)

	for _, c := range []Color{{20, 20, 20}, {35, 28, 41}, {150, 160, 170}, {90, 90, 90}, {255, 0, 128}} {
		want := floats.LogSumExp([]float64{
			math.Log(0.5) + lowN.LogProb(c[:]),
			math.Log(0.5) + highN.LogProb(c[:]),
		})
		test.That(t, m.LogLikelihood(c), test.ShouldAlmostEqual, want, 1e-9)
	}
	test.That(t, m.Component(Color{25, 25, 25}), test.ShouldEqual, 0)
	test.That(t, m.Component(Color{150, 150, 150}), test.ShouldEqual, 1)
}

func TestLogLikelihoodDoesNotAllocate(t *testing.T) {
	samples := twoToneSamples()
	m := NewModel(DefaultComponents)
	labels, err := m.Seed(samples)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Learn(samples, labels), test.ShouldBeNil)

	c := Color{120, 35, 110}
	allocs := testing.AllocsPerRun(100, func() {
		m.LogLikelihood(c)
		m.Component(c)
	})
	test.That(t, allocs, test.ShouldEqual, 0.0)
}
