// Package filter implements the zero-phase Butterworth low-pass used to
// smooth raw marker trajectories before any geometry is derived from them.
package filter

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// biquad is one second-order section in direct form II transposed,
// normalized so a0 == 1.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// Filter is a cascade of second-order Butterworth low-pass sections.
type Filter struct {
	sections []biquad
}

// LowPass designs a Butterworth low-pass filter of the given (even) order via
// the bilinear transform. order is the order of the underlying one-pass
// filter; ZeroPhase doubles the effective attenuation.
func LowPass(order int, cutoffHz, rateHz float64) (*Filter, error) {
	if order < 2 || order%2 != 0 {
		return nil, fmt.Errorf("filter order must be a positive even number, got %d", order)
	}
	if rateHz <= 0 {
		return nil, fmt.Errorf("sampling rate must be positive, got %g", rateHz)
	}
	nyquist := rateHz / 2
	if cutoffHz <= 0 || cutoffHz >= nyquist {
		return nil, fmt.Errorf("cutoff %g Hz outside (0, %g) for rate %g Hz", cutoffHz, nyquist, rateHz)
	}

	w0 := 2 * math.Pi * cutoffHz / rateHz
	cosw := math.Cos(w0)
	sinw := math.Sin(w0)

	n := order / 2
	sections := make([]biquad, n)
	for k := 0; k < n; k++ {
		// Pole angles of the analog Butterworth prototype, one conjugate
		// pair per section.
		theta := math.Pi * float64(2*k+1) / float64(2*order)
		q := 1 / (2 * math.Sin(theta))
		alpha := sinw / (2 * q)

		a0 := 1 + alpha
		sections[k] = biquad{
			b0: (1 - cosw) / 2 / a0,
			b1: (1 - cosw) / a0,
			b2: (1 - cosw) / 2 / a0,
			a1: -2 * cosw / a0,
			a2: (1 - alpha) / a0,
		}
	}
	return &Filter{sections: sections}, nil
}

// apply runs the cascade over x in place-order, seeding each section with its
// steady-state response to x[0] to suppress the startup transient.
func (f *Filter) apply(x []float64) []float64 {
	y := make([]float64, len(x))
	copy(y, x)
	for _, s := range f.sections {
		// Steady-state initial conditions for a unity-DC-gain section.
		z1 := (1 - s.b0) * y[0]
		z2 := (s.b2 - s.a2) * y[0]
		for i, v := range y {
			out := s.b0*v + z1
			z1 = s.b1*v - s.a1*out + z2
			z2 = s.b2*v - s.a2*out
			y[i] = out
		}
	}
	return y
}

// padLen mirrors the padding length convention of zero-phase filtering:
// three times the effective filter length, clamped to the series length.
func (f *Filter) padLen(n int) int {
	p := 3 * (2*len(f.sections) + 1)
	if p > n-1 {
		p = n - 1
	}
	if p < 0 {
		p = 0
	}
	return p
}

// ZeroPhase applies the filter forward and backward over x with odd-reflection
// edge padding, so the output has no phase lag. The output length equals the
// input length. NaN samples split the series; each contiguous valid run is
// filtered independently and NaN gaps are preserved.
func (f *Filter) ZeroPhase(x []float64) []float64 {
	out := make([]float64, len(x))
	for i := range out {
		out[i] = math.NaN()
	}

	start := -1
	for i := 0; i <= len(x); i++ {
		valid := i < len(x) && !math.IsNaN(x[i])
		switch {
		case valid && start < 0:
			start = i
		case !valid && start >= 0:
			f.zeroPhaseRun(x[start:i], out[start:i])
			start = -1
		}
	}
	return out
}

func (f *Filter) zeroPhaseRun(x, out []float64) {
	n := len(x)
	if n < 3 {
		copy(out, x)
		return
	}

	pad := f.padLen(n)
	ext := make([]float64, n+2*pad)
	for i := 0; i < pad; i++ {
		ext[i] = 2*x[0] - x[pad-i]
	}
	copy(ext[pad:], x)
	for i := 0; i < pad; i++ {
		ext[pad+n+i] = 2*x[n-1] - x[n-2-i]
	}

	y := f.apply(ext)
	reverse(y)
	y = f.apply(y)
	reverse(y)

	copy(out, y[pad:pad+n])
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}

// ZeroPhaseVec filters each coordinate of a marker trajectory independently.
func (f *Filter) ZeroPhaseVec(pts []r3.Vec) []r3.Vec {
	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	zs := make([]float64, len(pts))
	for i, p := range pts {
		xs[i], ys[i], zs[i] = p.X, p.Y, p.Z
	}
	xs = f.ZeroPhase(xs)
	ys = f.ZeroPhase(ys)
	zs = f.ZeroPhase(zs)

	out := make([]r3.Vec, len(pts))
	for i := range out {
		out[i] = r3.Vec{X: xs[i], Y: ys[i], Z: zs[i]}
	}
	return out
}
