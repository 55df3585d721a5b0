package filter

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestLowPassDesignErrors(t *testing.T) {
	tests := []struct {
		name         string
		order        int
		cutoff, rate float64
	}{
		{"odd order", 3, 40, 360},
		{"zero order", 0, 40, 360},
		{"cutoff at nyquist", 4, 180, 360},
		{"cutoff above nyquist", 4, 200, 360},
		{"zero cutoff", 4, 0, 360},
		{"zero rate", 4, 40, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LowPass(tc.order, tc.cutoff, tc.rate); err == nil {
				t.Fatal("expected design error")
			}
		})
	}
}

func TestZeroPhaseDCGain(t *testing.T) {
	f, err := LowPass(4, 40, 360)
	if err != nil {
		t.Fatal(err)
	}
	x := make([]float64, 500)
	for i := range x {
		x[i] = 3.25
	}
	y := f.ZeroPhase(x)
	if len(y) != len(x) {
		t.Fatalf("length changed: %d -> %d", len(x), len(y))
	}
	for i, v := range y {
		if math.Abs(v-3.25) > 1e-9 {
			t.Fatalf("sample %d: constant input distorted: %v", i, v)
		}
	}
}

func TestZeroPhaseAttenuatesHighFrequency(t *testing.T) {
	const rate, cutoff = 360.0, 40.0
	f, err := LowPass(4, cutoff, rate)
	if err != nil {
		t.Fatal(err)
	}

	n := 1024
	low := make([]float64, n)  // 5 Hz, well inside the passband
	high := make([]float64, n) // 150 Hz, deep in the stopband
	for i := 0; i < n; i++ {
		ts := float64(i) / rate
		low[i] = math.Sin(2 * math.Pi * 5 * ts)
		high[i] = math.Sin(2 * math.Pi * 150 * ts)
	}

	lowOut := f.ZeroPhase(low)
	highOut := f.ZeroPhase(high)

	// Compare mid-series amplitude, away from edge effects.
	if a := amplitude(lowOut[n/4 : 3*n/4]); a < 0.98 {
		t.Errorf("passband amplitude too low: %v", a)
	}
	if a := amplitude(highOut[n/4 : 3*n/4]); a > 0.01 {
		t.Errorf("stopband amplitude too high: %v", a)
	}
}

func amplitude(x []float64) float64 {
	max := 0.0
	for _, v := range x {
		if a := math.Abs(v); a > max {
			max = a
		}
	}
	return max
}

func TestZeroPhaseIsSymmetric(t *testing.T) {
	f, err := LowPass(4, 40, 360)
	if err != nil {
		t.Fatal(err)
	}
	n := 400
	x := make([]float64, n)
	for i := range x {
		ts := float64(i) / 360
		x[i] = math.Sin(2*math.Pi*8*ts) + 0.3*math.Cos(2*math.Pi*20*ts)
	}
	y := f.ZeroPhase(x)

	rev := make([]float64, n)
	for i := range rev {
		rev[i] = x[n-1-i]
	}
	yrev := f.ZeroPhase(rev)

	// Zero-phase filtering commutes with time reversal away from the edges,
	// where the finite padding leaves a small residual transient.
	for i := 30; i < n-30; i++ {
		if math.Abs(y[i]-yrev[n-1-i]) > 1e-6 {
			t.Fatalf("sample %d: forward/backward asymmetry %v vs %v", i, y[i], yrev[n-1-i])
		}
	}
}

func TestZeroPhaseNaNGaps(t *testing.T) {
	f, err := LowPass(4, 40, 360)
	if err != nil {
		t.Fatal(err)
	}
	x := make([]float64, 120)
	for i := range x {
		x[i] = 1
	}
	for i := 50; i < 60; i++ {
		x[i] = math.NaN()
	}
	y := f.ZeroPhase(x)
	for i, v := range y {
		if i >= 50 && i < 60 {
			if !math.IsNaN(v) {
				t.Fatalf("sample %d: gap not preserved: %v", i, v)
			}
			continue
		}
		if math.Abs(v-1) > 1e-9 {
			t.Fatalf("sample %d: valid run distorted: %v", i, v)
		}
	}
}

func TestZeroPhaseShortRuns(t *testing.T) {
	f, err := LowPass(4, 40, 360)
	if err != nil {
		t.Fatal(err)
	}
	// Runs shorter than the padding length must still come back unharmed.
	for _, n := range []int{0, 1, 2, 5, 10} {
		x := make([]float64, n)
		for i := range x {
			x[i] = 2
		}
		y := f.ZeroPhase(x)
		if len(y) != n {
			t.Fatalf("n=%d: length changed to %d", n, len(y))
		}
		for i, v := range y {
			if math.Abs(v-2) > 1e-6 {
				t.Fatalf("n=%d sample %d: %v", n, i, v)
			}
		}
	}
}

func TestZeroPhaseVec(t *testing.T) {
	f, err := LowPass(4, 40, 360)
	if err != nil {
		t.Fatal(err)
	}
	pts := make([]r3.Vec, 100)
	for i := range pts {
		pts[i] = r3.Vec{X: 1, Y: -2, Z: 0.5}
	}
	out := f.ZeroPhaseVec(pts)
	for i, p := range out {
		if math.Abs(p.X-1) > 1e-9 || math.Abs(p.Y+2) > 1e-9 || math.Abs(p.Z-0.5) > 1e-9 {
			t.Fatalf("sample %d distorted: %+v", i, p)
		}
	}
}
