package geom

import (
	"fmt"
	"math"
)

// gimbalEps bounds how close the middle angle may get to its singularity
// before the decomposition collapses the first and third rotations.
const gimbalEps = 1e-7

// Angles decomposes the rotation of t into three intrinsic Euler angles, in
// degrees, for the given sequence. Supported sequences are "ZXY"
// (Tait-Bryan, second angle in [-90°, 90°]) and "YXY" (symmetric, second
// angle in [0°, 180°]). A NaN transform yields NaN angles.
func Angles(t Transform, seq string) ([3]float64, error) {
	switch seq {
	case "ZXY":
		return anglesZXY(t), nil
	case "YXY":
		return anglesYXY(t), nil
	default:
		return [3]float64{}, fmt.Errorf("unsupported euler sequence %q", seq)
	}
}

// anglesZXY inverts R = Rz(a)·Rx(b)·Ry(c).
func anglesZXY(t Transform) [3]float64 {
	if t.IsNaN() {
		n := math.NaN()
		return [3]float64{n, n, n}
	}
	r := t.R
	sb := r[2][1]
	if sb > 1 {
		sb = 1
	} else if sb < -1 {
		sb = -1
	}
	b := math.Asin(sb)

	var a, c float64
	if 1-math.Abs(sb) < gimbalEps {
		// Gimbal lock: only a±c is observable, put it all in the first angle.
		a = math.Atan2(r[1][0], r[0][0])
		c = 0
	} else {
		a = math.Atan2(-r[0][1], r[1][1])
		c = math.Atan2(-r[2][0], r[2][2])
	}
	return [3]float64{deg(a), deg(b), deg(c)}
}

// anglesYXY inverts R = Ry(a)·Rx(b)·Ry(c).
func anglesYXY(t Transform) [3]float64 {
	if t.IsNaN() {
		n := math.NaN()
		return [3]float64{n, n, n}
	}
	r := t.R
	cb := r[1][1]
	if cb > 1 {
		cb = 1
	} else if cb < -1 {
		cb = -1
	}
	b := math.Acos(cb)

	var a, c float64
	if 1-math.Abs(cb) < gimbalEps {
		// Gimbal lock: the rotation collapses to Ry(a±c).
		a = math.Atan2(r[0][2], r[0][0])
		c = 0
	} else {
		a = math.Atan2(r[0][1], r[2][1])
		c = math.Atan2(r[1][0], -r[1][2])
	}
	return [3]float64{deg(a), deg(b), deg(c)}
}

func deg(rad float64) float64 {
	return rad * 180 / math.Pi
}
