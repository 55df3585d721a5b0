// Package geom implements the rigid-body geometry used to express motion
// capture markers as anatomical segment frames and relative joint rotations.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Transform is a rigid homogeneous transform: a rotation and a translation.
// The zero value is not a valid transform; use Identity.
type Transform struct {
	R [3][3]float64
	T r3.Vec
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{R: [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}}
}

// NaNTransform returns a transform with every component NaN. It marks frames
// where a source marker was missing.
func NaNTransform() Transform {
	n := math.NaN()
	return Transform{
		R: [3][3]float64{{n, n, n}, {n, n, n}, {n, n, n}},
		T: r3.Vec{X: n, Y: n, Z: n},
	}
}

// IsNaN reports whether any component of the transform is NaN.
func (t Transform) IsNaN() bool {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.IsNaN(t.R[i][j]) {
				return true
			}
		}
	}
	return math.IsNaN(t.T.X) || math.IsNaN(t.T.Y) || math.IsNaN(t.T.Z)
}

// Mul returns t·u, the transform that first applies u, then t.
func (t Transform) Mul(u Transform) Transform {
	var out Transform
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var s float64
			for k := 0; k < 3; k++ {
				s += t.R[i][k] * u.R[k][j]
			}
			out.R[i][j] = s
		}
	}
	out.T = t.Apply(u.T)
	return out
}

// Apply transforms point p: R·p + T.
func (t Transform) Apply(p r3.Vec) r3.Vec {
	return r3.Vec{
		X: t.R[0][0]*p.X + t.R[0][1]*p.Y + t.R[0][2]*p.Z + t.T.X,
		Y: t.R[1][0]*p.X + t.R[1][1]*p.Y + t.R[1][2]*p.Z + t.T.Y,
		Z: t.R[2][0]*p.X + t.R[2][1]*p.Y + t.R[2][2]*p.Z + t.T.Z,
	}
}

// Inv returns the inverse of a rigid transform: (Rᵀ, -Rᵀ·T).
func (t Transform) Inv() Transform {
	var out Transform
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.R[i][j] = t.R[j][i]
		}
	}
	p := r3.Vec{
		X: out.R[0][0]*t.T.X + out.R[0][1]*t.T.Y + out.R[0][2]*t.T.Z,
		Y: out.R[1][0]*t.T.X + out.R[1][1]*t.T.Y + out.R[1][2]*t.T.Z,
		Z: out.R[2][0]*t.T.X + out.R[2][1]*t.T.Y + out.R[2][2]*t.T.Z,
	}
	out.T = r3.Scale(-1, p)
	return out
}

// LocalCoordinates expresses global in the coordinate system of reference:
// inv(reference)·global. Either operand being NaN yields a NaN transform.
func LocalCoordinates(global, reference Transform) Transform {
	if global.IsNaN() || reference.IsNaN() {
		return NaNTransform()
	}
	return reference.Inv().Mul(global)
}
