package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// IsNaNVec reports whether any component of v is NaN.
func IsNaNVec(v r3.Vec) bool {
	return math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsNaN(v.Z)
}

func unit(v r3.Vec) r3.Vec {
	n := r3.Norm(v)
	if n == 0 || math.IsNaN(n) {
		nan := math.NaN()
		return r3.Vec{X: nan, Y: nan, Z: nan}
	}
	return r3.Scale(1/n, v)
}

// FrameFromY builds an orthonormal right-handed frame from a primary Y
// direction and a vector lying in the YZ plane:
//
//	x = ŷ × yz (normalized), z = x × ŷ
func FrameFromY(origin, y, yz r3.Vec) Transform {
	if IsNaNVec(origin) || IsNaNVec(y) || IsNaNVec(yz) {
		return NaNTransform()
	}
	yhat := unit(y)
	xhat := unit(r3.Cross(yhat, yz))
	zhat := unit(r3.Cross(xhat, yhat))
	return fromAxes(origin, xhat, yhat, zhat)
}

// FrameFromX builds an orthonormal right-handed frame from a primary X
// direction and a vector lying in the XZ plane:
//
//	y = xz × x̂ (normalized), z = x̂ × y
func FrameFromX(origin, x, xz r3.Vec) Transform {
	if IsNaNVec(origin) || IsNaNVec(x) || IsNaNVec(xz) {
		return NaNTransform()
	}
	xhat := unit(x)
	yhat := unit(r3.Cross(xz, xhat))
	zhat := unit(r3.Cross(xhat, yhat))
	return fromAxes(origin, xhat, yhat, zhat)
}

// fromAxes assembles a transform whose rotation columns are the frame axes
// expressed in global coordinates.
func fromAxes(origin, x, y, z r3.Vec) Transform {
	return Transform{
		R: [3][3]float64{
			{x.X, y.X, z.X},
			{x.Y, y.Y, z.Y},
			{x.Z, y.Z, z.Z},
		},
		T: origin,
	}
}
