package body

import (
	"fmt"

	"github.com/obplab/swingmech/internal/geom"
)

// Joint relates a distal segment to its proximal segment and decomposes the
// relative rotation into clinical angles. Signs and adjustments depend on
// the joint kind, the body side and (for the wrist) the batter's handedness.
type Joint struct {
	Name     string // csv column stem: "shoulder", "elbow", ...
	Proximal *Segment
	Distal   *Segment
	Side     string // "R", "L" or "" for unsided joints
	Seq      string // intrinsic Euler sequence

	// conventions returns the per-axis signs and additive adjustments for a
	// given batter hand.
	conventions func(side, batterHand string) (signs, adjust [3]float64)
	// post applies kinematic-model constraints to the finished series.
	post func([][3]float64)
}

// Angles computes the per-frame (x, y, z) joint angles in degrees.
func (j *Joint) Angles(frames FrameSet, batterHand string) ([][3]float64, error) {
	prox, ok := frames[j.Proximal.Name]
	if !ok {
		return nil, fmt.Errorf("joint %s: missing frames for segment %s", j.Name, j.Proximal.Name)
	}
	dist, ok := frames[j.Distal.Name]
	if !ok {
		return nil, fmt.Errorf("joint %s: missing frames for segment %s", j.Name, j.Distal.Name)
	}
	if len(prox) != len(dist) {
		return nil, fmt.Errorf("joint %s: segment frame counts differ (%d vs %d)", j.Name, len(prox), len(dist))
	}

	signs, adjust := [3]float64{1, 1, 1}, [3]float64{}
	if j.conventions != nil {
		signs, adjust = j.conventions(j.Side, batterHand)
	}

	out := make([][3]float64, len(prox))
	for i := range prox {
		local := geom.LocalCoordinates(dist[i], prox[i])
		raw, err := geom.Angles(local, j.Seq)
		if err != nil {
			return nil, fmt.Errorf("joint %s: %w", j.Name, err)
		}
		for axis := 0; axis < 3; axis++ {
			out[i][axis] = raw[axis]*signs[axis] + adjust[axis]
		}
	}

	if j.post != nil {
		j.post(out)
	}
	return out, nil
}

func newShoulder(prox, dist *Segment, side string) *Joint {
	return &Joint{
		Name: "shoulder", Proximal: prox, Distal: dist, Side: side, Seq: "YXY",
		conventions: func(side, _ string) ([3]float64, [3]float64) {
			if side == "R" {
				return [3]float64{-1, 1, -1}, [3]float64{}
			}
			return [3]float64{1, 1, 1}, [3]float64{}
		},
	}
}

func newElbow(prox, dist *Segment, side string) *Joint {
	return &Joint{
		Name: "elbow", Proximal: prox, Distal: dist, Side: side, Seq: "ZXY",
		conventions: func(side, _ string) ([3]float64, [3]float64) {
			adjust := [3]float64{0, 0, 180}
			switch side {
			case "R":
				return [3]float64{-1, 1, 1}, adjust
			case "L":
				return [3]float64{1, 1, -1}, adjust
			}
			return [3]float64{1, 1, 1}, adjust
		},
		post: func(series [][3]float64) {
			for i := range series {
				// The carry angle is constrained by the kinematic model.
				series[i][1] = 0
				// Pronation near 0 occasionally unwraps to ~360.
				if series[i][2] > 340 {
					series[i][2] -= 360
				}
			}
		},
	}
}

func newWrist(prox, dist *Segment, side string) *Joint {
	return &Joint{
		Name: "wrist", Proximal: prox, Distal: dist, Side: side, Seq: "ZXY",
		conventions: func(side, batterHand string) ([3]float64, [3]float64) {
			if side == batterHand {
				return [3]float64{-1, -1, 1}, [3]float64{}
			}
			return [3]float64{1, -1, 1}, [3]float64{}
		},
		post: func(series [][3]float64) {
			for i := range series {
				series[i][2] = 0 // constrained by the kinematic model
			}
		},
	}
}

func newHip(prox, dist *Segment, side string) *Joint {
	return &Joint{
		Name: "hip", Proximal: prox, Distal: dist, Side: side, Seq: "ZXY",
		conventions: func(side, _ string) ([3]float64, [3]float64) {
			if side == "L" {
				return [3]float64{1, 1, -1}, [3]float64{}
			}
			return [3]float64{-1, 1, 1}, [3]float64{}
		},
	}
}

func newKnee(prox, dist *Segment, side string) *Joint {
	return &Joint{
		Name: "knee", Proximal: prox, Distal: dist, Side: side, Seq: "ZXY",
		conventions: func(side, _ string) ([3]float64, [3]float64) {
			if side == "L" {
				return [3]float64{-1, 1, 1}, [3]float64{}
			}
			return [3]float64{1, 1, 1}, [3]float64{}
		},
		post: func(series [][3]float64) {
			for i := range series {
				// Ab/adduction and rotation are constrained by the model.
				series[i][1] = 0
				series[i][2] = 0
			}
		},
	}
}

func newAnkle(prox, dist *Segment, side string) *Joint {
	return &Joint{
		Name: "ankle", Proximal: prox, Distal: dist, Side: side, Seq: "ZXY",
		conventions: func(side, _ string) ([3]float64, [3]float64) {
			adjust := [3]float64{90, 0, 0}
			if side == "L" {
				return [3]float64{1, 1, 1}, adjust
			}
			return [3]float64{1, 1, -1}, adjust
		},
	}
}
