// Package body defines the anatomical model of the hitter: marker-derived
// segment frames and the joints between them, with the Euler sequences and
// side conventions of the ISB recommendations (Wu et al.) as applied by the
// reference dataset.
package body

import (
	"fmt"

	"github.com/obplab/swingmech/internal/geom"
	"github.com/obplab/swingmech/internal/marker"
)

// Pair names a direction as the per-frame difference A - B of two markers.
type Pair struct {
	A, B string
}

// Segment defines one body segment frame. Exactly one of (Y, YZ) or (X, XZ)
// must be set: the primary axis plus a vector spanning the named plane.
type Segment struct {
	Name   string
	Origin string
	Y, YZ  *Pair
	X, XZ  *Pair
}

// Frames builds the per-frame orthonormal coordinate system of the segment.
func (sg *Segment) Frames(s *marker.Series) ([]geom.Transform, error) {
	origin, err := s.Get(sg.Origin)
	if err != nil {
		return nil, fmt.Errorf("segment %s: %w", sg.Name, err)
	}

	switch {
	case sg.Y != nil && sg.YZ != nil:
		y, err := s.Sub(sg.Y.A, sg.Y.B)
		if err != nil {
			return nil, fmt.Errorf("segment %s: %w", sg.Name, err)
		}
		yz, err := s.Sub(sg.YZ.A, sg.YZ.B)
		if err != nil {
			return nil, fmt.Errorf("segment %s: %w", sg.Name, err)
		}
		out := make([]geom.Transform, len(origin))
		for i := range origin {
			out[i] = geom.FrameFromY(origin[i], y[i], yz[i])
		}
		return out, nil

	case sg.X != nil && sg.XZ != nil:
		x, err := s.Sub(sg.X.A, sg.X.B)
		if err != nil {
			return nil, fmt.Errorf("segment %s: %w", sg.Name, err)
		}
		xz, err := s.Sub(sg.XZ.A, sg.XZ.B)
		if err != nil {
			return nil, fmt.Errorf("segment %s: %w", sg.Name, err)
		}
		out := make([]geom.Transform, len(origin))
		for i := range origin {
			out[i] = geom.FrameFromX(origin[i], x[i], xz[i])
		}
		return out, nil

	default:
		return nil, fmt.Errorf("segment %s: no axis definition", sg.Name)
	}
}

// FrameSet holds the computed frame series of every segment, keyed by
// segment name.
type FrameSet map[string][]geom.Transform

// BuildFrames computes the frames of all segments over one capture.
func BuildFrames(s *marker.Series, segments []*Segment) (FrameSet, error) {
	out := make(FrameSet, len(segments))
	for _, sg := range segments {
		frames, err := sg.Frames(s)
		if err != nil {
			return nil, err
		}
		out[sg.Name] = frames
	}
	return out, nil
}
