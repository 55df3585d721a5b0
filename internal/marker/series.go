// Package marker models named marker trajectories of a single capture and
// derives the virtual (composite) markers the anatomical model is built on.
package marker

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/obplab/swingmech/internal/c3d"
)

// Series holds the marker trajectories of one capture.
type Series struct {
	names []string
	data  map[string][]r3.Vec
	time  []float64
	rate  float64
}

// FromC3D builds a Series from a decoded capture.
func FromC3D(f *c3d.File) *Series {
	s := &Series{
		names: append([]string(nil), f.Labels...),
		data:  make(map[string][]r3.Vec, len(f.Labels)),
		time:  f.Time(),
		rate:  f.Rate(),
	}
	for _, name := range f.Labels {
		s.data[name] = f.Points[name]
	}
	return s
}

// New creates an empty series with the given time vector and rate. Intended
// for tests and synthetic data.
func New(time []float64, rate float64) *Series {
	return &Series{
		data: make(map[string][]r3.Vec),
		time: time,
		rate: rate,
	}
}

// Names returns the marker names in insertion order.
func (s *Series) Names() []string { return s.names }

// Time returns the capture time vector.
func (s *Series) Time() []float64 { return s.time }

// Rate returns the capture rate in Hz.
func (s *Series) Rate() float64 { return s.rate }

// Frames returns the number of frames in the capture.
func (s *Series) Frames() int { return len(s.time) }

// Has reports whether the series contains a marker with the given name.
func (s *Series) Has(name string) bool {
	_, ok := s.data[name]
	return ok
}

// Get returns the trajectory of a named marker.
func (s *Series) Get(name string) ([]r3.Vec, error) {
	pts, ok := s.data[name]
	if !ok {
		return nil, fmt.Errorf("marker %q not in series", name)
	}
	return pts, nil
}

// Set adds or replaces a marker trajectory.
func (s *Series) Set(name string, pts []r3.Vec) {
	if _, exists := s.data[name]; !exists {
		s.names = append(s.names, name)
	}
	s.data[name] = pts
}

// Sub returns the per-frame direction a - b.
func (s *Series) Sub(a, b string) ([]r3.Vec, error) {
	pa, err := s.Get(a)
	if err != nil {
		return nil, err
	}
	pb, err := s.Get(b)
	if err != nil {
		return nil, err
	}
	if len(pa) != len(pb) {
		return nil, fmt.Errorf("markers %q and %q have different lengths", a, b)
	}
	out := make([]r3.Vec, len(pa))
	for i := range pa {
		out[i] = r3.Sub(pa[i], pb[i])
	}
	return out, nil
}

// Map applies fn to each marker trajectory in place-order, replacing the
// stored trajectory with the returned one.
func (s *Series) Map(fn func(name string, pts []r3.Vec) []r3.Vec) {
	for _, name := range s.names {
		s.data[name] = fn(name, s.data[name])
	}
}
