package marker

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func constSeries(frames int, markers map[string]r3.Vec) *Series {
	time := make([]float64, frames)
	for i := range time {
		time[i] = float64(i) / 360
	}
	s := New(time, 360)
	for name, v := range markers {
		pts := make([]r3.Vec, frames)
		for i := range pts {
			pts[i] = v
		}
		s.Set(name, pts)
	}
	return s
}

// fullMarkerSet returns a minimal measured marker set that satisfies every
// composite definition.
func fullMarkerSet() map[string]r3.Vec {
	names := []string{
		"RSHO", "LSHO", "T10", "STRN", "RELB", "RMELB", "LELB", "LMELB",
		"RWRA", "RWRB", "LWRA", "RASI", "RPSI", "LASI", "LPSI",
		"RKNE", "RMKNE", "LKNE", "LMKNE", "RANK", "RMANK", "LANK", "LMANK",
		"RHEE", "LHEE",
	}
	m := make(map[string]r3.Vec, len(names))
	for i, n := range names {
		m[n] = r3.Vec{X: float64(i), Y: float64(2 * i), Z: float64(i % 3)}
	}
	return m
}

func TestResolveCompositesMean(t *testing.T) {
	markers := fullMarkerSet()
	s := constSeries(4, markers)
	if err := ResolveComposites(s); err != nil {
		t.Fatal(err)
	}

	torso, err := s.Get("torso_m")
	if err != nil {
		t.Fatal(err)
	}
	want := r3.Scale(0.5, r3.Add(markers["RSHO"], markers["LSHO"]))
	if r3.Norm(r3.Sub(torso[0], want)) > 1e-12 {
		t.Fatalf("torso_m: got %+v want %+v", torso[0], want)
	}

	// Single-source composites copy their source.
	heel, err := s.Get("heel_r")
	if err != nil {
		t.Fatal(err)
	}
	if r3.Norm(r3.Sub(heel[0], markers["RHEE"])) > 1e-12 {
		t.Fatalf("heel_r: got %+v", heel[0])
	}
}

func TestResolveCompositesChained(t *testing.T) {
	// pelvis_m depends on the virtual hip centers; the topological order must
	// resolve hips first regardless of table order.
	s := constSeries(2, fullMarkerSet())
	if err := ResolveComposites(s); err != nil {
		t.Fatal(err)
	}

	pelvis, err := s.Get("pelvis_m")
	if err != nil {
		t.Fatal(err)
	}
	hipR, _ := s.Get("hip_r")
	hipL, _ := s.Get("hip_l")
	want := r3.Scale(0.5, r3.Add(hipR[0], hipL[0]))
	if r3.Norm(r3.Sub(pelvis[0], want)) > 1e-12 {
		t.Fatalf("pelvis_m: got %+v want %+v", pelvis[0], want)
	}

	// scapula chains through torso_m as well.
	scap, err := s.Get("scapula_r")
	if err != nil {
		t.Fatal(err)
	}
	torso, _ := s.Get("torso_m")
	rsho, _ := s.Get("RSHO")
	want = r3.Scale(0.5, r3.Add(rsho[0], torso[0]))
	if r3.Norm(r3.Sub(scap[0], want)) > 1e-12 {
		t.Fatalf("scapula_r: got %+v want %+v", scap[0], want)
	}
}

func TestResolveCompositesMeasuredWins(t *testing.T) {
	markers := fullMarkerSet()
	s := constSeries(2, markers)
	measured := r3.Vec{X: 99, Y: 99, Z: 99}
	pts := []r3.Vec{measured, measured}
	s.Set("torso_m", pts)

	if err := ResolveComposites(s); err != nil {
		t.Fatal(err)
	}
	torso, _ := s.Get("torso_m")
	if r3.Norm(r3.Sub(torso[0], measured)) > 1e-12 {
		t.Fatalf("measured torso_m overwritten: %+v", torso[0])
	}
}

func TestResolveCompositesMissingSource(t *testing.T) {
	markers := fullMarkerSet()
	delete(markers, "STRN")
	s := constSeries(2, markers)
	if err := ResolveComposites(s); err == nil {
		t.Fatal("expected error for missing source marker")
	}
}

func TestResolveCompositesNaNPropagates(t *testing.T) {
	markers := fullMarkerSet()
	s := constSeries(2, markers)
	nan := math.NaN()
	rsho, _ := s.Get("RSHO")
	rsho[1] = r3.Vec{X: nan, Y: nan, Z: nan}

	if err := ResolveComposites(s); err != nil {
		t.Fatal(err)
	}
	torso, _ := s.Get("torso_m")
	if !math.IsNaN(torso[1].X) {
		t.Fatalf("expected NaN composite when a source is missing, got %+v", torso[1])
	}
	if math.IsNaN(torso[0].X) {
		t.Fatal("valid frame poisoned by NaN in another frame")
	}
}

func TestSeriesSub(t *testing.T) {
	s := constSeries(2, map[string]r3.Vec{
		"A": {X: 3, Y: 2, Z: 1},
		"B": {X: 1, Y: 1, Z: 1},
	})
	d, err := s.Sub("A", "B")
	if err != nil {
		t.Fatal(err)
	}
	if d[0] != (r3.Vec{X: 2, Y: 1, Z: 0}) {
		t.Fatalf("sub: %+v", d[0])
	}
	if _, err := s.Sub("A", "missing"); err == nil {
		t.Fatal("expected error for unknown marker")
	}
}
