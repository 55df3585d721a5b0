package marker

import (
	"fmt"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/spatial/r3"
)

// Virtual defines a composite marker as the mean of its source markers.
// Sources may themselves be virtual (pelvis_m averages the two virtual hip
// centers), which is why resolution is ordered by a dependency graph.
type Virtual struct {
	Name    string
	Sources []string
}

// Virtuals is the composite-marker table of the hitting model. The averaging
// pairs reproduce the markers the reference joint-angle dataset was built
// from, so they are part of the model's contract.
var Virtuals = []Virtual{
	{Name: "torso_m", Sources: []string{"RSHO", "LSHO"}},
	{Name: "thorax_m", Sources: []string{"T10", "STRN"}},
	{Name: "shoulder_r", Sources: []string{"RSHO"}},
	{Name: "shoulder_l", Sources: []string{"LSHO"}},
	{Name: "elbow_r", Sources: []string{"RELB", "RMELB"}},
	{Name: "elbow_l", Sources: []string{"LELB", "LMELB"}},
	{Name: "scapula_r", Sources: []string{"RSHO", "torso_m"}},
	{Name: "scapula_l", Sources: []string{"LSHO", "torso_m"}},
	{Name: "wrist_r", Sources: []string{"RWRA", "RWRB"}},
	{Name: "wrist_l", Sources: []string{"LWRA"}},
	{Name: "hip_r", Sources: []string{"RASI", "RPSI"}},
	{Name: "hip_l", Sources: []string{"LASI", "LPSI"}},
	{Name: "pelvis_m", Sources: []string{"hip_l", "hip_r"}},
	{Name: "knee_r", Sources: []string{"RKNE", "RMKNE"}},
	{Name: "knee_l", Sources: []string{"LKNE", "LMKNE"}},
	{Name: "ankle_r", Sources: []string{"RANK", "RMANK"}},
	{Name: "ankle_l", Sources: []string{"LANK", "LMANK"}},
	{Name: "heel_r", Sources: []string{"RHEE"}},
	{Name: "heel_l", Sources: []string{"LHEE"}},
}

// ResolveComposites adds every virtual marker to the series. A measured
// marker that already carries a virtual name wins over the computed one.
// Virtuals are resolved in topological order of their dependency graph.
func ResolveComposites(s *Series) error {
	order, err := resolutionOrder()
	if err != nil {
		return err
	}

	byName := make(map[string]Virtual, len(Virtuals))
	for _, v := range Virtuals {
		byName[v.Name] = v
	}

	for _, name := range order {
		v := byName[name]
		if s.Has(v.Name) {
			continue // measured marker takes precedence
		}
		mean, err := meanOf(s, v.Sources)
		if err != nil {
			return fmt.Errorf("composite %s: %w", v.Name, err)
		}
		s.Set(v.Name, mean)
	}
	return nil
}

// resolutionOrder topologically sorts the virtual markers along their
// virtual-to-virtual dependencies.
func resolutionOrder() ([]string, error) {
	g := simple.NewDirectedGraph()

	ids := make(map[string]int64, len(Virtuals))
	names := make(map[int64]string, len(Virtuals))
	for i, v := range Virtuals {
		id := int64(i)
		ids[v.Name] = id
		names[id] = v.Name
		g.AddNode(simple.Node(id))
	}
	for _, v := range Virtuals {
		for _, src := range v.Sources {
			if srcID, virtual := ids[src]; virtual {
				g.SetEdge(g.NewEdge(simple.Node(srcID), simple.Node(ids[v.Name])))
			}
		}
	}

	sorted, err := topo.Sort(g)
	if err != nil {
		return nil, fmt.Errorf("composite marker graph is cyclic: %w", err)
	}
	order := make([]string, 0, len(sorted))
	for _, n := range sorted {
		order = append(order, names[n.ID()])
	}
	return order, nil
}

func meanOf(s *Series, sources []string) ([]r3.Vec, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no source markers")
	}
	first, err := s.Get(sources[0])
	if err != nil {
		return nil, err
	}
	sum := make([]r3.Vec, len(first))
	copy(sum, first)
	for _, src := range sources[1:] {
		pts, err := s.Get(src)
		if err != nil {
			return nil, err
		}
		if len(pts) != len(sum) {
			return nil, fmt.Errorf("marker %q has %d frames, want %d", src, len(pts), len(sum))
		}
		for i := range sum {
			sum[i] = r3.Add(sum[i], pts[i])
		}
	}
	inv := 1 / float64(len(sources))
	for i := range sum {
		sum[i] = r3.Scale(inv, sum[i])
	}
	return sum, nil
}
