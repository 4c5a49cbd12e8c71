package kinematics

import (
	"testing"

	"github.com/chazu/linkage/pkg/spatial"
	"github.com/chazu/linkage/pkg/tree"
	"gonum.org/v1/gonum/spatial/r3"
)

func identityIso() spatial.Isometry { return spatial.Identity() }

func vecNear(a, b r3.Vec, tol float64) bool {
	return r3.Norm(r3.Sub(a, b)) <= tol
}

func mustLink(t *testing.T, cfg LinkConfig) *Link {
	t.Helper()
	l, err := NewLink(cfg)
	if err != nil {
		t.Fatalf("NewLink(%q): %v", cfg.Name, err)
	}
	return l
}

func revoluteY(name, joint string, offset r3.Vec) LinkConfig {
	return LinkConfig{
		Name:        name,
		Translation: offset,
		Joint:       JointConfig{Name: joint, Type: Rotational, Axis: r3.Vec{Y: 1}},
	}
}

// sampleArena builds
//
//	link0 ─ link1 ─ link2 ─ link3
//	      └ link4 ─ link5
//
// with every joint rotating about Y.
func sampleArena(t *testing.T) (*tree.Tree[*Link], []tree.NodeID) {
	t.Helper()
	offsets := []r3.Vec{
		{Y: 0.1},
		{Y: 0.1, Z: 0.1},
		{Y: 0.1, Z: 0.1},
		{Y: 0.1, Z: 0.2},
		{Y: 0.1, Z: 0.1},
		{Y: 0.1, Z: 0.1},
	}
	arena := tree.New[*Link]()
	ids := make([]tree.NodeID, len(offsets))
	for i, off := range offsets {
		name := "link" + string(rune('0'+i))
		joint := "j" + string(rune('0'+i))
		ids[i] = arena.Add(mustLink(t, revoluteY(name, joint, off)))
	}
	for _, e := range [][2]int{{0, 1}, {1, 2}, {2, 3}, {0, 4}, {4, 5}} {
		if err := arena.Attach(ids[e[0]], ids[e[1]]); err != nil {
			t.Fatal(err)
		}
	}
	return arena, ids
}

func sampleTree(t *testing.T) *Tree {
	t.Helper()
	arena, ids := sampleArena(t)
	kt, err := NewTree("sample", arena, ids[0])
	if err != nil {
		t.Fatal(err)
	}
	return kt
}
