package kinematics

import (
	"fmt"
	"slices"

	"github.com/chazu/linkage/pkg/spatial"
	"github.com/chazu/linkage/pkg/tree"
)

// Tree is a whole mechanism: an arena of links with a single root. It keeps
// the traversal order flattened and rebuilds it only when the shape changes.
type Tree struct {
	Name string

	arena *tree.Tree[*Link]
	root  tree.NodeID
	order []tree.NodeID
}

// NewTree wraps the subtree of arena rooted at root. root must not have a
// parent.
func NewTree(name string, arena *tree.Tree[*Link], root tree.NodeID) (*Tree, error) {
	if !arena.Valid(root) {
		return nil, fmt.Errorf("%w: root %d: %w", ErrInvalidTree, root, tree.ErrNoNode)
	}
	if p, ok := arena.Parent(root); ok {
		return nil, fmt.Errorf("%w: root %d is attached to %d", ErrInvalidTree, root, p)
	}
	t := &Tree{Name: name, arena: arena, root: root}
	t.Rebuild()
	return t, nil
}

// Arena returns the underlying node arena.
func (t *Tree) Arena() *tree.Tree[*Link] { return t.arena }

// Root returns the root node.
func (t *Tree) Root() tree.NodeID { return t.root }

// Rebuild refreshes the flattened traversal order. AddLink calls it; callers
// that attach nodes through Arena directly must call it themselves.
func (t *Tree) Rebuild() {
	t.order = t.arena.Descendants(t.root)
}

// AddLink stores l and attaches it under parent, which must belong to t.
func (t *Tree) AddLink(parent tree.NodeID, l *Link) (tree.NodeID, error) {
	if !slices.Contains(t.order, parent) {
		return tree.None, fmt.Errorf("add link %q: parent %d is not in tree %q: %w", l.Name(), parent, t.Name, tree.ErrNoNode)
	}
	id := t.arena.Add(l)
	if err := t.arena.Attach(parent, id); err != nil {
		return tree.None, fmt.Errorf("add link %q: %w", l.Name(), err)
	}
	t.Rebuild()
	return id, nil
}

// Links returns every link in traversal order (root first, depth first).
func (t *Tree) Links() []*Link {
	out := make([]*Link, len(t.order))
	for i, id := range t.order {
		out[i] = t.arena.Payload(id)
	}
	return out
}

func (t *Tree) movable() []*Link {
	var out []*Link
	for _, l := range t.Links() {
		if l.HasJointAngle() {
			out = append(out, l)
		}
	}
	return out
}

// Find returns the node holding the named link.
func (t *Tree) Find(name string) (tree.NodeID, bool) {
	for _, id := range t.order {
		if t.arena.Payload(id).Name() == name {
			return id, true
		}
	}
	return tree.None, false
}

// Link returns the named link.
func (t *Tree) Link(name string) (*Link, bool) {
	id, ok := t.Find(name)
	if !ok {
		return nil, false
	}
	return t.arena.Payload(id), true
}

// DOF returns the number of movable joints in the tree.
func (t *Tree) DOF() int {
	return len(t.movable())
}

// JointAngles returns the value of every movable joint in traversal order.
func (t *Tree) JointAngles() []float64 {
	return jointAngles(t.movable())
}

// SetJointAngles assigns angles to every movable joint in traversal order,
// with the same failure policy as Chain.SetJointAngles.
func (t *Tree) SetJointAngles(angles []float64) error {
	if err := setJointAngles(t.movable(), angles); err != nil {
		return fmt.Errorf("tree %q: %w", t.Name, err)
	}
	return nil
}

// JointLimits returns the limits of every movable joint in traversal order.
func (t *Tree) JointLimits() []*Range {
	return jointLimits(t.movable())
}

// JointNames returns the name of every movable joint in traversal order.
func (t *Tree) JointNames() []string {
	return jointNames(t.movable())
}

// LinkNames returns every link name in traversal order.
func (t *Tree) LinkNames() []string {
	return linkNames(t.Links())
}

// CalcLinkTransforms computes the world transform of every link, parent
// before child, and writes each link's cache. The results are returned in
// traversal order.
func (t *Tree) CalcLinkTransforms() []spatial.Isometry {
	out := make([]spatial.Isometry, len(t.order))
	for i, id := range t.order {
		l := t.arena.Payload(id)
		parent := spatial.Identity()
		if id != t.root {
			p, _ := t.arena.Parent(id)
			parent = t.arena.Payload(p).world
		}
		w := parent.Mul(l.CalcTransform())
		l.setWorld(w)
		out[i] = w
	}
	return out
}

// CachedLinkTransforms returns the transforms written by the last
// CalcLinkTransforms without recomputing. It fails with ErrStaleCache when
// any joint moved since, or when a link has never been computed.
func (t *Tree) CachedLinkTransforms() ([]spatial.Isometry, error) {
	out := make([]spatial.Isometry, len(t.order))
	for i, id := range t.order {
		l := t.arena.Payload(id)
		w, ok := l.WorldTransform()
		if !ok {
			return nil, fmt.Errorf("link %q: %w", l.Name(), ErrStaleCache)
		}
		out[i] = w
	}
	return out, nil
}

// CachedWorldTransform returns the cached world transform of the named link.
// The cache is stale if the link or any of its ancestors moved since the
// last CalcLinkTransforms.
func (t *Tree) CachedWorldTransform(name string) (spatial.Isometry, error) {
	id, ok := t.Find(name)
	if !ok {
		return spatial.Isometry{}, fmt.Errorf("link %q: %w", name, ErrNotFound)
	}
	for _, a := range t.arena.Ancestors(id) {
		if !t.arena.Payload(a).cacheFresh() {
			return spatial.Isometry{}, fmt.Errorf("link %q: %w", name, ErrStaleCache)
		}
		if a == t.root {
			break
		}
	}
	return t.arena.Payload(id).world, nil
}

// ChainFromEndLinkName returns the chain from the root to the named link.
func (t *Tree) ChainFromEndLinkName(name string) (*Chain, bool) {
	id, ok := t.Find(name)
	if !ok {
		return nil, false
	}
	c, err := NewChain(name, t.arena, id)
	if err != nil {
		return nil, false
	}
	return c, true
}
