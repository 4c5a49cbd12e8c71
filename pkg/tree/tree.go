// Package tree provides an arena-backed rooted tree. Nodes are addressed by
// stable NodeID indices; the parent link is an index rather than a pointer,
// so the structure has no ownership cycles and no node can outlive the arena.
package tree

import (
	"errors"
	"fmt"
	"iter"
)

// NodeID addresses a node inside a Tree. IDs are never reused.
type NodeID int

// None is the NodeID reported for the parent of a root.
const None NodeID = -1

var (
	// ErrNoNode is returned when an operation names an ID outside the arena.
	ErrNoNode = errors.New("tree: no such node")
	// ErrHasParent is returned by Attach when the child is already attached.
	ErrHasParent = errors.New("tree: child already has a parent")
	// ErrCycle is returned by Attach when the edge would create a cycle.
	ErrCycle = errors.New("tree: attaching would create a cycle")
	// ErrNotAttached is returned by Detach for a node that has no parent.
	ErrNotAttached = errors.New("tree: node has no parent")
)

type node[T any] struct {
	payload  T
	parent   NodeID
	children []NodeID
}

// Tree is an arena of nodes carrying payloads of type T. A Tree may hold
// several disjoint roots until they are attached to each other.
// It is not safe for concurrent use.
type Tree[T any] struct {
	nodes []node[T]
}

// New returns an empty arena.
func New[T any]() *Tree[T] {
	return &Tree[T]{}
}

// Add stores payload as a new detached node and returns its ID.
func (t *Tree[T]) Add(payload T) NodeID {
	t.nodes = append(t.nodes, node[T]{payload: payload, parent: None})
	return NodeID(len(t.nodes) - 1)
}

// Len returns the number of nodes in the arena.
func (t *Tree[T]) Len() int {
	return len(t.nodes)
}

// Valid reports whether id addresses a node of t.
func (t *Tree[T]) Valid(id NodeID) bool {
	return id >= 0 && int(id) < len(t.nodes)
}

// at returns the node for id. Panics if id is out of range, like slice indexing.
func (t *Tree[T]) at(id NodeID) *node[T] {
	if !t.Valid(id) {
		panic(fmt.Sprintf("tree: node id %d out of range [0,%d)", id, len(t.nodes)))
	}
	return &t.nodes[id]
}

// Payload returns the payload stored at id.
func (t *Tree[T]) Payload(id NodeID) T {
	return t.at(id).payload
}

// Parent returns the parent of id, or (None, false) for a root.
func (t *Tree[T]) Parent(id NodeID) (NodeID, bool) {
	p := t.at(id).parent
	return p, p != None
}

// Children returns a copy of the child list of id in insertion order.
func (t *Tree[T]) Children(id NodeID) []NodeID {
	c := t.at(id).children
	out := make([]NodeID, len(c))
	copy(out, c)
	return out
}

// Root walks parent links from id and returns the topmost node.
func (t *Tree[T]) Root(id NodeID) NodeID {
	for {
		p := t.at(id).parent
		if p == None {
			return id
		}
		id = p
	}
}

// isAncestor reports whether candidate is id or one of its ancestors.
func (t *Tree[T]) isAncestor(candidate, id NodeID) bool {
	for p := id; p != None; p = t.nodes[p].parent {
		if p == candidate {
			return true
		}
	}
	return false
}

// Attach makes child the last child of parent. It fails, leaving both nodes
// untouched, when child is already attached or when the edge would close a
// cycle. Re-parenting requires an explicit Detach first.
func (t *Tree[T]) Attach(parent, child NodeID) error {
	if !t.Valid(parent) {
		return fmt.Errorf("attach parent %d: %w", parent, ErrNoNode)
	}
	if !t.Valid(child) {
		return fmt.Errorf("attach child %d: %w", child, ErrNoNode)
	}
	if t.nodes[child].parent != None {
		return fmt.Errorf("attach %d under %d: %w (parent %d)", child, parent, ErrHasParent, t.nodes[child].parent)
	}
	if t.isAncestor(child, parent) {
		return fmt.Errorf("attach %d under %d: %w", child, parent, ErrCycle)
	}
	t.nodes[child].parent = parent
	t.nodes[parent].children = append(t.nodes[parent].children, child)
	return nil
}

// Detach removes child from its parent's child list; child becomes a root
// and keeps its own subtree.
func (t *Tree[T]) Detach(child NodeID) error {
	if !t.Valid(child) {
		return fmt.Errorf("detach %d: %w", child, ErrNoNode)
	}
	p := t.nodes[child].parent
	if p == None {
		return fmt.Errorf("detach %d: %w", child, ErrNotAttached)
	}
	siblings := t.nodes[p].children
	for i, c := range siblings {
		if c == child {
			t.nodes[p].children = append(siblings[:i:i], siblings[i+1:]...)
			break
		}
	}
	t.nodes[child].parent = None
	return nil
}

// Ancestors returns id followed by each of its ancestors up to the root.
func (t *Tree[T]) Ancestors(id NodeID) []NodeID {
	var out []NodeID
	for p := id; p != None; p = t.at(p).parent {
		out = append(out, p)
	}
	return out
}

// Descendants returns the subtree rooted at id in depth-first pre-order,
// visiting children in insertion order.
func (t *Tree[T]) Descendants(id NodeID) []NodeID {
	t.at(id)
	var out []NodeID
	stack := []NodeID{id}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, n)
		c := t.nodes[n].children
		for i := len(c) - 1; i >= 0; i-- {
			stack = append(stack, c[i])
		}
	}
	return out
}

// MapAncestors returns a sequence of f applied to id and each ancestor up to
// the root. The visit order is captured when iteration starts, before f is
// called, so f may mutate payloads freely. The sequence can be ranged over
// any number of times.
func MapAncestors[T, R any](t *Tree[T], id NodeID, f func(NodeID, T) R) iter.Seq[R] {
	return mapOver(t, func() []NodeID { return t.Ancestors(id) }, f)
}

// MapDescendants is MapAncestors over the pre-order subtree of id.
func MapDescendants[T, R any](t *Tree[T], id NodeID, f func(NodeID, T) R) iter.Seq[R] {
	return mapOver(t, func() []NodeID { return t.Descendants(id) }, f)
}

func mapOver[T, R any](t *Tree[T], order func() []NodeID, f func(NodeID, T) R) iter.Seq[R] {
	return func(yield func(R) bool) {
		for _, id := range order() {
			if !yield(f(id, t.nodes[id].payload)) {
				return
			}
		}
	}
}
