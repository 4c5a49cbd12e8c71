package kinematics

import (
	"fmt"
	"slices"

	"github.com/chazu/linkage/pkg/spatial"
	"github.com/chazu/linkage/pkg/tree"
)

// Chain is a root-to-tip path through a link arena. It views the arena's
// links without owning them and must not outlive the arena.
type Chain struct {
	Name string
	// Base is applied before the first link. The zero value is the identity.
	Base spatial.Isometry

	arena   *tree.Tree[*Link]
	nodes   []tree.NodeID
	endName string
	hasEnd  bool
}

// NewChain builds the chain from the root of end's tree down to end.
func NewChain(name string, arena *tree.Tree[*Link], end tree.NodeID) (*Chain, error) {
	if !arena.Valid(end) {
		return nil, fmt.Errorf("chain %q end %d: %w", name, end, tree.ErrNoNode)
	}
	nodes := slices.Collect(tree.MapAncestors(arena, end, func(id tree.NodeID, _ *Link) tree.NodeID {
		return id
	}))
	slices.Reverse(nodes)
	return &Chain{Name: name, arena: arena, nodes: nodes}, nil
}

// Links returns the chain's links, root first.
func (c *Chain) Links() []*Link {
	out := make([]*Link, len(c.nodes))
	for i, id := range c.nodes {
		out[i] = c.arena.Payload(id)
	}
	return out
}

func (c *Chain) movable() []*Link {
	var out []*Link
	for _, id := range c.nodes {
		if l := c.arena.Payload(id); l.HasJointAngle() {
			out = append(out, l)
		}
	}
	return out
}

// SetEndLinkName stops CalcEndTransform at the named link. The link list
// itself is unchanged.
func (c *Chain) SetEndLinkName(name string) error {
	for _, l := range c.Links() {
		if l.Name() == name {
			c.endName, c.hasEnd = name, true
			return nil
		}
	}
	return fmt.Errorf("chain %q end link %q: %w", c.Name, name, ErrNotFound)
}

// EndLinkName returns the truncation point, if one is set.
func (c *Chain) EndLinkName() (string, bool) {
	return c.endName, c.hasEnd
}

// CalcEndTransform composes Base with each link's transform, root first,
// through the end link when one is set.
func (c *Chain) CalcEndTransform() spatial.Isometry {
	end := c.Base
	for _, l := range c.Links() {
		end = end.Mul(l.CalcTransform())
		if c.hasEnd && l.Name() == c.endName {
			break
		}
	}
	return end
}

// CalcLinkTransforms returns the cumulative transform of every link in the
// chain, ignoring the end link setting. Link caches are not touched.
func (c *Chain) CalcLinkTransforms() []spatial.Isometry {
	links := c.Links()
	out := make([]spatial.Isometry, len(links))
	acc := c.Base
	for i, l := range links {
		acc = acc.Mul(l.CalcTransform())
		out[i] = acc
	}
	return out
}

// DOF returns the number of movable joints on the chain.
func (c *Chain) DOF() int {
	return len(c.movable())
}

// JointAngles returns one value per movable joint in chain order.
func (c *Chain) JointAngles() []float64 {
	return jointAngles(c.movable())
}

// SetJointAngles assigns angles positionally to the movable joints. A length
// mismatch fails before any write. A joint rejecting its value stops the
// assignment; joints before it keep their new values.
func (c *Chain) SetJointAngles(angles []float64) error {
	if err := setJointAngles(c.movable(), angles); err != nil {
		return fmt.Errorf("chain %q: %w", c.Name, err)
	}
	return nil
}

// JointLimits returns the limits of each movable joint; nil entries are unbounded.
func (c *Chain) JointLimits() []*Range {
	return jointLimits(c.movable())
}

// JointNames returns the name of each movable joint.
func (c *Chain) JointNames() []string {
	return jointNames(c.movable())
}

// LinkNames returns every link name, root first.
func (c *Chain) LinkNames() []string {
	return linkNames(c.Links())
}

func jointAngles(links []*Link) []float64 {
	out := make([]float64, len(links))
	for i, l := range links {
		out[i], _ = l.JointAngle()
	}
	return out
}

func setJointAngles(links []*Link, angles []float64) error {
	if len(angles) != len(links) {
		return fmt.Errorf("%w: got %d angles for %d joints", ErrSizeMismatch, len(angles), len(links))
	}
	for i, l := range links {
		if err := l.SetJointAngle(angles[i]); err != nil {
			return err
		}
	}
	return nil
}

func jointLimits(links []*Link) []*Range {
	out := make([]*Range, len(links))
	for i, l := range links {
		out[i] = l.Joint().Limits()
	}
	return out
}

func jointNames(links []*Link) []string {
	out := make([]string, len(links))
	for i, l := range links {
		out[i] = l.Joint().Name()
	}
	return out
}

func linkNames(links []*Link) []string {
	out := make([]string, len(links))
	for i, l := range links {
		out[i] = l.Name()
	}
	return out
}
