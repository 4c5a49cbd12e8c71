package kinematics

import (
	"fmt"
	"math"

	"github.com/chazu/linkage/pkg/spatial"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// LinkConfig describes a link at construction time. A zero Rotation is the
// identity.
type LinkConfig struct {
	Name        string
	Translation r3.Vec
	Rotation    r3.Rotation
	Joint       JointConfig
	Visual      *Visual
}

// Link is one rigid body: a fixed offset from its parent's frame, the joint
// that moves it, and a cached world transform written by Tree.CalcLinkTransforms.
type Link struct {
	name   string
	offset spatial.Isometry
	joint  *Joint
	visual *Visual

	world        spatial.Isometry
	worldSet     bool
	worldVersion uint64
}

// NewLink validates cfg and builds the link and its joint.
func NewLink(cfg LinkConfig) (*Link, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidLink)
	}
	q := quat.Number(cfg.Rotation)
	if q == (quat.Number{}) {
		q = quat.Number{Real: 1}
	}
	n := quat.Abs(q)
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, fmt.Errorf("%w: link %q has a non-finite rotation", ErrInvalidLink, cfg.Name)
	}
	j, err := NewJoint(cfg.Joint)
	if err != nil {
		return nil, fmt.Errorf("link %q: %w", cfg.Name, err)
	}
	if cfg.Visual != nil {
		if err := cfg.Visual.validate(); err != nil {
			return nil, fmt.Errorf("link %q: %w", cfg.Name, err)
		}
	}
	return &Link{
		name:   cfg.Name,
		offset: spatial.NewIsometry(cfg.Translation, r3.Rotation(quat.Scale(1/n, q))),
		joint:  j,
		visual: cfg.Visual,
	}, nil
}

// Name returns the link name.
func (l *Link) Name() string { return l.name }

// Joint returns the link's joint.
func (l *Link) Joint() *Joint { return l.joint }

// Offset returns the fixed transform from the parent link's frame.
func (l *Link) Offset() spatial.Isometry { return l.offset }

// Visual returns the link's geometry, or nil.
func (l *Link) Visual() *Visual { return l.visual }

// CalcTransform returns the parent-relative transform for the current joint
// value: offset ∘ joint motion.
func (l *Link) CalcTransform() spatial.Isometry {
	return l.offset.Mul(l.joint.LocalTransform())
}

// HasJointAngle reports whether the joint is movable.
func (l *Link) HasJointAngle() bool {
	return l.joint.Type() != Fixed
}

// JointAngle returns the joint value; ok is false for a fixed joint.
func (l *Link) JointAngle() (float64, bool) {
	return l.joint.Value()
}

// SetJointAngle sets the joint value. See Joint.SetValue.
func (l *Link) SetJointAngle(v float64) error {
	return l.joint.SetValue(v)
}

// WorldTransform returns the world transform cached by the last tree pass.
// ok is false when no pass has reached this link or when its own joint has
// moved since. Changes to ancestor joints are not visible here; use
// Tree.CachedWorldTransform for a full check.
func (l *Link) WorldTransform() (spatial.Isometry, bool) {
	if !l.cacheFresh() {
		return spatial.Isometry{}, false
	}
	return l.world, true
}

func (l *Link) cacheFresh() bool {
	return l.worldSet && l.worldVersion == l.joint.version
}

func (l *Link) setWorld(w spatial.Isometry) {
	l.world = w
	l.worldSet = true
	l.worldVersion = l.joint.version
}

func (l *Link) String() string {
	return fmt.Sprintf("%s(%s %s)", l.name, l.joint.Type(), l.joint.Name())
}
