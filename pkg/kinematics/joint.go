package kinematics

import (
	"fmt"
	"math"

	"github.com/chazu/linkage/pkg/spatial"
	"gonum.org/v1/gonum/spatial/r3"
)

// axisTolerance is how far |axis| may stray from 1.
const axisTolerance = 1e-6

// JointType selects how a joint's scalar value moves its link.
type JointType int

const (
	Fixed      JointType = iota // no degree of freedom
	Rotational                  // angle in radians about Axis
	Linear                      // displacement along Axis
)

func (t JointType) String() string {
	switch t {
	case Fixed:
		return "fixed"
	case Rotational:
		return "rotational"
	case Linear:
		return "linear"
	default:
		return fmt.Sprintf("JointType(%d)", int(t))
	}
}

// Range is an inclusive interval of permitted joint values.
type Range struct {
	Min, Max float64
}

// Contains reports whether v lies in [Min, Max].
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Clamp returns v limited to [Min, Max].
func (r Range) Clamp(v float64) float64 {
	return math.Min(math.Max(v, r.Min), r.Max)
}

// JointConfig describes a joint at construction time. Axis is ignored for
// Fixed joints. A nil Limits means the joint is unbounded.
type JointConfig struct {
	Name   string
	Type   JointType
	Axis   r3.Vec
	Limits *Range
}

// Joint is a single-DOF (or fixed) connector between a link and its parent.
type Joint struct {
	name   string
	typ    JointType
	axis   r3.Vec
	limits *Range
	value  float64

	// version increments on every successful SetValue; link caches compare
	// against it to detect staleness.
	version uint64
}

// NewJoint validates cfg and returns a joint. The initial value is 0, moved
// into the limits when 0 lies outside them.
func NewJoint(cfg JointConfig) (*Joint, error) {
	j := &Joint{name: cfg.Name, typ: cfg.Type}
	switch cfg.Type {
	case Fixed:
		return j, nil
	case Rotational, Linear:
	default:
		return nil, fmt.Errorf("joint %q: unknown type %v", cfg.Name, cfg.Type)
	}

	if n := r3.Norm(cfg.Axis); math.IsNaN(n) || math.Abs(n-1) > axisTolerance {
		return nil, fmt.Errorf("joint %q axis %v: %w", cfg.Name, cfg.Axis, ErrInvalidAxis)
	}
	j.axis = r3.Unit(cfg.Axis)

	if cfg.Limits != nil {
		l := *cfg.Limits
		if math.IsNaN(l.Min) || math.IsNaN(l.Max) || l.Min > l.Max {
			return nil, fmt.Errorf("joint %q [%g, %g]: %w", cfg.Name, l.Min, l.Max, ErrInvalidLimits)
		}
		j.limits = &l
		j.value = l.Clamp(0)
	}
	return j, nil
}

// Name returns the joint name.
func (j *Joint) Name() string { return j.name }

// Type returns the joint type.
func (j *Joint) Type() JointType { return j.typ }

// Axis returns the unit axis; zero for Fixed joints.
func (j *Joint) Axis() r3.Vec { return j.axis }

// Limits returns a copy of the limits, or nil when unbounded or fixed.
func (j *Joint) Limits() *Range {
	if j.limits == nil {
		return nil
	}
	l := *j.limits
	return &l
}

// Value returns the current angle or displacement. ok is false for Fixed.
func (j *Joint) Value() (v float64, ok bool) {
	if j.typ == Fixed {
		return 0, false
	}
	return j.value, true
}

// SetValue assigns v. It fails with ErrFixedJoint on a fixed joint and with
// ErrOutOfLimit when v is not finite or lies outside the limits; the stored
// value is unchanged on failure.
func (j *Joint) SetValue(v float64) error {
	if j.typ == Fixed {
		return &JointError{Joint: j.name, Value: v, Err: ErrFixedJoint}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || (j.limits != nil && !j.limits.Contains(v)) {
		return &JointError{Joint: j.name, Value: v, Limits: j.Limits(), Err: ErrOutOfLimit}
	}
	j.value = v
	j.version++
	return nil
}

// LocalTransform returns the motion induced by the current value.
func (j *Joint) LocalTransform() spatial.Isometry {
	switch j.typ {
	case Rotational:
		return spatial.NewRotation(j.value, j.axis)
	case Linear:
		return spatial.NewTranslation(r3.Scale(j.value, j.axis))
	default:
		return spatial.Identity()
	}
}
