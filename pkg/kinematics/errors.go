package kinematics

import (
	"errors"
	"fmt"
)

var (
	// ErrSizeMismatch is returned when an angle vector's length differs from
	// the number of movable joints it addresses. Nothing is written.
	ErrSizeMismatch = errors.New("kinematics: joint angle count mismatch")
	// ErrOutOfLimit is returned when a joint value falls outside its limits.
	ErrOutOfLimit = errors.New("kinematics: joint value out of limits")
	// ErrNotFound is returned when a link name does not exist.
	ErrNotFound = errors.New("kinematics: link not found")
	// ErrFixedJoint is returned when setting a value on a fixed joint.
	ErrFixedJoint = errors.New("kinematics: fixed joint has no value")
	// ErrInvalidAxis is returned for a movable joint whose axis is not a unit vector.
	ErrInvalidAxis = errors.New("kinematics: joint axis must be a unit vector")
	// ErrInvalidLimits is returned for a range with Min > Max or non-finite bounds.
	ErrInvalidLimits = errors.New("kinematics: invalid joint limits")
	// ErrInvalidLink is returned by NewLink for a malformed configuration.
	ErrInvalidLink = errors.New("kinematics: invalid link")
	// ErrInvalidTree is returned when a tree root is unusable.
	ErrInvalidTree = errors.New("kinematics: invalid tree")
	// ErrStaleCache is returned when reading a world transform that has not
	// been recomputed since a joint on its path changed.
	ErrStaleCache = errors.New("kinematics: world transform cache is stale")
)

// JointError reports a rejected joint assignment.
type JointError struct {
	Joint  string
	Value  float64
	Limits *Range
	Err    error
}

func (e *JointError) Error() string {
	if e.Limits != nil {
		return fmt.Sprintf("joint %q: value %g outside [%g, %g]: %v", e.Joint, e.Value, e.Limits.Min, e.Limits.Max, e.Err)
	}
	return fmt.Sprintf("joint %q: %v", e.Joint, e.Err)
}

func (e *JointError) Unwrap() error {
	return e.Err
}
