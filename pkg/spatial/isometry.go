// Package spatial provides the rigid transform type shared by the kinematics
// packages. Rotations are unit quaternions from gonum's r3 package; an
// Isometry can be converted to an sdfx matrix for the geometry kernel.
package spatial

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Isometry is a rotation followed by a translation. The zero value is the
// identity transform.
type Isometry struct {
	Rotation    r3.Rotation
	Translation r3.Vec
}

// Identity returns the identity transform.
func Identity() Isometry {
	return Isometry{Rotation: r3.Rotation{Real: 1}}
}

// NewTranslation returns a pure translation.
func NewTranslation(v r3.Vec) Isometry {
	return Isometry{Rotation: r3.Rotation{Real: 1}, Translation: v}
}

// NewRotation returns a pure rotation by angle (radians) about axis.
func NewRotation(angle float64, axis r3.Vec) Isometry {
	return Isometry{Rotation: r3.NewRotation(angle, axis)}
}

// NewIsometry combines a translation and a rotation.
func NewIsometry(t r3.Vec, r r3.Rotation) Isometry {
	return Isometry{Rotation: r, Translation: t}
}

// FromRPY returns the rotation for fixed-axis roll (X), pitch (Y) and yaw (Z)
// angles, applied in that order.
func FromRPY(roll, pitch, yaw float64) r3.Rotation {
	qx := quat.Number(r3.NewRotation(roll, r3.Vec{X: 1}))
	qy := quat.Number(r3.NewRotation(pitch, r3.Vec{Y: 1}))
	qz := quat.Number(r3.NewRotation(yaw, r3.Vec{Z: 1}))
	return r3.Rotation(normalize(quat.Mul(qz, quat.Mul(qy, qx))))
}

func (a Isometry) quat() quat.Number {
	if a.Rotation == (r3.Rotation{}) {
		return quat.Number{Real: 1}
	}
	return quat.Number(a.Rotation)
}

func normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 || n == 1 {
		return q
	}
	return quat.Scale(1/n, q)
}

// Mul returns the composition a∘b: b is applied first, then a.
func (a Isometry) Mul(b Isometry) Isometry {
	q := normalize(quat.Mul(a.quat(), b.quat()))
	return Isometry{
		Rotation:    r3.Rotation(q),
		Translation: r3.Add(a.Translation, a.Rotate(b.Translation)),
	}
}

// Inverse returns the transform that undoes a.
func (a Isometry) Inverse() Isometry {
	inv := r3.Rotation(quat.Conj(a.quat()))
	return Isometry{
		Rotation:    inv,
		Translation: r3.Scale(-1, inv.Rotate(a.Translation)),
	}
}

// Rotate applies only the rotational part of a to v.
func (a Isometry) Rotate(v r3.Vec) r3.Vec {
	return r3.Rotation(a.quat()).Rotate(v)
}

// Apply transforms the point p.
func (a Isometry) Apply(p r3.Vec) r3.Vec {
	return r3.Add(a.Rotate(p), a.Translation)
}

// AxisAngle returns the rotation of a as a unit axis and an angle in [0, π].
// The axis is +X when the angle is zero.
func (a Isometry) AxisAngle() (r3.Vec, float64) {
	q := a.quat()
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	v := r3.Vec{X: q.Imag, Y: q.Jmag, Z: q.Kmag}
	s := r3.Norm(v)
	if s < 1e-12 {
		return r3.Vec{X: 1}, 0
	}
	return r3.Scale(1/s, v), 2 * math.Atan2(s, q.Real)
}

// RPY returns the roll, pitch and yaw angles that FromRPY maps back to the
// rotation of a. Pitch is in [-π/2, π/2].
func (a Isometry) RPY() (roll, pitch, yaw float64) {
	q := a.quat()
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	roll = math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))
	pitch = math.Asin(math.Max(-1, math.Min(1, 2*(w*y-z*x))))
	yaw = math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))
	return roll, pitch, yaw
}

// RotationVector returns axis*angle for the rotation of a.
func (a Isometry) RotationVector() r3.Vec {
	axis, angle := a.AxisAngle()
	return r3.Scale(angle, axis)
}

// ApproxEqual reports whether a and b differ by less than tol in translation
// distance and in rotation angle.
func (a Isometry) ApproxEqual(b Isometry, tol float64) bool {
	if r3.Norm(r3.Sub(a.Translation, b.Translation)) > tol {
		return false
	}
	_, angle := a.Inverse().Mul(b).AxisAngle()
	return angle <= tol
}

// M44 converts a to the homogeneous matrix representation used by sdfx.
func (a Isometry) M44() sdf.M44 {
	t := a.Translation
	m := sdf.Translate3d(v3.Vec{X: t.X, Y: t.Y, Z: t.Z})
	axis, angle := a.AxisAngle()
	if angle == 0 {
		return m
	}
	return m.Mul(sdf.Rotate3d(v3.Vec{X: axis.X, Y: axis.Y, Z: axis.Z}, angle))
}

// String formats the translation and the rotation vector.
func (a Isometry) String() string {
	t := a.Translation
	r := a.RotationVector()
	return fmt.Sprintf("t=(%.6f, %.6f, %.6f) r=(%.6f, %.6f, %.6f)", t.X, t.Y, t.Z, r.X, r.Y, r.Z)
}
