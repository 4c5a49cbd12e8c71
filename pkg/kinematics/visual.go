package kinematics

import (
	"fmt"

	"github.com/chazu/linkage/pkg/spatial"
	"gonum.org/v1/gonum/spatial/r3"
)

// Shape names the primitive used to draw a link.
type Shape int

const (
	ShapeBox Shape = iota + 1
	ShapeCylinder
	ShapeSphere
)

func (s Shape) String() string {
	switch s {
	case ShapeBox:
		return "box"
	case ShapeCylinder:
		return "cylinder"
	case ShapeSphere:
		return "sphere"
	default:
		return fmt.Sprintf("Shape(%d)", int(s))
	}
}

// Visual is optional display geometry attached to a link. Size is used by
// boxes, Radius by cylinders and spheres, Length by cylinders (along local Z).
// Origin places the solid in the link frame.
type Visual struct {
	Shape  Shape
	Size   r3.Vec
	Radius float64
	Length float64
	Origin spatial.Isometry
}

func (v *Visual) validate() error {
	switch v.Shape {
	case ShapeBox:
		if v.Size.X <= 0 || v.Size.Y <= 0 || v.Size.Z <= 0 {
			return fmt.Errorf("%w: visual box size %v must be positive", ErrInvalidLink, v.Size)
		}
	case ShapeCylinder:
		if v.Radius <= 0 || v.Length <= 0 {
			return fmt.Errorf("%w: visual cylinder radius %g length %g must be positive", ErrInvalidLink, v.Radius, v.Length)
		}
	case ShapeSphere:
		if v.Radius <= 0 {
			return fmt.Errorf("%w: visual sphere radius %g must be positive", ErrInvalidLink, v.Radius)
		}
	default:
		return fmt.Errorf("%w: visual has unknown shape %v", ErrInvalidLink, v.Shape)
	}
	return nil
}
