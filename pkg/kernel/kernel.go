// Package kernel defines the abstract geometry kernel used to draw links.
// Implementations provide primitive solids, rigid placement and meshing
// behind this interface, so the rest of the system never touches a
// particular CAD library.
package kernel

import "github.com/chazu/linkage/pkg/spatial"

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface. Primitives are centered
// on the origin; cylinders run along Z.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) (Solid, error)
	Cylinder(length, radius float64) (Solid, error)
	Sphere(radius float64) (Solid, error)

	// Union merges two solids.
	Union(a, b Solid) Solid

	// Transform places s by a rigid transform.
	Transform(s Solid, pose spatial.Isometry) Solid

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
