// Package tessellate poses a kinematic tree and produces triangle meshes of
// its link visuals using a geometry kernel. One mesh is produced per link
// that carries a visual.
package tessellate

import (
	"fmt"

	"github.com/chazu/linkage/pkg/kernel"
	"github.com/chazu/linkage/pkg/kinematics"
)

// part is a placed link solid awaiting meshing.
type part struct {
	name  string
	solid kernel.Solid
}

// Tessellate computes the tree's world transforms for the current joint
// values and meshes every link visual in traversal order. Joint values are
// read, never written.
func Tessellate(t *kinematics.Tree, k kernel.Kernel) ([]*kernel.Mesh, error) {
	if t == nil {
		return nil, nil
	}
	parts, err := placeParts(t, k)
	if err != nil {
		return nil, err
	}

	meshes := make([]*kernel.Mesh, 0, len(parts))
	for _, p := range parts {
		mesh, err := k.ToMesh(p.solid)
		if err != nil {
			return nil, fmt.Errorf("tessellate: ToMesh failed for link %s: %w", p.name, err)
		}
		mesh.PartName = p.name
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

// Merge unions every placed link visual into a single mesh named after the
// tree. A tree without visuals yields an empty mesh.
func Merge(t *kinematics.Tree, k kernel.Kernel) (*kernel.Mesh, error) {
	if t == nil {
		return &kernel.Mesh{}, nil
	}
	parts, err := placeParts(t, k)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return &kernel.Mesh{PartName: t.Name}, nil
	}

	solid := parts[0].solid
	for _, p := range parts[1:] {
		solid = k.Union(solid, p.solid)
	}
	mesh, err := k.ToMesh(solid)
	if err != nil {
		return nil, fmt.Errorf("tessellate: ToMesh failed for %s: %w", t.Name, err)
	}
	mesh.PartName = t.Name
	return mesh, nil
}

func placeParts(t *kinematics.Tree, k kernel.Kernel) ([]part, error) {
	t.CalcLinkTransforms()

	var parts []part
	for _, l := range t.Links() {
		v := l.Visual()
		if v == nil {
			continue
		}
		solid, err := primitive(k, v)
		if err != nil {
			return nil, fmt.Errorf("tessellate: link %s: %w", l.Name(), err)
		}
		world, ok := l.WorldTransform()
		if !ok {
			return nil, fmt.Errorf("tessellate: link %s: %w", l.Name(), kinematics.ErrStaleCache)
		}
		parts = append(parts, part{
			name:  l.Name(),
			solid: k.Transform(solid, world.Mul(v.Origin)),
		})
	}
	return parts, nil
}

// primitive creates the unplaced solid for a visual.
func primitive(k kernel.Kernel, v *kinematics.Visual) (kernel.Solid, error) {
	switch v.Shape {
	case kinematics.ShapeBox:
		return k.Box(v.Size.X, v.Size.Y, v.Size.Z)
	case kinematics.ShapeCylinder:
		return k.Cylinder(v.Length, v.Radius)
	case kinematics.ShapeSphere:
		return k.Sphere(v.Radius)
	default:
		return nil, fmt.Errorf("unsupported visual shape %v", v.Shape)
	}
}
