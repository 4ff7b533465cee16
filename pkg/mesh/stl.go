package mesh

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ToTriangles converts meshes into sdfx triangles, dropping degenerate ones.
func ToTriangles(meshes ...*Mesh) []*sdf.Triangle3 {
	var tris []*sdf.Triangle3
	for _, m := range meshes {
		if m == nil {
			continue
		}
		idx := m.Triangles()
		for i := 0; i+2 < len(idx); i += 3 {
			t := &sdf.Triangle3{
				m.position(int(idx[i])),
				m.position(int(idx[i+1])),
				m.position(int(idx[i+2])),
			}
			if t[1].Sub(t[0]).Cross(t[2].Sub(t[0])).Length() < 1e-12 {
				continue
			}
			tris = append(tris, t)
		}
	}
	return tris
}

func (m *Mesh) position(i int) v3.Vec {
	v := m.At(i)
	return v3.Vec{X: v.X, Y: v.Y, Z: v.Z}
}

// SaveSTL writes the meshes as a binary STL file.
func SaveSTL(path string, meshes ...*Mesh) error {
	tris := ToTriangles(meshes...)
	if len(tris) == 0 {
		return fmt.Errorf("mesh: nothing to write to %s", path)
	}
	if err := render.SaveSTL(path, tris); err != nil {
		return fmt.Errorf("mesh: writing STL %s: %w", path, err)
	}
	return nil
}

// Bounds returns the axis-aligned bounding box of the meshes.
func Bounds(meshes ...*Mesh) (sdf.Box3, bool) {
	lo := v3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi := v3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	found := false
	for _, m := range meshes {
		if m == nil {
			continue
		}
		for i := 0; i < m.VertexCount(); i++ {
			p := m.position(i)
			lo = lo.Min(p)
			hi = hi.Max(p)
			found = true
		}
	}
	return sdf.Box3{Min: lo, Max: hi}, found
}
