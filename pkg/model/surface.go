package model

import (
	"github.com/chazu/pcbsolid/pkg/geom"
)

// Surface is the geometry underlying a face.
type Surface interface {
	surfaceKind() string
	placement() geom.Placement
}

// Plane has its normal along Placement.Axis.
type Plane struct {
	Placement geom.Placement
}

// Cylinder is an infinite cylinder about Placement.Axis.
type Cylinder struct {
	Placement geom.Placement
	Radius    float64
}

// Cone has radius Radius in the plane of Placement and opens with
// half-angle SemiAngle (radians) towards +Axis.
type Cone struct {
	Placement geom.Placement
	Radius    float64
	SemiAngle float64
}

// Torus is centred on Placement.Origin with its main axis along
// Placement.Axis.
type Torus struct {
	Placement   geom.Placement
	MajorRadius float64
	MinorRadius float64
}

// Sphere is centred on Placement.Origin; Placement.Axis is the polar axis.
type Sphere struct {
	Placement geom.Placement
	Radius    float64
}

// Unsupported is a surface type that was read but cannot be tessellated.
// Faces carrying it keep their topology.
type Unsupported struct {
	Entity string
}

func (Plane) surfaceKind() string       { return "plane" }
func (Cylinder) surfaceKind() string    { return "cylinder" }
func (Cone) surfaceKind() string        { return "cone" }
func (Torus) surfaceKind() string       { return "torus" }
func (Sphere) surfaceKind() string      { return "sphere" }
func (Unsupported) surfaceKind() string { return "unsupported" }

func (s Plane) placement() geom.Placement     { return s.Placement }
func (s Cylinder) placement() geom.Placement  { return s.Placement }
func (s Cone) placement() geom.Placement      { return s.Placement }
func (s Torus) placement() geom.Placement     { return s.Placement }
func (s Sphere) placement() geom.Placement    { return s.Placement }
func (Unsupported) placement() geom.Placement { return geom.DefaultPlacement }

// SurfaceKind returns a short lower-case name for s, for logs.
func SurfaceKind(s Surface) string {
	if s == nil {
		return "none"
	}
	return s.surfaceKind()
}

// SurfacePlacement returns the local frame of s.
func SurfacePlacement(s Surface) geom.Placement {
	if s == nil {
		return geom.DefaultPlacement
	}
	return s.placement()
}

// TransformSurface returns s mapped through the rigid transform t.
func TransformSurface(s Surface, t geom.Transform) Surface {
	switch s := s.(type) {
	case Plane:
		return Plane{Placement: s.Placement.Transformed(t)}
	case Cylinder:
		s.Placement = s.Placement.Transformed(t)
		return s
	case Cone:
		s.Placement = s.Placement.Transformed(t)
		return s
	case Torus:
		s.Placement = s.Placement.Transformed(t)
		return s
	case Sphere:
		s.Placement = s.Placement.Transformed(t)
		return s
	default:
		return s
	}
}
