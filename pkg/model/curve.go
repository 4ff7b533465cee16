package model

import (
	"github.com/chazu/pcbsolid/pkg/geom"
)

// Curve is the geometry underlying an undirected edge. It is a closed set of
// variants; each variant implements the marker method.
type Curve interface {
	curveKind() string
}

// Line is a straight edge. Its geometry is fully defined by the end
// vertices; Dir is informational (STEP LINE direction).
type Line struct {
	Origin geom.Vec
	Dir    geom.Vec
}

// Circle is a circular arc lying in the plane of Placement. The natural
// parameterization runs counterclockwise about Placement.Axis starting at
// Placement.RefDir.
type Circle struct {
	Placement geom.Placement
	Radius    float64
}

// Ellipse is an elliptical arc. SemiAxis1 lies along Placement.RefDir.
type Ellipse struct {
	Placement geom.Placement
	SemiAxis1 float64
	SemiAxis2 float64
}

// BSpline is a (possibly rational) B-spline curve.
//
// When a reader supplies control points without knot multiplicities the
// knot vector is reconstructed as uniform and UniformKnots is set. That
// reconstruction is known to be incomplete (quasi-uniform and piecewise
// Bézier forms are never selected) and is flagged rather than corrected.
type BSpline struct {
	Degree        int
	ControlPoints []geom.Vec
	Weights       []float64 // nil for non-rational curves
	Knots         []float64
	Mults         []int
	UniformKnots  bool
	Closed        bool
}

// Placeholder stands in for a curve type the model does not understand.
// The edge keeps its topology and is linearized as a straight segment.
type Placeholder struct {
	Entity string
}

func (Line) curveKind() string        { return "line" }
func (Circle) curveKind() string      { return "circle" }
func (Ellipse) curveKind() string     { return "ellipse" }
func (BSpline) curveKind() string     { return "bspline" }
func (Placeholder) curveKind() string { return "placeholder" }

// CurveKind returns a short lower-case name for c, for logs.
func CurveKind(c Curve) string {
	if c == nil {
		return "none"
	}
	return c.curveKind()
}

// EdgeInfo is the geometry attached to one undirected edge.
type EdgeInfo struct {
	Curve Curve

	// SameSense reports whether the primal (rotation 0) direction of the
	// edge follows the curve's natural parameterization.
	SameSense bool

	// Stitch marks a degenerate topological edge, such as the vertical
	// seam of an extruded round contour.
	Stitch bool

	linear []geom.Vec
}

// NewEdgeInfo returns edge geometry for c traversed in its natural sense.
func NewEdgeInfo(c Curve) *EdgeInfo {
	return &EdgeInfo{Curve: c, SameSense: true}
}

// Linearized returns the cached polyline for the edge, in the primal
// direction, and whether one has been computed.
func (ei *EdgeInfo) Linearized() ([]geom.Vec, bool) {
	return ei.linear, ei.linear != nil
}

// SetLinearized stores the polyline cache.
func (ei *EdgeInfo) SetLinearized(pts []geom.Vec) { ei.linear = pts }

// Invalidate drops the polyline cache, e.g. after a transform.
func (ei *EdgeInfo) Invalidate() { ei.linear = nil }

// TransformCurve returns c mapped through t.
func TransformCurve(c Curve, t geom.Transform) Curve {
	switch c := c.(type) {
	case Line:
		return Line{Origin: t.Point(c.Origin), Dir: t.Dir(c.Dir).Normalize()}
	case Circle:
		return Circle{Placement: c.Placement.Transformed(t), Radius: c.Radius}
	case Ellipse:
		return Ellipse{Placement: c.Placement.Transformed(t), SemiAxis1: c.SemiAxis1, SemiAxis2: c.SemiAxis2}
	case BSpline:
		out := c
		out.ControlPoints = make([]geom.Vec, len(c.ControlPoints))
		for i, p := range c.ControlPoints {
			out.ControlPoints[i] = t.Point(p)
		}
		return out
	default:
		return c
	}
}
