// Package polygon is the 2D input to the solid builder: combined polygon
// pieces (one outer contour plus holes) in board coordinates.
//
// Full polygon booleans are out of scope. The package offers what the layer
// stack needs on top of already-combined pieces: containment tests, disc
// accumulation and the subtraction of round holes that lie entirely inside
// a piece.
package polygon

import (
	"math"
	"slices"

	"honnef.co/go/curve"
)

// Tolerance is the flattening tolerance used when a round contour has to be
// turned into a path, and the slack allowed by containment tests.
const Tolerance = 1e-3

// Contour is one closed loop. A round contour is a perfect circle given by
// Center and Radius; it has no Points.
type Contour struct {
	Points []curve.Point
	Round  bool
	Center curve.Point
	Radius float64
}

// Poly returns a polygonal contour through pts.
func Poly(pts ...curve.Point) *Contour {
	return &Contour{Points: pts}
}

// Rect returns the axis-aligned rectangle spanned by two corners, wound
// counterclockwise in a Y-up frame.
func Rect(x0, y0, x1, y1 float64) *Contour {
	r := curve.NewRectFromPoints(curve.Pt(x0, y0), curve.Pt(x1, y1))
	return Poly(
		curve.Pt(r.X0, r.Y0),
		curve.Pt(r.X1, r.Y0),
		curve.Pt(r.X1, r.Y1),
		curve.Pt(r.X0, r.Y1),
	)
}

// Circle returns a round contour.
func Circle(center curve.Point, radius float64) *Contour {
	return &Contour{Round: true, Center: center, Radius: radius}
}

// VertexCount is the number of builder vertices the contour contributes:
// one for a round contour, one per point otherwise.
func (c *Contour) VertexCount() int {
	if c.Round {
		return 1
	}
	return len(c.Points)
}

// Path returns the contour as a closed Bézier path.
func (c *Contour) Path() curve.BezPath {
	if c.Round {
		return curve.Circle{Center: c.Center, Radius: c.Radius}.Path(Tolerance)
	}
	var p curve.BezPath
	for i, pt := range c.Points {
		if i == 0 {
			p.MoveTo(pt)
		} else {
			p.LineTo(pt)
		}
	}
	if len(c.Points) > 0 {
		p.ClosePath()
	}
	return p
}

// SignedArea is positive for counterclockwise contours in a Y-up frame.
// Round contours report a positive area.
func (c *Contour) SignedArea() float64 {
	if c.Round {
		return math.Pi * c.Radius * c.Radius
	}
	return c.Path().SignedArea()
}

// Reverse flips the winding of a polygonal contour in place.
func (c *Contour) Reverse() {
	slices.Reverse(c.Points)
}

// Contains reports whether pt lies inside the contour.
func (c *Contour) Contains(pt curve.Point) bool {
	if c.Round {
		return pt.Distance(c.Center) < c.Radius
	}
	return c.Path().Winding(pt) != 0
}

// Distance returns the distance from pt to the contour's boundary.
func (c *Contour) Distance(pt curve.Point) float64 {
	if c.Round {
		return math.Abs(pt.Distance(c.Center) - c.Radius)
	}
	best := math.Inf(1)
	for seg := range c.Path().Segments() {
		d, _ := seg.Nearest(pt, 1e-9)
		best = min(best, math.Sqrt(d))
	}
	return best
}

// Bounds returns the bounding rectangle.
func (c *Contour) Bounds() curve.Rect {
	if c.Round {
		r := c.Radius
		return curve.NewRectFromPoints(
			curve.Pt(c.Center.X-r, c.Center.Y-r),
			curve.Pt(c.Center.X+r, c.Center.Y+r))
	}
	return c.Path().BoundingBox()
}

// ContainsDisc reports whether the disc (center, r) lies inside the contour
// without touching its boundary.
func (c *Contour) ContainsDisc(center curve.Point, r float64) bool {
	if c.Round {
		return center.Distance(c.Center)+r < c.Radius-Tolerance
	}
	return c.Contains(center) && c.Distance(center) > r+Tolerance
}

// disjointFromDisc reports whether the contour's interior and the disc do
// not overlap.
func (c *Contour) disjointFromDisc(center curve.Point, r float64) bool {
	if c.Round {
		return center.Distance(c.Center) > r+c.Radius+Tolerance
	}
	return !c.Contains(center) && c.Distance(center) > r+Tolerance
}
