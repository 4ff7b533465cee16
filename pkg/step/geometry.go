package step

import (
	"github.com/chazu/pcbsolid/pkg/geom"
	"github.com/chazu/pcbsolid/pkg/model"
	"github.com/chazu/pcbsolid/pkg/step/p21"
)

// units are the scale factors from a representation context's units to
// millimetres and radians.
type units struct {
	length float64
	angle  float64
}

var defaultUnits = units{length: 1, angle: 1}

// contextUnits reads the GLOBAL_UNIT_ASSIGNED_CONTEXT of ctx.
func (im *importer) contextUnits(ctx *p21.Entity) units {
	u := defaultUnits
	if ctx == nil {
		return u
	}
	if cached, ok := im.unitCache[ctx.ID]; ok {
		return cached
	}
	if rec, ok := ctx.Record("GLOBAL_UNIT_ASSIGNED_CONTEXT"); ok {
		list, _ := rec.Arg(0).Items()
		for _, ref := range list {
			unit := im.f.Deref(ref)
			if unit == nil {
				continue
			}
			switch {
			case unit.Is("LENGTH_UNIT"):
				u.length = im.unitFactor(unit, 1000, 0)
			case unit.Is("PLANE_ANGLE_UNIT"):
				u.angle = im.unitFactor(unit, 1, 0)
			}
		}
	}
	im.unitCache[ctx.ID] = u
	return u
}

// unitFactor converts a unit entity to the base scale (millimetres for
// lengths, radians for angles). si is the factor of the unprefixed SI unit.
func (im *importer) unitFactor(unit *p21.Entity, si float64, depth int) float64 {
	if depth > 4 {
		return 1
	}
	if rec, ok := unit.Record("SI_UNIT"); ok {
		prefix, _ := rec.Arg(0).Text()
		return si * siPrefix(prefix)
	}
	if rec, ok := unit.Record("CONVERSION_BASED_UNIT"); ok {
		// CONVERSION_BASED_UNIT(name, MEASURE_WITH_UNIT(value, base unit))
		mwu := im.f.Deref(rec.Arg(1))
		if mwu == nil {
			return 1
		}
		value, ok := mwu.Arg(0).Float()
		base := im.f.Deref(mwu.Arg(1))
		if !ok || base == nil {
			return 1
		}
		return value * im.unitFactor(base, si, depth+1)
	}
	return 1
}

func siPrefix(p string) float64 {
	switch p {
	case "MILLI":
		return 1e-3
	case "CENTI":
		return 1e-2
	case "DECI":
		return 1e-1
	case "KILO":
		return 1e3
	case "MICRO":
		return 1e-6
	case "NANO":
		return 1e-9
	}
	return 1
}

// point reads a CARTESIAN_POINT or VERTEX_POINT.
func (im *importer) point(e *p21.Entity, u units) (geom.Vec, bool) {
	if e == nil {
		return geom.Vec{}, false
	}
	if e.Type() == "VERTEX_POINT" {
		return im.point(im.f.Deref(e.Arg(1)), u)
	}
	if e.Type() != "CARTESIAN_POINT" {
		return geom.Vec{}, false
	}
	c, ok := e.Arg(1).Items()
	if !ok || len(c) == 0 {
		return geom.Vec{}, false
	}
	var xyz [3]float64
	for i := 0; i < len(c) && i < 3; i++ {
		xyz[i], _ = c[i].Float()
	}
	return geom.V(xyz[0], xyz[1], xyz[2]).MulScalar(u.length), true
}

// direction reads a DIRECTION or the direction of a VECTOR.
func (im *importer) direction(e *p21.Entity) (geom.Vec, bool) {
	if e == nil {
		return geom.Vec{}, false
	}
	if e.Type() == "VECTOR" {
		return im.direction(im.f.Deref(e.Arg(1)))
	}
	if e.Type() != "DIRECTION" {
		return geom.Vec{}, false
	}
	c, ok := e.Arg(1).Items()
	if !ok || len(c) == 0 {
		return geom.Vec{}, false
	}
	var xyz [3]float64
	for i := 0; i < len(c) && i < 3; i++ {
		xyz[i], _ = c[i].Float()
	}
	d := geom.V(xyz[0], xyz[1], xyz[2])
	if d.Length() < geom.Eps {
		return geom.Vec{}, false
	}
	return d.Normalize(), true
}

// placement reads an AXIS2_PLACEMENT_3D. Missing axes default to Z and X.
func (im *importer) placement(e *p21.Entity, u units) geom.Placement {
	p := geom.DefaultPlacement
	if e == nil || e.Type() != "AXIS2_PLACEMENT_3D" {
		return p
	}
	if o, ok := im.point(im.f.Deref(e.Arg(1)), u); ok {
		p.Origin = o
	}
	if a, ok := im.direction(im.f.Deref(e.Arg(2))); ok {
		p.Axis = a
	}
	if r, ok := im.direction(im.f.Deref(e.Arg(3))); ok {
		p.RefDir = r
	}
	return p
}

// curve reads the geometry of an EDGE_CURVE.
func (im *importer) curve(e *p21.Entity, u units, depth int) model.Curve {
	if e == nil {
		return model.Placeholder{Entity: "$"}
	}
	if depth > 8 {
		return model.Placeholder{Entity: e.Type()}
	}
	switch e.Type() {
	case "LINE":
		o, _ := im.point(im.f.Deref(e.Arg(1)), u)
		d, _ := im.direction(im.f.Deref(e.Arg(2)))
		return model.Line{Origin: o, Dir: d}
	case "CIRCLE":
		r, _ := e.Arg(2).Float()
		return model.Circle{Placement: im.placement(im.f.Deref(e.Arg(1)), u), Radius: r * u.length}
	case "ELLIPSE":
		a, _ := e.Arg(2).Float()
		b, _ := e.Arg(3).Float()
		return model.Ellipse{
			Placement: im.placement(im.f.Deref(e.Arg(1)), u),
			SemiAxis1: a * u.length,
			SemiAxis2: b * u.length,
		}
	case "SURFACE_CURVE", "SEAM_CURVE", "TRIMMED_CURVE":
		return im.curve(im.f.Deref(e.Arg(1)), u, depth+1)
	}
	if e.Is("B_SPLINE_CURVE") || e.Is("B_SPLINE_CURVE_WITH_KNOTS") {
		return im.bspline(e, u)
	}
	im.log.Warn().Int("entity", e.ID).Str("type", e.Type()).Msg("unsupported curve, using placeholder")
	return model.Placeholder{Entity: e.Type()}
}

// bspline reads a simple B_SPLINE_CURVE_WITH_KNOTS or a complex B-spline
// instance, rational or not.
func (im *importer) bspline(e *p21.Entity, u units) model.Curve {
	var (
		c     model.BSpline
		pts   []p21.Value
		mults []p21.Value
		knots []p21.Value
	)
	if !e.Complex() {
		// B_SPLINE_CURVE_WITH_KNOTS(name, degree, points, form, closed,
		// self_intersect, mults, knots, knot_spec)
		c.Degree, _ = e.Arg(1).Integer()
		pts, _ = e.Arg(2).Items()
		c.Closed, _ = e.Arg(4).Bool()
		mults, _ = e.Arg(6).Items()
		knots, _ = e.Arg(7).Items()
	} else {
		if rec, ok := e.Record("B_SPLINE_CURVE"); ok {
			c.Degree, _ = rec.Arg(0).Integer()
			pts, _ = rec.Arg(1).Items()
			c.Closed, _ = rec.Arg(3).Bool()
		}
		if rec, ok := e.Record("B_SPLINE_CURVE_WITH_KNOTS"); ok {
			mults, _ = rec.Arg(0).Items()
			knots, _ = rec.Arg(1).Items()
		}
		if rec, ok := e.Record("RATIONAL_B_SPLINE_CURVE"); ok {
			ws, _ := rec.Arg(0).Items()
			for _, w := range ws {
				f, _ := w.Float()
				c.Weights = append(c.Weights, f)
			}
		}
	}
	for _, ref := range pts {
		p, ok := im.point(im.f.Deref(ref), u)
		if !ok {
			im.log.Warn().Int("entity", e.ID).Msg("b-spline control point is not a cartesian point")
			return model.Placeholder{Entity: e.Type()}
		}
		c.ControlPoints = append(c.ControlPoints, p)
	}
	if len(c.ControlPoints) < 2 || c.Degree < 1 {
		return model.Placeholder{Entity: e.Type()}
	}
	if len(mults) == 0 || len(mults) != len(knots) {
		uniformKnots(&c)
		return c
	}
	for i := range mults {
		m, _ := mults[i].Integer()
		k, _ := knots[i].Float()
		c.Mults = append(c.Mults, m)
		c.Knots = append(c.Knots, k)
	}
	return c
}

// uniformKnots fills in an evenly spaced knot vector with unit
// multiplicities and flags the curve.
func uniformKnots(c *model.BSpline) {
	n := len(c.ControlPoints) + c.Degree + 1
	c.Knots = make([]float64, n)
	c.Mults = make([]int, n)
	for i := range n {
		c.Knots[i] = float64(i) / float64(n-1)
		c.Mults[i] = 1
	}
	c.UniformKnots = true
}

// surface reads the geometry of a face.
func (im *importer) surface(e *p21.Entity, u units) model.Surface {
	if e == nil {
		return model.Unsupported{Entity: "$"}
	}
	pl := im.placement(im.f.Deref(e.Arg(1)), u)
	num := func(i int) float64 {
		v, _ := e.Arg(i).Float()
		return v
	}
	switch e.Type() {
	case "PLANE":
		return model.Plane{Placement: pl}
	case "CYLINDRICAL_SURFACE":
		return model.Cylinder{Placement: pl, Radius: num(2) * u.length}
	case "CONICAL_SURFACE":
		return model.Cone{Placement: pl, Radius: num(2) * u.length, SemiAngle: num(3) * u.angle}
	case "TOROIDAL_SURFACE":
		return model.Torus{Placement: pl, MajorRadius: num(2) * u.length, MinorRadius: num(3) * u.length}
	case "SPHERICAL_SURFACE":
		return model.Sphere{Placement: pl, Radius: num(2) * u.length}
	}
	return model.Unsupported{Entity: e.Type()}
}
