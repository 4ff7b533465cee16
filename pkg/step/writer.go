package step

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chazu/pcbsolid/pkg/geom"
	"github.com/chazu/pcbsolid/pkg/model"
	"github.com/chazu/pcbsolid/pkg/step/p21"
)

// Header is the HEADER section of a written file.
type Header struct {
	Name         string
	Author       string
	Organization string
	Time         time.Time
}

// Writer accumulates the DATA section of a STEP file. Every method appends
// one instance and returns its id. Nothing is de-duplicated: callers keep
// the ids of shared instances themselves.
type Writer struct {
	Header Header

	lines []string
	next  int
}

// NewWriter returns an empty writer.
func NewWriter(h Header) *Writer {
	return &Writer{Header: h, next: 1}
}

// Len returns the number of instances written.
func (w *Writer) Len() int { return len(w.lines) }

// Add appends a simple instance.
func (w *Writer) Add(typ string, args ...p21.Value) int {
	var b strings.Builder
	id := w.next
	w.next++
	fmt.Fprintf(&b, "#%d=", id)
	writeRecord(&b, typ, args)
	b.WriteByte(';')
	w.lines = append(w.lines, b.String())
	return id
}

// Raw appends a complex instance made of the given partial records.
func (w *Writer) Raw(records ...p21.Record) int {
	var b strings.Builder
	id := w.next
	w.next++
	fmt.Fprintf(&b, "#%d=(", id)
	for _, r := range records {
		writeRecord(&b, r.Type, r.Args)
	}
	b.WriteString(");")
	w.lines = append(w.lines, b.String())
	return id
}

func writeRecord(b *strings.Builder, typ string, args []p21.Value) {
	b.WriteString(typ)
	b.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(a.String())
	}
	b.WriteByte(')')
}

func rec(typ string, args ...p21.Value) p21.Record { return p21.Record{Type: typ, Args: args} }

var empty = p21.Str("")

func (w *Writer) CartesianPoint(p geom.Vec) int {
	return w.Add("CARTESIAN_POINT", empty, p21.Floats(p.X, p.Y, p.Z))
}

func (w *Writer) Direction(d geom.Vec) int {
	d = d.Normalize()
	return w.Add("DIRECTION", empty, p21.Floats(d.X, d.Y, d.Z))
}

func (w *Writer) Vector(d geom.Vec, magnitude float64) int {
	return w.Add("VECTOR", empty, p21.RefTo(w.Direction(d)), p21.Float(magnitude))
}

func (w *Writer) Axis2Placement(p geom.Placement) int {
	x, _, z := p.Frame()
	return w.Add("AXIS2_PLACEMENT_3D", empty,
		p21.RefTo(w.CartesianPoint(p.Origin)),
		p21.RefTo(w.Direction(z)),
		p21.RefTo(w.Direction(x)))
}

func (w *Writer) VertexPoint(p geom.Vec) int {
	return w.Add("VERTEX_POINT", empty, p21.RefTo(w.CartesianPoint(p)))
}

func (w *Writer) Line(origin, dir geom.Vec) int {
	return w.Add("LINE", empty, p21.RefTo(w.CartesianPoint(origin)), p21.RefTo(w.Vector(dir, 1)))
}

func (w *Writer) Circle(pl geom.Placement, radius float64) int {
	return w.Add("CIRCLE", empty, p21.RefTo(w.Axis2Placement(pl)), p21.Float(radius))
}

func (w *Writer) Ellipse(pl geom.Placement, a, b float64) int {
	return w.Add("ELLIPSE", empty, p21.RefTo(w.Axis2Placement(pl)), p21.Float(a), p21.Float(b))
}

// BSpline writes a B_SPLINE_CURVE_WITH_KNOTS, or the complex rational form
// when the curve has weights.
func (w *Writer) BSpline(c model.BSpline) int {
	pts := make([]int, len(c.ControlPoints))
	for i, p := range c.ControlPoints {
		pts[i] = w.CartesianPoint(p)
	}
	mults := make([]p21.Value, len(c.Mults))
	for i, m := range c.Mults {
		mults[i] = p21.Int(int64(m))
	}
	knots := p21.Floats(c.Knots...)
	knotSpec := p21.EnumOf("UNSPECIFIED")
	if c.UniformKnots {
		knotSpec = p21.EnumOf("UNIFORM_KNOTS")
	}
	form := p21.EnumOf("UNSPECIFIED")
	if c.Weights == nil {
		return w.Add("B_SPLINE_CURVE_WITH_KNOTS", empty, p21.Int(int64(c.Degree)), p21.Refs(pts...),
			form, p21.Bool(c.Closed), p21.Bool(false), p21.ListOf(mults...), knots, knotSpec)
	}
	return w.Raw(
		rec("BOUNDED_CURVE"),
		rec("B_SPLINE_CURVE", p21.Int(int64(c.Degree)), p21.Refs(pts...), form, p21.Bool(c.Closed), p21.Bool(false)),
		rec("B_SPLINE_CURVE_WITH_KNOTS", p21.ListOf(mults...), knots, knotSpec),
		rec("CURVE"),
		rec("GEOMETRIC_REPRESENTATION_ITEM"),
		rec("RATIONAL_B_SPLINE_CURVE", p21.Floats(c.Weights...)),
		rec("REPRESENTATION_ITEM", empty),
	)
}

func (w *Writer) EdgeCurve(v1, v2, curve int, sameSense bool) int {
	return w.Add("EDGE_CURVE", empty, p21.RefTo(v1), p21.RefTo(v2), p21.RefTo(curve), p21.Bool(sameSense))
}

func (w *Writer) OrientedEdge(edge int, orientation bool) int {
	return w.Add("ORIENTED_EDGE", empty, p21.Star, p21.Star, p21.RefTo(edge), p21.Bool(orientation))
}

func (w *Writer) EdgeLoop(edges []int) int {
	return w.Add("EDGE_LOOP", empty, p21.Refs(edges...))
}

func (w *Writer) FaceBound(loop int, outer bool) int {
	typ := "FACE_BOUND"
	if outer {
		typ = "FACE_OUTER_BOUND"
	}
	return w.Add(typ, empty, p21.RefTo(loop), p21.Bool(true))
}

// Surface writes one of the analytic surfaces. It reports false for
// surfaces that cannot be written.
func (w *Writer) Surface(s model.Surface) (int, bool) {
	switch s := s.(type) {
	case model.Plane:
		return w.Add("PLANE", empty, p21.RefTo(w.Axis2Placement(s.Placement))), true
	case model.Cylinder:
		return w.Add("CYLINDRICAL_SURFACE", empty, p21.RefTo(w.Axis2Placement(s.Placement)), p21.Float(s.Radius)), true
	case model.Cone:
		return w.Add("CONICAL_SURFACE", empty, p21.RefTo(w.Axis2Placement(s.Placement)),
			p21.Float(s.Radius), p21.Float(s.SemiAngle)), true
	case model.Torus:
		return w.Add("TOROIDAL_SURFACE", empty, p21.RefTo(w.Axis2Placement(s.Placement)),
			p21.Float(s.MajorRadius), p21.Float(s.MinorRadius)), true
	case model.Sphere:
		return w.Add("SPHERICAL_SURFACE", empty, p21.RefTo(w.Axis2Placement(s.Placement)), p21.Float(s.Radius)), true
	}
	return 0, false
}

func (w *Writer) AdvancedFace(bounds []int, surface int, sameSense bool) int {
	return w.Add("ADVANCED_FACE", empty, p21.Refs(bounds...), p21.RefTo(surface), p21.Bool(sameSense))
}

func (w *Writer) ClosedShell(faces []int) int {
	return w.Add("CLOSED_SHELL", empty, p21.Refs(faces...))
}

func (w *Writer) ManifoldSolidBrep(name string, shell int) int {
	return w.Add("MANIFOLD_SOLID_BREP", p21.Str(name), p21.RefTo(shell))
}

// Context writes the millimetre/radian geometric representation context.
func (w *Writer) Context(uncertainty float64) int {
	mm := w.Raw(rec("LENGTH_UNIT"), rec("NAMED_UNIT", p21.Star), rec("SI_UNIT", p21.EnumOf("MILLI"), p21.EnumOf("METRE")))
	rad := w.Raw(rec("NAMED_UNIT", p21.Star), rec("PLANE_ANGLE_UNIT"), rec("SI_UNIT", p21.Null, p21.EnumOf("RADIAN")))
	sr := w.Raw(rec("NAMED_UNIT", p21.Star), rec("SI_UNIT", p21.Null, p21.EnumOf("STERADIAN")), rec("SOLID_ANGLE_UNIT"))
	unc := w.Add("UNCERTAINTY_MEASURE_WITH_UNIT", p21.TypedOf("LENGTH_MEASURE", p21.Float(uncertainty)),
		p21.RefTo(mm), p21.Str("distance_accuracy_value"), p21.Str("confusion accuracy"))
	return w.Raw(
		rec("GEOMETRIC_REPRESENTATION_CONTEXT", p21.Int(3)),
		rec("GLOBAL_UNCERTAINTY_ASSIGNED_CONTEXT", p21.Refs(unc)),
		rec("GLOBAL_UNIT_ASSIGNED_CONTEXT", p21.Refs(mm, rad, sr)),
		rec("REPRESENTATION_CONTEXT", p21.Str("Context #1"), p21.Str("3D Context with UNIT and UNCERTAINTY")),
	)
}

// Product writes the application context and the product chain down to a
// SHAPE_REPRESENTATION holding items in context ctx. It returns the
// product definition and the shape representation.
func (w *Writer) Product(name string, ctx int, items []int) (pd, sr int) {
	app := w.Add("APPLICATION_CONTEXT", p21.Str("core data for automotive mechanical design processes"))
	w.Add("APPLICATION_PROTOCOL_DEFINITION", p21.Str("international standard"), p21.Str("automotive_design"),
		p21.Int(2000), p21.RefTo(app))
	pc := w.Add("PRODUCT_CONTEXT", empty, p21.RefTo(app), p21.Str("mechanical"))
	prod := w.Add("PRODUCT", p21.Str(name), p21.Str(name), empty, p21.Refs(pc))
	w.Add("PRODUCT_RELATED_PRODUCT_CATEGORY", p21.Str("part"), p21.Null, p21.Refs(prod))
	pdf := w.Add("PRODUCT_DEFINITION_FORMATION", empty, empty, p21.RefTo(prod))
	pdc := w.Add("PRODUCT_DEFINITION_CONTEXT", p21.Str("part definition"), p21.RefTo(app), p21.Str("design"))
	pd = w.Add("PRODUCT_DEFINITION", p21.Str("design"), empty, p21.RefTo(pdf), p21.RefTo(pdc))
	pds := w.Add("PRODUCT_DEFINITION_SHAPE", empty, empty, p21.RefTo(pd))
	sr = w.Add("SHAPE_REPRESENTATION", empty, p21.Refs(items...), p21.RefTo(ctx))
	w.Add("SHAPE_DEFINITION_REPRESENTATION", p21.RefTo(pds), p21.RefTo(sr))
	return pd, sr
}

// BrepRepresentation writes an ADVANCED_BREP_SHAPE_REPRESENTATION and
// relates it to the shape representation sr.
func (w *Writer) BrepRepresentation(name string, items []int, ctx, sr int) int {
	absr := w.Add("ADVANCED_BREP_SHAPE_REPRESENTATION", p21.Str(name), p21.Refs(items...), p21.RefTo(ctx))
	w.Add("SHAPE_REPRESENTATION_RELATIONSHIP", empty, empty, p21.RefTo(absr), p21.RefTo(sr))
	return absr
}

// PlacedRepresentation relates child to parent through the transform
// taking the placement from onto to. The complex form is the one AP214
// uses for assembly components.
func (w *Writer) PlacedRepresentation(child, parent int, from, to geom.Placement) int {
	idt := w.Add("ITEM_DEFINED_TRANSFORMATION", empty, empty,
		p21.RefTo(w.Axis2Placement(from)), p21.RefTo(w.Axis2Placement(to)))
	return w.Raw(
		rec("REPRESENTATION_RELATIONSHIP", empty, empty, p21.RefTo(child), p21.RefTo(parent)),
		rec("REPRESENTATION_RELATIONSHIP_WITH_TRANSFORMATION", p21.RefTo(idt)),
		rec("SHAPE_REPRESENTATION_RELATIONSHIP"),
	)
}

func (w *Writer) ColourRGB(a *model.Appearance) int {
	return w.Add("COLOUR_RGB", p21.Str(a.Name), p21.Float(a.R), p21.Float(a.G), p21.Float(a.B))
}

// StyledItem binds a surface colour to item and returns the STYLED_ITEM.
func (w *Writer) StyledItem(colour, item int) int {
	fill := w.Add("FILL_AREA_STYLE_COLOUR", empty, p21.RefTo(colour))
	fas := w.Add("FILL_AREA_STYLE", empty, p21.Refs(fill))
	ssfa := w.Add("SURFACE_STYLE_FILL_AREA", p21.RefTo(fas))
	sss := w.Add("SURFACE_SIDE_STYLE", empty, p21.Refs(ssfa))
	ssu := w.Add("SURFACE_STYLE_USAGE", p21.EnumOf("BOTH"), p21.RefTo(sss))
	psa := w.Add("PRESENTATION_STYLE_ASSIGNMENT", p21.Refs(ssu))
	return w.Add("STYLED_ITEM", p21.Str("color"), p21.Refs(psa), p21.RefTo(item))
}

// Presentation groups styled items for viewers.
func (w *Writer) Presentation(styled []int, ctx int) int {
	return w.Add("MECHANICAL_DESIGN_GEOMETRIC_PRESENTATION_REPRESENTATION", empty, p21.Refs(styled...), p21.RefTo(ctx))
}

// WriteTo writes the complete exchange file.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	cw := &countWriter{w: out}
	bw := bufio.NewWriter(cw)
	ts := w.Header.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	name := w.Header.Name
	if name == "" {
		name = "model"
	}
	header := []p21.Record{
		rec("FILE_DESCRIPTION", p21.ListOf(p21.Str("pcbsolid model")), p21.Str("2;1")),
		rec("FILE_NAME", p21.Str(name), p21.Str(ts.UTC().Format("2006-01-02T15:04:05")),
			p21.ListOf(p21.Str(w.Header.Author)), p21.ListOf(p21.Str(w.Header.Organization)),
			p21.Str("pcbsolid"), p21.Str("pcbsolid"), empty),
		rec("FILE_SCHEMA", p21.ListOf(p21.Str(schema))),
	}
	bw.WriteString("ISO-10303-21;\nHEADER;\n")
	for _, r := range header {
		var b strings.Builder
		writeRecord(&b, r.Type, r.Args)
		bw.WriteString(b.String())
		bw.WriteString(";\n")
	}
	bw.WriteString("ENDSEC;\nDATA;\n")
	for _, l := range w.lines {
		bw.WriteString(l)
		bw.WriteByte('\n')
	}
	bw.WriteString("ENDSEC;\nEND-ISO-10303-21;\n")
	if err := bw.Flush(); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

type countWriter struct {
	w io.Writer
	n int64
}

func (c *countWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
