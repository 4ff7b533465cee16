package step

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"honnef.co/go/curve"

	"github.com/chazu/pcbsolid/pkg/extrude"
	"github.com/chazu/pcbsolid/pkg/geom"
	"github.com/chazu/pcbsolid/pkg/mesh"
	"github.com/chazu/pcbsolid/pkg/model"
	"github.com/chazu/pcbsolid/pkg/polygon"
	"github.com/chazu/pcbsolid/pkg/step/p21"
	"github.com/chazu/pcbsolid/pkg/tessellate"
)

var green = &model.Appearance{Name: "soldermask", R: 0.1, G: 0.5, B: 0.2}

// buildPiece extrudes one piece between z 0 and 1.6 in a fresh session.
func buildPiece(t *testing.T, piece *polygon.Piece) (*model.Session, *model.Object) {
	t.Helper()
	s := model.NewSession()
	b := extrude.NewBuilder(s, extrude.Options{Frame: geom.BoardFrame{Height: 5}, Verify: true})
	res, err := b.BuildSolidFromContours(polygon.NewSet(piece), 0, 1.6, green, nil, false, "board")
	require.NoError(t, err)
	require.Len(t, res.Objects, 1)
	return s, res.Objects[0]
}

func buildBox(t *testing.T) (*model.Session, *model.Object) {
	return buildPiece(t, polygon.NewPiece(polygon.Rect(0, 0, 10, 5), ""))
}

func export(t *testing.T, s *model.Session, objects ...*model.Object) string {
	t.Helper()
	var buf bytes.Buffer
	err := Export(&buf, s, objects, ExportOptions{
		Name:   "pcb",
		Author: "test",
		Time:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Logger: zerolog.New(zerolog.NewTestWriter(t)),
	})
	require.NoError(t, err)
	return buf.String()
}

func load(t *testing.T, text string) *Model {
	t.Helper()
	m, err := Import(strings.NewReader(text), ImportOptions{Logger: zerolog.New(zerolog.NewTestWriter(t))})
	require.NoError(t, err)
	return m
}

func normals(o *model.Object) []string {
	var out []string
	for _, f := range o.Faces {
		n := model.SurfacePlacement(f.Surface).Axis.Normalize()
		if f.Reversed {
			n = n.Neg()
		}
		out = append(out, fmt.Sprintf("%.3f,%.3f,%.3f", n.X+0, n.Y+0, n.Z+0))
	}
	slices.Sort(out)
	return out
}

func area(meshes ...*mesh.Mesh) float64 {
	var a float64
	for _, tri := range mesh.ToTriangles(meshes...) {
		a += tri[1].Sub(tri[0]).Cross(tri[2].Sub(tri[0])).Length() / 2
	}
	return a
}

func TestRoundTripBox(t *testing.T) {
	s, box := buildBox(t)
	text := export(t, s, box)
	assert.True(t, strings.HasPrefix(text, "ISO-10303-21;\nHEADER;\n"))
	assert.Contains(t, text, "FILE_NAME('pcb','2026-01-02T03:04:05',('test')")
	assert.Contains(t, text, schema)

	m := load(t, text)
	assert.Equal(t, "pcb", m.Name)
	require.Len(t, m.Objects, 1)
	o := m.Objects[0]
	assert.Equal(t, "board", o.Name)

	v, e, f := o.Counts()
	assert.Equal(t, 8, v)
	assert.Equal(t, 12, e)
	assert.Equal(t, 6, f)
	require.NoError(t, m.Session.CheckClosed(o))
	assert.Equal(t, normals(box), normals(o))

	require.NotNil(t, o.Appearance)
	assert.Equal(t, "soldermask", o.Appearance.Name)
	assert.InDelta(t, 0.5, o.Appearance.G, 1e-12)

	en := tessellate.New(m.Session, tessellate.Options{})
	out, failed := en.Object(o)
	assert.Zero(t, failed)
	assert.InDelta(t, 148, area(out), 1e-6)
}

func TestRoundTripDisc(t *testing.T) {
	s, disc := buildPiece(t, polygon.NewPiece(polygon.Circle(curve.Pt(2, 2), 1), "pad"))
	m := load(t, export(t, s, disc))
	require.Len(t, m.Objects, 1)
	o := m.Objects[0]

	v, e, f := o.Counts()
	assert.Equal(t, 2, v)
	assert.Equal(t, 3, e)
	assert.Equal(t, 3, f)
	require.NoError(t, m.Session.CheckClosed(o))

	kinds := map[string]int{}
	for _, f := range o.Faces {
		kinds[model.SurfaceKind(f.Surface)]++
	}
	assert.Equal(t, map[string]int{"plane": 2, "cylinder": 1}, kinds)

	circles := 0
	for _, e := range o.Edges {
		if _, ok := m.Session.Info(e).Curve.(model.Circle); ok {
			circles++
		}
	}
	assert.Equal(t, 2, circles)
}

func TestFaceStyleOverridesObject(t *testing.T) {
	s, box := buildBox(t)
	red := &model.Appearance{Name: "copper", R: 0.8, G: 0.4, B: 0.1}
	box.Faces[0].Appearance = red

	m := load(t, export(t, s, box))
	o := m.Objects[0]
	styled := 0
	for _, f := range o.Faces {
		if app := o.FaceAppearance(f); app != nil && app.Name == "copper" {
			styled++
			assert.InDelta(t, 0.8, app.R, 1e-12)
		}
	}
	assert.Equal(t, 1, styled)
	assert.Equal(t, "soldermask", o.Appearance.Name)
}

// writeSolid writes o's solid into w with a fresh exporter.
func writeSolid(t *testing.T, w *Writer, s *model.Session, o *model.Object) int {
	t.Helper()
	ex := &exporter{w: w, s: s, log: zerolog.Nop(), colours: map[*model.Appearance]int{}}
	solid, _ := ex.object(o)
	require.NotZero(t, solid)
	return solid
}

func writerText(t *testing.T, w *Writer) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := w.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func TestAssemblyPlacement(t *testing.T) {
	s, box := buildBox(t)
	box.Name = ""
	w := NewWriter(Header{Name: "asm"})
	ctx := w.Context(DefaultUncertainty)

	pdPart, srPart := w.Product("part", ctx, []int{w.Axis2Placement(geom.DefaultPlacement)})
	w.BrepRepresentation("", []int{writeSolid(t, w, s, box)}, ctx, srPart)

	pdAsm, srAsm := w.Product("asm", ctx, []int{w.Axis2Placement(geom.DefaultPlacement)})
	w.Add("NEXT_ASSEMBLY_USAGE_OCCURRENCE", p21.Str("1"), p21.Str("U1"), empty,
		p21.RefTo(pdAsm), p21.RefTo(pdPart), p21.Null)
	to := geom.Placement{Origin: geom.V(100, 0, 0), Axis: geom.ZAxis, RefDir: geom.XAxis}
	w.PlacedRepresentation(srPart, srAsm, geom.DefaultPlacement, to)

	m := load(t, writerText(t, w))
	assert.Equal(t, "asm", m.Name)
	require.Len(t, m.Objects, 1)
	o := m.Objects[0]
	// Unnamed solids take the name of the product owning their shape.
	assert.Equal(t, "part", o.Name)
	for _, v := range o.Vertices {
		assert.GreaterOrEqual(t, v.Pos.X, 100-1e-9)
		assert.LessOrEqual(t, v.Pos.X, 110+1e-9)
	}
	require.NoError(t, m.Session.CheckClosed(o))
}

// TestSharedComponentIsNotClimbed places one part both in a sub-assembly
// and directly in the root. Walking down from the root must reach the
// part twice and the sub-assembly's other part once.
func TestSharedComponentIsNotClimbed(t *testing.T) {
	s, box := buildBox(t)
	box.Name = ""
	w := NewWriter(Header{Name: "top"})
	ctx := w.Context(DefaultUncertainty)
	at := func(x float64) geom.Placement {
		return geom.Placement{Origin: geom.V(x, 0, 0), Axis: geom.ZAxis, RefDir: geom.XAxis}
	}
	product := func(name string, solid bool) (pd, sr int) {
		pd, sr = w.Product(name, ctx, []int{w.Axis2Placement(geom.DefaultPlacement)})
		if solid {
			w.BrepRepresentation("", []int{writeSolid(t, w, s, box)}, ctx, sr)
		}
		return pd, sr
	}
	use := func(parent, child int) {
		w.Add("NEXT_ASSEMBLY_USAGE_OCCURRENCE", p21.Str("1"), p21.Str("U"), empty,
			p21.RefTo(parent), p21.RefTo(child), p21.Null)
	}

	pdPart, srPart := product("part", true)
	pdQ, srQ := product("q", true)
	pdSub, srSub := product("sub", false)
	pdTop, srTop := product("top", false)

	use(pdSub, pdPart)
	w.PlacedRepresentation(srPart, srSub, geom.DefaultPlacement, at(100))
	use(pdSub, pdQ)
	w.PlacedRepresentation(srQ, srSub, geom.DefaultPlacement, at(50))
	use(pdTop, pdSub)
	w.PlacedRepresentation(srSub, srTop, geom.DefaultPlacement, at(1000))
	use(pdTop, pdPart)
	w.PlacedRepresentation(srPart, srTop, geom.DefaultPlacement, at(0))

	m := load(t, writerText(t, w))
	assert.Equal(t, "top", m.Name)
	require.Len(t, m.Objects, 3)
	got := map[string][]float64{}
	for _, o := range m.Objects {
		minX := o.Vertices[0].Pos.X
		for _, v := range o.Vertices {
			minX = min(minX, v.Pos.X)
		}
		got[o.Name] = append(got[o.Name], math.Round(minX))
		require.NoError(t, m.Session.CheckClosed(o))
	}
	slices.Sort(got["part"])
	assert.Equal(t, map[string][]float64{"part": {0, 1100}, "q": {1050}}, got)
}

func TestMappedItemsInstanceTwice(t *testing.T) {
	s, box := buildBox(t)
	w := NewWriter(Header{Name: "panel"})
	ctx := w.Context(DefaultUncertainty)

	origin := w.Axis2Placement(geom.DefaultPlacement)
	part := w.Add("ADVANCED_BREP_SHAPE_REPRESENTATION", p21.Str("part"),
		p21.Refs(writeSolid(t, w, s, box), origin), p21.RefTo(ctx))
	rm := w.Add("REPRESENTATION_MAP", p21.RefTo(origin), p21.RefTo(part))
	var items []int
	for _, z := range []float64{0, 10} {
		at := w.Axis2Placement(geom.Placement{Origin: geom.V(0, 0, z), Axis: geom.ZAxis, RefDir: geom.XAxis})
		items = append(items, w.Add("MAPPED_ITEM", empty, p21.RefTo(rm), p21.RefTo(at)))
	}
	w.Product("panel", ctx, items)

	m := load(t, writerText(t, w))
	require.Len(t, m.Objects, 2)
	for i, o := range m.Objects {
		z := float64(i) * 10
		for _, v := range o.Vertices {
			assert.InDelta(t, z+0.8, v.Pos.Z, 0.8+1e-9)
		}
		require.NoError(t, m.Session.CheckClosed(o))
	}
	assert.NotSame(t, m.Objects[0].Vertices[0], m.Objects[1].Vertices[0])
}

func TestStyleOnRepresentation(t *testing.T) {
	s, box := buildBox(t)
	box.Appearance = nil
	w := NewWriter(Header{})
	ctx := w.Context(DefaultUncertainty)
	_, sr := w.Product("board", ctx, []int{w.Axis2Placement(geom.DefaultPlacement)})
	absr := w.BrepRepresentation("board", []int{writeSolid(t, w, s, box)}, ctx, sr)
	w.StyledItem(w.ColourRGB(&model.Appearance{Name: "fr4", R: 0.3, G: 0.3, B: 0.1}), absr)

	m := load(t, writerText(t, w))
	require.Len(t, m.Objects, 1)
	require.NotNil(t, m.Objects[0].Appearance)
	assert.Equal(t, "fr4", m.Objects[0].Appearance.Name)
}

func TestUnsupportedSurfaceKeepsTopology(t *testing.T) {
	s, box := buildBox(t)
	text := strings.Replace(export(t, s, box), "=PLANE(", "=OFFSET_SURFACE(", 1)

	m := load(t, text)
	o := m.Objects[0]
	var unsupported []*model.Face
	for _, f := range o.Faces {
		if u, ok := f.Surface.(model.Unsupported); ok {
			assert.Equal(t, "OFFSET_SURFACE", u.Entity)
			unsupported = append(unsupported, f)
		}
	}
	require.Len(t, unsupported, 1)
	require.NoError(t, m.Session.CheckClosed(o))

	en := tessellate.New(m.Session, tessellate.Options{})
	_, failed := en.Object(o)
	assert.Equal(t, 1, failed)
	assert.Equal(t, model.TessFailed, unsupported[0].Tess)

	// A failed face is left out of a re-export.
	again := load(t, export(t, m.Session, o))
	_, _, f := again.Objects[0].Counts()
	assert.Equal(t, 5, f)
}

func TestLengthUnits(t *testing.T) {
	s, box := buildBox(t)
	text := strings.Replace(export(t, s, box), "SI_UNIT(.MILLI.,.METRE.)", "SI_UNIT($,.METRE.)", 1)

	m := load(t, text)
	maxX := 0.0
	for _, v := range m.Objects[0].Vertices {
		maxX = max(maxX, v.Pos.X)
	}
	assert.InDelta(t, 10000, maxX, 1e-6)
}

func TestNoRootProduct(t *testing.T) {
	text := "ISO-10303-21;\nHEADER;\nENDSEC;\nDATA;\n#1=CARTESIAN_POINT('',(0.,0.,0.));\nENDSEC;\nEND-ISO-10303-21;\n"
	_, err := Import(strings.NewReader(text), ImportOptions{})
	assert.ErrorIs(t, err, ErrNoRootProduct)
}

func TestParseErrorIsWrapped(t *testing.T) {
	_, err := Import(strings.NewReader("ISO-10303-21;\nHEADER;\nENDSEC;\nDATA;\n#1=A(;\n"), ImportOptions{})
	require.Error(t, err)
	var pe *p21.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 5, pe.Line)
}

func TestWriterDoesNotDeduplicate(t *testing.T) {
	w := NewWriter(Header{})
	a := w.CartesianPoint(geom.V(1, 2, 3))
	b := w.CartesianPoint(geom.V(1, 2, 3))
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, w.Len())
}

// fixture wraps data instances in a file with one product whose shape
// holds the solid #100. #953 is the world placement and #954 the z=0 plane.
func fixture(data string) string {
	return `ISO-10303-21;
HEADER;
FILE_DESCRIPTION((''),'2;1');
FILE_NAME('fixture','2026-01-01T00:00:00',(''),(''),'','','');
FILE_SCHEMA(('AUTOMOTIVE_DESIGN'));
ENDSEC;
DATA;
#900=APPLICATION_CONTEXT('');
#901=PRODUCT_CONTEXT('',#900,'mechanical');
#902=PRODUCT('fixture','fixture','',(#901));
#903=PRODUCT_DEFINITION_FORMATION('','',#902);
#904=PRODUCT_DEFINITION_CONTEXT('part definition',#900,'design');
#905=PRODUCT_DEFINITION('design','',#903,#904);
#906=PRODUCT_DEFINITION_SHAPE('','',#905);
#907=SHAPE_DEFINITION_REPRESENTATION(#906,#908);
#908=ADVANCED_BREP_SHAPE_REPRESENTATION('',(#100),#909);
#909=(GEOMETRIC_REPRESENTATION_CONTEXT(3)GLOBAL_UNIT_ASSIGNED_CONTEXT((#910))REPRESENTATION_CONTEXT('',''));
#910=(LENGTH_UNIT()NAMED_UNIT(*)SI_UNIT(.MILLI.,.METRE.));
#950=CARTESIAN_POINT('',(0.,0.,0.));
#951=DIRECTION('',(0.,0.,1.));
#952=DIRECTION('',(1.,0.,0.));
#953=AXIS2_PLACEMENT_3D('',#950,#951,#952);
#954=PLANE('',#953);
` + data + `ENDSEC;
END-ISO-10303-21;
`
}

// planarSolid is a solid of one face on the z=0 plane bounded by the
// given oriented edges.
func planarSolid(edges string) string {
	return `#100=MANIFOLD_SOLID_BREP('',#101);
#101=CLOSED_SHELL('',(#102));
#102=ADVANCED_FACE('',(#103),#954,.T.);
#103=FACE_OUTER_BOUND('',#104,.T.);
#104=EDGE_LOOP('',(` + edges + `));
`
}

// loadLogged imports text and returns the model with everything logged.
func loadLogged(t *testing.T, text string) (*Model, string) {
	t.Helper()
	var buf bytes.Buffer
	m, err := Import(strings.NewReader(text), ImportOptions{Logger: zerolog.New(&buf)})
	require.NoError(t, err)
	return m, buf.String()
}

func onlyObject(t *testing.T, m *Model) *model.Object {
	t.Helper()
	require.Len(t, m.Objects, 1)
	return m.Objects[0]
}

func curves(s *model.Session, o *model.Object) []model.Curve {
	var out []model.Curve
	for _, e := range o.Edges {
		out = append(out, s.Info(e).Curve)
	}
	return out
}

func TestImportEllipseEdge(t *testing.T) {
	m := load(t, fixture(planarSolid("#5")+`#1=CARTESIAN_POINT('',(3.,0.,0.));
#2=VERTEX_POINT('',#1);
#3=ELLIPSE('',#953,3.,2.);
#4=EDGE_CURVE('',#2,#2,#3,.T.);
#5=ORIENTED_EDGE('',*,*,#4,.T.);
`))
	o := onlyObject(t, m)
	cs := curves(m.Session, o)
	require.Len(t, cs, 1)
	el, ok := cs[0].(model.Ellipse)
	require.True(t, ok, "got %T", cs[0])
	assert.InDelta(t, 3, el.SemiAxis1, 1e-12)
	assert.InDelta(t, 2, el.SemiAxis2, 1e-12)

	en := tessellate.New(m.Session, tessellate.Options{})
	out, failed := en.Object(o)
	assert.Zero(t, failed)
	assert.InEpsilon(t, 6*math.Pi, area(out), 0.01)
}

func TestImportBSplineEdges(t *testing.T) {
	// The spline runs from (0,0,0) to (10,0,0) below the x axis and the line
	// closes the loop along it.
	const frame = `#1=CARTESIAN_POINT('',(0.,0.,0.));
#2=CARTESIAN_POINT('',(10.,0.,0.));
#3=VERTEX_POINT('',#1);
#4=VERTEX_POINT('',#2);
#5=DIRECTION('',(-1.,0.,0.));
#6=VECTOR('',#5,10.);
#7=LINE('',#2,#6);
#8=EDGE_CURVE('',#4,#3,#7,.T.);
#9=ORIENTED_EDGE('',*,*,#8,.T.);
#10=CARTESIAN_POINT('',(5.,-5.,0.));
#11=ORIENTED_EDGE('',*,*,#12,.T.);
#12=EDGE_CURVE('',#3,#4,#13,.T.);
#20=CARTESIAN_POINT('',(0.,0.1,0.));
`
	tests := []struct {
		name    string
		curve   string
		weights []float64
		uniform bool
		warns   bool
	}{
		{
			name:  "simple",
			curve: `B_SPLINE_CURVE_WITH_KNOTS('',2,(#1,#10,#2),.UNSPECIFIED.,.F.,.F.,(3,3),(0.,1.),.UNSPECIFIED.)`,
		},
		{
			name: "rational complex",
			curve: `(BOUNDED_CURVE()B_SPLINE_CURVE(2,(#1,#10,#2),.UNSPECIFIED.,.F.,.F.)` +
				`B_SPLINE_CURVE_WITH_KNOTS((3,3),(0.,1.),.UNSPECIFIED.)CURVE()GEOMETRIC_REPRESENTATION_ITEM()` +
				`RATIONAL_B_SPLINE_CURVE((1.,0.5,1.))REPRESENTATION_ITEM(''))`,
			weights: []float64{1, 0.5, 1},
		},
		{
			name:    "knots disagree with multiplicities",
			curve:   `B_SPLINE_CURVE_WITH_KNOTS('',2,(#1,#10,#2),.UNSPECIFIED.,.F.,.F.,(3,3),(0.,0.5,1.),.UNSPECIFIED.)`,
			uniform: true,
		},
		{
			name:  "first control point off its vertex",
			curve: `B_SPLINE_CURVE_WITH_KNOTS('',2,(#20,#10,#2),.UNSPECIFIED.,.F.,.F.,(3,3),(0.,1.),.UNSPECIFIED.)`,
			warns: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, logged := loadLogged(t, fixture(planarSolid("#11,#9")+frame+"#13="+tt.curve+";\n"))
			o := onlyObject(t, m)
			var bs *model.BSpline
			for _, c := range curves(m.Session, o) {
				if b, ok := c.(model.BSpline); ok {
					bs = &b
				}
			}
			require.NotNil(t, bs, "no b-spline edge")
			assert.Equal(t, 2, bs.Degree)
			require.Len(t, bs.ControlPoints, 3)
			assert.InDelta(t, -5, bs.ControlPoints[1].Y, 1e-12)
			assert.Equal(t, tt.weights, bs.Weights)
			assert.Equal(t, tt.uniform, bs.UniformKnots)
			if tt.uniform {
				assert.Equal(t, []float64{0, 0.2, 0.4, 0.6, 0.8, 1}, bs.Knots)
				assert.Equal(t, []int{1, 1, 1, 1, 1, 1}, bs.Mults)
			} else {
				assert.Equal(t, []float64{0, 1}, bs.Knots)
				assert.Equal(t, []int{3, 3}, bs.Mults)
			}
			assert.Equal(t, tt.warns, strings.Contains(logged, "b-spline end points do not match edge vertices"))
		})
	}
}

func TestImportVoidShellIsFlipped(t *testing.T) {
	m := load(t, fixture(`#100=BREP_WITH_VOIDS('',#101,(#110));
#101=CLOSED_SHELL('',(#102));
#102=ADVANCED_FACE('',(#103),#954,.T.);
#103=FACE_OUTER_BOUND('',#104,.T.);
#104=EDGE_LOOP('',(#5));
#1=CARTESIAN_POINT('',(5.,0.,0.));
#2=VERTEX_POINT('',#1);
#3=CIRCLE('',#953,5.);
#4=EDGE_CURVE('',#2,#2,#3,.T.);
#5=ORIENTED_EDGE('',*,*,#4,.T.);
#110=ORIENTED_CLOSED_SHELL('',*,#111,.F.);
#111=CLOSED_SHELL('',(#112));
#112=ADVANCED_FACE('',(#113),#954,.T.);
#113=FACE_OUTER_BOUND('',#114,.T.);
#114=EDGE_LOOP('',(#15));
#11=CARTESIAN_POINT('',(1.,0.,0.));
#12=VERTEX_POINT('',#11);
#13=CIRCLE('',#953,1.);
#14=EDGE_CURVE('',#12,#12,#13,.T.);
#15=ORIENTED_EDGE('',*,*,#14,.T.);
`))
	o := onlyObject(t, m)
	require.Len(t, o.Faces, 2)
	require.Len(t, o.Edges, 2)
	outer, void := o.Faces[0], o.Faces[1]
	assert.False(t, outer.Reversed)
	assert.True(t, void.Reversed)
	assert.Equal(t, []string{"0.000,0.000,-1.000", "0.000,0.000,1.000"}, normals(o))

	// The void's loop runs against its edge.
	assert.Equal(t, o.Edges[0], m.Session.LoopEdges(outer.Contours[0])[0])
	assert.Equal(t, o.Edges[1].Sym(), m.Session.LoopEdges(void.Contours[0])[0])

	en := tessellate.New(m.Session, tessellate.Options{})
	msh := en.EnsureTristrip(void)
	require.NotNil(t, msh)
	assert.InEpsilon(t, math.Pi, area(msh), 0.01)
	for i := 0; i < msh.VertexCount(); i++ {
		assert.InDelta(t, -1, msh.At(i).NZ, 1e-9)
	}
}

func TestImportUnwrapsSurfaceAndSeamCurves(t *testing.T) {
	// A half disc: a seam line along the x axis and a surface curve arc
	// over +y.
	m := load(t, fixture(planarSolid("#9,#13")+`#1=CARTESIAN_POINT('',(-1.,0.,0.));
#2=CARTESIAN_POINT('',(1.,0.,0.));
#3=VERTEX_POINT('',#1);
#4=VERTEX_POINT('',#2);
#5=VECTOR('',#952,2.);
#6=LINE('',#1,#5);
#7=SEAM_CURVE('',#6,(),.CURVE_3D.);
#8=EDGE_CURVE('',#3,#4,#7,.T.);
#9=ORIENTED_EDGE('',*,*,#8,.T.);
#10=CIRCLE('',#953,1.);
#11=SURFACE_CURVE('',#10,(),.CURVE_3D.);
#12=EDGE_CURVE('',#4,#3,#11,.T.);
#13=ORIENTED_EDGE('',*,*,#12,.T.);
`))
	o := onlyObject(t, m)
	cs := curves(m.Session, o)
	require.Len(t, cs, 2)
	assert.IsType(t, model.Line{}, cs[0])
	assert.IsType(t, model.Circle{}, cs[1])
	assert.InDelta(t, 1, cs[1].(model.Circle).Radius, 1e-12)

	en := tessellate.New(m.Session, tessellate.Options{})
	out, failed := en.Object(o)
	assert.Zero(t, failed)
	assert.InEpsilon(t, math.Pi/2, area(out), 0.01)
}

// styledDisc is a unit disc solid whose face is #102, followed by the
// given style instances.
func styledDisc(styles string) string {
	return fixture(planarSolid("#5") + `#1=CARTESIAN_POINT('',(1.,0.,0.));
#2=VERTEX_POINT('',#1);
#3=CIRCLE('',#953,1.);
#4=EDGE_CURVE('',#2,#2,#3,.T.);
#5=ORIENTED_EDGE('',*,*,#4,.T.);
#200=COLOUR_RGB('red',1.,0.,0.);
#201=COLOUR_RGB('blue',0.,0.,1.);
#202=DRAUGHTING_PRE_DEFINED_COLOUR('green');
` + styles)
}

// surfaceStyle is a presentation style assignment filling with colour.
func surfaceStyle(id int, colour int) string {
	return fmt.Sprintf(`#%d=FILL_AREA_STYLE_COLOUR('',#%d);
#%d=FILL_AREA_STYLE('',(#%d));
#%d=SURFACE_STYLE_FILL_AREA(#%d);
#%d=SURFACE_SIDE_STYLE('',(#%d));
#%d=SURFACE_STYLE_USAGE(.BOTH.,#%d);
#%d=PRESENTATION_STYLE_ASSIGNMENT((#%d));
`, id, colour, id+1, id, id+2, id+1, id+3, id+2, id+4, id+3, id+5, id+4)
}

func TestOverridingStyleWins(t *testing.T) {
	// The over-riding item comes first in the file.
	m := load(t, styledDisc(surfaceStyle(300, 201)+surfaceStyle(310, 200)+
		"#320=OVER_RIDING_STYLED_ITEM('',(#305),#102,#321);\n"+
		"#321=STYLED_ITEM('',(#315),#102);\n"))
	f := onlyObject(t, m).Faces[0]
	require.NotNil(t, f.Appearance)
	assert.Equal(t, "blue", f.Appearance.Name)
}

func TestSurfaceColourBeatsCurveColour(t *testing.T) {
	m := load(t, styledDisc(surfaceStyle(300, 202)+
		"#310=CURVE_STYLE('',$,POSITIVE_LENGTH_MEASURE(0.1),#200);\n"+
		"#311=PRESENTATION_STYLE_ASSIGNMENT((#310));\n"+
		"#320=STYLED_ITEM('',(#311,#305),#102);\n"))
	f := onlyObject(t, m).Faces[0]
	require.NotNil(t, f.Appearance)
	assert.Equal(t, "green", f.Appearance.Name)
	assert.InDelta(t, 1, f.Appearance.G, 1e-12)

	// Without a surface style the curve colour is still used.
	m = load(t, styledDisc("#310=CURVE_STYLE('',$,POSITIVE_LENGTH_MEASURE(0.1),#200);\n"+
		"#311=PRESENTATION_STYLE_ASSIGNMENT((#310));\n"+
		"#320=STYLED_ITEM('',(#311),#102);\n"))
	f = onlyObject(t, m).Faces[0]
	require.NotNil(t, f.Appearance)
	assert.Equal(t, "red", f.Appearance.Name)
}
