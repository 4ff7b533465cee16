package model

import (
	"testing"

	"github.com/chazu/pcbsolid/pkg/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tetra builds a closed tetrahedron: 4 vertices, 6 edges, 4 triangular faces.
func tetra(s *Session) *Object {
	p := []geom.Vec{geom.V(0, 0, 0), geom.V(1, 0, 0), geom.V(0, 1, 0), geom.V(0, 0, 1)}
	v := make([]*Vertex, 4)
	for i := range p {
		v[i] = s.NewVertex(p[i])
	}
	line := func(a, b int) EdgeRef {
		return s.NewEdge(v[a], v[b], NewEdgeInfo(Line{Origin: p[a], Dir: p[b].Sub(p[a]).Normalize()}))
	}
	e01, e12, e20 := line(0, 1), line(1, 2), line(2, 0)
	e03, e13, e23 := line(0, 3), line(1, 3), line(2, 3)

	a := s.Arena
	// Origin rings, counterclockwise seen from outside.
	a.Splice(e01, e03)
	a.Splice(e03, e20.Sym())
	a.Splice(e01.Sym(), e12)
	a.Splice(e12, e13)
	a.Splice(e20, e23)
	a.Splice(e23, e12.Sym())
	a.Splice(e03.Sym(), e13.Sym())
	a.Splice(e13.Sym(), e23.Sym())

	o := &Object{Name: "tetra", Vertices: v, Edges: []EdgeRef{e01, e12, e20, e03, e13, e23}}
	for _, first := range []EdgeRef{e01.Sym(), e01, e12, e20} {
		f := s.NewFace(Plane{Placement: geom.DefaultPlacement}, false)
		s.AddContour(f, first)
		o.Faces = append(o.Faces, f)
	}
	return o
}

func TestSessionCounters(t *testing.T) {
	s := NewSession()
	assert.Equal(t, 1, s.NewVertex(geom.V(0, 0, 0)).ID)
	assert.Equal(t, 2, s.NewVertex(geom.V(0, 0, 0)).ID)
	assert.Equal(t, 1, s.NewFace(Plane{}, false).Index)

	other := NewSession()
	assert.Equal(t, 1, other.NewVertex(geom.V(0, 0, 0)).ID, "sessions do not share counters")
}

func TestTetraIsClosed(t *testing.T) {
	s := NewSession()
	o := tetra(s)
	require.NoError(t, s.CheckClosed(o))

	nv, ne, nf := o.Counts()
	assert.Equal(t, 4, nv)
	assert.Equal(t, 6, ne)
	assert.Equal(t, 4, nf)
	for _, f := range o.Faces {
		assert.Len(t, s.LoopEdges(f.Contours[0]), 3, "%v", f)
	}
}

func TestCheckClosedDetectsOpenShell(t *testing.T) {
	s := NewSession()
	o := tetra(s)
	o.RemoveFace(o.Faces[0])
	assert.ErrorIs(t, s.CheckClosed(o), ErrOpenShell)
}

func TestFaceOf(t *testing.T) {
	s := NewSession()
	o := tetra(s)
	e := o.Faces[2].Contours[0].FirstEdge
	assert.Same(t, o.Faces[2], s.FaceOf(e))
	assert.Nil(t, s.FaceOf(s.Arena.MakeEdge()))
}

func TestAbsorb(t *testing.T) {
	s := NewSession()
	a := tetra(s)
	b := tetra(s)
	b.Name = "via,tetra"
	red := &Appearance{Name: "red", R: 1}
	b.Appearance = red

	a.Absorb(b)
	assert.Len(t, a.Faces, 8)
	assert.Len(t, a.Edges, 12)
	assert.Equal(t, "tetra,via", a.Name)
	assert.Same(t, red, a.Appearance)
	assert.Empty(t, b.Faces)
	assert.Same(t, a, b.Resolve())
	require.NoError(t, s.CheckClosed(a))

	a.Absorb(a)
	assert.Len(t, a.Faces, 8, "self absorb is a no-op")
}

func TestFaceAppearanceFallback(t *testing.T) {
	obj := &Appearance{Name: "obj"}
	own := &Appearance{Name: "own"}
	o := &Object{Appearance: obj}
	assert.Same(t, obj, o.FaceAppearance(&Face{}))
	assert.Same(t, own, o.FaceAppearance(&Face{Appearance: own}))
}

func TestDestroyObject(t *testing.T) {
	s := NewSession()
	o := tetra(s)
	s.DestroyObject(o)
	assert.Equal(t, 0, s.Arena.Len())
	assert.Empty(t, o.Edges)
}

func TestMergeNames(t *testing.T) {
	tests := []struct{ a, b, want string }{
		{"", "", ""},
		{"GND", "", "GND"},
		{"GND", "GND", "GND"},
		{"GND, VCC", "VCC,SIG", "GND,VCC,SIG"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MergeNames(tt.a, tt.b))
	}
}

func TestTransformCurveAndSurface(t *testing.T) {
	tr := geom.Translation(geom.V(0, 0, 5))
	c := TransformCurve(Circle{Placement: geom.DefaultPlacement, Radius: 2}, tr).(Circle)
	assert.Equal(t, 5.0, c.Placement.Origin.Z)
	assert.Equal(t, 2.0, c.Radius)

	cyl := TransformSurface(Cylinder{Placement: geom.DefaultPlacement, Radius: 1}, tr).(Cylinder)
	assert.Equal(t, 5.0, cyl.Placement.Origin.Z)
	assert.Equal(t, "cylinder", SurfaceKind(cyl))
	assert.Equal(t, "placeholder", CurveKind(TransformCurve(Placeholder{Entity: "X"}, tr)))
}

func TestEdgeInfoCache(t *testing.T) {
	ei := NewEdgeInfo(Line{})
	_, ok := ei.Linearized()
	assert.False(t, ok)
	ei.SetLinearized([]geom.Vec{geom.V(0, 0, 0), geom.V(1, 0, 0)})
	pts, ok := ei.Linearized()
	assert.True(t, ok)
	assert.Len(t, pts, 2)
	ei.Invalidate()
	_, ok = ei.Linearized()
	assert.False(t, ok)
}
