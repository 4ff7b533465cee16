package step

import (
	"github.com/chazu/pcbsolid/pkg/geom"
	"github.com/chazu/pcbsolid/pkg/model"
	"github.com/chazu/pcbsolid/pkg/step/p21"
)

// solidBuilder turns one placed instance of a solid into an object. Vertex
// and edge tables are keyed by entity id and are private to the instance.
type solidBuilder struct {
	im  *importer
	t   geom.Transform
	u   units
	obj *model.Object

	vertices map[int]*model.Vertex
	edges    map[int]model.EdgeRef

	// links are the pending Onext constraints: Onext(from) must be to.
	links []link
	used  map[model.EdgeRef]bool
	loops []pendingLoop
}

type link struct{ from, to model.EdgeRef }

type pendingLoop struct {
	face  *model.Face
	first model.EdgeRef
}

func (im *importer) newSolidBuilder(t geom.Transform, u units, name string) *solidBuilder {
	return &solidBuilder{
		im:       im,
		t:        t,
		u:        u,
		obj:      &model.Object{Name: name},
		vertices: map[int]*model.Vertex{},
		edges:    map[int]model.EdgeRef{},
		used:     map[model.EdgeRef]bool{},
	}
}

// shell reads the faces of a CLOSED_SHELL or OPEN_SHELL. flip reverses
// every face, for void shells listed with orientation .F..
func (b *solidBuilder) shell(sh *p21.Entity, flip bool, app *model.Appearance) {
	if sh == nil {
		return
	}
	if sh.Type() == "ORIENTED_CLOSED_SHELL" {
		// ORIENTED_CLOSED_SHELL(name, *, closed_shell_element, orientation)
		o, ok := sh.Arg(3).Bool()
		if ok && !o {
			flip = !flip
		}
		b.shell(b.im.f.Deref(sh.Arg(2)), flip, app)
		return
	}
	if own := b.im.styleOf(sh.ID); own != nil {
		app = own
	}
	faces, _ := sh.Arg(1).Items()
	for _, ref := range faces {
		b.face(b.im.f.Deref(ref), flip, app)
	}
}

// face reads an ADVANCED_FACE or FACE_SURFACE.
func (b *solidBuilder) face(fe *p21.Entity, flip bool, shellApp *model.Appearance) {
	if fe == nil {
		return
	}
	im := b.im
	surf := im.surface(im.f.Deref(fe.Arg(2)), b.u)
	if u, ok := surf.(model.Unsupported); ok {
		im.log.Warn().Int("face", fe.ID).Str("surface", u.Entity).Msg("unsupported surface, face will not be tessellated")
	} else {
		surf = model.TransformSurface(surf, b.t)
	}
	same, ok := fe.Arg(3).Bool()
	if !ok {
		same = true
	}
	f := im.s.NewFace(surf, same == flip)
	f.Appearance = im.styleOf(fe.ID)
	if f.Appearance == nil && shellApp != b.obj.Appearance {
		f.Appearance = shellApp
	}

	bounds, _ := fe.Arg(1).Items()
	var outer, inner []model.EdgeRef
	for _, ref := range bounds {
		bound := im.f.Deref(ref)
		if bound == nil {
			continue
		}
		// FACE_BOUND(name, loop, orientation)
		orient, ok := bound.Arg(2).Bool()
		if !ok {
			orient = true
		}
		loop := im.f.Deref(bound.Arg(1))
		if loop == nil {
			continue
		}
		if loop.Type() == "VERTEX_LOOP" {
			continue
		}
		if loop.Type() != "EDGE_LOOP" {
			im.log.Warn().Int("face", fe.ID).Str("loop", loop.Type()).Msg("unsupported face bound, skipped")
			continue
		}
		first, ok := b.edgeLoop(fe.ID, loop, orient != flip)
		if !ok {
			continue
		}
		if bound.Type() == "FACE_OUTER_BOUND" {
			outer = append(outer, first)
		} else {
			inner = append(inner, first)
		}
	}
	for _, first := range append(outer, inner...) {
		b.loops = append(b.loops, pendingLoop{face: f, first: first})
	}
	b.obj.Faces = append(b.obj.Faces, f)
}

// edgeLoop records the directed edges of an EDGE_LOOP and the Onext
// constraints that chain them, and returns the first directed edge.
func (b *solidBuilder) edgeLoop(face int, loop *p21.Entity, forward bool) (model.EdgeRef, bool) {
	im := b.im
	list, _ := loop.Arg(1).Items()
	ds := make([]model.EdgeRef, 0, len(list))
	for _, ref := range list {
		oe := im.f.Deref(ref)
		if oe == nil || oe.Type() != "ORIENTED_EDGE" {
			im.log.Warn().Int("face", face).Msg("edge loop entry is not an oriented edge")
			return model.EdgeRef{}, false
		}
		// ORIENTED_EDGE(name, *, *, edge_element, orientation)
		e, ok := b.edge(im.f.Deref(oe.Arg(3)))
		if !ok {
			return model.EdgeRef{}, false
		}
		if o, _ := oe.Arg(4).Bool(); !o {
			e = e.Sym()
		}
		ds = append(ds, e)
	}
	if len(ds) == 0 {
		return model.EdgeRef{}, false
	}
	if !forward {
		rev := make([]model.EdgeRef, len(ds))
		for i, d := range ds {
			rev[len(ds)-1-i] = d.Sym()
		}
		ds = rev
	}

	a := im.s.Arena
	for i, d := range ds {
		if b.used[d] {
			im.log.Warn().Int("face", face).Stringer("edge", d).Msg("half-edge used twice, loop skipped")
			return model.EdgeRef{}, false
		}
		next := ds[(i+1)%len(ds)]
		if a.Dest(d) != a.Org(next) {
			im.log.Warn().Int("face", face).Stringer("edge", d).Msg("edge loop is not connected, loop skipped")
			return model.EdgeRef{}, false
		}
	}
	for i, d := range ds {
		b.used[d] = true
		b.links = append(b.links, link{from: ds[(i+1)%len(ds)], to: d.Sym()})
	}
	return ds[0], true
}

// edge returns the directed edge for an EDGE_CURVE, creating it on first
// use. The primal direction runs from edge_start to edge_end.
func (b *solidBuilder) edge(ec *p21.Entity) (model.EdgeRef, bool) {
	im := b.im
	if ec == nil || ec.Type() != "EDGE_CURVE" {
		im.log.Warn().Msg("oriented edge without an edge curve")
		return model.EdgeRef{}, false
	}
	if e, ok := b.edges[ec.ID]; ok {
		return e, true
	}
	// EDGE_CURVE(name, edge_start, edge_end, edge_geometry, same_sense)
	v1 := b.vertex(im.f.Deref(ec.Arg(1)))
	v2 := b.vertex(im.f.Deref(ec.Arg(2)))
	if v1 == nil || v2 == nil {
		im.log.Warn().Int("entity", ec.ID).Msg("edge curve without vertex points")
		return model.EdgeRef{}, false
	}
	c := im.curve(im.f.Deref(ec.Arg(3)), b.u, 0)
	c = model.TransformCurve(c, b.t)
	info := model.NewEdgeInfo(c)
	if s, ok := ec.Arg(4).Bool(); ok {
		info.SameSense = s
	}
	if bs, ok := c.(model.BSpline); ok {
		b.checkEnds(ec.ID, bs, v1, v2, info.SameSense)
	}
	e := im.s.NewEdge(v1, v2, info)
	b.edges[ec.ID] = e
	b.obj.Edges = append(b.obj.Edges, e)
	return e, true
}

func (b *solidBuilder) checkEnds(id int, c model.BSpline, v1, v2 *model.Vertex, same bool) {
	first, last := c.ControlPoints[0], c.ControlPoints[len(c.ControlPoints)-1]
	if !same {
		first, last = last, first
	}
	if !geom.Near(first, v1.Pos, bsplineEndTolerance) || !geom.Near(last, v2.Pos, bsplineEndTolerance) {
		b.im.log.Warn().Int("entity", id).Msg("b-spline end points do not match edge vertices")
	}
}

func (b *solidBuilder) vertex(vp *p21.Entity) *model.Vertex {
	if vp == nil {
		return nil
	}
	if v, ok := b.vertices[vp.ID]; ok {
		return v
	}
	p, ok := b.im.point(vp, b.u)
	if !ok {
		return nil
	}
	v := b.im.s.NewVertex(b.t.Point(p))
	b.vertices[vp.ID] = v
	b.obj.Vertices = append(b.obj.Vertices, v)
	return v
}

// finish splices every vertex ring and attaches the contours.
func (b *solidBuilder) finish() *model.Object {
	a := b.im.s.Arena
	for _, l := range b.links {
		if a.Onext(l.from) != l.to {
			a.Splice(l.from, a.Oprev(l.to))
		}
	}
	for _, pl := range b.loops {
		b.im.s.AddContour(pl.face, pl.first)
	}
	return b.obj
}
