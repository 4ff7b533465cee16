package extrude

import (
	"fmt"

	"github.com/chazu/pcbsolid/pkg/geom"
	"github.com/chazu/pcbsolid/pkg/model"
	"github.com/chazu/pcbsolid/pkg/polygon"
)

// pieceTopo holds the arrays of one extruded piece, indexed by global
// vertex number across all rings.
type pieceTopo struct {
	rings  []*ring
	owner  []*ring // ring of each global vertex
	bv, tv []*model.Vertex
	b, t   []model.EdgeRef
	s      []model.EdgeRef
	side   []*model.Face
	invert bool
}

func (b *Builder) buildPiece(piece *polygon.Piece, zBottom, zTop float64,
	appearance, topBot *model.Appearance, invert bool, name string) (*model.Object, Side, error) {
	if piece == nil || piece.Outer == nil {
		return nil, Side{}, ErrEmptyPiece
	}

	p := &pieceTopo{invert: invert}
	for i, c := range piece.Contours() {
		r, err := b.normalize(c, i > 0)
		if err != nil {
			if i == 0 {
				return nil, Side{}, err
			}
			b.Log.Warn().Err(err).Str("piece", piece.Name).Int("contour", i).Msg("dropping hole")
			continue
		}
		r.start = len(p.owner)
		for k := 0; k < r.n(); k++ {
			p.owner = append(p.owner, r)
		}
		p.rings = append(p.rings, r)
	}

	s := b.Session
	a := s.Arena
	n := len(p.owner)
	p.bv = make([]*model.Vertex, n)
	p.tv = make([]*model.Vertex, n)
	for k, r := range p.owner {
		xy := r.point(k)
		p.bv[k] = s.NewVertex(geom.V(xy.X, xy.Y, zBottom))
		p.tv[k] = s.NewVertex(geom.V(xy.X, xy.Y, zTop))
	}

	// Edges.
	p.b = make([]model.EdgeRef, n)
	p.t = make([]model.EdgeRef, n)
	p.s = make([]model.EdgeRef, n)
	for k, r := range p.owner {
		nx := r.next(k)
		p.b[k] = s.NewEdge(p.bv[k], p.bv[nx], ringCurve(r, p.bv[k].Pos, p.bv[nx].Pos, zBottom))
		p.t[k] = s.NewEdge(p.tv[k], p.tv[nx], ringCurve(r, p.tv[k].Pos, p.tv[nx].Pos, zTop))
		side := model.NewEdgeInfo(model.Line{Origin: p.bv[k].Pos, Dir: geom.ZAxis})
		side.Stitch = r.round
		p.s[k] = s.NewEdge(p.bv[k], p.tv[k], side)
	}

	// Origin rings.
	for k, r := range p.owner {
		pv := r.prev(k)
		if !invert {
			a.Splice(p.b[k], p.s[k])
			a.Splice(p.s[k], p.b[pv].Sym())
			a.Splice(p.t[k], p.t[pv].Sym())
			a.Splice(p.t[pv].Sym(), p.s[k].Sym())
		} else {
			a.Splice(p.b[k], p.b[pv].Sym())
			a.Splice(p.b[pv].Sym(), p.s[k])
			a.Splice(p.t[k], p.s[k].Sym())
			a.Splice(p.s[k].Sym(), p.t[pv].Sym())
		}
	}

	// Faces.
	obj := &model.Object{Name: model.MergeNames(name, piece.Name), Appearance: appearance}
	bottom := s.NewFace(capPlane(zBottom, !invert), false)
	top := s.NewFace(capPlane(zTop, invert), false)
	bottom.Appearance = topBot
	top.Appearance = topBot

	p.side = make([]*model.Face, n)
	for k, r := range p.owner {
		f := s.NewFace(sideSurface(r, p.bv[k].Pos, p.bv[r.next(k)].Pos, invert))
		f.Appearance = appearance
		if !invert {
			s.AddContour(f, p.s[k].Sym())
		} else {
			s.AddContour(f, p.s[k])
		}
		p.side[k] = f
	}
	for _, r := range p.rings {
		if !invert {
			s.AddContour(bottom, p.b[r.start].Sym())
			s.AddContour(top, p.t[r.start])
		} else {
			s.AddContour(bottom, p.b[r.start])
			s.AddContour(top, p.t[r.start].Sym())
		}
	}
	obj.Faces = append(obj.Faces, p.side...)
	obj.Faces = append(obj.Faces, bottom, top)
	obj.Vertices = append(append(obj.Vertices, p.bv...), p.tv...)
	for k := range p.owner {
		obj.Edges = append(obj.Edges, p.b[k], p.t[k], p.s[k])
	}

	if b.Verify {
		if err := p.verify(a); err != nil {
			b.Log.Error().Err(err).Str("piece", piece.Name).Msg("extrusion topology check failed")
			return nil, Side{}, fmt.Errorf("%s: %w", obj.Name, err)
		}
	}
	return obj, Side{Object: obj, Bottom: bottom, Top: top}, nil
}

// ringCurve returns the geometry of a bottom or top ring edge from p to q.
func ringCurve(r *ring, p, q geom.Vec, z float64) *model.EdgeInfo {
	if !r.round {
		return model.NewEdgeInfo(model.Line{Origin: p, Dir: q.Sub(p).Normalize()})
	}
	// Outer circles run counterclockwise about +z, holes clockwise.
	axis := geom.ZAxis
	if r.hole {
		axis = geom.ZAxis.Neg()
	}
	return model.NewEdgeInfo(model.Circle{
		Placement: geom.Placement{
			Origin: geom.V(r.center.X, r.center.Y, z),
			Axis:   axis,
			RefDir: geom.XAxis,
		},
		Radius: r.radius,
	})
}

// capPlane returns the plane of a bottom or top face. down selects the
// -z normal.
func capPlane(z float64, down bool) model.Surface {
	axis := geom.ZAxis
	if down {
		axis = axis.Neg()
	}
	return model.Plane{Placement: geom.Placement{Origin: geom.V(0, 0, z), Axis: axis, RefDir: geom.XAxis}}
}

// sideSurface returns the surface and orientation of the side face running
// from bottom vertex p to q.
func sideSurface(r *ring, p, q geom.Vec, invert bool) (model.Surface, bool) {
	if r.round {
		cyl := model.Cylinder{
			Placement: geom.Placement{
				Origin: geom.V(r.center.X, r.center.Y, p.Z),
				Axis:   geom.ZAxis,
				RefDir: geom.XAxis,
			},
			Radius: r.radius,
		}
		// The natural cylinder normal points away from the axis, which is
		// outward for an outer contour.
		return cyl, r.hole != invert
	}
	d := q.Sub(p).Normalize()
	normal := geom.V(d.Y, -d.X, 0)
	if invert {
		normal = normal.Neg()
	}
	return model.Plane{Placement: geom.Placement{Origin: p, Axis: normal, RefDir: d}}, false
}
