// Package extrude turns 2D polygon pieces into closed 3D solids.
//
// Every piece (outer contour plus holes) becomes one model.Object: a bottom
// face, a top face and one side face per contour edge. A contour with N
// vertices contributes 2N vertices and 3N edges: the bottom ring edge b,
// the top ring edge t and the vertical side edge s at each vertex.
//
// Working in model space (Y up) with outer contours counterclockwise and
// holes clockwise, material lies to the left of every ring edge. The
// loops, seen from outside the solid, are
//
//	side i:  b[i], s[i+1], Sym t[i], Sym s[i]
//	bottom:  Sym b[...] (reverse contour order)
//	top:     t[...]
//
// and the origin rings are b[i] → s[i] → Sym b[i-1] at bottom vertices and
// t[i] → Sym t[i-1] → Sym s[i] at top vertices. An inverted extrusion (a
// hole that removes material) uses the mirrored rings, which reverses every
// loop and so turns every face normal inwards.
package extrude

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"honnef.co/go/curve"

	"github.com/chazu/pcbsolid/pkg/geom"
	"github.com/chazu/pcbsolid/pkg/model"
	"github.com/chazu/pcbsolid/pkg/polygon"
)

var (
	// ErrEmptyPiece is reported for pieces without a usable outer contour.
	ErrEmptyPiece = errors.New("extrude: empty piece")

	// ErrTopology is reported by Verify when the splice pattern is wrong.
	ErrTopology = errors.New("extrude: inconsistent topology")
)

// Side records what a polygon piece was turned into.
type Side struct {
	Object *model.Object
	Bottom *model.Face
	Top    *model.Face
}

// Options configures a Builder.
type Options struct {
	// Frame maps board coordinates (Y down) into model space.
	Frame geom.BoardFrame

	// Verify checks the splice pattern of every built piece.
	Verify bool

	Logger zerolog.Logger
}

// Builder extrudes polygon sets into objects of one session.
type Builder struct {
	Session *model.Session
	Frame   geom.BoardFrame
	Verify  bool
	Log     zerolog.Logger

	// Sides maps every extruded piece to its object and cap faces.
	Sides map[*polygon.Piece]Side
}

// NewBuilder creates a builder. With a zero Options value board y maps to
// -y and nothing is logged.
func NewBuilder(s *model.Session, opts Options) *Builder {
	return &Builder{
		Session: s,
		Frame:   opts.Frame,
		Verify:  opts.Verify,
		Log:     opts.Logger,
		Sides:   make(map[*polygon.Piece]Side),
	}
}

// Result lists the objects produced by one BuildSolidFromContours call.
type Result struct {
	Objects []*model.Object
	Skipped int
}

// BuildSolidFromContours extrudes every piece of set between zBottom and
// zTop. Side faces get appearance, top and bottom faces get topBot (or
// appearance when topBot is nil). With invert set the solids are built
// inside-out, as the walls of a hole.
//
// Pieces that cannot be built are logged and skipped; the error return is
// reserved for invalid arguments and topology verification failures.
func (b *Builder) BuildSolidFromContours(set *polygon.Set, zBottom, zTop float64,
	appearance, topBot *model.Appearance, invert bool, name string) (*Result, error) {
	if !(zTop > zBottom) {
		return nil, fmt.Errorf("extrude: %s: zTop %g must exceed zBottom %g", name, zTop, zBottom)
	}
	if topBot == nil {
		topBot = appearance
	}
	res := &Result{}
	if set.Empty() {
		return res, nil
	}
	for _, piece := range set.Pieces {
		obj, side, err := b.buildPiece(piece, zBottom, zTop, appearance, topBot, invert, name)
		if errors.Is(err, ErrTopology) {
			return nil, err
		}
		if err != nil {
			b.Log.Warn().Err(err).Str("object", name).Str("piece", piece.Name).Msg("skipping piece")
			res.Skipped++
			continue
		}
		b.Sides[piece] = side
		res.Objects = append(res.Objects, obj)
	}
	return res, nil
}

// ring is one contour of a piece, normalized to model space.
type ring struct {
	pts    []curve.Point // model-space XY, material on the left
	round  bool
	center curve.Point
	radius float64
	hole   bool
	start  int // index of the ring's first vertex in the piece arrays
}

func (r *ring) n() int {
	if r.round {
		return 1
	}
	return len(r.pts)
}

func (r *ring) next(k int) int { return r.start + (k-r.start+1)%r.n() }
func (r *ring) prev(k int) int { return r.start + (k-r.start+r.n()-1)%r.n() }

// point returns the XY position of the ring's k-th vertex (global index).
func (r *ring) point(k int) curve.Point {
	if r.round {
		return curve.Pt(r.center.X+r.radius, r.center.Y)
	}
	return r.pts[k-r.start]
}

// normalize maps c into model space and orients it: outer contours
// counterclockwise, holes clockwise.
func (b *Builder) normalize(c *polygon.Contour, hole bool) (*ring, error) {
	if c == nil {
		return nil, ErrEmptyPiece
	}
	if c.Round {
		if c.Radius <= 0 {
			return nil, fmt.Errorf("%w: round contour with radius %g", ErrEmptyPiece, c.Radius)
		}
		m := b.Frame.Point(c.Center.X, c.Center.Y, 0)
		return &ring{round: true, center: curve.Pt(m.X, m.Y), radius: c.Radius, hole: hole}, nil
	}

	pts := make([]curve.Point, 0, len(c.Points))
	for i, p := range c.Points {
		m := b.Frame.Point(p.X, p.Y, 0)
		q := curve.Pt(m.X, m.Y)
		if i > 0 && q.Distance(pts[len(pts)-1]) < geom.Eps {
			continue
		}
		pts = append(pts, q)
	}
	if len(pts) > 1 && pts[0].Distance(pts[len(pts)-1]) < geom.Eps {
		pts = pts[:len(pts)-1]
	}
	if len(pts) < 3 {
		return nil, fmt.Errorf("%w: contour with %d distinct points", ErrEmptyPiece, len(pts))
	}
	r := &ring{pts: pts, hole: hole}
	area := polygon.Poly(pts...).SignedArea()
	if area == 0 {
		return nil, fmt.Errorf("%w: contour has zero area", ErrEmptyPiece)
	}
	if (area > 0) == hole {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}
	return r, nil
}
