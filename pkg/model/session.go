package model

import (
	"errors"
	"fmt"

	"github.com/chazu/pcbsolid/pkg/geom"
)

// Session owns the edge arena and the counters that number vertices and
// faces. Entities from different sessions must not be mixed. A new session
// starts every counter afresh.
type Session struct {
	Arena *Arena

	nextVertex int
	nextFace   int
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{Arena: newArena()}
}

// NewVertex allocates a vertex at p.
func (s *Session) NewVertex(p geom.Vec) *Vertex {
	s.nextVertex++
	return &Vertex{Pos: p, ID: s.nextVertex}
}

// NewFace allocates a face on surf.
func (s *Session) NewFace(surf Surface, reversed bool) *Face {
	s.nextFace++
	return &Face{Surface: surf, Reversed: reversed, Index: s.nextFace}
}

// NewEdge allocates an isolated edge from org to dst carrying info.
func (s *Session) NewEdge(org, dst *Vertex, info *EdgeInfo) EdgeRef {
	e := s.Arena.MakeEdge()
	s.Arena.SetOrg(e, org)
	s.Arena.SetDest(e, dst)
	s.Arena.SetGeom(e, info)
	return e
}

// Info returns the geometry of the undirected edge e.
func (s *Session) Info(e EdgeRef) *EdgeInfo { return s.Arena.Geom(e) }

// AddContour appends a contour anchored at first to f and stamps it as the
// left face data of every edge on the Lnext loop through first.
func (s *Session) AddContour(f *Face, first EdgeRef) *Contour {
	c := &Contour{FirstEdge: first, Face: f}
	f.Contours = append(f.Contours, c)
	s.Claim(c)
	return c
}

// Claim stamps c as the left face data of every edge of its loop.
func (s *Session) Claim(c *Contour) {
	for _, e := range s.Arena.Loop(c.FirstEdge) {
		s.Arena.SetLeft(e, c)
	}
}

// LoopEdges returns the directed edges of c in Lnext order.
func (s *Session) LoopEdges(c *Contour) []EdgeRef {
	return s.Arena.Loop(c.FirstEdge)
}

// FaceOf returns the face on the left of e, or nil.
func (s *Session) FaceOf(e EdgeRef) *Face {
	c := s.Arena.Left(e)
	if c == nil {
		return nil
	}
	return c.Face
}

// DestroyObject releases every edge of o back to the arena and empties it.
func (s *Session) DestroyObject(o *Object) {
	for _, e := range o.Edges {
		s.Arena.DestroyEdge(e)
	}
	o.Vertices = nil
	o.Edges = nil
	o.Faces = nil
}

// ---------------------------------------------------------------------------
// Consistency checks
// ---------------------------------------------------------------------------

// ErrOpenShell reports a boundary edge or a broken loop.
var ErrOpenShell = errors.New("model: shell is not closed")

// CheckClosed verifies that o is a closed 2-manifold as far as the model
// can tell: every edge has a contour on both sides, every contour's loop
// stamps back to itself and belongs to one of o's faces, and the vertex
// slots agree along each loop.
func (s *Session) CheckClosed(o *Object) error {
	faces := make(map[*Face]bool, len(o.Faces))
	for _, f := range o.Faces {
		faces[f] = true
	}
	for _, e := range o.Edges {
		for _, d := range []EdgeRef{e, e.Sym()} {
			c := s.Arena.Left(d)
			if c == nil {
				return fmt.Errorf("%w: %v has no left contour", ErrOpenShell, d)
			}
			if !faces[c.Face] {
				return fmt.Errorf("%w: %v bounds %v which is not part of %q", ErrOpenShell, d, c.Face, o.Name)
			}
		}
	}
	for _, f := range o.Faces {
		for _, c := range f.Contours {
			if c.Face != f {
				return fmt.Errorf("%w: contour of %v points at %v", ErrOpenShell, f, c.Face)
			}
			for _, e := range s.Arena.Loop(c.FirstEdge) {
				if s.Arena.Left(e) != c {
					return fmt.Errorf("%w: %v on loop of %v has a foreign left contour", ErrOpenShell, e, f)
				}
				if s.Arena.Dest(e) != s.Arena.Org(s.Arena.Lnext(e)) {
					return fmt.Errorf("%w: loop of %v breaks at %v", ErrOpenShell, f, e)
				}
			}
		}
	}
	return nil
}

// Counts returns the number of vertices, undirected edges and faces of o.
func (o *Object) Counts() (vertices, edges, faces int) {
	return len(o.Vertices), len(o.Edges), len(o.Faces)
}
