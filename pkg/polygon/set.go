package polygon

import (
	"honnef.co/go/curve"
)

// Piece is one connected region: an outer contour and zero or more holes.
// Name is the net or feature the outer contour belongs to.
type Piece struct {
	Outer *Contour
	Holes []*Contour
	Name  string
}

// NewPiece returns a piece with the given outer contour.
func NewPiece(outer *Contour, name string) *Piece {
	return &Piece{Outer: outer, Name: name}
}

// Contours returns the outer contour followed by the holes.
func (p *Piece) Contours() []*Contour {
	out := make([]*Contour, 0, 1+len(p.Holes))
	out = append(out, p.Outer)
	return append(out, p.Holes...)
}

// VertexCount is the total number of builder vertices of the piece.
func (p *Piece) VertexCount() int {
	n := 0
	for _, c := range p.Contours() {
		n += c.VertexCount()
	}
	return n
}

// Contains reports whether pt lies inside the outer contour and outside
// every hole.
func (p *Piece) Contains(pt curve.Point) bool {
	if p.Outer == nil || !p.Outer.Contains(pt) {
		return false
	}
	for _, h := range p.Holes {
		if h.Contains(pt) {
			return false
		}
	}
	return true
}

// ContainsDisc reports whether the disc lies in the piece's material,
// clear of the outer boundary and of every hole.
func (p *Piece) ContainsDisc(center curve.Point, r float64) bool {
	if p.Outer == nil || !p.Outer.ContainsDisc(center, r) {
		return false
	}
	for _, h := range p.Holes {
		if !h.disjointFromDisc(center, r) {
			return false
		}
	}
	return true
}

// Set is an ordered collection of disjoint pieces.
type Set struct {
	Pieces []*Piece
}

// NewSet returns a set holding pieces.
func NewSet(pieces ...*Piece) *Set {
	return &Set{Pieces: pieces}
}

// Add appends a piece.
func (s *Set) Add(p *Piece) { s.Pieces = append(s.Pieces, p) }

// Empty reports whether the set has no pieces.
func (s *Set) Empty() bool { return s == nil || len(s.Pieces) == 0 }

// PieceAt returns the piece whose material contains pt, or nil.
func (s *Set) PieceAt(pt curve.Point) *Piece {
	for _, p := range s.Pieces {
		if p.Contains(pt) {
			return p
		}
	}
	return nil
}

// AddDisc adds a round piece unless an existing piece already covers the
// disc, in which case the disc is absorbed and AddDisc reports false.
func (s *Set) AddDisc(center curve.Point, r float64, name string) bool {
	for _, p := range s.Pieces {
		if p.ContainsDisc(center, r) {
			return false
		}
	}
	s.Add(NewPiece(Circle(center, r), name))
	return true
}

// SubtractCircle cuts a round hole into the piece that fully contains the
// disc. Discs that straddle a boundary or lie outside every piece are left
// alone and SubtractCircle reports false; a disc that covers a whole round
// piece removes that piece.
func (s *Set) SubtractCircle(center curve.Point, r float64) bool {
	for _, p := range s.Pieces {
		if p.ContainsDisc(center, r) {
			p.Holes = append(p.Holes, Circle(center, r))
			return true
		}
	}
	for i, p := range s.Pieces {
		if p.Outer.Round && len(p.Holes) == 0 &&
			center.Distance(p.Outer.Center)+p.Outer.Radius <= r+Tolerance {
			s.Pieces = append(s.Pieces[:i], s.Pieces[i+1:]...)
			return true
		}
	}
	return false
}

// Bounds returns the bounding rectangle of every outer contour.
func (s *Set) Bounds() (curve.Rect, bool) {
	var r curve.Rect
	found := false
	for _, p := range s.Pieces {
		b := p.Outer.Bounds()
		if !found {
			r = b
			found = true
			continue
		}
		r = r.Union(b)
	}
	return r, found
}

// Clone returns a copy of the set whose pieces and hole lists may be
// modified independently. Contour point slices are shared.
func (s *Set) Clone() *Set {
	out := &Set{Pieces: make([]*Piece, len(s.Pieces))}
	for i, p := range s.Pieces {
		cp := *p
		cp.Holes = append([]*Contour(nil), p.Holes...)
		out.Pieces[i] = &cp
	}
	return out
}
