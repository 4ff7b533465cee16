package polygon

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"honnef.co/go/curve"
)

func TestContourVertexCount(t *testing.T) {
	assert.Equal(t, 4, Rect(0, 0, 1, 1).VertexCount())
	assert.Equal(t, 1, Circle(curve.Pt(0, 0), 1).VertexCount())
}

func TestSignedArea(t *testing.T) {
	r := Rect(0, 0, 10, 5)
	assert.InDelta(t, 50, r.SignedArea(), 1e-9)
	r.Reverse()
	assert.InDelta(t, -50, r.SignedArea(), 1e-9)
	assert.InDelta(t, math.Pi*4, Circle(curve.Pt(3, 3), 2).SignedArea(), 1e-9)
}

func TestRectNormalizesCorners(t *testing.T) {
	r := Rect(10, 5, 0, 0)
	assert.Greater(t, r.SignedArea(), 0.0)
}

func TestContourContains(t *testing.T) {
	tests := []struct {
		name string
		c    *Contour
		pt   curve.Point
		want bool
	}{
		{"rect inside", Rect(0, 0, 10, 5), curve.Pt(5, 2), true},
		{"rect outside", Rect(0, 0, 10, 5), curve.Pt(11, 2), false},
		{"reversed rect inside", Poly(curve.Pt(0, 0), curve.Pt(0, 5), curve.Pt(10, 5), curve.Pt(10, 0)), curve.Pt(5, 2), true},
		{"circle inside", Circle(curve.Pt(0, 0), 1), curve.Pt(0.5, 0), true},
		{"circle outside", Circle(curve.Pt(0, 0), 1), curve.Pt(1.5, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.c.Contains(tt.pt))
		})
	}
}

func TestContourDistance(t *testing.T) {
	r := Rect(0, 0, 10, 5)
	assert.InDelta(t, 2, r.Distance(curve.Pt(5, 2)), 1e-6)
	assert.InDelta(t, 1, r.Distance(curve.Pt(11, 2)), 1e-6)
	assert.InDelta(t, 0.5, Circle(curve.Pt(0, 0), 1).Distance(curve.Pt(0, 1.5)), 1e-9)
}

func TestPieceContainsRespectsHoles(t *testing.T) {
	p := NewPiece(Rect(0, 0, 10, 10), "GND")
	p.Holes = append(p.Holes, Circle(curve.Pt(5, 5), 1))
	assert.True(t, p.Contains(curve.Pt(2, 2)))
	assert.False(t, p.Contains(curve.Pt(5, 5)))
	assert.Equal(t, 5, p.VertexCount())
	assert.Len(t, p.Contours(), 2)
}

func TestPieceContainsDisc(t *testing.T) {
	p := NewPiece(Rect(0, 0, 10, 10), "")
	assert.True(t, p.ContainsDisc(curve.Pt(5, 5), 2))
	assert.False(t, p.ContainsDisc(curve.Pt(1, 5), 2), "straddles the outer boundary")

	p.Holes = append(p.Holes, Circle(curve.Pt(5, 5), 1))
	assert.False(t, p.ContainsDisc(curve.Pt(6, 5), 1), "overlaps a hole")
	assert.True(t, p.ContainsDisc(curve.Pt(8, 8), 1))
}

func TestSetAddDisc(t *testing.T) {
	s := NewSet(NewPiece(Rect(0, 0, 10, 10), "plane"))
	assert.False(t, s.AddDisc(curve.Pt(5, 5), 1, "via"), "covered pad is absorbed")
	assert.Len(t, s.Pieces, 1)

	assert.True(t, s.AddDisc(curve.Pt(20, 5), 1, "via"))
	require.Len(t, s.Pieces, 2)
	assert.True(t, s.Pieces[1].Outer.Round)
	assert.Same(t, s.Pieces[1], s.PieceAt(curve.Pt(20, 5)))
	assert.Nil(t, s.PieceAt(curve.Pt(15, 5)))
}

func TestSetSubtractCircle(t *testing.T) {
	s := NewSet(NewPiece(Rect(0, 0, 10, 10), "plane"))
	require.True(t, s.SubtractCircle(curve.Pt(5, 5), 1))
	assert.Len(t, s.Pieces[0].Holes, 1)

	assert.False(t, s.SubtractCircle(curve.Pt(0, 5), 1), "boundary-straddling holes are not supported")
	assert.False(t, s.SubtractCircle(curve.Pt(50, 50), 1))

	s.AddDisc(curve.Pt(20, 5), 0.5, "pad")
	assert.True(t, s.SubtractCircle(curve.Pt(20, 5), 0.6), "a drill larger than a bare pad removes it")
	assert.Len(t, s.Pieces, 1)
}

func TestSetBoundsAndClone(t *testing.T) {
	s := NewSet(NewPiece(Rect(0, 0, 10, 5), ""), NewPiece(Circle(curve.Pt(20, 20), 2), ""))
	b, ok := s.Bounds()
	require.True(t, ok)
	assert.Equal(t, 22.0, b.MaxX())
	assert.Equal(t, 0.0, b.MinY())

	c := s.Clone()
	c.SubtractCircle(curve.Pt(5, 2.5), 1)
	assert.Empty(t, s.Pieces[0].Holes, "clone must not alias hole lists")

	_, ok = NewSet().Bounds()
	assert.False(t, ok)
	assert.True(t, NewSet().Empty())
}
