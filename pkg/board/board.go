// Package board describes a printed circuit board as the layer stack sees
// it: an outline, an ordered list of layers carrying combined polygon
// pieces, plated vias and pins, and unplated holes.
//
// All coordinates are board coordinates in millimetres with Y pointing
// down. Layers are listed from the top of the board to the bottom.
package board

import (
	"fmt"

	"honnef.co/go/curve"

	"github.com/chazu/pcbsolid/pkg/model"
	"github.com/chazu/pcbsolid/pkg/polygon"
)

// DefaultPlating is the barrel wall thickness used when a board does not
// set one.
const DefaultPlating = 0.025

// LayerKind classifies a layer of the stack.
type LayerKind int

const (
	Copper LayerKind = iota
	Dielectric
	Mask
	Silk
)

func (k LayerKind) String() string {
	switch k {
	case Copper:
		return "copper"
	case Dielectric:
		return "dielectric"
	case Mask:
		return "mask"
	case Silk:
		return "silk"
	default:
		return fmt.Sprintf("LayerKind(%d)", int(k))
	}
}

// ParseLayerKind is the inverse of LayerKind.String.
func ParseLayerKind(s string) (LayerKind, error) {
	for k := Copper; k <= Silk; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("board: unknown layer kind %q", s)
}

// Layer is one sheet of the stack. Dielectric layers take their shape from
// the board outline and ignore Pieces.
type Layer struct {
	Name      string
	Kind      LayerKind
	Thickness float64
	Pieces    *polygon.Set
	Colour    *model.Appearance
}

// Via is a plated hole joining the copper layers From through To. A pin is
// a via that spans every copper layer; empty From and To mean the same.
// Drill and Pad are diameters.
type Via struct {
	Name  string
	At    curve.Point
	Drill float64
	Pad   float64
	From  string
	To    string
	Pin   bool
}

// Hole is an unplated drill through the whole board.
type Hole struct {
	Name  string
	At    curve.Point
	Drill float64
}

// Board is the complete input of the layer stack.
type Board struct {
	Name    string
	Outline *polygon.Piece
	Layers  []*Layer
	Vias    []*Via
	Holes   []*Hole

	// Plating is the barrel wall thickness of every via.
	Plating float64
}

// New returns an empty board.
func New(name string) *Board {
	return &Board{Name: name, Plating: DefaultPlating}
}

// AddLayer appends l at the bottom of the stack.
func (b *Board) AddLayer(l *Layer) *Layer {
	if l.Pieces == nil {
		l.Pieces = polygon.NewSet()
	}
	b.Layers = append(b.Layers, l)
	return l
}

// Layer returns the layer called name and its index, or nil and -1.
func (b *Board) Layer(name string) (*Layer, int) {
	for i, l := range b.Layers {
		if l.Name == name {
			return l, i
		}
	}
	return nil, -1
}

// CopperIndices returns the stack indices of the copper layers, top first.
func (b *Board) CopperIndices() []int {
	var out []int
	for i, l := range b.Layers {
		if l.Kind == Copper {
			out = append(out, i)
		}
	}
	return out
}

// Thickness is the sum of every layer's thickness.
func (b *Board) Thickness() float64 {
	t := 0.0
	for _, l := range b.Layers {
		t += l.Thickness
	}
	return t
}

// Span returns the stack indices of the top and bottom copper layers a via
// joins.
func (b *Board) Span(v *Via) (top, bottom int, err error) {
	copper := b.CopperIndices()
	if len(copper) == 0 {
		return 0, 0, fmt.Errorf("board: via %q: no copper layers", v.Name)
	}
	if v.Pin || (v.From == "" && v.To == "") {
		return copper[0], copper[len(copper)-1], nil
	}
	find := func(name string) (int, error) {
		l, i := b.Layer(name)
		if l == nil {
			return 0, fmt.Errorf("board: via %q: layer %q does not exist", v.Name, name)
		}
		if l.Kind != Copper {
			return 0, fmt.Errorf("board: via %q: layer %q is %s, not copper", v.Name, name, l.Kind)
		}
		return i, nil
	}
	from, err := find(v.From)
	if err != nil {
		return 0, 0, err
	}
	to, err := find(v.To)
	if err != nil {
		return 0, 0, err
	}
	if from > to {
		from, to = to, from
	}
	return from, to, nil
}

// BarrelRadius is the outer radius of a via's plated wall.
func (b *Board) BarrelRadius(v *Via) float64 { return v.Drill/2 + b.Plating }

// Height is the extent of the outline along Y, which is what the board
// frame flips about.
func (b *Board) Height() float64 {
	if b.Outline == nil || b.Outline.Outer == nil {
		return 0
	}
	r := b.Outline.Outer.Bounds()
	return r.Y1
}
