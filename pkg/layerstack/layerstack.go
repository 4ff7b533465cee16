// Package layerstack turns a board description into solids: one extrusion
// per layer at its height in the stack, with the copper of every via and
// pin joined through a plated barrel and pierced by its drill.
//
// Layers are stacked from the top down; the bottom of the last layer sits
// at z = 0.
//
// A via between two adjacent copper layers is built as a barrel disc that
// fills the gap between them. Its end caps sit on the matching faces of the
// pads above and below, so the caps are dropped and their contours become
// holes of those faces. The drill is an inverted extrusion through the
// whole span whose caps become holes of the top face of the top pad and
// the bottom face of the bottom pad. Everything ends up in the object of
// the top pad.
package layerstack

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/chazu/pcbsolid/pkg/board"
	"github.com/chazu/pcbsolid/pkg/extrude"
	"github.com/chazu/pcbsolid/pkg/geom"
	"github.com/chazu/pcbsolid/pkg/model"
	"github.com/chazu/pcbsolid/pkg/polygon"
)

// ErrNoOutline is returned for boards without an outline.
var ErrNoOutline = errors.New("layerstack: board has no outline")

// DefaultColours are the appearances used for layers without a colour.
var DefaultColours = map[board.LayerKind]*model.Appearance{
	board.Copper:     {Name: "copper", R: 0.72, G: 0.45, B: 0.2},
	board.Dielectric: {Name: "fr4", R: 0.35, G: 0.42, B: 0.22},
	board.Mask:       {Name: "soldermask", R: 0.05, G: 0.35, B: 0.1},
	board.Silk:       {Name: "silkscreen", R: 0.95, G: 0.95, B: 0.95},
}

// Options configures Compose.
type Options struct {
	// Session receives the solids. A new session is used when nil.
	Session *model.Session

	// Colours overrides DefaultColours per layer kind.
	Colours map[board.LayerKind]*model.Appearance

	Verify bool
	Logger zerolog.Logger
}

// LayerSolid is the extrusion of one layer.
type LayerSolid struct {
	Layer   *board.Layer
	ZBottom float64
	ZTop    float64
	Objects []*model.Object
}

// Stack is the result of Compose.
type Stack struct {
	Session *model.Session
	Frame   geom.BoardFrame
	Layers  []*LayerSolid

	// Skipped counts pieces, vias and holes that could not be built.
	Skipped int
}

// Objects returns every live object of the stack in layer order. Objects
// absorbed by a merge are replaced by the object that took them over.
func (st *Stack) Objects() []*model.Object {
	seen := make(map[*model.Object]bool)
	var out []*model.Object
	for _, l := range st.Layers {
		for _, o := range l.Objects {
			o = o.Resolve()
			if seen[o] || len(o.Faces) == 0 {
				continue
			}
			seen[o] = true
			out = append(out, o)
		}
	}
	return out
}

// composer carries the state of one Compose call.
type composer struct {
	b       *board.Board
	s       *model.Session
	eb      *extrude.Builder
	log     zerolog.Logger
	colours map[board.LayerKind]*model.Appearance

	sets   []*polygon.Set
	zTop   []float64
	zBot   []float64
	spans  map[*board.Via][2]int
	result *Stack
}

// Compose builds the solids of every layer of b and merges the copper of
// each via and pin. Problems with single pieces, vias or holes are logged
// and skipped.
func Compose(b *board.Board, opts Options) (*Stack, error) {
	if b == nil || b.Outline == nil || b.Outline.Outer == nil {
		return nil, ErrNoOutline
	}
	s := opts.Session
	if s == nil {
		s = model.NewSession()
	}
	frame := geom.BoardFrame{Height: b.Height()}
	c := &composer{
		b:   b,
		s:   s,
		log: opts.Logger,
		eb: extrude.NewBuilder(s, extrude.Options{
			Frame:  frame,
			Verify: opts.Verify,
			Logger: opts.Logger,
		}),
		colours: make(map[board.LayerKind]*model.Appearance),
		spans:   make(map[*board.Via][2]int),
		result:  &Stack{Session: s, Frame: frame},
	}
	for k, a := range DefaultColours {
		c.colours[k] = a
	}
	for k, a := range opts.Colours {
		c.colours[k] = a
	}

	c.heights()
	c.resolveSpans()
	c.prepareSets()
	if err := c.extrudeLayers(); err != nil {
		return nil, err
	}
	for _, v := range b.Vias {
		c.mergeVia(v)
	}
	c.log.Info().
		Str("board", b.Name).
		Int("layers", len(b.Layers)).
		Int("objects", len(c.result.Objects())).
		Int("skipped", c.result.Skipped).
		Msg("layer stack composed")
	return c.result, nil
}

// heights assigns every layer its z range.
func (c *composer) heights() {
	z := c.b.Thickness()
	for _, l := range c.b.Layers {
		c.zTop = append(c.zTop, z)
		z -= l.Thickness
		c.zBot = append(c.zBot, z)
	}
}

func (c *composer) resolveSpans() {
	for _, v := range c.b.Vias {
		top, bottom, err := c.b.Span(v)
		if err != nil {
			c.log.Warn().Err(err).Msg("skipping via")
			c.result.Skipped++
			continue
		}
		c.spans[v] = [2]int{top, bottom}
	}
}

// inSpan reports whether layer i lies within the span of v.
func (c *composer) inSpan(v *board.Via, i int) bool {
	sp, ok := c.spans[v]
	return ok && i >= sp[0] && i <= sp[1]
}

// prepareSets copies every layer's pieces, adds via pads to copper and
// cuts holes.
func (c *composer) prepareSets() {
	c.sets = make([]*polygon.Set, len(c.b.Layers))
	for i, l := range c.b.Layers {
		var set *polygon.Set
		if l.Kind == board.Dielectric {
			outline := *c.b.Outline
			outline.Holes = append([]*polygon.Contour(nil), c.b.Outline.Holes...)
			outline.Name = l.Name
			set = polygon.NewSet(&outline)
		} else if l.Pieces != nil {
			set = l.Pieces.Clone()
		} else {
			set = polygon.NewSet()
		}
		c.sets[i] = set

		for _, v := range c.b.Vias {
			// Pins open the mask on both sides, outside the copper span.
			if l.Kind == board.Mask {
				if _, ok := c.spans[v]; ok && v.Pin {
					set.SubtractCircle(v.At, v.Pad/2)
				}
				continue
			}
			if !c.inSpan(v, i) {
				continue
			}
			switch l.Kind {
			case board.Copper:
				if !set.AddDisc(v.At, v.Pad/2, v.Name) {
					c.log.Debug().Str("via", v.Name).Str("layer", l.Name).Msg("pad absorbed by piece")
				}
			case board.Dielectric:
				if !set.SubtractCircle(v.At, c.b.BarrelRadius(v)) {
					c.log.Warn().Str("via", v.Name).Str("layer", l.Name).Msg("barrel is not inside the dielectric")
				}
			}
		}
		for _, h := range c.b.Holes {
			if !set.SubtractCircle(h.At, h.Drill/2) && l.Kind == board.Dielectric {
				c.log.Warn().Str("hole", h.Name).Str("layer", l.Name).Msg("hole is not inside the outline")
				c.result.Skipped++
			}
		}
	}
}

func (c *composer) extrudeLayers() error {
	for i, l := range c.b.Layers {
		app := l.Colour
		if app == nil {
			app = c.colours[l.Kind]
		}
		ls := &LayerSolid{Layer: l, ZBottom: c.zBot[i], ZTop: c.zTop[i]}
		c.result.Layers = append(c.result.Layers, ls)
		if c.sets[i].Empty() {
			continue
		}
		res, err := c.eb.BuildSolidFromContours(c.sets[i], ls.ZBottom, ls.ZTop, app, app, false, l.Name)
		if err != nil {
			return fmt.Errorf("layerstack: layer %s: %w", l.Name, err)
		}
		c.result.Skipped += res.Skipped
		ls.Objects = res.Objects
	}
	return nil
}

// side returns the extrusion of the piece of layer i at the centre of v.
func (c *composer) side(i int, v *board.Via) (extrude.Side, bool) {
	p := c.sets[i].PieceAt(v.At)
	if p == nil {
		return extrude.Side{}, false
	}
	sd, ok := c.eb.Sides[p]
	return sd, ok
}

// mergeVia joins the pads of v on every copper layer of its span.
func (c *composer) mergeVia(v *board.Via) {
	sp, ok := c.spans[v]
	if !ok {
		return
	}
	var copper []int
	for _, i := range c.b.CopperIndices() {
		if c.inSpan(v, i) {
			copper = append(copper, i)
		}
	}
	for k := 0; k+1 < len(copper); k++ {
		if !c.mergeBarrel(v, copper[k], copper[k+1]) {
			c.result.Skipped++
		}
	}
	if !c.mergeDrill(v, sp[0], sp[1]) {
		c.result.Skipped++
	}
}

// mergeBarrel fills the gap between the pads of v on copper layers upper
// and lower.
func (c *composer) mergeBarrel(v *board.Via, upper, lower int) bool {
	log := c.log.With().Str("via", v.Name).Str("upper", c.b.Layers[upper].Name).
		Str("lower", c.b.Layers[lower].Name).Logger()

	up, okUp := c.side(upper, v)
	lo, okLo := c.side(lower, v)
	if !okUp || !okLo {
		log.Warn().Msg("no pad found for barrel")
		return false
	}
	piece := polygon.NewPiece(polygon.Circle(v.At, c.b.BarrelRadius(v)), v.Name)
	helper, ok := c.build(piece, c.zTop[lower], c.zBot[upper], c.colours[board.Copper], false, log)
	if !ok {
		return false
	}

	moveCap(helper, helper.Object, up.Bottom, true)
	moveCap(helper, helper.Object, lo.Top, false)
	c.join(up.Object, lo.Object, helper.Object)
	return true
}

// mergeDrill pierces the copper of v from the top of layer top to the
// bottom of layer bottom.
func (c *composer) mergeDrill(v *board.Via, top, bottom int) bool {
	log := c.log.With().Str("via", v.Name).Logger()

	up, okUp := c.side(top, v)
	lo, okLo := c.side(bottom, v)
	if !okUp || !okLo {
		log.Warn().Msg("no pad found for drill")
		return false
	}
	piece := polygon.NewPiece(polygon.Circle(v.At, v.Drill/2), v.Name)
	helper, ok := c.build(piece, c.zBot[bottom], c.zTop[top], c.colours[board.Copper], true, log)
	if !ok {
		return false
	}

	moveCap(helper, helper.Object, up.Top, true)
	moveCap(helper, helper.Object, lo.Bottom, false)
	c.join(up.Object, lo.Object, helper.Object)
	return true
}

// build extrudes one helper piece.
func (c *composer) build(piece *polygon.Piece, zBottom, zTop float64, app *model.Appearance,
	invert bool, log zerolog.Logger) (extrude.Side, bool) {
	res, err := c.eb.BuildSolidFromContours(polygon.NewSet(piece), zBottom, zTop, app, app, invert, piece.Name)
	if err != nil || len(res.Objects) == 0 {
		log.Warn().Err(err).Msg("cannot extrude via helper")
		return extrude.Side{}, false
	}
	return c.eb.Sides[piece], true
}

// moveCap hands the contours of the helper's top (or bottom) cap to
// target, where they bound a hole, and drops the cap from owner.
func moveCap(helper extrude.Side, owner *model.Object, target *model.Face, top bool) {
	cp := helper.Bottom
	if top {
		cp = helper.Top
	}
	for _, ct := range cp.Contours {
		ct.Face = target
		target.Contours = append(target.Contours, ct)
	}
	cp.Contours = nil
	owner.RemoveFace(cp)
	target.ResetTessellation()
}

// join moves the helper and the lower pad's object into the upper pad's
// object.
func (c *composer) join(upper, lower, helper *model.Object) {
	target := upper.Resolve()
	target.Absorb(helper)
	if lo := lower.Resolve(); lo != target {
		target.Absorb(lo)
	}
}
