// Package tessellate turns model faces into triangle-strip render buffers.
//
// Each face is flattened into its surface's (u, v) parameter plane, its
// loops are cut along the parametric seams, and the enclosed region is
// decomposed into horizontal trapezoids (u along the sweep direction).
// Every trapezoid becomes one strip, which is mapped back onto the surface
// with analytic normals. One mesh is produced per face and, on request, per
// object.
package tessellate

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/chazu/pcbsolid/pkg/geom"
	"github.com/chazu/pcbsolid/pkg/mesh"
	"github.com/chazu/pcbsolid/pkg/model"
	"github.com/chazu/pcbsolid/pkg/trapezoid"
)

const (
	DefaultSegmentsPerTurn = 64
	DefaultEps             = 1e-6

	// DefaultCutStep is the u spacing of the cut lines on curved surfaces,
	// in degrees.
	DefaultCutStep = 5.625
)

// Options configures an Engine. Zero fields select the defaults.
type Options struct {
	SegmentsPerTurn int
	Eps             float64
	CutStep         float64

	// BoardFrame, when set, maps the output into board coordinates (Y
	// down). Positions and normals are mirrored and triangle winding is
	// flipped to match.
	BoardFrame *geom.BoardFrame

	Logger zerolog.Logger
}

// Engine tessellates faces of one session.
type Engine struct {
	Session *model.Session

	opts Options
	log  zerolog.Logger
}

// New creates an engine.
func New(s *model.Session, opts Options) *Engine {
	if opts.SegmentsPerTurn <= 0 {
		opts.SegmentsPerTurn = DefaultSegmentsPerTurn
	}
	if opts.Eps <= 0 {
		opts.Eps = DefaultEps
	}
	if opts.CutStep <= 0 {
		opts.CutStep = DefaultCutStep
	}
	return &Engine{Session: s, opts: opts, log: opts.Logger}
}

// EnsureTristrip tessellates f unless that was already attempted, and
// returns its mesh. It returns nil once f is marked TessFailed; failure is
// not retried.
func (en *Engine) EnsureTristrip(f *model.Face) *mesh.Mesh {
	switch f.Tess {
	case model.TessDone:
		return f.Mesh
	case model.TessFailed:
		return nil
	}

	m, reason := en.tessellate(f)
	if m == nil {
		en.log.Warn().Str("face", f.String()).Str("reason", reason).Msg("tessellation failed")
		f.Tess = model.TessFailed
		f.Mesh = nil
		return nil
	}
	f.Tess = model.TessDone
	f.Mesh = m
	return m
}

// Object tessellates every face of o into one mesh named after the object.
// Failed faces are skipped and counted.
func (en *Engine) Object(o *model.Object) (*mesh.Mesh, int) {
	out := &mesh.Mesh{Name: o.Name}
	failed := 0
	for _, f := range o.Faces {
		m := en.EnsureTristrip(f)
		if m == nil {
			failed++
			continue
		}
		out.Append(m)
	}
	return out, failed
}

// Tessellate produces one mesh per object. Objects without any usable face
// yield no mesh.
func (en *Engine) Tessellate(objects []*model.Object) []*mesh.Mesh {
	var meshes []*mesh.Mesh
	for _, o := range objects {
		if o.AbsorbedInto != nil {
			continue
		}
		m, failed := en.Object(o)
		if failed > 0 {
			en.log.Debug().Str("object", o.Name).Int("failed", failed).Msg("faces skipped")
		}
		if !m.IsEmpty() {
			meshes = append(meshes, m)
		}
	}
	return meshes
}

func (en *Engine) tessellate(f *model.Face) (*mesh.Mesh, string) {
	m, ok := mapFor(f.Surface)
	if !ok {
		return nil, "unsupported surface " + model.SurfaceKind(f.Surface)
	}
	if len(f.Contours) == 0 {
		return nil, "no contours"
	}

	d := &domain{m: m, reversed: f.Reversed, eps: en.opts.Eps}
	for _, c := range f.Contours {
		var loop []geom.Vec
		for _, e := range en.Session.LoopEdges(c) {
			pts := en.Linearize(e)
			loop = append(loop, pts[:len(pts)-1]...)
		}
		d.addLoop(loop)
	}
	if !d.close() {
		return nil, "loops do not bound a region"
	}

	var cuts []float64
	if m.curved() {
		for u := en.opts.CutStep; u < period; u += en.opts.CutStep {
			cuts = append(cuts, u)
		}
	}
	traps := trapezoid.Sweep(d.segs, trapezoid.Options{Eps: en.opts.Eps, Cuts: cuts})

	out := &mesh.Mesh{Name: f.String()}
	for _, t := range traps {
		if t.Height() <= en.opts.Eps || !d.inRange(t) {
			continue
		}
		en.emit(out, m, f.Reversed, t)
	}
	if out.IsEmpty() {
		return nil, "no usable trapezoids"
	}
	return out, ""
}

// emit appends trapezoid t as one strip. A trapezoid with one side of zero
// width becomes a single triangle; one with both sides collapsed is
// dropped.
func (en *Engine) emit(out *mesh.Mesh, m uvMap, reversed bool, t trapezoid.Trapezoid) {
	eps := en.opts.Eps
	w0, w1 := t.XR0-t.XL0, t.XR1-t.XL1
	if w0 <= eps && w1 <= eps {
		return
	}
	// In the sweep plane (x = v, y = u) a clockwise triangle faces along
	// the natural normal.
	flip := reversed != (en.opts.BoardFrame != nil)

	vert := func(x, y float64) mesh.Vertex {
		p, n := m.eval(y, x)
		if reversed {
			n = n.Neg()
		}
		if bf := en.opts.BoardFrame; bf != nil {
			p = bf.FromModel(p)
			n = bf.Dir(n)
		}
		return mesh.Vertex{X: p.X, Y: p.Y, Z: p.Z, NX: n.X, NY: n.Y, NZ: n.Z}
	}

	switch {
	case w0 <= eps:
		b := vert((t.XL0+t.XR0)/2, t.Y0)
		tl, tr := vert(t.XL1, t.Y1), vert(t.XR1, t.Y1)
		if flip {
			out.AddStrip(b, tr, tl)
		} else {
			out.AddStrip(b, tl, tr)
		}
		return
	case w1 <= eps:
		tp := vert((t.XL1+t.XR1)/2, t.Y1)
		bl, br := vert(t.XL0, t.Y0), vert(t.XR0, t.Y0)
		if flip {
			out.AddStrip(tp, bl, br)
		} else {
			out.AddStrip(bl, tp, br)
		}
		return
	}

	steps := 1
	if m.subdivideV() {
		steps = max(1, int(math.Ceil(max(w0, w1)/en.opts.CutStep-1e-9)))
	}
	vs := make([]mesh.Vertex, 0, 2*(steps+1))
	for i := 0; i <= steps; i++ {
		s := float64(i) / float64(steps)
		b := vert(t.XL0+s*w0, t.Y0)
		tp := vert(t.XL1+s*w1, t.Y1)
		if flip {
			vs = append(vs, tp, b)
		} else {
			vs = append(vs, b, tp)
		}
	}
	out.AddStrip(vs...)
}
