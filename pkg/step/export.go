package step

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/chazu/pcbsolid/pkg/geom"
	"github.com/chazu/pcbsolid/pkg/model"
)

// DefaultUncertainty is the distance accuracy written into the context, in
// millimetres.
const DefaultUncertainty = 1e-7

// ExportOptions configures Export.
type ExportOptions struct {
	Name         string
	Author       string
	Organization string
	Time         time.Time
	Uncertainty  float64
	Logger       zerolog.Logger
}

// SaveStepFile exports objects to the file at path.
func SaveStepFile(path string, s *model.Session, objects []*model.Object, opts ExportOptions) error {
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("step: %w", err)
	}
	if err := Export(fh, s, objects, opts); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

// Export writes objects as one product whose shape representation relates
// one ADVANCED_BREP_SHAPE_REPRESENTATION per object. Absorbed objects are
// skipped. Faces whose surface cannot be written, or whose tessellation
// failed, are left out and logged; the shell of such an object is open.
func Export(out io.Writer, s *model.Session, objects []*model.Object, opts ExportOptions) error {
	if opts.Uncertainty <= 0 {
		opts.Uncertainty = DefaultUncertainty
	}
	name := opts.Name
	if name == "" {
		name = "board"
	}
	w := NewWriter(Header{Name: name, Author: opts.Author, Organization: opts.Organization, Time: opts.Time})
	ex := &exporter{w: w, s: s, log: opts.Logger, colours: map[*model.Appearance]int{}}

	ctx := w.Context(opts.Uncertainty)
	origin := w.Axis2Placement(geom.DefaultPlacement)
	_, sr := w.Product(name, ctx, []int{origin})

	var styled []int
	for _, o := range objects {
		if o.AbsorbedInto != nil {
			continue
		}
		solid, st := ex.object(o)
		if solid == 0 {
			continue
		}
		styled = append(styled, st...)
		w.BrepRepresentation(o.Name, []int{solid, w.Axis2Placement(geom.DefaultPlacement)}, ctx, sr)
	}
	if len(styled) > 0 {
		w.Presentation(styled, ctx)
	}
	if _, err := w.WriteTo(out); err != nil {
		return fmt.Errorf("step: write: %w", err)
	}
	opts.Logger.Info().Str("product", name).Int("instances", w.Len()).Msg("step export done")
	return nil
}

type exporter struct {
	w   *Writer
	s   *model.Session
	log zerolog.Logger

	colours map[*model.Appearance]int
}

// object writes the solid of o and its styled items. It returns 0 when o
// has no writable face.
func (ex *exporter) object(o *model.Object) (int, []int) {
	w, a := ex.w, ex.s.Arena
	vertices := map[*model.Vertex]int{}
	edges := map[model.EdgeRef]int{}

	vertex := func(v *model.Vertex) int {
		if id, ok := vertices[v]; ok {
			return id
		}
		id := w.VertexPoint(v.Pos)
		vertices[v] = id
		return id
	}
	edge := func(e model.EdgeRef) int {
		e = e.Canonical()
		if id, ok := edges[e]; ok {
			return id
		}
		org, dst := a.Org(e), a.Dest(e)
		info := a.Geom(e)
		same := true
		if info != nil {
			same = info.SameSense
		}
		id := w.EdgeCurve(vertex(org), vertex(dst), ex.curve(info, org.Pos, dst.Pos), same)
		edges[e] = id
		return id
	}

	var faces []int
	var styled []int
	for _, f := range o.Faces {
		if f.Tess == model.TessFailed {
			ex.log.Warn().Str("object", o.Name).Stringer("face", f).Msg("face failed to tessellate, not exported")
			continue
		}
		surf, ok := w.Surface(f.Surface)
		if !ok {
			ex.log.Warn().Str("object", o.Name).Stringer("face", f).Msg("surface cannot be exported")
			continue
		}
		var bounds []int
		for i, c := range f.Contours {
			var oes []int
			for _, d := range ex.s.LoopEdges(c) {
				oes = append(oes, w.OrientedEdge(edge(d), d == d.Canonical()))
			}
			bounds = append(bounds, w.FaceBound(w.EdgeLoop(oes), i == 0))
		}
		id := w.AdvancedFace(bounds, surf, !f.Reversed)
		faces = append(faces, id)
		if f.Appearance != nil && f.Appearance != o.Appearance {
			styled = append(styled, w.StyledItem(ex.colour(f.Appearance), id))
		}
	}
	if len(faces) == 0 {
		ex.log.Warn().Str("object", o.Name).Msg("object has no exportable faces")
		return 0, nil
	}
	solid := w.ManifoldSolidBrep(o.Name, w.ClosedShell(faces))
	if o.Appearance != nil {
		styled = append(styled, w.StyledItem(ex.colour(o.Appearance), solid))
	}
	return solid, styled
}

// curve writes the geometry of an edge running from p to q.
func (ex *exporter) curve(info *model.EdgeInfo, p, q geom.Vec) int {
	w := ex.w
	var c model.Curve
	if info != nil {
		c = info.Curve
	}
	switch c := c.(type) {
	case model.Circle:
		return w.Circle(c.Placement, c.Radius)
	case model.Ellipse:
		return w.Ellipse(c.Placement, c.SemiAxis1, c.SemiAxis2)
	case model.BSpline:
		return w.BSpline(c)
	case model.Line:
		if c.Dir.Length() > geom.Eps {
			return w.Line(c.Origin, c.Dir)
		}
	}
	d := q.Sub(p)
	if d.Length() < geom.Eps {
		d = geom.XAxis
	}
	if info != nil && !info.SameSense {
		d = d.Neg()
	}
	return w.Line(p, d)
}

func (ex *exporter) colour(app *model.Appearance) int {
	if id, ok := ex.colours[app]; ok {
		return id
	}
	id := ex.w.ColourRGB(app)
	ex.colours[app] = id
	return id
}
