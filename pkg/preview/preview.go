// Package preview renders tessellated meshes into PNG images for quick
// visual checks of a build.
//
// Triangles are painted back to front with flat Lambert shading, then the
// strip outlines are drawn on top as a wireframe.
package preview

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/gogpu/gg"

	"github.com/chazu/pcbsolid/pkg/geom"
	"github.com/chazu/pcbsolid/pkg/mesh"
	"github.com/chazu/pcbsolid/pkg/model"
)

// ErrNothingToDraw is returned when no item has geometry.
var ErrNothingToDraw = errors.New("preview: nothing to draw")

// View selects the projection.
type View int

const (
	Top View = iota
	Bottom
	Iso
)

func (v View) String() string {
	switch v {
	case Top:
		return "top"
	case Bottom:
		return "bottom"
	case Iso:
		return "iso"
	default:
		return fmt.Sprintf("View(%d)", int(v))
	}
}

// ParseView is the inverse of View.String.
func ParseView(s string) (View, error) {
	for v := Top; v <= Iso; v++ {
		if v.String() == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("preview: unknown view %q", s)
}

// Item is one mesh and the colour it is painted in.
type Item struct {
	Mesh   *mesh.Mesh
	Colour *model.Appearance
}

// Options configures Render. Zero sizes select 1024x768.
type Options struct {
	Width, Height int
	View          View
	Margin        int

	// Wireframe draws strip outlines; Fill paints shaded triangles.
	Wireframe bool
	Fill      bool
}

var defaultColour = &model.Appearance{R: 0.6, G: 0.6, B: 0.6}

// light is the direction towards the light in view space.
var light = geom.V(-0.3, 0.5, 1).Normalize()

type triangle struct {
	p      [3]geom.Vec
	depth  float64
	colour *model.Appearance
	shade  float64
}

// project maps a model point into view space: x right, y up, z towards
// the viewer.
func (v View) project(p geom.Vec) geom.Vec {
	switch v {
	case Bottom:
		return geom.V(p.X, -p.Y, -p.Z)
	case Iso:
		// Rotate -45° about z, then tilt the view down by atan(1/√2).
		c, s := math.Sqrt2/2, -math.Sqrt2/2
		q := geom.V(c*p.X-s*p.Y, s*p.X+c*p.Y, p.Z)
		t := math.Atan(1 / math.Sqrt2)
		ct, st := math.Cos(t), math.Sin(t)
		return geom.V(q.X, ct*q.Y+st*q.Z, -st*q.Y+ct*q.Z)
	default:
		return p
	}
}

// Render draws items into a new context.
func Render(items []Item, opts Options) (*gg.Context, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 1024, 768
	}
	if opts.Margin <= 0 {
		opts.Margin = 16
	}
	if !opts.Wireframe && !opts.Fill {
		opts.Wireframe = true
	}

	var tris []triangle
	lo := geom.V(math.Inf(1), math.Inf(1), 0)
	hi := geom.V(math.Inf(-1), math.Inf(-1), 0)
	for _, it := range items {
		if it.Mesh == nil || it.Mesh.IsEmpty() {
			continue
		}
		col := it.Colour
		if col == nil {
			col = defaultColour
		}
		for i := 0; i < it.Mesh.VertexCount(); i++ {
			q := opts.View.project(vertexPos(it.Mesh.At(i)))
			lo.X, lo.Y = math.Min(lo.X, q.X), math.Min(lo.Y, q.Y)
			hi.X, hi.Y = math.Max(hi.X, q.X), math.Max(hi.Y, q.Y)
		}
		idx := it.Mesh.Triangles()
		for k := 0; k+2 < len(idx); k += 3 {
			var t triangle
			for j := 0; j < 3; j++ {
				t.p[j] = opts.View.project(vertexPos(it.Mesh.At(int(idx[k+j]))))
			}
			t.depth = (t.p[0].Z + t.p[1].Z + t.p[2].Z) / 3
			t.colour = col
			n := t.p[1].Sub(t.p[0]).Cross(t.p[2].Sub(t.p[0]))
			if n.Length() > 0 {
				t.shade = 0.35 + 0.65*math.Abs(n.Normalize().Dot(light))
			} else {
				t.shade = 0.35
			}
			tris = append(tris, t)
		}
	}
	if len(tris) == 0 {
		return nil, ErrNothingToDraw
	}

	// Fit the projected bounds into the image, keeping the aspect ratio.
	w, h := float64(opts.Width-2*opts.Margin), float64(opts.Height-2*opts.Margin)
	span := math.Max((hi.X-lo.X)/w, (hi.Y-lo.Y)/h)
	if span <= 0 {
		span = 1
	}
	scale := 1 / span
	cx, cy := (lo.X+hi.X)/2, (lo.Y+hi.Y)/2
	toScreen := func(p geom.Vec) (float64, float64) {
		return float64(opts.Width)/2 + (p.X-cx)*scale, float64(opts.Height)/2 - (p.Y-cy)*scale
	}

	dc := gg.NewContext(opts.Width, opts.Height)
	dc.ClearWithColor(gg.RGB(1, 1, 1))

	if opts.Fill {
		sort.SliceStable(tris, func(i, j int) bool { return tris[i].depth < tris[j].depth })
		for _, t := range tris {
			for j, p := range t.p {
				x, y := toScreen(p)
				if j == 0 {
					dc.MoveTo(x, y)
				} else {
					dc.LineTo(x, y)
				}
			}
			dc.ClosePath()
			dc.SetRGB(t.colour.R*t.shade, t.colour.G*t.shade, t.colour.B*t.shade)
			if err := dc.Fill(); err != nil {
				return nil, fmt.Errorf("preview: fill: %w", err)
			}
		}
	}

	if opts.Wireframe {
		dc.SetLineWidth(1)
		dc.SetRGB(0.1, 0.1, 0.1)
		for _, it := range items {
			if it.Mesh == nil {
				continue
			}
			ls := it.Mesh.Lines
			for k := 0; k+1 < len(ls); k += 2 {
				x0, y0 := toScreen(opts.View.project(vertexPos(it.Mesh.At(int(ls[k])))))
				x1, y1 := toScreen(opts.View.project(vertexPos(it.Mesh.At(int(ls[k+1])))))
				dc.DrawLine(x0, y0, x1, y1)
			}
		}
		if err := dc.Stroke(); err != nil {
			return nil, fmt.Errorf("preview: stroke: %w", err)
		}
	}
	return dc, nil
}

// Encode renders items and writes them as PNG.
func Encode(w io.Writer, items []Item, opts Options) error {
	dc, err := Render(items, opts)
	if err != nil {
		return err
	}
	defer dc.Close()
	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	return nil
}

// SavePNG renders items into the PNG file at path.
func SavePNG(path string, items []Item, opts Options) error {
	dc, err := Render(items, opts)
	if err != nil {
		return err
	}
	defer dc.Close()
	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	return nil
}

func vertexPos(v mesh.Vertex) geom.Vec { return geom.V(v.X, v.Y, v.Z) }
