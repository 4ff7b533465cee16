// Package model defines the boundary-representation entities layered on the
// quad-edge arena: vertices, edge geometry, contours, faces and objects.
//
// Entities carry typed data only. Topology lives in the arena; the arena's
// vertex slots hold *Vertex, its face slots hold the *Contour a directed
// edge bounds (on its left), and its geometry slot holds the *EdgeInfo of
// the undirected edge.
package model

import (
	"fmt"
	"strings"

	"github.com/chazu/pcbsolid/pkg/geom"
	"github.com/chazu/pcbsolid/pkg/mesh"
	"github.com/chazu/pcbsolid/pkg/quad"
)

// Arena is the quad-edge arena specialised to the model's slot types.
type Arena = quad.Arena[*Vertex, *Contour, *EdgeInfo]

func newArena() *Arena { return quad.NewArena[*Vertex, *Contour, *EdgeInfo]() }

// EdgeRef is a directed edge handle into an Arena.
type EdgeRef = quad.EdgeRef

// Vertex is a point shared by every edge incident on it.
type Vertex struct {
	Pos geom.Vec
	ID  int
}

func (v *Vertex) String() string {
	return fmt.Sprintf("v%d(%g, %g, %g)", v.ID, v.Pos.X, v.Pos.Y, v.Pos.Z)
}

// Appearance is a display colour. Faces and objects share appearances by
// pointer.
type Appearance struct {
	Name    string
	R, G, B float64
}

// Contour is one boundary loop of a face, walked with Lnext from FirstEdge.
// Every edge of the loop has the contour as its left face data.
type Contour struct {
	FirstEdge EdgeRef
	Face      *Face
}

// TessState is the tessellation state of a face.
type TessState int

const (
	TessPending TessState = iota
	TessDone
	TessFailed
)

func (s TessState) String() string {
	switch s {
	case TessPending:
		return "pending"
	case TessDone:
		return "done"
	case TessFailed:
		return "failed"
	default:
		return fmt.Sprintf("TessState(%d)", int(s))
	}
}

// Face is a bounded region of a surface. Contours[0] is the outer boundary.
type Face struct {
	Surface Surface

	// Reversed flips the face normal relative to the surface's natural
	// normal.
	Reversed bool

	Appearance *Appearance
	Contours   []*Contour

	// Index is a per-session debugging ordinal.
	Index int

	Tess TessState
	Mesh *mesh.Mesh
}

func (f *Face) String() string {
	return fmt.Sprintf("face#%d(%s)", f.Index, SurfaceKind(f.Surface))
}

// ResetTessellation discards cached render data, e.g. after contours
// changed during a merge.
func (f *Face) ResetTessellation() {
	f.Tess = TessPending
	f.Mesh = nil
}

// Object is a solid: one or more closed shells.
type Object struct {
	Name       string
	Appearance *Appearance

	Vertices []*Vertex
	Edges    []EdgeRef // one handle per undirected edge
	Faces    []*Face

	// AbsorbedInto is set once the object has been merged into another.
	// An absorbed object owns nothing and must not be used again.
	AbsorbedInto *Object
}

// Resolve follows absorption redirects to the object that now owns what o
// used to own.
func (o *Object) Resolve() *Object {
	for o != nil && o.AbsorbedInto != nil {
		o = o.AbsorbedInto
	}
	return o
}

// FaceAppearance returns the face's own appearance, falling back to the
// object's.
func (o *Object) FaceAppearance(f *Face) *Appearance {
	if f.Appearance != nil {
		return f.Appearance
	}
	return o.Appearance
}

// Absorb moves donor's vertices, edges and faces into o and merges names.
// donor is left empty with AbsorbedInto set.
func (o *Object) Absorb(donor *Object) {
	if donor == nil || donor == o {
		return
	}
	o.Vertices = append(o.Vertices, donor.Vertices...)
	o.Edges = append(o.Edges, donor.Edges...)
	o.Faces = append(o.Faces, donor.Faces...)
	o.Name = MergeNames(o.Name, donor.Name)
	if o.Appearance == nil {
		o.Appearance = donor.Appearance
	}
	donor.Vertices = nil
	donor.Edges = nil
	donor.Faces = nil
	donor.AbsorbedInto = o
}

// RemoveFace drops f from the object's face list. The face's contours are
// not touched.
func (o *Object) RemoveFace(f *Face) bool {
	for i, g := range o.Faces {
		if g == f {
			o.Faces = append(o.Faces[:i], o.Faces[i+1:]...)
			return true
		}
	}
	return false
}

// HasFace reports whether f belongs to o.
func (o *Object) HasFace(f *Face) bool {
	for _, g := range o.Faces {
		if g == f {
			return true
		}
	}
	return false
}

// MergeNames joins two comma-separated name lists without duplicates.
func MergeNames(a, b string) string {
	seen := map[string]bool{}
	var out []string
	for _, list := range []string{a, b} {
		for _, n := range strings.Split(list, ",") {
			n = strings.TrimSpace(n)
			if n == "" || seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, n)
		}
	}
	return strings.Join(out, ",")
}
