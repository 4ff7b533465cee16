// Package quad implements the Guibas–Stolfi quad-edge structure.
//
// An undirected edge is stored as one record in an Arena. A handle
// (EdgeRef) names the record together with a rotation 0..3: rotation 0 is
// the primal edge, 1 its dual (Rot), 2 the reversed primal (Sym) and 3 the
// reversed dual (InvRot). Every rotation carries its own Onext link, so a
// single Splice primitive is enough to build and dismantle any orientable
// subdivision.
//
// The arena is generic over the slot payloads: V is stored on rotations 0
// and 2 (origin and destination vertex), F on rotations 1 and 3 (right and
// left face) and G once per undirected primal/dual pair (edge geometry).
package quad

import (
	"fmt"
	"iter"
)

// EdgeRef is a directed, oriented edge handle. The zero value is the nil
// handle; record 0 of every arena is reserved for it.
type EdgeRef struct {
	rec int32
	rot uint8
}

// Nil is the nil edge handle.
var Nil EdgeRef

// IsNil reports whether e is the nil handle.
func (e EdgeRef) IsNil() bool { return e.rec == 0 }

// Rotation returns the rotation (0..3) of e within its record.
func (e EdgeRef) Rotation() int { return int(e.rot) }

// Record returns the arena index of the record e addresses.
func (e EdgeRef) Record() int { return int(e.rec) }

// Primal reports whether e is a primal (vertex-to-vertex) edge.
func (e EdgeRef) Primal() bool { return e.rot&1 == 0 }

// Rot returns the dual edge rotated 90° counterclockwise.
func (e EdgeRef) Rot() EdgeRef { return EdgeRef{e.rec, (e.rot + 1) & 3} }

// Sym returns the same undirected edge with the opposite direction.
func (e EdgeRef) Sym() EdgeRef { return EdgeRef{e.rec, (e.rot + 2) & 3} }

// InvRot returns the dual edge rotated 90° clockwise (Rot⁻¹).
func (e EdgeRef) InvRot() EdgeRef { return EdgeRef{e.rec, (e.rot + 3) & 3} }

// Canonical returns the rotation-0 or rotation-1 view of e, i.e. the
// direction a geometry slot is defined in.
func (e EdgeRef) Canonical() EdgeRef { return EdgeRef{e.rec, e.rot & 1} }

func (e EdgeRef) String() string {
	if e.IsNil() {
		return "edge(nil)"
	}
	return fmt.Sprintf("edge(%d.%d)", e.rec, e.rot)
}

type record[V, F, G any] struct {
	next  [4]EdgeRef
	verts [2]V // rotation 0 (Org) and 2 (Dest)
	faces [2]F // rotation 1 (Right) and 3 (Left)
	geom  [2]G // shared by rotations 0/2 and 1/3
	mark  uint64
	id    uint64
	live  bool
}

// Arena owns edge records and the counters that used to be process
// globals: the edge id sequence and the enumeration mark generation.
// An Arena is not safe for concurrent use.
type Arena[V, F, G any] struct {
	recs    []record[V, F, G]
	free    []int32
	nextID  uint64
	markGen uint64
	walking int
	live    int
}

// NewArena returns an empty arena.
func NewArena[V, F, G any]() *Arena[V, F, G] {
	return &Arena[V, F, G]{recs: make([]record[V, F, G], 1, 64)}
}

// Len returns the number of live undirected edges.
func (a *Arena[V, F, G]) Len() int { return a.live }

func (a *Arena[V, F, G]) rec(e EdgeRef) *record[V, F, G] {
	if e.rec <= 0 || int(e.rec) >= len(a.recs) {
		panic(fmt.Sprintf("quad: invalid %v", e))
	}
	return &a.recs[e.rec]
}

// MakeEdge allocates a new undirected edge. The primal views form
// degenerate one-edge rings (Onext(e) == e, Onext(Sym(e)) == Sym(e)) and
// the dual views form a single two-edge ring, as for an isolated edge on a
// sphere.
func (a *Arena[V, F, G]) MakeEdge() EdgeRef {
	var idx int32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
		a.recs[idx] = record[V, F, G]{}
	} else {
		a.recs = append(a.recs, record[V, F, G]{})
		idx = int32(len(a.recs) - 1)
	}
	r := &a.recs[idx]
	r.next[0] = EdgeRef{idx, 0}
	r.next[1] = EdgeRef{idx, 3}
	r.next[2] = EdgeRef{idx, 2}
	r.next[3] = EdgeRef{idx, 1}
	a.nextID++
	r.id = a.nextID
	r.live = true
	a.live++
	return EdgeRef{idx, 0}
}

// Live reports whether e addresses an allocated record.
func (a *Arena[V, F, G]) Live(e EdgeRef) bool {
	if e.rec <= 0 || int(e.rec) >= len(a.recs) {
		return false
	}
	return a.recs[e.rec].live
}

// ID returns the monotonically increasing id assigned when the edge was made.
func (a *Arena[V, F, G]) ID(e EdgeRef) uint64 { return a.rec(e).id }

// Onext returns the next edge counterclockwise around the origin of e.
func (a *Arena[V, F, G]) Onext(e EdgeRef) EdgeRef { return a.rec(e).next[e.rot] }

func (a *Arena[V, F, G]) setOnext(e, n EdgeRef) { a.rec(e).next[e.rot] = n }

// Oprev returns the next edge clockwise around the origin of e.
func (a *Arena[V, F, G]) Oprev(e EdgeRef) EdgeRef { return a.Onext(e.Rot()).Rot() }

// Lnext returns the next edge counterclockwise around the left face of e.
func (a *Arena[V, F, G]) Lnext(e EdgeRef) EdgeRef { return a.Onext(e.InvRot()).Rot() }

// Lprev returns the previous edge around the left face of e.
func (a *Arena[V, F, G]) Lprev(e EdgeRef) EdgeRef { return a.Onext(e).Sym() }

// Rnext returns the next edge counterclockwise around the right face of e.
func (a *Arena[V, F, G]) Rnext(e EdgeRef) EdgeRef { return a.Onext(e.Rot()).InvRot() }

// Rprev returns the previous edge around the right face of e.
func (a *Arena[V, F, G]) Rprev(e EdgeRef) EdgeRef { return a.Onext(e.Sym()) }

// Dnext returns the next edge counterclockwise around the destination of e.
func (a *Arena[V, F, G]) Dnext(e EdgeRef) EdgeRef { return a.Onext(e.Sym()).Sym() }

// Dprev returns the next edge clockwise around the destination of e.
func (a *Arena[V, F, G]) Dprev(e EdgeRef) EdgeRef { return a.Onext(e.InvRot()).InvRot() }

// Splice exchanges the Onext successors of a and b and, correspondingly,
// those of Rot(Onext(a)) and Rot(Onext(b)). If a and b belong to distinct
// origin rings the rings are merged; if they share one it is split in two.
// Splice is its own inverse.
func (a *Arena[V, F, G]) Splice(x, y EdgeRef) {
	alpha := a.Onext(x).Rot()
	beta := a.Onext(y).Rot()

	xn, yn := a.Onext(x), a.Onext(y)
	an, bn := a.Onext(alpha), a.Onext(beta)

	a.setOnext(x, yn)
	a.setOnext(y, xn)
	a.setOnext(alpha, bn)
	a.setOnext(beta, an)
}

// DestroyEdge detaches e and Sym(e) from their origin rings and releases
// the record. Handles to the record become invalid.
func (a *Arena[V, F, G]) DestroyEdge(e EdgeRef) {
	if !a.Live(e) {
		return
	}
	if a.Onext(e) != e {
		a.Splice(e, a.Oprev(e))
	}
	s := e.Sym()
	if a.Onext(s) != s {
		a.Splice(s, a.Oprev(s))
	}
	r := a.rec(e)
	*r = record[V, F, G]{}
	a.free = append(a.free, e.rec)
	a.live--
}

// ---------------------------------------------------------------------------
// Slot accessors
// ---------------------------------------------------------------------------

// Org returns the origin vertex data of the primal edge e.
func (a *Arena[V, F, G]) Org(e EdgeRef) V {
	if !e.Primal() {
		panic(fmt.Sprintf("quad: Org of dual %v", e))
	}
	return a.rec(e).verts[e.rot>>1]
}

// SetOrg stores the origin vertex data of the primal edge e.
func (a *Arena[V, F, G]) SetOrg(e EdgeRef, v V) {
	if !e.Primal() {
		panic(fmt.Sprintf("quad: SetOrg of dual %v", e))
	}
	a.rec(e).verts[e.rot>>1] = v
}

// Dest returns the destination vertex data of the primal edge e.
func (a *Arena[V, F, G]) Dest(e EdgeRef) V { return a.Org(e.Sym()) }

// SetDest stores the destination vertex data of the primal edge e.
func (a *Arena[V, F, G]) SetDest(e EdgeRef, v V) { a.SetOrg(e.Sym(), v) }

// Right returns the face data on the right of the primal edge e.
func (a *Arena[V, F, G]) Right(e EdgeRef) F {
	d := e.Rot()
	if d.Primal() {
		panic(fmt.Sprintf("quad: Right of dual %v", e))
	}
	return a.rec(d).faces[d.rot>>1]
}

// SetRight stores the face data on the right of the primal edge e.
func (a *Arena[V, F, G]) SetRight(e EdgeRef, f F) {
	d := e.Rot()
	if d.Primal() {
		panic(fmt.Sprintf("quad: SetRight of dual %v", e))
	}
	a.rec(d).faces[d.rot>>1] = f
}

// Left returns the face data on the left of the primal edge e.
func (a *Arena[V, F, G]) Left(e EdgeRef) F { return a.Right(e.Sym()) }

// SetLeft stores the face data on the left of the primal edge e.
func (a *Arena[V, F, G]) SetLeft(e EdgeRef, f F) { a.SetRight(e.Sym(), f) }

// Geom returns the undirected geometry slot shared by e and Sym(e).
func (a *Arena[V, F, G]) Geom(e EdgeRef) G { return a.rec(e).geom[e.rot&1] }

// SetGeom stores the undirected geometry slot shared by e and Sym(e).
func (a *Arena[V, F, G]) SetGeom(e EdgeRef, g G) { a.rec(e).geom[e.rot&1] = g }

// ---------------------------------------------------------------------------
// Enumeration
// ---------------------------------------------------------------------------

// Enumerate calls visit once for every undirected edge reachable from
// start through Sym and Onext. The direction handed to visit is the one the
// walk first met. The outermost walk stamps a fresh mark generation, so an
// interrupted walk leaves nothing behind. A walk started while another is
// running keeps its own visited set and leaves the marks alone.
func (a *Arena[V, F, G]) Enumerate(start EdgeRef, visit func(EdgeRef)) {
	for e := range a.All(start) {
		visit(e)
	}
}

// All returns a restartable iterator over the undirected edges reachable
// from start. See Enumerate.
func (a *Arena[V, F, G]) All(start EdgeRef) iter.Seq[EdgeRef] {
	return func(yield func(EdgeRef) bool) {
		if start.IsNil() || !a.Live(start) {
			return
		}
		visited := a.visitor()
		a.walking++
		defer func() { a.walking-- }()

		if !start.Primal() {
			start = start.Rot()
		}
		stack := []EdgeRef{start}
		for len(stack) > 0 {
			e := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if visited(e) {
				continue
			}
			if !yield(e) {
				return
			}
			stack = append(stack, a.Onext(e.Sym()), a.Onext(e))
		}
	}
}

// visitor returns a function that reports whether the record of e was
// already seen by the walk and marks it otherwise.
func (a *Arena[V, F, G]) visitor() func(EdgeRef) bool {
	if a.walking > 0 {
		seen := make(map[int32]struct{})
		return func(e EdgeRef) bool {
			if _, ok := seen[e.rec]; ok {
				return true
			}
			seen[e.rec] = struct{}{}
			return false
		}
	}
	a.markGen++
	gen := a.markGen
	return func(e EdgeRef) bool {
		r := a.rec(e)
		if r.mark == gen {
			return true
		}
		r.mark = gen
		return false
	}
}

// Ring returns the edges of the Onext ring through e, starting with e.
func (a *Arena[V, F, G]) Ring(e EdgeRef) []EdgeRef {
	var ring []EdgeRef
	x := e
	for {
		ring = append(ring, x)
		x = a.Onext(x)
		if x == e || len(ring) > a.live*4+4 {
			break
		}
	}
	return ring
}

// Loop returns the edges of the Lnext cycle through e, starting with e.
func (a *Arena[V, F, G]) Loop(e EdgeRef) []EdgeRef {
	var loop []EdgeRef
	x := e
	for {
		loop = append(loop, x)
		x = a.Lnext(x)
		if x == e || len(loop) > a.live*4+4 {
			break
		}
	}
	return loop
}
