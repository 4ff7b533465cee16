// Package trapezoid decomposes the interior of a set of closed polygons
// into horizontal trapezoids with a sweep over y, using the even-odd fill
// rule.
//
// The sweep stops at every segment end point, at every requested cut line
// and at crossings between segments. Between two stops the active segments
// are ordered by x and paired off; vertically adjacent trapezoids bounded by
// the same two segments are then merged unless a cut line separates them.
package trapezoid

import (
	"math"
	"slices"

	"honnef.co/go/curve"
)

// DefaultEps is the default snapping distance between sweep stops.
const DefaultEps = 1e-9

// Segment is one directed polygon edge. Direction is irrelevant to the
// even-odd rule.
type Segment = curve.Line

// Trapezoid spans [XL0, XR0] at Y0 and [XL1, XR1] at Y1, with Y0 < Y1.
// Left and Right are the indices of the bounding input segments.
type Trapezoid struct {
	Y0, Y1   float64
	XL0, XR0 float64
	XL1, XR1 float64

	Left, Right int
}

// Height returns Y1 - Y0.
func (t Trapezoid) Height() float64 { return t.Y1 - t.Y0 }

// Corners returns the four corners in strip order: bottom-left,
// bottom-right, top-left, top-right.
func (t Trapezoid) Corners() [4]curve.Point {
	return [4]curve.Point{
		curve.Pt(t.XL0, t.Y0),
		curve.Pt(t.XR0, t.Y0),
		curve.Pt(t.XL1, t.Y1),
		curve.Pt(t.XR1, t.Y1),
	}
}

// Options tune a sweep.
type Options struct {
	// Eps snaps stops closer than Eps together and drops bands thinner
	// than Eps. Zero selects DefaultEps.
	Eps float64

	// Cuts are extra y values at which every trapezoid is split, e.g. to
	// bound the parametric length of a strip on a curved surface.
	Cuts []float64
}

// Sweep decomposes the even-odd interior of segs.
func Sweep(segs []Segment, opts Options) []Trapezoid {
	eps := opts.Eps
	if eps <= 0 {
		eps = DefaultEps
	}

	var live []int
	var ys []float64
	for i, s := range segs {
		if math.Abs(s.P1.Y-s.P0.Y) <= eps {
			continue // horizontal edges never bound a band
		}
		live = append(live, i)
		ys = append(ys, s.P0.Y, s.P1.Y)
	}
	if len(live) < 2 {
		return nil
	}
	lo, hi := slices.Min(ys), slices.Max(ys)

	cuts := map[float64]bool{}
	for _, c := range opts.Cuts {
		if c > lo+eps && c < hi-eps {
			ys = append(ys, c)
			cuts[c] = true
		}
	}
	stops := snap(ys, eps)
	isCut := make([]bool, len(stops))
	for i, y := range stops {
		for c := range cuts {
			if math.Abs(c-y) <= eps {
				isCut[i] = true
			}
		}
	}

	sw := &sweeper{segs: segs, live: live, eps: eps}
	var out []Trapezoid
	// open holds the trapezoids touching the previous stop, for merging.
	var open []Trapezoid
	for j := 0; j+1 < len(stops); j++ {
		band := sw.band(stops[j], stops[j+1], 0)
		if j > 0 && !isCut[j] {
			band = mergeInto(open, band, &out, eps)
		} else {
			out = append(out, open...)
		}
		open = band
	}
	out = append(out, open...)
	return out
}

// snap sorts ys and collapses runs closer than eps.
func snap(ys []float64, eps float64) []float64 {
	slices.Sort(ys)
	var out []float64
	for _, y := range ys {
		if len(out) > 0 && y-out[len(out)-1] <= eps {
			continue
		}
		out = append(out, y)
	}
	return out
}

// mergeInto extends trapezoids of prev by those of next that share both
// bounding segments and meet at the common stop. Trapezoids of prev that
// do not continue are flushed to out. It returns the new open set.
func mergeInto(prev, next []Trapezoid, out *[]Trapezoid, eps float64) []Trapezoid {
	used := make([]bool, len(prev))
	merged := make([]Trapezoid, 0, len(next))
	for _, n := range next {
		joined := false
		for i, p := range prev {
			if used[i] || p.Left != n.Left || p.Right != n.Right || math.Abs(p.Y1-n.Y0) > eps {
				continue
			}
			if math.Abs(p.XL1-n.XL0) > eps || math.Abs(p.XR1-n.XR0) > eps {
				continue
			}
			used[i] = true
			p.Y1, p.XL1, p.XR1 = n.Y1, n.XL1, n.XR1
			merged = append(merged, p)
			joined = true
			break
		}
		if !joined {
			merged = append(merged, n)
		}
	}
	for i, p := range prev {
		if !used[i] {
			*out = append(*out, p)
		}
	}
	return merged
}

type sweeper struct {
	segs []Segment
	live []int
	eps  float64
}

// xAt returns the x coordinate of segment i at height y.
func (sw *sweeper) xAt(i int, y float64) float64 {
	s := sw.segs[i]
	t := (y - s.P0.Y) / (s.P1.Y - s.P0.Y)
	return s.P0.X + t*(s.P1.X-s.P0.X)
}

// spans reports whether segment i covers [y0, y1].
func (sw *sweeper) spans(i int, y0, y1 float64) bool {
	s := sw.segs[i]
	lo, hi := min(s.P0.Y, s.P1.Y), max(s.P0.Y, s.P1.Y)
	return lo <= y0+sw.eps && hi >= y1-sw.eps
}

// band returns the trapezoids between y0 and y1, splitting the band where
// active segments cross.
func (sw *sweeper) band(y0, y1 float64, depth int) []Trapezoid {
	if y1-y0 <= sw.eps {
		return nil
	}
	mid := (y0 + y1) / 2
	var act []int
	for _, i := range sw.live {
		if sw.spans(i, y0, y1) {
			act = append(act, i)
		}
	}
	slices.SortStableFunc(act, func(a, b int) int {
		xa, xb := sw.xAt(a, mid), sw.xAt(b, mid)
		switch {
		case xa < xb:
			return -1
		case xa > xb:
			return 1
		}
		return 0
	})

	if depth < 8 {
		for k := 0; k+1 < len(act); k++ {
			a, b := act[k], act[k+1]
			if sw.xAt(a, y0) > sw.xAt(b, y0)+sw.eps || sw.xAt(a, y1) > sw.xAt(b, y1)+sw.eps {
				if p, ok := sw.segs[a].CrossingPoint(sw.segs[b]); ok && p.Y > y0+sw.eps && p.Y < y1-sw.eps {
					return append(sw.band(y0, p.Y, depth+1), sw.band(p.Y, y1, depth+1)...)
				}
			}
		}
	}

	var out []Trapezoid
	for k := 0; k+1 < len(act); k += 2 {
		l, r := act[k], act[k+1]
		out = append(out, Trapezoid{
			Y0: y0, Y1: y1,
			XL0: sw.xAt(l, y0), XR0: sw.xAt(r, y0),
			XL1: sw.xAt(l, y1), XR1: sw.xAt(r, y1),
			Left: l, Right: r,
		})
	}
	return out
}
