package tessellate

import (
	"math"
	"slices"

	"honnef.co/go/curve"

	"github.com/chazu/pcbsolid/pkg/geom"
	"github.com/chazu/pcbsolid/pkg/trapezoid"
)

// domain collects the boundary of one face in the parameter plane, as
// sweep segments with x = v and y = u.
type domain struct {
	m        uvMap
	reversed bool
	eps      float64

	segs []trapezoid.Segment

	// uWound holds the net u travel (±360) of every loop that goes once
	// around the axis; vWound holds the starting u of every loop that goes
	// once around the tube.
	uWound []float64
	vWound []float64

	loops []loopPath
	refV  float64
}

type uv struct{ u, v float64 }

// loopPath is one unwrapped loop, closed back onto its first point.
type loopPath struct {
	path []uv
	netU float64
}

func (l loopPath) vRange() (lo, hi float64) {
	lo, hi = l.path[0].v, l.path[0].v
	for _, p := range l.path[1:] {
		lo, hi = min(lo, p.v), max(hi, p.v)
	}
	return lo, hi
}

func (l loopPath) shiftV(by float64) {
	if by == 0 {
		return
	}
	for i := range l.path {
		l.path[i].v -= by
	}
}

// addLoop projects one closed polyline (first point not repeated).
func (d *domain) addLoop(pts []geom.Vec) {
	if len(pts) < 2 {
		return
	}
	raw := make([]uv, len(pts))
	sing := make([]bool, len(pts))
	start := -1
	for i, p := range pts {
		raw[i].u, raw[i].v = d.m.toUV(p)
		sing[i] = d.m.singular(p)
		if !sing[i] && start < 0 {
			start = i
		}
	}
	if start < 0 {
		return
	}

	n := len(pts)
	path := []uv{raw[start]}
	for k := 1; k < n; k++ {
		i := (start + k) % n
		prev := path[len(path)-1]
		if sing[i] {
			j := i
			for sing[j] {
				j = (j + 1) % n
			}
			to := d.poleTravel(prev, raw[i].v, raw[j].u)
			path = append(path, uv{prev.u, raw[i].v}, uv{to, raw[i].v})
			continue
		}
		path = append(path, d.unwrap(raw[i], prev))
	}
	// Closing segment back to the first point.
	last := path[len(path)-1]
	closeAt := d.unwrap(raw[start], last)
	path = append(path, closeAt)

	netU := closeAt.u - path[0].u
	netV := closeAt.v - path[0].v
	if d.m.periodicU() && math.Abs(netU) > period/2 {
		d.uWound = append(d.uWound, netU)
	}
	if d.m.periodicV() && math.Abs(netV) > period/2 {
		d.vWound = append(d.vWound, wrap(path[0].u))
	}
	d.loops = append(d.loops, loopPath{path: path, netU: netU})
}

func (d *domain) axisWound(l loopPath) bool {
	return d.m.periodicU() && math.Abs(l.netU) > period/2
}

// place brings the loops of a face into one v period and adds their
// segments.
func (d *domain) place() {
	if d.m.periodicV() && len(d.loops) > 0 {
		d.placeV()
	}
	for _, l := range d.loops {
		for i := 0; i+1 < len(l.path); i++ {
			d.addSegment(l.path[i], l.path[i+1])
		}
	}
}

// placeV shifts loops by whole turns of v. With an axis-wound loop the face
// spans at most one turn from that loop towards its interior, so every
// other loop is moved into that turn. Otherwise loops are kept within half
// a turn of the first one.
func (d *domain) placeV() {
	ref := 0
	for i, l := range d.loops {
		if d.axisWound(l) {
			ref = i
			break
		}
	}
	r := d.loops[ref]
	d.refV = r.path[0].v
	if !d.axisWound(r) {
		for _, l := range d.loops {
			l.shiftV(period * math.Round((l.path[0].v-d.refV)/period))
		}
		return
	}
	// Travelling +u the interior lies towards +v, unless reversed.
	up := (r.netU > 0) != d.reversed
	lo, hi := r.vRange()
	for i, l := range d.loops {
		if i == ref {
			continue
		}
		a, b := l.vRange()
		if up {
			l.shiftV(period * math.Floor((a-lo+d.eps)/period))
		} else {
			l.shiftV(period * math.Ceil((b-hi-d.eps)/period))
		}
	}
}

// unwrap moves the periodic coordinates of p to within half a turn of prev.
func (d *domain) unwrap(p, prev uv) uv {
	if d.m.periodicU() {
		p.u += period * math.Round((prev.u-p.u)/period)
	}
	if d.m.periodicV() {
		p.v += period * math.Round((prev.v-p.v)/period)
	}
	return p
}

// poleTravel returns the u at which a boundary leaves the singular line at
// v, having arrived at prev and heading for a point with u = next. Along
// the line the face interior must stay on the boundary's left, which fixes
// the direction of travel.
func (d *domain) poleTravel(prev uv, v, next float64) float64 {
	high := v > prev.v
	step := math.Mod(next-prev.u, period)
	if step < 0 {
		step += period
	}
	if step <= d.eps || period-step <= d.eps {
		return prev.u
	}
	if high != d.reversed {
		// Travelling -u keeps -v on the left.
		return prev.u - (period - step)
	}
	return prev.u + step
}

// addSegment splits a parameter-plane segment at multiples of the u period
// and adds the pieces, shifted into [0, 360].
func (d *domain) addSegment(a, b uv) {
	if math.Abs(a.u-b.u) <= d.eps {
		// Constant u: horizontal in the sweep, never bounds a band.
		return
	}
	if !d.m.periodicU() {
		d.push(a, b)
		return
	}
	lo, hi := min(a.u, b.u), max(a.u, b.u)
	k0 := math.Floor(lo/period + 1e-12)
	k1 := math.Ceil(hi/period - 1e-12)
	for k := k0; k < k1; k++ {
		s0, s1 := max(lo, k*period), min(hi, (k+1)*period)
		if s1-s0 <= d.eps {
			continue
		}
		p, q := lerpU(a, b, s0), lerpU(a, b, s1)
		p.u -= k * period
		q.u -= k * period
		d.push(p, q)
	}
}

func lerpU(a, b uv, u float64) uv {
	t := (u - a.u) / (b.u - a.u)
	return uv{u, a.v + t*(b.v-a.v)}
}

func (d *domain) push(a, b uv) {
	d.segs = append(d.segs, trapezoid.Segment{P0: curve.Pt(a.v, a.u), P1: curve.Pt(b.v, b.u)})
}

// wrap maps an angle into [0, 360).
func wrap(a float64) float64 {
	a = math.Mod(a, period)
	if a < 0 {
		a += period
	}
	return a
}

// close places the loops and adds the synthetic edges that bound the face where its loops do
// not: the pole or apex a single axis-wound loop encloses, and the tube
// seam between pairs of tube-wound loops. It reports false when the loops
// cannot bound a region.
func (d *domain) close() bool {
	d.place()
	if len(d.uWound)%2 == 1 {
		lo, hi, hasLo, hasHi := d.m.poles()
		// Travelling +u the interior lies towards +v, unless reversed.
		toHigh := (d.uWound[0] > 0) != d.reversed
		switch {
		case toHigh && hasHi:
			d.push(uv{0, hi}, uv{period, hi})
		case !toHigh && hasLo:
			d.push(uv{0, lo}, uv{period, lo})
		default:
			return false
		}
	}
	if len(d.vWound) > 0 {
		if len(d.vWound)%2 == 1 {
			return false
		}
		slices.Sort(d.vWound)
		lo := d.refV - period/2
		for i := 0; i+1 < len(d.vWound); i += 2 {
			a, b := d.vWound[i], d.vWound[i+1]
			d.push(uv{a, lo}, uv{b, lo})
			d.push(uv{a, lo + period}, uv{b, lo + period})
		}
	}
	return true
}

// inRange reports whether a trapezoid lies within the surface's valid
// parameter range.
func (d *domain) inRange(t trapezoid.Trapezoid) bool {
	if d.m.periodicU() && (t.Y0 < -d.eps || t.Y1 > period+d.eps) {
		return false
	}
	lo, hi, hasLo, hasHi := d.m.poles()
	xmin, xmax := min(t.XL0, t.XL1), max(t.XR0, t.XR1)
	if hasLo && xmin < lo-d.eps {
		return false
	}
	if hasHi && xmax > hi+d.eps {
		return false
	}
	return true
}
