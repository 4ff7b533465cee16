package tessellate

import (
	"math"
	"slices"

	"github.com/chazu/pcbsolid/pkg/geom"
	"github.com/chazu/pcbsolid/pkg/model"
)

// Linearize returns the polyline of the directed edge e, from Org(e) to
// Dest(e). The polyline of the undirected edge is cached on its EdgeInfo.
func (en *Engine) Linearize(e model.EdgeRef) []geom.Vec {
	a := en.Session.Arena
	fwd := e.Canonical()
	info := a.Geom(fwd)
	p, q := a.Org(fwd).Pos, a.Dest(fwd).Pos

	var pts []geom.Vec
	if info == nil {
		pts = []geom.Vec{p, q}
	} else if cached, ok := info.Linearized(); ok {
		pts = cached
	} else {
		pts = en.sample(info, p, q)
		info.SetLinearized(pts)
	}
	if e == fwd {
		return pts
	}
	out := slices.Clone(pts)
	slices.Reverse(out)
	return out
}

// sample linearizes info running from p to q.
func (en *Engine) sample(info *model.EdgeInfo, p, q geom.Vec) []geom.Vec {
	switch c := info.Curve.(type) {
	case model.Circle:
		return en.arc(c.Placement, c.Radius, c.Radius, p, q, info.SameSense)
	case model.Ellipse:
		return en.arc(c.Placement, c.SemiAxis1, c.SemiAxis2, p, q, info.SameSense)
	case model.BSpline:
		// Control polygon, pinned to the end vertices.
		n := len(c.ControlPoints)
		if n < 3 {
			return []geom.Vec{p, q}
		}
		inner := slices.Clone(c.ControlPoints[1 : n-1])
		if !info.SameSense {
			slices.Reverse(inner)
		}
		return append(append([]geom.Vec{p}, inner...), q)
	default:
		return []geom.Vec{p, q}
	}
}

// arc samples an elliptical arc with semi-axes a (along RefDir) and b. A
// closed edge (p == q) is a full turn.
func (en *Engine) arc(pl geom.Placement, a, b float64, p, q geom.Vec, sense bool) []geom.Vec {
	if a <= 0 || b <= 0 {
		return []geom.Vec{p, q}
	}
	f := newFrame(pl)
	px, py, _ := f.local(p)
	qx, qy, _ := f.local(q)
	t0 := math.Atan2(py/b, px/a)
	t1 := math.Atan2(qy/b, qx/a)

	sweep := t1 - t0
	if sense {
		for sweep <= 1e-9 {
			sweep += 2 * math.Pi
		}
	} else {
		for sweep >= -1e-9 {
			sweep -= 2 * math.Pi
		}
	}
	n := int(math.Ceil(math.Abs(sweep)/(2*math.Pi)*float64(en.opts.SegmentsPerTurn) - 1e-9))
	n = max(1, n)

	pts := make([]geom.Vec, n+1)
	pts[0], pts[n] = p, q
	for i := 1; i < n; i++ {
		t := t0 + sweep*float64(i)/float64(n)
		pts[i] = f.point(a*math.Cos(t), b*math.Sin(t), 0)
	}
	return pts
}
