package tessellate

import (
	"math"

	"github.com/chazu/pcbsolid/pkg/geom"
	"github.com/chazu/pcbsolid/pkg/model"
)

// period is the length of one turn in the angular parameters, in degrees.
const period = 360.0

const (
	deg = 180 / math.Pi
	rad = math.Pi / 180
)

// uvMap is the parameterization of one surface. Angles are in degrees.
// (u, v) is right handed with respect to the natural surface normal:
// travelling towards +u, +v lies on the left.
type uvMap interface {
	toUV(p geom.Vec) (u, v float64)
	eval(u, v float64) (p, n geom.Vec)

	periodicU() bool
	periodicV() bool

	// singular reports whether p is a point where u is undefined (a
	// sphere pole or a cone apex).
	singular(p geom.Vec) bool

	// poles returns the v values of the low and high singular lines and
	// whether each exists.
	poles() (lo, hi float64, hasLo, hasHi bool)

	// curved reports whether the surface needs cut lines along u.
	curved() bool

	// subdivideV reports whether strips need subdividing along v.
	subdivideV() bool
}

// frame caches a placement's orthonormal axes.
type frame struct {
	o, x, y, z geom.Vec
}

func newFrame(p geom.Placement) frame {
	x, y, z := p.Frame()
	return frame{o: p.Origin, x: x, y: y, z: z}
}

func (f frame) local(p geom.Vec) (float64, float64, float64) {
	d := p.Sub(f.o)
	return d.Dot(f.x), d.Dot(f.y), d.Dot(f.z)
}

func (f frame) point(lx, ly, lz float64) geom.Vec {
	return f.o.Add(f.x.MulScalar(lx)).Add(f.y.MulScalar(ly)).Add(f.z.MulScalar(lz))
}

func (f frame) dir(lx, ly, lz float64) geom.Vec {
	return f.x.MulScalar(lx).Add(f.y.MulScalar(ly)).Add(f.z.MulScalar(lz))
}

// angle returns atan2(y, x) in degrees, in [0, 360).
func angle(y, x float64) float64 {
	a := math.Atan2(y, x) * deg
	if a < 0 {
		a += period
	}
	if a >= period {
		a -= period
	}
	return a
}

func mapFor(s model.Surface) (uvMap, bool) {
	switch s := s.(type) {
	case model.Plane:
		return planeMap{newFrame(s.Placement)}, true
	case model.Cylinder:
		return cylinderMap{newFrame(s.Placement), s.Radius}, true
	case model.Cone:
		return coneMap{newFrame(s.Placement), s.Radius, s.SemiAngle}, true
	case model.Torus:
		return torusMap{newFrame(s.Placement), s.MajorRadius, s.MinorRadius}, true
	case model.Sphere:
		return sphereMap{newFrame(s.Placement), s.Radius}, true
	}
	return nil, false
}

// Plane: signed in-plane distances from the origin.
type planeMap struct{ f frame }

func (m planeMap) toUV(p geom.Vec) (float64, float64) {
	x, y, _ := m.f.local(p)
	return x, y
}

func (m planeMap) eval(u, v float64) (geom.Vec, geom.Vec) {
	return m.f.point(u, v, 0), m.f.z
}

func (planeMap) periodicU() bool                       { return false }
func (planeMap) periodicV() bool                       { return false }
func (planeMap) singular(geom.Vec) bool                { return false }
func (planeMap) poles() (float64, float64, bool, bool) { return 0, 0, false, false }
func (planeMap) curved() bool                          { return false }
func (planeMap) subdivideV() bool                      { return false }

// Cylinder: angle around the axis and axial distance.
type cylinderMap struct {
	f frame
	r float64
}

func (m cylinderMap) toUV(p geom.Vec) (float64, float64) {
	x, y, z := m.f.local(p)
	return angle(y, x), z
}

func (m cylinderMap) eval(u, v float64) (geom.Vec, geom.Vec) {
	c, s := math.Cos(u*rad), math.Sin(u*rad)
	return m.f.point(m.r*c, m.r*s, v), m.f.dir(c, s, 0)
}

func (cylinderMap) periodicU() bool                       { return true }
func (cylinderMap) periodicV() bool                       { return false }
func (cylinderMap) singular(geom.Vec) bool                { return false }
func (cylinderMap) poles() (float64, float64, bool, bool) { return 0, 0, false, false }
func (cylinderMap) curved() bool                          { return true }
func (cylinderMap) subdivideV() bool                      { return false }

// Cone: angle around the axis and axial distance; the radius grows by
// tan(semi-angle) per unit of v.
type coneMap struct {
	f    frame
	r    float64
	semi float64
}

func (m coneMap) radius(v float64) float64 { return m.r + v*math.Tan(m.semi) }

func (m coneMap) toUV(p geom.Vec) (float64, float64) {
	x, y, z := m.f.local(p)
	return angle(y, x), z
}

func (m coneMap) eval(u, v float64) (geom.Vec, geom.Vec) {
	c, s := math.Cos(u*rad), math.Sin(u*rad)
	r := m.radius(v)
	ca, sa := math.Cos(m.semi), math.Sin(m.semi)
	return m.f.point(r*c, r*s, v), m.f.dir(c*ca, s*ca, -sa)
}

func (m coneMap) apex() (float64, bool) {
	t := math.Tan(m.semi)
	if math.Abs(t) < 1e-12 {
		return 0, false
	}
	return -m.r / t, true
}

func (m coneMap) singular(p geom.Vec) bool {
	x, y, _ := m.f.local(p)
	return math.Hypot(x, y) < 1e-9*max(1, m.r)
}

func (m coneMap) poles() (float64, float64, bool, bool) {
	a, ok := m.apex()
	if !ok {
		return 0, 0, false, false
	}
	if m.semi > 0 {
		return a, 0, true, false
	}
	return 0, a, false, true
}

func (coneMap) periodicU() bool  { return true }
func (coneMap) periodicV() bool  { return false }
func (coneMap) curved() bool     { return true }
func (coneMap) subdivideV() bool { return false }

// Torus: angle around the main axis and angle around the tube.
type torusMap struct {
	f     frame
	major float64
	minor float64
}

func (m torusMap) toUV(p geom.Vec) (float64, float64) {
	x, y, z := m.f.local(p)
	return angle(y, x), angle(z, math.Hypot(x, y)-m.major)
}

func (m torusMap) eval(u, v float64) (geom.Vec, geom.Vec) {
	cu, su := math.Cos(u*rad), math.Sin(u*rad)
	cv, sv := math.Cos(v*rad), math.Sin(v*rad)
	r := m.major + m.minor*cv
	return m.f.point(r*cu, r*su, m.minor*sv), m.f.dir(cv*cu, cv*su, sv)
}

func (torusMap) periodicU() bool                       { return true }
func (torusMap) periodicV() bool                       { return true }
func (torusMap) singular(geom.Vec) bool                { return false }
func (torusMap) poles() (float64, float64, bool, bool) { return 0, 0, false, false }
func (torusMap) curved() bool                          { return true }
func (torusMap) subdivideV() bool                      { return true }

// Sphere: longitude and latitude.
type sphereMap struct {
	f frame
	r float64
}

func (m sphereMap) toUV(p geom.Vec) (float64, float64) {
	x, y, z := m.f.local(p)
	l := math.Sqrt(x*x + y*y + z*z)
	if l == 0 {
		return 0, 0
	}
	return angle(y, x), math.Asin(max(-1, min(1, z/l))) * deg
}

func (m sphereMap) eval(u, v float64) (geom.Vec, geom.Vec) {
	cu, su := math.Cos(u*rad), math.Sin(u*rad)
	cv, sv := math.Cos(v*rad), math.Sin(v*rad)
	n := m.f.dir(cv*cu, cv*su, sv)
	return m.f.o.Add(n.MulScalar(m.r)), n
}

func (m sphereMap) singular(p geom.Vec) bool {
	x, y, _ := m.f.local(p)
	return math.Hypot(x, y) < 1e-9*max(1, m.r)
}

func (sphereMap) poles() (float64, float64, bool, bool) { return -90, 90, true, true }
func (sphereMap) periodicU() bool                       { return true }
func (sphereMap) periodicV() bool                       { return false }
func (sphereMap) curved() bool                          { return true }
func (sphereMap) subdivideV() bool                      { return true }
