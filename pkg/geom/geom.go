// Package geom holds the small amount of 3D math shared by the solid
// builder, the tessellator and the STEP reader: rigid placements, 4×4
// transforms and the board coordinate convention.
package geom

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Eps is the length below which two model-space points are considered equal.
const Eps = 1e-9

// Vec is the vector type used throughout the model.
type Vec = v3.Vec

// V is shorthand for constructing a Vec.
func V(x, y, z float64) Vec { return Vec{X: x, Y: y, Z: z} }

var (
	XAxis = V(1, 0, 0)
	YAxis = V(0, 1, 0)
	ZAxis = V(0, 0, 1)
)

// Near reports whether a and b are closer than tol.
func Near(a, b Vec, tol float64) bool {
	return a.Sub(b).Length() <= tol
}

// Perpendicular returns some unit vector orthogonal to n.
func Perpendicular(n Vec) Vec {
	ref := XAxis
	if math.Abs(n.X) > 0.9 {
		ref = YAxis
	}
	return ref.Sub(n.MulScalar(ref.Dot(n))).Normalize()
}

// ---------------------------------------------------------------------------
// Placement
// ---------------------------------------------------------------------------

// Placement is a right-handed local frame: Axis is the local Z direction and
// RefDir the local X direction. RefDir need not be exactly orthogonal to
// Axis; Frame projects it.
type Placement struct {
	Origin Vec
	Axis   Vec
	RefDir Vec
}

// DefaultPlacement is the identity frame at the origin.
var DefaultPlacement = Placement{Axis: ZAxis, RefDir: XAxis}

// Frame returns the orthonormal local axes (x, y, z).
func (p Placement) Frame() (x, y, z Vec) {
	z = p.Axis
	if z.Length() < Eps {
		z = ZAxis
	}
	z = z.Normalize()
	x = p.RefDir
	x = x.Sub(z.MulScalar(x.Dot(z)))
	if x.Length() < Eps {
		x = Perpendicular(z)
	}
	x = x.Normalize()
	y = z.Cross(x)
	return x, y, z
}

// Matrix returns the transform mapping local coordinates into the parent
// frame.
func (p Placement) Matrix() Transform {
	x, y, z := p.Frame()
	return Transform{
		x.X, x.Y, x.Z, 0,
		y.X, y.Y, y.Z, 0,
		z.X, z.Y, z.Z, 0,
		p.Origin.X, p.Origin.Y, p.Origin.Z, 1,
	}
}

// ToLocal expresses the world point q in the placement's frame.
func (p Placement) ToLocal(q Vec) Vec {
	x, y, z := p.Frame()
	d := q.Sub(p.Origin)
	return V(d.Dot(x), d.Dot(y), d.Dot(z))
}

// FromLocal maps local coordinates back into world space.
func (p Placement) FromLocal(l Vec) Vec {
	x, y, z := p.Frame()
	return p.Origin.Add(x.MulScalar(l.X)).Add(y.MulScalar(l.Y)).Add(z.MulScalar(l.Z))
}

// Transformed returns the placement moved by t.
func (p Placement) Transformed(t Transform) Placement {
	return Placement{
		Origin: t.Point(p.Origin),
		Axis:   t.Dir(p.Axis).Normalize(),
		RefDir: t.Dir(p.RefDir).Normalize(),
	}
}

// ---------------------------------------------------------------------------
// Transform
// ---------------------------------------------------------------------------

// Transform is a 4×4 affine matrix stored column-major, the layout used by
// OpenGL-style consumers of the render buffers.
type Transform [16]float64

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
}

// Translation returns a pure translation by d.
func Translation(d Vec) Transform {
	t := Identity()
	t[12], t[13], t[14] = d.X, d.Y, d.Z
	return t
}

func (t Transform) at(row, col int) float64 { return t[col*4+row] }

// Mul returns t·o (o applied first).
func (t Transform) Mul(o Transform) Transform {
	var r Transform
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var s float64
			for k := 0; k < 4; k++ {
				s += t.at(row, k) * o.at(k, col)
			}
			r[col*4+row] = s
		}
	}
	return r
}

// Point applies t to a position.
func (t Transform) Point(p Vec) Vec {
	return V(
		t[0]*p.X+t[4]*p.Y+t[8]*p.Z+t[12],
		t[1]*p.X+t[5]*p.Y+t[9]*p.Z+t[13],
		t[2]*p.X+t[6]*p.Y+t[10]*p.Z+t[14],
	)
}

// Dir applies the linear part of t to a direction.
func (t Transform) Dir(d Vec) Vec {
	return V(
		t[0]*d.X+t[4]*d.Y+t[8]*d.Z,
		t[1]*d.X+t[5]*d.Y+t[9]*d.Z,
		t[2]*d.X+t[6]*d.Y+t[10]*d.Z,
	)
}

// Inverse returns the inverse of an affine transform. The linear part must
// be invertible; a singular matrix yields the identity.
func (t Transform) Inverse() Transform {
	a, b, c := t.at(0, 0), t.at(0, 1), t.at(0, 2)
	d, e, f := t.at(1, 0), t.at(1, 1), t.at(1, 2)
	g, h, i := t.at(2, 0), t.at(2, 1), t.at(2, 2)

	A := e*i - f*h
	B := -(d*i - f*g)
	C := d*h - e*g
	det := a*A + b*B + c*C
	if math.Abs(det) < 1e-300 {
		return Identity()
	}
	inv := 1 / det
	m00, m01, m02 := A*inv, -(b*i-c*h)*inv, (b*f-c*e)*inv
	m10, m11, m12 := B*inv, (a*i-c*g)*inv, -(a*f-c*d)*inv
	m20, m21, m22 := C*inv, -(a*h-b*g)*inv, (a*e-b*d)*inv

	tx, ty, tz := t[12], t[13], t[14]
	return Transform{
		m00, m10, m20, 0,
		m01, m11, m21, 0,
		m02, m12, m22, 0,
		-(m00*tx + m01*ty + m02*tz),
		-(m10*tx + m11*ty + m12*tz),
		-(m20*tx + m21*ty + m22*tz),
		1,
	}
}

// IsIdentity reports whether t is the identity within tol.
func (t Transform) IsIdentity(tol float64) bool {
	id := Identity()
	for k := range t {
		if math.Abs(t[k]-id[k]) > tol {
			return false
		}
	}
	return true
}

// Mirrors reports whether t reverses orientation.
func (t Transform) Mirrors() bool {
	x := V(t[0], t[1], t[2])
	y := V(t[4], t[5], t[6])
	z := V(t[8], t[9], t[10])
	return x.Cross(y).Dot(z) < 0
}

// ---------------------------------------------------------------------------
// Board frame
// ---------------------------------------------------------------------------

// BoardFrame converts between board coordinates (Y grows downwards, the
// convention of the 2D editor) and model coordinates (right handed, Y up,
// millimetres). Height is the board's Y extent; the flip is x' = x,
// y' = Height - y.
type BoardFrame struct {
	Height float64
}

// Point maps a board-space point at height z into model space.
func (f BoardFrame) Point(x, y, z float64) Vec { return V(x, f.Height-y, z) }

// Dir maps a board-space direction into model space.
func (f BoardFrame) Dir(d Vec) Vec { return V(d.X, -d.Y, d.Z) }

// FromModel maps a model-space point back into board space.
func (f BoardFrame) FromModel(p Vec) Vec { return V(p.X, f.Height-p.Y, p.Z) }
