// Package mesh holds render buffers produced by the tessellator.
package mesh

// Stride is the number of float32 values per interleaved vertex:
// position (x, y, z) followed by normal (nx, ny, nz).
const Stride = 6

// Strip is a run of Count consecutive vertices forming a triangle strip.
// A strip of 3 vertices is a single triangle.
type Strip struct {
	First int `json:"first"`
	Count int `json:"count"`
}

// Mesh is the render output for one face.
// All arrays are flat. Lines holds vertex index pairs tracing the outline of
// every strip, for wireframe display.
type Mesh struct {
	Interleaved []float32 `json:"interleaved"` // [x0,y0,z0,nx0,ny0,nz0, ...]
	Strips      []Strip   `json:"strips"`
	Lines       []uint32  `json:"lines"`
	Name        string    `json:"name"`
}

// Vertex is one unpacked interleaved vertex.
type Vertex struct {
	X, Y, Z    float64
	NX, NY, NZ float64
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Interleaved) / Stride
}

// TriangleCount returns the number of triangles spanned by all strips.
func (m *Mesh) TriangleCount() int {
	n := 0
	for _, s := range m.Strips {
		if s.Count >= 3 {
			n += s.Count - 2
		}
	}
	return n
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Interleaved) == 0
}

// At returns vertex i.
func (m *Mesh) At(i int) Vertex {
	b := m.Interleaved[i*Stride : i*Stride+Stride]
	return Vertex{
		X: float64(b[0]), Y: float64(b[1]), Z: float64(b[2]),
		NX: float64(b[3]), NY: float64(b[4]), NZ: float64(b[5]),
	}
}

// AddStrip appends vs as a new strip and traces its outline into Lines.
func (m *Mesh) AddStrip(vs ...Vertex) {
	first := m.VertexCount()
	for _, v := range vs {
		m.Interleaved = append(m.Interleaved,
			float32(v.X), float32(v.Y), float32(v.Z),
			float32(v.NX), float32(v.NY), float32(v.NZ))
	}
	m.Strips = append(m.Strips, Strip{First: first, Count: len(vs)})

	// Outline: strip order is left, right, left, right...; the boundary
	// visits evens ascending then odds descending.
	var ring []uint32
	for i := 0; i < len(vs); i += 2 {
		ring = append(ring, uint32(first+i))
	}
	start := len(vs) - 1
	if start%2 == 0 {
		start--
	}
	for i := start; i >= 1; i -= 2 {
		ring = append(ring, uint32(first+i))
	}
	for i := range ring {
		m.Lines = append(m.Lines, ring[i], ring[(i+1)%len(ring)])
	}
}

// Triangles returns the strips unrolled into triangle index triples with
// consistent winding, in the style of an indexed triangle mesh.
func (m *Mesh) Triangles() []uint32 {
	var idx []uint32
	for _, s := range m.Strips {
		for i := 0; i+2 < s.Count; i++ {
			a, b, c := uint32(s.First+i), uint32(s.First+i+1), uint32(s.First+i+2)
			if i%2 == 1 {
				a, b = b, a
			}
			idx = append(idx, a, b, c)
		}
	}
	return idx
}

// Append adds o's strips to m.
func (m *Mesh) Append(o *Mesh) {
	if o == nil {
		return
	}
	base := m.VertexCount()
	m.Interleaved = append(m.Interleaved, o.Interleaved...)
	for _, s := range o.Strips {
		m.Strips = append(m.Strips, Strip{First: s.First + base, Count: s.Count})
	}
	for _, l := range o.Lines {
		m.Lines = append(m.Lines, l+uint32(base))
	}
}
