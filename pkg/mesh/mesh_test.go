package mesh

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quad() *Mesh {
	m := &Mesh{}
	m.AddStrip(
		Vertex{X: 0, Y: 0, NZ: 1},
		Vertex{X: 1, Y: 0, NZ: 1},
		Vertex{X: 0, Y: 1, NZ: 1},
		Vertex{X: 1, Y: 1, NZ: 1},
	)
	return m
}

// --- Mesh helper method tests ---

func TestMeshVertexCount(t *testing.T) {
	tests := []struct {
		name string
		mesh *Mesh
		want int
	}{
		{"empty", &Mesh{}, 0},
		{"one vertex", &Mesh{Interleaved: []float32{1, 2, 3, 0, 0, 1}}, 1},
		{"quad strip", quad(), 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.mesh.VertexCount())
		})
	}
}

func TestMeshTriangleCount(t *testing.T) {
	tests := []struct {
		name   string
		strips []Strip
		want   int
	}{
		{"empty", nil, 0},
		{"one triangle", []Strip{{0, 3}}, 1},
		{"quad", []Strip{{0, 4}}, 2},
		{"quad and triangle", []Strip{{0, 4}, {4, 3}}, 3},
		{"degenerate strip", []Strip{{0, 2}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Strips: tt.strips}
			assert.Equal(t, tt.want, m.TriangleCount())
		})
	}
}

func TestMeshIsEmpty(t *testing.T) {
	assert.True(t, (&Mesh{}).IsEmpty())
	assert.False(t, quad().IsEmpty())
}

func TestAddStripOutline(t *testing.T) {
	m := quad()
	// boundary 0 → 2 → 3 → 1 → 0
	assert.Equal(t, []uint32{0, 2, 2, 3, 3, 1, 1, 0}, m.Lines)

	m.AddStrip(Vertex{}, Vertex{X: 1}, Vertex{Y: 1})
	assert.Equal(t, []uint32{4, 6, 6, 5, 5, 4}, m.Lines[8:])
}

func TestTrianglesWinding(t *testing.T) {
	m := quad()
	idx := m.Triangles()
	require.Len(t, idx, 6)
	for i := 0; i < len(idx); i += 3 {
		a, b, c := m.At(int(idx[i])), m.At(int(idx[i+1])), m.At(int(idx[i+2]))
		cross := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
		assert.Greater(t, cross, 0.0, "triangle %d must be counterclockwise", i/3)
	}
}

func TestAppend(t *testing.T) {
	m := quad()
	m.Append(quad())
	assert.Equal(t, 8, m.VertexCount())
	assert.Equal(t, Strip{First: 4, Count: 4}, m.Strips[1])
	assert.Equal(t, uint32(4), m.Lines[8])
	m.Append(nil)
	assert.Equal(t, 8, m.VertexCount())
}

// --- STL / bounds ---

func TestToTrianglesDropsDegenerate(t *testing.T) {
	m := quad()
	m.AddStrip(Vertex{}, Vertex{X: 1}, Vertex{X: 2})
	assert.Len(t, ToTriangles(m), 2)
}

func TestBounds(t *testing.T) {
	box, ok := Bounds(quad(), nil)
	require.True(t, ok)
	assert.Equal(t, 1.0, box.Max.X)
	assert.Equal(t, 0.0, box.Min.Y)

	_, ok = Bounds()
	assert.False(t, ok)
}

func TestSaveSTL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quad.stl")
	require.NoError(t, SaveSTL(path, quad()))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(84))

	assert.Error(t, SaveSTL(filepath.Join(t.TempDir(), "empty.stl"), &Mesh{}))
}
