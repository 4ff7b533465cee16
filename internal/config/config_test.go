package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/pcbsolid/pkg/board"
	"github.com/chazu/pcbsolid/pkg/tessellate"
)

func TestDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, tessellate.DefaultSegmentsPerTurn, c.Tessellation.SegmentsPerTurn)
	assert.InDelta(t, 0.035, c.Layers.Copper, 1e-12)
	assert.InDelta(t, board.DefaultPlating, c.Thicknesses().Plating, 1e-12)
	assert.Equal(t, 1024, c.Preview.Width)

	colours, err := c.LayerColours()
	require.NoError(t, err)
	require.Contains(t, colours, board.Copper)
	assert.InDelta(t, 0xb8/255.0, colours[board.Copper].R, 1e-12)
	assert.Equal(t, "copper", colours[board.Copper].Name)
}

func TestFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
verify: true
tessellation:
  segments_per_turn: 32
layers:
  copper: 0.07
colours:
  mask: "#202080"
step:
  author: board shop
`), 0o644))
	t.Setenv("PCBSOLID_STEP_ORGANIZATION", "ACME")
	t.Setenv("PCBSOLID_LOG_LEVEL", "debug")

	c, err := Load(path)
	require.NoError(t, err)
	assert.True(t, c.Verify)
	assert.Equal(t, 32, c.TessellationOptions().SegmentsPerTurn)
	assert.InDelta(t, tessellate.DefaultCutStep, c.TessellationOptions().CutStep, 1e-12)
	assert.InDelta(t, 0.07, c.Thicknesses().Copper, 1e-12)
	assert.Equal(t, "board shop", c.Step.Author)
	assert.Equal(t, "ACME", c.Step.Organization)
	assert.Equal(t, "debug", c.Log.Level)

	colours, err := c.LayerColours()
	require.NoError(t, err)
	assert.InDelta(t, 0x80/255.0, colours[board.Mask].B, 1e-12)
}

func TestMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParseColour(t *testing.T) {
	tests := []struct {
		in      string
		r, g, b float64
		wantErr bool
	}{
		{in: "#ff0000", r: 1},
		{in: "00ff00", g: 1},
		{in: "#0000FF", b: 1},
		{in: "#fff", wantErr: true},
		{in: "#gg0000", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			app, err := ParseColour(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.r, app.R, 1e-12)
			assert.InDelta(t, tt.g, app.G, 1e-12)
			assert.InDelta(t, tt.b, app.B, 1e-12)
		})
	}
}
