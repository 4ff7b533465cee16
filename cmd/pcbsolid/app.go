package main

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/chazu/pcbsolid/internal/config"
	"github.com/chazu/pcbsolid/pkg/board"
	"github.com/chazu/pcbsolid/pkg/engine"
	"github.com/chazu/pcbsolid/pkg/layerstack"
	"github.com/chazu/pcbsolid/pkg/mesh"
	"github.com/chazu/pcbsolid/pkg/model"
	"github.com/chazu/pcbsolid/pkg/preview"
	"github.com/chazu/pcbsolid/pkg/step"
	"github.com/chazu/pcbsolid/pkg/tessellate"
)

// ErrInvalidBoard is returned by Build when the description does not
// evaluate or validate.
var ErrInvalidBoard = errors.New("board description has errors")

// App runs the pipeline behind the commands: description, engine, layer
// stack, then STEP, STL and PNG output.
type App struct {
	cfg    *config.Config
	log    zerolog.Logger
	engine *engine.Engine
}

// Outputs names the files to write. Empty paths are skipped.
type Outputs struct {
	Step string
	STL  string
	PNG  string
	View preview.View
}

func (o Outputs) meshes() bool { return o.STL != "" || o.PNG != "" }

// BuildResult is the full result of Build.
type BuildResult struct {
	Board    *board.Board
	Stack    *layerstack.Stack
	Errors   []engine.EvalError
	Warnings []engine.EvalWarning
	Meshes   []*mesh.Mesh
}

// ObjectReport describes one solid of a STEP file.
type ObjectReport struct {
	Name        string `json:"name"`
	Vertices    int    `json:"vertices"`
	Edges       int    `json:"edges"`
	Faces       int    `json:"faces"`
	Closed      bool   `json:"closed"`
	Problem     string `json:"problem,omitempty"`
	Triangles   int    `json:"triangles"`
	FailedFaces int    `json:"failedFaces"`
}

// Report is the result of Inspect.
type Report struct {
	Name    string         `json:"name"`
	Objects []ObjectReport `json:"objects"`
}

// NewApp creates an App from loaded settings.
func NewApp(cfg *config.Config, log zerolog.Logger) *App {
	eng := engine.NewEngine()
	eng.Defaults = cfg.Thicknesses()
	return &App{cfg: cfg, log: log, engine: eng}
}

// Build evaluates a board description and writes the requested outputs.
// Evaluation and validation problems are returned in the result together
// with ErrInvalidBoard.
func (a *App) Build(source string, out Outputs) (*BuildResult, error) {
	res, err := a.engine.Check(source)
	if err != nil {
		return nil, err
	}
	result := &BuildResult{Board: res.Board, Errors: res.Errors, Warnings: res.Warnings}
	for _, w := range res.Warnings {
		a.log.Warn().Str("subject", w.Subject).Msg(w.Message)
	}
	if !res.OK() {
		return result, ErrInvalidBoard
	}

	colours, err := a.cfg.LayerColours()
	if err != nil {
		return result, err
	}
	st, err := layerstack.Compose(res.Board, layerstack.Options{
		Colours: colours,
		Verify:  a.cfg.Verify,
		Logger:  a.log,
	})
	if err != nil {
		return result, err
	}
	result.Stack = st

	objects := st.Objects()
	if out.Step != "" {
		if err := step.SaveStepFile(out.Step, st.Session, objects, a.exportOptions(res.Board.Name)); err != nil {
			return result, err
		}
		a.log.Info().Str("path", out.Step).Int("objects", len(objects)).Msg("STEP written")
	}
	result.Meshes, err = a.write(st.Session, objects, out)
	return result, err
}

// Inspect reads a STEP file and reports the topology of every solid.
func (a *App) Inspect(path string) (*Report, error) {
	m, err := step.LoadStepFile(path, step.ImportOptions{Logger: a.log})
	if err != nil {
		return nil, err
	}
	en := tessellate.New(m.Session, a.tessOptions())
	rep := &Report{Name: m.Name, Objects: []ObjectReport{}}
	for _, o := range m.Objects {
		nv, ne, nf := o.Counts()
		or := ObjectReport{Name: o.Name, Vertices: nv, Edges: ne, Faces: nf, Closed: true}
		if err := m.Session.CheckClosed(o); err != nil {
			or.Closed = false
			or.Problem = err.Error()
		}
		msh, failed := en.Object(o)
		or.Triangles = msh.TriangleCount()
		or.FailedFaces = failed
		rep.Objects = append(rep.Objects, or)
	}
	return rep, nil
}

// Convert reads a STEP file and writes the requested outputs. A STEP
// output re-exports the imported solids.
func (a *App) Convert(path string, out Outputs) ([]*mesh.Mesh, error) {
	m, err := step.LoadStepFile(path, step.ImportOptions{Logger: a.log})
	if err != nil {
		return nil, err
	}
	if out.Step != "" {
		if err := step.SaveStepFile(out.Step, m.Session, m.Objects, a.exportOptions(m.Name)); err != nil {
			return nil, err
		}
	}
	return a.write(m.Session, m.Objects, out)
}

// write tessellates objects when a mesh output is requested and saves the
// STL and PNG files.
func (a *App) write(s *model.Session, objects []*model.Object, out Outputs) ([]*mesh.Mesh, error) {
	if !out.meshes() {
		return nil, nil
	}
	en := tessellate.New(s, a.tessOptions())
	var meshes []*mesh.Mesh
	var items []preview.Item
	for _, o := range objects {
		if o.AbsorbedInto != nil {
			continue
		}
		m, failed := en.Object(o)
		if failed > 0 {
			a.log.Warn().Str("object", o.Name).Int("failed", failed).Msg("faces left out of the mesh")
		}
		if m.IsEmpty() {
			continue
		}
		meshes = append(meshes, m)
		items = append(items, preview.Item{Mesh: m, Colour: o.Appearance})
	}

	if out.STL != "" {
		if err := mesh.SaveSTL(out.STL, meshes...); err != nil {
			return meshes, err
		}
		a.log.Info().Str("path", out.STL).Int("meshes", len(meshes)).Msg("STL written")
	}
	if out.PNG != "" {
		opts := preview.Options{
			Width:     a.cfg.Preview.Width,
			Height:    a.cfg.Preview.Height,
			View:      out.View,
			Fill:      true,
			Wireframe: true,
		}
		if err := preview.SavePNG(out.PNG, items, opts); err != nil {
			return meshes, fmt.Errorf("preview: %w", err)
		}
		a.log.Info().Str("path", out.PNG).Str("view", out.View.String()).Msg("preview written")
	}
	return meshes, nil
}

func (a *App) tessOptions() tessellate.Options {
	opts := a.cfg.TessellationOptions()
	opts.Logger = a.log
	return opts
}

func (a *App) exportOptions(name string) step.ExportOptions {
	return step.ExportOptions{
		Name:         name,
		Author:       a.cfg.Step.Author,
		Organization: a.cfg.Step.Organization,
		Uncertainty:  a.cfg.Step.Uncertainty,
		Logger:       a.log,
	}
}
