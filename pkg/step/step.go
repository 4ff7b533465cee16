// Package step reads and writes STEP AP214 (ISO 10303-214) solid models.
//
// Import resolves the root product of a file, walks its shape
// representations (assembly relationships and mapped items, with their
// placements) and turns every MANIFOLD_SOLID_BREP or BREP_WITH_VOIDS into a
// model.Object. Export writes objects back as one product with one
// ADVANCED_BREP_SHAPE_REPRESENTATION per object.
//
// Only the five analytic surface types and line, circle, ellipse and
// B-spline curves are understood. Other surfaces import as
// model.Unsupported faces and other curves as model.Placeholder edges; both
// keep their topology and are logged.
package step

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/chazu/pcbsolid/pkg/model"
)

// ErrNoRootProduct is returned when no product definition with a shape is
// left after removing every product used as a component of another.
var ErrNoRootProduct = errors.New("step: no root product definition")

// Model is the result of an import.
type Model struct {
	Session *model.Session
	Objects []*model.Object

	// Name is the name of the root product.
	Name string
}

// ImportOptions configures LoadStepFile and Import.
type ImportOptions struct {
	// Session receives the imported entities. A new session is created
	// when nil.
	Session *model.Session

	Logger zerolog.Logger
}

// schema is the AP214 schema name written to and expected in headers.
const schema = "AUTOMOTIVE_DESIGN { 1 0 10303 214 1 1 1 1 }"

// bsplineEndTolerance is the largest accepted distance between a B-spline's
// end control points and its edge vertices.
const bsplineEndTolerance = 1e-3
