package engine

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"
	"honnef.co/go/curve"

	"github.com/chazu/pcbsolid/pkg/board"
	"github.com/chazu/pcbsolid/pkg/model"
	"github.com/chazu/pcbsolid/pkg/polygon"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms board description source before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: mount-hole -> mount_hole
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpPoint wraps a 2D board point.
type sexpPoint struct {
	pt curve.Point
}

func (p *sexpPoint) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(pt %g %g)", p.pt.X, p.pt.Y)
}
func (p *sexpPoint) Type() *zygo.RegisteredType { return nil }

// sexpShape wraps a polygon piece so it can be returned from `rect`,
// `circle` and `polygon` and consumed by `outline` and `layer`.
type sexpShape struct {
	piece *polygon.Piece
}

func (s *sexpShape) SexpString(ps *zygo.PrintState) string {
	o := s.piece.Outer
	if o.Round {
		return fmt.Sprintf("(circle %g %g %g)", o.Center.X, o.Center.Y, o.Radius)
	}
	return fmt.Sprintf("(polygon %d points)", len(o.Points))
}
func (s *sexpShape) Type() *zygo.RegisteredType { return nil }

// sexpColour wraps a shared appearance.
type sexpColour struct {
	app *model.Appearance
}

func (c *sexpColour) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(color %g %g %g)", c.app.R, c.app.G, c.app.B)
}
func (c *sexpColour) Type() *zygo.RegisteredType { return nil }

// sexpLayer refers to a layer that has been added to the board.
type sexpLayer struct {
	layer *board.Layer
}

func (l *sexpLayer) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(layer %q)", l.layer.Name)
}
func (l *sexpLayer) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value: treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// float reads the numeric keyword key into dst when present.
func (a kwArgs) float(key string, dst *float64) error {
	v, ok := a.kw[key]
	if !ok {
		return nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

// str reads the string keyword key into dst when present.
func (a kwArgs) str(key string, dst *string) error {
	v, ok := a.kw[key]
	if !ok {
		return nil
	}
	s, err := toKeywordString(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = s
	return nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_copper) and plain strings ("copper").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toFloats extracts n numbers from args.
func toFloats(args []zygo.Sexp, n int) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("expected %d numbers, got %d arguments", n, len(args))
	}
	out := make([]float64, n)
	for i, a := range args {
		f, err := toFloat64(a)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = f
	}
	return out, nil
}

// toPoint extracts a point from a sexpPoint or a two-number list.
func toPoint(s zygo.Sexp) (curve.Point, error) {
	if p, ok := s.(*sexpPoint); ok {
		return p.pt, nil
	}
	items, err := sexpListToSlice(s)
	if err != nil {
		return curve.Point{}, fmt.Errorf("expected point, got %T (%s)", s, s.SexpString(nil))
	}
	xy, err := toFloats(items, 2)
	if err != nil {
		return curve.Point{}, fmt.Errorf("point: %w", err)
	}
	return curve.Pt(xy[0], xy[1]), nil
}

// toShape extracts a piece from a sexpShape.
func toShape(s zygo.Sexp) (*polygon.Piece, error) {
	if sh, ok := s.(*sexpShape); ok {
		return sh.piece, nil
	}
	return nil, fmt.Errorf("expected shape, got %T (%s)", s, s.SexpString(nil))
}

// toColour extracts an appearance from a sexpColour.
func toColour(s zygo.Sexp) (*model.Appearance, error) {
	if c, ok := s.(*sexpColour); ok {
		return c.app, nil
	}
	return nil, fmt.Errorf("expected color, got %T (%s)", s, s.SexpString(nil))
}

// toLayerName extracts a layer name from a layer reference or a string.
func toLayerName(s zygo.Sexp) (string, error) {
	if l, ok := s.(*sexpLayer); ok {
		return l.layer.Name, nil
	}
	return toString(s)
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// builder is the board under construction and the counters that name
// anonymous vias and holes.
type builder struct {
	board    *board.Board
	defaults Defaults
	vias     int
	holes    int
}

// shapeOptions applies the :net and :holes keywords shared by every shape.
func shapeOptions(fn string, pa kwArgs, piece *polygon.Piece) (zygo.Sexp, error) {
	if err := pa.str("net", &piece.Name); err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
	}
	if v, ok := pa.kw["holes"]; ok {
		items, err := sexpListToSlice(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: holes: %w", fn, err)
		}
		for _, item := range items {
			h, err := toShape(item)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: hole entry: %w", fn, err)
			}
			piece.Holes = append(piece.Holes, h.Outer)
		}
	}
	return &sexpShape{piece: piece}, nil
}

// plated reads the keyword arguments shared by `via` and `pin`.
func (bl *builder) plated(fn string, pa kwArgs, v *board.Via) error {
	at, ok := pa.kw["at"]
	if !ok {
		return fmt.Errorf("%s requires :at", fn)
	}
	pt, err := toPoint(at)
	if err != nil {
		return fmt.Errorf("%s: at: %w", fn, err)
	}
	v.At = pt
	if err := pa.float("drill", &v.Drill); err != nil {
		return fmt.Errorf("%s: %w", fn, err)
	}
	if err := pa.float("pad", &v.Pad); err != nil {
		return fmt.Errorf("%s: %w", fn, err)
	}
	if err := pa.str("net", &v.Name); err != nil {
		return fmt.Errorf("%s: %w", fn, err)
	}
	if v.Name == "" {
		bl.vias++
		v.Name = fmt.Sprintf("%s%d", fn, bl.vias)
	}
	return nil
}

// registerBuiltins installs all board DSL builtins into a zygomys
// environment. The builtins populate bl.board during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, bl *builder) {
	b := bl.board

	// -----------------------------------------------------------------------
	// (board "name" :plating 0.025)
	// -----------------------------------------------------------------------
	env.AddFunction("board", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) > 0 {
			n, err := toString(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("board: name: %w", err)
			}
			b.Name = n
		}
		if err := pa.float("plating", &b.Plating); err != nil {
			return zygo.SexpNull, fmt.Errorf("board: %w", err)
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (pt 1.5 2)
	// -----------------------------------------------------------------------
	env.AddFunction("pt", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		xy, err := toFloats(args, 2)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("pt: %w", err)
		}
		return &sexpPoint{pt: curve.Pt(xy[0], xy[1])}, nil
	})

	// -----------------------------------------------------------------------
	// (rect x0 y0 x1 y1 :net "GND" :holes (list (circle ...)))
	// -----------------------------------------------------------------------
	env.AddFunction("rect", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		c, err := toFloats(pa.positional, 4)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rect: %w", err)
		}
		if c[0] == c[2] || c[1] == c[3] {
			return zygo.SexpNull, fmt.Errorf("rect: zero-area rectangle")
		}
		return shapeOptions("rect", pa, polygon.NewPiece(polygon.Rect(c[0], c[1], c[2], c[3]), ""))
	})

	// -----------------------------------------------------------------------
	// (circle cx cy r :net "GND")
	// -----------------------------------------------------------------------
	env.AddFunction("circle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		c, err := toFloats(pa.positional, 3)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("circle: %w", err)
		}
		if c[2] <= 0 {
			return zygo.SexpNull, fmt.Errorf("circle: radius must be positive, got %g", c[2])
		}
		return shapeOptions("circle", pa, polygon.NewPiece(polygon.Circle(curve.Pt(c[0], c[1]), c[2]), ""))
	})

	// -----------------------------------------------------------------------
	// (polygon (pt 0 0) (pt 10 0) (pt 0 5) :net "GND")
	// (polygon 0 0 10 0 0 5)
	// -----------------------------------------------------------------------
	env.AddFunction("polygon", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var pts []curve.Point
		for i := 0; i < len(pa.positional); i++ {
			if p, ok := pa.positional[i].(*sexpPoint); ok {
				pts = append(pts, p.pt)
				continue
			}
			if i+1 >= len(pa.positional) {
				return zygo.SexpNull, fmt.Errorf("polygon: odd number of coordinates")
			}
			xy, err := toFloats(pa.positional[i:i+2], 2)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("polygon: %w", err)
			}
			pts = append(pts, curve.Pt(xy[0], xy[1]))
			i++
		}
		if len(pts) < 3 {
			return zygo.SexpNull, fmt.Errorf("polygon requires at least 3 points, got %d", len(pts))
		}
		return shapeOptions("polygon", pa, polygon.NewPiece(polygon.Poly(pts...), ""))
	})

	// -----------------------------------------------------------------------
	// (color 0.1 0.4 0.1 :name "green")
	// -----------------------------------------------------------------------
	env.AddFunction("color", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		rgb, err := toFloats(pa.positional, 3)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("color: %w", err)
		}
		for _, v := range rgb {
			if v < 0 || v > 1 {
				return zygo.SexpNull, fmt.Errorf("color: component %g outside [0, 1]", v)
			}
		}
		app := &model.Appearance{R: rgb[0], G: rgb[1], B: rgb[2]}
		if err := pa.str("name", &app.Name); err != nil {
			return zygo.SexpNull, fmt.Errorf("color: %w", err)
		}
		return &sexpColour{app: app}, nil
	})

	// -----------------------------------------------------------------------
	// (outline (rect 0 0 50 30))
	// -----------------------------------------------------------------------
	env.AddFunction("outline", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("outline requires exactly 1 shape, got %d arguments", len(args))
		}
		piece, err := toShape(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("outline: %w", err)
		}
		if b.Outline != nil {
			return zygo.SexpNull, fmt.Errorf("outline: board already has an outline")
		}
		b.Outline = piece
		return args[0], nil
	})

	// -----------------------------------------------------------------------
	// (layer "F.Cu" :kind :copper :thickness 0.035 :color c (rect ...) ...)
	//
	// Layers are stacked in the order they are declared, top first.
	// -----------------------------------------------------------------------
	env.AddFunction("layer", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("layer requires a name argument")
		}
		layerName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("layer: name: %w", err)
		}
		if l, _ := b.Layer(layerName); l != nil {
			return zygo.SexpNull, fmt.Errorf("layer: %q declared twice", layerName)
		}

		l := &board.Layer{Name: layerName, Kind: board.Copper}
		if v, ok := pa.kw["kind"]; ok {
			s, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("layer: kind: %w", err)
			}
			if l.Kind, err = board.ParseLayerKind(s); err != nil {
				return zygo.SexpNull, fmt.Errorf("layer: kind: %w", err)
			}
		}
		l.Thickness = bl.defaults.thickness(l.Kind)
		if err := pa.float("thickness", &l.Thickness); err != nil {
			return zygo.SexpNull, fmt.Errorf("layer: %w", err)
		}
		if v, ok := pa.kw["color"]; ok {
			if l.Colour, err = toColour(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("layer: color: %w", err)
			}
		}

		l.Pieces = polygon.NewSet()
		for i, arg := range pa.positional[1:] {
			piece, err := toShape(arg)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("layer %s: shape %d: %w", layerName, i+1, err)
			}
			l.Pieces.Add(piece)
		}
		b.AddLayer(l)
		return &sexpLayer{layer: l}, nil
	})

	// -----------------------------------------------------------------------
	// (via :at (pt 5 5) :drill 0.3 :pad 0.6 :from "F.Cu" :to "B.Cu" :net "GND")
	// -----------------------------------------------------------------------
	env.AddFunction("via", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		v := &board.Via{}
		if err := bl.plated("via", pa, v); err != nil {
			return zygo.SexpNull, err
		}
		for key, dst := range map[string]*string{"from": &v.From, "to": &v.To} {
			if s, ok := pa.kw[key]; ok {
				n, err := toLayerName(s)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("via: %s: %w", key, err)
				}
				*dst = n
			}
		}
		if (v.From == "") != (v.To == "") {
			return zygo.SexpNull, fmt.Errorf("via: :from and :to must be given together")
		}
		b.Vias = append(b.Vias, v)
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (pin :at (pt 5 5) :drill 1 :pad 1.7 :net "VCC")
	// -----------------------------------------------------------------------
	env.AddFunction("pin", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		v := &board.Via{Pin: true}
		if err := bl.plated("pin", pa, v); err != nil {
			return zygo.SexpNull, err
		}
		b.Vias = append(b.Vias, v)
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (hole :at (pt 3 3) :drill 3.2 :name "mount")
	// -----------------------------------------------------------------------
	env.AddFunction("hole", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		h := &board.Hole{}
		at, ok := pa.kw["at"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("hole requires :at")
		}
		pt, err := toPoint(at)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("hole: at: %w", err)
		}
		h.At = pt
		if err := pa.float("drill", &h.Drill); err != nil {
			return zygo.SexpNull, fmt.Errorf("hole: %w", err)
		}
		if err := pa.str("name", &h.Name); err != nil {
			return zygo.SexpNull, fmt.Errorf("hole: %w", err)
		}
		if h.Name == "" {
			bl.holes++
			h.Name = fmt.Sprintf("hole%d", bl.holes)
		}
		b.Holes = append(b.Holes, h)
		return zygo.SexpNull, nil
	})
}
