package step

import (
	"strings"

	"github.com/chazu/pcbsolid/pkg/model"
	"github.com/chazu/pcbsolid/pkg/step/p21"
)

// predefinedColours are the DRAUGHTING_PRE_DEFINED_COLOUR names.
var predefinedColours = map[string][3]float64{
	"red":     {1, 0, 0},
	"green":   {0, 1, 0},
	"blue":    {0, 0, 1},
	"yellow":  {1, 1, 0},
	"magenta": {1, 0, 1},
	"cyan":    {0, 1, 1},
	"black":   {0, 0, 0},
	"white":   {1, 1, 1},
}

// readStyles maps every styled item to the appearance of its surface
// colour, or of its first colour when no surface style carries one.
// Over-riding styles replace plain ones.
func (im *importer) readStyles() {
	im.styles = map[int]*model.Appearance{}
	for _, typ := range []string{"STYLED_ITEM", "OVER_RIDING_STYLED_ITEM"} {
		for _, si := range im.f.OfType(typ) {
			// STYLED_ITEM(name, styles, item)
			item, ok := si.Arg(2).RefID()
			if !ok {
				continue
			}
			app := im.colour(im.surfaceUsage(si, map[int]bool{}), map[int]bool{})
			if app == nil {
				app = im.colour(si, map[int]bool{})
			}
			if app != nil {
				im.styles[item] = app
			}
		}
	}
}

// colour searches the style graph below e depth first for a colour.
func (im *importer) colour(e *p21.Entity, seen map[int]bool) *model.Appearance {
	if e == nil || seen[e.ID] {
		return nil
	}
	seen[e.ID] = true
	switch e.Type() {
	case "COLOUR_RGB":
		return im.appearance(e.ID, func() *model.Appearance {
			name, _ := e.Arg(0).Text()
			r, _ := e.Arg(1).Float()
			g, _ := e.Arg(2).Float()
			b, _ := e.Arg(3).Float()
			return &model.Appearance{Name: name, R: r, G: g, B: b}
		})
	case "DRAUGHTING_PRE_DEFINED_COLOUR":
		name, _ := e.Arg(0).Text()
		rgb, ok := predefinedColours[strings.ToLower(name)]
		if !ok {
			return nil
		}
		return im.appearance(e.ID, func() *model.Appearance {
			return &model.Appearance{Name: name, R: rgb[0], G: rgb[1], B: rgb[2]}
		})
	}
	for _, a := range styleArgs(e) {
		if app := im.colourIn(a, seen); app != nil {
			return app
		}
	}
	return nil
}

// styleArgs returns the arguments the style search descends into. The
// styled item itself must not lead the search back into geometry.
func styleArgs(e *p21.Entity) []p21.Value {
	args := e.Records[0].Args
	if e.Type() == "STYLED_ITEM" || e.Type() == "OVER_RIDING_STYLED_ITEM" {
		args = args[:min(2, len(args))]
	}
	return args
}

// surfaceUsage returns the first SURFACE_STYLE_USAGE below e. Its colour
// takes precedence over curve and point style colours.
func (im *importer) surfaceUsage(e *p21.Entity, seen map[int]bool) *p21.Entity {
	if e == nil || seen[e.ID] {
		return nil
	}
	seen[e.ID] = true
	if e.Type() == "SURFACE_STYLE_USAGE" {
		return e
	}
	var walk func(v p21.Value) *p21.Entity
	walk = func(v p21.Value) *p21.Entity {
		switch v.Kind {
		case p21.Ref:
			return im.surfaceUsage(im.f.Deref(v), seen)
		case p21.List, p21.Typed:
			for _, it := range v.List {
				if u := walk(it); u != nil {
					return u
				}
			}
		}
		return nil
	}
	for _, a := range styleArgs(e) {
		if u := walk(a); u != nil {
			return u
		}
	}
	return nil
}

func (im *importer) colourIn(v p21.Value, seen map[int]bool) *model.Appearance {
	switch v.Kind {
	case p21.Ref:
		return im.colour(im.f.Deref(v), seen)
	case p21.List, p21.Typed:
		for _, it := range v.List {
			if app := im.colourIn(it, seen); app != nil {
				return app
			}
		}
	}
	return nil
}

// appearance returns the shared appearance of a colour entity.
func (im *importer) appearance(id int, mk func() *model.Appearance) *model.Appearance {
	if a, ok := im.colours[id]; ok {
		return a
	}
	a := mk()
	im.colours[id] = a
	return a
}

func (im *importer) styleOf(id int) *model.Appearance { return im.styles[id] }
