package step

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/chazu/pcbsolid/pkg/geom"
	"github.com/chazu/pcbsolid/pkg/model"
	"github.com/chazu/pcbsolid/pkg/step/p21"
)

// maxDepth bounds the nesting of assemblies and mapped items.
const maxDepth = 64

type importer struct {
	f   *p21.File
	s   *model.Session
	log zerolog.Logger

	styles    map[int]*model.Appearance
	colours   map[int]*model.Appearance
	unitCache map[int]units

	// repProduct names the product each shape representation defines.
	repProduct map[int]string

	// onPath holds the representations of the current walk, to break
	// relationship cycles.
	onPath  map[int]bool
	rels    []*p21.Entity
	objects []*model.Object
}

// LoadStepFile imports the STEP file at path.
func LoadStepFile(path string, opts ImportOptions) (*Model, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("step: %w", err)
	}
	defer fh.Close()
	m, err := Import(fh, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Import reads a STEP file from r. Syntax errors are returned wrapping a
// *p21.ParseError; problems with individual entities are logged and the
// affected geometry degraded or skipped.
func Import(r io.Reader, opts ImportOptions) (*Model, error) {
	f, err := p21.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("step: %w", err)
	}
	s := opts.Session
	if s == nil {
		s = model.NewSession()
	}
	im := &importer{
		f:          f,
		s:          s,
		log:        opts.Logger,
		colours:    map[int]*model.Appearance{},
		unitCache:  map[int]units{},
		repProduct: map[int]string{},
		onPath:     map[int]bool{},
	}
	if name, ok := f.HeaderRecord("FILE_SCHEMA"); ok {
		im.log.Debug().Str("schema", name.Arg(0).String()).Msg("reading step file")
	}
	im.readStyles()

	root, rootRep, err := im.findRoot()
	if err != nil {
		return nil, err
	}
	m := &Model{Session: s, Name: im.productName(root)}
	im.walkRep(rootRep, geom.Identity(), 0, m.Name)
	m.Objects = im.objects
	im.log.Info().Str("product", m.Name).Int("objects", len(m.Objects)).Msg("step import done")
	return m, nil
}

// sdrTarget returns the product definition a SHAPE_DEFINITION_REPRESENTATION
// defines, via its PRODUCT_DEFINITION_SHAPE, or nil.
func (im *importer) sdrTarget(sdr *p21.Entity) *p21.Entity {
	pds := im.f.Deref(sdr.Arg(0))
	if pds == nil || pds.Type() != "PRODUCT_DEFINITION_SHAPE" {
		return nil
	}
	pd := im.f.Deref(pds.Arg(2))
	if pd == nil || !pd.Is("PRODUCT_DEFINITION") {
		return nil
	}
	return pd
}

// findRoot returns the root product definition and its shape
// representation.
func (im *importer) findRoot() (*p21.Entity, *p21.Entity, error) {
	children := map[int]bool{}
	for _, typ := range []string{"NEXT_ASSEMBLY_USAGE_OCCURRENCE", "ASSEMBLY_COMPONENT_USAGE"} {
		for _, u := range im.f.OfType(typ) {
			// (id, name, description, relating, related, ...)
			if id, ok := u.Arg(4).RefID(); ok {
				children[id] = true
			}
		}
	}

	repPD := map[int]int{}
	type candidate struct{ pd, rep *p21.Entity }
	var cands []candidate
	for _, sdr := range im.f.OfType("SHAPE_DEFINITION_REPRESENTATION") {
		pd := im.sdrTarget(sdr)
		rep := im.f.Deref(sdr.Arg(1))
		if pd == nil || rep == nil {
			continue
		}
		repPD[rep.ID] = pd.ID
		im.repProduct[rep.ID] = im.productName(pd)
		cands = append(cands, candidate{pd, rep})
	}

	// Products placed through mapped items are components too.
	for _, mi := range im.f.OfType("MAPPED_ITEM") {
		rm := im.f.Deref(mi.Arg(1))
		if rm == nil {
			continue
		}
		if rep, ok := rm.Arg(1).RefID(); ok {
			if pd, ok := repPD[rep]; ok {
				children[pd] = true
			}
		}
	}

	var roots []candidate
	seen := map[int]bool{}
	for _, c := range cands {
		if children[c.pd.ID] || seen[c.pd.ID] {
			continue
		}
		seen[c.pd.ID] = true
		roots = append(roots, c)
	}
	switch len(roots) {
	case 0:
		return nil, nil, ErrNoRootProduct
	case 1:
	default:
		ids := make([]int, len(roots))
		for i, c := range roots {
			ids[i] = c.pd.ID
		}
		im.log.Warn().Ints("candidates", ids).Int("chosen", roots[0].pd.ID).Msg("several root products, using the first")
	}
	return roots[0].pd, roots[0].rep, nil
}

// productName returns the name of the PRODUCT behind a product definition.
func (im *importer) productName(pd *p21.Entity) string {
	if pd == nil {
		return ""
	}
	// PRODUCT_DEFINITION(id, description, formation, frame_of_reference)
	pdf := im.f.Deref(pd.Arg(2))
	if pdf == nil {
		return ""
	}
	// PRODUCT_DEFINITION_FORMATION(id, description, of_product)
	prod := im.f.Deref(pdf.Arg(2))
	if prod == nil || prod.Type() != "PRODUCT" {
		return ""
	}
	// PRODUCT(id, name, description, frame_of_reference)
	if name, ok := prod.Arg(1).Text(); ok && name != "" {
		return name
	}
	id, _ := prod.Arg(0).Text()
	return id
}

// repContext returns the context_of_items of a representation.
func (im *importer) repContext(rep *p21.Entity) *p21.Entity {
	for _, r := range rep.Records {
		switch r.Type {
		case "SHAPE_REPRESENTATION", "ADVANCED_BREP_SHAPE_REPRESENTATION",
			"MANIFOLD_SURFACE_SHAPE_REPRESENTATION", "REPRESENTATION",
			"FACETED_BREP_SHAPE_REPRESENTATION":
			return im.f.Deref(r.Arg(2))
		}
	}
	return im.f.Deref(rep.Arg(2))
}

// repItems returns the items of a representation.
func repItems(rep *p21.Entity) []p21.Value {
	for _, r := range rep.Records {
		if items, ok := r.Arg(1).Items(); ok {
			return items
		}
	}
	return nil
}

// walkRep turns the solids of rep, and of everything it places, into
// objects. t maps rep's coordinates into the root frame; owner is the name
// of the nearest product above rep.
func (im *importer) walkRep(rep *p21.Entity, t geom.Transform, depth int, owner string) {
	if rep == nil || im.onPath[rep.ID] {
		return
	}
	if depth > maxDepth {
		im.log.Warn().Int("entity", rep.ID).Msg("representation nesting too deep, skipped")
		return
	}
	im.onPath[rep.ID] = true
	defer delete(im.onPath, rep.ID)
	if name := im.repProduct[rep.ID]; name != "" {
		owner = name
	}

	u := im.contextUnits(im.repContext(rep))
	for _, ref := range repItems(rep) {
		item := im.f.Deref(ref)
		if item == nil {
			continue
		}
		switch item.Type() {
		case "MANIFOLD_SOLID_BREP", "BREP_WITH_VOIDS":
			im.solid(rep, item, t, u, owner)
		case "MAPPED_ITEM":
			im.mappedItem(item, t, depth, owner)
		case "AXIS2_PLACEMENT_3D", "AXIS2_PLACEMENT_2D", "CARTESIAN_POINT", "DIRECTION":
		default:
			im.log.Debug().Int("entity", item.ID).Str("type", item.Type()).Msg("representation item ignored")
		}
	}
	im.relationships(rep, t, depth, owner)
}

// mappedItem places REPRESENTATION_MAP.mapped_representation so that its
// mapping origin lands on the item's mapping target.
func (im *importer) mappedItem(mi *p21.Entity, t geom.Transform, depth int, owner string) {
	// MAPPED_ITEM(name, mapping_source, mapping_target)
	rm := im.f.Deref(mi.Arg(1))
	if rm == nil || rm.Type() != "REPRESENTATION_MAP" {
		im.log.Warn().Int("entity", mi.ID).Msg("mapped item without representation map")
		return
	}
	// REPRESENTATION_MAP(mapping_origin, mapped_representation)
	target := im.f.Deref(rm.Arg(1))
	if target == nil {
		return
	}
	u := im.contextUnits(im.repContext(target))
	origin := im.placement(im.f.Deref(rm.Arg(0)), u)
	dest := im.placement(im.f.Deref(mi.Arg(2)), u)
	local := dest.Matrix().Mul(origin.Matrix().Inverse())
	im.walkRep(target, t.Mul(local), depth+1, owner)
}

// relationships follows the shape representation relationships from rep
// down to its children. A relationship is walked from rep_2 to rep_1, the
// direction assemblies use. The reverse direction is taken only for an
// untransformed link to a representation that is not a product's own
// shape, which is how some writers attach the BREP to its shape
// representation.
func (im *importer) relationships(rep *p21.Entity, t geom.Transform, depth int, owner string) {
	for _, rel := range im.relations() {
		r, ok := rel.Record("REPRESENTATION_RELATIONSHIP")
		if !ok {
			r, _ = rel.Record("SHAPE_REPRESENTATION_RELATIONSHIP")
		}
		// REPRESENTATION_RELATIONSHIP(name, description, rep_1, rep_2)
		rep1, _ := r.Arg(2).RefID()
		rep2, _ := r.Arg(3).RefID()
		tr, placed := rel.Record("REPRESENTATION_RELATIONSHIP_WITH_TRANSFORMATION")
		var other int
		switch {
		case rep.ID == rep2:
			other = rep1
		case rep.ID == rep1 && !placed && im.repProduct[rep2] == "":
			other = rep2
		default:
			continue
		}
		child := im.f.Get(other)
		if child == nil || im.onPath[other] {
			continue
		}
		local := geom.Identity()
		if placed {
			// Maps rep_1 coordinates into rep_2 coordinates.
			local = im.itemTransform(im.f.Deref(tr.Arg(0)), im.f.Get(rep1), im.f.Get(rep2))
		}
		im.walkRep(child, t.Mul(local), depth+1, owner)
	}
}

// relations returns every representation relationship, simple or
// complex, once.
func (im *importer) relations() []*p21.Entity {
	if im.rels != nil {
		return im.rels
	}
	seen := map[int]bool{}
	im.rels = []*p21.Entity{}
	for _, typ := range []string{"REPRESENTATION_RELATIONSHIP", "SHAPE_REPRESENTATION_RELATIONSHIP"} {
		for _, e := range im.f.OfType(typ) {
			if !seen[e.ID] {
				seen[e.ID] = true
				im.rels = append(im.rels, e)
			}
		}
	}
	return im.rels
}

// itemTransform reads an ITEM_DEFINED_TRANSFORMATION(name, description,
// item_1, item_2) as the transform taking item_1 onto item_2.
func (im *importer) itemTransform(idt *p21.Entity, rep1, rep2 *p21.Entity) geom.Transform {
	if idt == nil || idt.Type() != "ITEM_DEFINED_TRANSFORMATION" {
		if idt != nil {
			im.log.Warn().Int("entity", idt.ID).Str("type", idt.Type()).Msg("unsupported transformation, using identity")
		}
		return geom.Identity()
	}
	u1, u2 := defaultUnits, defaultUnits
	if rep1 != nil {
		u1 = im.contextUnits(im.repContext(rep1))
	}
	if rep2 != nil {
		u2 = im.contextUnits(im.repContext(rep2))
	}
	p1 := im.placement(im.f.Deref(idt.Arg(2)), u1)
	p2 := im.placement(im.f.Deref(idt.Arg(3)), u2)
	return p2.Matrix().Mul(p1.Matrix().Inverse())
}

// solid builds one object from a MANIFOLD_SOLID_BREP or BREP_WITH_VOIDS.
func (im *importer) solid(rep, e *p21.Entity, t geom.Transform, u units, owner string) {
	name, _ := e.Arg(0).Text()
	if name == "" {
		name = owner
	}
	if name == "" {
		name = fmt.Sprintf("solid%d", len(im.objects)+1)
	}
	if t.Mirrors() {
		im.log.Warn().Int("entity", e.ID).Msg("mirroring placement, face orientation will be inverted")
	}
	b := im.newSolidBuilder(t, u, name)

	outer := im.f.Deref(e.Arg(1))
	// Style cascade: solid, then outer shell, then the representation the
	// solid belongs to (an invalid but common binding).
	b.obj.Appearance = im.styleOf(e.ID)
	if b.obj.Appearance == nil && outer != nil {
		b.obj.Appearance = im.styleOf(outer.ID)
	}
	if b.obj.Appearance == nil {
		b.obj.Appearance = im.styleOf(rep.ID)
	}

	b.shell(outer, false, b.obj.Appearance)
	if e.Type() == "BREP_WITH_VOIDS" {
		voids, _ := e.Arg(2).Items()
		for _, ref := range voids {
			b.shell(im.f.Deref(ref), false, b.obj.Appearance)
		}
	}
	obj := b.finish()
	if err := im.s.CheckClosed(obj); err != nil {
		im.log.Warn().Err(err).Str("object", obj.Name).Msg("imported solid is not closed")
	}
	im.objects = append(im.objects, obj)
}
