// Package p21 reads ISO 10303-21 exchange files ("STEP files") into typed
// entity instances. It knows the clear-text encoding only, not any schema:
// entities are records of a type name and a parameter list.
package p21

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
)

// ParseError reports malformed exchange-file syntax.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("p21: line %d: %s", e.Line, e.Msg)
}

// Record is one simple entity value: a type name and its parameters.
type Record struct {
	Type string
	Args []Value
}

// Arg returns parameter i, or an unset value when out of range.
func (r Record) Arg(i int) Value {
	if i < 0 || i >= len(r.Args) {
		return Null
	}
	return r.Args[i]
}

// Entity is one instance of the data section. Complex instances hold one
// record per partial type, in file order.
type Entity struct {
	ID      int
	Line    int
	Records []Record
}

// Complex reports whether e is a complex (multi-record) instance.
func (e *Entity) Complex() bool { return len(e.Records) > 1 }

// Type returns the type of a simple instance, or the first partial type of
// a complex one.
func (e *Entity) Type() string {
	if len(e.Records) == 0 {
		return ""
	}
	return e.Records[0].Type
}

// Is reports whether e is of type t or has t as a partial type.
func (e *Entity) Is(t string) bool {
	_, ok := e.Record(t)
	return ok
}

// Record returns the record of type t.
func (e *Entity) Record(t string) (Record, bool) {
	for _, r := range e.Records {
		if r.Type == t {
			return r, true
		}
	}
	return Record{}, false
}

// Arg returns parameter i of the first record.
func (e *Entity) Arg(i int) Value {
	if len(e.Records) == 0 {
		return Null
	}
	return e.Records[0].Arg(i)
}

// File is a parsed exchange file.
type File struct {
	Header []Record

	entities map[int]*Entity
	order    []int
	byType   map[string][]*Entity
}

// Len returns the number of data instances.
func (f *File) Len() int { return len(f.order) }

// Get returns instance id, or nil.
func (f *File) Get(id int) *Entity { return f.entities[id] }

// Deref returns the instance v refers to, or nil.
func (f *File) Deref(v Value) *Entity {
	id, ok := v.RefID()
	if !ok {
		return nil
	}
	return f.entities[id]
}

// OfType returns every instance of type t, including complex instances
// with t as a partial type, in file order.
func (f *File) OfType(t string) []*Entity { return f.byType[t] }

// Entities returns every instance in file order.
func (f *File) Entities() []*Entity {
	out := make([]*Entity, len(f.order))
	for i, id := range f.order {
		out[i] = f.entities[id]
	}
	return out
}

// HeaderRecord returns the header record of type t.
func (f *File) HeaderRecord(t string) (Record, bool) {
	for _, r := range f.Header {
		if r.Type == t {
			return r, true
		}
	}
	return Record{}, false
}

// ReadFile parses the exchange file at path.
func ReadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return Parse(fh)
}

// Parse reads an exchange file from r.
func Parse(r io.Reader) (*File, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	p := &parser{lex: lexer{src: src, line: 1}}
	f, err := p.file()
	if err != nil {
		var pe *ParseError
		if !errors.As(err, &pe) {
			err = &ParseError{Line: p.lex.line, Msg: err.Error()}
		}
		return nil, err
	}
	return f, nil
}

type parser struct {
	lex lexer
	tok token
}

func (p *parser) next() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Line: p.tok.line, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(k tokKind, what string) error {
	if p.tok.kind != k {
		return p.errorf("expected %s, found %s", what, p.tok)
	}
	return p.next()
}

func (p *parser) keyword(want string) error {
	if p.tok.kind != tKeyword || p.tok.text != want {
		return p.errorf("expected %s, found %s", want, p.tok)
	}
	return p.next()
}

func (p *parser) file() (*File, error) {
	f := &File{entities: map[int]*Entity{}, byType: map[string][]*Entity{}}
	if err := p.next(); err != nil {
		return nil, err
	}
	if err := p.keyword("ISO-10303-21"); err != nil {
		return nil, err
	}
	if err := p.expect(tSemi, "';'"); err != nil {
		return nil, err
	}
	if err := p.keyword("HEADER"); err != nil {
		return nil, err
	}
	if err := p.expect(tSemi, "';'"); err != nil {
		return nil, err
	}
	for !(p.tok.kind == tKeyword && p.tok.text == "ENDSEC") {
		rec, err := p.record()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tSemi, "';'"); err != nil {
			return nil, err
		}
		f.Header = append(f.Header, rec)
	}
	if err := p.next(); err != nil {
		return nil, err
	}
	if err := p.expect(tSemi, "';'"); err != nil {
		return nil, err
	}

	for p.tok.kind == tKeyword && p.tok.text == "DATA" {
		if err := p.next(); err != nil {
			return nil, err
		}
		// DATA may carry a section name and schema list.
		if p.tok.kind == tOpen {
			if _, err := p.list(); err != nil {
				return nil, err
			}
		}
		if err := p.expect(tSemi, "';'"); err != nil {
			return nil, err
		}
		for p.tok.kind == tInstance {
			e, err := p.instance()
			if err != nil {
				return nil, err
			}
			if _, dup := f.entities[e.ID]; dup {
				return nil, &ParseError{Line: e.Line, Msg: fmt.Sprintf("duplicate instance #%d", e.ID)}
			}
			f.entities[e.ID] = e
			f.order = append(f.order, e.ID)
			for _, r := range e.Records {
				if !slices.Contains(f.byType[r.Type], e) {
					f.byType[r.Type] = append(f.byType[r.Type], e)
				}
			}
		}
		if err := p.keyword("ENDSEC"); err != nil {
			return nil, err
		}
		if err := p.expect(tSemi, "';'"); err != nil {
			return nil, err
		}
	}
	if err := p.keyword("END-ISO-10303-21"); err != nil {
		return nil, err
	}
	return f, nil
}

// instance parses "#id = record ;" or "#id = ( record record ... ) ;".
func (p *parser) instance() (*Entity, error) {
	e := &Entity{ID: p.tok.id, Line: p.tok.line}
	if err := p.next(); err != nil {
		return nil, err
	}
	if err := p.expect(tEquals, "'='"); err != nil {
		return nil, err
	}
	if p.tok.kind == tOpen {
		if err := p.next(); err != nil {
			return nil, err
		}
		for p.tok.kind == tKeyword {
			rec, err := p.record()
			if err != nil {
				return nil, err
			}
			e.Records = append(e.Records, rec)
		}
		if err := p.expect(tClose, "')'"); err != nil {
			return nil, err
		}
		if len(e.Records) == 0 {
			return nil, &ParseError{Line: e.Line, Msg: fmt.Sprintf("empty complex instance #%d", e.ID)}
		}
	} else {
		rec, err := p.record()
		if err != nil {
			return nil, err
		}
		e.Records = []Record{rec}
	}
	if err := p.expect(tSemi, "';'"); err != nil {
		return nil, err
	}
	return e, nil
}

// record parses "KEYWORD ( params )".
func (p *parser) record() (Record, error) {
	if p.tok.kind != tKeyword {
		return Record{}, p.errorf("expected entity type, found %s", p.tok)
	}
	rec := Record{Type: p.tok.text}
	if err := p.next(); err != nil {
		return Record{}, err
	}
	args, err := p.list()
	if err != nil {
		return Record{}, err
	}
	rec.Args = args
	return rec, nil
}

// list parses "( value, value, ... )".
func (p *parser) list() ([]Value, error) {
	if err := p.expect(tOpen, "'('"); err != nil {
		return nil, err
	}
	var vs []Value
	if p.tok.kind == tClose {
		return vs, p.next()
	}
	for {
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		vs = append(vs, v)
		if p.tok.kind == tComma {
			if err := p.next(); err != nil {
				return nil, err
			}
			continue
		}
		if err := p.expect(tClose, "',' or ')'"); err != nil {
			return nil, err
		}
		return vs, nil
	}
}

func (p *parser) value() (Value, error) {
	t := p.tok
	switch t.kind {
	case tDollar:
		return Null, p.next()
	case tStar:
		return Star, p.next()
	case tInteger:
		return Value{Kind: Integer, Int: t.ival, Num: float64(t.ival)}, p.next()
	case tReal:
		return Float(t.fval), p.next()
	case tString:
		return Str(t.text), p.next()
	case tEnum:
		return EnumOf(t.text), p.next()
	case tBinary:
		return Value{Kind: Binary, Str: t.text}, p.next()
	case tInstance:
		return RefTo(t.id), p.next()
	case tOpen:
		items, err := p.list()
		if err != nil {
			return Value{}, err
		}
		return ListOf(items...), nil
	case tKeyword:
		if err := p.next(); err != nil {
			return Value{}, err
		}
		items, err := p.list()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: Typed, Str: t.text, List: items}, nil
	}
	return Value{}, p.errorf("unexpected %s", t)
}
