package p21

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Kind is the type of a parameter value.
type Kind uint8

const (
	Unset   Kind = iota // $
	Derived             // *
	Integer
	Real
	String
	Enum
	Ref
	List
	Typed // TYPE_NAME(value), e.g. LENGTH_MEASURE(1.E-07)
	Binary
)

var kindNames = [...]string{"unset", "derived", "integer", "real", "string", "enum", "ref", "list", "typed", "binary"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is one entity parameter.
type Value struct {
	Kind Kind
	Int  int64
	Num  float64
	Str  string // string, enum, binary and typed-name payloads
	Ref  int
	List []Value // list items, or the single wrapped value of a Typed
}

// Constructors used by writers.

func Int(i int64) Value               { return Value{Kind: Integer, Int: i, Num: float64(i)} }
func Float(f float64) Value           { return Value{Kind: Real, Num: f} }
func Str(s string) Value              { return Value{Kind: String, Str: s} }
func EnumOf(s string) Value           { return Value{Kind: Enum, Str: s} }
func RefTo(id int) Value              { return Value{Kind: Ref, Ref: id} }
func ListOf(vs ...Value) Value        { return Value{Kind: List, List: vs} }
func TypedOf(t string, v Value) Value { return Value{Kind: Typed, Str: t, List: []Value{v}} }
func Bool(b bool) Value {
	if b {
		return EnumOf("T")
	}
	return EnumOf("F")
}

var (
	Null = Value{Kind: Unset}
	Star = Value{Kind: Derived}
)

// Refs returns a list of references.
func Refs(ids ...int) Value {
	vs := make([]Value, len(ids))
	for i, id := range ids {
		vs[i] = RefTo(id)
	}
	return ListOf(vs...)
}

// Floats returns a list of reals.
func Floats(fs ...float64) Value {
	vs := make([]Value, len(fs))
	for i, f := range fs {
		vs[i] = Float(f)
	}
	return ListOf(vs...)
}

// Float returns the numeric value of an integer, real or numeric typed
// parameter.
func (v Value) Float() (float64, bool) {
	switch v.Kind {
	case Integer, Real:
		return v.Num, true
	case Typed:
		if len(v.List) == 1 {
			return v.List[0].Float()
		}
	}
	return 0, false
}

// Integer returns an integer parameter.
func (v Value) Integer() (int, bool) {
	if v.Kind == Integer {
		return int(v.Int), true
	}
	return 0, false
}

// RefID returns the referenced instance id.
func (v Value) RefID() (int, bool) {
	if v.Kind == Ref {
		return v.Ref, true
	}
	return 0, false
}

// Items returns the items of a list.
func (v Value) Items() ([]Value, bool) {
	if v.Kind == List {
		return v.List, true
	}
	return nil, false
}

// Bool returns the value of a .T. or .F. enumeration.
func (v Value) Bool() (bool, bool) {
	if v.Kind != Enum {
		return false, false
	}
	switch v.Str {
	case "T":
		return true, true
	case "F":
		return false, true
	}
	return false, false
}

// Text returns the payload of a string or enumeration.
func (v Value) Text() (string, bool) {
	if v.Kind == String || v.Kind == Enum {
		return v.Str, true
	}
	return "", false
}

// String formats v in exchange-file syntax.
func (v Value) String() string {
	var b strings.Builder
	v.format(&b)
	return b.String()
}

func (v Value) format(b *strings.Builder) {
	switch v.Kind {
	case Unset:
		b.WriteByte('$')
	case Derived:
		b.WriteByte('*')
	case Integer:
		b.WriteString(strconv.FormatInt(v.Int, 10))
	case Real:
		b.WriteString(FormatReal(v.Num))
	case String:
		b.WriteString(QuoteString(v.Str))
	case Enum:
		b.WriteByte('.')
		b.WriteString(v.Str)
		b.WriteByte('.')
	case Ref:
		b.WriteByte('#')
		b.WriteString(strconv.Itoa(v.Ref))
	case List:
		b.WriteByte('(')
		for i, it := range v.List {
			if i > 0 {
				b.WriteByte(',')
			}
			it.format(b)
		}
		b.WriteByte(')')
	case Typed:
		b.WriteString(v.Str)
		b.WriteByte('(')
		for i, it := range v.List {
			if i > 0 {
				b.WriteByte(',')
			}
			it.format(b)
		}
		b.WriteByte(')')
	case Binary:
		b.WriteByte('"')
		b.WriteString(v.Str)
		b.WriteByte('"')
	}
}

// FormatReal writes f with the mandatory decimal point, e.g. "0.", "1.5",
// "1.E-07".
func FormatReal(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		f = 0
	}
	if f == 0 {
		return "0."
	}
	a := math.Abs(f)
	if a < 1e-4 || a >= 1e15 {
		s := strconv.FormatFloat(f, 'E', -1, 64)
		mant, exp, _ := strings.Cut(s, "E")
		if !strings.Contains(mant, ".") {
			mant += "."
		}
		return mant + "E" + exp
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += "."
	}
	return s
}

// QuoteString quotes s, doubling apostrophes and backslashes and encoding
// non-ASCII runes as \X2\ sequences.
func QuoteString(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for i := 0; i < len(s); {
		r := rune(s[i])
		if r < 0x80 {
			switch r {
			case '\'':
				b.WriteString("''")
			case '\\':
				b.WriteString(`\\`)
			default:
				b.WriteByte(s[i])
			}
			i++
			continue
		}
		// Collect a run of non-ASCII runes.
		b.WriteString(`\X2\`)
		for i < len(s) && s[i] >= 0x80 {
			rr, n := utf8.DecodeRuneInString(s[i:])
			for _, u := range utf16.Encode([]rune{rr}) {
				fmt.Fprintf(&b, "%04X", u)
			}
			i += n
		}
		b.WriteString(`\X0\`)
	}
	b.WriteByte('\'')
	return b.String()
}

// unescape decodes the body of a quoted string.
func unescape(s string) string {
	if !strings.ContainsAny(s, `'\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		switch {
		case s[i] == '\'' && i+1 < len(s) && s[i+1] == '\'':
			b.WriteByte('\'')
			i += 2
		case strings.HasPrefix(s[i:], `\\`):
			b.WriteByte('\\')
			i += 2
		case strings.HasPrefix(s[i:], `\X2\`):
			end := strings.Index(s[i+4:], `\X0\`)
			if end < 0 {
				b.WriteString(s[i:])
				return b.String()
			}
			hex := s[i+4 : i+4+end]
			var units []uint16
			for j := 0; j+4 <= len(hex); j += 4 {
				u, err := strconv.ParseUint(hex[j:j+4], 16, 16)
				if err != nil {
					break
				}
				units = append(units, uint16(u))
			}
			b.WriteString(string(utf16.Decode(units)))
			i += 4 + end + 4
		case strings.HasPrefix(s[i:], `\X\`) && i+5 <= len(s):
			u, err := strconv.ParseUint(s[i+3:i+5], 16, 8)
			if err != nil {
				b.WriteByte(s[i])
				i++
				continue
			}
			b.WriteRune(rune(u))
			i += 5
		default:
			b.WriteByte(s[i])
			i++
		}
	}
	return b.String()
}
