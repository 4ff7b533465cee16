package p21

import (
	"fmt"
	"strconv"
	"strings"
)

type tokKind uint8

const (
	tEOF tokKind = iota
	tKeyword
	tInstance
	tEquals
	tOpen
	tClose
	tComma
	tSemi
	tString
	tEnum
	tInteger
	tReal
	tDollar
	tStar
	tBinary
)

type token struct {
	kind tokKind
	text string
	id   int
	ival int64
	fval float64
	line int
}

func (t token) String() string {
	switch t.kind {
	case tEOF:
		return "end of file"
	case tKeyword:
		return t.text
	case tInstance:
		return "#" + strconv.Itoa(t.id)
	case tEquals:
		return "'='"
	case tOpen:
		return "'('"
	case tClose:
		return "')'"
	case tComma:
		return "','"
	case tSemi:
		return "';'"
	case tString:
		return "string " + QuoteString(t.text)
	case tEnum:
		return "." + t.text + "."
	case tInteger, tReal:
		return "number " + t.text
	case tDollar:
		return "'$'"
	case tStar:
		return "'*'"
	case tBinary:
		return "binary"
	}
	return "?"
}

type lexer struct {
	src  []byte
	pos  int
	line int
}

func (l *lexer) errorf(format string, args ...any) error {
	return &ParseError{Line: l.line, Msg: fmt.Sprintf(format, args...)}
}

func (l *lexer) skip() error {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\n':
			l.line++
			l.pos++
		case c == ' ' || c == '\t' || c == '\r':
			l.pos++
		case c == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '*':
			start := l.line
			l.pos += 2
			for {
				if l.pos+1 >= len(l.src) {
					return &ParseError{Line: start, Msg: "unterminated comment"}
				}
				if l.src[l.pos] == '*' && l.src[l.pos+1] == '/' {
					l.pos += 2
					break
				}
				if l.src[l.pos] == '\n' {
					l.line++
				}
				l.pos++
			}
		default:
			return nil
		}
	}
	return nil
}

func isLetter(c byte) bool { return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' }
func isDigit(c byte) bool  { return c >= '0' && c <= '9' }

func isKeywordByte(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '_' || c == '-'
}

func (l *lexer) next() (token, error) {
	if err := l.skip(); err != nil {
		return token{}, err
	}
	t := token{line: l.line}
	if l.pos >= len(l.src) {
		t.kind = tEOF
		return t, nil
	}
	c := l.src[l.pos]
	switch {
	case c == '=':
		t.kind = tEquals
		l.pos++
	case c == '(':
		t.kind = tOpen
		l.pos++
	case c == ')':
		t.kind = tClose
		l.pos++
	case c == ',':
		t.kind = tComma
		l.pos++
	case c == ';':
		t.kind = tSemi
		l.pos++
	case c == '$':
		t.kind = tDollar
		l.pos++
	case c == '*':
		t.kind = tStar
		l.pos++
	case c == '#':
		l.pos++
		start := l.pos
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
		id, err := strconv.Atoi(string(l.src[start:l.pos]))
		if err != nil {
			return t, l.errorf("bad instance name")
		}
		t.kind, t.id = tInstance, id
	case c == '\'':
		s, err := l.str()
		if err != nil {
			return t, err
		}
		t.kind, t.text = tString, s
	case c == '"':
		l.pos++
		start := l.pos
		for l.pos < len(l.src) && l.src[l.pos] != '"' {
			l.pos++
		}
		if l.pos >= len(l.src) {
			return t, l.errorf("unterminated binary")
		}
		t.kind, t.text = tBinary, string(l.src[start:l.pos])
		l.pos++
	case c == '.' && l.pos+1 < len(l.src) && isLetter(l.src[l.pos+1]):
		l.pos++
		start := l.pos
		for l.pos < len(l.src) && (isLetter(l.src[l.pos]) || isDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
			l.pos++
		}
		if l.pos >= len(l.src) || l.src[l.pos] != '.' {
			return t, l.errorf("unterminated enumeration")
		}
		t.kind, t.text = tEnum, strings.ToUpper(string(l.src[start:l.pos]))
		l.pos++
	case isDigit(c) || c == '-' || c == '+':
		return l.number(t)
	case isLetter(c) || c == '!':
		start := l.pos
		l.pos++
		for l.pos < len(l.src) && isKeywordByte(l.src[l.pos]) {
			l.pos++
		}
		t.kind, t.text = tKeyword, strings.ToUpper(string(l.src[start:l.pos]))
	default:
		return t, l.errorf("unexpected character %q", c)
	}
	return t, nil
}

func (l *lexer) str() (string, error) {
	start := l.line
	l.pos++
	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			return "", &ParseError{Line: start, Msg: "unterminated string"}
		}
		c := l.src[l.pos]
		switch c {
		case '\'':
			if l.pos+1 < len(l.src) && l.src[l.pos+1] == '\'' {
				b.WriteString("''")
				l.pos += 2
				continue
			}
			l.pos++
			return unescape(b.String()), nil
		case '\n':
			l.line++
			l.pos++
		case '\r':
			l.pos++
		default:
			b.WriteByte(c)
			l.pos++
		}
	}
}

func (l *lexer) number(t token) (token, error) {
	start := l.pos
	if c := l.src[l.pos]; c == '-' || c == '+' {
		l.pos++
	}
	digits := l.pos
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	if l.pos == digits {
		return t, l.errorf("bad number")
	}
	isReal := false
	if l.pos < len(l.src) && l.src[l.pos] == '.' {
		isReal = true
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	if l.pos < len(l.src) && (l.src[l.pos] == 'E' || l.src[l.pos] == 'e') {
		isReal = true
		l.pos++
		if l.pos < len(l.src) && (l.src[l.pos] == '-' || l.src[l.pos] == '+') {
			l.pos++
		}
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	text := string(l.src[start:l.pos])
	t.text = text
	if isReal {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return t, l.errorf("bad real %q", text)
		}
		t.kind, t.fval = tReal, f
		return t, nil
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return t, l.errorf("bad integer %q", text)
	}
	t.kind, t.ival = tInteger, i
	return t, nil
}
