package tape

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokOpen
	tokClose
	tokOperator
	tokScalar
)

type token struct {
	kind   tokenKind
	text   string
	quoted bool
	op     Operator
	offset int
}

// SyntaxError reports malformed tape input.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Offset, e.Msg)
}

type lexer struct {
	src  string
	pos  int
	peek *token
}

func (l *lexer) errorf(offset int, format string, args ...interface{}) error {
	return &SyntaxError{Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

func (l *lexer) peekToken() (token, error) {
	if l.peek == nil {
		tok, err := l.scan()
		if err != nil {
			return token{}, err
		}
		l.peek = &tok
	}
	return *l.peek, nil
}

func (l *lexer) next() (token, error) {
	if l.peek != nil {
		tok := *l.peek
		l.peek = nil
		return tok, nil
	}
	return l.scan()
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == ';':
			l.pos++
		case c == '#':
			if nl := strings.IndexByte(l.src[l.pos:], '\n'); nl >= 0 {
				l.pos += nl + 1
			} else {
				l.pos = len(l.src)
			}
		default:
			return
		}
	}
}

func (l *lexer) scan() (token, error) {
	l.skipSpace()
	start := l.pos
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, offset: start}, nil
	}

	c := l.src[l.pos]
	switch c {
	case '{':
		l.pos++
		return token{kind: tokOpen, offset: start}, nil
	case '}':
		l.pos++
		return token{kind: tokClose, offset: start}, nil
	case '"':
		return l.quoted()
	}

	if op, n := operatorAt(l.src[l.pos:]); n > 0 {
		l.pos += n
		return token{kind: tokOperator, op: op, offset: start}, nil
	}

	for l.pos < len(l.src) && !l.endsScalar() {
		l.pos++
	}
	return token{kind: tokScalar, text: l.src[start:l.pos], offset: start}, nil
}

func (l *lexer) endsScalar() bool {
	switch c := l.src[l.pos]; c {
	case ' ', '\t', '\r', '\n', ';', '{', '}', '"', '#', '=', '<', '>':
		return true
	case '!', '?':
		return l.pos+1 < len(l.src) && l.src[l.pos+1] == '='
	default:
		return false
	}
}

func (l *lexer) quoted() (token, error) {
	start := l.pos
	l.pos++
	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch c {
		case '"':
			l.pos++
			return token{kind: tokScalar, text: sb.String(), quoted: true, offset: start}, nil
		case '\\':
			if l.pos+1 < len(l.src) && (l.src[l.pos+1] == '"' || l.src[l.pos+1] == '\\') {
				sb.WriteByte(l.src[l.pos+1])
				l.pos += 2
				continue
			}
		}
		sb.WriteByte(c)
		l.pos++
	}
	return token{}, l.errorf(start, "unterminated quoted string")
}

// Operator is the relation between a key and its value.
type Operator int

const (
	OpEqual Operator = iota
	OpLessThan
	OpLessThanEqual
	OpGreaterThan
	OpGreaterThanEqual
	OpNotEqual
	OpExact
	OpExists
)

// String returns the operator as written in tape text.
func (o Operator) String() string {
	switch o {
	case OpEqual:
		return "="
	case OpLessThan:
		return "<"
	case OpLessThanEqual:
		return "<="
	case OpGreaterThan:
		return ">"
	case OpGreaterThanEqual:
		return ">="
	case OpNotEqual:
		return "!="
	case OpExact:
		return "=="
	case OpExists:
		return "?="
	default:
		return "?"
	}
}

// jsonName is the member name wrapping a value whose operator is not a
// plain assignment.
func (o Operator) jsonName() string {
	switch o {
	case OpLessThan:
		return "LESS_THAN"
	case OpLessThanEqual:
		return "LESS_THAN_EQUAL"
	case OpGreaterThan:
		return "GREATER_THAN"
	case OpGreaterThanEqual:
		return "GREATER_THAN_EQUAL"
	case OpNotEqual:
		return "NOT_EQUAL"
	case OpExact:
		return "EXACT"
	case OpExists:
		return "EXISTS"
	default:
		return ""
	}
}

func operatorAt(s string) (Operator, int) {
	two := ""
	if len(s) >= 2 {
		two = s[:2]
	}
	switch two {
	case "<=":
		return OpLessThanEqual, 2
	case ">=":
		return OpGreaterThanEqual, 2
	case "!=":
		return OpNotEqual, 2
	case "==":
		return OpExact, 2
	case "?=":
		return OpExists, 2
	}
	switch s[0] {
	case '=':
		return OpEqual, 1
	case '<':
		return OpLessThan, 1
	case '>':
		return OpGreaterThan, 1
	}
	return 0, 0
}
