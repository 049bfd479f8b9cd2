// Package tape parses key/value tape text and renders it as JSON.
//
// Tape text is a sequence of members such as
//
//	name = "Ludwig"
//	age = 42
//	traits = { brave ambitious }
//	army = { size > 1000 }
//
// The top level is an implicit object. Braces open a container, which
// holds members (an object), bare values (an array), or both.
package tape

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/size-analysis/pkg/errors"
)

// NodeKind distinguishes scalars from containers.
type NodeKind int

const (
	NodeScalar NodeKind = iota
	NodeContainer
)

// Node is a parsed tape value.
type Node struct {
	Kind NodeKind

	// Scalar fields.
	Text   string
	Quoted bool

	// Container entries in source order.
	Entries []Entry

	// Tag names a tagged container such as rgb { 1 2 3 }.
	Tag string
}

// Entry is one element of a container: a keyed member or a bare value.
type Entry struct {
	Key       string
	KeyQuoted bool
	HasKey    bool
	Op        Operator
	Value     *Node
}

// IsObject returns true if every entry of a non-empty container is keyed.
func (n *Node) IsObject() bool {
	if n.Kind != NodeContainer || len(n.Entries) == 0 {
		return false
	}
	for _, e := range n.Entries {
		if !e.HasKey {
			return false
		}
	}
	return true
}

// Tape is a parsed document.
type Tape struct {
	Root *Node
}

var taggedContainers = map[string]bool{
	"rgb":    true,
	"hsv":    true,
	"hsv360": true,
	"hex":    true,
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// MaxDepth bounds container nesting. Deeper input is a syntax error.
const MaxDepth = 10000

// Parse parses tape text. Input that is not valid UTF-8 is decoded as
// Windows-1252. Syntax errors are returned as PARSE_ERROR app errors
// wrapping a *SyntaxError.
func Parse(data []byte) (*Tape, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, errors.Wrap(errors.CodeParseError, "invalid tape encoding", err)
		}
		data = decoded
	}

	p := &parser{lex: &lexer{src: string(data)}}
	root, err := p.container(false)
	if err != nil {
		return nil, errors.Wrap(errors.CodeParseError, "invalid tape", err)
	}
	return &Tape{Root: root}, nil
}

type parser struct {
	lex   *lexer
	depth int
}

// container reads entries until the closing brace, or until the end of
// input for the implicit top-level object.
func (p *parser) container(braced bool) (*Node, error) {
	if braced {
		p.depth++
		defer func() { p.depth-- }()
		if p.depth > MaxDepth {
			return nil, p.lex.errorf(p.lex.pos, "containers nested deeper than %d levels", MaxDepth)
		}
	}

	node := &Node{Kind: NodeContainer}
	for {
		tok, err := p.lex.next()
		if err != nil {
			return nil, err
		}

		switch tok.kind {
		case tokEOF:
			if braced {
				return nil, p.lex.errorf(tok.offset, "unexpected end of input, missing '}'")
			}
			return node, nil
		case tokClose:
			if !braced {
				return nil, p.lex.errorf(tok.offset, "unbalanced '}'")
			}
			return node, nil
		case tokOpen:
			child, err := p.container(true)
			if err != nil {
				return nil, err
			}
			node.Entries = append(node.Entries, Entry{Value: child})
		case tokOperator:
			return nil, p.lex.errorf(tok.offset, "operator %q without a key", tok.op.String())
		case tokScalar:
			entry, err := p.afterScalar(tok)
			if err != nil {
				return nil, err
			}
			node.Entries = append(node.Entries, entry)
		}
	}
}

// afterScalar decides whether a scalar starts a member, a tagged container
// or is a bare value.
func (p *parser) afterScalar(tok token) (Entry, error) {
	next, err := p.lex.peekToken()
	if err != nil {
		return Entry{}, err
	}

	switch {
	case next.kind == tokOperator:
		_, _ = p.lex.next()
		value, err := p.value(next.offset)
		if err != nil {
			return Entry{}, err
		}
		return Entry{Key: tok.text, KeyQuoted: tok.quoted, HasKey: true, Op: next.op, Value: value}, nil
	case next.kind == tokOpen && !tok.quoted && taggedContainers[tok.text]:
		_, _ = p.lex.next()
		child, err := p.container(true)
		if err != nil {
			return Entry{}, err
		}
		child.Tag = tok.text
		return Entry{Value: child}, nil
	default:
		return Entry{Value: &Node{Kind: NodeScalar, Text: tok.text, Quoted: tok.quoted}}, nil
	}
}

func (p *parser) value(opOffset int) (*Node, error) {
	tok, err := p.lex.next()
	if err != nil {
		return nil, err
	}

	switch tok.kind {
	case tokOpen:
		return p.container(true)
	case tokScalar:
		if !tok.quoted && taggedContainers[tok.text] {
			next, err := p.lex.peekToken()
			if err != nil {
				return nil, err
			}
			if next.kind == tokOpen {
				_, _ = p.lex.next()
				child, err := p.container(true)
				if err != nil {
					return nil, err
				}
				child.Tag = tok.text
				return child, nil
			}
		}
		return &Node{Kind: NodeScalar, Text: tok.text, Quoted: tok.quoted}, nil
	default:
		return nil, p.lex.errorf(opOffset, "missing value after operator")
	}
}
