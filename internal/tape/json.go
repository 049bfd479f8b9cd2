package tape

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/size-analysis/pkg/errors"
)

var (
	integerPattern = regexp.MustCompile(`^[+-]?[0-9]+$`)
	decimalPattern = regexp.MustCompile(`^[+-]?[0-9]*\.[0-9]+$`)
)

// ToJSON renders t as a JSON document. An empty document renders as {}.
func ToJSON(t *Tape, opts Options) (string, error) {
	if t == nil || t.Root == nil || len(t.Root.Entries) == 0 {
		return "{}", nil
	}
	w := &jsonWriter{opts: opts}
	if err := w.container(t.Root, 0); err != nil {
		return "", err
	}
	return w.buf.String(), nil
}

// Convert parses tape text and renders it as JSON in one step.
func Convert(data []byte, opts Options) (string, error) {
	t, err := Parse(data)
	if err != nil {
		return "", err
	}
	return ToJSON(t, opts)
}

type jsonWriter struct {
	buf  bytes.Buffer
	opts Options
}

// member is one rendered object member after duplicate-key handling.
type member struct {
	key    string
	values []Entry
}

func (w *jsonWriter) newline(depth int) {
	if !w.opts.Pretty {
		return
	}
	w.buf.WriteByte('\n')
	w.buf.WriteString(strings.Repeat("  ", depth))
}

func (w *jsonWriter) colon() {
	if w.opts.Pretty {
		w.buf.WriteString(": ")
		return
	}
	w.buf.WriteByte(':')
}

func (w *jsonWriter) str(s string) error {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	w.buf.Write(bytes.TrimSuffix(b.Bytes(), []byte("\n")))
	return nil
}

// list writes n elements between open and end, calling fn for each.
func (w *jsonWriter) list(open, end byte, n, depth int, fn func(i int) error) error {
	w.buf.WriteByte(open)
	if n == 0 {
		w.buf.WriteByte(end)
		return nil
	}
	for i := 0; i < n; i++ {
		if i > 0 {
			w.buf.WriteByte(',')
		}
		w.newline(depth + 1)
		if err := fn(i); err != nil {
			return err
		}
	}
	w.newline(depth)
	w.buf.WriteByte(end)
	return nil
}

// maxRenderDepth allows for the extra levels that operator and group
// wrappers add to each container.
const maxRenderDepth = 4*MaxDepth + 4

func (w *jsonWriter) node(n *Node, depth int) error {
	if depth > maxRenderDepth {
		return errors.Newf(errors.CodeParseError, "containers nested deeper than %d levels", MaxDepth)
	}
	if n.Kind == NodeScalar {
		return w.scalar(n)
	}
	if n.Tag != "" {
		// rgb { 1 2 3 } renders as {"rgb": [1, 2, 3]}
		return w.list('{', '}', 1, depth, func(int) error {
			if err := w.str(n.Tag); err != nil {
				return err
			}
			w.colon()
			return w.array(n, depth+1)
		})
	}
	return w.container(n, depth)
}

func (w *jsonWriter) container(n *Node, depth int) error {
	if n.IsObject() {
		return w.object(n, depth)
	}
	return w.array(n, depth)
}

// array renders a container as a JSON array. Keyed entries of a mixed
// container become single-member objects.
func (w *jsonWriter) array(n *Node, depth int) error {
	return w.list('[', ']', len(n.Entries), depth, func(i int) error {
		e := n.Entries[i]
		if !e.HasKey {
			return w.node(e.Value, depth+1)
		}
		return w.list('{', '}', 1, depth+1, func(int) error {
			if err := w.str(e.Key); err != nil {
				return err
			}
			w.colon()
			return w.entryValue(e, depth+2)
		})
	})
}

func (w *jsonWriter) object(n *Node, depth int) error {
	switch w.opts.DuplicateKeys {
	case KeyValuePairs:
		return w.list('[', ']', len(n.Entries), depth, func(i int) error {
			e := n.Entries[i]
			return w.list('[', ']', 2, depth+1, func(j int) error {
				if j == 0 {
					return w.str(e.Key)
				}
				return w.entryValue(e, depth+2)
			})
		})
	case Group:
		members := groupMembers(n.Entries)
		return w.list('{', '}', len(members), depth, func(i int) error {
			m := members[i]
			if err := w.str(m.key); err != nil {
				return err
			}
			w.colon()
			if len(m.values) == 1 {
				return w.entryValue(m.values[0], depth+1)
			}
			return w.list('[', ']', len(m.values), depth+1, func(j int) error {
				return w.entryValue(m.values[j], depth+2)
			})
		})
	default:
		return w.list('{', '}', len(n.Entries), depth, func(i int) error {
			e := n.Entries[i]
			if err := w.str(e.Key); err != nil {
				return err
			}
			w.colon()
			return w.entryValue(e, depth+1)
		})
	}
}

func groupMembers(entries []Entry) []member {
	index := make(map[string]int, len(entries))
	var members []member
	for _, e := range entries {
		if i, ok := index[e.Key]; ok {
			members[i].values = append(members[i].values, e)
			continue
		}
		index[e.Key] = len(members)
		members = append(members, member{key: e.Key, values: []Entry{e}})
	}
	return members
}

// entryValue renders a member value, wrapping it in an operator object when
// the relation is not a plain assignment.
func (w *jsonWriter) entryValue(e Entry, depth int) error {
	if e.Op == OpEqual {
		return w.node(e.Value, depth)
	}
	return w.list('{', '}', 1, depth, func(int) error {
		if err := w.str(e.Op.jsonName()); err != nil {
			return err
		}
		w.colon()
		return w.node(e.Value, depth+1)
	})
}

func (w *jsonWriter) scalar(n *Node) error {
	narrow := w.opts.TypeNarrowing == NarrowAll ||
		(w.opts.TypeNarrowing == NarrowUnquoted && !n.Quoted)
	if narrow {
		if lit, ok := narrowScalar(n.Text); ok {
			w.buf.WriteString(lit)
			return nil
		}
	}
	return w.str(n.Text)
}

// narrowScalar returns the JSON literal for text when it reads as a number
// or a yes/no boolean.
func narrowScalar(text string) (string, bool) {
	switch text {
	case "yes":
		return "true", true
	case "no":
		return "false", true
	}
	if integerPattern.MatchString(text) {
		if v, err := strconv.ParseInt(text, 10, 64); err == nil {
			return strconv.FormatInt(v, 10), true
		}
		if v, err := strconv.ParseUint(strings.TrimPrefix(text, "+"), 10, 64); err == nil {
			return strconv.FormatUint(v, 10), true
		}
	}
	if integerPattern.MatchString(text) || decimalPattern.MatchString(text) {
		if v, err := strconv.ParseFloat(text, 64); err == nil {
			return strconv.FormatFloat(v, 'f', -1, 64), true
		}
	}
	return "", false
}
