package tape

import (
	"fmt"
	"strings"
)

// DuplicateKeyMode controls how repeated keys of one object are rendered.
type DuplicateKeyMode int

const (
	// Preserve emits every member in encounter order, repeated keys included.
	Preserve DuplicateKeyMode = iota
	// Group merges the values of a repeated key into one array member placed
	// at the key's first occurrence.
	Group
	// KeyValuePairs emits objects as arrays of [key, value] pairs.
	KeyValuePairs
)

// String returns the string representation of DuplicateKeyMode.
func (m DuplicateKeyMode) String() string {
	switch m {
	case Preserve:
		return "preserve"
	case Group:
		return "group"
	case KeyValuePairs:
		return "key-value-pairs"
	default:
		return "unknown"
	}
}

// ParseDuplicateKeyMode parses the string form of a DuplicateKeyMode.
func ParseDuplicateKeyMode(s string) (DuplicateKeyMode, error) {
	switch normalize(s) {
	case "", "preserve":
		return Preserve, nil
	case "group":
		return Group, nil
	case "keyvaluepairs", "kv", "pairs":
		return KeyValuePairs, nil
	default:
		return Preserve, fmt.Errorf("unknown duplicate key mode %q", s)
	}
}

// TypeNarrowing controls which scalars are converted to JSON numbers and
// booleans.
type TypeNarrowing int

const (
	// NarrowAll narrows quoted and unquoted scalars.
	NarrowAll TypeNarrowing = iota
	// NarrowUnquoted narrows only unquoted scalars.
	NarrowUnquoted
	// NarrowNone keeps every scalar a string.
	NarrowNone
)

// String returns the string representation of TypeNarrowing.
func (n TypeNarrowing) String() string {
	switch n {
	case NarrowAll:
		return "all"
	case NarrowUnquoted:
		return "unquoted"
	case NarrowNone:
		return "none"
	default:
		return "unknown"
	}
}

// ParseTypeNarrowing parses the string form of a TypeNarrowing.
func ParseTypeNarrowing(s string) (TypeNarrowing, error) {
	switch normalize(s) {
	case "", "all":
		return NarrowAll, nil
	case "unquoted":
		return NarrowUnquoted, nil
	case "none":
		return NarrowNone, nil
	default:
		return NarrowAll, fmt.Errorf("unknown type narrowing %q", s)
	}
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "", "_", "").Replace(s)
}

// Options configures JSON rendering.
type Options struct {
	DuplicateKeys DuplicateKeyMode
	TypeNarrowing TypeNarrowing
	Pretty        bool
}

// DefaultOptions returns Preserve, NarrowAll and pretty printing.
func DefaultOptions() Options {
	return Options{
		DuplicateKeys: Preserve,
		TypeNarrowing: NarrowAll,
		Pretty:        true,
	}
}
