// Package model defines the core data structures used throughout the application.
package model

import (
	"fmt"
	"strings"
)

// ItemID identifies an item inside one item graph. Graph positions are dense
// arena indices assigned by the graph builder; Item.ID is the id reported in
// results, which equals the index unless the input supplied its own ids.
type ItemID uint32

// ItemKind is the closed set of item categories.
type ItemKind int

const (
	KindCode  ItemKind = 0 // Function bodies and imported functions
	KindData  ItemKind = 1 // Data segments and globals
	KindType  ItemKind = 2 // Function signatures
	KindOther ItemKind = 3 // Tables, memories, exports, custom sections, metadata
)

// String returns the string representation of ItemKind.
func (k ItemKind) String() string {
	switch k {
	case KindCode:
		return "code"
	case KindData:
		return "data"
	case KindType:
		return "type"
	case KindOther:
		return "other"
	default:
		return "unknown"
	}
}

// ParseItemKind parses the string form of an ItemKind.
func ParseItemKind(s string) (ItemKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "code":
		return KindCode, nil
	case "data":
		return KindData, nil
	case "type":
		return KindType, nil
	case "other", "metadata":
		return KindOther, nil
	default:
		return KindOther, fmt.Errorf("unknown item kind %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k ItemKind) MarshalText() ([]byte, error) {
	switch k {
	case KindCode, KindData, KindType, KindOther:
		return []byte(k.String()), nil
	default:
		return nil, fmt.Errorf("invalid item kind %d", int(k))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ItemKind) UnmarshalText(text []byte) error {
	parsed, err := ParseItemKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// EdgeKind labels a reference between two items.
type EdgeKind int

const (
	EdgeUnlabeled EdgeKind = 0
	EdgeCall      EdgeKind = 1 // Direct or indirect call
	EdgeData      EdgeKind = 2 // Data, global, memory or table reference
	EdgeType      EdgeKind = 3 // Signature reference
	EdgeRef       EdgeKind = 4 // Structural ownership (export, start, element, init expr)
)

// String returns the string representation of EdgeKind.
func (k EdgeKind) String() string {
	switch k {
	case EdgeUnlabeled:
		return ""
	case EdgeCall:
		return "call"
	case EdgeData:
		return "data"
	case EdgeType:
		return "type"
	case EdgeRef:
		return "ref"
	default:
		return "unknown"
	}
}

// ParseEdgeKind parses the string form of an EdgeKind. The empty string is
// the unlabeled kind.
func ParseEdgeKind(s string) (EdgeKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return EdgeUnlabeled, nil
	case "call":
		return EdgeCall, nil
	case "data":
		return EdgeData, nil
	case "type":
		return EdgeType, nil
	case "ref":
		return EdgeRef, nil
	default:
		return EdgeUnlabeled, fmt.Errorf("unknown edge kind %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k EdgeKind) MarshalText() ([]byte, error) {
	switch k {
	case EdgeUnlabeled, EdgeCall, EdgeData, EdgeType, EdgeRef:
		return []byte(k.String()), nil
	default:
		return nil, fmt.Errorf("invalid edge kind %d", int(k))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *EdgeKind) UnmarshalText(text []byte) error {
	parsed, err := ParseEdgeKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Item is a node of the item graph. Names are not unique; IDs are.
type Item struct {
	ID   ItemID   `json:"id"`
	Name string   `json:"name"`
	Kind ItemKind `json:"kind"`
	Size uint64   `json:"size"`
}

// Edge is a directed reference between two items.
type Edge struct {
	From ItemID   `json:"from"`
	To   ItemID   `json:"to"`
	Kind EdgeKind `json:"kind,omitempty"`
}
