// Package graphdoc decodes item graphs written out as JSON or YAML documents.
//
// A document lists items, edges and roots:
//
//	items:
//	  - {id: 10, name: main, kind: code, size: 120}
//	  - {id: 11, name: helper, kind: code, size: 40}
//	edges:
//	  - {from: 10, to: 11, kind: call}
//	roots: [10]
//
// Document ids are arbitrary but unique. Analysis results report them
// unchanged.
package graphdoc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/size-analysis/internal/itemgraph"
	"github.com/size-analysis/pkg/errors"
	"github.com/size-analysis/pkg/model"
)

// Encoding selects the document syntax.
type Encoding int

const (
	EncodingJSON Encoding = iota
	EncodingYAML
)

// String returns the string representation of Encoding.
func (e Encoding) String() string {
	switch e {
	case EncodingJSON:
		return "json"
	case EncodingYAML:
		return "yaml"
	default:
		return "unknown"
	}
}

// Document is the serialized form of an item graph.
type Document struct {
	Items []ItemDoc `json:"items" yaml:"items"`
	Edges []EdgeDoc `json:"edges" yaml:"edges"`
	Roots []uint32  `json:"roots" yaml:"roots"`
}

// ItemDoc is one item of a Document.
type ItemDoc struct {
	ID   *uint32 `json:"id" yaml:"id"`
	Name string  `json:"name" yaml:"name"`
	Kind string  `json:"kind" yaml:"kind"`
	Size uint64  `json:"size" yaml:"size"`
}

// EdgeDoc is one edge of a Document.
type EdgeDoc struct {
	From uint32 `json:"from" yaml:"from"`
	To   uint32 `json:"to" yaml:"to"`
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`
}

// Decoder decodes graph documents of one encoding.
type Decoder struct {
	encoding Encoding
}

// NewDecoder creates a Decoder for the given encoding.
func NewDecoder(enc Encoding) *Decoder {
	return &Decoder{encoding: enc}
}

// Name returns the decoder name, "graph-json" or "graph-yaml".
func (d *Decoder) Name() string {
	return "graph-" + d.encoding.String()
}

// Decode parses data and builds the item graph it describes.
func (d *Decoder) Decode(ctx context.Context, data []byte) (*itemgraph.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := d.parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStructural, "invalid graph document", err)
	}
	return doc.Build()
}

func (d *Decoder) parse(data []byte) (*Document, error) {
	var doc Document
	switch d.encoding {
	case EncodingJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, err
		}
	case EncodingYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported encoding %d", int(d.encoding))
	}
	return &doc, nil
}

// Build validates the document and converts it to a graph. Missing or
// duplicate ids and unknown kinds are structural errors; edges or roots
// naming an unknown id are graph consistency errors.
func (doc *Document) Build() (*itemgraph.Graph, error) {
	b := itemgraph.NewBuilder(len(doc.Items), len(doc.Edges))
	ids := make(map[uint32]model.ItemID, len(doc.Items))

	for i, it := range doc.Items {
		if it.ID == nil {
			return nil, errors.Newf(errors.CodeStructural, "item %d has no id", i)
		}
		if _, dup := ids[*it.ID]; dup {
			return nil, errors.Newf(errors.CodeStructural, "duplicate item id %d", *it.ID)
		}
		kind, err := model.ParseItemKind(it.Kind)
		if err != nil {
			return nil, errors.Wrap(errors.CodeStructural, fmt.Sprintf("item %d", *it.ID), err)
		}
		ids[*it.ID] = b.AddItemWithID(model.ItemID(*it.ID), it.Name, kind, it.Size)
	}

	for i, e := range doc.Edges {
		from, ok := ids[e.From]
		if !ok {
			return nil, errors.Newf(errors.CodeGraphConsistency, "edge %d references unknown item %d", i, e.From)
		}
		to, ok := ids[e.To]
		if !ok {
			return nil, errors.Newf(errors.CodeGraphConsistency, "edge %d references unknown item %d", i, e.To)
		}
		kind, err := model.ParseEdgeKind(e.Kind)
		if err != nil {
			return nil, errors.Wrap(errors.CodeStructural, fmt.Sprintf("edge %d", i), err)
		}
		b.AddEdge(from, to, kind)
	}

	for _, r := range doc.Roots {
		id, ok := ids[r]
		if !ok {
			return nil, errors.Newf(errors.CodeGraphConsistency, "root references unknown item %d", r)
		}
		b.AddRoot(id)
	}

	return b.Build()
}

// FromGraph renders g as a Document using the items' reported ids.
func FromGraph(g *itemgraph.Graph) *Document {
	doc := &Document{
		Items: make([]ItemDoc, 0, g.Len()),
		Edges: make([]EdgeDoc, 0, g.EdgeCount()),
		Roots: make([]uint32, 0, len(g.Roots())),
	}
	for _, it := range g.Items() {
		id := uint32(it.ID)
		doc.Items = append(doc.Items, ItemDoc{ID: &id, Name: it.Name, Kind: it.Kind.String(), Size: it.Size})
	}
	for _, e := range g.Edges() {
		doc.Edges = append(doc.Edges, EdgeDoc{
			From: uint32(g.ID(e.From)),
			To:   uint32(g.ID(e.To)),
			Kind: e.Kind.String(),
		})
	}
	for _, r := range g.Roots() {
		doc.Roots = append(doc.Roots, uint32(g.ID(r)))
	}
	return doc
}
