package itemgraph

import (
	"github.com/size-analysis/pkg/collections"
	"github.com/size-analysis/pkg/errors"
	"github.com/size-analysis/pkg/model"
)

// Builder accumulates items, edges and roots and produces a Graph.
// Arena indices are assigned densely in insertion order. Edges and roots are
// always expressed in indices.
type Builder struct {
	items []model.Item
	edges []model.Edge
	roots []model.ItemID

	explicitIDs bool
}

// NewBuilder creates a new Builder with capacity hints.
func NewBuilder(itemHint, edgeHint int) *Builder {
	return &Builder{
		items: make([]model.Item, 0, max(itemHint, 0)),
		edges: make([]model.Edge, 0, max(edgeHint, 0)),
	}
}

// AddItem appends an item whose id is its arena index and returns the index.
func (b *Builder) AddItem(name string, kind model.ItemKind, size uint64) model.ItemID {
	index := model.ItemID(len(b.items))
	b.items = append(b.items, model.Item{ID: index, Name: name, Kind: kind, Size: size})
	return index
}

// AddItemWithID appends an item reported under the caller's id and returns
// its arena index. Build rejects duplicate ids.
func (b *Builder) AddItemWithID(id model.ItemID, name string, kind model.ItemKind, size uint64) model.ItemID {
	index := model.ItemID(len(b.items))
	b.items = append(b.items, model.Item{ID: id, Name: name, Kind: kind, Size: size})
	b.explicitIDs = true
	return index
}

// SetSize replaces the size of an already added item. Unknown ids are ignored
// here and reported by Build only if referenced.
func (b *Builder) SetSize(id model.ItemID, size uint64) {
	if int(id) < len(b.items) {
		b.items[id].Size = size
	}
}

// SetName replaces the name of an already added item.
func (b *Builder) SetName(id model.ItemID, name string) {
	if int(id) < len(b.items) {
		b.items[id].Name = name
	}
}

// AddEdge records a reference from one item to another. Duplicate edges are kept.
func (b *Builder) AddEdge(from, to model.ItemID, kind model.EdgeKind) {
	b.edges = append(b.edges, model.Edge{From: from, To: to, Kind: kind})
}

// AddRoot marks id as a root. Repeated roots are collapsed by Build.
func (b *Builder) AddRoot(id model.ItemID) {
	b.roots = append(b.roots, id)
}

// Len returns the number of items added so far.
func (b *Builder) Len() int {
	return len(b.items)
}

// Build validates the accumulated graph and freezes it. Every edge endpoint
// and root must name an added item.
func (b *Builder) Build() (*Graph, error) {
	n := len(b.items)
	if uint64(n) > uint64(^model.ItemID(0)) {
		return nil, errors.Newf(errors.CodeGraphConsistency, "too many items: %d", n)
	}

	var byID map[model.ItemID]model.ItemID
	if b.explicitIDs {
		byID = make(map[model.ItemID]model.ItemID, n)
	}

	var total uint64
	for i := range b.items {
		switch b.items[i].Kind {
		case model.KindCode, model.KindData, model.KindType, model.KindOther:
		default:
			return nil, errors.Newf(errors.CodeGraphConsistency,
				"item %d has invalid kind %d", i, int(b.items[i].Kind))
		}
		total += b.items[i].Size
		if byID != nil {
			id := b.items[i].ID
			if _, dup := byID[id]; dup {
				return nil, errors.Newf(errors.CodeGraphConsistency, "duplicate item id %d", id)
			}
			byID[id] = model.ItemID(i)
		}
	}

	for i, e := range b.edges {
		if int(e.From) >= n {
			return nil, errors.Newf(errors.CodeGraphConsistency,
				"edge %d references unknown source item %d", i, e.From)
		}
		if int(e.To) >= n {
			return nil, errors.Newf(errors.CodeGraphConsistency,
				"edge %d references unknown target item %d", i, e.To)
		}
	}

	rootSet := collections.NewBitset(n)
	roots := make([]model.ItemID, 0, len(b.roots))
	for _, r := range b.roots {
		if int(r) >= n {
			return nil, errors.Newf(errors.CodeGraphConsistency, "root references unknown item %d", r)
		}
		if rootSet.TestAndSet(int(r)) {
			continue
		}
		roots = append(roots, r)
	}

	g := &Graph{
		items:     b.items,
		edges:     b.edges,
		roots:     roots,
		rootSet:   rootSet,
		byID:      byID,
		totalSize: total,
	}
	g.succOff, g.succ = buildCSR(n, b.edges, func(e model.Edge) (model.ItemID, model.ItemID) { return e.From, e.To })
	g.predOff, g.pred = buildCSR(n, b.edges, func(e model.Edge) (model.ItemID, model.ItemID) { return e.To, e.From })

	// Detach the builder from the frozen slices.
	b.items, b.edges, b.roots = nil, nil, nil

	return g, nil
}

// buildCSR lays out adjacency lists with a counting pass followed by a
// stable placement pass, keeping edge insertion order within each row.
func buildCSR(n int, edges []model.Edge, endpoints func(model.Edge) (model.ItemID, model.ItemID)) ([]uint32, []model.ItemID) {
	off := make([]uint32, n+1)
	for _, e := range edges {
		src, _ := endpoints(e)
		off[src+1]++
	}
	for i := 1; i <= n; i++ {
		off[i] += off[i-1]
	}

	adj := make([]model.ItemID, len(edges))
	cursor := make([]uint32, n)
	copy(cursor, off[:n])
	for _, e := range edges {
		src, dst := endpoints(e)
		adj[cursor[src]] = dst
		cursor[src]++
	}
	return off, adj
}
