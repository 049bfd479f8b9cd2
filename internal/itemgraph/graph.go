// Package itemgraph provides the immutable item graph analysed for size
// attribution. Items live in a flat arena indexed by model.ItemID; adjacency
// is stored in compressed sparse row form for both directions.
package itemgraph

import (
	"github.com/size-analysis/pkg/collections"
	"github.com/size-analysis/pkg/model"
)

// Graph is a read-only item graph. It is safe for concurrent readers.
type Graph struct {
	items []model.Item
	edges []model.Edge

	// CSR adjacency: successors of i are succ[succOff[i]:succOff[i+1]].
	succOff []uint32
	succ    []model.ItemID
	predOff []uint32
	pred    []model.ItemID

	roots   []model.ItemID
	rootSet *collections.Bitset

	// byID maps caller-supplied ids to indices; nil when ids are indices.
	byID map[model.ItemID]model.ItemID

	totalSize uint64
}

// Len returns the number of items.
func (g *Graph) Len() int {
	return len(g.items)
}

// EdgeCount returns the number of edges, duplicates included.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Has returns true if id names an item of the graph.
func (g *Graph) Has(id model.ItemID) bool {
	return int(id) < len(g.items)
}

// Item returns the item at the given index. It panics if index is out of
// range.
func (g *Graph) Item(index model.ItemID) model.Item {
	return g.items[index]
}

// ID returns the reported id of the item at index.
func (g *Graph) ID(index model.ItemID) model.ItemID {
	return g.items[index].ID
}

// Lookup returns the index of the item reported as id.
func (g *Graph) Lookup(id model.ItemID) (model.ItemID, bool) {
	if g.byID == nil {
		return id, g.Has(id)
	}
	index, ok := g.byID[id]
	return index, ok
}

// Items returns all items in index order. The slice must not be modified.
func (g *Graph) Items() []model.Item {
	return g.items
}

// Edges returns all edges in insertion order. The slice must not be modified.
func (g *Graph) Edges() []model.Edge {
	return g.edges
}

// Successors returns the targets of id's outgoing edges in insertion order.
func (g *Graph) Successors(id model.ItemID) []model.ItemID {
	return g.succ[g.succOff[id]:g.succOff[id+1]]
}

// Predecessors returns the sources of id's incoming edges in insertion order.
func (g *Graph) Predecessors(id model.ItemID) []model.ItemID {
	return g.pred[g.predOff[id]:g.predOff[id+1]]
}

// Roots returns the de-duplicated root ids in insertion order.
func (g *Graph) Roots() []model.ItemID {
	return g.roots
}

// IsRoot returns true if id is a root.
func (g *Graph) IsRoot(id model.ItemID) bool {
	return g.rootSet.Test(int(id))
}

// TotalSize returns the sum of all item sizes.
func (g *Graph) TotalSize() uint64 {
	return g.totalSize
}

// SizeOf sums the sizes of the items whose ids are set in ids.
func (g *Graph) SizeOf(ids *collections.Bitset) uint64 {
	var total uint64
	ids.Iterate(func(i int) bool {
		if i < len(g.items) {
			total += g.items[i].Size
		}
		return true
	})
	return total
}
