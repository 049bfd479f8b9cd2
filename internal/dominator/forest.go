package dominator

import (
	"sort"

	"github.com/size-analysis/internal/itemgraph"
	"github.com/size-analysis/pkg/model"
)

// Forest is the dominator forest of one analysis. Roots dominate themselves;
// items jointly owned by unrelated roots are dominated by the supersource.
// Methods take and return graph indices; Entries reports item ids.
type Forest struct {
	graph *itemgraph.Graph
	super int32

	idom     []int32
	retained []uint64
	postList []int32

	// Dominator tree children in CSR form, ascending id within each row.
	childOff []uint32
	children []model.ItemID

	sharedSize uint64
	count      int
}

func newForest(g *itemgraph.Graph, s *state) *Forest {
	n := g.Len()
	f := &Forest{
		graph:    g,
		super:    s.super,
		idom:     s.idom,
		retained: make([]uint64, n+1),
		postList: s.postList,
		count:    len(s.postList) - 1,
	}

	// A node's immediate dominator always has a higher postorder number, so
	// one pass in postorder finishes every subtree before its parent.
	for _, v := range s.postList {
		if v == f.super {
			continue
		}
		f.retained[v] += g.Item(model.ItemID(v)).Size
		parent := f.idom[v]
		f.retained[parent] += f.retained[v]
		if parent == f.super && !g.IsRoot(model.ItemID(v)) {
			f.sharedSize += f.retained[v]
		}
	}

	f.buildChildren()
	return f
}

func (f *Forest) buildChildren() {
	n := f.graph.Len()
	f.childOff = make([]uint32, n+2)
	for v := 0; v < n; v++ {
		if p := f.idom[v]; p != undefined && !f.isRootSlot(int32(v)) {
			f.childOff[p+1]++
		}
	}
	for i := 1; i < len(f.childOff); i++ {
		f.childOff[i] += f.childOff[i-1]
	}

	f.children = make([]model.ItemID, f.childOff[n+1])
	cursor := make([]uint32, n+1)
	copy(cursor, f.childOff[:n+1])
	// Ascending v keeps each row sorted.
	for v := 0; v < n; v++ {
		if p := f.idom[v]; p != undefined && !f.isRootSlot(int32(v)) {
			f.children[cursor[p]] = model.ItemID(v)
			cursor[p]++
		}
	}
}

func (f *Forest) isRootSlot(v int32) bool {
	return f.graph.IsRoot(model.ItemID(v)) && f.idom[v] == f.super
}

// Len returns the number of items in the forest.
func (f *Forest) Len() int {
	return f.count
}

// Contains returns true if id is part of the forest.
func (f *Forest) Contains(id model.ItemID) bool {
	return int(id) < f.graph.Len() && f.idom[id] != undefined
}

// ImmediateDominator returns the immediate dominator of id. Roots return
// themselves. The boolean is false when id is not in the forest or when only
// the supersource dominates it.
func (f *Forest) ImmediateDominator(id model.ItemID) (model.ItemID, bool) {
	if !f.Contains(id) {
		return 0, false
	}
	if f.isRootSlot(int32(id)) {
		return id, true
	}
	p := f.idom[id]
	if p == f.super {
		return 0, false
	}
	return model.ItemID(p), true
}

// IsShared returns true if id is in the forest but no real item dominates it.
func (f *Forest) IsShared(id model.ItemID) bool {
	return f.Contains(id) && !f.isRootSlot(int32(id)) && f.idom[id] == f.super
}

// RetainedSize returns the size that removing id would recover. Items
// outside the forest retain nothing.
func (f *Forest) RetainedSize(id model.ItemID) uint64 {
	if !f.Contains(id) {
		return 0
	}
	return f.retained[id]
}

// SharedSize returns the total retained size of the items dominated directly
// by the supersource, excluding the roots themselves.
func (f *Forest) SharedSize() uint64 {
	return f.sharedSize
}

// SharedItems returns the non-root items dominated directly by the
// supersource, in ascending index order.
func (f *Forest) SharedItems() []model.ItemID {
	row := f.children[f.childOff[f.super]:f.childOff[f.super+1]]
	out := make([]model.ItemID, len(row))
	copy(out, row)
	return out
}

// Children returns the items immediately dominated by id in ascending index
// order. Roots never appear as children.
func (f *Forest) Children(id model.ItemID) []model.ItemID {
	if !f.Contains(id) {
		return nil
	}
	row := f.children[f.childOff[id]:f.childOff[id+1]]
	out := make([]model.ItemID, len(row))
	copy(out, row)
	return out
}

// Path returns the dominator chain starting at id and ending at the root
// that dominates it. The boolean is false when the chain ends at the
// supersource instead; the path then ends at the last real item.
func (f *Forest) Path(id model.ItemID) ([]model.ItemID, bool) {
	if !f.Contains(id) {
		return nil, false
	}

	var path []model.ItemID
	current := int32(id)
	for {
		path = append(path, model.ItemID(current))
		if f.isRootSlot(current) {
			return path, true
		}
		next := f.idom[current]
		if next == f.super {
			return path, false
		}
		current = next
	}
}

// IsDominated returns true if every path from the roots to node passes
// through dominator. An item dominates itself.
func (f *Forest) IsDominated(node, dominator model.ItemID) bool {
	path, _ := f.Path(node)
	for _, id := range path {
		if id == dominator {
			return true
		}
	}
	return false
}

// Entries returns one entry per forest item, sorted by descending retained
// size with ties broken by ascending item id.
func (f *Forest) Entries() []model.DominatorEntry {
	entries := make([]model.DominatorEntry, 0, f.count)
	for v := 0; v < f.graph.Len(); v++ {
		index := model.ItemID(v)
		if !f.Contains(index) {
			continue
		}
		item := f.graph.Item(index)
		entry := model.DominatorEntry{
			ID:           item.ID,
			Name:         item.Name,
			Kind:         item.Kind,
			Size:         item.Size,
			RetainedSize: f.retained[v],
		}
		if dom, ok := f.ImmediateDominator(index); ok {
			domID := f.graph.ID(dom)
			entry.ImmediateDominatorID = &domID
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].RetainedSize != entries[j].RetainedSize {
			return entries[i].RetainedSize > entries[j].RetainedSize
		}
		return entries[i].ID < entries[j].ID
	})
	return entries
}
