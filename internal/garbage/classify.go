// Package garbage classifies items as alive or garbage by reachability from
// the root set and builds the bounded garbage report.
package garbage

import (
	"github.com/size-analysis/internal/itemgraph"
	"github.com/size-analysis/pkg/collections"
	"github.com/size-analysis/pkg/model"
)

// Partition splits the item ids of one graph into two disjoint sets that
// together cover every id.
type Partition struct {
	Alive   *collections.Bitset
	Garbage *collections.Bitset
}

// IsAlive returns true if id is reachable from some root.
func (p *Partition) IsAlive(id model.ItemID) bool {
	return p.Alive.Test(int(id))
}

// AliveCount returns the number of reachable items.
func (p *Partition) AliveCount() int {
	return p.Alive.Count()
}

// GarbageCount returns the number of unreachable items.
func (p *Partition) GarbageCount() int {
	return p.Garbage.Count()
}

// GarbageIDs returns the graph indices of unreachable items in ascending order.
func (p *Partition) GarbageIDs() []model.ItemID {
	return toIDs(p.Garbage)
}

// AliveIDs returns the graph indices of reachable items in ascending order.
func (p *Partition) AliveIDs() []model.ItemID {
	return toIDs(p.Alive)
}

func toIDs(b *collections.Bitset) []model.ItemID {
	ids := make([]model.ItemID, 0, b.Count())
	b.Iterate(func(i int) bool {
		ids = append(ids, model.ItemID(i))
		return true
	})
	return ids
}

// Classify marks every item reachable from a root as alive and all others as
// garbage. The traversal behaves as if a synthetic supersource had an edge to
// each root. Data items follow the same rule as every other kind.
func Classify(g *itemgraph.Graph) *Partition {
	n := g.Len()
	alive := collections.NewBitset(n)

	queue := collections.NewQueue[model.ItemID](len(g.Roots()))
	for _, r := range g.Roots() {
		if !alive.TestAndSet(int(r)) {
			queue.Push(r)
		}
	}

	for queue.Len() > 0 {
		id, _ := queue.Pop()
		for _, next := range g.Successors(id) {
			if !alive.TestAndSet(int(next)) {
				queue.Push(next)
			}
		}
	}

	return &Partition{
		Alive:   alive,
		Garbage: alive.Complement(),
	}
}
