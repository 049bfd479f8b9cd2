// Package dominator computes the dominator forest of the alive part of an
// item graph and aggregates retained sizes over it.
//
// Immediate dominators are found with the iterative data-flow formulation of
// Cooper, Harvey and Kennedy ("A Simple, Fast Dominance Algorithm", 2001):
// nodes are processed in reverse postorder until a full pass changes nothing,
// and two dominator candidates are merged by walking both up the partial tree
// by postorder number until they meet.
//
// A synthetic supersource with an edge to every root turns the multi-root
// graph into a single-entry flowgraph. Items whose only common dominator is
// the supersource are shared between unrelated roots.
package dominator

import (
	"sort"

	"github.com/size-analysis/internal/itemgraph"
	"github.com/size-analysis/pkg/collections"
	"github.com/size-analysis/pkg/model"
)

// undefined marks a node whose dominator has not been computed yet.
const undefined int32 = -1

// Compute builds the dominator forest for the items set in alive. A nil alive
// set means every item reachable from the roots. Predecessors outside the
// alive set are ignored.
func Compute(g *itemgraph.Graph, alive *collections.Bitset) *Forest {
	n := g.Len()
	super := int32(n)

	s := &state{
		graph:    g,
		alive:    alive,
		super:    super,
		postNum:  make([]int32, n+1),
		idom:     make([]int32, n+1),
		postList: make([]int32, 0, n+1),
	}
	for i := range s.postNum {
		s.postNum[i] = undefined
		s.idom[i] = undefined
	}

	s.number()
	s.solve()

	return newForest(g, s)
}

type state struct {
	graph *itemgraph.Graph
	alive *collections.Bitset
	super int32

	// postNum[v] is v's postorder number, undefined if v was not reached.
	// The supersource always receives the highest number.
	postNum []int32
	// postList[k] is the node with postorder number k.
	postList []int32
	// idom[v] is the internal immediate dominator; roots point at super.
	idom []int32
}

func (s *state) inScope(v model.ItemID) bool {
	return s.alive == nil || s.alive.Test(int(v))
}

// number assigns postorder numbers with an iterative DFS from the
// supersource. Roots are entered in ascending id order, successors in edge
// order.
func (s *state) number() {
	roots := make([]model.ItemID, 0, len(s.graph.Roots()))
	for _, r := range s.graph.Roots() {
		if s.inScope(r) {
			roots = append(roots, r)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })

	type frame struct {
		node int32
		next int
	}

	visited := collections.NewBitset(len(s.postNum))
	visited.Set(int(s.super))
	stack := []frame{{node: s.super}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]

		var children []model.ItemID
		if top.node == s.super {
			children = roots
		} else {
			children = s.graph.Successors(model.ItemID(top.node))
		}

		pushed := false
		for top.next < len(children) {
			child := children[top.next]
			top.next++
			if !s.inScope(child) || visited.TestAndSet(int(child)) {
				continue
			}
			stack = append(stack, frame{node: int32(child)})
			pushed = true
			break
		}
		if pushed {
			continue
		}

		s.postNum[top.node] = int32(len(s.postList))
		s.postList = append(s.postList, top.node)
		stack = stack[:len(stack)-1]
	}
}

// solve iterates over the nodes in reverse postorder until the dominator
// assignment reaches a fixpoint.
func (s *state) solve() {
	s.idom[s.super] = s.super
	for _, r := range s.graph.Roots() {
		if s.postNum[r] != undefined {
			s.idom[r] = s.super
		}
	}

	for changed := true; changed; {
		changed = false
		// postList ends with the supersource; skip it.
		for k := len(s.postList) - 2; k >= 0; k-- {
			v := s.postList[k]
			if s.graph.IsRoot(model.ItemID(v)) {
				continue
			}

			newIdom := undefined
			for _, p := range s.graph.Predecessors(model.ItemID(v)) {
				pi := int32(p)
				if s.postNum[pi] == undefined || s.idom[pi] == undefined {
					continue
				}
				if newIdom == undefined {
					newIdom = pi
				} else {
					newIdom = s.intersect(pi, newIdom)
				}
			}

			if newIdom != undefined && s.idom[v] != newIdom {
				s.idom[v] = newIdom
				changed = true
			}
		}
	}
}

// intersect returns the nearest common ancestor of a and b in the partial
// dominator tree.
func (s *state) intersect(a, b int32) int32 {
	for a != b {
		for s.postNum[a] < s.postNum[b] {
			a = s.idom[a]
		}
		for s.postNum[b] < s.postNum[a] {
			b = s.idom[b]
		}
	}
	return a
}
