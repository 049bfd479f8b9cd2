package garbage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/size-analysis/internal/itemgraph"
	"github.com/size-analysis/pkg/model"
)

type testItem struct {
	name string
	kind model.ItemKind
	size uint64
}

func buildGraph(t *testing.T, items []testItem, edges [][2]model.ItemID, roots ...model.ItemID) *itemgraph.Graph {
	t.Helper()
	b := itemgraph.NewBuilder(len(items), len(edges))
	for _, it := range items {
		b.AddItem(it.name, it.kind, it.size)
	}
	for _, e := range edges {
		b.AddEdge(e[0], e[1], model.EdgeCall)
	}
	for _, r := range roots {
		b.AddRoot(r)
	}
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func assertPartitionCovers(t *testing.T, g *itemgraph.Graph, p *Partition) {
	t.Helper()
	for i := 0; i < g.Len(); i++ {
		alive := p.Alive.Test(i)
		garbage := p.Garbage.Test(i)
		assert.True(t, alive != garbage, "item %d must be in exactly one set", i)
	}
	assert.Equal(t, g.Len(), p.AliveCount()+p.GarbageCount())
}

func TestClassify_UnreferencedItemIsGarbage(t *testing.T) {
	// A calls B; C is never referenced.
	g := buildGraph(t,
		[]testItem{{"A", model.KindCode, 10}, {"B", model.KindCode, 5}, {"C", model.KindCode, 7}},
		[][2]model.ItemID{{0, 1}},
		0)

	p := Classify(g)
	assertPartitionCovers(t, g, p)
	assert.Equal(t, []model.ItemID{0, 1}, p.AliveIDs())
	assert.Equal(t, []model.ItemID{2}, p.GarbageIDs())

	report := Report(g, p, DefaultOptions())
	require.Len(t, report.Entries, 1)
	assert.Equal(t, model.GarbageEntry{ID: 2, Name: "C", Kind: model.KindCode, Size: 7}, report.Entries[0])
}

func TestClassify_NoRoots(t *testing.T) {
	g := buildGraph(t,
		[]testItem{{"A", model.KindCode, 1}, {"B", model.KindData, 2}},
		[][2]model.ItemID{{0, 1}})

	p := Classify(g)
	assertPartitionCovers(t, g, p)
	assert.Zero(t, p.AliveCount())
	assert.Equal(t, 2, p.GarbageCount())
}

func TestClassify_EmptyGraph(t *testing.T) {
	g := buildGraph(t, nil, nil)
	p := Classify(g)
	assert.Zero(t, p.AliveCount())
	assert.Zero(t, p.GarbageCount())

	report := Report(g, p, DefaultOptions())
	assert.NotNil(t, report.Entries)
	assert.Empty(t, report.Entries)
}

func TestClassify_Cycles(t *testing.T) {
	// root -> 1 -> 2 -> 1, and an unreachable cycle 3 <-> 4.
	g := buildGraph(t,
		[]testItem{{"r", model.KindCode, 1}, {"a", model.KindCode, 1}, {"b", model.KindCode, 1}, {"x", model.KindCode, 1}, {"y", model.KindCode, 1}},
		[][2]model.ItemID{{0, 1}, {1, 2}, {2, 1}, {3, 4}, {4, 3}},
		0)

	p := Classify(g)
	assertPartitionCovers(t, g, p)
	assert.Equal(t, []model.ItemID{0, 1, 2}, p.AliveIDs())
	assert.Equal(t, []model.ItemID{3, 4}, p.GarbageIDs())
}

func TestClassify_DataFollowsReachability(t *testing.T) {
	g := buildGraph(t,
		[]testItem{{"main", model.KindCode, 1}, {"used", model.KindData, 8}, {"unused", model.KindData, 16}},
		[][2]model.ItemID{{0, 1}},
		0)

	p := Classify(g)
	assert.True(t, p.IsAlive(1))
	assert.False(t, p.IsAlive(2))
}

func TestReport_OrderingAndCap(t *testing.T) {
	items := []testItem{
		{"root", model.KindCode, 1},
		{"g1", model.KindCode, 5},
		{"g2", model.KindCode, 9},
		{"g3", model.KindCode, 5},
		{"d1", model.KindData, 2},
		{"d2", model.KindData, 30},
	}
	g := buildGraph(t, items, nil, 0)
	p := Classify(g)

	tests := []struct {
		name         string
		opts         Options
		expected     []model.ItemID
		omittedCount int
		omittedSize  uint64
	}{
		{
			name:     "unlimited",
			opts:     Options{MaxItems: Unlimited, ShowDataSegments: false},
			expected: []model.ItemID{5, 2, 1, 3, 4},
		},
		{
			name:         "capped without data segments",
			opts:         Options{MaxItems: 2, ShowDataSegments: false},
			expected:     []model.ItemID{5, 2},
			omittedCount: 3,
			omittedSize:  12,
		},
		{
			name:         "capped with data segments bypassing cap",
			opts:         Options{MaxItems: 2, ShowDataSegments: true},
			expected:     []model.ItemID{5, 2, 4},
			omittedCount: 2,
			omittedSize:  10,
		},
		{
			name:         "zero cap with data segments",
			opts:         Options{MaxItems: 0, ShowDataSegments: true},
			expected:     []model.ItemID{5, 4},
			omittedCount: 3,
			omittedSize:  19,
		},
		{
			name:         "zero cap",
			opts:         Options{MaxItems: 0},
			expected:     []model.ItemID{},
			omittedCount: 5,
			omittedSize:  51,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := Report(g, p, tt.opts)

			got := make([]model.ItemID, 0, len(report.Entries))
			for _, e := range report.Entries {
				got = append(got, e.ID)
			}
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, 5, report.TotalCount)
			assert.Equal(t, uint64(51), report.TotalSize)
			assert.Equal(t, tt.omittedCount, report.OmittedCount)
			assert.Equal(t, tt.omittedSize, report.OmittedSize)
			assert.Equal(t, 2, report.DataSegmentCount)
			assert.Equal(t, uint64(32), report.DataSegmentSize)
			assert.Equal(t, report.TotalCount, len(report.Entries)+report.OmittedCount)
		})
	}
}

func TestReport_TiesUseItemIDs(t *testing.T) {
	// Insertion order disagrees with the reported ids.
	b := itemgraph.NewBuilder(4, 0)
	root := b.AddItemWithID(50, "root", model.KindCode, 1)
	b.AddItemWithID(30, "late", model.KindCode, 6)
	b.AddItemWithID(9, "early", model.KindCode, 6)
	b.AddItemWithID(12, "big", model.KindData, 8)
	b.AddRoot(root)
	g, err := b.Build()
	require.NoError(t, err)

	report := Report(g, Classify(g), DefaultOptions())

	got := make([]model.ItemID, 0, len(report.Entries))
	for _, e := range report.Entries {
		got = append(got, e.ID)
	}
	assert.Equal(t, []model.ItemID{12, 9, 30}, got)
}
