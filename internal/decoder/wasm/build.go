package wasm

import (
	"fmt"
	"strconv"

	"github.com/size-analysis/internal/itemgraph"
	"github.com/size-analysis/pkg/model"
)

// spaces maps every index space to the item ids that occupy it.
type spaces map[space][]model.ItemID

func (s spaces) resolve(sp space, index uint32) (model.ItemID, error) {
	ids := s[sp]
	if int(index) >= len(ids) {
		return 0, fmt.Errorf("reference to unknown %s index %d", spaceName(sp), index)
	}
	return ids[index], nil
}

func spaceName(sp space) string {
	switch sp {
	case spaceFunc:
		return "function"
	case spaceType:
		return "type"
	case spaceTable:
		return "table"
	case spaceMemory:
		return "memory"
	case spaceGlobal:
		return "global"
	case spaceElem:
		return "element segment"
	case spaceData:
		return "data segment"
	case spaceTag:
		return "tag"
	default:
		return "unknown"
	}
}

// build lays the decoded module out as an item graph. Exports and the start
// function are the roots.
func (m *module) build() (*itemgraph.Graph, error) {
	b := itemgraph.NewBuilder(m.itemCount(), 0)
	sp := make(spaces)

	type pending struct {
		from model.ItemID
		refs []ref
	}
	var refs []pending
	addRefs := func(from model.ItemID, rs []ref) {
		if len(rs) > 0 {
			refs = append(refs, pending{from: from, refs: rs})
		}
	}

	for i, t := range m.types {
		id := b.AddItem(m.indexedName(spaceType, uint32(i), "type"), model.KindType, t.size)
		sp[spaceType] = append(sp[spaceType], id)
	}

	for _, imp := range m.imports {
		name := "import " + imp.module + "::" + imp.field
		switch imp.kind {
		case externFunc:
			id := b.AddItem(name, model.KindCode, imp.size)
			sp[spaceFunc] = append(sp[spaceFunc], id)
			addRefs(id, imp.refs)
		case externTable:
			sp[spaceTable] = append(sp[spaceTable], b.AddItem(name, model.KindOther, imp.size))
		case externMemory:
			sp[spaceMemory] = append(sp[spaceMemory], b.AddItem(name, model.KindOther, imp.size))
		case externGlobal:
			sp[spaceGlobal] = append(sp[spaceGlobal], b.AddItem(name, model.KindData, imp.size))
		case externTag:
			id := b.AddItem(name, model.KindOther, imp.size)
			sp[spaceTag] = append(sp[spaceTag], id)
			addRefs(id, imp.refs)
		}
	}

	for i, body := range m.code {
		index := m.importedFuncs + uint32(i)
		name, ok := m.names.lookup(spaceFunc, index)
		if !ok {
			name = "code[" + strconv.Itoa(i) + "]"
		}
		id := b.AddItem(name, model.KindCode, body.size)
		sp[spaceFunc] = append(sp[spaceFunc], id)
		addRefs(id, append([]ref{{space: spaceType, index: m.funcTypes[i], kind: model.EdgeType}}, body.refs...))
	}

	for i, t := range m.tables {
		id := b.AddItem(m.indexedName(spaceTable, m.importedTables+uint32(i), "table"), model.KindOther, t.size)
		sp[spaceTable] = append(sp[spaceTable], id)
		addRefs(id, t.refs)
	}

	for i, mem := range m.memories {
		id := b.AddItem(m.indexedName(spaceMemory, m.importedMemories+uint32(i), "memory"), model.KindOther, mem.size)
		sp[spaceMemory] = append(sp[spaceMemory], id)
	}

	for i, tag := range m.tags {
		id := b.AddItem(m.indexedName(spaceTag, m.importedTags+uint32(i), "tag"), model.KindOther, tag.size)
		sp[spaceTag] = append(sp[spaceTag], id)
		addRefs(id, tag.refs)
	}

	for i, g := range m.globals {
		id := b.AddItem(m.indexedName(spaceGlobal, m.importedGlobals+uint32(i), "global"), model.KindData, g.size)
		sp[spaceGlobal] = append(sp[spaceGlobal], id)
		addRefs(id, g.refs)
	}

	for _, exp := range m.exports {
		id := b.AddItem("export "+strconv.Quote(exp.name), model.KindOther, exp.size)
		addRefs(id, exp.refs)
		b.AddRoot(id)
	}

	if m.start != nil {
		id := b.AddItem("start", model.KindOther, m.start.size)
		addRefs(id, m.start.refs)
		b.AddRoot(id)
	}

	type ownership struct {
		owner  space
		target uint32
		item   model.ItemID
	}
	var owned []ownership

	for i, seg := range m.elems {
		id := b.AddItem(m.indexedName(spaceElem, uint32(i), "elem"), model.KindOther, seg.size)
		sp[spaceElem] = append(sp[spaceElem], id)
		addRefs(id, seg.refs)
		if seg.active {
			owned = append(owned, ownership{owner: spaceTable, target: seg.target, item: id})
		}
	}

	for i, seg := range m.data {
		id := b.AddItem(m.indexedName(spaceData, uint32(i), "data"), model.KindData, seg.size)
		sp[spaceData] = append(sp[spaceData], id)
		addRefs(id, seg.refs)
		if seg.active {
			owned = append(owned, ownership{owner: spaceMemory, target: seg.target, item: id})
		}
	}

	for _, c := range m.customs {
		b.AddItem("custom section "+strconv.Quote(c.name), model.KindOther, c.size)
	}

	for _, p := range refs {
		for _, r := range p.refs {
			to, err := sp.resolve(r.space, r.index)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", p.from, err)
			}
			b.AddEdge(p.from, to, r.kind)
		}
	}

	// Active segments are kept alive by the table or memory they initialize.
	for _, o := range owned {
		owner, err := sp.resolve(o.owner, o.target)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", o.item, err)
		}
		b.AddEdge(owner, o.item, model.EdgeData)
	}

	return b.Build()
}

func (m *module) indexedName(sp space, index uint32, prefix string) string {
	if name, ok := m.names.lookup(sp, index); ok {
		return name
	}
	return prefix + "[" + strconv.FormatUint(uint64(index), 10) + "]"
}

func (m *module) itemCount() int {
	n := len(m.types) + len(m.imports) + len(m.code) + len(m.tables) + len(m.memories) +
		len(m.tags) + len(m.globals) + len(m.exports) + len(m.elems) + len(m.data) + len(m.customs)
	if m.start != nil {
		n++
	}
	return n
}
