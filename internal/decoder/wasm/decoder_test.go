package wasm

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/size-analysis/internal/itemgraph"
	"github.com/size-analysis/internal/testutil"
	"github.com/size-analysis/pkg/errors"
	"github.com/size-analysis/pkg/model"
)

func decode(t *testing.T, data []byte) *itemgraph.Graph {
	t.Helper()
	g, err := NewDecoder().Decode(context.Background(), data)
	require.NoError(t, err)
	return g
}

func itemByName(t *testing.T, g *itemgraph.Graph, name string) model.Item {
	t.Helper()
	for _, it := range g.Items() {
		if it.Name == name {
			return it
		}
	}
	t.Fatalf("no item named %q", name)
	return model.Item{}
}

func hasEdge(g *itemgraph.Graph, from, to model.ItemID, kind model.EdgeKind) bool {
	for _, e := range g.Edges() {
		if e.From == from && e.To == to && e.Kind == kind {
			return true
		}
	}
	return false
}

// sampleModule exports one function that calls an import and reads a
// global, and leaves one function and one passive data segment unreferenced.
func sampleModule() []byte {
	m := testutil.NewWasmModule()
	t0 := m.Type(nil, nil)
	log := m.ImportFunc("env", "log", t0)
	m.Memory(1)
	g := m.Global(testutil.I32, false, testutil.I32Const(0))
	main := m.Func(t0, testutil.Call(log), testutil.GlobalGet(g))
	m.Func(t0)
	m.Export("main", testutil.ExternFunc, main)
	m.ActiveData(0, []byte("hello"))
	m.PassiveData([]byte("zz"))
	m.FuncName(main, "main_impl")
	m.Custom("producers", nil)
	return m.Bytes()
}

func TestDecoder_Name(t *testing.T) {
	assert.Equal(t, "wasm", NewDecoder().Name())
}

func TestHasMagic(t *testing.T) {
	assert.True(t, HasMagic(sampleModule()))
	assert.False(t, HasMagic([]byte("{}")))
	assert.False(t, HasMagic(nil))
}

func TestDecoder_ItemsInSectionOrder(t *testing.T) {
	g := decode(t, sampleModule())

	names := make([]string, 0, g.Len())
	for _, it := range g.Items() {
		names = append(names, it.Name)
	}
	assert.Equal(t, []string{
		"type[0]",
		"import env::log",
		"main_impl",
		"code[1]",
		"memory[0]",
		"global[0]",
		`export "main"`,
		"data[0]",
		"data[1]",
		`custom section "name"`,
		`custom section "producers"`,
	}, names)
}

func TestDecoder_KindsAndSizes(t *testing.T) {
	g := decode(t, sampleModule())

	tests := []struct {
		name string
		kind model.ItemKind
		size uint64
	}{
		{"type[0]", model.KindType, 3},
		{"import env::log", model.KindCode, 10},
		// body size prefix, local count, call 0, global.get 0, end
		{"main_impl", model.KindCode, 7},
		{"code[1]", model.KindCode, 3},
		{"memory[0]", model.KindOther, 2},
		{"global[0]", model.KindData, 5},
		{`export "main"`, model.KindOther, 7},
		{"data[0]", model.KindData, 10},
		{"data[1]", model.KindData, 4},
		{`custom section "producers"`, model.KindOther, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := itemByName(t, g, tt.name)
			assert.Equal(t, tt.kind, it.Kind)
			assert.Equal(t, tt.size, it.Size)
		})
	}
}

func TestDecoder_Edges(t *testing.T) {
	g := decode(t, sampleModule())

	typ := itemByName(t, g, "type[0]").ID
	imp := itemByName(t, g, "import env::log").ID
	main := itemByName(t, g, "main_impl").ID
	unused := itemByName(t, g, "code[1]").ID
	mem := itemByName(t, g, "memory[0]").ID
	glob := itemByName(t, g, "global[0]").ID
	exp := itemByName(t, g, `export "main"`).ID
	active := itemByName(t, g, "data[0]").ID
	passive := itemByName(t, g, "data[1]").ID

	assert.True(t, hasEdge(g, imp, typ, model.EdgeType))
	assert.True(t, hasEdge(g, main, typ, model.EdgeType))
	assert.True(t, hasEdge(g, main, imp, model.EdgeCall))
	assert.True(t, hasEdge(g, main, glob, model.EdgeData))
	assert.True(t, hasEdge(g, unused, typ, model.EdgeType))
	assert.True(t, hasEdge(g, exp, main, model.EdgeRef))
	assert.True(t, hasEdge(g, mem, active, model.EdgeData))
	assert.Empty(t, g.Predecessors(passive))
	assert.Empty(t, g.Predecessors(unused))
}

func TestDecoder_Roots(t *testing.T) {
	m := testutil.NewWasmModule()
	t0 := m.Type(nil, nil)
	f := m.Func(t0)
	init := m.Func(t0)
	m.Export("f", testutil.ExternFunc, f)
	m.Start(init)
	g := decode(t, m.Bytes())

	exp := itemByName(t, g, `export "f"`).ID
	start := itemByName(t, g, "start").ID
	assert.Equal(t, []model.ItemID{exp, start}, g.Roots())
	assert.True(t, hasEdge(g, start, itemByName(t, g, "code[1]").ID, model.EdgeCall))
}

func TestDecoder_ElementSegments(t *testing.T) {
	m := testutil.NewWasmModule()
	t0 := m.Type(nil, nil)
	target := m.Func(t0)
	m.Table(1)
	m.ActiveElem(0, target)
	g := decode(t, m.Bytes())

	table := itemByName(t, g, "table[0]").ID
	elem := itemByName(t, g, "elem[0]").ID
	fn := itemByName(t, g, "code[0]").ID
	assert.True(t, hasEdge(g, table, elem, model.EdgeData))
	assert.True(t, hasEdge(g, elem, fn, model.EdgeRef))
}

func TestDecoder_BulkMemoryReferences(t *testing.T) {
	m := testutil.NewWasmModule()
	t0 := m.Type(nil, nil)
	m.Memory(1)
	seg := m.PassiveData([]byte("payload"))
	f := m.Func(t0,
		testutil.I32Const(0), testutil.I32Const(0), testutil.I32Const(7), testutil.MemoryInit(seg),
		testutil.DataDrop(seg),
		testutil.I32Const(0), testutil.I32Load(4), testutil.Drop(),
		testutil.RefFunc(0), testutil.Drop(),
	)
	m.Export("f", testutil.ExternFunc, f)
	g := decode(t, m.Bytes())

	fn := itemByName(t, g, "code[0]").ID
	assert.True(t, hasEdge(g, fn, itemByName(t, g, "data[0]").ID, model.EdgeData))
	assert.True(t, hasEdge(g, fn, itemByName(t, g, "memory[0]").ID, model.EdgeData))
	assert.True(t, hasEdge(g, fn, fn, model.EdgeRef))
}

func TestDecoder_CallIndirect(t *testing.T) {
	m := testutil.NewWasmModule()
	t0 := m.Type(nil, nil)
	t1 := m.Type([]byte{testutil.I32}, nil)
	m.Table(1)
	m.Func(t0, testutil.I32Const(0), testutil.CallIndirect(t1, 0))
	g := decode(t, m.Bytes())

	fn := itemByName(t, g, "code[0]").ID
	assert.True(t, hasEdge(g, fn, itemByName(t, g, "type[1]").ID, model.EdgeType))
	assert.True(t, hasEdge(g, fn, itemByName(t, g, "table[0]").ID, model.EdgeData))
}

func TestDecoder_ImportedGlobalIndexSpace(t *testing.T) {
	m := testutil.NewWasmModule()
	t0 := m.Type(nil, nil)
	m.ImportGlobal("env", "base", testutil.I32, false)
	own := m.Global(testutil.I32, true, testutil.I32Const(1))
	m.Func(t0, testutil.GlobalGet(own), testutil.Drop())
	g := decode(t, m.Bytes())

	imported := itemByName(t, g, "import env::base")
	assert.Equal(t, model.KindData, imported.Kind)
	assert.True(t, hasEdge(g, itemByName(t, g, "code[0]").ID, itemByName(t, g, "global[1]").ID, model.EdgeData))
}

func TestDecoder_MalformedNameSectionKeepsDefaults(t *testing.T) {
	m := testutil.NewWasmModule()
	t0 := m.Type(nil, nil)
	m.Func(t0)
	// Function-name subsection claiming ten bytes with only one present.
	m.Custom("name", []byte{0x01, 0x0A, 0x01})
	g := decode(t, m.Bytes())

	assert.Equal(t, model.KindCode, itemByName(t, g, "code[0]").Kind)
	itemByName(t, g, `custom section "name"`)
}

func TestDecoder_StructuralErrors(t *testing.T) {
	valid := sampleModule()

	var mismatch bytes.Buffer
	mismatch.Write(valid[:8])
	testutil.Section(&mismatch, 1, append(testutil.ULEB(1), 0x60, 0x00, 0x00))
	testutil.Section(&mismatch, 3, []byte{0x01, 0x00})

	var outOfOrder bytes.Buffer
	outOfOrder.Write(valid[:8])
	testutil.Section(&outOfOrder, 3, []byte{0x00})
	testutil.Section(&outOfOrder, 1, []byte{0x00})

	badIndex := testutil.NewWasmModule()
	t0 := badIndex.Type(nil, nil)
	badIndex.Func(t0, testutil.Call(5))

	tests := []struct {
		name string
		data []byte
	}{
		{"bad magic", []byte("not a wasm module")},
		{"bad version", []byte{0x00, 0x61, 0x73, 0x6d, 0x02, 0x00, 0x00, 0x00}},
		{"truncated header", []byte{0x00, 0x61, 0x73, 0x6d, 0x01}},
		{"truncated section", valid[:len(valid)-3]},
		{"function without code", mismatch.Bytes()},
		{"sections out of order", outOfOrder.Bytes()},
		{"unknown function index", badIndex.Bytes()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDecoder().Decode(context.Background(), tt.data)
			require.Error(t, err)
			assert.True(t, errors.IsStructuralError(err), "got %v", err)
		})
	}
}

func TestDecoder_EmptyModule(t *testing.T) {
	g := decode(t, testutil.NewWasmModule().Bytes())
	assert.Equal(t, 0, g.Len())
	assert.Empty(t, g.Roots())
}

func TestDecoder_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDecoder().Decode(ctx, sampleModule())
	require.ErrorIs(t, err, context.Canceled)
}

func TestReader_LEB(t *testing.T) {
	r := newReader(append(testutil.ULEB(624485), testutil.SLEB(-123456)...), 0)
	u, err := r.u32()
	require.NoError(t, err)
	assert.Equal(t, uint32(624485), u)

	s, err := r.s32()
	require.NoError(t, err)
	assert.Equal(t, int32(-123456), s)
	assert.True(t, r.eof())

	_, err = newReader([]byte{0x80, 0x80}, 0).u32()
	assert.Error(t, err)
}
