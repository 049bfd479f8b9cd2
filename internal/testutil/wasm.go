package testutil

import (
	"bytes"
	"sort"
)

// Value types.
const (
	I32 byte = 0x7F
	I64 byte = 0x7E
	F32 byte = 0x7D
	F64 byte = 0x7C
)

// External kinds.
const (
	ExternFunc   byte = 0x00
	ExternTable  byte = 0x01
	ExternMemory byte = 0x02
	ExternGlobal byte = 0x03
)

// WasmModule assembles a WebAssembly binary for tests. Imports must be added
// before the definitions of the same index space so that returned indices
// stay valid.
type WasmModule struct {
	types    [][]byte
	imports  [][]byte
	funcs    []uint32
	bodies   [][]byte
	tables   [][]byte
	memories [][]byte
	globals  [][]byte
	exports  [][]byte
	start    *uint32
	elems    [][]byte
	data     [][]byte
	customs  [][]byte
	names    map[uint32]string

	importedFuncs   uint32
	importedGlobals uint32
}

// NewWasmModule creates an empty module.
func NewWasmModule() *WasmModule {
	return &WasmModule{}
}

// Type adds a function signature and returns its type index.
func (m *WasmModule) Type(params, results []byte) uint32 {
	var b []byte
	b = append(b, 0x60)
	b = append(b, ULEB(uint64(len(params)))...)
	b = append(b, params...)
	b = append(b, ULEB(uint64(len(results)))...)
	b = append(b, results...)
	m.types = append(m.types, b)
	return uint32(len(m.types) - 1)
}

// ImportFunc adds a function import and returns its function index.
func (m *WasmModule) ImportFunc(module, field string, typeIdx uint32) uint32 {
	b := append(Name(module), Name(field)...)
	b = append(b, ExternFunc)
	b = append(b, ULEB(uint64(typeIdx))...)
	m.imports = append(m.imports, b)
	m.importedFuncs++
	return m.importedFuncs - 1
}

// ImportGlobal adds a global import and returns its global index.
func (m *WasmModule) ImportGlobal(module, field string, valType byte, mutable bool) uint32 {
	b := append(Name(module), Name(field)...)
	b = append(b, ExternGlobal, valType, boolByte(mutable))
	m.imports = append(m.imports, b)
	m.importedGlobals++
	return m.importedGlobals - 1
}

// Func adds a defined function without locals. body holds the instructions;
// the final end opcode is appended. It returns the function index.
func (m *WasmModule) Func(typeIdx uint32, body ...[]byte) uint32 {
	code := []byte{0x00}
	for _, instr := range body {
		code = append(code, instr...)
	}
	code = append(code, 0x0B)
	m.funcs = append(m.funcs, typeIdx)
	m.bodies = append(m.bodies, code)
	return m.importedFuncs + uint32(len(m.funcs)-1)
}

// Table adds a funcref table and returns its table index.
func (m *WasmModule) Table(min uint32) uint32 {
	b := []byte{0x70, 0x00}
	b = append(b, ULEB(uint64(min))...)
	m.tables = append(m.tables, b)
	return uint32(len(m.tables) - 1)
}

// Memory adds a memory and returns its memory index.
func (m *WasmModule) Memory(min uint32) uint32 {
	b := append([]byte{0x00}, ULEB(uint64(min))...)
	m.memories = append(m.memories, b)
	return uint32(len(m.memories) - 1)
}

// Global adds a defined global whose initializer is init followed by end.
// It returns the global index.
func (m *WasmModule) Global(valType byte, mutable bool, init ...[]byte) uint32 {
	b := []byte{valType, boolByte(mutable)}
	for _, instr := range init {
		b = append(b, instr...)
	}
	b = append(b, 0x0B)
	m.globals = append(m.globals, b)
	return m.importedGlobals + uint32(len(m.globals)-1)
}

// Export adds an export.
func (m *WasmModule) Export(name string, kind byte, index uint32) {
	b := append(Name(name), kind)
	b = append(b, ULEB(uint64(index))...)
	m.exports = append(m.exports, b)
}

// Start sets the start function.
func (m *WasmModule) Start(funcIdx uint32) {
	m.start = &funcIdx
}

// ActiveElem adds an active element segment for table 0 at the given offset.
// It returns the segment index.
func (m *WasmModule) ActiveElem(offset int32, funcs ...uint32) uint32 {
	b := []byte{0x00}
	b = append(b, I32Const(offset)...)
	b = append(b, 0x0B)
	b = append(b, ULEB(uint64(len(funcs)))...)
	for _, f := range funcs {
		b = append(b, ULEB(uint64(f))...)
	}
	m.elems = append(m.elems, b)
	return uint32(len(m.elems) - 1)
}

// PassiveElem adds a passive funcref element segment and returns its index.
func (m *WasmModule) PassiveElem(funcs ...uint32) uint32 {
	b := []byte{0x01, 0x00}
	b = append(b, ULEB(uint64(len(funcs)))...)
	for _, f := range funcs {
		b = append(b, ULEB(uint64(f))...)
	}
	m.elems = append(m.elems, b)
	return uint32(len(m.elems) - 1)
}

// ActiveData adds an active data segment for memory 0 and returns its index.
func (m *WasmModule) ActiveData(offset int32, payload []byte) uint32 {
	b := []byte{0x00}
	b = append(b, I32Const(offset)...)
	b = append(b, 0x0B)
	b = append(b, ULEB(uint64(len(payload)))...)
	b = append(b, payload...)
	m.data = append(m.data, b)
	return uint32(len(m.data) - 1)
}

// PassiveData adds a passive data segment and returns its index.
func (m *WasmModule) PassiveData(payload []byte) uint32 {
	b := []byte{0x01}
	b = append(b, ULEB(uint64(len(payload)))...)
	b = append(b, payload...)
	m.data = append(m.data, b)
	return uint32(len(m.data) - 1)
}

// Custom adds a custom section.
func (m *WasmModule) Custom(name string, payload []byte) {
	m.customs = append(m.customs, append(Name(name), payload...))
}

// FuncName records a function name for the generated name section.
func (m *WasmModule) FuncName(index uint32, name string) {
	if m.names == nil {
		m.names = make(map[uint32]string)
	}
	m.names[index] = name
}

// Bytes encodes the module.
func (m *WasmModule) Bytes() []byte {
	var out bytes.Buffer
	out.Write([]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00})

	writeVec(&out, 1, m.types)
	writeVec(&out, 2, m.imports)
	if len(m.funcs) > 0 {
		var b []byte
		b = append(b, ULEB(uint64(len(m.funcs)))...)
		for _, t := range m.funcs {
			b = append(b, ULEB(uint64(t))...)
		}
		Section(&out, 3, b)
	}
	writeVec(&out, 4, m.tables)
	writeVec(&out, 5, m.memories)
	writeVec(&out, 6, m.globals)
	writeVec(&out, 7, m.exports)
	if m.start != nil {
		Section(&out, 8, ULEB(uint64(*m.start)))
	}
	writeVec(&out, 9, m.elems)
	if len(m.data) > 0 {
		Section(&out, 12, ULEB(uint64(len(m.data))))
	}
	if len(m.bodies) > 0 {
		var b []byte
		b = append(b, ULEB(uint64(len(m.bodies)))...)
		for _, body := range m.bodies {
			b = append(b, ULEB(uint64(len(body)))...)
			b = append(b, body...)
		}
		Section(&out, 10, b)
	}
	writeVec(&out, 11, m.data)

	if len(m.names) > 0 {
		indices := make([]uint32, 0, len(m.names))
		for idx := range m.names {
			indices = append(indices, idx)
		}
		sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

		var nameMap []byte
		nameMap = append(nameMap, ULEB(uint64(len(indices)))...)
		for _, idx := range indices {
			nameMap = append(nameMap, ULEB(uint64(idx))...)
			nameMap = append(nameMap, Name(m.names[idx])...)
		}
		payload := Name("name")
		payload = append(payload, 0x01)
		payload = append(payload, ULEB(uint64(len(nameMap)))...)
		payload = append(payload, nameMap...)
		Section(&out, 0, payload)
	}
	for _, c := range m.customs {
		Section(&out, 0, c)
	}
	return out.Bytes()
}

func writeVec(out *bytes.Buffer, id byte, entries [][]byte) {
	if len(entries) == 0 {
		return
	}
	var b []byte
	b = append(b, ULEB(uint64(len(entries)))...)
	for _, e := range entries {
		b = append(b, e...)
	}
	Section(out, id, b)
}

// Section writes one section with its id and size prefix.
func Section(out *bytes.Buffer, id byte, payload []byte) {
	out.WriteByte(id)
	out.Write(ULEB(uint64(len(payload))))
	out.Write(payload)
}

// ULEB encodes v as unsigned LEB128.
func ULEB(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

// SLEB encodes v as signed LEB128.
func SLEB(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

// Name encodes a length-prefixed UTF-8 name.
func Name(s string) []byte {
	return append(ULEB(uint64(len(s))), s...)
}

// Call encodes call funcIdx.
func Call(funcIdx uint32) []byte {
	return append([]byte{0x10}, ULEB(uint64(funcIdx))...)
}

// CallIndirect encodes call_indirect typeIdx tableIdx.
func CallIndirect(typeIdx, tableIdx uint32) []byte {
	b := append([]byte{0x11}, ULEB(uint64(typeIdx))...)
	return append(b, ULEB(uint64(tableIdx))...)
}

// GlobalGet encodes global.get idx.
func GlobalGet(idx uint32) []byte {
	return append([]byte{0x23}, ULEB(uint64(idx))...)
}

// I32Const encodes i32.const v.
func I32Const(v int32) []byte {
	return append([]byte{0x41}, SLEB(int64(v))...)
}

// I32Load encodes i32.load with natural alignment on memory 0.
func I32Load(offset uint32) []byte {
	b := []byte{0x28, 0x02}
	return append(b, ULEB(uint64(offset))...)
}

// RefFunc encodes ref.func funcIdx.
func RefFunc(funcIdx uint32) []byte {
	return append([]byte{0xD2}, ULEB(uint64(funcIdx))...)
}

// MemoryInit encodes memory.init dataIdx on memory 0.
func MemoryInit(dataIdx uint32) []byte {
	b := append([]byte{0xFC, 0x08}, ULEB(uint64(dataIdx))...)
	return append(b, 0x00)
}

// DataDrop encodes data.drop dataIdx.
func DataDrop(dataIdx uint32) []byte {
	return append([]byte{0xFC, 0x09}, ULEB(uint64(dataIdx))...)
}

// Drop encodes drop.
func Drop() []byte {
	return []byte{0x1A}
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
