package wasm

import (
	"bytes"
	"context"
	"fmt"

	"github.com/size-analysis/pkg/model"
)

// Section ids.
const (
	sectionCustom    byte = 0
	sectionType      byte = 1
	sectionImport    byte = 2
	sectionFunction  byte = 3
	sectionTable     byte = 4
	sectionMemory    byte = 5
	sectionGlobal    byte = 6
	sectionExport    byte = 7
	sectionStart     byte = 8
	sectionElement   byte = 9
	sectionCode      byte = 10
	sectionData      byte = 11
	sectionDataCount byte = 12
	sectionTag       byte = 13
)

// External kinds used by imports and exports.
const (
	externFunc   byte = 0x00
	externTable  byte = 0x01
	externMemory byte = 0x02
	externGlobal byte = 0x03
	externTag    byte = 0x04
)

var magic = []byte{0x00, 0x61, 0x73, 0x6d}

// HasMagic returns true if data starts with the WebAssembly magic number.
func HasMagic(data []byte) bool {
	return bytes.HasPrefix(data, magic)
}

// entry is a sized module entity.
type entry struct {
	size uint64
	refs []ref
}

type importEntry struct {
	entry
	module string
	field  string
	kind   byte
}

type exportEntry struct {
	entry
	name  string
	kind  byte
	index uint32
}

type segmentEntry struct {
	entry
	active bool
	// target is the table or memory an active segment initializes.
	target uint32
}

type customEntry struct {
	entry
	name string
}

// module is the decoded section content prior to graph construction.
type module struct {
	types     []entry
	imports   []importEntry
	funcTypes []uint32
	tables    []entry
	memories  []entry
	globals   []entry
	tags      []entry
	exports   []exportEntry
	start     *entry
	elems     []segmentEntry
	code      []entry
	data      []segmentEntry
	customs   []customEntry
	names     nameSection

	importedFuncs    uint32
	importedTables   uint32
	importedMemories uint32
	importedGlobals  uint32
	importedTags     uint32
}

// sectionOrder gives the required relative order of known non-custom
// sections.
var sectionOrder = map[byte]int{
	sectionType:      1,
	sectionImport:    2,
	sectionFunction:  3,
	sectionTable:     4,
	sectionMemory:    5,
	sectionTag:       6,
	sectionGlobal:    7,
	sectionExport:    8,
	sectionStart:     9,
	sectionElement:   10,
	sectionDataCount: 11,
	sectionCode:      12,
	sectionData:      13,
}

func parseModule(ctx context.Context, data []byte) (*module, error) {
	if !HasMagic(data) {
		return nil, fmt.Errorf("missing wasm magic number")
	}
	if len(data) < 8 {
		return nil, fmt.Errorf("truncated module header")
	}
	if version := uint32(data[4]) | uint32(data[5])<<8 | uint32(data[6])<<16 | uint32(data[7])<<24; version != 1 {
		return nil, fmt.Errorf("unsupported wasm version %d", version)
	}

	m := &module{}
	r := newReader(data[8:], 8)
	lastOrder := 0
	seen := make(map[byte]bool)

	for !r.eof() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		id, err := r.byte()
		if err != nil {
			return nil, err
		}
		size, err := r.u32()
		if err != nil {
			return nil, err
		}
		payload, err := r.sub(int(size))
		if err != nil {
			return nil, fmt.Errorf("section %d: %w", id, err)
		}

		if id != sectionCustom {
			order, known := sectionOrder[id]
			if !known {
				return nil, fmt.Errorf("offset 0x%x: unknown section id %d", payload.base, id)
			}
			if seen[id] {
				return nil, fmt.Errorf("offset 0x%x: duplicate section id %d", payload.base, id)
			}
			if order < lastOrder {
				return nil, fmt.Errorf("offset 0x%x: section id %d out of order", payload.base, id)
			}
			seen[id] = true
			lastOrder = order
		}

		if err := m.parseSection(ctx, id, payload); err != nil {
			return nil, fmt.Errorf("section %d: %w", id, err)
		}
		if id != sectionCustom && !payload.eof() {
			return nil, payload.errorf("section %d size mismatch", id)
		}
	}

	if len(m.funcTypes) != len(m.code) {
		return nil, fmt.Errorf("function and code section have inconsistent lengths: %d vs %d",
			len(m.funcTypes), len(m.code))
	}
	return m, nil
}

func (m *module) parseSection(ctx context.Context, id byte, r *reader) error {
	switch id {
	case sectionCustom:
		return m.parseCustom(r)
	case sectionType:
		return m.parseTypes(r)
	case sectionImport:
		return m.parseImports(r)
	case sectionFunction:
		return m.parseFunctions(r)
	case sectionTable:
		return m.parseTables(r)
	case sectionMemory:
		return m.parseMemories(r)
	case sectionTag:
		return m.parseTags(r)
	case sectionGlobal:
		return m.parseGlobals(r)
	case sectionExport:
		return m.parseExports(r)
	case sectionStart:
		return m.parseStart(r)
	case sectionElement:
		return m.parseElements(r)
	case sectionDataCount:
		_, err := r.u32()
		return err
	case sectionCode:
		return m.parseCode(ctx, r)
	case sectionData:
		return m.parseData(r)
	default:
		return r.errorf("unknown section id %d", id)
	}
}

// sized runs fn and records how many bytes it consumed.
func sized(r *reader, fn func() ([]ref, error)) (entry, error) {
	start := r.pos
	refs, err := fn()
	if err != nil {
		return entry{}, err
	}
	return entry{size: uint64(r.pos - start), refs: refs}, nil
}

func (m *module) parseCustom(r *reader) error {
	size := uint64(r.remaining())
	name, err := r.name()
	if err != nil {
		return err
	}
	m.customs = append(m.customs, customEntry{entry: entry{size: size}, name: name})
	if name == "name" {
		// A malformed name section only costs names, never the analysis.
		m.names = parseNameSection(r)
	}
	return nil
}

func (m *module) parseTypes(r *reader) error {
	n, err := r.count(3)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		e, err := sized(r, func() ([]ref, error) { return nil, parseFuncType(r) })
		if err != nil {
			return err
		}
		m.types = append(m.types, e)
	}
	return nil
}

func parseFuncType(r *reader) error {
	form, err := r.byte()
	if err != nil {
		return err
	}
	if form != 0x60 {
		return r.errorf("unsupported type form 0x%02x", form)
	}
	for i := 0; i < 2; i++ {
		n, err := r.count(1)
		if err != nil {
			return err
		}
		for j := 0; j < n; j++ {
			if err := skipValType(r); err != nil {
				return err
			}
		}
	}
	return nil
}

func skipValType(r *reader) error {
	b, err := r.byte()
	if err != nil {
		return err
	}
	switch b {
	case 0x7F, 0x7E, 0x7D, 0x7C, 0x7B, 0x70, 0x6F, 0x69:
		return nil
	case 0x63, 0x64:
		_, err = r.s33()
		return err
	default:
		return r.errorf("invalid value type 0x%02x", b)
	}
}

func skipLimits(r *reader) error {
	flags, err := r.byte()
	if err != nil {
		return err
	}
	if flags > 0x07 {
		return r.errorf("invalid limits flags 0x%02x", flags)
	}
	if _, err := r.u64(); err != nil {
		return err
	}
	if flags&0x01 != 0 {
		_, err = r.u64()
	}
	return err
}

func skipTableType(r *reader) error {
	if err := skipValType(r); err != nil {
		return err
	}
	return skipLimits(r)
}

func skipGlobalType(r *reader) error {
	if err := skipValType(r); err != nil {
		return err
	}
	mut, err := r.byte()
	if err != nil {
		return err
	}
	if mut > 1 {
		return r.errorf("invalid mutability 0x%02x", mut)
	}
	return nil
}

func parseTagType(r *reader) ([]ref, error) {
	if _, err := r.byte(); err != nil {
		return nil, err
	}
	idx, err := r.u32()
	if err != nil {
		return nil, err
	}
	return []ref{{space: spaceType, index: idx, kind: model.EdgeType}}, nil
}

func (m *module) parseImports(r *reader) error {
	n, err := r.count(4)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		var imp importEntry
		e, err := sized(r, func() ([]ref, error) {
			var err error
			if imp.module, err = r.name(); err != nil {
				return nil, err
			}
			if imp.field, err = r.name(); err != nil {
				return nil, err
			}
			if imp.kind, err = r.byte(); err != nil {
				return nil, err
			}
			switch imp.kind {
			case externFunc:
				idx, err := r.u32()
				if err != nil {
					return nil, err
				}
				m.importedFuncs++
				return []ref{{space: spaceType, index: idx, kind: model.EdgeType}}, nil
			case externTable:
				m.importedTables++
				return nil, skipTableType(r)
			case externMemory:
				m.importedMemories++
				return nil, skipLimits(r)
			case externGlobal:
				m.importedGlobals++
				return nil, skipGlobalType(r)
			case externTag:
				m.importedTags++
				return parseTagType(r)
			default:
				return nil, r.errorf("invalid import kind 0x%02x", imp.kind)
			}
		})
		if err != nil {
			return err
		}
		imp.entry = e
		m.imports = append(m.imports, imp)
	}
	return nil
}

func (m *module) parseFunctions(r *reader) error {
	n, err := r.count(1)
	if err != nil {
		return err
	}
	m.funcTypes = make([]uint32, n)
	for i := range m.funcTypes {
		if m.funcTypes[i], err = r.u32(); err != nil {
			return err
		}
	}
	return nil
}

func (m *module) parseTables(r *reader) error {
	n, err := r.count(3)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		e, err := sized(r, func() ([]ref, error) {
			if len(r.data) > r.pos+1 && r.data[r.pos] == 0x40 && r.data[r.pos+1] == 0x00 {
				// Table with an explicit initializer expression.
				r.pos += 2
				if err := skipTableType(r); err != nil {
					return nil, err
				}
				return scanConstExpr(r)
			}
			return nil, skipTableType(r)
		})
		if err != nil {
			return err
		}
		m.tables = append(m.tables, e)
	}
	return nil
}

func (m *module) parseMemories(r *reader) error {
	n, err := r.count(2)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		e, err := sized(r, func() ([]ref, error) { return nil, skipLimits(r) })
		if err != nil {
			return err
		}
		m.memories = append(m.memories, e)
	}
	return nil
}

func (m *module) parseTags(r *reader) error {
	n, err := r.count(2)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		e, err := sized(r, func() ([]ref, error) { return parseTagType(r) })
		if err != nil {
			return err
		}
		m.tags = append(m.tags, e)
	}
	return nil
}

func (m *module) parseGlobals(r *reader) error {
	n, err := r.count(3)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		e, err := sized(r, func() ([]ref, error) {
			if err := skipGlobalType(r); err != nil {
				return nil, err
			}
			return scanConstExpr(r)
		})
		if err != nil {
			return err
		}
		m.globals = append(m.globals, e)
	}
	return nil
}

func (m *module) parseExports(r *reader) error {
	n, err := r.count(3)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		var exp exportEntry
		e, err := sized(r, func() ([]ref, error) {
			var err error
			if exp.name, err = r.name(); err != nil {
				return nil, err
			}
			if exp.kind, err = r.byte(); err != nil {
				return nil, err
			}
			if exp.index, err = r.u32(); err != nil {
				return nil, err
			}
			sp, ok := externSpace(exp.kind)
			if !ok {
				return nil, r.errorf("invalid export kind 0x%02x", exp.kind)
			}
			return []ref{{space: sp, index: exp.index, kind: model.EdgeRef}}, nil
		})
		if err != nil {
			return err
		}
		exp.entry = e
		m.exports = append(m.exports, exp)
	}
	return nil
}

func externSpace(kind byte) (space, bool) {
	switch kind {
	case externFunc:
		return spaceFunc, true
	case externTable:
		return spaceTable, true
	case externMemory:
		return spaceMemory, true
	case externGlobal:
		return spaceGlobal, true
	case externTag:
		return spaceTag, true
	default:
		return 0, false
	}
}

func (m *module) parseStart(r *reader) error {
	e, err := sized(r, func() ([]ref, error) {
		idx, err := r.u32()
		if err != nil {
			return nil, err
		}
		return []ref{{space: spaceFunc, index: idx, kind: model.EdgeCall}}, nil
	})
	if err != nil {
		return err
	}
	m.start = &e
	return nil
}

func (m *module) parseElements(r *reader) error {
	n, err := r.count(2)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		var seg segmentEntry
		e, err := sized(r, func() ([]ref, error) { return parseElementSegment(r, &seg) })
		if err != nil {
			return err
		}
		seg.entry = e
		m.elems = append(m.elems, seg)
	}
	return nil
}

func parseElementSegment(r *reader, seg *segmentEntry) ([]ref, error) {
	flags, err := r.u32()
	if err != nil {
		return nil, err
	}
	if flags > 7 {
		return nil, r.errorf("invalid element segment flags %d", flags)
	}

	var refs []ref
	seg.active = flags&0x01 == 0
	if seg.active {
		if flags&0x02 != 0 {
			if seg.target, err = r.u32(); err != nil {
				return nil, err
			}
		}
		offsetRefs, err := scanConstExpr(r)
		if err != nil {
			return nil, err
		}
		refs = append(refs, offsetRefs...)
	}

	usesExprs := flags&0x04 != 0
	if flags&0x03 != 0 {
		// elemkind byte or reftype
		if usesExprs {
			err = skipValType(r)
		} else {
			_, err = r.byte()
		}
		if err != nil {
			return nil, err
		}
	}

	count, err := r.count(1)
	if err != nil {
		return nil, err
	}
	for j := 0; j < count; j++ {
		if usesExprs {
			exprRefs, err := scanConstExpr(r)
			if err != nil {
				return nil, err
			}
			refs = append(refs, exprRefs...)
			continue
		}
		idx, err := r.u32()
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref{space: spaceFunc, index: idx, kind: model.EdgeRef})
	}
	return refs, nil
}

func (m *module) parseCode(ctx context.Context, r *reader) error {
	n, err := r.count(2)
	if err != nil {
		return err
	}
	m.code = make([]entry, 0, n)
	for i := 0; i < n; i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		start := r.pos
		bodySize, err := r.u32()
		if err != nil {
			return err
		}
		body, err := r.sub(int(bodySize))
		if err != nil {
			return fmt.Errorf("function body %d: %w", i, err)
		}
		refs, err := parseBody(body)
		if err != nil {
			return fmt.Errorf("function body %d: %w", i, err)
		}
		m.code = append(m.code, entry{size: uint64(r.pos - start), refs: refs})
	}
	return nil
}

func parseBody(r *reader) ([]ref, error) {
	groups, err := r.count(2)
	if err != nil {
		return nil, err
	}
	for i := 0; i < groups; i++ {
		if _, err := r.u32(); err != nil {
			return nil, err
		}
		if err := skipValType(r); err != nil {
			return nil, err
		}
	}
	return scanBody(r)
}

func (m *module) parseData(r *reader) error {
	n, err := r.count(2)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		var seg segmentEntry
		e, err := sized(r, func() ([]ref, error) {
			flags, err := r.u32()
			if err != nil {
				return nil, err
			}
			var refs []ref
			switch flags {
			case 0, 2:
				seg.active = true
				if flags == 2 {
					if seg.target, err = r.u32(); err != nil {
						return nil, err
					}
				}
				if refs, err = scanConstExpr(r); err != nil {
					return nil, err
				}
			case 1:
			default:
				return nil, r.errorf("invalid data segment flags %d", flags)
			}
			size, err := r.count(1)
			if err != nil {
				return nil, err
			}
			return refs, r.skip(size)
		})
		if err != nil {
			return err
		}
		seg.entry = e
		m.data = append(m.data, seg)
	}
	return nil
}
