package wasm

import (
	"github.com/size-analysis/pkg/model"
)

// space names an index space of the module.
type space uint8

const (
	spaceFunc space = iota
	spaceType
	spaceTable
	spaceMemory
	spaceGlobal
	spaceElem
	spaceData
	spaceTag
)

// ref is a reference from an instruction sequence into an index space.
type ref struct {
	space space
	index uint32
	kind  model.EdgeKind
}

// scanner walks an instruction sequence and records every index it names.
type scanner struct {
	r    *reader
	refs []ref
}

func (s *scanner) add(sp space, index uint32, kind model.EdgeKind) {
	s.refs = append(s.refs, ref{space: sp, index: index, kind: kind})
}

func (s *scanner) index(sp space, kind model.EdgeKind) error {
	idx, err := s.r.u32()
	if err != nil {
		return err
	}
	s.add(sp, idx, kind)
	return nil
}

// scanConstExpr scans an initializer expression up to and including its end
// opcode.
func scanConstExpr(r *reader) ([]ref, error) {
	s := &scanner{r: r}
	if err := s.run(true); err != nil {
		return nil, err
	}
	return s.refs, nil
}

// scanBody scans a function body until the reader is exhausted.
func scanBody(r *reader) ([]ref, error) {
	s := &scanner{r: r}
	if err := s.run(false); err != nil {
		return nil, err
	}
	return s.refs, nil
}

// run decodes instructions. In const mode it stops after the first end
// opcode at depth zero; otherwise it runs to the end of the reader and
// requires the final opcode to be end.
func (s *scanner) run(constMode bool) error {
	depth := 0
	for !s.r.eof() {
		op, err := s.r.byte()
		if err != nil {
			return err
		}

		switch op {
		case 0x02, 0x03, 0x04, 0x06: // block, loop, if, try
			depth++
			if err := s.blockType(); err != nil {
				return err
			}
		case 0x1F: // try_table
			depth++
			if err := s.tryTable(); err != nil {
				return err
			}
		case 0x0B: // end
			if depth == 0 {
				if constMode {
					return nil
				}
				if !s.r.eof() {
					return s.r.errorf("operators remaining after end of function")
				}
				return nil
			}
			depth--
		default:
			if err := s.operator(op); err != nil {
				return err
			}
		}
	}
	return s.r.errorf("expression is missing its end opcode")
}

func (s *scanner) blockType() error {
	bt, err := s.r.s33()
	if err != nil {
		return err
	}
	// Negative values encode 0x40 (empty) and value types.
	if bt >= 0 {
		s.add(spaceType, uint32(bt), model.EdgeType)
		return nil
	}
	switch byte(bt & 0x7f) {
	case 0x63, 0x64: // (ref null ht), (ref ht)
		_, err = s.r.s33()
	}
	return err
}

func (s *scanner) tryTable() error {
	if err := s.blockType(); err != nil {
		return err
	}
	n, err := s.r.count(2)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		kind, err := s.r.byte()
		if err != nil {
			return err
		}
		switch kind {
		case 0x00, 0x01: // catch, catch_ref
			if err := s.index(spaceTag, model.EdgeRef); err != nil {
				return err
			}
		case 0x02, 0x03: // catch_all, catch_all_ref
		default:
			return s.r.errorf("invalid catch kind 0x%02x", kind)
		}
		if _, err := s.r.u32(); err != nil {
			return err
		}
	}
	return nil
}

func (s *scanner) memarg() error {
	align, err := s.r.u32()
	if err != nil {
		return err
	}
	memory := uint32(0)
	if align&0x40 != 0 {
		if memory, err = s.r.u32(); err != nil {
			return err
		}
	}
	s.add(spaceMemory, memory, model.EdgeData)
	_, err = s.r.u64()
	return err
}

func (s *scanner) valType() error {
	b, err := s.r.byte()
	if err != nil {
		return err
	}
	if b == 0x63 || b == 0x64 {
		_, err = s.r.s33()
	}
	return err
}

func (s *scanner) operator(op byte) error {
	r := s.r
	var err error

	switch {
	case op == 0x00, op == 0x01, op == 0x05, op == 0x0F, op == 0x19, op == 0x1A, op == 0x1B,
		op == 0x0A, op == 0xD1, op == 0xD3, op == 0xD4:
		// unreachable, nop, else, return, catch_all, drop, select, throw_ref,
		// ref.is_null, ref.eq, ref.as_non_null
	case op == 0x07, op == 0x08: // catch, throw
		err = s.index(spaceTag, model.EdgeRef)
	case op == 0x09, op == 0x0C, op == 0x0D, op == 0x18, op == 0xD5, op == 0xD6:
		// rethrow, br, br_if, delegate, br_on_null, br_on_non_null
		_, err = r.u32()
	case op == 0x0E: // br_table
		var n int
		if n, err = r.count(1); err != nil {
			return err
		}
		for i := 0; i <= n && err == nil; i++ {
			_, err = r.u32()
		}
	case op == 0x10, op == 0x12: // call, return_call
		err = s.index(spaceFunc, model.EdgeCall)
	case op == 0x11, op == 0x13: // call_indirect, return_call_indirect
		if err = s.index(spaceType, model.EdgeType); err == nil {
			err = s.index(spaceTable, model.EdgeData)
		}
	case op == 0x14, op == 0x15: // call_ref, return_call_ref
		err = s.index(spaceType, model.EdgeType)
	case op == 0x1C: // select t*
		var n int
		if n, err = r.count(1); err != nil {
			return err
		}
		for i := 0; i < n && err == nil; i++ {
			err = s.valType()
		}
	case op >= 0x20 && op <= 0x22: // local.get, local.set, local.tee
		_, err = r.u32()
	case op == 0x23, op == 0x24: // global.get, global.set
		err = s.index(spaceGlobal, model.EdgeData)
	case op == 0x25, op == 0x26: // table.get, table.set
		err = s.index(spaceTable, model.EdgeData)
	case op >= 0x28 && op <= 0x3E: // loads and stores
		err = s.memarg()
	case op == 0x3F, op == 0x40: // memory.size, memory.grow
		err = s.index(spaceMemory, model.EdgeData)
	case op == 0x41: // i32.const
		_, err = r.s32()
	case op == 0x42: // i64.const
		_, err = r.s64()
	case op == 0x43: // f32.const
		err = r.skip(4)
	case op == 0x44: // f64.const
		err = r.skip(8)
	case op >= 0x45 && op <= 0xC4: // numeric operators
	case op == 0xD0: // ref.null
		_, err = r.s33()
	case op == 0xD2: // ref.func
		err = s.index(spaceFunc, model.EdgeRef)
	case op == 0xFC:
		err = s.miscOperator()
	case op == 0xFD:
		err = s.simdOperator()
	case op == 0xFE:
		err = s.atomicOperator()
	default:
		return r.errorf("unsupported opcode 0x%02x", op)
	}
	return err
}

func (s *scanner) miscOperator() error {
	sub, err := s.r.u32()
	if err != nil {
		return err
	}
	switch {
	case sub <= 7: // saturating truncation
		return nil
	case sub == 8: // memory.init
		if err := s.index(spaceData, model.EdgeData); err != nil {
			return err
		}
		return s.index(spaceMemory, model.EdgeData)
	case sub == 9: // data.drop
		return s.index(spaceData, model.EdgeData)
	case sub == 10: // memory.copy
		if err := s.index(spaceMemory, model.EdgeData); err != nil {
			return err
		}
		return s.index(spaceMemory, model.EdgeData)
	case sub == 11: // memory.fill
		return s.index(spaceMemory, model.EdgeData)
	case sub == 12: // table.init
		if err := s.index(spaceElem, model.EdgeRef); err != nil {
			return err
		}
		return s.index(spaceTable, model.EdgeData)
	case sub == 13: // elem.drop
		return s.index(spaceElem, model.EdgeRef)
	case sub == 14: // table.copy
		if err := s.index(spaceTable, model.EdgeData); err != nil {
			return err
		}
		return s.index(spaceTable, model.EdgeData)
	case sub >= 15 && sub <= 17: // table.grow, table.size, table.fill
		return s.index(spaceTable, model.EdgeData)
	default:
		return s.r.errorf("unsupported 0xfc opcode %d", sub)
	}
}

func (s *scanner) simdOperator() error {
	sub, err := s.r.u32()
	if err != nil {
		return err
	}
	switch {
	case sub <= 11, sub == 92, sub == 93: // v128 loads and stores
		return s.memarg()
	case sub == 12, sub == 13: // v128.const, i8x16.shuffle
		return s.r.skip(16)
	case sub >= 21 && sub <= 34: // extract_lane, replace_lane
		return s.r.skip(1)
	case sub >= 84 && sub <= 91: // load_lane, store_lane
		if err := s.memarg(); err != nil {
			return err
		}
		return s.r.skip(1)
	case sub <= 0x113:
		return nil
	default:
		return s.r.errorf("unsupported 0xfd opcode %d", sub)
	}
}

func (s *scanner) atomicOperator() error {
	sub, err := s.r.u32()
	if err != nil {
		return err
	}
	switch {
	case sub == 0x03: // atomic.fence
		return s.r.skip(1)
	case sub <= 0x4E:
		return s.memarg()
	default:
		return s.r.errorf("unsupported 0xfe opcode %d", sub)
	}
}
