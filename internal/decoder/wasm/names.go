package wasm

// Name section subsection ids.
const (
	nameSubFunction byte = 1
	nameSubType     byte = 4
	nameSubTable    byte = 5
	nameSubMemory   byte = 6
	nameSubGlobal   byte = 7
	nameSubElem     byte = 8
	nameSubData     byte = 9
	nameSubTag      byte = 11
)

// nameSection maps index spaces to debug names.
type nameSection map[space]map[uint32]string

func (n nameSection) lookup(sp space, index uint32) (string, bool) {
	if n == nil {
		return "", false
	}
	name, ok := n[sp][index]
	return name, ok && name != ""
}

// parseNameSection reads as many name maps as it can. Parsing stops at the
// first malformed subsection and keeps what was read before it.
func parseNameSection(r *reader) nameSection {
	names := make(nameSection)
	for !r.eof() {
		id, err := r.byte()
		if err != nil {
			return names
		}
		size, err := r.u32()
		if err != nil {
			return names
		}
		sub, err := r.sub(int(size))
		if err != nil {
			return names
		}

		var sp space
		switch id {
		case nameSubFunction:
			sp = spaceFunc
		case nameSubType:
			sp = spaceType
		case nameSubTable:
			sp = spaceTable
		case nameSubMemory:
			sp = spaceMemory
		case nameSubGlobal:
			sp = spaceGlobal
		case nameSubElem:
			sp = spaceElem
		case nameSubData:
			sp = spaceData
		case nameSubTag:
			sp = spaceTag
		default:
			continue
		}

		m, ok := parseNameMap(sub)
		if !ok {
			return names
		}
		names[sp] = m
	}
	return names
}

func parseNameMap(r *reader) (map[uint32]string, bool) {
	n, err := r.count(2)
	if err != nil {
		return nil, false
	}
	m := make(map[uint32]string, n)
	for i := 0; i < n; i++ {
		idx, err := r.u32()
		if err != nil {
			return nil, false
		}
		name, err := r.name()
		if err != nil {
			return nil, false
		}
		m[idx] = name
	}
	return m, true
}
