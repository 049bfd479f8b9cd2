package wasm

import (
	"fmt"
	"math"
)

// reader is a bounds-checked cursor over a byte slice. Offsets in error
// messages are absolute file offsets.
type reader struct {
	data []byte
	pos  int
	base int
}

func newReader(data []byte, base int) *reader {
	return &reader{data: data, base: base}
}

func (r *reader) offset() int {
	return r.base + r.pos
}

func (r *reader) remaining() int {
	return len(r.data) - r.pos
}

func (r *reader) eof() bool {
	return r.pos >= len(r.data)
}

func (r *reader) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("offset 0x%x: %s", r.offset(), fmt.Sprintf(format, args...))
}

func (r *reader) byte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, r.errorf("unexpected end of input")
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || n > r.remaining() {
		return nil, r.errorf("need %d bytes, %d remaining", n, r.remaining())
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) skip(n int) error {
	_, err := r.bytes(n)
	return err
}

// sub returns a reader over the next n bytes and advances past them.
func (r *reader) sub(n int) (*reader, error) {
	start := r.offset()
	b, err := r.bytes(n)
	if err != nil {
		return nil, err
	}
	return newReader(b, start), nil
}

func (r *reader) uleb(maxBits uint) (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := r.byte()
		if err != nil {
			return 0, err
		}
		if shift >= maxBits || (shift+7 > maxBits && uint64(b&0x7f)>>(maxBits-shift) != 0) {
			return 0, r.errorf("integer representation too long")
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
}

func (r *reader) sleb(maxBits uint) (int64, error) {
	var result int64
	var shift uint
	var b byte
	for {
		var err error
		b, err = r.byte()
		if err != nil {
			return 0, err
		}
		if shift >= maxBits {
			return 0, r.errorf("integer representation too long")
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < 64 && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, nil
}

func (r *reader) u32() (uint32, error) {
	v, err := r.uleb(32)
	return uint32(v), err
}

func (r *reader) u64() (uint64, error) {
	return r.uleb(64)
}

func (r *reader) s32() (int32, error) {
	v, err := r.sleb(32)
	if err != nil {
		return 0, err
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, r.errorf("integer too large")
	}
	return int32(v), nil
}

func (r *reader) s33() (int64, error) {
	return r.sleb(33)
}

func (r *reader) s64() (int64, error) {
	return r.sleb(64)
}

// count reads a vector length and rejects lengths that cannot fit in the
// remaining input given a minimum encoded element size.
func (r *reader) count(minElemSize int) (int, error) {
	n, err := r.u32()
	if err != nil {
		return 0, err
	}
	if minElemSize > 0 && int(n) > r.remaining()/minElemSize {
		return 0, r.errorf("vector length %d exceeds remaining input", n)
	}
	return int(n), nil
}

func (r *reader) name() (string, error) {
	n, err := r.count(1)
	if err != nil {
		return "", err
	}
	b, err := r.bytes(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
