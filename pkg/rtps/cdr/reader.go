package cdr

import (
	"fmt"
	"math"
)

// Reader deserializes a CDR byte slice, tracking alignment relative to the
// start of the slice exactly as Writer does when producing it.
type Reader struct {
	data  []byte
	pos   int
	order func([]byte) uint64 // unused placeholder kept for symmetry; see little/big helpers
	le    bool
}

// NewReader wraps data for decoding using the given endianness.
func NewReader(data []byte, littleEndian bool) *Reader {
	return &Reader{data: data, le: littleEndian}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Pos returns the current read offset.
func (r *Reader) Pos() int {
	return r.pos
}

func (r *Reader) align(n int) {
	pad := (n - (r.pos % n)) % n
	r.pos += pad
}

func (r *Reader) need(n int) error {
	if r.pos+n > len(r.data) {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncatedData, n, r.pos, len(r.data)-r.pos)
	}
	return nil
}

func (r *Reader) u16(b []byte) uint16 {
	if r.le {
		return uint16(b[0]) | uint16(b[1])<<8
	}
	return uint16(b[1]) | uint16(b[0])<<8
}

func (r *Reader) u32(b []byte) uint32 {
	if r.le {
		return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	}
	return uint32(b[3]) | uint32(b[2])<<8 | uint32(b[1])<<16 | uint32(b[0])<<24
}

func (r *Reader) u64(b []byte) uint64 {
	if r.le {
		var v uint64
		for i := 7; i >= 0; i-- {
			v = v<<8 | uint64(b[i])
		}
		return v
	}
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// ReadU8 reads a single byte.
func (r *Reader) ReadU8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

// ReadU16 aligns to 2 bytes then reads a uint16.
func (r *Reader) ReadU16() (uint16, error) {
	r.align(2)
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := r.u16(r.data[r.pos : r.pos+2])
	r.pos += 2
	return v, nil
}

// ReadU32 aligns to 4 bytes then reads a uint32.
func (r *Reader) ReadU32() (uint32, error) {
	r.align(4)
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := r.u32(r.data[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

// ReadI32 aligns to 4 bytes then reads an int32.
func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

// ReadU64 aligns to 8 bytes then reads a uint64.
func (r *Reader) ReadU64() (uint64, error) {
	r.align(8)
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := r.u64(r.data[r.pos : r.pos+8])
	r.pos += 8
	return v, nil
}

// ReadI64 aligns to 8 bytes then reads an int64.
func (r *Reader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

// ReadF32 aligns to 4 bytes then reads an IEEE-754 float32.
func (r *Reader) ReadF32() (float32, error) {
	v, err := r.ReadU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// ReadF64 aligns to 8 bytes then reads an IEEE-754 float64.
func (r *Reader) ReadF64() (float64, error) {
	v, err := r.ReadU64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// ReadBool reads a single octet and interprets it as a boolean.
func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadU8()
	return v != 0, err
}

// ReadOpaque reads n raw bytes verbatim, with no length prefix.
func (r *Reader) ReadOpaque(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.data[r.pos:r.pos+n])
	r.pos += n
	return out, nil
}

// ReadString reads a CDR string: uint32 length (including NUL), the bytes,
// and strips the trailing NUL.
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadU32()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", fmt.Errorf("%w: zero-length CDR string has no NUL terminator", ErrInvalidFormat)
	}
	if err := r.need(int(n)); err != nil {
		return "", err
	}
	s := string(r.data[r.pos : r.pos+int(n)-1])
	r.pos += int(n)
	return s, nil
}

// ReadSequenceLength reads the uint32 element-count prefix of a CDR
// sequence.
func (r *Reader) ReadSequenceLength() (int, error) {
	n, err := r.ReadU32()
	return int(n), err
}
