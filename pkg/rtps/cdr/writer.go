package cdr

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Representation selects the CDR alignment/encapsulation rules used by a
// Writer or Reader. XCDR1 is classical aligned CDR; XCDR2 drops alignment
// padding for mutable/appendable types but is otherwise identical for the
// plain-CDR payloads this core serializes.
type Representation uint16

// Representation ids as they appear in the 2-byte encapsulation header,
// OMG DDS-XTypes table 10.
const (
	ReprCDR_BE  Representation = 0x0000
	ReprCDR_LE  Representation = 0x0001
	ReprPL_CDR_BE Representation = 0x0002
	ReprPL_CDR_LE Representation = 0x0003
	ReprCDR2_BE Representation = 0x0006
	ReprCDR2_LE Representation = 0x0007
	ReprPL_CDR2_BE Representation = 0x0008
	ReprPL_CDR2_LE Representation = 0x0009
)

// LittleEndian reports whether this representation id encodes in
// little-endian order.
func (r Representation) LittleEndian() bool {
	switch r {
	case ReprCDR_LE, ReprPL_CDR_LE, ReprCDR2_LE, ReprPL_CDR2_LE:
		return true
	default:
		return false
	}
}

// Writer serializes values using CDR alignment rules. Every primitive write
// is aligned to its own size relative to the start of the buffer, as
// required for cross-vendor interop.
type Writer struct {
	buf   bytes.Buffer
	order binary.ByteOrder
}

// NewWriter creates a Writer using the given byte order. Pass
// binary.LittleEndian for ReprCDR_LE/ReprPL_CDR_LE, binary.BigEndian
// otherwise.
func NewWriter(order binary.ByteOrder) *Writer {
	return &Writer{order: order}
}

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// align pads the buffer with zero bytes until Len() is a multiple of n.
func (w *Writer) align(n int) {
	pad := (n - (w.buf.Len() % n)) % n
	for i := 0; i < pad; i++ {
		w.buf.WriteByte(0)
	}
}

// WriteU8 writes a single byte; no alignment required.
func (w *Writer) WriteU8(v uint8) {
	w.buf.WriteByte(v)
}

// WriteU16 aligns to 2 bytes then writes a uint16.
func (w *Writer) WriteU16(v uint16) {
	w.align(2)
	var b [2]byte
	w.order.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

// WriteU32 aligns to 4 bytes then writes a uint32.
func (w *Writer) WriteU32(v uint32) {
	w.align(4)
	var b [4]byte
	w.order.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

// WriteI32 aligns to 4 bytes then writes an int32.
func (w *Writer) WriteI32(v int32) {
	w.WriteU32(uint32(v))
}

// WriteU64 aligns to 8 bytes then writes a uint64.
func (w *Writer) WriteU64(v uint64) {
	w.align(8)
	var b [8]byte
	w.order.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

// WriteI64 aligns to 8 bytes then writes an int64.
func (w *Writer) WriteI64(v int64) {
	w.WriteU64(uint64(v))
}

// WriteF32 aligns to 4 bytes then writes an IEEE-754 float32.
func (w *Writer) WriteF32(v float32) {
	w.WriteU32(math.Float32bits(v))
}

// WriteF64 aligns to 8 bytes then writes an IEEE-754 float64.
func (w *Writer) WriteF64(v float64) {
	w.WriteU64(math.Float64bits(v))
}

// WriteBool writes a boolean as a single octet (0 or 1).
func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteU8(1)
	} else {
		w.WriteU8(0)
	}
}

// WriteOpaque writes raw opaque bytes with no length prefix and no
// trailing padding — the caller owns alignment. Used for payloads that are
// already CDR-encoded by an upstream type plugin.
func (w *Writer) WriteOpaque(data []byte) {
	w.buf.Write(data)
}

// WriteString writes a CDR string: uint32 length (including the trailing
// NUL), the UTF-8 bytes, then the NUL terminator. No extra padding beyond
// the natural 4-byte alignment of the length prefix.
func (w *Writer) WriteString(s string) {
	w.WriteU32(uint32(len(s) + 1))
	w.buf.WriteString(s)
	w.buf.WriteByte(0)
}

// WriteSequenceLength writes the uint32 element-count prefix of a CDR
// sequence.
func (w *Writer) WriteSequenceLength(n int) {
	w.WriteU32(uint32(n))
}
