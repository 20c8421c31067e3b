package cdr

import "fmt"

// EncapsulationHeader is the 4-byte big-endian header prefixing every
// serialized payload and every parameter-list payload: 2 bytes
// representation-id, 2 bytes options (always zero on send, ignored on
// receive).
type EncapsulationHeader struct {
	Representation Representation
	Options        uint16
}

// Encode writes the 4-byte header, always big-endian regardless of the
// representation's own endianness (the representation id itself encodes
// byte order for what follows).
func (h EncapsulationHeader) Encode() [4]byte {
	var out [4]byte
	out[0] = byte(h.Representation >> 8)
	out[1] = byte(h.Representation)
	out[2] = byte(h.Options >> 8)
	out[3] = byte(h.Options)
	return out
}

// DecodeEncapsulationHeader reads the 4-byte header from the start of buf.
func DecodeEncapsulationHeader(buf []byte) (EncapsulationHeader, error) {
	if len(buf) < 4 {
		return EncapsulationHeader{}, fmt.Errorf("%w: encapsulation header needs 4 bytes", ErrTruncatedData)
	}
	repr := Representation(uint16(buf[0])<<8 | uint16(buf[1]))
	switch repr {
	case ReprCDR_BE, ReprCDR_LE, ReprPL_CDR_BE, ReprPL_CDR_LE,
		ReprCDR2_BE, ReprCDR2_LE, ReprPL_CDR2_BE, ReprPL_CDR2_LE:
	default:
		return EncapsulationHeader{}, fmt.Errorf("%w: unknown representation id %#04x", ErrInvalidEncapsulation, repr)
	}
	opts := uint16(buf[2])<<8 | uint16(buf[3])
	return EncapsulationHeader{Representation: repr, Options: opts}, nil
}
