// Package submsg implements RTPS packet and submessage framing: the
// 20-byte packet header, the 4-byte submessage header, and encode/decode
// for every submessage kind this core must speak.
package submsg

import (
	"encoding/binary"
	"fmt"

	"github.com/hdds-team/hdds/pkg/rtps/guid"
	"github.com/hdds-team/hdds/pkg/rtps/types"
)

// Magic is the 4-byte literal every RTPS packet must begin with.
var Magic = [4]byte{'R', 'T', 'P', 'S'}

// PacketHeaderLen is the fixed size of the RTPS packet header.
const PacketHeaderLen = 20

// ErrBadMagic is returned when a packet does not start with "RTPS".
var ErrBadMagic = fmt.Errorf("submsg: packet does not start with RTPS magic")

// PacketHeader is the 20-byte header prefixing every RTPS message: magic,
// protocol version, vendor id, and sender GUID prefix. The magic, version
// and vendor-id fields are always big-endian; everything after is native
// to the submessages that follow.
type PacketHeader struct {
	Version  types.ProtocolVersion
	VendorID types.VendorID
	Prefix   guid.Prefix
}

// Encode writes the 20-byte header.
func (h PacketHeader) Encode() [PacketHeaderLen]byte {
	var out [PacketHeaderLen]byte
	copy(out[0:4], Magic[:])
	out[4] = h.Version.Major
	out[5] = h.Version.Minor
	out[6] = h.VendorID[0]
	out[7] = h.VendorID[1]
	copy(out[8:20], h.Prefix[:])
	return out
}

// DecodePacketHeader reads and validates the packet header at the start of
// buf. Decoders MUST reject any packet not starting with the RTPS magic.
func DecodePacketHeader(buf []byte) (PacketHeader, error) {
	if len(buf) < PacketHeaderLen {
		return PacketHeader{}, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, PacketHeaderLen, len(buf))
	}
	if buf[0] != Magic[0] || buf[1] != Magic[1] || buf[2] != Magic[2] || buf[3] != Magic[3] {
		return PacketHeader{}, ErrBadMagic
	}
	var h PacketHeader
	h.Version = types.ProtocolVersion{Major: buf[4], Minor: buf[5]}
	h.VendorID = types.VendorID{buf[6], buf[7]}
	copy(h.Prefix[:], buf[8:20])
	return h, nil
}

// Kind identifies the submessage type, the first byte of every
// submessage header.
type Kind uint8

// Submessage kinds this core must implement, per the RTPS 2.3 wire spec.
const (
	KindPad           Kind = 0x01
	KindAckNack       Kind = 0x06
	KindHeartbeat     Kind = 0x07
	KindGap           Kind = 0x08
	KindInfoTS        Kind = 0x09
	KindInfoSrc       Kind = 0x0c
	KindInfoDst       Kind = 0x0e
	KindNackFrag      Kind = 0x12
	KindHeartbeatFrag Kind = 0x13
	KindData          Kind = 0x15
	KindDataFrag      Kind = 0x16
)

func (k Kind) String() string {
	switch k {
	case KindPad:
		return "PAD"
	case KindAckNack:
		return "ACKNACK"
	case KindHeartbeat:
		return "HEARTBEAT"
	case KindGap:
		return "GAP"
	case KindInfoTS:
		return "INFO_TS"
	case KindInfoSrc:
		return "INFO_SRC"
	case KindInfoDst:
		return "INFO_DST"
	case KindNackFrag:
		return "NACK_FRAG"
	case KindHeartbeatFrag:
		return "HEARTBEAT_FRAG"
	case KindData:
		return "DATA"
	case KindDataFrag:
		return "DATA_FRAG"
	default:
		return fmt.Sprintf("UNKNOWN(%#02x)", uint8(k))
	}
}

// flagLittleEndian is bit 0 of the flags byte: when set, the fields that
// follow are little-endian; otherwise big-endian. Every submessage kind
// reserves this bit at the same position, so encoders outside this package
// OR it into their kind-specific flags via FlagEndianness.
const flagLittleEndian = 0x01

// FlagEndianness is bit 0 of a submessage's flags byte: callers encoding a
// submessage body with binary.LittleEndian must OR this into the flags
// passed to EncodeSubmessage, or a receiver that honors the flag (any
// vendor-conformant RTPS stack) will misparse the body as big-endian.
const FlagEndianness = flagLittleEndian

// Header is the 4-byte submessage header: kind, flags, and
// octets-to-next-header in the endianness the flags indicate.
type Header struct {
	Kind           Kind
	Flags          uint8
	OctetsToNext   uint16
}

// LittleEndian reports whether flag bit 0 is set.
func (h Header) LittleEndian() bool {
	return h.Flags&flagLittleEndian != 0
}

// ByteOrder returns the binary.ByteOrder implied by the flags.
func (h Header) ByteOrder() binary.ByteOrder {
	if h.LittleEndian() {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// Encode writes the 4-byte submessage header.
func (h Header) Encode() [4]byte {
	var out [4]byte
	out[0] = byte(h.Kind)
	out[1] = h.Flags
	order := h.ByteOrder()
	order.PutUint16(out[2:4], h.OctetsToNext)
	return out
}

// DecodeHeader reads a submessage header from the start of buf.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < 4 {
		return Header{}, fmt.Errorf("%w: submessage header needs 4 bytes", ErrTruncated)
	}
	var h Header
	h.Kind = Kind(buf[0])
	h.Flags = buf[1]
	order := h.ByteOrder()
	h.OctetsToNext = order.Uint16(buf[2:4])
	return h, nil
}

// ErrTruncated is returned when a buffer is too short to contain a
// required field.
var ErrTruncated = fmt.Errorf("submsg: truncated data")

// ErrUnknownKind signals a submessage kind this core does not recognize;
// callers should skip it using OctetsToNext rather than treating it as a
// fatal error.
var ErrUnknownKind = fmt.Errorf("submsg: unknown submessage kind")
