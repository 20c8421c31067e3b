package submsg

import (
	"encoding/binary"
	"fmt"

	"github.com/hdds-team/hdds/pkg/rtps/guid"
	"github.com/hdds-team/hdds/pkg/rtps/types"
)

// Data is the decoded form of a DATA submessage:
// extraFlags(2) | octetsToInlineQos(2) | readerEntityId(4) | writerEntityId(4)
// | writerSN(8) | [inlineQoS] | serializedPayload
type Data struct {
	ReaderEntityID guid.EntityID
	WriterEntityID guid.EntityID
	WriterSN       types.SequenceNumber
	InlineQoS      []byte // raw parameter-list bytes, if DataFlagInlineQoS set
	Payload        []byte
}

// DATA submessage flag bits (bit 0 is the shared little-endian flag).
const (
	DataFlagInlineQoS = 1 << 1
	DataFlagData      = 1 << 2
	DataFlagKey       = 1 << 3
)

// EncodeData serializes a DATA submessage body (without the submessage
// header) in the given byte order.
func EncodeData(order binary.ByteOrder, d Data) []byte {
	buf := make([]byte, 0, 24+len(d.InlineQoS)+len(d.Payload))
	extraFlags := uint16(0)
	octetsToInlineQoS := uint16(16) // readerEntityId(4)+writerEntityId(4)+writerSN(8)

	buf = appendU16(buf, order, extraFlags)
	buf = appendU16(buf, order, octetsToInlineQoS)
	buf = append(buf, d.ReaderEntityID[:]...)
	buf = append(buf, d.WriterEntityID[:]...)
	buf = appendU32(buf, order, uint32(d.WriterSN.High()))
	buf = appendU32(buf, order, d.WriterSN.Low())
	if len(d.InlineQoS) > 0 {
		buf = append(buf, d.InlineQoS...)
	}
	buf = append(buf, d.Payload...)
	return buf
}

// DecodeData parses a DATA submessage body. octetsToInlineQoS MUST be
// honored: fields between it and the payload may be vendor extensions we
// don't understand, so the payload offset is always
// (start-of-readerEntityId) + octetsToInlineQoS (+ inlineQoS length if the
// flag is set).
func DecodeData(order binary.ByteOrder, flags uint8, body []byte) (Data, error) {
	if len(body) < 20 {
		return Data{}, fmt.Errorf("%w: DATA body too short", ErrTruncated)
	}
	var d Data
	octetsToInlineQoS := order.Uint16(body[2:4])
	base := 4
	inlineQoSOffset := base + int(octetsToInlineQoS)
	if inlineQoSOffset > len(body) {
		return Data{}, fmt.Errorf("%w: octetsToInlineQos runs past buffer", ErrTruncated)
	}
	copy(d.ReaderEntityID[:], body[base:base+4])
	copy(d.WriterEntityID[:], body[base+4:base+8])
	high := int32(order.Uint32(body[base+8 : base+12]))
	low := order.Uint32(body[base+12 : base+16])
	d.WriterSN = types.SequenceNumberFromParts(high, low)

	payloadStart := inlineQoSOffset
	if flags&DataFlagInlineQoS != 0 {
		qosLen, err := inlineQoSLength(body[inlineQoSOffset:])
		if err != nil {
			return Data{}, err
		}
		d.InlineQoS = body[inlineQoSOffset : inlineQoSOffset+qosLen]
		payloadStart = inlineQoSOffset + qosLen
	}
	if payloadStart > len(body) {
		return Data{}, fmt.Errorf("%w: inline QoS runs past buffer", ErrTruncated)
	}
	d.Payload = body[payloadStart:]
	return d, nil
}

// inlineQoSLength scans a parameter list for its PIDSentinel terminator
// and returns the byte length including the terminator, without fully
// decoding the parameters (the caller decodes them lazily if needed).
func inlineQoSLength(b []byte) (int, error) {
	pos := 0
	for {
		if pos+4 > len(b) {
			return 0, fmt.Errorf("%w: inline QoS missing sentinel", ErrTruncated)
		}
		id := binary.BigEndian.Uint16(b[pos : pos+2])
		length := binary.BigEndian.Uint16(b[pos+2 : pos+4])
		pos += 4
		if id == 0x0001 { // PIDSentinel
			return pos, nil
		}
		pos += int(length)
	}
}

func appendU16(buf []byte, order binary.ByteOrder, v uint16) []byte {
	var b [2]byte
	order.PutUint16(b[:], v)
	return append(buf, b[:]...)
}

func appendU32(buf []byte, order binary.ByteOrder, v uint32) []byte {
	var b [4]byte
	order.PutUint32(b[:], v)
	return append(buf, b[:]...)
}
