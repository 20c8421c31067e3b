package submsg

import (
	"encoding/binary"
	"fmt"

	"github.com/hdds-team/hdds/pkg/rtps/bitmap"
	"github.com/hdds-team/hdds/pkg/rtps/guid"
	"github.com/hdds-team/hdds/pkg/rtps/types"
)

// DataFrag carries one fragment of a payload too large for a single DATA
// submessage.
type DataFrag struct {
	ReaderEntityID  guid.EntityID
	WriterEntityID  guid.EntityID
	WriterSN        types.SequenceNumber
	FragmentStartNum uint32 // 1-based
	FragmentsInSubmessage uint16
	FragmentSize    uint16
	SampleSize      uint32
	InlineQoS       []byte
	Payload         []byte
}

// DATA_FRAG flag bits.
const (
	DataFragFlagInlineQoS = 1 << 1
	DataFragFlagKey       = 1 << 2
)

// EncodeDataFrag serializes a DATA_FRAG body.
func EncodeDataFrag(order binary.ByteOrder, d DataFrag) []byte {
	buf := make([]byte, 0, 32+len(d.InlineQoS)+len(d.Payload))
	buf = append(buf, d.ReaderEntityID[:]...)
	buf = append(buf, d.WriterEntityID[:]...)
	buf = appendU32(buf, order, uint32(d.WriterSN.High()))
	buf = appendU32(buf, order, d.WriterSN.Low())
	buf = appendU32(buf, order, d.FragmentStartNum)
	buf = appendU16(buf, order, d.FragmentsInSubmessage)
	buf = appendU16(buf, order, d.FragmentSize)
	buf = appendU32(buf, order, d.SampleSize)
	if len(d.InlineQoS) > 0 {
		buf = append(buf, d.InlineQoS...)
	}
	buf = append(buf, d.Payload...)
	return buf
}

// DecodeDataFrag parses a DATA_FRAG body.
func DecodeDataFrag(order binary.ByteOrder, flags uint8, body []byte) (DataFrag, error) {
	if len(body) < 24 {
		return DataFrag{}, fmt.Errorf("%w: DATA_FRAG body too short", ErrTruncated)
	}
	var d DataFrag
	copy(d.ReaderEntityID[:], body[0:4])
	copy(d.WriterEntityID[:], body[4:8])
	d.WriterSN = types.SequenceNumberFromParts(int32(order.Uint32(body[8:12])), order.Uint32(body[12:16]))
	d.FragmentStartNum = order.Uint32(body[16:20])
	d.FragmentsInSubmessage = order.Uint16(body[20:22])
	d.FragmentSize = order.Uint16(body[22:24])
	if len(body) < 28 {
		return DataFrag{}, fmt.Errorf("%w: DATA_FRAG missing sampleSize", ErrTruncated)
	}
	d.SampleSize = order.Uint32(body[24:28])
	rest := body[28:]
	payloadStart := 0
	if flags&DataFragFlagInlineQoS != 0 {
		qosLen, err := inlineQoSLength(rest)
		if err != nil {
			return DataFrag{}, err
		}
		d.InlineQoS = rest[:qosLen]
		payloadStart = qosLen
	}
	d.Payload = rest[payloadStart:]
	return d, nil
}

// HeartbeatFrag tells a reader how many fragments of a still-in-progress
// sample the writer currently holds.
type HeartbeatFrag struct {
	ReaderEntityID  guid.EntityID
	WriterEntityID  guid.EntityID
	WriterSN        types.SequenceNumber
	LastFragmentNum uint32
	Count           int32
}

// EncodeHeartbeatFrag serializes a HEARTBEAT_FRAG body.
func EncodeHeartbeatFrag(order binary.ByteOrder, h HeartbeatFrag) []byte {
	buf := make([]byte, 0, 24)
	buf = append(buf, h.ReaderEntityID[:]...)
	buf = append(buf, h.WriterEntityID[:]...)
	buf = appendU32(buf, order, uint32(h.WriterSN.High()))
	buf = appendU32(buf, order, h.WriterSN.Low())
	buf = appendU32(buf, order, h.LastFragmentNum)
	buf = appendU32(buf, order, uint32(h.Count))
	return buf
}

// DecodeHeartbeatFrag parses a HEARTBEAT_FRAG body.
func DecodeHeartbeatFrag(order binary.ByteOrder, body []byte) (HeartbeatFrag, error) {
	if len(body) < 24 {
		return HeartbeatFrag{}, fmt.Errorf("%w: HEARTBEAT_FRAG body too short", ErrTruncated)
	}
	var h HeartbeatFrag
	copy(h.ReaderEntityID[:], body[0:4])
	copy(h.WriterEntityID[:], body[4:8])
	h.WriterSN = types.SequenceNumberFromParts(int32(order.Uint32(body[8:12])), order.Uint32(body[12:16]))
	h.LastFragmentNum = order.Uint32(body[16:20])
	h.Count = int32(order.Uint32(body[20:24]))
	return h, nil
}

// NackFrag requests retransmission of specific missing fragments of one
// sample, analogous to ACKNACK but fragment-granular.
type NackFrag struct {
	ReaderEntityID guid.EntityID
	WriterEntityID guid.EntityID
	WriterSN       types.SequenceNumber
	FragmentBase   uint32
	Missing        []int64
	Count          int32
}

// EncodeNackFrag serializes a NACK_FRAG body.
func EncodeNackFrag(order binary.ByteOrder, n NackFrag) []byte {
	numBits, words := bitmap.Encode(int64(n.FragmentBase), n.Missing)
	buf := make([]byte, 0, 24+len(words)*4)
	buf = append(buf, n.ReaderEntityID[:]...)
	buf = append(buf, n.WriterEntityID[:]...)
	buf = appendU32(buf, order, uint32(n.WriterSN.High()))
	buf = appendU32(buf, order, n.WriterSN.Low())
	buf = appendU32(buf, order, n.FragmentBase)
	buf = appendU32(buf, order, numBits)
	for _, w := range words {
		buf = appendU32(buf, order, w)
	}
	buf = appendU32(buf, order, uint32(n.Count))
	return buf
}

// DecodeNackFrag parses a NACK_FRAG body.
func DecodeNackFrag(order binary.ByteOrder, body []byte) (NackFrag, error) {
	if len(body) < 24 {
		return NackFrag{}, fmt.Errorf("%w: NACK_FRAG body too short", ErrTruncated)
	}
	var n NackFrag
	copy(n.ReaderEntityID[:], body[0:4])
	copy(n.WriterEntityID[:], body[4:8])
	n.WriterSN = types.SequenceNumberFromParts(int32(order.Uint32(body[8:12])), order.Uint32(body[12:16]))
	n.FragmentBase = order.Uint32(body[16:20])
	numBits := order.Uint32(body[20:24])
	wordCount := bitmap.WordCount(numBits)
	need := 24 + wordCount*4
	if len(body) < need+4 {
		return NackFrag{}, fmt.Errorf("%w: NACK_FRAG bitmap/count truncated", ErrTruncated)
	}
	words := make([]uint32, wordCount)
	for i := 0; i < wordCount; i++ {
		words[i] = order.Uint32(body[24+i*4 : 28+i*4])
	}
	set := bitmap.Decode(int64(n.FragmentBase), numBits, words)
	n.Missing = set.Missing
	n.Count = int32(order.Uint32(body[need : need+4]))
	return n, nil
}
