package submsg

import (
	"encoding/binary"
	"fmt"

	"github.com/hdds-team/hdds/pkg/rtps/bitmap"
	"github.com/hdds-team/hdds/pkg/rtps/guid"
	"github.com/hdds-team/hdds/pkg/rtps/types"
)

// Heartbeat announces the range of sequence numbers a writer currently
// holds: readerEntityId, writerEntityId, firstSN, lastSN, count, and the
// final/liveliness flag bits carried in the submessage header flags.
type Heartbeat struct {
	ReaderEntityID guid.EntityID
	WriterEntityID guid.EntityID
	FirstSN        types.SequenceNumber
	LastSN         types.SequenceNumber
	Count          int32
}

// HEARTBEAT flag bits.
const (
	HeartbeatFlagFinal      = 1 << 1
	HeartbeatFlagLiveliness = 1 << 2
)

// EncodeHeartbeat serializes a HEARTBEAT body.
func EncodeHeartbeat(order binary.ByteOrder, h Heartbeat) []byte {
	buf := make([]byte, 0, 28)
	buf = append(buf, h.ReaderEntityID[:]...)
	buf = append(buf, h.WriterEntityID[:]...)
	buf = appendU32(buf, order, uint32(h.FirstSN.High()))
	buf = appendU32(buf, order, h.FirstSN.Low())
	buf = appendU32(buf, order, uint32(h.LastSN.High()))
	buf = appendU32(buf, order, h.LastSN.Low())
	buf = appendU32(buf, order, uint32(h.Count))
	return buf
}

// DecodeHeartbeat parses a HEARTBEAT body.
func DecodeHeartbeat(order binary.ByteOrder, body []byte) (Heartbeat, error) {
	if len(body) < 28 {
		return Heartbeat{}, fmt.Errorf("%w: HEARTBEAT body too short", ErrTruncated)
	}
	var h Heartbeat
	copy(h.ReaderEntityID[:], body[0:4])
	copy(h.WriterEntityID[:], body[4:8])
	h.FirstSN = types.SequenceNumberFromParts(int32(order.Uint32(body[8:12])), order.Uint32(body[12:16]))
	h.LastSN = types.SequenceNumberFromParts(int32(order.Uint32(body[16:20])), order.Uint32(body[20:24]))
	h.Count = int32(order.Uint32(body[24:28]))
	return h, nil
}

// AckNack reports what a reader has received and what it is still
// missing: readerEntityId, writerEntityId, a sequence-number bitmap
// (bitmapBase + set of missing offsets), and a monotonic count.
type AckNack struct {
	ReaderEntityID guid.EntityID
	WriterEntityID guid.EntityID
	BitmapBase     types.SequenceNumber
	Missing        []int64
	Count          int32
}

// ACKNACK flag bits.
const AckNackFlagFinal = 1 << 1

// EncodeAckNack serializes an ACKNACK body.
func EncodeAckNack(order binary.ByteOrder, a AckNack) []byte {
	numBits, words := bitmap.Encode(int64(a.BitmapBase), a.Missing)
	buf := make([]byte, 0, 24+len(words)*4)
	buf = append(buf, a.ReaderEntityID[:]...)
	buf = append(buf, a.WriterEntityID[:]...)
	buf = appendU32(buf, order, uint32(a.BitmapBase.High()))
	buf = appendU32(buf, order, a.BitmapBase.Low())
	buf = appendU32(buf, order, numBits)
	for _, w := range words {
		buf = appendU32(buf, order, w)
	}
	buf = appendU32(buf, order, uint32(a.Count))
	return buf
}

// DecodeAckNack parses an ACKNACK body.
func DecodeAckNack(order binary.ByteOrder, body []byte) (AckNack, error) {
	if len(body) < 20 {
		return AckNack{}, fmt.Errorf("%w: ACKNACK body too short", ErrTruncated)
	}
	var a AckNack
	copy(a.ReaderEntityID[:], body[0:4])
	copy(a.WriterEntityID[:], body[4:8])
	a.BitmapBase = types.SequenceNumberFromParts(int32(order.Uint32(body[8:12])), order.Uint32(body[12:16]))
	numBits := order.Uint32(body[16:20])
	wordCount := bitmap.WordCount(numBits)
	need := 20 + wordCount*4
	if len(body) < need+4 {
		return AckNack{}, fmt.Errorf("%w: ACKNACK bitmap/count truncated", ErrTruncated)
	}
	words := make([]uint32, wordCount)
	for i := 0; i < wordCount; i++ {
		words[i] = order.Uint32(body[20+i*4 : 24+i*4])
	}
	set := bitmap.Decode(int64(a.BitmapBase), numBits, words)
	a.Missing = set.Missing
	a.Count = int32(order.Uint32(body[need : need+4]))
	return a, nil
}

// Gap announces that a sequence range will never be delivered: gapStart is
// the first undeliverable seq, gapList is a bitmap of further
// undeliverable seqs beyond a contiguous run.
type Gap struct {
	ReaderEntityID guid.EntityID
	WriterEntityID guid.EntityID
	GapStart       types.SequenceNumber
	GapListBase    types.SequenceNumber
	GapList        []int64
}

// EncodeGap serializes a GAP body.
func EncodeGap(order binary.ByteOrder, g Gap) []byte {
	numBits, words := bitmap.Encode(int64(g.GapListBase), g.GapList)
	buf := make([]byte, 0, 32+len(words)*4)
	buf = append(buf, g.ReaderEntityID[:]...)
	buf = append(buf, g.WriterEntityID[:]...)
	buf = appendU32(buf, order, uint32(g.GapStart.High()))
	buf = appendU32(buf, order, g.GapStart.Low())
	buf = appendU32(buf, order, uint32(g.GapListBase.High()))
	buf = appendU32(buf, order, g.GapListBase.Low())
	buf = appendU32(buf, order, numBits)
	for _, w := range words {
		buf = appendU32(buf, order, w)
	}
	return buf
}

// DecodeGap parses a GAP body.
func DecodeGap(order binary.ByteOrder, body []byte) (Gap, error) {
	if len(body) < 28 {
		return Gap{}, fmt.Errorf("%w: GAP body too short", ErrTruncated)
	}
	var g Gap
	copy(g.ReaderEntityID[:], body[0:4])
	copy(g.WriterEntityID[:], body[4:8])
	g.GapStart = types.SequenceNumberFromParts(int32(order.Uint32(body[8:12])), order.Uint32(body[12:16]))
	g.GapListBase = types.SequenceNumberFromParts(int32(order.Uint32(body[16:20])), order.Uint32(body[20:24]))
	numBits := order.Uint32(body[24:28])
	wordCount := bitmap.WordCount(numBits)
	if len(body) < 28+wordCount*4 {
		return Gap{}, fmt.Errorf("%w: GAP bitmap truncated", ErrTruncated)
	}
	words := make([]uint32, wordCount)
	for i := 0; i < wordCount; i++ {
		words[i] = order.Uint32(body[28+i*4 : 32+i*4])
	}
	set := bitmap.Decode(int64(g.GapListBase), numBits, words)
	g.GapList = set.Missing
	return g, nil
}
