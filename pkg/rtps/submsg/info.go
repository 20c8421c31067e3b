package submsg

import (
	"encoding/binary"
	"fmt"

	"github.com/hdds-team/hdds/pkg/rtps/guid"
)

// InfoDst names the destination participant prefix of the submessages
// that follow it in the same packet; used to direct a reliability
// submessage at a specific peer when multiple share a multicast group.
type InfoDst struct {
	Prefix guid.Prefix
}

// EncodeInfoDst serializes an INFO_DST body (just the 12-byte prefix).
func EncodeInfoDst(d InfoDst) []byte {
	out := make([]byte, 12)
	copy(out, d.Prefix[:])
	return out
}

// DecodeInfoDst parses an INFO_DST body.
func DecodeInfoDst(body []byte) (InfoDst, error) {
	if len(body) < 12 {
		return InfoDst{}, fmt.Errorf("%w: INFO_DST body too short", ErrTruncated)
	}
	var d InfoDst
	copy(d.Prefix[:], body[:12])
	return d, nil
}

// InfoTS carries a source timestamp for the DATA submessages that follow
// it in the same packet. The participant dispatcher skips INFO_TS, so
// received samples do not take their timestamp from it.
type InfoTS struct {
	Seconds     int32
	Fraction    uint32 // 1/2^32 of a second
	Invalidated bool   // INFO_TS flag bit 1: no timestamp follows
}

// INFO_TS flag bits.
const InfoTSFlagInvalidate = 1 << 1

// EncodeInfoTS serializes an INFO_TS body. When Invalidated is set, the
// caller must also set InfoTSFlagInvalidate on the submessage header and
// this function returns an empty body.
func EncodeInfoTS(order binary.ByteOrder, t InfoTS) []byte {
	if t.Invalidated {
		return nil
	}
	buf := make([]byte, 0, 8)
	buf = appendU32(buf, order, uint32(t.Seconds))
	buf = appendU32(buf, order, t.Fraction)
	return buf
}

// DecodeInfoTS parses an INFO_TS body. If flags has InfoTSFlagInvalidate
// set, body is expected empty and the returned value carries no time.
func DecodeInfoTS(order binary.ByteOrder, flags uint8, body []byte) (InfoTS, error) {
	if flags&InfoTSFlagInvalidate != 0 {
		return InfoTS{Invalidated: true}, nil
	}
	if len(body) < 8 {
		return InfoTS{}, fmt.Errorf("%w: INFO_TS body too short", ErrTruncated)
	}
	return InfoTS{
		Seconds:  int32(order.Uint32(body[0:4])),
		Fraction: order.Uint32(body[4:8]),
	}, nil
}

// InfoSrc identifies the original sender of a relayed/encapsulated packet;
// rarely used outside of RTPS-over-RTPS bridges. DecodeInfoSrc parses it,
// but the participant dispatcher skips INFO_SRC without calling it.
type InfoSrc struct {
	ProtocolVersionMajor uint8
	ProtocolVersionMinor uint8
	VendorID             [2]byte
	Prefix               guid.Prefix
}

// EncodeInfoSrc serializes an INFO_SRC body.
func EncodeInfoSrc(order binary.ByteOrder, s InfoSrc) []byte {
	buf := make([]byte, 0, 20)
	buf = appendU32(buf, order, 0) // unused/reserved
	buf = append(buf, s.ProtocolVersionMajor, s.ProtocolVersionMinor)
	buf = append(buf, s.VendorID[:]...)
	buf = append(buf, s.Prefix[:]...)
	return buf
}

// DecodeInfoSrc parses an INFO_SRC body.
func DecodeInfoSrc(body []byte) (InfoSrc, error) {
	if len(body) < 20 {
		return InfoSrc{}, fmt.Errorf("%w: INFO_SRC body too short", ErrTruncated)
	}
	var s InfoSrc
	s.ProtocolVersionMajor = body[4]
	s.ProtocolVersionMinor = body[5]
	copy(s.VendorID[:], body[6:8])
	copy(s.Prefix[:], body[8:20])
	return s, nil
}

// Pad is the empty padding submessage, used to align subsequent
// submessages or fill out a datagram; it carries no data.
type Pad struct{}

// EncodePad returns an empty body.
func EncodePad() []byte { return nil }
