package submsg

import "fmt"

// RawSubmessage is a decoded submessage header plus its unparsed body,
// ready for kind-specific decoding by the caller (discovery, writer, or
// reader engine, depending on entity-id demultiplexing).
type RawSubmessage struct {
	Header Header
	Body   []byte
}

// SplitPacket walks the submessages following a packet header, returning
// each one's header and body slice. An octetsToNext of 0 means the
// submessage extends to the end of the datagram (used by the last
// submessage in a packet, typically DATA). Unknown kinds are still
// returned — the caller decides whether to log-and-skip.
func SplitPacket(body []byte) ([]RawSubmessage, error) {
	var out []RawSubmessage
	pos := 0
	for pos < len(body) {
		if len(body)-pos < 4 {
			return out, fmt.Errorf("%w: trailing bytes too short for a submessage header", ErrTruncated)
		}
		hdr, err := DecodeHeader(body[pos:])
		if err != nil {
			return out, err
		}
		pos += 4
		var smBody []byte
		if hdr.OctetsToNext == 0 {
			smBody = body[pos:]
			pos = len(body)
		} else {
			end := pos + int(hdr.OctetsToNext)
			if end > len(body) {
				return out, fmt.Errorf("%w: submessage %s octetsToNext runs past buffer", ErrTruncated, hdr.Kind)
			}
			smBody = body[pos:end]
			pos = end
		}
		out = append(out, RawSubmessage{Header: hdr, Body: smBody})
	}
	return out, nil
}

// AssemblePacket concatenates a packet header and a sequence of
// already-encoded submessages (each including its own 4-byte header) into
// one wire-ready buffer.
func AssemblePacket(header PacketHeader, submessages [][]byte) []byte {
	hdr := header.Encode()
	total := len(hdr)
	for _, s := range submessages {
		total += len(s)
	}
	out := make([]byte, 0, total)
	out = append(out, hdr[:]...)
	for _, s := range submessages {
		out = append(out, s...)
	}
	return out
}

// EncodeSubmessage wraps a body with its 4-byte header. octetsToNext is
// computed from the body length; pass forceSentinel=true for the final
// submessage in a datagram (DATA payloads with unknown trailing length)
// to emit octetsToNext=0 instead.
func EncodeSubmessage(kind Kind, flags uint8, body []byte, forceSentinel bool) []byte {
	octets := uint16(len(body))
	if forceSentinel {
		octets = 0
	}
	h := Header{Kind: kind, Flags: flags, OctetsToNext: octets}
	hdr := h.Encode()
	out := make([]byte, 0, 4+len(body))
	out = append(out, hdr[:]...)
	out = append(out, body...)
	return out
}
