package submsg

import (
	"encoding/binary"
	"testing"

	"github.com/hdds-team/hdds/pkg/rtps/guid"
	"github.com/hdds-team/hdds/pkg/rtps/types"
)

func TestPacketHeaderRoundTrip(t *testing.T) {
	h := PacketHeader{
		Version:  types.ProtocolVersion24,
		VendorID: types.VendorHdds,
		Prefix:   guid.NewPrefix(),
	}
	enc := h.Encode()
	decoded, err := DecodePacketHeader(enc[:])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Prefix != h.Prefix {
		t.Fatalf("prefix mismatch")
	}
	if decoded.VendorID != h.VendorID {
		t.Fatalf("vendor mismatch")
	}
}

func TestPacketHeaderRejectsBadMagic(t *testing.T) {
	buf := make([]byte, PacketHeaderLen)
	copy(buf, []byte("XXXX"))
	if _, err := DecodePacketHeader(buf); err != ErrBadMagic {
		t.Fatalf("expected ErrBadMagic, got %v", err)
	}
}

func TestDataRoundTrip(t *testing.T) {
	d := Data{
		ReaderEntityID: guid.EntityIDUnknown,
		WriterEntityID: guid.EntityIDSPDPWriter,
		WriterSN:       types.SequenceNumber(42),
		Payload:        []byte("payload-bytes"),
	}
	body := EncodeData(binary.LittleEndian, d)
	decoded, err := DecodeData(binary.LittleEndian, 0, body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.WriterSN != d.WriterSN {
		t.Fatalf("seq mismatch: got %d want %d", decoded.WriterSN, d.WriterSN)
	}
	if string(decoded.Payload) != string(d.Payload) {
		t.Fatalf("payload mismatch: got %q want %q", decoded.Payload, d.Payload)
	}
}

func TestHeartbeatRoundTrip(t *testing.T) {
	h := Heartbeat{
		WriterEntityID: guid.EntityIDSEDPPubWriter,
		FirstSN:        1,
		LastSN:         10,
		Count:          3,
	}
	body := EncodeHeartbeat(binary.BigEndian, h)
	decoded, err := DecodeHeartbeat(binary.BigEndian, body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.FirstSN != 1 || decoded.LastSN != 10 || decoded.Count != 3 {
		t.Fatalf("heartbeat mismatch: %+v", decoded)
	}
}

func TestAckNackRoundTrip(t *testing.T) {
	a := AckNack{
		BitmapBase: 5,
		Missing:    []int64{5, 7},
		Count:      1,
	}
	body := EncodeAckNack(binary.LittleEndian, a)
	decoded, err := DecodeAckNack(binary.LittleEndian, body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded.Missing) != 2 || decoded.Missing[0] != 5 || decoded.Missing[1] != 7 {
		t.Fatalf("missing set mismatch: %v", decoded.Missing)
	}
}

func TestGapRoundTrip(t *testing.T) {
	g := Gap{
		GapStart:    3,
		GapListBase: 3,
		GapList:     []int64{3, 4},
	}
	body := EncodeGap(binary.BigEndian, g)
	decoded, err := DecodeGap(binary.BigEndian, body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.GapStart != 3 {
		t.Fatalf("gap start mismatch: %d", decoded.GapStart)
	}
}

func TestDataFragRoundTrip(t *testing.T) {
	d := DataFrag{
		WriterSN:             7,
		FragmentStartNum:     1,
		FragmentsInSubmessage: 1,
		FragmentSize:         1250,
		SampleSize:           10000,
		Payload:              []byte("fragment-bytes"),
	}
	body := EncodeDataFrag(binary.LittleEndian, d)
	decoded, err := DecodeDataFrag(binary.LittleEndian, 0, body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.SampleSize != 10000 || decoded.FragmentStartNum != 1 {
		t.Fatalf("mismatch: %+v", decoded)
	}
	if string(decoded.Payload) != "fragment-bytes" {
		t.Fatalf("payload mismatch: %q", decoded.Payload)
	}
}

func TestNackFragRoundTrip(t *testing.T) {
	n := NackFrag{
		WriterSN:     7,
		FragmentBase: 1,
		Missing:      []int64{1, 2, 3},
		Count:        2,
	}
	body := EncodeNackFrag(binary.LittleEndian, n)
	decoded, err := DecodeNackFrag(binary.LittleEndian, body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded.Missing) != 3 {
		t.Fatalf("missing set mismatch: %v", decoded.Missing)
	}
}

func TestSplitPacketHonorsSentinel(t *testing.T) {
	sub1 := EncodeSubmessage(KindHeartbeat, 0, make([]byte, 28), false)
	sub2 := EncodeSubmessage(KindData, 0, []byte("trailing-data"), true)
	body := append(sub1, sub2...)

	subs, err := SplitPacket(body)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected 2 submessages, got %d", len(subs))
	}
	if subs[1].Header.Kind != KindData {
		t.Fatalf("expected second submessage to be DATA")
	}
	if string(subs[1].Body) != "trailing-data" {
		t.Fatalf("sentinel-terminated body mismatch: %q", subs[1].Body)
	}
}

func TestInfoTSInvalidateRoundTrip(t *testing.T) {
	decoded, err := DecodeInfoTS(binary.LittleEndian, InfoTSFlagInvalidate, nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.Invalidated {
		t.Fatalf("expected invalidated timestamp")
	}
}
