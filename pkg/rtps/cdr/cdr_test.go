package cdr

import (
	"encoding/binary"
	"testing"
)

func TestWriterReaderPrimitivesRoundTrip(t *testing.T) {
	w := NewWriter(binary.LittleEndian)
	w.WriteU8(7)
	w.WriteU16(0x1234)
	w.WriteU32(0xdeadbeef)
	w.WriteI64(-42)
	w.WriteF64(3.5)
	w.WriteBool(true)
	w.WriteString("hello")

	r := NewReader(w.Bytes(), true)
	if v, err := r.ReadU8(); err != nil || v != 7 {
		t.Fatalf("ReadU8: %v %v", v, err)
	}
	if v, err := r.ReadU16(); err != nil || v != 0x1234 {
		t.Fatalf("ReadU16: %v %v", v, err)
	}
	if v, err := r.ReadU32(); err != nil || v != 0xdeadbeef {
		t.Fatalf("ReadU32: %v %v", v, err)
	}
	if v, err := r.ReadI64(); err != nil || v != -42 {
		t.Fatalf("ReadI64: %v %v", v, err)
	}
	if v, err := r.ReadF64(); err != nil || v != 3.5 {
		t.Fatalf("ReadF64: %v %v", v, err)
	}
	if v, err := r.ReadBool(); err != nil || !v {
		t.Fatalf("ReadBool: %v %v", v, err)
	}
	if v, err := r.ReadString(); err != nil || v != "hello" {
		t.Fatalf("ReadString: %v %v", v, err)
	}
}

func TestReaderTruncatedData(t *testing.T) {
	r := NewReader([]byte{0x01}, false)
	if _, err := r.ReadU32(); err == nil {
		t.Fatalf("expected truncated-data error reading past buffer end")
	}
}

func TestEncapsulationHeaderRoundTrip(t *testing.T) {
	h := EncapsulationHeader{Representation: ReprPL_CDR_LE, Options: 0}
	b := h.Encode()
	decoded, err := DecodeEncapsulationHeader(b[:])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Representation != ReprPL_CDR_LE {
		t.Fatalf("representation mismatch: %#x", decoded.Representation)
	}
}

func TestEncapsulationHeaderUnknownRepresentation(t *testing.T) {
	_, err := DecodeEncapsulationHeader([]byte{0xff, 0xff, 0, 0})
	if err == nil {
		t.Fatalf("expected error for unknown representation id")
	}
}

func TestParameterListRoundTrip(t *testing.T) {
	var pl ParameterList
	pl.AddString(PIDTopicName, "HelloWorldTopic", LittleEndian)
	pl.AddString(PIDTypeName, "HelloWorld::Msg", LittleEndian)

	encoded := pl.Encode(LittleEndian)
	decoded, err := DecodeParameterList(encoded, true)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(decoded.Params))
	}
	topicParam, ok := decoded.Get(PIDTopicName)
	if !ok {
		t.Fatalf("expected PIDTopicName present")
	}
	r := NewReader(topicParam.Value, true)
	name, err := r.ReadString()
	if err != nil || name != "HelloWorldTopic" {
		t.Fatalf("topic name mismatch: %q %v", name, err)
	}
}

func TestParameterListMustUnderstandBit(t *testing.T) {
	p := ParameterID(0x9001)
	if !p.MustUnderstand() {
		t.Fatalf("expected must-understand bit set for %#04x", p)
	}
	if PIDTopicName.MustUnderstand() {
		t.Fatalf("PIDTopicName should not carry the must-understand bit")
	}
}
