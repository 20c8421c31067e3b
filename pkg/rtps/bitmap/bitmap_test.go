package bitmap

import (
	"reflect"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	base := int64(5)
	missing := []int64{5, 7, 9}

	numBits, words := Encode(base, missing)
	set := Decode(base, numBits, words)

	if !reflect.DeepEqual(set.Missing, missing) {
		t.Fatalf("round trip mismatch: got %v want %v", set.Missing, missing)
	}
}

func TestEncodeEmpty(t *testing.T) {
	numBits, words := Encode(1, nil)
	if numBits != 0 || words != nil {
		t.Fatalf("expected empty bitmap for empty missing set")
	}
}

func TestMSBFirstOrdering(t *testing.T) {
	// bit 0 (offset 0 from base) must land at bit 31 of word 0.
	_, words := Encode(1, []int64{1})
	if len(words) != 1 {
		t.Fatalf("expected 1 word, got %d", len(words))
	}
	if words[0] != 1<<31 {
		t.Fatalf("expected MSB set, got %#x", words[0])
	}
}

func TestWordCountRoundsUp(t *testing.T) {
	if WordCount(1) != 1 {
		t.Fatalf("expected 1 word for 1 bit")
	}
	if WordCount(32) != 1 {
		t.Fatalf("expected 1 word for 32 bits")
	}
	if WordCount(33) != 2 {
		t.Fatalf("expected 2 words for 33 bits")
	}
}

func TestDecodeBijective(t *testing.T) {
	base := int64(100)
	missing := []int64{100, 105, 131}
	numBits, words := Encode(base, missing)
	again := Decode(base, numBits, words)
	if !reflect.DeepEqual(again.Missing, missing) {
		t.Fatalf("decode(encode(x)) != x: got %v want %v", again.Missing, missing)
	}
}
