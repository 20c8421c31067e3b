package slab

import "testing"

func TestGetReturnsRequestedLength(t *testing.T) {
	p := NewPool()
	h := p.Get(100)
	if len(h.Bytes()) != 100 {
		t.Fatalf("expected length 100, got %d", len(h.Bytes()))
	}
	h.Release()
}

func TestGetSelectsSmallestSufficientClass(t *testing.T) {
	p := NewPool()
	h := p.Get(10)
	if cap(h.Bytes()) != ClassTiny {
		t.Fatalf("expected ClassTiny (64) capacity, got %d", cap(h.Bytes()))
	}
	h.Release()
}

func TestGetOversizedBypassesPool(t *testing.T) {
	p := NewPool()
	h := p.Get(ClassLarge + 1)
	if len(h.Bytes()) != ClassLarge+1 {
		t.Fatalf("expected exact oversized length, got %d", len(h.Bytes()))
	}
	h.Release() // must be a safe no-op
}

func TestZeroHandleReleaseIsNoop(t *testing.T) {
	var h Handle
	h.Release() // must not panic
}

func TestReuseAfterRelease(t *testing.T) {
	p := NewPool()
	h1 := p.Get(50)
	h1.Release()
	h2 := p.Get(50)
	if len(h2.Bytes()) != 50 {
		t.Fatalf("expected reused buffer of length 50, got %d", len(h2.Bytes()))
	}
	h2.Release()
}
