// Package slab implements a fixed-size-class buffer pool for RTPS payload
// allocation. A buffer is owned by whatever holds its Handle; handles flow
// from the codec through the reader/writer caches to the application and
// are released exactly once.
//
// Design rationale: four size classes (64 B, 512 B, 4 KiB, 64 KiB) balance
// memory efficiency against reuse for the range of CDR-encoded sample
// sizes this core actually sees — small control/discovery payloads through
// near-MTU user data. Payloads larger than the top class are allocated
// directly and not pooled, mirroring the bypass behavior for oversized
// requests seen in the ambient buffer-pool pattern this package is based
// on.
package slab

import "sync"

// Size classes, in bytes.
const (
	ClassTiny   = 64
	ClassSmall  = 512
	ClassMedium = 4 << 10
	ClassLarge  = 64 << 10
)

var classSizes = [...]int{ClassTiny, ClassSmall, ClassMedium, ClassLarge}

// Pool manages four sync.Pool tiers keyed by size class, plus a fallback
// path for oversized allocations.
type Pool struct {
	pools [4]sync.Pool
}

// NewPool creates a ready-to-use slab pool.
func NewPool() *Pool {
	p := &Pool{}
	for i, size := range classSizes {
		size := size
		p.pools[i].New = func() any {
			buf := make([]byte, size)
			return &buf
		}
	}
	return p
}

// classFor returns the index of the smallest class that can hold n bytes,
// or -1 if n exceeds every class.
func classFor(n int) int {
	for i, size := range classSizes {
		if n <= size {
			return i
		}
	}
	return -1
}

// Handle is a released-exactly-once reference to a pooled buffer. The zero
// Handle refers to no buffer and Release is a no-op on it.
type Handle struct {
	pool  *Pool
	class int // -1 for unpooled (oversized) allocations
	buf   []byte
}

// Bytes returns the buffer slice, truncated to the length requested at
// Get time.
func (h Handle) Bytes() []byte {
	return h.buf
}

// Release returns the buffer to its pool. Safe to call on a zero Handle.
// Calling it twice on the same Handle double-frees into sync.Pool — callers
// must track ownership (codec → cache → application) and release exactly
// once, same as the contract in the package doc.
func (h Handle) Release() {
	if h.pool == nil || h.class < 0 {
		return
	}
	full := h.buf[:cap(h.buf)]
	h.pool.pools[h.class].Put(&full)
}

// Get returns a Handle wrapping a buffer of at least n bytes, sliced down
// to exactly n. Buffers larger than ClassLarge are allocated directly and
// are not returned to any pool on Release.
func (p *Pool) Get(n int) Handle {
	class := classFor(n)
	if class < 0 {
		return Handle{class: -1, buf: make([]byte, n)}
	}
	ptr := p.pools[class].Get().(*[]byte)
	buf := (*ptr)[:n]
	return Handle{pool: p, class: class, buf: buf}
}
