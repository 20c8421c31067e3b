// Package fragment reassembles payloads split across DATA_FRAG
// submessages and lists pending reassemblies that still miss fragments
// (StaleSequences). No caller turns that list into NACK_FRAG requests, so
// no NACK_FRAG is sent.
package fragment

import (
	"sync"
	"time"

	"github.com/hdds-team/hdds/pkg/rtps/guid"
	"github.com/hdds-team/hdds/pkg/rtps/types"
)

// DefaultMaxPending is the default cap on concurrently-reassembling
// sequences before the oldest is LRU-evicted.
const DefaultMaxPending = 256

// DefaultTimeout is the default age after which a pending sequence is
// expired and dropped without delivery.
const DefaultTimeout = 500 * time.Millisecond

// key identifies one reassembling sample.
type key struct {
	writer guid.GUID
	seq    types.SequenceNumber
}

// entry tracks one in-progress reassembly.
type entry struct {
	total       uint32
	fragments   map[uint32][]byte
	firstSeen   time.Time
	lastUpdated time.Time
	sourceAddr  string
}

// Buffer reassembles fragmented samples for every writer a participant has
// matched. Configuration is fixed at construction; callers share one
// Buffer per participant.
type Buffer struct {
	mu         sync.Mutex
	entries    map[key]*entry
	maxPending int
	timeout    time.Duration
}

// New creates a fragment reassembly buffer. Zero values fall back to
// DefaultMaxPending/DefaultTimeout.
func New(maxPending int, timeout time.Duration) *Buffer {
	if maxPending <= 0 {
		maxPending = DefaultMaxPending
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Buffer{
		entries:    make(map[key]*entry),
		maxPending: maxPending,
		timeout:    timeout,
	}
}

// Insert upserts one fragment. When the fragment set becomes complete
// (len(fragments) == total) the entry is removed and the concatenated
// payload returned. Duplicate frag_num writes overwrite, since payloads
// for a given (writer, seq, frag_num) are assumed identical.
func (b *Buffer) Insert(writer guid.GUID, seq types.SequenceNumber, fragNum, total uint32, data []byte, sourceAddr string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := key{writer: writer, seq: seq}
	e, ok := b.entries[k]
	if !ok {
		if len(b.entries) >= b.maxPending {
			b.evictOldestLocked()
		}
		now := time.Now()
		e = &entry{
			total:     total,
			fragments: make(map[uint32][]byte, total),
			firstSeen: now,
		}
		b.entries[k] = e
	}
	e.fragments[fragNum] = data
	e.lastUpdated = time.Now()
	e.sourceAddr = sourceAddr

	if uint32(len(e.fragments)) < e.total {
		return nil
	}

	payload := reassemble(e)
	delete(b.entries, k)
	return payload
}

func reassemble(e *entry) []byte {
	size := 0
	for i := uint32(1); i <= e.total; i++ {
		size += len(e.fragments[i])
	}
	out := make([]byte, 0, size)
	for i := uint32(1); i <= e.total; i++ {
		out = append(out, e.fragments[i]...)
	}
	return out
}

// evictOldestLocked removes the entry with the oldest lastUpdated time.
// Caller must hold b.mu.
func (b *Buffer) evictOldestLocked() {
	var oldestKey key
	var oldestTime time.Time
	first := true
	for k, e := range b.entries {
		if first || e.lastUpdated.Before(oldestTime) {
			oldestKey = k
			oldestTime = e.lastUpdated
			first = false
		}
	}
	if !first {
		delete(b.entries, oldestKey)
	}
}

// Expire removes every sequence whose firstSeen predates now-timeout.
func (b *Buffer) Expire() {
	b.mu.Lock()
	defer b.mu.Unlock()
	cutoff := time.Now().Add(-b.timeout)
	for k, e := range b.entries {
		if e.firstSeen.Before(cutoff) {
			delete(b.entries, k)
		}
	}
}

// MissingFragments lists the fragment numbers not yet received for a
// pending sequence, along with its declared total. The bool return is
// false if no reassembly is pending for (writer, seq).
func (b *Buffer) MissingFragments(writer guid.GUID, seq types.SequenceNumber) ([]uint32, uint32, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[key{writer: writer, seq: seq}]
	if !ok {
		return nil, 0, false
	}
	var missing []uint32
	for i := uint32(1); i <= e.total; i++ {
		if _, have := e.fragments[i]; !have {
			missing = append(missing, i)
		}
	}
	return missing, e.total, true
}

// StaleSequence describes one pending reassembly older than the minAge
// passed to StaleSequences.
type StaleSequence struct {
	Writer        guid.GUID
	Seq           types.SequenceNumber
	MissingCount  int
	Total         uint32
	Age           time.Duration
	SourceAddr    string
}

// StaleSequences lists every pending reassembly older than minAge.
func (b *Buffer) StaleSequences(minAge time.Duration) []StaleSequence {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	var out []StaleSequence
	for k, e := range b.entries {
		age := now.Sub(e.firstSeen)
		if age < minAge {
			continue
		}
		out = append(out, StaleSequence{
			Writer:       k.writer,
			Seq:          k.seq,
			MissingCount: int(e.total) - len(e.fragments),
			Total:        e.total,
			Age:          age,
			SourceAddr:   e.sourceAddr,
		})
	}
	return out
}

// Pending returns the number of in-progress reassemblies, for metrics.
func (b *Buffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
