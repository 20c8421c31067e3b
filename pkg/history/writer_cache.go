package history

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/hdds-team/hdds/pkg/rtps/types"
)

// ErrOutOfResources is returned when a KeepAll writer history is full, every
// reliable reader still needs the oldest sample, and max_blocking_time has
// elapsed without room freeing up.
var ErrOutOfResources = errors.New("history: out of resources")

// HistoryKind selects the writer/reader QoS History policy.
type HistoryKind int

const (
	KeepLast HistoryKind = iota
	KeepAll
)

// AckTracker reports the lowest sequence number any matched reliable reader
// still has not acknowledged, so the writer cache knows which changes it
// must retain for KeepAll overflow decisions. A writer engine with no
// reliable readers returns ok=false and the cache never blocks.
type AckTracker interface {
	LowestUnacked() (seq types.SequenceNumber, ok bool)
}

// WriterCache is the ordered seq→CacheChange store backing one data
// writer. Size is bounded by depth (KeepLast) or maxSamples (KeepAll);
// KeepAll overflow blocks the writer up to maxBlockingTime before failing
// with ErrOutOfResources, per the writer's Reliability.max_blocking_time.
type WriterCache struct {
	mu sync.Mutex

	kind            HistoryKind
	depth           int
	maxSamples      int
	maxBlockingTime time.Duration

	changes []CacheChange // ordered ascending by SeqNum
	nextSeq types.SequenceNumber

	acks AckTracker

	// roomCh is closed and replaced whenever the cache shrinks, waking
	// blocked Add calls.
	roomCh chan struct{}
}

// NewWriterCache creates a writer history cache. depth applies when kind is
// KeepLast; maxSamples applies when kind is KeepAll. acks may be nil, in
// which case KeepAll overflow always evicts rather than blocking.
func NewWriterCache(kind HistoryKind, depth, maxSamples int, maxBlockingTime time.Duration, acks AckTracker) *WriterCache {
	return &WriterCache{
		kind:            kind,
		depth:           depth,
		maxSamples:      maxSamples,
		maxBlockingTime: maxBlockingTime,
		nextSeq:         1,
		acks:            acks,
		roomCh:          make(chan struct{}),
	}
}

// Add appends a new CacheChange, assigning it the next sequence number, and
// returns the assigned sequence. For KeepLast histories the oldest change is
// evicted once depth is exceeded, unconditionally. For KeepAll histories,
// once maxSamples is reached, Add blocks until a reliable reader has
// acknowledged the oldest change or maxBlockingTime elapses, whichever is
// first; if no AckTracker is installed the oldest change is evicted instead
// of blocking.
func (w *WriterCache) Add(ctx context.Context, instance InstanceHandle, payload []byte, sourceTimestampNS int64) (types.SequenceNumber, error) {
	w.mu.Lock()
	seq := w.nextSeq
	w.nextSeq++

	if w.kind == KeepAll && w.maxSamples > 0 && len(w.changes) >= w.maxSamples {
		if err := w.waitForRoomLocked(ctx); err != nil {
			w.mu.Unlock()
			return 0, err
		}
	}

	w.changes = append(w.changes, CacheChange{
		SeqNum:            seq,
		SourceTimestampNS: sourceTimestampNS,
		InstanceHandle:    instance,
		Payload:           payload,
		InstanceState:     InstanceAlive,
	})

	if w.kind == KeepLast && w.depth > 0 {
		for len(w.changes) > w.depth {
			w.changes = w.changes[1:]
		}
	}
	w.mu.Unlock()
	return seq, nil
}

// waitForRoomLocked evicts the oldest fully-acknowledged change, or blocks
// until one becomes acknowledged or evictable. Caller holds w.mu on entry
// and must still hold it on every return path; the lock is released only
// while actually waiting.
func (w *WriterCache) waitForRoomLocked(ctx context.Context) error {
	deadline := time.Time{}
	if w.maxBlockingTime > 0 {
		deadline = time.Now().Add(w.maxBlockingTime)
	}

	for {
		if w.acks == nil {
			// No reliability tracking installed: evict unconditionally
			// rather than block forever.
			w.changes = w.changes[1:]
			return nil
		}
		if w.evictAcknowledgedLocked() {
			return nil
		}

		wait := w.roomCh
		var timeout <-chan time.Time
		var timer *time.Timer
		if !deadline.IsZero() {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return ErrOutOfResources
			}
			timer = time.NewTimer(remaining)
			timeout = timer.C
		}

		w.mu.Unlock()
		select {
		case <-wait:
		case <-timeout:
			w.mu.Lock()
			return ErrOutOfResources
		case <-ctx.Done():
			w.mu.Lock()
			return ctx.Err()
		}
		if timer != nil {
			timer.Stop()
		}
		w.mu.Lock()
	}
}

// evictAcknowledgedLocked removes the oldest change if every reliable
// reader has already acknowledged it, reporting whether it did so.
func (w *WriterCache) evictAcknowledgedLocked() bool {
	if len(w.changes) == 0 {
		return true
	}
	lowest, ok := w.acks.LowestUnacked()
	if !ok || w.changes[0].SeqNum < lowest {
		w.changes = w.changes[1:]
		return true
	}
	return false
}

// NotifyAcked must be called whenever LowestUnacked advances, so blocked
// Add calls can re-check for room.
func (w *WriterCache) NotifyAcked() {
	w.mu.Lock()
	close(w.roomCh)
	w.roomCh = make(chan struct{})
	w.mu.Unlock()
}

// Since returns every change with SeqNum >= seq, ascending, for building a
// retransmit or catch-up response.
func (w *WriterCache) Since(seq types.SequenceNumber) []CacheChange {
	w.mu.Lock()
	defer w.mu.Unlock()
	idx := sort.Search(len(w.changes), func(i int) bool { return w.changes[i].SeqNum >= seq })
	out := make([]CacheChange, len(w.changes)-idx)
	copy(out, w.changes[idx:])
	return out
}

// Get returns the change with the given sequence number, if still retained.
func (w *WriterCache) Get(seq types.SequenceNumber) (CacheChange, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	idx := sort.Search(len(w.changes), func(i int) bool { return w.changes[i].SeqNum >= seq })
	if idx < len(w.changes) && w.changes[idx].SeqNum == seq {
		return w.changes[idx], true
	}
	return CacheChange{}, false
}

// SeqNumRange returns (first, last) retained sequence numbers, or
// (SequenceNumberUnknown, SequenceNumberUnknown) if empty, for HEARTBEAT
// construction.
func (w *WriterCache) SeqNumRange() (types.SequenceNumber, types.SequenceNumber) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.changes) == 0 {
		return types.SequenceNumberUnknown, types.SequenceNumberUnknown
	}
	return w.changes[0].SeqNum, w.changes[len(w.changes)-1].SeqNum
}

// Len returns the number of retained changes.
func (w *WriterCache) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.changes)
}
