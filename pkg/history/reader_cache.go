package history

import (
	"sync"

	"github.com/hdds-team/hdds/pkg/rtps/types"
)

// ReadCondition filters which samples Read/Take return.
type ReadCondition struct {
	SampleStates   []SampleState
	ViewStates     []ViewState
	InstanceStates []InstanceState
}

// matchesAny reports whether states is empty (no filter) or contains v.
func matchesAny[T comparable](states []T, v T) bool {
	if len(states) == 0 {
		return true
	}
	for _, s := range states {
		if s == v {
			return true
		}
	}
	return false
}

// AnySamples is the zero-value ReadCondition: every sample matches.
var AnySamples = ReadCondition{}

// NotReadSamples matches only samples the application has not yet READ.
var NotReadSamples = ReadCondition{SampleStates: []SampleState{SampleNotRead}}

// ReaderCache is the bounded ring of CachedSamples backing one data reader.
// Size is bounded by depth (KeepLast) or maxSamples (KeepAll); overflow
// always evicts the oldest sample, since a reader has no notion of
// acknowledgement to block on — it is the writer side that owns
// reliability bookkeeping.
type ReaderCache struct {
	mu sync.Mutex

	kind       HistoryKind
	depth      int
	maxSamples int

	changes []CacheChange // ordered ascending by SeqNum
	seen    map[InstanceHandle]bool
}

// NewReaderCache creates a reader sample cache. depth applies when kind is
// KeepLast; maxSamples applies when kind is KeepAll.
func NewReaderCache(kind HistoryKind, depth, maxSamples int) *ReaderCache {
	return &ReaderCache{
		kind:       kind,
		depth:      depth,
		maxSamples: maxSamples,
		seen:       make(map[InstanceHandle]bool),
	}
}

// Store inserts a received sample, assigning ViewState based on whether
// this reader has previously seen the instance. Samples are deduplicated
// by SeqNum: a duplicate delivery (e.g. after a GAP/retransmit race) is a
// no-op and reports stored=false.
func (r *ReaderCache) Store(change CacheChange) (stored bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.changes {
		if c.SeqNum == change.SeqNum {
			return false
		}
	}

	if r.seen[change.InstanceHandle] {
		change.ViewState = ViewNotNew
	} else {
		change.ViewState = ViewNew
		r.seen[change.InstanceHandle] = true
	}
	change.SampleState = SampleNotRead

	r.changes = append(r.changes, change)
	sortBySeq(r.changes)

	limit := r.limit()
	if limit > 0 {
		for len(r.changes) > limit {
			r.changes = r.changes[1:]
		}
	}
	return true
}

// StoreDispose marks an instance disposed, per an unregister/dispose
// notification carried in a DATA submessage's inline QoS.
func (r *ReaderCache) StoreDispose(instance InstanceHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.changes {
		if r.changes[i].InstanceHandle == instance {
			r.changes[i].InstanceState = InstanceDisposed
		}
	}
}

func (r *ReaderCache) limit() int {
	if r.kind == KeepLast {
		return r.depth
	}
	return r.maxSamples
}

// Read returns samples matching cond without consuming them; matched
// samples transition to SampleRead and ViewNotNew.
func (r *ReaderCache) Read(cond ReadCondition) []CacheChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []CacheChange
	for i := range r.changes {
		c := &r.changes[i]
		if !matches(c, cond) {
			continue
		}
		out = append(out, *c)
		c.SampleState = SampleRead
		c.ViewState = ViewNotNew
	}
	return out
}

// Take returns samples matching cond and removes them from the cache.
func (r *ReaderCache) Take(cond ReadCondition) []CacheChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []CacheChange
	remaining := r.changes[:0]
	for i := range r.changes {
		c := r.changes[i]
		if matches(&c, cond) {
			out = append(out, c)
			continue
		}
		remaining = append(remaining, c)
	}
	r.changes = remaining
	return out
}

func matches(c *CacheChange, cond ReadCondition) bool {
	return matchesAny(cond.SampleStates, c.SampleState) &&
		matchesAny(cond.ViewStates, c.ViewState) &&
		matchesAny(cond.InstanceStates, c.InstanceState)
}

func sortBySeq(changes []CacheChange) {
	for i := 1; i < len(changes); i++ {
		for j := i; j > 0 && changes[j].SeqNum < changes[j-1].SeqNum; j-- {
			changes[j], changes[j-1] = changes[j-1], changes[j]
		}
	}
}

// HasNotRead reports whether any retained sample still has SampleNotRead,
// without mutating state, so a reader can decide whether to clear its
// DataAvailable status after a Read call.
func (r *ReaderCache) HasNotRead() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.changes {
		if r.changes[i].SampleState == SampleNotRead {
			return true
		}
	}
	return false
}

// HighestReceived returns the highest sequence number stored, or
// SequenceNumberUnknown if the cache is empty, for ACKNACK construction.
func (r *ReaderCache) HighestReceived() types.SequenceNumber {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.changes) == 0 {
		return types.SequenceNumberUnknown
	}
	return r.changes[len(r.changes)-1].SeqNum
}

// Len returns the number of retained samples.
func (r *ReaderCache) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.changes)
}
