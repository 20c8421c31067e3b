package history

import (
	"testing"

	"github.com/hdds-team/hdds/pkg/rtps/types"
)

func change(seq int64, instance InstanceHandle) CacheChange {
	return CacheChange{SeqNum: types.SequenceNumber(seq), InstanceHandle: instance, Payload: []byte("x")}
}

func TestReaderCacheStoreDedupesBySeqNum(t *testing.T) {
	r := NewReaderCache(KeepLast, 10, 0)
	if !r.Store(change(1, ZeroInstanceHandle)) {
		t.Fatal("expected first store to succeed")
	}
	if r.Store(change(1, ZeroInstanceHandle)) {
		t.Fatal("expected duplicate seq_num to be rejected")
	}
	if r.Len() != 1 {
		t.Fatalf("expected length 1, got %d", r.Len())
	}
}

func TestReaderCacheViewStateNewThenNotNew(t *testing.T) {
	r := NewReaderCache(KeepLast, 10, 0)
	var instance InstanceHandle
	instance[0] = 0x42

	r.Store(change(1, instance))
	r.Store(change(2, instance))

	all := r.Read(AnySamples)
	if len(all) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(all))
	}
	if all[0].ViewState != ViewNew {
		t.Fatalf("expected first sample of a new instance to be ViewNew")
	}
	if all[1].ViewState != ViewNotNew {
		t.Fatalf("expected second sample of the same instance to be ViewNotNew")
	}
}

func TestReaderCacheReadDoesNotConsume(t *testing.T) {
	r := NewReaderCache(KeepLast, 10, 0)
	r.Store(change(1, ZeroInstanceHandle))

	r.Read(AnySamples)
	if r.Len() != 1 {
		t.Fatalf("expected Read to leave sample in cache, len=%d", r.Len())
	}

	notRead := r.Read(NotReadSamples)
	if len(notRead) != 0 {
		t.Fatalf("expected no NotRead samples after a Read pass, got %d", len(notRead))
	}
}

func TestReaderCacheTakeConsumes(t *testing.T) {
	r := NewReaderCache(KeepLast, 10, 0)
	r.Store(change(1, ZeroInstanceHandle))
	r.Store(change(2, ZeroInstanceHandle))

	taken := r.Take(AnySamples)
	if len(taken) != 2 {
		t.Fatalf("expected to take 2 samples, got %d", len(taken))
	}
	if r.Len() != 0 {
		t.Fatalf("expected cache empty after Take, len=%d", r.Len())
	}
}

func TestReaderCacheKeepLastBoundsDepth(t *testing.T) {
	r := NewReaderCache(KeepLast, 2, 0)
	for i := int64(1); i <= 5; i++ {
		r.Store(change(i, ZeroInstanceHandle))
	}
	if r.Len() != 2 {
		t.Fatalf("expected depth-bounded length 2, got %d", r.Len())
	}
	if r.HighestReceived() != types.SequenceNumber(5) {
		t.Fatalf("expected highest received seq 5, got %v", r.HighestReceived())
	}
}

func TestReaderCacheStoreDisposeMarksInstanceState(t *testing.T) {
	r := NewReaderCache(KeepLast, 10, 0)
	var instance InstanceHandle
	instance[0] = 7
	r.Store(change(1, instance))
	r.StoreDispose(instance)

	all := r.Read(AnySamples)
	if all[0].InstanceState != InstanceDisposed {
		t.Fatalf("expected InstanceDisposed after StoreDispose, got %v", all[0].InstanceState)
	}
}
