package mobility

import (
	"testing"
	"time"

	"github.com/hdds-team/hdds/pkg/rtps/types"
)

func testLocator() types.Locator {
	return types.LocatorFromUDP4([]byte{192, 168, 1, 2}, 7411)
}

func TestLocatorTrackerAddIsActive(t *testing.T) {
	tr := NewLocatorTracker(0)
	l := testLocator()
	tr.Add(l)
	if tr.State(l) != Active {
		t.Fatalf("expected Active, got %v", tr.State(l))
	}
	advertised := tr.Advertised()
	if len(advertised) != 1 || advertised[0] != l {
		t.Fatalf("expected locator to be advertised")
	}
}

func TestLocatorTrackerRemoveEntersHoldDownAndStaysAdvertised(t *testing.T) {
	tr := NewLocatorTracker(30 * time.Second)
	l := testLocator()
	tr.Add(l)
	tr.Remove(l)

	if tr.State(l) != HoldDown {
		t.Fatalf("expected HoldDown, got %v", tr.State(l))
	}
	advertised := tr.Advertised()
	if len(advertised) != 1 {
		t.Fatalf("expected hold-down locator to still be advertised, got %d", len(advertised))
	}
}

func TestLocatorTrackerSweepExpiresAfterHoldDown(t *testing.T) {
	tr := NewLocatorTracker(10 * time.Millisecond)
	l := testLocator()
	tr.Add(l)
	tr.Remove(l)

	time.Sleep(30 * time.Millisecond)
	tr.Sweep()

	if tr.State(l) != Expired {
		t.Fatalf("expected Expired after hold-down elapses, got %v", tr.State(l))
	}
	advertised := tr.Advertised()
	if len(advertised) != 0 {
		t.Fatalf("expected expired locator to no longer be advertised, got %d", len(advertised))
	}
}

func TestLocatorTrackerPruneRemovesExpiredEntries(t *testing.T) {
	tr := NewLocatorTracker(10 * time.Millisecond)
	l := testLocator()
	tr.Add(l)
	tr.Remove(l)
	time.Sleep(30 * time.Millisecond)
	tr.Sweep()
	tr.Prune()

	if tr.State(l) != Expired {
		t.Fatalf("expected State to report Expired (via not-found) after Prune, got %v", tr.State(l))
	}
	if len(tr.entries) != 0 {
		t.Fatalf("expected entries map empty after Prune, got %d", len(tr.entries))
	}
}

func TestLocatorTrackerAddAfterHoldDownReturnsToActive(t *testing.T) {
	tr := NewLocatorTracker(30 * time.Second)
	l := testLocator()
	tr.Add(l)
	tr.Remove(l)
	tr.Add(l)
	if tr.State(l) != Active {
		t.Fatalf("expected Active after re-Add, got %v", tr.State(l))
	}
}
