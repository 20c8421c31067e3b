package mobility

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingAnnouncer struct {
	count atomic.Int32
}

func (c *countingAnnouncer) Reannounce() {
	c.count.Add(1)
}

func TestReannounceControllerFiresFullBurst(t *testing.T) {
	announcer := &countingAnnouncer{}
	c := NewReannounceController(announcer)
	c.delays = []time.Duration{0, 5 * time.Millisecond, 10 * time.Millisecond}
	c.minBurstInterval = 0

	c.Trigger(context.Background())
	c.Wait()

	if got := announcer.count.Load(); got != 3 {
		t.Fatalf("expected 3 Reannounce calls, got %d", got)
	}
}

func TestReannounceControllerRateLimitsBackToBackTriggers(t *testing.T) {
	announcer := &countingAnnouncer{}
	c := NewReannounceController(announcer)
	c.delays = []time.Duration{0}
	c.minBurstInterval = time.Minute

	c.Trigger(context.Background())
	c.Wait()
	c.Trigger(context.Background())
	c.Wait()

	if got := announcer.count.Load(); got != 1 {
		t.Fatalf("expected second Trigger to be rate-limited, got %d calls", got)
	}
}

func TestReannounceControllerHandleEventIgnoresUpdated(t *testing.T) {
	announcer := &countingAnnouncer{}
	c := NewReannounceController(announcer)
	c.delays = []time.Duration{0}
	c.minBurstInterval = 0

	c.HandleEvent(Event{Kind: Updated})
	c.Wait()

	if got := announcer.count.Load(); got != 0 {
		t.Fatalf("expected Updated events to not trigger a burst, got %d calls", got)
	}
}
