package mobility

import (
	"sync"
	"time"

	"github.com/hdds-team/hdds/internal/logger"
	"github.com/hdds-team/hdds/pkg/rtps/types"
)

// LocatorState is where one tracked Locator sits in its lifecycle.
type LocatorState int

const (
	Active LocatorState = iota
	HoldDown
	Expired
)

func (s LocatorState) String() string {
	switch s {
	case Active:
		return "active"
	case HoldDown:
		return "hold_down"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// DefaultHoldDownDuration is how long a removed address is still
// advertised after going away, so in-flight traffic can still land.
const DefaultHoldDownDuration = 30 * time.Second

type trackedLocator struct {
	state      LocatorState
	enteredAt  time.Time
	holdExpiry time.Time
}

// LocatorTracker maintains Active/HoldDown/Expired state for every Locator
// a participant has ever advertised, per §4.7.
type LocatorTracker struct {
	holdDown time.Duration

	mu       sync.Mutex
	entries  map[types.Locator]*trackedLocator
}

// NewLocatorTracker creates a tracker. A zero holdDown falls back to
// DefaultHoldDownDuration.
func NewLocatorTracker(holdDown time.Duration) *LocatorTracker {
	if holdDown <= 0 {
		holdDown = DefaultHoldDownDuration
	}
	return &LocatorTracker{
		holdDown: holdDown,
		entries:  make(map[types.Locator]*trackedLocator),
	}
}

// Add marks l Active, whether newly seen or returning from HoldDown.
func (t *LocatorTracker) Add(l types.Locator) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[l] = &trackedLocator{state: Active, enteredAt: time.Now()}
}

// Remove transitions l from Active to HoldDown; it stays advertised (see
// Advertised, which returns it too) until the hold-down period elapses.
func (t *LocatorTracker) Remove(l types.Locator) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[l]
	if !ok || e.state != Active {
		return
	}
	e.state = HoldDown
	now := time.Now()
	e.enteredAt = now
	e.holdExpiry = now.Add(t.holdDown)
}

// Sweep transitions every HoldDown entry whose hold-down period has
// elapsed to Expired, logging the transition. Intended to be called on
// the mobility poller's tick.
func (t *LocatorTracker) Sweep() {
	now := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	for l, e := range t.entries {
		if e.state == HoldDown && now.After(e.holdExpiry) {
			e.state = Expired
			logger.Info("locator hold-down expired", logger.LocatorAddr(l.IP().String()), logger.LocatorPort(int(l.Port)))
		}
	}
}

// Advertised returns every Locator still worth including in an SPDP
// payload: Active and HoldDown, but not Expired.
func (t *LocatorTracker) Advertised() []types.Locator {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]types.Locator, 0, len(t.entries))
	for l, e := range t.entries {
		if e.state != Expired {
			out = append(out, l)
		}
	}
	return out
}

// State reports l's current lifecycle state, or Expired if never seen.
func (t *LocatorTracker) State(l types.Locator) LocatorState {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[l]
	if !ok {
		return Expired
	}
	return e.state
}

// Prune permanently forgets every Expired entry, bounding memory growth
// across a long-running participant's interface churn.
func (t *LocatorTracker) Prune() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for l, e := range t.entries {
		if e.state == Expired {
			delete(t.entries, l)
		}
	}
}
