package discovery

import (
	"context"
	"sync"
	"time"

	"github.com/hdds-team/hdds/internal/logger"
)

// DefaultLeaseCheckInterval is how often the lease checker scans the
// registry for expired participants.
const DefaultLeaseCheckInterval = 1 * time.Second

// LeaveFunc is invoked once per participant that reaches StateGone,
// letting the participant runtime emit ParticipantLeave and tear down
// matched endpoint state.
type LeaveFunc func(p *RemoteParticipant)

// LeaseChecker periodically scans the registry for participants whose
// lease has lapsed, advancing them Operational/PdpKnown → Expiring → Gone
// per §4.2, and invokes onLeave exactly once per participant that reaches
// Gone.
type LeaseChecker struct {
	registry *Registry
	interval time.Duration
	onLeave  LeaveFunc

	wg      sync.WaitGroup
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
}

// NewLeaseChecker creates a lease checker. A zero interval falls back to
// DefaultLeaseCheckInterval.
func NewLeaseChecker(registry *Registry, interval time.Duration, onLeave LeaveFunc) *LeaseChecker {
	if interval <= 0 {
		interval = DefaultLeaseCheckInterval
	}
	return &LeaseChecker{
		registry: registry,
		interval: interval,
		onLeave:  onLeave,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic scan. Safe to call once.
func (l *LeaseChecker) Start(ctx context.Context) {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return
	}
	l.started = true
	l.mu.Unlock()

	l.wg.Add(1)
	go l.run(ctx)
}

// Stop signals the scan loop to exit and waits for it to finish.
func (l *LeaseChecker) Stop() {
	close(l.stopCh)
	l.wg.Wait()
}

func (l *LeaseChecker) run(ctx context.Context) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stopCh:
			return
		case <-ticker.C:
			gone := l.registry.ExpireParticipants(time.Now())
			for _, p := range gone {
				logger.InfoCtx(ctx, "participant lease expired", logger.ParticipantGUIDStr(p.Prefix.HexPrefix()))
				if l.onLeave != nil {
					l.onLeave(p)
				}
			}
		}
	}
}
