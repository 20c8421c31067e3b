package reader

import (
	"context"
	"sync"
	"time"

	"github.com/hdds-team/hdds/pkg/history"
)

// deadlineWatchdogTick bounds how promptly a missed deadline is detected;
// actual detection latency is at most this value beyond QoS.Deadline.
const deadlineWatchdogTick = 20 * time.Millisecond

// deadlineWatchdog tracks, per instance, the last time a sample arrived,
// and reports RequestedDeadlineMissed when QoS.Deadline.period elapses
// with nothing new.
type deadlineWatchdog struct {
	r        *Reader
	period   time.Duration
	onMissed DeadlineMissedFunc

	mu       sync.Mutex
	lastSeen map[history.InstanceHandle]time.Time
	missed   map[history.InstanceHandle]int

	wg      sync.WaitGroup
	stopCh  chan struct{}
	started bool
	startMu sync.Mutex
}

func newDeadlineWatchdog(r *Reader, onMissed DeadlineMissedFunc) *deadlineWatchdog {
	return &deadlineWatchdog{
		r:        r,
		period:   r.QoS.Deadline,
		onMissed: onMissed,
		lastSeen: make(map[history.InstanceHandle]time.Time),
		missed:   make(map[history.InstanceHandle]int),
		stopCh:   make(chan struct{}),
	}
}

// notify records that a sample arrived for instance, resetting its
// deadline timer.
func (d *deadlineWatchdog) notify(instance history.InstanceHandle) {
	d.mu.Lock()
	d.lastSeen[instance] = time.Now()
	d.mu.Unlock()
}

// MissedCount returns how many times RequestedDeadlineMissed has fired for
// instance, for the application's status getter.
func (d *deadlineWatchdog) MissedCount(instance history.InstanceHandle) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.missed[instance]
}

// Start begins the watchdog tick loop. Safe to call once.
func (d *deadlineWatchdog) Start(ctx context.Context) {
	d.startMu.Lock()
	if d.started {
		d.startMu.Unlock()
		return
	}
	d.started = true
	d.startMu.Unlock()

	d.wg.Add(1)
	go d.run(ctx)
}

// Stop signals the watchdog to exit and waits for it to drain.
func (d *deadlineWatchdog) Stop() {
	d.startMu.Lock()
	if !d.started {
		d.startMu.Unlock()
		return
	}
	d.startMu.Unlock()
	close(d.stopCh)
	d.wg.Wait()
}

func (d *deadlineWatchdog) run(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(deadlineWatchdogTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stopCh:
			return
		case <-ticker.C:
			d.tick()
		}
	}
}

func (d *deadlineWatchdog) tick() {
	now := time.Now()

	d.mu.Lock()
	var overdue []history.InstanceHandle
	for instance, last := range d.lastSeen {
		if now.Sub(last) >= d.period {
			overdue = append(overdue, instance)
		}
	}
	for _, instance := range overdue {
		d.missed[instance]++
		// Reset the timer so a still-silent instance re-fires once per
		// period rather than on every tick.
		d.lastSeen[instance] = now
	}
	d.mu.Unlock()

	if len(overdue) > 0 {
		d.r.Status.Set(StatusDeadlineMissed)
	}
	for _, instance := range overdue {
		if d.onMissed != nil {
			d.onMissed(instance)
		}
	}
}
