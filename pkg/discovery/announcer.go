package discovery

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/hdds-team/hdds/internal/logger"
)

// Default SPDP announcement cadence, per §4.2: an aggressive burst for the
// first BurstDuration to win the race against vendor stacks that announce
// endpoints immediately after seeing a peer, then a steady background rate.
const (
	DefaultBurstInterval  = 200 * time.Millisecond
	DefaultBurstDuration  = 5 * time.Second
	DefaultSteadyInterval = 3 * time.Second
)

// PayloadFunc builds the current SPDP payload bytes on demand, so the
// announcer always sends a fresh lease/locator snapshot rather than a
// stale one captured at Start.
type PayloadFunc func() []byte

// SendFunc transmits one encoded SPDP DATA submessage to the SPDP
// multicast group (and any configured unicast peers); supplied by the
// participant runtime's transport layer.
type SendFunc func(payload []byte) error

// Announcer drives the periodic SPDP DATA broadcast: an aggressive burst
// at startup followed by a steady background rate, matching the cadence
// vendor stacks expect during the SPDP→SEDP race window.
type Announcer struct {
	burstInterval  time.Duration
	burstDuration  time.Duration
	steadyInterval time.Duration

	payload PayloadFunc
	send    SendFunc

	wg      sync.WaitGroup
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
}

// NewAnnouncer creates an SPDP announcer that uses the package default
// burst and steady cadences.
func NewAnnouncer(payload PayloadFunc, send SendFunc) *Announcer {
	return &Announcer{
		burstInterval:  DefaultBurstInterval,
		burstDuration:  DefaultBurstDuration,
		steadyInterval: DefaultSteadyInterval,
		payload:        payload,
		send:           send,
		stopCh:         make(chan struct{}),
	}
}

// Start begins the announce loop: an immediate send, then burstInterval
// ticks until burstDuration has elapsed, then steadyInterval ticks until
// Stop or ctx is done. Safe to call once.
func (a *Announcer) Start(ctx context.Context) {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return
	}
	a.started = true
	a.mu.Unlock()

	a.wg.Add(1)
	go a.run(ctx)
}

// Stop signals the announce loop to exit and waits for it to finish.
func (a *Announcer) Stop() {
	close(a.stopCh)
	a.wg.Wait()
}

// Reannounce triggers one immediate out-of-cadence send, used by the IP
// mobility ReannounceController when topology changes.
func (a *Announcer) Reannounce() {
	a.emit(context.Background())
}

func (a *Announcer) run(ctx context.Context) {
	defer a.wg.Done()

	a.emit(ctx)

	burstDeadline := time.Now().Add(a.burstDuration)
	ticker := time.NewTicker(a.burstInterval)
	inBurst := true

	for {
		select {
		case <-ctx.Done():
			ticker.Stop()
			return
		case <-a.stopCh:
			ticker.Stop()
			return
		case <-ticker.C:
			a.emit(ctx)
			if inBurst && time.Now().After(burstDeadline) {
				inBurst = false
				ticker.Stop()
				ticker = time.NewTicker(a.steadyInterval)
			}
		}
	}
}

// emit sends one SPDP payload, retrying a transient send failure (e.g. a
// momentarily full socket buffer) a couple of times with a short
// exponential backoff before giving up and logging.
func (a *Announcer) emit(ctx context.Context) {
	payload := a.payload()

	bo := backoff.WithContext(backoff.WithMaxRetries(sendBackoff(), 2), ctx)
	if err := backoff.Retry(func() error { return a.send(payload) }, bo); err != nil {
		logger.WarnCtx(ctx, "spdp announce failed", logger.Err(err))
	}
}

func sendBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = 100 * time.Millisecond
	return b
}
