package congestion

import (
	"context"
	"sync"
	"time"

	"github.com/hdds-team/hdds/internal/logger"
)

// send is one pending payload waiting for pacer budget.
type send struct {
	bytes int
	done  chan struct{}
}

// Pacer releases queued sends at the Controller's current rate, ticking
// on a fixed interval and topping up a byte budget each tick. Each Submit
// blocks its caller until its bytes are released. Submissions pass through a
// buffered channel into the tick loop's pending list; that list itself has
// no size limit.
type Pacer struct {
	controller *Controller
	tickPeriod time.Duration
	queue      chan send

	wg      sync.WaitGroup
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
}

// DefaultTickPeriod is how often the pacer tops up its send budget.
const DefaultTickPeriod = 20 * time.Millisecond

// NewPacer creates a pacer bound to the given controller. queueSize is the
// buffer size of the submission channel; it does not limit how many sends
// the tick loop holds as pending.
func NewPacer(controller *Controller, queueSize int) *Pacer {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Pacer{
		controller: controller,
		tickPeriod: DefaultTickPeriod,
		queue:      make(chan send, queueSize),
		stopCh:     make(chan struct{}),
	}
}

// Start begins the pacer's background tick loop. Safe to call once.
func (p *Pacer) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	p.wg.Add(1)
	go p.run(ctx)
}

// Stop signals the pacer to exit and waits for the tick loop to drain.
func (p *Pacer) Stop() {
	close(p.stopCh)
	p.wg.Wait()
}

// Submit blocks until nBytes worth of rate budget has been released for
// this send, or ctx is done.
func (p *Pacer) Submit(ctx context.Context, nBytes int) error {
	s := send{bytes: nBytes, done: make(chan struct{})}
	select {
	case p.queue <- s:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pacer) run(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.tickPeriod)
	defer ticker.Stop()

	var budget float64
	var pending []send

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case s := <-p.queue:
			pending = append(pending, s)
		case <-ticker.C:
			rate := p.controller.Rate()
			budget += rate * p.tickPeriod.Seconds()

			i := 0
			for ; i < len(pending); i++ {
				if float64(pending[i].bytes) > budget {
					break
				}
				budget -= float64(pending[i].bytes)
				close(pending[i].done)
			}
			if i > 0 {
				pending = pending[i:]
			}
			if len(pending) > 0 {
				logger.DebugCtx(ctx, "congestion pacer backlog", logger.Count(uint32(len(pending))), logger.RateBps(rate))
			}
		}
	}
}
