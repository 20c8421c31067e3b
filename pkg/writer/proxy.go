// Package writer implements the writer engine: the write path from an
// application-supplied sample through history cache insertion, HEARTBEAT
// scheduling, ACKNACK-driven retransmission, and GAP emission for every
// matched reader.
package writer

import (
	"sync"
	"time"

	"github.com/hdds-team/hdds/pkg/congestion"
	"github.com/hdds-team/hdds/pkg/qos"
	"github.com/hdds-team/hdds/pkg/rtps/guid"
	"github.com/hdds-team/hdds/pkg/rtps/types"
)

// DefaultHeartbeatPeriod is the initial per-reader HEARTBEAT cadence while
// the writer is actively producing samples.
const DefaultHeartbeatPeriod = 100 * time.Millisecond

// IdleHeartbeatPeriod is the cadence a matched reader's HEARTBEAT backs off
// to once the writer has been quiet.
const IdleHeartbeatPeriod = time.Second

// ReaderProxy tracks one matched reader's acknowledgement state: what it
// has acked, what is still outstanding, and when its next HEARTBEAT is due.
// Every field is guarded by the owning Writer's mutex; ReaderProxy has no
// lock of its own.
type ReaderProxy struct {
	GUID      guid.GUID
	Locators  []types.Locator
	Reliable  bool
	QoS       qos.Snapshot

	highestAck types.SequenceNumber // highest seq this reader has acked
	pending    map[types.SequenceNumber]struct{}
	nackCount  int32

	nextHeartbeatDue time.Time
	heartbeatPeriod  time.Duration
	dirty            bool // a sample was written since the last HEARTBEAT

	controller *congestion.Controller
}

func newReaderProxy(g guid.GUID, reliable bool, snapshot qos.Snapshot, locators []types.Locator) *ReaderProxy {
	return &ReaderProxy{
		GUID:            g,
		Locators:        locators,
		Reliable:        reliable,
		QoS:             snapshot,
		highestAck:      0,
		pending:         make(map[types.SequenceNumber]struct{}),
		heartbeatPeriod: DefaultHeartbeatPeriod,
		controller:      congestion.NewController(0, 0, 0, 0, 0),
	}
}

// lowestUnacked reports the lowest sequence this one reader still needs;
// aggregateAckTracker combines it across every matched reader to satisfy
// history.AckTracker.
func (rp *ReaderProxy) lowestUnacked() (types.SequenceNumber, bool) {
	if !rp.Reliable {
		return 0, false
	}
	lowest := types.SequenceNumber(-1)
	for seq := range rp.pending {
		if lowest == -1 || seq < lowest {
			lowest = seq
		}
	}
	if lowest == -1 {
		// Nothing pending: the reader has acked everything through
		// highestAck, so that is the lowest retained boundary.
		return rp.highestAck + 1, true
	}
	return lowest, true
}

// aggregateAckTracker implements history.AckTracker over every matched
// reliable reader proxy, returning the minimum lowest-unacked sequence
// across all of them so the history cache never evicts a change a
// reliable reader still needs.
type aggregateAckTracker struct {
	mu      *sync.Mutex
	proxies *map[guid.GUID]*ReaderProxy
}

func (t aggregateAckTracker) LowestUnacked() (types.SequenceNumber, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var lowest types.SequenceNumber
	found := false
	for _, rp := range *t.proxies {
		seq, ok := rp.lowestUnacked()
		if !ok {
			continue
		}
		if !found || seq < lowest {
			lowest = seq
			found = true
		}
	}
	return lowest, found
}
