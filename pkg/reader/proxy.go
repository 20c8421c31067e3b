package reader

import (
	"time"

	"github.com/hdds-team/hdds/pkg/qos"
	"github.com/hdds-team/hdds/pkg/rtps/guid"
	"github.com/hdds-team/hdds/pkg/rtps/types"
)

// WriterProxy tracks one matched writer's reception state: the highest
// sequence seen and the set of sequences still missing, driving the
// reader's ACKNACK scheduler. Every field is guarded by the owning
// Reader's mutex.
type WriterProxy struct {
	GUID     guid.GUID
	Locators []types.Locator
	Reliable bool
	QoS      qos.Snapshot

	highestReceived types.SequenceNumber
	missing         map[types.SequenceNumber]struct{}

	unsolicitedSince time.Time // zero when no unsolicited NACK is pending
	count            int32
}

func newWriterProxy(g guid.GUID, reliable bool, snapshot qos.Snapshot, locators []types.Locator) *WriterProxy {
	return &WriterProxy{
		GUID:            g,
		Locators:        locators,
		Reliable:        reliable,
		QoS:             snapshot,
		highestReceived: types.SequenceNumberUnknown,
		missing:         make(map[types.SequenceNumber]struct{}),
	}
}

// observe records that seq has arrived: it closes any missing-set gap
// below seq and raises highestReceived, adding every newly-opened gap
// sequence to the missing set.
func (wp *WriterProxy) observe(seq types.SequenceNumber) {
	delete(wp.missing, seq)
	if wp.highestReceived == types.SequenceNumberUnknown {
		wp.highestReceived = seq
		return
	}
	if seq <= wp.highestReceived {
		return
	}
	for s := wp.highestReceived + 1; s < seq; s++ {
		wp.missing[s] = struct{}{}
	}
	wp.highestReceived = seq
}

// ackNackBase returns the bitmapBase an ACKNACK should report: the lowest
// sequence still outstanding, which is the smallest entry in the missing
// set when one exists (a hole below highestReceived), or highestReceived+1
// when there is no hole and the reader is simply caught up.
func (wp *WriterProxy) ackNackBase() types.SequenceNumber {
	base := wp.highestReceived + 1
	for seq := range wp.missing {
		if seq < base {
			base = seq
		}
	}
	return base
}

// missingSequences returns the sorted, absolute sequence numbers still
// outstanding. bitmap.Encode (and a real decoder on the wire) subtracts
// BitmapBase itself, so these must not be pre-relativized here.
func (wp *WriterProxy) missingSequences() []int64 {
	if len(wp.missing) == 0 {
		return nil
	}
	out := make([]int64, 0, len(wp.missing))
	for seq := range wp.missing {
		out = append(out, int64(seq))
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
