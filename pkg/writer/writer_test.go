package writer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hdds-team/hdds/pkg/qos"
	"github.com/hdds-team/hdds/pkg/rtps/guid"
	"github.com/hdds-team/hdds/pkg/rtps/submsg"
	"github.com/hdds-team/hdds/pkg/rtps/types"
)

type capturedSend struct {
	dest []types.Locator
	pkt  []byte
}

type captureSender struct {
	mu   sync.Mutex
	sent []capturedSend
}

func (c *captureSender) send(_ context.Context, dest []types.Locator, pkt []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, capturedSend{dest: dest, pkt: pkt})
	return nil
}

func (c *captureSender) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func (c *captureSender) kinds(t *testing.T) []submsg.Kind {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []submsg.Kind
	for _, s := range c.sent {
		subs, err := submsg.SplitPacket(s.pkt[submsg.PacketHeaderLen:])
		if err != nil {
			t.Fatalf("split packet: %v", err)
		}
		for _, sm := range subs {
			out = append(out, sm.Header.Kind)
		}
	}
	return out
}

func newTestWriter(t *testing.T, sender *captureSender, q qos.Snapshot) *Writer {
	t.Helper()
	return New(Config{
		GUID:            guid.New(guid.NewPrefix(), guid.EntityID{0, 0, 1, 2}),
		TopicName:       "Test",
		TypeName:        "TestType",
		QoS:             q,
		Send:            sender.send,
		ProtocolVersion: types.ProtocolVersion24,
		VendorID:        types.VendorHdds,
	})
}

func TestWriteAssignsMonotonicSequence(t *testing.T) {
	sender := &captureSender{}
	w := newTestWriter(t, sender, qos.Default())
	ctx := context.Background()

	seq1, err := w.Write(ctx, nil, []byte("a"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seq2, err := w.Write(ctx, nil, []byte("b"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seq2 != seq1+1 {
		t.Fatalf("expected monotonic sequence, got %d then %d", seq1, seq2)
	}
}

func TestWriteToReliableReaderTracksPendingAndSendsHeartbeat(t *testing.T) {
	sender := &captureSender{}
	q := qos.Default()
	q.Reliability = qos.ReliabilityReliable
	w := newTestWriter(t, sender, q)
	ctx := context.Background()

	remote := guid.New(guid.NewPrefix(), guid.EntityID{0, 0, 1, 7})
	w.AddMatchedReader(remote, nil, qos.Default(), true)

	seq, err := w.Write(ctx, nil, []byte("payload"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rp := w.proxies[remote]
	if _, pending := rp.pending[seq]; !pending {
		t.Fatalf("expected seq %d to be pending for reliable reader", seq)
	}

	kinds := sender.kinds(t)
	var sawData, sawHeartbeat bool
	for _, k := range kinds {
		if k == submsg.KindData {
			sawData = true
		}
		if k == submsg.KindHeartbeat {
			sawHeartbeat = true
		}
	}
	if !sawData {
		t.Fatalf("expected a DATA submessage, got kinds %v", kinds)
	}
	if !sawHeartbeat {
		t.Fatalf("expected an initial HEARTBEAT since nextHeartbeatDue starts zero, got kinds %v", kinds)
	}
}

func TestWriteToBestEffortReaderSkipsPendingTracking(t *testing.T) {
	sender := &captureSender{}
	w := newTestWriter(t, sender, qos.Default())
	ctx := context.Background()

	remote := guid.New(guid.NewPrefix(), guid.EntityID{0, 0, 1, 7})
	w.AddMatchedReader(remote, nil, qos.Default(), false)

	if _, err := w.Write(ctx, nil, []byte("payload")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rp := w.proxies[remote]
	if len(rp.pending) != 0 {
		t.Fatalf("expected no pending tracking for a best-effort reader, got %d", len(rp.pending))
	}
}

func TestWriteFragmentsOversizedPayload(t *testing.T) {
	sender := &captureSender{}
	w := newTestWriter(t, sender, qos.Default())
	ctx := context.Background()

	remote := guid.New(guid.NewPrefix(), guid.EntityID{0, 0, 1, 7})
	w.AddMatchedReader(remote, nil, qos.Default(), false)

	big := make([]byte, MaxSingleDataPayload+1)
	if _, err := w.Write(ctx, nil, big); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	kinds := sender.kinds(t)
	for _, k := range kinds {
		if k != submsg.KindDataFrag {
			t.Fatalf("expected only DATA_FRAG submessages for an oversized payload, saw %s", k)
		}
	}
	expectedFrags := (len(big) + FragmentPayloadSize - 1) / FragmentPayloadSize
	if len(kinds) != expectedFrags {
		t.Fatalf("expected %d DATA_FRAG submessages, got %d", expectedFrags, len(kinds))
	}
}

func TestOnAckNackAdvancesHighestAckAndClearsPending(t *testing.T) {
	sender := &captureSender{}
	q := qos.Default()
	q.Reliability = qos.ReliabilityReliable
	w := newTestWriter(t, sender, q)
	ctx := context.Background()

	remoteGUID := guid.New(guid.NewPrefix(), guid.EntityID{0, 0, 1, 7})
	w.AddMatchedReader(remoteGUID, nil, qos.Default(), true)

	seq1, _ := w.Write(ctx, nil, []byte("one"))
	seq2, _ := w.Write(ctx, nil, []byte("two"))

	ack := submsg.AckNack{
		ReaderEntityID: remoteGUID.Entity,
		WriterEntityID: w.GUID.Entity,
		BitmapBase:     seq2 + 1,
		Missing:        nil,
		Count:          1,
	}
	w.OnAckNack(ctx, remoteGUID.Prefix, ack)

	rp := w.proxies[remoteGUID]
	if rp.highestAck != seq2 {
		t.Fatalf("expected highestAck %d, got %d", seq2, rp.highestAck)
	}
	if len(rp.pending) != 0 {
		t.Fatalf("expected pending set cleared after full ack, got %v", rp.pending)
	}
	_ = seq1
}

func TestOnAckNackRetransmitsMissingRetainedSequence(t *testing.T) {
	sender := &captureSender{}
	q := qos.Default()
	q.Reliability = qos.ReliabilityReliable
	w := newTestWriter(t, sender, q)
	ctx := context.Background()

	remoteGUID := guid.New(guid.NewPrefix(), guid.EntityID{0, 0, 1, 7})
	w.AddMatchedReader(remoteGUID, nil, qos.Default(), true)

	seq1, _ := w.Write(ctx, nil, []byte("one"))
	before := sender.count()

	ack := submsg.AckNack{
		ReaderEntityID: remoteGUID.Entity,
		WriterEntityID: w.GUID.Entity,
		BitmapBase:     seq1,
		Missing:        []int64{int64(seq1)},
		Count:          2,
	}
	w.OnAckNack(ctx, remoteGUID.Prefix, ack)

	if sender.count() <= before {
		t.Fatalf("expected a retransmit send after ACKNACK reported seq %d missing", seq1)
	}
}

func TestOnAckNackEmitsGapForEvictedSequence(t *testing.T) {
	sender := &captureSender{}
	q := qos.Default()
	q.Reliability = qos.ReliabilityReliable
	q.Depth = 1
	w := newTestWriter(t, sender, q)
	ctx := context.Background()

	remoteGUID := guid.New(guid.NewPrefix(), guid.EntityID{0, 0, 1, 7})
	w.AddMatchedReader(remoteGUID, nil, qos.Default(), true)

	seq1, _ := w.Write(ctx, nil, []byte("one"))
	_, _ = w.Write(ctx, nil, []byte("two")) // evicts seq1 under KeepLast(1)

	ack := submsg.AckNack{
		ReaderEntityID: remoteGUID.Entity,
		WriterEntityID: w.GUID.Entity,
		BitmapBase:     seq1,
		Missing:        []int64{int64(seq1)},
		Count:          1,
	}
	w.OnAckNack(ctx, remoteGUID.Prefix, ack)

	kinds := sender.kinds(t)
	var sawGap bool
	for _, k := range kinds {
		if k == submsg.KindGap {
			sawGap = true
		}
	}
	if !sawGap {
		t.Fatalf("expected a GAP for an evicted sequence, got kinds %v", kinds)
	}
}

func TestAddAndRemoveMatchedReader(t *testing.T) {
	sender := &captureSender{}
	w := newTestWriter(t, sender, qos.Default())
	remote := guid.New(guid.NewPrefix(), guid.EntityID{0, 0, 1, 7})

	w.AddMatchedReader(remote, nil, qos.Default(), true)
	if w.MatchedReaderCount() != 1 {
		t.Fatalf("expected 1 matched reader, got %d", w.MatchedReaderCount())
	}
	w.RemoveMatchedReader(remote)
	if w.MatchedReaderCount() != 0 {
		t.Fatalf("expected 0 matched readers after removal, got %d", w.MatchedReaderCount())
	}
}

func TestHeartbeatPacerBacksOffWhenIdle(t *testing.T) {
	sender := &captureSender{}
	q := qos.Default()
	q.Reliability = qos.ReliabilityReliable
	w := newTestWriter(t, sender, q)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	remote := guid.New(guid.NewPrefix(), guid.EntityID{0, 0, 1, 7})
	w.AddMatchedReader(remote, nil, qos.Default(), true)
	if _, err := w.Write(ctx, nil, []byte("x")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w.Start(ctx)
	defer w.Stop()

	// The first HEARTBEAT cycle still reflects the write that happened
	// just before Start; the cadence only backs off once a full period
	// passes with no further writes.
	time.Sleep(250 * time.Millisecond)

	rp := w.proxies[remote]
	w.mu.Lock()
	period := rp.heartbeatPeriod
	w.mu.Unlock()
	if period != IdleHeartbeatPeriod {
		t.Fatalf("expected heartbeat period to back off to idle, got %v", period)
	}
}

func TestKeepAllWriteBlocksThenUnblocksOnAckNack(t *testing.T) {
	sender := &captureSender{}
	q := qos.Default()
	q.Reliability = qos.ReliabilityReliable
	q.History = qos.HistoryKeepAll
	q.ResourceLimits.MaxSamples = 1
	q.MaxBlockingTime = time.Second
	w := newTestWriter(t, sender, q)
	ctx := context.Background()

	remote := guid.New(guid.NewPrefix(), guid.EntityID{0, 0, 1, 7})
	w.AddMatchedReader(remote, nil, qos.Default(), true)

	seq1, err := w.Write(ctx, nil, []byte("one"))
	if err != nil {
		t.Fatalf("unexpected error on first write: %v", err)
	}

	done := make(chan struct{})
	go func() {
		if _, err := w.Write(ctx, nil, []byte("two")); err != nil {
			t.Errorf("unexpected error on blocked write: %v", err)
		}
		close(done)
	}()

	select {
	case <-done:
		t.Fatalf("expected second write to block until seq %d is acked", seq1)
	case <-time.After(30 * time.Millisecond):
	}

	w.OnAckNack(ctx, remote.Prefix, submsg.AckNack{
		ReaderEntityID: remote.Entity,
		WriterEntityID: w.GUID.Entity,
		BitmapBase:     seq1 + 1,
		Count:          1,
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected blocked write to unblock after ACKNACK acknowledged seq %d", seq1)
	}
}

func TestLivelinessTickerInvokesAssertFunc(t *testing.T) {
	sender := &captureSender{}
	q := qos.Default()
	q.LivelinessLease = 20 * time.Millisecond
	w := newTestWriter(t, sender, q)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	asserted := 0
	w.SetLivelinessAssertFunc(func(_ context.Context, _ *Writer) {
		mu.Lock()
		asserted++
		mu.Unlock()
	})

	w.Start(ctx)
	defer w.Stop()

	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	got := asserted
	mu.Unlock()
	if got == 0 {
		t.Fatalf("expected at least one liveliness assertion")
	}
}
