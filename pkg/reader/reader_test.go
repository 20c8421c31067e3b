package reader

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/hdds-team/hdds/pkg/history"
	"github.com/hdds-team/hdds/pkg/qos"
	"github.com/hdds-team/hdds/pkg/rtps/guid"
	"github.com/hdds-team/hdds/pkg/rtps/submsg"
	"github.com/hdds-team/hdds/pkg/rtps/types"
)

type captureSender struct {
	mu   sync.Mutex
	sent []capturedSend
}

type capturedSend struct {
	dest []types.Locator
	pkt  []byte
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

func (c *captureSender) lastAckNack(t *testing.T) submsg.AckNack {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		t.Fatalf("expected at least one send")
	}
	last := c.sent[len(c.sent)-1]
	subs, err := submsg.SplitPacket(last.pkt[submsg.PacketHeaderLen:])
	if err != nil {
		t.Fatalf("split packet: %v", err)
	}
	for _, sm := range subs {
		if sm.Header.Kind == submsg.KindAckNack {
			ack, err := submsg.DecodeAckNack(binary.LittleEndian, sm.Body)
			if err != nil {
				t.Fatalf("decode acknack: %v", err)
			}
			return ack
		}
	}
	t.Fatalf("no ACKNACK submessage found")
	return submsg.AckNack{}
}

func newTestReader(t *testing.T, sender *captureSender, q qos.Snapshot) *Reader {
	t.Helper()
	return New(Config{
		GUID:            guid.New(guid.NewPrefix(), guid.EntityID{0, 0, 1, 7}),
		TopicName:       "Test",
		TypeName:        "TestType",
		QoS:             q,
		Send:            sender.send,
		ProtocolVersion: types.ProtocolVersion24,
		VendorID:        types.VendorHdds,
	})
}

func TestOnDataStoresSampleAndRaisesDataAvailable(t *testing.T) {
	sender := &captureSender{}
	r := newTestReader(t, sender, qos.Default())
	writerGUID := guid.New(guid.NewPrefix(), guid.EntityID{0, 0, 1, 2})
	r.AddMatchedWriter(writerGUID, nil, qos.Default(), false)

	r.OnData(context.Background(), writerGUID.Prefix, submsg.Data{
		WriterEntityID: writerGUID.Entity,
		WriterSN:       1,
		Payload:        []byte("hello"),
	})

	if !r.Status.Test(StatusDataAvailable) {
		t.Fatalf("expected DataAvailable to be set after OnData")
	}
	samples := r.Read(history.AnySamples)
	if len(samples) != 1 || string(samples[0].Payload) != "hello" {
		t.Fatalf("unexpected samples: %+v", samples)
	}
}

func TestOnDataFragReassemblesBeforeDelivery(t *testing.T) {
	sender := &captureSender{}
	r := newTestReader(t, sender, qos.Default())
	writerGUID := guid.New(guid.NewPrefix(), guid.EntityID{0, 0, 1, 2})
	r.AddMatchedWriter(writerGUID, nil, qos.Default(), false)

	full := []byte("ABCDEFGH")
	r.OnDataFrag(context.Background(), writerGUID.Prefix, "", submsg.DataFrag{
		WriterEntityID:        writerGUID.Entity,
		WriterSN:              1,
		FragmentStartNum:      1,
		FragmentsInSubmessage: 1,
		FragmentSize:          4,
		SampleSize:            8,
		Payload:               full[:4],
	})
	if r.cache.Len() != 0 {
		t.Fatalf("expected no delivery before every fragment arrives")
	}
	r.OnDataFrag(context.Background(), writerGUID.Prefix, "", submsg.DataFrag{
		WriterEntityID:        writerGUID.Entity,
		WriterSN:              1,
		FragmentStartNum:      2,
		FragmentsInSubmessage: 1,
		FragmentSize:          4,
		SampleSize:            8,
		Payload:               full[4:],
	})

	samples := r.Read(history.AnySamples)
	if len(samples) != 1 || string(samples[0].Payload) != string(full) {
		t.Fatalf("expected reassembled payload %q, got %+v", full, samples)
	}
}

func TestOnHeartbeatFinalWithNoGapSkipsAckNack(t *testing.T) {
	sender := &captureSender{}
	r := newTestReader(t, sender, qos.Default())
	writerGUID := guid.New(guid.NewPrefix(), guid.EntityID{0, 0, 1, 2})
	r.AddMatchedWriter(writerGUID, nil, qos.Default(), true)

	r.OnData(context.Background(), writerGUID.Prefix, submsg.Data{WriterEntityID: writerGUID.Entity, WriterSN: 1, Payload: []byte("x")})

	r.OnHeartbeat(context.Background(), writerGUID.Prefix, true, submsg.Heartbeat{
		WriterEntityID: writerGUID.Entity,
		FirstSN:        1,
		LastSN:         1,
		Count:          1,
	})

	if sender.count() != 0 {
		t.Fatalf("expected no ACKNACK for a final HEARTBEAT with nothing missing, got %d sends", sender.count())
	}
}

func TestOnHeartbeatNonFinalTriggersAckNack(t *testing.T) {
	sender := &captureSender{}
	r := newTestReader(t, sender, qos.Default())
	writerGUID := guid.New(guid.NewPrefix(), guid.EntityID{0, 0, 1, 2})
	r.AddMatchedWriter(writerGUID, nil, qos.Default(), true)

	r.OnHeartbeat(context.Background(), writerGUID.Prefix, false, submsg.Heartbeat{
		WriterEntityID: writerGUID.Entity,
		FirstSN:        1,
		LastSN:         0,
		Count:          1,
	})

	if sender.count() != 1 {
		t.Fatalf("expected exactly 1 ACKNACK for a non-final HEARTBEAT, got %d", sender.count())
	}
}

func TestOnHeartbeatReportsMissingSequenceInBitmap(t *testing.T) {
	sender := &captureSender{}
	r := newTestReader(t, sender, qos.Default())
	writerGUID := guid.New(guid.NewPrefix(), guid.EntityID{0, 0, 1, 2})
	r.AddMatchedWriter(writerGUID, nil, qos.Default(), true)

	r.OnData(context.Background(), writerGUID.Prefix, submsg.Data{WriterEntityID: writerGUID.Entity, WriterSN: 1, Payload: []byte("x")})
	r.OnData(context.Background(), writerGUID.Prefix, submsg.Data{WriterEntityID: writerGUID.Entity, WriterSN: 3, Payload: []byte("z")})

	r.OnHeartbeat(context.Background(), writerGUID.Prefix, false, submsg.Heartbeat{
		WriterEntityID: writerGUID.Entity,
		FirstSN:        1,
		LastSN:         3,
		Count:          1,
	})

	ack := sender.lastAckNack(t)
	if len(ack.Missing) != 1 || ack.Missing[0] != 2 {
		t.Fatalf("expected absolute seq 2 reported missing, got base=%d missing=%v", ack.BitmapBase, ack.Missing)
	}
}

func TestOnGapClosesMissingSequenceWithoutDelivery(t *testing.T) {
	sender := &captureSender{}
	r := newTestReader(t, sender, qos.Default())
	writerGUID := guid.New(guid.NewPrefix(), guid.EntityID{0, 0, 1, 2})
	r.AddMatchedWriter(writerGUID, nil, qos.Default(), true)

	r.OnData(context.Background(), writerGUID.Prefix, submsg.Data{WriterEntityID: writerGUID.Entity, WriterSN: 1, Payload: []byte("x")})
	r.OnData(context.Background(), writerGUID.Prefix, submsg.Data{WriterEntityID: writerGUID.Entity, WriterSN: 3, Payload: []byte("z")})

	r.OnGap(context.Background(), writerGUID.Prefix, submsg.Gap{
		WriterEntityID: writerGUID.Entity,
		GapStart:       2,
		GapListBase:    2,
	})

	r.OnHeartbeat(context.Background(), writerGUID.Prefix, true, submsg.Heartbeat{
		WriterEntityID: writerGUID.Entity,
		FirstSN:        1,
		LastSN:         3,
		Count:          1,
	})

	if sender.count() != 0 {
		t.Fatalf("expected the GAP to close the seq-2 hole so the final HEARTBEAT needs no ACKNACK, got %d sends", sender.count())
	}
	if r.cache.Len() != 2 {
		t.Fatalf("expected GAP to not deliver a sample, cache has %d entries", r.cache.Len())
	}
}

func TestOnGapClosesNonContiguousGapListEntries(t *testing.T) {
	sender := &captureSender{}
	r := newTestReader(t, sender, qos.Default())
	writerGUID := guid.New(guid.NewPrefix(), guid.EntityID{0, 0, 1, 2})
	r.AddMatchedWriter(writerGUID, nil, qos.Default(), true)

	r.OnData(context.Background(), writerGUID.Prefix, submsg.Data{WriterEntityID: writerGUID.Entity, WriterSN: 1, Payload: []byte("x")})
	r.OnData(context.Background(), writerGUID.Prefix, submsg.Data{WriterEntityID: writerGUID.Entity, WriterSN: 5, Payload: []byte("z")})

	// GapStart=2 closes seq 2 directly; GapList carries the absolute
	// sequences 3 and 4 (not offsets from GapListBase), matching what
	// DecodeGap hands back off the wire.
	r.OnGap(context.Background(), writerGUID.Prefix, submsg.Gap{
		WriterEntityID: writerGUID.Entity,
		GapStart:       2,
		GapListBase:    3,
		GapList:        []int64{3, 4},
	})

	r.OnHeartbeat(context.Background(), writerGUID.Prefix, true, submsg.Heartbeat{
		WriterEntityID: writerGUID.Entity,
		FirstSN:        1,
		LastSN:         5,
		Count:          1,
	})

	if sender.count() != 0 {
		t.Fatalf("expected the GAP to close seqs 2-4 so the final HEARTBEAT needs no ACKNACK, got %d sends", sender.count())
	}
}

func TestUnsolicitedNackFlushesAfterMinAckPeriod(t *testing.T) {
	sender := &captureSender{}
	r := newTestReader(t, sender, qos.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writerGUID := guid.New(guid.NewPrefix(), guid.EntityID{0, 0, 1, 2})
	r.AddMatchedWriter(writerGUID, nil, qos.Default(), true)
	r.nackFlusher.minAckPeriod = 10 * time.Millisecond

	r.OnData(context.Background(), writerGUID.Prefix, submsg.Data{WriterEntityID: writerGUID.Entity, WriterSN: 1, Payload: []byte("x")})
	r.OnData(context.Background(), writerGUID.Prefix, submsg.Data{WriterEntityID: writerGUID.Entity, WriterSN: 3, Payload: []byte("z")})

	r.Start(ctx)
	defer r.Stop()

	deadline := time.Now().Add(time.Second)
	for sender.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if sender.count() == 0 {
		t.Fatalf("expected the nack flusher to emit an unsolicited ACKNACK for the gap at seq 2")
	}
}

func TestDeadlineWatchdogReportsMissedDeadline(t *testing.T) {
	sender := &captureSender{}
	q := qos.Default()
	q.Deadline = 15 * time.Millisecond
	r := newTestReader(t, sender, q)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	missedCount := 0
	r.watchdog.onMissed = func(_ history.InstanceHandle) {
		mu.Lock()
		missedCount++
		mu.Unlock()
	}

	r.watchdog.notify(history.ZeroInstanceHandle)
	r.Start(ctx)
	defer r.Stop()

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	got := missedCount
	mu.Unlock()
	if got == 0 {
		t.Fatalf("expected at least one RequestedDeadlineMissed notification")
	}
	if !r.Status.Test(StatusDeadlineMissed) {
		t.Fatalf("expected StatusDeadlineMissed to be set")
	}
}

func TestTakeRemovesSamplesFromCache(t *testing.T) {
	sender := &captureSender{}
	r := newTestReader(t, sender, qos.Default())
	writerGUID := guid.New(guid.NewPrefix(), guid.EntityID{0, 0, 1, 2})
	r.AddMatchedWriter(writerGUID, nil, qos.Default(), false)

	r.OnData(context.Background(), writerGUID.Prefix, submsg.Data{WriterEntityID: writerGUID.Entity, WriterSN: 1, Payload: []byte("x")})

	taken := r.Take(history.AnySamples)
	if len(taken) != 1 {
		t.Fatalf("expected 1 taken sample, got %d", len(taken))
	}
	if r.cache.Len() != 0 {
		t.Fatalf("expected cache empty after Take, got %d", r.cache.Len())
	}
	if r.Status.Test(StatusDataAvailable) {
		t.Fatalf("expected DataAvailable cleared after Take empties the cache")
	}
}
