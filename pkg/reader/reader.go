package reader

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/hdds-team/hdds/internal/logger"
	"github.com/hdds-team/hdds/pkg/fragment"
	"github.com/hdds-team/hdds/pkg/history"
	"github.com/hdds-team/hdds/pkg/qos"
	"github.com/hdds-team/hdds/pkg/rtps/guid"
	"github.com/hdds-team/hdds/pkg/rtps/submsg"
	"github.com/hdds-team/hdds/pkg/rtps/types"
)

// DefaultMinAckPeriod is the coalescing window for unsolicited NACKs: the
// reader waits this long after noticing a gap before emitting an ACKNACK,
// giving a slightly-reordered DATA a chance to arrive first.
const DefaultMinAckPeriod = 10 * time.Millisecond

// KeyFunc derives the instance handle's key octets from a decoded sample
// payload. Reader is payload-type-agnostic; the participant runtime
// supplies this per matched topic/type.
type KeyFunc func(payload []byte) []byte

// SendFunc delivers a raw RTPS packet (ACKNACK) to one
// destination.
type SendFunc func(ctx context.Context, dest []types.Locator, packet []byte) error

// DeadlineMissedFunc is invoked when no sample arrives for an instance
// within QoS.Deadline.
type DeadlineMissedFunc func(instance history.InstanceHandle)

// Reader is the ingress-path engine for one local data reader: fragment
// reassembly, the sample cache, per-matched-writer ACKNACK scheduling, and
// the deadline watchdog.
type Reader struct {
	GUID      guid.GUID
	TopicName string
	TypeName  string
	QoS       qos.Snapshot

	cache    *history.ReaderCache
	frags    *fragment.Buffer
	hashMode history.KeyHashMode
	keyFn    KeyFunc

	send            SendFunc
	protocolVersion types.ProtocolVersion
	vendorID        types.VendorID

	mu      sync.Mutex
	proxies map[guid.GUID]*WriterProxy
	count   int32

	Status StatusCondition

	nackFlusher *nackFlusher
	watchdog    *deadlineWatchdog
}

// Config configures a new Reader.
type Config struct {
	GUID            guid.GUID
	TopicName       string
	TypeName        string
	QoS             qos.Snapshot
	KeyFn           KeyFunc
	HashMode        history.KeyHashMode
	Send            SendFunc
	ProtocolVersion types.ProtocolVersion
	VendorID        types.VendorID
	FragmentBuffer  *fragment.Buffer
	OnDeadlineMissed DeadlineMissedFunc
}

// New creates a Reader whose sample cache is sized from cfg.QoS's History
// and ResourceLimits policies.
func New(cfg Config) *Reader {
	kind := history.KeepLast
	if cfg.QoS.History == qos.HistoryKeepAll {
		kind = history.KeepAll
	}
	fb := cfg.FragmentBuffer
	if fb == nil {
		fb = fragment.New(0, 0)
	}

	r := &Reader{
		GUID:            cfg.GUID,
		TopicName:       cfg.TopicName,
		TypeName:        cfg.TypeName,
		QoS:             cfg.QoS,
		cache:           history.NewReaderCache(kind, cfg.QoS.Depth, cfg.QoS.ResourceLimits.MaxSamples),
		frags:           fb,
		hashMode:        cfg.HashMode,
		keyFn:           cfg.KeyFn,
		send:            cfg.Send,
		protocolVersion: cfg.ProtocolVersion,
		vendorID:        cfg.VendorID,
		proxies:         make(map[guid.GUID]*WriterProxy),
	}
	r.nackFlusher = newNackFlusher(r)
	r.watchdog = newDeadlineWatchdog(r, cfg.OnDeadlineMissed)
	return r
}

// Start launches the NACK-coalescing flusher and, if QoS.Deadline is set,
// the deadline watchdog.
func (r *Reader) Start(ctx context.Context) {
	r.nackFlusher.Start(ctx)
	if r.QoS.Deadline > 0 {
		r.watchdog.Start(ctx)
	}
}

// Stop halts every background task.
func (r *Reader) Stop() {
	r.nackFlusher.Stop()
	r.watchdog.Stop()
}

// AddMatchedWriter registers a newly SEDP-matched remote writer.
func (r *Reader) AddMatchedWriter(remote guid.GUID, locators []types.Locator, remoteQoS qos.Snapshot, reliable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.proxies[remote] = newWriterProxy(remote, reliable, remoteQoS, locators)
}

// RemoveMatchedWriter drops a writer proxy.
func (r *Reader) RemoveMatchedWriter(remote guid.GUID) {
	r.mu.Lock()
	delete(r.proxies, remote)
	r.mu.Unlock()
}

// RemoveMatchedWritersForParticipant drops every matched writer proxy
// owned by prefix, e.g. when that participant's SPDP lease expires.
func (r *Reader) RemoveMatchedWritersForParticipant(prefix guid.Prefix) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for g := range r.proxies {
		if g.Prefix == prefix {
			delete(r.proxies, g)
		}
	}
}

// MatchedWriterCount reports how many writers are currently matched.
func (r *Reader) MatchedWriterCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.proxies)
}

// OnData ingests one fully-decoded (non-fragmented) DATA submessage from
// sourcePrefix, the sending participant's GUID prefix.
func (r *Reader) OnData(ctx context.Context, sourcePrefix guid.Prefix, d submsg.Data) {
	writerGUID := guid.New(sourcePrefix, d.WriterEntityID)
	r.deliver(writerGUID, d.WriterSN, d.Payload)
	r.watchdog.notify(r.instanceOf(d.Payload))
}

// OnDataFrag ingests one DATA_FRAG submessage, pushing it into the
// fragment reassembly buffer; once every fragment of a sample has
// arrived, the reassembled payload is delivered exactly as OnData would.
func (r *Reader) OnDataFrag(ctx context.Context, sourcePrefix guid.Prefix, sourceAddr string, d submsg.DataFrag) {
	writerGUID := guid.New(sourcePrefix, d.WriterEntityID)
	total := (d.SampleSize + uint32(d.FragmentSize) - 1) / uint32(d.FragmentSize)
	payload := r.frags.Insert(writerGUID, d.WriterSN, d.FragmentStartNum, total, d.Payload, sourceAddr)
	if payload == nil {
		r.noteReceivedForNackPurposes(writerGUID, d.WriterSN)
		return
	}
	r.deliver(writerGUID, d.WriterSN, payload)
	r.watchdog.notify(r.instanceOf(payload))
}

// deliver stores a fully-assembled sample in the cache, updates the
// writer proxy's reception state, and raises DataAvailable.
func (r *Reader) deliver(writerGUID guid.GUID, seq types.SequenceNumber, payload []byte) {
	r.mu.Lock()
	wp, ok := r.proxies[writerGUID]
	if !ok {
		wp = newWriterProxy(writerGUID, false, qos.Snapshot{}, nil)
		r.proxies[writerGUID] = wp
	}
	wp.observe(seq)
	hasGap := len(wp.missing) > 0
	if hasGap && wp.unsolicitedSince.IsZero() {
		wp.unsolicitedSince = time.Now()
	}
	r.mu.Unlock()

	instance := r.instanceOf(payload)
	stored := r.cache.Store(history.CacheChange{
		SeqNum:         seq,
		SourceTimestampNS: time.Now().UnixNano(),
		InstanceHandle: instance,
		Payload:        payload,
		InstanceState:  history.InstanceAlive,
	})
	if stored {
		r.Status.Set(StatusDataAvailable)
	}
}

// noteReceivedForNackPurposes ensures a writer proxy exists for a
// partially-received (still-fragmenting) sample. highestReceived is only
// advanced once reassembly completes and deliver is called, so an
// in-progress fragment set is not prematurely treated as acknowledged.
func (r *Reader) noteReceivedForNackPurposes(writerGUID guid.GUID, seq types.SequenceNumber) {
	r.mu.Lock()
	if _, ok := r.proxies[writerGUID]; !ok {
		r.proxies[writerGUID] = newWriterProxy(writerGUID, false, qos.Snapshot{}, nil)
	}
	r.mu.Unlock()
}

func (r *Reader) instanceOf(payload []byte) history.InstanceHandle {
	if r.keyFn == nil {
		return history.ZeroInstanceHandle
	}
	return history.ComputeInstanceHandle(r.hashMode, r.keyFn(payload))
}

// OnHeartbeat processes a HEARTBEAT from a matched writer: it schedules an
// immediate ACKNACK unless the final flag is set and nothing is missing.
func (r *Reader) OnHeartbeat(ctx context.Context, sourcePrefix guid.Prefix, final bool, hb submsg.Heartbeat) {
	writerGUID := guid.New(sourcePrefix, hb.WriterEntityID)
	r.mu.Lock()
	wp, ok := r.proxies[writerGUID]
	if !ok {
		r.mu.Unlock()
		return
	}
	// A HEARTBEAT's lastSN tells us the writer has gone further than we
	// may have observed via DATA alone (e.g. BestEffort loss); open gaps
	// for anything between our horizon and lastSN so ACKNACK reports it.
	if hb.LastSN != types.SequenceNumberUnknown && hb.LastSN > wp.highestReceived {
		for s := wp.highestReceived + 1; s <= hb.LastSN; s++ {
			wp.missing[s] = struct{}{}
		}
		wp.highestReceived = hb.LastSN
	}
	needsAck := !final || len(wp.missing) > 0
	r.mu.Unlock()

	if needsAck {
		r.sendAckNack(ctx, wp)
	}
}

// OnGap processes a GAP from a matched writer: every sequence the writer
// announces it will never resend is treated as observed, exactly as if a
// sample for it had arrived, so it stops appearing in future ACKNACKs.
func (r *Reader) OnGap(ctx context.Context, sourcePrefix guid.Prefix, g submsg.Gap) {
	writerGUID := guid.New(sourcePrefix, g.WriterEntityID)
	r.mu.Lock()
	defer r.mu.Unlock()
	wp, ok := r.proxies[writerGUID]
	if !ok {
		return
	}
	end := g.GapListBase
	for _, seq64 := range g.GapList {
		seq := types.SequenceNumber(seq64)
		if seq > end {
			end = seq
		}
	}
	for seq := g.GapStart; seq <= end; seq++ {
		wp.observe(seq)
	}
}

// sendAckNack emits an ACKNACK to one matched writer reporting
// highest_received and the current missing set.
func (r *Reader) sendAckNack(ctx context.Context, wp *WriterProxy) {
	r.mu.Lock()
	r.count++
	count := r.count
	base := wp.ackNackBase()
	missing := wp.missingSequences()
	r.mu.Unlock()

	ack := submsg.AckNack{
		ReaderEntityID: r.GUID.Entity,
		WriterEntityID: wp.GUID.Entity,
		BitmapBase:     base,
		Missing:        missing,
		Count:          count,
	}
	pkt := r.framePacket(submsg.EncodeSubmessage(submsg.KindAckNack, submsg.FlagEndianness, submsg.EncodeAckNack(binary.LittleEndian, ack), false))
	if r.send != nil {
		if err := r.send(ctx, wp.Locators, pkt); err != nil {
			logger.WarnCtx(ctx, "acknack send failed", logger.EntityGUID(r.GUID.Bytes()[:]), logger.Err(err))
		}
	}
}

func (r *Reader) framePacket(submessage []byte) []byte {
	hdr := submsg.PacketHeader{Version: r.protocolVersion, VendorID: r.vendorID, Prefix: r.GUID.Prefix}
	return submsg.AssemblePacket(hdr, [][]byte{submessage})
}

// Read returns unread samples matching cond, non-destructively.
func (r *Reader) Read(cond history.ReadCondition) []history.CacheChange {
	out := r.cache.Read(cond)
	if !r.cache.HasNotRead() {
		r.Status.Clear(StatusDataAvailable)
	}
	return out
}

// Take returns and removes unread samples matching cond.
func (r *Reader) Take(cond history.ReadCondition) []history.CacheChange {
	out := r.cache.Take(cond)
	if r.cache.Len() == 0 {
		r.Status.Clear(StatusDataAvailable)
	}
	return out
}
