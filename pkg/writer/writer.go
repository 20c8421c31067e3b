package writer

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/hdds-team/hdds/internal/logger"
	"github.com/hdds-team/hdds/pkg/history"
	"github.com/hdds-team/hdds/pkg/qos"
	"github.com/hdds-team/hdds/pkg/rtps/guid"
	"github.com/hdds-team/hdds/pkg/rtps/submsg"
	"github.com/hdds-team/hdds/pkg/rtps/types"
	"github.com/hdds-team/hdds/pkg/slab"
)

// MaxSingleDataPayload is the largest payload a single DATA submessage may
// carry before the writer switches to DATA_FRAG, per §4.4 ("64 KiB − header
// overhead").
const MaxSingleDataPayload = 64<<10 - 100

// FragmentPayloadSize is the per-fragment payload size used when a sample
// must be split across DATA_FRAG submessages.
const FragmentPayloadSize = 1400

// SendFunc delivers a raw RTPS packet to one destination locator. The
// writer engine is transport-agnostic: it hands fully-framed bytes to
// whatever SendFunc the participant runtime installed.
type SendFunc func(ctx context.Context, dest []types.Locator, packet []byte) error

// Writer is the write-path engine for one local data writer: history
// cache, matched-reader proxies, HEARTBEAT scheduling, ACKNACK-driven
// retransmission, GAP emission, and a per-reader AIMD rate that send
// outcomes adjust but that does not pace sends.
type Writer struct {
	GUID      guid.GUID
	TopicName string
	TypeName  string
	QoS       qos.Snapshot

	send    SendFunc
	pool    *slab.Pool
	hashMode history.KeyHashMode
	protocolVersion types.ProtocolVersion
	vendorID        types.VendorID

	cache *history.WriterCache

	mu      sync.Mutex
	proxies map[guid.GUID]*ReaderProxy
	count   int32 // HEARTBEAT monotonic count, shared per writer

	heartbeatPacer *Pacer
	liveliness     *Liveliness
}

// Config configures a new Writer.
type Config struct {
	GUID            guid.GUID
	TopicName       string
	TypeName        string
	QoS             qos.Snapshot
	Send            SendFunc
	Pool            *slab.Pool
	HashMode        history.KeyHashMode
	ProtocolVersion types.ProtocolVersion
	VendorID        types.VendorID
}

// New creates a Writer whose history cache is sized from cfg.QoS's History
// and ResourceLimits policies.
func New(cfg Config) *Writer {
	kind := history.KeepLast
	if cfg.QoS.History == qos.HistoryKeepAll {
		kind = history.KeepAll
	}
	depth := cfg.QoS.Depth
	maxSamples := cfg.QoS.ResourceLimits.MaxSamples

	w := &Writer{
		GUID:            cfg.GUID,
		TopicName:       cfg.TopicName,
		TypeName:        cfg.TypeName,
		QoS:             cfg.QoS,
		send:            cfg.Send,
		pool:            cfg.Pool,
		hashMode:        cfg.HashMode,
		protocolVersion: cfg.ProtocolVersion,
		vendorID:        cfg.VendorID,
		proxies:         make(map[guid.GUID]*ReaderProxy),
	}
	tracker := aggregateAckTracker{mu: &w.mu, proxies: &w.proxies}
	w.cache = history.NewWriterCache(kind, depth, maxSamples, cfg.QoS.MaxBlockingTime, tracker)
	w.heartbeatPacer = newPacer(w)
	w.liveliness = newLiveliness(w)
	return w
}

// SetLivelinessAssertFunc installs the callback the liveliness ticker
// invokes every lease_duration/2 when QoS.Liveliness is Automatic. Call
// before Start.
func (w *Writer) SetLivelinessAssertFunc(fn AssertFunc) {
	w.liveliness.SetAssertFunc(fn)
}

// Start launches the writer's background HEARTBEAT pacer and, if
// QoS.Liveliness is Automatic, the liveliness-assertion ticker.
func (w *Writer) Start(ctx context.Context) {
	w.heartbeatPacer.Start(ctx)
	if w.QoS.Liveliness == qos.LivelinessAutomatic {
		w.liveliness.Start(ctx)
	}
}

// Stop halts every background task. Per the bounded-drain-period
// cancellation contract, callers should flush final GAPs for unacked
// sequences before destroying the writer entirely.
func (w *Writer) Stop() {
	w.heartbeatPacer.Stop()
	w.liveliness.Stop()
}

// AddMatchedReader registers a newly SEDP-matched remote reader. reliable
// reflects the outcome of the RxO match: true only when both sides agreed
// on Reliable.
func (w *Writer) AddMatchedReader(remote guid.GUID, locators []types.Locator, remoteQoS qos.Snapshot, reliable bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	rp := newReaderProxy(remote, reliable, remoteQoS, locators)
	first, last := w.cache.SeqNumRange()
	if first != types.SequenceNumberUnknown {
		rp.highestAck = first - 1
	}
	_ = last
	w.proxies[remote] = rp
}

// RemoveMatchedReader drops a reader proxy, e.g. on SEDP endpoint
// disposal or lease expiry.
func (w *Writer) RemoveMatchedReader(remote guid.GUID) {
	w.mu.Lock()
	delete(w.proxies, remote)
	w.mu.Unlock()
}

// RemoveMatchedReadersForParticipant drops every matched reader proxy
// owned by prefix, e.g. when that participant's SPDP lease expires.
func (w *Writer) RemoveMatchedReadersForParticipant(prefix guid.Prefix) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for g := range w.proxies {
		if g.Prefix == prefix {
			delete(w.proxies, g)
		}
	}
}

// MatchedReaderCount reports how many readers are currently matched, for
// metrics and tests.
func (w *Writer) MatchedReaderCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.proxies)
}

// Write encodes and delivers one application sample: it assigns the next
// sequence number, stores the CacheChange, and pushes DATA or DATA_FRAG
// submessages to every matched reader (Reliable readers get pending-set
// tracking and a HEARTBEAT schedule bump; BestEffort readers are
// fire-and-forget).
func (w *Writer) Write(ctx context.Context, keyOctets, payload []byte) (types.SequenceNumber, error) {
	instance := history.ComputeInstanceHandle(w.hashMode, keyOctets)
	seq, err := w.cache.Add(ctx, instance, payload, time.Now().UnixNano())
	if err != nil {
		return 0, err
	}

	w.mu.Lock()
	readers := make([]*ReaderProxy, 0, len(w.proxies))
	for _, rp := range w.proxies {
		readers = append(readers, rp)
	}
	w.mu.Unlock()

	for _, rp := range readers {
		if rp.Reliable {
			w.mu.Lock()
			rp.pending[seq] = struct{}{}
			rp.dirty = true
			due := rp.nextHeartbeatDue
			w.mu.Unlock()
			w.deliverTo(ctx, rp, seq, payload)
			if time.Now().After(due) {
				w.sendHeartbeat(ctx, rp)
			}
		} else {
			w.deliverTo(ctx, rp, seq, payload)
		}
	}
	return seq, nil
}

// deliverTo fragments payload if needed and sends it to one reader's
// locators. Sends are not paced: each packet goes to the SendFunc at once,
// whatever that reader's AIMD rate is.
func (w *Writer) deliverTo(ctx context.Context, rp *ReaderProxy, seq types.SequenceNumber, payload []byte) {
	if len(payload) <= MaxSingleDataPayload {
		pkt := w.framePacket(submsg.EncodeSubmessage(submsg.KindData, submsg.FlagEndianness, submsg.EncodeData(binary.LittleEndian, submsg.Data{
			ReaderEntityID: rp.GUID.Entity,
			WriterEntityID: w.GUID.Entity,
			WriterSN:       seq,
			Payload:        payload,
		}), true))
		w.sendPaced(ctx, rp, pkt)
		return
	}

	total := (len(payload) + FragmentPayloadSize - 1) / FragmentPayloadSize
	for i := 0; i < total; i++ {
		start := i * FragmentPayloadSize
		end := start + FragmentPayloadSize
		if end > len(payload) {
			end = len(payload)
		}
		frag := submsg.DataFrag{
			ReaderEntityID:        rp.GUID.Entity,
			WriterEntityID:        w.GUID.Entity,
			WriterSN:              seq,
			FragmentStartNum:      uint32(i + 1),
			FragmentsInSubmessage: 1,
			FragmentSize:          FragmentPayloadSize,
			SampleSize:            uint32(len(payload)),
			Payload:               payload[start:end],
		}
		pkt := w.framePacket(submsg.EncodeSubmessage(submsg.KindDataFrag, submsg.FlagEndianness, submsg.EncodeDataFrag(binary.LittleEndian, frag), i == total-1))
		w.sendPaced(ctx, rp, pkt)
	}
}

func (w *Writer) sendPaced(ctx context.Context, rp *ReaderProxy, pkt []byte) {
	if w.send == nil {
		return
	}
	_ = rp.controller.Rate() // the rate is read but does not delay the send;
	// no congestion.Pacer sits on this path or in the participant runtime.
	if err := w.send(ctx, rp.Locators, pkt); err != nil {
		logger.WarnCtx(ctx, "writer send failed", logger.EntityGUID(w.GUID.Bytes()[:]), logger.Err(err))
		rp.controller.OnHardCongestion()
		return
	}
	rp.controller.OnRTTNoCongestion()
}

// sendHeartbeat emits a HEARTBEAT to one reader proxy and advances its
// next-due timestamp, backing off to IdleHeartbeatPeriod after the burst.
func (w *Writer) sendHeartbeat(ctx context.Context, rp *ReaderProxy) {
	first, last := w.cache.SeqNumRange()
	if first == types.SequenceNumberUnknown {
		first, last = 1, 0
	}

	w.mu.Lock()
	w.count++
	count := w.count
	w.mu.Unlock()

	hb := submsg.Heartbeat{
		ReaderEntityID: rp.GUID.Entity,
		WriterEntityID: w.GUID.Entity,
		FirstSN:        first,
		LastSN:         last,
		Count:          count,
	}
	pkt := w.framePacket(submsg.EncodeSubmessage(submsg.KindHeartbeat, submsg.FlagEndianness, submsg.EncodeHeartbeat(binary.LittleEndian, hb), false))
	if w.send != nil {
		if err := w.send(ctx, rp.Locators, pkt); err != nil {
			logger.WarnCtx(ctx, "heartbeat send failed", logger.EntityGUID(w.GUID.Bytes()[:]), logger.Err(err))
		}
	}

	w.mu.Lock()
	rp.nextHeartbeatDue = time.Now().Add(rp.heartbeatPeriod)
	w.mu.Unlock()
}

// OnAckNack processes an ACKNACK from a matched reader: it advances
// highest_ack, re-emits DATA for every still-retained requested sequence
// (or GAP for sequences no longer in the cache), and notifies the writer
// cache so a blocked KeepAll Add can recheck for room. sourcePrefix is the
// sending participant's GUID prefix, taken from the enclosing packet
// header, since the ACKNACK submessage body only carries the reader's
// entity id.
func (w *Writer) OnAckNack(ctx context.Context, sourcePrefix guid.Prefix, ack submsg.AckNack) {
	w.mu.Lock()
	rp, ok := w.proxies[guid.New(sourcePrefix, ack.ReaderEntityID)]
	w.mu.Unlock()
	if !ok {
		return
	}

	w.mu.Lock()
	rp.highestAck = ack.BitmapBase - 1
	for seq := range rp.pending {
		if seq < ack.BitmapBase {
			delete(rp.pending, seq)
		}
	}
	w.mu.Unlock()
	w.cache.NotifyAcked()

	var missingGap []int64
	for _, seq64 := range ack.Missing {
		seq := types.SequenceNumber(seq64)
		if change, ok := w.cache.Get(seq); ok {
			w.deliverTo(ctx, rp, seq, change.Payload)
		} else {
			missingGap = append(missingGap, seq64)
		}
	}
	if len(missingGap) > 0 {
		w.sendGap(ctx, rp, ack.BitmapBase, missingGap)
	}

	w.mu.Lock()
	rp.nackCount++
	w.mu.Unlock()
}

// sendGap announces that the given absolute sequence numbers will never be
// retransmitted, because the writer no longer retains them.
func (w *Writer) sendGap(ctx context.Context, rp *ReaderProxy, base types.SequenceNumber, sequences []int64) {
	g := submsg.Gap{
		ReaderEntityID: rp.GUID.Entity,
		WriterEntityID: w.GUID.Entity,
		GapStart:       base,
		GapListBase:    base,
		GapList:        sequences,
	}
	pkt := w.framePacket(submsg.EncodeSubmessage(submsg.KindGap, submsg.FlagEndianness, submsg.EncodeGap(binary.LittleEndian, g), false))
	if w.send != nil {
		if err := w.send(ctx, rp.Locators, pkt); err != nil {
			logger.WarnCtx(ctx, "gap send failed", logger.EntityGUID(w.GUID.Bytes()[:]), logger.Err(err))
		}
	}
}

func (w *Writer) framePacket(submessage []byte) []byte {
	hdr := submsg.PacketHeader{Version: w.protocolVersion, VendorID: w.vendorID, Prefix: w.GUID.Prefix}
	return submsg.AssemblePacket(hdr, [][]byte{submessage})
}
