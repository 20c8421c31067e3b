package participant

import (
	"context"

	"github.com/hdds-team/hdds/internal/logger"
	"github.com/hdds-team/hdds/pkg/discovery"
	"github.com/hdds-team/hdds/pkg/rtps/guid"
	"github.com/hdds-team/hdds/pkg/rtps/submsg"
	"github.com/hdds-team/hdds/pkg/rtps/types"
)

// handlePacket is the transport.ReceiveFunc wired into both the UDP and
// TCP transports: it decodes the packet header, drops anything this
// participant sent itself (multicast loopback), and fans each submessage
// out by entity id.
func (p *Participant) handlePacket(src types.Locator, pkt []byte) {
	hdr, err := submsg.DecodePacketHeader(pkt)
	if err != nil {
		logger.Warn("dropping packet with bad header", logger.Err(err))
		return
	}
	if hdr.Prefix == p.cfg.Prefix {
		return
	}

	subs, err := submsg.SplitPacket(pkt[submsg.PacketHeaderLen:])
	if err != nil {
		logger.Warn("dropping packet with malformed submessages", logger.Err(err), logger.ParticipantGUIDStr(hdr.Prefix.HexPrefix()))
	}

	for _, sm := range subs {
		p.dispatchSubmessage(hdr.Prefix, src, sm)
	}
}

func (p *Participant) dispatchSubmessage(sourcePrefix guid.Prefix, src types.Locator, sm submsg.RawSubmessage) {
	switch sm.Header.Kind {
	case submsg.KindData:
		p.dispatchData(sourcePrefix, sm)
	case submsg.KindDataFrag:
		p.dispatchDataFrag(sourcePrefix, src, sm)
	case submsg.KindHeartbeat:
		p.dispatchHeartbeat(sourcePrefix, sm)
	case submsg.KindAckNack:
		p.dispatchAckNack(sourcePrefix, sm)
	case submsg.KindGap:
		p.dispatchGap(sourcePrefix, sm)
	case submsg.KindPad, submsg.KindInfoTS, submsg.KindInfoSrc, submsg.KindInfoDst,
		submsg.KindHeartbeatFrag, submsg.KindNackFrag:
		// INFO_* submessages only affect timestamp/locator context for
		// submessages this core does not yet need that context for, and
		// fragment-level reliability (HEARTBEAT_FRAG/NACK_FRAG) is out of
		// scope until partial-fragment retransmission is implemented.
	default:
		logger.Info("ignoring unknown submessage kind", logger.EntityGUID(sourcePrefix[:]))
	}
}

func (p *Participant) dispatchData(sourcePrefix guid.Prefix, sm submsg.RawSubmessage) {
	d, err := submsg.DecodeData(sm.Header.ByteOrder(), uint8(sm.Header.Flags), sm.Body)
	if err != nil {
		logger.Warn("malformed DATA submessage", logger.Err(err))
		return
	}

	switch d.ReaderEntityID {
	case guid.EntityIDSPDPReader:
		payload, err := discovery.DecodeSPDP(d.Payload)
		if err != nil {
			logger.Warn("malformed SPDP payload", logger.Err(err))
			return
		}
		p.onSPDP(sourcePrefix, payload)
		return
	case guid.EntityIDSEDPPubReader, guid.EntityIDSEDPSubReader:
		payload, err := discovery.DecodeSEDP(d.Payload)
		if err != nil {
			logger.Warn("malformed SEDP payload", logger.Err(err))
			return
		}
		p.onSEDP(sourcePrefix, payload, d.ReaderEntityID == guid.EntityIDSEDPPubReader)
		return
	}

	p.mu.RLock()
	r, ok := p.readers[guid.New(p.cfg.Prefix, d.ReaderEntityID)]
	p.mu.RUnlock()
	if !ok {
		return
	}
	r.OnData(p.currentCtx(), sourcePrefix, d)
}

func (p *Participant) dispatchDataFrag(sourcePrefix guid.Prefix, src types.Locator, sm submsg.RawSubmessage) {
	d, err := submsg.DecodeDataFrag(sm.Header.ByteOrder(), uint8(sm.Header.Flags), sm.Body)
	if err != nil {
		logger.Warn("malformed DATA_FRAG submessage", logger.Err(err))
		return
	}
	p.mu.RLock()
	r, ok := p.readers[guid.New(p.cfg.Prefix, d.ReaderEntityID)]
	p.mu.RUnlock()
	if !ok {
		return
	}
	r.OnDataFrag(p.currentCtx(), sourcePrefix, src.String(), d)
}

func (p *Participant) dispatchHeartbeat(sourcePrefix guid.Prefix, sm submsg.RawSubmessage) {
	hb, err := submsg.DecodeHeartbeat(sm.Header.ByteOrder(), sm.Body)
	if err != nil {
		logger.Warn("malformed HEARTBEAT submessage", logger.Err(err))
		return
	}
	p.mu.RLock()
	r, ok := p.readers[guid.New(p.cfg.Prefix, hb.ReaderEntityID)]
	p.mu.RUnlock()
	if !ok {
		return
	}
	final := uint8(sm.Header.Flags)&submsg.HeartbeatFlagFinal != 0
	r.OnHeartbeat(p.currentCtx(), sourcePrefix, final, hb)
}

func (p *Participant) dispatchAckNack(sourcePrefix guid.Prefix, sm submsg.RawSubmessage) {
	ack, err := submsg.DecodeAckNack(sm.Header.ByteOrder(), sm.Body)
	if err != nil {
		logger.Warn("malformed ACKNACK submessage", logger.Err(err))
		return
	}
	p.mu.RLock()
	w, ok := p.writers[guid.New(p.cfg.Prefix, ack.WriterEntityID)]
	p.mu.RUnlock()
	if !ok {
		return
	}
	w.OnAckNack(p.currentCtx(), sourcePrefix, ack)
}

func (p *Participant) dispatchGap(sourcePrefix guid.Prefix, sm submsg.RawSubmessage) {
	g, err := submsg.DecodeGap(sm.Header.ByteOrder(), sm.Body)
	if err != nil {
		logger.Warn("malformed GAP submessage", logger.Err(err))
		return
	}
	p.mu.RLock()
	r, ok := p.readers[guid.New(p.cfg.Prefix, g.ReaderEntityID)]
	p.mu.RUnlock()
	if !ok {
		return
	}
	r.OnGap(p.currentCtx(), sourcePrefix, g)
}

// sendToLocators is the shared writer.SendFunc/reader.SendFunc
// implementation: it picks UDP or TCP per destination locator's kind and
// sends to every one, returning the first error encountered (if any)
// after attempting delivery to all of them.
func (p *Participant) sendToLocators(ctx context.Context, dest []types.Locator, packet []byte) error {
	var firstErr error
	for _, loc := range dest {
		var err error
		if loc.Kind == types.LocatorKindTCPv4 && p.tcp != nil {
			err = p.tcp.Send(loc, packet)
		} else {
			err = p.udp.Send(loc, packet)
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
