package participant

import (
	"context"
	"encoding/binary"
	"net"
	"sync/atomic"

	"github.com/hdds-team/hdds/internal/logger"
	"github.com/hdds-team/hdds/pkg/discovery"
	"github.com/hdds-team/hdds/pkg/rtps/guid"
	"github.com/hdds-team/hdds/pkg/rtps/submsg"
	"github.com/hdds-team/hdds/pkg/rtps/types"
	"github.com/hdds-team/hdds/pkg/transport"
)

// buildSPDPPayload assembles this participant's current SPDP announcement,
// called fresh on every Announcer tick so a changed locator set (e.g. from
// IP mobility) is always reflected.
func (p *Participant) buildSPDPPayload() []byte {
	payload := discovery.SPDPPayload{
		ParticipantPrefix:    p.cfg.Prefix,
		ProtocolVersion:      p.cfg.ProtocolVersion,
		VendorID:             p.cfg.VendorID,
		LeaseDuration:        p.cfg.LeaseDuration,
		MetatrafficUnicast:   p.udp.LocalLocators(),
		MetatrafficMulticast: []types.Locator{p.discoveryMulticastLocator()},
		DefaultUnicast:       p.defaultLocators(),
		DefaultMulticast:     []types.Locator{p.discoveryMulticastLocator()},
		BuiltinEndpoints:     discovery.DefaultBuiltinEndpoints,
	}
	return discovery.EncodeSPDP(payload)
}

// discoveryMulticastLocator is the well-known SPDP multicast group at this
// domain's metatraffic multicast port.
func (p *Participant) discoveryMulticastLocator() types.Locator {
	port := transport.MetatrafficMulticastPort(p.cfg.PortMapping, p.cfg.DomainID)
	return types.LocatorFromUDP4(net.ParseIP(transport.DiscoveryMulticastAddr), uint32(port))
}

// sendSPDP frames an already-encoded SPDP payload as a DATA submessage
// from the builtin SPDP writer and multicasts it.
func (p *Participant) sendSPDP(payload []byte) error {
	seq := types.SequenceNumber(atomic.AddInt64(&p.spdpSeq, 1))
	d := submsg.Data{
		ReaderEntityID: guid.EntityIDSPDPReader,
		WriterEntityID: guid.EntityIDSPDPWriter,
		WriterSN:       seq,
		Payload:        payload,
	}
	pkt := p.frameOwnPacket(submsg.EncodeSubmessage(submsg.KindData, submsg.FlagEndianness, submsg.EncodeData(binary.LittleEndian, d), true))
	return p.udp.Send(p.discoveryMulticastLocator(), pkt)
}

// onSPDP records a peer participant and, the first time it is seen,
// unicasts every local endpoint's SEDP announcement straight at it so the
// SPDP/SEDP race is won even against vendor stacks with slow background
// SEDP cadence.
func (p *Participant) onSPDP(sourcePrefix guid.Prefix, payload discovery.SPDPPayload) {
	if sourcePrefix != payload.ParticipantPrefix {
		logger.Warn("spdp payload participant prefix mismatches packet source", logger.ParticipantGUIDStr(sourcePrefix.HexPrefix()))
	}
	rp := &discovery.RemoteParticipant{
		Prefix:               payload.ParticipantPrefix,
		VendorID:             payload.VendorID,
		ProtocolVersion:      payload.ProtocolVersion,
		DomainID:             p.cfg.DomainID,
		MetatrafficUnicast:   payload.MetatrafficUnicast,
		MetatrafficMulticast: payload.MetatrafficMulticast,
		DefaultUnicast:       payload.DefaultUnicast,
		DefaultMulticast:     payload.DefaultMulticast,
		LeaseDuration:        payload.LeaseDuration,
		IdentityToken:        payload.IdentityToken,
	}
	stored, firstSeen := p.registry.UpsertParticipant(rp)
	if !firstSeen || len(stored.MetatrafficUnicast) == 0 {
		return
	}

	ctx := p.currentCtx()
	for _, local := range p.registry.ListLocalEndpoints() {
		pkt := p.encodeSEDPPacket(local)
		if err := p.sendToLocators(ctx, stored.MetatrafficUnicast, pkt); err != nil {
			logger.WarnCtx(ctx, "direct sedp announce to new peer failed", logger.Err(err))
		}
	}
}

// announceSEDP multicasts local's SEDP announcement to the discovery
// group, for peers already operational.
func (p *Participant) announceSEDP(local *discovery.LocalEndpoint) {
	pkt := p.encodeSEDPPacket(local)
	if err := p.udp.Send(p.discoveryMulticastLocator(), pkt); err != nil {
		logger.Warn("sedp announce failed", logger.Err(err), logger.Topic(local.TopicName))
	}
}

// encodeSEDPPacket frames local's SEDP announcement as a DATA submessage
// from the appropriate builtin publications/subscriptions writer.
func (p *Participant) encodeSEDPPacket(local *discovery.LocalEndpoint) []byte {
	payload := discovery.EncodeSEDP(discovery.SEDPPayload{
		EndpointGUID:    local.GUID,
		ParticipantGUID: p.localGUID(),
		TopicName:       local.TopicName,
		TypeName:        local.TypeName,
		QoS:             local.QoS,
		UnicastLocators: p.defaultLocators(),
		TypeObject:      local.TypeObject,
	})

	writerEntity := guid.EntityIDSEDPSubWriter
	readerEntity := guid.EntityIDSEDPSubReader
	if local.IsWriter {
		writerEntity = guid.EntityIDSEDPPubWriter
		readerEntity = guid.EntityIDSEDPPubReader
	}
	seq := types.SequenceNumber(atomic.AddInt64(&p.sedpSeq, 1))
	d := submsg.Data{
		ReaderEntityID: readerEntity,
		WriterEntityID: writerEntity,
		WriterSN:       seq,
		Payload:        payload,
	}
	return p.frameOwnPacket(submsg.EncodeSubmessage(submsg.KindData, submsg.FlagEndianness, submsg.EncodeData(binary.LittleEndian, d), true))
}

// onSEDP records a remote writer or reader and matches it against every
// compatible local endpoint. isWriter reflects which builtin SEDP reader
// entity id the enclosing DATA submessage targeted (publications vs
// subscriptions), since the payload itself carries no role marker.
func (p *Participant) onSEDP(sourcePrefix guid.Prefix, payload discovery.SEDPPayload, isWriter bool) {
	remote := &discovery.RemoteEndpoint{
		GUID:            payload.EndpointGUID,
		OwnerPrefix:     sourcePrefix,
		TopicName:       payload.TopicName,
		TypeName:        payload.TypeName,
		IsWriter:        isWriter,
		QoS:             payload.QoS,
		UnicastLocators: payload.UnicastLocators,
		TypeObject:      payload.TypeObject,
	}
	if err := p.registry.UpsertEndpoint(remote); err != nil {
		logger.Warn("sedp endpoint references unknown participant, dropping until spdp catches up", logger.Err(err))
		return
	}
	p.matchRemoteEndpoint(remote)
}

// frameOwnPacket wraps a single already-encoded submessage with this
// participant's own RTPS packet header.
func (p *Participant) frameOwnPacket(submessage []byte) []byte {
	hdr := submsg.PacketHeader{Version: p.cfg.ProtocolVersion, VendorID: p.cfg.VendorID, Prefix: p.cfg.Prefix}
	return submsg.AssemblePacket(hdr, [][]byte{submessage})
}

// currentCtx returns the participant's running context, or Background if
// called before Start.
func (p *Participant) currentCtx() context.Context {
	if p.ctx != nil {
		return p.ctx
	}
	return context.Background()
}
