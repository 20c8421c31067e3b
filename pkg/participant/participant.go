// Package participant wires together the transport, discovery, matching,
// and writer/reader engines into one running RTPS domain participant: it
// owns the sockets, the entity registry, and every background task a
// participant needs (SPDP/SEDP announcement, lease checking, IP mobility,
// fragment expiry), and exposes create-writer/create-reader operations to
// applications.
package participant

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/hdds-team/hdds/internal/logger"
	"github.com/hdds-team/hdds/pkg/discovery"
	"github.com/hdds-team/hdds/pkg/fragment"
	"github.com/hdds-team/hdds/pkg/qos"
	"github.com/hdds-team/hdds/pkg/reader"
	"github.com/hdds-team/hdds/pkg/rtps/guid"
	"github.com/hdds-team/hdds/pkg/rtps/types"
	"github.com/hdds-team/hdds/pkg/slab"
	"github.com/hdds-team/hdds/pkg/transport"
	"github.com/hdds-team/hdds/pkg/transport/mobility"
	"github.com/hdds-team/hdds/pkg/writer"
)

// Entity-id kind bytes for user (non-builtin) endpoints, per RTPS annex
// 9.3: WITH_KEY writers/readers, since a topic's key-ness is a type-level
// property this core doesn't need to track separately at the entity-id
// layer.
const (
	entityKindWriter = 0x02
	entityKindReader = 0x07
)

// Participant is one running RTPS domain participant.
type Participant struct {
	cfg Config

	pool  *slab.Pool
	frags *fragment.Buffer

	udp *transport.UDPTransport
	tcp *transport.TCPTransport

	registry       *discovery.Registry
	announcer      *discovery.Announcer
	leaseChecker   *discovery.LeaseChecker
	fragExpirer    *fragment.Expirer
	poller         *mobility.Poller
	locatorTracker *mobility.LocatorTracker
	multicastMgr   *mobility.MulticastManager
	reannounce     *mobility.ReannounceController

	mu      sync.RWMutex
	writers map[guid.GUID]*writer.Writer
	readers map[guid.GUID]*reader.Reader
	nextID  uint32

	spdpSeq int64
	sedpSeq int64

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Participant: binds its transport socket(s) and assembles
// every discovery and mobility component, but does not yet start any
// background task (see Start).
func New(cfg Config) (*Participant, error) {
	cfg = cfg.withDefaults()

	p := &Participant{
		cfg:      cfg,
		pool:     slab.NewPool(),
		frags:    fragment.New(0, cfg.FragmentTimeout),
		registry: discovery.NewRegistry(),
		writers:  make(map[guid.GUID]*writer.Writer),
		readers:  make(map[guid.GUID]*reader.Reader),
	}

	metaPort := transport.MetatrafficUnicastPort(cfg.PortMapping, cfg.DomainID, cfg.ParticipantID)
	udp, err := transport.NewUDPTransport(metaPort, p.handlePacket)
	if err != nil {
		return nil, fmt.Errorf("participant: bind UDP transport: %w", err)
	}
	p.udp = udp

	if cfg.TransportMode == TransportTCP || cfg.TransportMode == TransportBoth {
		dataPort := transport.DefaultUnicastDataPort(cfg.PortMapping, cfg.DomainID, cfg.ParticipantID)
		tcp, err := transport.NewTCPTransport(dataPort, p.handlePacket)
		if err != nil {
			_ = p.udp.Close()
			return nil, fmt.Errorf("participant: bind TCP transport: %w", err)
		}
		p.tcp = tcp
	}

	p.fragExpirer = fragment.NewExpirer(p.frags, 0)
	p.locatorTracker = mobility.NewLocatorTracker(cfg.HoldDownPeriod)
	p.multicastMgr = mobility.NewMulticastManager(p.udp, []net.IP{net.ParseIP(transport.DiscoveryMulticastAddr)})
	p.poller = mobility.NewPoller(0, p.onMobilityEvent)
	p.leaseChecker = discovery.NewLeaseChecker(p.registry, cfg.LeaseDuration/3, p.onParticipantGone)
	p.announcer = discovery.NewAnnouncer(p.buildSPDPPayload, p.sendSPDP)
	p.reannounce = mobility.NewReannounceController(p.announcer)

	return p, nil
}

// Start launches every transport receive loop and background task. ctx's
// cancellation is the participant's master shutdown signal.
func (p *Participant) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.udp.Start(p.ctx)
	if p.tcp != nil {
		p.tcp.Start(p.ctx)
	}
	if err := p.udp.JoinMulticast(net.ParseIP(transport.DiscoveryMulticastAddr), nil); err != nil {
		logger.WarnCtx(p.ctx, "failed to join SPDP multicast group on default interface", logger.Err(err))
	}

	p.poller.Start(p.ctx)
	p.leaseChecker.Start(p.ctx)
	p.announcer.Start(p.ctx)
	p.fragExpirer.Start(p.ctx)

	logger.InfoCtx(p.ctx, "participant started", logger.ParticipantGUIDStr(p.cfg.Prefix.HexPrefix()), logger.DomainID(uint32(p.cfg.DomainID)))
}

// Stop halts every background task, stops every local writer/reader, and
// closes the underlying transports.
func (p *Participant) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.poller.Stop()
	p.leaseChecker.Stop()
	p.announcer.Stop()
	p.fragExpirer.Stop()

	p.mu.Lock()
	for _, w := range p.writers {
		w.Stop()
	}
	for _, r := range p.readers {
		r.Stop()
	}
	p.mu.Unlock()

	if p.tcp != nil {
		_ = p.tcp.Close()
	}
	_ = p.udp.Close()
}

// onMobilityEvent fans one IP topology event out to the multicast
// manager, the reannounce controller, and the locator tracker, then keeps
// the UDP transport's advertised locator set current.
func (p *Participant) onMobilityEvent(ev mobility.Event) {
	p.multicastMgr.HandleEvent(ev)
	p.reannounce.HandleEvent(ev)

	if ev.IP == nil {
		return
	}
	loc := types.LocatorFromUDP4(ev.IP, uint32(p.udp.Port()))
	switch ev.Kind {
	case mobility.Added:
		p.locatorTracker.Add(loc)
		p.udp.AddLocator(loc)
	case mobility.Removed:
		p.locatorTracker.Remove(loc)
		p.udp.RemoveLocator(loc)
	case mobility.Updated:
	}
}

// onParticipantGone tears down every matched proxy referencing a peer
// whose lease has expired, per §4.2's ParticipantLeave handling.
func (p *Participant) onParticipantGone(rp *discovery.RemoteParticipant) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, w := range p.writers {
		w.RemoveMatchedReadersForParticipant(rp.Prefix)
	}
	for _, r := range p.readers {
		r.RemoveMatchedWritersForParticipant(rp.Prefix)
	}
}

// allocEntityID returns the next user-endpoint entity id of the given
// kind byte, monotonically increasing so two local endpoints never
// collide.
func (p *Participant) allocEntityID(kind byte) guid.EntityID {
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.mu.Unlock()
	return guid.EntityID{byte(id >> 16), byte(id >> 8), byte(id), kind}
}

// localGUID returns this participant's own GUID (the builtin participant
// entity).
func (p *Participant) localGUID() guid.GUID {
	return guid.ParticipantGUID(p.cfg.Prefix)
}

// Prefix returns this participant's GUID prefix.
func (p *Participant) Prefix() guid.Prefix {
	return p.cfg.Prefix
}

// defaultLocators returns the locator set this participant currently
// advertises for metatraffic and default user data: one UDP socket serves
// both, so the same address/port pair is reused for each.
func (p *Participant) defaultLocators() []types.Locator {
	locs := p.udp.LocalLocators()
	if p.tcp != nil {
		locs = append(locs, p.tcp.LocalLocators()...)
	}
	return locs
}

// normalizeQoS fills in RTPS defaults for a zero-valued Snapshot's
// structural fields (depth, resource limits), leaving explicit caller
// choices alone.
func normalizeQoS(q qos.Snapshot) qos.Snapshot {
	if q.Depth == 0 {
		d := qos.Default()
		q.Depth = d.Depth
		q.ResourceLimits = d.ResourceLimits
	}
	return q
}
