package discovery

import (
	"fmt"
	"sync"
	"time"

	"github.com/hdds-team/hdds/pkg/rtps/guid"
)

// Registry holds every remote participant and endpoint this participant
// has learned about via SPDP/SEDP, plus the local endpoints advertised
// out. It is the single source of truth consulted by lease expiry, SEDP
// announcement, and endpoint matching.
type Registry struct {
	mu sync.RWMutex

	participants map[guid.Prefix]*RemoteParticipant
	endpoints    map[guid.GUID]*RemoteEndpoint
	local        map[guid.GUID]*LocalEndpoint
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		participants: make(map[guid.Prefix]*RemoteParticipant),
		endpoints:    make(map[guid.GUID]*RemoteEndpoint),
		local:        make(map[guid.GUID]*LocalEndpoint),
	}
}

// UpsertParticipant records or refreshes a remote participant from a
// received SPDP DATA, advancing Unknown/Expiring participants back to
// PdpKnown and stamping LastSeen. Returns the stored record and whether
// this is the participant's first appearance.
func (r *Registry) UpsertParticipant(p *RemoteParticipant) (*RemoteParticipant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, known := r.participants[p.Prefix]
	if !known {
		p.State = StatePdpKnown
		p.LastSeen = time.Now()
		r.participants[p.Prefix] = p
		return p, true
	}

	existing.VendorID = p.VendorID
	existing.ProtocolVersion = p.ProtocolVersion
	existing.DomainID = p.DomainID
	existing.MetatrafficUnicast = p.MetatrafficUnicast
	existing.MetatrafficMulticast = p.MetatrafficMulticast
	existing.DefaultUnicast = p.DefaultUnicast
	existing.DefaultMulticast = p.DefaultMulticast
	existing.LeaseDuration = p.LeaseDuration
	existing.IdentityToken = p.IdentityToken
	existing.Dialect = p.Dialect
	existing.LastSeen = time.Now()
	if existing.State == StateExpiring || existing.State == StateUnknown {
		existing.State = StatePdpKnown
	}
	return existing, false
}

// Participant returns the remote participant for prefix, if known.
func (r *Registry) Participant(prefix guid.Prefix) (*RemoteParticipant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.participants[prefix]
	return p, ok
}

// SetParticipantState transitions a remote participant's state.
func (r *Registry) SetParticipantState(prefix guid.Prefix, state ParticipantState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.participants[prefix]; ok {
		p.State = state
	}
}

// ListParticipants returns every known remote participant.
func (r *Registry) ListParticipants() []*RemoteParticipant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*RemoteParticipant, 0, len(r.participants))
	for _, p := range r.participants {
		out = append(out, p)
	}
	return out
}

// ExpireParticipants walks every remote participant and transitions
// lapsed leases Operational/PdpKnown → Expiring → Gone. A participant
// that reaches Gone is removed from the registry along with every
// endpoint it owns, and is returned to the caller so it can emit
// ParticipantLeave exactly once.
func (r *Registry) ExpireParticipants(now time.Time) []*RemoteParticipant {
	r.mu.Lock()
	defer r.mu.Unlock()

	var gone []*RemoteParticipant
	for prefix, p := range r.participants {
		if p.State == StateGone {
			continue
		}
		if !p.Expired(now) {
			continue
		}
		switch p.State {
		case StateExpiring:
			p.State = StateGone
			gone = append(gone, p)
			delete(r.participants, prefix)
			r.removeEndpointsForOwnerLocked(prefix)
		default:
			p.State = StateExpiring
		}
	}
	return gone
}

func (r *Registry) removeEndpointsForOwnerLocked(owner guid.Prefix) {
	for g, ep := range r.endpoints {
		if ep.OwnerPrefix == owner {
			delete(r.endpoints, g)
		}
	}
}

// UpsertEndpoint records or refreshes a remote endpoint from a received
// SEDP DATA. Returns an error if the endpoint's owning participant has
// not yet been discovered via SPDP.
func (r *Registry) UpsertEndpoint(ep *RemoteEndpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.participants[ep.OwnerPrefix]; !ok {
		return fmt.Errorf("discovery: endpoint %s references unknown participant %s", ep.GUID, ep.OwnerPrefix.HexPrefix())
	}
	r.endpoints[ep.GUID] = ep
	return nil
}

// Endpoint returns the remote endpoint for guid, if known.
func (r *Registry) Endpoint(g guid.GUID) (*RemoteEndpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ep, ok := r.endpoints[g]
	return ep, ok
}

// RemoveEndpoint deletes a remote endpoint, e.g. on an explicit
// disposal notification from SEDP.
func (r *Registry) RemoveEndpoint(g guid.GUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.endpoints, g)
}

// EndpointsByTopic returns every remote endpoint on the given topic/type
// pair with the given role, used by the matching engine.
func (r *Registry) EndpointsByTopic(topic, typeName string, wantWriter bool) []*RemoteEndpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*RemoteEndpoint
	for _, ep := range r.endpoints {
		if ep.TopicName == topic && ep.TypeName == typeName && ep.IsWriter == wantWriter {
			out = append(out, ep)
		}
	}
	return out
}

// AddLocalEndpoint registers one of this participant's own writers or
// readers so it can be advertised via SEDP and matched against peers.
func (r *Registry) AddLocalEndpoint(ep *LocalEndpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.local[ep.GUID]; exists {
		return fmt.Errorf("discovery: local endpoint %s already registered", ep.GUID)
	}
	r.local[ep.GUID] = ep
	return nil
}

// RemoveLocalEndpoint deregisters a local endpoint, e.g. on delete_writer.
func (r *Registry) RemoveLocalEndpoint(g guid.GUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.local, g)
}

// ListLocalEndpoints returns every local writer/reader, used to build
// outgoing SEDP announcements.
func (r *Registry) ListLocalEndpoints() []*LocalEndpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*LocalEndpoint, 0, len(r.local))
	for _, ep := range r.local {
		out = append(out, ep)
	}
	return out
}

// LocalEndpointsByTopic returns this participant's own endpoints on the
// given topic/type pair with the given role, used by the matching engine.
func (r *Registry) LocalEndpointsByTopic(topic, typeName string, wantWriter bool) []*LocalEndpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*LocalEndpoint
	for _, ep := range r.local {
		if ep.TopicName == topic && ep.TypeName == typeName && ep.IsWriter == wantWriter {
			out = append(out, ep)
		}
	}
	return out
}

// CountParticipants returns the number of known remote participants.
func (r *Registry) CountParticipants() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.participants)
}

// CountEndpoints returns the number of known remote endpoints.
func (r *Registry) CountEndpoints() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.endpoints)
}
