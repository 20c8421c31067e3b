package participant

import (
	"fmt"

	"github.com/hdds-team/hdds/internal/logger"
	"github.com/hdds-team/hdds/pkg/discovery"
	"github.com/hdds-team/hdds/pkg/history"
	"github.com/hdds-team/hdds/pkg/qos"
	"github.com/hdds-team/hdds/pkg/reader"
	"github.com/hdds-team/hdds/pkg/rtps/guid"
	"github.com/hdds-team/hdds/pkg/writer"
)

// CreateWriter creates and starts a local data writer on topic/typeName,
// registers it for SEDP announcement, and matches it against every
// compatible remote reader already known. The returned Writer is usable
// immediately; matched-reader wiring completes asynchronously as SEDP
// exchanges land.
func (p *Participant) CreateWriter(topic, typeName string, q qos.Snapshot, typeObject []byte) (*writer.Writer, error) {
	q = normalizeQoS(q)
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("participant: invalid writer QoS: %w", err)
	}

	entity := p.allocEntityID(entityKindWriter)
	g := guid.New(p.cfg.Prefix, entity)

	w := writer.New(writer.Config{
		GUID:            g,
		TopicName:       topic,
		TypeName:        typeName,
		QoS:             q,
		Send:            p.sendToLocators,
		Pool:            p.pool,
		HashMode:        history.KeyHashMD5,
		ProtocolVersion: p.cfg.ProtocolVersion,
		VendorID:        p.cfg.VendorID,
	})

	local := &discovery.LocalEndpoint{GUID: g, TopicName: topic, TypeName: typeName, IsWriter: true, QoS: q, TypeObject: typeObject}
	if err := p.registry.AddLocalEndpoint(local); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.writers[g] = w
	p.mu.Unlock()

	if p.ctx != nil {
		w.Start(p.ctx)
	}

	p.announceSEDP(local)
	p.matchLocalWriter(local, w)
	return w, nil
}

// CreateReader creates and starts a local data reader, mirroring
// CreateWriter.
func (p *Participant) CreateReader(topic, typeName string, q qos.Snapshot, typeObject []byte, keyFn reader.KeyFunc) (*reader.Reader, error) {
	q = normalizeQoS(q)
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("participant: invalid reader QoS: %w", err)
	}

	entity := p.allocEntityID(entityKindReader)
	g := guid.New(p.cfg.Prefix, entity)

	r := reader.New(reader.Config{
		GUID:            g,
		TopicName:       topic,
		TypeName:        typeName,
		QoS:             q,
		KeyFn:           keyFn,
		HashMode:        history.KeyHashMD5,
		Send:            p.sendToLocators,
		ProtocolVersion: p.cfg.ProtocolVersion,
		VendorID:        p.cfg.VendorID,
		FragmentBuffer:  p.frags,
	})

	local := &discovery.LocalEndpoint{GUID: g, TopicName: topic, TypeName: typeName, IsWriter: false, QoS: q, TypeObject: typeObject}
	if err := p.registry.AddLocalEndpoint(local); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.readers[g] = r
	p.mu.Unlock()

	if p.ctx != nil {
		r.Start(p.ctx)
	}

	p.announceSEDP(local)
	p.matchLocalReader(local, r)
	return r, nil
}

// DeleteWriter stops and removes a previously created writer.
func (p *Participant) DeleteWriter(g guid.GUID) {
	p.mu.Lock()
	w, ok := p.writers[g]
	delete(p.writers, g)
	p.mu.Unlock()
	if !ok {
		return
	}
	w.Stop()
	p.registry.RemoveLocalEndpoint(g)
}

// DeleteReader stops and removes a previously created reader.
func (p *Participant) DeleteReader(g guid.GUID) {
	p.mu.Lock()
	r, ok := p.readers[g]
	delete(p.readers, g)
	p.mu.Unlock()
	if !ok {
		return
	}
	r.Stop()
	p.registry.RemoveLocalEndpoint(g)
}

// matchLocalWriter pairs a freshly-created local writer against every
// already-known compatible remote reader.
func (p *Participant) matchLocalWriter(local *discovery.LocalEndpoint, w *writer.Writer) {
	for _, ev := range discovery.MatchLocalEndpoint(p.registry, local) {
		if !ev.Compatible {
			logger.Info("writer/reader QoS incompatible", logger.Policy(string(ev.FailedPolicy)), logger.EntityGUID(ev.LocalGUID.Bytes()[:]))
			continue
		}
		remote, ok := p.registry.Endpoint(ev.RemoteGUID)
		if !ok {
			continue
		}
		reliable := local.QoS.Reliability == qos.ReliabilityReliable && remote.QoS.Reliability == qos.ReliabilityReliable
		w.AddMatchedReader(ev.RemoteGUID, remote.UnicastLocators, remote.QoS, reliable)
	}
}

// matchLocalReader is matchLocalWriter's mirror for a freshly-created
// local reader.
func (p *Participant) matchLocalReader(local *discovery.LocalEndpoint, r *reader.Reader) {
	for _, ev := range discovery.MatchLocalEndpoint(p.registry, local) {
		if !ev.Compatible {
			logger.Info("writer/reader QoS incompatible", logger.Policy(string(ev.FailedPolicy)), logger.EntityGUID(ev.LocalGUID.Bytes()[:]))
			continue
		}
		remote, ok := p.registry.Endpoint(ev.RemoteGUID)
		if !ok {
			continue
		}
		reliable := local.QoS.Reliability == qos.ReliabilityReliable && remote.QoS.Reliability == qos.ReliabilityReliable
		r.AddMatchedWriter(ev.RemoteGUID, remote.UnicastLocators, remote.QoS, reliable)
	}
}

// matchRemoteEndpoint pairs a newly-discovered remote endpoint against
// every compatible local endpoint of the opposite role, wiring the
// matched local writer or reader's proxy set.
func (p *Participant) matchRemoteEndpoint(remote *discovery.RemoteEndpoint) {
	for _, ev := range discovery.MatchRemoteEndpoint(p.registry, remote) {
		if !ev.Compatible {
			logger.Info("writer/reader QoS incompatible", logger.Policy(string(ev.FailedPolicy)), logger.EntityGUID(ev.LocalGUID.Bytes()[:]))
			continue
		}
		p.mu.RLock()
		w, isWriter := p.writers[ev.LocalGUID]
		r, isReader := p.readers[ev.LocalGUID]
		p.mu.RUnlock()
		switch {
		case isWriter:
			reliable := w.QoS.Reliability == qos.ReliabilityReliable && remote.QoS.Reliability == qos.ReliabilityReliable
			w.AddMatchedReader(remote.GUID, remote.UnicastLocators, remote.QoS, reliable)
		case isReader:
			reliable := r.QoS.Reliability == qos.ReliabilityReliable && remote.QoS.Reliability == qos.ReliabilityReliable
			r.AddMatchedWriter(remote.GUID, remote.UnicastLocators, remote.QoS, reliable)
		}
	}
}
