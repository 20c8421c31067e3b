// Package metrics defines the observability boundary for a running
// participant, independent of any particular metrics backend. Pass a nil
// (or NoopStats) implementation to disable collection with zero overhead,
// the same optionality the teacher's adapter metrics interfaces offer.
package metrics

import "time"

// Stats records events for one participant's RTPS traffic and answers the
// §6 Telemetry boundary's stats() query.
//
// Implementations must be safe for concurrent use. The writer/reader
// engines and the discovery registry do not call a Stats instance;
// cmd/hdds creates one without passing it to any other package.
type Stats interface {
	// SetParticipants updates the current count of discovered remote
	// participants (including this one).
	SetParticipants(count int)

	// SetEndpoints updates the current count of known endpoints, local
	// and remote combined.
	SetEndpoints(count int)

	// RecordSampleSent records one sample handed to a writer's transport
	// send, successful or not.
	RecordSampleSent(topic string, bytes int)

	// RecordSampleReceived records one sample delivered to a reader's
	// history cache.
	RecordSampleReceived(topic string, bytes int)

	// RecordRetransmit records one HEARTBEAT-driven or NACK-driven
	// resend of a previously sent sample.
	RecordRetransmit(topic string)

	// RecordDrop records a sample that could not be delivered, tagged
	// with the reason (e.g. "resource_limit", "deadline", "stale_frag").
	RecordDrop(topic, reason string)

	// RecordRTT records one writer-to-reader round-trip measurement,
	// derived from an ACKNACK response to a HEARTBEAT.
	RecordRTT(topic string, rtt time.Duration)

	// Snapshot returns the current aggregate values for the stats()
	// boundary operation.
	Snapshot() Snapshot
}

// Snapshot is the §6 Telemetry boundary's stats() return value.
type Snapshot struct {
	Participants    int
	Endpoints       int
	SamplesSent     uint64
	SamplesReceived uint64
	Retransmits     uint64
	Drops           uint64
	RateBPS         float64
	PeakRateBPS     float64
	RTTMSP50        float64
	RTTMSP99        float64
}

// Closer is implemented by Stats backends that own background resources
// (e.g. a rate-sampling ticker) and need explicit shutdown alongside the
// owning participant.
type Closer interface {
	Close()
}

// NoopStats discards everything; it is the default when metrics are
// disabled so call sites never need a nil check.
type NoopStats struct{}

func (NoopStats) SetParticipants(int)              {}
func (NoopStats) SetEndpoints(int)                 {}
func (NoopStats) RecordSampleSent(string, int)     {}
func (NoopStats) RecordSampleReceived(string, int) {}
func (NoopStats) RecordRetransmit(string)          {}
func (NoopStats) RecordDrop(string, string)        {}
func (NoopStats) RecordRTT(string, time.Duration)  {}
func (NoopStats) Snapshot() Snapshot               { return Snapshot{} }
