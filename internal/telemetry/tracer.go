package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for RTPS operations, following OpenTelemetry
// semantic-convention shape (dotted namespaces) even though none of these
// are standardized attributes.
const (
	// ========================================================================
	// Participant / entity attributes
	// ========================================================================
	AttrDomainID        = "dds.domain_id"
	AttrParticipantGUID = "dds.participant_guid"
	AttrEntityGUID      = "dds.entity_guid"
	AttrTopic           = "dds.topic"
	AttrTypeName        = "dds.type_name"
	AttrRole            = "dds.role" // writer | reader
	AttrDialect         = "dds.dialect"

	// ========================================================================
	// RTPS protocol attributes
	// ========================================================================
	AttrSubmessage = "rtps.submessage"
	AttrSeqNum     = "rtps.seq_num"
	AttrFirstSN    = "rtps.first_sn"
	AttrLastSN     = "rtps.last_sn"
	AttrFragNum    = "rtps.frag_num"
	AttrFragTotal  = "rtps.frag_total"

	// ========================================================================
	// Transport attributes
	// ========================================================================
	AttrTransportKind = "transport.kind" // udp | tcp
	AttrLocatorAddr   = "transport.locator_addr"
	AttrLocatorPort   = "transport.locator_port"
	AttrBytes         = "transport.bytes"
	AttrInterface     = "transport.interface"

	// ========================================================================
	// QoS attributes
	// ========================================================================
	AttrPolicy      = "qos.policy"
	AttrReliability = "qos.reliability"
	AttrDurability  = "qos.durability"

	// ========================================================================
	// Congestion control attributes
	// ========================================================================
	AttrRateBps = "congestion.rate_bps"
)

// Span names for operations.
// Format: <subsystem>.<operation>
const (
	SpanSPDPAnnounce   = "spdp.announce"
	SpanSPDPReceive    = "spdp.receive"
	SpanSEDPAnnounce   = "sedp.announce"
	SpanSEDPMatch      = "sedp.match"
	SpanLeaseCheck     = "discovery.lease_check"
	SpanReannounce     = "mobility.reannounce"

	SpanWriterWrite       = "writer.write"
	SpanWriterHeartbeat   = "writer.heartbeat"
	SpanWriterACKNACK     = "writer.acknack"
	SpanWriterRetransmit  = "writer.retransmit"
	SpanWriterGap         = "writer.gap"

	SpanReaderIngress   = "reader.ingress"
	SpanReaderTake      = "reader.take"
	SpanReaderRead      = "reader.read"
	SpanReaderACKNACK   = "reader.acknack"

	SpanFragmentInsert  = "fragment.insert"
	SpanFragmentExpire  = "fragment.expire"

	SpanTransportSend   = "transport.send"
	SpanTransportRecv   = "transport.recv"

	SpanCongestionTick = "congestion.tick"
)

// DomainID returns an attribute for the DDS domain id
func DomainID(id uint32) attribute.KeyValue {
	return attribute.Int64(AttrDomainID, int64(id))
}

// ParticipantGUID returns an attribute for a GUID prefix, hex-encoded
func ParticipantGUID(prefix []byte) attribute.KeyValue {
	return attribute.String(AttrParticipantGUID, fmt.Sprintf("%x", prefix))
}

// EntityGUID returns an attribute for an endpoint GUID, hex-encoded
func EntityGUID(guid []byte) attribute.KeyValue {
	return attribute.String(AttrEntityGUID, fmt.Sprintf("%x", guid))
}

// Topic returns an attribute for the topic name
func Topic(name string) attribute.KeyValue {
	return attribute.String(AttrTopic, name)
}

// TypeName returns an attribute for the type name
func TypeName(name string) attribute.KeyValue {
	return attribute.String(AttrTypeName, name)
}

// Role returns an attribute for writer/reader role
func Role(role string) attribute.KeyValue {
	return attribute.String(AttrRole, role)
}

// Dialect returns an attribute for the selected vendor dialect
func Dialect(dialect string) attribute.KeyValue {
	return attribute.String(AttrDialect, dialect)
}

// Submessage returns an attribute for the submessage kind
func Submessage(kind string) attribute.KeyValue {
	return attribute.String(AttrSubmessage, kind)
}

// SeqNum returns an attribute for a sequence number
func SeqNum(sn int64) attribute.KeyValue {
	return attribute.Int64(AttrSeqNum, sn)
}

// FirstSN returns an attribute for a HEARTBEAT first sequence number
func FirstSN(sn int64) attribute.KeyValue {
	return attribute.Int64(AttrFirstSN, sn)
}

// LastSN returns an attribute for a HEARTBEAT last sequence number
func LastSN(sn int64) attribute.KeyValue {
	return attribute.Int64(AttrLastSN, sn)
}

// FragNum returns an attribute for a DATA_FRAG fragment number
func FragNum(n uint32) attribute.KeyValue {
	return attribute.Int64(AttrFragNum, int64(n))
}

// FragTotal returns an attribute for the total DATA_FRAG fragment count
func FragTotal(n uint32) attribute.KeyValue {
	return attribute.Int64(AttrFragTotal, int64(n))
}

// TransportKind returns an attribute for the transport kind (udp/tcp)
func TransportKind(kind string) attribute.KeyValue {
	return attribute.String(AttrTransportKind, kind)
}

// LocatorAddr returns an attribute for a locator address
func LocatorAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrLocatorAddr, addr)
}

// LocatorPort returns an attribute for a locator port
func LocatorPort(port int) attribute.KeyValue {
	return attribute.Int(AttrLocatorPort, port)
}

// Bytes returns an attribute for a byte count
func Bytes(n int) attribute.KeyValue {
	return attribute.Int(AttrBytes, n)
}

// Interface returns an attribute for a network interface name
func Interface(name string) attribute.KeyValue {
	return attribute.String(AttrInterface, name)
}

// Policy returns an attribute for a mismatched QoS policy id
func Policy(policy string) attribute.KeyValue {
	return attribute.String(AttrPolicy, policy)
}

// RateBps returns an attribute for the current AIMD rate
func RateBps(rate float64) attribute.KeyValue {
	return attribute.Float64(AttrRateBps, rate)
}

// StartWriterSpan starts a span for a writer-engine operation.
func StartWriterSpan(ctx context.Context, operation string, writerGUID []byte, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{EntityGUID(writerGUID), Role("writer")}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, "writer."+operation, trace.WithAttributes(allAttrs...))
}

// StartReaderSpan starts a span for a reader-engine operation.
func StartReaderSpan(ctx context.Context, operation string, readerGUID []byte, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{EntityGUID(readerGUID), Role("reader")}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, "reader."+operation, trace.WithAttributes(allAttrs...))
}

// StartDiscoverySpan starts a span for an SPDP/SEDP operation.
func StartDiscoverySpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "discovery."+operation, trace.WithAttributes(attrs...))
}

// StartTransportSpan starts a span for a transport send/recv operation.
func StartTransportSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "transport."+operation, trace.WithAttributes(attrs...))
}

// StartCongestionSpan starts a span for an AIMD rate-controller tick.
func StartCongestionSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "congestion."+operation, trace.WithAttributes(attrs...))
}
