package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging.
// These keys are shared across every subsystem (discovery, writer, reader,
// transport) so log aggregation and querying stay consistent regardless of
// which module emitted the record.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Module & Participant
	// ========================================================================
	KeyModule          = "module"           // Subsystem: discovery, writer, reader, transport, congestion
	KeyParticipantGUID = "participant_guid" // Owning participant GUID (hex)
	KeyDialect         = "dialect"          // Vendor dialect: hybrid, fastdds, rti, opendds, cyclone
	KeyDomainID        = "domain_id"        // DDS domain id

	// ========================================================================
	// Entities
	// ========================================================================
	KeyEntityGUID = "entity_guid" // Writer/reader GUID (hex)
	KeyTopic      = "topic"       // Topic name
	KeyTypeName   = "type_name"   // Type name
	KeyRole       = "role"        // writer | reader

	// ========================================================================
	// RTPS Protocol
	// ========================================================================
	KeySubmessage = "submessage" // Submessage kind: DATA, HEARTBEAT, ACKNACK, ...
	KeySeqNum     = "seq_num"    // Sequence number
	KeyFirstSN    = "first_sn"   // HEARTBEAT/history first sequence number
	KeyLastSN     = "last_sn"    // HEARTBEAT/history last sequence number
	KeyCount      = "count"      // Submessage monotonic count field
	KeyFragNum    = "frag_num"   // DATA_FRAG fragment number
	KeyFragTotal  = "frag_total" // DATA_FRAG total fragment count

	// ========================================================================
	// Transport
	// ========================================================================
	KeyLocatorAddr = "locator_addr" // Locator address
	KeyLocatorPort = "locator_port" // Locator port
	KeyTransport   = "transport"    // udp | tcp
	KeyBytes       = "bytes"        // Byte count sent/received
	KeyInterface   = "interface"    // Network interface name

	// ========================================================================
	// QoS / Matching
	// ========================================================================
	KeyPolicy      = "policy"       // QoS policy id that mismatched
	KeyReliability = "reliability"  // best_effort | reliable
	KeyDurability  = "durability"   // volatile | transient_local | persistent

	// ========================================================================
	// Congestion / Rate Control
	// ========================================================================
	KeyRateBps  = "rate_bps"  // Current AIMD rate, bytes/sec
	KeyMinRate  = "min_rate"  // AIMD floor
	KeyMaxRate  = "max_rate"  // AIMD ceiling

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorCode  = "error_code"  // Numeric error code
	KeyAttempt    = "attempt"     // Retry attempt number
	KeyMaxRetries = "max_retries" // Maximum retry attempts
	KeyLeaseMS    = "lease_ms"    // Lease duration in milliseconds
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Module returns a slog.Attr for the emitting subsystem
func Module(name string) slog.Attr {
	return slog.String(KeyModule, name)
}

// ParticipantGUID returns a slog.Attr for a GUID prefix formatted as hex
func ParticipantGUID(prefix []byte) slog.Attr {
	return slog.String(KeyParticipantGUID, fmt.Sprintf("%x", prefix))
}

// ParticipantGUIDStr returns a slog.Attr for an already-formatted GUID string
func ParticipantGUIDStr(s string) slog.Attr {
	return slog.String(KeyParticipantGUID, s)
}

// Dialect returns a slog.Attr for the selected vendor dialect
func Dialect(d string) slog.Attr {
	return slog.String(KeyDialect, d)
}

// DomainID returns a slog.Attr for the DDS domain id
func DomainID(id uint32) slog.Attr {
	return slog.Uint64(KeyDomainID, uint64(id))
}

// EntityGUID returns a slog.Attr for an endpoint GUID formatted as hex
func EntityGUID(guid []byte) slog.Attr {
	return slog.String(KeyEntityGUID, fmt.Sprintf("%x", guid))
}

// Topic returns a slog.Attr for the topic name
func Topic(name string) slog.Attr {
	return slog.String(KeyTopic, name)
}

// TypeName returns a slog.Attr for the type name
func TypeName(name string) slog.Attr {
	return slog.String(KeyTypeName, name)
}

// Role returns a slog.Attr for writer/reader role
func Role(role string) slog.Attr {
	return slog.String(KeyRole, role)
}

// Submessage returns a slog.Attr for the submessage kind
func Submessage(kind string) slog.Attr {
	return slog.String(KeySubmessage, kind)
}

// SeqNum returns a slog.Attr for a sequence number
func SeqNum(sn int64) slog.Attr {
	return slog.Int64(KeySeqNum, sn)
}

// FirstSN returns a slog.Attr for a HEARTBEAT first sequence number
func FirstSN(sn int64) slog.Attr {
	return slog.Int64(KeyFirstSN, sn)
}

// LastSN returns a slog.Attr for a HEARTBEAT last sequence number
func LastSN(sn int64) slog.Attr {
	return slog.Int64(KeyLastSN, sn)
}

// Count returns a slog.Attr for a submessage monotonic count field
func Count(c uint32) slog.Attr {
	return slog.Uint64(KeyCount, uint64(c))
}

// FragNum returns a slog.Attr for a DATA_FRAG fragment number
func FragNum(n uint32) slog.Attr {
	return slog.Uint64(KeyFragNum, uint64(n))
}

// FragTotal returns a slog.Attr for DATA_FRAG total fragment count
func FragTotal(n uint32) slog.Attr {
	return slog.Uint64(KeyFragTotal, uint64(n))
}

// LocatorAddr returns a slog.Attr for a locator address
func LocatorAddr(addr string) slog.Attr {
	return slog.String(KeyLocatorAddr, addr)
}

// LocatorPort returns a slog.Attr for a locator port
func LocatorPort(port int) slog.Attr {
	return slog.Int(KeyLocatorPort, port)
}

// Transport returns a slog.Attr for the transport kind (udp/tcp)
func Transport(kind string) slog.Attr {
	return slog.String(KeyTransport, kind)
}

// Bytes returns a slog.Attr for a byte count
func Bytes(n int) slog.Attr {
	return slog.Int(KeyBytes, n)
}

// Interface returns a slog.Attr for a network interface name
func Interface(name string) slog.Attr {
	return slog.String(KeyInterface, name)
}

// Policy returns a slog.Attr for a mismatched QoS policy id
func Policy(p string) slog.Attr {
	return slog.String(KeyPolicy, p)
}

// RateBps returns a slog.Attr for the current AIMD rate
func RateBps(rate float64) slog.Attr {
	return slog.Float64(KeyRateBps, rate)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for a numeric error code
func ErrorCode(code int) slog.Attr {
	return slog.Int(KeyErrorCode, code)
}

// Attempt returns a slog.Attr for a retry attempt number
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// MaxRetries returns a slog.Attr for the maximum retry attempts
func MaxRetries(n int) slog.Attr {
	return slog.Int(KeyMaxRetries, n)
}

// LeaseMS returns a slog.Attr for a lease duration in milliseconds
func LeaseMS(ms int64) slog.Attr {
	return slog.Int64(KeyLeaseMS, ms)
}
