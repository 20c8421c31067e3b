// Package dialect selects and applies the vendor-specific discovery
// handshake quirks required for interop with FastDDS, RTI Connext,
// OpenDDS, and CycloneDDS, indexed by the VendorID carried in every RTPS
// header.
package dialect

import "github.com/hdds-team/hdds/pkg/rtps/types"

// Dialect names a peer's vendor handshake behavior, derived from its
// VendorID on first packet.
type Dialect string

const (
	Generic    Dialect = "generic"
	FastDDS    Dialect = "fastdds"
	RTIConnext Dialect = "rti"
	OpenDDS    Dialect = "opendds"
	CycloneDDS Dialect = "cyclonedds"
)

// FromVendorID maps a wire VendorID to the dialect whose quirks this core
// applies. Unrecognized vendors fall back to Generic, which requires no
// preemptive handshake — the common case for compliant implementations.
func FromVendorID(v types.VendorID) Dialect {
	switch v {
	case types.VendorFastDDS:
		return FastDDS
	case types.VendorRTI:
		return RTIConnext
	case types.VendorOpenDDS:
		return OpenDDS
	case types.VendorCycloneDDS:
		return CycloneDDS
	default:
		return Generic
	}
}

// HandshakeStep is one discovery-phase action this core must take before
// a peer of a given dialect will release SEDP DATA(w), beyond the normal
// SPDP/SEDP exchange.
type HandshakeStep int

const (
	// StepPreemptiveAckNackToSedpPubWriter sends an ACKNACK with
	// bitmapBase=0, numBits=0 to the peer's SEDP publications writer
	// before it will release DATA(w).
	StepPreemptiveAckNackToSedpPubWriter HandshakeStep = iota
	// StepEmptyHeartbeatFromSedpSubWriter sends an empty HEARTBEAT
	// (firstSN=1, lastSN=0, count=1) from the local SEDP subscriptions
	// writer.
	StepEmptyHeartbeatFromSedpSubWriter
	// StepAckNackToParticipantMessageWriter sends an ACKNACK to the
	// peer's P2P BuiltinParticipantMessage writer (entity 0x0002c2).
	StepAckNackToParticipantMessageWriter
	// StepFiveAckNacksOnSpdp sends five separate ACKNACKs (publications,
	// subscriptions, participant-message, type-lookup request,
	// type-lookup reply) immediately on SPDP discovery, bitmapBase=1
	// with an empty bitmap.
	StepFiveAckNacksOnSpdp
	// StepAckNackPerSedpData acknowledges every received SEDP DATA(w)
	// with its own ACKNACK.
	StepAckNackPerSedpData
)

// Quirks describes one dialect's required handshake steps and wire
// constraints, consulted by the discovery engine when a peer's dialect is
// first determined and whenever it emits SEDP/ACKNACK traffic toward that
// peer.
type Quirks struct {
	Steps []HandshakeStep

	// ForceProtocolVersion24 requires header version 2.4 on every packet
	// sent to this peer (OpenDDS).
	ForceProtocolVersion24 bool

	// AckNackBitmapBaseOne, when set, means "I have nothing, send
	// everything from 1": the initial ACKNACK this core sends uses
	// bitmapBase=1 with an empty bitmap rather than the normal
	// highest_received+1 base (OpenDDS).
	AckNackBitmapBaseOne bool

	// RequireXCDR1 requires PID_DATA_REPRESENTATION to advertise XCDR1
	// even though this core's own default wire representation is XCDR1
	// already — CycloneDDS treats its absence as a hard mismatch.
	RequireXCDR1 bool
}

// QuirksFor returns the handshake requirements for a dialect. Generic
// peers get a zero-value Quirks: no preemptive steps, no version
// pinning, no bitmap override.
func QuirksFor(d Dialect) Quirks {
	switch d {
	case FastDDS, RTIConnext:
		return Quirks{
			Steps: []HandshakeStep{
				StepPreemptiveAckNackToSedpPubWriter,
				StepEmptyHeartbeatFromSedpSubWriter,
				StepAckNackToParticipantMessageWriter,
			},
		}
	case OpenDDS:
		return Quirks{
			Steps: []HandshakeStep{
				StepFiveAckNacksOnSpdp,
				StepAckNackPerSedpData,
			},
			ForceProtocolVersion24: true,
			AckNackBitmapBaseOne:   true,
		}
	case CycloneDDS:
		return Quirks{RequireXCDR1: true}
	default:
		return Quirks{}
	}
}
