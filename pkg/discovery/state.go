// Package discovery implements the SPDP/SEDP state machines: participant
// and endpoint discovery, lease tracking, and RxO matching between local
// and remote endpoints. Vendor-specific handshake quirks live in the
// dialect subpackage.
package discovery

// ParticipantState is a remote participant's position in the discovery
// lifecycle, advanced by SPDP reception and lease expiry.
type ParticipantState int

const (
	StateUnknown ParticipantState = iota
	StatePdpKnown
	StateSedpHandshaking
	StateOperational
	StateExpiring
	StateGone
)

func (s ParticipantState) String() string {
	switch s {
	case StateUnknown:
		return "Unknown"
	case StatePdpKnown:
		return "PdpKnown"
	case StateSedpHandshaking:
		return "SedpHandshaking"
	case StateOperational:
		return "Operational"
	case StateExpiring:
		return "Expiring"
	case StateGone:
		return "Gone"
	default:
		return "Invalid"
	}
}
