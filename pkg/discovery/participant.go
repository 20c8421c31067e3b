package discovery

import (
	"time"

	"github.com/hdds-team/hdds/pkg/qos"
	"github.com/hdds-team/hdds/pkg/rtps/guid"
	"github.com/hdds-team/hdds/pkg/rtps/types"
)

// RemoteParticipant is a peer participant as built up by SPDP reception.
type RemoteParticipant struct {
	Prefix          guid.Prefix
	VendorID        types.VendorID
	ProtocolVersion types.ProtocolVersion
	DomainID        int

	MetatrafficUnicast   []types.Locator
	MetatrafficMulticast []types.Locator
	DefaultUnicast       []types.Locator
	DefaultMulticast     []types.Locator

	LeaseDuration time.Duration
	LastSeen      time.Time

	IdentityToken []byte

	State ParticipantState

	// Dialect is the vendor quirk tag derived from VendorID on first
	// packet; empty until assigned by the discovery engine.
	Dialect string
}

// Expired reports whether the participant's lease has lapsed as of now.
func (p *RemoteParticipant) Expired(now time.Time) bool {
	if p.LeaseDuration <= 0 {
		return false
	}
	return now.Sub(p.LastSeen) > p.LeaseDuration
}

// RemoteEndpoint is a peer writer or reader as built up by SEDP reception.
type RemoteEndpoint struct {
	GUID            guid.GUID
	OwnerPrefix     guid.Prefix
	TopicName       string
	TypeName        string
	IsWriter        bool
	QoS             qos.Snapshot
	UnicastLocators []types.Locator

	TypeObject []byte // opaque, see pkg/xtypes for interpretation
}

// LocalEndpoint is one of this participant's own writers or readers,
// advertised over SEDP and matched against discovered remote endpoints.
type LocalEndpoint struct {
	GUID      guid.GUID
	TopicName string
	TypeName  string
	IsWriter  bool
	QoS       qos.Snapshot

	// TypeObject is the opaque serialized type descriptor advertised
	// alongside this endpoint's SEDP announcement, see pkg/xtypes.
	TypeObject []byte
}
