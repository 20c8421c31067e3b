// Package guid implements the RTPS GUID type: a 16-byte identifier split
// into a 12-byte participant prefix and a 4-byte entity id.
package guid

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// PrefixLen is the length in bytes of a GUID prefix.
const PrefixLen = 12

// EntityIDLen is the length in bytes of an entity id.
const EntityIDLen = 4

// Prefix identifies a participant. It is the first 12 bytes of every GUID
// owned by that participant.
type Prefix [PrefixLen]byte

// EntityID identifies an entity (writer, reader, or the participant itself)
// within a participant.
type EntityID [EntityIDLen]byte

// Well-known entity ids from the RTPS 2.3 specification, annex 9.3.
var (
	EntityIDUnknown             = EntityID{0x00, 0x00, 0x00, 0x00}
	EntityIDParticipant         = EntityID{0x00, 0x00, 0x01, 0xc1}
	EntityIDSPDPWriter          = EntityID{0x00, 0x01, 0x00, 0xc2}
	EntityIDSPDPReader          = EntityID{0x00, 0x01, 0x00, 0xc7}
	EntityIDSEDPPubWriter       = EntityID{0x00, 0x03, 0x00, 0xc2}
	EntityIDSEDPPubReader       = EntityID{0x00, 0x03, 0x00, 0xc7}
	EntityIDSEDPSubWriter       = EntityID{0x00, 0x04, 0x00, 0xc2}
	EntityIDSEDPSubReader       = EntityID{0x00, 0x04, 0x00, 0xc7}
	EntityIDParticipantMsgWrite = EntityID{0x00, 0x02, 0x00, 0xc2}
	EntityIDParticipantMsgRead  = EntityID{0x00, 0x02, 0x00, 0xc7}
)

// GUID is a globally unique 16-byte RTPS entity identifier.
type GUID struct {
	Prefix Prefix
	Entity EntityID
}

// Unknown is the zero-valued GUID, used as a sentinel.
var Unknown = GUID{}

// New builds a GUID from a prefix and an entity id.
func New(prefix Prefix, entity EntityID) GUID {
	return GUID{Prefix: prefix, Entity: entity}
}

// NewPrefix derives a pseudo-random participant prefix from a fresh UUID.
// The first 12 bytes of the UUID are used verbatim; this is sufficient
// entropy to avoid prefix collisions among independently started
// participants on the same network.
func NewPrefix() Prefix {
	id := uuid.New()
	var p Prefix
	copy(p[:], id[:PrefixLen])
	return p
}

// Bytes returns the 16-byte wire representation.
func (g GUID) Bytes() [16]byte {
	var out [16]byte
	copy(out[:12], g.Prefix[:])
	copy(out[12:], g.Entity[:])
	return out
}

// IsUnknown reports whether g is the zero GUID.
func (g GUID) IsUnknown() bool {
	return g == Unknown
}

// String renders the GUID as prefix:entity hex, e.g. "a1b2c3...:000100c2".
func (g GUID) String() string {
	return fmt.Sprintf("%s:%s", hex.EncodeToString(g.Prefix[:]), hex.EncodeToString(g.Entity[:]))
}

// ParticipantGUID returns the builtin-participant GUID for this prefix.
func ParticipantGUID(prefix Prefix) GUID {
	return GUID{Prefix: prefix, Entity: EntityIDParticipant}
}

// HexPrefix renders just the prefix as hex, used in log fields.
func (p Prefix) HexPrefix() string {
	return hex.EncodeToString(p[:])
}
