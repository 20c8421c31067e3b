package cdr

import (
	"encoding/binary"
	"fmt"
)

// ParameterID is the 16-bit tag of a discovery parameter-list entry.
type ParameterID uint16

// Parameter ids consumed by the discovery engine. Values per the RTPS 2.3
// annex and the vendor-specific extensions actually seen on the wire.
const (
	PIDPadDummy                ParameterID = 0x0000
	PIDSentinel                ParameterID = 0x0001
	PIDParticipantLeaseDuration ParameterID = 0x0002
	PIDTopicName               ParameterID = 0x0005
	PIDTypeName                ParameterID = 0x0007
	PIDProtocolVersion         ParameterID = 0x0015
	PIDVendorID                ParameterID = 0x0016
	PIDReliability             ParameterID = 0x001a
	PIDMetatrafficMulticastLocator ParameterID = 0x0033
	PIDMetatrafficUnicastLocator   ParameterID = 0x0032
	PIDDefaultUnicastLocator       ParameterID = 0x0031
	PIDDefaultMulticastLocator     ParameterID = 0x0045
	PIDParticipantGUID         ParameterID = 0x0050
	PIDEndpointGUID            ParameterID = 0x005a
	PIDBuiltinEndpointSet      ParameterID = 0x0058
	PIDTypeObject              ParameterID = 0x0072
	PIDDataRepresentation      ParameterID = 0x0073
	PIDUnicastLocator          ParameterID = 0x002f
	PIDIdentityToken           ParameterID = 0x1001
	PIDDurability              ParameterID = 0x001d
	PIDPartition               ParameterID = 0x0029
	PIDDeadline                ParameterID = 0x0023
	PIDLatencyBudget           ParameterID = 0x0027
	PIDOwnership               ParameterID = 0x001f
	PIDOwnershipStrength       ParameterID = 0x0006
	PIDLiveliness              ParameterID = 0x001b
	PIDDomainID                ParameterID = 0x000f

	// PIDHistory is not part of the OMG RTPS PID registry — most vendors
	// infer history behavior from Durability alone — but this core
	// advertises it explicitly so late-joining TransientLocal readers can
	// size their sample cache without a vendor-specific fallback.
	PIDHistory ParameterID = 0x4001
)

// mustUnderstandBit marks a PID whose unknown-to-us form must cause the
// enclosing message to be dropped rather than skipped, per §4.1.
const mustUnderstandBit ParameterID = 0x8000

// MustUnderstand reports whether the PID has the "must understand" marker
// bit set.
func (p ParameterID) MustUnderstand() bool {
	return p&mustUnderstandBit != 0
}

// Parameter is one entry of a discovery parameter list: id, raw value
// bytes already 4-byte aligned per the wire format.
type Parameter struct {
	ID    ParameterID
	Value []byte
}

// ParameterList is an ordered sequence of Parameters, as exchanged by
// SPDP/SEDP, terminated on the wire by PIDSentinel.
type ParameterList struct {
	Params []Parameter
}

// Get returns the first parameter with the given id, if present.
func (pl ParameterList) Get(id ParameterID) (Parameter, bool) {
	for _, p := range pl.Params {
		if p.ID == id {
			return p, true
		}
	}
	return Parameter{}, false
}

// Add appends a raw parameter.
func (pl *ParameterList) Add(id ParameterID, value []byte) {
	pl.Params = append(pl.Params, Parameter{ID: id, Value: value})
}

// AddString appends a PID whose value is a CDR string.
func (pl *ParameterList) AddString(id ParameterID, s string, order BinaryOrder) {
	w := NewWriter(order.ByteOrder())
	w.WriteString(s)
	pl.Add(id, w.Bytes())
}

// AddU32 appends a PID whose value is a single uint32.
func (pl *ParameterList) AddU32(id ParameterID, v uint32, order BinaryOrder) {
	w := NewWriter(order.ByteOrder())
	w.WriteU32(v)
	pl.Add(id, w.Bytes())
}

// Encode serializes the list, 4-byte-aligning each value and terminating
// with PIDSentinel/length-0.
func (pl ParameterList) Encode(order BinaryOrder) []byte {
	w := NewWriter(order.ByteOrder())
	for _, p := range pl.Params {
		w.WriteU16(uint16(p.ID))
		padded := align4(len(p.Value))
		w.WriteU16(uint16(padded))
		w.WriteOpaque(p.Value)
		for i := len(p.Value); i < padded; i++ {
			w.WriteU8(0)
		}
	}
	w.WriteU16(uint16(PIDSentinel))
	w.WriteU16(0)
	return w.Bytes()
}

// DecodeParameterList reads a parameter list up to the PIDSentinel
// terminator. Unknown PIDs are skipped unless they carry the
// must-understand bit, in which case decoding stops and an error is
// returned so the caller can drop the enclosing message.
func DecodeParameterList(data []byte, littleEndian bool) (ParameterList, error) {
	r := NewReader(data, littleEndian)
	var pl ParameterList
	for {
		if r.Remaining() < 4 {
			return pl, fmt.Errorf("%w: parameter list missing sentinel", ErrTruncatedData)
		}
		idRaw, err := r.ReadU16()
		if err != nil {
			return pl, err
		}
		id := ParameterID(idRaw)
		length, err := r.ReadU16()
		if err != nil {
			return pl, err
		}
		if id == PIDSentinel {
			break
		}
		if id.MustUnderstand() {
			return pl, fmt.Errorf("%w: unknown must-understand parameter %#04x", ErrInvalidFormat, id)
		}
		value, err := r.ReadOpaque(int(length))
		if err != nil {
			return pl, fmt.Errorf("%w: parameter %#04x length %d", ErrTruncatedData, id, length)
		}
		pl.Params = append(pl.Params, Parameter{ID: id, Value: value})
	}
	return pl, nil
}

func align4(n int) int {
	return (n + 3) &^ 3
}

// BinaryOrder selects CDR byte order independent of encoding.Binary types,
// so callers don't need to import encoding/binary directly.
type BinaryOrder bool

const (
	BigEndian    BinaryOrder = false
	LittleEndian BinaryOrder = true
)

// ByteOrder returns the encoding/binary.ByteOrder matching this selector.
func (o BinaryOrder) ByteOrder() binary.ByteOrder {
	if o {
		return binary.LittleEndian
	}
	return binary.BigEndian
}
