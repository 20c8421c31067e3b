package discovery

import (
	"time"

	"github.com/hdds-team/hdds/pkg/rtps/cdr"
	"github.com/hdds-team/hdds/pkg/rtps/guid"
	"github.com/hdds-team/hdds/pkg/rtps/types"
)

// BuiltinEndpointSet is the bitmask advertised in PID_BUILTIN_ENDPOINT_SET,
// telling peers which discovery writers/readers this participant runs.
type BuiltinEndpointSet uint32

const (
	BuiltinSPDPAnnouncer    BuiltinEndpointSet = 1 << 0
	BuiltinSPDPDetector     BuiltinEndpointSet = 1 << 1
	BuiltinSEDPPubWriter    BuiltinEndpointSet = 1 << 2
	BuiltinSEDPPubReader    BuiltinEndpointSet = 1 << 3
	BuiltinSEDPSubWriter    BuiltinEndpointSet = 1 << 4
	BuiltinSEDPSubReader    BuiltinEndpointSet = 1 << 5
	BuiltinParticipantMsgWriter BuiltinEndpointSet = 1 << 10
	BuiltinParticipantMsgReader BuiltinEndpointSet = 1 << 11

	// DefaultBuiltinEndpoints is what this core always runs.
	DefaultBuiltinEndpoints = BuiltinSPDPAnnouncer | BuiltinSPDPDetector |
		BuiltinSEDPPubWriter | BuiltinSEDPPubReader |
		BuiltinSEDPSubWriter | BuiltinSEDPSubReader |
		BuiltinParticipantMsgWriter | BuiltinParticipantMsgReader
)

// SPDPPayload is the decoded form of an SPDP DATA submessage's serialized
// payload, independent of wire representation.
type SPDPPayload struct {
	ParticipantPrefix    guid.Prefix
	ProtocolVersion      types.ProtocolVersion
	VendorID             types.VendorID
	LeaseDuration        time.Duration
	MetatrafficUnicast   []types.Locator
	MetatrafficMulticast []types.Locator
	DefaultUnicast       []types.Locator
	DefaultMulticast     []types.Locator
	BuiltinEndpoints     BuiltinEndpointSet
	IdentityToken        []byte
}

// EncodeSPDP serializes an SPDP payload as an XCDR1 parameter list, little
// endian, prefixed by its encapsulation header, matching what every
// interoperating vendor stack expects for PL_CDR_LE.
func EncodeSPDP(p SPDPPayload) []byte {
	order := cdr.LittleEndian
	var pl cdr.ParameterList

	pGUID := guid.New(p.ParticipantPrefix, guid.EntityIDParticipant)
	pgBytes := pGUID.Bytes()
	w := cdr.NewWriter(order.ByteOrder())
	w.WriteOpaque(pgBytes[:])
	pl.Add(cdr.PIDParticipantGUID, w.Bytes())

	pl.Add(cdr.PIDProtocolVersion, []byte{p.ProtocolVersion.Major, p.ProtocolVersion.Minor, 0, 0})
	pl.Add(cdr.PIDVendorID, []byte{p.VendorID[0], p.VendorID[1], 0, 0})

	lw := cdr.NewWriter(order.ByteOrder())
	encodeDuration(lw, p.LeaseDuration)
	pl.Add(cdr.PIDParticipantLeaseDuration, lw.Bytes())

	for _, loc := range p.MetatrafficUnicast {
		pl.Add(cdr.PIDMetatrafficUnicastLocator, encodeLocator(order, loc))
	}
	for _, loc := range p.MetatrafficMulticast {
		pl.Add(cdr.PIDMetatrafficMulticastLocator, encodeLocator(order, loc))
	}
	for _, loc := range p.DefaultUnicast {
		pl.Add(cdr.PIDDefaultUnicastLocator, encodeLocator(order, loc))
	}
	for _, loc := range p.DefaultMulticast {
		pl.Add(cdr.PIDDefaultMulticastLocator, encodeLocator(order, loc))
	}

	pl.AddU32(cdr.PIDBuiltinEndpointSet, uint32(p.BuiltinEndpoints), order)

	if len(p.IdentityToken) > 0 {
		pl.Add(cdr.PIDIdentityToken, p.IdentityToken)
	}

	out := make([]byte, 0, 4+len(pl.Params)*16)
	hdr := cdr.EncapsulationHeader{Representation: cdr.ReprPL_CDR_LE}.Encode()
	out = append(out, hdr[:]...)
	out = append(out, pl.Encode(order)...)
	return out
}

// DecodeSPDP parses a wire payload (encapsulation header + parameter
// list) into an SPDPPayload. Unknown must-understand PIDs cause the whole
// message to be dropped, surfaced as an error.
func DecodeSPDP(data []byte) (SPDPPayload, error) {
	hdr, err := cdr.DecodeEncapsulationHeader(data)
	if err != nil {
		return SPDPPayload{}, err
	}
	pl, err := cdr.DecodeParameterList(data[4:], hdr.Representation.LittleEndian())
	if err != nil {
		return SPDPPayload{}, err
	}

	var out SPDPPayload
	order := cdr.LittleEndian
	if !hdr.Representation.LittleEndian() {
		order = cdr.BigEndian
	}

	if param, ok := pl.Get(cdr.PIDParticipantGUID); ok && len(param.Value) >= 16 {
		copy(out.ParticipantPrefix[:], param.Value[:12])
	}
	if param, ok := pl.Get(cdr.PIDProtocolVersion); ok && len(param.Value) >= 2 {
		out.ProtocolVersion = types.ProtocolVersion{Major: param.Value[0], Minor: param.Value[1]}
	}
	if param, ok := pl.Get(cdr.PIDVendorID); ok && len(param.Value) >= 2 {
		out.VendorID = types.VendorID{param.Value[0], param.Value[1]}
	}
	if param, ok := pl.Get(cdr.PIDParticipantLeaseDuration); ok {
		out.LeaseDuration = decodeDuration(cdr.NewReader(param.Value, order == cdr.LittleEndian))
	}
	out.MetatrafficUnicast = decodeLocators(pl, cdr.PIDMetatrafficUnicastLocator, order)
	out.MetatrafficMulticast = decodeLocators(pl, cdr.PIDMetatrafficMulticastLocator, order)
	out.DefaultUnicast = decodeLocators(pl, cdr.PIDDefaultUnicastLocator, order)
	out.DefaultMulticast = decodeLocators(pl, cdr.PIDDefaultMulticastLocator, order)

	if param, ok := pl.Get(cdr.PIDBuiltinEndpointSet); ok {
		r := cdr.NewReader(param.Value, order == cdr.LittleEndian)
		if v, err := r.ReadU32(); err == nil {
			out.BuiltinEndpoints = BuiltinEndpointSet(v)
		}
	}
	if param, ok := pl.Get(cdr.PIDIdentityToken); ok {
		out.IdentityToken = param.Value
	}
	return out, nil
}

func encodeLocator(order cdr.BinaryOrder, l types.Locator) []byte {
	w := cdr.NewWriter(order.ByteOrder())
	w.WriteLocator(l)
	return w.Bytes()
}

func decodeLocators(pl cdr.ParameterList, id cdr.ParameterID, order cdr.BinaryOrder) []types.Locator {
	var out []types.Locator
	for _, param := range pl.Params {
		if param.ID != id {
			continue
		}
		r := cdr.NewReader(param.Value, order == cdr.LittleEndian)
		loc, err := r.ReadLocator()
		if err != nil {
			continue
		}
		out = append(out, loc)
	}
	return out
}

// encodeDuration writes an RTPS Duration_t: seconds(i32), fraction(u32).
// Sub-second remainders finer than a second are dropped into the fraction
// field only when non-zero; this core never needs fraction precision
// finer than milliseconds for lease/deadline timing.
func encodeDuration(w *cdr.Writer, d time.Duration) {
	secs := int32(d / time.Second)
	frac := uint32((d % time.Second).Seconds() * (1 << 32))
	w.WriteI32(secs)
	w.WriteU32(frac)
}

func decodeDuration(r *cdr.Reader) time.Duration {
	secs, err := r.ReadI32()
	if err != nil {
		return 0
	}
	frac, err := r.ReadU32()
	if err != nil {
		return time.Duration(secs) * time.Second
	}
	fracDur := time.Duration(float64(frac) / (1 << 32) * float64(time.Second))
	return time.Duration(secs)*time.Second + fracDur
}
