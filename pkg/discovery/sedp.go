package discovery

import (
	"github.com/hdds-team/hdds/pkg/qos"
	"github.com/hdds-team/hdds/pkg/rtps/cdr"
	"github.com/hdds-team/hdds/pkg/rtps/guid"
	"github.com/hdds-team/hdds/pkg/rtps/types"
)

// DataRepresentation bits advertised in PID_DATA_REPRESENTATION. This core
// always advertises both so CycloneDDS (XCDR1-default) and OpenDDS
// (XCDR2) readers both match, per §4.2.
const (
	DataRepresentationXCDR1 uint16 = 0x0000
	DataRepresentationXCDR2 uint16 = 0x0002
)

// SEDPPayload is the decoded form of a SEDP DATA submessage announcing one
// writer or reader.
type SEDPPayload struct {
	EndpointGUID    guid.GUID
	ParticipantGUID guid.GUID
	TopicName       string
	TypeName        string
	QoS             qos.Snapshot
	UnicastLocators []types.Locator
	TypeObject      []byte
}

// EncodeSEDP serializes a SEDP announcement as a PL_CDR_LE parameter list.
// PID_ENDPOINT_GUID is written first, per §4.2's ordering requirement for
// FastDDS compatibility.
func EncodeSEDP(p SEDPPayload) []byte {
	order := cdr.LittleEndian
	var pl cdr.ParameterList

	eg := p.EndpointGUID.Bytes()
	pl.Add(cdr.PIDEndpointGUID, eg[:])

	pg := p.ParticipantGUID.Bytes()
	pl.Add(cdr.PIDParticipantGUID, pg[:])

	pl.AddString(cdr.PIDTopicName, p.TopicName, order)
	pl.AddString(cdr.PIDTypeName, p.TypeName, order)

	encodeQoS(&pl, p.QoS, order)

	pl.AddU32(cdr.PIDDataRepresentation, uint32(DataRepresentationXCDR1)|uint32(DataRepresentationXCDR2)<<16, order)

	for _, loc := range p.UnicastLocators {
		pl.Add(cdr.PIDUnicastLocator, encodeLocator(order, loc))
	}
	if len(p.TypeObject) > 0 {
		pl.Add(cdr.PIDTypeObject, p.TypeObject)
	}

	out := make([]byte, 0, 4+len(pl.Params)*16)
	hdr := cdr.EncapsulationHeader{Representation: cdr.ReprPL_CDR_LE}.Encode()
	out = append(out, hdr[:]...)
	out = append(out, pl.Encode(order)...)
	return out
}

// DecodeSEDP parses a wire SEDP payload into a SEDPPayload.
func DecodeSEDP(data []byte) (SEDPPayload, error) {
	hdr, err := cdr.DecodeEncapsulationHeader(data)
	if err != nil {
		return SEDPPayload{}, err
	}
	pl, err := cdr.DecodeParameterList(data[4:], hdr.Representation.LittleEndian())
	if err != nil {
		return SEDPPayload{}, err
	}

	order := cdr.LittleEndian
	if !hdr.Representation.LittleEndian() {
		order = cdr.BigEndian
	}
	little := order == cdr.LittleEndian

	var out SEDPPayload
	out.QoS = qos.Default()

	if param, ok := pl.Get(cdr.PIDEndpointGUID); ok && len(param.Value) >= 16 {
		copy(out.EndpointGUID.Prefix[:], param.Value[:12])
		copy(out.EndpointGUID.Entity[:], param.Value[12:16])
	}
	if param, ok := pl.Get(cdr.PIDParticipantGUID); ok && len(param.Value) >= 16 {
		copy(out.ParticipantGUID.Prefix[:], param.Value[:12])
		copy(out.ParticipantGUID.Entity[:], param.Value[12:16])
	}
	if param, ok := pl.Get(cdr.PIDTopicName); ok {
		out.TopicName, _ = cdr.NewReader(param.Value, little).ReadString()
	}
	if param, ok := pl.Get(cdr.PIDTypeName); ok {
		out.TypeName, _ = cdr.NewReader(param.Value, little).ReadString()
	}

	decodeQoS(pl, &out.QoS, order)

	out.UnicastLocators = decodeLocators(pl, cdr.PIDUnicastLocator, order)
	if param, ok := pl.Get(cdr.PIDTypeObject); ok {
		out.TypeObject = param.Value
	}
	return out, nil
}

// encodeQoS writes reliability, durability, history, ownership and
// liveliness unconditionally, and deadline, ownership strength, latency
// budget and partition only when set. LatencyBudget is informational only:
// Match never consults it. Lifespan, ResourceLimits and the tag fields are
// not advertised.
func encodeQoS(pl *cdr.ParameterList, s qos.Snapshot, order cdr.BinaryOrder) {
	w := cdr.NewWriter(order.ByteOrder())
	w.WriteI32(int32(s.Reliability))
	encodeDuration(w, s.MaxBlockingTime)
	pl.Add(cdr.PIDReliability, w.Bytes())

	pl.AddU32(cdr.PIDDurability, uint32(s.Durability), order)

	hw := cdr.NewWriter(order.ByteOrder())
	hw.WriteI32(int32(s.History))
	hw.WriteI32(int32(s.Depth))
	pl.Add(cdr.PIDHistory, hw.Bytes())

	if s.Deadline > 0 {
		dw := cdr.NewWriter(order.ByteOrder())
		encodeDuration(dw, s.Deadline)
		pl.Add(cdr.PIDDeadline, dw.Bytes())
	}
	if s.LatencyBudget > 0 {
		lw := cdr.NewWriter(order.ByteOrder())
		encodeDuration(lw, s.LatencyBudget)
		pl.Add(cdr.PIDLatencyBudget, lw.Bytes())
	}

	pl.AddU32(cdr.PIDOwnership, uint32(s.Ownership), order)
	if s.Ownership == qos.OwnershipExclusive {
		pl.AddU32(cdr.PIDOwnershipStrength, uint32(s.OwnershipStrength), order)
	}

	lvw := cdr.NewWriter(order.ByteOrder())
	lvw.WriteI32(int32(s.Liveliness))
	encodeDuration(lvw, s.LivelinessLease)
	pl.Add(cdr.PIDLiveliness, lvw.Bytes())

	if len(s.Partition) > 0 {
		pw := cdr.NewWriter(order.ByteOrder())
		pw.WriteSequenceLength(len(s.Partition))
		for _, part := range s.Partition {
			pw.WriteString(part)
		}
		pl.Add(cdr.PIDPartition, pw.Bytes())
	}
}

func decodeQoS(pl cdr.ParameterList, s *qos.Snapshot, order cdr.BinaryOrder) {
	little := order == cdr.LittleEndian

	if param, ok := pl.Get(cdr.PIDReliability); ok {
		r := cdr.NewReader(param.Value, little)
		if kind, err := r.ReadI32(); err == nil {
			s.Reliability = qos.ReliabilityKind(kind)
		}
		s.MaxBlockingTime = decodeDuration(r)
	}
	if param, ok := pl.Get(cdr.PIDDurability); ok {
		r := cdr.NewReader(param.Value, little)
		if v, err := r.ReadU32(); err == nil {
			s.Durability = qos.DurabilityKind(v)
		}
	}
	if param, ok := pl.Get(cdr.PIDHistory); ok {
		r := cdr.NewReader(param.Value, little)
		if kind, err := r.ReadI32(); err == nil {
			s.History = qos.HistoryKind(kind)
		}
		if depth, err := r.ReadI32(); err == nil {
			s.Depth = int(depth)
		}
	}
	if param, ok := pl.Get(cdr.PIDDeadline); ok {
		s.Deadline = decodeDuration(cdr.NewReader(param.Value, little))
	}
	if param, ok := pl.Get(cdr.PIDLatencyBudget); ok {
		s.LatencyBudget = decodeDuration(cdr.NewReader(param.Value, little))
	}
	if param, ok := pl.Get(cdr.PIDOwnership); ok {
		r := cdr.NewReader(param.Value, little)
		if v, err := r.ReadU32(); err == nil {
			s.Ownership = qos.OwnershipKind(v)
		}
	}
	if param, ok := pl.Get(cdr.PIDOwnershipStrength); ok {
		r := cdr.NewReader(param.Value, little)
		if v, err := r.ReadU32(); err == nil {
			s.OwnershipStrength = int32(v)
		}
	}
	if param, ok := pl.Get(cdr.PIDLiveliness); ok {
		r := cdr.NewReader(param.Value, little)
		if kind, err := r.ReadI32(); err == nil {
			s.Liveliness = qos.LivelinessKind(kind)
		}
		s.LivelinessLease = decodeDuration(r)
	}
	if param, ok := pl.Get(cdr.PIDPartition); ok {
		r := cdr.NewReader(param.Value, little)
		n, err := r.ReadSequenceLength()
		if err == nil {
			parts := make([]string, 0, n)
			for i := 0; i < n; i++ {
				str, err := r.ReadString()
				if err != nil {
					break
				}
				parts = append(parts, str)
			}
			s.Partition = parts
		}
	}
}
