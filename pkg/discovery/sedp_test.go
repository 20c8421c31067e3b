package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/hdds-team/hdds/pkg/qos"
	"github.com/hdds-team/hdds/pkg/rtps/guid"
	"github.com/hdds-team/hdds/pkg/rtps/types"
)

func TestSEDPRoundTrip(t *testing.T) {
	endpointGUID := guid.New(guid.NewPrefix(), guid.EntityIDSEDPPubWriter)
	participantGUID := guid.New(guid.NewPrefix(), guid.EntityIDParticipant)

	snapshot := qos.Default()
	snapshot.Reliability = qos.ReliabilityReliable
	snapshot.Durability = qos.DurabilityTransientLocal
	snapshot.History = qos.HistoryKeepLast
	snapshot.Depth = 8
	snapshot.Deadline = 500 * time.Millisecond
	snapshot.Ownership = qos.OwnershipExclusive
	snapshot.OwnershipStrength = 42
	snapshot.Liveliness = qos.LivelinessManualByTopic
	snapshot.LivelinessLease = 3 * time.Second
	snapshot.Partition = []string{"alpha", "beta"}

	in := SEDPPayload{
		EndpointGUID:    endpointGUID,
		ParticipantGUID: participantGUID,
		TopicName:       "HelloWorldTopic",
		TypeName:        "HelloWorld",
		QoS:             snapshot,
		UnicastLocators: []types.Locator{types.LocatorFromUDP4(net.ParseIP("10.0.0.9"), 7413)},
	}

	encoded := EncodeSEDP(in)
	out, err := DecodeSEDP(encoded)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}

	if out.EndpointGUID != in.EndpointGUID {
		t.Fatalf("endpoint guid mismatch: got %v want %v", out.EndpointGUID, in.EndpointGUID)
	}
	if out.ParticipantGUID != in.ParticipantGUID {
		t.Fatalf("participant guid mismatch: got %v want %v", out.ParticipantGUID, in.ParticipantGUID)
	}
	if out.TopicName != in.TopicName || out.TypeName != in.TypeName {
		t.Fatalf("topic/type mismatch: got %q/%q", out.TopicName, out.TypeName)
	}
	if out.QoS.Reliability != qos.ReliabilityReliable {
		t.Fatalf("expected reliability preserved, got %v", out.QoS.Reliability)
	}
	if out.QoS.Durability != qos.DurabilityTransientLocal {
		t.Fatalf("expected durability preserved, got %v", out.QoS.Durability)
	}
	if out.QoS.Depth != 8 {
		t.Fatalf("expected depth preserved, got %d", out.QoS.Depth)
	}
	if out.QoS.Deadline != 500*time.Millisecond {
		t.Fatalf("expected deadline preserved, got %v", out.QoS.Deadline)
	}
	if out.QoS.Ownership != qos.OwnershipExclusive || out.QoS.OwnershipStrength != 42 {
		t.Fatalf("expected ownership preserved, got %v/%d", out.QoS.Ownership, out.QoS.OwnershipStrength)
	}
	if out.QoS.Liveliness != qos.LivelinessManualByTopic || out.QoS.LivelinessLease != 3*time.Second {
		t.Fatalf("expected liveliness preserved, got %v/%v", out.QoS.Liveliness, out.QoS.LivelinessLease)
	}
	if len(out.QoS.Partition) != 2 || out.QoS.Partition[0] != "alpha" || out.QoS.Partition[1] != "beta" {
		t.Fatalf("expected partitions preserved, got %v", out.QoS.Partition)
	}
	if len(out.UnicastLocators) != 1 || out.UnicastLocators[0].Port != 7413 {
		t.Fatalf("expected unicast locator preserved, got %v", out.UnicastLocators)
	}
}

func TestSEDPDefaultQoSOmitsOptionalPIDs(t *testing.T) {
	in := SEDPPayload{
		EndpointGUID:    guid.New(guid.NewPrefix(), guid.EntityIDSEDPSubWriter),
		ParticipantGUID: guid.New(guid.NewPrefix(), guid.EntityIDParticipant),
		TopicName:       "t",
		TypeName:        "T",
		QoS:             qos.Default(),
	}
	encoded := EncodeSEDP(in)
	out, err := DecodeSEDP(encoded)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if out.QoS.Deadline != 0 {
		t.Fatalf("expected zero deadline for default QoS, got %v", out.QoS.Deadline)
	}
	if len(out.QoS.Partition) != 0 {
		t.Fatalf("expected no partitions for default QoS, got %v", out.QoS.Partition)
	}
}
