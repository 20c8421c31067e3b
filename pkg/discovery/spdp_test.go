package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/hdds-team/hdds/pkg/rtps/guid"
	"github.com/hdds-team/hdds/pkg/rtps/types"
)

func TestSPDPRoundTrip(t *testing.T) {
	prefix := guid.NewPrefix()
	in := SPDPPayload{
		ParticipantPrefix: prefix,
		ProtocolVersion:   types.ProtocolVersion24,
		VendorID:          types.VendorHdds,
		LeaseDuration:      10 * time.Second,
		MetatrafficUnicast: []types.Locator{types.LocatorFromUDP4(net.ParseIP("10.0.0.5"), 7411)},
		DefaultUnicast:      []types.Locator{types.LocatorFromUDP4(net.ParseIP("10.0.0.5"), 7412)},
		BuiltinEndpoints:    DefaultBuiltinEndpoints,
		IdentityToken:       []byte{0xde, 0xad, 0xbe, 0xef},
	}

	encoded := EncodeSPDP(in)
	out, err := DecodeSPDP(encoded)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}

	if out.ParticipantPrefix != prefix {
		t.Fatalf("prefix mismatch: got %v want %v", out.ParticipantPrefix, prefix)
	}
	if out.ProtocolVersion != in.ProtocolVersion {
		t.Fatalf("protocol version mismatch: got %v want %v", out.ProtocolVersion, in.ProtocolVersion)
	}
	if out.VendorID != in.VendorID {
		t.Fatalf("vendor id mismatch: got %v want %v", out.VendorID, in.VendorID)
	}
	if out.LeaseDuration != in.LeaseDuration {
		t.Fatalf("lease duration mismatch: got %v want %v", out.LeaseDuration, in.LeaseDuration)
	}
	if len(out.MetatrafficUnicast) != 1 || out.MetatrafficUnicast[0].Port != 7411 {
		t.Fatalf("metatraffic unicast locator mismatch: %v", out.MetatrafficUnicast)
	}
	if len(out.DefaultUnicast) != 1 || out.DefaultUnicast[0].Port != 7412 {
		t.Fatalf("default unicast locator mismatch: %v", out.DefaultUnicast)
	}
	if out.BuiltinEndpoints != DefaultBuiltinEndpoints {
		t.Fatalf("builtin endpoint set mismatch: got %v want %v", out.BuiltinEndpoints, DefaultBuiltinEndpoints)
	}
	if string(out.IdentityToken) != string(in.IdentityToken) {
		t.Fatalf("identity token mismatch: got %v want %v", out.IdentityToken, in.IdentityToken)
	}
}

func TestSPDPMultipleLocatorsPreserved(t *testing.T) {
	in := SPDPPayload{
		ParticipantPrefix: guid.NewPrefix(),
		MetatrafficMulticast: []types.Locator{
			types.LocatorFromUDP4(net.ParseIP("239.255.0.1"), 7400),
			types.LocatorFromUDP4(net.ParseIP("239.255.0.2"), 7400),
		},
	}
	encoded := EncodeSPDP(in)
	out, err := DecodeSPDP(encoded)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if len(out.MetatrafficMulticast) != 2 {
		t.Fatalf("expected 2 multicast locators, got %d", len(out.MetatrafficMulticast))
	}
}
