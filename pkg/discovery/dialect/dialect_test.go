package dialect

import (
	"testing"

	"github.com/hdds-team/hdds/pkg/rtps/types"
)

func TestFromVendorIDRecognizesKnownVendors(t *testing.T) {
	cases := map[types.VendorID]Dialect{
		types.VendorFastDDS:    FastDDS,
		types.VendorRTI:        RTIConnext,
		types.VendorOpenDDS:    OpenDDS,
		types.VendorCycloneDDS: CycloneDDS,
		types.VendorUnknown:    Generic,
	}
	for vendor, want := range cases {
		if got := FromVendorID(vendor); got != want {
			t.Errorf("FromVendorID(%v) = %v, want %v", vendor, got, want)
		}
	}
}

func TestQuirksForFastDDSRequiresPreemptiveHandshake(t *testing.T) {
	q := QuirksFor(FastDDS)
	if len(q.Steps) != 3 {
		t.Fatalf("expected 3 handshake steps for FastDDS, got %d", len(q.Steps))
	}
	if q.ForceProtocolVersion24 {
		t.Fatal("FastDDS does not force protocol version 2.4")
	}
}

func TestQuirksForOpenDDSForcesVersionAndBitmapBase(t *testing.T) {
	q := QuirksFor(OpenDDS)
	if !q.ForceProtocolVersion24 {
		t.Fatal("expected OpenDDS to force protocol version 2.4")
	}
	if !q.AckNackBitmapBaseOne {
		t.Fatal("expected OpenDDS to require bitmapBase=1")
	}
}

func TestQuirksForCycloneDDSRequiresXCDR1(t *testing.T) {
	q := QuirksFor(CycloneDDS)
	if !q.RequireXCDR1 {
		t.Fatal("expected CycloneDDS to require XCDR1 advertisement")
	}
	if len(q.Steps) != 0 {
		t.Fatalf("expected no preemptive steps for CycloneDDS, got %d", len(q.Steps))
	}
}

func TestQuirksForGenericIsZeroValue(t *testing.T) {
	q := QuirksFor(Generic)
	if len(q.Steps) != 0 || q.ForceProtocolVersion24 || q.AckNackBitmapBaseOne || q.RequireXCDR1 {
		t.Fatal("expected Generic dialect to require no special handling")
	}
}
