package participant

import (
	"time"

	"github.com/hdds-team/hdds/pkg/rtps/guid"
	"github.com/hdds-team/hdds/pkg/rtps/types"
	"github.com/hdds-team/hdds/pkg/transport"
)

// TransportMode selects which transports a participant brings up.
type TransportMode int

const (
	// TransportUDP runs UDP only (unicast + metatraffic multicast),
	// the default for interoperability with every RTPS vendor stack.
	TransportUDP TransportMode = iota
	// TransportTCP runs TCP only, for deployments where UDP is blocked.
	TransportTCP
	// TransportBoth runs UDP and TCP side by side; a matched endpoint's
	// locators decide which one carries its traffic.
	TransportBoth
)

// Default background-task cadences, per §4.8.
const (
	DefaultLeaseDuration   = 10 * time.Second
	DefaultFragmentTimeout = 500 * time.Millisecond
	DefaultMobilityPoll    = 1 * time.Second
)

// Config configures a new Participant. Zero-valued durations fall back to
// package defaults; BindAddress defaults to all interfaces.
type Config struct {
	DomainID      int
	ParticipantID int

	// Prefix is this participant's GUID prefix. A zero value causes one
	// to be generated via guid.NewPrefix.
	Prefix guid.Prefix

	VendorID        types.VendorID
	ProtocolVersion types.ProtocolVersion

	TransportMode TransportMode
	BindAddress   string
	PortMapping   transport.PortMapping

	// InterfaceFilter lists interface names for the IP mobility poller.
	// The participant does not pass it to the poller, which watches every
	// up, non-loopback IPv4 interface whatever this holds.
	InterfaceFilter []string

	LeaseDuration   time.Duration
	HoldDownPeriod  time.Duration
	FragmentTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.VendorID == (types.VendorID{}) {
		c.VendorID = types.VendorHdds
	}
	if c.ProtocolVersion == (types.ProtocolVersion{}) {
		c.ProtocolVersion = types.ProtocolVersion24
	}
	if c.PortMapping == (transport.PortMapping{}) {
		c.PortMapping = transport.DefaultPortMapping()
	}
	if c.LeaseDuration <= 0 {
		c.LeaseDuration = DefaultLeaseDuration
	}
	if c.FragmentTimeout <= 0 {
		c.FragmentTimeout = DefaultFragmentTimeout
	}
	if c.Prefix == (guid.Prefix{}) {
		c.Prefix = guid.NewPrefix()
	}
	return c
}
