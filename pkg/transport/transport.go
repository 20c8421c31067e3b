// Package transport implements the UDP and TCP datagram/stream carriers a
// participant sends and receives RTPS packets over, plus the well-known
// port formula used to derive metatraffic and default data ports from a
// domain id and participant id.
package transport

import "github.com/hdds-team/hdds/pkg/rtps/types"

// Well-known port constants, overridable via Config.CustomPortMapping.
const (
	DefaultPB = 7400
	DefaultDG = 250
	DefaultPG = 2
	DefaultD0 = 0
	DefaultD1 = 10
	DefaultD2 = 1
)

// PortMapping holds the PB/DG/PG/d0/d1/d2 constants the well-known port
// formulas are built from. Zero value is DefaultPB/DG/PG/D0/D1/D2.
type PortMapping struct {
	PB, DG, PG, D0, D1, D2 int
}

// defaults fills any zero field with its package default.
func (m PortMapping) defaults() PortMapping {
	if m.PB == 0 {
		m.PB = DefaultPB
	}
	if m.DG == 0 {
		m.DG = DefaultDG
	}
	if m.PG == 0 {
		m.PG = DefaultPG
	}
	// D0/D1/D2 legitimately default to 0, 10, 1 -- but a caller who leaves
	// the whole struct zero-valued wants package defaults for all six, so
	// an all-zero PortMapping is treated as "unset" at the call site
	// instead (see DefaultPortMapping).
	return m
}

// DefaultPortMapping is the standard RTPS port mapping.
func DefaultPortMapping() PortMapping {
	return PortMapping{PB: DefaultPB, DG: DefaultDG, PG: DefaultPG, D0: DefaultD0, D1: DefaultD1, D2: DefaultD2}
}

// MetatrafficMulticastPort returns PB + DG*domain + d0.
func MetatrafficMulticastPort(m PortMapping, domain int) int {
	m = resolve(m)
	return m.PB + m.DG*domain + m.D0
}

// MetatrafficUnicastPort returns PB + DG*domain + PG*participant + d1.
func MetatrafficUnicastPort(m PortMapping, domain, participant int) int {
	m = resolve(m)
	return m.PB + m.DG*domain + m.PG*participant + m.D1
}

// DefaultMulticastDataPort returns PB + DG*domain + d2.
func DefaultMulticastDataPort(m PortMapping, domain int) int {
	m = resolve(m)
	return m.PB + m.DG*domain + m.D2
}

// DefaultUnicastDataPort returns PB + DG*domain + PG*participant + d1 + 1,
// i.e. one past the metatraffic unicast port, per §6's
// `7400 + 250*domain + 2*participant + 11` formula.
func DefaultUnicastDataPort(m PortMapping, domain, participant int) int {
	m = resolve(m)
	return m.PB + m.DG*domain + m.PG*participant + m.D1 + 1
}

func resolve(m PortMapping) PortMapping {
	if (m == PortMapping{}) {
		return DefaultPortMapping()
	}
	return m.defaults()
}

// DiscoveryMulticastAddr is the well-known SPDP multicast group for every
// domain.
const DiscoveryMulticastAddr = "239.255.0.1"

// Transport sends and receives raw RTPS packets addressed by Locator.
// UDPTransport and TCPTransport both implement it; the participant runtime
// is transport-agnostic above this boundary.
type Transport interface {
	// Send transmits packet to dest. Neither implementation sets a write
	// deadline: a write blocks while the socket's send buffer is full, and
	// TCPTransport also blocks while dialing a peer it has no connection to.
	Send(dest types.Locator, packet []byte) error

	// LocalLocators returns every address this transport is reachable at,
	// for SPDP's metatraffic/default locator lists.
	LocalLocators() []types.Locator

	// Close releases the underlying socket(s).
	Close() error
}

// ReceiveFunc is invoked once per received packet, with the packet bytes
// and the Locator it arrived from.
type ReceiveFunc func(src types.Locator, packet []byte)
