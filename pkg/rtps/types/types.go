// Package types holds RTPS wire-level value types shared by the codec,
// discovery, writer, and reader packages: sequence numbers, locators, and
// protocol/vendor version tags.
package types

import (
	"fmt"
	"net"
)

// SequenceNumber is a signed 64-bit, per-writer monotonic sequence number.
// Wire encoding splits it into (high int32, low uint32), both little- or
// big-endian depending on the enclosing submessage's flag bit 0.
type SequenceNumber int64

// SequenceNumberUnknown is the RTPS sentinel for "no sequence number".
const SequenceNumberUnknown SequenceNumber = -1

// High returns the upper 32 bits of the sequence number as encoded on the wire.
func (s SequenceNumber) High() int32 {
	return int32(int64(s) >> 32)
}

// Low returns the lower 32 bits of the sequence number as encoded on the wire.
func (s SequenceNumber) Low() uint32 {
	return uint32(int64(s) & 0xffffffff)
}

// SequenceNumberFromParts reconstructs a SequenceNumber from its wire halves.
func SequenceNumberFromParts(high int32, low uint32) SequenceNumber {
	return SequenceNumber(int64(high)<<32 | int64(low))
}

// LocatorKind identifies the address family/transport of a Locator.
type LocatorKind int32

const (
	LocatorKindInvalid  LocatorKind = -1
	LocatorKindReserved LocatorKind = 0
	LocatorKindUDPv4    LocatorKind = 1
	LocatorKindUDPv6    LocatorKind = 2
	LocatorKindTCPv4    LocatorKind = 4
	LocatorKindTCPv6    LocatorKind = 8
)

// Locator is a network address plus port plus transport kind. RTPS always
// encodes the address as 16 bytes; IPv4 addresses occupy the last 4.
type Locator struct {
	Kind    LocatorKind
	Port    uint32
	Address [16]byte
}

// LocatorFromUDP4 builds a Locator for an IPv4 UDP endpoint.
func LocatorFromUDP4(ip net.IP, port uint32) Locator {
	var addr [16]byte
	v4 := ip.To4()
	copy(addr[12:], v4)
	return Locator{Kind: LocatorKindUDPv4, Port: port, Address: addr}
}

// IP returns the net.IP encoded by this locator.
func (l Locator) IP() net.IP {
	if l.Kind == LocatorKindUDPv4 || l.Kind == LocatorKindTCPv4 {
		return net.IP(l.Address[12:16])
	}
	return net.IP(l.Address[:])
}

// IsMulticast reports whether the encoded address is a multicast address.
func (l Locator) IsMulticast() bool {
	return l.IP().IsMulticast()
}

// String renders the locator as "kind://addr:port".
func (l Locator) String() string {
	kind := "udp"
	if l.Kind == LocatorKindTCPv4 || l.Kind == LocatorKindTCPv6 {
		kind = "tcp"
	}
	return fmt.Sprintf("%s://%s:%d", kind, l.IP(), l.Port)
}

// ProtocolVersion is the 2-byte RTPS protocol version (major, minor).
type ProtocolVersion struct {
	Major uint8
	Minor uint8
}

// ProtocolVersion23 and ProtocolVersion24 are the two wire versions this
// core interoperates with.
var (
	ProtocolVersion23 = ProtocolVersion{Major: 2, Minor: 3}
	ProtocolVersion24 = ProtocolVersion{Major: 2, Minor: 4}
)

// VendorID is the 2-byte vendor identifier carried in every RTPS header and
// in PID_VENDOR_ID, used to select the peer's dialect.
type VendorID [2]byte

// Well-known vendor ids, per the RTPS vendor registry.
var (
	VendorUnknown  = VendorID{0x00, 0x00}
	VendorRTI      = VendorID{0x01, 0x01}
	VendorOpenDDS  = VendorID{0x01, 0x02}
	VendorOpenSplice = VendorID{0x01, 0x03}
	VendorCycloneDDS = VendorID{0x01, 0x10}
	VendorFastDDS  = VendorID{0x01, 0x0f}
	VendorHdds     = VendorID{0x01, 0xff}
)
