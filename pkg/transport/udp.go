package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/net/ipv4"

	"github.com/hdds-team/hdds/internal/logger"
	"github.com/hdds-team/hdds/pkg/rtps/types"
)

// MaxUDPPacket is the largest datagram a UDPTransport will read; RTPS never
// exceeds this on a correctly-MTU'd network.
const MaxUDPPacket = 65535

// udpReadTimeout bounds each blocking read so the receive loop notices
// shutdown promptly, mirroring the teacher's portmap UDP server.
const udpReadTimeout = 500 * time.Millisecond

// UDPTransport owns one unicast UDP socket plus zero or more joined
// multicast groups, per §4.7's "one socket per participant bound to the
// metatraffic unicast port, plus joins on metatraffic/default multicast".
type UDPTransport struct {
	conn      *net.UDPConn
	pktConn   *ipv4.PacketConn
	localPort int

	mu      sync.Mutex
	joined  map[string]*net.Interface
	locators []types.Locator

	onReceive ReceiveFunc

	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewUDPTransport binds a unicast UDP socket on port (0 lets the OS
// choose) and returns a transport ready to Start receiving.
func NewUDPTransport(port int, onReceive ReceiveFunc) (*UDPTransport, error) {
	addr := &net.UDPAddr{Port: port}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("listen UDP :%d: %w", port, err)
	}
	t := &UDPTransport{
		conn:      conn,
		pktConn:   ipv4.NewPacketConn(conn),
		localPort: conn.LocalAddr().(*net.UDPAddr).Port,
		joined:    make(map[string]*net.Interface),
		onReceive: onReceive,
		stopCh:    make(chan struct{}),
	}
	t.locators = append(t.locators, localUnicastLocators(t.localPort)...)
	return t, nil
}

// Start launches the receive loop. Safe to call once.
func (t *UDPTransport) Start(ctx context.Context) {
	t.wg.Add(1)
	go t.recvLoop(ctx)
}

func (t *UDPTransport) recvLoop(ctx context.Context) {
	defer t.wg.Done()

	buf := make([]byte, MaxUDPPacket)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stopCh:
			return
		default:
		}

		if err := t.conn.SetReadDeadline(time.Now().Add(udpReadTimeout)); err != nil {
			return
		}
		n, addr, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-t.stopCh:
				return
			default:
				logger.Warn("udp read error", logger.Err(err))
				continue
			}
		}
		if t.onReceive == nil {
			continue
		}
		pkt := make([]byte, n)
		copy(pkt, buf[:n])
		src := types.LocatorFromUDP4(addr.IP, uint32(addr.Port))
		t.onReceive(src, pkt)
	}
}

// Send writes packet to dest over the unicast socket, regardless of
// whether dest is unicast or multicast -- the kernel handles both the
// same way for a connectionless UDP socket.
func (t *UDPTransport) Send(dest types.Locator, packet []byte) error {
	addr := &net.UDPAddr{IP: dest.IP(), Port: int(dest.Port)}
	_, err := t.conn.WriteToUDP(packet, addr)
	return err
}

// JoinMulticast joins group on iface (nil means the OS default interface),
// for metatraffic/default multicast discovery per §4.7.
func (t *UDPTransport) JoinMulticast(group net.IP, iface *net.Interface) error {
	addr := &net.UDPAddr{IP: group, Port: t.localPort}
	if err := t.pktConn.JoinGroup(iface, addr); err != nil {
		return fmt.Errorf("join multicast %s: %w", group, err)
	}
	key := group.String()
	if iface != nil {
		key = iface.Name + "/" + key
	}
	t.mu.Lock()
	t.joined[key] = iface
	t.mu.Unlock()
	return nil
}

// LeaveMulticast reverses JoinMulticast.
func (t *UDPTransport) LeaveMulticast(group net.IP, iface *net.Interface) error {
	addr := &net.UDPAddr{IP: group, Port: t.localPort}
	key := group.String()
	if iface != nil {
		key = iface.Name + "/" + key
	}
	t.mu.Lock()
	delete(t.joined, key)
	t.mu.Unlock()
	return t.pktConn.LeaveGroup(iface, addr)
}

// AddLocator registers an additional locally-reachable Locator (e.g. after
// an interface-up mobility event), so LocalLocators reflects it.
func (t *UDPTransport) AddLocator(l types.Locator) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, existing := range t.locators {
		if existing == l {
			return
		}
	}
	t.locators = append(t.locators, l)
}

// RemoveLocator drops a previously-added Locator.
func (t *UDPTransport) RemoveLocator(l types.Locator) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.locators[:0]
	for _, existing := range t.locators {
		if existing != l {
			out = append(out, existing)
		}
	}
	t.locators = out
}

// LocalLocators implements Transport.
func (t *UDPTransport) LocalLocators() []types.Locator {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]types.Locator, len(t.locators))
	copy(out, t.locators)
	return out
}

// Port returns the bound unicast port, useful when 0 was requested.
func (t *UDPTransport) Port() int {
	return t.localPort
}

// Close implements Transport.
func (t *UDPTransport) Close() error {
	t.stopOnce.Do(func() { close(t.stopCh) })
	err := t.conn.Close()
	t.wg.Wait()
	return err
}

// localUnicastLocators enumerates every non-loopback IPv4 address on the
// host, bound to port, as a starting Locator set; the mobility poller
// keeps this current as interfaces change.
func localUnicastLocators(port int) []types.Locator {
	var out []types.Locator
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return out
	}
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		v4 := ipNet.IP.To4()
		if v4 == nil {
			continue
		}
		out = append(out, types.LocatorFromUDP4(v4, uint32(port)))
	}
	return out
}
