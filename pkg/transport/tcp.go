package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/hdds-team/hdds/internal/logger"
	"github.com/hdds-team/hdds/pkg/rtps/types"
)

// DefaultMaxFrameSize is the largest TCP-framed RTPS packet accepted
// before the connection is dropped as misbehaving.
const DefaultMaxFrameSize = 16 << 20

// readState is the per-connection partial-read state machine: a length
// prefix then a body, read across however many TCP reads it takes to
// arrive.
type readState int

const (
	readingLength readState = iota
	readingBody
)

// TCPTransport listens for length-prefixed RTPS packets: a 4-byte
// big-endian length, then that many bytes of packet. Dialed connections to
// peers are cached and reused.
type TCPTransport struct {
	listener net.Listener
	maxFrame int

	onReceive ReceiveFunc

	mu      sync.Mutex
	dialed  map[string]net.Conn

	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewTCPTransport listens on port (0 lets the OS choose).
func NewTCPTransport(port int, onReceive ReceiveFunc) (*TCPTransport, error) {
	ln, err := net.Listen("tcp4", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("listen TCP :%d: %w", port, err)
	}
	return &TCPTransport{
		listener:  ln,
		maxFrame:  DefaultMaxFrameSize,
		onReceive: onReceive,
		dialed:    make(map[string]net.Conn),
		stopCh:    make(chan struct{}),
	}, nil
}

// Start launches the accept loop. Safe to call once.
func (t *TCPTransport) Start(ctx context.Context) {
	t.wg.Add(1)
	go t.acceptLoop(ctx)
}

func (t *TCPTransport) acceptLoop(ctx context.Context) {
	defer t.wg.Done()
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.stopCh:
				return
			default:
				logger.Warn("tcp accept error", logger.Err(err))
				return
			}
		}
		t.wg.Add(1)
		go t.serveConn(ctx, conn)
	}
}

func (t *TCPTransport) serveConn(ctx context.Context, conn net.Conn) {
	defer t.wg.Done()
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	state := readingLength
	var lenBuf [4]byte
	var lenRead int
	var expected int
	var bodyBuf []byte
	var bodyRead int

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stopCh:
			return
		default:
		}

		switch state {
		case readingLength:
			n, err := conn.Read(lenBuf[lenRead:])
			if err != nil {
				if err != io.EOF {
					logger.Warn("tcp length read error", logger.LocatorAddr(remote), logger.Err(err))
				}
				return
			}
			lenRead += n
			if lenRead < 4 {
				continue
			}
			expected = int(binary.BigEndian.Uint32(lenBuf[:]))
			if expected > t.maxFrame {
				logger.Warn("tcp frame too large", logger.LocatorAddr(remote), logger.Bytes(expected))
				return
			}
			bodyBuf = make([]byte, expected)
			bodyRead = 0
			lenRead = 0
			state = readingBody
		case readingBody:
			if expected == 0 {
				t.deliver(conn, bodyBuf)
				state = readingLength
				continue
			}
			n, err := conn.Read(bodyBuf[bodyRead:])
			if err != nil {
				if err != io.EOF {
					logger.Warn("tcp body read error", logger.LocatorAddr(remote), logger.Err(err))
				}
				return
			}
			bodyRead += n
			if bodyRead < expected {
				continue
			}
			t.deliver(conn, bodyBuf)
			state = readingLength
		}
	}
}

func (t *TCPTransport) deliver(conn net.Conn, pkt []byte) {
	if t.onReceive == nil {
		return
	}
	addr, ok := conn.RemoteAddr().(*net.TCPAddr)
	var src types.Locator
	if ok {
		src = types.Locator{Kind: types.LocatorKindTCPv4, Port: uint32(addr.Port)}
		copy(src.Address[12:], addr.IP.To4())
	}
	t.onReceive(src, pkt)
}

// Send frames packet with its 4-byte big-endian length prefix and writes
// it to dest, dialing (and caching) a connection if one is not already
// open.
func (t *TCPTransport) Send(dest types.Locator, packet []byte) error {
	key := dest.String()
	t.mu.Lock()
	conn, ok := t.dialed[key]
	t.mu.Unlock()
	if !ok {
		var err error
		conn, err = net.Dial("tcp4", fmt.Sprintf("%s:%d", dest.IP(), dest.Port))
		if err != nil {
			return fmt.Errorf("dial TCP %s: %w", key, err)
		}
		t.mu.Lock()
		t.dialed[key] = conn
		t.mu.Unlock()
	}

	frame := make([]byte, 4+len(packet))
	binary.BigEndian.PutUint32(frame[0:4], uint32(len(packet)))
	copy(frame[4:], packet)
	if _, err := conn.Write(frame); err != nil {
		t.mu.Lock()
		delete(t.dialed, key)
		t.mu.Unlock()
		return fmt.Errorf("write TCP %s: %w", key, err)
	}
	return nil
}

// LocalLocators implements Transport.
func (t *TCPTransport) LocalLocators() []types.Locator {
	addr, ok := t.listener.Addr().(*net.TCPAddr)
	if !ok {
		return nil
	}
	l := types.Locator{Kind: types.LocatorKindTCPv4, Port: uint32(addr.Port)}
	if v4 := addr.IP.To4(); v4 != nil {
		copy(l.Address[12:], v4)
	}
	return []types.Locator{l}
}

// Port returns the bound listen port.
func (t *TCPTransport) Port() int {
	return t.listener.Addr().(*net.TCPAddr).Port
}

// Close implements Transport.
func (t *TCPTransport) Close() error {
	t.stopOnce.Do(func() { close(t.stopCh) })
	err := t.listener.Close()
	t.mu.Lock()
	for _, conn := range t.dialed {
		conn.Close()
	}
	t.mu.Unlock()
	t.wg.Wait()
	return err
}
