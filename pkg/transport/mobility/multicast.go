package mobility

import (
	"net"
	"sync"

	"github.com/hdds-team/hdds/internal/logger"
)

// Joiner is the subset of transport.UDPTransport's multicast API the
// MulticastManager drives; defined here to avoid an import cycle with
// pkg/transport.
type Joiner interface {
	JoinMulticast(group net.IP, iface *net.Interface) error
	LeaveMulticast(group net.IP, iface *net.Interface) error
}

// MulticastManager joins/leaves the SPDP discovery multicast group (and
// any configured default-data multicast group) on whichever interfaces
// the mobility poller reports as up, per §4.7.
type MulticastManager struct {
	joiner Joiner
	groups []net.IP

	mu     sync.Mutex
	joined map[string]*net.Interface // interface name -> the *net.Interface used to join
}

// NewMulticastManager creates a manager that joins every group in groups
// on each interface reported Added.
func NewMulticastManager(joiner Joiner, groups []net.IP) *MulticastManager {
	return &MulticastManager{
		joiner: joiner,
		groups: groups,
		joined: make(map[string]*net.Interface),
	}
}

// HandleEvent joins groups on Added interfaces and leaves them on Removed
// interfaces; it is meant to be wired as a Poller's EventFunc. The
// *net.Interface handed to LeaveMulticast is the one cached at join time,
// since by the time Removed fires the interface may already be gone from
// the OS's interface table.
func (m *MulticastManager) HandleEvent(ev Event) {
	switch ev.Kind {
	case Added:
		m.mu.Lock()
		_, already := m.joined[ev.Interface]
		m.mu.Unlock()
		if already {
			return
		}
		iface, err := net.InterfaceByName(ev.Interface)
		if err != nil {
			logger.Warn("multicast manager: interface lookup failed", logger.Interface(ev.Interface), logger.Err(err))
			return
		}
		for _, g := range m.groups {
			if err := m.joiner.JoinMulticast(g, iface); err != nil {
				logger.Warn("multicast join failed", logger.Interface(ev.Interface), logger.Err(err))
				return
			}
		}
		m.mu.Lock()
		m.joined[ev.Interface] = iface
		m.mu.Unlock()
	case Removed:
		m.mu.Lock()
		iface, wasJoined := m.joined[ev.Interface]
		delete(m.joined, ev.Interface)
		m.mu.Unlock()
		if !wasJoined {
			return
		}
		for _, g := range m.groups {
			if err := m.joiner.LeaveMulticast(g, iface); err != nil {
				logger.Warn("multicast leave failed", logger.Interface(ev.Interface), logger.Err(err))
			}
		}
	}
}
