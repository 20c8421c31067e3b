package mobility

import (
	"net"
	"sync"
	"testing"
)

type fakeJoiner struct {
	mu      sync.Mutex
	joined  []string
	left    []string
	failNil bool
}

func (f *fakeJoiner) JoinMulticast(group net.IP, iface *net.Interface) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = append(f.joined, group.String())
	return nil
}

func (f *fakeJoiner) LeaveMulticast(group net.IP, iface *net.Interface) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.left = append(f.left, group.String())
	return nil
}

func firstUpInterfaceName(t *testing.T) string {
	t.Helper()
	ifaces, err := net.Interfaces()
	if err != nil {
		t.Fatalf("list interfaces: %v", err)
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp != 0 {
			return iface.Name
		}
	}
	t.Skip("no up interface available to test against")
	return ""
}

func TestMulticastManagerJoinsOnAdded(t *testing.T) {
	name := firstUpInterfaceName(t)
	joiner := &fakeJoiner{}
	m := NewMulticastManager(joiner, []net.IP{net.ParseIP("239.255.0.1")})

	m.HandleEvent(Event{Kind: Added, Interface: name})

	joiner.mu.Lock()
	defer joiner.mu.Unlock()
	if len(joiner.joined) != 1 || joiner.joined[0] != "239.255.0.1" {
		t.Fatalf("expected one join for 239.255.0.1, got %+v", joiner.joined)
	}
}

func TestMulticastManagerSkipsDuplicateAdded(t *testing.T) {
	name := firstUpInterfaceName(t)
	joiner := &fakeJoiner{}
	m := NewMulticastManager(joiner, []net.IP{net.ParseIP("239.255.0.1")})

	m.HandleEvent(Event{Kind: Added, Interface: name})
	m.HandleEvent(Event{Kind: Added, Interface: name})

	joiner.mu.Lock()
	defer joiner.mu.Unlock()
	if len(joiner.joined) != 1 {
		t.Fatalf("expected join to be idempotent, got %d joins", len(joiner.joined))
	}
}

func TestMulticastManagerLeavesOnRemoved(t *testing.T) {
	name := firstUpInterfaceName(t)
	joiner := &fakeJoiner{}
	m := NewMulticastManager(joiner, []net.IP{net.ParseIP("239.255.0.1")})

	m.HandleEvent(Event{Kind: Added, Interface: name})
	m.HandleEvent(Event{Kind: Removed, Interface: name})

	joiner.mu.Lock()
	defer joiner.mu.Unlock()
	if len(joiner.left) != 1 || joiner.left[0] != "239.255.0.1" {
		t.Fatalf("expected one leave for 239.255.0.1, got %+v", joiner.left)
	}
}

func TestMulticastManagerIgnoresRemovedWithoutPriorJoin(t *testing.T) {
	joiner := &fakeJoiner{}
	m := NewMulticastManager(joiner, []net.IP{net.ParseIP("239.255.0.1")})

	m.HandleEvent(Event{Kind: Removed, Interface: "neverjoined0"})

	joiner.mu.Lock()
	defer joiner.mu.Unlock()
	if len(joiner.left) != 0 {
		t.Fatalf("expected no leave calls for an interface never joined, got %d", len(joiner.left))
	}
}
