// Package reader implements the reader engine: DATA/DATA_FRAG ingress,
// fragment reassembly, READ/TAKE delivery, ACKNACK scheduling, and the
// per-instance deadline watchdog.
package reader

import "sync"

// StatusKind is one bit in a reader's StatusCondition mask.
type StatusKind uint32

const (
	StatusDataAvailable StatusKind = 1 << iota
	StatusDeadlineMissed
	StatusLivelinessChanged
	StatusRequestedIncompatibleQos
	StatusSubscriptionMatched
)

// StatusCondition is the bit mask an application waits on for reader
// events; set on ingress and cleared when the application drains the
// corresponding state.
type StatusCondition struct {
	mu   sync.Mutex
	mask StatusKind
}

// Set raises one or more status bits.
func (s *StatusCondition) Set(kind StatusKind) {
	s.mu.Lock()
	s.mask |= kind
	s.mu.Unlock()
}

// Clear lowers one or more status bits, called when the application has
// consumed the corresponding event (e.g. drained the sample cache for
// DataAvailable, or read the deadline-missed count for DeadlineMissed).
func (s *StatusCondition) Clear(kind StatusKind) {
	s.mu.Lock()
	s.mask &^= kind
	s.mu.Unlock()
}

// Test reports whether every bit in kind is currently set.
func (s *StatusCondition) Test(kind StatusKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mask&kind == kind
}

// Mask returns the full current bit mask.
func (s *StatusCondition) Mask() StatusKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mask
}
