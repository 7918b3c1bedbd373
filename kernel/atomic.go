package kernel

import "sync"

// Section is the node-wide critical section. It stands in for the interrupt
// mask: while it is held, no wake, unblock or timer callback observes the
// thread table half-updated.
//
// A Section must never be held across a context switch. Sections do not nest
// at run time; helpers that expect it held carry a Locked suffix.
type Section struct {
	mu sync.Mutex
}

// Atomic is an open critical section, closed by End.
type Atomic struct {
	s *Section
}

// Start enters the section.
func (s *Section) Start() Atomic {
	s.mu.Lock()
	return Atomic{s: s}
}

// End leaves the section.
func (a Atomic) End() {
	a.s.mu.Unlock()
}
