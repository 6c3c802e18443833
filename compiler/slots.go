package compiler

import (
	"errors"
	"fmt"
)

// ErrUnresolvedName is returned for an identifier that is neither an
// argument nor a local of the current method.
var ErrUnresolvedName = errors.New("unresolved name")

// Slots numbers the storage of one method. Slot 0 holds the receiver,
// arguments follow from 1 in declaration order, then locals, then
// temporaries. Temporaries are never reused within a method.
type Slots struct {
	named map[string]int
	next  int // next free temporary
	high  int // highest slot handed out
}

// NewSlots assigns slots to the arguments and locals of m.
func NewSlots(m *MethodDecl) *Slots {
	s := &Slots{named: make(map[string]int)}
	n := 0
	for _, a := range m.Args {
		n++
		s.named[a.Name] = n
	}
	for _, l := range m.Locals {
		n++
		s.named[l.Name] = n
	}
	s.next = n + 1
	s.high = n
	return s
}

// Of returns the slot of an argument or local.
func (s *Slots) Of(name string) (int, error) {
	n, ok := s.named[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnresolvedName, name)
	}
	return n, nil
}

// Temp allocates a fresh temporary slot above every slot allocated so far.
func (s *Slots) Temp() int {
	n := s.next
	s.next++
	s.high = n
	return n
}

// HighWater returns the highest slot index in use.
func (s *Slots) HighWater() int {
	return s.high
}

// Limit is the locals limit for the method.
func (s *Slots) Limit() int {
	return s.high + 1
}
