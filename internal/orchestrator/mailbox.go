package orchestrator

import "sync/atomic"

// Mailbox holds at most one pending failure message for the presentation
// layer. Put replaces any undrained message; Take returns it and clears the
// slot in one atomic step, so a message is never shown twice.
//
// The zero value is an empty Mailbox. All methods are safe for concurrent use.
type Mailbox struct {
	slot atomic.Pointer[string]
}

// Put stores msg, replacing any message not yet taken.
func (m *Mailbox) Put(msg string) {
	m.slot.Store(&msg)
}

// Take returns the pending message and clears the slot.
//
// Postcondition: Returns (msg, true) exactly once per Put, or ("", false).
func (m *Mailbox) Take() (string, bool) {
	p := m.slot.Swap(nil)
	if p == nil {
		return "", false
	}
	return *p, true
}

// Pending reports whether a message is waiting without taking it.
func (m *Mailbox) Pending() bool {
	return m.slot.Load() != nil
}
