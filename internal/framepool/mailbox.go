package framepool

import "sync/atomic"

// Mailbox is the single-slot atomic handoff between decoder and renderer.
// Writer and reader both Exchange; the writer discards (releases) any
// frame it displaces, and the reader releases the frame back to the pool
// once it finishes rendering it.
type Mailbox struct {
	slot atomic.Pointer[Frame]
}

// Put installs f as the pending frame, releasing whatever frame it
// displaces (the renderer never saw it).
func (m *Mailbox) Put(f *Frame) {
	old := m.slot.Swap(f)
	if old != nil {
		old.Release()
	}
}

// Take removes and returns the pending frame, or nil if none is pending.
func (m *Mailbox) Take() *Frame {
	return m.slot.Swap(nil)
}
