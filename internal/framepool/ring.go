package framepool

import "sync/atomic"

// ring is a bounded single-producer/single-consumer queue of *Frame, a Go
// port of SPSCQueue.h's Cell{sequence, data} design: each cell carries a
// sequence number that tells producer and consumer whether the slot is
// ready for them, avoiding any lock or CAS loop beyond the sequence check
// itself.
type ring struct {
	mask  uint64
	cells []cell

	enqPos uint64
	_      [56]byte // cache-line pad between producer and consumer cursors
	deqPos uint64
}

type cell struct {
	sequence uint64
	data     *Frame
}

func newRing(capacity int) *ring {
	if capacity&(capacity-1) != 0 {
		capacity = nextPow2(capacity)
	}
	r := &ring{
		mask:  uint64(capacity - 1),
		cells: make([]cell, capacity),
	}
	for i := range r.cells {
		r.cells[i].sequence = uint64(i)
	}
	return r
}

func (r *ring) tryPush(f *Frame) bool {
	pos := atomic.LoadUint64(&r.enqPos)
	c := &r.cells[pos&r.mask]
	seq := atomic.LoadUint64(&c.sequence)
	if seq != pos {
		return false // full
	}
	c.data = f
	atomic.StoreUint64(&c.sequence, pos+1)
	atomic.StoreUint64(&r.enqPos, pos+1)
	return true
}

func (r *ring) tryPop() (*Frame, bool) {
	pos := atomic.LoadUint64(&r.deqPos)
	c := &r.cells[pos&r.mask]
	seq := atomic.LoadUint64(&c.sequence)
	if seq != pos+1 {
		return nil, false // empty
	}
	f := c.data
	c.data = nil
	atomic.StoreUint64(&c.sequence, pos+uint64(len(r.cells)))
	atomic.StoreUint64(&r.deqPos, pos+1)
	return f, true
}

// approxLen is a racy best-effort depth estimate, adequate for the
// pop_latest heuristic which only needs an order-of-magnitude signal.
func (r *ring) approxLen() int {
	enq := atomic.LoadUint64(&r.enqPos)
	deq := atomic.LoadUint64(&r.deqPos)
	if enq < deq {
		return 0
	}
	return int(enq - deq)
}
