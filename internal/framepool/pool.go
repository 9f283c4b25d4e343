package framepool

import (
	"sync"
	"sync/atomic"
)

const maxPoolSize = 16

// DefaultPoolSize mirrors the source's FramePool default of 4 slots.
const DefaultPoolSize = 4

// Pool is the preallocated slot table plus an SPSC ring queue and a jitter
// tracker, grounded on FramePool.h (per-slot atomic busy flag, resize under
// a short mutex) and SPSCQueue.h (the ring itself, see ring.go).
type Pool struct {
	slots [maxPoolSize]*Frame
	inUse [maxPoolSize]int32 // atomic bool: 0 idle, 1 busy
	size  int

	width, height int64 // atomic, current target dimensions

	resizeMu sync.Mutex

	ring   *ring
	jitter jitterTracker
}

// NewPool preallocates size (capped to maxPoolSize) frames at w×h.
func NewPool(size, w, h int) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	if size > maxPoolSize {
		size = maxPoolSize
	}
	p := &Pool{size: size, ring: newRing(nextPow2(size * 2))}
	atomic.StoreInt64(&p.width, int64(w))
	atomic.StoreInt64(&p.height, int64(h))
	for i := 0; i < size; i++ {
		p.slots[i] = p.allocSlot(i, w, h)
	}
	return p
}

func (p *Pool) allocSlot(index, w, h int) *Frame {
	y, u, v, uv, sy, su, sv, suv := allocPlanar(w, h)
	return &Frame{
		Y: y, U: u, V: v, UV: uv,
		StrideY: sy, StrideU: su, StrideV: sv, StrideUV: suv,
		Width: w, Height: h,
		poolIndex: index,
		pool:      p,
	}
}

// Size returns the pool's slot count.
func (p *Pool) Size() int { return p.size }

// UsedCount returns how many slots are currently busy (not idle).
func (p *Pool) UsedCount() int {
	n := 0
	for i := 0; i < p.size; i++ {
		if atomic.LoadInt32(&p.inUse[i]) == 1 {
			n++
		}
	}
	return n
}

// Acquire reserves an idle slot by linear-scan compare-and-swap on the
// per-slot busy flag. Returns (nil, false) if every slot is busy.
func (p *Pool) Acquire() (*Frame, bool) {
	for i := 0; i < p.size; i++ {
		if atomic.CompareAndSwapInt32(&p.inUse[i], 0, 1) {
			f := p.slots[i]
			w := int(atomic.LoadInt64(&p.width))
			h := int(atomic.LoadInt64(&p.height))
			if f.Width != w || f.Height != h {
				// Reallocate this now-idle-turned-busy slot at the
				// current target dimensions (resize() skips busy slots).
				f = p.allocSlot(i, w, h)
				p.slots[i] = f
			}
			atomic.StoreInt32(&f.refCount, 1)
			return f, true
		}
	}
	return nil, false
}

func (p *Pool) release(index int) {
	atomic.StoreInt32(&p.inUse[index], 0)
}

// Push enqueues handle onto the SPSC ring, sampling arrival jitter. On
// queue-full the frame is returned to the pool and false is reported; it is
// never silently dropped without returning ownership.
func (p *Pool) Push(f *Frame, arrivalNanos int64) bool {
	p.jitter.onArrival(arrivalNanos)
	if p.ring.tryPush(f) {
		return true
	}
	f.Release()
	return false
}

// Pop dequeues the oldest frame, or (nil, false) if the ring is empty.
func (p *Pool) Pop() (*Frame, bool) {
	return p.ring.tryPop()
}

// PopLatest drains the ring and returns only the newest frame, releasing
// the rest back to the pool. Chosen by callers when the jitter tracker
// reports high jitter or backlog, per §4.1.
func (p *Pool) PopLatest() (*Frame, bool) {
	var latest *Frame
	for {
		f, ok := p.ring.tryPop()
		if !ok {
			break
		}
		if latest != nil {
			latest.Release()
		}
		latest = f
	}
	return latest, latest != nil
}

// ShouldPopLatest reports whether the consumer should prefer PopLatest this
// tick, per the §4.1 jitter/backlog heuristic.
func (p *Pool) ShouldPopLatest() bool {
	return p.jitter.avgMillis() > 8 || p.ring.approxLen() > 2
}

// Resize atomically publishes new target dimensions; idle slots are
// reallocated immediately under a short mutex, busy slots keep their old
// allocation and are reallocated on their next Acquire.
func (p *Pool) Resize(w, h int) {
	p.resizeMu.Lock()
	defer p.resizeMu.Unlock()
	atomic.StoreInt64(&p.width, int64(w))
	atomic.StoreInt64(&p.height, int64(h))
	for i := 0; i < p.size; i++ {
		if atomic.LoadInt32(&p.inUse[i]) == 0 {
			p.slots[i] = p.allocSlot(i, w, h)
		}
	}
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
