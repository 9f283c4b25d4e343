// Package framepool implements the lock-free frame ownership system: a
// preallocated pool of YUV buffers, a single-producer/single-consumer ring,
// and an atomic single-slot mailbox, ported from
// original_source/client/src/core/infra/{FrameData.h,FramePool.h} and
// SPSCQueue.h.
package framepool

import "sync/atomic"

// alignment matches the source's 32-byte-aligned plane requirement.
const alignment = 32

// Frame is one pool slot's worth of YUV420P (or NV12 semi-planar) storage.
// Planes point into a single aligned backing allocation per slot.
type Frame struct {
	Y, U, V, UV          []byte
	StrideY, StrideU, StrideV, StrideUV int
	Width, Height        int
	PTS                  int64
	Seq                  uint64
	SemiPlanar           bool

	refCount int32
	poolIndex int
	pool      *Pool
}

// Retain increments the frame's reference count. Acquire always starts a
// frame at refcount 1; callers that fan a frame out to multiple consumers
// (e.g. the renderer's preview sink) must Retain before handing it off.
func (f *Frame) Retain() {
	atomic.AddInt32(&f.refCount, 1)
}

// Release drops the reference count; at zero the frame returns to the pool
// as idle.
func (f *Frame) Release() {
	if atomic.AddInt32(&f.refCount, -1) == 0 && f.pool != nil {
		f.pool.release(f.poolIndex)
	}
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

// allocPlanar sizes and slices Y/U/V/UV planes for either YUV420P or NV12
// semi-planar at w×h with 32-byte-aligned strides, as one contiguous
// allocation (pairwise non-aliasing per the data-model invariant). UV
// shares the same backing allocation as U/V so a decoder can switch pixel
// formats across a resize without a separate pool shape per format; only
// one of (U,V) or UV is populated for a given frame.
func allocPlanar(w, h int) (y, u, v, uv []byte, strideY, strideU, strideV, strideUV int) {
	strideY = alignUp(w, alignment)
	strideU = alignUp((w+1)/2, alignment)
	strideV = strideU
	strideUV = alignUp(2*((w+1)/2), alignment) // interleaved U/V samples, full luma width
	ySize := strideY * h
	uSize := strideU * ((h + 1) / 2)
	vSize := strideV * ((h + 1) / 2)
	uvSize := strideUV * ((h + 1) / 2)
	buf := make([]byte, ySize+uSize+vSize+uvSize)
	y = buf[0:ySize]
	u = buf[ySize : ySize+uSize]
	v = buf[ySize+uSize : ySize+uSize+vSize]
	uv = buf[ySize+uSize+vSize : ySize+uSize+vSize+uvSize]
	return
}
