// Package metrics aggregates lock-free per-subsystem counters and
// sliding-window latencies for a single session, exposed over expvar the
// way the teacher publishes its frame/control counters.
package metrics

import (
	"expvar"
	"sync/atomic"
	"time"
)

const windowSize = 128

// Window is a lock-free fixed-size circular window of latency samples.
// Writers call Add, which is a single atomic fetch-add on the write index
// followed by a plain store; readers do a full-window scan and tolerate
// partially-written samples (a torn read just yields a stale value once
// every windowSize wraps, which is acceptable for a 1 Hz aggregate).
type Window struct {
	samples [windowSize]int64
	writeIx uint64
	filled  uint64
}

func (w *Window) Add(sampleNanos int64) {
	ix := atomic.AddUint64(&w.writeIx, 1) - 1
	atomic.StoreInt64(&w.samples[ix%windowSize], sampleNanos)
	for {
		f := atomic.LoadUint64(&w.filled)
		if f >= windowSize {
			break
		}
		if atomic.CompareAndSwapUint64(&w.filled, f, f+1) {
			break
		}
	}
}

// Stats returns (avg, min, max) over whatever is currently populated.
func (w *Window) Stats() (avg, min, max time.Duration) {
	n := atomic.LoadUint64(&w.filled)
	if n == 0 {
		return 0, 0, 0
	}
	var sum int64
	lo := int64(1) << 62
	hi := int64(0)
	for i := uint64(0); i < n && i < windowSize; i++ {
		v := atomic.LoadInt64(&w.samples[i])
		sum += v
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return time.Duration(sum / int64(n)), time.Duration(lo), time.Duration(hi)
}

// Monitor is the process/session-wide performance aggregator. It is
// constructed explicitly and passed by reference into whichever components
// need it, rather than kept as a package-global singleton (the source's
// global PerformanceMonitor is rearchitected per the explicit-construction
// design note).
type Monitor struct {
	DecodeLatency Window
	RenderLatency Window
	InputLatency  Window
	NetworkLatency Window

	framesDecoded   int64
	bytesSent       int64
	bytesReceived   int64
	pendingBytes    int64
	frameQueueDepth int64
	framePoolUsed   int64
	framePoolTotal  int64
	controlSent     int64
	controlDropped  int64
	fecRecovered    int64
	fecFallthrough  int64

	published bool
}

// NewMonitor creates a Monitor and, if name is non-empty, publishes its
// counters under expvar the way the teacher's constants.go publishes
// evFramesRead/evBytesRead/etc; name must be unique per process.
func NewMonitor(name string) *Monitor {
	m := &Monitor{}
	if name != "" {
		m.publish(name)
	}
	return m
}

func (m *Monitor) publish(name string) {
	if m.published {
		return
	}
	m.published = true
	expvar.Publish(name+"_frames_decoded", expvar.Func(func() interface{} { return atomic.LoadInt64(&m.framesDecoded) }))
	expvar.Publish(name+"_bytes_sent", expvar.Func(func() interface{} { return atomic.LoadInt64(&m.bytesSent) }))
	expvar.Publish(name+"_bytes_received", expvar.Func(func() interface{} { return atomic.LoadInt64(&m.bytesReceived) }))
	expvar.Publish(name+"_pending_bytes", expvar.Func(func() interface{} { return atomic.LoadInt64(&m.pendingBytes) }))
	expvar.Publish(name+"_frame_queue_depth", expvar.Func(func() interface{} { return atomic.LoadInt64(&m.frameQueueDepth) }))
	expvar.Publish(name+"_frame_pool_used", expvar.Func(func() interface{} { return atomic.LoadInt64(&m.framePoolUsed) }))
	expvar.Publish(name+"_frame_pool_total", expvar.Func(func() interface{} { return atomic.LoadInt64(&m.framePoolTotal) }))
	expvar.Publish(name+"_control_sent", expvar.Func(func() interface{} { return atomic.LoadInt64(&m.controlSent) }))
	expvar.Publish(name+"_control_dropped", expvar.Func(func() interface{} { return atomic.LoadInt64(&m.controlDropped) }))
	expvar.Publish(name+"_fec_recovered", expvar.Func(func() interface{} { return atomic.LoadInt64(&m.fecRecovered) }))
	expvar.Publish(name+"_fec_fallthrough", expvar.Func(func() interface{} { return atomic.LoadInt64(&m.fecFallthrough) }))
	expvar.Publish(name+"_decode_latency_avg_ms", expvar.Func(func() interface{} {
		avg, _, _ := m.DecodeLatency.Stats()
		return avg.Milliseconds()
	}))
	expvar.Publish(name+"_render_latency_avg_ms", expvar.Func(func() interface{} {
		avg, _, _ := m.RenderLatency.Stats()
		return avg.Milliseconds()
	}))
}

func (m *Monitor) ReportFrameDecoded()          { atomic.AddInt64(&m.framesDecoded, 1) }
func (m *Monitor) ReportBytesSent(n int)        { atomic.AddInt64(&m.bytesSent, int64(n)) }
func (m *Monitor) ReportBytesReceived(n int)    { atomic.AddInt64(&m.bytesReceived, int64(n)) }
func (m *Monitor) SetPendingBytes(n int)        { atomic.StoreInt64(&m.pendingBytes, int64(n)) }
func (m *Monitor) SetFrameQueueDepth(n int)     { atomic.StoreInt64(&m.frameQueueDepth, int64(n)) }
func (m *Monitor) SetFramePoolUsage(used, total int) {
	atomic.StoreInt64(&m.framePoolUsed, int64(used))
	atomic.StoreInt64(&m.framePoolTotal, int64(total))
}
func (m *Monitor) ReportControlSent()    { atomic.AddInt64(&m.controlSent, 1) }
func (m *Monitor) ReportControlDropped() { atomic.AddInt64(&m.controlDropped, 1) }
func (m *Monitor) ReportFECRecovered()   { atomic.AddInt64(&m.fecRecovered, 1) }
func (m *Monitor) ReportFECFallthrough() { atomic.AddInt64(&m.fecFallthrough, 1) }

// Snapshot is a point-in-time copy of the aggregate counters, emitted on the
// 1 Hz "metrics updated" tick.
type Snapshot struct {
	FPS                float64
	DecodeLatencyAvg   time.Duration
	RenderLatencyAvg   time.Duration
	InputLatencyAvg    time.Duration
	NetworkLatencyAvg  time.Duration
	BytesSent          int64
	BytesReceived      int64
	PendingBytes       int64
	FrameQueueDepth    int64
	FramePoolUsed      int64
	FramePoolTotal     int64
}

func (m *Monitor) Snapshot(fps float64) Snapshot {
	dAvg, _, _ := m.DecodeLatency.Stats()
	rAvg, _, _ := m.RenderLatency.Stats()
	iAvg, _, _ := m.InputLatency.Stats()
	nAvg, _, _ := m.NetworkLatency.Stats()
	return Snapshot{
		FPS:               fps,
		DecodeLatencyAvg:  dAvg,
		RenderLatencyAvg:  rAvg,
		InputLatencyAvg:   iAvg,
		NetworkLatencyAvg: nAvg,
		BytesSent:         atomic.LoadInt64(&m.bytesSent),
		BytesReceived:     atomic.LoadInt64(&m.bytesReceived),
		PendingBytes:      atomic.LoadInt64(&m.pendingBytes),
		FrameQueueDepth:   atomic.LoadInt64(&m.frameQueueDepth),
		FramePoolUsed:     atomic.LoadInt64(&m.framePoolUsed),
		FramePoolTotal:    atomic.LoadInt64(&m.framePoolTotal),
	}
}

// Ticker drives the 1 Hz "metrics updated" event described in §4.11.
func (m *Monitor) Ticker(fps func() float64, onUpdate func(Snapshot)) (stop func()) {
	t := time.NewTicker(time.Second)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-t.C:
				onUpdate(m.Snapshot(fps()))
			case <-done:
				return
			}
		}
	}()
	return func() {
		t.Stop()
		close(done)
	}
}
