// Package control implements the control sender (C7): send(bytes) -> bool
// for the input converter, channel-agnostic over the reliable-UDP and TCP
// transports. Grounded on scrcpy_session.go's writeFull/RequestKeyframe
// (mutex-guarded full write with an optional deadline), generalized away
// from a single TCP control connection to any Channel implementation.
package control

import (
	"sync"
	"time"

	"github.com/mirrorctl/scrcpy-go/internal/logging"
	"github.com/mirrorctl/scrcpy-go/internal/metrics"
	"github.com/mirrorctl/scrcpy-go/internal/transport/tcpchan"
	"github.com/mirrorctl/scrcpy-go/internal/wire"
)

// Channel is satisfied by both *tcpchan.Channel (via TCPChannel) and
// *rudp.Channel directly. Only Send is needed; the reliable channel is
// safe to call from any thread, the TCP channel is driven from its owner
// thread per §4.7.
type Channel interface {
	Send(b []byte) (int, error)
}

// tcpWriteDeadline matches the teacher's controlWriteDefaultTimeout use in
// writeFull.
const tcpWriteDeadline = 2 * time.Second

// TCPChannel adapts *tcpchan.Channel's deadline-taking Send to the
// Channel interface with the teacher's fixed control-write timeout.
type TCPChannel struct{ Ch *tcpchan.Channel }

func (c TCPChannel) Send(b []byte) (int, error) {
	return c.Ch.Send(b, tcpWriteDeadline)
}

// Sender wraps a Channel with the drop/sent counters described in §4.7. No
// retries: the reliable channel owns reliability, the TCP channel inherits
// it from TCP.
type Sender struct {
	ch  Channel
	mon *metrics.Monitor
	mu  sync.Mutex
}

func New(ch Channel, mon *metrics.Monitor) *Sender {
	return &Sender{ch: ch, mon: mon}
}

// Send writes b in immediate mode and reports whether it was accepted.
// A false return means the message was dropped (e.g. the reliable
// channel's send window was full); it is never retried here.
func (s *Sender) Send(b []byte) bool {
	if len(b) == 0 {
		return true
	}
	s.mu.Lock()
	_, err := s.ch.Send(b)
	s.mu.Unlock()
	if err != nil {
		logging.Debugf("control: send dropped: %v", err)
		if s.mon != nil {
			s.mon.ReportControlDropped()
		}
		return false
	}
	if s.mon != nil {
		s.mon.ReportControlSent()
	}
	return true
}

// RequestKeyframe sends the legacy RESET_VIDEO control message, mirroring
// the teacher's RequestKeyframe helper.
func (s *Sender) RequestKeyframe() bool {
	return s.Send(wire.ResetVideo())
}

// RequestClipboard sends GET_CLIPBOARD with the given copy-key, used as a
// periodic heartbeat by the teacher's sendGetClipboard.
func (s *Sender) RequestClipboard(copyKey byte) bool {
	return s.Send(wire.GetClipboard(copyKey))
}

// Disconnect politely asks the agent to tear down before the local side
// closes its sockets.
func (s *Sender) Disconnect() bool {
	return s.Send(wire.Disconnect())
}

// heartbeatInterval matches the teacher's control-health monitor cadence
// for periodic GET_CLIPBOARD keep-alives.
const heartbeatInterval = 2 * time.Second

// StartHeartbeat spawns a goroutine issuing RequestClipboard every
// heartbeatInterval until stop is called, mirroring
// ScrcpySession.monitorControlHealth's liveness-probing role.
func (s *Sender) StartHeartbeat(copyKey byte) (stop func()) {
	t := time.NewTicker(heartbeatInterval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-t.C:
				s.RequestClipboard(copyKey)
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
