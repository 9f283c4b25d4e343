// Package demux implements the demuxer (C4): reads wire packets from
// either transport, parses the header, and emits encoded access units
// (concatenating CONFIG payloads with the following keyframe) to the
// decoder. Grounded on main.go's startVideoLoop / streaming.go's per-device
// read loop (header parsing, SPS/PPS caching, CONFIG+keyframe
// concatenation), re-platformed onto the wire.Header format of §6 instead
// of the teacher's separate codec-id/meta header.
package demux

import (
	"context"
	"errors"
	"time"

	"github.com/mirrorctl/scrcpy-go/internal/logging"
	"github.com/mirrorctl/scrcpy-go/internal/metrics"
	"github.com/mirrorctl/scrcpy-go/internal/wire"
)

// ErrStreamStopped is emitted via the OnStop callback when the demuxer's
// context is cancelled. A failed read (including EOF) is passed to OnStop
// as the read's own error instead.
var ErrStreamStopped = errors.New("demux: stream stopped")

// Packet is one decoder-ready access unit: payload bytes (possibly the
// concatenation of a stashed CONFIG payload and this packet's own bytes)
// plus the key-frame flag.
type Packet struct {
	PTS      uint64
	KeyFrame bool
	Payload  []byte
}

// Demuxer runs the read/parse/concatenate loop on its own goroutine.
type Demuxer struct {
	src      Source
	mon      *metrics.Monitor
	onFrame  func(Packet)
	onStop   func(error)
	onConfig func(w, h int)

	pending []byte // stashed CONFIG payload awaiting the next packet
}

// New builds a Demuxer. onConfig, if non-nil, is invoked with the video
// dimensions recovered from a CONFIG payload's SPS, letting transports
// whose handshake carries no explicit size (reliable-UDP) size the frame
// pool before the first real frame decodes.
func New(src Source, mon *metrics.Monitor, onFrame func(Packet), onStop func(error), onConfig func(w, h int)) *Demuxer {
	return &Demuxer{src: src, mon: mon, onFrame: onFrame, onStop: onStop, onConfig: onConfig}
}

// Run executes the loop described in §4.4 until ctx is cancelled or a read
// fails. It is meant to be launched on a dedicated goroutine by the session
// controller ("Demuxer" thread in §5).
func (d *Demuxer) Run(ctx context.Context) {
	headerBuf := make([]byte, wire.HeaderSize)
	for {
		select {
		case <-ctx.Done():
			d.stop(ErrStreamStopped)
			return
		default:
		}

		t0 := time.Now()
		if _, err := d.src.ReadFull(headerBuf); err != nil {
			logging.Errorf("demux: read header: %v", err)
			d.stop(err)
			return
		}
		h := wire.ParseHeader(headerBuf)
		if d.mon != nil {
			d.mon.NetworkLatency.Add(int64(time.Since(t0)))
		}

		payload := make([]byte, h.PayloadLen)
		if h.PayloadLen > 0 {
			if _, err := d.src.ReadFull(payload); err != nil {
				logging.Errorf("demux: read payload: %v", err)
				d.stop(err)
				return
			}
		}
		if d.mon != nil {
			d.mon.ReportBytesReceived(wire.HeaderSize + len(payload))
		}

		if h.Config {
			d.pending = append(d.pending[:0:0], payload...)
			if d.onConfig != nil {
				if w, hh, ok := configDimensions(payload); ok {
					d.onConfig(w, hh)
				}
			}
			continue
		}

		out := payload
		keyFrame := h.KeyFrame
		if len(d.pending) > 0 {
			out = append(append([]byte(nil), d.pending...), payload...)
			keyFrame = true
			d.pending = nil
		}
		d.onFrame(Packet{PTS: h.PTS, KeyFrame: keyFrame, Payload: out})
	}
}

func (d *Demuxer) stop(err error) {
	if d.onStop != nil {
		d.onStop(err)
	}
}
