package session

import (
	"context"
	"time"

	"github.com/mirrorctl/scrcpy-go/internal/logging"
	"github.com/mirrorctl/scrcpy-go/internal/transport/rudp"
	"github.com/mirrorctl/scrcpy-go/internal/wire"
)

// fullReader is satisfied by *tcpchan.Channel (and anything else with the
// demuxer's fixed-size-read contract), the shape controlReadLoopStream
// needs for the TCP control channel.
type fullReader interface {
	ReadFull(buf []byte) (int, error)
}

// controlReadLoopStream parses DeviceMessage frames off a byte-oriented
// control channel, grounded one-for-one on scrcpy_session.go's
// readDeviceMessages: a one-byte type tag, and for CLIPBOARD a big-endian
// u32 length followed by that many bytes of text. Any other type is
// logged and the loop resumes at the next byte, matching the teacher's
// own inability to skip an unknown message body it doesn't know the
// length of.
func controlReadLoopStream(ctx context.Context, r fullReader) {
	var typeBuf [1]byte
	lenBuf := make([]byte, wire.ClipboardLenFieldSize)
	dataBuf := make([]byte, 0, 4096)
	for {
		if ctx.Err() != nil {
			return
		}
		if _, err := r.ReadFull(typeBuf[:]); err != nil {
			if ctx.Err() == nil {
				logging.Debugf("session: control read stopped: %v", err)
			}
			return
		}
		if typeBuf[0] != wire.DeviceMsgTypeClipboard {
			logging.Debugf("session: unhandled device message type %d", typeBuf[0])
			continue
		}
		if _, err := r.ReadFull(lenBuf); err != nil {
			logging.Debugf("session: control read stopped: %v", err)
			return
		}
		n := wire.ParseClipboardLen(lenBuf)
		if cap(dataBuf) < int(n) {
			dataBuf = make([]byte, n)
		} else {
			dataBuf = dataBuf[:n]
		}
		if _, err := r.ReadFull(dataBuf); err != nil {
			logging.Debugf("session: control read stopped: %v", err)
			return
		}
		logging.Debugf("session: clipboard update (%d bytes)", n)
	}
}

// controlReadLoopMessages is the reliable-UDP counterpart: each Recv
// already returns one reassembled, ordered message, so the type/length/
// data triad for one DeviceMessage always arrives together instead of
// needing the byte-stream parsing controlReadLoopStream does for TCP.
func controlReadLoopMessages(ctx context.Context, ch *rudp.Channel) {
	for {
		if ctx.Err() != nil {
			return
		}
		msg, err := ch.Recv(200 * time.Millisecond)
		if err == rudp.ErrTimeout {
			continue
		}
		if err != nil {
			logging.Debugf("session: control read stopped: %v", err)
			return
		}
		if len(msg) < 1+wire.ClipboardLenFieldSize || msg[0] != wire.DeviceMsgTypeClipboard {
			continue
		}
		n := wire.ParseClipboardLen(msg[1:])
		logging.Debugf("session: clipboard update (%d bytes)", n)
	}
}
