package rudp

import "encoding/binary"

// segHeaderSize is the fixed header every ARQ segment carries: conversation
// id, sequence number, ack-sequence, receive-window advertisement,
// timestamp and command, per §4.2's "every transmitted segment carries the
// conversation id, a sequence number, an ack-sequence, a receive-window
// advertisement, a timestamp, and a command".
const segHeaderSize = 4 + 4 + 4 + 2 + 4 + 1

const (
	cmdPush      byte = 0
	cmdAck       byte = 1
	cmdWndProbe  byte = 2
)

type segment struct {
	ConvID uint32
	Seq    uint32
	Ack    uint32
	Wnd    uint16
	TS     uint32
	Cmd    byte
	Data   []byte
}

func (s segment) encode() []byte {
	buf := make([]byte, segHeaderSize+len(s.Data))
	binary.BigEndian.PutUint32(buf[0:4], s.ConvID)
	binary.BigEndian.PutUint32(buf[4:8], s.Seq)
	binary.BigEndian.PutUint32(buf[8:12], s.Ack)
	binary.BigEndian.PutUint16(buf[12:14], s.Wnd)
	binary.BigEndian.PutUint32(buf[14:18], s.TS)
	buf[18] = s.Cmd
	copy(buf[segHeaderSize:], s.Data)
	return buf
}

func decodeSegment(buf []byte) (segment, bool) {
	if len(buf) < segHeaderSize {
		return segment{}, false
	}
	s := segment{
		ConvID: binary.BigEndian.Uint32(buf[0:4]),
		Seq:    binary.BigEndian.Uint32(buf[4:8]),
		Ack:    binary.BigEndian.Uint32(buf[8:12]),
		Wnd:    binary.BigEndian.Uint16(buf[12:14]),
		TS:     binary.BigEndian.Uint32(buf[14:18]),
		Cmd:    buf[18],
	}
	if len(buf) > segHeaderSize {
		s.Data = append([]byte(nil), buf[segHeaderSize:]...)
	}
	return s, true
}
