// Package wire implements the external byte-level protocol: the 12-byte
// video packet header, the compact fast-touch/fast-key message family, and
// the richer legacy Inject* control messages. All integers are big-endian.
package wire

import "encoding/binary"

const HeaderSize = 12

const (
	ptsFlagConfig   = uint64(1) << 63
	ptsFlagKeyFrame = uint64(1) << 62
	ptsMask62       = ptsFlagKeyFrame - 1
	ptsAllOnes      = ^uint64(0)
)

// Header is the 12-byte video-stream packet header: a 64-bit PTS whose top
// two bits are CONFIG/KEY_FRAME flags over a 62-bit presentation timestamp,
// followed by a 32-bit payload length.
type Header struct {
	PTS        uint64 // low 62 bits only; meaningless when Config is set
	Config     bool
	KeyFrame   bool
	PayloadLen uint32
}

// EncodeHeader writes h into a freshly allocated 12-byte buffer.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	PutHeader(buf, h)
	return buf
}

// PutHeader writes h into buf, which must be at least HeaderSize bytes.
func PutHeader(buf []byte, h Header) {
	var raw uint64
	if h.Config {
		raw = ptsAllOnes
	} else {
		raw = h.PTS & ptsMask62
		if h.KeyFrame {
			raw |= ptsFlagKeyFrame
		}
	}
	binary.BigEndian.PutUint64(buf[0:8], raw)
	binary.BigEndian.PutUint32(buf[8:12], h.PayloadLen)
}

// ParseHeader decodes a 12-byte header. buf must be at least HeaderSize
// bytes; extra bytes are ignored.
func ParseHeader(buf []byte) Header {
	raw := binary.BigEndian.Uint64(buf[0:8])
	h := Header{
		PayloadLen: binary.BigEndian.Uint32(buf[8:12]),
	}
	if raw == ptsAllOnes {
		h.Config = true
		return h
	}
	h.KeyFrame = raw&ptsFlagKeyFrame != 0
	h.PTS = raw & ptsMask62
	return h
}
