// Package fec implements the optional XOR-based forward error correction
// layer over the reliable-UDP channel (C12), ported line-for-line from
// original_source/client/src/transport/kcp/FecCodec.h: a 6-byte header
// [type][groupId][index][groupSize][originalLen(2B)] followed by the
// payload, with parity accumulated as the XOR of every data packet's
// (length-padded) payload in the group.
package fec

import "encoding/binary"

const (
	HeaderSize     = 6
	TypeData   byte = 0x01
	TypeParity byte = 0x02

	// DefaultGroupSize matches both spec.md §4.2 and FecCodec.h's default.
	DefaultGroupSize = 10
	// MaxPacketSize bounds the parity accumulator buffer.
	MaxPacketSize = 1400
)

// Packet is one on-wire FEC-framed unit: header fields plus payload.
type Packet struct {
	Type       byte
	GroupID    uint8
	Index      uint8
	GroupSize  uint8
	OriginalLen uint16
	Payload    []byte
}

// Encode serialises p as [type][groupId][index][groupSize][originalLen u16][payload].
func (p Packet) Encode() []byte {
	buf := make([]byte, HeaderSize+len(p.Payload))
	buf[0] = p.Type
	buf[1] = p.GroupID
	buf[2] = p.Index
	buf[3] = p.GroupSize
	binary.BigEndian.PutUint16(buf[4:6], p.OriginalLen)
	copy(buf[6:], p.Payload)
	return buf
}

// Decode parses a FEC-framed packet; the payload slice aliases buf.
func Decode(buf []byte) (Packet, bool) {
	if len(buf) < HeaderSize {
		return Packet{}, false
	}
	return Packet{
		Type:        buf[0],
		GroupID:     buf[1],
		Index:       buf[2],
		GroupSize:   buf[3],
		OriginalLen: binary.BigEndian.Uint16(buf[4:6]),
		Payload:     buf[6:],
	}, true
}

// Encoder accumulates XOR parity across a group of data packets and emits
// the parity packet once the group boundary is reached, via outputCb —
// mirroring FecEncoder::encode's callback-based emission of the data
// packet immediately followed (at the group boundary) by the parity
// packet.
type Encoder struct {
	GroupSize int
	groupID   uint8
	index     uint8
	parityBuf [MaxPacketSize]byte
	parityLen int
}

func NewEncoder(groupSize int) *Encoder {
	if groupSize <= 0 {
		groupSize = DefaultGroupSize
	}
	return &Encoder{GroupSize: groupSize}
}

// Encode frames data as a data packet, XORs it into the running parity
// accumulator, calls outputCb with the data packet, and — once the group
// is complete — calls outputCb again with the parity packet before
// resetting for the next group.
func (e *Encoder) Encode(data []byte, outputCb func([]byte)) {
	pkt := Packet{
		Type:        TypeData,
		GroupID:     e.groupID,
		Index:       e.index,
		GroupSize:   uint8(e.GroupSize),
		OriginalLen: uint16(len(data)),
		Payload:     data,
	}
	outputCb(pkt.Encode())

	for i, b := range data {
		if i >= len(e.parityBuf) {
			break
		}
		e.parityBuf[i] ^= b
	}
	if len(data) > e.parityLen {
		e.parityLen = len(data)
	}

	e.index++
	if int(e.index) >= e.GroupSize {
		parity := Packet{
			Type:        TypeParity,
			GroupID:     e.groupID,
			Index:       uint8(e.GroupSize),
			GroupSize:   uint8(e.GroupSize),
			OriginalLen: uint16(e.parityLen),
			Payload:     append([]byte(nil), e.parityBuf[:e.parityLen]...),
		}
		outputCb(parity.Encode())
		e.resetGroup()
	}
}

func (e *Encoder) resetGroup() {
	e.groupID++
	e.index = 0
	e.parityLen = 0
	for i := range e.parityBuf {
		e.parityBuf[i] = 0
	}
}
