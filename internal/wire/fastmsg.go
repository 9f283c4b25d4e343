package wire

import "encoding/binary"

// Fast-msg action codes, shared by touch and key messages.
const (
	ActionDown = 0
	ActionUp   = 1
	ActionMove = 2
)

// Fast-msg type bytes (§6 Input protocol, compact form).
const (
	TypeTouchDown = 0x01
	TypeTouchUp   = 0x02
	TypeTouchMove = 0x03
	TypeKeyDown   = 0x10
	TypeKeyUp     = 0x11
)

// FastTouch is the compact touch message: u32 sequence id, u8 action,
// u16 x, u16 y (coordinates normalised 0..65535 over current resolution).
type FastTouch struct {
	Seq    uint32
	Action uint8
	X, Y   uint16
}

// Encode serialises t as [type][seq u32][action u8][x u16][y u16].
func (t FastTouch) Encode() []byte {
	buf := make([]byte, 10)
	buf[0] = actionToType(t.Action)
	binary.BigEndian.PutUint32(buf[1:5], t.Seq)
	buf[5] = t.Action
	binary.BigEndian.PutUint16(buf[6:8], t.X)
	binary.BigEndian.PutUint16(buf[8:10], t.Y)
	return buf
}

func actionToType(action uint8) byte {
	switch action {
	case ActionDown:
		return TypeTouchDown
	case ActionUp:
		return TypeTouchUp
	default:
		return TypeTouchMove
	}
}

// ParseFastTouch decodes a fast-touch message. buf must include the leading
// type byte (10 bytes total).
func ParseFastTouch(buf []byte) (FastTouch, bool) {
	if len(buf) < 10 {
		return FastTouch{}, false
	}
	switch buf[0] {
	case TypeTouchDown, TypeTouchUp, TypeTouchMove:
	default:
		return FastTouch{}, false
	}
	return FastTouch{
		Seq:    binary.BigEndian.Uint32(buf[1:5]),
		Action: buf[5],
		X:      binary.BigEndian.Uint16(buf[6:8]),
		Y:      binary.BigEndian.Uint16(buf[8:10]),
	}, true
}

// FastKey is the compact key message: u8 action, u16 keycode.
type FastKey struct {
	Action  uint8
	Keycode uint16
}

// Encode serialises k as [type][action u8][keycode u16].
func (k FastKey) Encode() []byte {
	buf := make([]byte, 4)
	if k.Action == ActionUp {
		buf[0] = TypeKeyUp
	} else {
		buf[0] = TypeKeyDown
	}
	buf[1] = k.Action
	binary.BigEndian.PutUint16(buf[2:4], k.Keycode)
	return buf
}

// ParseFastKey decodes a fast-key message. buf must include the leading
// type byte (4 bytes total).
func ParseFastKey(buf []byte) (FastKey, bool) {
	if len(buf) < 4 {
		return FastKey{}, false
	}
	if buf[0] != TypeKeyDown && buf[0] != TypeKeyUp {
		return FastKey{}, false
	}
	return FastKey{
		Action:  buf[1],
		Keycode: binary.BigEndian.Uint16(buf[2:4]),
	}, true
}
