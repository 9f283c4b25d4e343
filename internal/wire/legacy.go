package wire

import "encoding/binary"

// Legacy control message types (big-endian on the wire), grounded on the
// teacher's 32-byte INJECT_TOUCH_EVENT encoding (touch.go, main.go) and its
// TYPE_RESET_VIDEO/TYPE_GET_CLIPBOARD constants (constants.go), reconciled
// to the rect-form position field the external interface specifies.
const (
	LegacyTypeInjectKeycode = 0
	LegacyTypeInjectTouch   = 2
	LegacyTypeBackOrScreenOn = 4
	LegacyTypeGetClipboard  = 8
	LegacyTypeResetVideo    = 17
	LegacyTypeDisconnect    = 100
)

// Rect is the 12-byte screen-position field shared by InjectTouch: a
// top-left point in device pixels plus the screen dimensions it was
// computed against, so the agent can rescale if its surface differs.
type Rect struct {
	X, Y          int32
	Width, Height uint16
}

func putRect(buf []byte, r Rect) {
	binary.BigEndian.PutUint32(buf[0:4], uint32(r.X))
	binary.BigEndian.PutUint32(buf[4:8], uint32(r.Y))
	binary.BigEndian.PutUint16(buf[8:10], r.Width)
	binary.BigEndian.PutUint16(buf[10:12], r.Height)
}

func parseRect(buf []byte) Rect {
	return Rect{
		X:      int32(binary.BigEndian.Uint32(buf[0:4])),
		Y:      int32(binary.BigEndian.Uint32(buf[4:8])),
		Width:  binary.BigEndian.Uint16(buf[8:10]),
		Height: binary.BigEndian.Uint16(buf[10:12]),
	}
}

// InjectTouch is the legacy touch message: pointer id, action, rect-form
// position, pressure as a u16 fixed-point value in [0,1], the originating
// mouse action-button and the currently-held buttons mask.
type InjectTouch struct {
	PointerID    int64
	Action       uint8
	Position     Rect
	Pressure     float32 // [0,1]
	ActionButton uint32
	Buttons      uint32
}

// Encode serialises t as type(1) action(1) pointerId(8) rect(12) pressure(2) actionButton(4) buttons(4) = 32 bytes.
func (t InjectTouch) Encode() []byte {
	buf := make([]byte, 32)
	buf[0] = LegacyTypeInjectTouch
	buf[1] = t.Action
	binary.BigEndian.PutUint64(buf[2:10], uint64(t.PointerID))
	putRect(buf[10:22], t.Position)
	binary.BigEndian.PutUint16(buf[22:24], pressureToFixed(t.Pressure))
	binary.BigEndian.PutUint32(buf[24:28], t.ActionButton)
	binary.BigEndian.PutUint32(buf[28:32], t.Buttons)
	return buf
}

// ParseInjectTouch decodes a 32-byte legacy touch message (including the
// leading type byte).
func ParseInjectTouch(buf []byte) (InjectTouch, bool) {
	if len(buf) < 32 || buf[0] != LegacyTypeInjectTouch {
		return InjectTouch{}, false
	}
	return InjectTouch{
		Action:       buf[1],
		PointerID:    int64(binary.BigEndian.Uint64(buf[2:10])),
		Position:     parseRect(buf[10:22]),
		Pressure:     fixedToPressure(binary.BigEndian.Uint16(buf[22:24])),
		ActionButton: binary.BigEndian.Uint32(buf[24:28]),
		Buttons:      binary.BigEndian.Uint32(buf[28:32]),
	}, true
}

func pressureToFixed(p float32) uint16 {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return uint16(p * 0xFFFF)
}

func fixedToPressure(v uint16) float32 {
	return float32(v) / 0xFFFF
}

// InjectKeycode is the legacy key message: action, Android keycode, repeat
// count, metastate bitmask.
type InjectKeycode struct {
	Action     uint8
	Keycode    uint32
	Repeat     uint32
	Metastate  uint32
}

// Encode serialises k as type(1) action(1) keycode(4) repeat(4) metastate(4) = 14 bytes.
func (k InjectKeycode) Encode() []byte {
	buf := make([]byte, 14)
	buf[0] = LegacyTypeInjectKeycode
	buf[1] = k.Action
	binary.BigEndian.PutUint32(buf[2:6], k.Keycode)
	binary.BigEndian.PutUint32(buf[6:10], k.Repeat)
	binary.BigEndian.PutUint32(buf[10:14], k.Metastate)
	return buf
}

// ParseInjectKeycode decodes a 14-byte legacy key message.
func ParseInjectKeycode(buf []byte) (InjectKeycode, bool) {
	if len(buf) < 14 || buf[0] != LegacyTypeInjectKeycode {
		return InjectKeycode{}, false
	}
	return InjectKeycode{
		Action:    buf[1],
		Keycode:   binary.BigEndian.Uint32(buf[2:6]),
		Repeat:    binary.BigEndian.Uint32(buf[6:10]),
		Metastate: binary.BigEndian.Uint32(buf[10:14]),
	}, true
}

// BackOrScreenOn serialises the "press back, or wake the screen if it is
// off" message: type(1) action(1).
func BackOrScreenOn(action uint8) []byte {
	return []byte{LegacyTypeBackOrScreenOn, action}
}

// Disconnect serialises the disconnect notification: type(1) only.
func Disconnect() []byte {
	return []byte{LegacyTypeDisconnect}
}

// ResetVideo serialises a keyframe request, grounded on the teacher's
// TYPE_RESET_VIDEO (value 17).
func ResetVideo() []byte {
	return []byte{LegacyTypeResetVideo}
}

// GetClipboard serialises a clipboard-read request carrying a copy-key
// byte, grounded on the teacher's TYPE_GET_CLIPBOARD heartbeat.
func GetClipboard(copyKey byte) []byte {
	return []byte{LegacyTypeGetClipboard, copyKey}
}
