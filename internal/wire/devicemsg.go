package wire

import "encoding/binary"

// Device message types sent back on the control channel, grounded on
// scrcpy_session.go's readDeviceMessages (clipboard is the only one the
// teacher parses; others are accepted and ignored).
const DeviceMsgTypeClipboard = 0

// ClipboardLenFieldSize is the size of the u32 length prefix following the
// type byte in a clipboard device message.
const ClipboardLenFieldSize = 4

// ParseClipboardLen reads the u32 big-endian length prefix that follows the
// type byte of a clipboard device message.
func ParseClipboardLen(buf []byte) uint32 {
	return binary.BigEndian.Uint32(buf[:ClipboardLenFieldSize])
}
