package input

import "sync/atomic"

// fastTouchSeqCounter is the per-process monotonically increasing
// fast-touch sequence id shared by viewport and steer-wheel modes and the
// script host. Cursor-visible mode does not draw from it: it sends legacy
// InjectTouch messages under the fixed pointer id -2. Grounded on
// FastTouchSeq::next() in inputconvertgame.cpp.
var fastTouchSeqCounter uint32

func nextFastTouchSeq() uint32 {
	return atomic.AddUint32(&fastTouchSeqCounter, 1)
}

// NextFastTouchSeq allocates the next sequence id from the same
// process-wide counter the viewport/steer-wheel modes use. The
// script host (package keymap) calls this directly, mirroring
// ScriptApi's own calls to FastTouchSeq::next() in the source.
func NextFastTouchSeq() uint32 { return nextFastTouchSeq() }

// SendFastTouch encodes and sends one FastMsg touch event, exported for
// the script host's click/holdpress/slide primitives.
func SendFastTouch(s Sender, seq uint32, action uint8, p Point) {
	sendFastTouch(s, seq, action, p)
}
