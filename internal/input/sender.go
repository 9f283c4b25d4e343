package input

import "github.com/mirrorctl/scrcpy-go/internal/wire"

// Sender is the subset of control.Sender the converter needs; kept as a
// small interface here so tests can substitute a recording fake without
// importing the transport stack.
type Sender interface {
	Send(b []byte) bool
}

// Point is a normalised (0..1) screen-space coordinate, the unit all three
// input modes compute in before encoding a FastMsg touch event.
type Point struct{ X, Y float64 }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func toFastCoord(v float64) uint16 {
	v = clamp01(v)
	return uint16(v * 65535)
}

// sendFastTouch encodes and sends one FastMsg touch event at the given
// normalised position, per wire.FastTouch.
func sendFastTouch(s Sender, seq uint32, action uint8, p Point) {
	if s == nil {
		return
	}
	t := wire.FastTouch{Seq: seq, Action: action, X: toFastCoord(p.X), Y: toFastCoord(p.Y)}
	s.Send(t.Encode())
}

// sendInjectTouch encodes and sends one legacy InjectTouch event for
// cursor mode: p is a window-normalised position scaled into a
// targetW x targetH device-pixel rect under the fixed generic-finger
// pointer id, per wire.InjectTouch.
func sendInjectTouch(s Sender, action uint8, p Point, targetW, targetH int, pressure float32, actionButton, buttons uint32) {
	if s == nil {
		return
	}
	if targetW <= 0 {
		targetW = 1
	}
	if targetH <= 0 {
		targetH = 1
	}
	x, y := clamp01(p.X), clamp01(p.Y)
	t := wire.InjectTouch{
		PointerID: pointerIDGenericFinger,
		Action:    action,
		Position: wire.Rect{
			X:      int32(x * float64(targetW)),
			Y:      int32(y * float64(targetH)),
			Width:  uint16(targetW),
			Height: uint16(targetH),
		},
		Pressure:     pressure,
		ActionButton: actionButton,
		Buttons:      buttons,
	}
	s.Send(t.Encode())
}
