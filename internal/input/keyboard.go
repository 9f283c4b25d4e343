package input

import (
	"github.com/mirrorctl/scrcpy-go/internal/wire"
	"github.com/veandco/go-sdl2/sdl"
)

// keyboard turns SDL key events into FastKey messages, dropping keys that
// have no Android equivalent (convertKeyCode returning AndroidKeycodeUnknown
// is silently swallowed, mirroring the source's early return).
type keyboard struct {
	sender Sender
}

func newKeyboard(s Sender) *keyboard {
	return &keyboard{sender: s}
}

func (k *keyboard) OnKey(key sdl.Keycode, mods sdl.Keymod, down, repeat bool) {
	if repeat {
		return
	}
	code := convertKeyCode(key, mods)
	if code == AndroidKeycodeUnknown {
		return
	}
	action := uint8(wire.ActionUp)
	if down {
		action = wire.ActionDown
	}
	msg := wire.FastKey{Action: action, Keycode: uint16(code)}
	k.sender.Send(msg.Encode())
}
