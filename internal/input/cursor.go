package input

import "github.com/mirrorctl/scrcpy-go/internal/wire"

// cursorOwner is the registry owner key reserved for the single
// "generic finger" touch-point cursor-visible mode drives. It is negative
// so it never collides with a key code, and not -1, which the registry
// would store as its free marker (owner key + 1 == 0).
const cursorOwner = -2

// pointerIDGenericFinger is Android's POINTER_ID_GENERIC_FINGER (-2), the
// reserved pointer id cursor-visible mode injects under so it never
// collides with the game's own multi-touch pointer ids.
const pointerIDGenericFinger = -2

// buttonPrimary is AMOTION_EVENT_BUTTON_PRIMARY, the left mouse button's
// bit in InjectTouch's ActionButton/Buttons masks.
const buttonPrimary = 1

// cursorMode converts primary-button press/move/release into a single
// rich touch point injected at the click's device-pixel equivalent, per
// spec.md §4.8's "Cursor-visible mode" paragraph. Secondary buttons are
// ignored. Grounded on inputconvertgame.cpp's processCursorMouse, which
// injects the legacy InjectTouch message (not the compact FastMsg
// encoding view/steer-wheel modes use) under POINTER_ID_GENERIC_FINGER
// with pressure 1.0 on the down action and 0.0 otherwise.
type cursorMode struct {
	registry *touchRegistry
	down     bool
}

func newCursorMode(r *touchRegistry) *cursorMode {
	return &cursorMode{registry: r}
}

// OnButton handles a primary mouse button transition at window-normalised
// position p, scaled into a targetW x targetH device-pixel rect.
func (c *cursorMode) OnButton(s Sender, primary, down bool, p Point, targetW, targetH int) {
	if !primary {
		return
	}
	if down && !c.down {
		c.down = true
		c.registry.Attach(cursorOwner)
		sendInjectTouch(s, wire.ActionDown, p, targetW, targetH, 1.0, buttonPrimary, buttonPrimary)
		return
	}
	if !down && c.down {
		c.down = false
		c.registry.Detach(cursorOwner)
		sendInjectTouch(s, wire.ActionUp, p, targetW, targetH, 0, buttonPrimary, 0)
	}
}

// OnMove forwards a move event while the button is held. The button that
// triggered the event is none (a plain move), so ActionButton is 0 while
// Buttons keeps reporting the primary button as held.
func (c *cursorMode) OnMove(s Sender, p Point, targetW, targetH int) {
	if !c.down {
		return
	}
	sendInjectTouch(s, wire.ActionMove, p, targetW, targetH, 0, 0, buttonPrimary)
}
